package generator

import (
	"context"

	"github.com/solet-asu/MCQ-generation/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const defaultBatchConcurrency = 30

// TaskRunner produces a single MCQ for one task. Both Generator and Ranker
// satisfy it, which is how quality-first mode swaps in without the
// orchestrator knowing.
type TaskRunner interface {
	Generate(ctx context.Context, invocationID string, task domain.Task) (*domain.MCQResult, error)
}

// Orchestrator fans a batch of tasks out over a bounded number of concurrent
// runners. One failed task never sinks the batch: its error is logged and its
// slot dropped from the output.
type Orchestrator struct {
	runner      TaskRunner
	concurrency int64
	logger      *zap.Logger
}

func NewOrchestrator(runner TaskRunner, concurrency int, logger *zap.Logger) *Orchestrator {
	if concurrency < 1 {
		concurrency = defaultBatchConcurrency
	}
	return &Orchestrator{
		runner:      runner,
		concurrency: int64(concurrency),
		logger:      logger,
	}
}

// GenerateAll runs every task and returns the successful results in the same
// relative order as their tasks.
func (o *Orchestrator) GenerateAll(ctx context.Context, invocationID string, tasks []domain.Task) ([]*domain.MCQResult, error) {
	sem := semaphore.NewWeighted(o.concurrency)
	results := make([]*domain.MCQResult, len(tasks))

	for i, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, domain.NewInternalError("batch generation interrupted", err)
		}
		go func(slot int, t domain.Task) {
			defer sem.Release(1)
			result, err := o.runner.Generate(ctx, invocationID, t)
			if err != nil {
				o.logger.Error("Task generation failed",
					zap.String("invocation_id", invocationID),
					zap.Int("task", slot),
					zap.String("question_type", string(t.QuestionType)),
					zap.Error(err))
				return
			}
			results[slot] = result
		}(i, task)
	}
	if err := sem.Acquire(ctx, o.concurrency); err != nil {
		return nil, domain.NewInternalError("batch generation interrupted", err)
	}

	compacted := make([]*domain.MCQResult, 0, len(results))
	for _, result := range results {
		if result != nil {
			compacted = append(compacted, result)
		}
	}
	return compacted, nil
}
