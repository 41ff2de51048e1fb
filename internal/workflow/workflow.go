package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solet-asu/MCQ-generation/internal/balance"
	"github.com/solet-asu/MCQ-generation/internal/chunker"
	"github.com/solet-asu/MCQ-generation/internal/config"
	"github.com/solet-asu/MCQ-generation/internal/domain"
	"github.com/solet-asu/MCQ-generation/internal/format"
	"github.com/solet-asu/MCQ-generation/internal/generator"
	"github.com/solet-asu/MCQ-generation/internal/planner"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	planTable       = "plan_metadata"
	mcqTable        = "mcq_metadata"
	evaluationTable = "evaluation_metadata"
	rankingTable    = "ranking_metadata"
	workflowTable   = "workflow_metadata"
)

// Request is one end-to-end generation invocation.
type Request struct {
	Text      string
	Fact      int
	Inference int
	MainIdea  int
}

// Workflow wires the whole pipeline: chunking, planning, task expansion,
// concurrent generation, ordering, and the final workflow metadata row.
type Workflow struct {
	client  domain.CompletionClient
	prompts domain.PromptStore
	scorer  domain.SimilarityScorer
	sink    domain.MetadataSink
	cfg     *config.Config
	logger  *zap.Logger
}

func New(
	client domain.CompletionClient,
	prompts domain.PromptStore,
	scorer domain.SimilarityScorer,
	sink domain.MetadataSink,
	cfg *config.Config,
	logger *zap.Logger,
) *Workflow {
	return &Workflow{
		client:  client,
		prompts: prompts,
		scorer:  scorer,
		sink:    sink,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run generates MCQs from req.Text per the requested counts. Empty text
// returns an empty result, not an error; invalid counts do error.
func (w *Workflow) Run(ctx context.Context, req Request) ([]*domain.MCQResult, error) {
	if req.Text == "" {
		w.logger.Warn("Empty text provided to workflow")
		return []*domain.MCQResult{}, nil
	}
	if req.Fact < 0 || req.Inference < 0 || req.MainIdea < 0 {
		return nil, domain.NewInvalidInputError("counts for fact, inference, and main_idea must be non-negative")
	}
	if w.cfg.Workflow.QualityFirst && w.cfg.Workflow.CandidateNum <= 0 {
		return nil, domain.NewInvalidInputError("candidate_num must be positive in quality-first mode")
	}

	invocationID := uuid.NewString()
	start := time.Now()
	w.logger.Info("Workflow started", zap.String("invocation_id", invocationID))

	chunkedText := chunker.AddChunkMarkers(req.Text)
	w.logger.Info("Text chunked", zap.String("invocation_id", invocationID))

	p := planner.NewPlanner(w.client, w.prompts, w.sink, w.cfg.Models.Generation, planTable, w.logger)
	plan, err := p.GeneratePlan(ctx, invocationID, chunkedText, req.Fact, req.Inference)
	if err != nil {
		return nil, err
	}
	w.logger.Info("Plan generated", zap.String("invocation_id", invocationID))

	tasks, err := planner.CreateTaskList(chunkedText, plan, req.Fact, req.Inference, req.MainIdea)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		w.logger.Warn("Empty task list, nothing to generate",
			zap.String("invocation_id", invocationID))
		return []*domain.MCQResult{}, nil
	}
	w.logger.Info("Task list created",
		zap.String("invocation_id", invocationID), zap.Int("tasks", len(tasks)))

	results, err := w.orchestrator().GenerateAll(ctx, invocationID, tasks)
	if err != nil {
		return nil, err
	}
	w.logger.Info("Questions generated",
		zap.String("invocation_id", invocationID), zap.Int("questions", len(results)))

	results = format.AddQuestionMarkers(format.Reorder(results))

	w.persistRun(ctx, invocationID, results, time.Since(start))
	return results, nil
}

// orchestrator assembles the per-task runner chain for the configured mode.
func (w *Workflow) orchestrator() *generator.Orchestrator {
	balancer := balance.NewBalancer(w.client, w.prompts, w.scorer, w.sink, w.cfg.Models.Shortening, w.logger)
	evaluator := generator.NewEvaluator(w.client, w.prompts, w.sink, w.cfg.Models.Evaluation, evaluationTable, w.logger)
	gen := generator.NewGenerator(
		w.client, w.prompts, balancer, evaluator, w.sink,
		w.cfg.Models.Generation, w.cfg.Models.Extraction,
		w.cfg.Workflow.MaxAttempt, mcqTable, w.logger,
	)

	var runner generator.TaskRunner = gen
	if w.cfg.Workflow.QualityFirst {
		runner = generator.NewRanker(
			gen, w.client, w.prompts, w.sink,
			w.cfg.Models.Ranking, rankingTable,
			w.cfg.Workflow.CandidateNum, w.logger,
		)
	}
	return generator.NewOrchestrator(runner, w.cfg.Workflow.Concurrency, w.logger)
}

func (w *Workflow) persistRun(ctx context.Context, invocationID string, results []*domain.MCQResult, elapsed time.Duration) {
	output, err := json.Marshal(results)
	if err != nil {
		w.logger.Error("Failed to marshal workflow output",
			zap.String("invocation_id", invocationID), zap.Error(err))
		return
	}

	record := map[string]any{
		"invocation_id":  invocationID,
		"output":         string(output),
		"execution_time": fmt.Sprintf("%.6f", elapsed.Seconds()),
	}
	if err := w.sink.EnsureTable(ctx, workflowTable); err != nil {
		w.logger.Error("Failed to ensure workflow table",
			zap.String("invocation_id", invocationID), zap.Error(err))
	}
	if err := w.sink.Insert(ctx, record, workflowTable); err != nil {
		w.logger.Error("Failed to insert workflow metadata",
			zap.String("invocation_id", invocationID), zap.Error(err))
		return
	}
	w.logger.Info("Workflow metadata stored", zap.String("invocation_id", invocationID))
}
