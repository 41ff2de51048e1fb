package generator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/solet-asu/MCQ-generation/internal/domain"
	"github.com/solet-asu/MCQ-generation/internal/extract"
	"github.com/solet-asu/MCQ-generation/internal/prompt"

	"go.uber.org/zap"
)

// Ranker implements quality-first mode: it generates candidate MCQs for the
// same task concurrently and independently, then asks a ranking model to pick
// the best one. A failure in any single candidate generation is excluded, not
// propagated, and a failed or unparseable ranking call defaults to the first
// candidate.
type Ranker struct {
	runner       TaskRunner
	client       domain.CompletionClient
	prompts      domain.PromptStore
	sink         domain.MetadataSink
	model        string
	table        string
	candidateNum int
	logger       *zap.Logger
}

// NewRanker creates a Ranker generating candidateNum candidates per task
// (values < 1 fall back to 5).
func NewRanker(
	runner TaskRunner,
	client domain.CompletionClient,
	prompts domain.PromptStore,
	sink domain.MetadataSink,
	model string,
	table string,
	candidateNum int,
	logger *zap.Logger,
) *Ranker {
	if candidateNum < 1 {
		candidateNum = 5
	}
	return &Ranker{
		runner:       runner,
		client:       client,
		prompts:      prompts,
		sink:         sink,
		model:        model,
		table:        table,
		candidateNum: candidateNum,
		logger:       logger,
	}
}

// Generate produces candidates concurrently and returns the ranked winner.
func (r *Ranker) Generate(ctx context.Context, invocationID string, task domain.Task) (*domain.MCQResult, error) {
	if err := r.sink.EnsureTable(ctx, r.table); err != nil {
		r.logger.Error("Failed to ensure ranking table",
			zap.String("invocation_id", invocationID), zap.Error(err))
	}

	// Each candidate runs the full state machine with its own attempt counter
	// and its own evaluation pass.
	results := make([]*domain.MCQResult, r.candidateNum)
	var wg sync.WaitGroup
	for i := 0; i < r.candidateNum; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			result, err := r.runner.Generate(ctx, invocationID, task)
			if err != nil {
				r.logger.Error("Candidate generation failed",
					zap.String("invocation_id", invocationID),
					zap.Int("candidate", slot),
					zap.Error(err))
				return
			}
			results[slot] = result
		}(i)
	}
	wg.Wait()

	// Candidates lacking both a question and an answer are dropped.
	var kept []*domain.MCQResult
	var candidates []domain.Candidate
	for _, result := range results {
		if result == nil || (result.MCQ == "" && result.MCQAnswer == "") {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			QuestionNumber: len(candidates),
			Question:       result.MCQ,
			Answer:         result.MCQAnswer,
		})
		kept = append(kept, result)
	}

	record := &domain.RankingRecord{
		InvocationID: invocationID,
		QuestionType: task.QuestionType,
		Candidates:   candidates,
		Model:        r.model,
	}

	if len(kept) == 0 {
		r.logger.Warn("No candidates survived generation",
			zap.String("invocation_id", invocationID))
		r.persist(ctx, record, invocationID)
		return &domain.MCQResult{
			QuestionType: task.QuestionType,
			MCQ:          domain.FailureNoCandidates,
			MCQAnswer:    "",
			Chunk:        task.Chunk,
		}, nil
	}

	selected := r.rank(ctx, invocationID, task, candidates, record)
	record.SelectedIndex = selected
	r.persist(ctx, record, invocationID)

	chosen := kept[selected]
	chosen.InputTokens += record.InputTokens
	chosen.OutputTokens += record.OutputTokens
	return chosen, nil
}

// rank calls the ranking model and parses its verdict. Any failure along the
// way (call error, missing JSON, out-of-range number) defaults to index 0.
func (r *Ranker) rank(ctx context.Context, invocationID string, task domain.Task, candidates []domain.Candidate, record *domain.RankingRecord) int {
	tmpl, err := r.prompts.Get(prompt.RankingPrompts)
	if err != nil {
		r.logger.Error("Failed to load ranking prompts",
			zap.String("invocation_id", invocationID), zap.Error(err))
		return 0
	}

	userPrompt := prompt.Render(tmpl.User, map[string]string{
		"candidates": candidatesText(candidates),
		"text":       task.Text,
		"content":    task.Content,
		"context":    task.Context,
	})
	record.SystemPrompt = tmpl.System
	record.UserPrompt = userPrompt

	completion, err := r.client.Complete(ctx, tmpl.System, userPrompt, r.model)
	if err != nil {
		r.logger.Error("Ranking call failed, defaulting to first candidate",
			zap.String("invocation_id", invocationID), zap.Error(err))
		return 0
	}
	record.Completion = completion.Text
	record.InputTokens = completion.InputTokens
	record.OutputTokens = completion.OutputTokens

	parsed, err := extract.JSONObject(completion.Text)
	if err != nil {
		r.logger.Warn("Ranking verdict is not JSON, defaulting to first candidate",
			zap.String("invocation_id", invocationID), zap.Error(err))
		return 0
	}

	best, isObj := parsed["best_question"].(map[string]any)
	if !isObj {
		return 0
	}
	number, parseable := parseQuestionNumber(best["question_number"])
	if !parseable || number < 0 || number >= len(candidates) {
		r.logger.Warn("Ranking verdict out of range, defaulting to first candidate",
			zap.String("invocation_id", invocationID),
			zap.Any("question_number", best["question_number"]))
		return 0
	}
	return number
}

func (r *Ranker) persist(ctx context.Context, record *domain.RankingRecord, invocationID string) {
	if err := r.sink.Insert(ctx, record.ToRecord(), r.table); err != nil {
		r.logger.Error("Failed to insert ranking metadata",
			zap.String("invocation_id", invocationID), zap.Error(err))
	}
}

func parseQuestionNumber(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func candidatesText(candidates []domain.Candidate) string {
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "Question %d:\n%s\n\nAnswer %d:\n%s\n\n", c.QuestionNumber, c.Question, c.QuestionNumber, c.Answer)
	}
	return strings.TrimSpace(b.String())
}
