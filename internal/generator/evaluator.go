package generator

import (
	"context"

	"github.com/solet-asu/MCQ-generation/internal/domain"
	"github.com/solet-asu/MCQ-generation/internal/extract"
	"github.com/solet-asu/MCQ-generation/internal/prompt"

	"go.uber.org/zap"
)

// Evaluator judges a generated MCQ against its source and context, returning
// accept/revise/reject plus an optional revised version. An empty completion
// is a recoverable "no evaluation" outcome: the record comes back with empty
// fields and is treated upstream as an implicit pass-through.
type Evaluator struct {
	client  domain.CompletionClient
	prompts domain.PromptStore
	sink    domain.MetadataSink
	model   string
	table   string
	logger  *zap.Logger
}

// NewEvaluator creates an Evaluator persisting to the given metadata table.
func NewEvaluator(
	client domain.CompletionClient,
	prompts domain.PromptStore,
	sink domain.MetadataSink,
	model string,
	table string,
	logger *zap.Logger,
) *Evaluator {
	return &Evaluator{
		client:  client,
		prompts: prompts,
		sink:    sink,
		model:   model,
		table:   table,
		logger:  logger,
	}
}

// Evaluate runs one evaluation round and persists its metadata record.
func (e *Evaluator) Evaluate(ctx context.Context, invocationID string, task domain.Task, mcq, mcqAnswer string) (*domain.EvaluationRecord, error) {
	if err := e.sink.EnsureTable(ctx, e.table); err != nil {
		e.logger.Error("Failed to ensure evaluation table",
			zap.String("invocation_id", invocationID), zap.Error(err))
	}

	tmpl, err := e.prompts.Get(prompt.EvaluatorPrompts)
	if err != nil {
		return nil, err
	}
	userPrompt := prompt.Render(tmpl.User, map[string]string{
		"question": mcq,
		"answer":   mcqAnswer,
		"source":   task.Text,
		"context":  task.Context,
	})

	completion, err := e.client.Complete(ctx, tmpl.System, userPrompt, e.model)
	if err != nil {
		return nil, domain.NewLLMServiceError(err)
	}

	record := &domain.EvaluationRecord{
		InvocationID: invocationID,
		QuestionType: task.QuestionType,
		MCQ:          mcq,
		MCQAnswer:    mcqAnswer,
		Source:       task.Text,
		SystemPrompt: tmpl.System,
		UserPrompt:   userPrompt,
		Model:        e.model,
		Completion:   completion.Text,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
	}

	if completion.Text == "" {
		e.logger.Warn("Failed to generate an evaluation",
			zap.String("invocation_id", invocationID))
	} else if parsed, jsonErr := extract.JSONObject(completion.Text); jsonErr != nil {
		// Malformed evaluation output is not fatal: the empty verdict falls
		// into the unparseable branch upstream.
		e.logger.Warn("Failed to parse evaluation as JSON",
			zap.String("invocation_id", invocationID), zap.Error(jsonErr))
	} else {
		record.Evaluation = asString(parsed["evaluation"])
		record.RevisedMCQ = asString(parsed["revised_mcq"])
		record.RevisedAnswer = asString(parsed["revised_answer"])
		record.Reasoning = asString(parsed["reasoning"])
	}

	if err := e.sink.Insert(ctx, record.ToRecord(), e.table); err != nil {
		e.logger.Error("Failed to insert evaluation metadata",
			zap.String("invocation_id", invocationID), zap.Error(err))
	}

	return record, nil
}

func asString(v any) string {
	s, isStr := v.(string)
	if !isStr {
		return ""
	}
	return s
}
