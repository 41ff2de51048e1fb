// Package generator drives one task through the MCQ generation state machine:
// generation with bounded tries, extraction with model fallback, option
// balancing, and evaluation-driven revision under a bounded attempt loop.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/solet-asu/MCQ-generation/internal/balance"
	"github.com/solet-asu/MCQ-generation/internal/domain"
	"github.com/solet-asu/MCQ-generation/internal/extract"
	"github.com/solet-asu/MCQ-generation/internal/prompt"

	"go.uber.org/zap"
)

// maxGenerationTries bounds the inner generate-and-extract loop of one
// attempt; it is separate from the evaluation attempt cap.
const maxGenerationTries = 3

// Generator produces one validated MCQ plus answer per task.
type Generator struct {
	client          domain.CompletionClient
	prompts         domain.PromptStore
	balancer        *balance.Balancer
	evaluator       *Evaluator
	sink            domain.MetadataSink
	generationModel string
	extractionModel string
	maxAttempt      int
	mcqTable        string
	logger          *zap.Logger
}

// NewGenerator wires the single-MCQ state machine. maxAttempt bounds the
// evaluation-driven revision loop (values < 1 fall back to 3).
func NewGenerator(
	client domain.CompletionClient,
	prompts domain.PromptStore,
	balancer *balance.Balancer,
	evaluator *Evaluator,
	sink domain.MetadataSink,
	generationModel, extractionModel string,
	maxAttempt int,
	mcqTable string,
	logger *zap.Logger,
) *Generator {
	if maxAttempt < 1 {
		maxAttempt = 3
	}
	return &Generator{
		client:          client,
		prompts:         prompts,
		balancer:        balancer,
		evaluator:       evaluator,
		sink:            sink,
		generationModel: generationModel,
		extractionModel: extractionModel,
		maxAttempt:      maxAttempt,
		mcqTable:        mcqTable,
		logger:          logger,
	}
}

// Generate runs the full state machine for one task. Exhausted retries are a
// terminal value, not an error: the result carries failure placeholder text
// and a metadata row is written before returning.
func (g *Generator) Generate(ctx context.Context, invocationID string, task domain.Task) (*domain.MCQResult, error) {
	if err := g.sink.EnsureTable(ctx, g.mcqTable); err != nil {
		g.logger.Error("Failed to ensure MCQ metadata table",
			zap.String("invocation_id", invocationID), zap.Error(err))
	}

	var usage domain.TokenUsage
	var revision *domain.RevisionContext

	// Evaluation-driven revision is an explicit bounded loop; the attempt
	// counter is monotonic and the revision context from the rejected round
	// feeds the next one.
	for attempt := 1; attempt <= g.maxAttempt; attempt++ {
		started := time.Now()

		record := &domain.GenerationRecord{
			InvocationID: invocationID,
			QuestionType: task.QuestionType,
			Model:        g.generationModel,
			Attempt:      attempt,
			Chunk:        task.Chunk,
		}

		mcq, generated, err := g.generateQuestion(ctx, task, revision, record, &usage)
		if err != nil {
			return nil, err
		}
		if !generated {
			// Terminal: no valid question after the bounded tries.
			record.MCQ = domain.FailureMissingOptions
			record.MCQAnswer = domain.FailureMissingOptions
			record.ExecutionTime = executionTime(started)
			record.InputTokens = usage.InputTokens
			record.OutputTokens = usage.OutputTokens
			g.persist(ctx, record, invocationID)
			g.logger.Warn("No MCQ generated after generation tries",
				zap.String("invocation_id", invocationID),
				zap.Int("attempt", attempt))
			return g.result(task, record, usage), nil
		}

		answer, err := g.extractAnswer(ctx, record.Completion, &usage)
		if err != nil {
			return nil, err
		}

		mcq, answer, err = g.applyBalancing(ctx, invocationID, mcq, answer, &usage)
		if err != nil {
			return nil, err
		}

		evaluation, err := g.evaluator.Evaluate(ctx, invocationID, task, mcq, answer)
		if err != nil {
			return nil, err
		}
		usage.Add(domain.Completion{InputTokens: evaluation.InputTokens, OutputTokens: evaluation.OutputTokens})

		record.MCQ = mcq
		record.MCQAnswer = answer
		record.ExecutionTime = executionTime(started)
		record.InputTokens = usage.InputTokens
		record.OutputTokens = usage.OutputTokens

		switch evaluation.Verdict() {
		case domain.VerdictAccepted:
			g.persist(ctx, record, invocationID)
			return g.result(task, record, usage), nil

		case domain.VerdictRevised:
			// Revised fields are independently optional.
			if evaluation.RevisedMCQ != "" {
				record.MCQ = evaluation.RevisedMCQ
			}
			if evaluation.RevisedAnswer != "" {
				record.MCQAnswer = evaluation.RevisedAnswer
			}
			g.persist(ctx, record, invocationID)
			return g.result(task, record, usage), nil

		case domain.VerdictRejected:
			g.persist(ctx, record, invocationID)
			if attempt < g.maxAttempt {
				g.logger.Info("MCQ rejected by evaluator, retrying",
					zap.String("invocation_id", invocationID),
					zap.Int("attempt", attempt))
				revision = &domain.RevisionContext{
					PreviousMCQ:    mcq,
					PreviousAnswer: answer,
					Reasoning:      evaluation.Reasoning,
				}
				continue
			}
			// Terminal: evaluation attempts exhausted.
			record.MCQ = domain.FailureEvaluationLimit
			record.MCQAnswer = domain.FailureEvaluationLimit
			g.persist(ctx, record, invocationID)
			g.logger.Warn("MCQ rejected on final attempt",
				zap.String("invocation_id", invocationID),
				zap.Int("attempt", attempt))
			return g.result(task, record, usage), nil

		default:
			// Unparseable verdict: an explicit branch, not an inferred accept.
			// The MCQ is kept as currently held.
			g.logger.Warn("Unparseable evaluation verdict, keeping current MCQ",
				zap.String("invocation_id", invocationID),
				zap.String("evaluation", evaluation.Evaluation))
			g.persist(ctx, record, invocationID)
			return g.result(task, record, usage), nil
		}
	}

	// Unreachable: every branch above returns or continues within the cap.
	return nil, domain.NewInternalError("generation loop exited without a terminal state", nil)
}

// generateQuestion runs the bounded generate-and-extract loop. It returns the
// question block and whether a usable one was produced; the last completion
// and prompts are recorded on record.
func (g *Generator) generateQuestion(
	ctx context.Context,
	task domain.Task,
	revision *domain.RevisionContext,
	record *domain.GenerationRecord,
	usage *domain.TokenUsage,
) (string, bool, error) {
	promptFile, err := prompt.ForQuestionType(task.QuestionType)
	if err != nil {
		return "", false, err
	}
	tmpl, err := g.prompts.Get(promptFile)
	if err != nil {
		return "", false, err
	}

	userPrompt := prompt.Render(tmpl.User, map[string]string{
		"text":    task.Text,
		"content": task.Content,
		"context": task.Context,
	})
	if revision != nil {
		userPrompt += revisionBlock(revision)
	}
	record.SystemPrompt = tmpl.System
	record.UserPrompt = userPrompt

	for try := 1; try <= maxGenerationTries; try++ {
		completion, err := g.client.Complete(ctx, tmpl.System, userPrompt, g.generationModel)
		if err != nil {
			return "", false, domain.NewLLMServiceError(err)
		}
		usage.Add(completion)
		record.Completion = completion.Text

		block, found := extract.Tagged(completion.Text, "QUESTION")
		if found && extract.HasAllOptionMarkers(block) {
			return block, true, nil
		}
		if !found {
			// Dedicated extraction model, called once; its output is accepted
			// unconditionally.
			extracted, err := g.extractQuestionFallback(ctx, completion.Text, usage)
			if err != nil {
				return "", false, err
			}
			return extracted, true, nil
		}
		// Tagged block present but missing option markers: try again.
	}
	return "", false, nil
}

func (g *Generator) extractQuestionFallback(ctx context.Context, generatedText string, usage *domain.TokenUsage) (string, error) {
	tmpl, err := g.prompts.Get(prompt.MCQExtractionPrompts)
	if err != nil {
		return "", err
	}
	userPrompt := prompt.Render(tmpl.User, map[string]string{"generated_text": generatedText})
	completion, err := g.client.Complete(ctx, tmpl.System, userPrompt, g.extractionModel)
	if err != nil {
		return "", domain.NewLLMServiceError(err)
	}
	usage.Add(completion)
	return strings.TrimSpace(completion.Text), nil
}

// extractAnswer pulls the ANSWER block from the generation completion, with a
// dedicated extraction model as fallback, and normalizes to a single letter.
func (g *Generator) extractAnswer(ctx context.Context, completionText string, usage *domain.TokenUsage) (string, error) {
	raw, found := extract.Tagged(completionText, "ANSWER")
	if !found {
		tmpl, err := g.prompts.Get(prompt.AnswerExtractionPrompts)
		if err != nil {
			return "", err
		}
		userPrompt := prompt.Render(tmpl.User, map[string]string{"generated_text": completionText})
		completion, err := g.client.Complete(ctx, tmpl.System, userPrompt, g.extractionModel)
		if err != nil {
			return "", domain.NewLLMServiceError(err)
		}
		usage.Add(completion)
		raw = completion.Text
	}
	return extract.NormalizeAnswer(raw), nil
}

// applyBalancing hands the MCQ to the option balancer and adopts its output
// unconditionally; the balancer is self-guarding.
func (g *Generator) applyBalancing(ctx context.Context, invocationID, mcq, answer string, usage *domain.TokenUsage) (string, string, error) {
	balancedMCQ, balancedAnswer, balanceUsage, err := g.balancer.Balance(ctx, invocationID, mcq, answer)
	if err != nil {
		return "", "", err
	}
	usage.Add(domain.Completion{InputTokens: balanceUsage.InputTokens, OutputTokens: balanceUsage.OutputTokens})
	return balancedMCQ, balancedAnswer, nil
}

func (g *Generator) persist(ctx context.Context, record *domain.GenerationRecord, invocationID string) {
	if err := g.sink.Insert(ctx, record.ToRecord(), g.mcqTable); err != nil {
		g.logger.Error("Failed to insert MCQ metadata",
			zap.String("invocation_id", invocationID), zap.Error(err))
	}
}

func (g *Generator) result(task domain.Task, record *domain.GenerationRecord, usage domain.TokenUsage) *domain.MCQResult {
	return &domain.MCQResult{
		QuestionType: task.QuestionType,
		MCQ:          record.MCQ,
		MCQAnswer:    record.MCQAnswer,
		Chunk:        task.Chunk,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
	}
}

func revisionBlock(revision *domain.RevisionContext) string {
	return fmt.Sprintf(
		"\n\nPrevious MCQ:\n%s\n\nPrevious Answer:\n%s\n\nEvaluation Reasoning:\n%s",
		revision.PreviousMCQ, revision.PreviousAnswer, revision.Reasoning,
	)
}

func executionTime(started time.Time) string {
	return fmt.Sprintf("%.6f", time.Since(started).Seconds())
}
