package balance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/solet-asu/MCQ-generation/internal/domain"
	"github.com/solet-asu/MCQ-generation/internal/extract"
	"github.com/solet-asu/MCQ-generation/internal/prompt"

	"go.uber.org/zap"
)

const (
	candidateCount = 5

	syntacticAnalysisTable   = "syntactic_analysis_metadata"
	candidateShorteningTable = "candidate_shortening_metadata"
	candidateSelectionTable  = "candidate_selection_metadata"
)

// Balancer detects an outlier-length answer option, asks a model to shorten
// it, ranks candidates by semantic similarity, and rewrites the MCQ text.
// Business-logic non-results (no outlier, no candidates, no selection) short-
// circuit to returning the input unchanged; only malformed model/API
// interaction raises.
type Balancer struct {
	client  domain.CompletionClient
	prompts domain.PromptStore
	scorer  domain.SimilarityScorer
	sink    domain.MetadataSink
	model   string
	logger  *zap.Logger
}

// NewBalancer creates a Balancer using the given model for all three
// shortening-related calls.
func NewBalancer(
	client domain.CompletionClient,
	prompts domain.PromptStore,
	scorer domain.SimilarityScorer,
	sink domain.MetadataSink,
	model string,
	logger *zap.Logger,
) *Balancer {
	return &Balancer{
		client:  client,
		prompts: prompts,
		scorer:  scorer,
		sink:    sink,
		model:   model,
		logger:  logger,
	}
}

// Balance shortens an outlier option if one exists and returns the possibly
// updated MCQ and answer strings plus accumulated token usage. The answer
// letter is never reassigned here, only its backing text.
func (b *Balancer) Balance(ctx context.Context, invocationID, mcq, mcqAnswer string) (string, string, domain.TokenUsage, error) {
	var usage domain.TokenUsage

	stem, options := extract.MCQComponents(mcq)
	letter := extract.AnswerLetter(mcqAnswer)
	updatedAnswer := extract.FormatAnswerFromLetter(letter, options)

	outlierIdx, outlierText := IdentifyLongerOption(options)
	if outlierIdx < 0 {
		b.logger.Info("No noticeably longer option in this question",
			zap.String("invocation_id", invocationID))
		return mcq, updatedAnswer, usage, nil
	}
	b.logger.Info("Noticeably longer option detected",
		zap.String("invocation_id", invocationID),
		zap.Int("option_index", outlierIdx))

	rule, err := b.syntacticAnalysis(ctx, invocationID, stem, options, &usage)
	if err != nil {
		return "", "", usage, err
	}

	minTarget, maxTarget := LengthRange(options)

	candidates, err := b.generateCandidates(ctx, invocationID, options, outlierText, rule, minTarget, maxTarget, &usage)
	if err != nil {
		return "", "", usage, err
	}
	if !anyNonEmpty(candidates) {
		b.logger.Info("No shortening candidates generated, keeping original option",
			zap.String("invocation_id", invocationID))
		return mcq, updatedAnswer, usage, nil
	}

	best, err := b.selectCandidate(ctx, invocationID, options, outlierText, rule, minTarget, maxTarget, candidates, &usage)
	if err != nil {
		return "", "", usage, err
	}
	if best == "" {
		b.logger.Info("No candidate chosen, falling back to the original option",
			zap.String("invocation_id", invocationID))
		return mcq, updatedAnswer, usage, nil
	}

	updatedMCQ, err := UpdateMCQWithNewOption(mcq, best, outlierIdx)
	if err != nil {
		return "", "", usage, err
	}

	// Re-parse options from the updated text so the answer string matches the
	// final rendering.
	_, updatedOptions := extract.MCQComponents(updatedMCQ)
	updatedAnswer = extract.FormatAnswerFromLetter(letter, updatedOptions)
	b.logger.Info("Noticeably longer option shortened",
		zap.String("invocation_id", invocationID))

	return updatedMCQ, updatedAnswer, usage, nil
}

// syntacticAnalysis asks a model for the shared syntactic pattern of the
// non-outlier options, used to constrain the rewrite style.
func (b *Balancer) syntacticAnalysis(ctx context.Context, invocationID, stem string, options []string, usage *domain.TokenUsage) (string, error) {
	tmpl, err := b.prompts.Get(prompt.SyntacticAnalyzerPrompts)
	if err != nil {
		return "", err
	}

	opts := normalizeOptions(options)
	userPrompt := prompt.Render(tmpl.User, map[string]string{
		"question": stem,
		"option_a": opts[0],
		"option_b": opts[1],
		"option_c": opts[2],
		"option_d": opts[3],
	})

	completion, err := b.client.Complete(ctx, tmpl.System, userPrompt, b.model)
	if err != nil {
		return "", domain.NewLLMServiceError(err)
	}
	usage.Add(completion)

	record := map[string]any{
		"invocation_id":  invocationID,
		"question_stem":  stem,
		"options":        jsonList(opts),
		"system_prompt":  tmpl.System,
		"user_prompt":    userPrompt,
		"model":          b.model,
		"completion":     completion.Text,
		"syntactic_rule": "",
		"confidence":     "",
		"reasoning":      "",
		"input_tokens":   completion.InputTokens,
		"output_tokens":  completion.OutputTokens,
	}

	rule := ""
	if completion.Text == "" {
		b.logger.Warn("Empty completion from syntactic analyzer",
			zap.String("invocation_id", invocationID))
		rule = "No common structure identified."
	} else if parsed, jsonErr := extract.JSONObject(completion.Text); jsonErr != nil {
		b.logger.Warn("Failed to parse syntactic analysis as JSON",
			zap.String("invocation_id", invocationID), zap.Error(jsonErr))
	} else {
		rule = strings.TrimSpace(stringify(parsed["syntactic_rule"]))
		record["syntactic_rule"] = rule
		record["confidence"] = stringify(parsed["confidence"])
		record["reasoning"] = stringify(parsed["reasoning"])
		b.logger.Info("Syntactic analysis result",
			zap.String("invocation_id", invocationID), zap.String("rule", rule))
	}

	b.persist(ctx, record, syntacticAnalysisTable, invocationID)
	return rule, nil
}

// generateCandidates asks a model for exactly 5 shortened versions of the
// outlier option, constrained by the syntactic rule and the target window.
func (b *Balancer) generateCandidates(
	ctx context.Context,
	invocationID string,
	options []string,
	outlierText, rule string,
	minTarget, maxTarget int,
	usage *domain.TokenUsage,
) ([]string, error) {
	tmpl, err := b.prompts.Get(prompt.CandidateGenerationPrompts)
	if err != nil {
		return nil, err
	}

	userPrompt := prompt.Render(tmpl.User, map[string]string{
		"original_option":    outlierText,
		"syntactic_rule":     rule,
		"min_target":         strconv.Itoa(minTarget),
		"max_target":         strconv.Itoa(maxTarget),
		"other_options_text": otherOptionsText(options, outlierText),
	})

	completion, err := b.client.Complete(ctx, tmpl.System, userPrompt, b.model)
	if err != nil {
		return nil, domain.NewLLMServiceError(err)
	}
	usage.Add(completion)

	record := map[string]any{
		"invocation_id":      invocationID,
		"option_to_shorten":  outlierText,
		"syntactic_rule":     rule,
		"min_target":         minTarget,
		"max_target":         maxTarget,
		"system_prompt":      tmpl.System,
		"user_prompt":        userPrompt,
		"model":              b.model,
		"completion":         completion.Text,
		"candidates":         "",
		"reasoning":          "",
		"input_tokens":       completion.InputTokens,
		"output_tokens":      completion.OutputTokens,
	}

	candidates := make([]string, candidateCount)
	if completion.Text == "" {
		b.logger.Warn("Empty completion from candidate generator",
			zap.String("invocation_id", invocationID))
	} else if parsed, jsonErr := extract.JSONObject(completion.Text); jsonErr != nil {
		b.logger.Warn("Failed to parse shortening candidates as JSON",
			zap.String("invocation_id", invocationID), zap.Error(jsonErr))
	} else {
		candidates = NormalizeCandidates(parsed["candidates"], candidateCount)
		record["candidates"] = jsonList(candidates)
		record["reasoning"] = stringify(parsed["reasoning"])
	}

	b.persist(ctx, record, candidateShorteningTable, invocationID)
	return candidates, nil
}

// selectCandidate scores all candidates against the original text and asks a
// selection model to pick one (or none, signaling "keep original").
func (b *Balancer) selectCandidate(
	ctx context.Context,
	invocationID string,
	options []string,
	outlierText, rule string,
	minTarget, maxTarget int,
	candidates []string,
	usage *domain.TokenUsage,
) (string, error) {
	tmpl, err := b.prompts.Get(prompt.CandidateSelectionPrompts)
	if err != nil {
		return "", err
	}

	fields := map[string]string{
		"original_option":     outlierText,
		"original_word_count": strconv.Itoa(extract.CountWords(outlierText)),
		"min_target":          strconv.Itoa(minTarget),
		"max_target":          strconv.Itoa(maxTarget),
		"syntactic_rule":      rule,
		"other_options_text":  otherOptionsText(options, outlierText),
	}
	for i, candidate := range candidates {
		n := strconv.Itoa(i + 1)
		fields["candidate_"+n] = candidate
		fields["candidate_"+n+"_word_count"] = strconv.Itoa(extract.CountWords(candidate))
		similarity := "N/A"
		if candidate != "" {
			if score, scored := b.scorer.Score(ctx, outlierText, candidate); scored {
				similarity = strconv.FormatFloat(score, 'f', 4, 64)
			}
		}
		fields["similarity_"+n] = similarity
	}
	userPrompt := prompt.Render(tmpl.User, fields)

	completion, err := b.client.Complete(ctx, tmpl.System, userPrompt, b.model)
	if err != nil {
		return "", domain.NewLLMServiceError(err)
	}
	usage.Add(completion)

	record := map[string]any{
		"invocation_id":     invocationID,
		"option_to_shorten": outlierText,
		"syntactic_rule":    rule,
		"min_target":        minTarget,
		"max_target":        maxTarget,
		"candidates":        jsonList(candidates),
		"system_prompt":     tmpl.System,
		"user_prompt":       userPrompt,
		"model":             b.model,
		"completion":        completion.Text,
		"best_candidate":    "",
		"reasoning":         "",
		"input_tokens":      completion.InputTokens,
		"output_tokens":     completion.OutputTokens,
	}

	best := ""
	if completion.Text == "" {
		b.logger.Warn("Empty completion from candidate selector",
			zap.String("invocation_id", invocationID))
	} else if parsed, jsonErr := extract.JSONObject(completion.Text); jsonErr != nil {
		b.logger.Warn("Failed to parse candidate selection as JSON",
			zap.String("invocation_id", invocationID), zap.Error(jsonErr))
	} else {
		best = strings.TrimSpace(stringify(parsed["best_candidate"]))
		record["best_candidate"] = best
		record["reasoning"] = stringify(parsed["evaluation_summary"])
		b.logger.Info("Candidate selected",
			zap.String("invocation_id", invocationID), zap.String("best_candidate", best))
	}

	b.persist(ctx, record, candidateSelectionTable, invocationID)
	return best, nil
}

// UpdateMCQWithNewOption rewrites the MCQ with the shortened text at the
// given position. The MCQ must carry exactly 4 options.
func UpdateMCQWithNewOption(mcq, shortenedOption string, optionIndex int) (string, error) {
	if optionIndex < 0 || optionIndex > 3 {
		return "", domain.NewInvalidInputError("option index must be 0 (A), 1 (B), 2 (C), or 3 (D)")
	}

	stem, options := extract.MCQComponents(mcq)
	if len(options) != 4 {
		return "", domain.NewInvalidInputError("MCQ must have exactly 4 options")
	}

	options[optionIndex] = strings.TrimSpace(shortenedOption)
	return extract.RebuildMCQ(stem, options), nil
}

func (b *Balancer) persist(ctx context.Context, record map[string]any, table, invocationID string) {
	if err := b.sink.EnsureTable(ctx, table); err != nil {
		b.logger.Error("Failed to ensure metadata table",
			zap.String("invocation_id", invocationID), zap.String("table", table), zap.Error(err))
		return
	}
	if err := b.sink.Insert(ctx, record, table); err != nil {
		b.logger.Error("Failed to insert metadata",
			zap.String("invocation_id", invocationID), zap.String("table", table), zap.Error(err))
	}
}

func otherOptionsText(options []string, outlierText string) string {
	var others []string
	for _, o := range normalizeOptions(options) {
		if o != outlierText {
			others = append(others, o)
		}
	}
	return strings.Join(others, "\n ")
}

func jsonList(items []string) string {
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func anyNonEmpty(candidates []string) bool {
	for _, c := range candidates {
		if c != "" {
			return true
		}
	}
	return false
}
