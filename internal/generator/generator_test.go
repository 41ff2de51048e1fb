package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solet-asu/MCQ-generation/internal/balance"
	"github.com/solet-asu/MCQ-generation/internal/domain"
)

// scriptedClient returns canned completions in call order and records the
// prompts it was called with.
type scriptedClient struct {
	responses   []string
	err         error
	calls       int
	userPrompts []string
}

func (c *scriptedClient) Complete(_ context.Context, _, userPrompt, _ string) (domain.Completion, error) {
	if c.err != nil {
		return domain.Completion{}, c.err
	}
	c.userPrompts = append(c.userPrompts, userPrompt)
	if c.calls >= len(c.responses) {
		c.calls++
		return domain.Completion{}, nil
	}
	text := c.responses[c.calls]
	c.calls++
	return domain.Completion{Text: text, InputTokens: 10, OutputTokens: 5}, nil
}

type stubPrompts struct{}

func (stubPrompts) Get(name string) (domain.PromptTemplate, error) {
	return domain.PromptTemplate{System: "system " + name, User: "user " + name}, nil
}

type stubScorer struct{}

func (stubScorer) Score(_ context.Context, _, _ string) (float64, bool) { return 0.9, true }

type recordingSink struct {
	inserts map[string][]map[string]any
}

func newRecordingSink() *recordingSink {
	return &recordingSink{inserts: make(map[string][]map[string]any)}
}

func (s *recordingSink) EnsureTable(_ context.Context, _ string) error { return nil }

func (s *recordingSink) Insert(_ context.Context, record map[string]any, table string) error {
	s.inserts[table] = append(s.inserts[table], record)
	return nil
}

const questionBlock = `What is the boiling point of water at sea level?
A) 90
B) 100
C) 110
D) 120`

const goodCompletion = "<QUESTION>" + questionBlock + "</QUESTION>\n<ANSWER>The answer is B</ANSWER>"

func newTestGenerator(client *scriptedClient, sink *recordingSink, maxAttempt int) *Generator {
	logger := zap.NewNop()
	balancer := balance.NewBalancer(client, stubPrompts{}, stubScorer{}, sink, "shorten-model", logger)
	evaluator := NewEvaluator(client, stubPrompts{}, sink, "eval-model", "evaluation_metadata", logger)
	return NewGenerator(client, stubPrompts{}, balancer, evaluator, sink,
		"gen-model", "extract-model", maxAttempt, "mcq_metadata", logger)
}

func factTask() domain.Task {
	return domain.Task{
		QuestionType: domain.QuestionTypeFact,
		Content:      "Water boils at 100 degrees Celsius at sea level.",
		Text:         "<chunk1>Water boils at 100 degrees Celsius at sea level.</chunk1>",
		Context:      "Background about water.",
		Chunk:        []string{"chunk1"},
	}
}

func TestGenerateAcceptedFirstAttempt(t *testing.T) {
	client := &scriptedClient{responses: []string{
		goodCompletion,
		`{"evaluation": "YES", "reasoning": "clear and supported"}`,
	}}
	sink := newRecordingSink()
	g := newTestGenerator(client, sink, 3)

	result, err := g.Generate(context.Background(), "inv-1", factTask())
	require.NoError(t, err)
	assert.Equal(t, questionBlock, result.MCQ)
	assert.Equal(t, "B) 100", result.MCQAnswer)
	assert.Equal(t, []string{"chunk1"}, result.Chunk)
	assert.Equal(t, 20, result.InputTokens)
	assert.Equal(t, 10, result.OutputTokens)

	// Exactly one MCQ row and one evaluation row for an accepted question.
	assert.Len(t, sink.inserts["mcq_metadata"], 1)
	assert.Len(t, sink.inserts["evaluation_metadata"], 1)
	row := sink.inserts["mcq_metadata"][0]
	assert.Equal(t, 1, row["attempt"])
	assert.Equal(t, "B) 100", row["mcq_answer"])
}

func TestGenerateRevisedAdoptsFields(t *testing.T) {
	client := &scriptedClient{responses: []string{
		goodCompletion,
		`{"evaluation": "REVISED", "revised_mcq": "Better question?\nA) 90\nB) 100\nC) 110\nD) 120", "revised_answer": "B) 100", "reasoning": "tightened wording"}`,
	}}
	sink := newRecordingSink()
	g := newTestGenerator(client, sink, 3)

	result, err := g.Generate(context.Background(), "inv-1", factTask())
	require.NoError(t, err)
	assert.Contains(t, result.MCQ, "Better question?")
	assert.Equal(t, "B) 100", result.MCQAnswer)
}

func TestGenerateRevisedKeepsCurrentWhenFieldsEmpty(t *testing.T) {
	client := &scriptedClient{responses: []string{
		goodCompletion,
		`{"evaluation": "REVISED", "reasoning": "no usable revision provided"}`,
	}}
	sink := newRecordingSink()
	g := newTestGenerator(client, sink, 3)

	result, err := g.Generate(context.Background(), "inv-1", factTask())
	require.NoError(t, err)
	assert.Equal(t, questionBlock, result.MCQ)
	assert.Equal(t, "B) 100", result.MCQAnswer)
}

func TestGenerateRejectedUntilLimit(t *testing.T) {
	client := &scriptedClient{responses: []string{
		goodCompletion,
		`{"evaluation": "NO", "reasoning": "distractor overlaps the answer"}`,
		goodCompletion,
		`{"evaluation": "NO", "reasoning": "still ambiguous"}`,
		goodCompletion,
		`{"evaluation": "NO", "reasoning": "still ambiguous"}`,
	}}
	sink := newRecordingSink()
	g := newTestGenerator(client, sink, 3)

	result, err := g.Generate(context.Background(), "inv-1", factTask())
	require.NoError(t, err)
	// Exhaustion is a value, not an error.
	assert.Equal(t, domain.FailureEvaluationLimit, result.MCQ)
	assert.Equal(t, domain.FailureEvaluationLimit, result.MCQAnswer)
	assert.Equal(t, 6, client.calls)
	assert.Len(t, sink.inserts["evaluation_metadata"], 3)

	// The second attempt's prompt carries the rejected question as revision
	// context.
	require.GreaterOrEqual(t, len(client.userPrompts), 3)
	assert.Contains(t, client.userPrompts[2], "Previous MCQ:")
	assert.Contains(t, client.userPrompts[2], "distractor overlaps the answer")
}

func TestGenerateUnparseableVerdictKeepsCurrent(t *testing.T) {
	client := &scriptedClient{responses: []string{
		goodCompletion,
		"the evaluator rambled instead of producing a verdict",
	}}
	sink := newRecordingSink()
	g := newTestGenerator(client, sink, 3)

	result, err := g.Generate(context.Background(), "inv-1", factTask())
	require.NoError(t, err)
	assert.Equal(t, questionBlock, result.MCQ)
	assert.Equal(t, "B) 100", result.MCQAnswer)
	assert.Len(t, sink.inserts["mcq_metadata"], 1)
	assert.Len(t, sink.inserts["evaluation_metadata"], 1)
}

func TestGenerateMissingTagUsesExtractionFallback(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"Here is your question. " + questionBlock + " Correct: B",
		questionBlock,            // extraction model output, accepted as-is
		"B",                      // answer extraction model output
		`{"evaluation": "YES"}`,
	}}
	sink := newRecordingSink()
	g := newTestGenerator(client, sink, 3)

	result, err := g.Generate(context.Background(), "inv-1", factTask())
	require.NoError(t, err)
	assert.Equal(t, questionBlock, result.MCQ)
	assert.Equal(t, "B) 100", result.MCQAnswer)
	assert.Equal(t, 4, client.calls)
}

func TestGenerateMissingOptionsExhaustsTries(t *testing.T) {
	bad := "<QUESTION>Stem with no options</QUESTION><ANSWER>A</ANSWER>"
	client := &scriptedClient{responses: []string{bad, bad, bad}}
	sink := newRecordingSink()
	g := newTestGenerator(client, sink, 3)

	result, err := g.Generate(context.Background(), "inv-1", factTask())
	require.NoError(t, err)
	assert.Equal(t, domain.FailureMissingOptions, result.MCQ)
	assert.Equal(t, domain.FailureMissingOptions, result.MCQAnswer)
	assert.Equal(t, 3, client.calls)
	assert.Len(t, sink.inserts["mcq_metadata"], 1)
	assert.Empty(t, sink.inserts["evaluation_metadata"])
}

func TestGenerateModelErrorPropagates(t *testing.T) {
	client := &scriptedClient{err: errors.New("rate limited")}
	sink := newRecordingSink()
	g := newTestGenerator(client, sink, 3)

	_, err := g.Generate(context.Background(), "inv-1", factTask())
	require.Error(t, err)
	var pipelineErr *domain.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, domain.ErrLLMServiceError, pipelineErr.Code)
}
