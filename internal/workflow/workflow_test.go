package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solet-asu/MCQ-generation/internal/config"
	"github.com/solet-asu/MCQ-generation/internal/domain"
)

type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (c *scriptedClient) Complete(_ context.Context, _, _, _ string) (domain.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
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
	mu      sync.Mutex
	inserts map[string][]map[string]any
}

func newRecordingSink() *recordingSink {
	return &recordingSink{inserts: make(map[string][]map[string]any)}
}

func (s *recordingSink) EnsureTable(_ context.Context, _ string) error { return nil }

func (s *recordingSink) Insert(_ context.Context, record map[string]any, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts[table] = append(s.inserts[table], record)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Models: config.ModelsConfig{
			Generation: "gen-model",
			Extraction: "extract-model",
			Evaluation: "eval-model",
			Shortening: "shorten-model",
			Ranking:    "rank-model",
		},
		Workflow: config.WorkflowConfig{
			MaxAttempt:   3,
			CandidateNum: 5,
			Concurrency:  4,
		},
	}
}

const planCompletion = `{
  "summary": "<chunk1>Water boils at 100 degrees Celsius at sea level.</chunk1>",
  "selection": {
    "facts": {
      "fact_1": {"content": "boiling point of water", "chunk": ["chunk1"]}
    },
    "inferences": {}
  }
}`

const mcqCompletion = `<QUESTION>What is the boiling point of water at sea level?
A) 90
B) 100
C) 110
D) 120</QUESTION>
<ANSWER>B</ANSWER>`

func newTestWorkflow(client *scriptedClient, sink *recordingSink, cfg *config.Config) *Workflow {
	return New(client, stubPrompts{}, stubScorer{}, sink, cfg, zap.NewNop())
}

func TestRunEndToEnd(t *testing.T) {
	client := &scriptedClient{responses: []string{
		planCompletion,
		mcqCompletion,
		`{"evaluation": "YES", "reasoning": "supported by the text"}`,
	}}
	sink := newRecordingSink()
	w := newTestWorkflow(client, sink, testConfig())

	results, err := w.Run(context.Background(), Request{
		Text: "Water boils at 100 degrees Celsius at sea level.",
		Fact: 1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, domain.QuestionTypeFact, got.QuestionType)
	assert.True(t, strings.HasPrefix(got.MCQ, "Q1: "))
	assert.Equal(t, "Q1: B) 100", got.MCQAnswer)
	assert.Equal(t, []string{"chunk1"}, got.Chunk)

	assert.Len(t, sink.inserts["plan_metadata"], 1)
	assert.Len(t, sink.inserts["mcq_metadata"], 1)
	assert.Len(t, sink.inserts["evaluation_metadata"], 1)
	require.Len(t, sink.inserts["workflow_metadata"], 1)
	output, _ := sink.inserts["workflow_metadata"][0]["output"].(string)
	assert.Contains(t, output, "Q1: ")
}

func TestRunEmptyText(t *testing.T) {
	w := newTestWorkflow(&scriptedClient{}, newRecordingSink(), testConfig())
	results, err := w.Run(context.Background(), Request{Text: "", Fact: 1})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunNegativeCounts(t *testing.T) {
	w := newTestWorkflow(&scriptedClient{}, newRecordingSink(), testConfig())
	_, err := w.Run(context.Background(), Request{Text: "some text", Fact: -1})
	require.Error(t, err)
	var pipelineErr *domain.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, domain.ErrInvalidInput, pipelineErr.Code)
}

func TestRunQualityFirstRequiresCandidates(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.QualityFirst = true
	cfg.Workflow.CandidateNum = 0
	w := newTestWorkflow(&scriptedClient{}, newRecordingSink(), cfg)

	_, err := w.Run(context.Background(), Request{Text: "some text", Fact: 1})
	assert.Error(t, err)
}

func TestRunPlanCountMismatch(t *testing.T) {
	// Plan delivers one fact, request asks for two.
	client := &scriptedClient{responses: []string{planCompletion}}
	w := newTestWorkflow(client, newRecordingSink(), testConfig())

	_, err := w.Run(context.Background(), Request{Text: "some text", Fact: 2})
	require.Error(t, err)
	var pipelineErr *domain.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, domain.ErrInvalidPlan, pipelineErr.Code)
}

func TestRunZeroTasks(t *testing.T) {
	empty := `{"summary": "", "selection": {"facts": {}, "inferences": {}}}`
	client := &scriptedClient{responses: []string{empty}}
	w := newTestWorkflow(client, newRecordingSink(), testConfig())

	results, err := w.Run(context.Background(), Request{Text: "some text"})
	require.NoError(t, err)
	assert.Empty(t, results)
}
