package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solet-asu/MCQ-generation/internal/domain"
)

const chunkedText = "<chunk1>The first chunk body.</chunk1>\n\n<chunk2>The second chunk body.</chunk2>"
const summaryText = "<chunk1>Summary of one.</chunk1><chunk2>Summary of two.</chunk2>"

func testPlan() *domain.Plan {
	return &domain.Plan{
		Summary: summaryText,
		Facts: []domain.PlanItem{
			{Content: "a fact", Chunk: []string{"chunk1"}},
		},
		Inferences: []domain.PlanItem{
			{Content: "an inference", Chunk: []string{"chunk2"}},
		},
	}
}

func TestCreateTaskList(t *testing.T) {
	tasks, err := CreateTaskList(chunkedText, testPlan(), 1, 1, 1)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	fact := tasks[0]
	assert.Equal(t, domain.QuestionTypeFact, fact.QuestionType)
	assert.Equal(t, "a fact", fact.Content)
	assert.Equal(t, "The first chunk body.", fact.Text)
	// Context is the summary of every chunk the fact does not cover.
	assert.Equal(t, "Summary of two.", fact.Context)
	assert.Equal(t, []string{"chunk1"}, fact.Chunk)

	inference := tasks[1]
	assert.Equal(t, domain.QuestionTypeInference, inference.QuestionType)
	assert.Equal(t, "The second chunk body.", inference.Text)
	assert.Equal(t, "Summary of one.", inference.Context)

	mainIdea := tasks[2]
	assert.Equal(t, domain.QuestionTypeMainIdea, mainIdea.QuestionType)
	assert.Equal(t, "Summary of one.Summary of two.", mainIdea.Text)
	assert.Empty(t, mainIdea.Content)
	assert.Empty(t, mainIdea.Chunk)
}

func TestCreateTaskListCountMismatch(t *testing.T) {
	_, err := CreateTaskList(chunkedText, testPlan(), 2, 1, 0)
	require.Error(t, err)
	var pipelineErr *domain.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, domain.ErrInvalidPlan, pipelineErr.Code)
}

func TestCreateTaskListNoMainIdea(t *testing.T) {
	tasks, err := CreateTaskList(chunkedText, testPlan(), 1, 1, 0)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestExtractChunks(t *testing.T) {
	assert.Equal(t, "The first chunk body.", ExtractChunks(chunkedText, []string{"chunk1"}))
	assert.Equal(t, "The first chunk body.\nThe second chunk body.",
		ExtractChunks(chunkedText, []string{"chunk1", "chunk2"}))
	assert.Empty(t, ExtractChunks(chunkedText, []string{"chunk9"}))
	assert.Empty(t, ExtractChunks(chunkedText, nil))
}

func TestExtractUnlistedChunks(t *testing.T) {
	assert.Equal(t, "Summary of two.", ExtractUnlistedChunks(summaryText, []string{"chunk1"}))
	assert.Equal(t, "Summary of one. Summary of two.", ExtractUnlistedChunks(summaryText, nil))
	assert.Empty(t, ExtractUnlistedChunks(summaryText, []string{"chunk1", "chunk2"}))
}

func TestExtractSummary(t *testing.T) {
	assert.Equal(t, "Summary of one.Summary of two.", ExtractSummary(summaryText))
	assert.Equal(t, "plain", ExtractSummary("plain"))
}
