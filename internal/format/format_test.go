package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solet-asu/MCQ-generation/internal/domain"
)

func result(qt domain.QuestionType, mcq string, chunk ...string) *domain.MCQResult {
	return &domain.MCQResult{QuestionType: qt, MCQ: mcq, MCQAnswer: mcq + " answer", Chunk: chunk}
}

func TestReorderByChunkNumber(t *testing.T) {
	results := []*domain.MCQResult{
		result(domain.QuestionTypeFact, "from chunk 3", "chunk3"),
		result(domain.QuestionTypeMainIdea, "main idea"),
		result(domain.QuestionTypeInference, "from chunks 1 and 2", "chunk1", "chunk2"),
		result(domain.QuestionTypeFact, "from chunk 1", "chunk1"),
	}

	ordered := Reorder(results)
	require.Len(t, ordered, 4)
	// Non-main_idea sorted by their LAST chunk number, main_idea always last.
	assert.Equal(t, "from chunks 1 and 2", ordered[0].MCQ)
	assert.Equal(t, "from chunk 1", ordered[1].MCQ)
	assert.Equal(t, "from chunk 3", ordered[2].MCQ)
	assert.Equal(t, "main idea", ordered[3].MCQ)
}

func TestReorderStableWithinSameChunk(t *testing.T) {
	results := []*domain.MCQResult{
		result(domain.QuestionTypeFact, "first", "chunk1"),
		result(domain.QuestionTypeInference, "second", "chunk1"),
	}
	ordered := Reorder(results)
	assert.Equal(t, "first", ordered[0].MCQ)
	assert.Equal(t, "second", ordered[1].MCQ)
}

func TestReorderMissingChunkSortsBeforeMainIdea(t *testing.T) {
	results := []*domain.MCQResult{
		result(domain.QuestionTypeFact, "no chunk"),
		result(domain.QuestionTypeMainIdea, "main idea"),
		result(domain.QuestionTypeFact, "chunk 2", "chunk2"),
	}
	ordered := Reorder(results)
	assert.Equal(t, "chunk 2", ordered[0].MCQ)
	assert.Equal(t, "no chunk", ordered[1].MCQ)
	assert.Equal(t, "main idea", ordered[2].MCQ)
}

func TestAddQuestionMarkers(t *testing.T) {
	results := []*domain.MCQResult{
		result(domain.QuestionTypeFact, "  first question", "chunk1"),
		result(domain.QuestionTypeMainIdea, "second question"),
	}
	marked := AddQuestionMarkers(results)
	assert.Equal(t, "Q1: first question", marked[0].MCQ)
	assert.Equal(t, "Q1: first question answer", marked[0].MCQAnswer)
	assert.Equal(t, "Q2: second question", marked[1].MCQ)
}

func TestAddQuestionMarkersEmpty(t *testing.T) {
	assert.Empty(t, AddQuestionMarkers(nil))
}
