package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	assert.Equal(t, VerdictAccepted, ParseVerdict("YES"))
	assert.Equal(t, VerdictAccepted, ParseVerdict(" yes "))
	assert.Equal(t, VerdictRevised, ParseVerdict("REVISED"))
	assert.Equal(t, VerdictRejected, ParseVerdict("NO"))
	assert.Equal(t, VerdictUnparseable, ParseVerdict(""))
	assert.Equal(t, VerdictUnparseable, ParseVerdict("MAYBE"))
}

func TestEvaluationRecordVerdict(t *testing.T) {
	record := &EvaluationRecord{Evaluation: "REVISED"}
	assert.Equal(t, VerdictRevised, record.Verdict())

	record.Evaluation = "gibberish"
	assert.Equal(t, VerdictUnparseable, record.Verdict())
}

func TestGenerationRecordToRecord(t *testing.T) {
	record := &GenerationRecord{
		InvocationID: "inv-1",
		QuestionType: QuestionTypeFact,
		MCQ:          "q",
		MCQAnswer:    "a",
		Attempt:      2,
		Chunk:        []string{"chunk1", "chunk2"},
	}
	m := record.ToRecord()
	assert.Equal(t, "inv-1", m["invocation_id"])
	assert.Equal(t, "fact", m["question_type"])
	assert.Equal(t, 2, m["attempt"])
	// Chunk labels are stored as a JSON array string.
	assert.Equal(t, `["chunk1","chunk2"]`, m["chunk"])
}

func TestTokenUsageAdd(t *testing.T) {
	var usage TokenUsage
	usage.Add(Completion{InputTokens: 10, OutputTokens: 5})
	usage.Add(Completion{InputTokens: 1, OutputTokens: 2})
	assert.Equal(t, 11, usage.InputTokens)
	assert.Equal(t, 7, usage.OutputTokens)
}

func TestPipelineErrorUnwrap(t *testing.T) {
	inner := NewInvalidInputError("bad counts")
	wrapped := NewInternalError("wrapper", inner)

	var pipelineErr *PipelineError
	require.ErrorAs(t, wrapped, &pipelineErr)
	assert.Equal(t, ErrInternal, pipelineErr.Code)
	assert.ErrorIs(t, wrapped, inner)
}

func TestQuestionTypeValid(t *testing.T) {
	assert.True(t, QuestionTypeFact.Valid())
	assert.True(t, QuestionTypeInference.Valid())
	assert.True(t, QuestionTypeMainIdea.Valid())
	assert.False(t, QuestionType("essay").Valid())
}
