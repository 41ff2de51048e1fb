package domain

import (
	"encoding/json"
	"strings"
)

// Verdict is the closed set of evaluator outcomes. Unparseable is an explicit
// variant: a missing or unexpected evaluation string is its own branch, not an
// implicit accept inferred by omission.
type Verdict int

const (
	VerdictAccepted Verdict = iota
	VerdictRevised
	VerdictRejected
	VerdictUnparseable
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "YES"
	case VerdictRevised:
		return "REVISED"
	case VerdictRejected:
		return "NO"
	}
	return "UNPARSEABLE"
}

// ParseVerdict maps the evaluator's evaluation string onto the closed set.
// Anything outside YES/REVISED/NO is Unparseable, never an implied accept.
func ParseVerdict(s string) Verdict {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES":
		return VerdictAccepted
	case "REVISED":
		return VerdictRevised
	case "NO":
		return VerdictRejected
	}
	return VerdictUnparseable
}

// GenerationRecord accumulates the metadata of one MCQ generation attempt.
// A fresh record is created per attempt and persisted at terminal points; it is
// never updated in place after insert.
type GenerationRecord struct {
	InvocationID  string
	QuestionType  QuestionType
	SystemPrompt  string
	UserPrompt    string
	Model         string
	Completion    string
	MCQ           string
	MCQAnswer     string
	Attempt       int
	Chunk         []string
	ExecutionTime string
	InputTokens   int
	OutputTokens  int
}

// ToRecord renders the record as a metadata-sink row.
func (r *GenerationRecord) ToRecord() map[string]any {
	chunk, _ := json.Marshal(r.Chunk)
	return map[string]any{
		"invocation_id":  r.InvocationID,
		"question_type":  string(r.QuestionType),
		"system_prompt":  r.SystemPrompt,
		"user_prompt":    r.UserPrompt,
		"model":          r.Model,
		"completion":     r.Completion,
		"mcq":            r.MCQ,
		"mcq_answer":     r.MCQAnswer,
		"attempt":        r.Attempt,
		"chunk":          string(chunk),
		"execution_time": r.ExecutionTime,
		"input_tokens":   r.InputTokens,
		"output_tokens":  r.OutputTokens,
	}
}

// EvaluationRecord is one evaluator judgment, tied to a GenerationRecord by
// invocation id plus the mcq/mcq_answer snapshot it judged.
type EvaluationRecord struct {
	InvocationID  string
	QuestionType  QuestionType
	MCQ           string
	MCQAnswer     string
	Source        string
	SystemPrompt  string
	UserPrompt    string
	Model         string
	Completion    string
	Evaluation    string
	RevisedMCQ    string
	RevisedAnswer string
	Reasoning     string
	InputTokens   int
	OutputTokens  int
}

// Verdict classifies the raw evaluation string.
func (r *EvaluationRecord) Verdict() Verdict {
	return ParseVerdict(r.Evaluation)
}

func (r *EvaluationRecord) ToRecord() map[string]any {
	return map[string]any{
		"invocation_id":  r.InvocationID,
		"question_type":  string(r.QuestionType),
		"mcq":            r.MCQ,
		"mcq_answer":     r.MCQAnswer,
		"source":         r.Source,
		"system_prompt":  r.SystemPrompt,
		"user_prompt":    r.UserPrompt,
		"model":          r.Model,
		"completion":     r.Completion,
		"evaluation":     r.Evaluation,
		"revised_mcq":    r.RevisedMCQ,
		"revised_answer": r.RevisedAnswer,
		"reasoning":      r.Reasoning,
		"input_tokens":   r.InputTokens,
		"output_tokens":  r.OutputTokens,
	}
}

// Candidate is one entry of a quality-first candidate set.
type Candidate struct {
	QuestionNumber int    `json:"question_number"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
}

// RankingRecord captures a candidate ranking round: the surviving candidate
// set, the ranking model's verdict, and the selected index.
type RankingRecord struct {
	InvocationID  string
	QuestionType  QuestionType
	Candidates    []Candidate
	SystemPrompt  string
	UserPrompt    string
	Model         string
	Completion    string
	SelectedIndex int
	InputTokens   int
	OutputTokens  int
}

func (r *RankingRecord) ToRecord() map[string]any {
	candidates, _ := json.Marshal(r.Candidates)
	return map[string]any{
		"invocation_id":  r.InvocationID,
		"question_type":  string(r.QuestionType),
		"candidates":     string(candidates),
		"system_prompt":  r.SystemPrompt,
		"user_prompt":    r.UserPrompt,
		"model":          r.Model,
		"completion":     r.Completion,
		"selected_index": r.SelectedIndex,
		"input_tokens":   r.InputTokens,
		"output_tokens":  r.OutputTokens,
	}
}

// PlanRecord captures one planning call: the prompt pair, the raw completion,
// and the parsed summary/facts/inferences.
type PlanRecord struct {
	InvocationID  string
	SystemPrompt  string
	UserPrompt    string
	Model         string
	Completion    string
	Summary       string
	Facts         []PlanItem
	Inferences    []PlanItem
	ExecutionTime string
	InputTokens   int
	OutputTokens  int
}

func (r *PlanRecord) ToRecord() map[string]any {
	facts, _ := json.Marshal(r.Facts)
	inferences, _ := json.Marshal(r.Inferences)
	return map[string]any{
		"invocation_id":  r.InvocationID,
		"system_prompt":  r.SystemPrompt,
		"user_prompt":    r.UserPrompt,
		"model":          r.Model,
		"completion":     r.Completion,
		"summary":        r.Summary,
		"facts":          string(facts),
		"inferences":     string(inferences),
		"execution_time": r.ExecutionTime,
		"input_tokens":   r.InputTokens,
		"output_tokens":  r.OutputTokens,
	}
}

// MCQResult is the per-task output of the generation pipeline.
type MCQResult struct {
	QuestionType QuestionType `json:"question_type"`
	MCQ          string       `json:"mcq"`
	MCQAnswer    string       `json:"mcq_answer"`
	Chunk        []string     `json:"chunk"`
	InputTokens  int          `json:"input_tokens"`
	OutputTokens int          `json:"output_tokens"`
}

// TokenUsage accumulates model-call token counts across pipeline steps.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates another completion's counts.
func (u *TokenUsage) Add(c Completion) {
	u.InputTokens += c.InputTokens
	u.OutputTokens += c.OutputTokens
}

// Failure placeholder texts. Exhausted retries are a terminal value, not an
// exception; these strings land in the MCQ fields of the final record.
const (
	FailureMissingOptions    = "No MCQ generated due to missing options."
	FailureEvaluationLimit   = "No MCQ generated due to evaluation failure."
	FailureNoCandidates      = "No candidates available."
	FailureAnswerPlaceholder = "No answer generated."
)
