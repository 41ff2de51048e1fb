package domain

// QuestionType identifies the planning unit a task was derived from.
type QuestionType string

const (
	QuestionTypeFact      QuestionType = "fact"
	QuestionTypeInference QuestionType = "inference"
	QuestionTypeMainIdea  QuestionType = "main_idea"
)

// Valid reports whether t is one of the three supported question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeFact, QuestionTypeInference, QuestionTypeMainIdea:
		return true
	}
	return false
}

// Task is one planned question-generation unit. It is immutable input to
// generation; revision context for retry rounds travels separately in
// RevisionContext rather than by mutating the task.
type Task struct {
	QuestionType QuestionType
	// Content is the planned fact/inference statement the question must target.
	// Empty for main_idea tasks.
	Content string
	// Text is the source chunk content the question is grounded in.
	Text string
	// Context is the surrounding (non-source) chunk text.
	Context string
	// Chunk holds the chunk labels (e.g. "chunk1") the task draws from.
	Chunk []string
}

// RevisionContext carries the rejected MCQ of a previous attempt into the next
// generation round.
type RevisionContext struct {
	PreviousMCQ    string
	PreviousAnswer string
	Reasoning      string
}

// Plan is the parsed output of the planning step.
type Plan struct {
	Summary    string
	Facts      []PlanItem
	Inferences []PlanItem
}

// PlanItem is one fact or inference selected by the planner, with the chunk
// labels it references.
type PlanItem struct {
	Content string   `json:"content"`
	Chunk   []string `json:"chunk"`
}
