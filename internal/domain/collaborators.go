package domain

import "context"

// Completion is the result of one model call.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// CompletionClient is the opaque model-call collaborator: text in, text out,
// with token counts. Failures propagate as hard errors out of the current
// pipeline step; isolation happens at the ranker/orchestrator boundary.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, model string) (Completion, error)
}

// PromptTemplate pairs a system prompt with a user prompt template holding
// {name} placeholders.
type PromptTemplate struct {
	System string `yaml:"system_prompt"`
	User   string `yaml:"user_prompt"`
}

// PromptStore resolves prompt templates by file name.
type PromptStore interface {
	Get(name string) (PromptTemplate, error)
}

// MetadataSink is the append-only persistence collaborator. Schema per table
// name is fixed externally; writes are fire-and-forget with no read-after-write
// dependency within a pipeline run.
type MetadataSink interface {
	EnsureTable(ctx context.Context, table string) error
	Insert(ctx context.Context, record map[string]any, table string) error
}

// SimilarityScorer embeds two texts and returns their cosine similarity in
// [-1, 1]. ok is false when scoring fails; the caller treats that as a missing
// score, not an error.
type SimilarityScorer interface {
	Score(ctx context.Context, a, b string) (score float64, ok bool)
}
