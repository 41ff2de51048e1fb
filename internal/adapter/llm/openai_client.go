package llm

import (
	"context"
	"fmt"

	"github.com/solet-asu/MCQ-generation/internal/domain"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const fallbackEncoding = "cl100k_base"

// OpenAIClient implements domain.CompletionClient over the OpenAI chat API.
// The model is chosen per call so one client serves every pipeline step.
type OpenAIClient struct {
	llm    *openai.LLM
	logger *zap.Logger
}

func NewOpenAIClient(apiKey string, logger *zap.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key cannot be empty")
	}
	client, err := openai.New(openai.WithToken(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &OpenAIClient{llm: client, logger: logger}, nil
}

var _ domain.CompletionClient = (*OpenAIClient)(nil)

// Complete sends a system/user prompt pair and returns the completion text
// with token counts. Counts come from the provider response when present,
// otherwise from a local tokenizer.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt, model string) (domain.Completion, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithModel(model))
	if err != nil {
		return domain.Completion{}, fmt.Errorf("completion call failed for model %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{}, fmt.Errorf("completion for model %s returned no choices", model)
	}

	choice := resp.Choices[0]
	completion := domain.Completion{Text: choice.Content}
	completion.InputTokens = infoTokens(choice.GenerationInfo, "PromptTokens")
	completion.OutputTokens = infoTokens(choice.GenerationInfo, "CompletionTokens")

	if completion.InputTokens == 0 {
		completion.InputTokens = c.countTokens(model, systemPrompt+userPrompt)
	}
	if completion.OutputTokens == 0 {
		completion.OutputTokens = c.countTokens(model, choice.Content)
	}
	return completion, nil
}

func (c *OpenAIClient) countTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			c.logger.Warn("Tokenizer unavailable, reporting zero tokens",
				zap.String("model", model), zap.Error(err))
			return 0
		}
	}
	return len(enc.Encode(text, nil, nil))
}

func infoTokens(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
