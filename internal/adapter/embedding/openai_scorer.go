package embedding

import (
	"context"
	"fmt"

	"github.com/solet-asu/MCQ-generation/internal/domain"
	"github.com/solet-asu/MCQ-generation/internal/util"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIScorer implements domain.SimilarityScorer by embedding both texts in
// one request and comparing them with cosine similarity.
type OpenAIScorer struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger
}

func NewOpenAIScorer(apiKey, model string, logger *zap.Logger) (*OpenAIScorer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key cannot be empty")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIScorer{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
		logger: logger,
	}, nil
}

var _ domain.SimilarityScorer = (*OpenAIScorer)(nil)

// Score returns the cosine similarity of a and b. ok is false when either
// embedding could not be produced; the failure is logged, never propagated.
func (s *OpenAIScorer) Score(ctx context.Context, a, b string) (float64, bool) {
	if a == "" || b == "" {
		return 0, false
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{a, b},
		Model: s.model,
	})
	if err != nil {
		s.logger.Warn("Embedding request failed", zap.Error(err))
		return 0, false
	}
	if len(resp.Data) < 2 {
		s.logger.Warn("Embedding response incomplete", zap.Int("vectors", len(resp.Data)))
		return 0, false
	}

	score, err := util.CosineSimilarity(resp.Data[0].Embedding, resp.Data[1].Embedding)
	if err != nil {
		s.logger.Warn("Cosine similarity failed", zap.Error(err))
		return 0, false
	}
	return score, true
}
