package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lorekeep/lorekeep/internal/common"
	"github.com/lorekeep/lorekeep/internal/llm"
	"github.com/lorekeep/lorekeep/internal/model"
)

const generatorName = "ai-generator"

// AIGenerator exposes the LLM question generator as a regular source. During
// cycle fetches it spreads questions across its configured category rotation;
// targeted harvests name their own categories.
type AIGenerator struct {
	gen        *llm.Generator
	categories []string
}

// NewAIGenerator wraps an LLM generator. A nil generator is valid and means
// the integration is not configured; fetches then fail with
// common.ErrMissingCredential so the daemon skips the source quietly.
func NewAIGenerator(gen *llm.Generator, categories []string) *AIGenerator {
	return &AIGenerator{gen: gen, categories: categories}
}

// Name implements service.Source.
func (s *AIGenerator) Name() string {
	return generatorName
}

// Kind implements service.Source.
func (s *AIGenerator) Kind() model.SourceKind {
	return model.SourceKindGenerator
}

// Fetch generates up to count questions across the configured categories.
func (s *AIGenerator) Fetch(ctx context.Context, count int) ([]model.Question, error) {
	return s.GenerateForCategories(ctx, s.categories, count)
}

// GenerateForCategories implements service.Generator.
func (s *AIGenerator) GenerateForCategories(ctx context.Context, categories []string, count int) ([]model.Question, error) {
	if s.gen == nil {
		return nil, fmt.Errorf("question generation: %w", common.ErrMissingCredential)
	}
	if count <= 0 {
		return nil, nil
	}

	questions, err := s.gen.Generate(ctx, categories, count)
	if err != nil {
		return nil, fmt.Errorf("question generation failed: %w", err)
	}
	for i := range questions {
		questions[i].Source = generatorName
	}

	slog.Debug("generated questions", "count", len(questions), "categories", categories)
	return questions, nil
}

// Close releases the underlying client.
func (s *AIGenerator) Close() error {
	if s.gen == nil {
		return nil
	}
	return s.gen.Close()
}
