package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lorekeep/lorekeep/internal/common"
	"github.com/lorekeep/lorekeep/internal/model"
	"github.com/lorekeep/lorekeep/internal/service"
)

// Generator synthesizes trivia questions with an LLM provider.
type Generator struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewGenerator creates a question generator from configuration.
func NewGenerator(cfg Config, logger *slog.Logger) (*Generator, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Generator{
		client:      client,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// Generate produces up to count questions spread across the named
// categories. An empty category list lets the provider pick topics freely.
func (g *Generator) Generate(ctx context.Context, categories []string, count int) ([]model.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	if err := g.rateLimiter.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildGenerationPrompt(categories, count)

	var generated []GeneratedQuestion
	err := common.WithRetry(ctx, func() error {
		response, err := g.client.GenerateQuestions(ctx, prompt)
		if err != nil {
			g.logger.Warn("generation attempt failed", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}
		if len(response.Questions) == 0 {
			return &common.RetryableError{
				Err:       fmt.Errorf("provider returned no questions"),
				Retryable: true,
			}
		}
		generated = response.Questions
		return nil
	}, g.retryOpts)

	if err != nil {
		return nil, fmt.Errorf("question generation failed: %w", err)
	}

	questions := make([]model.Question, 0, len(generated))
	for _, gq := range generated {
		q, err := toModelQuestion(gq)
		if err != nil {
			g.logger.Warn("skipping malformed generated question",
				"question", gq.Question,
				"error", err)
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) > count {
		questions = questions[:count]
	}

	g.logger.Info("generated questions",
		"requested", count,
		"returned", len(questions),
		"categories", categories)

	return questions, nil
}

// Close stops background goroutines and cleans up resources.
func (g *Generator) Close() error {
	if g.rateLimiter != nil {
		g.rateLimiter.Close()
	}
	return nil
}

// toModelQuestion validates and converts a provider question.
func toModelQuestion(gq GeneratedQuestion) (model.Question, error) {
	if strings.TrimSpace(gq.Question) == "" {
		return model.Question{}, fmt.Errorf("%w: empty question text", common.ErrInvalidQuestion)
	}
	if len(gq.Choices) < 2 {
		return model.Question{}, fmt.Errorf("%w: need at least 2 choices, got %d", common.ErrInvalidQuestion, len(gq.Choices))
	}
	if gq.CorrectIndex < 0 || gq.CorrectIndex >= len(gq.Choices) {
		return model.Question{}, fmt.Errorf("%w: correct index %d out of range", common.ErrInvalidQuestion, gq.CorrectIndex)
	}

	choices := make([]model.Choice, len(gq.Choices))
	for i, text := range gq.Choices {
		choices[i] = model.Choice{
			Text:      text,
			IsCorrect: i == gq.CorrectIndex,
		}
	}

	difficulty := model.Difficulty(strings.ToLower(gq.Difficulty))
	switch difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		difficulty = model.DifficultyMedium
	}

	return model.Question{
		Text:         gq.Question,
		Choices:      choices,
		CorrectIndex: gq.CorrectIndex,
		Category:     gq.Category,
		Difficulty:   difficulty,
		Explanation:  gq.Explanation,
		Hint:         gq.Hint,
	}, nil
}

// buildGenerationPrompt creates the question-generation prompt.
func buildGenerationPrompt(categories []string, count int) string {
	topicLine := "any interesting general-knowledge topics"
	if len(categories) > 0 {
		topicLine = "these categories: " + strings.Join(categories, ", ")
	}

	return fmt.Sprintf(`Write %d multiple-choice trivia questions about %s.

Requirements:
- Each question has exactly 4 answer choices with exactly one correct answer
- Questions must be factually accurate and unambiguous
- Mix difficulties across easy, medium and hard
- Include a short explanation of the correct answer and an optional hint

Respond with a JSON array in this exact shape:
[
  {
    "question": "...",
    "choices": ["...", "...", "...", "..."],
    "correct_index": 0,
    "category": "...",
    "difficulty": "easy|medium|hard",
    "explanation": "...",
    "hint": "..."
  }
]`,
		count,
		topicLine)
}
