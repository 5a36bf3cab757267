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

// Judge implements the dedup.Judge oracle on top of an LLM provider. Calls
// are rate limited and retried; the similarity engine treats any error as
// "no match", so the judge never needs to be available for acquisition to
// make progress.
type Judge struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewJudge creates a similarity judge from configuration.
func NewJudge(cfg Config, logger *slog.Logger) (*Judge, error) {
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
		retryOpts.MaxAttempts = 2
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Judge{
		client:      client,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// PickDuplicate asks the provider which candidate matches q. It returns the
// index of the match within candidates, or -1 for none.
func (j *Judge) PickDuplicate(ctx context.Context, q model.Question, candidates []service.ExistingQuestion) (int, error) {
	if len(candidates) == 0 {
		return -1, nil
	}

	if err := j.rateLimiter.wait(ctx); err != nil {
		return -1, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildJudgePrompt(q, candidates)

	var matchIndex int
	err := common.WithRetry(ctx, func() error {
		response, err := j.client.JudgeMatch(ctx, prompt)
		if err != nil {
			j.logger.Warn("judge attempt failed", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}
		matchIndex = response.MatchIndex
		return nil
	}, j.retryOpts)

	if err != nil {
		return -1, fmt.Errorf("duplicate judgment failed: %w", err)
	}

	if matchIndex >= len(candidates) {
		j.logger.Warn("judge returned out-of-range index",
			"index", matchIndex,
			"candidates", len(candidates))
		return -1, nil
	}

	return matchIndex, nil
}

// Close stops background goroutines and cleans up resources.
func (j *Judge) Close() error {
	if j.rateLimiter != nil {
		j.rateLimiter.Close()
	}
	return nil
}

// buildJudgePrompt creates the duplicate-detection prompt.
func buildJudgePrompt(q model.Question, candidates []service.ExistingQuestion) string {
	var existing strings.Builder
	for i, c := range candidates {
		existing.WriteString(fmt.Sprintf("%d. Q: %s A: %s\n", i, c.Text, c.CorrectAnswer))
	}

	return fmt.Sprintf(`Decide whether the NEW trivia question asks the same thing as any of the EXISTING questions below. Two questions match when a person who knows the answer to one necessarily knows the answer to the other, even if the wording differs.

EXISTING questions:
%s
NEW question:
Q: %s A: %s

Respond in this exact format:
MATCH: <index of the matching existing question>
or, if none of them match:
MATCH: NONE`,
		existing.String(),
		q.Text,
		q.CorrectAnswer())
}
