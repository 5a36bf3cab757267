// Package llm provides AI-backed collaborators for the acquisition daemon:
// the similarity judge consulted for ambiguous duplicates and the question
// generator behind targeted harvests.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client is the low-level provider interface. Implementations send a prompt
// and return the parsed provider response.
type Client interface {
	// JudgeMatch asks the provider which, if any, of the numbered questions
	// in the prompt matches the new one.
	JudgeMatch(ctx context.Context, prompt string) (MatchResponse, error)

	// GenerateQuestions asks the provider to produce trivia questions.
	GenerateQuestions(ctx context.Context, prompt string) (GenerationResponse, error)
}

// MatchResponse is the provider's duplicate verdict. MatchIndex is the
// zero-based index of the matching question, or negative for no match.
type MatchResponse struct {
	MatchIndex int
}

// GeneratedQuestion is one question as returned by a provider.
type GeneratedQuestion struct {
	Question     string   `json:"question"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Category     string   `json:"category"`
	Difficulty   string   `json:"difficulty"`
	Explanation  string   `json:"explanation,omitempty"`
	Hint         string   `json:"hint,omitempty"`
}

// GenerationResponse is the parsed result of a generation request.
type GenerationResponse struct {
	Questions []GeneratedQuestion
}

// Config holds configuration for the LLM layer.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// NewClient creates a provider client from configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
