// Package service defines the contracts between the acquisition daemon and
// its collaborators.
package service

import (
	"context"
	"time"

	"github.com/lorekeep/lorekeep/internal/model"
)

// Source is anything that can yield a batch of candidate questions.
// Implementations classify their failures with the sentinel errors in
// internal/common: common.ErrRateLimit for upstream throttling and
// common.ErrMissingCredential for an unconfigured integration. Every other
// error is treated as a generic recoverable source failure.
type Source interface {
	// Name returns the stable name the daemon tracks this source under.
	Name() string

	// Kind classifies the source for storage attribution.
	Kind() model.SourceKind

	// Fetch returns up to count candidate questions.
	Fetch(ctx context.Context, count int) ([]model.Question, error)
}

// Generator is a source that can also synthesize questions for specific
// categories, used by targeted harvests.
type Generator interface {
	Source

	// GenerateForCategories produces up to count questions spread across the
	// named categories.
	GenerateForCategories(ctx context.Context, categories []string, count int) ([]model.Question, error)
}

// ExistingQuestion is the bounded projection of a stored question used for
// similarity matching.
type ExistingQuestion struct {
	Text          string
	CorrectAnswer string
	ID            int64
}

// Storage defines the persistence gateway the daemon writes through.
type Storage interface {
	// Question operations
	GetExistingQuestions(ctx context.Context, limit int) ([]ExistingQuestion, error)
	InsertQuestion(ctx context.Context, q model.Question, categoryID, sourceID int64) (int64, error)
	QuestionsByCategory(ctx context.Context, category string) ([]model.Question, error)
	CountQuestions(ctx context.Context) (int, error)

	// Category and source normalization
	GetOrCreateCategory(ctx context.Context, name string) (int64, error)
	GetOrCreateSource(ctx context.Context, name string, kind model.SourceKind) (int64, error)
	IncrementSourceCount(ctx context.Context, sourceID int64) error
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetSources(ctx context.Context) ([]model.Source, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Matcher decides whether a candidate question duplicates a stored one.
type Matcher interface {
	// FindSimilar returns the id of a matching existing question, or false
	// if the candidate is novel.
	FindSimilar(ctx context.Context, q model.Question, existing []ExistingQuestion) (int64, bool)

	// Register records that id corresponds to q's signature so later
	// repeats hit the cheap cache path.
	Register(q model.Question, id int64)

	// ClearCache empties the signature cache.
	ClearCache()
}

// HarvestResult reports the outcome of a targeted harvest.
type HarvestResult struct {
	Fetched int `json:"fetched"`
	Added   int `json:"added"`
	Errors  int `json:"errors"`
}

// SourceStats is the per-source counter breakdown in a stats snapshot.
type SourceStats struct {
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	Fetched    int    `json:"fetched"`
	Added      int    `json:"added"`
	Duplicates int    `json:"duplicates"`
	Errors     int    `json:"errors"`
}

// StatsSnapshot is the serializable view of the daemon's counters.
type StatsSnapshot struct {
	State          string        `json:"state"`
	StartedAt      time.Time     `json:"started_at"`
	TotalFetched   int           `json:"total_fetched"`
	TotalAdded     int           `json:"total_added"`
	TotalDuplicate int           `json:"total_duplicates"`
	RateLimitHits  int           `json:"rate_limit_hits"`
	TotalErrors    int           `json:"total_errors"`
	Sources        []SourceStats `json:"sources"`
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
