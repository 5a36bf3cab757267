// Package dedup implements the similarity engine that decides whether an
// incoming question duplicates one already stored.
//
// Matching runs three tiers, short-circuiting on the first hit: an exact
// signature cache, a local Jaccard word-overlap heuristic against a bounded
// sample of existing questions, and an optional AI judge consulted only for
// candidates in the ambiguous similarity band.
package dedup

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lorekeep/lorekeep/internal/model"
	"github.com/lorekeep/lorekeep/internal/service"
)

const (
	// defaultMaxCacheEntries bounds the signature cache.
	defaultMaxCacheEntries = 10000
	// evictDivisor controls the batch eviction size: one Nth of the cache
	// is dropped when it fills.
	evictDivisor = 4

	// duplicateThreshold is the Jaccard similarity at or above which two
	// questions are treated as the same without consulting the judge.
	duplicateThreshold = 0.85
	// ambiguousThreshold is the lower bound of the band referred to the
	// judge. Below it, questions are considered distinct.
	ambiguousThreshold = 0.5

	// maxJudgeCandidates caps how many ambiguous questions are shown to the
	// judge in a single call.
	maxJudgeCandidates = 5
)

// Judge is an external oracle that picks which of several plausible
// candidates, if any, matches a new question. Implementations return the
// index of the match within candidates, or a negative value for no match.
type Judge interface {
	PickDuplicate(ctx context.Context, q model.Question, candidates []service.ExistingQuestion) (int, error)
}

// Engine is the similarity engine. It owns the signature cache and is safe
// for concurrent use; judge calls are made without holding the cache lock.
type Engine struct {
	judge Judge
	cache *signatureCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithJudge enables the external oracle tier.
func WithJudge(j Judge) Option {
	return func(e *Engine) {
		e.judge = j
	}
}

// WithCacheSize overrides the signature cache bound.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cache = newSignatureCache(n)
	}
}

// NewEngine creates a similarity engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		cache: newSignatureCache(defaultMaxCacheEntries),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindSimilar returns the id of an existing question that matches q, or
// false if q is novel. The caller supplies the sample of existing questions;
// an empty sample still allows signature-cache hits.
func (e *Engine) FindSimilar(ctx context.Context, q model.Question, existing []service.ExistingQuestion) (int64, bool) {
	signature := q.Signature()

	// Tier 1: exact signature cache.
	if id, ok := e.cache.get(signature); ok {
		slog.Debug("signature cache hit", "id", id)
		return id, true
	}

	// Tier 2: local word-overlap heuristic.
	candidateTokens := tokenSet(q.NormalizedText())
	var ambiguous []service.ExistingQuestion
	for _, ex := range existing {
		similarity := jaccard(candidateTokens, tokenSet(model.NormalizeText(ex.Text)))
		if similarity >= duplicateThreshold {
			slog.Debug("similarity match",
				"id", ex.ID,
				"similarity", similarity)
			e.cache.put(signature, ex.ID)
			return ex.ID, true
		}
		if similarity >= ambiguousThreshold {
			ambiguous = append(ambiguous, ex)
		}
	}

	// Tier 3: external judge for the ambiguous band. Judge failures are
	// always treated as no match.
	if e.judge != nil && len(ambiguous) > 0 {
		if len(ambiguous) > maxJudgeCandidates {
			ambiguous = ambiguous[:maxJudgeCandidates]
		}

		idx, err := e.judge.PickDuplicate(ctx, q, ambiguous)
		if err != nil {
			slog.Warn("similarity judge failed, treating as novel", "error", err)
			return 0, false
		}
		if idx >= 0 && idx < len(ambiguous) {
			matched := ambiguous[idx]
			slog.Debug("judge match", "id", matched.ID)
			e.cache.put(signature, matched.ID)
			return matched.ID, true
		}
	}

	return 0, false
}

// Register records that id corresponds to q's signature. Callers invoke it
// after persisting a novel question so later repeats hit the cache tier.
func (e *Engine) Register(q model.Question, id int64) {
	e.cache.put(q.Signature(), id)
}

// ClearCache empties the signature cache.
func (e *Engine) ClearCache() {
	e.cache.clear()
}

// CacheSize returns the number of cached signatures.
func (e *Engine) CacheSize() int {
	return e.cache.size()
}

// tokenSet splits normalized text into its set of words.
func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}

// jaccard computes |a ∩ b| / |a ∪ b|. Two empty sets have similarity 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
