package dedup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/model"
	"github.com/lorekeep/lorekeep/internal/service"
)

func question(text, answer string) model.Question {
	return model.Question{
		Text:         text,
		Choices:      []model.Choice{{Text: answer, IsCorrect: true}},
		CorrectIndex: 0,
	}
}

// mockJudge records calls and returns a fixed verdict.
type mockJudge struct {
	idx   int
	err   error
	calls int
	mu    sync.Mutex
}

func (m *mockJudge) PickDuplicate(_ context.Context, _ model.Question, _ []service.ExistingQuestion) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.idx, m.err
}

func (m *mockJudge) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestEngineSignatureCache(t *testing.T) {
	t.Run("registered question is found with empty sample", func(t *testing.T) {
		engine := NewEngine()
		q := question("What is the capital of France?", "Paris")

		engine.Register(q, 42)

		id, found := engine.FindSimilar(context.Background(), q, nil)
		require.True(t, found)
		assert.Equal(t, int64(42), id)
	})

	t.Run("fresh engine with empty sample returns nothing", func(t *testing.T) {
		engine := NewEngine()
		q := question("What is the capital of France?", "Paris")

		_, found := engine.FindSimilar(context.Background(), q, nil)
		assert.False(t, found)
	})

	t.Run("cosmetic differences hit the same cache entry", func(t *testing.T) {
		engine := NewEngine()
		engine.Register(question("What is the capital of France?", "Paris"), 7)

		id, found := engine.FindSimilar(context.Background(),
			question("  WHAT is the capital of FRANCE!! ", "paris"), nil)
		require.True(t, found)
		assert.Equal(t, int64(7), id)
	})

	t.Run("clear cache forgets registrations", func(t *testing.T) {
		engine := NewEngine()
		q := question("What is the capital of France?", "Paris")
		engine.Register(q, 42)

		engine.ClearCache()

		_, found := engine.FindSimilar(context.Background(), q, nil)
		assert.False(t, found)
	})
}

func TestEngineJaccardTier(t *testing.T) {
	t.Run("high overlap is a duplicate without the judge", func(t *testing.T) {
		judge := &mockJudge{idx: -1}
		engine := NewEngine(WithJudge(judge))

		existing := []service.ExistingQuestion{
			{ID: 9, Text: "What is the tallest mountain in the world today", CorrectAnswer: "Everest"},
		}
		q := question("What is the tallest mountain in the world", "Everest")

		id, found := engine.FindSimilar(context.Background(), q, existing)
		require.True(t, found)
		assert.Equal(t, int64(9), id)
		assert.Equal(t, 0, judge.callCount())
	})

	t.Run("near-zero overlap is distinct", func(t *testing.T) {
		engine := NewEngine()

		existing := []service.ExistingQuestion{
			{ID: 3, Text: "Which composer wrote the Ninth Symphony", CorrectAnswer: "Beethoven"},
		}
		q := question("How many legs does a spider have?", "Eight")

		_, found := engine.FindSimilar(context.Background(), q, existing)
		assert.False(t, found)
	})

	t.Run("jaccard match is cached for later lookups", func(t *testing.T) {
		engine := NewEngine()
		existing := []service.ExistingQuestion{
			{ID: 9, Text: "What is the tallest mountain in the world today", CorrectAnswer: "Everest"},
		}
		q := question("What is the tallest mountain in the world", "Everest")

		_, found := engine.FindSimilar(context.Background(), q, existing)
		require.True(t, found)

		// Same question again, no sample needed this time.
		id, found := engine.FindSimilar(context.Background(), q, nil)
		require.True(t, found)
		assert.Equal(t, int64(9), id)
	})
}

func TestEngineJudgeTier(t *testing.T) {
	// Shares roughly two thirds of its words with the candidate below:
	// inside the ambiguous band, outside the auto-duplicate threshold.
	ambiguousExisting := []service.ExistingQuestion{
		{ID: 21, Text: "Which planet in our solar system is known as the red planet", CorrectAnswer: "Mars"},
	}
	candidate := question("Which planet in the solar system is called the red one", "Mars")

	t.Run("judge confirms a match in the ambiguous band", func(t *testing.T) {
		judge := &mockJudge{idx: 0}
		engine := NewEngine(WithJudge(judge))

		id, found := engine.FindSimilar(context.Background(), candidate, ambiguousExisting)
		require.True(t, found)
		assert.Equal(t, int64(21), id)
		assert.Equal(t, 1, judge.callCount())
	})

	t.Run("judge says no match", func(t *testing.T) {
		judge := &mockJudge{idx: -1}
		engine := NewEngine(WithJudge(judge))

		_, found := engine.FindSimilar(context.Background(), candidate, ambiguousExisting)
		assert.False(t, found)
		assert.Equal(t, 1, judge.callCount())
	})

	t.Run("judge failure is treated as novel", func(t *testing.T) {
		judge := &mockJudge{err: errors.New("oracle unavailable")}
		engine := NewEngine(WithJudge(judge))

		_, found := engine.FindSimilar(context.Background(), candidate, ambiguousExisting)
		assert.False(t, found)
	})

	t.Run("out-of-range judge index is treated as novel", func(t *testing.T) {
		judge := &mockJudge{idx: 14}
		engine := NewEngine(WithJudge(judge))

		_, found := engine.FindSimilar(context.Background(), candidate, ambiguousExisting)
		assert.False(t, found)
	})

	t.Run("no judge configured skips the tier", func(t *testing.T) {
		engine := NewEngine()

		_, found := engine.FindSimilar(context.Background(), candidate, ambiguousExisting)
		assert.False(t, found)
	})
}

func TestCacheEviction(t *testing.T) {
	t.Run("oldest quarter is evicted at the bound", func(t *testing.T) {
		engine := NewEngine(WithCacheSize(100))

		for i := 0; i < 101; i++ {
			q := question(fmt.Sprintf("unique question number %d about topic %d", i, i), "yes")
			engine.Register(q, int64(i))
		}

		// The first quarter was evicted to make room for entry 100.
		first := question("unique question number 0 about topic 0", "yes")
		_, found := engine.FindSimilar(context.Background(), first, nil)
		assert.False(t, found, "earliest entry should have been evicted")

		// Recent entries survive.
		last := question("unique question number 100 about topic 100", "yes")
		id, found := engine.FindSimilar(context.Background(), last, nil)
		require.True(t, found)
		assert.Equal(t, int64(100), id)

		// One batch eviction, then one insert: 100 - 25 + 1.
		assert.Equal(t, 76, engine.CacheSize())
	})

	t.Run("re-registering refreshes eviction order", func(t *testing.T) {
		engine := NewEngine(WithCacheSize(4))

		q0 := question("alpha beta gamma", "one")
		engine.Register(q0, 0)
		engine.Register(question("delta epsilon zeta", "two"), 1)
		engine.Register(question("eta theta iota", "three"), 2)

		// Refresh q0, then overflow the cache.
		engine.Register(q0, 0)
		engine.Register(question("kappa lambda mu", "four"), 3)
		engine.Register(question("nu xi omicron", "five"), 4)

		_, found := engine.FindSimilar(context.Background(), q0, nil)
		assert.True(t, found, "refreshed entry should outlive older ones")
	})
}

func TestEngineConcurrency(t *testing.T) {
	engine := NewEngine(WithCacheSize(50))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				q := question(fmt.Sprintf("worker %d question %d", worker, i), "answer")
				engine.Register(q, int64(i))
				engine.FindSimilar(context.Background(), q, nil)
			}
		}(w)
	}
	wg.Wait()

	// Cache stayed within its bound.
	assert.LessOrEqual(t, engine.CacheSize(), 50)
}
