package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testQuestion(text string) model.Question {
	return model.Question{
		Text: text,
		Choices: []model.Choice{
			{Text: "Right", IsCorrect: true},
			{Text: "Wrong"},
		},
		CorrectIndex: 0,
		Category:     "General",
		Difficulty:   model.DifficultyEasy,
		Source:       "test",
	}
}

func TestMigrate(t *testing.T) {
	store := newTestStorage(t)

	// Migrating twice is a no-op.
	require.NoError(t, store.Migrate(context.Background()))
}

func TestGetOrCreateCategory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	id1, err := store.GetOrCreateCategory(ctx, "Science")
	require.NoError(t, err)
	assert.Positive(t, id1)

	// Same name resolves to the same id.
	id2, err := store.GetOrCreateCategory(ctx, "Science")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	// A different name gets a new id.
	id3, err := store.GetOrCreateCategory(ctx, "History")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2)

	_, err = store.GetOrCreateCategory(ctx, "")
	assert.Error(t, err)
}

func TestGetOrCreateSource(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	id1, err := store.GetOrCreateSource(ctx, "opentdb", model.SourceKindAPI)
	require.NoError(t, err)

	id2, err := store.GetOrCreateSource(ctx, "opentdb", model.SourceKindAPI)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	sources, err := store.GetSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, model.SourceKindAPI, sources[0].Kind)
	assert.Equal(t, 0, sources[0].QuestionCount)
}

func TestIncrementSourceCount(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	id, err := store.GetOrCreateSource(ctx, "opentdb", model.SourceKindAPI)
	require.NoError(t, err)

	require.NoError(t, store.IncrementSourceCount(ctx, id))
	require.NoError(t, store.IncrementSourceCount(ctx, id))

	sources, err := store.GetSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, 2, sources[0].QuestionCount)

	// Unknown source id is an error.
	assert.Error(t, store.IncrementSourceCount(ctx, 9999))
}

func TestInsertAndSampleQuestions(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	catID, err := store.GetOrCreateCategory(ctx, "General")
	require.NoError(t, err)
	srcID, err := store.GetOrCreateSource(ctx, "test", model.SourceKindAPI)
	require.NoError(t, err)

	id1, err := store.InsertQuestion(ctx, testQuestion("What is the capital of France?"), catID, srcID)
	require.NoError(t, err)
	assert.Positive(t, id1)

	id2, err := store.InsertQuestion(ctx, testQuestion("How many continents are there?"), catID, srcID)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	existing, err := store.GetExistingQuestions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, existing, 2)

	// Newest first, and the correct answer is resolved from the choices.
	assert.Equal(t, id2, existing[0].ID)
	assert.Equal(t, "How many continents are there?", existing[0].Text)
	assert.Equal(t, "Right", existing[0].CorrectAnswer)

	// Limit is honored.
	limited, err := store.GetExistingQuestions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	count, err := store.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestQuestionsByCategory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	catID, err := store.GetOrCreateCategory(ctx, "General")
	require.NoError(t, err)
	otherID, err := store.GetOrCreateCategory(ctx, "Science")
	require.NoError(t, err)
	srcID, err := store.GetOrCreateSource(ctx, "test", model.SourceKindAPI)
	require.NoError(t, err)

	q := testQuestion("What is the capital of France?")
	q.Explanation = "Paris has been the capital since 987."
	q.Hint = "City of Light"
	_, err = store.InsertQuestion(ctx, q, catID, srcID)
	require.NoError(t, err)
	_, err = store.InsertQuestion(ctx, testQuestion("What is H2O?"), otherID, srcID)
	require.NoError(t, err)

	questions, err := store.QuestionsByCategory(ctx, "General")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "What is the capital of France?", questions[0].Text)
	assert.Equal(t, "General", questions[0].Category)
	assert.Equal(t, "test", questions[0].Source)
	assert.Equal(t, "Paris has been the capital since 987.", questions[0].Explanation)
	assert.Equal(t, "City of Light", questions[0].Hint)
	require.Len(t, questions[0].Choices, 2)
	assert.True(t, questions[0].Choices[0].IsCorrect)

	empty, err := store.QuestionsByCategory(ctx, "Geography")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
