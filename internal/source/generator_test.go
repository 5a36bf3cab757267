package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/common"
	"github.com/lorekeep/lorekeep/internal/model"
)

func TestAIGeneratorUnconfigured(t *testing.T) {
	src := NewAIGenerator(nil, []string{"Science"})

	_, err := src.Fetch(context.Background(), 5)
	assert.ErrorIs(t, err, common.ErrMissingCredential)

	_, err = src.GenerateForCategories(context.Background(), []string{"History"}, 5)
	assert.ErrorIs(t, err, common.ErrMissingCredential)

	assert.NoError(t, src.Close())
}

func TestAIGeneratorIdentity(t *testing.T) {
	src := NewAIGenerator(nil, nil)
	assert.Equal(t, "ai-generator", src.Name())
	assert.Equal(t, model.SourceKindGenerator, src.Kind())
}

func TestAIGeneratorZeroCount(t *testing.T) {
	src := NewAIGenerator(nil, nil)
	questions, err := src.GenerateForCategories(context.Background(), []string{"Science"}, 0)
	require.Error(t, err, "credential check comes before the count check")
	assert.Empty(t, questions)
}
