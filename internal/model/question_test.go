package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases and strips punctuation",
			input: "What is the Capital of France?",
			want:  "what is the capital of france",
		},
		{
			name:  "collapses whitespace",
			input: "  Who   wrote\t'Hamlet'?\n",
			want:  "who wrote hamlet",
		},
		{
			name:  "keeps digits",
			input: "In what year did WW2 end? 1945!",
			want:  "in what year did ww2 end 1945",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "punctuation only",
			input: "?!...",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestQuestionCorrectAnswer(t *testing.T) {
	t.Run("index is authoritative when in range", func(t *testing.T) {
		q := Question{
			Text: "Which planet is closest to the sun?",
			Choices: []Choice{
				{Text: "Venus", IsCorrect: true}, // stale flag
				{Text: "Mercury"},
			},
			CorrectIndex: 1,
		}
		assert.Equal(t, "Mercury", q.CorrectAnswer())
	})

	t.Run("falls back to flagged choice when index out of range", func(t *testing.T) {
		q := Question{
			Choices: []Choice{
				{Text: "Venus"},
				{Text: "Mercury", IsCorrect: true},
			},
			CorrectIndex: 7,
		}
		assert.Equal(t, "Mercury", q.CorrectAnswer())
	})

	t.Run("empty when nothing resolves", func(t *testing.T) {
		q := Question{CorrectIndex: -1}
		assert.Equal(t, "", q.CorrectAnswer())
	})
}

func TestQuestionSignature(t *testing.T) {
	t.Run("casing and punctuation do not change the signature", func(t *testing.T) {
		a := Question{
			Text:         "What is the capital of France?",
			Choices:      []Choice{{Text: "Paris", IsCorrect: true}},
			CorrectIndex: 0,
		}
		b := Question{
			Text:         "  WHAT is the Capital of France ",
			Choices:      []Choice{{Text: "PARIS!", IsCorrect: true}},
			CorrectIndex: 0,
		}
		assert.Equal(t, a.Signature(), b.Signature())
	})

	t.Run("different answers yield different signatures", func(t *testing.T) {
		a := Question{
			Text:         "What is the capital of France?",
			Choices:      []Choice{{Text: "Paris", IsCorrect: true}},
			CorrectIndex: 0,
		}
		b := Question{
			Text:         "What is the capital of France?",
			Choices:      []Choice{{Text: "Lyon", IsCorrect: true}},
			CorrectIndex: 0,
		}
		assert.NotEqual(t, a.Signature(), b.Signature())
	})
}
