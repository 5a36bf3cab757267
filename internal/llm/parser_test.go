package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMatchIndex(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name:    "match with index",
			content: "MATCH: 2",
			want:    2,
		},
		{
			name:    "no match",
			content: "MATCH: NONE",
			want:    -1,
		},
		{
			name:    "lowercase verdict",
			content: "match: none",
			want:    -1,
		},
		{
			name:    "bare number",
			content: "0",
			want:    0,
		},
		{
			name:    "bare none",
			content: "none",
			want:    -1,
		},
		{
			name:    "verdict after preamble line",
			content: "Here is my verdict:\nMATCH: 1",
			want:    1,
		},
		{
			name:    "markdown fenced",
			content: "```\nMATCH: 3\n```",
			want:    3,
		},
		{
			name:    "negative index means none",
			content: "MATCH: -1",
			want:    -1,
		},
		{
			name:    "nonsense",
			content: "I think they are all quite similar really",
			wantErr: true,
		},
		{
			name:    "empty",
			content: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMatchIndex(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGeneratedQuestions(t *testing.T) {
	t.Run("plain array", func(t *testing.T) {
		content := `[{"question":"What color is the sky?","choices":["Blue","Green"],"correct_index":0,"category":"Science","difficulty":"easy"}]`

		questions, err := parseGeneratedQuestions(content)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Equal(t, "What color is the sky?", questions[0].Question)
		assert.Equal(t, 0, questions[0].CorrectIndex)
	})

	t.Run("markdown fenced array", func(t *testing.T) {
		content := "```json\n[{\"question\":\"Q\",\"choices\":[\"a\",\"b\"],\"correct_index\":1}]\n```"

		questions, err := parseGeneratedQuestions(content)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Equal(t, 1, questions[0].CorrectIndex)
	})

	t.Run("object wrapper", func(t *testing.T) {
		content := `{"questions":[{"question":"Q","choices":["a","b"],"correct_index":0}]}`

		questions, err := parseGeneratedQuestions(content)
		require.NoError(t, err)
		assert.Len(t, questions, 1)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseGeneratedQuestions("not json at all")
		assert.Error(t, err)
	})
}

func TestToModelQuestion(t *testing.T) {
	t.Run("valid question", func(t *testing.T) {
		q, err := toModelQuestion(GeneratedQuestion{
			Question:     "What is 2+2?",
			Choices:      []string{"3", "4", "5", "6"},
			CorrectIndex: 1,
			Category:     "Math",
			Difficulty:   "Easy",
		})
		require.NoError(t, err)
		assert.Equal(t, "4", q.CorrectAnswer())
		assert.True(t, q.Choices[1].IsCorrect)
		assert.False(t, q.Choices[0].IsCorrect)
		assert.Equal(t, "easy", string(q.Difficulty))
	})

	t.Run("unknown difficulty defaults to medium", func(t *testing.T) {
		q, err := toModelQuestion(GeneratedQuestion{
			Question:     "Q",
			Choices:      []string{"a", "b"},
			CorrectIndex: 0,
			Difficulty:   "brutal",
		})
		require.NoError(t, err)
		assert.Equal(t, "medium", string(q.Difficulty))
	})

	t.Run("rejects out-of-range correct index", func(t *testing.T) {
		_, err := toModelQuestion(GeneratedQuestion{
			Question:     "Q",
			Choices:      []string{"a", "b"},
			CorrectIndex: 5,
		})
		assert.Error(t, err)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		_, err := toModelQuestion(GeneratedQuestion{
			Choices:      []string{"a", "b"},
			CorrectIndex: 0,
		})
		assert.Error(t, err)
	})
}
