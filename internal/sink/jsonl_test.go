package sink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/model"
)

func TestFileWriter(t *testing.T) {
	t.Run("flush writes buffered questions as JSONL", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "questions.jsonl")
		w := NewFileWriter(path)

		w.Append(model.Question{Text: "Q1", Category: "General"})
		w.Append(model.Question{Text: "Q2", Category: "Science"})
		assert.Equal(t, 2, w.Pending())

		require.NoError(t, w.Flush())
		assert.Equal(t, 0, w.Pending())

		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()

		var texts []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var q model.Question
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &q))
			texts = append(texts, q.Text)
		}
		assert.Equal(t, []string{"Q1", "Q2"}, texts)
	})

	t.Run("flush with empty buffer does not create the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "questions.jsonl")
		w := NewFileWriter(path)

		require.NoError(t, w.Flush())

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("repeated flushes append", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "questions.jsonl")
		w := NewFileWriter(path)

		w.Append(model.Question{Text: "Q1"})
		require.NoError(t, w.Flush())

		w.Append(model.Question{Text: "Q2"})
		require.NoError(t, w.Flush())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Q1")
		assert.Contains(t, string(data), "Q2")
	})
}
