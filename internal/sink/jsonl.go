// Package sink implements the flat-file persistence path: collected
// questions are buffered in memory and flushed to a JSON-lines file at the
// end of each acquisition cycle and on daemon stop.
package sink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lorekeep/lorekeep/internal/model"
)

// FileWriter appends questions to a JSONL file. It has no notion of
// deduplication: every appended question is written.
type FileWriter struct {
	path    string
	pending []model.Question
	mu      sync.Mutex
}

// NewFileWriter creates a writer for the given path. The file and its
// directory are created lazily on first flush.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Path returns the output file path.
func (w *FileWriter) Path() string {
	return w.path
}

// Append buffers a question for the next flush.
func (w *FileWriter) Append(q model.Question) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, q)
}

// Pending returns the number of buffered questions.
func (w *FileWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Flush writes all buffered questions to the file and clears the buffer.
// On write failure the buffer is kept so a later flush can retry.
func (w *FileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	for _, q := range w.pending {
		if err := enc.Encode(q); err != nil {
			return fmt.Errorf("failed to write question: %w", err)
		}
	}

	slog.Debug("flushed questions to file",
		"path", w.path,
		"count", len(w.pending))

	w.pending = w.pending[:0]
	return nil
}
