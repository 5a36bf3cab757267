package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lorekeep/lorekeep/internal/common"
	"github.com/lorekeep/lorekeep/internal/model"
)

// csvColumns is the minimum column count: question, category, difficulty,
// correct answer index, explanation, hint, then at least two choices.
const csvColumns = 8

// CSVFile reads questions from a local CSV file. The expected layout is
//
//	question,category,difficulty,correct_index,explanation,hint,choice1,choice2[,...]
//
// with an optional header row; explanation and hint may be empty. The file
// position is remembered across fetches so each cycle consumes the next
// batch instead of re-reading from the top.
type CSVFile struct {
	name   string
	path   string
	offset int
}

// NewCSVFile creates a CSV-backed source named after the file.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{
		name: fmt.Sprintf("csv:%s", path),
		path: path,
	}
}

// Name implements service.Source.
func (s *CSVFile) Name() string {
	return s.name
}

// Kind implements service.Source.
func (s *CSVFile) Kind() model.SourceKind {
	return model.SourceKindFile
}

// Fetch returns the next batch of up to count questions from the file.
// Malformed rows are logged and skipped rather than failing the batch;
// reaching the end of the file yields an empty batch, not an error.
func (s *CSVFile) Fetch(_ context.Context, count int) ([]model.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: csv file %s", common.ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var questions []model.Question
	row := 0
	for len(questions) < count {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				// Not row-scoped; keep the rows already read and
				// retry from here next fetch.
				slog.Warn("csv read failed mid-batch", "path", s.path, "row", row, "error", err)
				break
			}
			if row > s.offset {
				s.offset = row
				slog.Warn("skipping malformed csv row", "path", s.path, "row", row, "error", err)
			}
			continue
		}
		if row == 1 && isHeaderRow(record) {
			continue
		}
		if row <= s.offset {
			continue
		}
		s.offset = row

		q, err := parseCSVRecord(record)
		if err != nil {
			// A bad row must not cost the valid rows already read;
			// skip it and keep going.
			slog.Warn("skipping invalid csv row", "path", s.path, "row", row, "error", err)
			continue
		}
		questions = append(questions, q)
	}

	return questions, nil
}

// isHeaderRow detects a leading header by its canonical first column.
func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "question")
}

func parseCSVRecord(record []string) (model.Question, error) {
	if len(record) < csvColumns {
		return model.Question{}, fmt.Errorf("%w: expected at least %d columns, got %d",
			common.ErrInvalidQuestion, csvColumns, len(record))
	}

	text := strings.TrimSpace(record[0])
	if text == "" {
		return model.Question{}, fmt.Errorf("%w: empty question text", common.ErrInvalidQuestion)
	}

	correctIndex, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return model.Question{}, fmt.Errorf("%w: bad correct index %q", common.ErrInvalidQuestion, record[3])
	}

	choices := make([]model.Choice, 0, len(record)-6)
	for _, choice := range record[6:] {
		choice = strings.TrimSpace(choice)
		if choice == "" {
			continue
		}
		choices = append(choices, model.Choice{Text: choice})
	}
	if len(choices) < 2 {
		return model.Question{}, fmt.Errorf("%w: need at least 2 choices", common.ErrInvalidQuestion)
	}
	if correctIndex < 0 || correctIndex >= len(choices) {
		return model.Question{}, fmt.Errorf("%w: correct index %d out of range", common.ErrInvalidQuestion, correctIndex)
	}
	choices[correctIndex].IsCorrect = true

	return model.Question{
		Text:         text,
		Choices:      choices,
		CorrectIndex: correctIndex,
		Category:     strings.TrimSpace(record[1]),
		Difficulty:   parseDifficulty(strings.ToLower(strings.TrimSpace(record[2]))),
		Explanation:  strings.TrimSpace(record[4]),
		Hint:         strings.TrimSpace(record[5]),
		Source:       "csv",
	}, nil
}
