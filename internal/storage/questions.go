package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lorekeep/lorekeep/internal/model"
	"github.com/lorekeep/lorekeep/internal/service"
)

// GetExistingQuestions returns a bounded sample of stored questions for
// similarity matching, newest first.
func (s *SQLiteStorage) GetExistingQuestions(ctx context.Context, limit int) ([]service.ExistingQuestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, text, choices, correct_index
		FROM questions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing questions: %w", err)
	}
	defer rows.Close()

	var existing []service.ExistingQuestion
	for rows.Next() {
		var (
			eq          service.ExistingQuestion
			choicesJSON string
			correctIdx  int
		)
		if err := rows.Scan(&eq.ID, &eq.Text, &choicesJSON, &correctIdx); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}

		var choices []model.Choice
		if err := json.Unmarshal([]byte(choicesJSON), &choices); err != nil {
			return nil, fmt.Errorf("failed to decode choices for question %d: %w", eq.ID, err)
		}
		eq.CorrectAnswer = resolveCorrectAnswer(choices, correctIdx)

		existing = append(existing, eq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	slog.Debug("retrieved existing questions", "count", len(existing))
	return existing, nil
}

// InsertQuestion stores a question and returns its id.
func (s *SQLiteStorage) InsertQuestion(ctx context.Context, q model.Question, categoryID, sourceID int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(q.Text, "question text"); err != nil {
		return 0, err
	}

	choicesJSON, err := json.Marshal(q.Choices)
	if err != nil {
		return 0, fmt.Errorf("failed to encode choices: %w", err)
	}

	query := `
		INSERT INTO questions (text, choices, correct_index, difficulty, explanation, hint, category_id, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		q.Text,
		string(choicesJSON),
		q.CorrectIndex,
		string(q.Difficulty),
		q.Explanation,
		q.Hint,
		categoryID,
		sourceID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert question: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get question id: %w", err)
	}

	slog.Debug("inserted question", "id", id, "category_id", categoryID)
	return id, nil
}

// QuestionsByCategory returns all stored questions for a category name.
func (s *SQLiteStorage) QuestionsByCategory(ctx context.Context, category string) ([]model.Question, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(category, "category"); err != nil {
		return nil, err
	}

	query := `
		SELECT q.text, q.choices, q.correct_index, q.difficulty, q.explanation, q.hint, c.name, s.name
		FROM questions q
		JOIN categories c ON c.id = q.category_id
		JOIN sources s ON s.id = q.source_id
		WHERE c.name = ?
		ORDER BY q.created_at`

	rows, err := s.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q           model.Question
			choicesJSON string
			explanation sql.NullString
			hint        sql.NullString
		)
		if err := rows.Scan(&q.Text, &choicesJSON, &q.CorrectIndex, &q.Difficulty, &explanation, &hint, &q.Category, &q.Source); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(choicesJSON), &q.Choices); err != nil {
			return nil, fmt.Errorf("failed to decode choices: %w", err)
		}
		q.Explanation = explanation.String
		q.Hint = hint.String
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// CountQuestions returns the total number of stored questions.
func (s *SQLiteStorage) CountQuestions(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// resolveCorrectAnswer mirrors model.Question.CorrectAnswer for stored rows.
func resolveCorrectAnswer(choices []model.Choice, correctIndex int) string {
	if correctIndex >= 0 && correctIndex < len(choices) {
		return choices[correctIndex].Text
	}
	for _, c := range choices {
		if c.IsCorrect {
			return c.Text
		}
	}
	return ""
}
