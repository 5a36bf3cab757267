package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lorekeep/lorekeep/internal/model"
)

// GetOrCreateSource returns the id of the named source, creating it with the
// given kind if it does not exist yet.
func (s *SQLiteStorage) GetOrCreateSource(ctx context.Context, name string, kind model.SourceKind) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(name, "source name"); err != nil {
		return 0, err
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sources WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to query source: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO sources (name, kind) VALUES (?, ?)`, name, string(kind))
	if err != nil {
		return 0, fmt.Errorf("failed to create source: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get source id: %w", err)
	}

	slog.Info("created source", "name", name, "kind", kind, "id", id)
	return id, nil
}

// IncrementSourceCount bumps a source's persisted-question counter.
func (s *SQLiteStorage) IncrementSourceCount(ctx context.Context, sourceID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sources SET question_count = question_count + 1 WHERE id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to increment source count: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("source %d not found", sourceID)
	}

	return nil
}

// GetSources returns all sources ordered by name.
func (s *SQLiteStorage) GetSources(ctx context.Context) ([]model.Source, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, kind, question_count, created_at
		FROM sources
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		var src model.Source
		var kind string
		if err := rows.Scan(&src.ID, &src.Name, &kind, &src.QuestionCount, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		src.Kind = model.SourceKind(kind)
		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}

	slog.Debug("retrieved sources", "count", len(sources))
	return sources, nil
}
