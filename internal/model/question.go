// Package model defines the core domain types for acquired trivia questions.
package model

import (
	"strings"
	"time"
)

// Difficulty describes how hard a question is.
type Difficulty string

// Supported difficulty levels.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Choice is a single answer option for a question.
type Choice struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question represents a single acquired trivia question from any source.
// Questions are value types: once built they are passed by copy and never
// mutated.
type Question struct {
	Text         string     `json:"text"`
	Choices      []Choice   `json:"choices"`
	CorrectIndex int        `json:"correct_index"`
	Category     string     `json:"category"`
	Difficulty   Difficulty `json:"difficulty"`
	Explanation  string     `json:"explanation,omitempty"`
	Hint         string     `json:"hint,omitempty"`
	Source       string     `json:"source"`
}

// CorrectAnswer resolves the correct answer text. The correct index is
// authoritative when it points inside the choice list; otherwise the first
// choice flagged correct is used.
func (q Question) CorrectAnswer() string {
	if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Choices) {
		return q.Choices[q.CorrectIndex].Text
	}
	for _, c := range q.Choices {
		if c.IsCorrect {
			return c.Text
		}
	}
	return ""
}

// NormalizedText returns the matching projection of the question text:
// lower-cased, trimmed, everything outside [a-z0-9 ] stripped.
func (q Question) NormalizedText() string {
	return NormalizeText(q.Text)
}

// Signature returns a deterministic cache key derived from the question.
// Two questions with equal signatures are treated as identical without any
// further comparison.
func (q Question) Signature() string {
	return NormalizeText(q.Text) + "|" + NormalizeText(q.CorrectAnswer())
}

// NormalizeText lower-cases s, collapses whitespace and strips every rune
// outside [a-z0-9 ].
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '\n':
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Category is a stored question category.
type Category struct {
	CreatedAt time.Time
	Name      string
	ID        int64
}

// SourceKind classifies where a stored source's questions come from.
type SourceKind string

// Known source kinds.
const (
	SourceKindAPI       SourceKind = "api"
	SourceKindGenerator SourceKind = "generator"
	SourceKindFile      SourceKind = "file"
)

// Source is a stored question source with its persisted-question counter.
type Source struct {
	CreatedAt     time.Time
	Name          string
	Kind          SourceKind
	ID            int64
	QuestionCount int
}
