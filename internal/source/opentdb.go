// Package source provides the question source adapters the daemon cycles
// over: the Open Trivia Database API, local CSV files, and an adapter that
// exposes the LLM generator as a regular source.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/lorekeep/lorekeep/internal/common"
	"github.com/lorekeep/lorekeep/internal/model"
)

const (
	openTDBName    = "opentdb"
	openTDBBaseURL = "https://opentdb.com/api.php"

	// Open Trivia DB response codes.
	openTDBCodeSuccess   = 0
	openTDBCodeNoResults = 1
	openTDBCodeRateLimit = 5
)

// OpenTDB fetches multiple-choice questions from the Open Trivia Database.
type OpenTDB struct {
	httpClient *http.Client
	baseURL    string
	rng        *rand.Rand
}

// OpenTDBOption configures an OpenTDB source.
type OpenTDBOption func(*OpenTDB)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) OpenTDBOption {
	return func(s *OpenTDB) {
		s.httpClient = c
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) OpenTDBOption {
	return func(s *OpenTDB) {
		s.baseURL = u
	}
}

// WithRand injects the randomness used to shuffle answer choices.
func WithRand(rng *rand.Rand) OpenTDBOption {
	return func(s *OpenTDB) {
		s.rng = rng
	}
}

// NewOpenTDB creates an Open Trivia Database source.
func NewOpenTDB(opts ...OpenTDBOption) *OpenTDB {
	s := &OpenTDB{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    openTDBBaseURL,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements service.Source.
func (s *OpenTDB) Name() string {
	return openTDBName
}

// Kind implements service.Source.
func (s *OpenTDB) Kind() model.SourceKind {
	return model.SourceKindAPI
}

// openTDBResponse is the API envelope.
type openTDBResponse struct {
	ResponseCode int              `json:"response_code"`
	Results      []openTDBQuestion `json:"results"`
}

type openTDBQuestion struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Fetch requests up to count questions. A response code signalling upstream
// throttling maps to common.ErrRateLimit so the daemon can count it apart
// from real failures.
func (s *OpenTDB) Fetch(ctx context.Context, count int) ([]model.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s?amount=%d&type=multiple", s.baseURL, count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opentdb request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("opentdb: %w", common.ErrRateLimit)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("opentdb returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope openTDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode opentdb response: %w", err)
	}

	switch envelope.ResponseCode {
	case openTDBCodeSuccess:
	case openTDBCodeNoResults:
		return nil, nil
	case openTDBCodeRateLimit:
		return nil, fmt.Errorf("opentdb: %w", common.ErrRateLimit)
	default:
		return nil, fmt.Errorf("opentdb returned response code %d", envelope.ResponseCode)
	}

	questions := make([]model.Question, 0, len(envelope.Results))
	for _, r := range envelope.Results {
		questions = append(questions, s.toQuestion(r))
	}
	return questions, nil
}

// toQuestion converts an API record. The payload is HTML-entity encoded and
// always lists the correct answer first, so choices are decoded and shuffled.
func (s *OpenTDB) toQuestion(r openTDBQuestion) model.Question {
	choices := make([]model.Choice, 0, len(r.IncorrectAnswers)+1)
	choices = append(choices, model.Choice{Text: html.UnescapeString(r.CorrectAnswer), IsCorrect: true})
	for _, wrong := range r.IncorrectAnswers {
		choices = append(choices, model.Choice{Text: html.UnescapeString(wrong)})
	}

	s.rng.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})

	correctIndex := 0
	for i, c := range choices {
		if c.IsCorrect {
			correctIndex = i
			break
		}
	}

	return model.Question{
		Text:         html.UnescapeString(r.Question),
		Choices:      choices,
		CorrectIndex: correctIndex,
		Category:     html.UnescapeString(r.Category),
		Difficulty:   parseDifficulty(r.Difficulty),
		Source:       openTDBName,
	}
}

func parseDifficulty(s string) model.Difficulty {
	switch s {
	case "easy":
		return model.DifficultyEasy
	case "hard":
		return model.DifficultyHard
	default:
		return model.DifficultyMedium
	}
}
