// Package loader fetches the quiz sequence from the question source and
// validates it before it reaches a quiz session.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pavelanni/picquiz/internal/model"
)

// ResourcePath is appended to the source base URL.
const ResourcePath = "/questions"

const maxBodyBytes = 8 << 20

// ErrNoQuestions is returned when a source yields no valid question.
var ErrNoQuestions = errors.New("no valid questions")

// Source yields the ordered quiz sequence.
type Source interface {
	Fetch(ctx context.Context) ([]model.Question, error)
}

// LoadError describes a failed fetch.
type LoadError struct {
	Op  string // request, status, decode or validate
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load questions (%s %s): %v", e.Op, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// HTTPSource fetches questions with a single GET request.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source for the given base URL. A nil client gets
// a default client with a 30 second timeout.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// URL returns the full resource URL.
func (s *HTTPSource) URL() string {
	return s.baseURL + ResourcePath
}

// Fetch requests the question list and returns the valid records.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Question, error) {
	url := s.URL()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &LoadError{Op: "request", URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &LoadError{Op: "request", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{Op: "status", URL: url, Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &LoadError{Op: "decode", URL: url, Err: err}
	}

	var records []model.Question
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &LoadError{Op: "decode", URL: url, Err: err}
	}

	valid, rejected := Validate(records)
	for _, r := range rejected {
		slog.Warn("skipping malformed question", "url", url, "index", r.Index, "reason", r.Reason)
	}
	if len(valid) == 0 {
		return nil, &LoadError{Op: "validate", URL: url, Err: ErrNoQuestions}
	}

	slog.Info("fetched questions", "url", url, "count", len(valid), "rejected", len(rejected))
	return valid, nil
}
