package loader

import (
	"fmt"
	"strings"

	"github.com/pavelanni/picquiz/internal/model"
)

// RecordError explains why a record was rejected.
type RecordError struct {
	Index  int
	Reason string
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

// Validate splits records into valid questions and rejected ones. Valid
// questions keep their relative order.
func Validate(records []model.Question) ([]model.Question, []RecordError) {
	var valid []model.Question
	var rejected []RecordError
	for i, q := range records {
		if reason := checkQuestion(q); reason != "" {
			rejected = append(rejected, RecordError{Index: i, Reason: reason})
			continue
		}
		valid = append(valid, q)
	}
	return valid, rejected
}

func checkQuestion(q model.Question) string {
	if strings.TrimSpace(q.Text) == "" {
		return "missing question text"
	}
	if len(q.Options) < 2 {
		return fmt.Sprintf("need at least two options, got %d", len(q.Options))
	}
	if q.Answer == "" {
		return "missing answer"
	}

	seen := make(map[string]bool, len(q.Options))
	for i, o := range q.Options {
		if o.Name == "" {
			return fmt.Sprintf("option %d has no name", i)
		}
		if seen[o.Name] {
			return fmt.Sprintf("duplicate option name %q", o.Name)
		}
		seen[o.Name] = true
	}
	if !seen[q.Answer] {
		return fmt.Sprintf("answer %q matches no option", q.Answer)
	}
	return ""
}
