// Package quiz implements the quiz session state machine: option
// shuffling, answer evaluation, advancing and submission.
package quiz

import (
	"errors"

	"github.com/pavelanni/picquiz/internal/model"
)

var (
	// ErrLoading is returned for transitions attempted before the quiz
	// sequence has been loaded.
	ErrLoading = errors.New("quiz is still loading")
	// ErrReviewing is returned once answers have been submitted.
	ErrReviewing = errors.New("quiz already submitted")
	// ErrNoSuchQuestion is returned when advancing past the last question.
	ErrNoSuchQuestion = errors.New("no such question")
	// ErrNotLastQuestion is returned when submitting before the last question.
	ErrNotLastQuestion = errors.New("submit is only allowed on the last question")
	// ErrUnknownOption is returned when selecting a name the question does not offer.
	ErrUnknownOption = errors.New("unknown option")
)

// Status is the coarse lifecycle stage of a session.
type Status string

const (
	StatusLoading    Status = "loading"
	StatusPresenting Status = "presenting"
	StatusReviewing  Status = "reviewing"
)

// State is the mutable part of a quiz session. An empty Selected or Wrong
// means none.
type State struct {
	Index       int    `json:"index"`
	Selected    string `json:"selected,omitempty"`
	Wrong       string `json:"wrong,omitempty"`
	ShowAnswers bool   `json:"show_answers"`
}

// Select evaluates the choice of option name for question q. The returned
// reshuffle flag is set for incorrect answers.
func Select(st State, q model.Question, name string) (State, bool, error) {
	if st.ShowAnswers {
		return st, false, ErrReviewing
	}
	if _, ok := q.OptionNamed(name); !ok {
		return st, false, ErrUnknownOption
	}

	st.Selected = name
	if name == q.Answer {
		st.Wrong = ""
		return st, false, nil
	}
	st.Wrong = name
	return st, true, nil
}

// Next advances to the following question of a quiz with total questions.
func Next(st State, total int) (State, error) {
	if st.ShowAnswers {
		return st, ErrReviewing
	}
	if st.Index >= total-1 {
		return st, ErrNoSuchQuestion
	}
	return State{Index: st.Index + 1}, nil
}

// Submit moves a quiz with total questions into review.
func Submit(st State, total int) (State, error) {
	if st.ShowAnswers {
		return st, ErrReviewing
	}
	if st.Index != total-1 {
		return st, ErrNotLastQuestion
	}
	st.ShowAnswers = true
	return st, nil
}
