package quiz

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pavelanni/picquiz/internal/loader"
	"github.com/pavelanni/picquiz/internal/model"
)

// Config holds per-session behaviour.
type Config struct {
	ShuffleOnRender bool   // shuffle the displayed option order on every render
	Seed            uint64 // 0 seeds the shuffler from the runtime
}

func (c Config) shuffler() *Shuffler {
	if c.Seed == 0 {
		return NewShuffler()
	}
	return NewSeededShuffler(c.Seed)
}

// Session controls one quiz attempt, from loading to review.
type Session struct {
	ID string

	source          loader.Source
	shuffler        *Shuffler
	shuffleOnRender bool

	once sync.Once
	done chan struct{}

	mu        sync.Mutex
	questions []model.Question
	state     State
	loadErr   error
}

// NewSession creates a session that will load its questions from src.
func NewSession(id string, src loader.Source, cfg Config) *Session {
	return &Session{
		ID:              id,
		source:          src,
		shuffler:        cfg.shuffler(),
		shuffleOnRender: cfg.ShuffleOnRender,
		done:            make(chan struct{}),
	}
}

// Start issues the session's single fetch in the background. Further
// calls do nothing.
func (s *Session) Start() {
	s.once.Do(func() {
		go s.load(context.Background())
	})
}

// Done is closed once the fetch has finished, successfully or not.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) load(ctx context.Context) {
	defer close(s.done)

	questions, err := s.source.Fetch(ctx)
	if err == nil && len(questions) == 0 {
		err = loader.ErrNoQuestions
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.loadErr = err
		slog.Error("error fetching quiz data", "session", s.ID, "error", err)
		return
	}
	s.questions = make([]model.Question, len(questions))
	copy(s.questions, questions)
	slog.Debug("quiz loaded", "session", s.ID, "questions", len(questions))
}

// Err returns the fetch error, if the fetch failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Status reports the lifecycle stage.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

func (s *Session) status() Status {
	switch {
	case s.questions == nil:
		return StatusLoading
	case s.state.ShowAnswers:
		return StatusReviewing
	default:
		return StatusPresenting
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Question returns a copy of the i-th question as currently stored.
func (s *Session) Question(i int) (model.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.questions) {
		return model.Question{}, false
	}
	q := s.questions[i]
	q.Options = append([]model.Option(nil), q.Options...)
	return q, true
}

// Select chooses an option of the current question by name. An incorrect
// choice reshuffles the question's stored option order.
func (s *Session) Select(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.questions == nil {
		return ErrLoading
	}

	i := s.state.Index
	next, reshuffle, err := Select(s.state, s.questions[i], name)
	if err != nil {
		return err
	}
	s.state = next
	if reshuffle {
		s.questions[i].Options = s.shuffler.DisplayOrder(s.questions[i].Options)
	}
	slog.Debug("option selected", "session", s.ID, "index", i, "option", name, "correct", !reshuffle)
	return nil
}

// Next advances to the following question.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.questions == nil {
		return ErrLoading
	}
	next, err := Next(s.state, len(s.questions))
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Submit ends the quiz on the last question.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.questions == nil {
		return ErrLoading
	}
	next, err := Submit(s.state, len(s.questions))
	if err != nil {
		return err
	}
	s.state = next
	slog.Info("quiz submitted", "session", s.ID, "questions", len(s.questions))
	return nil
}
