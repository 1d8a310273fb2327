package quiz

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/pavelanni/picquiz/internal/model"
)

type fakeSource struct {
	mu        sync.Mutex
	calls     int
	questions []model.Question
	err       error
}

func (f *fakeSource) Fetch(_ context.Context) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func question(text, answer string, names ...string) model.Question {
	q := model.Question{Text: text, Answer: answer}
	for i, n := range names {
		q.Options = append(q.Options, model.Option{ID: int64(i + 1), Name: n, Image: "/img/" + n + ".png"})
	}
	return q
}

func threeQuestions() []model.Question {
	return []model.Question{
		question("Which one meows?", "Cat", "Cat", "Dog", "Cow", "Hen"),
		question("Which one barks?", "Dog", "Cat", "Dog", "Cow"),
		question("Which one moos?", "Cow", "Cat", "Dog", "Cow"),
	}
}

func loadedSession(t *testing.T, src *fakeSource, cfg Config) *Session {
	t.Helper()
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	s := NewSession("test", src, cfg)
	s.Start()
	<-s.Done()
	if err := s.Err(); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func names(opts []model.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Name
	}
	return out
}

func sortedIDs(opts []model.Option) []int64 {
	out := make([]int64, len(opts))
	for i, o := range opts {
		out[i] = o.ID
	}
	slices.Sort(out)
	return out
}

func TestShufflePermutation(t *testing.T) {
	sh := NewSeededShuffler(7)
	for _, n := range []int{0, 1, 2, 3, 5, 10} {
		var in []model.Option
		for i := 0; i < n; i++ {
			in = append(in, model.Option{ID: int64(i), Name: string(rune('A' + i))})
		}
		want := sortedIDs(in)
		for run := 0; run < 200; run++ {
			out := sh.Shuffle(in)
			if len(out) != n {
				t.Fatalf("n=%d: length changed to %d", n, len(out))
			}
			if !slices.Equal(sortedIDs(out), want) {
				t.Fatalf("n=%d run=%d: not a permutation: %v", n, run, names(out))
			}
		}
	}
}

func TestShuffleReturnsSameSlice(t *testing.T) {
	in := question("q", "A", "A", "B", "C").Options
	out := NewSeededShuffler(1).Shuffle(in)
	if &out[0] != &in[0] {
		t.Error("Shuffle should permute and return the slice it was given")
	}
}

func TestShuffleReachesEveryPermutation(t *testing.T) {
	sh := NewSeededShuffler(99)
	seen := make(map[string]bool)
	for run := 0; run < 600; run++ {
		opts := question("q", "A", "A", "B", "C").Options
		seen[strings.Join(names(sh.Shuffle(opts)), "")] = true
	}
	if len(seen) != 6 {
		keys := make([]string, 0, len(seen))
		for k := range seen {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t.Errorf("expected all 6 permutations, saw %d: %v", len(seen), keys)
	}
}

func TestSeededShufflerDeterministic(t *testing.T) {
	a := NewSeededShuffler(5).Shuffle(question("q", "A", "A", "B", "C", "D", "E", "F").Options)
	b := NewSeededShuffler(5).Shuffle(question("q", "A", "A", "B", "C", "D", "E", "F").Options)
	if !slices.Equal(names(a), names(b)) {
		t.Errorf("same seed produced %v and %v", names(a), names(b))
	}
}

func TestDisplayOrderLeavesInputUntouched(t *testing.T) {
	in := question("q", "A", "A", "B", "C", "D", "E").Options
	before := names(in)
	out := NewSeededShuffler(3).DisplayOrder(in)
	if !slices.Equal(names(in), before) {
		t.Errorf("input reordered: %v", names(in))
	}
	if !slices.Equal(sortedIDs(out), sortedIDs(in)) {
		t.Errorf("display order is not a permutation: %v", names(out))
	}
}

func TestSelectTransition(t *testing.T) {
	q := question("Which one meows?", "Cat", "Cat", "Dog")

	t.Run("correct", func(t *testing.T) {
		st, reshuffle, err := Select(State{}, q, "Cat")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if reshuffle {
			t.Error("correct answer must not reshuffle")
		}
		if st.Selected != "Cat" || st.Wrong != "" {
			t.Errorf("unexpected state: %+v", st)
		}
		if fb := FeedbackFor(st, q); fb.Kind != FeedbackCorrect {
			t.Errorf("feedback = %+v, want correct", fb)
		}
	})

	t.Run("incorrect", func(t *testing.T) {
		st, reshuffle, err := Select(State{}, q, "Dog")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if !reshuffle {
			t.Error("incorrect answer must reshuffle")
		}
		if st.Selected != "Dog" || st.Wrong != "Dog" {
			t.Errorf("unexpected state: %+v", st)
		}
		fb := FeedbackFor(st, q)
		if fb.Kind != FeedbackIncorrect || fb.Answer != "Cat" {
			t.Errorf("feedback = %+v, want incorrect with answer Cat", fb)
		}
	})

	t.Run("correct after incorrect clears wrong", func(t *testing.T) {
		st, _, _ := Select(State{}, q, "Dog")
		st, _, err := Select(st, q, "Cat")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if st.Selected != "Cat" || st.Wrong != "" {
			t.Errorf("unexpected state: %+v", st)
		}
	})

	t.Run("unknown option", func(t *testing.T) {
		st := State{Selected: "Dog", Wrong: "Dog"}
		got, _, err := Select(st, q, "Unicorn")
		if !errors.Is(err, ErrUnknownOption) {
			t.Fatalf("expected ErrUnknownOption, got %v", err)
		}
		if got != st {
			t.Errorf("state changed: %+v", got)
		}
	})

	t.Run("reviewing", func(t *testing.T) {
		st := State{ShowAnswers: true}
		got, _, err := Select(st, q, "Cat")
		if !errors.Is(err, ErrReviewing) {
			t.Fatalf("expected ErrReviewing, got %v", err)
		}
		if got != st {
			t.Errorf("state changed: %+v", got)
		}
	})
}

func TestNextResetsSelection(t *testing.T) {
	for _, st := range []State{
		{},
		{Selected: "Cat"},
		{Selected: "Dog", Wrong: "Dog"},
	} {
		got, err := Next(st, 3)
		if err != nil {
			t.Fatalf("Next(%+v): %v", st, err)
		}
		if got.Index != st.Index+1 || got.Selected != "" || got.Wrong != "" {
			t.Errorf("Next(%+v) = %+v", st, got)
		}
	}
}

func TestNextAndSubmitBounds(t *testing.T) {
	last := State{Index: 2, Selected: "Cow"}
	if got, err := Next(last, 3); !errors.Is(err, ErrNoSuchQuestion) || got != last {
		t.Errorf("Next on last question = %+v, %v", got, err)
	}
	if _, err := Submit(State{Index: 1}, 3); !errors.Is(err, ErrNotLastQuestion) {
		t.Errorf("Submit before last question: %v", err)
	}
	done, err := Submit(last, 3)
	if err != nil || !done.ShowAnswers {
		t.Fatalf("Submit on last question = %+v, %v", done, err)
	}
	if _, err := Submit(done, 3); !errors.Is(err, ErrReviewing) {
		t.Errorf("second Submit: %v", err)
	}
	if got, err := Next(done, 3); !errors.Is(err, ErrReviewing) || got != done {
		t.Errorf("Next after submit = %+v, %v", got, err)
	}
}

func TestSessionBoundaryScenario(t *testing.T) {
	src := &fakeSource{questions: threeQuestions()}
	s := loadedSession(t, src, Config{})

	if s.Status() != StatusPresenting {
		t.Fatalf("expected presenting, got %s", s.Status())
	}

	// Q1: wrong answer reshuffles, multiset unchanged.
	before, _ := s.Question(0)
	if err := s.Select("Dog"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	st := s.State()
	if st.Wrong != "Dog" || st.Selected != "Dog" {
		t.Errorf("after wrong answer: %+v", st)
	}
	after, _ := s.Question(0)
	if !slices.Equal(sortedIDs(after.Options), sortedIDs(before.Options)) {
		t.Errorf("reshuffle changed the option set: %v -> %v", names(before.Options), names(after.Options))
	}
	if v := s.View(); v.Feedback.Kind != FeedbackIncorrect || v.Feedback.Answer != "Cat" {
		t.Errorf("feedback = %+v", v.Feedback)
	}

	if err := s.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if st := s.State(); st != (State{Index: 1}) {
		t.Errorf("after Next: %+v", st)
	}

	// Q2: correct.
	if err := s.Select("Dog"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if st := s.State(); st.Wrong != "" || st.Selected != "Dog" {
		t.Errorf("after correct answer: %+v", st)
	}
	if err := s.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}

	// Q3 is last: Next is rejected, Submit ends the quiz.
	if v := s.View(); !v.IsLast || v.Position != 3 || v.Total != 3 {
		t.Errorf("unexpected view on last question: %+v", v)
	}
	if err := s.Next(); !errors.Is(err, ErrNoSuchQuestion) {
		t.Errorf("Next on last question: %v", err)
	}
	if err := s.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Status() != StatusReviewing {
		t.Errorf("expected reviewing, got %s", s.Status())
	}

	frozen := s.State()
	if err := s.Select("Cat"); !errors.Is(err, ErrReviewing) {
		t.Errorf("Select after submit: %v", err)
	}
	if err := s.Next(); !errors.Is(err, ErrReviewing) {
		t.Errorf("Next after submit: %v", err)
	}
	if err := s.Submit(); !errors.Is(err, ErrReviewing) {
		t.Errorf("Submit after submit: %v", err)
	}
	if got := s.State(); got != frozen || !got.ShowAnswers {
		t.Errorf("state changed after submit: %+v -> %+v", frozen, got)
	}

	v := s.View()
	if v.Feedback.Kind != FeedbackAnswer || v.Feedback.Answer != "Cow" {
		t.Errorf("review feedback = %+v", v.Feedback)
	}
}

func TestWrongAnswerReplacesStoredOrder(t *testing.T) {
	src := &fakeSource{questions: threeQuestions()}
	s := loadedSession(t, src, Config{})

	stored := s.questions[0].Options
	original := names(stored)
	if err := s.Select("Hen"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if &s.questions[0].Options[0] == &stored[0] {
		t.Error("expected stored options to be replaced by a new slice")
	}
	if !slices.Equal(names(stored), original) {
		t.Errorf("previous option slice was mutated: %v", names(stored))
	}
	if !slices.Equal(names(src.questions[0].Options), []string{"Cat", "Dog", "Cow", "Hen"}) {
		t.Errorf("source data was mutated: %v", names(src.questions[0].Options))
	}
}

func TestRepeatedWrongSelectionsAllowed(t *testing.T) {
	s := loadedSession(t, &fakeSource{questions: threeQuestions()}, Config{})
	for _, name := range []string{"Dog", "Cow", "Hen", "Dog"} {
		if err := s.Select(name); err != nil {
			t.Fatalf("Select(%q): %v", name, err)
		}
		if st := s.State(); st.Wrong != name {
			t.Errorf("Select(%q): wrong = %q", name, st.Wrong)
		}
	}
	if err := s.Select("Unicorn"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("expected ErrUnknownOption, got %v", err)
	}
}

func TestViewOrder(t *testing.T) {
	t.Run("stored order without render shuffle", func(t *testing.T) {
		s := loadedSession(t, &fakeSource{questions: threeQuestions()}, Config{ShuffleOnRender: false})
		_ = s.Select("Cat")
		v := s.View()
		got := make([]string, len(v.Options))
		for i, o := range v.Options {
			got[i] = o.Name
		}
		if !slices.Equal(got, []string{"Cat", "Dog", "Cow", "Hen"}) {
			t.Errorf("unexpected order: %v", got)
		}
		if !v.Options[0].Selected || v.Options[0].Wrong {
			t.Errorf("unexpected flags on Cat: %+v", v.Options[0])
		}
		if v.Feedback.Kind != FeedbackCorrect {
			t.Errorf("feedback = %+v", v.Feedback)
		}
	})

	t.Run("render shuffle keeps stored order", func(t *testing.T) {
		s := loadedSession(t, &fakeSource{questions: threeQuestions()}, Config{ShuffleOnRender: true})
		for i := 0; i < 20; i++ {
			v := s.View()
			if len(v.Options) != 4 {
				t.Fatalf("expected 4 options, got %d", len(v.Options))
			}
		}
		q, _ := s.Question(0)
		if !slices.Equal(names(q.Options), []string{"Cat", "Dog", "Cow", "Hen"}) {
			t.Errorf("render reordered stored options: %v", names(q.Options))
		}
	})
}

func TestSingleFetch(t *testing.T) {
	src := &fakeSource{questions: threeQuestions()}
	s := NewSession("once", src, Config{Seed: 1})
	for i := 0; i < 5; i++ {
		s.Start()
	}
	<-s.Done()
	for i := 0; i < 10; i++ {
		_ = s.View()
		s.Start()
	}
	if n := src.Calls(); n != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", n)
	}
}

func TestLoadFailureStaysLoading(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	s := NewSession("broken", src, Config{Seed: 1})

	if s.Status() != StatusLoading {
		t.Fatalf("expected loading before start, got %s", s.Status())
	}
	if err := s.Select("Cat"); !errors.Is(err, ErrLoading) {
		t.Errorf("Select before load: %v", err)
	}

	s.Start()
	<-s.Done()

	if s.Status() != StatusLoading {
		t.Errorf("expected loading after failed fetch, got %s", s.Status())
	}
	if s.Err() == nil {
		t.Error("expected fetch error to be kept")
	}
	for name, fn := range map[string]func() error{"Select": func() error { return s.Select("Cat") }, "Next": s.Next, "Submit": s.Submit} {
		if err := fn(); !errors.Is(err, ErrLoading) {
			t.Errorf("%s: expected ErrLoading, got %v", name, err)
		}
	}
	v := s.View()
	if v.Status != StatusLoading || !strings.Contains(v.LoadError, "connection refused") {
		t.Errorf("unexpected view: %+v", v)
	}
	if src.Calls() != 1 {
		t.Errorf("expected no retry, got %d fetches", src.Calls())
	}
}

func TestRegistry(t *testing.T) {
	src := &fakeSource{questions: threeQuestions()}
	r := NewRegistry(src, Config{Seed: 1}, 2)

	a := r.Create()
	<-a.Done()
	if a.Status() != StatusPresenting {
		t.Errorf("created session not started: %s", a.Status())
	}
	if got, ok := r.Get(a.ID); !ok || got != a {
		t.Error("Get did not return the created session")
	}

	b := r.Create()
	c := r.Create()
	<-b.Done()
	<-c.Done()
	if r.Len() != 2 {
		t.Errorf("expected 2 sessions after eviction, got %d", r.Len())
	}
	if _, ok := r.Get(a.ID); ok {
		t.Error("expected oldest session to be evicted")
	}

	r.Remove(b.ID)
	r.Remove("missing")
	if _, ok := r.Get(b.ID); ok || r.Len() != 1 {
		t.Errorf("Remove failed, len=%d", r.Len())
	}
	if src.Calls() != 3 {
		t.Errorf("expected one fetch per session, got %d", src.Calls())
	}
}
