package terminal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	appI18n "github.com/pavelanni/picquiz/internal/i18n"
	"github.com/pavelanni/picquiz/internal/model"
	"github.com/pavelanni/picquiz/internal/quiz"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init(appI18n.DefaultLang); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeSource struct {
	questions []model.Question
	err       error
	block     chan struct{}
}

func (f *fakeSource) Fetch(ctx context.Context) ([]model.Question, error) {
	if f.block != nil {
		<-f.block
	}
	return f.questions, f.err
}

func animals() []model.Question {
	return []model.Question{
		{ID: 1, Text: "Which animal meows?", Answer: "Cat", Options: []model.Option{
			{ID: 1, Name: "Cat", Image: "cat.png"},
			{ID: 2, Name: "Dog", Image: "dog.png"},
		}},
		{ID: 2, Text: "Which animal moos?", Answer: "Cow", Options: []model.Option{
			{ID: 3, Name: "Cow", Image: "cow.png"},
			{ID: 4, Name: "Pig", Image: "pig.png"},
		}},
	}
}

func play(t *testing.T, src *fakeSource, input string) (string, error) {
	t.Helper()
	s := quiz.NewSession("test", src, quiz.Config{Seed: 42})
	var out bytes.Buffer
	err := NewPlayer(s, strings.NewReader(input), &out).Run(context.Background())
	return out.String(), err
}

func TestPlayThrough(t *testing.T) {
	out, err := play(t, &fakeSource{questions: animals()}, "Dog\nCat\nn\nn\ns\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, want := range []string{
		"Loading...",
		"2 questions\n",
		"Question 1 of 2",
		"Incorrect! The correct answer is Cat",
		"Correct!",
		"Question 2 of 2",
		"That is not possible right now.",
		"The correct answer is Cow",
		"Quiz complete",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestQuestionCountIsPluralized(t *testing.T) {
	out, err := play(t, &fakeSource{questions: animals()[:1]}, "q\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "1 question\n") {
		t.Errorf("output does not contain the singular count:\n%s", out)
	}
}

func TestSelectByNumber(t *testing.T) {
	out, err := play(t, &fakeSource{questions: animals()}, "9\n1\nq\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "No option matches 9.") {
		t.Errorf("out-of-range number not rejected:\n%s", out)
	}
	if !strings.Contains(out, "Correct!") && !strings.Contains(out, "Incorrect!") {
		t.Errorf("numbered selection produced no feedback:\n%s", out)
	}
	if strings.Contains(out, "Quiz complete") {
		t.Error("quit should not submit")
	}
}

func TestUnknownName(t *testing.T) {
	out, _ := play(t, &fakeSource{questions: animals()}, "Horse\n")
	if !strings.Contains(out, "No option matches Horse.") {
		t.Errorf("unknown name not rejected:\n%s", out)
	}
}

func TestLoadFailure(t *testing.T) {
	loadErr := errors.New("connection refused")
	out, err := play(t, &fakeSource{err: loadErr}, "")
	if !errors.Is(err, loadErr) {
		t.Errorf("Run error = %v, want %v", err, loadErr)
	}
	if !strings.Contains(out, "Could not load the quiz: connection refused") {
		t.Errorf("load failure not reported:\n%s", out)
	}
}

func TestCancelWhileLoading(t *testing.T) {
	src := &fakeSource{questions: animals(), block: make(chan struct{})}
	defer close(src.block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := quiz.NewSession("test", src, quiz.Config{})
	err := NewPlayer(s, strings.NewReader(""), &bytes.Buffer{}).Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run error = %v, want deadline exceeded", err)
	}
}
