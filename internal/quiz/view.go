package quiz

import "github.com/pavelanni/picquiz/internal/model"

// FeedbackKind selects the feedback message shown under a question.
type FeedbackKind string

const (
	FeedbackNone      FeedbackKind = "none"
	FeedbackCorrect   FeedbackKind = "correct"
	FeedbackIncorrect FeedbackKind = "incorrect"
	FeedbackAnswer    FeedbackKind = "answer" // review: reveal the answer
)

// Feedback describes what to tell the user about the current question.
type Feedback struct {
	Kind   FeedbackKind `json:"kind"`
	Answer string       `json:"answer,omitempty"`
}

// FeedbackFor derives the feedback for question q in state st.
func FeedbackFor(st State, q model.Question) Feedback {
	switch {
	case st.ShowAnswers:
		return Feedback{Kind: FeedbackAnswer, Answer: q.Answer}
	case st.Selected == "":
		return Feedback{Kind: FeedbackNone}
	case st.Selected == q.Answer:
		return Feedback{Kind: FeedbackCorrect, Answer: q.Answer}
	default:
		return Feedback{Kind: FeedbackIncorrect, Answer: q.Answer}
	}
}

// OptionView is one option as presented.
type OptionView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Selected bool   `json:"selected"`
	Wrong    bool   `json:"wrong"`
}

// View is the presenter model of a session.
type View struct {
	SessionID   string       `json:"session_id"`
	Status      Status       `json:"status"`
	Position    int          `json:"position,omitempty"` // 1-based
	Total       int          `json:"total,omitempty"`
	Question    string       `json:"question,omitempty"`
	Options     []OptionView `json:"options,omitempty"`
	Feedback    Feedback     `json:"feedback"`
	IsLast      bool         `json:"is_last"`
	ShowAnswers bool         `json:"show_answers"`
	LoadError   string       `json:"load_error,omitempty"`
}

// View renders the current state. With ShuffleOnRender the displayed order
// is a fresh permutation on every call; the stored order is not touched.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{SessionID: s.ID, Status: s.status(), Feedback: Feedback{Kind: FeedbackNone}}
	if s.questions == nil {
		if s.loadErr != nil {
			v.LoadError = s.loadErr.Error()
		}
		return v
	}

	q := s.questions[s.state.Index]
	order := q.Options
	if s.shuffleOnRender {
		order = s.shuffler.DisplayOrder(q.Options)
	}

	v.Position = s.state.Index + 1
	v.Total = len(s.questions)
	v.Question = q.Text
	v.IsLast = s.state.Index == len(s.questions)-1
	v.ShowAnswers = s.state.ShowAnswers
	v.Feedback = FeedbackFor(s.state, q)
	for _, o := range order {
		v.Options = append(v.Options, OptionView{
			ID:       o.ID,
			Name:     o.Name,
			Image:    o.Image,
			Selected: o.Name == s.state.Selected,
			Wrong:    o.Name == s.state.Wrong,
		})
	}
	return v
}

// MessageID returns the message catalog key for the feedback, or "" when
// there is nothing to say.
func (f Feedback) MessageID() string {
	switch f.Kind {
	case FeedbackCorrect:
		return "Correct"
	case FeedbackIncorrect:
		return "Incorrect"
	case FeedbackAnswer:
		return "CorrectAnswerIs"
	default:
		return ""
	}
}
