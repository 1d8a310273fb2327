// Package views renders quiz pages as templ components.
//
// Edit quiz.templ and run `templ generate` to refresh quiz_templ.go.
package views

import "github.com/pavelanni/picquiz/internal/quiz"

func optionClass(o quiz.OptionView) string {
	class := "option"
	if o.Wrong {
		class += " wrong"
	}
	if o.Selected {
		class += " selected"
	}
	return class
}

func feedbackClass(f quiz.Feedback) string {
	if f.Kind == quiz.FeedbackIncorrect {
		return "feedback bad"
	}
	return "feedback good"
}
