// Package terminal presents a quiz session as a line-oriented text dialog.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	appI18n "github.com/pavelanni/picquiz/internal/i18n"
	"github.com/pavelanni/picquiz/internal/quiz"
)

// Player drives one session from text commands.
type Player struct {
	session *quiz.Session
	in      *bufio.Scanner
	out     io.Writer

	shown quiz.View // last rendered view; option numbers refer to it
}

// NewPlayer creates a player reading commands from in and writing to out.
func NewPlayer(s *quiz.Session, in io.Reader, out io.Writer) *Player {
	return &Player{session: s, in: bufio.NewScanner(in), out: out}
}

// Run starts the session, waits for its questions and then processes
// commands until the quiz is submitted, the user quits or input ends. It
// returns the load error if the questions could not be fetched.
func (p *Player) Run(ctx context.Context) error {
	p.session.Start()
	fmt.Fprintln(p.out, appI18n.T(ctx, "Loading"))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.session.Done():
	}
	if err := p.session.Err(); err != nil {
		fmt.Fprintln(p.out, appI18n.Td(ctx, "LoadFailed", map[string]any{"Error": err}))
		return err
	}

	fmt.Fprintln(p.out, appI18n.Tp(ctx, "QuestionsTotal", p.session.View().Total))
	fmt.Fprintln(p.out, appI18n.T(ctx, "PlayHelp"))
	p.render(ctx)
	for {
		fmt.Fprint(p.out, "> ")
		if !p.in.Scan() {
			fmt.Fprintln(p.out)
			return p.in.Err()
		}

		done, err := p.handle(strings.TrimSpace(p.in.Text()))
		switch {
		case errors.Is(err, quiz.ErrUnknownOption):
			fmt.Fprintln(p.out, appI18n.Td(ctx, "InvalidChoice", map[string]any{"Input": p.in.Text()}))
			continue
		case err != nil:
			fmt.Fprintln(p.out, appI18n.T(ctx, "NotAllowed"))
			continue
		}
		if done {
			return nil
		}
		p.render(ctx)
		if p.shown.ShowAnswers {
			return nil
		}
	}
}

// handle applies one command. It reports true when the user quits.
func (p *Player) handle(cmd string) (bool, error) {
	switch strings.ToLower(cmd) {
	case "":
		return false, nil
	case "q", "quit":
		return true, nil
	case "n", "next":
		return false, p.session.Next()
	case "s", "submit":
		return false, p.session.Submit()
	}

	if n, err := strconv.Atoi(cmd); err == nil {
		if n < 1 || n > len(p.shown.Options) {
			return false, quiz.ErrUnknownOption
		}
		return false, p.session.Select(p.shown.Options[n-1].Name)
	}
	return false, p.session.Select(cmd)
}

func (p *Player) render(ctx context.Context) {
	v := p.session.View()
	p.shown = v

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, appI18n.Td(ctx, "QuestionN", map[string]any{"Position": v.Position, "Total": v.Total}))
	fmt.Fprintln(p.out, v.Question)
	for i, o := range v.Options {
		mark := " "
		switch {
		case o.Wrong:
			mark = "x"
		case o.Selected:
			mark = "*"
		}
		fmt.Fprintf(p.out, " %s %d) %s  <%s>\n", mark, i+1, o.Name, o.Image)
	}
	if msgID := v.Feedback.MessageID(); msgID != "" {
		fmt.Fprintln(p.out, appI18n.Td(ctx, msgID, map[string]any{"Answer": v.Feedback.Answer}))
	}
	if v.ShowAnswers {
		fmt.Fprintln(p.out, appI18n.T(ctx, "QuizComplete"))
	}
}
