package model

import (
	"context"
	"time"
)

// Option is one selectable answer choice of a question.
type Option struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Question is a multiple-choice picture question. Answer holds the Name of
// the correct option.
type Question struct {
	ID      int64    `json:"id"`
	Text    string   `json:"question"`
	Options []Option `json:"options"`
	Answer  string   `json:"answer"`
}

// OptionNamed returns the option with the given name, if any.
func (q Question) OptionNamed(name string) (Option, bool) {
	for _, o := range q.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// QuizConfig holds runtime quiz parameters set via CLI flags.
type QuizConfig struct {
	SourceURL       string        // base URL of the question source
	ShuffleOnRender bool          // shuffle the displayed option order on every render
	BasePath        string        // URL prefix for sub-path deployments (e.g. "/quiz")
	SecureCookies   bool          // Set Secure flag on cookies (disable for local dev)
	SessionKey      string        // key used to sign session cookies
	LoadWait        time.Duration // how long the first page waits for questions
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token for rendered forms in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
