package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/pavelanni/picquiz/internal/handler/views"
	"github.com/pavelanni/picquiz/internal/model"
	"github.com/pavelanni/picquiz/internal/quiz"
)

const (
	cookieName   = "picquiz"
	sessionIDKey = "sid"
	csrfKey      = "csrf"

	// DefaultLoadWait bounds how long the quiz page waits for a fresh
	// session's questions before rendering the self-refreshing loading page.
	DefaultLoadWait = 2 * time.Second
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	quizzes *quiz.Registry
	cookies *sessions.CookieStore
	config  model.QuizConfig
}

// New creates a new Handler.
func New(reg *quiz.Registry, cfg model.QuizConfig) (*Handler, error) {
	if cfg.SessionKey == "" {
		return nil, errors.New("session key is required")
	}
	if cfg.LoadWait <= 0 {
		cfg.LoadWait = DefaultLoadWait
	}
	cookiePath := "/"
	if cfg.BasePath != "" {
		cookiePath = cfg.BasePath + "/"
	}
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	store.Options = &sessions.Options{
		Path:     cookiePath,
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return &Handler{quizzes: reg, cookies: store, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/api/state", h.handleState)
	r.Get("/healthz", h.handleHealth)

	// State-changing routes.
	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Post("/select", h.handleSelect)
		r.Post("/next", h.handleNext)
		r.Post("/submit", h.handleSubmit)
		r.Post("/restart", h.handleRestart)

		r.Post("/api/select", h.handleAPISelect)
		r.Post("/api/next", h.handleAPINext)
		r.Post("/api/submit", h.handleAPISubmit)
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// quizSession returns the quiz session bound to the request's cookie. With
// create set, a missing or expired session is replaced by a new one and the
// cookie gets a CSRF token if it has none.
func (h *Handler) quizSession(w http.ResponseWriter, r *http.Request, create bool) (*quiz.Session, error) {
	cs, err := h.cookies.Get(r, cookieName)
	if err != nil {
		// A cookie signed with another key decodes to a fresh session.
		slog.Debug("discarding unreadable session cookie", "error", err)
	}
	if id, ok := cs.Values[sessionIDKey].(string); ok {
		if s, ok := h.quizzes.Get(id); ok {
			return s, nil
		}
	}
	if !create {
		return nil, nil
	}

	if _, ok := cs.Values[csrfKey].(string); !ok {
		token, err := generateCSRFToken()
		if err != nil {
			return nil, fmt.Errorf("generate csrf token: %w", err)
		}
		cs.Values[csrfKey] = token
	}

	s := h.quizzes.Create()
	cs.Values[sessionIDKey] = s.ID
	if err := cs.Save(r, w); err != nil {
		h.quizzes.Remove(s.ID)
		return nil, fmt.Errorf("save session cookie: %w", err)
	}
	slog.Info("started quiz session", "session", s.ID)
	return s, nil
}

// csrfToken returns the CSRF token stored in the request's session cookie.
func (h *Handler) csrfToken(r *http.Request) string {
	cs, err := h.cookies.Get(r, cookieName)
	if err != nil {
		return ""
	}
	token, _ := cs.Values[csrfKey].(string)
	return token
}

func (h *Handler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.config.BasePath+"/", http.StatusSeeOther)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	s, err := h.quizSession(w, r, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.awaitQuestions(r, s)

	ctx := model.ContextWithCSRFToken(r.Context(), h.csrfToken(r))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.QuizPage(s.View()).Render(ctx, w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// awaitQuestions blocks until s has finished loading, the request is
// cancelled, or the configured load wait runs out.
func (h *Handler) awaitQuestions(r *http.Request, s *quiz.Session) {
	if s.Status() != quiz.StatusLoading {
		return
	}
	timer := time.NewTimer(h.config.LoadWait)
	defer timer.Stop()
	select {
	case <-s.Done():
	case <-timer.C:
		slog.Debug("questions still loading", "session", s.ID)
	case <-r.Context().Done():
	}
}

// transition applies op to the caller's session and redirects back to the
// quiz page. Transitions that are not currently allowed leave the session
// unchanged.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(*quiz.Session) error) {
	s, err := h.quizSession(w, r, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if s == nil {
		h.redirectHome(w, r)
		return
	}

	if err := op(s); err != nil {
		status := statusFor(err)
		if status != http.StatusConflict {
			http.Error(w, err.Error(), status)
			return
		}
		slog.Debug("transition rejected", "session", s.ID, "error", err)
	}
	h.redirectHome(w, r)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	option := r.FormValue("option")
	h.transition(w, r, func(s *quiz.Session) error { return s.Select(option) })
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*quiz.Session).Next)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*quiz.Session).Submit)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	s, err := h.quizSession(w, r, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if s != nil {
		if s.Status() != quiz.StatusReviewing {
			slog.Debug("restart ignored before submission", "session", s.ID)
			h.redirectHome(w, r)
			return
		}
		h.quizzes.Remove(s.ID)
		slog.Info("restarting quiz session", "session", s.ID)
	}

	cs, _ := h.cookies.Get(r, cookieName)
	delete(cs.Values, sessionIDKey)
	if err := cs.Save(r, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.redirectHome(w, r)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, quiz.ErrUnknownOption):
		return http.StatusBadRequest
	case errors.Is(err, quiz.ErrLoading),
		errors.Is(err, quiz.ErrReviewing),
		errors.Is(err, quiz.ErrNoSuchQuestion),
		errors.Is(err, quiz.ErrNotLastQuestion):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
