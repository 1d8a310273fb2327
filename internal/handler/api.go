package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pavelanni/picquiz/internal/api"
	"github.com/pavelanni/picquiz/internal/quiz"
)

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	s, err := h.quizSession(w, r, true)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set(csrfHeader, h.csrfToken(r))
	api.JSON(w, http.StatusOK, s.View())
}

// apiTransition applies op and answers with the resulting view, or with the
// error and its status code.
func (h *Handler) apiTransition(w http.ResponseWriter, r *http.Request, op func(*quiz.Session) error) {
	s, err := h.quizSession(w, r, false)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s == nil {
		api.Error(w, http.StatusNotFound, "no quiz session")
		return
	}
	if err := op(s); err != nil {
		api.Error(w, statusFor(err), err.Error())
		return
	}
	api.JSON(w, http.StatusOK, s.View())
}

func (h *Handler) handleAPISelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option string `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apiTransition(w, r, func(s *quiz.Session) error { return s.Select(req.Option) })
}

func (h *Handler) handleAPINext(w http.ResponseWriter, r *http.Request) {
	h.apiTransition(w, r, (*quiz.Session).Next)
}

func (h *Handler) handleAPISubmit(w http.ResponseWriter, r *http.Request) {
	h.apiTransition(w, r, (*quiz.Session).Submit)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.quizzes.Len()})
}
