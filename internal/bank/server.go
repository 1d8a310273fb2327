package bank

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/picquiz/internal/api"
	"github.com/pavelanni/picquiz/internal/loader"
	"github.com/pavelanni/picquiz/internal/model"
	"github.com/pavelanni/picquiz/internal/store"
)

// Server exposes the question bank over HTTP.
type Server struct {
	db        *store.Store
	imagesDir string
}

// NewServer creates a bank server. When imagesDir is set, its files are
// served under /images/.
func NewServer(db *store.Store, imagesDir string) *Server {
	return &Server{db: db, imagesDir: imagesDir}
}

// Routes registers the bank routes.
func (s *Server) Routes(r chi.Router) {
	r.Get(loader.ResourcePath, s.handleQuestions)
	r.Get(loader.ResourcePath+"/{id}", s.handleQuestion)
	r.Get("/healthz", s.handleHealth)
	if s.imagesDir != "" {
		r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(s.imagesDir))))
	}
}

func (s *Server) handleQuestions(w http.ResponseWriter, _ *http.Request) {
	questions, err := s.db.ListQuestions()
	if err != nil {
		slog.Error("list questions", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to list questions")
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	api.JSON(w, http.StatusOK, questions)
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid question id")
		return
	}
	q, err := s.db.GetQuestion(id)
	if errors.Is(err, sql.ErrNoRows) {
		api.Error(w, http.StatusNotFound, "question not found")
		return
	}
	if err != nil {
		slog.Error("get question", "id", id, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to get question")
		return
	}
	api.JSON(w, http.StatusOK, q)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		api.Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	count, err := s.db.QuestionCount()
	if err != nil {
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"status": "ok", "questions": count})
}
