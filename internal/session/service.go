package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/models"
	"github.com/kmajors/hotstreak/internal/sessionclock"
)

// Service exposes session CRUD and pause/resume over HTTP.
type Service struct {
	app   *App
	clock clockwork.Clock
}

// NewService creates a new session HTTP service
func NewService(app *App, clock clockwork.Clock) *Service {
	return &Service{app: app, clock: clock}
}

// SessionResponse wraps a session with derived timer fields.
type SessionResponse struct {
	Session          *models.Session `json:"session"`
	RemainingSeconds int             `json:"remaining_seconds"`
	InGraceWindow    bool            `json:"in_grace_window"`
}

type createSessionRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

// RegisterRoutes registers session HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", s.handleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/sessions/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /api/sessions/{id}/resume", s.handleResume)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := s.app.CreateSession(r.Context(), req.DurationSeconds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.writeSession(w, http.StatusCreated, sess)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	sess, err := s.app.GetSession(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeSession(w, http.StatusOK, sess)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.app.DeleteSession(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handlePause(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	sess, err := s.app.PauseSession(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

func (s *Service) handleResume(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	sess, err := s.app.ResumeSession(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

func (s *Service) writeSession(w http.ResponseWriter, status int, sess *models.Session) {
	now := s.clock.Now()
	resp := SessionResponse{
		Session:          sess,
		RemainingSeconds: sessionclock.RemainingSeconds(sess, now),
		InGraceWindow:    sessionclock.InGraceWindow(sess, now),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode session response")
	}
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
