package reconcile

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/models"
	"github.com/kmajors/hotstreak/internal/session"
)

// Service exposes the reconciliation entrypoint over HTTP.
type Service struct {
	app *App
}

// NewService creates a new reconcile HTTP service
func NewService(app *App) *Service {
	return &Service{app: app}
}

// ReconcileResponse is the wire shape of a reconciliation run.
type ReconcileResponse struct {
	Session      *models.Session `json:"session"`
	Games        []models.Game   `json:"games"`
	Recalculated Summary         `json:"recalculated"`
}

// RegisterRoutes registers reconcile HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions/{id}/reconcile", s.handleReconcile)
}

func (s *Service) handleReconcile(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	outcome, err := s.app.Reconcile(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("reconciliation failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	games := outcome.Games
	if games == nil {
		games = []models.Game{}
	}
	resp := ReconcileResponse{
		Session:      &outcome.Session,
		Games:        games,
		Recalculated: outcome.Summary,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode reconcile response")
	}
}
