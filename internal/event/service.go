package event

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/models"
)

// Service exposes the event log over HTTP: batch append for producers and
// ordered reads for debugging.
type Service struct {
	app *App
}

// NewService creates a new event HTTP service
func NewService(app *App) *Service {
	return &Service{app: app}
}

type appendBatchRequest struct {
	Events []models.Event `json:"events"`
}

// RegisterRoutes registers event HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/games/{id}/events", s.handleAppendBatch)
	mux.HandleFunc("GET /api/games/{id}/events", s.handleList)
}

func (s *Service) handleAppendBatch(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	var req appendBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.app.AppendBatch(r.Context(), gameID, req.Events); err != nil {
		if errors.Is(err, ErrInvalidBatch) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to append events", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	events, err := s.app.ListEventsByGame(r.Context(), gameID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(events); err != nil {
		log.Error().Err(err).Msg("failed to encode events response")
	}
}
