package play

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/scoring"
	"github.com/kmajors/hotstreak/internal/session"
	"github.com/kmajors/hotstreak/internal/voice"
)

// IntentClassifier defines what the service needs from the voice boundary
type IntentClassifier interface {
	Classify(ctx context.Context, transcript string) (*voice.Classification, error)
}

// Service exposes live gameplay over HTTP.
type Service struct {
	coordinator *Coordinator
	classifier  IntentClassifier
}

// NewService creates a new play HTTP service. classifier may be nil when no
// voice backend is configured.
func NewService(coordinator *Coordinator, classifier IntentClassifier) *Service {
	return &Service{coordinator: coordinator, classifier: classifier}
}

type startSessionRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

type commandRequest struct {
	Type    scoring.CommandType `json:"type"`
	IsTipIn bool                `json:"is_tip_in"`
}

type voiceRequest struct {
	Transcript string `json:"transcript"`
}

// RegisterRoutes registers play HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/play/sessions", s.handleStartSession)
	mux.HandleFunc("POST /api/play/sessions/{id}/commands", s.handleCommand)
	mux.HandleFunc("POST /api/play/sessions/{id}/voice", s.handleVoice)
}

func (s *Service) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := s.coordinator.StartSession(r.Context(), req.DurationSeconds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Service) handleCommand(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !scoring.IsKnownCommand(req.Type) {
		http.Error(w, "unknown command type", http.StatusBadRequest)
		return
	}

	view, err := s.coordinator.Apply(r.Context(), sessionID, scoring.Command{
		Type:    req.Type,
		IsTipIn: req.IsTipIn,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Service) handleVoice(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	if s.classifier == nil {
		http.Error(w, "voice commands not configured", http.StatusServiceUnavailable)
		return
	}

	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	classification, err := s.classifier.Classify(r.Context(), req.Transcript)
	if err != nil {
		http.Error(w, "classifier unavailable", http.StatusBadGateway)
		return
	}

	cmd, ok := voice.Interpret(classification)
	if !ok {
		// Low confidence or unknown intent; report current state untouched.
		log.Debug().
			Str("action", classification.Action).
			Float64("confidence", classification.Confidence).
			Msg("ignoring voice intent")
		view, err := s.coordinator.Apply(r.Context(), sessionID, scoring.Command{})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	view, err := s.coordinator.Apply(r.Context(), sessionID, cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode play response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNoLiveSession):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
