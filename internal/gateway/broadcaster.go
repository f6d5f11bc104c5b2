// Package gateway pushes live scoring events to spectator WebSocket
// connections. It consumes the event stream the server publishes after each
// accepted batch; it never reads gameplay state directly.
package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Broadcaster fans messages out to the spectators of each session.
type Broadcaster struct {
	config   ConnectionConfig
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*spectator]bool
}

type spectator struct {
	conn *websocket.Conn
	send chan []byte
}

// NewBroadcaster creates a broadcaster with the given configuration.
func NewBroadcaster(config ConnectionConfig) *Broadcaster {
	return &Broadcaster{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		sessions: make(map[uuid.UUID]map[*spectator]bool),
	}
}

// RegisterRoutes registers the spectator WebSocket endpoint.
func (b *Broadcaster) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/sessions/{id}", b.handleSubscribe)
}

func (b *Broadcaster) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	s := &spectator{conn: conn, send: make(chan []byte, 256)}
	b.register(sessionID, s)

	go b.writePump(sessionID, s)
	go b.readPump(sessionID, s)

	log.Info().
		Str("session_id", sessionID.String()).
		Msg("spectator connected")
}

// Broadcast sends payload to every spectator of a session. Slow consumers
// are dropped rather than allowed to block the fan-out.
func (b *Broadcaster) Broadcast(sessionID uuid.UUID, payload []byte) {
	b.mu.RLock()
	conns := make([]*spectator, 0, len(b.sessions[sessionID]))
	for s := range b.sessions[sessionID] {
		conns = append(conns, s)
	}
	b.mu.RUnlock()

	for _, s := range conns {
		select {
		case s.send <- payload:
		default:
			b.unregister(sessionID, s)
		}
	}
}

// SpectatorCount returns how many connections watch a session.
func (b *Broadcaster) SpectatorCount(sessionID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions[sessionID])
}

func (b *Broadcaster) register(sessionID uuid.UUID, s *spectator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessions[sessionID] == nil {
		b.sessions[sessionID] = make(map[*spectator]bool)
	}
	b.sessions[sessionID][s] = true
}

func (b *Broadcaster) unregister(sessionID uuid.UUID, s *spectator) {
	b.mu.Lock()
	if b.sessions[sessionID][s] {
		delete(b.sessions[sessionID], s)
		close(s.send)
		if len(b.sessions[sessionID]) == 0 {
			delete(b.sessions, sessionID)
		}
	}
	b.mu.Unlock()
}

func (b *Broadcaster) writePump(sessionID uuid.UUID, s *spectator) {
	ticker := time.NewTicker(b.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(b.config.WriteTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(b.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *Broadcaster) readPump(sessionID uuid.UUID, s *spectator) {
	defer func() {
		b.unregister(sessionID, s)
		s.conn.Close()
	}()

	// Spectators are read-only; the pump only drains control frames.
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
