package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 16
)

// Message is a live reload notification.
type Message struct {
	Type    string `json:"type"`
	BuildID string `json:"buildId,omitempty"`
	Pages   int    `json:"pages,omitempty"`
	Links   int    `json:"links,omitempty"`
}

// Hub fans live reload messages out to connected browsers.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	close chan struct{}
	once  sync.Once
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	s := &session{
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		close: make(chan struct{}),
	}
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	liveSessions.Inc()
	h.logger.Debug("live reload client connected", "session", s.id)

	go s.writer()
	h.reader(s)
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	h.mu.Unlock()
	if ok {
		liveSessions.Dec()
	}
	s.shutdown()
}

func (s *session) shutdown() {
	s.once.Do(func() {
		close(s.close)
		s.conn.Close()
	})
}

func (h *Hub) reader(s *session) {
	defer h.remove(s)

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live reload client dropped", "session", s.id, "err", err)
			}
			return
		}

		switch msg.Type {
		case "HELLO":
			h.enqueue(s, Message{Type: "ACK"})
		default:
			h.logger.Debug("unknown live reload message", "type", msg.Type)
		}
	}
}

// writer owns all writes to the connection.
func (s *session) writer() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.shutdown()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.shutdown()
				return
			}
		case <-s.close:
			return
		}
	}
}

func (h *Hub) enqueue(s *session, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	case <-s.close:
	default:
		liveDropped.Inc()
		h.logger.Warn("live reload client too slow, dropping message", "session", s.id)
	}
}

// Broadcast queues msg for every connected client.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		h.enqueue(s, msg)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*session)
	h.mu.Unlock()
	liveSessions.Sub(float64(len(sessions)))
	for _, s := range sessions {
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		s.shutdown()
	}
}
