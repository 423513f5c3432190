// Package ws pushes live job updates to customers following a tracking link.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"uturn/internal/domain/entities"
	"uturn/internal/logger"
	"uturn/internal/services"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Update is the frame sent to subscribers. The first frame after connecting
// is a "snapshot"; later ones are "update".
type Update struct {
	Type string        `json:"type"`
	Job  *entities.Job `json:"job"`
}

// Lookup resolves a tracking id to its (redacted) job.
type Lookup func(ctx context.Context, trackingID string) (*entities.Job, error)

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the open tracking connections keyed by tracking id.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
	log  logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[*subscriber]struct{}),
		log:  log,
	}
}

// JobChanged fans the job out to everyone tracking it. It never blocks: a
// subscriber whose buffer is full misses the update.
func (h *Hub) JobChanged(job *entities.Job) {
	if job.TrackingID == "" {
		return
	}
	payload, err := json.Marshal(Update{Type: "update", Job: job.Redacted()})
	if err != nil {
		h.log.Warn("failed to encode tracking update", logger.String("job_id", job.ID), logger.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[job.TrackingID] {
		select {
		case s.send <- payload:
		default:
			h.log.Warn("tracking subscriber too slow, dropping update", logger.String("tracking_id", job.TrackingID))
		}
	}
}

// Subscribers returns how many connections follow trackingID.
func (h *Hub) Subscribers(trackingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[trackingID])
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for code, set := range h.subs {
		for s := range set {
			close(s.send)
		}
		delete(h.subs, code)
	}
}

func (h *Hub) add(code string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[code]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[code] = set
	}
	set[s] = struct{}{}
}

// remove closes s.send exactly once: only the caller that finds s in the
// set closes it, and Close empties the set under the same lock.
func (h *Hub) remove(code string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[code]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.send)
	if len(set) == 0 {
		delete(h.subs, code)
	}
}

// Handler serves GET /ws/track/:code. Unknown codes get a 404 before the
// upgrade; known ones get the current job as a snapshot, then live updates.
func (h *Hub) Handler(lookup Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		job, err := lookup(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, services.ErrJobNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", logger.String("tracking_id", code), logger.Error(err))
			return
		}

		// The snapshot is queued before registering so it is always the
		// first frame.
		snapshot, _ := json.Marshal(Update{Type: "snapshot", Job: job.Redacted()})
		s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
		s.send <- snapshot
		h.add(code, s)
		h.log.Debug("tracking subscriber connected", logger.String("tracking_id", code))

		go h.writePump(s)
		h.readPump(code, s)
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; it exists to notice the client leaving
// and to keep the pong deadline moving.
func (h *Hub) readPump(code string, s *subscriber) {
	defer h.remove(code, s)

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
