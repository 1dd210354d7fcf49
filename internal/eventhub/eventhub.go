// Package eventhub is a supplemental feature (SPEC_FULL.md §6): a
// websocket push feed of motion start/stop events, adapted from the
// teacher's internal/ws DetectionHub/Handler pair with the AI
// object/face-detection payload stripped down to the single motion
// state-transition event this service actually produces.
package eventhub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is pushed to every connected client whenever the motion worker's
// boolean state crosses an edge.
type Event struct {
	Type     string  `json:"type"` // "motion_start" or "motion_end"
	AreaPx   int     `json:"area_px"`
	Unixtime float64 `json:"ts"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected clients and broadcasts events to all of them. Unlike
// the teacher's per-camera map, this service has exactly one stream, so
// the client set is flat.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{clients: make(map[*websocket.Conn]bool), log: log}
}

func (h *Hub) register(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Broadcast sends ev to every connected client, dropping any that error.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			h.unregister(c)
			c.Close()
		}
	}
}

// ServeHTTP upgrades the connection and keeps it alive with a ping
// ticker; the read loop exists only to detect client disconnection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("eventhub: upgrade failed", "err", err)
		return
	}
	h.register(conn)
	go h.readPump(conn)
}

func (h *Hub) readPump(conn *websocket.Conn) {
	defer func() {
		h.unregister(conn)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// EdgeTracker turns a stream of motion.Result.Motion booleans into start/end
// Events, so the caller only broadcasts on transitions rather than every
// frame.
type EdgeTracker struct {
	mu sync.Mutex
	on bool
}

func (e *EdgeTracker) Observe(motionNow bool, areaPx int) (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if motionNow == e.on {
		return Event{}, false
	}
	e.on = motionNow
	typ := "motion_end"
	if motionNow {
		typ = "motion_start"
	}
	return Event{Type: typ, AreaPx: areaPx, Unixtime: float64(time.Now().Unix())}, true
}
