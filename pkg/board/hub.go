package board

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 8
	writeTimeout = 5 * time.Second
)

// Hub fans envelopes out to viewer websockets, grouped by scenario key.
// Sends are fire-and-forget: a viewer that cannot keep up is dropped.
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]map[*viewer]struct{}
}

type viewer struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewHub() *Hub {
	return &Hub{viewers: make(map[string]map[*viewer]struct{})}
}

// Attach registers a viewer connection for a scenario and blocks until the
// connection closes. The hub owns the connection from this point on.
func (h *Hub) Attach(scenarioKey string, conn *websocket.Conn) {
	v := &viewer{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	set, ok := h.viewers[scenarioKey]
	if !ok {
		set = make(map[*viewer]struct{})
		h.viewers[scenarioKey] = set
	}
	set[v] = struct{}{}
	h.mu.Unlock()

	log.Debug("viewer attached", "scenario", scenarioKey)

	go v.writeLoop()

	// Incoming frames are drained only to detect closure; viewers have
	// nothing to say to the host.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.detach(scenarioKey, v)
	log.Debug("viewer detached", "scenario", scenarioKey)
}

// Broadcast sends an envelope to every viewer of its scenario key. Slow
// viewers are dropped rather than waited on.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Warn("failed encoding sync message", "error", err)
		return
	}

	h.mu.RLock()
	set := h.viewers[msg.ScenarioKey]
	targets := make([]*viewer, 0, len(set))
	for v := range set {
		targets = append(targets, v)
	}
	h.mu.RUnlock()

	for _, v := range targets {
		if !v.trySend(data) {
			log.Warn("dropping slow viewer", "scenario", msg.ScenarioKey)
			h.detach(msg.ScenarioKey, v)
		}
	}
}

// ViewerCount reports the number of attached viewers for a scenario.
func (h *Hub) ViewerCount(scenarioKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[scenarioKey])
}

func (h *Hub) detach(scenarioKey string, v *viewer) {
	h.mu.Lock()
	if set, ok := h.viewers[scenarioKey]; ok {
		delete(set, v)
		if len(set) == 0 {
			delete(h.viewers, scenarioKey)
		}
	}
	h.mu.Unlock()
	v.close()
}

func (v *viewer) writeLoop() {
	for data := range v.send {
		_ = v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := v.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	_ = v.conn.Close()
}

func (v *viewer) trySend(data []byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	select {
	case v.send <- data:
		return true
	default:
		return false
	}
}

func (v *viewer) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	close(v.send)
}
