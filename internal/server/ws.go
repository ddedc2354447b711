package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TelemetryKind names the payload of a monitor message.
type TelemetryKind string

const (
	TelemetryStatus   TelemetryKind = "status"
	TelemetryPressure TelemetryKind = "pressure"
	TelemetryFrame    TelemetryKind = "frame"
)

// monitorWriteWait bounds a write to one monitor so a stalled browser does
// not hold up the instrument.
const monitorWriteWait = time.Second

// Telemetry is one monitor message.
type Telemetry struct {
	Type TelemetryKind `json:"type"`
	Data interface{}   `json:"data,omitempty"`
}

type monitorConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *monitorConn) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(monitorWriteWait))
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// WSHub mirrors telemetry to every connected monitor.
type WSHub struct {
	mu    sync.RWMutex
	conns map[*monitorConn]struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{conns: make(map[*monitorConn]struct{})}
}

// attach registers ws and sends it first, before any broadcast can reach it.
func (h *WSHub) attach(ws *websocket.Conn, first Telemetry) (*monitorConn, error) {
	c := &monitorConn{ws: ws}
	b, err := json.Marshal(first)
	if err != nil {
		ws.Close()
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(monitorWriteWait))
	return c, ws.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHub) detach(c *monitorConn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()
	if ok {
		_ = c.ws.Close()
	}
}

func (h *WSHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Publish sends one message to every monitor and drops those that fail.
func (h *WSHub) Publish(kind TelemetryKind, data interface{}) {
	h.mu.RLock()
	conns := make([]*monitorConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}
	b, err := json.Marshal(Telemetry{Type: kind, Data: data})
	if err != nil {
		return
	}
	for _, c := range conns {
		if err := c.write(b); err != nil {
			h.detach(c)
		}
	}
}
