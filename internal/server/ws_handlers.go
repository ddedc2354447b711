package server

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// monitor is bound to a local address
		return true
	},
}

// handleWSTelemetry streams status, pressure and frames to a monitor. The
// current status is sent first.
func (s *Server) handleWSTelemetry(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c, err := s.hub.attach(ws, Telemetry{Type: TelemetryStatus, Data: s.statusResponse(s.machine.Status())})
	if err != nil {
		s.log.Debug("monitor attach", "error", err)
		if c != nil {
			s.hub.detach(c)
		}
		return
	}
	s.log.Debug("monitor attached", "remote", r.RemoteAddr)

	// monitors only listen; reading notices the close
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			s.hub.detach(c)
			return
		}
	}
}
