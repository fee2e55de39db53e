package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API binds to loopback; any origin is fine there.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

type wsUpdate struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// handleWS upgrades the connection and pushes one "update" frame per
// coalesced coordinator signal. Clients fetch the actual view over the JSON
// endpoints; the socket only tells them when to refresh.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	subID, updates := s.coord.Subscribe()
	s.log.Debug("websocket subscriber connected", zap.String("subscriber", subID))

	// Reader goroutine: its only job is to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		s.coord.Unsubscribe(subID)
		_ = conn.Close()
		s.log.Debug("websocket subscriber disconnected", zap.String("subscriber", subID))
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(wsUpdate{Type: "update", At: time.Now()}); err != nil {
				return
			}
		}
	}
}
