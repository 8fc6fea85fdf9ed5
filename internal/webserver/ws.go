package webserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quotaglass/quotaglass/internal/events"
	"github.com/quotaglass/quotaglass/internal/snapshot"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsMessage struct {
	Type     string             `json:"type"`
	Provider *snapshot.Provider `json:"provider,omitempty"`
	Event    *events.Event      `json:"event,omitempty"`
}

// handleWS streams usage events to a connected client. The current snapshot
// is sent immediately so the client renders without waiting for a poll.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if row, err := s.store.GetLatestUsageSnapshot(); err == nil && row != nil {
		p := row.Status().ProviderSnapshot()
		conn.WriteJSON(wsMessage{Type: "snapshot", Provider: &p})
	}

	ch := make(chan events.Event, 16)
	s.addClient(ch)
	defer s.removeClient(ch)

	// Drain client frames so pings and closes are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case e := <-ch:
			if err := conn.WriteJSON(wsMessage{Type: "event", Event: &e}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
