package httpapi

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/mingleton/roombox/internal/app/notification"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Observers connect from arbitrary frontends.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsSocket adapts a websocket connection to the bus. Gorilla allows
// one concurrent writer, so sends are serialized.
type wsSocket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSocket) Send(e notification.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(e)
}

// handleWebSocket subscribes the connection to room broadcasts. A
// client may pass connectionId to keep a stable observer identity
// across reconnects.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Msgf("ws: upgrade failed: %v", err)
		return
	}

	sock := &wsSocket{conn: conn}
	connID := h.bus.Subscribe(r.URL.Query().Get("connectionId"), sock)
	zlog.Debug().Msgf("ws: observer connected: id=%s total=%d", connID, h.bus.ObserverCount())

	// Give the new observer an immediate playback snapshot.
	_ = sock.Send(notification.Envelope{
		Event:   notification.EventPlaybackUpdated,
		Status:  "success",
		Content: h.room.NowPlaying(),
	})

	// Inbound frames are ignored; the read loop only detects the
	// connection going away.
	go func() {
		defer func() {
			h.bus.Unsubscribe(connID)
			_ = conn.Close()
			zlog.Debug().Msgf("ws: observer disconnected: id=%s total=%d", connID, h.bus.ObserverCount())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
