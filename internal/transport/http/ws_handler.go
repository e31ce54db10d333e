package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveWS streams public state snapshots for one game: the current state
// on connect, then one message per change. The feed is push-only; answers
// and host actions go through the REST endpoints with their tokens.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	updates, cancel, err := h.service.Subscribe(r.Context(), gameID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			// drain client frames so pings and close are handled
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
