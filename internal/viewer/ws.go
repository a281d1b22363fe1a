package viewer

import (
	"net/http"

	"golang.org/x/net/websocket"
)

// HandleWebSocket handles GET /ws. The server pushes a full state
// snapshot after every flow change; the page just renders whatever
// arrives. Inbound frames are keepalives.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	defer conn.Close()

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		_ = websocket.JSON.Send(conn, map[string]string{"error": "missing client_id parameter"})
		return
	}

	wc := h.manager.Watch(clientID, conn)
	defer h.manager.Unwatch(clientID, wc)
	h.logger.Info("state stream opened", "client_id", clientID)

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("state stream closed", "client_id", clientID, "error", err)
			return
		}
		if msg.Type == "ping" {
			_ = wc.send(map[string]string{"type": "pong"})
		}
	}
}
