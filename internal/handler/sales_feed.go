package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/payview/server/internal/auth"
	"github.com/payview/server/internal/ws"
)

// SalesFeed upgrades the connection and streams the creator's sale events
// until the client disconnects.
func SalesFeed(hub *ws.Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID := auth.ProfileID(r.Context())
		if profileID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Browser clients connect from the app origin configured at the
			// CDN; CORS on the websocket handshake is handled there.
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := ws.NewClient(hub, conn, profileID)
		client.Run(r.Context())
	}
}
