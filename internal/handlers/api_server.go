// internal/handlers/api_server.go

// Package handlers is the transport boundary: the WebSocket command
// pipe plus the small read-only HTTP query surface.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/codepics/codepics/internal/cafe"
	"github.com/codepics/codepics/internal/harness"
	"github.com/codepics/codepics/internal/middleware"
	"github.com/codepics/codepics/internal/monitor"
)

// NewRouter wires every endpoint onto a mux. hn may be nil when debug
// mode is off.
func NewRouter(logger *logrus.Logger, c *cafe.Cafe, hub *Hub, metrics *monitor.Metrics, hn *harness.Harness) http.Handler {
	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	mux.Handle("/", logged(http.HandlerFunc(PingHandler)))
	mux.Handle("/games", logged(http.HandlerFunc(ListGamesHandler(c))))
	mux.Handle("/card_collections", logged(http.HandlerFunc(ListCollectionsHandler(c))))
	mux.Handle("/create_game", logged(http.HandlerFunc(CreateGameHandler(logger, c))))
	mux.Handle("/metrics", monitor.Handler())
	mux.Handle("/ws", WSHandler(logger, c, hub, metrics, hn))

	return mux
}

// PingHandler answers health probes.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if allowCORS(w, r) {
		return
	}
	writeJSON(w, map[string]interface{}{"status": "ok"})
}

// ListGamesHandler returns lobby metadata for every live session.
func ListGamesHandler(c *cafe.Cafe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allowCORS(w, r) {
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]interface{}{"games": c.ListGames()})
	}
}

// ListCollectionsHandler returns the available card collection names.
func ListCollectionsHandler(c *cafe.Cafe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allowCORS(w, r) {
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]interface{}{"collections": c.ListCollections()})
	}
}

// CreateGameHandler reserves a lobby id so the caller can share it
// before anyone joins.
func CreateGameHandler(logger *logrus.Logger, c *cafe.Cafe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allowCORS(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := c.ReserveLobby()
		logger.WithField("game_id", id).Info("Lobby reserved over HTTP")
		writeJSON(w, map[string]interface{}{"game_id": id})
	}
}

// allowCORS sets the permissive headers the browser client needs and
// short-circuits preflight requests. Returns true when the request was
// a preflight and has been answered.
func allowCORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, payload map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
	}
}
