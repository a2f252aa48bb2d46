// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codepics/codepics/internal/cafe"
	"github.com/codepics/codepics/internal/harness"
	"github.com/codepics/codepics/internal/middleware"
	"github.com/codepics/codepics/internal/monitor"
	"github.com/codepics/codepics/internal/protocol"
)

const subprotocol = "codepics"

// WSHandler accepts a WebSocket client, issues it an opaque token and
// runs its read loop until the connection drops. Disconnect cleanup
// always runs, so a vanished client never leaves session membership
// behind. hn may be nil; debug commands are then undefined commands
// like any other.
func WSHandler(logger *logrus.Logger, c *cafe.Cafe, hub *Hub, metrics *monitor.Metrics, hn *harness.Harness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{subprotocol},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer ws.Close(websocket.StatusInternalError, "handler finished")

		if ws.Subprotocol() != subprotocol {
			ws.Close(websocket.StatusPolicyViolation, "client must speak the codepics subprotocol")
			return
		}

		clientID := uuid.New()
		ctx, cancel := context.WithCancel(r.Context())
		conn := &clientConn{
			id:     clientID,
			out:    make(chan outFrame, 16),
			cancel: cancel,
		}

		hub.add(conn)
		metrics.ClientConnected(1)
		middleware.LogWebSocketConnect(logger, remoteAddr, clientID.String())

		go writePump(ctx, ws, conn, logger)

		// The token is the client's identity for the whole connection.
		hub.Send(clientID, "connected", map[string]interface{}{
			"client_id": clientID.String(),
		})

		err = readPump(ctx, ws, clientID, c, hub, metrics, hn, logger)

		cancel()
		hub.remove(clientID)
		c.Disconnect(clientID)
		metrics.ClientConnected(-1)
		middleware.LogWebSocketDisconnect(logger, remoteAddr, clientID.String(), err)
	}
}

// readPump decodes inbound frames and dispatches them into the cafe.
// Schema failures bounce back to the sender as schema_error; they never
// reach a mutator.
func readPump(ctx context.Context, ws *websocket.Conn, clientID uuid.UUID, c *cafe.Cafe, hub *Hub, metrics *monitor.Metrics, hn *harness.Harness, logger *logrus.Logger) error {
	for {
		typ, msg, err := ws.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			logger.Warnf("Ignoring non-text message type %d from client %v", typ, clientID)
			continue
		}

		if hn != nil && hn.Handle(msg) {
			continue
		}

		cmd, err := protocol.Parse(msg)
		if err != nil {
			var verr *protocol.ValidationError
			switch {
			case errors.As(err, &verr):
				hub.Send(clientID, "schema_error", map[string]interface{}{
					"fields": verr.Fields,
				})
			default:
				hub.Send(clientID, "schema_error", map[string]interface{}{
					"message": err.Error(),
				})
			}
			logger.WithField("client", clientID).Warnf("Rejected frame: %v", err)
			metrics.CommandHandled(true)
			continue
		}

		c.Dispatch(clientID, cmd)
	}
}

// writePump drains the client's out channel onto the socket and keeps
// the connection alive with periodic pings.
func writePump(ctx context.Context, ws *websocket.Conn, conn *clientConn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-conn.out:
			data, err := json.Marshal(frame)
			if err != nil {
				logger.Warnf("Failed to marshal outgoing frame for client %v: %v", conn.id, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = ws.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to websocket for client %v: %v", conn.id, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Failed to ping client %v: %v. Assuming disconnect.", conn.id, err)
				return
			}
		}
	}
}
