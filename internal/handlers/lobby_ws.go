// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ajmeyer/groupfinder/internal/coordinator"
	"github.com/ajmeyer/groupfinder/internal/middleware"
	"github.com/ajmeyer/groupfinder/internal/models"
)

// UserGetter resolves a user's display fields. internal/database.Store
// satisfies it.
type UserGetter interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// LobbyWSHandler upgrades the lobby websocket and runs one read pump and
// one write pump per connection. All lobby traffic for a client flows over
// this single socket; the lobby itself is chosen by the join_lobby event.
func LobbyWSHandler(logger *logrus.Logger, coord *coordinator.Coordinator, users UserGetter, pingPeriod time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		authedUser, err := authenticateRequest(r)
		if err != nil {
			logger.Warnf("websocket auth failed for %s: %v", remoteAddr, err)
			c.Close(InvalidAuthTokenError, "authentication failed")
			return
		}

		// The token may outlive the account; require a live user row.
		user, err := users.GetUser(r.Context(), authedUser)
		if err != nil {
			logger.Warnf("websocket auth failed for %s: unknown user %v: %v", remoteAddr, authedUser, err)
			c.Close(InvalidAuthTokenError, "unknown user")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := coordinator.NewConn(16)
		conn.Cancel = cancel
		coord.Registry().Register(conn)

		logger.Infof("User %s (%s) connected to lobby socket", user.Username, remoteAddr)

		go writePump(ctx, c, conn, logger, pingPeriod)
		readPump(ctx, c, conn, coord, user.Summary(), logger)

		// Transport closed. The connection leaves every room, but the
		// participant row stays so the user can reconnect into their seat.
		coord.Disconnect(conn)
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, nil)
	}
}

// readPump decodes inbound envelopes and dispatches them. Every event type
// the protocol knows is handled here; anything else is rejected back to the
// sender. Failures are converted to an error event for the originating
// connection only and never escape the pump.
func readPump(ctx context.Context, c *websocket.Conn, conn *coordinator.Conn, coord *coordinator.Coordinator, self models.UserSummary, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("websocket closed normally for user %v", self.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("websocket read error for user %v: %v", self.ID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text frame type %d from user %v", typ, self.ID)
			continue
		}

		var packet coordinator.Inbound
		if err := json.Unmarshal(msg, &packet); err != nil {
			conn.WriteError("Invalid JSON format")
			continue
		}

		dispatch(conn, coord, self, packet, logger)
	}
}

// dispatch is the single exhaustive switch over the inbound event union.
func dispatch(conn *coordinator.Conn, coord *coordinator.Coordinator, self models.UserSummary, packet coordinator.Inbound, logger *logrus.Logger) {
	switch packet.Type {
	case coordinator.EvtJoinLobby:
		var data coordinator.JoinLobbyData
		if err := json.Unmarshal(packet.Data, &data); err != nil {
			conn.WriteError("Invalid payload for join_lobby")
			return
		}
		// The userId on the wire must match the authenticated session.
		if data.UserID != self.ID {
			conn.WriteError("User mismatch")
			return
		}
		if err := coord.Join(conn, data.LobbyID, data.UserID); err != nil {
			conn.WriteError(coordinator.ErrorMessage(err))
		}

	case coordinator.EvtLeaveLobby:
		if err := coord.Leave(conn); err != nil {
			conn.WriteError(coordinator.ErrorMessage(err))
		}

	case coordinator.EvtToggleReady:
		if err := coord.ToggleReady(conn); err != nil {
			conn.WriteError(coordinator.ErrorMessage(err))
		}

	case coordinator.EvtKickPlayer:
		var data coordinator.KickPlayerData
		if err := json.Unmarshal(packet.Data, &data); err != nil {
			conn.WriteError("Invalid payload for kick_player")
			return
		}
		if err := coord.Kick(conn, data.TargetUserID); err != nil {
			conn.WriteError(coordinator.ErrorMessage(err))
		}

	case coordinator.EvtUpdateCredentials:
		var data coordinator.UpdateCredentialsData
		if err := json.Unmarshal(packet.Data, &data); err != nil {
			conn.WriteError("Invalid payload for update_credentials")
			return
		}
		if err := coord.UpdateCredentials(conn, data.Credentials); err != nil {
			conn.WriteError(coordinator.ErrorMessage(err))
		}

	case coordinator.EvtSendMessage:
		var data coordinator.SendMessageData
		if err := json.Unmarshal(packet.Data, &data); err != nil {
			conn.WriteError("Invalid payload for send_message")
			return
		}
		// The display fields come from the user row, never the payload.
		data.SenderDisplay = self
		coord.SendChat(conn, data)

	case coordinator.EvtSignalVoice:
		var data coordinator.SignalVoiceData
		if err := json.Unmarshal(packet.Data, &data); err != nil {
			conn.WriteError("Invalid payload for signal_voice")
			return
		}
		coord.RelaySignal(conn, data)

	default:
		logger.Warnf("unknown event type %q from user %v", packet.Type, self.ID)
		conn.WriteError("Unknown event type")
	}
}

// writePump drains the connection's outbound channel onto the socket and
// pings periodically so dead transports are noticed.
func writePump(ctx context.Context, c *websocket.Conn, conn *coordinator.Conn, logger *logrus.Logger, pingPeriod time.Duration) {
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("failed to marshal outbound %q event: %v", ev.Type, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("websocket write failed for conn %v: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed for conn %v, assuming disconnect: %v", conn.ID, err)
				return
			}
		}
	}
}
