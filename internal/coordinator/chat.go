// internal/coordinator/chat.go
package coordinator

import (
	"time"

	"github.com/google/uuid"
)

// SendChat relays a text message to the sender's current lobby room. The
// message gets a synthetic id and a server timestamp and is gone once
// fanned out: no history, no retry, no acknowledgment. Delivery order for a
// room equals server-receipt order. A sender who is not in a lobby is
// silently ignored, matching the precondition rather than erroring.
func (c *Coordinator) SendChat(conn *Conn, data SendMessageData) {
	lobbyID := conn.LobbyID()
	if lobbyID == uuid.Nil || data.Text == "" {
		return
	}

	msg := ChatMessage{
		ID:        uuid.NewString(),
		Text:      data.Text,
		User:      data.SenderDisplay,
		Timestamp: time.Now().UTC(),
	}
	c.fanout(c.reg.LobbyMembers(lobbyID), Outbound{Type: EvtNewMessage, Data: msg})
}
