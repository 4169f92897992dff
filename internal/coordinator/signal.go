// internal/coordinator/signal.go
package coordinator

import "github.com/google/uuid"

// RelaySignal forwards an opaque peer-negotiation payload to every live
// connection of the target user. The relay never parses or stores the
// payload. A target with no live connections means a silent drop: delivery
// is at-most-once, and the clients' own negotiation protocol retries.
func (c *Coordinator) RelaySignal(conn *Conn, data SignalVoiceData) {
	senderID := conn.UserID()
	if senderID == uuid.Nil || data.TargetID == uuid.Nil {
		return
	}

	targets := c.reg.UserConns(data.TargetID)
	if len(targets) == 0 {
		c.logger.WithField("target_id", data.TargetID).Debug("signal dropped, no live connections")
		return
	}
	c.fanout(targets, Outbound{Type: EvtSignalRelay, Data: SignalEnvelope{
		SenderID:   senderID,
		SignalData: data.SignalData,
	}})
}
