// internal/coordinator/events.go
//
// The wire protocol is a closed set of typed events. Inbound frames are an
// envelope {"type": ..., "data": ...} decoded into the payload struct for
// that type; dispatch is a single exhaustive switch in the transport layer,
// never a dynamic handler map.
package coordinator

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ajmeyer/groupfinder/internal/models"
)

// InboundType enumerates every event a client may send.
type InboundType string

const (
	EvtJoinLobby         InboundType = "join_lobby"
	EvtLeaveLobby        InboundType = "leave_lobby"
	EvtToggleReady       InboundType = "toggle_ready"
	EvtKickPlayer        InboundType = "kick_player"
	EvtUpdateCredentials InboundType = "update_credentials"
	EvtSendMessage       InboundType = "send_message"
	EvtSignalVoice       InboundType = "signal_voice"
)

// Inbound is the envelope for client frames. Data is decoded per-type.
type Inbound struct {
	Type InboundType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinLobbyData carries the join_lobby payload.
type JoinLobbyData struct {
	LobbyID uuid.UUID `json:"lobbyId"`
	UserID  uuid.UUID `json:"userId"`
}

// KickPlayerData carries the kick_player payload.
type KickPlayerData struct {
	TargetUserID uuid.UUID `json:"targetUserId"`
}

// UpdateCredentialsData carries the update_credentials payload.
type UpdateCredentialsData struct {
	Credentials string `json:"credentials"`
}

// SendMessageData carries the send_message payload. SenderDisplay is
// client-provided display info echoed into the fan-out, as the coordinator
// keeps no chat state of its own.
type SendMessageData struct {
	Text          string             `json:"text"`
	SenderDisplay models.UserSummary `json:"senderDisplay"`
}

// SignalVoiceData carries the signal_voice payload. SignalData is opaque;
// the relay never inspects it.
type SignalVoiceData struct {
	TargetID   uuid.UUID       `json:"targetId"`
	SignalData json.RawMessage `json:"signalData"`
}

// OutboundType enumerates every event the coordinator may push.
type OutboundType string

const (
	EvtLobbyUpdated   OutboundType = "lobby_updated"
	EvtNewMessage     OutboundType = "new_message"
	EvtPlayerKicked   OutboundType = "player_kicked"
	EvtLobbyDisbanded OutboundType = "LOBBY_DISBANDED"
	EvtError          OutboundType = "error"
	EvtSignalRelay    OutboundType = "signal_voice"
)

// Outbound is the envelope for server frames.
type Outbound struct {
	Type OutboundType `json:"type"`
	Data any          `json:"data,omitempty"`
}

// ChatMessage is an ephemeral chat event. It exists only for the duration
// of one fan-out; nothing is persisted and late joiners never see it.
type ChatMessage struct {
	ID        string             `json:"id"`
	Text      string             `json:"text"`
	User      models.UserSummary `json:"user"`
	Timestamp time.Time          `json:"timestamp"`
}

// SignalEnvelope is the relayed peer-negotiation payload as delivered to
// the target's connections.
type SignalEnvelope struct {
	SenderID   uuid.UUID       `json:"senderId"`
	SignalData json.RawMessage `json:"signalData"`
}

// KickedNotice tells a kicked user's connections they were removed, as
// opposed to observing someone else leave via the snapshot.
type KickedNotice struct {
	UserID uuid.UUID `json:"userId"`
}

// ErrorNotice is sent only to the connection whose request failed.
type ErrorNotice struct {
	Message string `json:"message"`
}
