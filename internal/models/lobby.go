// internal/models/lobby.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LobbyStatus is the lifecycle state of a lobby. OPEN and FULL flip back and
// forth as seats fill and empty; CLOSED is terminal.
type LobbyStatus string

const (
	StatusOpen   LobbyStatus = "OPEN"
	StatusFull   LobbyStatus = "FULL"
	StatusClosed LobbyStatus = "CLOSED"
)

// ParticipantRole distinguishes the single host from regular members.
type ParticipantRole string

const (
	RoleHost   ParticipantRole = "HOST"
	RoleMember ParticipantRole = "MEMBER"
)

// Lobby represents a row in the lobbies table.
type Lobby struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	GameID      uuid.UUID   `json:"gameId"`
	HostID      uuid.UUID   `json:"hostId"`
	MaxPlayers  int         `json:"maxPlayers"`
	Status      LobbyStatus `json:"status"`

	// Credentials is an opaque host-writable string (e.g. a game server
	// password) shared verbatim with members via snapshots.
	Credentials string `json:"credentials,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Participant is a user's membership row within one lobby. The composite key
// is (LobbyID, UserID); exactly one participant per lobby holds RoleHost.
type Participant struct {
	LobbyID  uuid.UUID       `json:"lobbyId"`
	UserID   uuid.UUID       `json:"userId"`
	Role     ParticipantRole `json:"role"`
	IsReady  bool            `json:"isReady"`
	JoinedAt time.Time       `json:"joinedAt"`
}

// Tag is a filterable label attached to a lobby (region, playstyle, etc).
type Tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Game is the catalog entry a lobby is organized around.
type Game struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	CoverURL string    `json:"coverUrl,omitempty"`
}

// ParticipantView is a participant joined with the user's display fields,
// as it appears inside a snapshot.
type ParticipantView struct {
	User    UserSummary     `json:"user"`
	Role    ParticipantRole `json:"role"`
	IsReady bool            `json:"isReady"`
}

// LobbySnapshot is the full state of one lobby, broadcast whole to every
// room member after each committed mutation. Broadcasting the complete
// snapshot keeps observers self-correcting regardless of missed updates.
type LobbySnapshot struct {
	Lobby
	Game         *Game             `json:"game,omitempty"`
	Host         UserSummary       `json:"host"`
	Participants []ParticipantView `json:"participants"`
	Tags         []Tag             `json:"tags"`
}

// HasParticipant reports whether userID already holds a seat.
func (s *LobbySnapshot) HasParticipant(userID uuid.UUID) bool {
	_, ok := s.ParticipantOf(userID)
	return ok
}

// ParticipantOf returns the participant view for userID, if any.
func (s *LobbySnapshot) ParticipantOf(userID uuid.UUID) (ParticipantView, bool) {
	for _, p := range s.Participants {
		if p.User.ID == userID {
			return p, true
		}
	}
	return ParticipantView{}, false
}

// DeriveStatus computes the capacity-based status for a seat count. Callers
// must never apply it to a CLOSED lobby; close is terminal.
func DeriveStatus(count, maxPlayers int) LobbyStatus {
	if count >= maxPlayers {
		return StatusFull
	}
	return StatusOpen
}
