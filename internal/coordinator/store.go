// internal/coordinator/store.go
package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/ajmeyer/groupfinder/internal/models"
)

// Store is the durable-store contract the coordinator consumes. The pgx
// implementation lives in internal/database; tests substitute an in-memory
// fake. Implementations report a missing lobby as models.ErrLobbyNotFound
// and a missing participant row as models.ErrNotParticipant; any other
// failure is treated as transient by the coordinator.
type Store interface {
	// GetLobbySnapshot returns the complete current state of a lobby: row
	// fields, host and participant display fields (participants in join
	// order), and resolved tags.
	GetLobbySnapshot(ctx context.Context, lobbyID uuid.UUID) (*models.LobbySnapshot, error)

	// InsertParticipant adds a membership row with isReady=false.
	InsertParticipant(ctx context.Context, lobbyID, userID uuid.UUID, role models.ParticipantRole) error

	// DeleteParticipant removes a membership row. Deleting an absent row is
	// a no-op.
	DeleteParticipant(ctx context.Context, lobbyID, userID uuid.UUID) error

	// SetReady writes a participant's readiness flag.
	SetReady(ctx context.Context, lobbyID, userID uuid.UUID, ready bool) error

	// SetStatus writes the lobby lifecycle status.
	SetStatus(ctx context.Context, lobbyID uuid.UUID, status models.LobbyStatus) error

	// SetCredentials writes the host-controlled opaque credentials string.
	SetCredentials(ctx context.Context, lobbyID uuid.UUID, credentials string) error

	// GetParticipantCount returns the number of seats currently taken.
	GetParticipantCount(ctx context.Context, lobbyID uuid.UUID) (int, error)
}
