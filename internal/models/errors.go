// internal/models/errors.go
package models

import "errors"

// Coordinator error taxonomy. Every failure surfaced to a client maps to
// exactly one of these; handlers convert them into an "error" event sent to
// the originating connection only.
var (
	// ErrLobbyNotFound indicates the lobby (or another referenced row) does
	// not exist.
	ErrLobbyNotFound = errors.New("lobby not found")

	// ErrLobbyFull indicates a join was rejected because the lobby is at
	// capacity.
	ErrLobbyFull = errors.New("lobby is full")

	// ErrUnauthorized indicates a non-host attempted a host-only action, or
	// a kick targeted the host.
	ErrUnauthorized = errors.New("not authorized")

	// ErrLobbyClosed indicates a mutation against a CLOSED lobby.
	ErrLobbyClosed = errors.New("lobby is closed")

	// ErrNotParticipant indicates the acting or targeted user holds no seat
	// in the lobby.
	ErrNotParticipant = errors.New("not a lobby participant")

	// ErrStoreUnavailable wraps transient store failures (timeouts,
	// connectivity). The mutation that hit it fails; lobby state is
	// unchanged and the mutation queue proceeds.
	ErrStoreUnavailable = errors.New("store unavailable")
)
