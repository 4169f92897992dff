// internal/coordinator/registry_test.go
package coordinator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	conn := NewConn(8)
	reg.Register(conn)

	userID := uuid.New()
	reg.Bind(conn, userID)
	reg.Bind(conn, userID)

	assert.Equal(t, userID, conn.UserID())
	assert.Len(t, reg.UserConns(userID), 1)
}

func TestBindPrunesStaleConnections(t *testing.T) {
	reg := NewRegistry()
	userID := uuid.New()
	lobbyID := uuid.New()

	stale := NewConn(8)
	reg.Register(stale)
	reg.Bind(stale, userID)
	reg.JoinLobbyRoom(stale, lobbyID)

	// Transport died but the reap never ran.
	stale.MarkClosed()

	fresh := NewConn(8)
	reg.Register(fresh)
	reg.Bind(fresh, userID)

	conns := reg.UserConns(userID)
	require.Len(t, conns, 1)
	assert.Equal(t, fresh.ID, conns[0].ID)

	// The stale connection is gone from its lobby room too.
	assert.Empty(t, reg.LobbyMembers(lobbyID))
}

func TestBindKeepsLiveSiblings(t *testing.T) {
	reg := NewRegistry()
	userID := uuid.New()

	first := NewConn(8)
	reg.Register(first)
	reg.Bind(first, userID)

	second := NewConn(8)
	reg.Register(second)
	reg.Bind(second, userID)

	// Two live tabs for the same user may coexist.
	assert.Len(t, reg.UserConns(userID), 2)
}

func TestConnOccupiesOneLobbyRoom(t *testing.T) {
	reg := NewRegistry()
	conn := NewConn(8)
	reg.Register(conn)
	reg.Bind(conn, uuid.New())

	first, second := uuid.New(), uuid.New()
	reg.JoinLobbyRoom(conn, first)
	reg.JoinLobbyRoom(conn, second)

	assert.Empty(t, reg.LobbyMembers(first))
	require.Len(t, reg.LobbyMembers(second), 1)
	assert.Equal(t, second, conn.LobbyID())
}

func TestUnbindRemovesFromEveryRoom(t *testing.T) {
	reg := NewRegistry()
	conn := NewConn(8)
	reg.Register(conn)

	userID, lobbyID := uuid.New(), uuid.New()
	reg.Bind(conn, userID)
	reg.JoinLobbyRoom(conn, lobbyID)

	reg.Unbind(conn)

	assert.Empty(t, reg.UserConns(userID))
	assert.Empty(t, reg.LobbyMembers(lobbyID))
}

func TestDetachUserFromLobbyReturnsConns(t *testing.T) {
	reg := NewRegistry()
	lobbyID := uuid.New()
	target := uuid.New()

	tc := NewConn(8)
	reg.Register(tc)
	reg.Bind(tc, target)
	reg.JoinLobbyRoom(tc, lobbyID)

	other := NewConn(8)
	reg.Register(other)
	reg.Bind(other, uuid.New())
	reg.JoinLobbyRoom(other, lobbyID)

	detached := reg.DetachUserFromLobby(lobbyID, target)
	require.Len(t, detached, 1)
	assert.Equal(t, tc.ID, detached[0].ID)
	assert.Equal(t, uuid.Nil, tc.LobbyID())

	// The user room binding survives so directed notices still deliver.
	assert.Len(t, reg.UserConns(target), 1)
	assert.Len(t, reg.LobbyMembers(lobbyID), 1)
}

func TestDetachLobbyEmptiesRoom(t *testing.T) {
	reg := NewRegistry()
	lobbyID := uuid.New()
	for i := 0; i < 3; i++ {
		conn := NewConn(8)
		reg.Register(conn)
		reg.Bind(conn, uuid.New())
		reg.JoinLobbyRoom(conn, lobbyID)
	}

	reg.DetachLobby(lobbyID)
	assert.Empty(t, reg.LobbyMembers(lobbyID))
}

func TestWriteDropsWhenChannelFull(t *testing.T) {
	conn := NewConn(1)
	conn.Write(Outbound{Type: EvtLobbyUpdated})
	// Must not block even though the buffer is exhausted.
	conn.Write(Outbound{Type: EvtLobbyUpdated})
	assert.Len(t, conn.OutChan, 1)
}
