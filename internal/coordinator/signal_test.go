// internal/coordinator/signal_test.go
package coordinator

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelaySignalReachesEveryTargetConn(t *testing.T) {
	store := newMemStore()
	c := newTestCoordinator(store)
	lobbyID, hostID := store.seedLobby(4)

	hc := NewConn(32)
	require.NoError(t, c.Join(hc, lobbyID, hostID))

	target := uuid.New()
	tab1, tab2 := NewConn(32), NewConn(32)
	require.NoError(t, c.Join(tab1, lobbyID, target))
	require.NoError(t, c.Join(tab2, lobbyID, target))
	drainEvents(tab1)
	drainEvents(tab2)
	drainEvents(hc)

	payload := json.RawMessage(`{"sdp":"offer"}`)
	c.RelaySignal(hc, SignalVoiceData{TargetID: target, SignalData: payload})

	for _, conn := range []*Conn{tab1, tab2} {
		events := drainEvents(conn)
		require.Len(t, events, 1)
		assert.Equal(t, EvtSignalRelay, events[0].Type)
		env, ok := events[0].Data.(SignalEnvelope)
		require.True(t, ok)
		assert.Equal(t, hostID, env.SenderID)
		assert.JSONEq(t, `{"sdp":"offer"}`, string(env.SignalData))
	}

	// The relay is directed; nobody else in the room hears it.
	assert.Empty(t, drainEvents(hc))
}

func TestRelaySignalSilentlyDropsAbsentTarget(t *testing.T) {
	store := newMemStore()
	c := newTestCoordinator(store)
	lobbyID, hostID := store.seedLobby(4)

	hc := NewConn(32)
	require.NoError(t, c.Join(hc, lobbyID, hostID))
	drainEvents(hc)

	c.RelaySignal(hc, SignalVoiceData{TargetID: uuid.New(), SignalData: json.RawMessage(`{}`)})

	// No error event comes back; the drop is silent.
	assert.Empty(t, drainEvents(hc))
}

func TestRelaySignalIgnoresUnboundSender(t *testing.T) {
	store := newMemStore()
	c := newTestCoordinator(store)
	lobbyID, hostID := store.seedLobby(4)

	hc := NewConn(32)
	require.NoError(t, c.Join(hc, lobbyID, hostID))
	drainEvents(hc)

	stray := NewConn(32)
	c.Registry().Register(stray)
	c.RelaySignal(stray, SignalVoiceData{TargetID: hostID, SignalData: json.RawMessage(`{}`)})

	assert.Empty(t, drainEvents(hc))
}

func TestRelaySignalResolvesFreshestConnAfterReconnect(t *testing.T) {
	store := newMemStore()
	c := newTestCoordinator(store)
	lobbyID, hostID := store.seedLobby(4)

	hc := NewConn(32)
	require.NoError(t, c.Join(hc, lobbyID, hostID))

	target := uuid.New()
	old := NewConn(32)
	require.NoError(t, c.Join(old, lobbyID, target))

	// Transport dies without a reap, then the user reconnects. Binding the
	// new connection prunes the stale one.
	old.MarkClosed()
	fresh := NewConn(32)
	require.NoError(t, c.Join(fresh, lobbyID, target))
	drainEvents(fresh)

	c.RelaySignal(hc, SignalVoiceData{TargetID: target, SignalData: json.RawMessage(`{"ice":true}`)})

	events := drainEvents(fresh)
	require.Len(t, events, 1)
	assert.Equal(t, EvtSignalRelay, events[0].Type)
}
