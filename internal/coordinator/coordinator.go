// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ajmeyer/groupfinder/internal/models"
)

// DefaultStoreTimeout bounds each mutation's store round-trips. A store
// call that outlives it fails the mutation as transient instead of stalling
// the lobby's queue forever.
const DefaultStoreTimeout = 5 * time.Second

// EventMirror forwards committed membership events to an external bus so
// another process can observe lobby activity. Mirroring is fire-and-forget.
type EventMirror interface {
	MirrorLobbyEvent(ctx context.Context, lobbyID uuid.UUID, event string, payload any)
}

// Coordinator holds the authoritative transient state for all active
// lobbies: it validates and applies membership mutations against the
// durable store, one mutation in flight per lobby, and fans the resulting
// snapshots out to every connection in the lobby room.
type Coordinator struct {
	store  Store
	reg    *Registry
	queues *lobbyQueues
	logger *logrus.Logger

	mirror       EventMirror
	storeTimeout time.Duration

	// bmu orders room fan-outs so every member observes broadcasts for a
	// room in the same sequence.
	bmu sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStoreTimeout overrides the per-mutation store deadline.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.storeTimeout = d
		}
	}
}

// WithEventMirror attaches an external event bus mirror.
func WithEventMirror(m EventMirror) Option {
	return func(c *Coordinator) { c.mirror = m }
}

// New builds a Coordinator over the given store and registry.
func New(store Store, reg *Registry, logger *logrus.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:        store,
		reg:          reg,
		queues:       newLobbyQueues(),
		logger:       logger,
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry exposes the room registry for the transport layer.
func (c *Coordinator) Registry() *Registry { return c.reg }

// Join seats userID in the lobby (idempotent for existing participants,
// which is how reconnects work), binds the connection's identity and places
// it in the lobby room, then rebroadcasts the snapshot.
func (c *Coordinator) Join(conn *Conn, lobbyID, userID uuid.UUID) error {
	return c.queues.Do(lobbyID, func() error {
		ctx, cancel := c.storeCtx()
		defer cancel()

		snap, err := c.store.GetLobbySnapshot(ctx, lobbyID)
		if err != nil {
			return c.storeErr(err)
		}
		if snap.Status == models.StatusClosed {
			return models.ErrLobbyClosed
		}
		if !snap.HasParticipant(userID) {
			if len(snap.Participants) >= snap.MaxPlayers {
				return models.ErrLobbyFull
			}
			if err := c.store.InsertParticipant(ctx, lobbyID, userID, models.RoleMember); err != nil {
				return c.storeErr(err)
			}
			if err := c.reconcileStatus(ctx, lobbyID, snap.Status, snap.MaxPlayers); err != nil {
				return c.storeErr(err)
			}
		}

		// Registry mutations are synchronous and happen only after the
		// store commit, so a failed join leaves the rooms untouched.
		c.reg.Bind(conn, userID)
		c.reg.JoinLobbyRoom(conn, lobbyID)

		c.broadcastSnapshot(lobbyID)
		return nil
	})
}

// Leave removes the connection's user from the lobby and the lobby room.
// Leaving a lobby you are not part of is silently ignored.
func (c *Coordinator) Leave(conn *Conn) error {
	lobbyID, userID := conn.LobbyID(), conn.UserID()
	if lobbyID == uuid.Nil || userID == uuid.Nil {
		return nil
	}
	return c.queues.Do(lobbyID, func() error {
		ctx, cancel := c.storeCtx()
		defer cancel()

		snap, err := c.store.GetLobbySnapshot(ctx, lobbyID)
		if err != nil {
			return c.storeErr(err)
		}
		if !snap.HasParticipant(userID) {
			c.reg.LeaveLobbyRoom(conn)
			return nil
		}
		if err := c.store.DeleteParticipant(ctx, lobbyID, userID); err != nil {
			return c.storeErr(err)
		}
		if snap.Status != models.StatusClosed {
			if err := c.reconcileStatus(ctx, lobbyID, snap.Status, snap.MaxPlayers); err != nil {
				return c.storeErr(err)
			}
		}

		c.reg.LeaveLobbyRoom(conn)
		c.broadcastSnapshot(lobbyID)
		return nil
	})
}

// ToggleReady flips the caller's readiness flag. The participant row is
// deleted on leave, so a leave-then-rejoin always starts unready.
func (c *Coordinator) ToggleReady(conn *Conn) error {
	lobbyID, userID := conn.LobbyID(), conn.UserID()
	if lobbyID == uuid.Nil || userID == uuid.Nil {
		return models.ErrNotParticipant
	}
	return c.queues.Do(lobbyID, func() error {
		ctx, cancel := c.storeCtx()
		defer cancel()

		snap, err := c.store.GetLobbySnapshot(ctx, lobbyID)
		if err != nil {
			return c.storeErr(err)
		}
		if snap.Status == models.StatusClosed {
			return models.ErrLobbyClosed
		}
		p, ok := snap.ParticipantOf(userID)
		if !ok {
			return models.ErrNotParticipant
		}
		if err := c.store.SetReady(ctx, lobbyID, userID, !p.IsReady); err != nil {
			return c.storeErr(err)
		}

		c.broadcastSnapshot(lobbyID)
		return nil
	})
}

// Kick removes a member at the host's request. The host can never be
// kicked, not even by themselves. The kicked user's connections receive a
// directed player_kicked notice and are forced out of the lobby room;
// everyone else just sees the new snapshot.
func (c *Coordinator) Kick(conn *Conn, targetUserID uuid.UUID) error {
	lobbyID, userID := conn.LobbyID(), conn.UserID()
	if lobbyID == uuid.Nil || userID == uuid.Nil {
		return models.ErrNotParticipant
	}
	return c.queues.Do(lobbyID, func() error {
		ctx, cancel := c.storeCtx()
		defer cancel()

		snap, err := c.store.GetLobbySnapshot(ctx, lobbyID)
		if err != nil {
			return c.storeErr(err)
		}
		if snap.HostID != userID {
			return models.ErrUnauthorized
		}
		if targetUserID == snap.HostID {
			return models.ErrUnauthorized
		}
		if !snap.HasParticipant(targetUserID) {
			return models.ErrNotParticipant
		}
		if err := c.store.DeleteParticipant(ctx, lobbyID, targetUserID); err != nil {
			return c.storeErr(err)
		}
		if snap.Status != models.StatusClosed {
			if err := c.reconcileStatus(ctx, lobbyID, snap.Status, snap.MaxPlayers); err != nil {
				return c.storeErr(err)
			}
		}

		c.reg.DetachUserFromLobby(lobbyID, targetUserID)
		notice := Outbound{Type: EvtPlayerKicked, Data: KickedNotice{UserID: targetUserID}}
		c.bmu.Lock()
		for _, tc := range c.reg.UserConns(targetUserID) {
			tc.Write(notice)
		}
		c.bmu.Unlock()
		c.mirrorEvent(lobbyID, EvtPlayerKicked, KickedNotice{UserID: targetUserID})

		c.broadcastSnapshot(lobbyID)
		return nil
	})
}

// Close terminally closes the lobby at the host's request. Members get a
// directed LOBBY_DISBANDED instead of a snapshot — there is no further
// valid snapshot to send — and the room is emptied.
func (c *Coordinator) Close(conn *Conn) error {
	lobbyID, userID := conn.LobbyID(), conn.UserID()
	if lobbyID == uuid.Nil || userID == uuid.Nil {
		return models.ErrNotParticipant
	}
	return c.queues.Do(lobbyID, func() error {
		ctx, cancel := c.storeCtx()
		defer cancel()

		snap, err := c.store.GetLobbySnapshot(ctx, lobbyID)
		if err != nil {
			return c.storeErr(err)
		}
		if snap.HostID != userID {
			return models.ErrUnauthorized
		}
		if snap.Status == models.StatusClosed {
			return models.ErrLobbyClosed
		}
		if err := c.store.SetStatus(ctx, lobbyID, models.StatusClosed); err != nil {
			return c.storeErr(err)
		}

		c.fanout(c.reg.LobbyMembers(lobbyID), Outbound{Type: EvtLobbyDisbanded})
		c.reg.DetachLobby(lobbyID)
		c.mirrorEvent(lobbyID, EvtLobbyDisbanded, nil)
		return nil
	})
}

// UpdateCredentials writes the host-controlled credentials string and
// rebroadcasts the snapshot, which carries it to every member.
func (c *Coordinator) UpdateCredentials(conn *Conn, credentials string) error {
	lobbyID, userID := conn.LobbyID(), conn.UserID()
	if lobbyID == uuid.Nil || userID == uuid.Nil {
		return models.ErrNotParticipant
	}
	return c.queues.Do(lobbyID, func() error {
		ctx, cancel := c.storeCtx()
		defer cancel()

		snap, err := c.store.GetLobbySnapshot(ctx, lobbyID)
		if err != nil {
			return c.storeErr(err)
		}
		if snap.HostID != userID {
			return models.ErrUnauthorized
		}
		if snap.Status == models.StatusClosed {
			return models.ErrLobbyClosed
		}
		if err := c.store.SetCredentials(ctx, lobbyID, credentials); err != nil {
			return c.storeErr(err)
		}

		c.broadcastSnapshot(lobbyID)
		return nil
	})
}

// Snapshot is a read-only fetch for an initial view. Reads never enter the
// mutation queue.
func (c *Coordinator) Snapshot(ctx context.Context, lobbyID uuid.UUID) (*models.LobbySnapshot, error) {
	snap, err := c.store.GetLobbySnapshot(ctx, lobbyID)
	if err != nil {
		return nil, c.storeErr(err)
	}
	return snap, nil
}

// Disconnect reaps a closed transport: the connection leaves every room but
// the participant row survives, so the user can reconnect into their seat.
func (c *Coordinator) Disconnect(conn *Conn) {
	conn.MarkClosed()
	c.reg.Unbind(conn)
}

// reconcileStatus recomputes OPEN/FULL from the authoritative seat count
// and writes it if it changed. Never called for CLOSED lobbies.
func (c *Coordinator) reconcileStatus(ctx context.Context, lobbyID uuid.UUID, current models.LobbyStatus, maxPlayers int) error {
	count, err := c.store.GetParticipantCount(ctx, lobbyID)
	if err != nil {
		return err
	}
	derived := models.DeriveStatus(count, maxPlayers)
	if derived != current {
		return c.store.SetStatus(ctx, lobbyID, derived)
	}
	return nil
}

// broadcastSnapshot fetches the lobby's complete current state and pushes
// it to every connection in the lobby room.
func (c *Coordinator) broadcastSnapshot(lobbyID uuid.UUID) {
	ctx, cancel := c.storeCtx()
	defer cancel()

	snap, err := c.store.GetLobbySnapshot(ctx, lobbyID)
	if err != nil {
		c.logger.WithError(err).WithField("lobby_id", lobbyID).Warn("snapshot broadcast skipped")
		return
	}
	c.fanout(c.reg.LobbyMembers(lobbyID), Outbound{Type: EvtLobbyUpdated, Data: snap})
	c.mirrorEvent(lobbyID, EvtLobbyUpdated, snap)
}

// fanout delivers one event to a set of connections under the broadcast
// lock, so concurrent fan-outs to a room keep one global order.
func (c *Coordinator) fanout(conns []*Conn, ev Outbound) {
	c.bmu.Lock()
	defer c.bmu.Unlock()
	for _, conn := range conns {
		conn.Write(ev)
	}
}

func (c *Coordinator) mirrorEvent(lobbyID uuid.UUID, event OutboundType, payload any) {
	if c.mirror == nil {
		return
	}
	ctx, cancel := c.storeCtx()
	defer cancel()
	c.mirror.MirrorLobbyEvent(ctx, lobbyID, string(event), payload)
}

func (c *Coordinator) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.storeTimeout)
}

// storeErr passes domain errors through and wraps everything else as
// transient so the requester sees a generic failure.
func (c *Coordinator) storeErr(err error) error {
	switch {
	case errors.Is(err, models.ErrLobbyNotFound),
		errors.Is(err, models.ErrNotParticipant),
		errors.Is(err, models.ErrStoreUnavailable):
		return err
	default:
		c.logger.WithError(err).Warn("store call failed")
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
}

// ErrorMessage maps a taxonomy error to the message surfaced inline to the
// originating client. Other room members never see it.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrLobbyNotFound):
		return "Lobby not found"
	case errors.Is(err, models.ErrLobbyFull):
		return "Lobby is full"
	case errors.Is(err, models.ErrUnauthorized):
		return "Only the host can do that"
	case errors.Is(err, models.ErrLobbyClosed):
		return "Lobby is closed"
	case errors.Is(err, models.ErrNotParticipant):
		return "You are not in this lobby"
	default:
		return "Something went wrong, please try again"
	}
}
