// internal/coordinator/registry.go
package coordinator

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Conn is one client's ephemeral presence: created on transport open, bound
// to a user on the first join, destroyed on transport close. It is never
// persisted.
type Conn struct {
	ID uuid.UUID

	// OutChan carries outbound events to the transport's write pump.
	OutChan chan Outbound

	// Cancel tears down the transport goroutines for this connection.
	Cancel func()

	mu      sync.Mutex
	userID  uuid.UUID
	lobbyID uuid.UUID
	closed  bool
}

// NewConn builds a connection with a buffered outbound channel.
func NewConn(buffer int) *Conn {
	return &Conn{
		ID:      uuid.New(),
		OutChan: make(chan Outbound, buffer),
	}
}

// UserID returns the bound user, or uuid.Nil before the first join.
func (c *Conn) UserID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// LobbyID returns the lobby room the connection currently occupies, or
// uuid.Nil.
func (c *Conn) LobbyID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lobbyID
}

func (c *Conn) setUser(id uuid.UUID)  { c.mu.Lock(); c.userID = id; c.mu.Unlock() }
func (c *Conn) setLobby(id uuid.UUID) { c.mu.Lock(); c.lobbyID = id; c.mu.Unlock() }

// MarkClosed flags the transport as gone. The connection may linger in the
// registry until unbind or the next presence sweep prunes it.
func (c *Conn) MarkClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Live reports whether the transport is still open.
func (c *Conn) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Write pushes an event onto OutChan without blocking. A full or abandoned
// channel drops the event; snapshots are self-correcting so a dropped frame
// is repaired by the next broadcast.
func (c *Conn) Write(ev Outbound) {
	select {
	case c.OutChan <- ev:
	default:
		logrus.Warnf("conn %s: out channel full, dropped %q event", c.ID, ev.Type)
	}
}

// WriteError sends an error event to this connection only.
func (c *Conn) WriteError(msg string) {
	c.Write(Outbound{Type: EvtError, Data: ErrorNotice{Message: msg}})
}

// Registry is the in-memory mapping of connections to user identity and to
// the two room kinds: one lobby room per lobby, one user room per user.
// Every mutation runs synchronously under one mutex and performs no I/O, so
// registry state is always internally consistent regardless of how store
// calls interleave.
type Registry struct {
	mu         sync.Mutex
	conns      map[uuid.UUID]*Conn
	lobbyRooms map[uuid.UUID]map[uuid.UUID]*Conn // lobbyID -> connID -> conn
	userRooms  map[uuid.UUID]map[uuid.UUID]*Conn // userID -> connID -> conn
}

// NewRegistry creates an empty registry; one per coordinating process.
func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[uuid.UUID]*Conn),
		lobbyRooms: make(map[uuid.UUID]map[uuid.UUID]*Conn),
		userRooms:  make(map[uuid.UUID]map[uuid.UUID]*Conn),
	}
}

// Register tracks a freshly opened connection before any identity is known.
func (r *Registry) Register(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID] = conn
}

// Bind attaches a user identity to the connection and places it in the
// user room. Rebinding the same pair is a no-op. Before adding, any stale
// connection already bound to this user whose transport has closed but has
// not yet been reaped is pruned from every room, so signaling always
// resolves to the freshest live connections.
func (r *Registry) Bind(conn *Conn, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, other := range r.userRooms[userID] {
		if id != conn.ID && !other.Live() {
			r.dropLocked(other)
		}
	}

	if conn.UserID() == userID {
		// Already bound; ensure room membership survives.
		r.addToUserRoomLocked(conn, userID)
		return
	}

	if prev := conn.UserID(); prev != uuid.Nil {
		r.removeFromUserRoomLocked(conn, prev)
	}
	conn.setUser(userID)
	r.addToUserRoomLocked(conn, userID)
}

// JoinLobbyRoom places the connection in a lobby room, leaving any other
// lobby room first. A connection belongs to at most one lobby room.
func (r *Registry) JoinLobbyRoom(conn *Conn, lobbyID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur := conn.LobbyID(); cur != uuid.Nil && cur != lobbyID {
		r.removeFromLobbyRoomLocked(conn, cur)
	}
	room, ok := r.lobbyRooms[lobbyID]
	if !ok {
		room = make(map[uuid.UUID]*Conn)
		r.lobbyRooms[lobbyID] = room
	}
	room[conn.ID] = conn
	conn.setLobby(lobbyID)
}

// LeaveLobbyRoom removes the connection from its current lobby room, if any.
func (r *Registry) LeaveLobbyRoom(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := conn.LobbyID(); cur != uuid.Nil {
		r.removeFromLobbyRoomLocked(conn, cur)
	}
}

// Unbind removes the connection from every room. Called on transport close.
func (r *Registry) Unbind(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(conn)
}

// LobbyMembers returns the current connections in a lobby room.
func (r *Registry) LobbyMembers(lobbyID uuid.UUID) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return collect(r.lobbyRooms[lobbyID])
}

// UserConns returns the current connections in a user room.
func (r *Registry) UserConns(userID uuid.UUID) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return collect(r.userRooms[userID])
}

// DetachLobby empties a lobby room, clearing each member's lobby binding.
// Used when a lobby closes and when a kicked user is forced out.
func (r *Registry) DetachLobby(lobbyID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.lobbyRooms[lobbyID] {
		conn.setLobby(uuid.Nil)
	}
	delete(r.lobbyRooms, lobbyID)
}

// DetachUserFromLobby removes every connection of userID from the lobby
// room. Returns the affected connections so the caller can notify them.
func (r *Registry) DetachUserFromLobby(lobbyID, userID uuid.UUID) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	var detached []*Conn
	for _, conn := range r.lobbyRooms[lobbyID] {
		if conn.UserID() == userID {
			detached = append(detached, conn)
		}
	}
	for _, conn := range detached {
		r.removeFromLobbyRoomLocked(conn, lobbyID)
	}
	return detached
}

func (r *Registry) addToUserRoomLocked(conn *Conn, userID uuid.UUID) {
	room, ok := r.userRooms[userID]
	if !ok {
		room = make(map[uuid.UUID]*Conn)
		r.userRooms[userID] = room
	}
	room[conn.ID] = conn
}

func (r *Registry) removeFromUserRoomLocked(conn *Conn, userID uuid.UUID) {
	if room, ok := r.userRooms[userID]; ok {
		delete(room, conn.ID)
		if len(room) == 0 {
			delete(r.userRooms, userID)
		}
	}
}

func (r *Registry) removeFromLobbyRoomLocked(conn *Conn, lobbyID uuid.UUID) {
	if room, ok := r.lobbyRooms[lobbyID]; ok {
		delete(room, conn.ID)
		if len(room) == 0 {
			delete(r.lobbyRooms, lobbyID)
		}
	}
	if conn.LobbyID() == lobbyID {
		conn.setLobby(uuid.Nil)
	}
}

func (r *Registry) dropLocked(conn *Conn) {
	if cur := conn.LobbyID(); cur != uuid.Nil {
		r.removeFromLobbyRoomLocked(conn, cur)
	}
	if user := conn.UserID(); user != uuid.Nil {
		r.removeFromUserRoomLocked(conn, user)
	}
	delete(r.conns, conn.ID)
}

func collect(room map[uuid.UUID]*Conn) []*Conn {
	out := make([]*Conn, 0, len(room))
	for _, conn := range room {
		out = append(out, conn)
	}
	return out
}
