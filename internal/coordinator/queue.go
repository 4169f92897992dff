// internal/coordinator/queue.go
package coordinator

import (
	"sync"

	"github.com/google/uuid"
)

// lobbyQueues serializes mutations per lobby. Two mutations for the same
// lobby never overlap — a request arriving while one is executing waits its
// turn in arrival order, including across the store round-trips inside the
// running mutation. Mutations for different lobbies run fully in parallel.
//
// Without this, two concurrent joins could both pass a stale capacity check
// before either commits and overfill the lobby.
type lobbyQueues struct {
	mu      sync.Mutex
	pending map[uuid.UUID][]*queuedTask
	active  map[uuid.UUID]bool
}

type queuedTask struct {
	fn   func() error
	err  error
	done chan struct{}
}

func newLobbyQueues() *lobbyQueues {
	return &lobbyQueues{
		pending: make(map[uuid.UUID][]*queuedTask),
		active:  make(map[uuid.UUID]bool),
	}
}

// Do enqueues fn on the lobby's queue and blocks until it has run,
// returning its error. FIFO order is fixed by arrival under the queue lock.
func (q *lobbyQueues) Do(lobbyID uuid.UUID, fn func() error) error {
	t := &queuedTask{fn: fn, done: make(chan struct{})}

	q.mu.Lock()
	q.pending[lobbyID] = append(q.pending[lobbyID], t)
	if !q.active[lobbyID] {
		q.active[lobbyID] = true
		go q.drain(lobbyID)
	}
	q.mu.Unlock()

	<-t.done
	return t.err
}

// drain executes queued tasks for one lobby in order, then retires itself
// once the queue empties. A task's failure never blocks the next task.
func (q *lobbyQueues) drain(lobbyID uuid.UUID) {
	for {
		q.mu.Lock()
		tasks := q.pending[lobbyID]
		if len(tasks) == 0 {
			q.active[lobbyID] = false
			delete(q.pending, lobbyID)
			q.mu.Unlock()
			return
		}
		t := tasks[0]
		q.pending[lobbyID] = tasks[1:]
		q.mu.Unlock()

		t.err = t.fn()
		close(t.done)
	}
}
