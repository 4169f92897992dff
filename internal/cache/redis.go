// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list that receives mirrored lobby events.
var DefaultQueueName = "lobby_events"

// LobbyEventRecord is the envelope pushed onto the bus for each committed
// membership event, so a sibling process (or a future multi-process
// registry) can follow lobby activity.
type LobbyEventRecord struct {
	LobbyID   uuid.UUID `json:"lobby_id"`
	EventType string    `json:"event_type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Publisher mirrors lobby events onto a Redis list. It satisfies
// coordinator.EventMirror.
type Publisher struct {
	rdb    *redis.Client
	queue  string
	logger *logrus.Logger
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(addr string, db int, queue string, logger *logrus.Logger) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueueName
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Publisher{rdb: rdb, queue: queue, logger: logger}, nil
}

// MirrorLobbyEvent serializes the record and pushes it onto the queue.
// Mirroring is best-effort; a failed push is logged and dropped so it never
// fails the mutation that produced the event.
func (p *Publisher) MirrorLobbyEvent(ctx context.Context, lobbyID uuid.UUID, event string, payload any) {
	record := LobbyEventRecord{
		LobbyID:   lobbyID,
		EventType: event,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		p.logger.WithError(err).Warn("failed to marshal lobby event record")
		return
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		p.logger.WithError(err).WithField("queue", p.queue).Warn("failed to mirror lobby event")
	}
}

// Close releases the underlying client.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
