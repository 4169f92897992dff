// internal/database/lobby.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ajmeyer/groupfinder/internal/models"
)

// Store is the pgx-backed durable store. It implements coordinator.Store
// and backs the thin lobby CRUD endpoints.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a connected pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InsertLobby creates the lobby row, the host's participant row, and any
// tag links in one transaction.
func (s *Store) InsertLobby(ctx context.Context, lobby *models.Lobby, tagIDs []uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO lobbies (id, title, description, game_id, host_id, max_players, status, credentials)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			lobby.ID, lobby.Title, lobby.Description, lobby.GameID, lobby.HostID,
			lobby.MaxPlayers, lobby.Status, lobby.Credentials,
		)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO lobby_participants (lobby_id, user_id, role, is_ready)
			VALUES ($1, $2, $3, false)`,
			lobby.ID, lobby.HostID, models.RoleHost,
		)
		if err != nil {
			return err
		}
		for _, tagID := range tagIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO lobby_tags (lobby_id, tag_id) VALUES ($1, $2)`,
				lobby.ID, tagID,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetLobbySnapshot assembles the full broadcastable state of one lobby.
func (s *Store) GetLobbySnapshot(ctx context.Context, lobbyID uuid.UUID) (*models.LobbySnapshot, error) {
	snap := &models.LobbySnapshot{Game: &models.Game{}}
	err := s.pool.QueryRow(ctx, `
		SELECT l.id, l.title, COALESCE(l.description, ''), l.game_id, l.host_id,
		       l.max_players, l.status, COALESCE(l.credentials, ''),
		       l.created_at, l.updated_at,
		       u.id, u.username, COALESCE(u.avatar, ''),
		       g.id, g.title, COALESCE(g.cover_url, '')
		  FROM lobbies l
		  JOIN users u ON u.id = l.host_id
		  JOIN games g ON g.id = l.game_id
		 WHERE l.id = $1`, lobbyID,
	).Scan(
		&snap.ID, &snap.Title, &snap.Description, &snap.GameID, &snap.HostID,
		&snap.MaxPlayers, &snap.Status, &snap.Credentials,
		&snap.CreatedAt, &snap.UpdatedAt,
		&snap.Host.ID, &snap.Host.Username, &snap.Host.Avatar,
		&snap.Game.ID, &snap.Game.Title, &snap.Game.CoverURL,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrLobbyNotFound
	}
	if err != nil {
		return nil, err
	}

	snap.Participants, err = s.getParticipants(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	snap.Tags, err = s.getTags(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ListOpenLobbies returns snapshots for every OPEN lobby, newest first.
func (s *Store) ListOpenLobbies(ctx context.Context) ([]*models.LobbySnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM lobbies WHERE status = $1 ORDER BY created_at DESC`,
		models.StatusOpen,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snaps := make([]*models.LobbySnapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.GetLobbySnapshot(ctx, id)
		if err != nil {
			// A lobby deleted between the two queries is not an error.
			if errors.Is(err, models.ErrLobbyNotFound) {
				continue
			}
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// InsertParticipant seats a user in a lobby.
func (s *Store) InsertParticipant(ctx context.Context, lobbyID, userID uuid.UUID, role models.ParticipantRole) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO lobby_participants (lobby_id, user_id, role, is_ready)
			VALUES ($1, $2, $3, false)`,
			lobbyID, userID, role,
		)
		return err
	})
}

// DeleteParticipant removes a seat. Absent rows are a no-op.
func (s *Store) DeleteParticipant(ctx context.Context, lobbyID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM lobby_participants WHERE lobby_id = $1 AND user_id = $2`,
		lobbyID, userID,
	)
	return err
}

// SetReady writes a participant's readiness flag.
func (s *Store) SetReady(ctx context.Context, lobbyID, userID uuid.UUID, ready bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lobby_participants SET is_ready = $3 WHERE lobby_id = $1 AND user_id = $2`,
		lobbyID, userID, ready,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotParticipant
	}
	return nil
}

// SetStatus writes the lobby lifecycle status and bumps updated_at.
func (s *Store) SetStatus(ctx context.Context, lobbyID uuid.UUID, status models.LobbyStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lobbies SET status = $2, updated_at = now() WHERE id = $1`,
		lobbyID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrLobbyNotFound
	}
	return nil
}

// SetCredentials writes the host-controlled credentials string.
func (s *Store) SetCredentials(ctx context.Context, lobbyID uuid.UUID, credentials string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lobbies SET credentials = $2, updated_at = now() WHERE id = $1`,
		lobbyID, credentials,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrLobbyNotFound
	}
	return nil
}

// GetParticipantCount returns the number of seats currently taken.
func (s *Store) GetParticipantCount(ctx context.Context, lobbyID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lobby_participants WHERE lobby_id = $1`,
		lobbyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

func (s *Store) getParticipants(ctx context.Context, lobbyID uuid.UUID) ([]models.ParticipantView, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.username, COALESCE(u.avatar, ''), p.role, p.is_ready
		  FROM lobby_participants p
		  JOIN users u ON u.id = p.user_id
		 WHERE p.lobby_id = $1
		 ORDER BY p.joined_at, p.user_id`, lobbyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []models.ParticipantView{}
	for rows.Next() {
		var p models.ParticipantView
		if err := rows.Scan(&p.User.ID, &p.User.Username, &p.User.Avatar, &p.Role, &p.IsReady); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *Store) getTags(ctx context.Context, lobbyID uuid.UUID) ([]models.Tag, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name
		  FROM lobby_tags lt
		  JOIN tags t ON t.id = lt.tag_id
		 WHERE lt.lobby_id = $1
		 ORDER BY t.name`, lobbyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
