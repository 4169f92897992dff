// internal/database/user.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ajmeyer/groupfinder/internal/models"
)

// GetUser fetches a user's display fields. Account rows themselves are
// owned by the auth service; we only read.
func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, COALESCE(avatar, '') FROM users WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Username, &u.Avatar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, err)
		}
		return nil, err
	}
	return &u, nil
}
