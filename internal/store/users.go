package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crm-assistant/internal/models"

	"github.com/google/uuid"
)

func (s *PostgresStore) FindUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, email, first_name, last_name, created_at
		FROM users
		WHERE external_id = $1`, externalID).Scan(
		&u.ID, &u.ExternalID, &u.Email, &u.FirstName, &u.LastName, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// UpsertUser inserts u or refreshes the profile fields of the existing row
// with the same external id. u.ID and u.CreatedAt are set from the stored row,
// so concurrent first requests converge on one user.
func (s *PostgresStore) UpsertUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, external_id, email, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id) DO UPDATE SET
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
			last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), users.last_name)
		RETURNING id, created_at`,
		u.ID, u.ExternalID, u.Email, u.FirstName, u.LastName, u.CreatedAt,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
