package store

import (
	"context"
	"fmt"
	"time"

	"crm-assistant/internal/models"

	"github.com/google/uuid"
)

func (s *PostgresStore) InsertEvent(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, type, notes, date, company_id, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Type, e.Notes, e.Date, e.CompanyID, e.OwnerID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) eventsForCompany(ctx context.Context, companyID string) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, COALESCE(notes, ''), TO_CHAR(date, 'YYYY-MM-DD'), company_id, owner_id, created_at
		FROM events
		WHERE company_id = $1
		ORDER BY date DESC, created_at DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("company events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Type, &e.Notes, &e.Date, &e.CompanyID, &e.OwnerID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
