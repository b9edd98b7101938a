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

func (s *PostgresStore) InsertSequence(ctx context.Context, seq *models.Sequence) error {
	if seq.ID == "" {
		seq.ID = uuid.New().String()
	}
	seq.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sequences (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)`,
		seq.ID, seq.Name, seq.OwnerID, seq.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sequence: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSequences(ctx context.Context, scope Scope) ([]models.Sequence, error) {
	clause, args := scope.where("s.owner_id", 1)
	query := appendWhere(`
		SELECT s.id, s.name, s.owner_id, s.created_at, COUNT(e.id)
		FROM sequences s LEFT JOIN sequence_emails e ON e.sequence_id = s.id`, clause) +
		` GROUP BY s.id ORDER BY s.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	sequences := []models.Sequence{}
	for rows.Next() {
		var seq models.Sequence
		if err := rows.Scan(&seq.ID, &seq.Name, &seq.OwnerID, &seq.CreatedAt, &seq.EmailCount); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		sequences = append(sequences, seq)
	}
	return sequences, rows.Err()
}

func (s *PostgresStore) GetSequenceDetails(ctx context.Context, scope Scope, id string) (*models.SequenceDetails, error) {
	clause, args := scope.where("owner_id", 2)
	query := appendWhere(`SELECT id, name, owner_id, created_at FROM sequences WHERE id = $1`, clause)

	var details models.SequenceDetails
	err := s.db.QueryRowContext(ctx, query, append([]interface{}{id}, args...)...).Scan(
		&details.ID, &details.Name, &details.OwnerID, &details.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sequence_id, day, subject, content, owner_id
		FROM sequence_emails
		WHERE sequence_id = $1
		ORDER BY day, id`, id)
	if err != nil {
		return nil, fmt.Errorf("sequence emails: %w", err)
	}
	defer rows.Close()

	details.Emails = []models.SequenceEmail{}
	for rows.Next() {
		var e models.SequenceEmail
		var content []byte
		if err := rows.Scan(&e.ID, &e.SequenceID, &e.Day, &e.Subject, &content, &e.OwnerID); err != nil {
			return nil, fmt.Errorf("scan sequence email: %w", err)
		}
		e.Content = content
		details.Emails = append(details.Emails, e)
	}
	details.EmailCount = len(details.Emails)
	return &details, rows.Err()
}

// UpsertSequenceEmail creates the email when e.ID is empty or unknown and
// otherwise updates it in place, provided the caller owns it.
func (s *PostgresStore) UpsertSequenceEmail(ctx context.Context, e *models.SequenceEmail) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	content := string(e.Content)
	if content == "" {
		content = "{}"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sequence_emails (id, sequence_id, day, subject, content, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			day = EXCLUDED.day,
			subject = EXCLUDED.subject,
			content = EXCLUDED.content
		WHERE sequence_emails.owner_id = EXCLUDED.owner_id
			AND sequence_emails.sequence_id = EXCLUDED.sequence_id`,
		e.ID, e.SequenceID, e.Day, e.Subject, content, e.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("upsert sequence email: %w", err)
	}
	return expectOneRow(res, "upsert sequence email")
}

func (s *PostgresStore) DeleteSequenceEmail(ctx context.Context, scope Scope, sequenceID, emailID string) error {
	clause, args := scope.where("owner_id", 3)
	query := appendWhere(`DELETE FROM sequence_emails WHERE id = $1 AND sequence_id = $2`, clause)

	res, err := s.db.ExecContext(ctx, query, append([]interface{}{emailID, sequenceID}, args...)...)
	if err != nil {
		return fmt.Errorf("delete sequence email: %w", err)
	}
	return expectOneRow(res, "delete sequence email")
}
