package store

import (
	"context"
	"fmt"
	"time"

	"crm-assistant/internal/models"

	"github.com/google/uuid"
)

const personColumns = `id, first_name, COALESCE(last_name, ''), COALESCE(email, ''), COALESCE(title, ''),
		COALESCE(company_id, ''), owner_id, created_at`

func scanPerson(row interface{ Scan(...interface{}) error }, p *models.Person) error {
	return row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Title,
		&p.CompanyID, &p.OwnerID, &p.CreatedAt)
}

func (s *PostgresStore) InsertPerson(ctx context.Context, p *models.Person) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO people (id, first_name, last_name, email, title, company_id, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Title, nullIfEmpty(p.CompanyID), p.OwnerID, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPeople(ctx context.Context, scope Scope) ([]models.Person, error) {
	clause, args := scope.where("owner_id", 1)
	query := appendWhere(`SELECT `+personColumns+` FROM people`, clause) + ` ORDER BY created_at DESC`
	return s.queryPeople(ctx, "list people", query, args...)
}

func (s *PostgresStore) peopleForCompany(ctx context.Context, companyID string) ([]models.Person, error) {
	return s.queryPeople(ctx, "company people",
		`SELECT `+personColumns+` FROM people WHERE company_id = $1 ORDER BY created_at`, companyID)
}

func (s *PostgresStore) queryPeople(ctx context.Context, op, query string, args ...interface{}) ([]models.Person, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	people := []models.Person{}
	for rows.Next() {
		var p models.Person
		if err := scanPerson(rows, &p); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// UpdatePerson rewrites the editable fields. Rows outside scope count as
// missing.
func (s *PostgresStore) UpdatePerson(ctx context.Context, scope Scope, p *models.Person) error {
	clause, args := scope.where("owner_id", 7)
	query := appendWhere(`
		UPDATE people SET first_name = $2, last_name = $3, email = $4, title = $5, company_id = $6
		WHERE id = $1`, clause)

	res, err := s.db.ExecContext(ctx, query,
		append([]interface{}{p.ID, p.FirstName, p.LastName, p.Email, p.Title, nullIfEmpty(p.CompanyID)}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return expectOneRow(res, "update person")
}
