package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-assistant/internal/models"

	"github.com/google/uuid"
)

const companyColumns = `id, name, COALESCE(industry, ''), COALESCE(geography, ''), COALESCE(size, ''),
		COALESCE(website, ''), status, owner_id, created_at, updated_at`

func scanCompany(row interface{ Scan(...interface{}) error }, c *models.Company) error {
	return row.Scan(&c.ID, &c.Name, &c.Industry, &c.Geography, &c.Size,
		&c.Website, &c.Status, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *PostgresStore) InsertCompany(ctx context.Context, c *models.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = models.CompanyStatusLead
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, industry, geography, size, website, status, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		c.ID, c.Name, c.Industry, c.Geography, c.Size, c.Website, c.Status, c.OwnerID, now,
	)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// InsertPeople writes all rows in one statement and returns how many were
// inserted.
func (s *PostgresStore) InsertPeople(ctx context.Context, people []models.Person) (int, error) {
	if len(people) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	const cols = 8
	values := make([]string, 0, len(people))
	args := make([]interface{}, 0, len(people)*cols)
	for i := range people {
		p := &people[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.CreatedAt = now

		base := i * cols
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, p.ID, p.FirstName, p.LastName, p.Email, p.Title,
			nullIfEmpty(p.CompanyID), p.OwnerID, now)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO people (id, first_name, last_name, email, title, company_id, owner_id, created_at) VALUES `+
			strings.Join(values, ", "),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("insert people: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(people), nil
	}
	return int(n), nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, scope Scope) ([]models.Company, error) {
	clause, args := scope.where("owner_id", 1)
	query := appendWhere(`SELECT `+companyColumns+` FROM companies`, clause) + ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := scanCompany(rows, &c); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *PostgresStore) GetCompanyDetails(ctx context.Context, scope Scope, id string) (*models.CompanyDetails, error) {
	clause, args := scope.where("owner_id", 2)
	query := appendWhere(`SELECT `+companyColumns+` FROM companies WHERE id = $1`, clause)

	var details models.CompanyDetails
	err := scanCompany(s.db.QueryRowContext(ctx, query, append([]interface{}{id}, args...)...), &details.Company)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}

	if details.People, err = s.peopleForCompany(ctx, id); err != nil {
		return nil, err
	}
	if details.Deals, err = s.dealsForCompany(ctx, id); err != nil {
		return nil, err
	}
	if details.Events, err = s.eventsForCompany(ctx, id); err != nil {
		return nil, err
	}
	return &details, nil
}

func (s *PostgresStore) UpdateCompanyStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE companies SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update company status: %w", err)
	}
	return expectOneRow(res, "update company status")
}
