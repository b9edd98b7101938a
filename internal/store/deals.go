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

const dealColumns = `d.id, d.name, d.value, d.stage, COALESCE(TO_CHAR(d.closes_at, 'YYYY-MM-DD'), ''),
		d.company_id, COALESCE(c.name, ''), d.owner_id, d.created_at, d.updated_at`

const dealFrom = ` FROM deals d LEFT JOIN companies c ON c.id = d.company_id`

func scanDeal(row interface{ Scan(...interface{}) error }, d *models.Deal) error {
	return row.Scan(&d.ID, &d.Name, &d.Value, &d.Stage, &d.ClosesAt,
		&d.CompanyID, &d.CompanyName, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
}

func (s *PostgresStore) InsertDeal(ctx context.Context, d *models.Deal) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deals (id, name, value, stage, closes_at, company_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		d.ID, d.Name, d.Value, d.Stage, nullIfEmpty(d.ClosesAt), d.CompanyID, d.OwnerID, now,
	)
	if err != nil {
		return fmt.Errorf("insert deal: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDeals(ctx context.Context, scope Scope) ([]models.Deal, error) {
	clause, args := scope.where("d.owner_id", 1)
	query := appendWhere(`SELECT `+dealColumns+dealFrom, clause) + ` ORDER BY d.created_at DESC`
	return s.queryDeals(ctx, "list deals", query, args...)
}

func (s *PostgresStore) dealsForCompany(ctx context.Context, companyID string) ([]models.Deal, error) {
	return s.queryDeals(ctx, "company deals",
		`SELECT `+dealColumns+dealFrom+` WHERE d.company_id = $1 ORDER BY d.created_at`, companyID)
}

func (s *PostgresStore) queryDeals(ctx context.Context, op, query string, args ...interface{}) ([]models.Deal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		var d models.Deal
		if err := scanDeal(rows, &d); err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *PostgresStore) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	var d models.Deal
	err := scanDeal(s.db.QueryRowContext(ctx, `SELECT `+dealColumns+dealFrom+` WHERE d.id = $1`, id), &d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) UpdateDeal(ctx context.Context, scope Scope, d *models.Deal) error {
	d.UpdatedAt = time.Now().UTC()
	clause, args := scope.where("owner_id", 8)
	query := appendWhere(`
		UPDATE deals SET name = $2, value = $3, stage = $4, closes_at = $5, company_id = $6, updated_at = $7
		WHERE id = $1`, clause)

	res, err := s.db.ExecContext(ctx, query,
		append([]interface{}{d.ID, d.Name, d.Value, d.Stage, nullIfEmpty(d.ClosesAt), d.CompanyID, d.UpdatedAt}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	return expectOneRow(res, "update deal")
}

func (s *PostgresStore) UpdateDealStage(ctx context.Context, id, stage string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deals SET stage = $2, updated_at = $3 WHERE id = $1`,
		id, stage, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update deal stage: %w", err)
	}
	return expectOneRow(res, "update deal stage")
}

// DealStageStats returns one row per stage that has deals, in no
// particular order.
func (s *PostgresStore) DealStageStats(ctx context.Context, scope Scope) ([]models.StageCount, error) {
	clause, args := scope.where("owner_id", 1)
	query := appendWhere(`SELECT stage, COUNT(*), COALESCE(SUM(value), 0) FROM deals`, clause) + ` GROUP BY stage`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("deal stage stats: %w", err)
	}
	defer rows.Close()

	var stats []models.StageCount
	for rows.Next() {
		var sc models.StageCount
		if err := rows.Scan(&sc.Stage, &sc.Count, &sc.Value); err != nil {
			return nil, fmt.Errorf("scan stage stats: %w", err)
		}
		stats = append(stats, sc)
	}
	return stats, rows.Err()
}
