// Package store persists CRM records in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Store is the persistence surface used by the CRM service, the owner
// resolver and the save-lead tool.
type Store interface {
	FindUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	UpsertUser(ctx context.Context, u *models.User) error

	InsertCompany(ctx context.Context, c *models.Company) error
	InsertPeople(ctx context.Context, people []models.Person) (int, error)
	ListCompanies(ctx context.Context, scope Scope) ([]models.Company, error)
	GetCompanyDetails(ctx context.Context, scope Scope, id string) (*models.CompanyDetails, error)
	UpdateCompanyStatus(ctx context.Context, id, status string) error

	InsertPerson(ctx context.Context, p *models.Person) error
	ListPeople(ctx context.Context, scope Scope) ([]models.Person, error)
	UpdatePerson(ctx context.Context, scope Scope, p *models.Person) error

	InsertDeal(ctx context.Context, d *models.Deal) error
	ListDeals(ctx context.Context, scope Scope) ([]models.Deal, error)
	GetDeal(ctx context.Context, id string) (*models.Deal, error)
	UpdateDeal(ctx context.Context, scope Scope, d *models.Deal) error
	UpdateDealStage(ctx context.Context, id, stage string) error
	DealStageStats(ctx context.Context, scope Scope) ([]models.StageCount, error)

	InsertEvent(ctx context.Context, e *models.Event) error

	InsertSequence(ctx context.Context, s *models.Sequence) error
	ListSequences(ctx context.Context, scope Scope) ([]models.Sequence, error)
	GetSequenceDetails(ctx context.Context, scope Scope, id string) (*models.SequenceDetails, error)
	UpsertSequenceEmail(ctx context.Context, e *models.SequenceEmail) error
	DeleteSequenceEmail(ctx context.Context, scope Scope, sequenceID, emailID string) error
}

// Scope restricts reads to one owner unless Shared is set.
type Scope struct {
	OwnerID string
	Shared  bool
}

// where returns the owner predicate for column using placeholder $pos, or
// an empty clause in shared mode.
func (s Scope) where(column string, pos int) (string, []interface{}) {
	if s.Shared {
		return "", nil
	}
	return fmt.Sprintf("%s = $%d", column, pos), []interface{}{s.OwnerID}
}

type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// nullIfEmpty maps "" to SQL NULL for optional foreign keys and dates.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var hasWhere = regexp.MustCompile(`\sWHERE\s`)

func appendWhere(query, clause string) string {
	if clause == "" {
		return query
	}
	if hasWhere.MatchString(query) {
		return query + " AND " + clause
	}
	return query + " WHERE " + clause
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
