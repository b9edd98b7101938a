// Package crm implements the CRM data surface: companies, people, deals,
// activity events, email sequences and the dashboard.
package crm

import (
	"context"
	"errors"
	"strings"

	"crm-assistant/internal/cache"
	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/common/metrics"
	"crm-assistant/internal/models"
	"crm-assistant/internal/store"
)

const defaultSearchSize = 20

type Service struct {
	deps   Dependencies
	logger logger.Logger
}

func NewService(deps Dependencies) *Service {
	if deps.Revalidator == nil {
		deps.Revalidator = cache.NopRevalidator{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	return &Service{
		deps:   deps,
		logger: deps.Logger.WithFields(map[string]interface{}{"component": "crm-service"}),
	}
}

// SearchEnabled reports whether a company index is configured.
func (s *Service) SearchEnabled() bool {
	return s.deps.Index != nil
}

// readScope resolves the caller and returns the scope for list and detail
// reads, honoring the tenancy mode.
func (s *Service) readScope(ctx context.Context, caller models.Identity) (store.Scope, error) {
	ownerID, err := s.deps.Owners.Resolve(ctx, caller)
	if err != nil {
		return store.Scope{}, err
	}
	return store.Scope{OwnerID: ownerID, Shared: s.deps.Shared}, nil
}

func (s *Service) owner(ctx context.Context, caller models.Identity) (string, error) {
	return s.deps.Owners.Resolve(ctx, caller)
}

func (s *Service) recordWrite(entity string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.CRMWrites.WithLabelValues(entity, status).Inc()
}

// queryError maps store errors on reads and updates.
func queryError(op, resource, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError(resource, id)
	}
	return apperrors.NewDatabaseQueryFailedError(op, err)
}

// withCompanyPath appends the company detail view when companyID is set.
func withCompanyPath(companyID string, paths ...string) []string {
	if companyID != "" {
		paths = append(paths, "/companies/"+companyID)
	}
	return paths
}

// ==========================
// Companies
// ==========================

func (s *Service) ListCompanies(ctx context.Context, caller models.Identity) ([]models.Company, error) {
	scope, err := s.readScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	companies, err := s.deps.Store.ListCompanies(ctx, scope)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("list companies", err)
	}
	return companies, nil
}

func (s *Service) CreateCompany(ctx context.Context, caller models.Identity, in CompanyInput) (*models.Company, error) {
	in.normalize()
	if err := check(in, CompanySchema()); err != nil {
		return nil, err
	}
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return nil, err
	}

	company := &models.Company{
		Name:      in.Name,
		Industry:  in.Industry,
		Geography: in.Geography,
		Size:      in.Size,
		Website:   in.Website,
		Status:    models.CompanyStatusLead,
		OwnerID:   ownerID,
	}
	err = s.deps.Store.InsertCompany(ctx, company)
	s.recordWrite("company", err)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}

	s.logger.Info("company created", map[string]interface{}{"companyId": company.ID, "ownerId": ownerID})
	s.deps.Revalidator.Revalidate(ctx, "/companies")
	s.index(ctx, *company)
	return company, nil
}

func (s *Service) index(ctx context.Context, c models.Company) {
	if s.deps.Index == nil {
		return
	}
	if err := s.deps.Index.IndexCompany(ctx, c); err != nil {
		s.logger.Warn("company not indexed", map[string]interface{}{"companyId": c.ID, "error": err.Error()})
	}
}

func (s *Service) GetCompany(ctx context.Context, caller models.Identity, id string) (*models.CompanyDetails, error) {
	scope, err := s.readScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	details, err := s.deps.Store.GetCompanyDetails(ctx, scope, id)
	if err != nil {
		return nil, queryError("get company", "company", id, err)
	}
	return details, nil
}

func (s *Service) SearchCompanies(ctx context.Context, caller models.Identity, q string, size int) ([]models.Company, error) {
	if s.deps.Index == nil {
		return nil, apperrors.NewSearchIndexUnavailableError()
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.NewValidationError(map[string]string{"q": "q is required"})
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	scope, err := s.readScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	companies, err := s.deps.Index.SearchCompanies(ctx, scope, q, size)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("search companies", err)
	}
	return companies, nil
}

// ==========================
// People
// ==========================

func (s *Service) ListPeople(ctx context.Context, caller models.Identity) ([]models.Person, error) {
	scope, err := s.readScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	people, err := s.deps.Store.ListPeople(ctx, scope)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("list people", err)
	}
	return people, nil
}

func (s *Service) CreatePerson(ctx context.Context, caller models.Identity, in PersonInput) (*models.Person, error) {
	in.normalize()
	if err := check(in, PersonSchema()); err != nil {
		return nil, err
	}
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return nil, err
	}

	person := &models.Person{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Title:     in.Title,
		CompanyID: in.CompanyID,
		OwnerID:   ownerID,
	}
	err = s.deps.Store.InsertPerson(ctx, person)
	s.recordWrite("person", err)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}

	s.deps.Revalidator.Revalidate(ctx, "/people")
	return person, nil
}

func (s *Service) UpdatePerson(ctx context.Context, caller models.Identity, id string, in PersonInput) (*models.Person, error) {
	in.normalize()
	if err := check(in, PersonSchema()); err != nil {
		return nil, err
	}
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return nil, err
	}

	person := &models.Person{
		ID:        id,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Title:     in.Title,
		CompanyID: in.CompanyID,
		OwnerID:   ownerID,
	}
	err = s.deps.Store.UpdatePerson(ctx, store.Scope{OwnerID: ownerID}, person)
	s.recordWrite("person", err)
	if err != nil {
		return nil, queryError("update person", "person", id, err)
	}

	s.deps.Revalidator.Revalidate(ctx, withCompanyPath(person.CompanyID, "/people")...)
	return person, nil
}

// ==========================
// Deals
// ==========================

func (s *Service) ListDeals(ctx context.Context, caller models.Identity) ([]models.Deal, error) {
	scope, err := s.readScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	deals, err := s.deps.Store.ListDeals(ctx, scope)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("list deals", err)
	}
	return deals, nil
}

func (s *Service) CreateDeal(ctx context.Context, caller models.Identity, in DealInput) (*models.Deal, error) {
	in.normalize()
	if err := check(in, DealSchema()); err != nil {
		return nil, err
	}
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return nil, err
	}

	deal := &models.Deal{
		Name:      in.Name,
		Value:     in.Value,
		Stage:     in.Stage,
		ClosesAt:  in.ClosesAt,
		CompanyID: in.CompanyID,
		OwnerID:   ownerID,
	}
	err = s.deps.Store.InsertDeal(ctx, deal)
	s.recordWrite("deal", err)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}

	s.deps.Revalidator.Revalidate(ctx, "/deals", "/dashboard")
	return deal, nil
}

func (s *Service) UpdateDeal(ctx context.Context, caller models.Identity, id string, in DealInput) (*models.Deal, error) {
	in.normalize()
	if err := check(in, DealSchema()); err != nil {
		return nil, err
	}
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return nil, err
	}

	deal := &models.Deal{
		ID:        id,
		Name:      in.Name,
		Value:     in.Value,
		Stage:     in.Stage,
		ClosesAt:  in.ClosesAt,
		CompanyID: in.CompanyID,
		OwnerID:   ownerID,
	}
	err = s.deps.Store.UpdateDeal(ctx, store.Scope{OwnerID: ownerID}, deal)
	s.recordWrite("deal", err)
	if err != nil {
		return nil, queryError("update deal", "deal", id, err)
	}

	s.deps.Revalidator.Revalidate(ctx, withCompanyPath(deal.CompanyID, "/deals", "/dashboard")...)
	return deal, nil
}

// UpdateDealStage moves a deal and sets its company's status to the same
// stage. Only the deal's owner may move it, whatever the tenancy mode. A
// failed company status update is logged and does not fail the move.
func (s *Service) UpdateDealStage(ctx context.Context, caller models.Identity, id, stage string) (*models.Deal, error) {
	stage = strings.TrimSpace(stage)
	if !models.IsDealStage(stage) {
		return nil, apperrors.NewValidationError(map[string]string{
			"stage": "stage must be one of: " + strings.Join(models.DealStages, ", "),
		})
	}
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return nil, err
	}

	deal, err := s.deps.Store.GetDeal(ctx, id)
	if err != nil {
		return nil, queryError("get deal", "deal", id, err)
	}
	if deal.OwnerID != ownerID {
		s.logger.Warn("deal stage change rejected", map[string]interface{}{"dealId": id, "ownerId": ownerID})
		return nil, apperrors.NewForbiddenError("deal belongs to another owner")
	}

	err = s.deps.Store.UpdateDealStage(ctx, id, stage)
	s.recordWrite("deal", err)
	if err != nil {
		return nil, queryError("update deal stage", "deal", id, err)
	}
	deal.Stage = stage

	if deal.CompanyID != "" {
		err = s.deps.Store.UpdateCompanyStatus(ctx, deal.CompanyID, stage)
		s.recordWrite("company", err)
		if err != nil {
			s.logger.Error("company status not updated", map[string]interface{}{
				"dealId":    id,
				"companyId": deal.CompanyID,
				"error":     err.Error(),
			})
		}
	}

	s.deps.Revalidator.Revalidate(ctx, withCompanyPath(deal.CompanyID, "/deals", "/dashboard", "/companies")...)
	return deal, nil
}

// ==========================
// Events
// ==========================

func (s *Service) CreateEvent(ctx context.Context, caller models.Identity, in EventInput) (*models.Event, error) {
	in.normalize()
	if err := check(in, EventSchema()); err != nil {
		return nil, err
	}
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		Type:      in.Type,
		Notes:     in.Notes,
		Date:      in.Date,
		CompanyID: in.CompanyID,
		OwnerID:   ownerID,
	}
	err = s.deps.Store.InsertEvent(ctx, event)
	s.recordWrite("event", err)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}

	s.deps.Revalidator.Revalidate(ctx, withCompanyPath(event.CompanyID)...)
	return event, nil
}

// ==========================
// Sequences
// ==========================

func (s *Service) ListSequences(ctx context.Context, caller models.Identity) ([]models.Sequence, error) {
	scope, err := s.readScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	sequences, err := s.deps.Store.ListSequences(ctx, scope)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("list sequences", err)
	}
	return sequences, nil
}

func (s *Service) CreateSequence(ctx context.Context, caller models.Identity, in SequenceInput) (*models.Sequence, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in, SequenceSchema()); err != nil {
		return nil, err
	}
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return nil, err
	}

	seq := &models.Sequence{Name: in.Name, OwnerID: ownerID}
	err = s.deps.Store.InsertSequence(ctx, seq)
	s.recordWrite("sequence", err)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}

	s.deps.Revalidator.Revalidate(ctx, "/sequences")
	return seq, nil
}

func (s *Service) GetSequence(ctx context.Context, caller models.Identity, id string) (*models.SequenceDetails, error) {
	scope, err := s.readScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	details, err := s.deps.Store.GetSequenceDetails(ctx, scope, id)
	if err != nil {
		return nil, queryError("get sequence", "sequence", id, err)
	}
	return details, nil
}

// SaveSequenceEmail creates or updates one email of a sequence the caller
// owns.
func (s *Service) SaveSequenceEmail(ctx context.Context, caller models.Identity, sequenceID string, in SequenceEmailInput) (*models.SequenceEmail, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Subject = strings.TrimSpace(in.Subject)
	if err := check(in, SequenceEmailSchema()); err != nil {
		return nil, err
	}
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return nil, err
	}

	if _, err := s.deps.Store.GetSequenceDetails(ctx, store.Scope{OwnerID: ownerID}, sequenceID); err != nil {
		return nil, queryError("get sequence", "sequence", sequenceID, err)
	}

	email := &models.SequenceEmail{
		ID:         in.ID,
		SequenceID: sequenceID,
		Day:        in.Day,
		Subject:    in.Subject,
		Content:    in.Content,
		OwnerID:    ownerID,
	}
	err = s.deps.Store.UpsertSequenceEmail(ctx, email)
	s.recordWrite("sequence_email", err)
	if err != nil {
		return nil, queryError("save sequence email", "sequence email", in.ID, err)
	}

	s.deps.Revalidator.Revalidate(ctx, "/sequences/"+sequenceID)
	return email, nil
}

func (s *Service) DeleteSequenceEmail(ctx context.Context, caller models.Identity, sequenceID, emailID string) error {
	ownerID, err := s.owner(ctx, caller)
	if err != nil {
		return err
	}

	err = s.deps.Store.DeleteSequenceEmail(ctx, store.Scope{OwnerID: ownerID}, sequenceID, emailID)
	s.recordWrite("sequence_email", err)
	if err != nil {
		return queryError("delete sequence email", "sequence email", emailID, err)
	}

	s.deps.Revalidator.Revalidate(ctx, "/sequences/"+sequenceID)
	return nil
}
