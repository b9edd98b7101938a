package savelead

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crm-assistant/internal/cache"
	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/common/metrics"
	"crm-assistant/internal/models"
)

var ErrCompanyNameRequired = errors.New("companyName is required")

type Service struct {
	deps   ServiceDependencies
	logger logger.Logger
}

func NewService(deps ServiceDependencies) *Service {
	if deps.Revalidator == nil {
		deps.Revalidator = cache.NopRevalidator{}
	}
	return &Service{
		deps:   deps,
		logger: deps.Logger.With(map[string]interface{}{"tool": ToolName}),
	}
}

// Execute inserts the company as a Lead and then its contacts. A failed
// contact insert leaves the company in place and is reported in the message.
func (s *Service) Execute(ctx context.Context, caller models.Identity, input *Input) (*Output, error) {
	name := strings.TrimSpace(input.CompanyName)
	if name == "" {
		return nil, ErrCompanyNameRequired
	}

	ownerID, err := s.deps.Owners.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	company := &models.Company{
		Name:      name,
		Industry:  strings.TrimSpace(input.Industry),
		Geography: strings.TrimSpace(input.Geography),
		Size:      strings.TrimSpace(input.Size),
		Website:   strings.TrimSpace(input.Website),
		Status:    models.CompanyStatusLead,
		OwnerID:   ownerID,
	}
	if err := s.deps.Store.InsertCompany(ctx, company); err != nil {
		metrics.CRMWrites.WithLabelValues("company", "error").Inc()
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}
	metrics.CRMWrites.WithLabelValues("company", "success").Inc()

	s.logger.Info("lead saved", map[string]interface{}{
		"companyId": company.ID,
		"ownerId":   ownerID,
		"contacts":  len(input.Contacts),
	})

	people := BuildPeople(input.Contacts, company.ID, ownerID)
	output := &Output{NewCompany: *company}

	switch {
	case len(people) == 0:
		output.Message = fmt.Sprintf("Successfully saved %s to CRM. No contacts found - you can add them manually later.", name)
	default:
		saved, err := s.deps.Store.InsertPeople(ctx, people)
		if err != nil {
			metrics.CRMWrites.WithLabelValues("person", "error").Inc()
			s.logger.Warn("contacts not saved", map[string]interface{}{
				"companyId": company.ID,
				"error":     err.Error(),
			})
			output.Message = fmt.Sprintf("Successfully saved %s to CRM, but contacts could not be saved: %s. You can add them manually later.", name, err.Error())
			break
		}
		metrics.CRMWrites.WithLabelValues("person", "success").Add(float64(saved))
		output.ContactsSaved = saved
		output.Message = fmt.Sprintf("Successfully saved %s to CRM with %d contacts.", name, saved)
	}

	paths := []string{"/companies", "/companies/" + company.ID, "/dashboard"}
	if output.ContactsSaved > 0 {
		paths = append(paths, "/people")
	}
	s.deps.Revalidator.Revalidate(ctx, paths...)

	if s.deps.Index != nil {
		if err := s.deps.Index.IndexCompany(ctx, *company); err != nil {
			s.logger.Warn("company not indexed", map[string]interface{}{
				"companyId": company.ID,
				"error":     err.Error(),
			})
		}
	}

	return output, nil
}

// BuildPeople splits each contact name on whitespace: the first token is the
// first name and the remainder the last name. Blank names are skipped.
func BuildPeople(contacts []Contact, companyID, ownerID string) []models.Person {
	people := make([]models.Person, 0, len(contacts))
	for _, c := range contacts {
		parts := strings.Fields(c.Name)
		if len(parts) == 0 {
			continue
		}
		people = append(people, models.Person{
			FirstName: parts[0],
			LastName:  strings.Join(parts[1:], " "),
			Email:     strings.TrimSpace(c.Email),
			Title:     strings.TrimSpace(c.Title),
			CompanyID: companyID,
			OwnerID:   ownerID,
		})
	}
	return people
}
