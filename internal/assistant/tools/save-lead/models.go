package savelead

import (
	"context"

	"crm-assistant/internal/cache"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/models"
	"crm-assistant/internal/searchindex"
)

type Input struct {
	CompanyName string    `json:"companyName"`
	Industry    string    `json:"industry,omitempty"`
	Geography   string    `json:"geography,omitempty"`
	Size        string    `json:"size,omitempty"`
	Website     string    `json:"website,omitempty"`
	Contacts    []Contact `json:"contacts,omitempty"`
}

type Contact struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Email string `json:"email,omitempty"`
}

type Output struct {
	Message       string         `json:"message"`
	NewCompany    models.Company `json:"newCompany"`
	ContactsSaved int            `json:"contactsSaved"`
}

// OwnerResolver maps the caller to an internal owner id.
type OwnerResolver interface {
	Resolve(ctx context.Context, id models.Identity) (string, error)
}

// LeadStore is the slice of the store the tool writes through.
type LeadStore interface {
	InsertCompany(ctx context.Context, c *models.Company) error
	InsertPeople(ctx context.Context, people []models.Person) (int, error)
}

type ServiceDependencies struct {
	Owners      OwnerResolver
	Store       LeadStore
	Revalidator cache.Revalidator
	Index       searchindex.CompanyIndex // optional
	Logger      logger.Logger
}
