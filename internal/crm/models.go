package crm

import (
	"context"
	"encoding/json"
	"strings"

	"crm-assistant/internal/cache"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/models"
	"crm-assistant/internal/searchindex"
	"crm-assistant/internal/store"
)

// OwnerResolver maps the caller to an owner id.
type OwnerResolver interface {
	Resolve(ctx context.Context, id models.Identity) (string, error)
}

type Dependencies struct {
	Store       store.Store
	Owners      OwnerResolver
	Index       searchindex.CompanyIndex // nil disables search
	Revalidator cache.Revalidator
	// Shared lifts the owner filter on reads. Writes always stamp and
	// check the caller's owner id.
	Shared bool
	Logger logger.Logger
}

type CompanyInput struct {
	Name      string `json:"name"`
	Industry  string `json:"industry,omitempty"`
	Geography string `json:"geography,omitempty"`
	Size      string `json:"size,omitempty"`
	Website   string `json:"website,omitempty"`
}

func (in *CompanyInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Industry = strings.TrimSpace(in.Industry)
	in.Geography = strings.TrimSpace(in.Geography)
	in.Size = strings.TrimSpace(in.Size)
	in.Website = strings.TrimSpace(in.Website)
}

type PersonInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Title     string `json:"title,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
}

func (in *PersonInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Title = strings.TrimSpace(in.Title)
	in.CompanyID = strings.TrimSpace(in.CompanyID)
}

type DealInput struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Stage     string  `json:"stage"`
	ClosesAt  string  `json:"closesAt"`
	CompanyID string  `json:"companyId"`
}

func (in *DealInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Stage = strings.TrimSpace(in.Stage)
	in.ClosesAt = strings.TrimSpace(in.ClosesAt)
	in.CompanyID = strings.TrimSpace(in.CompanyID)
}

type StageInput struct {
	Stage string `json:"stage"`
}

type EventInput struct {
	Type      string `json:"type"`
	Notes     string `json:"notes,omitempty"`
	Date      string `json:"date"`
	CompanyID string `json:"companyId"`
}

func (in *EventInput) normalize() {
	in.Type = strings.TrimSpace(in.Type)
	in.Date = strings.TrimSpace(in.Date)
	in.CompanyID = strings.TrimSpace(in.CompanyID)
}

type SequenceInput struct {
	Name string `json:"name"`
}

// SequenceEmailInput creates an email when ID is empty and updates it
// otherwise.
type SequenceEmailInput struct {
	ID      string          `json:"id,omitempty"`
	Day     int             `json:"day"`
	Subject string          `json:"subject"`
	Content json.RawMessage `json:"content,omitempty"`
}
