package models

import "time"

const (
	CompanyStatusLead = "Lead"
)

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Industry  string    `json:"industry,omitempty"`
	Geography string    `json:"geography,omitempty"`
	Size      string    `json:"size,omitempty"`
	Website   string    `json:"website,omitempty"`
	Status    string    `json:"status"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Person struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email,omitempty"`
	Title     string    `json:"title,omitempty"`
	CompanyID string    `json:"companyId,omitempty"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CompanyDetails is a company with everything hanging off it.
type CompanyDetails struct {
	Company
	People []Person `json:"people"`
	Deals  []Deal   `json:"deals"`
	Events []Event  `json:"events"`
}
