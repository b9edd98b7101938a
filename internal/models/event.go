package models

import "time"

const (
	EventNote  = "Note"
	EventCall  = "Call"
	EventEmail = "Email"
	EventTask  = "Task"
)

var EventTypes = []string{EventNote, EventCall, EventEmail, EventTask}

// Event is an activity logged against a company.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Notes     string    `json:"notes,omitempty"`
	Date      string    `json:"date"` // YYYY-MM-DD
	CompanyID string    `json:"companyId"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}
