package models

import (
	"encoding/json"
	"time"
)

type Sequence struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"ownerId"`
	EmailCount int       `json:"emailCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SequenceEmail content is the editor document, stored as-is.
type SequenceEmail struct {
	ID         string          `json:"id"`
	SequenceID string          `json:"sequenceId"`
	Day        int             `json:"day"`
	Subject    string          `json:"subject"`
	Content    json.RawMessage `json:"content"`
	OwnerID    string          `json:"ownerId"`
}

type SequenceDetails struct {
	Sequence
	Emails []SequenceEmail `json:"emails"`
}
