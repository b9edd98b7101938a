package models

import "time"

const (
	StageDiscovery   = "Discovery"
	StageProposal    = "Proposal"
	StageNegotiation = "Negotiation"
	StageWon         = "Won"
	StageLost        = "Lost"
)

// DealStages lists stages in pipeline order.
var DealStages = []string{StageDiscovery, StageProposal, StageNegotiation, StageWon, StageLost}

func IsDealStage(s string) bool {
	for _, stage := range DealStages {
		if stage == s {
			return true
		}
	}
	return false
}

type Deal struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Value       float64   `json:"value"`
	Stage       string    `json:"stage"`
	ClosesAt    string    `json:"closesAt,omitempty"` // YYYY-MM-DD
	CompanyID   string    `json:"companyId"`
	CompanyName string    `json:"companyName,omitempty"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StageCount is one bar of the dashboard charts.
type StageCount struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type Dashboard struct {
	DealsByStage       []StageCount `json:"dealsByStage"`
	DealValueByStage   []StageCount `json:"dealValueByStage"`
	TotalDeals         int          `json:"totalDeals"`
	TotalPipelineValue float64      `json:"totalPipelineValue"`
}
