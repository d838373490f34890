package domain

import (
	"sort"
	"time"
)

// Score is the lead temperature.
type Score string

const (
	ScoreHot  Score = "hot"
	ScoreWarm Score = "warm"
	ScoreCold Score = "cold"
)

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

const (
	StatusNew              LeadStatus = "new"
	StatusContacted        LeadStatus = "contacted"
	StatusInterested       LeadStatus = "interested"
	StatusMeetingScheduled LeadStatus = "meeting_scheduled"
)

// Lead is a CRM contact created from a call or an import.
type Lead struct {
	ID            string     `json:"id" mapstructure:"id"`
	ContactName   string     `json:"contact_name" mapstructure:"contact_name"`
	BusinessName  string     `json:"business_name,omitempty" mapstructure:"business_name"`
	Phone         string     `json:"phone" mapstructure:"phone"`
	Email         string     `json:"email,omitempty" mapstructure:"email"`
	Address       string     `json:"address,omitempty" mapstructure:"address"`
	City          string     `json:"city,omitempty" mapstructure:"city"`
	State         string     `json:"state,omitempty" mapstructure:"state"`
	Zip           string     `json:"zip,omitempty" mapstructure:"zip"`
	Website       string     `json:"website,omitempty" mapstructure:"website"`
	Industry      string     `json:"industry,omitempty" mapstructure:"industry"`
	Rating        float64    `json:"rating,omitempty" mapstructure:"rating"`
	ReviewCount   int        `json:"review_count,omitempty" mapstructure:"review_count"`
	Status        LeadStatus `json:"status" mapstructure:"status"`
	Score         Score      `json:"score" mapstructure:"score"`
	Notes         string     `json:"notes,omitempty" mapstructure:"notes"`
	Source        string     `json:"source,omitempty" mapstructure:"source"`
	LastContacted time.Time  `json:"last_contacted,omitempty" mapstructure:"last_contacted"`
	CreatedAt     time.Time  `json:"created_at" mapstructure:"created_at"`
}

// Deployment records an agent created on the platform.
type Deployment struct {
	AgentID            string    `json:"agent_id" mapstructure:"agent_id"`
	ConversationFlowID string    `json:"conversation_flow_id" mapstructure:"conversation_flow_id"`
	CompanyName        string    `json:"company_name" mapstructure:"company_name"`
	Template           string    `json:"template" mapstructure:"template"`
	CreatedAt          time.Time `json:"created_at" mapstructure:"created_at"`
}

// SortLeads orders leads by creation time, then ID.
func SortLeads(leads []*Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SortDeployments orders deployments by creation time, then agent ID.
func SortDeployments(ds []Deployment) {
	sort.SliceStable(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.Before(ds[j].CreatedAt)
		}
		return ds[i].AgentID < ds[j].AgentID
	})
}
