package model

import (
	"time"

	"github.com/google/uuid"
)

type Milestone struct {
	ID          uuid.UUID
	ProjectID   string
	Title       string
	Description string
	TargetDate  *time.Time
	Status      string

	// CategoryName links the milestone to one budget category; the whole
	// workflow pipeline is read through this link.
	CategoryName *string

	// Progress and WorkflowProgress are a cached snapshot written back by
	// the aggregator; LastSynced marks when it was computed.
	Progress         int
	WorkflowProgress *WorkflowProgress
	LastSynced       *time.Time

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkflowProgress is the per-stage snapshot for a category-linked milestone.
type WorkflowProgress struct {
	BudgetApproved BudgetStage    `json:"budgetApproved"`
	Procurement    CountStage     `json:"procurement"`
	Delivery       CountStage     `json:"delivery"`
	Certification  PercentStage   `json:"certification"`
	Payment        ValueStage     `json:"payment"`
	Alerts         []DeliveryAlert `json:"alerts,omitempty"`
}

type BudgetStage struct {
	Approved   bool    `json:"approved"`
	TotalValue float64 `json:"totalValue"`
	TotalItems int     `json:"totalItems"`
}

type CountStage struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Fraction is done/total, 0 when total is 0.
func (s CountStage) Fraction() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total)
}

type PercentStage struct {
	Count      int     `json:"count"`
	AvgPercent float64 `json:"avgPercent"`
}

type ValueStage struct {
	PaidCount  int     `json:"paidCount"`
	PaidValue  float64 `json:"paidValue"`
	TotalValue float64 `json:"totalValue"`
}

// Fraction is paid value over total approved budget value, capped at 1.
func (s ValueStage) Fraction() float64 {
	if s.TotalValue <= 0 {
		return 0
	}
	f := s.PaidValue / s.TotalValue
	if f > 1 {
		return 1
	}
	return f
}

type DeliveryAlert struct {
	PONumber    string `json:"poNumber"`
	Severity    string `json:"severity"` // medium after 7 days, high after 14
	DaysWaiting int    `json:"daysWaiting"`
	Message     string `json:"message"`
}
