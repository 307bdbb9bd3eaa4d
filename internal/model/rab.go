package model

import (
	"time"

	"github.com/google/uuid"
)

type RABApprovalStatus string

const (
	RABPending  RABApprovalStatus = "pending"
	RABApproved RABApprovalStatus = "approved"
	RABRejected RABApprovalStatus = "rejected"
)

// RABItem is a planned budget line: quantity x unit price under a category.
type RABItem struct {
	ID             uuid.UUID
	ProjectID      string
	Category       string
	Description    string
	Unit           string
	Quantity       float64
	UnitPrice      float64
	TotalPrice     float64
	ApprovalStatus RABApprovalStatus
	ApprovedBy     *string
	ApprovedAt     *time.Time
	RejectedReason *string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
