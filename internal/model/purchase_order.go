package model

import (
	"time"

	"github.com/google/uuid"
)

type POStatus string

const (
	POStatusDraft     POStatus = "draft"
	POStatusPending   POStatus = "pending"
	POStatusApproved  POStatus = "approved"
	POStatusReceived  POStatus = "received"
	POStatusCancelled POStatus = "cancelled"
)

type PurchaseOrder struct {
	ID           uuid.UUID
	ProjectID    string
	PONumber     string
	SupplierName string
	Status       POStatus
	TotalAmount  float64
	Items        []POItem
	ApprovedBy   *string
	ApprovedAt   *time.Time
	ReceivedAt   *time.Time
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// POItem links an order line back to the budget line it draws from.
type POItem struct {
	RABItemID  uuid.UUID
	ItemName   string
	Quantity   float64
	UnitPrice  float64
	TotalPrice float64
}
