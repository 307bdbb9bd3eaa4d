package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type InspectionResult string

const (
	InspectionPending     InspectionResult = "pending"
	InspectionPassed      InspectionResult = "passed"
	InspectionConditional InspectionResult = "conditional"
	InspectionRejected    InspectionResult = "rejected"
)

type ReceiptStatus string

const (
	ReceiptPendingDelivery  ReceiptStatus = "pending_delivery"
	ReceiptPartialDelivered ReceiptStatus = "partial_delivered"
	ReceiptFullyDelivered   ReceiptStatus = "fully_delivered"
	ReceiptReceived         ReceiptStatus = "received"
	ReceiptCompleted        ReceiptStatus = "completed"
	ReceiptRejected         ReceiptStatus = "rejected"
)

type DeliveryReceipt struct {
	ID              uuid.UUID
	ProjectID       string
	PurchaseOrderID uuid.UUID
	ReceiptNumber   string
	Items           []ReceiptItem
	Inspection      InspectionResult
	Status          ReceiptStatus
	ReceivedDate    *time.Time
	ReceivedBy      string
	EvidenceRef     string
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ReceiptItem struct {
	Name         string  `json:"name"`
	OrderedQty   float64 `json:"orderedQty"`
	DeliveredQty float64 `json:"deliveredQty"`
	Unit         string  `json:"unit"`
}

// DeliveryPercentage is delivered over ordered across all items, rounded.
func (r DeliveryReceipt) DeliveryPercentage() int {
	var ordered, delivered float64
	for _, item := range r.Items {
		ordered += item.OrderedQty
		delivered += item.DeliveredQty
	}
	if ordered <= 0 {
		return 0
	}
	return int(math.Round(delivered / ordered * 100))
}
