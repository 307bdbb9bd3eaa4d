package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the internal ledger vocabulary. The UI-facing vocabulary
// is narrower; ExternalStatus holds the normative mapping between the two.
type PaymentStatus string

const (
	PaymentPendingBA       PaymentStatus = "pending_ba"
	PaymentBAApproved      PaymentStatus = "ba_approved"
	PaymentPendingApproval PaymentStatus = "pending_approval"
	PaymentApproved        PaymentStatus = "payment_approved"
	PaymentProcessing      PaymentStatus = "processing"
	PaymentPaid            PaymentStatus = "paid"
	PaymentCancelled       PaymentStatus = "cancelled"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentCancelled
}

// ExternalStatus maps the internal ledger status onto the UI-facing value.
func (s PaymentStatus) ExternalStatus() string {
	switch s {
	case PaymentPendingBA, PaymentBAApproved, PaymentPendingApproval:
		return "draft"
	case PaymentProcessing:
		return "pending"
	case PaymentApproved:
		return "approved"
	case PaymentPaid:
		return "paid"
	case PaymentCancelled:
		return "rejected"
	default:
		return "draft"
	}
}

type ProgressPayment struct {
	ID            uuid.UUID
	ProjectID     string
	CertificateID uuid.UUID

	Amount          float64
	Percentage      float64
	TaxAmount       float64
	RetentionAmount float64
	// NetAmount is fixed at creation as amount - tax - retention and is
	// never recomputed afterwards.
	NetAmount float64
	DueDate   time.Time

	Status        PaymentStatus
	InvoiceNumber string
	InvoiceDate   time.Time

	BAApprovedAt      *time.Time
	PaymentApprovedBy *string
	PaymentApprovedAt *time.Time
	RejectedBy        *string
	RejectedAt        *time.Time
	RejectionReason   *string

	InvoiceSentAt    *time.Time
	InvoiceRecipient *string
	DeliveryMethod   *string
	CourierService   *string
	SentEvidenceRef  *string

	PaidAt           *time.Time
	PaidAmount       *float64
	BankAccount      *string
	PaymentReference *string
	PaidEvidenceRef  *string

	Notes     string
	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceStatus derives the invoice-facing state from the payment record.
// "overdue" is a view-time overlay; it is never persisted.
func (p ProgressPayment) InvoiceStatus(now time.Time) string {
	status := "draft"
	switch {
	case p.Status == PaymentPaid:
		status = "paid"
	case p.InvoiceSentAt != nil:
		status = "invoice_sent"
	case p.Status == PaymentApproved:
		status = "generated"
	}
	if (status == "generated" || status == "invoice_sent") && now.After(p.DueDate) {
		return "overdue"
	}
	return status
}

// IsOverdue reports whether the payment is past due and still collectible.
func (p ProgressPayment) IsOverdue(now time.Time) bool {
	if p.Status == PaymentPaid || p.Status == PaymentCancelled {
		return false
	}
	return now.After(p.DueDate) && (p.Status == PaymentApproved || p.InvoiceSentAt != nil)
}

// PaymentSummary aggregates a project's payments for the overview endpoint.
type PaymentSummary struct {
	TotalPayments  int                   `json:"totalPayments"`
	TotalAmount    float64               `json:"totalAmount"`
	TotalNetAmount float64               `json:"totalNetAmount"`
	PaidAmount     float64               `json:"paidAmount"`
	PendingAmount  float64               `json:"pendingAmount"`
	StatusCounts   map[PaymentStatus]int `json:"statusBreakdown"`
	OverdueCount   int                   `json:"overduePayments"`
}
