package model

import (
	"time"

	"github.com/google/uuid"
)

type CertificateType string

const (
	CertificatePartial     CertificateType = "partial"
	CertificateFinal       CertificateType = "final"
	CertificateProvisional CertificateType = "provisional"
)

type CertificateStatus string

const (
	CertificateDraft        CertificateStatus = "draft"
	CertificateSubmitted    CertificateStatus = "submitted"
	CertificateClientReview CertificateStatus = "client_review"
	CertificateApproved     CertificateStatus = "approved"
	CertificateRejected     CertificateStatus = "rejected"
)

// CompletionCertificate (berita acara) is the formal claim that a scope of
// work reached the stated completion percentage. Approval is the single gate
// that authorizes a progress payment against it.
type CompletionCertificate struct {
	ID                   uuid.UUID
	ProjectID            string
	MilestoneID          *uuid.UUID
	Number               string
	Type                 CertificateType
	WorkDescription      string
	CompletionPercentage float64
	CompletionDate       time.Time
	Status               CertificateStatus

	SubmittedBy     *string
	SubmittedAt     *time.Time
	ApprovedBy      *string
	ApprovedAt      *time.Time
	ApprovalNotes   *string
	RejectionReason *string

	PaymentAuthorized bool
	PaymentDueDate    *time.Time

	ClientSignature      *string
	ClientRepresentative *string
	ClientSignDate       *time.Time

	StatusHistory []StatusChange
	CreatedBy     string
	UpdatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StatusChange is one entry of the append-only transition trail kept on the
// certificate row as JSON.
type StatusChange struct {
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus"`
	ChangedBy      string    `json:"changedBy"`
	ChangedAt      time.Time `json:"changedAt"`
	Notes          string    `json:"notes,omitempty"`
}
