package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nusakarya/projectledger/internal/model"
)

// amountTolerance is the maximum allowed difference between the confirmed
// paid amount and the payment's net amount.
const amountTolerance = 0.01

type PaymentRepository interface {
	GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.ProgressPayment, error)
	Create(ctx context.Context, payment *model.ProgressPayment) error
	// UpdateFrom applies every mutable field in one UPDATE guarded by the
	// expected current status; false means a concurrent writer won.
	UpdateFrom(ctx context.Context, payment *model.ProgressPayment, from model.PaymentStatus) (bool, error)
	Delete(ctx context.Context, projectID string, id uuid.UUID) error
	ListForProject(ctx context.Context, projectID string) ([]model.ProgressPayment, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
}

type CertificateReader interface {
	GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.CompletionCertificate, error)
}

type ProjectReader interface {
	Get(ctx context.Context, projectID string) (*model.Project, error)
}

// FileStore is the external evidence-storage collaborator. A reference it
// returns must be resolvable back to the stored bytes.
type FileStore interface {
	Store(ctx context.Context, data []byte, kind string) (string, error)
}

type InvoiceRenderer interface {
	GenerateInvoice(doc model.InvoiceDocument) ([]byte, error)
}

type PaymentService struct {
	repo         PaymentRepository
	certificates CertificateReader
	projects     ProjectReader
	files        FileStore
	renderer     InvoiceRenderer
	terms        FinanceTerms
	now          func() time.Time
	randSuffix   func() int
}

func NewPaymentService(repo PaymentRepository, certificates CertificateReader, projects ProjectReader, files FileStore, renderer InvoiceRenderer, terms FinanceTerms) *PaymentService {
	return &PaymentService{
		repo:         repo,
		certificates: certificates,
		projects:     projects,
		files:        files,
		renderer:     renderer,
		terms:        terms,
		now:          time.Now,
		randSuffix:   func() int { return rand.IntN(1000) },
	}
}

// CreatePaymentInput describes a new ledger entry. Tax and retention are
// optional; when nil they default to the configured rates applied to the
// gross amount.
type CreatePaymentInput struct {
	CertificateID   uuid.UUID
	Amount          float64
	Percentage      float64
	TaxAmount       *float64
	RetentionAmount *float64
	DueDate         time.Time
	Notes           string
	Principal       model.Principal
}

// Create opens a ledger entry against an approved completion certificate.
// The net amount is computed here, once, and never recomputed afterwards.
func (s *PaymentService) Create(ctx context.Context, projectID string, input CreatePaymentInput) (*model.ProgressPayment, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if input.Percentage < 0 || input.Percentage > 100 {
		return nil, fmt.Errorf("%w: percentage must be between 0 and 100", ErrValidation)
	}

	taxAmount := round2(input.Amount * s.terms.TaxRate)
	if input.TaxAmount != nil {
		taxAmount = *input.TaxAmount
	}
	retentionAmount := round2(input.Amount * s.terms.RetentionRate)
	if input.RetentionAmount != nil {
		retentionAmount = *input.RetentionAmount
	}
	if taxAmount < 0 || retentionAmount < 0 {
		return nil, fmt.Errorf("%w: tax and retention must not be negative", ErrValidation)
	}

	cert, err := s.certificates.GetByID(ctx, projectID, input.CertificateID)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate not found in project", ErrPreconditionFailed)
	}
	if cert.Status != model.CertificateApproved {
		return nil, fmt.Errorf("%w: certificate %s is not approved", ErrPreconditionFailed, cert.Number)
	}

	netAmount := round2(input.Amount - taxAmount - retentionAmount)
	if netAmount < 0 {
		return nil, fmt.Errorf("%w: deductions exceed gross amount", ErrValidation)
	}

	now := s.now()
	dueDate := input.DueDate
	if dueDate.IsZero() {
		if cert.PaymentDueDate != nil {
			dueDate = *cert.PaymentDueDate
		} else {
			dueDate = now.AddDate(0, 0, s.terms.termsDays())
		}
	}

	invoiceNumber, err := s.nextInvoiceNumber(ctx, projectID, now)
	if err != nil {
		return nil, err
	}

	payment := &model.ProgressPayment{
		ID:              uuid.New(),
		ProjectID:       projectID,
		CertificateID:   cert.ID,
		Amount:          input.Amount,
		Percentage:      input.Percentage,
		TaxAmount:       taxAmount,
		RetentionAmount: retentionAmount,
		NetAmount:       netAmount,
		DueDate:         dueDate,
		Status:          model.PaymentPendingBA,
		InvoiceNumber:   invoiceNumber,
		InvoiceDate:     now,
		BAApprovedAt:    cert.ApprovedAt,
		Notes:           input.Notes,
		CreatedBy:       input.Principal.Identity(),
		UpdatedBy:       input.Principal.Identity(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// nextInvoiceNumber builds INV-<projectId>-<yyyymmdd>-<3-digit-random>,
// retrying with a fresh suffix on collision.
func (s *PaymentService) nextInvoiceNumber(ctx context.Context, projectID string, now time.Time) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := fmt.Sprintf("INV-%s-%s-%03d", projectID, now.Format("20060102"), s.randSuffix())
		taken, err := s.repo.InvoiceNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return fmt.Sprintf("INV-%s-%s", projectID, now.Format("20060102150405")), nil
}

func (s *PaymentService) Get(ctx context.Context, projectID string, id uuid.UUID) (*model.ProgressPayment, error) {
	return s.repo.GetByID(ctx, projectID, id)
}

// UpdateStatus maps the caller-facing vocabulary onto the internal ledger
// statuses. Recording fields are only touched on the matching transition.
func (s *PaymentService) List(ctx context.Context, projectID string) ([]model.ProgressPayment, error) {
	return s.repo.ListForProject(ctx, projectID)
}

func (s *PaymentService) UpdateStatus(ctx context.Context, projectID string, id uuid.UUID, callerStatus, reason string, principal model.Principal) (*model.ProgressPayment, error) {
	payment, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if payment.Status.Terminal() {
		return nil, fmt.Errorf("%w: payment is %s", ErrInvalidStateTransition, payment.Status)
	}

	now := s.now()
	identity := principal.Identity()
	previous := payment.Status

	switch strings.ToLower(strings.TrimSpace(callerStatus)) {
	case "approved":
		if payment.Status == model.PaymentApproved {
			return nil, fmt.Errorf("%w: payment is already approved", ErrInvalidStateTransition)
		}
		payment.Status = model.PaymentApproved
		payment.PaymentApprovedBy = &identity
		payment.PaymentApprovedAt = &now
	case "rejected":
		payment.Status = model.PaymentCancelled
		payment.RejectedBy = &identity
		payment.RejectedAt = &now
		if strings.TrimSpace(reason) != "" {
			payment.RejectionReason = &reason
		}
	case "processing":
		payment.Status = model.PaymentProcessing
	case "pending":
		payment.Status = model.PaymentPendingApproval
	case "paid":
		payment.Status = model.PaymentPaid
		if payment.PaidAt == nil {
			payment.PaidAt = &now
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, callerStatus)
	}

	payment.UpdatedBy = identity
	payment.UpdatedAt = now
	return s.applyTransition(ctx, payment, previous)
}

type MarkInvoiceSentInput struct {
	RecipientName  string
	SentDate       time.Time
	DeliveryMethod string
	CourierService string
	Evidence       []byte
	Principal      model.Principal
}

func (s *PaymentService) MarkInvoiceSent(ctx context.Context, projectID string, id uuid.UUID, input MarkInvoiceSentInput) (*model.ProgressPayment, error) {
	payment, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentApproved {
		return nil, fmt.Errorf("%w: invoice can only be sent for approved payments", ErrPreconditionFailed)
	}

	if len(strings.TrimSpace(input.RecipientName)) < 3 {
		return nil, fmt.Errorf("%w: recipient name must be at least 3 characters", ErrValidation)
	}
	if input.SentDate.IsZero() {
		return nil, fmt.Errorf("%w: sent date is required", ErrValidation)
	}
	if input.SentDate.After(s.now()) {
		return nil, fmt.Errorf("%w: sent date cannot be in the future", ErrValidation)
	}
	method := strings.ToLower(strings.TrimSpace(input.DeliveryMethod))
	if method == "" {
		return nil, fmt.Errorf("%w: delivery method is required", ErrValidation)
	}
	if method == "courier" && strings.TrimSpace(input.CourierService) == "" {
		return nil, fmt.Errorf("%w: courier service name is required for courier delivery", ErrValidation)
	}
	if len(input.Evidence) == 0 {
		return nil, fmt.Errorf("%w: delivery evidence is required", ErrValidation)
	}

	evidenceRef, err := s.files.Store(ctx, input.Evidence, "invoice-delivery")
	if err != nil {
		return nil, err
	}

	now := s.now()
	recipient := strings.TrimSpace(input.RecipientName)
	sentAt := input.SentDate

	payment.InvoiceSentAt = &sentAt
	payment.InvoiceRecipient = &recipient
	payment.DeliveryMethod = &method
	if method == "courier" {
		courier := strings.TrimSpace(input.CourierService)
		payment.CourierService = &courier
	}
	payment.SentEvidenceRef = &evidenceRef
	payment.UpdatedBy = input.Principal.Identity()
	payment.UpdatedAt = now

	return s.applyTransition(ctx, payment, model.PaymentApproved)
}

type ConfirmPaymentInput struct {
	PaidAmount       float64
	PaidDate         time.Time
	BankAccount      string
	PaymentReference string
	Evidence         []byte
	Principal        model.Principal
}

// ConfirmPayment settles the ledger entry. The strict checks here are the
// audit trail: money recorded as paid must match a specific, evidenced,
// previously dispatched bill.
func (s *PaymentService) ConfirmPayment(ctx context.Context, projectID string, id uuid.UUID, input ConfirmPaymentInput) (*model.ProgressPayment, error) {
	payment, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentApproved {
		return nil, fmt.Errorf("%w: payment must be approved before it can be confirmed", ErrPreconditionFailed)
	}

	if len(input.Evidence) == 0 {
		return nil, ErrEvidenceRequired
	}
	if math.Abs(input.PaidAmount-payment.NetAmount) > amountTolerance {
		return nil, fmt.Errorf("%w: paid %.2f does not match net amount %.2f", ErrAmountMismatch, input.PaidAmount, payment.NetAmount)
	}

	paidDate := input.PaidDate
	if paidDate.IsZero() {
		paidDate = s.now()
	}
	if paidDate.After(s.now()) {
		return nil, fmt.Errorf("%w: payment date cannot be in the future", ErrDateOrderViolation)
	}
	if payment.InvoiceSentAt != nil && paidDate.Before(*payment.InvoiceSentAt) {
		return nil, fmt.Errorf("%w: payment date is earlier than the invoice sent date", ErrDateOrderViolation)
	}
	if strings.TrimSpace(input.BankAccount) == "" {
		return nil, fmt.Errorf("%w: bank account is required", ErrValidation)
	}

	evidenceRef, err := s.files.Store(ctx, input.Evidence, "payment-evidence")
	if err != nil {
		return nil, err
	}

	now := s.now()
	bank := strings.TrimSpace(input.BankAccount)
	paidAmount := input.PaidAmount

	payment.Status = model.PaymentPaid
	payment.PaidAt = &paidDate
	payment.PaidAmount = &paidAmount
	payment.BankAccount = &bank
	if strings.TrimSpace(input.PaymentReference) != "" {
		ref := strings.TrimSpace(input.PaymentReference)
		payment.PaymentReference = &ref
	}
	payment.PaidEvidenceRef = &evidenceRef
	payment.UpdatedBy = input.Principal.Identity()
	payment.UpdatedAt = now

	return s.applyTransition(ctx, payment, model.PaymentApproved)
}

func (s *PaymentService) Delete(ctx context.Context, projectID string, id uuid.UUID) error {
	payment, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return err
	}
	if payment.Status == model.PaymentPaid {
		return fmt.Errorf("%w: paid payments cannot be deleted", ErrImmutableRecord)
	}
	return s.repo.Delete(ctx, projectID, id)
}

type InvoiceResult struct {
	FileName string
	Content  []byte
}

// GenerateInvoice is a pure read: it assembles the structured invoice
// payload and hands it to the renderer without touching ledger state.
func (s *PaymentService) GenerateInvoice(ctx context.Context, projectID string, id uuid.UUID) (*InvoiceResult, error) {
	payment, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	cert, err := s.certificates.GetByID(ctx, projectID, payment.CertificateID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	doc := model.InvoiceDocument{
		Payment:     *payment,
		Certificate: *cert,
		Project:     *project,
		Status:      payment.InvoiceStatus(s.now()),
	}
	content, err := s.renderer.GenerateInvoice(doc)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{
		FileName: fmt.Sprintf("%s.pdf", payment.InvoiceNumber),
		Content:  content,
	}, nil
}

// Summary aggregates a project's ledger for the overview endpoint.
func (s *PaymentService) Summary(ctx context.Context, projectID string) (*model.PaymentSummary, error) {
	payments, err := s.repo.ListForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &model.PaymentSummary{
		TotalPayments: len(payments),
		StatusCounts:  make(map[model.PaymentStatus]int),
	}
	for _, p := range payments {
		summary.TotalAmount += p.Amount
		summary.TotalNetAmount += p.NetAmount
		summary.StatusCounts[p.Status]++
		switch p.Status {
		case model.PaymentPaid:
			summary.PaidAmount += p.NetAmount
		case model.PaymentCancelled:
		default:
			summary.PendingAmount += p.NetAmount
		}
		if p.IsOverdue(now) {
			summary.OverdueCount++
		}
	}
	return summary, nil
}

func (s *PaymentService) applyTransition(ctx context.Context, payment *model.ProgressPayment, from model.PaymentStatus) (*model.ProgressPayment, error) {
	applied, err := s.repo.UpdateFrom(ctx, payment, from)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: payment changed concurrently", ErrInvalidStateTransition)
	}
	return payment, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
