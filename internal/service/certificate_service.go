package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nusakarya/projectledger/internal/model"
)

// defaultPaymentTermsDays backs FinanceTerms when no payment terms were
// configured.
const defaultPaymentTermsDays = 30

// FinanceTerms carries the configured financial tunables: tax and retention
// as fractions of the gross amount, and payment terms as the due date offset
// in days.
type FinanceTerms struct {
	TaxRate          float64
	RetentionRate    float64
	PaymentTermsDays int
}

func (t FinanceTerms) termsDays() int {
	if t.PaymentTermsDays <= 0 {
		return defaultPaymentTermsDays
	}
	return t.PaymentTermsDays
}

type CertificateRepository interface {
	GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.CompletionCertificate, error)
	Create(ctx context.Context, cert *model.CompletionCertificate) error
	// UpdateFrom applies every mutable field of cert in a single UPDATE,
	// guarded by the expected current status. It reports false when no row
	// matched, which means a concurrent transition won the race.
	UpdateFrom(ctx context.Context, cert *model.CompletionCertificate, from model.CertificateStatus) (bool, error)
	Delete(ctx context.Context, projectID string, id uuid.UUID) error
	ListForProject(ctx context.Context, projectID string) ([]model.CompletionCertificate, error)
	CountForProject(ctx context.Context, projectID string) (int64, error)
	CountForPeriod(ctx context.Context, year int, month time.Month) (int64, error)
	NumberExists(ctx context.Context, number string) (bool, error)
}

type ProjectChecker interface {
	Exists(ctx context.Context, projectID string) (bool, error)
}

// ProjectDirectory is what the certificate workflow needs from the project
// store: existence checks on create and the full record when rendering the
// handover document.
type ProjectDirectory interface {
	ProjectChecker
	ProjectReader
}

type HandoverRenderer interface {
	GenerateHandover(doc model.HandoverDocument) ([]byte, error)
}

type CertificateService struct {
	repo     CertificateRepository
	projects ProjectDirectory
	renderer HandoverRenderer
	terms    FinanceTerms
	now      func() time.Time
}

func NewCertificateService(repo CertificateRepository, projects ProjectDirectory, renderer HandoverRenderer, terms FinanceTerms) *CertificateService {
	return &CertificateService{
		repo:     repo,
		projects: projects,
		renderer: renderer,
		terms:    terms,
		now:      time.Now,
	}
}

type CreateCertificateInput struct {
	MilestoneID          *uuid.UUID
	Type                 model.CertificateType
	WorkDescription      string
	CompletionPercentage float64
	CompletionDate       time.Time
	PeriodNumbering      bool
	Principal            model.Principal
}

func (s *CertificateService) Create(ctx context.Context, projectID string, input CreateCertificateInput) (*model.CompletionCertificate, error) {
	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	if strings.TrimSpace(input.WorkDescription) == "" {
		return nil, fmt.Errorf("%w: work description is required", ErrValidation)
	}
	if input.CompletionPercentage < 0 || input.CompletionPercentage > 100 {
		return nil, fmt.Errorf("%w: completion percentage must be between 0 and 100", ErrValidation)
	}
	if input.CompletionDate.IsZero() {
		return nil, fmt.Errorf("%w: completion date is required", ErrValidation)
	}

	certType := input.Type
	if certType == "" {
		certType = model.CertificatePartial
	}
	switch certType {
	case model.CertificatePartial, model.CertificateFinal, model.CertificateProvisional:
	default:
		return nil, fmt.Errorf("%w: unknown certificate type %q", ErrValidation, certType)
	}

	number, err := s.nextNumber(ctx, projectID, input.PeriodNumbering)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cert := &model.CompletionCertificate{
		ID:                   uuid.New(),
		ProjectID:            projectID,
		MilestoneID:          input.MilestoneID,
		Number:               number,
		Type:                 certType,
		WorkDescription:      input.WorkDescription,
		CompletionPercentage: input.CompletionPercentage,
		CompletionDate:       input.CompletionDate,
		Status:               model.CertificateDraft,
		CreatedBy:            input.Principal.Identity(),
		UpdatedBy:            input.Principal.Identity(),
		CreatedAt:            now,
		UpdatedAt:            now,
		StatusHistory: []model.StatusChange{{
			Status:    string(model.CertificateDraft),
			ChangedBy: input.Principal.Identity(),
			ChangedAt: now,
			Notes:     "certificate created",
		}},
	}
	if err := s.repo.Create(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// nextNumber assigns the next human-readable certificate number, either
// period-scoped (BA-YYYYMM-0001) or project-scoped (BA-<first8>-001).
// Sequence is count+1 with a bounded retry on collision, same scheme as the
// project code generator.
func (s *CertificateService) nextNumber(ctx context.Context, projectID string, periodScoped bool) (string, error) {
	now := s.now()

	var count int64
	var err error
	if periodScoped {
		count, err = s.repo.CountForPeriod(ctx, now.Year(), now.Month())
	} else {
		count, err = s.repo.CountForProject(ctx, projectID)
	}
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		seq := count + 1 + int64(attempt)
		var number string
		if periodScoped {
			number = fmt.Sprintf("BA-%d%02d-%04d", now.Year(), int(now.Month()), seq)
		} else {
			prefix := projectID
			if len(prefix) > 8 {
				prefix = prefix[:8]
			}
			number = fmt.Sprintf("BA-%s-%03d", prefix, seq)
		}
		taken, err := s.repo.NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}

	// All sequential candidates collided; fall back to a timestamp number.
	return fmt.Sprintf("BA-%s", now.Format("20060102150405")), nil
}

func (s *CertificateService) Get(ctx context.Context, projectID string, id uuid.UUID) (*model.CompletionCertificate, error) {
	return s.repo.GetByID(ctx, projectID, id)
}

func (s *CertificateService) List(ctx context.Context, projectID string) ([]model.CompletionCertificate, error) {
	return s.repo.ListForProject(ctx, projectID)
}

func (s *CertificateService) Submit(ctx context.Context, projectID string, id uuid.UUID, principal model.Principal) (*model.CompletionCertificate, error) {
	cert, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if cert.Status != model.CertificateDraft {
		return nil, fmt.Errorf("%w: only draft certificates can be submitted", ErrInvalidStateTransition)
	}

	now := s.now()
	identity := principal.Identity()
	cert.Status = model.CertificateSubmitted
	cert.SubmittedBy = &identity
	cert.SubmittedAt = &now
	cert.UpdatedBy = identity
	cert.UpdatedAt = now
	cert.StatusHistory = append(cert.StatusHistory, model.StatusChange{
		Status:         string(model.CertificateSubmitted),
		PreviousStatus: string(model.CertificateDraft),
		ChangedBy:      identity,
		ChangedAt:      now,
		Notes:          "submitted for review",
	})

	return s.applyTransition(ctx, cert, model.CertificateDraft)
}

func (s *CertificateService) MarkForReview(ctx context.Context, projectID string, id uuid.UUID, principal model.Principal) (*model.CompletionCertificate, error) {
	cert, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if cert.Status != model.CertificateSubmitted {
		return nil, fmt.Errorf("%w: only submitted certificates can move to client review", ErrInvalidStateTransition)
	}

	now := s.now()
	identity := principal.Identity()
	cert.Status = model.CertificateClientReview
	cert.UpdatedBy = identity
	cert.UpdatedAt = now
	cert.StatusHistory = append(cert.StatusHistory, model.StatusChange{
		Status:         string(model.CertificateClientReview),
		PreviousStatus: string(model.CertificateSubmitted),
		ChangedBy:      identity,
		ChangedAt:      now,
		Notes:          "marked for client review",
	})

	return s.applyTransition(ctx, cert, model.CertificateSubmitted)
}

// Approve moves the certificate into its terminal approved state. This is
// the only place payment authorization can be granted: the flag is set
// exactly once, together with a due date one payment term out, in the same
// update.
func (s *CertificateService) Approve(ctx context.Context, projectID string, id uuid.UUID, principal model.Principal, notes string) (*model.CompletionCertificate, error) {
	cert, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if cert.Status == model.CertificateApproved {
		return nil, ErrAlreadyApproved
	}
	if cert.Status != model.CertificateSubmitted && cert.Status != model.CertificateClientReview {
		return nil, fmt.Errorf("%w: cannot approve from %s", ErrInvalidStateTransition, cert.Status)
	}

	now := s.now()
	identity := principal.Identity()
	dueDate := now.AddDate(0, 0, s.terms.termsDays())
	previous := cert.Status

	cert.Status = model.CertificateApproved
	cert.ApprovedBy = &identity
	cert.ApprovedAt = &now
	if strings.TrimSpace(notes) != "" {
		cert.ApprovalNotes = &notes
	}
	cert.PaymentAuthorized = true
	cert.PaymentDueDate = &dueDate
	cert.UpdatedBy = identity
	cert.UpdatedAt = now
	cert.StatusHistory = append(cert.StatusHistory, model.StatusChange{
		Status:         string(model.CertificateApproved),
		PreviousStatus: string(previous),
		ChangedBy:      identity,
		ChangedAt:      now,
		Notes:          notes,
	})

	return s.applyTransition(ctx, cert, previous)
}

func (s *CertificateService) Reject(ctx context.Context, projectID string, id uuid.UUID, principal model.Principal, reason string) (*model.CompletionCertificate, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}

	cert, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if cert.Status == model.CertificateApproved {
		return nil, fmt.Errorf("%w: approved certificates cannot be rejected", ErrInvalidStateTransition)
	}
	if cert.Status == model.CertificateRejected {
		return nil, fmt.Errorf("%w: certificate is already rejected", ErrInvalidStateTransition)
	}

	now := s.now()
	identity := principal.Identity()
	reason = strings.TrimSpace(reason)
	previous := cert.Status

	cert.Status = model.CertificateRejected
	cert.RejectionReason = &reason
	cert.UpdatedBy = identity
	cert.UpdatedAt = now
	cert.StatusHistory = append(cert.StatusHistory, model.StatusChange{
		Status:         string(model.CertificateRejected),
		PreviousStatus: string(previous),
		ChangedBy:      identity,
		ChangedAt:      now,
		Notes:          "rejected: " + reason,
	})

	return s.applyTransition(ctx, cert, previous)
}

func (s *CertificateService) Delete(ctx context.Context, projectID string, id uuid.UUID) error {
	cert, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return err
	}
	if cert.Status == model.CertificateApproved {
		return fmt.Errorf("%w: approved certificates cannot be deleted", ErrImmutableRecord)
	}
	return s.repo.Delete(ctx, projectID, id)
}

// ClientSign records the client signature on an already approved
// certificate. One signature only; status stays approved.
func (s *CertificateService) ClientSign(ctx context.Context, projectID string, id uuid.UUID, signature, representative string, principal model.Principal) (*model.CompletionCertificate, error) {
	if strings.TrimSpace(signature) == "" || strings.TrimSpace(representative) == "" {
		return nil, fmt.Errorf("%w: signature and representative are required", ErrValidation)
	}

	cert, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if cert.Status != model.CertificateApproved {
		return nil, fmt.Errorf("%w: certificate must be approved before signing", ErrPreconditionFailed)
	}
	if cert.ClientSignature != nil {
		return nil, fmt.Errorf("%w: client has already signed", ErrInvalidStateTransition)
	}

	now := s.now()
	cert.ClientSignature = &signature
	cert.ClientRepresentative = &representative
	cert.ClientSignDate = &now
	cert.UpdatedBy = principal.Identity()
	cert.UpdatedAt = now
	cert.StatusHistory = append(cert.StatusHistory, model.StatusChange{
		Status:         string(model.CertificateApproved),
		PreviousStatus: string(model.CertificateApproved),
		ChangedBy:      principal.Identity(),
		ChangedAt:      now,
		Notes:          "client signature added by " + representative,
	})

	return s.applyTransition(ctx, cert, model.CertificateApproved)
}

type HandoverResult struct {
	FileName string
	Content  []byte
}

// GenerateDocument renders the printable handover certificate. Only approved
// certificates have a document; drafts and rejections do not.
func (s *CertificateService) GenerateDocument(ctx context.Context, projectID string, id uuid.UUID) (*HandoverResult, error) {
	cert, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if cert.Status != model.CertificateApproved {
		return nil, fmt.Errorf("%w: certificate must be approved before the document can be generated", ErrPreconditionFailed)
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	content, err := s.renderer.GenerateHandover(model.HandoverDocument{
		Certificate: *cert,
		Project:     *project,
	})
	if err != nil {
		return nil, err
	}
	return &HandoverResult{
		FileName: fmt.Sprintf("%s.pdf", cert.Number),
		Content:  content,
	}, nil
}

func (s *CertificateService) applyTransition(ctx context.Context, cert *model.CompletionCertificate, from model.CertificateStatus) (*model.CompletionCertificate, error) {
	applied, err := s.repo.UpdateFrom(ctx, cert, from)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: certificate changed concurrently", ErrInvalidStateTransition)
	}
	return cert, nil
}
