package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nusakarya/projectledger/internal/model"
)

type fakeCertificateRepo struct {
	certs       map[uuid.UUID]*model.CompletionCertificate
	updateFails bool
}

func newFakeCertificateRepo() *fakeCertificateRepo {
	return &fakeCertificateRepo{certs: map[uuid.UUID]*model.CompletionCertificate{}}
}

func (f *fakeCertificateRepo) GetByID(_ context.Context, projectID string, id uuid.UUID) (*model.CompletionCertificate, error) {
	cert, ok := f.certs[id]
	if !ok || cert.ProjectID != projectID {
		return nil, ErrNotFound
	}
	copied := *cert
	return &copied, nil
}

func (f *fakeCertificateRepo) Create(_ context.Context, cert *model.CompletionCertificate) error {
	copied := *cert
	f.certs[cert.ID] = &copied
	return nil
}

func (f *fakeCertificateRepo) UpdateFrom(_ context.Context, cert *model.CompletionCertificate, from model.CertificateStatus) (bool, error) {
	if f.updateFails {
		return false, nil
	}
	current, ok := f.certs[cert.ID]
	if !ok || current.Status != from {
		return false, nil
	}
	copied := *cert
	f.certs[cert.ID] = &copied
	return true, nil
}

func (f *fakeCertificateRepo) Delete(_ context.Context, _ string, id uuid.UUID) error {
	delete(f.certs, id)
	return nil
}

func (f *fakeCertificateRepo) ListForProject(_ context.Context, projectID string) ([]model.CompletionCertificate, error) {
	var out []model.CompletionCertificate
	for _, cert := range f.certs {
		if cert.ProjectID == projectID {
			out = append(out, *cert)
		}
	}
	return out, nil
}

func (f *fakeCertificateRepo) CountForProject(_ context.Context, projectID string) (int64, error) {
	var count int64
	for _, cert := range f.certs {
		if cert.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

func (f *fakeCertificateRepo) CountForPeriod(_ context.Context, year int, month time.Month) (int64, error) {
	var count int64
	for _, cert := range f.certs {
		if cert.CreatedAt.Year() == year && cert.CreatedAt.Month() == month {
			count++
		}
	}
	return count, nil
}

func (f *fakeCertificateRepo) NumberExists(_ context.Context, number string) (bool, error) {
	for _, cert := range f.certs {
		if cert.Number == number {
			return true, nil
		}
	}
	return false, nil
}

type fakeProjectDirectory struct {
	existing map[string]bool
}

func (f fakeProjectDirectory) Exists(_ context.Context, projectID string) (bool, error) {
	return f.existing[projectID], nil
}

func (f fakeProjectDirectory) Get(_ context.Context, projectID string) (*model.Project, error) {
	if !f.existing[projectID] {
		return nil, ErrNotFound
	}
	return &model.Project{ID: projectID, Name: "Harbor Logistics Depot"}, nil
}

type fakeHandoverRenderer struct{}

func (fakeHandoverRenderer) GenerateHandover(_ model.HandoverDocument) ([]byte, error) {
	return []byte("%PDF-1.4 fake"), nil
}

func newCertificateServiceForTest(repo *fakeCertificateRepo, at time.Time) *CertificateService {
	svc := NewCertificateService(repo, fakeProjectDirectory{existing: map[string]bool{"2025HDL001": true}}, fakeHandoverRenderer{}, FinanceTerms{PaymentTermsDays: 30})
	svc.now = func() time.Time { return at }
	return svc
}

var testPrincipal = model.Principal{UserID: uuid.New(), Email: "pm@nusakarya.co.id", Role: model.RoleProjectManager}

func TestCertificateCreate_Defaults(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)

	cert, err := svc.Create(context.Background(), "2025HDL001", CreateCertificateInput{
		WorkDescription:      "Foundation works block A",
		CompletionPercentage: 40,
		CompletionDate:       at,
		Principal:            testPrincipal,
	})
	require.NoError(t, err)

	assert.Equal(t, model.CertificatePartial, cert.Type)
	assert.Equal(t, model.CertificateDraft, cert.Status)
	assert.Equal(t, "BA-2025HDL0-001", cert.Number)
	assert.False(t, cert.PaymentAuthorized)
	require.Len(t, cert.StatusHistory, 1)
	assert.Equal(t, string(model.CertificateDraft), cert.StatusHistory[0].Status)
}

func TestCertificateCreate_PeriodNumbering(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)

	cert, err := svc.Create(context.Background(), "2025HDL001", CreateCertificateInput{
		WorkDescription:      "Foundation works",
		CompletionPercentage: 40,
		CompletionDate:       at,
		PeriodNumbering:      true,
		Principal:            testPrincipal,
	})
	require.NoError(t, err)
	assert.Equal(t, "BA-202503-0001", cert.Number)
}

func TestCertificateCreate_NumberCollisionRetries(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)

	taken := &model.CompletionCertificate{
		ID:        uuid.New(),
		ProjectID: "other",
		Number:    "BA-2025HDL0-001",
		CreatedAt: at,
	}
	repo.certs[taken.ID] = taken

	cert, err := svc.Create(context.Background(), "2025HDL001", CreateCertificateInput{
		WorkDescription:      "Foundation works",
		CompletionPercentage: 40,
		CompletionDate:       at,
		Principal:            testPrincipal,
	})
	require.NoError(t, err)
	assert.Equal(t, "BA-2025HDL0-002", cert.Number)
}

func TestCertificateCreate_Validation(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)
	ctx := context.Background()

	_, err := svc.Create(ctx, "missing-project", CreateCertificateInput{
		WorkDescription: "x", CompletionPercentage: 10, CompletionDate: at, Principal: testPrincipal,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(ctx, "2025HDL001", CreateCertificateInput{
		WorkDescription: "  ", CompletionPercentage: 10, CompletionDate: at, Principal: testPrincipal,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, "2025HDL001", CreateCertificateInput{
		WorkDescription: "ok", CompletionPercentage: 120, CompletionDate: at, Principal: testPrincipal,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, "2025HDL001", CreateCertificateInput{
		WorkDescription: "ok", CompletionPercentage: 10, CompletionDate: at,
		Type: "imaginary", Principal: testPrincipal,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func createDraftCertificate(t *testing.T, svc *CertificateService, at time.Time) *model.CompletionCertificate {
	t.Helper()
	cert, err := svc.Create(context.Background(), "2025HDL001", CreateCertificateInput{
		WorkDescription:      "Structure works",
		CompletionPercentage: 55,
		CompletionDate:       at,
		Principal:            testPrincipal,
	})
	require.NoError(t, err)
	return cert
}

func TestCertificateApprovalFlow(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)
	ctx := context.Background()

	cert := createDraftCertificate(t, svc, at)

	submitted, err := svc.Submit(ctx, "2025HDL001", cert.ID, testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, model.CertificateSubmitted, submitted.Status)
	assert.False(t, submitted.PaymentAuthorized)

	approved, err := svc.Approve(ctx, "2025HDL001", cert.ID, testPrincipal, "looks good")
	require.NoError(t, err)
	assert.Equal(t, model.CertificateApproved, approved.Status)
	assert.True(t, approved.PaymentAuthorized)
	require.NotNil(t, approved.PaymentDueDate)
	assert.Equal(t, at.AddDate(0, 0, 30), *approved.PaymentDueDate)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, testPrincipal.Email, *approved.ApprovedBy)

	// Trail: created, submitted, approved.
	require.Len(t, approved.StatusHistory, 3)
	assert.Equal(t, string(model.CertificateApproved), approved.StatusHistory[2].Status)
	assert.Equal(t, string(model.CertificateSubmitted), approved.StatusHistory[2].PreviousStatus)
}

func TestCertificateApprove_DueDateFollowsConfiguredTerms(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)
	svc.terms = FinanceTerms{PaymentTermsDays: 45}
	ctx := context.Background()

	cert := createDraftCertificate(t, svc, at)
	_, err := svc.Submit(ctx, "2025HDL001", cert.ID, testPrincipal)
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, "2025HDL001", cert.ID, testPrincipal, "")
	require.NoError(t, err)
	require.NotNil(t, approved.PaymentDueDate)
	assert.Equal(t, at.AddDate(0, 0, 45), *approved.PaymentDueDate)
}

func TestCertificateApprove_OnlyFromSubmittedOrReview(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)
	ctx := context.Background()

	cert := createDraftCertificate(t, svc, at)

	_, err := svc.Approve(ctx, "2025HDL001", cert.ID, testPrincipal, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = svc.Submit(ctx, "2025HDL001", cert.ID, testPrincipal)
	require.NoError(t, err)
	_, err = svc.MarkForReview(ctx, "2025HDL001", cert.ID, testPrincipal)
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, "2025HDL001", cert.ID, testPrincipal, "")
	require.NoError(t, err)
	assert.Equal(t, model.CertificateApproved, approved.Status)

	_, err = svc.Approve(ctx, "2025HDL001", cert.ID, testPrincipal, "")
	assert.ErrorIs(t, err, ErrAlreadyApproved)
}

func TestCertificateReject(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)
	ctx := context.Background()

	cert := createDraftCertificate(t, svc, at)
	_, err := svc.Submit(ctx, "2025HDL001", cert.ID, testPrincipal)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, "2025HDL001", cert.ID, testPrincipal, "   ")
	assert.ErrorIs(t, err, ErrMissingReason)

	rejected, err := svc.Reject(ctx, "2025HDL001", cert.ID, testPrincipal, "incomplete documentation")
	require.NoError(t, err)
	assert.Equal(t, model.CertificateRejected, rejected.Status)
	assert.False(t, rejected.PaymentAuthorized)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "incomplete documentation", *rejected.RejectionReason)

	_, err = svc.Reject(ctx, "2025HDL001", cert.ID, testPrincipal, "again")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestCertificateDelete_ApprovedIsImmutable(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)
	ctx := context.Background()

	cert := createDraftCertificate(t, svc, at)
	_, err := svc.Submit(ctx, "2025HDL001", cert.ID, testPrincipal)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, "2025HDL001", cert.ID, testPrincipal, "")
	require.NoError(t, err)

	err = svc.Delete(ctx, "2025HDL001", cert.ID)
	assert.ErrorIs(t, err, ErrImmutableRecord)
}

func TestCertificateClientSign(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)
	ctx := context.Background()

	cert := createDraftCertificate(t, svc, at)

	_, err := svc.ClientSign(ctx, "2025HDL001", cert.ID, "sig-data", "Ir. Budi", testPrincipal)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = svc.Submit(ctx, "2025HDL001", cert.ID, testPrincipal)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, "2025HDL001", cert.ID, testPrincipal, "")
	require.NoError(t, err)

	signed, err := svc.ClientSign(ctx, "2025HDL001", cert.ID, "sig-data", "Ir. Budi", testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, model.CertificateApproved, signed.Status)
	require.NotNil(t, signed.ClientSignature)

	_, err = svc.ClientSign(ctx, "2025HDL001", cert.ID, "sig-data", "Ir. Budi", testPrincipal)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestCertificateGenerateDocument(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)
	ctx := context.Background()

	cert := createDraftCertificate(t, svc, at)

	_, err := svc.GenerateDocument(ctx, "2025HDL001", cert.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = svc.Submit(ctx, "2025HDL001", cert.ID, testPrincipal)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, "2025HDL001", cert.ID, testPrincipal, "")
	require.NoError(t, err)

	result, err := svc.GenerateDocument(ctx, "2025HDL001", cert.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.Number+".pdf", result.FileName)
	assert.NotEmpty(t, result.Content)
}

func TestCertificateSubmit_ConcurrentTransitionRejected(t *testing.T) {
	repo := newFakeCertificateRepo()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newCertificateServiceForTest(repo, at)

	cert := createDraftCertificate(t, svc, at)
	repo.updateFails = true

	_, err := svc.Submit(context.Background(), "2025HDL001", cert.ID, testPrincipal)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}
