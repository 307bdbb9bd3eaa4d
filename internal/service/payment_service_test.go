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

type fakePaymentRepo struct {
	payments    map[uuid.UUID]*model.ProgressPayment
	takenNumber string
	updateFails bool
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[uuid.UUID]*model.ProgressPayment{}}
}

func (f *fakePaymentRepo) GetByID(_ context.Context, projectID string, id uuid.UUID) (*model.ProgressPayment, error) {
	payment, ok := f.payments[id]
	if !ok || payment.ProjectID != projectID {
		return nil, ErrNotFound
	}
	copied := *payment
	return &copied, nil
}

func (f *fakePaymentRepo) Create(_ context.Context, payment *model.ProgressPayment) error {
	copied := *payment
	f.payments[payment.ID] = &copied
	return nil
}

func (f *fakePaymentRepo) UpdateFrom(_ context.Context, payment *model.ProgressPayment, from model.PaymentStatus) (bool, error) {
	if f.updateFails {
		return false, nil
	}
	current, ok := f.payments[payment.ID]
	if !ok || current.Status != from {
		return false, nil
	}
	copied := *payment
	f.payments[payment.ID] = &copied
	return true, nil
}

func (f *fakePaymentRepo) Delete(_ context.Context, _ string, id uuid.UUID) error {
	delete(f.payments, id)
	return nil
}

func (f *fakePaymentRepo) ListForProject(_ context.Context, projectID string) ([]model.ProgressPayment, error) {
	var out []model.ProgressPayment
	for _, payment := range f.payments {
		if payment.ProjectID == projectID {
			out = append(out, *payment)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) InvoiceNumberExists(_ context.Context, number string) (bool, error) {
	if number == f.takenNumber {
		return true, nil
	}
	for _, payment := range f.payments {
		if payment.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

type fakeProjectReader struct {
	project *model.Project
}

func (f fakeProjectReader) Get(_ context.Context, projectID string) (*model.Project, error) {
	if f.project == nil || f.project.ID != projectID {
		return nil, ErrNotFound
	}
	copied := *f.project
	return &copied, nil
}

type fakeFileStore struct {
	stored map[string][]byte
}

func (f *fakeFileStore) Store(_ context.Context, data []byte, kind string) (string, error) {
	if f.stored == nil {
		f.stored = map[string][]byte{}
	}
	ref := kind + "/evidence-" + uuid.NewString()
	f.stored[ref] = data
	return ref, nil
}

type fakeInvoiceRenderer struct{}

func (fakeInvoiceRenderer) GenerateInvoice(_ model.InvoiceDocument) ([]byte, error) {
	return []byte("%PDF-1.4 fake"), nil
}

type paymentFixture struct {
	svc   *PaymentService
	repo  *fakePaymentRepo
	certs *fakeCertificateRepo
	cert  *model.CompletionCertificate
	at    time.Time
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	at := time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC)
	dueDate := at.AddDate(0, 0, 30)
	approvedAt := at.AddDate(0, 0, -2)

	certs := newFakeCertificateRepo()
	cert := &model.CompletionCertificate{
		ID:                uuid.New(),
		ProjectID:         "2025HDL001",
		Number:            "BA-2025HDL0-001",
		Status:            model.CertificateApproved,
		PaymentAuthorized: true,
		PaymentDueDate:    &dueDate,
		ApprovedAt:        &approvedAt,
		CreatedAt:         approvedAt,
	}
	certs.certs[cert.ID] = cert

	repo := newFakePaymentRepo()
	terms := FinanceTerms{TaxRate: 0.11, RetentionRate: 0.05, PaymentTermsDays: 30}
	svc := NewPaymentService(repo, certs, fakeProjectReader{project: &model.Project{ID: "2025HDL001", Name: "Headquarters Tower"}}, &fakeFileStore{}, fakeInvoiceRenderer{}, terms)
	svc.now = func() time.Time { return at }
	svc.randSuffix = func() int { return 42 }

	return &paymentFixture{svc: svc, repo: repo, certs: certs, cert: cert, at: at}
}

func money(v float64) *float64 {
	return &v
}

func TestPaymentCreate(t *testing.T) {
	fx := newPaymentFixture(t)

	payment, err := fx.svc.Create(context.Background(), "2025HDL001", CreatePaymentInput{
		CertificateID:   fx.cert.ID,
		Amount:          100_000_000,
		Percentage:      40,
		TaxAmount:       money(11_000_000),
		RetentionAmount: money(5_000_000),
		Principal:       testPrincipal,
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentPendingBA, payment.Status)
	assert.InDelta(t, 84_000_000, payment.NetAmount, 0.001)
	assert.Equal(t, "INV-2025HDL001-20250415-042", payment.InvoiceNumber)
	// Falls back to the certificate's authorized due date.
	assert.Equal(t, *fx.cert.PaymentDueDate, payment.DueDate)
	assert.Equal(t, fx.cert.ApprovedAt, payment.BAApprovedAt)
}

func TestPaymentCreate_DeductionsDefaultToConfiguredRates(t *testing.T) {
	fx := newPaymentFixture(t)
	fx.cert.PaymentDueDate = nil
	fx.svc.terms = FinanceTerms{TaxRate: 0.11, RetentionRate: 0.05, PaymentTermsDays: 45}

	payment, err := fx.svc.Create(context.Background(), "2025HDL001", CreatePaymentInput{
		CertificateID: fx.cert.ID,
		Amount:        100_000_000,
		Percentage:    40,
		Principal:     testPrincipal,
	})
	require.NoError(t, err)

	assert.InDelta(t, 11_000_000, payment.TaxAmount, 0.001)
	assert.InDelta(t, 5_000_000, payment.RetentionAmount, 0.001)
	assert.InDelta(t, 84_000_000, payment.NetAmount, 0.001)
	// Without an authorized due date the configured payment terms apply.
	assert.Equal(t, fx.at.AddDate(0, 0, 45), payment.DueDate)

	// An explicit zero overrides the configured rate.
	zeroTax, err := fx.svc.Create(context.Background(), "2025HDL001", CreatePaymentInput{
		CertificateID: fx.cert.ID,
		Amount:        100_000_000,
		TaxAmount:     money(0),
		Principal:     testPrincipal,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0, zeroTax.TaxAmount, 0.001)
	assert.InDelta(t, 95_000_000, zeroTax.NetAmount, 0.001)
}

func TestPaymentCreate_RequiresApprovedCertificate(t *testing.T) {
	fx := newPaymentFixture(t)
	fx.cert.Status = model.CertificateSubmitted

	_, err := fx.svc.Create(context.Background(), "2025HDL001", CreatePaymentInput{
		CertificateID: fx.cert.ID,
		Amount:        1000,
		Principal:     testPrincipal,
	})
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestPaymentCreate_Validation(t *testing.T) {
	fx := newPaymentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, "2025HDL001", CreatePaymentInput{
		CertificateID: fx.cert.ID, Amount: 0, Principal: testPrincipal,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = fx.svc.Create(ctx, "2025HDL001", CreatePaymentInput{
		CertificateID: fx.cert.ID, Amount: 1000, Percentage: 150, Principal: testPrincipal,
	})
	assert.ErrorIs(t, err, ErrValidation)

	// Deductions larger than gross make the net negative.
	_, err = fx.svc.Create(ctx, "2025HDL001", CreatePaymentInput{
		CertificateID: fx.cert.ID, Amount: 1000, TaxAmount: money(900), RetentionAmount: money(200), Principal: testPrincipal,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = fx.svc.Create(ctx, "2025HDL001", CreatePaymentInput{
		CertificateID: uuid.New(), Amount: 1000, Principal: testPrincipal,
	})
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestPaymentInvoiceNumber_CollisionFallsBackToTimestamp(t *testing.T) {
	fx := newPaymentFixture(t)
	// The random suffix is pinned, so every attempt collides.
	fx.repo.takenNumber = "INV-2025HDL001-20250415-042"

	payment, err := fx.svc.Create(context.Background(), "2025HDL001", CreatePaymentInput{
		CertificateID: fx.cert.ID,
		Amount:        1000,
		Principal:     testPrincipal,
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2025HDL001-20250415100000", payment.InvoiceNumber)
}

func createTestPayment(t *testing.T, fx *paymentFixture) *model.ProgressPayment {
	t.Helper()
	payment, err := fx.svc.Create(context.Background(), "2025HDL001", CreatePaymentInput{
		CertificateID:   fx.cert.ID,
		Amount:          100_000_000,
		TaxAmount:       money(11_000_000),
		RetentionAmount: money(5_000_000),
		Principal:       testPrincipal,
	})
	require.NoError(t, err)
	return payment
}

func approveTestPayment(t *testing.T, fx *paymentFixture, id uuid.UUID) *model.ProgressPayment {
	t.Helper()
	payment, err := fx.svc.UpdateStatus(context.Background(), "2025HDL001", id, "approved", "", testPrincipal)
	require.NoError(t, err)
	return payment
}

func TestPaymentUpdateStatus(t *testing.T) {
	fx := newPaymentFixture(t)
	ctx := context.Background()
	payment := createTestPayment(t, fx)

	approved := approveTestPayment(t, fx, payment.ID)
	assert.Equal(t, model.PaymentApproved, approved.Status)
	require.NotNil(t, approved.PaymentApprovedAt)

	processing, err := fx.svc.UpdateStatus(ctx, "2025HDL001", payment.ID, "processing", "", testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentProcessing, processing.Status)

	paid, err := fx.svc.UpdateStatus(ctx, "2025HDL001", payment.ID, "paid", "", testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = fx.svc.UpdateStatus(ctx, "2025HDL001", payment.ID, "processing", "", testPrincipal)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestPaymentUpdateStatus_RejectedAndUnknown(t *testing.T) {
	fx := newPaymentFixture(t)
	ctx := context.Background()
	payment := createTestPayment(t, fx)

	_, err := fx.svc.UpdateStatus(ctx, "2025HDL001", payment.ID, "teleported", "", testPrincipal)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	rejected, err := fx.svc.UpdateStatus(ctx, "2025HDL001", payment.ID, "rejected", "budget freeze", testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCancelled, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "budget freeze", *rejected.RejectionReason)

	_, err = fx.svc.UpdateStatus(ctx, "2025HDL001", payment.ID, "approved", "", testPrincipal)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestPaymentMarkInvoiceSent(t *testing.T) {
	fx := newPaymentFixture(t)
	ctx := context.Background()
	payment := createTestPayment(t, fx)
	approveTestPayment(t, fx, payment.ID)

	sentDate := fx.at.AddDate(0, 0, -1)
	sent, err := fx.svc.MarkInvoiceSent(ctx, "2025HDL001", payment.ID, MarkInvoiceSentInput{
		RecipientName:  "PT Hotel Development Ltd",
		SentDate:       sentDate,
		DeliveryMethod: "courier",
		CourierService: "JNE Trucking",
		Evidence:       []byte("photo"),
		Principal:      testPrincipal,
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentApproved, sent.Status)
	require.NotNil(t, sent.InvoiceSentAt)
	assert.Equal(t, sentDate, *sent.InvoiceSentAt)
	require.NotNil(t, sent.CourierService)
	require.NotNil(t, sent.SentEvidenceRef)
	assert.NotEmpty(t, *sent.SentEvidenceRef)
}

func TestPaymentMarkInvoiceSent_Validation(t *testing.T) {
	fx := newPaymentFixture(t)
	ctx := context.Background()
	payment := createTestPayment(t, fx)

	valid := MarkInvoiceSentInput{
		RecipientName:  "PT Hotel Development Ltd",
		SentDate:       fx.at.AddDate(0, 0, -1),
		DeliveryMethod: "email",
		Evidence:       []byte("photo"),
		Principal:      testPrincipal,
	}

	// Not approved yet.
	_, err := fx.svc.MarkInvoiceSent(ctx, "2025HDL001", payment.ID, valid)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	approveTestPayment(t, fx, payment.ID)

	cases := []struct {
		name   string
		mutate func(*MarkInvoiceSentInput)
	}{
		{"short recipient", func(in *MarkInvoiceSentInput) { in.RecipientName = "AB" }},
		{"future sent date", func(in *MarkInvoiceSentInput) { in.SentDate = fx.at.AddDate(0, 0, 1) }},
		{"missing method", func(in *MarkInvoiceSentInput) { in.DeliveryMethod = "" }},
		{"courier without service", func(in *MarkInvoiceSentInput) {
			in.DeliveryMethod = "courier"
			in.CourierService = ""
		}},
		{"missing evidence", func(in *MarkInvoiceSentInput) { in.Evidence = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := fx.svc.MarkInvoiceSent(ctx, "2025HDL001", payment.ID, input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestPaymentConfirm(t *testing.T) {
	fx := newPaymentFixture(t)
	ctx := context.Background()
	payment := createTestPayment(t, fx)
	approveTestPayment(t, fx, payment.ID)

	confirmed, err := fx.svc.ConfirmPayment(ctx, "2025HDL001", payment.ID, ConfirmPaymentInput{
		PaidAmount:       84_000_000,
		PaidDate:         fx.at,
		BankAccount:      "BCA 123-456-7890",
		PaymentReference: "TRF/2025/0415",
		Evidence:         []byte("bank slip"),
		Principal:        testPrincipal,
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentPaid, confirmed.Status)
	require.NotNil(t, confirmed.PaidAmount)
	assert.InDelta(t, 84_000_000, *confirmed.PaidAmount, 0.001)
	require.NotNil(t, confirmed.PaidEvidenceRef)
}

func TestPaymentConfirm_Guards(t *testing.T) {
	fx := newPaymentFixture(t)
	ctx := context.Background()
	payment := createTestPayment(t, fx)
	approveTestPayment(t, fx, payment.ID)

	sentDate := fx.at.AddDate(0, 0, -1)
	_, err := fx.svc.MarkInvoiceSent(ctx, "2025HDL001", payment.ID, MarkInvoiceSentInput{
		RecipientName:  "PT Hotel Development Ltd",
		SentDate:       sentDate,
		DeliveryMethod: "email",
		Evidence:       []byte("photo"),
		Principal:      testPrincipal,
	})
	require.NoError(t, err)

	base := ConfirmPaymentInput{
		PaidAmount:  84_000_000,
		PaidDate:    fx.at,
		BankAccount: "BCA 123-456-7890",
		Evidence:    []byte("bank slip"),
		Principal:   testPrincipal,
	}

	missing := base
	missing.Evidence = nil
	_, err = fx.svc.ConfirmPayment(ctx, "2025HDL001", payment.ID, missing)
	assert.ErrorIs(t, err, ErrEvidenceRequired)

	offByMore := base
	offByMore.PaidAmount = 84_000_000.05
	_, err = fx.svc.ConfirmPayment(ctx, "2025HDL001", payment.ID, offByMore)
	assert.ErrorIs(t, err, ErrAmountMismatch)

	withinTolerance := base
	withinTolerance.PaidAmount = 84_000_000.005
	beforeSent := withinTolerance
	beforeSent.PaidDate = sentDate.AddDate(0, 0, -1)
	_, err = fx.svc.ConfirmPayment(ctx, "2025HDL001", payment.ID, beforeSent)
	assert.ErrorIs(t, err, ErrDateOrderViolation)

	noBank := base
	noBank.BankAccount = "  "
	_, err = fx.svc.ConfirmPayment(ctx, "2025HDL001", payment.ID, noBank)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = fx.svc.ConfirmPayment(ctx, "2025HDL001", payment.ID, withinTolerance)
	require.NoError(t, err)
}

func TestPaymentDelete_PaidIsImmutable(t *testing.T) {
	fx := newPaymentFixture(t)
	ctx := context.Background()
	payment := createTestPayment(t, fx)
	approveTestPayment(t, fx, payment.ID)
	_, err := fx.svc.UpdateStatus(ctx, "2025HDL001", payment.ID, "paid", "", testPrincipal)
	require.NoError(t, err)

	err = fx.svc.Delete(ctx, "2025HDL001", payment.ID)
	assert.ErrorIs(t, err, ErrImmutableRecord)
}

func TestPaymentGenerateInvoice(t *testing.T) {
	fx := newPaymentFixture(t)
	payment := createTestPayment(t, fx)

	result, err := fx.svc.GenerateInvoice(context.Background(), "2025HDL001", payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.InvoiceNumber+".pdf", result.FileName)
	assert.NotEmpty(t, result.Content)
}

func TestPaymentSummary(t *testing.T) {
	fx := newPaymentFixture(t)
	ctx := context.Background()

	first := createTestPayment(t, fx)
	approveTestPayment(t, fx, first.ID)
	_, err := fx.svc.UpdateStatus(ctx, "2025HDL001", first.ID, "paid", "", testPrincipal)
	require.NoError(t, err)

	second := createTestPayment(t, fx)
	_, err = fx.svc.UpdateStatus(ctx, "2025HDL001", second.ID, "rejected", "duplicate", testPrincipal)
	require.NoError(t, err)

	createTestPayment(t, fx)

	summary, err := fx.svc.Summary(ctx, "2025HDL001")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalPayments)
	assert.InDelta(t, 300_000_000, summary.TotalAmount, 0.001)
	assert.InDelta(t, 84_000_000, summary.PaidAmount, 0.001)
	// Cancelled entries never count toward the outstanding balance.
	assert.InDelta(t, 84_000_000, summary.PendingAmount, 0.001)
	assert.Equal(t, 1, summary.StatusCounts[model.PaymentPaid])
	assert.Equal(t, 1, summary.StatusCounts[model.PaymentCancelled])
	assert.Equal(t, 1, summary.StatusCounts[model.PaymentPendingBA])
}
