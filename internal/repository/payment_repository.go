package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nusakarya/projectledger/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id,
	project_id,
	certificate_id,
	amount,
	percentage,
	tax_amount,
	retention_amount,
	net_amount,
	due_date,
	status,
	invoice_number,
	invoice_date,
	ba_approved_at,
	payment_approved_by,
	payment_approved_at,
	rejected_by,
	rejected_at,
	rejection_reason,
	invoice_sent_at,
	invoice_recipient,
	delivery_method,
	courier_service,
	sent_evidence_ref,
	paid_at,
	paid_amount,
	bank_account,
	payment_reference,
	paid_evidence_ref,
	notes,
	created_by,
	updated_by,
	created_at,
	updated_at
`

func (r *PaymentRepository) GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.ProgressPayment, error) {
	var payment model.ProgressPayment
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+paymentColumns+`
		FROM progress_payments
		WHERE project_id = ? AND id = ?
		LIMIT 1
	`, projectID, id).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &payment, nil
}

func (r *PaymentRepository) Create(ctx context.Context, payment *model.ProgressPayment) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO progress_payments (
			id,
			project_id,
			certificate_id,
			amount,
			percentage,
			tax_amount,
			retention_amount,
			net_amount,
			due_date,
			status,
			invoice_number,
			invoice_date,
			ba_approved_at,
			notes,
			created_by,
			updated_by,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		payment.ID,
		payment.ProjectID,
		payment.CertificateID,
		payment.Amount,
		payment.Percentage,
		payment.TaxAmount,
		payment.RetentionAmount,
		payment.NetAmount,
		payment.DueDate,
		payment.Status,
		payment.InvoiceNumber,
		payment.InvoiceDate,
		payment.BAApprovedAt,
		payment.Notes,
		payment.CreatedBy,
		payment.UpdatedBy,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

// UpdateFrom writes the mutable state guarded by the expected current
// status; a false return means a concurrent transition won.
func (r *PaymentRepository) UpdateFrom(ctx context.Context, payment *model.ProgressPayment, from model.PaymentStatus) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE progress_payments
		SET
			status = ?,
			payment_approved_by = ?,
			payment_approved_at = ?,
			rejected_by = ?,
			rejected_at = ?,
			rejection_reason = ?,
			invoice_sent_at = ?,
			invoice_recipient = ?,
			delivery_method = ?,
			courier_service = ?,
			sent_evidence_ref = ?,
			paid_at = ?,
			paid_amount = ?,
			bank_account = ?,
			payment_reference = ?,
			paid_evidence_ref = ?,
			notes = ?,
			updated_by = ?,
			updated_at = ?
		WHERE project_id = ? AND id = ? AND status = ?
	`,
		payment.Status,
		payment.PaymentApprovedBy,
		payment.PaymentApprovedAt,
		payment.RejectedBy,
		payment.RejectedAt,
		payment.RejectionReason,
		payment.InvoiceSentAt,
		payment.InvoiceRecipient,
		payment.DeliveryMethod,
		payment.CourierService,
		payment.SentEvidenceRef,
		payment.PaidAt,
		payment.PaidAmount,
		payment.BankAccount,
		payment.PaymentReference,
		payment.PaidEvidenceRef,
		payment.Notes,
		payment.UpdatedBy,
		payment.UpdatedAt,
		payment.ProjectID,
		payment.ID,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PaymentRepository) Delete(ctx context.Context, projectID string, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM progress_payments WHERE project_id = ? AND id = ?
	`, projectID, id).Error
}

func (r *PaymentRepository) ListForProject(ctx context.Context, projectID string) ([]model.ProgressPayment, error) {
	var payments []model.ProgressPayment
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+paymentColumns+`
		FROM progress_payments
		WHERE project_id = ?
		ORDER BY created_at DESC
	`, projectID).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *PaymentRepository) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM progress_payments WHERE invoice_number = ?
	`, number).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
