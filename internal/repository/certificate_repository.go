package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nusakarya/projectledger/internal/model"
)

type CertificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// certificateRow mirrors the completion_certificates table; status_history
// lives in a JSONB column.
type certificateRow struct {
	ID                   uuid.UUID
	ProjectID            string
	MilestoneID          *uuid.UUID
	Number               string
	Type                 string
	WorkDescription      string
	CompletionPercentage float64
	CompletionDate       time.Time
	Status               string
	SubmittedBy          *string
	SubmittedAt          *time.Time
	ApprovedBy           *string
	ApprovedAt           *time.Time
	ApprovalNotes        *string
	RejectionReason      *string
	PaymentAuthorized    bool
	PaymentDueDate       *time.Time
	ClientSignature      *string
	ClientRepresentative *string
	ClientSignDate       *time.Time
	StatusHistory        []byte
	CreatedBy            string
	UpdatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

const certificateColumns = `
	id,
	project_id,
	milestone_id,
	number,
	type,
	work_description,
	completion_percentage,
	completion_date,
	status,
	submitted_by,
	submitted_at,
	approved_by,
	approved_at,
	approval_notes,
	rejection_reason,
	payment_authorized,
	payment_due_date,
	client_signature,
	client_representative,
	client_sign_date,
	status_history,
	created_by,
	updated_by,
	created_at,
	updated_at
`

func (row certificateRow) toModel() (*model.CompletionCertificate, error) {
	cert := &model.CompletionCertificate{
		ID:                   row.ID,
		ProjectID:            row.ProjectID,
		MilestoneID:          row.MilestoneID,
		Number:               row.Number,
		Type:                 model.CertificateType(row.Type),
		WorkDescription:      row.WorkDescription,
		CompletionPercentage: row.CompletionPercentage,
		CompletionDate:       row.CompletionDate,
		Status:               model.CertificateStatus(row.Status),
		SubmittedBy:          row.SubmittedBy,
		SubmittedAt:          row.SubmittedAt,
		ApprovedBy:           row.ApprovedBy,
		ApprovedAt:           row.ApprovedAt,
		ApprovalNotes:        row.ApprovalNotes,
		RejectionReason:      row.RejectionReason,
		PaymentAuthorized:    row.PaymentAuthorized,
		PaymentDueDate:       row.PaymentDueDate,
		ClientSignature:      row.ClientSignature,
		ClientRepresentative: row.ClientRepresentative,
		ClientSignDate:       row.ClientSignDate,
		CreatedBy:            row.CreatedBy,
		UpdatedBy:            row.UpdatedBy,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if len(row.StatusHistory) > 0 {
		if err := json.Unmarshal(row.StatusHistory, &cert.StatusHistory); err != nil {
			return nil, err
		}
	}
	return cert, nil
}

func (r *CertificateRepository) GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.CompletionCertificate, error) {
	var row certificateRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+certificateColumns+`
		FROM completion_certificates
		WHERE project_id = ? AND id = ?
		LIMIT 1
	`, projectID, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toModel()
}

func (r *CertificateRepository) ListForProject(ctx context.Context, projectID string) ([]model.CompletionCertificate, error) {
	var rows []certificateRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+certificateColumns+`
		FROM completion_certificates
		WHERE project_id = ?
		ORDER BY created_at DESC
	`, projectID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	certs := make([]model.CompletionCertificate, 0, len(rows))
	for _, row := range rows {
		cert, err := row.toModel()
		if err != nil {
			return nil, err
		}
		certs = append(certs, *cert)
	}
	return certs, nil
}

func (r *CertificateRepository) Create(ctx context.Context, cert *model.CompletionCertificate) error {
	history, err := json.Marshal(cert.StatusHistory)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO completion_certificates (
			id,
			project_id,
			milestone_id,
			number,
			type,
			work_description,
			completion_percentage,
			completion_date,
			status,
			payment_authorized,
			status_history,
			created_by,
			updated_by,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cert.ID,
		cert.ProjectID,
		cert.MilestoneID,
		cert.Number,
		cert.Type,
		cert.WorkDescription,
		cert.CompletionPercentage,
		cert.CompletionDate,
		cert.Status,
		cert.PaymentAuthorized,
		history,
		cert.CreatedBy,
		cert.UpdatedBy,
		cert.CreatedAt,
		cert.UpdatedAt,
	).Error
}

// UpdateFrom writes the full mutable state guarded by the expected current
// status. A false return means the row moved underneath the caller.
func (r *CertificateRepository) UpdateFrom(ctx context.Context, cert *model.CompletionCertificate, from model.CertificateStatus) (bool, error) {
	history, err := json.Marshal(cert.StatusHistory)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Exec(`
		UPDATE completion_certificates
		SET
			status = ?,
			submitted_by = ?,
			submitted_at = ?,
			approved_by = ?,
			approved_at = ?,
			approval_notes = ?,
			rejection_reason = ?,
			payment_authorized = ?,
			payment_due_date = ?,
			client_signature = ?,
			client_representative = ?,
			client_sign_date = ?,
			status_history = ?,
			updated_by = ?,
			updated_at = ?
		WHERE project_id = ? AND id = ? AND status = ?
	`,
		cert.Status,
		cert.SubmittedBy,
		cert.SubmittedAt,
		cert.ApprovedBy,
		cert.ApprovedAt,
		cert.ApprovalNotes,
		cert.RejectionReason,
		cert.PaymentAuthorized,
		cert.PaymentDueDate,
		cert.ClientSignature,
		cert.ClientRepresentative,
		cert.ClientSignDate,
		history,
		cert.UpdatedBy,
		cert.UpdatedAt,
		cert.ProjectID,
		cert.ID,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *CertificateRepository) Delete(ctx context.Context, projectID string, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM completion_certificates WHERE project_id = ? AND id = ?
	`, projectID, id).Error
}

func (r *CertificateRepository) CountForProject(ctx context.Context, projectID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM completion_certificates WHERE project_id = ?
	`, projectID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CertificateRepository) CountForPeriod(ctx context.Context, year int, month time.Month) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM completion_certificates
		WHERE EXTRACT(YEAR FROM created_at) = ?
			AND EXTRACT(MONTH FROM created_at) = ?
	`, year, int(month)).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CertificateRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM completion_certificates WHERE number = ?
	`, number).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
