package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/nusakarya/projectledger/internal/model"
	"github.com/nusakarya/projectledger/internal/service"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			name,
			client_name,
			location,
			subsidiary_code,
			budget,
			progress,
			status,
			start_date,
			end_date,
			created_by,
			updated_by,
			created_at,
			updated_at
		FROM projects
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&project).Error
	if err != nil {
		return nil, err
	}
	if project.ID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return &project, nil
}

func (r *ProjectRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM projects WHERE id = ?
	`, id).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO projects (
			id,
			name,
			client_name,
			location,
			subsidiary_code,
			budget,
			progress,
			status,
			start_date,
			end_date,
			created_by,
			updated_by,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		project.ID,
		project.Name,
		project.ClientName,
		project.Location,
		project.SubsidiaryCode,
		project.Budget,
		project.Progress,
		project.Status,
		project.StartDate,
		project.EndDate,
		project.CreatedBy,
		project.UpdatedBy,
		project.CreatedAt,
		project.UpdatedAt,
	).Error
}

func (r *ProjectRepository) Update(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE projects
		SET
			name = ?,
			client_name = ?,
			location = ?,
			budget = ?,
			progress = ?,
			status = ?,
			start_date = ?,
			end_date = ?,
			updated_by = ?,
			updated_at = ?
		WHERE id = ?
	`,
		project.Name,
		project.ClientName,
		project.Location,
		project.Budget,
		project.Progress,
		project.Status,
		project.StartDate,
		project.EndDate,
		project.UpdatedBy,
		project.UpdatedAt,
		project.ID,
	).Error
}

func (r *ProjectRepository) CountCodesWithPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM projects WHERE id LIKE ?
	`, prefix+"%").Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ProjectRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM projects WHERE id = ?
	`, code).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CascadeStore runs the project deletion cascade inside one transaction.
type CascadeStore struct {
	db *gorm.DB
}

func NewCascadeStore(db *gorm.DB) *CascadeStore {
	return &CascadeStore{db: db}
}

func (s *CascadeStore) InTransaction(ctx context.Context, fn func(tx service.CascadeTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&cascadeTx{tx: tx})
	})
}

type cascadeTx struct {
	tx *gorm.DB
}

func (c *cascadeTx) exec(query string, args ...interface{}) (int64, error) {
	result := c.tx.Exec(query, args...)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (c *cascadeTx) DeleteReceipts(projectID string) (int64, error) {
	return c.exec(`DELETE FROM delivery_receipts WHERE project_id = ?`, projectID)
}

func (c *cascadeTx) DeletePurchaseOrders(projectID string) (int64, error) {
	if _, err := c.exec(`
		DELETE FROM purchase_order_items
		WHERE purchase_order_id IN (SELECT id FROM purchase_orders WHERE project_id = ?)
	`, projectID); err != nil {
		return 0, err
	}
	return c.exec(`DELETE FROM purchase_orders WHERE project_id = ?`, projectID)
}

// DeleteCertificates also removes the payments that hang off each
// certificate; the reported count covers certificates only.
func (c *cascadeTx) DeleteCertificates(projectID string) (int64, error) {
	if _, err := c.exec(`DELETE FROM progress_payments WHERE project_id = ?`, projectID); err != nil {
		return 0, err
	}
	return c.exec(`DELETE FROM completion_certificates WHERE project_id = ?`, projectID)
}

func (c *cascadeTx) DeleteBudgetLines(projectID string) (int64, error) {
	return c.exec(`DELETE FROM rab_items WHERE project_id = ?`, projectID)
}

func (c *cascadeTx) DeleteTeamMembers(projectID string) (int64, error) {
	return c.exec(`DELETE FROM team_members WHERE project_id = ?`, projectID)
}

func (c *cascadeTx) DeleteMilestones(projectID string) (int64, error) {
	return c.exec(`DELETE FROM milestones WHERE project_id = ?`, projectID)
}

func (c *cascadeTx) DeleteDocuments(projectID string) (int64, error) {
	return c.exec(`DELETE FROM project_documents WHERE project_id = ?`, projectID)
}

func (c *cascadeTx) DeleteProject(projectID string) (int64, error) {
	return c.exec(`DELETE FROM projects WHERE id = ?`, projectID)
}
