package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nusakarya/projectledger/internal/model"
	"github.com/nusakarya/projectledger/internal/service"
)

type MilestoneRepository struct {
	db *gorm.DB
}

func NewMilestoneRepository(db *gorm.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

type milestoneRow struct {
	ID               uuid.UUID
	ProjectID        string
	Title            string
	Description      string
	TargetDate       *time.Time
	Status           string
	CategoryName     *string
	Progress         int
	WorkflowProgress []byte
	LastSynced       *time.Time
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (row milestoneRow) toModel() (*model.Milestone, error) {
	milestone := &model.Milestone{
		ID:           row.ID,
		ProjectID:    row.ProjectID,
		Title:        row.Title,
		Description:  row.Description,
		TargetDate:   row.TargetDate,
		Status:       row.Status,
		CategoryName: row.CategoryName,
		Progress:     row.Progress,
		LastSynced:   row.LastSynced,
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(row.WorkflowProgress) > 0 {
		var wp model.WorkflowProgress
		if err := json.Unmarshal(row.WorkflowProgress, &wp); err != nil {
			return nil, err
		}
		milestone.WorkflowProgress = &wp
	}
	return milestone, nil
}

func (r *MilestoneRepository) Get(ctx context.Context, projectID string, id uuid.UUID) (*model.Milestone, error) {
	var row milestoneRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			project_id,
			title,
			description,
			target_date,
			status,
			category_name,
			progress,
			workflow_progress,
			last_synced,
			created_by,
			created_at,
			updated_at
		FROM milestones
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

func (r *MilestoneRepository) Create(ctx context.Context, milestone *model.Milestone) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO milestones (
			id,
			project_id,
			title,
			description,
			target_date,
			status,
			category_name,
			progress,
			created_by,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		milestone.ID,
		milestone.ProjectID,
		milestone.Title,
		milestone.Description,
		milestone.TargetDate,
		milestone.Status,
		milestone.CategoryName,
		milestone.Progress,
		milestone.CreatedBy,
		milestone.CreatedAt,
		milestone.UpdatedAt,
	).Error
}

// BudgetStage reads the approved budget picture for one category.
func (r *MilestoneRepository) BudgetStage(ctx context.Context, projectID, category string) (service.BudgetStageRow, error) {
	var row service.BudgetStageRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS approved_count,
			COALESCE(SUM(total_price), 0) AS total_value
		FROM rab_items
		WHERE project_id = ? AND category = ? AND approval_status = 'approved'
	`, projectID, category).Scan(&row).Error
	if err != nil {
		return service.BudgetStageRow{}, err
	}
	return row, nil
}

func (r *MilestoneRepository) ProcurementRows(ctx context.Context, projectID, category string) ([]service.POStageRow, error) {
	var rows []service.POStageRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			po.po_number,
			po.status,
			po.approved_at,
			EXISTS (
				SELECT 1 FROM delivery_receipts dr WHERE dr.purchase_order_id = po.id
			) AS has_receipt
		FROM purchase_orders po
		WHERE po.project_id = ?
			AND EXISTS (
				SELECT 1
				FROM purchase_order_items poi
				JOIN rab_items ri ON ri.id = poi.rab_item_id
				WHERE poi.purchase_order_id = po.id AND ri.category = ?
			)
		ORDER BY po.created_at
	`, projectID, category).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MilestoneRepository) CertificationStage(ctx context.Context, projectID string, milestoneID uuid.UUID) (model.PercentStage, error) {
	var stage model.PercentStage
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS count,
			COALESCE(AVG(completion_percentage), 0) AS avg_percent
		FROM completion_certificates
		WHERE project_id = ? AND milestone_id = ? AND status = 'approved'
	`, projectID, milestoneID).Scan(&stage).Error
	if err != nil {
		return model.PercentStage{}, err
	}
	return stage, nil
}

func (r *MilestoneRepository) PaidValue(ctx context.Context, projectID string, milestoneID uuid.UUID) (int, float64, error) {
	var row struct {
		PaidCount int
		PaidValue float64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS paid_count,
			COALESCE(SUM(pp.net_amount), 0) AS paid_value
		FROM progress_payments pp
		JOIN completion_certificates cc ON cc.id = pp.certificate_id
		WHERE pp.project_id = ? AND cc.milestone_id = ? AND pp.status = 'paid'
	`, projectID, milestoneID).Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.PaidCount, row.PaidValue, nil
}

func (r *MilestoneRepository) SaveSnapshot(ctx context.Context, milestone *model.Milestone) error {
	var snapshot []byte
	if milestone.WorkflowProgress != nil {
		var err error
		snapshot, err = json.Marshal(milestone.WorkflowProgress)
		if err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE milestones
		SET
			progress = ?,
			workflow_progress = ?,
			last_synced = ?,
			updated_at = ?
		WHERE project_id = ? AND id = ?
	`,
		milestone.Progress,
		snapshot,
		milestone.LastSynced,
		milestone.UpdatedAt,
		milestone.ProjectID,
		milestone.ID,
	).Error
}
