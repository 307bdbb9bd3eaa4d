package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nusakarya/projectledger/internal/model"
	"github.com/nusakarya/projectledger/internal/progress"
)

// POStageRow is one purchase order as seen by the aggregator: its approval
// state and whether a received/completed delivery exists for it.
type POStageRow struct {
	PONumber   string
	Status     model.POStatus
	ApprovedAt *time.Time
	HasReceipt bool
}

// BudgetStageRow is the raw approved-line picture for a category: how many
// lines have been approved and their combined value.
type BudgetStageRow struct {
	ApprovedCount int
	TotalValue    float64
}

type MilestoneRepository interface {
	Get(ctx context.Context, projectID string, id uuid.UUID) (*model.Milestone, error)
	BudgetStage(ctx context.Context, projectID, category string) (BudgetStageRow, error)
	ProcurementRows(ctx context.Context, projectID, category string) ([]POStageRow, error)
	CertificationStage(ctx context.Context, projectID string, milestoneID uuid.UUID) (model.PercentStage, error)
	PaidValue(ctx context.Context, projectID string, milestoneID uuid.UUID) (int, float64, error)
	// SaveSnapshot writes the snapshot, overall percentage, and sync
	// timestamp back onto the milestone row in one update.
	SaveSnapshot(ctx context.Context, milestone *model.Milestone) error
}

type MilestoneService struct {
	repo MilestoneRepository
	now  func() time.Time
}

func NewMilestoneService(repo MilestoneRepository) *MilestoneService {
	return &MilestoneService{repo: repo, now: time.Now}
}

// SyncProgress computes the five-stage workflow snapshot for a
// category-linked milestone and persists it in the same operation. Reading
// progress without persisting would let the cached value drift from the live
// chain, so there is deliberately no separate read-only variant.
func (s *MilestoneService) SyncProgress(ctx context.Context, projectID string, milestoneID uuid.UUID) (*model.Milestone, error) {
	milestone, err := s.repo.Get(ctx, projectID, milestoneID)
	if err != nil {
		return nil, err
	}
	if milestone.CategoryName == nil || *milestone.CategoryName == "" {
		return nil, fmt.Errorf("%w: milestone is not linked to a budget category", ErrPreconditionFailed)
	}
	category := *milestone.CategoryName

	budgetRow, err := s.repo.BudgetStage(ctx, projectID, category)
	if err != nil {
		return nil, err
	}
	// The stage flips as soon as the category has an approved line; sibling
	// lines still under review do not hold it back.
	budgetStage := model.BudgetStage{
		Approved:   budgetRow.ApprovedCount > 0,
		TotalValue: budgetRow.TotalValue,
		TotalItems: budgetRow.ApprovedCount,
	}

	rows, err := s.repo.ProcurementRows(ctx, projectID, category)
	if err != nil {
		return nil, err
	}
	procurement, delivery, pending := foldProcurement(rows)

	certification, err := s.repo.CertificationStage(ctx, projectID, milestoneID)
	if err != nil {
		return nil, err
	}

	paidCount, paidValue, err := s.repo.PaidValue(ctx, projectID, milestoneID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	snapshot := model.WorkflowProgress{
		BudgetApproved: budgetStage,
		Procurement:    procurement,
		Delivery:       delivery,
		Certification:  certification,
		Payment: model.ValueStage{
			PaidCount:  paidCount,
			PaidValue:  paidValue,
			TotalValue: budgetStage.TotalValue,
		},
		Alerts: progress.DeliveryAlerts(pending, now),
	}

	milestone.WorkflowProgress = &snapshot
	milestone.Progress = progress.Overall(snapshot)
	milestone.LastSynced = &now
	milestone.UpdatedAt = now

	if err := s.repo.SaveSnapshot(ctx, milestone); err != nil {
		return nil, err
	}
	return milestone, nil
}

// foldProcurement derives the procurement and delivery stage counters from
// the raw PO rows. Received orders count as approved for the procurement
// fraction; the delivery fraction is receipts over approved orders.
func foldProcurement(rows []POStageRow) (model.CountStage, model.CountStage, []progress.PendingPO) {
	var procurement, delivery model.CountStage
	pending := make([]progress.PendingPO, 0, len(rows))

	for _, row := range rows {
		if row.Status == model.POStatusCancelled {
			continue
		}
		procurement.Total++
		approved := row.Status == model.POStatusApproved || row.Status == model.POStatusReceived
		if !approved {
			continue
		}
		procurement.Done++
		delivery.Total++
		if row.HasReceipt {
			delivery.Done++
		}
		if row.ApprovedAt != nil {
			pending = append(pending, progress.PendingPO{
				PONumber:   row.PONumber,
				ApprovedAt: *row.ApprovedAt,
				HasReceipt: row.HasReceipt,
			})
		}
	}
	return procurement, delivery, pending
}
