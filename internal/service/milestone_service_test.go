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

type fakeMilestoneRepo struct {
	milestone     *model.Milestone
	budgetStage   BudgetStageRow
	rows          []POStageRow
	certification model.PercentStage
	paidCount     int
	paidValue     float64
	saved         *model.Milestone
}

func (f *fakeMilestoneRepo) Get(_ context.Context, projectID string, id uuid.UUID) (*model.Milestone, error) {
	if f.milestone == nil || f.milestone.ProjectID != projectID || f.milestone.ID != id {
		return nil, ErrNotFound
	}
	copied := *f.milestone
	return &copied, nil
}

func (f *fakeMilestoneRepo) BudgetStage(_ context.Context, _, _ string) (BudgetStageRow, error) {
	return f.budgetStage, nil
}

func (f *fakeMilestoneRepo) ProcurementRows(_ context.Context, _, _ string) ([]POStageRow, error) {
	return f.rows, nil
}

func (f *fakeMilestoneRepo) CertificationStage(_ context.Context, _ string, _ uuid.UUID) (model.PercentStage, error) {
	return f.certification, nil
}

func (f *fakeMilestoneRepo) PaidValue(_ context.Context, _ string, _ uuid.UUID) (int, float64, error) {
	return f.paidCount, f.paidValue, nil
}

func (f *fakeMilestoneRepo) SaveSnapshot(_ context.Context, milestone *model.Milestone) error {
	copied := *milestone
	f.saved = &copied
	return nil
}

func categoryMilestone(category string) *model.Milestone {
	m := &model.Milestone{
		ID:        uuid.New(),
		ProjectID: "2025HDL001",
		Title:     "Structural works",
	}
	if category != "" {
		m.CategoryName = &category
	}
	return m
}

func TestSyncProgress(t *testing.T) {
	at := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	approvedRecently := at.AddDate(0, 0, -2)
	approvedLongAgo := at.AddDate(0, 0, -20)

	repo := &fakeMilestoneRepo{
		milestone:   categoryMilestone("material"),
		budgetStage: BudgetStageRow{ApprovedCount: 4, TotalValue: 200_000_000},
		rows: []POStageRow{
			{PONumber: "PO-2025HDL0-001", Status: model.POStatusReceived, ApprovedAt: &approvedLongAgo, HasReceipt: true},
			{PONumber: "PO-2025HDL0-002", Status: model.POStatusApproved, ApprovedAt: &approvedLongAgo, HasReceipt: false},
			{PONumber: "PO-2025HDL0-003", Status: model.POStatusPending},
			{PONumber: "PO-2025HDL0-004", Status: model.POStatusCancelled},
			{PONumber: "PO-2025HDL0-005", Status: model.POStatusApproved, ApprovedAt: &approvedRecently, HasReceipt: false},
		},
		certification: model.PercentStage{Count: 2, AvgPercent: 50},
		paidCount:     1,
		paidValue:     100_000_000,
	}
	svc := NewMilestoneService(repo)
	svc.now = func() time.Time { return at }

	milestone, err := svc.SyncProgress(context.Background(), "2025HDL001", repo.milestone.ID)
	require.NoError(t, err)

	require.NotNil(t, milestone.WorkflowProgress)
	snapshot := milestone.WorkflowProgress

	assert.Equal(t, model.BudgetStage{Approved: true, TotalValue: 200_000_000, TotalItems: 4}, snapshot.BudgetApproved)

	// Cancelled orders are excluded from every counter.
	assert.Equal(t, model.CountStage{Done: 3, Total: 4}, snapshot.Procurement)
	assert.Equal(t, model.CountStage{Done: 1, Total: 3}, snapshot.Delivery)
	assert.Equal(t, model.ValueStage{PaidCount: 1, PaidValue: 100_000_000, TotalValue: 200_000_000}, snapshot.Payment)

	// Only the order stuck for 20 days without a receipt raises an alert.
	require.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, "PO-2025HDL0-002", snapshot.Alerts[0].PONumber)
	assert.Equal(t, "high", snapshot.Alerts[0].Severity)

	require.NotNil(t, milestone.LastSynced)
	assert.Equal(t, at, *milestone.LastSynced)
	assert.Greater(t, milestone.Progress, 0)

	// The computed snapshot is what got persisted.
	require.NotNil(t, repo.saved)
	assert.Equal(t, milestone.Progress, repo.saved.Progress)
	assert.Equal(t, snapshot, repo.saved.WorkflowProgress)
}

func TestSyncProgress_BudgetStageFromApprovedLines(t *testing.T) {
	// A single approved line flips the stage, regardless of how many sibling
	// lines are still under review. No approved lines means not approved.
	cases := []struct {
		name     string
		row      BudgetStageRow
		approved bool
	}{
		{"one approved line", BudgetStageRow{ApprovedCount: 1, TotalValue: 25_000_000}, true},
		{"nothing approved yet", BudgetStageRow{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeMilestoneRepo{
				milestone:   categoryMilestone("material"),
				budgetStage: tc.row,
			}
			svc := NewMilestoneService(repo)

			milestone, err := svc.SyncProgress(context.Background(), "2025HDL001", repo.milestone.ID)
			require.NoError(t, err)
			require.NotNil(t, milestone.WorkflowProgress)
			assert.Equal(t, tc.approved, milestone.WorkflowProgress.BudgetApproved.Approved)
			assert.Equal(t, tc.row.ApprovedCount, milestone.WorkflowProgress.BudgetApproved.TotalItems)
			assert.InDelta(t, tc.row.TotalValue, milestone.WorkflowProgress.BudgetApproved.TotalValue, 0.001)
		})
	}
}

func TestSyncProgress_RequiresCategoryLink(t *testing.T) {
	repo := &fakeMilestoneRepo{milestone: categoryMilestone("")}
	svc := NewMilestoneService(repo)

	_, err := svc.SyncProgress(context.Background(), "2025HDL001", repo.milestone.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestSyncProgress_UnknownMilestone(t *testing.T) {
	repo := &fakeMilestoneRepo{milestone: categoryMilestone("material")}
	svc := NewMilestoneService(repo)

	_, err := svc.SyncProgress(context.Background(), "2025HDL001", uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFoldProcurement_Empty(t *testing.T) {
	procurement, delivery, pending := foldProcurement(nil)
	assert.Equal(t, model.CountStage{}, procurement)
	assert.Equal(t, model.CountStage{}, delivery)
	assert.Empty(t, pending)
}
