package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nusakarya/projectledger/internal/budget"
	"github.com/nusakarya/projectledger/internal/model"
)

type fakeBudgetRepo struct {
	planned []budget.CategoryInput
	spend   []CategorySpend
	history []float64
}

func (f *fakeBudgetRepo) PlannedByCategory(_ context.Context, _ string) ([]budget.CategoryInput, error) {
	out := make([]budget.CategoryInput, len(f.planned))
	copy(out, f.planned)
	return out, nil
}

func (f *fakeBudgetRepo) SpendByCategory(_ context.Context, _ string) ([]CategorySpend, error) {
	return f.spend, nil
}

func (f *fakeBudgetRepo) HistoricalSpend(_ context.Context, _, _ string) ([]float64, error) {
	return f.history, nil
}

type fakeWorkbookGenerator struct{}

func (fakeWorkbookGenerator) GenerateBudgetWorkbook(_ model.Project, _ budget.Report) ([]byte, error) {
	return []byte("PK workbook"), nil
}

func newBudgetServiceForTest(repo *fakeBudgetRepo, at time.Time) *BudgetService {
	projects := fakeProjectReader{project: &model.Project{
		ID:       "2025HDL001",
		Name:     "Harbor Logistics Depot",
		Progress: 50,
	}}
	svc := NewBudgetService(repo, projects, fakeWorkbookGenerator{})
	svc.now = func() time.Time { return at }
	return svc
}

func TestBudgetMonitor_MeasuredSpend(t *testing.T) {
	at := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeBudgetRepo{
		planned: []budget.CategoryInput{
			{Category: "material", Planned: 100_000_000, ItemCount: 5},
			{Category: "labor", Planned: 50_000_000, ItemCount: 2},
		},
		spend: []CategorySpend{
			{Category: "material", Actual: 40_000_000, Committed: 10_000_000},
			// Orders still awaiting approval carry no actual spend but do
			// count toward the category's committed total.
			{Category: "labor", Committed: 5_000_000},
		},
		history: []float64{10_000_000, 12_000_000, 15_000_000},
	}
	svc := newBudgetServiceForTest(repo, at)

	result, err := svc.Monitor(context.Background(), "2025HDL001", "MONTH")
	require.NoError(t, err)

	assert.Equal(t, "month", result.Metadata.Timeframe)
	assert.Equal(t, "2025HDL001", result.Metadata.ProjectID)
	assert.Equal(t, 2, result.Metadata.CategoryCount)
	assert.Equal(t, at, result.Metadata.GeneratedAt)

	// Measured spend lands on the matching category only.
	byName := map[string]budget.Category{}
	for _, cat := range result.Report.Categories {
		byName[cat.Category] = cat
	}
	assert.InDelta(t, 40_000_000, byName["material"].Actual, 0.001)
	assert.InDelta(t, 10_000_000, byName["material"].Committed, 0.001)
	assert.InDelta(t, 0, byName["labor"].Actual, 0.001)
	assert.InDelta(t, 5_000_000, byName["labor"].Committed, 0.001)
	assert.Equal(t, "measured", string(result.Report.Source))
}

func TestBudgetMonitor_EstimatedWithoutTracking(t *testing.T) {
	at := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeBudgetRepo{
		planned: []budget.CategoryInput{{Category: "material", Planned: 100_000_000, ItemCount: 5}},
	}
	svc := newBudgetServiceForTest(repo, at)

	result, err := svc.Monitor(context.Background(), "2025HDL001", "")
	require.NoError(t, err)
	assert.Equal(t, "estimated", string(result.Report.Source))
	assert.Equal(t, "month", result.Metadata.Timeframe)
}

func TestBudgetMonitor_UnknownProject(t *testing.T) {
	svc := newBudgetServiceForTest(&fakeBudgetRepo{}, time.Now())

	_, err := svc.Monitor(context.Background(), "2099XXX001", "month")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBudgetExport(t *testing.T) {
	at := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeBudgetRepo{
		planned: []budget.CategoryInput{{Category: "material", Planned: 100_000_000, ItemCount: 5}},
	}
	svc := newBudgetServiceForTest(repo, at)

	result, err := svc.Export(context.Background(), "2025HDL001", "week")
	require.NoError(t, err)
	assert.Equal(t, "budget-2025HDL001-20250701.xlsx", result.FileName)
	assert.NotEmpty(t, result.Content)
}

func TestNormalizeTimeframe(t *testing.T) {
	assert.Equal(t, "week", normalizeTimeframe(" Week "))
	assert.Equal(t, "quarter", normalizeTimeframe("quarter"))
	assert.Equal(t, "year", normalizeTimeframe("YEAR"))
	assert.Equal(t, "month", normalizeTimeframe("fortnight"))
	assert.Equal(t, "month", normalizeTimeframe(""))
}
