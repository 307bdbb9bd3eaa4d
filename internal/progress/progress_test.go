package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nusakarya/projectledger/internal/model"
)

func TestOverall_Empty(t *testing.T) {
	assert.Equal(t, 0, Overall(model.WorkflowProgress{}))
}

func TestOverall_AllStagesComplete(t *testing.T) {
	wp := model.WorkflowProgress{
		BudgetApproved: model.BudgetStage{Approved: true, TotalValue: 1000, TotalItems: 5},
		Procurement:    model.CountStage{Done: 3, Total: 3},
		Delivery:       model.CountStage{Done: 3, Total: 3},
		Certification:  model.PercentStage{Count: 2, AvgPercent: 100},
		Payment:        model.ValueStage{PaidCount: 2, PaidValue: 1000, TotalValue: 1000},
	}
	assert.Equal(t, 100, Overall(wp))
}

func TestOverall_StageWeights(t *testing.T) {
	tests := []struct {
		name string
		wp   model.WorkflowProgress
		want int
	}{
		{
			name: "budget only is 10",
			wp:   model.WorkflowProgress{BudgetApproved: model.BudgetStage{Approved: true}},
			want: 10,
		},
		{
			name: "procurement only is 20",
			wp:   model.WorkflowProgress{Procurement: model.CountStage{Done: 2, Total: 2}},
			want: 20,
		},
		{
			name: "delivery only is 20",
			wp:   model.WorkflowProgress{Delivery: model.CountStage{Done: 1, Total: 1}},
			want: 20,
		},
		{
			name: "certification only is 30",
			wp:   model.WorkflowProgress{Certification: model.PercentStage{Count: 1, AvgPercent: 100}},
			want: 30,
		},
		{
			name: "payment only is 20",
			wp:   model.WorkflowProgress{Payment: model.ValueStage{PaidValue: 500, TotalValue: 500}},
			want: 20,
		},
		{
			name: "half procurement rounds",
			wp:   model.WorkflowProgress{Procurement: model.CountStage{Done: 1, Total: 2}},
			want: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overall(tt.wp))
		})
	}
}

func TestOverall_PaymentFractionCapped(t *testing.T) {
	wp := model.WorkflowProgress{
		Payment: model.ValueStage{PaidValue: 2000, TotalValue: 1000},
	}
	assert.Equal(t, 20, Overall(wp))
}

func TestOverall_CertificationClamped(t *testing.T) {
	wp := model.WorkflowProgress{
		Certification: model.PercentStage{Count: 1, AvgPercent: 150},
	}
	assert.Equal(t, 30, Overall(wp))
}

func TestOverall_Monotonic(t *testing.T) {
	base := model.WorkflowProgress{
		Procurement: model.CountStage{Done: 1, Total: 4},
		Delivery:    model.CountStage{Done: 0, Total: 1},
	}
	before := Overall(base)

	base.Procurement.Done = 2
	between := Overall(base)
	base.Delivery.Done = 1
	after := Overall(base)

	assert.LessOrEqual(t, before, between)
	assert.LessOrEqual(t, between, after)
}

func TestDeliveryAlerts(t *testing.T) {
	now := time.Date(2025, time.June, 20, 12, 0, 0, 0, time.UTC)

	pos := []PendingPO{
		{PONumber: "PO-A", ApprovedAt: now.AddDate(0, 0, -3)},
		{PONumber: "PO-B", ApprovedAt: now.AddDate(0, 0, -10)},
		{PONumber: "PO-C", ApprovedAt: now.AddDate(0, 0, -20)},
		{PONumber: "PO-D", ApprovedAt: now.AddDate(0, 0, -30), HasReceipt: true},
	}

	alerts := DeliveryAlerts(pos, now)

	require.Len(t, alerts, 2)

	assert.Equal(t, "PO-B", alerts[0].PONumber)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Equal(t, 10, alerts[0].DaysWaiting)

	assert.Equal(t, "PO-C", alerts[1].PONumber)
	assert.Equal(t, "high", alerts[1].Severity)
	assert.Equal(t, 20, alerts[1].DaysWaiting)
}

func TestDeliveryAlerts_SevenDayBoundary(t *testing.T) {
	now := time.Date(2025, time.June, 20, 12, 0, 0, 0, time.UTC)

	exactlySeven := []PendingPO{{PONumber: "PO-E", ApprovedAt: now.AddDate(0, 0, -7)}}
	assert.Empty(t, DeliveryAlerts(exactlySeven, now))

	eightDays := []PendingPO{{PONumber: "PO-F", ApprovedAt: now.AddDate(0, 0, -8)}}
	alerts := DeliveryAlerts(eightDays, now)
	require.Len(t, alerts, 1)
	assert.Equal(t, "medium", alerts[0].Severity)
}
