package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/nusakarya/projectledger/internal/budget"
	"github.com/nusakarya/projectledger/internal/service"
)

// BudgetRepository feeds the variance engine. Planned figures come from
// approved budget lines; actual and committed spend come from purchase
// orders attributed back to the budget category of their lines.
type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) PlannedByCategory(ctx context.Context, projectID string) ([]budget.CategoryInput, error) {
	var inputs []budget.CategoryInput
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			category,
			COALESCE(SUM(total_price), 0) AS planned,
			COUNT(*) AS item_count
		FROM rab_items
		WHERE project_id = ? AND approval_status = 'approved'
		GROUP BY category
		ORDER BY category
	`, projectID).Scan(&inputs).Error
	if err != nil {
		return nil, err
	}
	return inputs, nil
}

func (r *BudgetRepository) SpendByCategory(ctx context.Context, projectID string) ([]service.CategorySpend, error) {
	var spend []service.CategorySpend
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			ri.category,
			COALESCE(SUM(poi.total_price) FILTER (WHERE po.status = 'received'), 0) AS actual,
			COALESCE(SUM(poi.total_price) FILTER (WHERE po.status IN ('pending', 'approved')), 0) AS committed
		FROM purchase_order_items poi
		JOIN purchase_orders po ON po.id = poi.purchase_order_id
		JOIN rab_items ri ON ri.id = poi.rab_item_id
		WHERE po.project_id = ?
			AND po.status IN ('pending', 'approved', 'received')
		GROUP BY ri.category
		ORDER BY ri.category
	`, projectID).Scan(&spend).Error
	if err != nil {
		return nil, err
	}
	return spend, nil
}

// HistoricalSpend returns per-period paid totals, oldest first, for the
// forecast baseline. Periods follow the requested timeframe.
func (r *BudgetRepository) HistoricalSpend(ctx context.Context, projectID, timeframe string) ([]float64, error) {
	granularity := "month"
	if timeframe == "week" {
		granularity = "week"
	}

	var totals []float64
	err := r.db.WithContext(ctx).Raw(`
		SELECT total FROM (
			SELECT
				date_trunc(?, paid_at) AS period,
				SUM(net_amount) AS total
			FROM progress_payments
			WHERE project_id = ? AND status = 'paid' AND paid_at IS NOT NULL
			GROUP BY period
			ORDER BY period DESC
			LIMIT 3
		) recent
		ORDER BY period ASC
	`, granularity, projectID).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
