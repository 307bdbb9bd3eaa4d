// Package progress computes the weighted workflow completion score for a
// category-linked milestone and the delivery-delay alerts that go with it.
package progress

import (
	"fmt"
	"math"
	"time"

	"github.com/nusakarya/projectledger/internal/model"
)

// Stage weights; they sum to 100.
const (
	weightBudget        = 10
	weightProcurement   = 20
	weightDelivery      = 20
	weightCertification = 30
	weightPayment       = 20
)

// Overall folds the five stage fractions into a single rounded percentage.
func Overall(wp model.WorkflowProgress) int {
	var score float64

	if wp.BudgetApproved.Approved {
		score += weightBudget
	}
	score += weightProcurement * wp.Procurement.Fraction()
	score += weightDelivery * wp.Delivery.Fraction()
	score += weightCertification * clampPercent(wp.Certification.AvgPercent) / 100
	score += weightPayment * wp.Payment.Fraction()

	return int(math.Round(score))
}

// PendingPO is an approved purchase order that the delay check inspects.
type PendingPO struct {
	PONumber   string
	ApprovedAt time.Time
	HasReceipt bool
}

// DeliveryAlerts flags approved POs with no receipt: medium severity after 7
// days, high after 14.
func DeliveryAlerts(pos []PendingPO, now time.Time) []model.DeliveryAlert {
	alerts := make([]model.DeliveryAlert, 0)
	for _, po := range pos {
		if po.HasReceipt {
			continue
		}
		days := int(now.Sub(po.ApprovedAt).Hours() / 24)
		if days <= 7 {
			continue
		}
		severity := "medium"
		if days > 14 {
			severity = "high"
		}
		alerts = append(alerts, model.DeliveryAlert{
			PONumber:    po.PONumber,
			Severity:    severity,
			DaysWaiting: days,
			Message:     fmt.Sprintf("%s approved %d days ago, no receipt yet", po.PONumber, days),
		})
	}
	return alerts
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
