package model

import "time"

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// Project ID doubles as the human-readable project code,
// e.g. "2025HDL003" (year + subsidiary code + sequence).
type Project struct {
	ID             string
	Name           string
	ClientName     string
	Location       string
	SubsidiaryCode string
	Budget         float64
	Progress       float64 // overall physical progress, 0-100
	Status         ProjectStatus
	StartDate      *time.Time
	EndDate        *time.Time
	CreatedBy      string
	UpdatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TeamMember struct {
	ProjectID string
	UserEmail string
	RoleName  string
	JoinedAt  time.Time
}

type ProjectDocument struct {
	ProjectID  string
	Title      string
	StorageRef string
	UploadedBy string
	UploadedAt time.Time
}

// DeletedCounts reports how many rows each cascade step removed.
type DeletedCounts struct {
	DeliveryReceipts int64 `json:"deliveryReceipts"`
	PurchaseOrders   int64 `json:"purchaseOrders"`
	Certificates     int64 `json:"certificates"`
	BudgetLines      int64 `json:"budgetLines"`
	TeamMembers      int64 `json:"teamMembers"`
	Milestones       int64 `json:"milestones"`
	Documents        int64 `json:"documents"`
	Project          int64 `json:"project"`
}
