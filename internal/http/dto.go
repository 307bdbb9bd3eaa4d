package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/nusakarya/projectledger/internal/model"
)

type projectResponse struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	ClientName     string               `json:"clientName"`
	Location       string               `json:"location"`
	SubsidiaryCode string               `json:"subsidiaryCode"`
	Budget         float64              `json:"budget"`
	Progress       float64              `json:"progress"`
	Status         model.ProjectStatus  `json:"status"`
	StartDate      *time.Time           `json:"startDate,omitempty"`
	EndDate        *time.Time           `json:"endDate,omitempty"`
	CreatedBy      string               `json:"createdBy"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

func toProjectResponse(p model.Project) projectResponse {
	return projectResponse{
		ID:             p.ID,
		Name:           p.Name,
		ClientName:     p.ClientName,
		Location:       p.Location,
		SubsidiaryCode: p.SubsidiaryCode,
		Budget:         p.Budget,
		Progress:       p.Progress,
		Status:         p.Status,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type certificateResponse struct {
	ID                   uuid.UUID               `json:"id"`
	ProjectID            string                  `json:"projectId"`
	MilestoneID          *uuid.UUID              `json:"milestoneId,omitempty"`
	Number               string                  `json:"number"`
	Type                 model.CertificateType   `json:"type"`
	WorkDescription      string                  `json:"workDescription"`
	CompletionPercentage float64                 `json:"completionPercentage"`
	CompletionDate       time.Time               `json:"completionDate"`
	Status               model.CertificateStatus `json:"status"`
	SubmittedBy          *string                 `json:"submittedBy,omitempty"`
	SubmittedAt          *time.Time              `json:"submittedAt,omitempty"`
	ApprovedBy           *string                 `json:"approvedBy,omitempty"`
	ApprovedAt           *time.Time              `json:"approvedAt,omitempty"`
	ApprovalNotes        *string                 `json:"approvalNotes,omitempty"`
	RejectionReason      *string                 `json:"rejectionReason,omitempty"`
	PaymentAuthorized    bool                    `json:"paymentAuthorized"`
	PaymentDueDate       *time.Time              `json:"paymentDueDate,omitempty"`
	ClientSignature      *string                 `json:"clientSignature,omitempty"`
	ClientRepresentative *string                 `json:"clientRepresentative,omitempty"`
	ClientSignDate       *time.Time              `json:"clientSignDate,omitempty"`
	StatusHistory        []model.StatusChange    `json:"statusHistory"`
	CreatedBy            string                  `json:"createdBy"`
	CreatedAt            time.Time               `json:"createdAt"`
	UpdatedAt            time.Time               `json:"updatedAt"`
}

func toCertificateResponse(c model.CompletionCertificate) certificateResponse {
	history := c.StatusHistory
	if history == nil {
		history = []model.StatusChange{}
	}
	return certificateResponse{
		ID:                   c.ID,
		ProjectID:            c.ProjectID,
		MilestoneID:          c.MilestoneID,
		Number:               c.Number,
		Type:                 c.Type,
		WorkDescription:      c.WorkDescription,
		CompletionPercentage: c.CompletionPercentage,
		CompletionDate:       c.CompletionDate,
		Status:               c.Status,
		SubmittedBy:          c.SubmittedBy,
		SubmittedAt:          c.SubmittedAt,
		ApprovedBy:           c.ApprovedBy,
		ApprovedAt:           c.ApprovedAt,
		ApprovalNotes:        c.ApprovalNotes,
		RejectionReason:      c.RejectionReason,
		PaymentAuthorized:    c.PaymentAuthorized,
		PaymentDueDate:       c.PaymentDueDate,
		ClientSignature:      c.ClientSignature,
		ClientRepresentative: c.ClientRepresentative,
		ClientSignDate:       c.ClientSignDate,
		StatusHistory:        history,
		CreatedBy:            c.CreatedBy,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

// paymentResponse exposes the external status vocabulary; the internal
// ledger status rides along for back-office screens.
type paymentResponse struct {
	ID               uuid.UUID           `json:"id"`
	ProjectID        string              `json:"projectId"`
	CertificateID    uuid.UUID           `json:"certificateId"`
	Amount           float64             `json:"amount"`
	Percentage       float64             `json:"percentage"`
	TaxAmount        float64             `json:"taxAmount"`
	RetentionAmount  float64             `json:"retentionAmount"`
	NetAmount        float64             `json:"netAmount"`
	DueDate          time.Time           `json:"dueDate"`
	Status           string              `json:"status"`
	InternalStatus   model.PaymentStatus `json:"internalStatus"`
	InvoiceNumber    string              `json:"invoiceNumber"`
	InvoiceDate      time.Time           `json:"invoiceDate"`
	InvoiceStatus    string              `json:"invoiceStatus"`
	Overdue          bool                `json:"overdue"`
	InvoiceSentAt    *time.Time          `json:"invoiceSentAt,omitempty"`
	InvoiceRecipient *string             `json:"invoiceRecipient,omitempty"`
	DeliveryMethod   *string             `json:"deliveryMethod,omitempty"`
	CourierService   *string             `json:"courierService,omitempty"`
	PaidAt           *time.Time          `json:"paidAt,omitempty"`
	PaidAmount       *float64            `json:"paidAmount,omitempty"`
	BankAccount      *string             `json:"bankAccount,omitempty"`
	PaymentReference *string             `json:"paymentReference,omitempty"`
	RejectionReason  *string             `json:"rejectionReason,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	CreatedBy        string              `json:"createdBy"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

func toPaymentResponse(p model.ProgressPayment, now time.Time) paymentResponse {
	return paymentResponse{
		ID:               p.ID,
		ProjectID:        p.ProjectID,
		CertificateID:    p.CertificateID,
		Amount:           p.Amount,
		Percentage:       p.Percentage,
		TaxAmount:        p.TaxAmount,
		RetentionAmount:  p.RetentionAmount,
		NetAmount:        p.NetAmount,
		DueDate:          p.DueDate,
		Status:           p.Status.ExternalStatus(),
		InternalStatus:   p.Status,
		InvoiceNumber:    p.InvoiceNumber,
		InvoiceDate:      p.InvoiceDate,
		InvoiceStatus:    p.InvoiceStatus(now),
		Overdue:          p.IsOverdue(now),
		InvoiceSentAt:    p.InvoiceSentAt,
		InvoiceRecipient: p.InvoiceRecipient,
		DeliveryMethod:   p.DeliveryMethod,
		CourierService:   p.CourierService,
		PaidAt:           p.PaidAt,
		PaidAmount:       p.PaidAmount,
		BankAccount:      p.BankAccount,
		PaymentReference: p.PaymentReference,
		RejectionReason:  p.RejectionReason,
		Notes:            p.Notes,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

type rabItemResponse struct {
	ID             uuid.UUID               `json:"id"`
	ProjectID      string                  `json:"projectId"`
	Category       string                  `json:"category"`
	Description    string                  `json:"description"`
	Unit           string                  `json:"unit,omitempty"`
	Quantity       float64                 `json:"quantity"`
	UnitPrice      float64                 `json:"unitPrice"`
	TotalPrice     float64                 `json:"totalPrice"`
	ApprovalStatus model.RABApprovalStatus `json:"approvalStatus"`
	ApprovedBy     *string                 `json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time              `json:"approvedAt,omitempty"`
	RejectedReason *string                 `json:"rejectedReason,omitempty"`
	CreatedBy      string                  `json:"createdBy"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

func toRABItemResponse(item model.RABItem) rabItemResponse {
	return rabItemResponse{
		ID:             item.ID,
		ProjectID:      item.ProjectID,
		Category:       item.Category,
		Description:    item.Description,
		Unit:           item.Unit,
		Quantity:       item.Quantity,
		UnitPrice:      item.UnitPrice,
		TotalPrice:     item.TotalPrice,
		ApprovalStatus: item.ApprovalStatus,
		ApprovedBy:     item.ApprovedBy,
		ApprovedAt:     item.ApprovedAt,
		RejectedReason: item.RejectedReason,
		CreatedBy:      item.CreatedBy,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

type poItemResponse struct {
	RABItemID  uuid.UUID `json:"rabItemId"`
	ItemName   string    `json:"itemName"`
	Quantity   float64   `json:"quantity"`
	UnitPrice  float64   `json:"unitPrice"`
	TotalPrice float64   `json:"totalPrice"`
}

type purchaseOrderResponse struct {
	ID           uuid.UUID        `json:"id"`
	ProjectID    string           `json:"projectId"`
	PONumber     string           `json:"poNumber"`
	SupplierName string           `json:"supplierName"`
	Status       model.POStatus   `json:"status"`
	TotalAmount  float64          `json:"totalAmount"`
	Items        []poItemResponse `json:"items"`
	ApprovedBy   *string          `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time       `json:"approvedAt,omitempty"`
	ReceivedAt   *time.Time       `json:"receivedAt,omitempty"`
	CreatedBy    string           `json:"createdBy"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func toPurchaseOrderResponse(po model.PurchaseOrder) purchaseOrderResponse {
	items := make([]poItemResponse, 0, len(po.Items))
	for _, item := range po.Items {
		items = append(items, poItemResponse{
			RABItemID:  item.RABItemID,
			ItemName:   item.ItemName,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return purchaseOrderResponse{
		ID:           po.ID,
		ProjectID:    po.ProjectID,
		PONumber:     po.PONumber,
		SupplierName: po.SupplierName,
		Status:       po.Status,
		TotalAmount:  po.TotalAmount,
		Items:        items,
		ApprovedBy:   po.ApprovedBy,
		ApprovedAt:   po.ApprovedAt,
		ReceivedAt:   po.ReceivedAt,
		CreatedBy:    po.CreatedBy,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}

type receiptResponse struct {
	ID                 uuid.UUID              `json:"id"`
	ProjectID          string                 `json:"projectId"`
	PurchaseOrderID    uuid.UUID              `json:"purchaseOrderId"`
	ReceiptNumber      string                 `json:"receiptNumber"`
	Items              []model.ReceiptItem    `json:"items"`
	Inspection         model.InspectionResult `json:"inspection"`
	Status             model.ReceiptStatus    `json:"status"`
	DeliveryPercentage int                    `json:"deliveryPercentage"`
	ReceivedDate       *time.Time             `json:"receivedDate,omitempty"`
	ReceivedBy         string                 `json:"receivedBy,omitempty"`
	Notes              string                 `json:"notes,omitempty"`
	CreatedBy          string                 `json:"createdBy"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

func toReceiptResponse(r model.DeliveryReceipt) receiptResponse {
	items := r.Items
	if items == nil {
		items = []model.ReceiptItem{}
	}
	return receiptResponse{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		PurchaseOrderID:    r.PurchaseOrderID,
		ReceiptNumber:      r.ReceiptNumber,
		Items:              items,
		Inspection:         r.Inspection,
		Status:             r.Status,
		DeliveryPercentage: r.DeliveryPercentage(),
		ReceivedDate:       r.ReceivedDate,
		ReceivedBy:         r.ReceivedBy,
		Notes:              r.Notes,
		CreatedBy:          r.CreatedBy,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type milestoneResponse struct {
	ID               uuid.UUID               `json:"id"`
	ProjectID        string                  `json:"projectId"`
	Title            string                  `json:"title"`
	CategoryName     *string                 `json:"categoryName,omitempty"`
	Status           string                  `json:"status"`
	Progress         int                     `json:"progress"`
	WorkflowProgress *model.WorkflowProgress `json:"workflowProgress,omitempty"`
	LastSynced       *time.Time              `json:"lastSynced,omitempty"`
	TargetDate       *time.Time              `json:"targetDate,omitempty"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

func toMilestoneResponse(m model.Milestone) milestoneResponse {
	return milestoneResponse{
		ID:               m.ID,
		ProjectID:        m.ProjectID,
		Title:            m.Title,
		CategoryName:     m.CategoryName,
		Status:           m.Status,
		Progress:         m.Progress,
		WorkflowProgress: m.WorkflowProgress,
		LastSynced:       m.LastSynced,
		TargetDate:       m.TargetDate,
		UpdatedAt:        m.UpdatedAt,
	}
}
