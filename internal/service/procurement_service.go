package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nusakarya/projectledger/internal/model"
)

type RABRepository interface {
	GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.RABItem, error)
	ListForProject(ctx context.Context, projectID string) ([]model.RABItem, error)
	Create(ctx context.Context, item *model.RABItem) error
	Update(ctx context.Context, item *model.RABItem) error
	Delete(ctx context.Context, projectID string, id uuid.UUID) error
	ReferencedByPO(ctx context.Context, id uuid.UUID) (bool, error)
}

type PORepository interface {
	GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.PurchaseOrder, error)
	Create(ctx context.Context, po *model.PurchaseOrder) error
	UpdateFrom(ctx context.Context, po *model.PurchaseOrder, from model.POStatus) (bool, error)
	CountForProject(ctx context.Context, projectID string) (int64, error)
	NumberExists(ctx context.Context, number string) (bool, error)
}

type ReceiptRepository interface {
	GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.DeliveryReceipt, error)
	Create(ctx context.Context, receipt *model.DeliveryReceipt) error
	Update(ctx context.Context, receipt *model.DeliveryReceipt) error
	Delete(ctx context.Context, projectID string, id uuid.UUID) error
	CountForProject(ctx context.Context, projectID string) (int64, error)
}

type ProcurementService struct {
	rab      RABRepository
	orders   PORepository
	receipts ReceiptRepository
	files    FileStore
	now      func() time.Time
}

func NewProcurementService(rab RABRepository, orders PORepository, receipts ReceiptRepository, files FileStore) *ProcurementService {
	return &ProcurementService{rab: rab, orders: orders, receipts: receipts, files: files, now: time.Now}
}

type CreateBudgetLineInput struct {
	Category    string
	Description string
	Unit        string
	Quantity    float64
	UnitPrice   float64
	Principal   model.Principal
}

func (s *ProcurementService) CreateBudgetLine(ctx context.Context, projectID string, input CreateBudgetLineInput) (*model.RABItem, error) {
	if strings.TrimSpace(input.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if input.Quantity <= 0 || input.UnitPrice <= 0 {
		return nil, fmt.Errorf("%w: quantity and unit price must be positive", ErrValidation)
	}

	now := s.now()
	item := &model.RABItem{
		ID:             uuid.New(),
		ProjectID:      projectID,
		Category:       strings.TrimSpace(input.Category),
		Description:    strings.TrimSpace(input.Description),
		Unit:           input.Unit,
		Quantity:       input.Quantity,
		UnitPrice:      input.UnitPrice,
		TotalPrice:     round2(input.Quantity * input.UnitPrice),
		ApprovalStatus: model.RABPending,
		CreatedBy:      input.Principal.Identity(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.rab.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ProcurementService) ListBudgetLines(ctx context.Context, projectID string) ([]model.RABItem, error) {
	return s.rab.ListForProject(ctx, projectID)
}

func (s *ProcurementService) GetBudgetLine(ctx context.Context, projectID string, id uuid.UUID) (*model.RABItem, error) {
	return s.rab.GetByID(ctx, projectID, id)
}

func (s *ProcurementService) DeleteBudgetLine(ctx context.Context, projectID string, id uuid.UUID) error {
	item, err := s.rab.GetByID(ctx, projectID, id)
	if err != nil {
		return err
	}
	if item.ApprovalStatus == model.RABApproved {
		referenced, err := s.rab.ReferencedByPO(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%w: budget line is referenced by a purchase order", ErrImmutableRecord)
		}
	}
	return s.rab.Delete(ctx, projectID, id)
}

func (s *ProcurementService) GetPurchaseOrder(ctx context.Context, projectID string, id uuid.UUID) (*model.PurchaseOrder, error) {
	return s.orders.GetByID(ctx, projectID, id)
}

func (s *ProcurementService) GetReceipt(ctx context.Context, projectID string, id uuid.UUID) (*model.DeliveryReceipt, error) {
	return s.receipts.GetByID(ctx, projectID, id)
}

// UpdateBudgetLine edits a pending line. Lines referenced by a purchase
// order, or already reviewed, are locked.
func (s *ProcurementService) UpdateBudgetLine(ctx context.Context, projectID string, id uuid.UUID, input CreateBudgetLineInput) (*model.RABItem, error) {
	item, err := s.rab.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if item.ApprovalStatus != model.RABPending {
		return nil, fmt.Errorf("%w: reviewed budget lines cannot be edited", ErrImmutableRecord)
	}
	referenced, err := s.rab.ReferencedByPO(ctx, id)
	if err != nil {
		return nil, err
	}
	if referenced {
		return nil, fmt.Errorf("%w: budget line is referenced by a purchase order", ErrImmutableRecord)
	}
	if input.Quantity <= 0 || input.UnitPrice <= 0 {
		return nil, fmt.Errorf("%w: quantity and unit price must be positive", ErrValidation)
	}

	item.Category = strings.TrimSpace(input.Category)
	if desc := strings.TrimSpace(input.Description); desc != "" {
		item.Description = desc
	}
	item.Unit = input.Unit
	item.Quantity = input.Quantity
	item.UnitPrice = input.UnitPrice
	item.TotalPrice = round2(input.Quantity * input.UnitPrice)
	item.UpdatedAt = s.now()

	if err := s.rab.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ProcurementService) ReviewBudgetLine(ctx context.Context, projectID string, id uuid.UUID, approve bool, reason string, principal model.Principal) (*model.RABItem, error) {
	item, err := s.rab.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if item.ApprovalStatus != model.RABPending {
		return nil, fmt.Errorf("%w: budget line is already %s", ErrInvalidStateTransition, item.ApprovalStatus)
	}

	now := s.now()
	identity := principal.Identity()
	if approve {
		item.ApprovalStatus = model.RABApproved
		item.ApprovedBy = &identity
		item.ApprovedAt = &now
	} else {
		if strings.TrimSpace(reason) == "" {
			return nil, ErrMissingReason
		}
		reason = strings.TrimSpace(reason)
		item.ApprovalStatus = model.RABRejected
		item.RejectedReason = &reason
	}
	item.UpdatedAt = now

	if err := s.rab.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

type CreatePOInput struct {
	SupplierName string
	Items        []model.POItem
	Principal    model.Principal
}

// CreatePurchaseOrder opens a draft order. Every line must draw from an
// approved budget line of the same project.
func (s *ProcurementService) CreatePurchaseOrder(ctx context.Context, projectID string, input CreatePOInput) (*model.PurchaseOrder, error) {
	if strings.TrimSpace(input.SupplierName) == "" {
		return nil, fmt.Errorf("%w: supplier name is required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}

	var total float64
	for i, line := range input.Items {
		if line.Quantity <= 0 || line.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: item %d quantity and unit price must be positive", ErrValidation, i+1)
		}
		rabItem, err := s.rab.GetByID(ctx, projectID, line.RABItemID)
		if err != nil {
			return nil, fmt.Errorf("%w: budget line %s not found in project", ErrPreconditionFailed, line.RABItemID)
		}
		if rabItem.ApprovalStatus != model.RABApproved {
			return nil, fmt.Errorf("%w: budget line %q is not approved", ErrPreconditionFailed, rabItem.Description)
		}
		input.Items[i].TotalPrice = round2(line.Quantity * line.UnitPrice)
		total += input.Items[i].TotalPrice
	}

	number, err := s.nextPONumber(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	po := &model.PurchaseOrder{
		ID:           uuid.New(),
		ProjectID:    projectID,
		PONumber:     number,
		SupplierName: strings.TrimSpace(input.SupplierName),
		Status:       model.POStatusDraft,
		TotalAmount:  round2(total),
		Items:        input.Items,
		CreatedBy:    input.Principal.Identity(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.orders.Create(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

var poTransitions = map[model.POStatus][]model.POStatus{
	model.POStatusDraft:    {model.POStatusPending, model.POStatusCancelled},
	model.POStatusPending:  {model.POStatusApproved, model.POStatusCancelled},
	model.POStatusApproved: {model.POStatusReceived, model.POStatusCancelled},
}

func (s *ProcurementService) UpdatePOStatus(ctx context.Context, projectID string, id uuid.UUID, next model.POStatus, principal model.Principal) (*model.PurchaseOrder, error) {
	po, err := s.orders.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, candidate := range poTransitions[po.Status] {
		if candidate == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: purchase order cannot move from %s to %s", ErrInvalidStateTransition, po.Status, next)
	}

	now := s.now()
	identity := principal.Identity()
	previous := po.Status
	po.Status = next
	switch next {
	case model.POStatusApproved:
		po.ApprovedBy = &identity
		po.ApprovedAt = &now
	case model.POStatusReceived:
		po.ReceivedAt = &now
	}
	po.UpdatedAt = now

	applied, err := s.orders.UpdateFrom(ctx, po, previous)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: purchase order changed concurrently", ErrInvalidStateTransition)
	}
	return po, nil
}

func (s *ProcurementService) nextPONumber(ctx context.Context, projectID string) (string, error) {
	prefix := projectID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	count, err := s.orders.CountForProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := fmt.Sprintf("PO-%s-%03d", prefix, count+1+int64(attempt))
		taken, err := s.orders.NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return fmt.Sprintf("PO-%s", s.now().Format("20060102150405")), nil
}

type CreateReceiptInput struct {
	PurchaseOrderID uuid.UUID
	Items           []model.ReceiptItem
	ReceivedDate    *time.Time
	Evidence        []byte
	Notes           string
	Principal       model.Principal
}

func (s *ProcurementService) CreateDeliveryReceipt(ctx context.Context, projectID string, input CreateReceiptInput) (*model.DeliveryReceipt, error) {
	po, err := s.orders.GetByID(ctx, projectID, input.PurchaseOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: purchase order not found in project", ErrPreconditionFailed)
	}
	if po.Status != model.POStatusApproved && po.Status != model.POStatusReceived {
		return nil, fmt.Errorf("%w: purchase order %s is not approved", ErrPreconditionFailed, po.PONumber)
	}

	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one delivery item is required", ErrValidation)
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("%w: item %d name is required", ErrValidation, i+1)
		}
		if item.OrderedQty <= 0 || item.DeliveredQty <= 0 {
			return nil, fmt.Errorf("%w: item %d quantities must be positive", ErrValidation, i+1)
		}
	}

	now := s.now()
	count, err := s.receipts.CountForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	receipt := &model.DeliveryReceipt{
		ID:              uuid.New(),
		ProjectID:       projectID,
		PurchaseOrderID: po.ID,
		ReceiptNumber:   fmt.Sprintf("RCPT-%s-%03d", now.Format("200601"), count+1),
		Items:           input.Items,
		Inspection:      model.InspectionPending,
		ReceivedDate:    input.ReceivedDate,
		ReceivedBy:      input.Principal.Identity(),
		Notes:           input.Notes,
		CreatedBy:       input.Principal.Identity(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	switch pct := receipt.DeliveryPercentage(); {
	case pct >= 100:
		receipt.Status = model.ReceiptFullyDelivered
	case pct > 0:
		receipt.Status = model.ReceiptPartialDelivered
	default:
		receipt.Status = model.ReceiptPendingDelivery
	}

	if len(input.Evidence) > 0 {
		ref, err := s.files.Store(ctx, input.Evidence, "delivery-evidence")
		if err != nil {
			return nil, err
		}
		receipt.EvidenceRef = ref
	}

	if err := s.receipts.Create(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Inspect records the inspection result; a rejected inspection rejects the
// receipt itself.
func (s *ProcurementService) Inspect(ctx context.Context, projectID string, id uuid.UUID, result model.InspectionResult, principal model.Principal) (*model.DeliveryReceipt, error) {
	switch result {
	case model.InspectionPassed, model.InspectionConditional, model.InspectionRejected:
	default:
		return nil, fmt.Errorf("%w: unknown inspection result %q", ErrInvalidStatus, result)
	}

	receipt, err := s.receipts.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if receipt.Status == model.ReceiptCompleted {
		return nil, fmt.Errorf("%w: completed receipts cannot be re-inspected", ErrImmutableRecord)
	}

	receipt.Inspection = result
	if result == model.InspectionRejected {
		receipt.Status = model.ReceiptRejected
	}
	receipt.UpdatedAt = s.now()

	if err := s.receipts.Update(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// MarkReceived acknowledges goods on site; Complete closes the receipt and
// flips its purchase order to received.
func (s *ProcurementService) MarkReceived(ctx context.Context, projectID string, id uuid.UUID, principal model.Principal) (*model.DeliveryReceipt, error) {
	receipt, err := s.receipts.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if receipt.Status != model.ReceiptPartialDelivered && receipt.Status != model.ReceiptFullyDelivered {
		return nil, fmt.Errorf("%w: receipt cannot be received from %s", ErrInvalidStateTransition, receipt.Status)
	}

	now := s.now()
	receipt.Status = model.ReceiptReceived
	if receipt.ReceivedDate == nil {
		receipt.ReceivedDate = &now
	}
	receipt.UpdatedAt = now

	if err := s.receipts.Update(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *ProcurementService) Complete(ctx context.Context, projectID string, id uuid.UUID, principal model.Principal) (*model.DeliveryReceipt, error) {
	receipt, err := s.receipts.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if receipt.Status != model.ReceiptReceived {
		return nil, fmt.Errorf("%w: only received receipts can be completed", ErrInvalidStateTransition)
	}
	if receipt.Inspection != model.InspectionPassed && receipt.Inspection != model.InspectionConditional {
		return nil, fmt.Errorf("%w: receipt must pass inspection before completion", ErrPreconditionFailed)
	}

	receipt.Status = model.ReceiptCompleted
	receipt.UpdatedAt = s.now()
	if err := s.receipts.Update(ctx, receipt); err != nil {
		return nil, err
	}

	po, err := s.orders.GetByID(ctx, projectID, receipt.PurchaseOrderID)
	if err == nil && po.Status == model.POStatusApproved {
		if _, err := s.UpdatePOStatus(ctx, projectID, po.ID, model.POStatusReceived, principal); err != nil {
			return nil, err
		}
	}
	return receipt, nil
}

func (s *ProcurementService) DeleteReceipt(ctx context.Context, projectID string, id uuid.UUID) error {
	receipt, err := s.receipts.GetByID(ctx, projectID, id)
	if err != nil {
		return err
	}
	if receipt.Status == model.ReceiptCompleted {
		return fmt.Errorf("%w: completed receipts cannot be deleted", ErrImmutableRecord)
	}
	return s.receipts.Delete(ctx, projectID, id)
}
