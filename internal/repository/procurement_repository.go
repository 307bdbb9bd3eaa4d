package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nusakarya/projectledger/internal/model"
)

type RABRepository struct {
	db *gorm.DB
}

func NewRABRepository(db *gorm.DB) *RABRepository {
	return &RABRepository{db: db}
}

const rabColumns = `
	id,
	project_id,
	category,
	description,
	unit,
	quantity,
	unit_price,
	total_price,
	approval_status,
	approved_by,
	approved_at,
	rejected_reason,
	created_by,
	created_at,
	updated_at
`

func (r *RABRepository) GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.RABItem, error) {
	var item model.RABItem
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+rabColumns+`
		FROM rab_items
		WHERE project_id = ? AND id = ?
		LIMIT 1
	`, projectID, id).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (r *RABRepository) ListForProject(ctx context.Context, projectID string) ([]model.RABItem, error) {
	var items []model.RABItem
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+rabColumns+`
		FROM rab_items
		WHERE project_id = ?
		ORDER BY category, created_at
	`, projectID).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *RABRepository) Create(ctx context.Context, item *model.RABItem) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO rab_items (
			id,
			project_id,
			category,
			description,
			unit,
			quantity,
			unit_price,
			total_price,
			approval_status,
			created_by,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		item.ProjectID,
		item.Category,
		item.Description,
		item.Unit,
		item.Quantity,
		item.UnitPrice,
		item.TotalPrice,
		item.ApprovalStatus,
		item.CreatedBy,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *RABRepository) Update(ctx context.Context, item *model.RABItem) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE rab_items
		SET
			category = ?,
			description = ?,
			unit = ?,
			quantity = ?,
			unit_price = ?,
			total_price = ?,
			approval_status = ?,
			approved_by = ?,
			approved_at = ?,
			rejected_reason = ?,
			updated_at = ?
		WHERE project_id = ? AND id = ?
	`,
		item.Category,
		item.Description,
		item.Unit,
		item.Quantity,
		item.UnitPrice,
		item.TotalPrice,
		item.ApprovalStatus,
		item.ApprovedBy,
		item.ApprovedAt,
		item.RejectedReason,
		item.UpdatedAt,
		item.ProjectID,
		item.ID,
	).Error
}

func (r *RABRepository) Delete(ctx context.Context, projectID string, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM rab_items WHERE project_id = ? AND id = ?
	`, projectID, id).Error
}

func (r *RABRepository) ReferencedByPO(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM purchase_order_items WHERE rab_item_id = ?
	`, id).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

func (r *PORepository) GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			project_id,
			po_number,
			supplier_name,
			status,
			total_amount,
			approved_by,
			approved_at,
			received_at,
			created_by,
			created_at,
			updated_at
		FROM purchase_orders
		WHERE project_id = ? AND id = ?
		LIMIT 1
	`, projectID, id).Scan(&po).Error
	if err != nil {
		return nil, err
	}
	if po.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	err = r.db.WithContext(ctx).Raw(`
		SELECT
			rab_item_id,
			item_name,
			quantity,
			unit_price,
			total_price
		FROM purchase_order_items
		WHERE purchase_order_id = ?
		ORDER BY item_name
	`, po.ID).Scan(&po.Items).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PORepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`
			INSERT INTO purchase_orders (
				id,
				project_id,
				po_number,
				supplier_name,
				status,
				total_amount,
				created_by,
				created_at,
				updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			po.ID,
			po.ProjectID,
			po.PONumber,
			po.SupplierName,
			po.Status,
			po.TotalAmount,
			po.CreatedBy,
			po.CreatedAt,
			po.UpdatedAt,
		).Error
		if err != nil {
			return err
		}

		for _, item := range po.Items {
			if err := tx.Exec(`
				INSERT INTO purchase_order_items (
					purchase_order_id,
					rab_item_id,
					item_name,
					quantity,
					unit_price,
					total_price
				) VALUES (?, ?, ?, ?, ?, ?)
			`, po.ID, item.RABItemID, item.ItemName, item.Quantity, item.UnitPrice, item.TotalPrice).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PORepository) UpdateFrom(ctx context.Context, po *model.PurchaseOrder, from model.POStatus) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE purchase_orders
		SET
			status = ?,
			approved_by = ?,
			approved_at = ?,
			received_at = ?,
			updated_at = ?
		WHERE project_id = ? AND id = ? AND status = ?
	`,
		po.Status,
		po.ApprovedBy,
		po.ApprovedAt,
		po.ReceivedAt,
		po.UpdatedAt,
		po.ProjectID,
		po.ID,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PORepository) CountForProject(ctx context.Context, projectID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM purchase_orders WHERE project_id = ?
	`, projectID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PORepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM purchase_orders WHERE po_number = ?
	`, number).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type ReceiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

type receiptRow struct {
	ID              uuid.UUID
	ProjectID       string
	PurchaseOrderID uuid.UUID
	ReceiptNumber   string
	Items           []byte
	Inspection      string
	Status          string
	ReceivedDate    *time.Time
	ReceivedBy      string
	EvidenceRef     string
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const receiptColumns = `
	id,
	project_id,
	purchase_order_id,
	receipt_number,
	items,
	inspection,
	status,
	received_date,
	received_by,
	evidence_ref,
	notes,
	created_by,
	created_at,
	updated_at
`

func (row receiptRow) toModel() (*model.DeliveryReceipt, error) {
	receipt := &model.DeliveryReceipt{
		ID:              row.ID,
		ProjectID:       row.ProjectID,
		PurchaseOrderID: row.PurchaseOrderID,
		ReceiptNumber:   row.ReceiptNumber,
		Inspection:      model.InspectionResult(row.Inspection),
		Status:          model.ReceiptStatus(row.Status),
		ReceivedDate:    row.ReceivedDate,
		ReceivedBy:      row.ReceivedBy,
		EvidenceRef:     row.EvidenceRef,
		Notes:           row.Notes,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &receipt.Items); err != nil {
			return nil, err
		}
	}
	return receipt, nil
}

func (r *ReceiptRepository) GetByID(ctx context.Context, projectID string, id uuid.UUID) (*model.DeliveryReceipt, error) {
	var row receiptRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+receiptColumns+`
		FROM delivery_receipts
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

func (r *ReceiptRepository) Create(ctx context.Context, receipt *model.DeliveryReceipt) error {
	items, err := json.Marshal(receipt.Items)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO delivery_receipts (
			id,
			project_id,
			purchase_order_id,
			receipt_number,
			items,
			inspection,
			status,
			received_date,
			received_by,
			evidence_ref,
			notes,
			created_by,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		receipt.ID,
		receipt.ProjectID,
		receipt.PurchaseOrderID,
		receipt.ReceiptNumber,
		items,
		receipt.Inspection,
		receipt.Status,
		receipt.ReceivedDate,
		receipt.ReceivedBy,
		receipt.EvidenceRef,
		receipt.Notes,
		receipt.CreatedBy,
		receipt.CreatedAt,
		receipt.UpdatedAt,
	).Error
}

func (r *ReceiptRepository) Update(ctx context.Context, receipt *model.DeliveryReceipt) error {
	items, err := json.Marshal(receipt.Items)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE delivery_receipts
		SET
			items = ?,
			inspection = ?,
			status = ?,
			received_date = ?,
			evidence_ref = ?,
			notes = ?,
			updated_at = ?
		WHERE project_id = ? AND id = ?
	`,
		items,
		receipt.Inspection,
		receipt.Status,
		receipt.ReceivedDate,
		receipt.EvidenceRef,
		receipt.Notes,
		receipt.UpdatedAt,
		receipt.ProjectID,
		receipt.ID,
	).Error
}

func (r *ReceiptRepository) Delete(ctx context.Context, projectID string, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM delivery_receipts WHERE project_id = ? AND id = ?
	`, projectID, id).Error
}

func (r *ReceiptRepository) CountForProject(ctx context.Context, projectID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM delivery_receipts WHERE project_id = ?
	`, projectID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
