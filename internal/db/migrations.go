package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS projects (
		id VARCHAR(32) PRIMARY KEY,
		name TEXT NOT NULL,
		client_name TEXT,
		location TEXT,
		subsidiary_code VARCHAR(3) NOT NULL,
		budget NUMERIC(18,2) NOT NULL DEFAULT 0,
		progress NUMERIC(5,2) NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'planning',
		start_date DATE,
		end_date DATE,
		created_by TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS team_members (
		project_id VARCHAR(32) NOT NULL REFERENCES projects(id),
		user_email TEXT NOT NULL,
		role_name TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (project_id, user_email)
	);`,
	`CREATE TABLE IF NOT EXISTS project_documents (
		project_id VARCHAR(32) NOT NULL REFERENCES projects(id),
		title TEXT NOT NULL,
		storage_ref TEXT NOT NULL,
		uploaded_by TEXT NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS rab_items (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id VARCHAR(32) NOT NULL REFERENCES projects(id),
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		unit VARCHAR(32),
		quantity NUMERIC(18,3) NOT NULL,
		unit_price NUMERIC(18,2) NOT NULL,
		total_price NUMERIC(18,2) NOT NULL,
		approval_status VARCHAR(16) NOT NULL DEFAULT 'pending',
		approved_by TEXT,
		approved_at TIMESTAMPTZ,
		rejected_reason TEXT,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_rab_items_project_category ON rab_items (project_id, category);`,
	`CREATE TABLE IF NOT EXISTS purchase_orders (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id VARCHAR(32) NOT NULL REFERENCES projects(id),
		po_number VARCHAR(64) NOT NULL,
		supplier_name TEXT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'draft',
		total_amount NUMERIC(18,2) NOT NULL,
		approved_by TEXT,
		approved_at TIMESTAMPTZ,
		received_at TIMESTAMPTZ,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_purchase_orders_number ON purchase_orders (po_number);`,
	`CREATE INDEX IF NOT EXISTS idx_purchase_orders_project ON purchase_orders (project_id);`,
	`CREATE TABLE IF NOT EXISTS purchase_order_items (
		purchase_order_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		rab_item_id UUID NOT NULL REFERENCES rab_items(id),
		item_name TEXT NOT NULL,
		quantity NUMERIC(18,3) NOT NULL,
		unit_price NUMERIC(18,2) NOT NULL,
		total_price NUMERIC(18,2) NOT NULL,
		PRIMARY KEY (purchase_order_id, rab_item_id)
	);`,
	`CREATE TABLE IF NOT EXISTS delivery_receipts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id VARCHAR(32) NOT NULL REFERENCES projects(id),
		purchase_order_id UUID NOT NULL REFERENCES purchase_orders(id),
		receipt_number VARCHAR(64) NOT NULL,
		items JSONB NOT NULL DEFAULT '[]',
		inspection VARCHAR(16) NOT NULL DEFAULT 'pending',
		status VARCHAR(24) NOT NULL DEFAULT 'pending_delivery',
		received_date TIMESTAMPTZ,
		received_by TEXT,
		evidence_ref TEXT,
		notes TEXT,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_receipts_project ON delivery_receipts (project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_receipts_po ON delivery_receipts (purchase_order_id);`,
	`CREATE TABLE IF NOT EXISTS milestones (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id VARCHAR(32) NOT NULL REFERENCES projects(id),
		title TEXT NOT NULL,
		description TEXT,
		target_date DATE,
		status VARCHAR(24) NOT NULL DEFAULT 'pending',
		category_name TEXT,
		progress INT NOT NULL DEFAULT 0,
		workflow_progress JSONB,
		last_synced TIMESTAMPTZ,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_milestones_project ON milestones (project_id);`,
	`CREATE TABLE IF NOT EXISTS completion_certificates (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id VARCHAR(32) NOT NULL REFERENCES projects(id),
		milestone_id UUID REFERENCES milestones(id),
		number VARCHAR(64) NOT NULL,
		type VARCHAR(16) NOT NULL DEFAULT 'partial',
		work_description TEXT NOT NULL,
		completion_percentage NUMERIC(5,2) NOT NULL,
		completion_date DATE NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'draft',
		submitted_by TEXT,
		submitted_at TIMESTAMPTZ,
		approved_by TEXT,
		approved_at TIMESTAMPTZ,
		approval_notes TEXT,
		rejection_reason TEXT,
		payment_authorized BOOLEAN NOT NULL DEFAULT FALSE,
		payment_due_date TIMESTAMPTZ,
		client_signature TEXT,
		client_representative TEXT,
		client_sign_date TIMESTAMPTZ,
		status_history JSONB NOT NULL DEFAULT '[]',
		created_by TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_completion_certificates_number ON completion_certificates (number);`,
	`CREATE INDEX IF NOT EXISTS idx_completion_certificates_project ON completion_certificates (project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_completion_certificates_milestone ON completion_certificates (milestone_id) WHERE milestone_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS progress_payments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id VARCHAR(32) NOT NULL REFERENCES projects(id),
		certificate_id UUID NOT NULL REFERENCES completion_certificates(id),
		amount NUMERIC(18,2) NOT NULL,
		percentage NUMERIC(5,2) NOT NULL,
		tax_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		retention_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		net_amount NUMERIC(18,2) NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		status VARCHAR(24) NOT NULL DEFAULT 'pending_ba',
		invoice_number VARCHAR(64) NOT NULL,
		invoice_date TIMESTAMPTZ NOT NULL,
		ba_approved_at TIMESTAMPTZ,
		payment_approved_by TEXT,
		payment_approved_at TIMESTAMPTZ,
		rejected_by TEXT,
		rejected_at TIMESTAMPTZ,
		rejection_reason TEXT,
		invoice_sent_at TIMESTAMPTZ,
		invoice_recipient TEXT,
		delivery_method VARCHAR(24),
		courier_service TEXT,
		sent_evidence_ref TEXT,
		paid_at TIMESTAMPTZ,
		paid_amount NUMERIC(18,2),
		bank_account TEXT,
		payment_reference TEXT,
		paid_evidence_ref TEXT,
		notes TEXT,
		created_by TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_progress_payments_invoice ON progress_payments (invoice_number);`,
	`CREATE INDEX IF NOT EXISTS idx_progress_payments_project ON progress_payments (project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_progress_payments_certificate ON progress_payments (certificate_id);`,
	`CREATE INDEX IF NOT EXISTS idx_progress_payments_status ON progress_payments (status);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
