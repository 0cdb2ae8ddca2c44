package migration

import (
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors migrations/0001_init.up.sql for local sqlite
// databases and tests.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		capacity_min INTEGER NOT NULL DEFAULT 1,
		capacity_max INTEGER NOT NULL,
		price_per_person INTEGER NOT NULL DEFAULT 0,
		base_price INTEGER NOT NULL DEFAULT 0,
		deposit_percent INTEGER NOT NULL DEFAULT 30,
		currency TEXT NOT NULL DEFAULT 'UAH',
		date_start DATETIME NOT NULL,
		date_end DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_events_slug ON events (slug)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY,
		phone TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT,
		telegram_chat_id TEXT,
		source TEXT NOT NULL DEFAULT 'website',
		visits_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_clients_phone ON clients (phone)`,
	`CREATE TABLE IF NOT EXISTS managers (
		id INTEGER PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT,
		telegram_chat_id TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS promo_codes (
		id INTEGER PRIMARY KEY,
		code TEXT NOT NULL,
		discount_percent INTEGER NOT NULL,
		max_uses INTEGER,
		current_uses INTEGER NOT NULL DEFAULT 0,
		valid_from DATETIME NOT NULL,
		valid_until DATETIME,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_promo_codes_code ON promo_codes (code)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id INTEGER PRIMARY KEY,
		booking_number TEXT,
		event_id INTEGER NOT NULL,
		client_id INTEGER NOT NULL,
		guests_count INTEGER NOT NULL,
		total_price INTEGER NOT NULL,
		deposit_amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		hold_expires_at DATETIME,
		confirmed_at DATETIME,
		paid_at DATETIME,
		cancelled_at DATETIME,
		cancellation_reason TEXT,
		refund_amount INTEGER,
		refund_reason TEXT,
		promo_code TEXT,
		discount_percent INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_number ON bookings (booking_number) WHERE booking_number IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_event_status ON bookings (event_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_hold ON bookings (status, hold_expires_at)`,
	`CREATE TABLE IF NOT EXISTS booking_number_sequences (
		year INTEGER PRIMARY KEY,
		next_number INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY,
		booking_id INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL DEFAULT 'UAH',
		type TEXT NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		provider_transaction_id TEXT,
		provider_data TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_booking_status ON payments (booking_id, status, created_at)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		changes TEXT NOT NULL DEFAULT '{}',
		actor_type TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT 'system',
		request_id TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs (entity_type, entity_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY,
		recipient_type TEXT NOT NULL,
		recipient_id TEXT NOT NULL DEFAULT '',
		booking_id INTEGER,
		channel TEXT NOT NULL,
		template_id TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'QUEUED',
		retry_count INTEGER NOT NULL DEFAULT 0,
		scheduled_at DATETIME NOT NULL,
		sent_at DATETIME,
		error TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_due ON notifications (status, scheduled_at)`,
	`CREATE TABLE IF NOT EXISTS booking_effects (
		id INTEGER PRIMARY KEY,
		booking_id INTEGER NOT NULL,
		effect TEXT NOT NULL,
		template_id TEXT NOT NULL,
		recipient_type TEXT NOT NULL,
		recipient_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		payload TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		processed_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_booking_effects_pending ON booking_effects (status, created_at)`,
}

// ApplySQLite creates the schema on a sqlite connection.
func ApplySQLite(db *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
