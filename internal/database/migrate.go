package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates every table and index the application needs. Statements
// are idempotent, so it is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts, err := SchemaStatements(d)
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// SchemaStatements returns the DDL for the given dialect, in dependency order.
func SchemaStatements(d Dialect) ([]string, error) {
	switch d.Name {
	case MySQL.Name:
		return mysqlSchema, nil
	case SQLite.Name:
		return sqliteSchema, nil
	}
	return nil, fmt.Errorf("no schema for dialect %q", d.Name)
}

// Active assignment exclusivity is enforced by unique keys on stored
// generated columns that are NULL for inactive rows (MySQL allows many NULLs
// in a unique key). Daily reports are unique per user and calendar day.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(190) NOT NULL,
		full_name VARCHAR(190) NOT NULL DEFAULT '',
		phone VARCHAR(40) NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS trucks (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		plate_number VARCHAR(40) NOT NULL,
		model VARCHAR(120) NOT NULL DEFAULT '',
		capacity_liters DECIMAL(14,3) NULL,
		site_label VARCHAR(190) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_trucks_plate (plate_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(190) NOT NULL,
		serial_number VARCHAR(120) NOT NULL,
		kind VARCHAR(60) NOT NULL DEFAULT '',
		site_label VARCHAR(190) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_equipment_serial (serial_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS fuel_stock (
		id TINYINT UNSIGNED NOT NULL PRIMARY KEY,
		total_quantity DECIMAL(14,3) NOT NULL DEFAULT 0,
		alert_threshold DECIMAL(14,3) NOT NULL DEFAULT 0,
		version BIGINT UNSIGNED NOT NULL DEFAULT 0,
		updated_at DATETIME(6) NOT NULL,
		CONSTRAINT chk_fuel_stock_non_negative CHECK (total_quantity >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS fuel_replenishments (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		submitted_by BIGINT UNSIGNED NOT NULL,
		quantity DECIMAL(14,3) NOT NULL,
		supplied_on DATE NOT NULL,
		notes TEXT NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_fuel_replenishments_date (supplied_on),
		CONSTRAINT fk_fuel_replenishments_user FOREIGN KEY (submitted_by) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS fuel_dispensings (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		truck_id BIGINT UNSIGNED NULL,
		equipment_id BIGINT UNSIGNED NULL,
		personnel_id BIGINT UNSIGNED NOT NULL,
		submitted_by BIGINT UNSIGNED NOT NULL,
		quantity DECIMAL(14,3) NOT NULL,
		dispensed_on DATE NOT NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_fuel_dispensings_date (dispensed_on),
		CONSTRAINT fk_fuel_dispensings_truck FOREIGN KEY (truck_id) REFERENCES trucks(id),
		CONSTRAINT fk_fuel_dispensings_equipment FOREIGN KEY (equipment_id) REFERENCES equipment(id),
		CONSTRAINT fk_fuel_dispensings_personnel FOREIGN KEY (personnel_id) REFERENCES users(id),
		CONSTRAINT fk_fuel_dispensings_submitter FOREIGN KEY (submitted_by) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS daily_fuel_reports (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		submitted_by BIGINT UNSIGNED NOT NULL,
		truck_id BIGINT UNSIGNED NULL,
		equipment_id BIGINT UNSIGNED NULL,
		remaining_quantity DECIMAL(14,3) NOT NULL,
		report_day CHAR(10) NOT NULL,
		image_ref VARCHAR(255) NOT NULL,
		captured_at DATETIME(6) NOT NULL,
		camera_make VARCHAR(120) NULL,
		camera_model VARCHAR(120) NULL,
		latitude DOUBLE NULL,
		longitude DOUBLE NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_daily_fuel_reports_user_day (submitted_by, report_day),
		CONSTRAINT fk_daily_fuel_reports_user FOREIGN KEY (submitted_by) REFERENCES users(id),
		CONSTRAINT fk_daily_fuel_reports_truck FOREIGN KEY (truck_id) REFERENCES trucks(id),
		CONSTRAINT fk_daily_fuel_reports_equipment FOREIGN KEY (equipment_id) REFERENCES equipment(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		truck_id BIGINT UNSIGNED NULL,
		equipment_id BIGINT UNSIGNED NULL,
		site_label VARCHAR(190) NOT NULL,
		start_date DATE NOT NULL,
		end_date DATETIME(6) NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		active_user_id BIGINT UNSIGNED AS (IF(is_active = 1, user_id, NULL)) STORED,
		active_truck_id BIGINT UNSIGNED AS (IF(is_active = 1, truck_id, NULL)) STORED,
		active_equipment_id BIGINT UNSIGNED AS (IF(is_active = 1, equipment_id, NULL)) STORED,
		UNIQUE KEY uq_assignments_active_user (active_user_id),
		UNIQUE KEY uq_assignments_active_truck (active_truck_id),
		UNIQUE KEY uq_assignments_active_equipment (active_equipment_id),
		KEY idx_assignments_user (user_id),
		CONSTRAINT fk_assignments_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_assignments_truck FOREIGN KEY (truck_id) REFERENCES trucks(id),
		CONSTRAINT fk_assignments_equipment FOREIGN KEY (equipment_id) REFERENCES equipment(id),
		CONSTRAINT chk_assignments_one_vehicle CHECK ((truck_id IS NULL) <> (equipment_id IS NULL))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		reported_by BIGINT UNSIGNED NOT NULL,
		truck_id BIGINT UNSIGNED NULL,
		equipment_id BIGINT UNSIGNED NULL,
		title VARCHAR(190) NOT NULL,
		description TEXT NOT NULL,
		severity VARCHAR(10) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'open',
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		KEY idx_incidents_reporter (reported_by),
		CONSTRAINT fk_incidents_user FOREIGN KEY (reported_by) REFERENCES users(id),
		CONSTRAINT fk_incidents_truck FOREIGN KEY (truck_id) REFERENCES trucks(id),
		CONSTRAINT fk_incidents_equipment FOREIGN KEY (equipment_id) REFERENCES equipment(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		event_id CHAR(36) NOT NULL,
		type VARCHAR(60) NOT NULL,
		title VARCHAR(190) NOT NULL,
		message TEXT NOT NULL,
		actor_id BIGINT UNSIGNED NOT NULL,
		related_type VARCHAR(40) NULL,
		related_id BIGINT UNSIGNED NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		read_at DATETIME(6) NULL,
		UNIQUE KEY uq_notifications_event (event_id),
		KEY idx_notifications_unread (is_read, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		phone TEXT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS trucks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plate_number TEXT NOT NULL UNIQUE,
		model TEXT NOT NULL DEFAULT '',
		capacity_liters TEXT NULL,
		site_label TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		serial_number TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL DEFAULT '',
		site_label TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fuel_stock (
		id INTEGER PRIMARY KEY,
		total_quantity TEXT NOT NULL DEFAULT '0',
		alert_threshold TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fuel_replenishments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submitted_by INTEGER NOT NULL REFERENCES users(id),
		quantity TEXT NOT NULL,
		supplied_on DATE NOT NULL,
		notes TEXT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fuel_dispensings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		truck_id INTEGER NULL REFERENCES trucks(id),
		equipment_id INTEGER NULL REFERENCES equipment(id),
		personnel_id INTEGER NOT NULL REFERENCES users(id),
		submitted_by INTEGER NOT NULL REFERENCES users(id),
		quantity TEXT NOT NULL,
		dispensed_on DATE NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS daily_fuel_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submitted_by INTEGER NOT NULL REFERENCES users(id),
		truck_id INTEGER NULL REFERENCES trucks(id),
		equipment_id INTEGER NULL REFERENCES equipment(id),
		remaining_quantity TEXT NOT NULL,
		report_day TEXT NOT NULL,
		image_ref TEXT NOT NULL,
		captured_at DATETIME NOT NULL,
		camera_make TEXT NULL,
		camera_model TEXT NULL,
		latitude REAL NULL,
		longitude REAL NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (submitted_by, report_day)
	)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		truck_id INTEGER NULL REFERENCES trucks(id),
		equipment_id INTEGER NULL REFERENCES equipment(id),
		site_label TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATETIME NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CHECK ((truck_id IS NULL) <> (equipment_id IS NULL))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_active_user ON assignments(user_id) WHERE is_active = 1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_active_truck ON assignments(truck_id) WHERE is_active = 1 AND truck_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_active_equipment ON assignments(equipment_id) WHERE is_active = 1 AND equipment_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reported_by INTEGER NOT NULL REFERENCES users(id),
		truck_id INTEGER NULL REFERENCES trucks(id),
		equipment_id INTEGER NULL REFERENCES equipment(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		severity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		actor_id INTEGER NOT NULL,
		related_type TEXT NULL,
		related_id INTEGER NULL,
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		read_at DATETIME NULL
	)`,
}
