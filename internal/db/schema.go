package db

import "database/sql"

// EnsureSchema creates the dispatch tables when missing. The unique key on
// trip_assignments (trip_id, kind, resource_id, active) is the hard guard
// against duplicate active assignments: active rows carry 1, removed rows
// NULL, and MySQL ignores NULLs in unique keys so history never collides.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			branch_id BIGINT NOT NULL,
			customer_name VARCHAR(255) NOT NULL DEFAULT '',
			customer_phone VARCHAR(100) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			estimated_cost DECIMAL(14,2) NOT NULL DEFAULT 0,
			total_cost DECIMAL(14,2) NOT NULL DEFAULT 0,
			paid_confirmed DECIMAL(14,2) NOT NULL DEFAULT 0,
			deposit_confirmed TINYINT(1) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			KEY idx_bookings_branch (branch_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS trips (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			booking_id BIGINT NOT NULL,
			start_location VARCHAR(255) NOT NULL DEFAULT '',
			end_location VARCHAR(255) NOT NULL DEFAULT '',
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			distance_km DECIMAL(10,2) NOT NULL DEFAULT 0,
			required_category_id BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'SCHEDULED',
			version BIGINT NOT NULL DEFAULT 0,
			KEY idx_trips_booking (booking_id),
			KEY idx_trips_status_start (status, start_time)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS drivers (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			branch_id BIGINT NOT NULL,
			full_name VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(100) NOT NULL DEFAULT '',
			license_number VARCHAR(50) NOT NULL,
			license_class VARCHAR(10) NOT NULL DEFAULT '',
			license_expiry DATE NULL,
			priority_level INT NOT NULL DEFAULT 1,
			rating DECIMAL(3,2) NOT NULL DEFAULT 5.00,
			status VARCHAR(20) NOT NULL DEFAULT 'AVAILABLE',
			UNIQUE KEY uniq_drivers_license (license_number),
			KEY idx_drivers_branch (branch_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS vehicle_categories (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			seats INT NOT NULL DEFAULT 0
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS vehicles (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			branch_id BIGINT NOT NULL,
			category_id BIGINT NOT NULL,
			license_plate VARCHAR(20) NOT NULL,
			model VARCHAR(100) NOT NULL DEFAULT '',
			capacity INT NOT NULL DEFAULT 0,
			odometer_km DECIMAL(12,1) NOT NULL DEFAULT 0,
			last_maintenance DATE NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'AVAILABLE',
			UNIQUE KEY uniq_vehicles_plate (license_plate),
			KEY idx_vehicles_branch (branch_id),
			KEY idx_vehicles_category (category_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS trip_assignments (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			trip_id BIGINT NOT NULL,
			kind VARCHAR(10) NOT NULL,
			resource_id BIGINT NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT '',
			note VARCHAR(255) NOT NULL DEFAULT '',
			active TINYINT(1) NULL DEFAULT 1,
			assigned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			accepted_at TIMESTAMP NULL,
			removed_at TIMESTAMP NULL,
			removed_reason VARCHAR(255) NOT NULL DEFAULT '',
			UNIQUE KEY uniq_active_assignment (trip_id, kind, resource_id, active),
			KEY idx_assignments_resource (kind, resource_id, active),
			KEY idx_assignments_trip (trip_id, active)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS trip_incidents (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			trip_id BIGINT NOT NULL,
			driver_id BIGINT NOT NULL,
			description TEXT NOT NULL,
			severity VARCHAR(50) NOT NULL DEFAULT 'NORMAL',
			resolved TINYINT(1) NOT NULL DEFAULT 0,
			resolution_action VARCHAR(50) NOT NULL DEFAULT '',
			resolution_note VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			resolved_at TIMESTAMP NULL,
			KEY idx_incidents_trip (trip_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			username VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(100) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'dispatcher',
			driver_id BIGINT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			UNIQUE KEY uniq_users_username (username),
			UNIQUE KEY uniq_users_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	}

	for _, ddl := range stmts {
		if _, err := db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}
