package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; schema_migrations records the last applied
// version so restarts are idempotent.
var migrations = []string{
	// 1: organizations and users
	`CREATE TABLE IF NOT EXISTS organizations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL DEFAULT 'basico',
		max_usuarios INT NOT NULL DEFAULT 5,
		max_relatorios_mensais INT NOT NULL DEFAULT 50,
		max_equipamentos INT NOT NULL DEFAULT 20,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_suspended BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		access_level TEXT NOT NULL DEFAULT 'usuario',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_users_org ON users(organization_id);`,

	// 2: permission matrix and its audit trail
	`CREATE TABLE IF NOT EXISTS permissions (
		id BIGSERIAL PRIMARY KEY,
		access_level TEXT NOT NULL,
		resource TEXT NOT NULL,
		action TEXT NOT NULL,
		allowed BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (access_level, resource, action)
	);
	CREATE TABLE IF NOT EXISTS permission_audit (
		id BIGSERIAL PRIMARY KEY,
		actor_id BIGINT NOT NULL,
		access_level TEXT NOT NULL,
		resource TEXT NOT NULL,
		action TEXT NOT NULL,
		old_allowed BOOLEAN,
		new_allowed BOOLEAN NOT NULL,
		ip_address TEXT,
		user_agent TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	// 3: general audit log
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		actor_id BIGINT,
		organization_id BIGINT,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id BIGINT,
		before JSONB,
		after JSONB,
		ip_address TEXT,
		user_agent TEXT,
		request_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_org ON audit_logs(organization_id, created_at);`,

	// 4: notifications and preferences
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		report_id BIGINT,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		data JSONB,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		read_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);
	CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id BIGINT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (user_id, type)
	);`,

	// 5: sectors, locations, equipment
	`CREATE TABLE IF NOT EXISTS sectors (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS locations (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		sector_id BIGINT REFERENCES sectors(id),
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS equipment (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		sector_id BIGINT REFERENCES sectors(id),
		location_id BIGINT REFERENCES locations(id),
		name TEXT NOT NULL,
		tag TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ativo',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (organization_id, tag)
	);
	CREATE INDEX IF NOT EXISTS idx_equipment_org ON equipment(organization_id);`,

	// 6: motors, analyzers, generator inspections
	`CREATE TABLE IF NOT EXISTS motors (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		equipment_id BIGINT REFERENCES equipment(id),
		name TEXT NOT NULL,
		power_kw DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS analyzers (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		equipment_id BIGINT REFERENCES equipment(id),
		name TEXT NOT NULL,
		serial_number TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS generator_inspections (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		equipment_id BIGINT REFERENCES equipment(id),
		inspected_by BIGINT REFERENCES users(id),
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	// 7: reports, assignments, history
	`CREATE TABLE IF NOT EXISTS reports (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		equipment_id BIGINT REFERENCES equipment(id),
		created_by BIGINT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'aberto',
		priority TEXT NOT NULL DEFAULT 'media',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_reports_org ON reports(organization_id, created_at DESC);
	CREATE TABLE IF NOT EXISTS report_assignments (
		report_id BIGINT NOT NULL REFERENCES reports(id),
		user_id BIGINT NOT NULL REFERENCES users(id),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		assigned_by BIGINT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (report_id, user_id)
	);
	CREATE TABLE IF NOT EXISTS report_history (
		id BIGSERIAL PRIMARY KEY,
		report_id BIGINT NOT NULL REFERENCES reports(id),
		user_id BIGINT NOT NULL REFERENCES users(id),
		note TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
}

// Migrate applies pending schema migrations on the primary connection.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var current sql.NullInt64
	if err := db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("reading current migration version: %w", err)
	}

	for i, stmt := range migrations {
		version := i + 1
		if current.Valid && int64(version) <= current.Int64 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", version, err)
		}

		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}
