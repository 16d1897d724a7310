package notify

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresDirectory resolves recipient sets from the users and
// report_assignments tables.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a directory backed by db.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// AdminIDs returns the active admins of an organization.
func (d *PostgresDirectory) AdminIDs(ctx context.Context, orgID int64) ([]int64, error) {
	query := `
		SELECT id FROM users
		WHERE organization_id = $1 AND access_level = 'admin' AND is_active = true
		ORDER BY id`

	return d.queryIDs(ctx, query, orgID)
}

// ActiveUserIDs returns every active user of an organization.
func (d *PostgresDirectory) ActiveUserIDs(ctx context.Context, orgID int64) ([]int64, error) {
	query := `
		SELECT id FROM users
		WHERE organization_id = $1 AND is_active = true
		ORDER BY id`

	return d.queryIDs(ctx, query, orgID)
}

// ActiveAssigneeIDs returns the active assignees of a report whose user
// accounts are themselves active.
func (d *PostgresDirectory) ActiveAssigneeIDs(ctx context.Context, reportID int64) ([]int64, error) {
	query := `
		SELECT ra.user_id FROM report_assignments ra
		JOIN users u ON u.id = ra.user_id
		WHERE ra.report_id = $1 AND ra.active = true AND u.is_active = true
		ORDER BY ra.user_id`

	return d.queryIDs(ctx, query, reportID)
}

func (d *PostgresDirectory) queryIDs(ctx context.Context, query string, arg interface{}) ([]int64, error) {
	rows, err := d.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recipient id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
