package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relatoapp/relato/pkg/tenant"
)

// Store persists reports, assignments, and history.
type Store struct {
	db *sql.DB
}

// NewStore creates a report store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const reportColumns = `id, organization_id, equipment_id, created_by, title, description, status, priority, created_at, updated_at`

func scanReport(row interface {
	Scan(...interface{}) error
}) (*Report, error) {
	var r Report
	var equipmentID sql.NullInt64
	var description sql.NullString

	err := row.Scan(&r.ID, &r.OrganizationID, &equipmentID, &r.CreatedBy,
		&r.Title, &description, &r.Status, &r.Priority, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if equipmentID.Valid {
		r.EquipmentID = &equipmentID.Int64
	}
	r.Description = description.String
	return &r, nil
}

// Create inserts a report.
func (s *Store) Create(ctx context.Context, scope tenant.Scope, r *Report) error {
	query := `
		INSERT INTO reports (organization_id, equipment_id, created_by, title, description, status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	r.OrganizationID = scope.OrgID()
	if r.Status == "" {
		r.Status = StatusOpen
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	var equipmentID sql.NullInt64
	if r.EquipmentID != nil {
		equipmentID = sql.NullInt64{Int64: *r.EquipmentID, Valid: true}
	}
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		scope.OrgID(), equipmentID, r.CreatedBy, r.Title, r.Description,
		r.Status, r.Priority, now, now,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetByID fetches one report inside the tenant.
func (s *Store) GetByID(ctx context.Context, scope tenant.Scope, id int64) (*Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 AND organization_id = $2`

	r, err := scanReport(s.db.QueryRowContext(ctx, query, id, scope.OrgID()))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return r, nil
}

// List returns the tenant's reports, newest first.
func (s *Store) List(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE organization_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, scope.OrgID(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Update rewrites a report's editable fields.
func (s *Store) Update(ctx context.Context, scope tenant.Scope, r *Report) error {
	query := `
		UPDATE reports
		SET equipment_id = $1, title = $2, description = $3, priority = $4, updated_at = $5
		WHERE id = $6 AND organization_id = $7`

	var equipmentID sql.NullInt64
	if r.EquipmentID != nil {
		equipmentID = sql.NullInt64{Int64: *r.EquipmentID, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, query,
		equipmentID, r.Title, r.Description, r.Priority, time.Now().UTC(),
		r.ID, scope.OrgID())
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return requireAffected(res)
}

// UpdateStatus moves a report to a new status.
func (s *Store) UpdateStatus(ctx context.Context, scope tenant.Scope, id int64, status string) error {
	query := `UPDATE reports SET status = $1, updated_at = $2 WHERE id = $3 AND organization_id = $4`

	res, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id, scope.OrgID())
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}
	return requireAffected(res)
}

// AddHistory appends a note to a report's thread.
func (s *Store) AddHistory(ctx context.Context, scope tenant.Scope, h *HistoryEntry) error {
	// the scope check rides on the report lookup
	if _, err := s.GetByID(ctx, scope, h.ReportID); err != nil {
		return err
	}

	query := `
		INSERT INTO report_history (report_id, user_id, note, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		h.ReportID, h.UserID, h.Note, time.Now().UTC(),
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add report history: %w", err)
	}
	return nil
}

// ListHistory returns a report's thread, oldest first.
func (s *Store) ListHistory(ctx context.Context, scope tenant.Scope, reportID int64) ([]*HistoryEntry, error) {
	if _, err := s.GetByID(ctx, scope, reportID); err != nil {
		return nil, err
	}

	query := `SELECT id, report_id, user_id, note, created_at FROM report_history WHERE report_id = $1 ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list report history: %w", err)
	}
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.ReportID, &h.UserID, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

// Assign adds a user to a report's assignment list, reactivating a
// previously removed row if one exists.
func (s *Store) Assign(ctx context.Context, scope tenant.Scope, reportID, userID int64, assignedBy int64) error {
	if _, err := s.GetByID(ctx, scope, reportID); err != nil {
		return err
	}

	query := `
		INSERT INTO report_assignments (report_id, user_id, active, assigned_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (report_id, user_id) DO UPDATE SET active = true, assigned_by = EXCLUDED.assigned_by`

	_, err := s.db.ExecContext(ctx, query, reportID, userID, true, assignedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to assign report: %w", err)
	}
	return nil
}

// Unassign deactivates a user's assignment.
func (s *Store) Unassign(ctx context.Context, scope tenant.Scope, reportID, userID int64) error {
	if _, err := s.GetByID(ctx, scope, reportID); err != nil {
		return err
	}

	query := `UPDATE report_assignments SET active = false WHERE report_id = $1 AND user_id = $2 AND active = true`

	res, err := s.db.ExecContext(ctx, query, reportID, userID)
	if err != nil {
		return fmt.Errorf("failed to unassign report: %w", err)
	}
	return requireAffected(res)
}

// ActiveAssigneeIDs returns the user ids currently assigned to a report.
func (s *Store) ActiveAssigneeIDs(ctx context.Context, scope tenant.Scope, reportID int64) ([]int64, error) {
	if _, err := s.GetByID(ctx, scope, reportID); err != nil {
		return nil, err
	}

	query := `SELECT user_id FROM report_assignments WHERE report_id = $1 AND active = true ORDER BY user_id`

	rows, err := s.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assignee id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsActiveAssignee reports whether userID is currently assigned to the
// report.
func (s *Store) IsActiveAssignee(ctx context.Context, reportID, userID int64) (bool, error) {
	query := `SELECT COUNT(*) FROM report_assignments WHERE report_id = $1 AND user_id = $2 AND active = true`

	var count int
	if err := s.db.QueryRowContext(ctx, query, reportID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return count > 0, nil
}

// CountInMonth counts the tenant's reports created in the calendar month
// containing now. Used for plan-limit enforcement.
func (s *Store) CountInMonth(ctx context.Context, scope tenant.Scope, now time.Time) (int, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	query := `SELECT COUNT(*) FROM reports WHERE organization_id = $1 AND created_at >= $2`

	var count int
	if err := s.db.QueryRowContext(ctx, query, scope.OrgID(), monthStart).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count monthly reports: %w", err)
	}
	return count, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
