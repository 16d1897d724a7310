package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store is the persistence surface the service needs. PostgresStore is the
// production implementation; tests use it against in-memory SQLite.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id, userID int64) (*Notification, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]*Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, id, userID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	PreferenceEnabled(ctx context.Context, userID int64, t Type) (bool, error)
	UpsertPreference(ctx context.Context, p *Preference) error
	ListPreferences(ctx context.Context, userID int64) ([]*Preference, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresStore persists notifications and preferences.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a notification store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `id, user_id, report_id, type, title, message, data, read, created_at, read_at`

func scanNotification(row interface {
	Scan(...interface{}) error
}) (*Notification, error) {
	var n Notification
	var reportID sql.NullInt64
	var data []byte
	var readAt sql.NullTime

	err := row.Scan(&n.ID, &n.UserID, &reportID, &n.Type, &n.Title,
		&n.Message, &data, &n.Read, &n.CreatedAt, &readAt)
	if err != nil {
		return nil, err
	}
	if reportID.Valid {
		n.ReportID = &reportID.Int64
	}
	if len(data) > 0 {
		n.Data = data
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return &n, nil
}

// Create inserts a notification and fills in its id and creation time.
func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (user_id, report_id, type, title, message, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	var reportID sql.NullInt64
	if n.ReportID != nil {
		reportID = sql.NullInt64{Int64: *n.ReportID, Valid: true}
	}
	var data interface{}
	if len(n.Data) > 0 {
		data = []byte(n.Data)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, query,
		n.UserID, reportID, n.Type, n.Title, n.Message, data, false, n.CreatedAt,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID fetches one notification owned by userID.
func (s *PostgresStore) GetByID(ctx context.Context, id, userID int64) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND user_id = $2`

	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListForUser returns the user's notifications, newest first.
func (s *PostgresStore) ListForUser(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns how many unread notifications the user has.
func (s *PostgresStore) UnreadCount(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read. Returns false when the row was
// already read or does not belong to the user; marking twice is not an
// error.
func (s *PostgresStore) MarkRead(ctx context.Context, id, userID int64) (bool, error) {
	query := `
		UPDATE notifications SET read = true, read_at = $1
		WHERE id = $2 AND user_id = $3 AND read = false`

	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkAllRead marks every unread notification for the user and returns how
// many rows changed.
func (s *PostgresStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	query := `
		UPDATE notifications SET read = true, read_at = $1
		WHERE user_id = $2 AND read = false`

	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

// PreferenceEnabled reports whether the user receives notifications of the
// given type. No stored row means enabled.
func (s *PostgresStore) PreferenceEnabled(ctx context.Context, userID int64, t Type) (bool, error) {
	query := `SELECT enabled FROM notification_preferences WHERE user_id = $1 AND type = $2`

	var enabled bool
	err := s.db.QueryRowContext(ctx, query, userID, t).Scan(&enabled)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read notification preference: %w", err)
	}
	return enabled, nil
}

// UpsertPreference stores a per-type opt-in/opt-out for a user.
func (s *PostgresStore) UpsertPreference(ctx context.Context, p *Preference) error {
	query := `
		INSERT INTO notification_preferences (user_id, type, enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, type) DO UPDATE SET enabled = EXCLUDED.enabled`

	if _, err := s.db.ExecContext(ctx, query, p.UserID, p.Type, p.Enabled); err != nil {
		return fmt.Errorf("failed to upsert notification preference: %w", err)
	}
	return nil
}

// ListPreferences returns the stored preference rows for a user. Types with
// no row are enabled and absent from the result.
func (s *PostgresStore) ListPreferences(ctx context.Context, userID int64) ([]*Preference, error) {
	query := `SELECT user_id, type, enabled FROM notification_preferences WHERE user_id = $1 ORDER BY type`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification preferences: %w", err)
	}
	defer rows.Close()

	var out []*Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.UserID, &p.Type, &p.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan notification preference: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes notifications created before cutoff and returns
// how many rows were removed.
func (s *PostgresStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE created_at < $1`

	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return res.RowsAffected()
}
