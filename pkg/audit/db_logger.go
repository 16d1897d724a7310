package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/relatoapp/relato/pkg/contextkeys"
	"github.com/relatoapp/relato/pkg/observability"
)

// Logger is the audit trail interface: Log fails loudly, Record swallows
// failures so auditing never blocks the mutation it describes, and List
// reads the trail back for the admin view.
type Logger interface {
	Log(ctx context.Context, event *Event) error
	Record(ctx context.Context, event *Event)
	List(ctx context.Context, q Query) ([]*Event, error)
}

// DBLogger writes audit events to the audit_logs table.
type DBLogger struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewDBLogger creates a database-backed audit logger.
func NewDBLogger(db *sql.DB, logger *observability.Logger) *DBLogger {
	return &DBLogger{db: db, logger: logger}
}

// Log appends one event. The request id is filled from context when unset.
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	if event.RequestID == "" {
		event.RequestID = contextkeys.GetRequestID(ctx)
	}

	query := `
		INSERT INTO audit_logs (actor_id, organization_id, action, resource_type, resource_id,
		                        before, after, ip_address, user_agent, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	err := l.db.QueryRowContext(ctx, query,
		event.ActorID, event.OrganizationID, event.Action, event.ResourceType, event.ResourceID,
		nullableJSON(event.Before), nullableJSON(event.After),
		event.IPAddress, event.UserAgent, event.RequestID).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// Record logs the event and swallows failures: auditing must not fail the
// mutation it describes.
func (l *DBLogger) Record(ctx context.Context, event *Event) {
	if err := l.Log(ctx, event); err != nil {
		l.logger.WithError(err).WithField("action", string(event.Action)).Error("audit write failed")
	}
}

// List returns events matching the query, newest first.
func (l *DBLogger) List(ctx context.Context, q Query) ([]*Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.OrganizationID != nil {
		add("organization_id = $%d", *q.OrganizationID)
	}
	if q.ActorID != nil {
		add("actor_id = $%d", *q.ActorID)
	}
	if q.ResourceType != "" {
		add("resource_type = $%d", q.ResourceType)
	}

	query := `SELECT id, actor_id, organization_id, action, resource_type, resource_id,
	       before, after, ip_address, user_agent, request_id, created_at
	FROM audit_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, q.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var before, after sql.NullString
		var ip, ua, reqID sql.NullString
		if err := rows.Scan(&e.ID, &e.ActorID, &e.OrganizationID, &e.Action, &e.ResourceType,
			&e.ResourceID, &before, &after, &ip, &ua, &reqID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		if before.Valid {
			e.Before = json.RawMessage(before.String)
		}
		if after.Valid {
			e.After = json.RawMessage(after.String)
		}
		e.IPAddress, e.UserAgent, e.RequestID = ip.String, ua.String, reqID.String
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// ClientIP extracts the originating address, preferring X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
