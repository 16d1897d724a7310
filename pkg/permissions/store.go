package permissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store loads and mutates the permission matrix.
type Store interface {
	LoadAll(ctx context.Context) ([]Entry, error)
	Update(ctx context.Context, req UpdateRequest) (*Entry, error)
}

// PostgresStore implements Store over PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// LoadAll reads the whole matrix.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]Entry, error) {
	query := `SELECT id, access_level, resource, action, allowed FROM permissions`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AccessLevel, &e.Resource, &e.Action, &e.Allowed); err != nil {
			return nil, fmt.Errorf("scanning permission: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Update upserts one matrix entry and records the change in
// permission_audit inside the same transaction. The previous value (NULL on
// first insert) lands in old_allowed.
func (s *PostgresStore) Update(ctx context.Context, req UpdateRequest) (*Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning permission update: %w", err)
	}
	defer tx.Rollback()

	var oldAllowed sql.NullBool
	err = tx.QueryRowContext(ctx,
		`SELECT allowed FROM permissions WHERE access_level = $1 AND resource = $2 AND action = $3`,
		req.AccessLevel, req.Resource, req.Action).
		Scan(&oldAllowed.Bool)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first write for this cell
	case err != nil:
		return nil, fmt.Errorf("reading current permission: %w", err)
	default:
		oldAllowed.Valid = true
	}

	entry := &Entry{
		AccessLevel: req.AccessLevel,
		Resource:    req.Resource,
		Action:      req.Action,
		Allowed:     req.Allowed,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO permissions (access_level, resource, action, allowed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (access_level, resource, action)
		DO UPDATE SET allowed = EXCLUDED.allowed
		RETURNING id`,
		req.AccessLevel, req.Resource, req.Action, req.Allowed).
		Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("writing permission: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO permission_audit (actor_id, access_level, resource, action, old_allowed, new_allowed, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ActorID, req.AccessLevel, req.Resource, req.Action,
		oldAllowed, req.Allowed, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("writing permission audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing permission update: %w", err)
	}
	return entry, nil
}
