package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the user lookup surface the Gate and the user router need.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	SetActive(ctx context.Context, orgID, userID int64, active bool) error
	ListByOrg(ctx context.Context, orgID int64) ([]*User, error)
}

const userColumns = `id, organization_id, name, email, password_hash, access_level, is_active, created_at, updated_at`

// PostgresUserStore implements UserStore over PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgresUserStore creates a new PostgresUserStore
func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.OrganizationID, &user.Name, &user.Email,
		&user.PasswordHash, &user.AccessLevel, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (s *PostgresUserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

// Create inserts a user row and fills in the generated id and timestamps.
func (s *PostgresUserStore) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (organization_id, name, email, password_hash, access_level, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.OrganizationID, user.Name, user.Email, user.PasswordHash,
		user.AccessLevel, user.IsActive).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update persists name, email, access level and active flag. The row is
// matched by id and organization so a cross-tenant update cannot land.
func (s *PostgresUserStore) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, access_level = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5 AND organization_id = $6
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.AccessLevel, user.IsActive,
		user.ID, user.OrganizationID).
		Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SetActive deactivates or reactivates a user within an organization.
func (s *PostgresUserStore) SetActive(ctx context.Context, orgID, userID int64, active bool) error {
	query := `
		UPDATE users SET is_active = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3
	`
	result, err := s.db.ExecContext(ctx, query, active, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to update user active state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListByOrg lists the organization's users, newest first.
func (s *PostgresUserStore) ListByOrg(ctx context.Context, orgID int64) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
