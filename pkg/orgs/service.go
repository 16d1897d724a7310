package orgs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Service is the organization surface consumed by the resolver, the Gate,
// and the admin router.
type Service interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id int64) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	Update(ctx context.Context, org *Organization) error
	SetSuspended(ctx context.Context, id int64, suspended bool) error
	SetActive(ctx context.Context, id int64, active bool) error

	CheckUserLimit(ctx context.Context, orgID int64) error
	CheckEquipmentLimit(ctx context.Context, orgID int64) error
	CheckMonthlyReportLimit(ctx context.Context, orgID int64, now time.Time) error
}

const orgColumns = `id, name, slug, plan, max_usuarios, max_relatorios_mensais, max_equipamentos,
	       is_active, is_suspended, created_at, updated_at`

// PostgresService implements Service using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

func scanOrg(row interface{ Scan(...interface{}) error }) (*Organization, error) {
	org := &Organization{}
	err := row.Scan(
		&org.ID, &org.Name, &org.Slug, &org.Plan,
		&org.Limits.MaxUsuarios, &org.Limits.MaxRelatoriosMensais, &org.Limits.MaxEquipamentos,
		&org.IsActive, &org.IsSuspended, &org.CreatedAt, &org.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning organization: %w", err)
	}
	return org, nil
}

// Create inserts an organization. Slug derives from the name when empty;
// limits default from the plan when zero.
func (s *PostgresService) Create(ctx context.Context, org *Organization) error {
	if org.Slug == "" {
		org.Slug = GenerateSlug(org.Name)
	}
	if org.Plan == "" {
		org.Plan = PlanBasico
	}
	if org.Limits == (Limits{}) {
		org.Limits = DefaultLimits(org.Plan)
	}
	org.IsActive = true

	query := `
		INSERT INTO organizations (name, slug, plan, max_usuarios, max_relatorios_mensais, max_equipamentos, is_active, is_suspended)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		org.Name, org.Slug, org.Plan,
		org.Limits.MaxUsuarios, org.Limits.MaxRelatoriosMensais, org.Limits.MaxEquipamentos,
		org.IsActive, org.IsSuspended).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetByID retrieves an organization by id.
func (s *PostgresService) GetByID(ctx context.Context, id int64) (*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrg(s.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves an organization by slug.
func (s *PostgresService) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE slug = $1`
	return scanOrg(s.db.QueryRowContext(ctx, query, slug))
}

// List returns all organizations, newest first. Super-admin only surface.
func (s *PostgresService) List(ctx context.Context) ([]*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// Update persists name, plan and limits.
func (s *PostgresService) Update(ctx context.Context, org *Organization) error {
	query := `
		UPDATE organizations
		SET name = $1, plan = $2, max_usuarios = $3, max_relatorios_mensais = $4,
		    max_equipamentos = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		org.Name, org.Plan,
		org.Limits.MaxUsuarios, org.Limits.MaxRelatoriosMensais, org.Limits.MaxEquipamentos,
		org.ID).
		Scan(&org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return nil
}

// SetSuspended flips the suspension flag.
func (s *PostgresService) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	return s.setFlag(ctx, id, "is_suspended", suspended)
}

// SetActive flips the active flag.
func (s *PostgresService) SetActive(ctx context.Context, id int64, active bool) error {
	return s.setFlag(ctx, id, "is_active", active)
}

func (s *PostgresService) setFlag(ctx context.Context, id int64, column string, value bool) error {
	// column is one of two compile-time constants, never user input
	query := fmt.Sprintf(`UPDATE organizations SET %s = $1, updated_at = NOW() WHERE id = $2`, column)
	result, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update organization %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CheckUserLimit fails with *LimitExceededError when the organization has no
// free seat. Only active users count.
func (s *PostgresService) CheckUserLimit(ctx context.Context, orgID int64) error {
	org, err := s.GetByID(ctx, orgID)
	if err != nil {
		return err
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE organization_id = $1 AND is_active = true`, orgID).
		Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}

	if count >= org.Limits.MaxUsuarios {
		return &LimitExceededError{Resource: "usuarios", Current: count, Limit: org.Limits.MaxUsuarios}
	}
	return nil
}

// CheckEquipmentLimit fails with *LimitExceededError when the equipment
// ceiling is reached.
func (s *PostgresService) CheckEquipmentLimit(ctx context.Context, orgID int64) error {
	org, err := s.GetByID(ctx, orgID)
	if err != nil {
		return err
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM equipment WHERE organization_id = $1`, orgID).
		Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count equipment: %w", err)
	}

	if count >= org.Limits.MaxEquipamentos {
		return &LimitExceededError{Resource: "equipamentos", Current: count, Limit: org.Limits.MaxEquipamentos}
	}
	return nil
}

// CheckMonthlyReportLimit fails with *LimitExceededError when the current
// calendar month's report count reaches the plan ceiling.
func (s *PostgresService) CheckMonthlyReportLimit(ctx context.Context, orgID int64, now time.Time) error {
	org, err := s.GetByID(ctx, orgID)
	if err != nil {
		return err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE organization_id = $1 AND created_at >= $2`,
		orgID, monthStart).
		Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count reports: %w", err)
	}

	if count >= org.Limits.MaxRelatoriosMensais {
		return &LimitExceededError{Resource: "relatorios_mensais", Current: count, Limit: org.Limits.MaxRelatoriosMensais}
	}
	return nil
}
