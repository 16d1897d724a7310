package equipment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/relatoapp/relato/pkg/tenant"
)

// Store persists the asset catalog.
type Store struct {
	db *sql.DB
}

// NewStore creates a catalog store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// isUniqueViolation matches postgres 23505; the string check covers the
// SQLite driver used in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

// CreateSector inserts a sector for the tenant.
func (s *Store) CreateSector(ctx context.Context, scope tenant.Scope, sector *Sector) error {
	query := `
		INSERT INTO sectors (organization_id, name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	sector.OrganizationID = scope.OrgID()
	err := s.db.QueryRowContext(ctx, query, scope.OrgID(), sector.Name, time.Now().UTC()).
		Scan(&sector.ID, &sector.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sector: %w", err)
	}
	return nil
}

// ListSectors returns the tenant's sectors.
func (s *Store) ListSectors(ctx context.Context, scope tenant.Scope) ([]*Sector, error) {
	query := `SELECT id, organization_id, name, created_at FROM sectors WHERE organization_id = $1 ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, scope.OrgID())
	if err != nil {
		return nil, fmt.Errorf("failed to list sectors: %w", err)
	}
	defer rows.Close()

	var out []*Sector
	for rows.Next() {
		var sec Sector
		if err := rows.Scan(&sec.ID, &sec.OrganizationID, &sec.Name, &sec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		out = append(out, &sec)
	}
	return out, rows.Err()
}

// DeleteSector removes a tenant's sector.
func (s *Store) DeleteSector(ctx context.Context, scope tenant.Scope, id int64) error {
	query := `DELETE FROM sectors WHERE id = $1 AND organization_id = $2`

	res, err := s.db.ExecContext(ctx, query, id, scope.OrgID())
	if err != nil {
		return fmt.Errorf("failed to delete sector: %w", err)
	}
	return requireAffected(res)
}

// CreateLocation inserts a location for the tenant.
func (s *Store) CreateLocation(ctx context.Context, scope tenant.Scope, loc *Location) error {
	query := `
		INSERT INTO locations (organization_id, sector_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	loc.OrganizationID = scope.OrgID()
	err := s.db.QueryRowContext(ctx, query,
		scope.OrgID(), nullableID(loc.SectorID), loc.Name, time.Now().UTC(),
	).Scan(&loc.ID, &loc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

// ListLocations returns the tenant's locations.
func (s *Store) ListLocations(ctx context.Context, scope tenant.Scope) ([]*Location, error) {
	query := `SELECT id, organization_id, sector_id, name, created_at FROM locations WHERE organization_id = $1 ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, scope.OrgID())
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var out []*Location
	for rows.Next() {
		var loc Location
		var sectorID sql.NullInt64
		if err := rows.Scan(&loc.ID, &loc.OrganizationID, &sectorID, &loc.Name, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		if sectorID.Valid {
			loc.SectorID = &sectorID.Int64
		}
		out = append(out, &loc)
	}
	return out, rows.Err()
}

// DeleteLocation removes a tenant's location.
func (s *Store) DeleteLocation(ctx context.Context, scope tenant.Scope, id int64) error {
	query := `DELETE FROM locations WHERE id = $1 AND organization_id = $2`

	res, err := s.db.ExecContext(ctx, query, id, scope.OrgID())
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return requireAffected(res)
}

const equipmentColumns = `id, organization_id, sector_id, location_id, name, tag, status, created_at, updated_at`

func scanEquipment(row interface {
	Scan(...interface{}) error
}) (*Equipment, error) {
	var e Equipment
	var sectorID, locationID sql.NullInt64

	err := row.Scan(&e.ID, &e.OrganizationID, &sectorID, &locationID,
		&e.Name, &e.Tag, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sectorID.Valid {
		e.SectorID = &sectorID.Int64
	}
	if locationID.Valid {
		e.LocationID = &locationID.Int64
	}
	return &e, nil
}

// CreateEquipment inserts an asset. A tag already used inside the tenant
// comes back as ErrDuplicateTag.
func (s *Store) CreateEquipment(ctx context.Context, scope tenant.Scope, e *Equipment) error {
	query := `
		INSERT INTO equipment (organization_id, sector_id, location_id, name, tag, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	e.OrganizationID = scope.OrgID()
	if e.Status == "" {
		e.Status = StatusActive
	}
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		scope.OrgID(), nullableID(e.SectorID), nullableID(e.LocationID),
		e.Name, e.Tag, e.Status, now, now,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTag
		}
		return fmt.Errorf("failed to create equipment: %w", err)
	}
	return nil
}

// GetEquipment fetches one asset inside the tenant.
func (s *Store) GetEquipment(ctx context.Context, scope tenant.Scope, id int64) (*Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1 AND organization_id = $2`

	e, err := scanEquipment(s.db.QueryRowContext(ctx, query, id, scope.OrgID()))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	return e, nil
}

// ListEquipment returns the tenant's assets.
func (s *Store) ListEquipment(ctx context.Context, scope tenant.Scope) ([]*Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE organization_id = $1 ORDER BY tag`

	rows, err := s.db.QueryContext(ctx, query, scope.OrgID())
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	var out []*Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEquipment rewrites an asset's mutable fields.
func (s *Store) UpdateEquipment(ctx context.Context, scope tenant.Scope, e *Equipment) error {
	query := `
		UPDATE equipment
		SET sector_id = $1, location_id = $2, name = $3, tag = $4, status = $5, updated_at = $6
		WHERE id = $7 AND organization_id = $8`

	res, err := s.db.ExecContext(ctx, query,
		nullableID(e.SectorID), nullableID(e.LocationID), e.Name, e.Tag,
		e.Status, time.Now().UTC(), e.ID, scope.OrgID())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTag
		}
		return fmt.Errorf("failed to update equipment: %w", err)
	}
	return requireAffected(res)
}

// DeleteEquipment removes a tenant's asset.
func (s *Store) DeleteEquipment(ctx context.Context, scope tenant.Scope, id int64) error {
	query := `DELETE FROM equipment WHERE id = $1 AND organization_id = $2`

	res, err := s.db.ExecContext(ctx, query, id, scope.OrgID())
	if err != nil {
		return fmt.Errorf("failed to delete equipment: %w", err)
	}
	return requireAffected(res)
}

// CreateMotor inserts a motor record.
func (s *Store) CreateMotor(ctx context.Context, scope tenant.Scope, m *Motor) error {
	query := `
		INSERT INTO motors (organization_id, equipment_id, name, power_kw, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	m.OrganizationID = scope.OrgID()
	var power sql.NullFloat64
	if m.PowerKW != nil {
		power = sql.NullFloat64{Float64: *m.PowerKW, Valid: true}
	}
	err := s.db.QueryRowContext(ctx, query,
		scope.OrgID(), nullableID(m.EquipmentID), m.Name, power, time.Now().UTC(),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create motor: %w", err)
	}
	return nil
}

// ListMotors returns the tenant's motors.
func (s *Store) ListMotors(ctx context.Context, scope tenant.Scope) ([]*Motor, error) {
	query := `SELECT id, organization_id, equipment_id, name, power_kw, created_at FROM motors WHERE organization_id = $1 ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, scope.OrgID())
	if err != nil {
		return nil, fmt.Errorf("failed to list motors: %w", err)
	}
	defer rows.Close()

	var out []*Motor
	for rows.Next() {
		var m Motor
		var equipmentID sql.NullInt64
		var power sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.OrganizationID, &equipmentID, &m.Name, &power, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan motor: %w", err)
		}
		if equipmentID.Valid {
			m.EquipmentID = &equipmentID.Int64
		}
		if power.Valid {
			m.PowerKW = &power.Float64
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// CreateAnalyzer inserts an analyzer record.
func (s *Store) CreateAnalyzer(ctx context.Context, scope tenant.Scope, a *Analyzer) error {
	query := `
		INSERT INTO analyzers (organization_id, equipment_id, name, serial_number, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	a.OrganizationID = scope.OrgID()
	var serial sql.NullString
	if a.SerialNumber != nil {
		serial = sql.NullString{String: *a.SerialNumber, Valid: true}
	}
	err := s.db.QueryRowContext(ctx, query,
		scope.OrgID(), nullableID(a.EquipmentID), a.Name, serial, time.Now().UTC(),
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	return nil
}

// ListAnalyzers returns the tenant's analyzers.
func (s *Store) ListAnalyzers(ctx context.Context, scope tenant.Scope) ([]*Analyzer, error) {
	query := `SELECT id, organization_id, equipment_id, name, serial_number, created_at FROM analyzers WHERE organization_id = $1 ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, scope.OrgID())
	if err != nil {
		return nil, fmt.Errorf("failed to list analyzers: %w", err)
	}
	defer rows.Close()

	var out []*Analyzer
	for rows.Next() {
		var a Analyzer
		var equipmentID sql.NullInt64
		var serial sql.NullString
		if err := rows.Scan(&a.ID, &a.OrganizationID, &equipmentID, &a.Name, &serial, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analyzer: %w", err)
		}
		if equipmentID.Valid {
			a.EquipmentID = &equipmentID.Int64
		}
		if serial.Valid {
			a.SerialNumber = &serial.String
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// CreateInspection inserts a generator inspection.
func (s *Store) CreateInspection(ctx context.Context, scope tenant.Scope, gi *GeneratorInspection) error {
	query := `
		INSERT INTO generator_inspections (organization_id, equipment_id, inspected_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	gi.OrganizationID = scope.OrgID()
	err := s.db.QueryRowContext(ctx, query,
		scope.OrgID(), nullableID(gi.EquipmentID), nullableID(gi.InspectedBy),
		gi.Notes, time.Now().UTC(),
	).Scan(&gi.ID, &gi.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create inspection: %w", err)
	}
	return nil
}

// ListInspections returns the tenant's generator inspections, newest first.
func (s *Store) ListInspections(ctx context.Context, scope tenant.Scope) ([]*GeneratorInspection, error) {
	query := `SELECT id, organization_id, equipment_id, inspected_by, notes, created_at FROM generator_inspections WHERE organization_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, scope.OrgID())
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	var out []*GeneratorInspection
	for rows.Next() {
		var gi GeneratorInspection
		var equipmentID, inspectedBy sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(&gi.ID, &gi.OrganizationID, &equipmentID, &inspectedBy, &notes, &gi.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		if equipmentID.Valid {
			gi.EquipmentID = &equipmentID.Int64
		}
		if inspectedBy.Valid {
			gi.InspectedBy = &inspectedBy.Int64
		}
		gi.Notes = notes.String
		out = append(out, &gi)
	}
	return out, rows.Err()
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
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
