package equipment

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relatoapp/relato/pkg/tenant"
)

func setupCatalogDB(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE sectors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			sector_id INTEGER,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE equipment (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			sector_id INTEGER,
			location_id INTEGER,
			name TEXT NOT NULL,
			tag TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ativo',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (organization_id, tag)
		);
		CREATE TABLE motors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			equipment_id INTEGER,
			name TEXT NOT NULL,
			power_kw REAL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE analyzers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			equipment_id INTEGER,
			name TEXT NOT NULL,
			serial_number TEXT,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE generator_inspections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			equipment_id INTEGER,
			inspected_by INTEGER,
			notes TEXT,
			created_at TIMESTAMP NOT NULL
		);
	`)
	require.NoError(t, err)

	return NewStore(db)
}

var (
	orgA = tenant.NewScope(1)
	orgB = tenant.NewScope(2)
)

func TestStore_SectorsAndLocations(t *testing.T) {
	store := setupCatalogDB(t)
	ctx := context.Background()

	sector := &Sector{Name: "Produção"}
	require.NoError(t, store.CreateSector(ctx, orgA, sector))
	assert.NotZero(t, sector.ID)
	assert.Equal(t, int64(1), sector.OrganizationID)

	loc := &Location{Name: "Galpão 2", SectorID: &sector.ID}
	require.NoError(t, store.CreateLocation(ctx, orgA, loc))

	sectors, err := store.ListSectors(ctx, orgA)
	require.NoError(t, err)
	assert.Len(t, sectors, 1)

	locs, err := store.ListLocations(ctx, orgA)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	require.NotNil(t, locs[0].SectorID)
	assert.Equal(t, sector.ID, *locs[0].SectorID)

	// another tenant sees nothing and cannot delete across the fence
	sectors, err = store.ListSectors(ctx, orgB)
	require.NoError(t, err)
	assert.Empty(t, sectors)
	assert.ErrorIs(t, store.DeleteSector(ctx, orgB, sector.ID), ErrNotFound)

	require.NoError(t, store.DeleteLocation(ctx, orgA, loc.ID))
	require.NoError(t, store.DeleteSector(ctx, orgA, sector.ID))
}

func TestStore_EquipmentCRUD(t *testing.T) {
	store := setupCatalogDB(t)
	ctx := context.Background()

	e := &Equipment{Name: "Bomba centrífuga", Tag: "BC-001"}
	require.NoError(t, store.CreateEquipment(ctx, orgA, e))
	assert.Equal(t, StatusActive, e.Status)

	got, err := store.GetEquipment(ctx, orgA, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "BC-001", got.Tag)

	got.Status = StatusMaintenance
	require.NoError(t, store.UpdateEquipment(ctx, orgA, got))

	list, err := store.ListEquipment(ctx, orgA)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusMaintenance, list[0].Status)

	require.NoError(t, store.DeleteEquipment(ctx, orgA, e.ID))
	_, err = store.GetEquipment(ctx, orgA, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EquipmentTagUniquePerTenant(t *testing.T) {
	store := setupCatalogDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEquipment(ctx, orgA, &Equipment{Name: "Bomba 1", Tag: "BC-001"}))

	err := store.CreateEquipment(ctx, orgA, &Equipment{Name: "Bomba 2", Tag: "BC-001"})
	assert.ErrorIs(t, err, ErrDuplicateTag)

	// same tag in another tenant is fine
	require.NoError(t, store.CreateEquipment(ctx, orgB, &Equipment{Name: "Bomba 1", Tag: "BC-001"}))
}

func TestStore_CrossTenantLookupIsNotFound(t *testing.T) {
	store := setupCatalogDB(t)
	ctx := context.Background()

	e := &Equipment{Name: "Gerador", Tag: "GER-01"}
	require.NoError(t, store.CreateEquipment(ctx, orgA, e))

	_, err := store.GetEquipment(ctx, orgB, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_MotorsAnalyzersInspections(t *testing.T) {
	store := setupCatalogDB(t)
	ctx := context.Background()

	e := &Equipment{Name: "Gerador", Tag: "GER-01"}
	require.NoError(t, store.CreateEquipment(ctx, orgA, e))

	power := 75.0
	require.NoError(t, store.CreateMotor(ctx, orgA, &Motor{Name: "Motor principal", EquipmentID: &e.ID, PowerKW: &power}))

	serial := "AX-9921"
	require.NoError(t, store.CreateAnalyzer(ctx, orgA, &Analyzer{Name: "Analisador de vibração", SerialNumber: &serial}))

	inspector := int64(4)
	require.NoError(t, store.CreateInspection(ctx, orgA, &GeneratorInspection{
		EquipmentID: &e.ID, InspectedBy: &inspector, Notes: "tudo em ordem",
	}))

	motors, err := store.ListMotors(ctx, orgA)
	require.NoError(t, err)
	require.Len(t, motors, 1)
	require.NotNil(t, motors[0].PowerKW)
	assert.Equal(t, 75.0, *motors[0].PowerKW)

	analyzers, err := store.ListAnalyzers(ctx, orgA)
	require.NoError(t, err)
	require.Len(t, analyzers, 1)
	require.NotNil(t, analyzers[0].SerialNumber)
	assert.Equal(t, "AX-9921", *analyzers[0].SerialNumber)

	inspections, err := store.ListInspections(ctx, orgA)
	require.NoError(t, err)
	require.Len(t, inspections, 1)
	assert.Equal(t, "tudo em ordem", inspections[0].Notes)

	// tenant fences hold for the per-machine records too
	motors, err = store.ListMotors(ctx, orgB)
	require.NoError(t, err)
	assert.Empty(t, motors)
}
