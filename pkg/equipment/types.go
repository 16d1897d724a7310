package equipment

import (
	"errors"
	"time"
)

// Status values for the equipment registry.
const (
	StatusActive      = "ativo"
	StatusMaintenance = "manutencao"
	StatusInactive    = "inativo"
)

// ValidStatus reports whether s is a known equipment status.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusMaintenance || s == StatusInactive
}

// Sector groups locations inside a tenant's plant.
type Sector struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
}

// Location is a physical spot, optionally inside a sector.
type Location struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	SectorID       *int64    `json:"sector_id,omitempty"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
}

// Equipment is one registered asset. Tag is unique within the tenant.
type Equipment struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	SectorID       *int64    `json:"sector_id,omitempty"`
	LocationID     *int64    `json:"location_id,omitempty"`
	Name           string    `json:"name"`
	Tag            string    `json:"tag"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Motor is a motor record, optionally tied to a piece of equipment.
type Motor struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	EquipmentID    *int64    `json:"equipment_id,omitempty"`
	Name           string    `json:"name"`
	PowerKW        *float64  `json:"power_kw,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Analyzer is an analyzer record.
type Analyzer struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	EquipmentID    *int64    `json:"equipment_id,omitempty"`
	Name           string    `json:"name"`
	SerialNumber   *string   `json:"serial_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GeneratorInspection is one inspection visit on a generator.
type GeneratorInspection struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	EquipmentID    *int64    `json:"equipment_id,omitempty"`
	InspectedBy    *int64    `json:"inspected_by,omitempty"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}

var (
	ErrNotFound     = errors.New("equipment record not found")
	ErrDuplicateTag = errors.New("equipment tag already in use")
)
