package orgs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanBasico       Plan = "basico"
	PlanProfissional Plan = "profissional"
	PlanEnterprise   Plan = "enterprise"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanBasico, PlanProfissional, PlanEnterprise:
		return true
	}
	return false
}

// Limits are the numeric ceilings a plan grants.
type Limits struct {
	MaxUsuarios          int `json:"max_usuarios"`
	MaxRelatoriosMensais int `json:"max_relatorios_mensais"`
	MaxEquipamentos      int `json:"max_equipamentos"`
}

// DefaultLimits returns the stock limits for a plan. Organizations can be
// adjusted individually afterwards.
func DefaultLimits(plan Plan) Limits {
	switch plan {
	case PlanEnterprise:
		return Limits{MaxUsuarios: 500, MaxRelatoriosMensais: 10000, MaxEquipamentos: 2000}
	case PlanProfissional:
		return Limits{MaxUsuarios: 50, MaxRelatoriosMensais: 1000, MaxEquipamentos: 200}
	default:
		return Limits{MaxUsuarios: 5, MaxRelatoriosMensais: 50, MaxEquipamentos: 20}
	}
}

// Organization is a tenant.
type Organization struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Plan        Plan      `json:"plan"`
	Limits      Limits    `json:"limits"`
	IsActive    bool      `json:"is_active"`
	IsSuspended bool      `json:"is_suspended"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrNotFound is returned when no organization matches the lookup.
var ErrNotFound = errors.New("organization not found")

// LimitExceededError reports a plan ceiling that blocks a create.
type LimitExceededError struct {
	Resource string
	Current  int
	Limit    int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("plan limit exceeded for %s: %d of %d in use", e.Resource, e.Current, e.Limit)
}

// IsLimitExceeded reports whether err is a plan-limit failure.
func IsLimitExceeded(err error) bool {
	var lee *LimitExceededError
	return errors.As(err, &lee)
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug derives a URL-safe slug from an organization name.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
