package auth

import "time"

// AccessLevel is the role a user holds inside (or above) an organization.
type AccessLevel string

const (
	LevelSuperAdmin AccessLevel = "super_admin" // cross-tenant operator
	LevelAdmin      AccessLevel = "admin"       // full access within the org
	LevelUsuario    AccessLevel = "usuario"     // regular member
	LevelConvidado  AccessLevel = "convidado"   // read-mostly guest
)

// rank orders levels for AtLeast comparisons. Unknown levels rank below
// convidado.
func (l AccessLevel) rank() int {
	switch l {
	case LevelSuperAdmin:
		return 4
	case LevelAdmin:
		return 3
	case LevelUsuario:
		return 2
	case LevelConvidado:
		return 1
	default:
		return 0
	}
}

// Valid reports whether l is one of the known access levels.
func (l AccessLevel) Valid() bool {
	return l.rank() > 0
}

// AtLeast reports whether l grants at least the authority of other.
func (l AccessLevel) AtLeast(other AccessLevel) bool {
	return l.rank() >= other.rank()
}

// User is an account row. PasswordHash never serializes.
type User struct {
	ID             int64       `json:"id"`
	OrganizationID int64       `json:"organization_id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	PasswordHash   string      `json:"-"`
	AccessLevel    AccessLevel `json:"access_level"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Identity is the authenticated caller attached to the request context by
// the Gate middleware.
type Identity struct {
	UserID      int64
	OrgID       int64
	AccessLevel AccessLevel
}

// IsSuperAdmin reports whether the caller operates above tenant boundaries.
func (i *Identity) IsSuperAdmin() bool {
	return i.AccessLevel == LevelSuperAdmin
}
