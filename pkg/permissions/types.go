package permissions

import (
	"github.com/relatoapp/relato/pkg/auth"
)

// Resource names a protected resource class. Values are the stored slugs.
type Resource string

const (
	ResourceEquipamentos     Resource = "equipamentos"
	ResourceRelatorios       Resource = "relatorios"
	ResourceMotores          Resource = "motores"
	ResourceAnalisadores     Resource = "analisadores"
	ResourceInspecoesGerador Resource = "inspecoes_gerador"
	ResourceUsuarios         Resource = "usuarios"
	ResourceSetores          Resource = "setores"
	ResourceLocais           Resource = "locais"
	ResourceOrganizacoes     Resource = "organizacoes"
	ResourcePermissoes       Resource = "permissoes"
)

// Action names an operation on a resource.
type Action string

const (
	ActionVisualizar Action = "visualizar"
	ActionCriar      Action = "criar"
	ActionEditar     Action = "editar"
	ActionExcluir    Action = "excluir"
)

// Entry is one matrix row.
type Entry struct {
	ID          int64            `json:"id"`
	AccessLevel auth.AccessLevel `json:"access_level"`
	Resource    Resource         `json:"resource"`
	Action      Action           `json:"action"`
	Allowed     bool             `json:"allowed"`
}

// permKey is the cache key within one access level.
func permKey(resource Resource, action Action) string {
	return string(resource) + "." + string(action)
}

// UpdateRequest changes one matrix entry, carrying the actor context the
// audit row records.
type UpdateRequest struct {
	AccessLevel auth.AccessLevel `json:"access_level"`
	Resource    Resource         `json:"resource"`
	Action      Action           `json:"action"`
	Allowed     bool             `json:"allowed"`

	ActorID   int64  `json:"-"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}
