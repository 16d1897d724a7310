package audit

import (
	"encoding/json"
	"time"
)

// Action names what happened. Dotted resource.verb, e.g. "relatorio.criar".
type Action string

const (
	ActionLogin             Action = "auth.login"
	ActionPermissionUpdated Action = "permissao.atualizar"
	ActionOrgCreated        Action = "organizacao.criar"
	ActionOrgUpdated        Action = "organizacao.editar"
	ActionOrgSuspended      Action = "organizacao.suspender"
	ActionOrgReactivated    Action = "organizacao.reativar"
	ActionUserCreated       Action = "usuario.criar"
	ActionUserDeactivated   Action = "usuario.desativar"
	ActionUserReactivated   Action = "usuario.reativar"
)

// Event is one audit row.
type Event struct {
	ID             int64           `json:"id"`
	ActorID        *int64          `json:"actor_id,omitempty"`
	OrganizationID *int64          `json:"organization_id,omitempty"`
	Action         Action          `json:"action"`
	ResourceType   string          `json:"resource_type"`
	ResourceID     *int64          `json:"resource_id,omitempty"`
	Before         json.RawMessage `json:"before,omitempty"`
	After          json.RawMessage `json:"after,omitempty"`
	IPAddress      string          `json:"ip_address,omitempty"`
	UserAgent      string          `json:"user_agent,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Query filters the audit listing.
type Query struct {
	OrganizationID *int64
	ActorID        *int64
	ResourceType   string
	Limit          int
	Offset         int
}
