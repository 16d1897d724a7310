package notify

import (
	"encoding/json"
	"errors"
	"time"
)

// Type enumerates the notification kinds the system emits. The values are
// the slugs stored in the notifications table.
type Type string

const (
	TypeNewAssignment Type = "nova_atribuicao"
	TypeStatusChange  Type = "mudanca_status"
	TypeNewHistory    Type = "novo_historico"
	TypeNewReport     Type = "novo_relatorio"
	TypeNewInspection Type = "nova_inspecao"
	TypeNewAnalyzer   Type = "novo_analisador"
)

// Valid reports whether t is a known notification type.
func (t Type) Valid() bool {
	switch t {
	case TypeNewAssignment, TypeStatusChange, TypeNewHistory,
		TypeNewReport, TypeNewInspection, TypeNewAnalyzer:
		return true
	}
	return false
}

// Notification is one persisted notification row.
type Notification struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	ReportID  *int64          `json:"report_id,omitempty"`
	Type      Type            `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
}

// Preference is a per-user, per-type opt-out. A user with no row for a
// type is treated as opted in.
type Preference struct {
	UserID  int64 `json:"user_id"`
	Type    Type  `json:"type"`
	Enabled bool  `json:"enabled"`
}

// Payload is the content of a notification before it is addressed to a
// recipient.
type Payload struct {
	Type     Type
	Title    string
	Message  string
	ReportID *int64
	Data     json.RawMessage
}

// DeliveryResult is the per-recipient outcome of a fan-out. Suppressed
// means the recipient's preference turned the notification off; Err is a
// persistence failure for that recipient only.
type DeliveryResult struct {
	UserID         int64
	NotificationID int64
	Suppressed     bool
	Err            error
}

// Transport pushes an event to one live connection. Implemented by the
// realtime hub; an error means the connection is unknown or already closed.
type Transport interface {
	Emit(connID string, event string, data interface{}) error
}

// Events emitted over the live connection.
const (
	EventNew     = "notification:new"
	EventRead    = "notification:read"
	EventReadAll = "notification:read_all"
)

var ErrNotFound = errors.New("notification not found")
