package reports

import (
	"errors"
	"time"
)

// Status values for a report's lifecycle.
const (
	StatusOpen       = "aberto"
	StatusInProgress = "em_andamento"
	StatusResolved   = "resolvido"
	StatusClosed     = "fechado"
)

// ValidStatus reports whether s is a known report status.
func ValidStatus(s string) bool {
	return s == StatusOpen || s == StatusInProgress || s == StatusResolved || s == StatusClosed
}

// Priority values.
const (
	PriorityLow      = "baixa"
	PriorityMedium   = "media"
	PriorityHigh     = "alta"
	PriorityCritical = "critica"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh || p == PriorityCritical
}

// EditWindow is how long the creator may rewrite a report after creating
// it. Assignees are not bound by it.
const EditWindow = 24 * time.Hour

// Report is one maintenance report.
type Report struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	EquipmentID    *int64    `json:"equipment_id,omitempty"`
	CreatedBy      int64     `json:"created_by"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Assignment is one row of a report's assignment list. Rows are kept after
// removal with active=false so reassignment history survives.
type Assignment struct {
	ReportID   int64     `json:"report_id"`
	UserID     int64     `json:"user_id"`
	Active     bool      `json:"active"`
	AssignedBy *int64    `json:"assigned_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryEntry is one note on a report's thread.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	ReportID  int64     `json:"report_id"`
	UserID    int64     `json:"user_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound = errors.New("report not found")

	// ErrEditWindowClosed rejects a full edit by the creator after
	// EditWindow has passed.
	ErrEditWindowClosed = errors.New("prazo de edição encerrado: adicione um histórico ao relatório")

	// ErrNotAllowed rejects edits by users who are neither the creator nor
	// an active assignee.
	ErrNotAllowed = errors.New("somente o criador ou os responsáveis podem editar o relatório")
)
