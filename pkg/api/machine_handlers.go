package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relatoapp/relato/pkg/equipment"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/observability"
	"github.com/relatoapp/relato/pkg/permissions"
	"github.com/relatoapp/relato/pkg/tenant"
)

// MachineHandlers covers motors, analyzers, and generator inspections.
// Creating an analyzer or inspection notifies the tenant's admins.
type MachineHandlers struct {
	deps Deps
}

func (h *MachineHandlers) RegisterRoutes(r *mux.Router, w wrappers) {
	r.Handle("/motores", w.scoped(w.perm(permissions.ResourceMotores, permissions.ActionCriar, h.createMotor))).Methods("POST")
	r.Handle("/motores", w.scoped(w.perm(permissions.ResourceMotores, permissions.ActionVisualizar, h.listMotors))).Methods("GET")

	r.Handle("/analisadores", w.scoped(w.perm(permissions.ResourceAnalisadores, permissions.ActionCriar, h.createAnalyzer))).Methods("POST")
	r.Handle("/analisadores", w.scoped(w.perm(permissions.ResourceAnalisadores, permissions.ActionVisualizar, h.listAnalyzers))).Methods("GET")

	res := permissions.ResourceInspecoesGerador
	r.Handle("/inspecoes-gerador", w.scoped(w.perm(res, permissions.ActionCriar, h.createInspection))).Methods("POST")
	r.Handle("/inspecoes-gerador", w.scoped(w.perm(res, permissions.ActionVisualizar, h.listInspections))).Methods("GET")
}

type motorRequest struct {
	Name        string   `json:"name"`
	EquipmentID *int64   `json:"equipment_id"`
	PowerKW     *float64 `json:"power_kw"`
}

func (h *MachineHandlers) createMotor(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	var req motorRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w, httputil.RequireNonEmpty("name", req.Name)) {
		return
	}
	m := &equipment.Motor{Name: req.Name, EquipmentID: req.EquipmentID, PowerKW: req.PowerKW}
	if err := h.deps.Catalog.CreateMotor(r.Context(), scope, m); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: m})
}

func (h *MachineHandlers) listMotors(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	motors, err := h.deps.Catalog.ListMotors(r.Context(), scope)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", motors)
}

type analyzerRequest struct {
	Name         string  `json:"name"`
	EquipmentID  *int64  `json:"equipment_id"`
	SerialNumber *string `json:"serial_number"`
}

func (h *MachineHandlers) createAnalyzer(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	scope, _ := tenant.FromContext(r.Context())
	var req analyzerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w, httputil.RequireNonEmpty("name", req.Name)) {
		return
	}
	a := &equipment.Analyzer{Name: req.Name, EquipmentID: req.EquipmentID, SerialNumber: req.SerialNumber}
	if err := h.deps.Catalog.CreateAnalyzer(r.Context(), scope, a); err != nil {
		writeDomainErr(w, err)
		return
	}
	if _, err := h.deps.Notify.AnalyzerCreated(r.Context(), scope.OrgID(), ident.UserID, a.Name); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("analyzer notifications not sent")
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: a})
}

func (h *MachineHandlers) listAnalyzers(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	analyzers, err := h.deps.Catalog.ListAnalyzers(r.Context(), scope)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", analyzers)
}

type inspectionRequest struct {
	EquipmentID *int64 `json:"equipment_id"`
	Notes       string `json:"notes"`
}

func (h *MachineHandlers) createInspection(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	scope, _ := tenant.FromContext(r.Context())
	var req inspectionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w, httputil.RequireNonEmpty("notes", req.Notes)) {
		return
	}
	insp := &equipment.GeneratorInspection{
		EquipmentID: req.EquipmentID,
		InspectedBy: &ident.UserID,
		Notes:       req.Notes,
	}
	if err := h.deps.Catalog.CreateInspection(r.Context(), scope, insp); err != nil {
		writeDomainErr(w, err)
		return
	}
	name := "gerador"
	if insp.EquipmentID != nil {
		if e, err := h.deps.Catalog.GetEquipment(r.Context(), scope, *insp.EquipmentID); err == nil {
			name = e.Name
		}
	}
	if _, err := h.deps.Notify.InspectionCreated(r.Context(), scope.OrgID(), ident.UserID, name); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("inspection notifications not sent")
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: insp})
}

func (h *MachineHandlers) listInspections(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	inspections, err := h.deps.Catalog.ListInspections(r.Context(), scope)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", inspections)
}
