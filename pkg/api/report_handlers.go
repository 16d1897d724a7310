package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/observability"
	"github.com/relatoapp/relato/pkg/permissions"
	"github.com/relatoapp/relato/pkg/reports"
	"github.com/relatoapp/relato/pkg/tenant"
)

// ReportHandlers owns maintenance report endpoints: the report lifecycle,
// its history feed, and assignment management. Report mutations fan out
// notifications to interested users.
type ReportHandlers struct {
	deps Deps
}

func (h *ReportHandlers) RegisterRoutes(r *mux.Router, w wrappers) {
	res := permissions.ResourceRelatorios
	r.Handle("/relatorios", w.scoped(w.perm(res, permissions.ActionCriar, h.create))).Methods("POST")
	r.Handle("/relatorios", w.scoped(w.perm(res, permissions.ActionVisualizar, h.list))).Methods("GET")
	r.Handle("/relatorios/{id}", w.scoped(w.perm(res, permissions.ActionVisualizar, h.get))).Methods("GET")
	r.Handle("/relatorios/{id}", w.scoped(w.perm(res, permissions.ActionEditar, h.update))).Methods("PUT")
	r.Handle("/relatorios/{id}/status", w.scoped(w.perm(res, permissions.ActionEditar, h.updateStatus))).Methods("PUT")
	r.Handle("/relatorios/{id}/historico", w.scoped(w.perm(res, permissions.ActionVisualizar, h.listHistory))).Methods("GET")
	r.Handle("/relatorios/{id}/historico", w.scoped(w.perm(res, permissions.ActionEditar, h.addHistory))).Methods("POST")
	r.Handle("/relatorios/{id}/responsaveis/{userID}", w.scoped(w.perm(res, permissions.ActionEditar, h.assign))).Methods("POST")
	r.Handle("/relatorios/{id}/responsaveis/{userID}", w.scoped(w.perm(res, permissions.ActionEditar, h.unassign))).Methods("DELETE")
}

type reportRequest struct {
	EquipmentID *int64 `json:"equipment_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

func (h *ReportHandlers) create(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	scope, _ := tenant.FromContext(r.Context())
	var req reportRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w, httputil.RequireNonEmpty("title", req.Title)) {
		return
	}
	if req.Priority != "" && !reports.ValidPriority(req.Priority) {
		httputil.WriteErr(w, httputil.Validation("dados inválidos", "prioridade desconhecida"))
		return
	}

	if err := h.deps.Orgs.CheckMonthlyReportLimit(r.Context(), scope.OrgID(), time.Now()); err != nil {
		writeDomainErr(w, err)
		return
	}

	rep := &reports.Report{
		EquipmentID: req.EquipmentID,
		CreatedBy:   ident.UserID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if err := h.deps.Reports.Create(r.Context(), scope, rep); err != nil {
		writeDomainErr(w, err)
		return
	}
	// Per-recipient failures are handled inside the fan-out; an error here
	// means recipient resolution failed and nobody was told.
	if _, err := h.deps.Notify.ReportCreated(r.Context(), scope.OrgID(), rep.ID, ident.UserID, rep.Title, rep.Priority); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("report notifications not sent")
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: rep})
}

func (h *ReportHandlers) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	page := httputil.ParsePagination(r, 20, 100)
	list, err := h.deps.Reports.List(r.Context(), scope, page.Limit, page.Offset)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", list)
}

func (h *ReportHandlers) get(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	rep, err := h.deps.Reports.GetByID(r.Context(), scope, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", rep)
}

// update edits a report's descriptive fields. The creator can edit within
// the first 24 hours; active assignees can edit at any time. After the
// window closes the creator must use the history feed instead.
func (h *ReportHandlers) update(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req reportRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	rep, err := h.deps.Reports.GetByID(r.Context(), scope, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	isAssignee, err := h.deps.Reports.IsActiveAssignee(r.Context(), id, ident.UserID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if err := reports.AuthorizeEdit(rep, ident.UserID, isAssignee, time.Now()); err != nil {
		writeDomainErr(w, err)
		return
	}

	if req.Title != "" {
		rep.Title = req.Title
	}
	if req.Description != "" {
		rep.Description = req.Description
	}
	if req.Priority != "" {
		if !reports.ValidPriority(req.Priority) {
			httputil.WriteErr(w, httputil.Validation("dados inválidos", "prioridade desconhecida"))
			return
		}
		rep.Priority = req.Priority
	}
	if req.EquipmentID != nil {
		rep.EquipmentID = req.EquipmentID
	}
	if err := h.deps.Reports.Update(r.Context(), scope, rep); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", rep)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *ReportHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !reports.ValidStatus(req.Status) {
		httputil.WriteErr(w, httputil.Validation("dados inválidos", "status desconhecido"))
		return
	}

	rep, err := h.deps.Reports.GetByID(r.Context(), scope, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if err := h.deps.Reports.UpdateStatus(r.Context(), scope, id, req.Status); err != nil {
		writeDomainErr(w, err)
		return
	}
	if _, err := h.deps.Notify.StatusChanged(r.Context(), id, ident.UserID, rep.Title, req.Status); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("status change notifications not sent")
	}
	httputil.WriteSuccess(w, "status atualizado", nil)
}

type historyRequest struct {
	Note string `json:"note"`
}

func (h *ReportHandlers) addHistory(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req historyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w, httputil.RequireNonEmpty("note", req.Note)) {
		return
	}

	rep, err := h.deps.Reports.GetByID(r.Context(), scope, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	entry := &reports.HistoryEntry{ReportID: id, UserID: ident.UserID, Note: req.Note}
	if err := h.deps.Reports.AddHistory(r.Context(), scope, entry); err != nil {
		writeDomainErr(w, err)
		return
	}
	if _, err := h.deps.Notify.HistoryAdded(r.Context(), id, ident.UserID, rep.Title); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("history notifications not sent")
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: entry})
}

func (h *ReportHandlers) listHistory(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.deps.Reports.ListHistory(r.Context(), scope, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", entries)
}

func (h *ReportHandlers) assign(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userID")
	if !ok {
		return
	}

	rep, err := h.deps.Reports.GetByID(r.Context(), scope, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if err := h.deps.Reports.Assign(r.Context(), scope, id, userID, ident.UserID); err != nil {
		writeDomainErr(w, err)
		return
	}
	h.deps.Notify.AssigneesChanged(r.Context(), id, ident.UserID, rep.Title, []int64{userID})
	httputil.WriteSuccess(w, "responsável atribuído", nil)
}

func (h *ReportHandlers) unassign(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userID")
	if !ok {
		return
	}
	if err := h.deps.Reports.Unassign(r.Context(), scope, id, userID); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "responsável removido", nil)
}
