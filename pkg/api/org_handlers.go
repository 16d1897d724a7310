package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relatoapp/relato/pkg/audit"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/orgs"
)

// OrgHandlers owns the cross-tenant organization endpoints. Everything
// here requires super_admin.
type OrgHandlers struct {
	deps Deps
}

func (h *OrgHandlers) RegisterRoutes(r *mux.Router, w wrappers) {
	r.Handle("/organizacoes", w.authed(http.HandlerFunc(h.create))).Methods("POST")
	r.Handle("/organizacoes", w.authed(http.HandlerFunc(h.list))).Methods("GET")
	r.Handle("/organizacoes/{id}", w.authed(http.HandlerFunc(h.get))).Methods("GET")
	r.Handle("/organizacoes/{id}", w.authed(http.HandlerFunc(h.update))).Methods("PUT")
	r.Handle("/organizacoes/{id}/suspender", w.authed(http.HandlerFunc(h.suspend))).Methods("POST")
	r.Handle("/organizacoes/{id}/reativar", w.authed(http.HandlerFunc(h.reactivate))).Methods("POST")
}

type createOrgRequest struct {
	Name string    `json:"name"`
	Slug string    `json:"slug"`
	Plan orgs.Plan `json:"plan"`
}

func (h *OrgHandlers) create(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireSuperAdmin(w, r)
	if !ok {
		return
	}
	var req createOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w, httputil.RequireNonEmpty("name", req.Name)) {
		return
	}
	if req.Plan != "" && !req.Plan.Valid() {
		httputil.WriteErr(w, httputil.Validation("dados inválidos", "plan desconhecido"))
		return
	}

	org := &orgs.Organization{Name: req.Name, Slug: req.Slug, Plan: req.Plan}
	if err := h.deps.Orgs.Create(r.Context(), org); err != nil {
		writeDomainErr(w, err)
		return
	}

	after, _ := json.Marshal(org)
	h.deps.Auditor.Record(r.Context(), &audit.Event{
		ActorID:        &ident.UserID,
		OrganizationID: &org.ID,
		Action:         audit.ActionOrgCreated,
		ResourceType:   "organizacoes",
		ResourceID:     &org.ID,
		After:          after,
		IPAddress:      audit.ClientIP(r),
		UserAgent:      r.UserAgent(),
	})

	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: org})
}

func (h *OrgHandlers) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuperAdmin(w, r); !ok {
		return
	}
	list, err := h.deps.Orgs.List(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", list)
}

func (h *OrgHandlers) get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuperAdmin(w, r); !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	org, err := h.deps.Orgs.GetByID(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", org)
}

type updateOrgRequest struct {
	Name   string       `json:"name"`
	Plan   orgs.Plan    `json:"plan"`
	Limits *orgs.Limits `json:"limits"`
}

func (h *OrgHandlers) update(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireSuperAdmin(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req updateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := h.deps.Orgs.GetByID(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	before, _ := json.Marshal(org)

	if req.Name != "" {
		org.Name = req.Name
	}
	if req.Plan != "" {
		if !req.Plan.Valid() {
			httputil.WriteErr(w, httputil.Validation("dados inválidos", "plan desconhecido"))
			return
		}
		org.Plan = req.Plan
	}
	if req.Limits != nil {
		org.Limits = *req.Limits
	}
	if err := h.deps.Orgs.Update(r.Context(), org); err != nil {
		writeDomainErr(w, err)
		return
	}
	h.deps.OrgCache.Invalidate(org)

	after, _ := json.Marshal(org)
	h.deps.Auditor.Record(r.Context(), &audit.Event{
		ActorID:        &ident.UserID,
		OrganizationID: &org.ID,
		Action:         audit.ActionOrgUpdated,
		ResourceType:   "organizacoes",
		ResourceID:     &org.ID,
		Before:         before,
		After:          after,
		IPAddress:      audit.ClientIP(r),
		UserAgent:      r.UserAgent(),
	})

	httputil.WriteSuccess(w, "", org)
}

func (h *OrgHandlers) suspend(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, true, audit.ActionOrgSuspended, "organização suspensa")
}

func (h *OrgHandlers) reactivate(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, false, audit.ActionOrgReactivated, "organização reativada")
}

func (h *OrgHandlers) setSuspended(w http.ResponseWriter, r *http.Request, suspended bool, action audit.Action, message string) {
	ident, ok := requireSuperAdmin(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	org, err := h.deps.Orgs.GetByID(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if err := h.deps.Orgs.SetSuspended(r.Context(), id, suspended); err != nil {
		writeDomainErr(w, err)
		return
	}
	// suspension must take effect before the short org-cache TTL expires
	h.deps.OrgCache.Invalidate(org)

	h.deps.Auditor.Record(r.Context(), &audit.Event{
		ActorID:        &ident.UserID,
		OrganizationID: &id,
		Action:         action,
		ResourceType:   "organizacoes",
		ResourceID:     &id,
		IPAddress:      audit.ClientIP(r),
		UserAgent:      r.UserAgent(),
	})

	httputil.WriteSuccess(w, message, nil)
}
