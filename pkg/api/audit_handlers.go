package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relatoapp/relato/pkg/audit"
	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/tenant"
)

// AuditHandlers exposes the audit trail to tenant admins. Results are always
// fenced to the resolved tenant.
type AuditHandlers struct {
	deps Deps
}

func (h *AuditHandlers) RegisterRoutes(r *mux.Router, w wrappers) {
	r.Handle("/auditoria", w.scoped(http.HandlerFunc(h.list))).Methods("GET")
}

func (h *AuditHandlers) list(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	if !ident.AccessLevel.AtLeast(auth.LevelAdmin) {
		httputil.WriteErr(w, httputil.Forbidden("permissão insuficiente"))
		return
	}
	scope, _ := tenant.FromContext(r.Context())

	orgID := scope.OrgID()
	q := audit.Query{
		OrganizationID: &orgID,
		ResourceType:   httputil.ParseQueryString(r, "resource_type", ""),
	}
	if actorID := httputil.ParseQueryInt(r, "actor_id", 0); actorID > 0 {
		id := int64(actorID)
		q.ActorID = &id
	}
	page := httputil.ParsePagination(r, 50, 200)
	q.Limit, q.Offset = page.Limit, page.Offset

	events, err := h.deps.Auditor.List(r.Context(), q)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", events)
}
