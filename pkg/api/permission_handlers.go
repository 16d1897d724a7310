package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relatoapp/relato/pkg/audit"
	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/permissions"
)

// PermissionHandlers exposes the permission matrix. Updates take effect for
// in-flight traffic immediately: the service invalidates the cached matrix
// after writing.
type PermissionHandlers struct {
	deps Deps
}

func (h *PermissionHandlers) RegisterRoutes(r *mux.Router, w wrappers) {
	r.Handle("/permissoes", w.authed(http.HandlerFunc(h.matrix))).Methods("GET")
	r.Handle("/permissoes", w.authed(http.HandlerFunc(h.update))).Methods("PUT")
}

func (h *PermissionHandlers) matrix(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	if !ident.AccessLevel.AtLeast(auth.LevelAdmin) {
		httputil.WriteErr(w, httputil.Forbidden("permissão insuficiente"))
		return
	}
	entries, err := h.deps.Perms.Matrix(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", entries)
}

func (h *PermissionHandlers) update(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	if !ident.AccessLevel.AtLeast(auth.LevelAdmin) {
		httputil.WriteErr(w, httputil.Forbidden("permissão insuficiente"))
		return
	}

	var req permissions.UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.AccessLevel == auth.LevelSuperAdmin {
		httputil.WriteErr(w, httputil.Validation("dados inválidos", "o nível super_admin não é configurável"))
		return
	}
	req.ActorID = ident.UserID
	req.IPAddress = audit.ClientIP(r)
	req.UserAgent = r.UserAgent()

	// The store records the change in permission_audit inside the same
	// transaction, so there is no separate audit write here.
	entry, err := h.deps.Perms.Update(r.Context(), req)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "permissão atualizada", entry)
}
