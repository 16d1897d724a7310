package api

import (
	"errors"
	"net/http"

	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/equipment"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/notify"
	"github.com/relatoapp/relato/pkg/orgs"
	"github.com/relatoapp/relato/pkg/reports"
)

// identity returns the authenticated caller. Routes behind the gate always
// have one; a nil return means a wiring bug, surfaced as 401.
func identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ident := auth.IdentityFromContext(r.Context())
	if ident == nil {
		httputil.WriteErr(w, httputil.Unauthenticated("missing authorization header"))
		return nil, false
	}
	return ident, true
}

// requireSuperAdmin gates the cross-tenant operations.
func requireSuperAdmin(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ident, ok := identity(w, r)
	if !ok {
		return nil, false
	}
	if !ident.IsSuperAdmin() {
		httputil.WriteErr(w, httputil.Forbidden("permissão insuficiente"))
		return nil, false
	}
	return ident, true
}

// writeDomainErr maps domain sentinels onto the error taxonomy. Anything
// unrecognized becomes a logged 500 with a generic message.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orgs.ErrNotFound):
		httputil.WriteErr(w, httputil.NotFound("organização não encontrada"))
	case errors.Is(err, auth.ErrUserNotFound):
		httputil.WriteErr(w, httputil.NotFound("usuário não encontrado"))
	case errors.Is(err, equipment.ErrNotFound):
		httputil.WriteErr(w, httputil.NotFound("registro não encontrado"))
	case errors.Is(err, reports.ErrNotFound):
		httputil.WriteErr(w, httputil.NotFound("relatório não encontrado"))
	case errors.Is(err, notify.ErrNotFound):
		httputil.WriteErr(w, httputil.NotFound("notificação não encontrada"))
	case errors.Is(err, equipment.ErrDuplicateTag):
		httputil.WriteErr(w, httputil.Conflict("já existe um equipamento com esta tag"))
	case errors.Is(err, reports.ErrEditWindowClosed):
		httputil.WriteErr(w, httputil.Forbidden(err.Error()))
	case errors.Is(err, reports.ErrNotAllowed):
		httputil.WriteErr(w, httputil.Forbidden(err.Error()))
	case orgs.IsLimitExceeded(err):
		httputil.WriteErr(w, httputil.Conflict(err.Error()))
	default:
		httputil.WriteErr(w, httputil.Internal(err))
	}
}
