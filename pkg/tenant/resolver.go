package tenant

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/contextkeys"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/observability"
	"github.com/relatoapp/relato/pkg/orgs"
)

// OrgIDHeader selects the tenant explicitly; only honored for super admins.
const OrgIDHeader = "X-Organization-ID"

// Resolver determines the request's tenant and attaches Scope and the
// validated organization to the context.
type Resolver struct {
	cache      *OrgCache
	baseDomain string
	metrics    *observability.Metrics
}

// NewResolver creates the tenant resolution middleware. baseDomain is the
// suffix stripped to find the subdomain slug, e.g. "relato.com.br".
func NewResolver(cache *OrgCache, baseDomain string, metrics *observability.Metrics) *Resolver {
	return &Resolver{cache: cache, baseDomain: baseDomain, metrics: metrics}
}

// Middleware resolves the tenant in order: identity org, explicit header,
// Host subdomain. Runs after the Auth Gate. Super admins without a selected
// tenant pass through unscoped; RequireTenant then guards the routes that
// need one.
func (rs *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := auth.IdentityFromContext(r.Context())
		if ident == nil {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		var (
			org    *orgs.Organization
			source string
			err    error
		)

		switch {
		case !ident.IsSuperAdmin():
			org, err = rs.cache.GetByID(r.Context(), ident.OrgID)
			source = "identity"

		case r.Header.Get(OrgIDHeader) != "":
			var orgID int64
			orgID, err = strconv.ParseInt(r.Header.Get(OrgIDHeader), 10, 64)
			if err != nil {
				httputil.WriteBadRequest(w, "invalid X-Organization-ID header")
				return
			}
			org, err = rs.cache.GetByID(r.Context(), orgID)
			source = "header"

		default:
			slug := rs.subdomainSlug(r.Host)
			if slug == "" {
				// cross-tenant super admin without a selected tenant
				next.ServeHTTP(w, r)
				return
			}
			org, err = rs.cache.GetBySlug(r.Context(), slug)
			source = "subdomain"
		}

		if rs.metrics != nil {
			rs.metrics.TenantLookupsTotal.WithLabelValues(source).Inc()
		}

		if err != nil {
			if errors.Is(err, orgs.ErrNotFound) {
				rs.reject(w, "not_found", "organização não encontrada", httputil.KindNotFound)
				return
			}
			observability.FromContext(r.Context()).WithError(err).Error("tenant lookup failed")
			httputil.WriteInternalError(w, err)
			return
		}

		if org.IsSuspended {
			rs.reject(w, "suspended", "organization is suspended", httputil.KindForbidden)
			return
		}
		if !org.IsActive {
			rs.reject(w, "inactive", "organization is deactivated", httputil.KindForbidden)
			return
		}

		ctx := contextkeys.WithTenant(r.Context(), NewScope(org.ID))
		ctx = contextkeys.WithOrg(ctx, org)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (rs *Resolver) reject(w http.ResponseWriter, reason, message string, kind httputil.Kind) {
	if rs.metrics != nil {
		rs.metrics.TenantRejectedTotal.WithLabelValues(reason).Inc()
	}
	httputil.WriteErrorMessage(w, kind, message)
}

// subdomainSlug extracts the first Host label when the host is a subdomain
// of the configured base domain.
func (rs *Resolver) subdomainSlug(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	suffix := "." + rs.baseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(host, suffix)
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}

// RequireTenant rejects requests that reached a tenant-scoped route without
// a resolved tenant (a cross-tenant super admin who did not select one).
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httputil.WriteBadRequest(w, "organização não especificada: use o cabeçalho X-Organization-ID ou o subdomínio")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OrgFromContext returns the validated organization attached by the
// Resolver, or nil.
func OrgFromContext(r *http.Request) *orgs.Organization {
	if org, ok := r.Context().Value(contextkeys.OrgKey).(*orgs.Organization); ok {
		return org
	}
	return nil
}
