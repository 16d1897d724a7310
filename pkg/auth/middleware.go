package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/relatoapp/relato/pkg/contextkeys"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/observability"
)

// OrgStatus is the tenant state the Gate re-checks on every request.
type OrgStatus struct {
	Active    bool
	Suspended bool
}

// OrgChecker looks up live organization state. Implemented by the tenant
// org cache so the Gate and the Resolver share lookups.
type OrgChecker interface {
	OrgStatus(ctx context.Context, orgID int64) (OrgStatus, error)
}

// Gate authenticates requests: token signature and expiry first, then live
// user and tenant state. Tokens issued before a deactivation stop working
// immediately.
type Gate struct {
	tokens *TokenManager
	users  UserStore
	orgs   OrgChecker
	logger *observability.Logger
}

// NewGate creates the authentication middleware.
func NewGate(tokens *TokenManager, users UserStore, orgs OrgChecker, logger *observability.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, orgs: orgs, logger: logger}
}

// Middleware rejects unauthenticated requests and attaches the caller's
// Identity to the context. Token problems answer 401; account and tenant
// state problems answer 403.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		ident, err := g.tokens.Validate(tokenString)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				httputil.WriteUnauthorized(w, "token expired")
			} else {
				httputil.WriteUnauthorized(w, "invalid token")
			}
			return
		}

		user, err := g.users.GetByID(r.Context(), ident.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				httputil.WriteUnauthorized(w, "invalid token")
				return
			}
			observability.FromContext(r.Context()).WithError(err).Error("user lookup failed during authentication")
			httputil.WriteInternalError(w, err)
			return
		}
		if !user.IsActive {
			httputil.WriteForbidden(w, "user account is deactivated")
			return
		}

		// Live state wins over token claims: a role change applies on the
		// next request, not the next login.
		ident.OrgID = user.OrganizationID
		ident.AccessLevel = user.AccessLevel

		if !ident.IsSuperAdmin() {
			status, err := g.orgs.OrgStatus(r.Context(), user.OrganizationID)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("organization lookup failed during authentication")
				httputil.WriteInternalError(w, err)
				return
			}
			if status.Suspended {
				httputil.WriteForbidden(w, "organization is suspended")
				return
			}
			if !status.Active {
				httputil.WriteForbidden(w, "organization is deactivated")
				return
			}
		}

		ctx := contextkeys.WithIdentity(r.Context(), ident)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(ident.UserID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header, falling back
// to the token query parameter for WebSocket handshakes.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// IdentityFromContext returns the authenticated caller, or nil when the
// request did not pass the Gate.
func IdentityFromContext(ctx context.Context) *Identity {
	if ident, ok := ctx.Value(contextkeys.IdentityKey).(*Identity); ok {
		return ident
	}
	return nil
}
