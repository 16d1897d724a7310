package api

import (
	"errors"
	"net/http"

	"github.com/relatoapp/relato/pkg/audit"
	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/httputil"
)

// AuthHandlers owns the login endpoint.
type AuthHandlers struct {
	deps Deps
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

// login verifies credentials and issues a session token. Wrong email and
// wrong password are indistinguishable; account and tenant state are not,
// so a deactivated user knows why they are locked out.
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w,
		httputil.RequireNonEmpty("email", req.Email),
		httputil.RequireNonEmpty("password", req.Password),
	) {
		return
	}

	user, err := h.deps.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			httputil.WriteErr(w, httputil.Unauthenticated("credenciais inválidas"))
			return
		}
		httputil.WriteErr(w, httputil.Internal(err))
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		httputil.WriteErr(w, httputil.Unauthenticated("credenciais inválidas"))
		return
	}
	if !user.IsActive {
		httputil.WriteErr(w, httputil.Forbidden("user account is deactivated"))
		return
	}

	if !user.AccessLevel.AtLeast(auth.LevelSuperAdmin) {
		status, err := h.deps.OrgCache.OrgStatus(r.Context(), user.OrganizationID)
		if err != nil {
			httputil.WriteErr(w, httputil.Internal(err))
			return
		}
		if status.Suspended {
			httputil.WriteErr(w, httputil.Forbidden("organization is suspended"))
			return
		}
		if !status.Active {
			httputil.WriteErr(w, httputil.Forbidden("organization is deactivated"))
			return
		}
	}

	token, err := h.deps.Tokens.Issue(user)
	if err != nil {
		httputil.WriteErr(w, httputil.Internal(err))
		return
	}

	h.deps.Auditor.Record(r.Context(), &audit.Event{
		ActorID:        &user.ID,
		OrganizationID: &user.OrganizationID,
		Action:         audit.ActionLogin,
		ResourceType:   "auth",
		IPAddress:      audit.ClientIP(r),
		UserAgent:      r.UserAgent(),
	})

	httputil.WriteSuccess(w, "", loginResponse{Token: token, User: user})
}
