package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relatoapp/relato/pkg/audit"
	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/permissions"
	"github.com/relatoapp/relato/pkg/tenant"
)

// UserHandlers owns the tenant's user management endpoints.
type UserHandlers struct {
	deps Deps
}

func (h *UserHandlers) RegisterRoutes(r *mux.Router, w wrappers) {
	res := permissions.ResourceUsuarios
	r.Handle("/usuarios", w.scoped(w.perm(res, permissions.ActionCriar, h.create))).Methods("POST")
	r.Handle("/usuarios", w.scoped(w.perm(res, permissions.ActionVisualizar, h.list))).Methods("GET")
	r.Handle("/usuarios/{id}", w.scoped(w.perm(res, permissions.ActionVisualizar, h.get))).Methods("GET")
	r.Handle("/usuarios/{id}", w.scoped(w.perm(res, permissions.ActionEditar, h.update))).Methods("PUT")
	r.Handle("/usuarios/{id}/desativar", w.scoped(w.perm(res, permissions.ActionExcluir, h.deactivate))).Methods("POST")
	r.Handle("/usuarios/{id}/reativar", w.scoped(w.perm(res, permissions.ActionEditar, h.reactivate))).Methods("POST")
}

type createUserRequest struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Password    string           `json:"password"`
	AccessLevel auth.AccessLevel `json:"access_level"`
}

func (h *UserHandlers) create(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	scope, _ := tenant.FromContext(r.Context())

	var req createUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w,
		httputil.RequireNonEmpty("name", req.Name),
		httputil.RequireNonEmpty("email", req.Email),
		httputil.RequireNonEmpty("password", req.Password),
	) {
		return
	}
	if req.AccessLevel == "" {
		req.AccessLevel = auth.LevelUsuario
	}
	if !req.AccessLevel.Valid() || req.AccessLevel == auth.LevelSuperAdmin {
		httputil.WriteErr(w, httputil.Validation("dados inválidos", "access_level desconhecido"))
		return
	}

	// the plan ceiling counts active users only
	if err := h.deps.Orgs.CheckUserLimit(r.Context(), scope.OrgID()); err != nil {
		writeDomainErr(w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteErr(w, httputil.Internal(err))
		return
	}
	user := &auth.User{
		OrganizationID: scope.OrgID(),
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   hash,
		AccessLevel:    req.AccessLevel,
		IsActive:       true,
	}
	if err := h.deps.Users.Create(r.Context(), user); err != nil {
		writeDomainErr(w, err)
		return
	}

	orgID := scope.OrgID()
	h.deps.Auditor.Record(r.Context(), &audit.Event{
		ActorID:        &ident.UserID,
		OrganizationID: &orgID,
		Action:         audit.ActionUserCreated,
		ResourceType:   "usuarios",
		ResourceID:     &user.ID,
		IPAddress:      audit.ClientIP(r),
		UserAgent:      r.UserAgent(),
	})

	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: user})
}

func (h *UserHandlers) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())

	users, err := h.deps.Users.ListByOrg(r.Context(), scope.OrgID())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", users)
}

func (h *UserHandlers) get(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	user, err := h.deps.Users.GetByID(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	// a user in another tenant looks nonexistent
	if user.OrganizationID != scope.OrgID() {
		httputil.WriteErr(w, httputil.NotFound("usuário não encontrado"))
		return
	}
	httputil.WriteSuccess(w, "", user)
}

type updateUserRequest struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	AccessLevel auth.AccessLevel `json:"access_level"`
}

func (h *UserHandlers) update(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.deps.Users.GetByID(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if user.OrganizationID != scope.OrgID() {
		httputil.WriteErr(w, httputil.NotFound("usuário não encontrado"))
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.AccessLevel != "" {
		if !req.AccessLevel.Valid() || req.AccessLevel == auth.LevelSuperAdmin {
			httputil.WriteErr(w, httputil.Validation("dados inválidos", "access_level desconhecido"))
			return
		}
		user.AccessLevel = req.AccessLevel
	}
	if err := h.deps.Users.Update(r.Context(), user); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", user)
}

func (h *UserHandlers) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false, audit.ActionUserDeactivated, "usuário desativado")
}

func (h *UserHandlers) reactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true, audit.ActionUserReactivated, "usuário reativado")
}

func (h *UserHandlers) setActive(w http.ResponseWriter, r *http.Request, active bool, action audit.Action, message string) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	// reactivation puts the user back inside the plan ceiling
	if active {
		if err := h.deps.Orgs.CheckUserLimit(r.Context(), scope.OrgID()); err != nil {
			writeDomainErr(w, err)
			return
		}
	}
	if err := h.deps.Users.SetActive(r.Context(), scope.OrgID(), id, active); err != nil {
		writeDomainErr(w, err)
		return
	}

	orgID := scope.OrgID()
	h.deps.Auditor.Record(r.Context(), &audit.Event{
		ActorID:        &ident.UserID,
		OrganizationID: &orgID,
		Action:         action,
		ResourceType:   "usuarios",
		ResourceID:     &id,
		IPAddress:      audit.ClientIP(r),
		UserAgent:      r.UserAgent(),
	})

	httputil.WriteSuccess(w, message, nil)
}
