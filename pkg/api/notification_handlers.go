package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/notify"
)

// NotificationHandlers exposes a user's own notification feed and delivery
// preferences. Routes are keyed by the authenticated user, not the tenant,
// so they only need the auth gate.
type NotificationHandlers struct {
	deps Deps
}

func (h *NotificationHandlers) RegisterRoutes(r *mux.Router, w wrappers) {
	r.Handle("/notificacoes", w.authed(http.HandlerFunc(h.list))).Methods("GET")
	r.Handle("/notificacoes/ler-todas", w.authed(http.HandlerFunc(h.markAllRead))).Methods("POST")
	r.Handle("/notificacoes/preferencias", w.authed(http.HandlerFunc(h.listPreferences))).Methods("GET")
	r.Handle("/notificacoes/preferencias", w.authed(http.HandlerFunc(h.updatePreference))).Methods("PUT")
	r.Handle("/notificacoes/{id}/ler", w.authed(http.HandlerFunc(h.markRead))).Methods("POST")
}

func (h *NotificationHandlers) list(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	page := httputil.ParsePagination(r, 20, 100)
	unreadOnly := httputil.ParseQueryBool(r, "unread", false)

	result, err := h.deps.Notify.ListForUser(r.Context(), ident.UserID, page.Limit, page.Offset, unreadOnly)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", result)
}

func (h *NotificationHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Notify.MarkRead(r.Context(), id, ident.UserID); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "notificação lida", nil)
}

func (h *NotificationHandlers) markAllRead(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	count, err := h.deps.Notify.MarkAllRead(r.Context(), ident.UserID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "notificações lidas", map[string]int64{"count": count})
}

func (h *NotificationHandlers) listPreferences(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	prefs, err := h.deps.Notify.ListPreferences(r.Context(), ident.UserID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", prefs)
}

type preferenceRequest struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

func (h *NotificationHandlers) updatePreference(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req preferenceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	t := notify.Type(req.Type)
	if !t.Valid() {
		httputil.WriteErr(w, httputil.Validation("dados inválidos", "tipo de notificação desconhecido"))
		return
	}
	pref := &notify.Preference{UserID: ident.UserID, Type: t, Enabled: req.Enabled}
	if err := h.deps.Notify.UpsertPreference(r.Context(), pref); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "preferência atualizada", pref)
}
