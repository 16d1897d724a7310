package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/config"
	"github.com/relatoapp/relato/pkg/middleware"
	"github.com/relatoapp/relato/pkg/notify"
	"github.com/relatoapp/relato/pkg/observability"
	"github.com/relatoapp/relato/pkg/orgs"
	"github.com/relatoapp/relato/pkg/permissions"
	"github.com/relatoapp/relato/pkg/realtime"
	"github.com/relatoapp/relato/pkg/reports"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")

	t.Run("success issues a token", func(t *testing.T) {
		rec := env.do("POST", "/api/login", "", map[string]string{
			"email": user.Email, "password": testPassword,
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var data struct {
			Token string     `json:"token"`
			User  *auth.User `json:"user"`
		}
		envlp := decodeEnvelope(t, rec)
		require.NoError(t, json.Unmarshal(envlp.Data, &data))
		assert.NotEmpty(t, data.Token)
		assert.Equal(t, user.Email, data.User.Email)
		assert.Empty(t, data.User.PasswordHash)
	})

	t.Run("wrong password and unknown email look identical", func(t *testing.T) {
		wrongPass := env.do("POST", "/api/login", "", map[string]string{
			"email": user.Email, "password": "errada",
		}, nil)
		unknown := env.do("POST", "/api/login", "", map[string]string{
			"email": "ninguem@aurora.com.br", "password": testPassword,
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.JSONEq(t, wrongPass.Body.String(), unknown.Body.String())
	})

	t.Run("deactivated user is told why", func(t *testing.T) {
		inactive := env.seedUser(org.ID, auth.LevelUsuario, "inativo@aurora.com.br")
		require.NoError(t, env.users.SetActive(context.Background(), org.ID, inactive.ID, false))

		rec := env.do("POST", "/api/login", "", map[string]string{
			"email": inactive.Email, "password": testPassword,
		}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "deactivated")
	})

	t.Run("suspended organization blocks login", func(t *testing.T) {
		suspended := env.seedOrg("Fundição Beta")
		blocked := env.seedUser(suspended.ID, auth.LevelAdmin, "admin@beta.com.br")
		require.NoError(t, env.orgsSvc.SetSuspended(context.Background(), suspended.ID, true))

		rec := env.do("POST", "/api/login", "", map[string]string{
			"email": blocked.Email, "password": testPassword,
		}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "suspended")
	})
}

func TestExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")

	shortLived := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Millisecond)
	token, err := shortLived.Issue(user)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	rec := env.do("GET", "/api/notificacoes", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

// A permission grant must apply to in-flight traffic without a restart: the
// matrix update invalidates the cached snapshot, and the next check rebuilds.
func TestPermissionGrantAppliesImmediately(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	admin := env.seedUser(org.ID, auth.LevelAdmin, "admin@aurora.com.br")
	user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")
	userToken := env.token(user)

	body := map[string]string{"name": "Caldeiraria"}
	rec := env.do("POST", "/api/setores", userToken, body, nil)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "permissão insuficiente")

	grant := env.do("PUT", "/api/permissoes", env.token(admin), map[string]interface{}{
		"access_level": string(auth.LevelUsuario),
		"resource":     string(permissions.ResourceSetores),
		"action":       string(permissions.ActionCriar),
		"allowed":      true,
	}, nil)
	require.Equal(t, http.StatusOK, grant.Code, grant.Body.String())

	rec = env.do("POST", "/api/setores", userToken, body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestPermissionEndpointsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")

	rec := env.do("GET", "/api/permissoes", env.token(user), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do("PUT", "/api/permissoes", env.token(user), map[string]interface{}{
		"access_level": string(auth.LevelUsuario),
		"resource":     string(permissions.ResourceSetores),
		"action":       string(permissions.ActionCriar),
		"allowed":      true,
	}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSuperAdminTenantSelection(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	other := env.seedOrg("Fundição Beta")
	super := env.seedUser(0, auth.LevelSuperAdmin, "root@relato.com.br")
	superToken := env.token(super)

	t.Run("scoped route without a selected tenant is rejected", func(t *testing.T) {
		rec := env.do("GET", "/api/setores", superToken, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "X-Organization-ID")
	})

	t.Run("header selects the tenant", func(t *testing.T) {
		rec := env.do("GET", "/api/setores", superToken, nil, orgHeader(org.ID))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("regular users cannot switch tenants via header", func(t *testing.T) {
		env.grant(auth.LevelUsuario, permissions.ResourceSetores, permissions.ActionCriar)
		env.grant(auth.LevelUsuario, permissions.ResourceSetores, permissions.ActionVisualizar)
		user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")
		userToken := env.token(user)

		rec := env.do("POST", "/api/setores", userToken, map[string]string{"name": "Usinagem"},
			orgHeader(other.ID))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		// the sector landed in the caller's own organization
		fromOther := env.do("GET", "/api/setores", superToken, nil, orgHeader(other.ID))
		fromOwn := env.do("GET", "/api/setores", superToken, nil, orgHeader(org.ID))
		assert.NotContains(t, fromOther.Body.String(), "Usinagem")
		assert.Contains(t, fromOwn.Body.String(), "Usinagem")
	})
}

func TestEquipmentEndpoints(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	admin := env.seedUser(org.ID, auth.LevelAdmin, "admin@aurora.com.br")
	adminToken := env.token(admin)
	for _, action := range []permissions.Action{
		permissions.ActionCriar, permissions.ActionVisualizar, permissions.ActionEditar,
	} {
		env.grant(auth.LevelAdmin, permissions.ResourceEquipamentos, action)
	}

	rec := env.do("POST", "/api/equipamentos", adminToken, map[string]string{
		"name": "Bomba 3", "tag": "BMB-03",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("duplicate tag answers conflict", func(t *testing.T) {
		dup := env.do("POST", "/api/equipamentos", adminToken, map[string]string{
			"name": "Bomba reserva", "tag": "BMB-03",
		}, nil)
		assert.Equal(t, http.StatusConflict, dup.Code)
		assert.Contains(t, dup.Body.String(), "tag")
	})

	t.Run("plan ceiling answers conflict", func(t *testing.T) {
		env.orgsSvc.equipmentLimitErr = &orgs.LimitExceededError{
			Resource: "equipamentos", Current: 20, Limit: 20,
		}
		defer func() { env.orgsSvc.equipmentLimitErr = nil }()

		rec := env.do("POST", "/api/equipamentos", adminToken, map[string]string{
			"name": "Compressor", "tag": "CMP-01",
		}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "plan limit exceeded")
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		rec := env.do("POST", "/api/equipamentos", adminToken, map[string]string{
			"name": "Prensa", "tag": "PRS-01", "status": "quebrado",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserLimitConflict(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	admin := env.seedUser(org.ID, auth.LevelAdmin, "admin@aurora.com.br")
	env.grant(auth.LevelAdmin, permissions.ResourceUsuarios, permissions.ActionCriar)
	env.orgsSvc.userLimitErr = &orgs.LimitExceededError{Resource: "usuarios", Current: 5, Limit: 5}

	rec := env.do("POST", "/api/usuarios", env.token(admin), map[string]string{
		"name": "Mais Um", "email": "maisum@aurora.com.br", "password": "senha-forte-987",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "plan limit exceeded")
}

func TestReportLifecycle(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	creator := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")
	assignee := env.seedUser(org.ID, auth.LevelUsuario, "carlos@aurora.com.br")
	stranger := env.seedUser(org.ID, auth.LevelUsuario, "pedro@aurora.com.br")
	admin := env.seedUser(org.ID, auth.LevelAdmin, "admin@aurora.com.br")

	for _, action := range []permissions.Action{
		permissions.ActionCriar, permissions.ActionVisualizar, permissions.ActionEditar,
	} {
		env.grant(auth.LevelUsuario, permissions.ResourceRelatorios, action)
		env.grant(auth.LevelAdmin, permissions.ResourceRelatorios, action)
	}

	creatorToken := env.token(creator)
	rec := env.do("POST", "/api/relatorios", creatorToken, map[string]interface{}{
		"title": "Vazamento na bomba 3", "description": "vazamento no selo mecânico",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created reports.Report
	envlp := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(envlp.Data, &created))
	assert.Equal(t, reports.StatusOpen, created.Status)
	assert.Equal(t, reports.PriorityMedium, created.Priority)
	reportPath := fmt.Sprintf("/api/relatorios/%d", created.ID)

	t.Run("creator edits within the window", func(t *testing.T) {
		rec := env.do("PUT", reportPath, creatorToken, map[string]string{
			"description": "vazamento no selo mecânico, piorando",
		}, nil)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("non-participant cannot edit", func(t *testing.T) {
		rec := env.do("PUT", reportPath, env.token(stranger), map[string]string{
			"description": "palpite",
		}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("assignment notifies the assignee", func(t *testing.T) {
		rec := env.do("POST", fmt.Sprintf("%s/responsaveis/%d", reportPath, assignee.ID),
			env.token(admin), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		result, err := env.notify.ListForUser(context.Background(), assignee.ID, 10, 0, true)
		require.NoError(t, err)
		require.Len(t, result.Notifications, 1)
		assert.Equal(t, notify.TypeNewAssignment, result.Notifications[0].Type)
	})

	t.Run("window closes for the creator but not assignees", func(t *testing.T) {
		backdated := time.Now().UTC().Add(-25 * time.Hour)
		_, err := env.db.Exec(`UPDATE reports SET created_at = $1 WHERE id = $2`, backdated, created.ID)
		require.NoError(t, err)

		rec := env.do("PUT", reportPath, creatorToken, map[string]string{
			"description": "tarde demais",
		}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "prazo de edição encerrado")

		rec = env.do("PUT", reportPath, env.token(assignee), map[string]string{
			"description": "atualização do responsável",
		}, nil)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("history stays open after the window", func(t *testing.T) {
		rec := env.do("POST", reportPath+"/historico", creatorToken, map[string]string{
			"note": "peça de reposição chegou",
		}, nil)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("status change validates the value", func(t *testing.T) {
		rec := env.do("PUT", reportPath+"/status", env.token(assignee), map[string]string{
			"status": "consertando",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do("PUT", reportPath+"/status", env.token(assignee), map[string]string{
			"status": reports.StatusInProgress,
		}, nil)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("monthly ceiling answers conflict", func(t *testing.T) {
		env.orgsSvc.reportLimitErr = &orgs.LimitExceededError{
			Resource: "relatorios_mensais", Current: 50, Limit: 50,
		}
		defer func() { env.orgsSvc.reportLimitErr = nil }()

		rec := env.do("POST", "/api/relatorios", creatorToken, map[string]string{
			"title": "Mais um",
		}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestNotificationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")
	token := env.token(user)

	n, err := env.notify.Create(context.Background(), user.ID, notify.Payload{
		Type:    notify.TypeNewReport,
		Title:   "Novo relatório",
		Message: "Relatório criado: bomba 3",
	})
	require.NoError(t, err)
	require.NotNil(t, n)

	t.Run("list shows the unread count", func(t *testing.T) {
		rec := env.do("GET", "/api/notificacoes", token, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result notify.ListResult
		envlp := decodeEnvelope(t, rec)
		require.NoError(t, json.Unmarshal(envlp.Data, &result))
		assert.Equal(t, 1, result.UnreadCount)
		require.Len(t, result.Notifications, 1)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		path := fmt.Sprintf("/api/notificacoes/%d/ler", n.ID)
		assert.Equal(t, http.StatusOK, env.do("POST", path, token, nil, nil).Code)
		assert.Equal(t, http.StatusOK, env.do("POST", path, token, nil, nil).Code)

		rec := env.do("GET", "/api/notificacoes", token, nil, nil)
		var result notify.ListResult
		envlp := decodeEnvelope(t, rec)
		require.NoError(t, json.Unmarshal(envlp.Data, &result))
		assert.Equal(t, 0, result.UnreadCount)
	})

	t.Run("someone else's notification is not found", func(t *testing.T) {
		other := env.seedUser(org.ID, auth.LevelUsuario, "carlos@aurora.com.br")
		rec := env.do("POST", fmt.Sprintf("/api/notificacoes/%d/ler", n.ID), env.token(other), nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("preference opt-out suppresses new deliveries", func(t *testing.T) {
		rec := env.do("PUT", "/api/notificacoes/preferencias", token, map[string]interface{}{
			"type": string(notify.TypeNewReport), "enabled": false,
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		suppressed, err := env.notify.Create(context.Background(), user.ID, notify.Payload{
			Type: notify.TypeNewReport, Title: "Outro", Message: "outro relatório",
		})
		require.NoError(t, err)
		assert.Nil(t, suppressed)
	})

	t.Run("unknown preference type is rejected", func(t *testing.T) {
		rec := env.do("PUT", "/api/notificacoes/preferencias", token, map[string]interface{}{
			"type": "pombo_correio", "enabled": true,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrgAdministration(t *testing.T) {
	env := newTestEnv(t)
	existing := env.seedOrg("Metalúrgica Aurora")
	super := env.seedUser(0, auth.LevelSuperAdmin, "root@relato.com.br")
	superToken := env.token(super)
	regular := env.seedUser(existing.ID, auth.LevelAdmin, "admin@aurora.com.br")

	t.Run("tenant admins cannot manage organizations", func(t *testing.T) {
		rec := env.do("GET", "/api/organizacoes", env.token(regular), nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("create defaults plan and slug", func(t *testing.T) {
		rec := env.do("POST", "/api/organizacoes", superToken, map[string]string{
			"name": "Fundicao Beta",
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var org orgs.Organization
		envlp := decodeEnvelope(t, rec)
		require.NoError(t, json.Unmarshal(envlp.Data, &org))
		assert.Equal(t, orgs.PlanBasico, org.Plan)
		assert.Equal(t, "fundicao-beta", org.Slug)
		assert.True(t, org.IsActive)
	})

	t.Run("suspension locks the tenant's users out immediately", func(t *testing.T) {
		rec := env.do("POST", fmt.Sprintf("/api/organizacoes/%d/suspender", existing.ID),
			superToken, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// the org cache was invalidated, so the very next request sees it
		blocked := env.do("GET", "/api/notificacoes", env.token(regular), nil, nil)
		assert.Equal(t, http.StatusForbidden, blocked.Code)
		assert.Contains(t, blocked.Body.String(), "suspended")

		reactivate := env.do("POST", fmt.Sprintf("/api/organizacoes/%d/reativar", existing.ID),
			superToken, nil, nil)
		require.Equal(t, http.StatusOK, reactivate.Code, reactivate.Body.String())

		restored := env.do("GET", "/api/notificacoes", env.token(regular), nil, nil)
		assert.Equal(t, http.StatusOK, restored.Code, restored.Body.String())
	})
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg("Metalúrgica Aurora")
	admin := env.seedUser(org.ID, auth.LevelAdmin, "admin@aurora.com.br")
	user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")

	login := env.do("POST", "/api/login", "", map[string]string{
		"email": admin.Email, "password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())

	t.Run("admins read the tenant's trail", func(t *testing.T) {
		rec := env.do("GET", "/api/auditoria", env.token(admin), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "auth.login")
	})

	t.Run("regular users cannot", func(t *testing.T) {
		rec := env.do("GET", "/api/auditoria", env.token(user), nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

// recordingLimiter captures the bucket keys the router derives.
type recordingLimiter struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLimiter) Allow(_ context.Context, key string) (middleware.Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return middleware.Decision{Allowed: true, Limit: 100, Remaining: 99}, nil
}

func (l *recordingLimiter) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.keys) == 0 {
		return ""
	}
	return l.keys[len(l.keys)-1]
}

func TestReportCreateLogsRecipientResolutionFailure(t *testing.T) {
	var logs bytes.Buffer
	env := newTestEnv(t, func(d *Deps) {
		d.Logger = observability.NewLogger(observability.ErrorLevel, &logs)
	})
	org := env.seedOrg("Metalúrgica Aurora")
	user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")
	env.grant(auth.LevelUsuario, permissions.ResourceRelatorios, permissions.ActionCriar)

	env.directory.err = errors.New("consulta de destinatários falhou")

	rec := env.do("POST", "/api/relatorios", env.token(user), map[string]interface{}{
		"title": "Vazamento de óleo",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, logs.String(), "report notifications not sent")
}

func TestRateLimitSharesOrganizationBucket(t *testing.T) {
	limiter := &recordingLimiter{}
	env := newTestEnv(t, func(d *Deps) {
		d.Config.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, Burst: 10}
		d.Limiter = limiter
	})
	org := env.seedOrg("Metalúrgica Aurora")
	user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")
	env.grant(auth.LevelUsuario, permissions.ResourceSetores, permissions.ActionVisualizar)

	rec := env.do("GET", "/api/setores", env.token(user), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, fmt.Sprintf("org:%d", org.ID), limiter.last(),
		"tenant traffic shares the organization's bucket")

	super := env.seedUser(org.ID, auth.LevelSuperAdmin, "root@relato.com.br")
	rec = env.do("GET", "/api/organizacoes", env.token(super), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, fmt.Sprintf("user:%d", super.ID), limiter.last(),
		"super admins get a personal bucket")
}

func TestWebSocketHandshakeChecksLiveAccount(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Hub = realtime.NewHub(notify.NewRegistry(), d.Logger, nil)
	})
	org := env.seedOrg("Metalúrgica Aurora")
	user := env.seedUser(org.ID, auth.LevelUsuario, "joana@aurora.com.br")
	token := env.token(user)

	// A plain GET carries no upgrade headers, so reaching the upgrader
	// surfaces as its 400. Rejected accounts never get that far.
	rec := env.do("GET", "/ws?token="+token, "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("deactivated user is rejected", func(t *testing.T) {
		require.NoError(t, env.users.SetActive(context.Background(), org.ID, user.ID, false))
		rec := env.do("GET", "/ws?token="+token, "", nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("member of a suspended organization is rejected", func(t *testing.T) {
		suspended := env.seedOrg("Fundicao Parada")
		require.NoError(t, env.orgsSvc.SetSuspended(context.Background(), suspended.ID, true))
		member := env.seedUser(suspended.ID, auth.LevelUsuario, "preso@parada.com.br")

		rec := env.do("GET", "/ws?token="+env.token(member), "", nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
