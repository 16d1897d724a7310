package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/relatoapp/relato/pkg/audit"
	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/config"
	"github.com/relatoapp/relato/pkg/equipment"
	"github.com/relatoapp/relato/pkg/notify"
	"github.com/relatoapp/relato/pkg/observability"
	"github.com/relatoapp/relato/pkg/orgs"
	"github.com/relatoapp/relato/pkg/permissions"
	"github.com/relatoapp/relato/pkg/reports"
	"github.com/relatoapp/relato/pkg/tenant"
)

const testPassword = "senha-muito-forte-123"

var (
	testHashOnce sync.Once
	testHash     string
)

func passwordHash(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		hash, err := auth.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
		testHash = hash
	})
	return testHash
}

// memUserStore is an in-memory auth.UserStore for handler tests.
type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*auth.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: make(map[int64]*auth.User)}
}

func (s *memUserStore) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byID[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, auth.ErrUserNotFound
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byID {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *memUserStore) Create(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	s.byID[user.ID] = &copied
	return nil
}

func (s *memUserStore) Update(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[user.ID]
	if !ok || existing.OrganizationID != user.OrganizationID {
		return auth.ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	copied := *user
	s.byID[user.ID] = &copied
	return nil
}

func (s *memUserStore) SetActive(ctx context.Context, orgID, userID int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok || user.OrganizationID != orgID {
		return auth.ErrUserNotFound
	}
	user.IsActive = active
	return nil
}

func (s *memUserStore) ListByOrg(ctx context.Context, orgID int64) ([]*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*auth.User
	for _, user := range s.byID {
		if user.OrganizationID == orgID {
			copied := *user
			out = append(out, &copied)
		}
	}
	return out, nil
}

// memOrgService is an in-memory orgs.Service with injectable limit errors.
type memOrgService struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*orgs.Organization

	userLimitErr      error
	equipmentLimitErr error
	reportLimitErr    error
}

func newMemOrgService() *memOrgService {
	return &memOrgService{byID: make(map[int64]*orgs.Organization)}
}

func (s *memOrgService) Create(ctx context.Context, org *orgs.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.Slug == "" {
		org.Slug = orgs.GenerateSlug(org.Name)
	}
	if org.Plan == "" {
		org.Plan = orgs.PlanBasico
	}
	if org.Limits == (orgs.Limits{}) {
		org.Limits = orgs.DefaultLimits(org.Plan)
	}
	org.IsActive = true
	s.nextID++
	org.ID = s.nextID
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt
	copied := *org
	s.byID[org.ID] = &copied
	return nil
}

func (s *memOrgService) GetByID(ctx context.Context, id int64) (*orgs.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org, ok := s.byID[id]; ok {
		copied := *org
		return &copied, nil
	}
	return nil, orgs.ErrNotFound
}

func (s *memOrgService) GetBySlug(ctx context.Context, slug string) (*orgs.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, org := range s.byID {
		if org.Slug == slug {
			copied := *org
			return &copied, nil
		}
	}
	return nil, orgs.ErrNotFound
}

func (s *memOrgService) List(ctx context.Context) ([]*orgs.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*orgs.Organization
	for _, org := range s.byID {
		copied := *org
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memOrgService) Update(ctx context.Context, org *orgs.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[org.ID]
	if !ok {
		return orgs.ErrNotFound
	}
	existing.Name = org.Name
	existing.Plan = org.Plan
	existing.Limits = org.Limits
	existing.UpdatedAt = time.Now()
	*org = *existing
	return nil
}

func (s *memOrgService) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.byID[id]
	if !ok {
		return orgs.ErrNotFound
	}
	org.IsSuspended = suspended
	return nil
}

func (s *memOrgService) SetActive(ctx context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.byID[id]
	if !ok {
		return orgs.ErrNotFound
	}
	org.IsActive = active
	return nil
}

func (s *memOrgService) CheckUserLimit(ctx context.Context, orgID int64) error {
	return s.userLimitErr
}

func (s *memOrgService) CheckEquipmentLimit(ctx context.Context, orgID int64) error {
	return s.equipmentLimitErr
}

func (s *memOrgService) CheckMonthlyReportLimit(ctx context.Context, orgID int64, now time.Time) error {
	return s.reportLimitErr
}

// memDirectory keeps fan-out recipient sets out of the handler tests. A
// non-nil err simulates recipient resolution going down.
type memDirectory struct{ err error }

func (d *memDirectory) AdminIDs(ctx context.Context, orgID int64) ([]int64, error) {
	return nil, d.err
}

func (d *memDirectory) ActiveUserIDs(ctx context.Context, orgID int64) ([]int64, error) {
	return nil, d.err
}

func (d *memDirectory) ActiveAssigneeIDs(ctx context.Context, reportID int64) ([]int64, error) {
	return nil, d.err
}

type testEnv struct {
	t      *testing.T
	router http.Handler
	db     *sql.DB

	users     *memUserStore
	orgsSvc   *memOrgService
	tokens    *auth.TokenManager
	perms     *permissions.Service
	notify    *notify.Service
	directory *memDirectory
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			access_level TEXT NOT NULL,
			resource TEXT NOT NULL,
			action TEXT NOT NULL,
			allowed INTEGER NOT NULL DEFAULT 0,
			UNIQUE (access_level, resource, action)
		);
		CREATE TABLE permission_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id INTEGER NOT NULL,
			access_level TEXT NOT NULL,
			resource TEXT NOT NULL,
			action TEXT NOT NULL,
			old_allowed INTEGER,
			new_allowed INTEGER NOT NULL,
			ip_address TEXT,
			user_agent TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id INTEGER,
			organization_id INTEGER,
			action TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id INTEGER,
			before TEXT,
			after TEXT,
			ip_address TEXT,
			user_agent TEXT,
			request_id TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE sectors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			sector_id INTEGER,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE equipment (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			sector_id INTEGER,
			location_id INTEGER,
			name TEXT NOT NULL,
			tag TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ativo',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (organization_id, tag)
		);
		CREATE TABLE motors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			equipment_id INTEGER,
			name TEXT NOT NULL,
			power_kw REAL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE analyzers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			equipment_id INTEGER,
			name TEXT NOT NULL,
			serial_number TEXT,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE generator_inspections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			equipment_id INTEGER,
			inspected_by INTEGER,
			notes TEXT,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			equipment_id INTEGER,
			created_by INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'aberto',
			priority TEXT NOT NULL DEFAULT 'media',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE report_assignments (
			report_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			assigned_by INTEGER,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (report_id, user_id)
		);
		CREATE TABLE report_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			note TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			report_id INTEGER,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			data TEXT,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			read_at TIMESTAMP
		);
		CREATE TABLE notification_preferences (
			user_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			PRIMARY KEY (user_id, type)
		);
	`)
	require.NoError(t, err)

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	users := newMemUserStore()
	orgsSvc := newMemOrgService()
	orgCache := tenant.NewOrgCache(orgsSvc)
	tokens := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)

	permStore := permissions.NewPostgresStore(db)
	permCache := permissions.NewCache(permStore, permissions.DefaultTTL, logger, nil)
	permSvc := permissions.NewService(permStore, permCache)

	directory := &memDirectory{}
	notifySvc := notify.NewService(notify.NewPostgresStore(db), notify.NewRegistry(), directory, logger, nil)

	cfg := &config.Config{}
	cfg.Server.BaseDomain = "relato.test"
	cfg.Server.CORSAllowedOrigins = []string{"*"}

	deps := Deps{
		Config:    cfg,
		Logger:    logger,
		Tokens:    tokens,
		Users:     users,
		Orgs:      orgsSvc,
		OrgCache:  orgCache,
		PermCache: permCache,
		Perms:     permSvc,
		Notify:    notifySvc,
		Auditor:   audit.NewDBLogger(db, logger),
		Catalog:   equipment.NewStore(db),
		Reports:   reports.NewStore(db),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	server := NewServer(deps)

	return &testEnv{
		t:         t,
		router:    server.Router(),
		db:        db,
		users:     users,
		orgsSvc:   orgsSvc,
		tokens:    tokens,
		perms:     permSvc,
		notify:    notifySvc,
		directory: directory,
	}
}

func (e *testEnv) seedOrg(name string) *orgs.Organization {
	e.t.Helper()
	org := &orgs.Organization{Name: name}
	require.NoError(e.t, e.orgsSvc.Create(context.Background(), org))
	return org
}

func (e *testEnv) seedUser(orgID int64, level auth.AccessLevel, email string) *auth.User {
	e.t.Helper()
	user := &auth.User{
		OrganizationID: orgID,
		Name:           "Usuário de Teste",
		Email:          email,
		PasswordHash:   passwordHash(e.t),
		AccessLevel:    level,
		IsActive:       true,
	}
	require.NoError(e.t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) token(user *auth.User) string {
	e.t.Helper()
	token, err := e.tokens.Issue(user)
	require.NoError(e.t, err)
	return token
}

// grant flips one matrix cell directly through the service, exactly like the
// admin endpoint does.
func (e *testEnv) grant(level auth.AccessLevel, resource permissions.Resource, action permissions.Action) {
	e.t.Helper()
	_, err := e.perms.Update(context.Background(), permissions.UpdateRequest{
		AccessLevel: level,
		Resource:    resource,
		Action:      action,
		Allowed:     true,
		ActorID:     1,
	})
	require.NoError(e.t, err)
}

func (e *testEnv) do(method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env),
		"body: %s", rec.Body.String())
	return env
}

func orgHeader(orgID int64) map[string]string {
	return map[string]string{"X-Organization-ID": fmt.Sprintf("%d", orgID)}
}
