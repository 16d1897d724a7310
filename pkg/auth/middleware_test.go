package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relatoapp/relato/pkg/observability"
)

type fakeUserStore struct {
	users map[int64]*User
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeUserStore) Create(context.Context, *User) error               { return nil }
func (f *fakeUserStore) Update(context.Context, *User) error               { return nil }
func (f *fakeUserStore) SetActive(context.Context, int64, int64, bool) error { return nil }
func (f *fakeUserStore) ListByOrg(context.Context, int64) ([]*User, error) { return nil, nil }

type fakeOrgChecker struct {
	statuses map[int64]OrgStatus
}

func (f *fakeOrgChecker) OrgStatus(_ context.Context, orgID int64) (OrgStatus, error) {
	if st, ok := f.statuses[orgID]; ok {
		return st, nil
	}
	return OrgStatus{}, nil
}

func newTestGate(t *testing.T, users *fakeUserStore, orgs *fakeOrgChecker) (*Gate, *TokenManager) {
	t.Helper()
	tm := NewTokenManager(testSigningSecret, time.Hour)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewGate(tm, users, orgs, logger), tm
}

func gateResponse(t *testing.T, gate *Gate, token string) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()

	var seen *Identity
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec, seen
}

func responseMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestGate_HappyPath(t *testing.T) {
	user := testUser()
	gate, tm := newTestGate(t,
		&fakeUserStore{users: map[int64]*User{user.ID: user}},
		&fakeOrgChecker{statuses: map[int64]OrgStatus{user.OrganizationID: {Active: true}}},
	)

	token, err := tm.Issue(user)
	require.NoError(t, err)

	rec, ident := gateResponse(t, gate, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ident)
	assert.Equal(t, user.ID, ident.UserID)
	assert.Equal(t, user.OrganizationID, ident.OrgID)
}

func TestGate_MissingHeader(t *testing.T) {
	gate, _ := newTestGate(t, &fakeUserStore{}, &fakeOrgChecker{})

	rec, _ := gateResponse(t, gate, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization header", responseMessage(t, rec))
}

func TestGate_InvalidToken(t *testing.T) {
	gate, _ := newTestGate(t, &fakeUserStore{}, &fakeOrgChecker{})

	rec, _ := gateResponse(t, gate, "garbage.token.value")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", responseMessage(t, rec))
}

func TestGate_ExpiredToken(t *testing.T) {
	user := testUser()
	gate, _ := newTestGate(t,
		&fakeUserStore{users: map[int64]*User{user.ID: user}},
		&fakeOrgChecker{statuses: map[int64]OrgStatus{user.OrganizationID: {Active: true}}},
	)

	expired := NewTokenManager(testSigningSecret, -time.Minute)
	token, err := expired.Issue(user)
	require.NoError(t, err)

	rec, _ := gateResponse(t, gate, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", responseMessage(t, rec))
}

func TestGate_DeactivatedUser(t *testing.T) {
	user := testUser()
	user.IsActive = false
	gate, tm := newTestGate(t,
		&fakeUserStore{users: map[int64]*User{user.ID: user}},
		&fakeOrgChecker{statuses: map[int64]OrgStatus{user.OrganizationID: {Active: true}}},
	)

	token, err := tm.Issue(user)
	require.NoError(t, err)

	rec, _ := gateResponse(t, gate, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "user account is deactivated", responseMessage(t, rec))
}

func TestGate_SuspendedOrganization(t *testing.T) {
	user := testUser()
	gate, tm := newTestGate(t,
		&fakeUserStore{users: map[int64]*User{user.ID: user}},
		&fakeOrgChecker{statuses: map[int64]OrgStatus{user.OrganizationID: {Active: true, Suspended: true}}},
	)

	token, err := tm.Issue(user)
	require.NoError(t, err)

	rec, _ := gateResponse(t, gate, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "organization is suspended", responseMessage(t, rec))
}

func TestGate_DeactivatedOrganization(t *testing.T) {
	user := testUser()
	gate, tm := newTestGate(t,
		&fakeUserStore{users: map[int64]*User{user.ID: user}},
		&fakeOrgChecker{statuses: map[int64]OrgStatus{user.OrganizationID: {Active: false}}},
	)

	token, err := tm.Issue(user)
	require.NoError(t, err)

	rec, _ := gateResponse(t, gate, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "organization is deactivated", responseMessage(t, rec))
}

func TestGate_SuperAdminSkipsOrgCheck(t *testing.T) {
	admin := testUser()
	admin.AccessLevel = LevelSuperAdmin
	// org state would reject anyone else
	gate, tm := newTestGate(t,
		&fakeUserStore{users: map[int64]*User{admin.ID: admin}},
		&fakeOrgChecker{statuses: map[int64]OrgStatus{admin.OrganizationID: {Active: false, Suspended: true}}},
	)

	token, err := tm.Issue(admin)
	require.NoError(t, err)

	rec, ident := gateResponse(t, gate, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ident)
	assert.True(t, ident.IsSuperAdmin())
}

func TestGate_LiveRoleWinsOverTokenClaims(t *testing.T) {
	user := testUser()
	gate, tm := newTestGate(t,
		&fakeUserStore{users: map[int64]*User{user.ID: user}},
		&fakeOrgChecker{statuses: map[int64]OrgStatus{user.OrganizationID: {Active: true}}},
	)

	token, err := tm.Issue(user)
	require.NoError(t, err)

	// demote after issuance; the next request should see the new level
	user.AccessLevel = LevelConvidado

	_, ident := gateResponse(t, gate, token)
	require.NotNil(t, ident)
	assert.Equal(t, LevelConvidado, ident.AccessLevel)
}
