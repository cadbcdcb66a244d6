package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"testhub/backend/internal/audit"
	auditdomain "testhub/backend/internal/audit/domain"
	filemoduledomain "testhub/backend/internal/filemodule/domain"
	filemoduleservice "testhub/backend/internal/filemodule/service"
	identityservice "testhub/backend/internal/identity/service"
	"testhub/backend/internal/permission"
	permissiondomain "testhub/backend/internal/permission/domain"
	"testhub/backend/internal/security"
	"testhub/backend/internal/server/middleware"
	"testhub/backend/internal/session"
	userdomain "testhub/backend/internal/user/domain"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*userdomain.User // by id
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*userdomain.User{}}
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) GetByName(_ context.Context, name string) (*userdomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) CreateWithRole(_ context.Context, u *userdomain.User, _, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) SetEnabled(_ context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.Enabled = enabled
	}
	return nil
}

func (f *fakeUsers) SoftDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.Deleted = true
		u.Enabled = false
	}
	return nil
}

type fakeModules struct {
	mu      sync.Mutex
	nextID  int64
	modules []filemoduledomain.FileModule
}

func (f *fakeModules) ListByProjectAndKind(_ context.Context, projectID int64, kind filemoduledomain.Kind) ([]filemoduledomain.FileModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []filemoduledomain.FileModule
	for _, m := range f.modules {
		if m.ProjectID == projectID && m.Kind == kind && !m.Deleted {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeModules) GetByID(_ context.Context, id int64) (*filemoduledomain.FileModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.modules {
		if m.ID == id && !m.Deleted {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeModules) CountArtifacts(context.Context, int64, filemoduledomain.Kind) (int, error) {
	return 0, nil
}

func (f *fakeModules) Create(_ context.Context, m *filemoduledomain.FileModule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	f.modules = append(f.modules, *m)
	return nil
}

func (f *fakeModules) Update(_ context.Context, id int64, name string, parentID *int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.modules {
		if f.modules[i].ID == id {
			f.modules[i].Name = name
			f.modules[i].ParentID = parentID
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeModules) SoftDelete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.modules {
		if f.modules[i].ID == id {
			f.modules[i].Deleted = true
		}
	}
	return nil
}

// fakePerms grants case read+write to every user and nothing else.
type fakePerms struct{}

func (fakePerms) RoleIDsForUser(context.Context, string, int64) ([]int64, error) {
	return []int64{1}, nil
}

func (fakePerms) PermissionsForRoles(context.Context, []int64) ([]permissiondomain.Permission, error) {
	return []permissiondomain.Permission{
		{RoleID: 1, Module: permissiondomain.ModuleCase, Scope: permissiondomain.ScopeRead},
		{RoleID: 1, Module: permissiondomain.ModuleCase, Scope: permissiondomain.ScopeWrite},
	}, nil
}

func (fakePerms) CreateRole(context.Context, *permissiondomain.Role) error { return nil }
func (fakePerms) GetRole(context.Context, int64) (*permissiondomain.Role, error) {
	return nil, nil
}
func (fakePerms) DeleteRole(context.Context, int64) error                          { return nil }
func (fakePerms) GrantPermission(context.Context, *permissiondomain.Permission) error { return nil }
func (fakePerms) AssignRole(context.Context, *permissiondomain.UserRoleRelation) error {
	return nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*auditdomain.AuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, a *auditdomain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, a)
	return nil
}

func (f *fakeAuditRepo) ListByProject(_ context.Context, projectID int64, _, _ int32) ([]*auditdomain.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*auditdomain.AuditLog
	for _, a := range f.logs {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	sessions := session.NewRedisStore(client, time.Hour, nil)

	tokens, err := security.NewTestTokenProvider(15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	hasher := security.NewHasher(security.HashParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1})

	auditRepo := &fakeAuditRepo{}
	auditor := audit.NewLogger(auditRepo, middleware.GetClientIP, nil)

	authSvc, err := identityservice.NewAuthService(newFakeUsers(), sessions, hasher, tokens, auditor, 0, 0)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	perms := fakePerms{}
	return NewRouter(Deps{
		Auth:           authSvc,
		Modules:        filemoduleservice.NewService(&fakeModules{}),
		PermissionRepo: perms,
		Checker:        permission.NewChecker(perms),
		Tokens:         tokens,
		Sessions:       sessions,
		Auditor:        auditor,
		AuditRepo:      auditRepo,
		Registry:       prometheus.NewRegistry(),
		RequestTimeout: 5 * time.Second,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, projectID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if projectID != 0 {
		req.Header.Set("ProjectId", fmt.Sprintf("%d", projectID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", 0, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/metrics", "", 0, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
}

func TestRouter_RegisterLoginAndProtectedFlow(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", 0, map[string]string{
		"name":     "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", 0, map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("login response missing tokens")
	}

	// No bearer token.
	rec = doJSON(t, h, http.MethodGet, "/api/case/module/tree", "", 1, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated tree status = %d, want 401", rec.Code)
	}

	// Token but no ProjectId header.
	rec = doJSON(t, h, http.MethodGet, "/api/case/module/tree", tokens.AccessToken, 0, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing ProjectId status = %d, want 400", rec.Code)
	}

	// Full chain: auth, project header, permission, handler.
	rec = doJSON(t, h, http.MethodPost, "/api/case/module", tokens.AccessToken, 1, map[string]string{"name": "Smoke"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create module status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodGet, "/api/case/module/tree", tokens.AccessToken, 1, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tree status = %d, body %s", rec.Code, rec.Body.String())
	}

	// The role surface is the admin module, which this user lacks.
	rec = doJSON(t, h, http.MethodPost, "/api/role", tokens.AccessToken, 1, map[string]string{"name": "qa"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("role create status = %d, want 403", rec.Code)
	}

	// Logout destroys the session; the access token dies with it.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/logout", tokens.AccessToken, 0, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodGet, "/api/case/module/tree", tokens.AccessToken, 1, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("post-logout tree status = %d, want 401", rec.Code)
	}
}

func TestRouter_RefreshRotatesTokens(t *testing.T) {
	h := newTestRouter(t)

	doJSON(t, h, http.MethodPost, "/api/auth/register", "", 0, map[string]string{
		"name":     "bob",
		"email":    "bob@example.com",
		"password": "password123",
	})
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", 0, map[string]string{
		"email":    "bob@example.com",
		"password": "password123",
	})
	var tokens struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", 0, map[string]string{
		"refresh_token": tokens.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}

	// The old refresh token was rotated out; replaying it is reuse and kills
	// every session for the user.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", 0, map[string]string{
		"refresh_token": tokens.RefreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh status = %d, want 401", rec.Code)
	}
}

func TestRouter_AuditListRequiresAdmin(t *testing.T) {
	h := newTestRouter(t)

	doJSON(t, h, http.MethodPost, "/api/auth/register", "", 0, map[string]string{
		"name":     "carol",
		"email":    "carol@example.com",
		"password": "password123",
	})
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", 0, map[string]string{
		"email":    "carol@example.com",
		"password": "password123",
	})
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/admin/audit", tokens.AccessToken, 1, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("audit list status = %d, want 403", rec.Code)
	}
}
