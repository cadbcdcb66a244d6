package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"testhub/backend/internal/security"
	"testhub/backend/internal/session"
)

func testSessionStore(t *testing.T) *session.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewRedisStore(client, 24*time.Hour, nil)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_PublicPathNeedsNoToken(t *testing.T) {
	tokens, err := security.NewTestTokenProvider(time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	mw := Auth(tokens, testSessionStore(t), map[string]bool{"/api/auth/login": true}, zap.NewNop())

	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuth_MissingTokenIs401(t *testing.T) {
	tokens, err := security.NewTestTokenProvider(time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	mw := Auth(tokens, testSessionStore(t), nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/case/tree", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_ValidTokenButDestroyedSessionIs401(t *testing.T) {
	tokens, err := security.NewTestTokenProvider(time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	store := testSessionStore(t)
	sessionID, err := store.Create(context.Background(), "u1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	pair, err := tokens.IssuePair("u1", sessionID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	mw := Auth(tokens, store, nil, zap.NewNop())

	var gotUser, gotSession string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUserID(r.Context())
		gotSession, _ = GetSessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/case/tree", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("live session: status = %d, want 200", rec.Code)
	}
	if gotUser != "u1" || gotSession != sessionID {
		t.Errorf("identity in context = (%s, %s)", gotUser, gotSession)
	}

	// Destroying the session must invalidate the still-unexpired JWT.
	if _, err := store.Destroy(context.Background(), "u1", sessionID); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	rec = httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("destroyed session: status = %d, want 401", rec.Code)
	}
}

func TestAuth_RefreshTokenRejectedOnAccessSurface(t *testing.T) {
	tokens, err := security.NewTestTokenProvider(time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	store := testSessionStore(t)
	sessionID, _ := store.Create(context.Background(), "u1")
	pair, _ := tokens.IssuePair("u1", sessionID)

	mw := Auth(tokens, store, nil, zap.NewNop())
	req := httptest.NewRequest("GET", "/api/case/tree", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for refresh token on access check", rec.Code)
	}
}

func TestProjectHeader(t *testing.T) {
	mw := ProjectHeader(map[string]bool{"/api/auth/login": true}, zap.NewNop())

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"valid header", "/api/case/tree", "7", http.StatusOK},
		{"missing header", "/api/case/tree", "", http.StatusBadRequest},
		{"non-numeric", "/api/case/tree", "abc", http.StatusBadRequest},
		{"zero", "/api/case/tree", "0", http.StatusBadRequest},
		{"negative", "/api/case/tree", "-4", http.StatusBadRequest},
		{"exempt path skips check", "/api/auth/login", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got int64
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = GetProjectID(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.header != "" {
				req.Header.Set("ProjectId", tc.header)
			}
			rec := httptest.NewRecorder()
			mw(inner).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusOK && tc.header != "" && got != 7 {
				t.Errorf("project id in context = %d, want 7", got)
			}
		})
	}
}

func TestProjectHeader_ErrorEnvelope(t *testing.T) {
	mw := ProjectHeader(nil, zap.NewNop())
	req := httptest.NewRequest("GET", "/api/case/tree", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	var body struct {
		Code    string `json:"code"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "bad_request" {
		t.Errorf("code = %q, want bad_request", body.Code)
	}
	if len(body.Details) != 1 || body.Details[0].Field != "ProjectId" {
		t.Errorf("details = %+v", body.Details)
	}
}

type allowFunc func(userID string, projectID int64, uri, method string) (bool, error)

func (f allowFunc) Check(_ context.Context, userID string, projectID int64, uri, method string) (bool, error) {
	return f(userID, projectID, uri, method)
}

func TestPermission_DeniedIs403(t *testing.T) {
	mw := Permission(allowFunc(func(string, int64, string, string) (bool, error) { return false, nil }), nil, nil, zap.NewNop())
	req := httptest.NewRequest("DELETE", "/admin/x", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestPermission_AllowedPassesAndExemptSkips(t *testing.T) {
	var asked bool
	mw := Permission(allowFunc(func(string, int64, string, string) (bool, error) {
		asked = true
		return true, nil
	}), nil, map[string]bool{"/api/auth/refresh": true}, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/case/tree", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !asked {
		t.Errorf("status = %d, asked = %v", rec.Code, asked)
	}

	asked = false
	req = httptest.NewRequest("POST", "/api/auth/refresh", nil)
	rec = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || asked {
		t.Errorf("exempt path: status = %d, asked = %v", rec.Code, asked)
	}
}

func TestRecovery_PanicBecomes500Envelope(t *testing.T) {
	mw := Recovery(zap.NewNop())
	req := httptest.NewRequest("GET", "/api/case/tree", nil)
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "internal" {
		t.Errorf("code = %q, want internal", body.Code)
	}
}

func TestTimeout_ContextHasDeadline(t *testing.T) {
	mw := Timeout(50 * time.Millisecond)
	var hadDeadline bool
	req := httptest.NewRequest("GET", "/api/case/tree", nil)
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadDeadline = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	if !hadDeadline {
		t.Error("request context must carry the global deadline")
	}
}
