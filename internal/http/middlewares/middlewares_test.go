package middlewares_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func issue(t *testing.T, m *auth.Manager, role user.Role) string {
	t.Helper()

	tok, err := m.Issue(user.Identity{ID: "u-1", Email: "a@x.com", Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func protectedRouter(m *auth.Manager, allowed ...user.Role) *gin.Engine {
	mw := middlewares.NewAuthMiddleware(auth.NewBearerAuthenticator(m))

	r := gin.New()
	r.Use(middlewares.RequestID())
	r.GET("/guarded", mw.RequireAuth(), mw.RequireRoles(allowed...), func(c *gin.Context) {
		claims, ok := actorctx.ClaimsFrom(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": claims.Role})
	})
	return r
}

func TestRequireAuthAndRoles(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)
	expired := auth.NewManager("test-secret", -time.Minute)

	tests := []struct {
		name     string
		allowed  []user.Role
		header   string
		wantCode int
		wantErr  string
	}{
		{
			name:     "allowed_role",
			allowed:  []user.Role{user.RoleAdmin, user.RoleCustomer},
			header:   "Bearer " + issue(t, m, user.RoleCustomer),
			wantCode: http.StatusOK,
		},
		{
			name:     "role_not_allowed",
			allowed:  []user.Role{user.RoleAdmin, user.RoleManagement},
			header:   "Bearer " + issue(t, m, user.RoleCustomer),
			wantCode: http.StatusForbidden,
			wantErr:  "forbidden",
		},
		{
			name:     "empty_allowed_denies",
			allowed:  nil,
			header:   "Bearer " + issue(t, m, user.RoleAdmin),
			wantCode: http.StatusForbidden,
			wantErr:  "forbidden",
		},
		{
			name:     "missing_header",
			allowed:  user.AllRoles,
			wantCode: http.StatusUnauthorized,
			wantErr:  "unauthorized",
		},
		{
			// authentication is checked before roles, so an expired token
			// is a 401 even on a route the role could never reach
			name:     "expired_token_before_role_check",
			allowed:  nil,
			header:   "Bearer " + issue(t, expired, user.RoleAdmin),
			wantCode: http.StatusUnauthorized,
			wantErr:  "unauthorized",
		},
		{
			name:     "garbage_token",
			allowed:  user.AllRoles,
			header:   "Bearer nope",
			wantCode: http.StatusUnauthorized,
			wantErr:  "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := protectedRouter(m, tt.allowed...)

			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}

			if tt.wantErr != "" {
				var body errorBody
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if body.Error.Code != tt.wantErr {
					t.Fatalf("error code = %q, want %q", body.Error.Code, tt.wantErr)
				}
			}
		})
	}
}

func TestRequireRoles_WithoutRequireAuth(t *testing.T) {
	mw := middlewares.NewAuthMiddleware(auth.NewBearerAuthenticator(auth.NewManager("s", time.Hour)))

	r := gin.New()
	r.GET("/x", mw.RequireRoles(user.AllRoles...), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}

func TestRateLimiter_MemoryStore(t *testing.T) {
	store := middlewares.NewMemoryRateStore()
	rl := middlewares.NewRateLimiter(store, 2, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := gin.New()
	r.POST("/auth/login", rl.Middleware(middlewares.KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)

		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Fatalf("429 without Retry-After")
		}
	}

	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 200 429]", codes)
	}

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("second client got %d, want 200", w.Code)
	}
}

func TestMemoryRateStore_WindowResets(t *testing.T) {
	store := middlewares.NewMemoryRateStore()
	ctx := context.Background()

	n, reset, _ := store.Hit(ctx, "k", 50*time.Millisecond)
	if n != 1 || reset <= 0 {
		t.Fatalf("first hit = %d, %v", n, reset)
	}

	n, _, _ = store.Hit(ctx, "k", 50*time.Millisecond)
	if n != 2 {
		t.Fatalf("second hit = %d, want 2", n)
	}

	time.Sleep(60 * time.Millisecond)

	n, _, _ = store.Hit(ctx, "k", 50*time.Millisecond)
	if n != 1 {
		t.Fatalf("hit after window = %d, want 1", n)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middlewares.CtxRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	id := w.Header().Get("X-Request-Id")
	if id == "" || id != w.Body.String() {
		t.Fatalf("request id header %q body %q", id, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "6f1c2f1e-8d7a-4a39-9a8e-0c3d5f0b1a11")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got != "6f1c2f1e-8d7a-4a39-9a8e-0c3d5f0b1a11" {
		t.Fatalf("upstream id not propagated: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got == "<script>" {
		t.Fatalf("malformed upstream id was echoed back")
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`a=b`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("got %d, want 415", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.CORSMiddleware([]string{"https://app.test"}))
	r.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin, method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/users", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", method)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://app.test", http.MethodPatch)
	if w.Code != http.StatusNoContent {
		t.Fatalf("allowed preflight: got %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET,POST,PATCH,DELETE" {
		t.Fatalf("allow methods = %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatalf("credentials mode must not be advertised")
	}

	if w := preflight("https://app.test", http.MethodPut); w.Code != http.StatusForbidden {
		t.Fatalf("unserved method: got %d, want 403", w.Code)
	}
	if w := preflight("https://evil.test", http.MethodGet); w.Code != http.StatusForbidden {
		t.Fatalf("unknown origin: got %d, want 403", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown origin on simple request: code=%d acao=%q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestSecurityHeaders(t *testing.T) {
	for _, hsts := range []bool{false, true} {
		r := gin.New()
		r.Use(middlewares.SecurityHeaders(hsts))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		if w.Header().Get("Cache-Control") != "no-store" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("missing hardening headers: %v", w.Header())
		}
		if got := w.Header().Get("Strict-Transport-Security") != ""; got != hsts {
			t.Fatalf("hsts=%v but header present=%v", hsts, got)
		}
	}
}
