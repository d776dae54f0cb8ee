package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type fakeUserManager struct {
	CreateUserFn func(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	ListUsersFn  func(ctx context.Context, f user.ListFilter) ([]user.User, error)
	GetUserFn    func(ctx context.Context, id string) (user.User, error)
	UpdateSelfFn func(ctx context.Context, id string, req user.UpdateSelfRequest) (user.User, error)
	DeleteSelfFn func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUserManager) CreateUser(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	return f.CreateUserFn(ctx, req)
}

func (f *fakeUserManager) ListUsers(ctx context.Context, fl user.ListFilter) ([]user.User, error) {
	return f.ListUsersFn(ctx, fl)
}

func (f *fakeUserManager) GetUser(ctx context.Context, id string) (user.User, error) {
	return f.GetUserFn(ctx, id)
}

func (f *fakeUserManager) UpdateSelf(ctx context.Context, id string, req user.UpdateSelfRequest) (user.User, error) {
	return f.UpdateSelfFn(ctx, id, req)
}

func (f *fakeUserManager) DeleteSelf(ctx context.Context, id string) (user.User, error) {
	return f.DeleteSelfFn(ctx, id)
}

var testManager = auth.NewManager("handlers-test-secret", time.Hour)

func usersRouter(users *fakeUserManager) *gin.Engine {
	h := handlers.NewUsersHandler(users)
	mw := middlewares.NewAuthMiddleware(auth.NewBearerAuthenticator(testManager))

	r := gin.New()
	g := r.Group("/users", mw.RequireAuth())
	g.POST("", mw.RequireRoles(user.RoleAdmin, user.RoleManagement), h.Create)
	g.GET("", h.List)
	g.GET("/me", h.Me)
	g.PATCH("/me", h.UpdateMe)
	g.DELETE("/me", h.DeleteMe)
	g.GET("/:id", h.Get)
	return r
}

func bearer(t *testing.T, id string, role user.Role) string {
	t.Helper()

	tok, err := testManager.Issue(user.Identity{ID: id, Email: id + "@x.com", Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + tok
}

func do(r http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateUser_RoleGuard(t *testing.T) {
	created := 0
	users := &fakeUserManager{
		CreateUserFn: func(_ context.Context, req user.CreateUserRequest) (user.User, error) {
			created++
			return user.User{ID: "new", Name: req.Name, Email: req.Email, Role: user.RoleManagement, PasswordHash: "$2a$10$secret"}, nil
		},
	}
	r := usersRouter(users)
	body := `{"name":"Bo","email":"bo@x.com","password":"secret1","role":"MANAGEMENT"}`

	if w := do(r, http.MethodPost, "/users", bearer(t, "c1", user.RoleCustomer), body); w.Code != http.StatusForbidden {
		t.Fatalf("customer: got %d, want %d", w.Code, http.StatusForbidden)
	}
	if w := do(r, http.MethodPost, "/users", "", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: got %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if created != 0 {
		t.Fatalf("service reached without permission")
	}

	w := do(r, http.MethodPost, "/users", bearer(t, "a1", user.RoleAdmin), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("admin: got %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := got["passwordHash"]; ok {
		t.Fatalf("password hash exposed: %v", got)
	}
	if _, ok := got["PasswordHash"]; ok {
		t.Fatalf("password hash exposed: %v", got)
	}
	if got["role"] != "MANAGEMENT" {
		t.Fatalf("unexpected role: %v", got["role"])
	}
}

func TestListUsers(t *testing.T) {
	var filter user.ListFilter
	users := &fakeUserManager{
		ListUsersFn: func(_ context.Context, f user.ListFilter) ([]user.User, error) {
			filter = f
			return []user.User{{ID: "1"}, {ID: "2"}}, nil
		},
	}
	r := usersRouter(users)

	w := do(r, http.MethodGet, "/users?limit=10&offset=5", bearer(t, "c1", user.RoleCustomer), "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if filter.Limit != 10 || filter.Offset != 5 {
		t.Fatalf("unexpected filter: %+v", filter)
	}

	var body struct {
		Items []user.User `json:"items"`
		Count int         `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count != 2 || len(body.Items) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}

	w = do(r, http.MethodGet, "/users?limit=-1", bearer(t, "c1", user.RoleCustomer), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative limit: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMe_EchoesClaims(t *testing.T) {
	r := usersRouter(&fakeUserManager{})

	w := do(r, http.MethodGet, "/users/me", bearer(t, "u-42", user.RoleManagement), "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["userId"] != "u-42" || body["email"] != "u-42@x.com" || body["role"] != "MANAGEMENT" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	users := &fakeUserManager{
		GetUserFn: func(_ context.Context, id string) (user.User, error) {
			if id != "missing" {
				t.Fatalf("unexpected id %q", id)
			}
			return user.User{}, user.ErrNotFound
		},
	}

	w := do(usersRouter(users), http.MethodGet, "/users/missing", bearer(t, "c1", user.RoleCustomer), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("got %d, want %d", w.Code, http.StatusNotFound)
	}
	if code := decodeError(t, w).Error.Code; code != "not_found" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestUpdateMe_UsesTokenSubject(t *testing.T) {
	var gotID string
	var gotReq user.UpdateSelfRequest
	users := &fakeUserManager{
		UpdateSelfFn: func(_ context.Context, id string, req user.UpdateSelfRequest) (user.User, error) {
			gotID, gotReq = id, req
			return user.User{ID: id, Name: *req.Name}, nil
		},
	}

	w := do(usersRouter(users), http.MethodPatch, "/users/me", bearer(t, "u-7", user.RoleCustomer), `{"name":"New"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if gotID != "u-7" {
		t.Fatalf("update applied to %q", gotID)
	}
	if gotReq.Email != nil || gotReq.Password != nil {
		t.Fatalf("absent fields should stay nil: %+v", gotReq)
	}
}

func TestUpdateMe_DuplicateEmail(t *testing.T) {
	users := &fakeUserManager{
		UpdateSelfFn: func(context.Context, string, user.UpdateSelfRequest) (user.User, error) {
			return user.User{}, user.ErrDuplicateEmail
		},
	}

	w := do(usersRouter(users), http.MethodPatch, "/users/me", bearer(t, "u-7", user.RoleCustomer), `{"email":"taken@x.com"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", w.Code, http.StatusBadRequest)
	}
	if code := decodeError(t, w).Error.Code; code != "duplicate_email" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestDeleteMe(t *testing.T) {
	users := &fakeUserManager{
		DeleteSelfFn: func(_ context.Context, id string) (user.User, error) {
			return user.User{ID: id, Deleted: true}, nil
		},
	}

	w := do(usersRouter(users), http.MethodDelete, "/users/me", bearer(t, "u-9", user.RoleCustomer), "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", w.Code, http.StatusOK)
	}

	var got user.User
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "u-9" || !got.Deleted {
		t.Fatalf("unexpected body: %+v", got)
	}
}
