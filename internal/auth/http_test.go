// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/stella/internal/auth"
	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/sec"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

type principalRef struct {
	ID int64 `json:"id"`
}

type loginBody struct {
	User   principalRef  `json:"user"`
	Admin  principalRef  `json:"admin"`
	Tokens sec.TokenPair `json:"tokens"`
}

type api struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T, f *fixture) *api {
	handler := auth.NewHandler(f.manager, f.guard)

	router := chi.NewRouter()
	router.Mount("/api/v1/auth", handler.Routes())
	router.Mount("/api/v1/admins", handler.AdminRoutes())

	return &api{t: t, router: router}
}

func (a *api) call(method, path, token string, body any) (int, envelope) {
	a.t.Helper()

	var payload bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			payload.WriteString(raw)
		} else {
			require.NoError(a.t, json.NewEncoder(&payload).Encode(body))
		}
	}

	request := httptest.NewRequest(method, path, &payload)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	a.router.ServeHTTP(recorder, request)

	var decoded envelope
	if recorder.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(recorder.Body.Bytes(), &decoded), recorder.Body.String())
	}
	return recorder.Code, decoded
}

func decodeData[T any](t *testing.T, body envelope) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(body.Data, &value))
	return value
}

// # User Flow

/*
TestHTTP_UserPasswordFlow walks register, login, me, refresh, replay and
logout through the mounted router.
*/
func TestHTTP_UserPasswordFlow(t *testing.T) {
	f := newFixture(t)
	a := newAPI(t, f)

	// ── 1. Registration ──────────────────────────────────────────────────

	status, body := a.call(http.MethodPost, "/api/v1/auth/user/register", "", map[string]string{
		"email": "a@x.com", "full_name": "A X", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status, body.Error)
	registered := decodeData[loginBody](t, body)
	assert.NotZero(t, registered.User.ID)
	assert.NotEmpty(t, registered.Tokens.AccessToken)

	status, body = a.call(http.MethodPost, "/api/v1/auth/user/register", "", map[string]string{
		"email": "A@x.com", "full_name": "Dup", "password": "secret456",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperr.CodeConflict, body.Code)

	// ── 2. Login ─────────────────────────────────────────────────────────

	status, _ = a.call(http.MethodPost, "/api/v1/auth/user/login", "", map[string]string{"email": "a@x.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = a.call(http.MethodPost, "/api/v1/auth/user/login", "", map[string]string{"email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, status, body.Error)
	login := decodeData[loginBody](t, body)

	// Registration's session was replaced by the login
	status, _ = a.call(http.MethodGet, "/api/v1/auth/user/refresh-token", registered.Tokens.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// ── 3. Current user ──────────────────────────────────────────────────

	status, body = a.call(http.MethodGet, "/api/v1/auth/user/me", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	me := decodeData[map[string]any](t, body)
	assert.Equal(t, "a@x.com", me["email"])
	assert.NotContains(t, me, "password_hash")

	status, _ = a.call(http.MethodGet, "/api/v1/auth/user/me", login.Tokens.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// ── 4. Refresh and replay ────────────────────────────────────────────

	status, body = a.call(http.MethodGet, "/api/v1/auth/user/refresh-token", login.Tokens.RefreshToken, nil)
	require.Equal(t, http.StatusOK, status, body.Error)
	rotated := decodeData[sec.TokenPair](t, body)
	assert.NotEqual(t, login.Tokens.RefreshToken, rotated.RefreshToken)

	status, _ = a.call(http.MethodGet, "/api/v1/auth/user/refresh-token", login.Tokens.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// ── 5. Logout ────────────────────────────────────────────────────────

	status, body = a.call(http.MethodGet, "/api/v1/auth/user/logout", rotated.RefreshToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]bool{"deleted": true}, decodeData[map[string]bool](t, body))

	status, _ = a.call(http.MethodGet, "/api/v1/auth/user/logout", rotated.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

/*
TestHTTP_Validation covers malformed payloads and boundary rules.
*/
func TestHTTP_Validation(t *testing.T) {
	f := newFixture(t)
	a := newAPI(t, f)

	tests := []struct {
		name     string
		path     string
		body     any
		wantCode string
	}{
		{"malformed_json", "/api/v1/auth/user/register", `{"email":`, apperr.CodeValidation},
		{"unknown_field", "/api/v1/auth/user/login", `{"email":"a@x.com","password":"x","otp":"1"}`, apperr.CodeValidation},
		{"short_password", "/api/v1/auth/user/register", map[string]string{"email": "a@x.com", "full_name": "A", "password": "short"}, apperr.CodeValidation},
		{"bad_email", "/api/v1/auth/user/register", map[string]string{"email": "not-an-email", "full_name": "A", "password": "secret123"}, apperr.CodeValidation},
		{"missing_password", "/api/v1/auth/user/login", map[string]string{"email": "a@x.com"}, apperr.CodeValidation},
		{"missing_access_token", "/api/v1/auth/user/login/google", map[string]string{}, apperr.CodeValidation},
		{"unsupported_provider", "/api/v1/auth/user/login/myspace", map[string]string{"access_token": "t"}, apperr.CodeBadRequest},
		{"exchange_failure", "/api/v1/auth/admin/login/google", map[string]string{"access_token": "unknown"}, apperr.CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.call(http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}

	assert.Zero(t, f.users.Count())
}

/*
TestHTTP_UserSocialLogin verifies first-login provisioning over HTTP.
*/
func TestHTTP_UserSocialLogin(t *testing.T) {
	f := newFixture(t)
	a := newAPI(t, f)
	f.google.Register("tok", auth.SocialProfile{ID: "g-5", Email: "new@x.com", FirstName: "New"})

	status, body := a.call(http.MethodPost, "/api/v1/auth/user/login/google", "", map[string]string{"access_token": "tok"})
	require.Equal(t, http.StatusOK, status, body.Error)

	login := decodeData[loginBody](t, body)
	status, _ = a.call(http.MethodGet, "/api/v1/auth/user/me", login.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, f.users.Count())
}

// # Administrator Flow

/*
TestHTTP_AdminFlow covers social login, the role gate on /admins and
deactivation ending the target's session.
*/
func TestHTTP_AdminFlow(t *testing.T) {
	f := newFixture(t)
	a := newAPI(t, f)

	superAdmin := f.seedAdmin(t, "root@stella.app", sec.RoleSuperAdmin, true)
	operator := f.seedAdmin(t, "ops@stella.app", sec.RoleAdmin, true)
	f.google.Register("root-token", auth.SocialProfile{ID: "g-root", Email: "root@stella.app"})
	f.google.Register("ops-token", auth.SocialProfile{ID: "g-ops", Email: "ops@stella.app"})
	f.google.Register("stranger-token", auth.SocialProfile{ID: "g-x", Email: "stranger@x.com"})

	loginAs := func(token string) loginBody {
		status, body := a.call(http.MethodPost, "/api/v1/auth/admin/login/google", "", map[string]string{"access_token": token})
		require.Equal(t, http.StatusOK, status, body.Error)
		return decodeData[loginBody](t, body)
	}

	root := loginAs("root-token")
	ops := loginAs("ops-token")
	assert.Equal(t, superAdmin.ID, root.Admin.ID)

	status, _ := a.call(http.MethodPost, "/api/v1/auth/admin/login/google", "", map[string]string{"access_token": "stranger-token"})
	assert.Equal(t, http.StatusForbidden, status)

	// ── 1. Role gate ─────────────────────────────────────────────────────

	status, _ = a.call(http.MethodGet, "/api/v1/admins", ops.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.call(http.MethodGet, "/api/v1/admins", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := a.call(http.MethodGet, "/api/v1/admins", root.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]map[string]any](t, body), 2)

	status, _ = a.call(http.MethodGet, "/api/v1/auth/admin/me", ops.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// User tokens are rejected on administrator routes
	user := f.seedPasswordUser(t, "a@x.com", "secret123")
	require.NotZero(t, user.ID)
	userLogin, err := f.manager.LoginUserPassword(context.Background(), "a@x.com", "secret123")
	require.NoError(t, err)
	status, _ = a.call(http.MethodGet, "/api/v1/auth/admin/me", userLogin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// ── 2. Activation management ─────────────────────────────────────────

	selfPath := fmt.Sprintf("/api/v1/admins/%d/active", superAdmin.ID)
	status, body = a.call(http.MethodPatch, selfPath, root.Tokens.AccessToken, map[string]bool{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.CodeValidation, body.Code)

	opsPath := fmt.Sprintf("/api/v1/admins/%d/active", operator.ID)
	status, body = a.call(http.MethodPatch, opsPath, root.Tokens.AccessToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.CodeValidation, body.Code)

	status, _ = a.call(http.MethodPatch, "/api/v1/admins/999/active", root.Tokens.AccessToken, map[string]bool{"is_active": false})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = a.call(http.MethodPatch, opsPath, root.Tokens.AccessToken, map[string]bool{"is_active": false})
	require.Equal(t, http.StatusOK, status, body.Error)
	assert.Equal(t, false, decodeData[map[string]any](t, body)["is_active"])

	status, _ = a.call(http.MethodGet, "/api/v1/auth/admin/me", ops.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.call(http.MethodGet, "/api/v1/auth/admin/refresh-token", ops.Tokens.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// ── 3. Admin refresh and logout ──────────────────────────────────────

	status, body = a.call(http.MethodGet, "/api/v1/auth/admin/refresh-token", root.Tokens.RefreshToken, nil)
	require.Equal(t, http.StatusOK, status, body.Error)
	rotated := decodeData[sec.TokenPair](t, body)

	status, body = a.call(http.MethodGet, "/api/v1/auth/admin/logout", rotated.RefreshToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, decodeData[map[string]bool](t, body)["deleted"])
}
