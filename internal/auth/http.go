// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/constants"
	requestutil "github.com/taibuivan/stella/internal/platform/request"
	"github.com/taibuivan/stella/internal/platform/respond"
	"github.com/taibuivan/stella/internal/platform/sec"
	"github.com/taibuivan/stella/internal/platform/validate"
	"github.com/taibuivan/stella/internal/session"
)

const (
	minPasswordLength = 8
	maxFullNameLength = 255
	maxEmailLength    = 255
)

// Handler implements the authentication HTTP endpoints.
//
// Handlers only decode, validate and map; every state change goes through the
// [Manager], and every protected route is wrapped by a [session.Guard].
type Handler struct {
	manager *Manager
	guard   *session.Guard
}

// NewHandler constructs a new [Handler].
func NewHandler(manager *Manager, guard *session.Guard) *Handler {
	return &Handler{manager: manager, guard: guard}
}

/*
Routes returns the router mounted at /api/v1/auth.

Endpoints:
  - POST /admin/login/{provider}
  - GET  /admin/refresh-token  (admin refresh token)
  - GET  /admin/logout         (admin refresh token)
  - GET  /admin/me             (admin access token)
  - POST /user/login/{provider}
  - POST /user/login
  - POST /user/register
  - GET  /user/refresh-token   (user refresh token)
  - GET  /user/logout          (user refresh token)
  - GET  /user/me              (user access token)
*/
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Route("/admin", func(admin chi.Router) {
		admin.Post("/login/{provider}", handler.loginAdminSocial)
		admin.With(handler.guard.RefreshGuard(sec.KindAdmin)).Get("/refresh-token", handler.refresh(sec.KindAdmin))
		admin.With(handler.guard.RefreshGuard(sec.KindAdmin)).Get("/logout", handler.logout(sec.KindAdmin))
		admin.With(handler.guard.AdminGuard()).Get("/me", handler.adminMe)
	})

	router.Route("/user", func(user chi.Router) {
		user.Post("/login/{provider}", handler.loginUserSocial)
		user.Post("/login", handler.loginUserPassword)
		user.Post("/register", handler.register)
		user.With(handler.guard.RefreshGuard(sec.KindUser)).Get("/refresh-token", handler.refresh(sec.KindUser))
		user.With(handler.guard.RefreshGuard(sec.KindUser)).Get("/logout", handler.logout(sec.KindUser))
		user.With(handler.guard.UserGuard()).Get("/me", handler.userMe)
	})

	return router
}

// AdminRoutes returns the router mounted at /api/v1/admins. Every route
// requires a SUPER_ADMIN.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.guard.AdminGuard(sec.RoleSuperAdmin))

	router.Get("/", handler.listAdmins)
	router.Patch("/{id}/active", handler.setAdminActive)

	return router
}

// # Request Payloads

type socialLoginRequest struct {
	AccessToken string `json:"access_token"`
}

type passwordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// # Social Login

// loginAdminSocial handles POST /api/v1/auth/admin/login/{provider}.
func (handler *Handler) loginAdminSocial(writer http.ResponseWriter, request *http.Request) {
	accessToken, err := decodeSocialLogin(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	login, err := handler.manager.LoginAdminSocial(request.Context(), requestutil.Param(request, "provider"), accessToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, login)
}

// loginUserSocial handles POST /api/v1/auth/user/login/{provider}.
func (handler *Handler) loginUserSocial(writer http.ResponseWriter, request *http.Request) {
	accessToken, err := decodeSocialLogin(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	login, err := handler.manager.LoginUserSocial(request.Context(), requestutil.Param(request, "provider"), accessToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, login)
}

func decodeSocialLogin(writer http.ResponseWriter, request *http.Request) (string, error) {
	var input socialLoginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		return "", err
	}

	validator := &validate.Validator{}
	validator.Required(identity.FieldAccessToken, input.AccessToken)
	if err := validator.Err(); err != nil {
		return "", err
	}

	return input.AccessToken, nil
}

// # Password Login

/*
loginUserPassword handles POST /api/v1/auth/user/login.

Returns:
  - 200 with the user and tokens
  - 401 for unknown email, social-only account or wrong password
  - 403 for an inactive account
*/
func (handler *Handler) loginUserPassword(writer http.ResponseWriter, request *http.Request) {
	var input passwordLoginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(identity.FieldEmail, input.Email).
		Required(identity.FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	login, err := handler.manager.LoginUserPassword(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, login)
}

/*
register handles POST /api/v1/auth/user/register.

Returns:
  - 201 with the new user and tokens
  - 400 when validation rules fail
  - 409 when the email is taken
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		Required(identity.FieldEmail, input.Email).
		MaxLen(identity.FieldEmail, input.Email, maxEmailLength).
		Required(identity.FieldFullName, input.FullName).
		MaxLen(identity.FieldFullName, input.FullName, maxFullNameLength).
		MinLen(identity.FieldPassword, input.Password, minPasswordLength).
		MaxBytes(identity.FieldPassword, input.Password, sec.MaxPasswordBytes)

	if input.Email != "" {
		validator.Email(identity.FieldEmail, input.Email)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	login, err := handler.manager.RegisterUser(request.Context(), RegisterInput{
		Email:    input.Email,
		FullName: input.FullName,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, login)
}

// # Refresh & Logout

// refresh handles GET /api/v1/auth/{kind}/refresh-token behind the refresh guard.
func (handler *Handler) refresh(kind sec.Kind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		sessionID, err := requestutil.RequiredSessionID(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		tokens, err := handler.manager.Refresh(request.Context(), kind, sessionID)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.OK(writer, tokens)
	}
}

// logout handles GET /api/v1/auth/{kind}/logout behind the refresh guard.
func (handler *Handler) logout(kind sec.Kind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		sessionID, err := requestutil.RequiredSessionID(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		deleted, err := handler.manager.Logout(request.Context(), kind, sessionID)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.OK(writer, map[string]bool{constants.FieldDeleted: deleted})
	}
}

// # Current Principal

func (handler *Handler) adminMe(writer http.ResponseWriter, request *http.Request) {
	admin, err := requestutil.RequiredAdmin(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, admin)
}

func (handler *Handler) userMe(writer http.ResponseWriter, request *http.Request) {
	user, err := requestutil.RequiredUser(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, user)
}

// # Administrator Management

// listAdmins handles GET /api/v1/admins.
func (handler *Handler) listAdmins(writer http.ResponseWriter, request *http.Request) {
	admins, err := handler.manager.ListAdmins(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, admins)
}

// setAdminActive handles PATCH /api/v1/admins/{id}/active.
func (handler *Handler) setAdminActive(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.Int64Param(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setActiveRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Custom(identity.FieldIsActive, input.IsActive == nil, "This field is required")

	// Locking oneself out leaves no one to undo it
	caller, _ := requestutil.RequiredAdmin(request)
	validator.Custom(identity.FieldIsActive, caller != nil && caller.ID == id && input.IsActive != nil && !*input.IsActive, "Cannot deactivate your own account")

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	admin, err := handler.manager.SetAdminActive(request.Context(), id, *input.IsActive)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, admin)
}
