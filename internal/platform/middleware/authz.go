// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/constants"
	"github.com/taibuivan/stella/internal/platform/ctxutil"
	"github.com/taibuivan/stella/internal/platform/respond"
	"github.com/taibuivan/stella/internal/platform/sec"
)

// BearerToken extracts the token from an 'Authorization: Bearer <token>' header.
func BearerToken(request *http.Request) (string, error) {
	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if authHeader == "" {
		return "", apperr.Unauthorized("Authentication required")
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) || token == "" {
		return "", apperr.Unauthorized("Invalid authorization format")
	}

	return token, nil
}

// RequireAdminRole blocks requests whose administrator is missing or holds a
// role outside allowed. An empty allowed set admits every role.
//
// # Usage
//
// Must be registered AFTER the admin access guard, which resolves the
// administrator. Missing authentication is 401; a role outside the set is 403.
func RequireAdminRole(allowed ...sec.AdminRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			admin := ctxutil.GetAdmin(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if admin == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !admin.Role.Allowed(allowed...) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
