// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/ctxutil"
	"github.com/taibuivan/stella/internal/platform/validate"
)

// maxBodyBytes bounds authentication request bodies.
const maxBodyBytes = 1 << 16

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (Used to cap the body size)
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target interface{}) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)

	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// Param retrieves a named URL parameter from the request.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// Int64Param parses a named URL parameter as a positive integer id.
func Int64Param(request *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(chi.URLParam(request, name), 10, 64)
	if err != nil || value <= 0 {
		return 0, apperr.ValidationError("Validation failed", apperr.FieldError{Field: name, Message: "Must be a positive integer"})
	}
	return value, nil
}

/*
RequiredAdmin returns the administrator resolved by the admin access guard.

Returns:
  - *identity.Admin: The authenticated administrator
  - error: apperr.Unauthorized if the route is not guarded
*/
func RequiredAdmin(request *http.Request) (*identity.Admin, error) {
	admin := ctxutil.GetAdmin(request.Context())
	if admin == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return admin, nil
}

// RequiredUser returns the end-user resolved by the user access guard.
func RequiredUser(request *http.Request) (*identity.User, error) {
	user := ctxutil.GetUser(request.Context())
	if user == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return user, nil
}

// RequiredSessionID returns the session id resolved by the refresh guard.
func RequiredSessionID(request *http.Request) (string, error) {
	sessionID := ctxutil.GetSessionID(request.Context())
	if sessionID == "" {
		return "", apperr.Unauthorized("Refresh token required")
	}
	return sessionID, nil
}
