// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithAdmin returns a new context carrying the authenticated administrator.
func WithAdmin(ctx context.Context, admin *identity.Admin) context.Context {
	recordPrincipal(ctx, slog.Int64("admin_id", admin.ID))
	return context.WithValue(ctx, ctxkey.KeyAdmin, admin)
}

// GetAdmin retrieves the authenticated administrator, or nil.
func GetAdmin(ctx context.Context) *identity.Admin {
	admin, _ := ctx.Value(ctxkey.KeyAdmin).(*identity.Admin)
	return admin
}

// WithUser returns a new context carrying the authenticated end-user.
func WithUser(ctx context.Context, user *identity.User) context.Context {
	recordPrincipal(ctx, slog.Int64("user_id", user.ID))
	return context.WithValue(ctx, ctxkey.KeyUser, user)
}

// GetUser retrieves the authenticated end-user, or nil.
func GetUser(ctx context.Context) *identity.User {
	user, _ := ctx.Value(ctxkey.KeyUser).(*identity.User)
	return user
}

// WithSessionID returns a new context carrying a session id that was
// resolved from a validated refresh token.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, sessionID)
}

// GetSessionID retrieves the refresh-token session id, or "".
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeySession).(string)
	return id
}

// # Log Correlation

// PrincipalAttr returns the log attribute identifying the authenticated
// principal of ctx, if any.
func PrincipalAttr(ctx context.Context) (slog.Attr, bool) {
	if admin := GetAdmin(ctx); admin != nil {
		return slog.Int64("admin_id", admin.ID), true
	}
	if user := GetUser(ctx); user != nil {
		return slog.Int64("user_id", user.ID), true
	}
	return slog.Attr{}, false
}

// WithPrincipalSlot returns a context carrying an empty slot that [WithAdmin]
// and [WithUser] fill in. The access logger wraps the whole handler chain and
// reads the slot after the guard has run further down.
func WithPrincipalSlot(ctx context.Context) (context.Context, *slog.Attr) {
	slot := &slog.Attr{}
	return context.WithValue(ctx, ctxkey.KeyPrincipalSlot, slot), slot
}

func recordPrincipal(ctx context.Context, attr slog.Attr) {
	if slot, ok := ctx.Value(ctxkey.KeyPrincipalSlot).(*slog.Attr); ok && slot != nil {
		*slot = attr
	}
}
