// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines typed context keys used by middleware and handlers.
//
// # Safety
//
// Using a private, unexported type for keys prevents collisions with third-party
// packages that might also use context for storage.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyAdmin is the context key for the authenticated administrator.
	KeyAdmin key = "admin"

	// KeyUser is the context key for the authenticated end-user.
	KeyUser key = "user"

	// KeySession is the context key for a session id resolved from a refresh token.
	KeySession key = "session"

	// KeyLogger is the context key for the per-request [*log/slog.Logger].
	KeyLogger key = "logger"

	// KeyPrincipalSlot is the context key for the access-log principal slot.
	KeyPrincipalSlot key = "principal_slot"
)
