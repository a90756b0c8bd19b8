// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// SQLSTATE classification uses the named codes from 'jackc/pgerrcode' so no
// magic strings like "23505" leak into repositories.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/stella/internal/platform/apperr"
)

// # Classification

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, pgerrcode.UniqueViolation)
}

// IsSerializationConflict reports whether err is a transient transaction
// conflict that the whole operation may be retried after.
func IsSerializationConflict(err error) bool {
	return hasCode(err, pgerrcode.SerializationFailure) || hasCode(err, pgerrcode.DeadlockDetected)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// # Mapping

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// resource names the entity for not-found messages.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	switch {
	case IsNoRows(err):
		return apperr.NotFound(resource)
	case IsUniqueViolation(err):
		return apperr.Conflict(resource + " already exists").WithCause(err)
	case IsSerializationConflict(err):
		return apperr.Retryable(err)
	default:
		return apperr.Internal(err)
	}
}
