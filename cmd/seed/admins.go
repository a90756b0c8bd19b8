// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/apperr"
	pgstore "github.com/taibuivan/stella/internal/platform/postgres"
	"github.com/taibuivan/stella/internal/platform/sec"
	"github.com/taibuivan/stella/internal/platform/validate"
)

/*
adminsCreate inserts an active administrator with no social link; the first
social login backfills it.
*/
func adminsCreate(c *cli.Context) error {
	input := identity.Admin{
		Email:      strings.ToLower(strings.TrimSpace(c.String(flagEmail))),
		FullName:   strings.TrimSpace(c.String(flagName)),
		Role:       sec.AdminRole(strings.ToUpper(c.String(flagRole))),
		SocialType: identity.SocialTypeLocal,
		IsActive:   true,
	}
	if input.FullName == "" {
		input.FullName = input.Email
	}

	validator := &validate.Validator{}
	validator.
		Required(identity.FieldEmail, input.Email).
		Email(identity.FieldEmail, input.Email).
		OneOf(flagRole, string(input.Role), string(sec.RoleSuperAdmin), string(sec.RoleAdmin))

	if err := validator.Err(); err != nil {
		return describe(err)
	}

	repository, closer, err := adminRepository(c)
	if err != nil {
		return err
	}
	defer closer()

	if err := repository.Create(c.Context, &input); err != nil {
		return describe(err)
	}

	fmt.Fprintf(c.App.Writer, "Administrator %q created with id %d and role %s.\n", input.Email, input.ID, input.Role)
	return nil
}

func adminsList(c *cli.Context) error {
	repository, closer, err := adminRepository(c)
	if err != nil {
		return err
	}
	defer closer()

	admins, err := repository.List(c.Context)
	if err != nil {
		return err
	}

	if len(admins) == 0 {
		fmt.Fprintln(c.App.Writer, "No administrators found.")
		return nil
	}

	fmt.Fprintf(c.App.Writer, "%-6s %-32s %-12s %s\n", "ID", "EMAIL", "ROLE", "ACTIVE")
	for _, admin := range admins {
		fmt.Fprintf(c.App.Writer, "%-6d %-32s %-12s %t\n", admin.ID, admin.Email, admin.Role, admin.IsActive)
	}
	return nil
}

func adminRepository(c *cli.Context) (*identity.PostgresAdminRepository, func(), error) {
	dsn, err := databaseURL(c)
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgstore.NewPool(c.Context, dsn, logger(c))
	if err != nil {
		return nil, nil, err
	}

	return identity.NewAdminRepository(pool), pool.Close, nil
}

// describe flattens validation details into one line for the terminal.
func describe(err error) error {
	appError := apperr.As(err)
	if appError == nil {
		return err
	}

	message := appError.Message
	for _, detail := range appError.Details {
		message += fmt.Sprintf("; %s: %s", detail.Field, detail.Message)
	}
	return errors.New(message)
}
