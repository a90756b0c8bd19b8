// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/taibuivan/stella/internal/platform/migration"
)

func migrateUp(c *cli.Context) error {
	dsn, err := databaseURL(c)
	if err != nil {
		return err
	}

	if err := migration.Up(dsn, c.String(flagMigrationPath), logger(c)); err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, "Migrations applied.")
	return nil
}

func migrateDown(c *cli.Context) error {
	dsn, err := databaseURL(c)
	if err != nil {
		return err
	}

	steps := c.Int(flagSteps)
	if steps <= 0 {
		return fmt.Errorf("--%s must be positive", flagSteps)
	}

	if err := migration.Down(dsn, c.String(flagMigrationPath), steps, logger(c)); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Rolled back %d migration(s).\n", steps)
	return nil
}
