// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command seed is the operator tool for schema migrations and administrator
// bootstrapping.
//
// Administrators can only sign in with a social provider when their email is
// already on file, so the first SUPER_ADMIN must be created here.
//
//	seed migrate up
//	seed migrate down --steps 1
//	seed admins create --email ops@stella.app --name "Ops" --role SUPER_ADMIN
//	seed admins list
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/taibuivan/stella/internal/platform/constants"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "\n%s\n\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "seed"
	app.Usage = "Manage the Stella authentication database"
	app.Version = constants.AppVersion
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    flagDatabaseURL,
			Usage:   "PostgreSQL connection URL",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    flagEnvFile,
			Usage:   "Optional dotenv file loaded before reading the environment",
			EnvVars: []string{"ENV_FILE"},
			Value:   ".env",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "Enable debug logging",
		},
	}
	app.Before = loadEnvFile
	app.Commands = []*cli.Command{
		{
			Name:  "migrate",
			Usage: "Apply or roll back schema migrations",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagMigrationPath,
					Usage:   "Directory holding the SQL migrations",
					EnvVars: []string{"MIGRATION_PATH"},
					Value:   "./data/migrations",
				},
			},
			Subcommands: []*cli.Command{
				{
					Name:   "up",
					Usage:  "Apply every pending migration",
					Action: migrateUp,
				},
				{
					Name:  "down",
					Usage: "Roll back applied migrations",
					Flags: []cli.Flag{
						&cli.IntFlag{
							Name:  flagSteps,
							Usage: "Number of migrations to roll back",
							Value: 1,
						},
					},
					Action: migrateDown,
				},
			},
		},
		{
			Name:  "admins",
			Usage: "Manage back-office administrators",
			Subcommands: []*cli.Command{
				{
					Name:  "create",
					Usage: "Add an administrator to the sign-in allow-list",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:     flagEmail,
							Aliases:  []string{"e"},
							Usage:    "Email the administrator signs in with",
							Required: true,
						},
						&cli.StringFlag{
							Name:    flagName,
							Aliases: []string{"n"},
							Usage:   "Full name",
						},
						&cli.StringFlag{
							Name:    flagRole,
							Aliases: []string{"r"},
							Usage:   "SUPER_ADMIN or ADMIN",
							Value:   "ADMIN",
						},
					},
					Action: adminsCreate,
				},
				{
					Name:   "list",
					Usage:  "List administrators",
					Action: adminsList,
				},
			},
		},
	}
	return app
}
