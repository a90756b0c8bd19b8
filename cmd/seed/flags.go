// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const (
	flagDatabaseURL   = "database-url"
	flagDebug         = "debug"
	flagEmail         = "email"
	flagEnvFile       = "env-file"
	flagMigrationPath = "migration-path"
	flagName          = "name"
	flagRole          = "role"
	flagSteps         = "steps"
)

// loadEnvFile populates the environment from the dotenv file before flags
// fall back to their environment variables.
func loadEnvFile(c *cli.Context) error {
	path := c.String(flagEnvFile)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading %s: %w", path, err)
	}

	// Flags were resolved before the file was read
	if c.String(flagDatabaseURL) == "" {
		if value := os.Getenv("DATABASE_URL"); value != "" {
			return c.Set(flagDatabaseURL, value)
		}
	}
	return nil
}

func databaseURL(c *cli.Context) (string, error) {
	dsn := c.String(flagDatabaseURL)
	if dsn == "" {
		return "", errors.New("a database URL is required (--database-url or DATABASE_URL)")
	}
	return dsn, nil
}

func logger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool(flagDebug) {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(writerOrStderr(c.App.ErrWriter), &slog.HandlerOptions{Level: level}))
}

func writerOrStderr(writer io.Writer) io.Writer {
	if writer == nil {
		return os.Stderr
	}
	return writer
}
