// Package main applies or rolls back schema migrations.
//
// Usage:
//
//	migrate up
//	migrate down
//	migrate steps -2
//	migrate force 3
//	migrate version
package main

import (
	"fmt"
	"os"
	"strconv"

	"bizzplus/internal/config"
	"bizzplus/internal/infrastructure/storage/postgres"
	"bizzplus/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Database.URL == "" {
		log.Fatal("database.url is required")
	}

	m, err := postgres.NewMigrator(cfg.Database.URL, log)
	if err != nil {
		log.Fatalw("failed to open migrator", "error", err)
	}
	defer func() { _ = m.Close() }()

	if err := run(m, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalw("migration failed", "command", os.Args[1], "error", err)
	}
}

func run(m *postgres.Migrator, cmd string, args []string) error {
	switch cmd {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	}
	usage()
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one integer argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", args[0], err)
	}
	return n, nil
}

func usage() {
	fmt.Println("usage: migrate up | down | steps N | force V | version")
	os.Exit(2)
}
