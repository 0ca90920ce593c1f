package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/cassiomorais/summitpay/internal/infrastructure/config"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
)

const defaultMigrationsPath = "internal/repository/postgres/migrations"

// migration is the subset of *migrate.Migrate the commands use.
type migration interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

type options struct {
	direction string
	steps     int
	force     int
	dbURL     string
	path      string
}

func main() {
	logger := observability.InitLogger("summitpay-migrate", "info", observability.LogOutput(observability.LogFormatConsole, os.Stderr))

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid arguments")
	}

	if opts.dbURL == "" {
		cfg, err := config.Load()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load config")
		}
		opts.dbURL = cfg.Database.MigrationURL()
	}

	m, err := migrate.New("file://"+opts.path, opts.dbURL)
	if err != nil {
		logger.Fatal().Err(err).Str("path", opts.path).Msg("Failed to create migrate instance")
	}
	defer m.Close()

	if err := run(m, opts, logger); err != nil {
		logger.Error().Err(err).Str("direction", opts.direction).Msg("Migration failed")
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.direction, "direction", "up", "Command: up, down, steps, force or version")
	fs.IntVar(&opts.steps, "n", 0, "Number of migrations for steps; negative rolls back")
	fs.IntVar(&opts.force, "v", -1, "Version to record for force")
	fs.StringVar(&opts.dbURL, "db", "", "Database URL (or set DATABASE_URL env var)")
	fs.StringVar(&opts.path, "path", defaultMigrationsPath, "Path to migration files")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.dbURL == "" {
		opts.dbURL = os.Getenv("DATABASE_URL")
	}
	switch opts.direction {
	case "up", "down", "version":
	case "steps":
		if opts.steps == 0 {
			return opts, errors.New("steps needs a non-zero -n")
		}
	case "force":
		if opts.force < 0 {
			return opts, errors.New("force needs -v")
		}
	default:
		return opts, fmt.Errorf("unknown direction %q", opts.direction)
	}
	return opts, nil
}

func run(m migration, opts options, logger zerolog.Logger) error {
	var err error
	switch opts.direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(opts.steps)
	case "force":
		err = m.Force(opts.force)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			logger.Info().Msg("No migrations applied")
			return nil
		}
		if verr != nil {
			return verr
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current schema version")
		return nil
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info().Msg("Schema already up to date")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info().Str("direction", opts.direction).Msg("Migrations applied successfully")
	return nil
}
