package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/payhuk02/payhula-sub010/internal/db"
	"github.com/payhuk02/payhula-sub010/internal/obs"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "console"), envOrDefault("OBS_LOG_LEVEL", "info")).
		With().Str("component", "migrate").Logger()

	dsn := flag.String("database", os.Getenv("DATABASE_URL"), "postgres connection url")
	flag.Parse()
	if *dsn == "" {
		logger.Fatal().Msg("DATABASE_URL or -database is required")
	}

	m, err := db.NewMigrator(*dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrator")
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := run(m, flag.Args(), logger); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
}

type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
}

func run(m migrator, args []string, logger zerolog.Logger) error {
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("down: invalid step count %q", args[1])
			}
			steps = n
		}
		return ignoreNoChange(m.Steps(-steps))
	case "force":
		if len(args) < 2 {
			return errors.New("force: version required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("force: invalid version %q", args[1])
		}
		return m.Force(v)
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info().Msg("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("current version")
		return nil
	default:
		return fmt.Errorf("unknown command %q (want up, down [n], force <version>, version)", cmd)
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
