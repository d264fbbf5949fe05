package db

import (
	"errors"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// migrationsEnabled reports whether MIGRATIONS requests the golang-migrate
// SQL path instead of AutoMigrate.
func migrationsEnabled() bool {
	switch strings.ToLower(os.Getenv("MIGRATIONS")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// RunMigrations executes the SQL migrations in ./migrations against the
// configured DSN. ConnectAndMigrate calls it when MIGRATIONS is set; it can
// also run on its own from a migration job.
func RunMigrations() error {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return errors.New("DATABASE_DSN is empty, check environment configuration")
	}
	if IsSQLite(dsn) {
		return errors.New("sql migrations require a postgres DSN; sqlite uses AutoMigrate")
	}
	log.Info().Msg("running sql migrations")
	return runSQLMigrations(dsn)
}
