package db

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/noptechs/lease-app/internal/models"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/phuslu/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database selected by the DSN (sqlite for file: URIs and
// .db paths, postgres otherwise), retrying postgres connections a few times
// since the database may still be starting.
func Connect(dsn string) (*gorm.DB, error) {
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	// TranslateError lets callers match unique violations via gorm.ErrDuplicatedKey
	// regardless of driver.
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel), TranslateError: true}

	if IsSQLite(dsn) {
		return gorm.Open(sqlite.Open(dsn), cfg)
	}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Msg("retrying DB connection")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	return db, nil
}

// ConnectAndMigrate connects using DATABASE_DSN and brings the schema up to
// date. With MIGRATIONS=1 the SQL migrations in ./migrations run via
// golang-migrate (postgres only); otherwise AutoMigrate is used as the dev
// convenience path.
func ConnectAndMigrate() (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check environment configuration")
	}
	db, err := Connect(dsn)
	if err != nil {
		return nil, err
	}

	// Basic connectivity test
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// Log masked DSN once for diagnostics (before migrations for visibility)
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	log.Info().Str("dsn", masked).Msg("database connected")

	if migrationsEnabled() {
		if err := RunMigrations(); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"company_settings", "leases", "lease_payments"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	// Seeding only when explicitly requested (e.g. development) via DB_SEED=1|true
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		Seed(db)
	}
	return db, nil
}

// AutoMigrate migrates every model in dependency order.
func AutoMigrate(db *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.CompanySettings{}, &models.Lease{}, &models.LeasePayment{}, &models.ReceiptAttachment{}, &models.AuditLog{},
	}
	for _, m := range modelsToMigrate {
		if migErr := db.AutoMigrate(m); migErr != nil {
			return fmt.Errorf("automigrate %T: %w", m, migErr)
		}
	}
	return nil
}

// Seed creates the single company settings row if none exists.
func Seed(db *gorm.DB) {
	var existing models.CompanySettings
	if err := db.First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		cs := models.CompanySettings{
			Name:            strings.TrimSpace(orDefault(os.Getenv("COMPANY_NAME"), "Default Company")),
			DefaultCurrency: orDefault(os.Getenv("COMPANY_CURRENCY"), "USD"),
			Timezone:        orDefault(os.Getenv("COMPANY_TZ"), "UTC"),
		}
		if err := db.Create(&cs).Error; err != nil {
			log.Warn().Err(err).Msg("seeding company settings failed")
		}
	}
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
