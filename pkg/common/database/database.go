package database

import (
	"fmt"
	"strings"
	"sync"

	"github.com/synaptica-ai/clinextract/pkg/common/config"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db     *gorm.DB
	dbErr  error
	dbOnce sync.Once
)

// PostgresDSN renders the keyword/value connection string for cfg.
func PostgresDSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		cfg.PostgresPort,
		cfg.PostgresSSLMode,
	)
}

// Open connects with the named gorm driver: "postgres" or "sqlite".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return conn, nil
}

// Get returns the process-wide connection described by cfg.
func Get(cfg *config.Config) (*gorm.DB, error) {
	dbOnce.Do(func() {
		dsn := cfg.SQLitePath
		if !strings.HasPrefix(strings.ToLower(cfg.DatabaseDriver), "sqlite") {
			dsn = PostgresDSN(cfg)
		}
		db, dbErr = Open(cfg.DatabaseDriver, dsn)
		if dbErr != nil {
			logger.Log.WithError(dbErr).WithField("driver", cfg.DatabaseDriver).Error("failed to connect to database")
			return
		}
		logger.Log.WithField("driver", cfg.DatabaseDriver).Info("connected to database")
	})
	return db, dbErr
}

func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
