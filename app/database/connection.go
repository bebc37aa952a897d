package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"EOrders/app/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// buildDSN constructs the postgres connection string.
// Priority: DATABASE_URL > storage.dsn > individual storage fields
func buildDSN(cfg config.StorageConfig) string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Open connects to the configured backend and migrates the blob table.
// dataDir anchors a relative sqlite path.
func Open(cfg config.StorageConfig, dataDir string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "", "sqlite":
		path := config.ResolvePath(dataDir, cfg.Path)
		if path == "" {
			path = filepath.Join(dataDir, "eorders.db")
		}
		// Create directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dialector = sqlite.Open(path)
	case "postgres":
		dialector = postgres.Open(buildDSN(cfg))
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}

	conn, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.Driver == "postgres" {
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	if err := RunMigrations(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return conn, nil
}

// Initialize opens the configured database and keeps it as the process-wide instance
func Initialize(cfg config.StorageConfig, dataDir string) error {
	conn, err := Open(cfg, dataDir)
	if err != nil {
		return err
	}
	db = conn
	return nil
}

// RunMigrations creates the blob table
func RunMigrations(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&KVBlob{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	return sqlDB.Close()
}
