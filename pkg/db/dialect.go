package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/flyerpoint/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect picks the GORM driver for cfg.DBType. All connections run in UTC
// so visit days and withdrawal timestamps are stored without offsets.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	switch normalizedType(cfg) {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// DSN renders the connection string for the configured database.
func DSN(cfg config.Config) (string, error) {
	switch normalizedType(cfg) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName), nil
	case "postgres":
		sslMode := cfg.DBSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, sslMode), nil
	case "sqlite":
		if cfg.DBName == "" {
			return "", fmt.Errorf("sqlite requires a database name")
		}
		if strings.HasSuffix(cfg.DBName, ".db") || strings.HasPrefix(cfg.DBName, "file:") {
			return cfg.DBName, nil
		}
		return cfg.DBName + ".db", nil
	default:
		return "", fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}

func normalizedType(cfg config.Config) string {
	switch t := strings.ToLower(strings.TrimSpace(cfg.DBType)); t {
	case "postgresql", "pg":
		return "postgres"
	default:
		return t
	}
}

// SupportsRowLocking reports whether SELECT ... FOR UPDATE is honored by the
// connected dialect. SQLite serializes writers instead.
func SupportsRowLocking(db *gorm.DB) bool {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return true
	default:
		return false
	}
}
