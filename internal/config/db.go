package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// DB is the audit database. It stays nil when AUDIT_DRIVER is log.
var DB *sql.DB

// NewDB opens the audit database for driver mysql or postgres. MySQL DSNs
// need parseTime=true so created_at scans into time.Time.
func NewDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is required for driver %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func InitDB(cfg App) {
	if cfg.AuditDriver == "log" || cfg.AuditDriver == "" {
		return
	}
	db, err := NewDB(context.Background(), cfg.AuditDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("audit database unavailable")
	}
	DB = db
	log.Info().Str("driver", cfg.AuditDriver).Msg("audit database connected")
}

func CloseDB() {
	if DB != nil {
		_ = DB.Close()
	}
}
