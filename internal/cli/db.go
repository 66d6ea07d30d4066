package cli

import (
	"context"
	"database/sql"

	"hospital-queue/internal/config"
)

func dbFor(ctx context.Context, cfg config.App) (*sql.DB, error) {
	if cfg.AuditDriver == "" || cfg.AuditDriver == "log" {
		return nil, nil
	}
	return config.NewDB(ctx, cfg.AuditDriver, cfg.DatabaseDSN)
}
