package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hospital-queue/internal/models"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

const Table = "queue_control_logs"

// SQLSink stores audit entries in queue_control_logs. Rows are only ever
// inserted.
type SQLSink struct {
	db      *sql.DB
	gq      *goqu.Database
	dialect string
}

// NewSQLSink accepts dialect "mysql" or "postgres".
func NewSQLSink(db *sql.DB, dialect string) (*SQLSink, error) {
	switch dialect {
	case "mysql", "postgres":
	default:
		return nil, fmt.Errorf("audit: unsupported sql dialect %q", dialect)
	}
	return &SQLSink{db: db, gq: goqu.New(dialect, db), dialect: dialect}, nil
}

func (s *SQLSink) Append(ctx context.Context, e models.QueueControlLog) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}

	record := goqu.Record{
		"log_id":     e.LogID,
		"queue_id":   e.QueueID,
		"staff_id":   e.StaffID,
		"action":     string(e.Action),
		"details":    string(details),
		"created_at": e.Timestamp.UTC(),
	}

	query, args, err := s.gq.Insert(Table).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByQueue returns the newest entries first.
func (s *SQLSink) ListByQueue(ctx context.Context, queueID string, limit int) ([]models.QueueControlLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query, args, err := s.gq.From(Table).
		Select("log_id", "queue_id", "staff_id", "action", "details", "created_at").
		Where(goqu.C("queue_id").Eq(queueID)).
		Order(goqu.C("created_at").Desc(), goqu.C("log_id").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.QueueControlLog, 0, limit)
	for rows.Next() {
		var (
			e       models.QueueControlLog
			action  string
			details string
			at      time.Time
		)
		if err := rows.Scan(&e.LogID, &e.QueueID, &e.StaffID, &action, &details, &at); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = models.ControlAction(action)
		e.Timestamp = at.UTC()
		if details != "" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details for %s: %w", e.LogID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Schema is the DDL for the audit table in the given dialect.
func Schema(dialect string) string {
	if dialect == "postgres" {
		return `CREATE TABLE IF NOT EXISTS queue_control_logs (
	log_id     VARCHAR(64) PRIMARY KEY,
	queue_id   VARCHAR(200) NOT NULL,
	staff_id   VARCHAR(64) NOT NULL,
	action     VARCHAR(32) NOT NULL,
	details    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queue_control_logs_queue ON queue_control_logs (queue_id, created_at)`
	}
	return `CREATE TABLE IF NOT EXISTS queue_control_logs (
	log_id     VARCHAR(64) PRIMARY KEY,
	queue_id   VARCHAR(200) NOT NULL,
	staff_id   VARCHAR(64) NOT NULL,
	action     VARCHAR(32) NOT NULL,
	details    JSON NOT NULL,
	created_at DATETIME(6) NOT NULL,
	INDEX idx_queue_control_logs_queue (queue_id, created_at)
)`
}

// EnsureSchema creates the audit table when it is missing.
func (s *SQLSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema(s.dialect)); err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}
	return nil
}
