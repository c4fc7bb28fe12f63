// Package postgres keeps an append-only log of delivered alerts.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/lib/pq"
)

// DefaultTable holds delivered alerts.
const DefaultTable = "space_weather_alerts"

// AlertStore persists alerts. It implements pipeline.AlertSink.
type AlertStore struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*AlertStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return NewAlertStore(db, DefaultTable, logger), nil
}

// NewAlertStore wraps an existing connection pool.
func NewAlertStore(db *sql.DB, table string, logger *slog.Logger) *AlertStore {
	return &AlertStore{db: db, table: table, logger: logger}
}

func (s *AlertStore) schemaSQL() string {
	t := pq.QuoteIdentifier(s.table)
	return `CREATE TABLE IF NOT EXISTS ` + t + ` (
	id          UUID PRIMARY KEY,
	reason      TEXT NOT NULL,
	eta_hours   DOUBLE PRECISION,
	severity    TEXT NOT NULL,
	source      TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ` + pq.QuoteIdentifier(s.table+"_occurred_at_idx") + ` ON ` + t + ` (occurred_at DESC);`
}

func (s *AlertStore) insertSQL() string {
	return `INSERT INTO ` + pq.QuoteIdentifier(s.table) + ` (id, reason, eta_hours, severity, source, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`
}

// EnsureSchema creates the alert table if it does not exist.
func (s *AlertStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.schemaSQL()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Name identifies this sink in logs and metrics.
func (s *AlertStore) Name() string {
	return "postgres"
}

// Publish inserts alerts in one transaction. Replayed alerts with a known ID
// are ignored.
func (s *AlertStore) Publish(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.insertSQL())
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, a := range alerts {
		res, err := stmt.ExecContext(ctx, a.ID, a.Reason, etaArg(a.EtaHours), a.Severity, a.Source, a.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("insert alert %s: %w", a.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit alerts: %w", err)
	}
	s.logger.Debug("alerts stored", "received", len(alerts), "inserted", inserted)
	return nil
}

// Recent returns up to limit alerts, newest first.
func (s *AlertStore) Recent(ctx context.Context, limit int) ([]domain.Alert, error) {
	q := `SELECT id, reason, eta_hours, severity, source, occurred_at FROM ` + pq.QuoteIdentifier(s.table) +
		` ORDER BY occurred_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var eta sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.Reason, &eta, &a.Severity, &a.Source, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if eta.Valid {
			a.EtaHours = &eta.Float64
		}
		a.Timestamp = a.Timestamp.UTC()
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// CheckReadiness pings the database.
func (s *AlertStore) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

func (s *AlertStore) Close() error {
	return s.db.Close()
}

func etaArg(eta *float64) sql.NullFloat64 {
	if eta == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *eta, Valid: true}
}
