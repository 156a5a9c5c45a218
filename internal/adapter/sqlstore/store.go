// Package sqlstore keeps reports in a relational table through database/sql,
// with SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq) dialects.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/civic-report-service/internal/domain"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures the few differences between the supported databases.
type Dialect struct {
	Name   string
	Driver string
	Schema string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

var (
	SQLite = Dialect{
		Name:   "sqlite",
		Driver: "sqlite",
		Schema: `CREATE TABLE IF NOT EXISTS civic_report (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id  INTEGER NOT NULL UNIQUE,
	issue_type TEXT    NOT NULL,
	payload    TEXT    NOT NULL,
	created_at DATETIME NOT NULL
)`,
		Placeholder: func(int) string { return "?" },
	}

	Postgres = Dialect{
		Name:   "postgres",
		Driver: "postgres",
		Schema: `CREATE TABLE IF NOT EXISTS civic_report (
	seq        BIGSERIAL PRIMARY KEY,
	report_id  BIGINT      NOT NULL UNIQUE,
	issue_type TEXT        NOT NULL,
	payload    TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`,
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// Store is a report table ordered by insertion sequence.
type Store struct {
	db        *sql.DB
	dialect   Dialect
	insertSQL string
	logger    *slog.Logger
}

// Open connects to dsn with the dialect's driver and ensures the schema exists.
func Open(ctx context.Context, dialect Dialect, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
	}
	s, err := New(ctx, db, dialect, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database handle and ensures the schema exists.
func New(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) (*Store, error) {
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return nil, fmt.Errorf("create civic_report table: %w", err)
	}
	p := dialect.Placeholder
	insert := fmt.Sprintf(
		"INSERT INTO civic_report (report_id, issue_type, payload, created_at) VALUES (%s)",
		strings.Join([]string{p(1), p(2), p(3), p(4)}, ", "),
	)
	return &Store{db: db, dialect: dialect, insertSQL: insert, logger: logger}, nil
}

// LoadAll returns every stored report in insertion order. Rows whose payload
// cannot be decoded are logged and left out.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT seq, payload FROM civic_report ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := []domain.Report{}
	for rows.Next() {
		var (
			seq     int64
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var r domain.Report
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			s.logger.Warn("skipping undecodable report row", "seq", seq, "error", err)
			continue
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// Append inserts r as the newest row.
func (s *Store) Append(ctx context.Context, r domain.Report) (domain.Report, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return domain.Report{}, fmt.Errorf("encode report: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.insertSQL, r.ID, string(r.Type), string(payload), domain.Now().UTC()); err != nil {
		return domain.Report{}, fmt.Errorf("insert report %d: %w", r.ID, err)
	}
	return r, nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
