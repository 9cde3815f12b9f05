package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"securerag/internal/audit/migrations"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := runMigration(db, migrations.Postgres, "postgres/001_init.sql"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	findings, err := marshalFindings(e.Findings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queries (id, timestamp, question, source_count, findings, elapsed_ms, status, error)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`,
		e.ID, e.Timestamp, e.Question, e.Sources, findings, e.ElapsedMs, e.Status, e.Error,
	)
	if err != nil {
		return fmt.Errorf("insert query: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, timestamp, question, source_count, findings::text, elapsed_ms, status, error
		FROM queries ORDER BY timestamp DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	return scanEntries(rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
