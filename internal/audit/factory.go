package audit

import (
	"fmt"
	"strings"
)

// DefaultSQLitePath is used when the DSN is empty.
const DefaultSQLitePath = "data/audit.db"

// NewStore opens an audit store based on the DSN.
// - Empty DSN: SQLite at data/audit.db
// - postgres:// or postgresql://: PostgreSQL
// - Anything else: SQLite at the specified path
func NewStore(dsn string) (Store, error) {
	if dsn == "" {
		return NewSQLiteStore(DefaultSQLitePath)
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	}

	return NewSQLiteStore(dsn)
}
