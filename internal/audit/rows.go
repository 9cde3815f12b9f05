package audit

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
)

func runMigration(db *sql.DB, fs embed.FS, name string) error {
	data, err := fs.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Exec(string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

func marshalFindings(findings []string) (string, error) {
	if findings == nil {
		findings = []string{}
	}
	data, err := json.Marshal(findings)
	if err != nil {
		return "", fmt.Errorf("marshal findings: %w", err)
	}
	return string(data), nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var findingsJSON string
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Question, &e.Sources, &findingsJSON,
			&e.ElapsedMs, &e.Status, &e.Error,
		); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		if err := json.Unmarshal([]byte(findingsJSON), &e.Findings); err != nil {
			return nil, fmt.Errorf("unmarshal findings: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
