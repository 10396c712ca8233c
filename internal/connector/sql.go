package connector

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"datagate/internal/source"
)

// ── Relational connector ────────────────────────────────────
// Runs ad-hoc SQL against a file-backed SQLite database. Each call
// opens its own connection and closes it before returning, on success
// and on failure alike: no pooling, no reuse, full isolation between
// invocations at the cost of paying open+close per query.

// Query executes queryText verbatim against the descriptor's database
// file. The text is not parameterized, sanitized, or restricted in any
// way; the caller is trusted completely.
func Query(ctx context.Context, d source.Descriptor, queryText string) ([]map[string]any, error) {
	path := d.Path()
	// SQLite creates missing files on open, which would mask a source
	// whose file disappeared after registration.
	if _, err := os.Stat(path); err != nil {
		return nil, wrap("query", fmt.Errorf("open database: %w", err))
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrap("query", fmt.Errorf("open database: %w", err))
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx, queryText)
	if err != nil {
		return nil, wrap("query", err)
	}
	defer rows.Close()

	out, err := rowsToMaps(rows)
	if err != nil {
		return nil, wrap("query", err)
	}
	return out, nil
}

// rowsToMaps scans every row into a name → value map, normalizing
// driver types for JSON rendering ([]byte to string, times to RFC 3339).
func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = formatValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

// formatValue converts a driver value into something JSON-friendly.
func formatValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
