package core

// datasource.go resolves table query sources into ordered row mappings.
// Two backends cover the configured drivers: a pgx pool for PostgreSQL and
// database/sql for MySQL (and PostgreSQL via lib/pq when preferred). A
// best-effort denylist rejects obviously mutating SQL before anything
// reaches a driver.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RowSource executes a read query and returns its rows as ordered
// column→value mappings, preserving both row order and column order.
type RowSource interface {
	Query(ctx context.Context, query string, params []any) ([]Row, error)
}

// queryDenylist are token patterns rejected by CheckQuerySafety. This is a
// denylist, not a SQL parser; the database user's privileges are the real
// boundary.
var queryDenylist = []string{
	";drop", ";delete", ";truncate", ";alter", ";create", ";insert", ";update",
	"union select", "exec(", "script>",
}

// CheckQuerySafety rejects statements that do not read rows (a SELECT, or
// a WITH chain of common table expressions feeding one) or that contain a
// denylisted token sequence. Best effort only.
func CheckQuerySafety(query string) error {
	normalized := strings.ToLower(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(normalized, "select"):
	case strings.HasPrefix(normalized, "with") && strings.Contains(normalized, "select"):
	default:
		return fmt.Errorf("only SELECT statements are allowed")
	}

	compact := strings.Join(strings.Fields(normalized), " ")
	for _, token := range queryDenylist {
		if strings.Contains(strings.ReplaceAll(compact, "; ", ";"), token) {
			return fmt.Errorf("query contains a forbidden pattern %q", token)
		}
	}
	return nil
}

// PoolSource runs queries on a pgx connection pool.
type PoolSource struct {
	pool *pgxpool.Pool
}

func NewPoolSource(pool *pgxpool.Pool) *PoolSource {
	return &PoolSource{pool: pool}
}

func (s *PoolSource) Query(ctx context.Context, query string, params []any) ([]Row, error) {
	if err := CheckQuerySafety(query); err != nil {
		return nil, &QueryError{Stage: "safety", Err: err}
	}

	rows, err := s.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, &QueryError{Stage: "execute", Err: err}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &QueryError{Stage: "scan", Err: err}
		}
		out = append(out, NewRow(columns, normalizeValues(values)))
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Stage: "scan", Err: err}
	}
	return out, nil
}

// SQLSource runs queries through database/sql, covering the mysql and
// postgres drivers configured at startup.
type SQLSource struct {
	db *sql.DB
}

func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

func (s *SQLSource) Query(ctx context.Context, query string, params []any) ([]Row, error) {
	if err := CheckQuerySafety(query); err != nil {
		return nil, &QueryError{Stage: "safety", Err: err}
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &QueryError{Stage: "execute", Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Stage: "scan", Err: err}
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Stage: "scan", Err: err}
		}
		out = append(out, NewRow(columns, normalizeValues(values)))
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Stage: "scan", Err: err}
	}
	return out, nil
}

// normalizeValues rewrites driver-specific raw values into plain ones:
// the mysql driver hands back []byte for text columns.
func normalizeValues(values []any) []any {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values
}
