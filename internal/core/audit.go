package core

// audit.go records every composition in a PostgreSQL audit trail. The
// trail requires the pgx pool; when the service runs without one the
// auditor is nil and recording is skipped.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditKind labels the operation that produced a workbook.
type AuditKind string

const (
	KindCompose AuditKind = "compose"
	KindBatch   AuditKind = "batch"
	KindFill    AuditKind = "fill"
	KindReport  AuditKind = "report"
)

// AuditEntry is one recorded composition.
type AuditEntry struct {
	ID         string    `json:"id"`
	Kind       AuditKind `json:"kind"`
	Name       string    `json:"name"`
	Template   string    `json:"template,omitempty"`
	Sheets     int       `json:"sheets"`
	Cells      int       `json:"cells"`
	Bytes      int       `json:"bytes"`
	DurationMS int64     `json:"duration_ms"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS composition_audit (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	name        TEXT NOT NULL,
	template    TEXT NOT NULL DEFAULT '',
	sheets      INTEGER NOT NULL DEFAULT 0,
	cells       INTEGER NOT NULL DEFAULT 0,
	bytes       INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	outcome     TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	client_ip   TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS composition_audit_created_at_idx
	ON composition_audit (created_at);
`

// Auditor writes and reads the composition audit trail.
type Auditor struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewAuditor wraps the pool. Call EnsureSchema once at startup before
// recording.
func NewAuditor(pool *pgxpool.Pool, log *slog.Logger) *Auditor {
	if log == nil {
		log = slog.Default()
	}
	return &Auditor{pool: pool, log: log}
}

// EnsureSchema creates the audit table when it does not exist yet.
func (a *Auditor) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Record inserts one entry. Failures are logged, not propagated: a
// composition that already succeeded is not failed retroactively over
// bookkeeping.
func (a *Auditor) Record(ctx context.Context, entry AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO composition_audit
			(id, kind, name, template, sheets, cells, bytes, duration_ms, outcome, error, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID, string(entry.Kind), entry.Name, entry.Template,
		entry.Sheets, entry.Cells, entry.Bytes, entry.DurationMS,
		entry.Outcome, entry.Error, entry.ClientIP, entry.UserAgent, entry.CreatedAt,
	)
	if err != nil {
		a.log.Warn("audit record failed", "kind", entry.Kind, "name", entry.Name, "error", err)
	}
}

// List returns the most recent entries, newest first. limit is clamped to
// [1, 500].
func (a *Auditor) List(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := a.pool.Query(ctx, `
		SELECT id, kind, name, template, sheets, cells, bytes, duration_ms, outcome, error, client_ip, user_agent, created_at
		FROM composition_audit
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Name, &e.Template, &e.Sheets, &e.Cells,
			&e.Bytes, &e.DurationMS, &e.Outcome, &e.Error, &e.ClientIP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Kind = AuditKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the retention window and returns how
// many were removed.
func (a *Auditor) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	tag, err := a.pool.Exec(ctx,
		`DELETE FROM composition_audit WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
