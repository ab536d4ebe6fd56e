package audit

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kimchiprasadyadav-beep/callharvey/pkg/utils"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS console_audit_events (
	id           UUID PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	operator_id  TEXT NOT NULL DEFAULT '',
	type         TEXT NOT NULL,
	target       TEXT NOT NULL DEFAULT '',
	outcome      TEXT NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
)`, `
CREATE INDEX IF NOT EXISTS console_audit_events_workspace_created
	ON console_audit_events (workspace_id, created_at DESC)`,
}

const insertEvent = `
INSERT INTO console_audit_events (id, workspace_id, operator_id, type, target, outcome, message, created_at)
VALUES (:id, :workspace_id, :operator_id, :type, :target, :outcome, :message, :created_at)`

const selectRecent = `
SELECT id, workspace_id, operator_id, type, target, outcome, message, created_at
FROM console_audit_events
WHERE workspace_id = $1
ORDER BY created_at DESC
LIMIT $2`

// PostgresRepo stores events in console_audit_events.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// EnsureSchema creates the table and index when missing, in one transaction.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("audit: ensure schema: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	if _, err := r.db.NamedExecContext(ctx, insertEvent, e); err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// Recent returns the newest events for a workspace.
func (r *PostgresRepo) Recent(ctx context.Context, workspaceID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []Event
	if err := r.db.SelectContext(ctx, &out, selectRecent, workspaceID, limit); err != nil {
		return nil, fmt.Errorf("audit: select events: %w", err)
	}
	return out, nil
}
