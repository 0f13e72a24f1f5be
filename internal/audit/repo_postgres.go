package audit

import (
	"context"
	"database/sql"
	"fmt"

	"call-screening/pkg/utils"
)

// Schema for the handoff_events table. The trigger rejects UPDATE and DELETE
// so the trail stays append-only even for ad-hoc SQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS handoff_events (
		id         UUID PRIMARY KEY,
		call_id    TEXT NOT NULL,
		type       TEXT NOT NULL,
		message    TEXT NOT NULL DEFAULT '',
		metadata   JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS handoff_events_call_id_idx ON handoff_events (call_id, created_at)`,
	`CREATE OR REPLACE FUNCTION handoff_events_immutable() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'handoff_events is append-only';
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS handoff_events_no_mutation ON handoff_events`,
	`CREATE TRIGGER handoff_events_no_mutation BEFORE UPDATE OR DELETE ON handoff_events
		FOR EACH ROW EXECUTE FUNCTION handoff_events_immutable()`,
}

// PostgresRepo stores events in Postgres through database/sql (pgx stdlib driver).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureSchema creates the table, index and immutability trigger when missing.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if err := utils.ExecStatements(ctx, r.db, schema...); err != nil {
		return fmt.Errorf("audit: ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO handoff_events (id, call_id, type, message, metadata, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, '')::jsonb, $6)`,
		e.ID, e.CallID, string(e.Type), e.Message, e.Metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, call_id, type, message, metadata::text, created_at
		 FROM handoff_events WHERE call_id = $1 ORDER BY created_at, id`,
		callID,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: list events: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var (
			e        Event
			typ      string
			metadata sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.CallID, &typ, &e.Message, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.Type = EventType(typ)
		e.Metadata = metadata.String
		out = append(out, e)
	}
	return out, rows.Err()
}
