package calls

import (
	"context"
	"database/sql"
	"time"

	"headset-bridge/pkg/utils"
)

// SQLRepo stores call history in Postgres through database/sql (pgx stdlib driver).
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

var schema = []string{
	`
CREATE TABLE IF NOT EXISTS call_history (
  id              UUID PRIMARY KEY,
  conversation_id TEXT NOT NULL,
  contact_name    TEXT NOT NULL DEFAULT '',
  vendor          TEXT NOT NULL DEFAULT '',
  answered        BOOLEAN NOT NULL,
  muted           BOOLEAN NOT NULL,
  end_reason      TEXT NOT NULL,
  started_at      TIMESTAMPTZ NOT NULL,
  ended_at        TIMESTAMPTZ NOT NULL
)
`,
	`CREATE INDEX IF NOT EXISTS call_history_ended_at_idx ON call_history (ended_at DESC)`,
}

// Migrate creates the table and index if they do not exist.
func (r *SQLRepo) Migrate(ctx context.Context) error {
	return utils.InTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLRepo) Insert(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO call_history (
  id, conversation_id, contact_name, vendor, answered, muted, end_reason, started_at, ended_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.ConversationID,
		rec.ContactName,
		rec.Vendor,
		rec.Answered,
		rec.Muted,
		string(rec.EndReason),
		rec.StartedAt,
		rec.EndedAt,
	)
	return err
}

const selectColumns = `SELECT id, conversation_id, contact_name, vendor, answered, muted, end_reason, started_at, ended_at
FROM call_history`

func (r *SQLRepo) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+`
ORDER BY ended_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (r *SQLRepo) Between(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+`
WHERE ended_at >= $1 AND ended_at < $2
ORDER BY ended_at ASC`, from, to)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var reason string
		if err := rows.Scan(
			&rec.ID,
			&rec.ConversationID,
			&rec.ContactName,
			&rec.Vendor,
			&rec.Answered,
			&rec.Muted,
			&reason,
			&rec.StartedAt,
			&rec.EndedAt,
		); err != nil {
			return nil, err
		}
		rec.EndReason = EndReason(reason)
		out = append(out, rec)
	}
	return out, rows.Err()
}
