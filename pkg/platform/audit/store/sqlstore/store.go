// Package sqlstore persists the audit chain in a SQL table. Queries use $N
// placeholders and portable DDL so the same store runs on PostgreSQL (lib/pq)
// and SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	audit "regulus/pkg/platform/audit"
	"regulus/pkg/platform/sentinel"
	txcontext "regulus/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq         BIGINT PRIMARY KEY,
	entry_id    TEXT NOT NULL,
	ts_micros   BIGINT NOT NULL,
	actor_id    TEXT NOT NULL,
	actor_role  TEXT NOT NULL,
	action      TEXT NOT NULL,
	resource    TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	success     BOOLEAN NOT NULL,
	reason      TEXT NOT NULL,
	metadata    TEXT NOT NULL,
	hash        TEXT NOT NULL,
	prev_hash   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_ts ON audit_entries (ts_micros);
`

const selectColumns = `seq, entry_id, ts_micros, actor_id, actor_role, action,
	resource, resource_id, success, reason, metadata, hash, prev_hash`

// Store implements audit.Store over database/sql.
type Store struct {
	db *sql.DB
}

// New creates a SQL audit store. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate audit_entries: %w", err)
		}
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AppendBatch writes entries in one transaction, joining a transaction
// already carried by ctx. Duplicate sequences are ignored so a retried batch
// whose commit outcome was unknown is safe.
func (s *Store) AppendBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return insertAll(ctx, tx, entries)
	})
}

func insertAll(ctx context.Context, exec dbExecutor, entries []audit.Entry) error {
	query := `
		INSERT INTO audit_entries (
			seq, entry_id, ts_micros, actor_id, actor_role, action,
			resource, resource_id, success, reason, metadata, hash, prev_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (seq) DO NOTHING
	`
	for _, e := range entries {
		metadata := []byte("{}")
		if len(e.Metadata) > 0 {
			var err error
			metadata, err = json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("marshal audit metadata: %w", err)
			}
		}
		_, err := exec.ExecContext(ctx, query,
			int64(e.Sequence),
			e.ID,
			e.Timestamp.UTC().UnixMicro(),
			e.ActorID,
			e.ActorRole,
			string(e.Action),
			e.Resource,
			e.ResourceID,
			e.Success,
			e.Reason,
			string(metadata),
			e.Hash,
			e.PrevHash,
		)
		if err != nil {
			return fmt.Errorf("insert audit entry %d: %w", e.Sequence, err)
		}
	}
	return nil
}

// Range returns entries in ascending sequence order.
func (s *Store) Range(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.FromSequence != 0 {
		add("seq >= $%d", int64(q.FromSequence))
	}
	if q.ToSequence != 0 {
		add("seq <= $%d", int64(q.ToSequence))
	}
	if !q.Start.IsZero() {
		add("ts_micros >= $%d", q.Start.UTC().UnixMicro())
	}
	if !q.End.IsZero() {
		add("ts_micros <= $%d", q.End.UTC().UnixMicro())
	}

	query := "SELECT " + selectColumns + " FROM audit_entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func (s *Store) Get(ctx context.Context, sequence uint64) (*audit.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM audit_entries WHERE seq = $1", int64(sequence))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return e, err
}

func (s *Store) Head(ctx context.Context) (*audit.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM audit_entries ORDER BY seq DESC LIMIT 1")
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*audit.Entry, error) {
	var (
		e        audit.Entry
		seq      int64
		micros   int64
		action   string
		metadata string
	)
	err := sc.Scan(
		&seq,
		&e.ID,
		&micros,
		&e.ActorID,
		&e.ActorRole,
		&action,
		&e.Resource,
		&e.ResourceID,
		&e.Success,
		&e.Reason,
		&metadata,
		&e.Hash,
		&e.PrevHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	e.Sequence = uint64(seq)
	e.Timestamp = time.UnixMicro(micros).UTC()
	e.Action = audit.Action(action)
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata: %w", err)
		}
	}
	return &e, nil
}
