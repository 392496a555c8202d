// Package sqlstore persists workflow instances in a SQL table. Like the
// audit store it uses $N placeholders and portable DDL so it runs on
// PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"regulus/internal/workflow/models"
	"regulus/pkg/platform/sentinel"
	txcontext "regulus/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS workflow_instances (
	workflow_id   TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	status        TEXT NOT NULL,
	current_step  INTEGER NOT NULL,
	total_steps   INTEGER NOT NULL,
	metadata      TEXT NOT NULL,
	created_by    TEXT NOT NULL,
	created_at    BIGINT NOT NULL,
	updated_at    BIGINT NOT NULL,
	last_step     TEXT NOT NULL,
	pending_step  TEXT NOT NULL,
	version       BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workflow_instances_status ON workflow_instances (status, created_at);
`

const selectColumns = `workflow_id, type, status, current_step, total_steps, metadata,
	created_by, created_at, updated_at, last_step, pending_step, version`

// Store implements workflow.Store over database/sql.
type Store struct {
	db *sql.DB
}

// New creates a SQL workflow store. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate workflow_instances: %w", err)
		}
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) executor(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Create(ctx context.Context, inst *models.Instance) error {
	metadata, err := encodeMetadata(inst.Metadata)
	if err != nil {
		return err
	}
	exec := s.executor(ctx)

	var exists int
	err = exec.QueryRowContext(ctx,
		"SELECT 1 FROM workflow_instances WHERE workflow_id = $1", inst.ID).Scan(&exists)
	if err == nil {
		return sentinel.ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check workflow %s: %w", inst.ID, err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO workflow_instances (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		inst.ID,
		string(inst.Type),
		string(inst.Status),
		inst.CurrentStepIndex,
		inst.TotalSteps,
		metadata,
		inst.CreatedBy,
		inst.CreatedAt.UTC().UnixMicro(),
		inst.UpdatedAt.UTC().UnixMicro(),
		inst.LastStep,
		inst.PendingStep,
		inst.Version,
	)
	if err != nil {
		return fmt.Errorf("insert workflow %s: %w", inst.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Instance, error) {
	row := s.executor(ctx).QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM workflow_instances WHERE workflow_id = $1", id)
	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return inst, err
}

// Update is a compare-and-set on version.
func (s *Store) Update(ctx context.Context, inst *models.Instance, expectedVersion int64) error {
	metadata, err := encodeMetadata(inst.Metadata)
	if err != nil {
		return err
	}
	exec := s.executor(ctx)
	res, err := exec.ExecContext(ctx, `
		UPDATE workflow_instances
		SET status = $1, current_step = $2, metadata = $3, updated_at = $4,
			last_step = $5, pending_step = $6, version = $7
		WHERE workflow_id = $8 AND version = $9
	`,
		string(inst.Status),
		inst.CurrentStepIndex,
		metadata,
		inst.UpdatedAt.UTC().UnixMicro(),
		inst.LastStep,
		inst.PendingStep,
		inst.Version,
		inst.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update workflow %s: %w", inst.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workflow %s: %w", inst.ID, err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = exec.QueryRowContext(ctx,
		"SELECT 1 FROM workflow_instances WHERE workflow_id = $1", inst.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check workflow %s: %w", inst.ID, err)
	}
	return sentinel.ErrConflict
}

func (s *Store) List(ctx context.Context, filter models.ListFilter) ([]*models.Instance, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		where = append(where, fmt.Sprintf("created_by = $%d", len(args)))
	}
	query := "SELECT " + selectColumns + " FROM workflow_instances"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, workflow_id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Instance, 0)
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	return out, nil
}

func encodeMetadata(md models.Metadata) (string, error) {
	if len(md) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("marshal workflow metadata: %w", err)
	}
	return string(raw), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstance(sc scanner) (*models.Instance, error) {
	var (
		inst      models.Instance
		typ       string
		status    string
		metadata  string
		createdAt int64
		updatedAt int64
	)
	err := sc.Scan(
		&inst.ID,
		&typ,
		&status,
		&inst.CurrentStepIndex,
		&inst.TotalSteps,
		&metadata,
		&inst.CreatedBy,
		&createdAt,
		&updatedAt,
		&inst.LastStep,
		&inst.PendingStep,
		&inst.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan workflow: %w", err)
	}
	inst.Type = models.Type(typ)
	inst.Status = models.Status(status)
	inst.CreatedAt = time.UnixMicro(createdAt).UTC()
	inst.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	inst.Metadata = models.Metadata{}
	if err := json.Unmarshal([]byte(metadata), &inst.Metadata); err != nil {
		return nil, fmt.Errorf("decode workflow metadata: %w", err)
	}
	return &inst, nil
}
