package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/postline/internal/domain/schedule/entity"
)

// EntryPostgres implements EntryRepository for PostgreSQL
type EntryPostgres struct {
	pool *pgxpool.Pool
}

var _ EntryRepository = (*EntryPostgres)(nil)

// NewEntryPostgres creates a new PostgreSQL schedule entry repository
func NewEntryPostgres(pool *pgxpool.Pool) *EntryPostgres {
	return &EntryPostgres{pool: pool}
}

// EnsureSchema creates the schedule_entries table if it does not exist
func (r *EntryPostgres) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schedule_entries (
			id         TEXT PRIMARY KEY,
			draft_id   TEXT NOT NULL,
			channels   TEXT[] NOT NULL,
			publish_at TIMESTAMPTZ NOT NULL,
			status     TEXT NOT NULL,
			error      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_schedule_entries_due
			ON schedule_entries (publish_at) WHERE status = 'scheduled';
	`

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("creating schedule_entries schema: %w", err)
	}
	return nil
}

// Create inserts a new schedule entry
func (r *EntryPostgres) Create(ctx context.Context, e *entity.Entry) error {
	query := `
		INSERT INTO schedule_entries (id, draft_id, channels, publish_at, status, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.DraftID,
		e.Channels,
		e.PublishAt,
		e.Status,
		e.Error,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting schedule entry: %w", err)
	}

	return nil
}

// GetByID retrieves an entry by id
func (r *EntryPostgres) GetByID(ctx context.Context, id string) (*entity.Entry, error) {
	query := `
		SELECT id, draft_id, channels, publish_at, status, error, created_at, updated_at
		FROM schedule_entries
		WHERE id = $1
	`

	e, err := scanEntry(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning schedule entry: %w", err)
	}
	return e, nil
}

// GetDue returns all scheduled entries with publish_at <= now
func (r *EntryPostgres) GetDue(ctx context.Context, now time.Time) ([]entity.Entry, error) {
	query := `
		SELECT id, draft_id, channels, publish_at, status, error, created_at, updated_at
		FROM schedule_entries
		WHERE status = $1 AND publish_at <= $2
	`
	return r.queryEntries(ctx, query, entity.EntryStatusScheduled, now)
}

// ListPending returns all entries still in the scheduled status
func (r *EntryPostgres) ListPending(ctx context.Context) ([]entity.Entry, error) {
	query := `
		SELECT id, draft_id, channels, publish_at, status, error, created_at, updated_at
		FROM schedule_entries
		WHERE status = $1
		ORDER BY publish_at
	`
	return r.queryEntries(ctx, query, entity.EntryStatusScheduled)
}

// Transition moves an entry out of scheduled exactly once. The WHERE
// guard makes repeated calls no-ops.
func (r *EntryPostgres) Transition(ctx context.Context, id string, to entity.EntryStatus, errMsg string) (bool, error) {
	query := `
		UPDATE schedule_entries
		SET status = $2, error = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`

	tag, err := r.pool.Exec(ctx, query, id, to, errMsg, time.Now().UTC(), entity.EntryStatusScheduled)
	if err != nil {
		return false, fmt.Errorf("transitioning schedule entry: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "already resolved" from "no such entry".
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, entity.ErrEntryNotFound
	}
	return false, nil
}

// DeleteResolvedBefore removes terminal entries older than the cutoff
func (r *EntryPostgres) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM schedule_entries
		WHERE status <> $1 AND publish_at < $2
	`

	tag, err := r.pool.Exec(ctx, query, entity.EntryStatusScheduled, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting resolved schedule entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *EntryPostgres) queryEntries(ctx context.Context, query string, args ...any) ([]entity.Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying schedule entries: %w", err)
	}
	defer rows.Close()

	var entries []entity.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*entity.Entry, error) {
	var e entity.Entry
	var errMsg *string

	err := row.Scan(
		&e.ID,
		&e.DraftID,
		&e.Channels,
		&e.PublishAt,
		&e.Status,
		&errMsg,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		e.Error = *errMsg
	}
	return &e, nil
}
