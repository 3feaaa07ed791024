package dao

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vadim/postline/internal/domain/draft/entity"
)

// BackupSQLite implements BackupRepository on a SQLite database. Each
// draft is stored as a single JSON document keyed by id, mirroring the
// one-file-per-draft layout of the backup directory it replaces.
type BackupSQLite struct {
	db *sql.DB
}

var _ BackupRepository = (*BackupSQLite)(nil)

// NewBackupSQLite creates the repository and ensures the schema exists.
func NewBackupSQLite(db *sql.DB) (*BackupSQLite, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS draft_backups (
			id         TEXT PRIMARY KEY,
			doc        TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating draft_backups table: %w", err)
	}
	return &BackupSQLite{db: db}, nil
}

// Save writes or replaces the backup record for a draft.
func (r *BackupSQLite) Save(ctx context.Context, draft *entity.Draft) error {
	doc, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encoding draft %s: %w", draft.ID, err)
	}

	query := `
		INSERT INTO draft_backups (id, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, draft.ID, string(doc), time.Now().UTC()); err != nil {
		return fmt.Errorf("saving draft backup %s: %w", draft.ID, err)
	}
	return nil
}

// Load retrieves the backup for a draft id, or (nil, nil) when absent.
func (r *BackupSQLite) Load(ctx context.Context, id string) (*entity.Draft, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, "SELECT doc FROM draft_backups WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading draft backup %s: %w", id, err)
	}

	var draft entity.Draft
	if err := json.Unmarshal([]byte(doc), &draft); err != nil {
		return nil, fmt.Errorf("decoding draft backup %s: %w", id, err)
	}
	return &draft, nil
}

// Delete removes the backup record for a draft id.
func (r *BackupSQLite) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM draft_backups WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting draft backup %s: %w", id, err)
	}
	return nil
}
