package database

import (
	"context"
	"database/sql"
	"fmt"
)

// ScanRepository persists completed scan sessions.
type ScanRepository struct {
	db *sql.DB
}

// NewScanRepository creates a scan history repository.
func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Record inserts one finished scan session.
func (r *ScanRepository) Record(ctx context.Context, rec *ScanRecord) error {
	query := `
		INSERT INTO scan_history (session_id, root, status, file_count, skipped_count, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.SessionID, rec.Root, string(rec.Status),
		rec.FileCount, rec.SkippedCount, rec.ErrorMessage,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record scan %s: %w", rec.SessionID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// Recent returns the newest scan records, most recent first.
func (r *ScanRepository) Recent(ctx context.Context, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, session_id, root, status, file_count, skipped_count, error_message, started_at, finished_at
		FROM scan_history
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan history: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Root, &status,
			&rec.FileCount, &rec.SkippedCount, &rec.ErrorMessage,
			&rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.Status = ScanStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan history: %w", err)
	}
	return out, nil
}

// LastCompleted returns the most recent completed scan, or nil when none
// exists.
func (r *ScanRepository) LastCompleted(ctx context.Context) (*ScanRecord, error) {
	query := `
		SELECT id, session_id, root, status, file_count, skipped_count, error_message, started_at, finished_at
		FROM scan_history
		WHERE status = 'completed'
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`
	var rec ScanRecord
	var status string
	err := r.db.QueryRowContext(ctx, query).Scan(&rec.ID, &rec.SessionID, &rec.Root, &status,
		&rec.FileCount, &rec.SkippedCount, &rec.ErrorMessage,
		&rec.StartedAt, &rec.FinishedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last completed scan: %w", err)
	}
	rec.Status = ScanStatus(status)
	return &rec, nil
}

// Prune keeps the newest keep records and deletes the rest.
func (r *ScanRepository) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	query := `
		DELETE FROM scan_history
		WHERE id NOT IN (
			SELECT id FROM scan_history ORDER BY started_at DESC, id DESC LIMIT ?
		)
	`
	if _, err := r.db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("failed to prune scan history: %w", err)
	}
	return nil
}
