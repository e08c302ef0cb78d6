package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListPendingRuns(ctx context.Context) ([]*Run, error)
	UpdateRunStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateRunProgress(ctx context.Context, id string, progress int) error
	// UpdateRunResult records what a finished pipeline produced.
	UpdateRunResult(ctx context.Context, id, workOrder, outputPath, edlPath string, rangeCount int) error
	// FailInterruptedRuns fails every run still marked running. Only call it
	// while holding the data directory lock.
	FailInterruptedRuns(ctx context.Context) (int64, error)

	ReplaceRanges(ctx context.Context, runID string, ranges []StoredRange) error
	ListRanges(ctx context.Context, runID string) ([]StoredRange, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const runColumns = `id, status, work_order, manifest_path, video_path, output_path, edl_path,
	include_isolated, upload, progress, range_count, error, created_at, updated_at`

// timestamps written by SQLite itself use the same layout as time.RFC3339 in UTC
const nowSQL = `strftime('%Y-%m-%dT%H:%M:%SZ','now')`

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Status, nullString(run.WorkOrder), run.ManifestPath, run.VideoPath,
		nullString(run.OutputPath), nullString(run.EDLPath),
		boolToInt(run.IncludeIsolated), boolToInt(run.Upload),
		run.Progress, run.RangeCount, nullString(run.Error),
		run.CreatedAt.UTC().Format(time.RFC3339), run.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (r *SQLiteRepository) ListPendingRuns(ctx context.Context) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var workOrder, outputPath, edlPath, errMsg sql.NullString
	var isolated, upload int
	var createdAt, updatedAt string

	err := row.Scan(&run.ID, &run.Status, &workOrder, &run.ManifestPath, &run.VideoPath,
		&outputPath, &edlPath, &isolated, &upload, &run.Progress, &run.RangeCount,
		&errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	run.WorkOrder = workOrder.String
	run.OutputPath = outputPath.String
	run.EDLPath = edlPath.String
	run.Error = errMsg.String
	run.IncludeIsolated = isolated == 1
	run.Upload = upload == 1
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &run, nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRepository) FailInterruptedRuns(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, updated_at = `+nowSQL+` WHERE status = ?
	`, RunStatusFailed, ErrInterrupted.Error(), RunStatusRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) UpdateRunStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, updated_at = `+nowSQL+` WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) UpdateRunProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET progress = ?, updated_at = `+nowSQL+` WHERE id = ?
	`, progress, id)
	return err
}

func (r *SQLiteRepository) UpdateRunResult(ctx context.Context, id, workOrder, outputPath, edlPath string, rangeCount int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET work_order = ?, output_path = ?, edl_path = ?, range_count = ?, updated_at = `+nowSQL+`
		WHERE id = ?
	`, nullString(workOrder), nullString(outputPath), nullString(edlPath), rangeCount, id)
	return err
}

func (r *SQLiteRepository) ReplaceRanges(ctx context.Context, runID string, ranges []StoredRange) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM ranges WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clear ranges: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ranges (run_id, position, location, start_frame, end_frame,
			start_timecode, end_timecode, sampled_frame, thumbnail_path, clip_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rg := range ranges {
		if _, err := stmt.ExecContext(ctx, runID, i, rg.Location, rg.StartFrame, rg.EndFrame,
			rg.StartTimecode, rg.EndTimecode, rg.SampledFrame,
			nullString(rg.ThumbnailPath), nullString(rg.ClipPath)); err != nil {
			return fmt.Errorf("insert range %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListRanges(ctx context.Context, runID string) ([]StoredRange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, position, location, start_frame, end_frame, start_timecode, end_timecode,
			sampled_frame, thumbnail_path, clip_path
		FROM ranges WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredRange
	for rows.Next() {
		var s StoredRange
		var thumb, clip sql.NullString
		if err := rows.Scan(&s.RunID, &s.Position, &s.Location, &s.StartFrame, &s.EndFrame,
			&s.StartTimecode, &s.EndTimecode, &s.SampledFrame, &thumb, &clip); err != nil {
			return nil, err
		}
		s.ThumbnailPath = thumb.String
		s.ClipPath = clip.String
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
