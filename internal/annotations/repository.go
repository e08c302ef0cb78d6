package annotations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heimdex/crucible/internal/reconcile"
)

// Record is one stored export line.
type Record struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Folder    string    `json:"folder"`
	Frames    []int     `json:"frames"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Record) FrameRecord() reconcile.FrameRecord {
	return reconcile.FrameRecord{Folder: r.Folder, Frames: r.Frames}
}

type Repository interface {
	// ReplaceAll swaps every record from source for records in one transaction.
	ReplaceAll(ctx context.Context, source string, records []reconcile.FrameRecord) (int, error)
	Insert(ctx context.Context, source string, rec reconcile.FrameRecord) (int64, error)
	List(ctx context.Context) ([]*Record, error)
	// ListWithFramesAtMost returns records holding at least one frame <= total.
	ListWithFramesAtMost(ctx context.Context, total int) ([]*Record, error)
	Count(ctx context.Context) (int, error)
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, source string, records []reconcile.FrameRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM annotations WHERE source = ?", source); err != nil {
		return 0, fmt.Errorf("clear source %s: %w", source, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO annotations (source, folder, frames, created_at) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	createdAt := r.now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		frames, err := encodeFrames(rec.Frames)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, source, rec.Folder, frames, createdAt); err != nil {
			return 0, fmt.Errorf("insert %s: %w", rec.Folder, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(records), nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, source string, rec reconcile.FrameRecord) (int64, error) {
	frames, err := encodeFrames(rec.Frames)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO annotations (source, folder, frames, created_at) VALUES (?, ?, ?, ?)
	`, source, rec.Folder, frames, r.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, folder, frames, created_at FROM annotations ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *SQLiteRepository) ListWithFramesAtMost(ctx context.Context, total int) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, folder, frames, created_at FROM annotations
		WHERE EXISTS (SELECT 1 FROM json_each(annotations.frames) WHERE json_each.value <= ?)
		ORDER BY id
	`, total)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM annotations").Scan(&count)
	return count, err
}

func scanRecords(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		var rec Record
		var frames, createdAt string
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Folder, &frames, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(frames), &rec.Frames); err != nil {
			return nil, fmt.Errorf("record %d frames: %w", rec.ID, err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func encodeFrames(frames []int) (string, error) {
	if frames == nil {
		frames = []int{}
	}
	b, err := json.Marshal(frames)
	if err != nil {
		return "", fmt.Errorf("encode frames: %w", err)
	}
	return string(b), nil
}

// FrameRecords converts stored records for the aggregator.
func FrameRecords(records []*Record) []reconcile.FrameRecord {
	out := make([]reconcile.FrameRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.FrameRecord())
	}
	return out
}
