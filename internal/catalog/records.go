package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Status is the terminal state of a packaging run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one packaging run as stored in the catalog.
type Record struct {
	ID              int64
	RunID           string
	SourcePath      string
	Title           string
	Slug            string
	OutputDir       string
	Status          Status
	RungsExpected   int
	RungsPackaged   int
	ThumbnailStatus string
	ThumbnailCause  string
	DurationSeconds float64
	ElapsedSeconds  float64
	ErrorMessage    string
	UploadLocation  string
	CreatedAt       time.Time
}

const recordColumns = "id, run_id, source_path, title, slug, output_dir, status, rungs_expected, rungs_packaged, thumbnail_status, thumbnail_cause, duration_seconds, elapsed_seconds, error_message, upload_location, created_at"

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec             Record
		statusStr       string
		thumbnailStatus sql.NullString
		thumbnailCause  sql.NullString
		errorMessage    sql.NullString
		uploadLocation  sql.NullString
		createdRaw      string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.SourcePath,
		&rec.Title,
		&rec.Slug,
		&rec.OutputDir,
		&statusStr,
		&rec.RungsExpected,
		&rec.RungsPackaged,
		&thumbnailStatus,
		&thumbnailCause,
		&rec.DurationSeconds,
		&rec.ElapsedSeconds,
		&errorMessage,
		&uploadLocation,
		&createdRaw,
	); err != nil {
		return Record{}, err
	}
	rec.Status = Status(statusStr)
	rec.ThumbnailStatus = thumbnailStatus.String
	rec.ThumbnailCause = thumbnailCause.String
	rec.ErrorMessage = errorMessage.String
	rec.UploadLocation = uploadLocation.String
	if parsed, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		rec.CreatedAt = parsed
	}
	return rec, nil
}

// Insert stores a finished run and fills in ID and CreatedAt.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            run_id, source_path, title, slug, output_dir, status,
            rungs_expected, rungs_packaged, thumbnail_status, thumbnail_cause,
            duration_seconds, elapsed_seconds, error_message, upload_location,
            created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.SourcePath,
		rec.Title,
		rec.Slug,
		rec.OutputDir,
		string(rec.Status),
		rec.RungsExpected,
		rec.RungsPackaged,
		nullableString(rec.ThumbnailStatus),
		nullableString(rec.ThumbnailCause),
		rec.DurationSeconds,
		rec.ElapsedSeconds,
		nullableString(rec.ErrorMessage),
		nullableString(rec.UploadLocation),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = now
	return nil
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryRecords(ctx,
		fmt.Sprintf("SELECT %s FROM runs ORDER BY id DESC LIMIT ?", recordColumns), limit)
}

// BySource returns the runs for one source path, most recent first.
func (s *Store) BySource(ctx context.Context, sourcePath string) ([]Record, error) {
	return s.queryRecords(ctx,
		fmt.Sprintf("SELECT %s FROM runs WHERE source_path = ? ORDER BY id DESC", recordColumns), sourcePath)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

// Summary aggregates catalog counts for the status command.
type Summary struct {
	Total     int
	Completed int
	Failed    int
}

// Summarize counts runs by terminal status.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM runs GROUP BY status")
	if err != nil {
		return Summary{}, fmt.Errorf("summarize runs: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}
