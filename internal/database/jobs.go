package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/pipeline"
)

// ErrJobNotFound is returned by GetJob for unknown ids.
var ErrJobNotFound = errors.New("job not found")

const (
	// DefaultListLimit is used when ListJobs is called without a limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single ListJobs page.
	MaxListLimit = 200
)

const jobColumns = `id, url, quality, dub, segment, status, stage, title, filename,
	suffixes, fallback, size, error, started_at, finished_at`

// RecordJob stores rec, replacing any earlier record with the same id.
func (d *Database) RecordJob(ctx context.Context, rec pipeline.Record) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("record_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO jobs (`+jobColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.URL,
		rec.Quality,
		rec.Dub,
		rec.Segment,
		string(rec.Status),
		string(rec.Stage),
		rec.Title,
		rec.Filename,
		strings.Join(rec.Suffixes, ","),
		rec.Fallback,
		rec.Size,
		rec.Error,
		rec.StartedAt.UnixMilli(),
		rec.FinishedAt.UnixMilli(),
	)
	return err
}

// JobFinished implements pipeline.Observer. Ledger failures never fail a job.
func (d *Database) JobFinished(ctx context.Context, rec pipeline.Record) {
	if err := d.RecordJob(ctx, rec); err != nil {
		logging.Warn("Failed to record job %s in ledger: %v", rec.ID, err)
	}
}

// GetJob returns the record for id, or ErrJobNotFound.
func (d *Database) GetJob(ctx context.Context, id string) (*pipeline.Record, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_job", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	var rec *pipeline.Record
	rec, err = scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return rec, nil
}

// ListOptions filters and pages ListJobs.
type ListOptions struct {
	Status pipeline.Status
	Limit  int
	Offset int
}

// ListJobs returns jobs newest first.
func (d *Database) ListJobs(ctx context.Context, opts ListOptions) ([]pipeline.Record, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_jobs", start, err) }()

	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []interface{}
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY started_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	jobs := []pipeline.Record{}
	for rows.Next() {
		var rec *pipeline.Record
		rec, err = scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *rec)
	}
	err = rows.Err()
	return jobs, err
}

// HasArtifact reports whether a finished job produced a file named filename.
func (d *Database) HasArtifact(ctx context.Context, filename string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("has_artifact", start, err) }()

	if filename == "" {
		return false, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var one int
	err = d.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE filename = ? LIMIT 1`, filename).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return false, nil
	}
	return err == nil, err
}

// CountByStatus returns the number of recorded jobs per status.
func (d *Database) CountByStatus(ctx context.Context) (map[string]int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_jobs", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err = rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	err = rows.Err()
	return counts, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(s scanner) (*pipeline.Record, error) {
	var (
		rec        pipeline.Record
		status     string
		stage      string
		suffixes   string
		startedAt  int64
		finishedAt int64
	)
	err := s.Scan(
		&rec.ID, &rec.URL, &rec.Quality, &rec.Dub, &rec.Segment,
		&status, &stage, &rec.Title, &rec.Filename,
		&suffixes, &rec.Fallback, &rec.Size, &rec.Error,
		&startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = pipeline.Status(status)
	rec.Stage = pipeline.Stage(stage)
	rec.Suffixes = lo.Compact(strings.Split(suffixes, ","))
	rec.StartedAt = time.UnixMilli(startedAt).UTC()
	rec.FinishedAt = time.UnixMilli(finishedAt).UTC()
	return &rec, nil
}
