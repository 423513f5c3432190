package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uturn/internal/domain/entities"
	"uturn/internal/logger"
	"uturn/internal/repository"
)

// Table names are fixed per kind and never come from user input.
var jobTables = map[entities.JobKind]string{
	entities.JobKindBooking: "bookings",
	entities.JobKindSolo:    "solo_rides",
}

type jobRepo struct {
	db    *pgxpool.Pool
	table string
	log   logger.Logger
}

// NewJobRepository returns the repository backing jobs of the given kind.
func NewJobRepository(db *pgxpool.Pool, kind entities.JobKind, log logger.Logger) (repository.JobRepository, error) {
	table, ok := jobTables[kind]
	if !ok {
		return nil, fmt.Errorf("no table for job kind %q", kind)
	}
	return &jobRepo{db: db, table: table, log: log.With(logger.String("table", table))}, nil
}

func (r *jobRepo) Put(ctx context.Context, job *entities.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	query := `
		INSERT INTO ` + r.table + ` (id, tracking_id, status, vendor_id, assigned_driver_id, scheduled_at, doc, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET tracking_id = EXCLUDED.tracking_id,
		    status = EXCLUDED.status,
		    vendor_id = EXCLUDED.vendor_id,
		    assigned_driver_id = EXCLUDED.assigned_driver_id,
		    scheduled_at = EXCLUDED.scheduled_at,
		    doc = EXCLUDED.doc,
		    updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.Exec(ctx, query,
		job.ID,
		job.TrackingID,
		string(job.Status),
		job.VendorID,
		job.AssignedDriverID,
		job.ScheduledAt,
		doc,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		r.log.Error("failed to put job", logger.String("job_id", job.ID), logger.Error(err))
		return err
	}
	return nil
}

func (r *jobRepo) Get(ctx context.Context, id string) (*entities.Job, error) {
	return r.getOne(ctx, r.db, `SELECT doc FROM `+r.table+` WHERE id = $1`, id)
}

func (r *jobRepo) GetByTrackingID(ctx context.Context, trackingID string) (*entities.Job, error) {
	return r.getOne(ctx, r.db, `SELECT doc FROM `+r.table+` WHERE tracking_id = $1`, trackingID)
}

// Update locks the row, applies the patch in Go, and writes the result back
// in the same transaction.
func (r *jobRepo) Update(ctx context.Context, id string, patch entities.JobPatch, now time.Time) (*entities.Job, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	job, err := r.getOne(ctx, tx, `SELECT doc FROM `+r.table+` WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	if err := job.Apply(patch, now); err != nil {
		return nil, err
	}

	doc, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	query := `
		UPDATE ` + r.table + `
		SET status = $2, assigned_driver_id = $3, doc = $4, updated_at = $5
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, id, string(job.Status), job.AssignedDriverID, doc, job.UpdatedAt); err != nil {
		r.log.Error("failed to update job", logger.String("job_id", id), logger.Error(err))
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

// IncrementWaitingTime is a single UPDATE so concurrent calls never lose an
// increment.
func (r *jobRepo) IncrementWaitingTime(ctx context.Context, id string, mins int, require entities.JobStatus, now time.Time) (*entities.Job, error) {
	stamp := now.UTC().Format(time.RFC3339Nano)
	query := `
		UPDATE ` + r.table + `
		SET doc = jsonb_set(
		        jsonb_set(doc, '{waiting_time_mins}',
		            to_jsonb(COALESCE((doc->>'waiting_time_mins')::int, 0) + $2::int)),
		        '{updated_at}', to_jsonb($3::text)),
		    updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING doc
	`
	var doc []byte
	err := r.db.QueryRow(ctx, query, id, mins, stamp, now.UTC(), string(require)).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: job %s is %s", entities.ErrStatusChanged, id, current.Status)
	}
	if err != nil {
		r.log.Error("failed to increment waiting time", logger.String("job_id", id), logger.Error(err))
		return nil, err
	}
	return decodeJob(doc)
}

func (r *jobRepo) Scan(ctx context.Context, filter repository.JobFilter) ([]*entities.Job, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.AssignedDriverID != "" {
		args = append(args, filter.AssignedDriverID)
		where = append(where, fmt.Sprintf("assigned_driver_id = $%d", len(args)))
	}
	if filter.VendorID != "" {
		args = append(args, filter.VendorID)
		where = append(where, fmt.Sprintf("vendor_id = $%d", len(args)))
	}

	query := `SELECT doc FROM ` + r.table
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY scheduled_at, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to scan jobs", logger.Error(err))
		return nil, err
	}
	defer rows.Close()

	var jobs []*entities.Job
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		job, err := decodeJob(doc)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *jobRepo) getOne(ctx context.Context, q querier, query string, arg string) (*entities.Job, error) {
	var doc []byte
	err := q.QueryRow(ctx, query, arg).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		r.log.Error("failed to get job", logger.Error(err))
		return nil, err
	}
	return decodeJob(doc)
}

func decodeJob(doc []byte) (*entities.Job, error) {
	var job entities.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}
