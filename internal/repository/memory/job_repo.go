package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"uturn/internal/domain/entities"
	"uturn/internal/repository"
)

// JobRepository stores one job table in memory. Every read and write copies
// the job so callers can never mutate stored state without going through
// Update.
type JobRepository struct {
	mu         sync.RWMutex
	jobs       map[string]*entities.Job
	byTracking map[string]string
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs:       make(map[string]*entities.Job),
		byTracking: make(map[string]string),
	}
}

func (r *JobRepository) Put(ctx context.Context, job *entities.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = job.Clone()
	if job.TrackingID != "" {
		r.byTracking[job.TrackingID] = job.ID
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*entities.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, exists := r.jobs[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return job.Clone(), nil
}

func (r *JobRepository) GetByTrackingID(ctx context.Context, trackingID string) (*entities.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byTracking[trackingID]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return r.jobs[id].Clone(), nil
}

// Update holds the table lock across check and write, which is what makes
// JobPatch.Require a real compare-and-set.
func (r *JobRepository) Update(ctx context.Context, id string, patch entities.JobPatch, now time.Time) (*entities.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	next := job.Clone()
	if err := next.Apply(patch, now); err != nil {
		return nil, err
	}
	r.jobs[id] = next
	return next.Clone(), nil
}

func (r *JobRepository) IncrementWaitingTime(ctx context.Context, id string, mins int, require entities.JobStatus, now time.Time) (*entities.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	if job.Status != require {
		return nil, fmt.Errorf("%w: job %s is %s", entities.ErrStatusChanged, id, job.Status)
	}
	job.WaitingTimeMins += mins
	job.UpdatedAt = now.UTC()
	return job.Clone(), nil
}

// Scan returns matching jobs ordered by scheduled time, then id.
func (r *JobRepository) Scan(ctx context.Context, filter repository.JobFilter) ([]*entities.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.Job
	for _, job := range r.jobs {
		if filter.Match(job) {
			out = append(out, job.Clone())
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].ScheduledAt.Equal(out[k].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[k].ScheduledAt)
		}
		return out[i].ID < out[k].ID
	})
	return out, nil
}
