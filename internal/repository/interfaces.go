// Package repository declares the storage contracts the services depend on.
// Implementations live in the memory and postgres subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"uturn/internal/domain/entities"
)

// ErrNotFound is returned by every repository when the key does not exist.
var ErrNotFound = errors.New("not found")

// JobFilter selects jobs in Scan. Zero fields match everything.
type JobFilter struct {
	Statuses         []entities.JobStatus
	AssignedDriverID string
	VendorID         string
}

// Match reports whether j satisfies the filter.
func (f JobFilter) Match(j *entities.Job) bool {
	if f.AssignedDriverID != "" && j.AssignedDriverID != f.AssignedDriverID {
		return false
	}
	if f.VendorID != "" && j.VendorID != f.VendorID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if j.Status == s {
			return true
		}
	}
	return false
}

// JobRepository is one job table (bookings or solo rides). Returned jobs are
// copies; callers never share memory with the store.
type JobRepository interface {
	Put(ctx context.Context, job *entities.Job) error
	Get(ctx context.Context, id string) (*entities.Job, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*entities.Job, error)
	// Update applies patch atomically with respect to other writers and
	// returns the stored result. Precondition and transition failures come
	// back wrapped from entities.Job.Apply.
	Update(ctx context.Context, id string, patch entities.JobPatch, now time.Time) (*entities.Job, error)
	// IncrementWaitingTime adds mins to the waiting counter without a
	// read-modify-write, only while the job is in status require.
	IncrementWaitingTime(ctx context.Context, id string, mins int, require entities.JobStatus, now time.Time) (*entities.Job, error)
	Scan(ctx context.Context, filter JobFilter) ([]*entities.Job, error)
}

type DriverRepository interface {
	Put(ctx context.Context, driver *entities.Driver) error
	Get(ctx context.Context, id string) (*entities.Driver, error)
	SetStatus(ctx context.Context, id string, status entities.DriverStatus) error
}

type LockManager interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	IsLocked(ctx context.Context, key string) (bool, error)
}
