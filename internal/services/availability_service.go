package services

import (
	"context"
	"fmt"
	"time"

	"uturn/internal/config"
	"uturn/internal/domain/entities"
	"uturn/internal/logger"
	"uturn/internal/repository"
)

// AvailabilityService decides whether a driver may take new work. Two checks
// exist side by side: an immediate "already committed to a booking" check
// and a scheduling check that compares time windows across both job tables.
type AvailabilityService struct {
	repos Repositories
	locks repository.LockManager
	cfg   config.SchedulingConfig
	log   logger.Logger
}

func NewAvailabilityService(repos Repositories, locks repository.LockManager, cfg config.SchedulingConfig, log logger.Logger) *AvailabilityService {
	return &AvailabilityService{repos: repos, locks: locks, cfg: cfg, log: log}
}

// EligibleDriver loads the driver and checks they are active.
func (s *AvailabilityService) EligibleDriver(ctx context.Context, driverID string) (*entities.Driver, error) {
	driver, err := s.repos.Drivers.Get(ctx, driverID)
	if err != nil {
		return nil, translate(err, fmt.Errorf("%w: %s", ErrDriverNotFound, driverID))
	}
	if !driver.CanTakeWork() {
		return nil, fmt.Errorf("%w: driver %s is %s", ErrDriverBlocked, driverID, driver.Status)
	}
	return driver, nil
}

// HasActiveBooking reports whether the driver is assigned to a booking that
// is accepted, approved or under way.
func (s *AvailabilityService) HasActiveBooking(ctx context.Context, driverID string) (bool, error) {
	jobs, err := s.repos.Bookings.Scan(ctx, repository.JobFilter{
		AssignedDriverID: driverID,
		Statuses:         entities.ActiveStatuses,
	})
	if err != nil {
		return false, err
	}
	return len(jobs) > 0, nil
}

// CheckOverlap returns the first non-terminal job assigned to the driver, in
// either table, whose window intersects [start, end). excludeID skips the job
// being scheduled. It returns nil when there is no conflict.
func (s *AvailabilityService) CheckOverlap(ctx context.Context, driverID string, start, end time.Time, excludeID string) (*entities.Job, error) {
	jobs, err := s.driverJobs(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return s.conflictIn(jobs, start, end, excludeID), nil
}

// Window is the span a job occupies its driver for.
func (s *AvailabilityService) Window(j *entities.Job) (time.Time, time.Time) {
	return j.Window(s.cfg.DefaultJobDuration)
}

func (s *AvailabilityService) driverJobs(ctx context.Context, driverID string) ([]*entities.Job, error) {
	var out []*entities.Job
	for _, repo := range s.repos.all() {
		jobs, err := repo.Scan(ctx, repository.JobFilter{AssignedDriverID: driverID})
		if err != nil {
			return nil, err
		}
		out = append(out, jobs...)
	}
	return out, nil
}

func (s *AvailabilityService) conflictIn(jobs []*entities.Job, start, end time.Time, excludeID string) *entities.Job {
	for _, j := range jobs {
		if j.ID == excludeID || j.Status.Terminal() {
			continue
		}
		otherStart, otherEnd := s.Window(j)
		if entities.Overlaps(start, end, otherStart, otherEnd) {
			return j
		}
	}
	return nil
}

// WithDriverLock runs fn while holding the driver's scheduling lock. A
// driver whose lock is already held is mid-way through another accept.
func (s *AvailabilityService) WithDriverLock(ctx context.Context, driverID string, fn func() error) error {
	key := "driver:" + driverID
	ok, err := s.locks.AcquireLock(ctx, key, s.cfg.AcceptLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: driver %s is being scheduled concurrently", ErrDriverBusy, driverID)
	}
	defer func() {
		if err := s.locks.ReleaseLock(ctx, key); err != nil {
			s.log.Warn("failed to release driver lock", logger.String("driver_id", driverID), logger.Error(err))
		}
	}()
	return fn()
}

// CheckCanSchedule runs every availability check for giving job to driver:
// no active booking (bookings only) and no overlapping window.
func (s *AvailabilityService) CheckCanSchedule(ctx context.Context, driverID string, job *entities.Job) error {
	if job.Kind == entities.JobKindBooking {
		busy, err := s.HasActiveBooking(ctx, driverID)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("%w: %s", ErrDriverBusy, driverID)
		}
	}

	start, end := s.Window(job)
	conflict, err := s.CheckOverlap(ctx, driverID, start, end, job.ID)
	if err != nil {
		return err
	}
	if conflict != nil {
		return fmt.Errorf("%w: %s %s at %s", ErrScheduleConflict, conflict.Kind, conflict.ID, conflict.ScheduledAt.Format(time.RFC3339))
	}
	return nil
}
