package services

import (
	"context"
	"fmt"
	"time"

	"uturn/internal/domain/entities"
	"uturn/internal/logger"
)

// CommissionService blocks a driver when a trip completes and unblocks them
// when an admin confirms the commission was paid. The unblock is per driver:
// settling one trip reactivates the driver even if other completed trips are
// still unpaid.
type CommissionService struct {
	repos         Repositories
	notifications *NotificationService
	log           logger.Logger
	now           func() time.Time
}

func NewCommissionService(repos Repositories, notifications *NotificationService, log logger.Logger) *CommissionService {
	return &CommissionService{
		repos:         repos,
		notifications: notifications,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// BlockForPayment marks the driver as owing commission for job.
func (s *CommissionService) BlockForPayment(ctx context.Context, driverID string, job *entities.Job) error {
	if err := s.repos.Drivers.SetStatus(ctx, driverID, entities.DriverStatusBlockedForPayment); err != nil {
		return translate(err, fmt.Errorf("%w: %s", ErrDriverNotFound, driverID))
	}
	s.log.Info("driver blocked for commission",
		logger.String("driver_id", driverID),
		logger.String("job_id", job.ID),
	)
	s.notifications.NotifyOpsOfDriverBlocked(ctx, driverID, job)
	return nil
}

// MarkPaid records the commission on the job as paid and reactivates its
// driver.
func (s *CommissionService) MarkPaid(ctx context.Context, kind entities.JobKind, id string) (*entities.Job, error) {
	repo, err := s.repos.jobs(kind)
	if err != nil {
		return nil, err
	}
	job, err := repo.Get(ctx, id)
	if err != nil {
		return nil, translate(err, jobNotFound(kind, id))
	}
	if job.AssignedDriverID == "" {
		return nil, invalidInput("%s %s has no assigned driver", kind, id)
	}

	job, err = repo.Update(ctx, id, entities.JobPatch{
		CommissionStatus: entities.Ptr(entities.CommissionStatusPaid),
	}, s.now())
	if err != nil {
		return nil, translate(err, jobNotFound(kind, id))
	}

	if err := s.repos.Drivers.SetStatus(ctx, job.AssignedDriverID, entities.DriverStatusActive); err != nil {
		return nil, translate(err, fmt.Errorf("%w: %s", ErrDriverNotFound, job.AssignedDriverID))
	}
	s.log.Info("commission paid, driver unblocked",
		logger.String("driver_id", job.AssignedDriverID),
		logger.String("job_id", job.ID),
	)
	s.notifications.NotifyOpsOfDriverUnblocked(ctx, job.AssignedDriverID, job)
	return job, nil
}
