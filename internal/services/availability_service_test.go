package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"uturn/internal/config"
	"uturn/internal/domain/entities"
	"uturn/internal/logger"
	"uturn/internal/repository/memory"
)

func setupAvailability(t *testing.T) (*AvailabilityService, Repositories, *memory.LockManager) {
	t.Helper()
	repos := Repositories{
		Bookings:  memory.NewJobRepository(),
		SoloRides: memory.NewJobRepository(),
		Drivers:   memory.NewDriverRepository(),
	}
	locks := memory.NewLockManager(time.Minute)
	t.Cleanup(locks.Stop)
	return NewAvailabilityService(repos, locks, config.NewDefaultConfig().Scheduling, logger.NewNop()), repos, locks
}

func putJob(t *testing.T, repos Repositories, j *entities.Job) {
	t.Helper()
	repo, _ := repos.jobs(j.Kind)
	if err := repo.Put(context.Background(), j); err != nil {
		t.Fatalf("put job: %v", err)
	}
}

func TestAvailability_CheckOverlap(t *testing.T) {
	svc, repos, _ := setupAvailability(t)
	ctx := context.Background()
	nine := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	// Solo ride 09:00-13:00 (default window)
	putJob(t, repos, &entities.Job{
		ID: "solo-1", Kind: entities.JobKindSolo, Status: entities.JobStatusDriverAccepted,
		AssignedDriverID: "d1", TripType: entities.TripTypeOneWay, ScheduledAt: nine,
	})
	// Cancelled booking at the same time never counts
	putJob(t, repos, &entities.Job{
		ID: "b-cancelled", Kind: entities.JobKindBooking, Status: entities.JobStatusCancelled,
		TripType: entities.TripTypeOneWay, ScheduledAt: nine,
	})
	// Booking with an explicit return, 15:00 the next day
	ret := nine.Add(30 * time.Hour)
	putJob(t, repos, &entities.Job{
		ID: "b-round", Kind: entities.JobKindBooking, Status: entities.JobStatusVendorApproved,
		AssignedDriverID: "d1", TripType: entities.TripTypeRound, ScheduledAt: nine.Add(24 * time.Hour), ReturnAt: &ret,
	})

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		excludeID string
		wantID    string
	}{
		{"back to back after solo", nine.Add(4 * time.Hour), nine.Add(8 * time.Hour), "", ""},
		{"back to back before solo", nine.Add(-4 * time.Hour), nine, "", ""},
		{"one minute into solo", nine.Add(-time.Hour), nine.Add(time.Minute), "", "solo-1"},
		{"inside return window", nine.Add(28 * time.Hour), nine.Add(29 * time.Hour), "", "b-round"},
		{"after return", ret, ret.Add(time.Hour), "", ""},
		{"self excluded", nine, nine.Add(time.Hour), "solo-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflict, err := svc.CheckOverlap(ctx, "d1", tt.start, tt.end, tt.excludeID)
			if err != nil {
				t.Fatalf("CheckOverlap failed: %v", err)
			}
			gotID := ""
			if conflict != nil {
				gotID = conflict.ID
			}
			if gotID != tt.wantID {
				t.Errorf("conflict = %q, want %q", gotID, tt.wantID)
			}
		})
	}

	if c, _ := svc.CheckOverlap(ctx, "d2", nine, nine.Add(time.Hour), ""); c != nil {
		t.Error("Other drivers' jobs must not conflict")
	}
}

func TestAvailability_HasActiveBooking(t *testing.T) {
	svc, repos, _ := setupAvailability(t)
	ctx := context.Background()

	putJob(t, repos, &entities.Job{
		ID: "solo-1", Kind: entities.JobKindSolo, Status: entities.JobStatusInProgress,
		AssignedDriverID: "d1", TripType: entities.TripTypeOneWay, ScheduledAt: time.Now(),
	})
	busy, _ := svc.HasActiveBooking(ctx, "d1")
	if busy {
		t.Error("Solo rides must not count as active bookings")
	}

	putJob(t, repos, &entities.Job{
		ID: "b-1", Kind: entities.JobKindBooking, Status: entities.JobStatusDriverAccepted,
		AssignedDriverID: "d1", TripType: entities.TripTypeOneWay, ScheduledAt: time.Now(),
	})
	busy, _ = svc.HasActiveBooking(ctx, "d1")
	if !busy {
		t.Error("Expected accepted booking to count as active")
	}
}

func TestAvailability_WithDriverLock(t *testing.T) {
	svc, _, locks := setupAvailability(t)
	ctx := context.Background()

	err := svc.WithDriverLock(ctx, "d1", func() error {
		inner := svc.WithDriverLock(ctx, "d1", func() error { return nil })
		if !errors.Is(inner, ErrDriverBusy) {
			t.Errorf("Expected ErrDriverBusy while locked, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithDriverLock failed: %v", err)
	}

	locked, _ := locks.IsLocked(ctx, "driver:d1")
	if locked {
		t.Error("Expected lock to be released")
	}
}
