package entities

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrWaitingChanged = errors.New("waiting time changed since the job was read")
	ErrOTPChanged     = errors.New("trip start code changed since the job was read")
)

// JobPatch is a typed partial update. Nil pointers leave the field alone; the
// Clear flags reset a field to empty. Require, when non-empty, makes the whole
// patch conditional on the job's current status so that a read-then-write
// sequence cannot overwrite a concurrent transition.
type JobPatch struct {
	Require []JobStatus
	// RequireWaitingMins and RequireOTP pin the values a fare or a code check
	// was computed from.
	RequireWaitingMins *int
	RequireOTP         *string

	Status           *JobStatus
	AssignedDriverID *string
	Driver           *DriverSnapshot
	ClearDriver      bool

	OTP      *string
	ClearOTP bool

	VideoURL   *string
	ClearVideo bool

	RejectionReason    *string
	CancellationReason *string

	StartOdometer         *float64
	StartOdometerPhotoURL *string
	StartedAt             *time.Time

	EndOdometer         *float64
	EndOdometerPhotoURL *string
	EndedAt             *time.Time
	ActualDistanceKm    *float64

	ExtraCharges     *float64
	TotalFare        *float64
	PaymentMethod    *string
	PaymentStatus    *PaymentStatus
	CommissionStatus *CommissionStatus
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}

// Apply checks the patch precondition and the status machine, applies the
// fields, and validates the result. On error j is left untouched.
func (j *Job) Apply(p JobPatch, now time.Time) error {
	if len(p.Require) > 0 && !statusIn(j.Status, p.Require) {
		return fmt.Errorf("%w: job %s is %s", ErrStatusChanged, j.ID, j.Status)
	}
	if p.RequireWaitingMins != nil && j.WaitingTimeMins != *p.RequireWaitingMins {
		return fmt.Errorf("%w: job %s has %d minutes, expected %d", ErrWaitingChanged, j.ID, j.WaitingTimeMins, *p.RequireWaitingMins)
	}
	if p.RequireOTP != nil && j.OTP != *p.RequireOTP {
		return fmt.Errorf("%w: job %s", ErrOTPChanged, j.ID)
	}
	if p.Status != nil && *p.Status != j.Status && !j.CanTransitionTo(*p.Status) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, j.Status, *p.Status)
	}

	next := j.Clone()
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.ClearDriver {
		next.AssignedDriverID = ""
		next.Driver = nil
	}
	if p.AssignedDriverID != nil {
		next.AssignedDriverID = *p.AssignedDriverID
	}
	if p.Driver != nil {
		d := *p.Driver
		next.Driver = &d
	}
	if p.ClearOTP {
		next.OTP = ""
	}
	if p.OTP != nil {
		next.OTP = *p.OTP
	}
	if p.ClearVideo {
		next.VideoURL = ""
	}
	if p.VideoURL != nil {
		next.VideoURL = *p.VideoURL
	}
	if p.RejectionReason != nil {
		next.RejectionReason = *p.RejectionReason
	}
	if p.CancellationReason != nil {
		next.CancellationReason = *p.CancellationReason
	}
	if p.StartOdometer != nil {
		next.StartOdometer = Ptr(*p.StartOdometer)
	}
	if p.StartOdometerPhotoURL != nil {
		next.StartOdometerPhotoURL = *p.StartOdometerPhotoURL
	}
	if p.StartedAt != nil {
		next.StartedAt = Ptr(*p.StartedAt)
	}
	if p.EndOdometer != nil {
		next.EndOdometer = Ptr(*p.EndOdometer)
	}
	if p.EndOdometerPhotoURL != nil {
		next.EndOdometerPhotoURL = *p.EndOdometerPhotoURL
	}
	if p.EndedAt != nil {
		next.EndedAt = Ptr(*p.EndedAt)
	}
	if p.ActualDistanceKm != nil {
		next.ActualDistanceKm = *p.ActualDistanceKm
	}
	if p.ExtraCharges != nil {
		next.ExtraCharges = *p.ExtraCharges
	}
	if p.TotalFare != nil {
		next.TotalFare = *p.TotalFare
	}
	if p.PaymentMethod != nil {
		next.PaymentMethod = *p.PaymentMethod
	}
	if p.PaymentStatus != nil {
		next.PaymentStatus = *p.PaymentStatus
	}
	if p.CommissionStatus != nil {
		next.CommissionStatus = *p.CommissionStatus
	}

	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = now.UTC()
	*j = *next
	return nil
}

func statusIn(s JobStatus, set []JobStatus) bool {
	for _, c := range set {
		if c == s {
			return true
		}
	}
	return false
}
