package entities

import (
	"errors"
	"fmt"
	"time"
)

// JobKind tags the two job variants. They share every field and the state
// machine; they differ in who creates them, whether a vendor approves the
// driver, and how the final fare is computed.
type JobKind string

const (
	JobKindBooking JobKind = "booking"   // created by a vendor, approved by the vendor
	JobKindSolo    JobKind = "solo_ride" // created by a driver for their own customer
)

func (k JobKind) Valid() bool {
	return k == JobKindBooking || k == JobKindSolo
}

// JobStatus represents the lifecycle state of a job.
//
//	draft → pending → driver_accepted → vendor_approved → in_progress → completed
//	                        ↘ pending (vendor rejects the driver)
//	(any state before completed can also move to cancelled)
//
// Solo rides are created directly in driver_accepted and skip vendor approval.
type JobStatus string

const (
	JobStatusDraft          JobStatus = "draft"
	JobStatusPending        JobStatus = "pending"
	JobStatusDriverAccepted JobStatus = "driver_accepted"
	JobStatusVendorApproved JobStatus = "vendor_approved"
	JobStatusInProgress     JobStatus = "in_progress"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusCancelled      JobStatus = "cancelled"
)

// Valid reports whether s is one of the enumerated states.
func (s JobStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// HasDriver reports whether a job in status s must carry an assigned driver.
func (s JobStatus) HasDriver() bool {
	switch s {
	case JobStatusDriverAccepted, JobStatusVendorApproved, JobStatusInProgress, JobStatusCompleted:
		return true
	}
	return false
}

// ActiveStatuses are the states in which a driver is committed to a booking.
var ActiveStatuses = []JobStatus{JobStatusDriverAccepted, JobStatusVendorApproved, JobStatusInProgress}

var bookingTransitions = map[JobStatus][]JobStatus{
	JobStatusDraft:          {JobStatusPending, JobStatusCancelled},
	JobStatusPending:        {JobStatusDriverAccepted, JobStatusCancelled},
	JobStatusDriverAccepted: {JobStatusVendorApproved, JobStatusPending, JobStatusCancelled},
	JobStatusVendorApproved: {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress:     {JobStatusCompleted, JobStatusCancelled},
	JobStatusCompleted:      {},
	JobStatusCancelled:      {},
}

var soloTransitions = map[JobStatus][]JobStatus{
	JobStatusDriverAccepted: {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress:     {JobStatusCompleted, JobStatusCancelled},
	JobStatusCompleted:      {},
	JobStatusCancelled:      {},
}

// TripType is the itinerary kind chosen at creation. Only round and rental
// change the booking fare at completion.
type TripType string

const (
	TripTypeOneWay      TripType = "oneWay"
	TripTypeRound       TripType = "round"
	TripTypeRental      TripType = "rental"
	TripTypeOutstation  TripType = "outstation"
	TripTypeTourPackage TripType = "tourPackage"
)

func (t TripType) Valid() bool {
	switch t {
	case TripTypeOneWay, TripTypeRound, TripTypeRental, TripTypeOutstation, TripTypeTourPackage:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

type CommissionStatus string

const (
	CommissionStatusNone    CommissionStatus = ""
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusChanged     = errors.New("job status does not satisfy precondition")
	ErrInvariant         = errors.New("job invariant violated")
)

// FareInputs is the rate card captured on the job at creation.
type FareInputs struct {
	BaseFare              float64 `json:"base_fare"`
	PerKmRate             float64 `json:"per_km_rate"`
	HourlyRate            float64 `json:"hourly_rate,omitempty"`
	NightAllowance        float64 `json:"night_allowance,omitempty"`
	HillsAllowance        float64 `json:"hills_allowance,omitempty"`
	DriverAllowance       float64 `json:"driver_allowance,omitempty"`
	WaitingChargesPerHour float64 `json:"waiting_charges_per_hour,omitempty"`
	TollCharges           float64 `json:"toll_charges,omitempty"`
	PackageAmount         float64 `json:"package_amount,omitempty"`
}

// Job is a vendor booking or a driver solo ride. Every mutation goes through
// Apply so the status machine and the driver invariant hold for both the
// in-memory and the Postgres repositories.
type Job struct {
	ID         string  `json:"id"`
	Kind       JobKind `json:"kind"`
	TrackingID string  `json:"tracking_id"`

	VendorID         string          `json:"vendor_id,omitempty"`
	CustomerName     string          `json:"customer_name,omitempty"`
	CustomerPhone    string          `json:"customer_phone,omitempty"`
	AssignedDriverID string          `json:"assigned_driver_id,omitempty"`
	Driver           *DriverSnapshot `json:"driver,omitempty"`

	Pickup      Place      `json:"pickup"`
	Drop        Place      `json:"drop"`
	PickupCell  string     `json:"pickup_cell,omitempty"`
	TripType    TripType   `json:"trip_type"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	ReturnAt    *time.Time `json:"return_at,omitempty"`
	RentalHours float64    `json:"rental_hours,omitempty"`

	Fare                FareInputs `json:"fare"`
	EstimatedDistanceKm float64    `json:"estimated_distance_km,omitempty"`
	EstimatedFare       float64    `json:"estimated_fare"`
	ExtraCharges        float64    `json:"extra_charges,omitempty"`
	TotalFare           float64    `json:"total_fare,omitempty"`

	Status                JobStatus        `json:"status"`
	OTP                   string           `json:"otp,omitempty"`
	VideoURL              string           `json:"video_url,omitempty"`
	RejectionReason       string           `json:"rejection_reason,omitempty"`
	CancellationReason    string           `json:"cancellation_reason,omitempty"`
	StartOdometer         *float64         `json:"start_odometer,omitempty"`
	EndOdometer           *float64         `json:"end_odometer,omitempty"`
	StartOdometerPhotoURL string           `json:"start_odometer_photo_url,omitempty"`
	EndOdometerPhotoURL   string           `json:"end_odometer_photo_url,omitempty"`
	ActualDistanceKm      float64          `json:"actual_distance_km,omitempty"`
	StartedAt             *time.Time       `json:"started_at,omitempty"`
	EndedAt               *time.Time       `json:"ended_at,omitempty"`
	WaitingTimeMins       int              `json:"waiting_time_mins"`
	PaymentMethod         string           `json:"payment_method,omitempty"`
	PaymentStatus         PaymentStatus    `json:"payment_status"`
	CommissionStatus      CommissionStatus `json:"commission_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanTransitionTo checks if moving to next is allowed for this job's kind.
func (j *Job) CanTransitionTo(next JobStatus) bool {
	table := bookingTransitions
	if j.Kind == JobKindSolo {
		table = soloTransitions
	}
	for _, s := range table[j.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// StartableStatus is the state from which the trip may start: vendor
// approval for bookings, acceptance for solo rides.
func (j *Job) StartableStatus() JobStatus {
	if j.Kind == JobKindSolo {
		return JobStatusDriverAccepted
	}
	return JobStatusVendorApproved
}

// Window returns the time span the job occupies its driver for. Without a
// return time the span is the rental hours (solo rides) or def.
func (j *Job) Window(def time.Duration) (start, end time.Time) {
	start = j.ScheduledAt
	if j.ReturnAt != nil && j.ReturnAt.After(start) {
		return start, *j.ReturnAt
	}
	if j.Kind == JobKindSolo && j.RentalHours > 0 {
		return start, start.Add(time.Duration(j.RentalHours * float64(time.Hour)))
	}
	return start, start.Add(def)
}

// Overlaps reports whether the half-open windows [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back windows do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Redacted returns a copy safe to show to drivers and the public: the trip
// start code is removed.
func (j *Job) Redacted() *Job {
	c := *j
	c.OTP = ""
	return &c
}

// Clone returns a copy that shares no mutable state with j.
func (j *Job) Clone() *Job {
	c := *j
	if j.Driver != nil {
		d := *j.Driver
		c.Driver = &d
	}
	return &c
}

// Validate checks the invariants every persisted job must satisfy.
func (j *Job) Validate() error {
	if !j.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvariant, j.Kind)
	}
	if !j.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvariant, j.Status)
	}
	if j.Status.HasDriver() && j.AssignedDriverID == "" {
		return fmt.Errorf("%w: status %s requires an assigned driver", ErrInvariant, j.Status)
	}
	if !j.Status.HasDriver() && j.Status != JobStatusCancelled && j.AssignedDriverID != "" {
		return fmt.Errorf("%w: status %s must not have an assigned driver", ErrInvariant, j.Status)
	}
	if j.StartOdometer != nil && j.EndOdometer != nil && *j.EndOdometer < *j.StartOdometer {
		return fmt.Errorf("%w: end odometer below start odometer", ErrInvariant)
	}
	return nil
}
