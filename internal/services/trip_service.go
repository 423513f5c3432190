package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"uturn/internal/config"
	"uturn/internal/domain/entities"
	"uturn/internal/filestore"
	"uturn/internal/geo"
	"uturn/internal/logger"
	"uturn/internal/repository"
	"uturn/pkg/utils"
)

// JobObserver is told about every successful write. The live tracking hub
// implements it.
type JobObserver interface {
	JobChanged(job *entities.Job)
}

type nopObserver struct{}

func (nopObserver) JobChanged(*entities.Job) {}

// TripService drives bookings and solo rides through their lifecycle. Every
// operation reads the job, checks the caller and preconditions, then issues a
// conditional Update so a concurrent writer cannot be overwritten.
type TripService struct {
	repos         Repositories
	availability  *AvailabilityService
	commission    *CommissionService
	notifications *NotificationService
	files         filestore.Store
	observer      JobObserver
	cfg           *config.Config
	log           logger.Logger

	now    func() time.Time
	newOTP func() (string, error)
}

func NewTripService(
	repos Repositories,
	availability *AvailabilityService,
	commission *CommissionService,
	notifications *NotificationService,
	files filestore.Store,
	cfg *config.Config,
	log logger.Logger,
) *TripService {
	return &TripService{
		repos:         repos,
		availability:  availability,
		commission:    commission,
		notifications: notifications,
		files:         files,
		observer:      nopObserver{},
		cfg:           cfg,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
		newOTP:        utils.GenerateOTP,
	}
}

// SetObserver installs the receiver of job change events.
func (s *TripService) SetObserver(o JobObserver) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

// JobRequest is the itinerary and rate card shared by bookings and solo rides.
type JobRequest struct {
	CustomerName        string
	CustomerPhone       string
	Pickup              entities.Place
	Drop                entities.Place
	TripType            entities.TripType
	ScheduledAt         time.Time
	ReturnAt            *time.Time
	RentalHours         float64
	Fare                entities.FareInputs
	EstimatedDistanceKm float64
}

func (r JobRequest) validate() error {
	if r.CustomerName == "" || r.CustomerPhone == "" {
		return invalidInput("customer name and phone are required")
	}
	if r.Pickup.Address == "" {
		return invalidInput("pickup address is required")
	}
	if !r.TripType.Valid() {
		return invalidInput("unknown trip type %q", r.TripType)
	}
	if r.ScheduledAt.IsZero() {
		return invalidInput("scheduled_at is required")
	}
	if r.ReturnAt != nil && !r.ReturnAt.After(r.ScheduledAt) {
		return invalidInput("return_at must be after scheduled_at")
	}
	if r.RentalHours < 0 || r.EstimatedDistanceKm < 0 {
		return invalidInput("rental hours and distance must not be negative")
	}
	f := r.Fare
	for _, v := range []float64{f.BaseFare, f.PerKmRate, f.HourlyRate, f.NightAllowance, f.HillsAllowance,
		f.DriverAllowance, f.WaitingChargesPerHour, f.TollCharges, f.PackageAmount} {
		if v < 0 {
			return invalidInput("fare values must not be negative")
		}
	}
	return nil
}

type CreateBookingRequest struct {
	JobRequest
	// Draft keeps the booking hidden from drivers until it is published.
	Draft bool
}

func (s *TripService) newJob(kind entities.JobKind, req JobRequest) *entities.Job {
	now := s.now()
	job := &entities.Job{
		ID:            utils.GenerateID(),
		Kind:          kind,
		TrackingID:    utils.GenerateTrackingID(),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Pickup:        req.Pickup,
		Drop:          req.Drop,
		TripType:      req.TripType,
		ScheduledAt:   req.ScheduledAt.UTC(),
		RentalHours:   req.RentalHours,
		Fare:          req.Fare,
		PaymentStatus: entities.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.ReturnAt != nil {
		ret := req.ReturnAt.UTC()
		job.ReturnAt = &ret
	}
	if req.Pickup.HasCoordinates() {
		job.PickupCell = geo.Encode(req.Pickup.Latitude, req.Pickup.Longitude, s.cfg.Geo.PickupCellPrecision)
	}

	job.EstimatedDistanceKm = req.EstimatedDistanceKm
	if job.EstimatedDistanceKm == 0 {
		job.EstimatedDistanceKm = utils.EstimateDistance(req.Pickup, req.Drop)
	}
	job.EstimatedFare = utils.Quote(job, job.EstimatedDistanceKm)
	return job
}

// CreateBooking stores a new vendor booking, pending unless Draft is set.
func (s *TripService) CreateBooking(ctx context.Context, vendorID string, req CreateBookingRequest) (*entities.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	job := s.newJob(entities.JobKindBooking, req.JobRequest)
	job.VendorID = vendorID
	job.Status = entities.JobStatusPending
	if req.Draft {
		job.Status = entities.JobStatusDraft
	}

	if err := s.put(ctx, job); err != nil {
		return nil, err
	}
	s.log.Info("booking created",
		logger.String("job_id", job.ID),
		logger.String("vendor_id", vendorID),
		logger.String("status", string(job.Status)),
	)
	return job, nil
}

// CreateSoloRide stores a ride the driver arranged themselves. It starts out
// accepted by that driver with a trip start code already issued.
func (s *TripService) CreateSoloRide(ctx context.Context, driverID string, req JobRequest) (*entities.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	driver, err := s.availability.EligibleDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	otp, err := s.newOTP()
	if err != nil {
		return nil, err
	}

	job := s.newJob(entities.JobKindSolo, req)
	job.Status = entities.JobStatusDriverAccepted
	job.AssignedDriverID = driverID
	snapshot := driver.Snapshot()
	job.Driver = &snapshot
	job.OTP = otp

	err = s.availability.WithDriverLock(ctx, driverID, func() error {
		if err := s.availability.CheckCanSchedule(ctx, driverID, job); err != nil {
			return err
		}
		return s.put(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("solo ride created", logger.String("job_id", job.ID), logger.String("driver_id", driverID))
	s.notifications.NotifyCustomerOfOTP(ctx, job)
	return job.Redacted(), nil
}

// Publish moves a draft booking to pending.
func (s *TripService) Publish(ctx context.Context, vendorID, id string) (*entities.Job, error) {
	job, err := s.ownedBooking(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, job, entities.JobPatch{
		Require: []entities.JobStatus{entities.JobStatusDraft},
		Status:  entities.Ptr(entities.JobStatusPending),
	})
}

// Accept assigns a pending booking to the driver. The availability checks
// and the write run under the driver's lock, and the write only succeeds if
// the booking is still pending, so two drivers racing for one booking get
// exactly one winner.
func (s *TripService) Accept(ctx context.Context, driverID, id string) (*entities.Job, error) {
	job, err := s.get(ctx, entities.JobKindBooking, id)
	if err != nil {
		return nil, err
	}
	if job.Status != entities.JobStatusPending {
		return nil, fmt.Errorf("%w: booking %s is %s", ErrInvalidTransition, id, job.Status)
	}
	driver, err := s.availability.EligibleDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}

	var accepted *entities.Job
	err = s.availability.WithDriverLock(ctx, driverID, func() error {
		if err := s.availability.CheckCanSchedule(ctx, driverID, job); err != nil {
			return err
		}
		snapshot := driver.Snapshot()
		updated, err := s.update(ctx, job, entities.JobPatch{
			Require:          []entities.JobStatus{entities.JobStatusPending},
			Status:           entities.Ptr(entities.JobStatusDriverAccepted),
			AssignedDriverID: entities.Ptr(driverID),
			Driver:           &snapshot,
			RejectionReason:  entities.Ptr(""),
		})
		accepted = updated
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking accepted", logger.String("job_id", id), logger.String("driver_id", driverID))
	s.notifications.NotifyCustomerOfDriverAssigned(ctx, accepted)
	return accepted, nil
}

// UploadVideo records the verification video URL. Only the assigned driver
// may do it, and only before the vendor has decided.
func (s *TripService) UploadVideo(ctx context.Context, driverID string, kind entities.JobKind, id, url string) (*entities.Job, error) {
	if url == "" {
		return nil, invalidInput("video url is required")
	}
	job, err := s.assignedJob(ctx, driverID, kind, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.update(ctx, job, entities.JobPatch{
		Require:  []entities.JobStatus{entities.JobStatusDriverAccepted},
		VideoURL: entities.Ptr(url),
	})
	if err != nil {
		return nil, err
	}
	return updated.Redacted(), nil
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadVideoFile stores the video and then records its URL.
func (s *TripService) UploadVideoFile(ctx context.Context, driverID string, kind entities.JobKind, id string, file Upload) (*entities.Job, error) {
	job, err := s.assignedJob(ctx, driverID, kind, id)
	if err != nil {
		return nil, err
	}
	if job.Status != entities.JobStatusDriverAccepted {
		return nil, fmt.Errorf("%w: %s %s is %s", ErrInvalidTransition, kind, id, job.Status)
	}
	url, err := s.store(ctx, "jobs/"+id, "video", file)
	if err != nil {
		return nil, err
	}
	return s.UploadVideo(ctx, driverID, kind, id, url)
}

// UploadProof stores an odometer photo for the driver and returns its URL,
// to be passed to StartTrip or CompleteTrip.
func (s *TripService) UploadProof(ctx context.Context, driverID string, file Upload) (string, error) {
	return s.store(ctx, "drivers/"+driverID, "proof", file)
}

func (s *TripService) store(ctx context.Context, scope, purpose string, file Upload) (string, error) {
	if len(file.Data) == 0 {
		return "", invalidInput("empty upload")
	}
	url, err := s.files.Put(ctx, filestore.Key(scope, purpose, file.Filename), file.Data, file.ContentType)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", purpose, err)
	}
	return url, nil
}

// Approve confirms the accepted driver and issues the trip start code.
func (s *TripService) Approve(ctx context.Context, vendorID, id string) (*entities.Job, error) {
	job, err := s.ownedBooking(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	otp, err := s.newOTP()
	if err != nil {
		return nil, err
	}
	approved, err := s.update(ctx, job, entities.JobPatch{
		Require: []entities.JobStatus{entities.JobStatusDriverAccepted},
		Status:  entities.Ptr(entities.JobStatusVendorApproved),
		OTP:     entities.Ptr(otp),
	})
	if err != nil {
		return nil, err
	}
	s.notifications.NotifyCustomerOfOTP(ctx, approved)
	return approved, nil
}

// Reject sends the booking back to pending and forgets the driver.
func (s *TripService) Reject(ctx context.Context, vendorID, id, reason string) (*entities.Job, error) {
	job, err := s.ownedBooking(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, job, entities.JobPatch{
		Require:         []entities.JobStatus{entities.JobStatusDriverAccepted},
		Status:          entities.Ptr(entities.JobStatusPending),
		ClearDriver:     true,
		ClearVideo:      true,
		RejectionReason: entities.Ptr(reason),
	})
}

// Cancel ends a job that has not completed. Vendors cancel their bookings;
// drivers cancel their solo rides; admins cancel anything.
func (s *TripService) Cancel(ctx context.Context, actor Actor, kind entities.JobKind, id, reason string) (*entities.Job, error) {
	job, err := s.get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	allowed := actor.Role == RoleAdmin ||
		(actor.Role == RoleVendor && job.Kind == entities.JobKindBooking && job.VendorID == actor.ID) ||
		(actor.Role == RoleDriver && job.Kind == entities.JobKindSolo && job.AssignedDriverID == actor.ID)
	if !allowed {
		return nil, ErrNotAuthorized
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s %s is %s", ErrInvalidTransition, kind, id, job.Status)
	}

	// A cancelled booking releases its driver. A solo ride keeps the driver
	// who created it, since that driver is its only party.
	cancelled, err := s.update(ctx, job, entities.JobPatch{
		Require:            []entities.JobStatus{job.Status},
		Status:             entities.Ptr(entities.JobStatusCancelled),
		CancellationReason: entities.Ptr(reason),
		ClearDriver:        job.Kind == entities.JobKindBooking,
		ClearOTP:           true,
	})
	if err != nil {
		return nil, err
	}
	s.notifications.NotifyCustomerOfCancellation(ctx, cancelled)
	return cancelled, nil
}

// RegenerateOTP replaces the trip start code while the trip can still start.
func (s *TripService) RegenerateOTP(ctx context.Context, actor Actor, kind entities.JobKind, id string) (*entities.Job, error) {
	job, err := s.get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(job) {
		return nil, ErrNotAuthorized
	}
	otp, err := s.newOTP()
	if err != nil {
		return nil, err
	}
	updated, err := s.update(ctx, job, entities.JobPatch{
		Require: []entities.JobStatus{job.StartableStatus()},
		OTP:     entities.Ptr(otp),
	})
	if err != nil {
		return nil, err
	}
	s.notifications.NotifyCustomerOfOTP(ctx, updated)
	return actor.View(updated), nil
}

// ValidateOTP reports whether otp matches the job's current code without
// changing anything.
func (s *TripService) ValidateOTP(ctx context.Context, actor Actor, kind entities.JobKind, id, otp string) (bool, error) {
	job, err := s.get(ctx, kind, id)
	if err != nil {
		return false, err
	}
	if !actor.CanSee(job) {
		return false, ErrNotAuthorized
	}
	return otpMatches(job.OTP, otp), nil
}

func otpMatches(stored, supplied string) bool {
	return stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

type StartTripRequest struct {
	Odometer float64
	OTP      string
	PhotoURL string
}

// StartTrip checks the code the customer gave the driver and starts the trip.
// A wrong code changes nothing. The code is consumed on success.
func (s *TripService) StartTrip(ctx context.Context, driverID string, kind entities.JobKind, id string, req StartTripRequest) (*entities.Job, error) {
	job, err := s.assignedJob(ctx, driverID, kind, id)
	if err != nil {
		return nil, err
	}
	startable := job.StartableStatus()
	if job.Status != startable {
		return nil, fmt.Errorf("%w: %s %s is %s", ErrInvalidTransition, kind, id, job.Status)
	}
	if req.Odometer < 0 {
		return nil, fmt.Errorf("%w: start reading %.1f", ErrInvalidOdometer, req.Odometer)
	}
	if !otpMatches(job.OTP, req.OTP) {
		s.log.Warn("invalid trip otp", logger.String("job_id", id), logger.String("driver_id", driverID))
		return nil, ErrInvalidOTP
	}

	now := s.now()
	started, err := s.update(ctx, job, entities.JobPatch{
		Require:               []entities.JobStatus{startable},
		RequireOTP:            entities.Ptr(job.OTP),
		Status:                entities.Ptr(entities.JobStatusInProgress),
		StartOdometer:         entities.Ptr(req.Odometer),
		StartOdometerPhotoURL: entities.Ptr(req.PhotoURL),
		StartedAt:             &now,
		ClearOTP:              true,
	})
	if err != nil {
		return nil, err
	}
	s.notifications.NotifyCustomerOfTripStarted(ctx, started)
	return started.Redacted(), nil
}

// AddWaitingTime adds minutes to a running trip's waiting counter.
func (s *TripService) AddWaitingTime(ctx context.Context, driverID string, kind entities.JobKind, id string, mins int) (*entities.Job, error) {
	if mins <= 0 {
		return nil, invalidInput("waiting minutes must be positive")
	}
	if _, err := s.assignedJob(ctx, driverID, kind, id); err != nil {
		return nil, err
	}
	repo, err := s.repos.jobs(kind)
	if err != nil {
		return nil, err
	}
	job, err := repo.IncrementWaitingTime(ctx, id, mins, entities.JobStatusInProgress, s.now())
	if err != nil {
		return nil, translate(err, jobNotFound(kind, id))
	}
	s.observer.JobChanged(job.Redacted())
	return job.Redacted(), nil
}

type CompleteTripRequest struct {
	EndOdometer   float64
	PaymentMethod string
	PhotoURL      string
	// ExtraCharges may arrive as a number or a numeric string.
	ExtraCharges interface{}
}

// completeAttempts bounds how often CompleteTrip reprices when waiting time
// is added while it runs.
const completeAttempts = 3

// CompleteTrip settles a running trip: distance from the odometer, fare by
// the job kind's formula, payment recorded, and the driver blocked until the
// commission is paid. The fare is only written if the waiting time it was
// priced from is still the stored one.
func (s *TripService) CompleteTrip(ctx context.Context, driverID string, kind entities.JobKind, id string, req CompleteTripRequest) (*entities.Job, error) {
	var completed *entities.Job
	for attempt := 1; ; attempt++ {
		job, err := s.assignedJob(ctx, driverID, kind, id)
		if err != nil {
			return nil, err
		}
		patch, err := s.completionPatch(job, req)
		if err != nil {
			return nil, err
		}
		completed, err = s.update(ctx, job, patch)
		if err == nil {
			break
		}
		if !errors.Is(err, entities.ErrWaitingChanged) || attempt == completeAttempts {
			return nil, err
		}
		s.log.Debug("waiting time changed during completion, repricing",
			logger.String("job_id", id),
			logger.Int("attempt", attempt),
		)
	}

	if err := s.commission.BlockForPayment(ctx, driverID, completed); err != nil {
		return nil, fmt.Errorf("trip %s completed but driver was not blocked: %w", id, err)
	}
	s.log.Info("trip completed",
		logger.String("job_id", id),
		logger.String("driver_id", driverID),
		logger.Int("waiting_mins", completed.WaitingTimeMins),
		logger.Float64("distance_km", completed.ActualDistanceKm),
		logger.Float64("total_fare", completed.TotalFare),
	)
	s.notifications.NotifyCustomerOfTripCompleted(ctx, completed)
	return completed.Redacted(), nil
}

// completionPatch prices job as read and pins the read's status and waiting
// minutes as the write precondition.
func (s *TripService) completionPatch(job *entities.Job, req CompleteTripRequest) (entities.JobPatch, error) {
	if job.Status != entities.JobStatusInProgress {
		return entities.JobPatch{}, fmt.Errorf("%w: %s %s is %s", ErrInvalidTransition, job.Kind, job.ID, job.Status)
	}
	var start float64
	if job.StartOdometer != nil {
		start = *job.StartOdometer
	}
	if req.EndOdometer < start {
		return entities.JobPatch{}, fmt.Errorf("%w: end reading %.1f is below start reading %.1f", ErrInvalidOdometer, req.EndOdometer, start)
	}

	now := s.now()
	var elapsed time.Duration
	if job.StartedAt != nil {
		elapsed = now.Sub(*job.StartedAt)
	}
	distance := req.EndOdometer - start
	extras := utils.CoerceAmount(req.ExtraCharges)
	total := utils.Fare(job.Kind, job.Fare, utils.FareInput{
		DistanceKm:   distance,
		TripType:     job.TripType,
		WaitingMins:  job.WaitingTimeMins,
		ExtraCharges: extras,
		Elapsed:      elapsed,
	})

	return entities.JobPatch{
		Require:             []entities.JobStatus{entities.JobStatusInProgress},
		RequireWaitingMins:  entities.Ptr(job.WaitingTimeMins),
		Status:              entities.Ptr(entities.JobStatusCompleted),
		EndOdometer:         entities.Ptr(req.EndOdometer),
		EndOdometerPhotoURL: entities.Ptr(req.PhotoURL),
		EndedAt:             &now,
		ActualDistanceKm:    entities.Ptr(distance),
		ExtraCharges:        entities.Ptr(extras),
		TotalFare:           entities.Ptr(total),
		PaymentMethod:       entities.Ptr(req.PaymentMethod),
		PaymentStatus:       entities.Ptr(entities.PaymentStatusCompleted),
		CommissionStatus:    entities.Ptr(entities.CommissionStatusPending),
	}, nil
}

// MarkCommissionPaid settles the commission for a job and unblocks its driver.
func (s *TripService) MarkCommissionPaid(ctx context.Context, kind entities.JobKind, id string) (*entities.Job, error) {
	job, err := s.commission.MarkPaid(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	s.observer.JobChanged(job.Redacted())
	return job, nil
}

// Get returns a job the actor is a party to.
func (s *TripService) Get(ctx context.Context, actor Actor, kind entities.JobKind, id string) (*entities.Job, error) {
	job, err := s.get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(job) {
		return nil, ErrNotAuthorized
	}
	return actor.View(job), nil
}

// GetByTrackingID is the public lookup; the trip start code is never shown.
func (s *TripService) GetByTrackingID(ctx context.Context, code string) (*entities.Job, error) {
	for _, repo := range s.repos.all() {
		job, err := repo.GetByTrackingID(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return job.Redacted(), nil
	}
	return nil, fmt.Errorf("%w: tracking id %s", ErrJobNotFound, code)
}

// ListPending returns bookings a driver could accept: pending, inside near
// when it is given, and not clashing with the driver's own schedule.
func (s *TripService) ListPending(ctx context.Context, driverID string, near *geo.Area) ([]*entities.Job, error) {
	pending, err := s.repos.Bookings.Scan(ctx, repository.JobFilter{
		Statuses: []entities.JobStatus{entities.JobStatusPending},
	})
	if err != nil {
		return nil, err
	}
	mine, err := s.availability.driverJobs(ctx, driverID)
	if err != nil {
		return nil, err
	}

	out := make([]*entities.Job, 0, len(pending))
	for _, job := range pending {
		if near != nil && job.PickupCell != "" && !near.Contains(job.PickupCell) {
			continue
		}
		start, end := s.availability.Window(job)
		if s.availability.conflictIn(mine, start, end, job.ID) != nil {
			continue
		}
		out = append(out, job.Redacted())
	}
	return out, nil
}

// ListVendorBookings returns the vendor's bookings, optionally by status.
func (s *TripService) ListVendorBookings(ctx context.Context, vendorID string, statuses []entities.JobStatus) ([]*entities.Job, error) {
	return s.repos.Bookings.Scan(ctx, repository.JobFilter{VendorID: vendorID, Statuses: statuses})
}

// ListDriverJobs returns every booking and solo ride assigned to the driver.
func (s *TripService) ListDriverJobs(ctx context.Context, driverID string) ([]*entities.Job, error) {
	jobs, err := s.availability.driverJobs(ctx, driverID)
	if err != nil {
		return nil, err
	}
	for i, j := range jobs {
		jobs[i] = j.Redacted()
	}
	return jobs, nil
}

func (s *TripService) get(ctx context.Context, kind entities.JobKind, id string) (*entities.Job, error) {
	repo, err := s.repos.jobs(kind)
	if err != nil {
		return nil, err
	}
	job, err := repo.Get(ctx, id)
	if err != nil {
		return nil, translate(err, jobNotFound(kind, id))
	}
	return job, nil
}

func (s *TripService) assignedJob(ctx context.Context, driverID string, kind entities.JobKind, id string) (*entities.Job, error) {
	job, err := s.get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if job.AssignedDriverID != driverID {
		return nil, ErrNotAuthorized
	}
	return job, nil
}

func (s *TripService) ownedBooking(ctx context.Context, vendorID, id string) (*entities.Job, error) {
	job, err := s.get(ctx, entities.JobKindBooking, id)
	if err != nil {
		return nil, err
	}
	if job.VendorID != vendorID {
		return nil, ErrNotAuthorized
	}
	return job, nil
}

func (s *TripService) put(ctx context.Context, job *entities.Job) error {
	if err := job.Validate(); err != nil {
		return translate(err, nil)
	}
	repo, err := s.repos.jobs(job.Kind)
	if err != nil {
		return err
	}
	if err := repo.Put(ctx, job); err != nil {
		return err
	}
	s.observer.JobChanged(job.Redacted())
	return nil
}

func (s *TripService) update(ctx context.Context, job *entities.Job, patch entities.JobPatch) (*entities.Job, error) {
	repo, err := s.repos.jobs(job.Kind)
	if err != nil {
		return nil, err
	}
	updated, err := repo.Update(ctx, job.ID, patch, s.now())
	if err != nil {
		return nil, translate(err, jobNotFound(job.Kind, job.ID))
	}
	if patch.Status != nil {
		s.log.Info("job status changed",
			logger.String("job_id", job.ID),
			logger.String("kind", string(job.Kind)),
			logger.String("from", string(job.Status)),
			logger.String("to", string(updated.Status)),
		)
	}
	s.observer.JobChanged(updated.Redacted())
	return updated, nil
}
