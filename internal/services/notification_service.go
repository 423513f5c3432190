package services

import (
	"context"
	"strconv"

	"uturn/internal/domain/entities"
	"uturn/internal/logger"
	"uturn/internal/notify"
)

// NotificationService turns lifecycle events into notify.Messages. Delivery
// failures are logged and dropped; they never fail the operation that
// triggered them.
type NotificationService struct {
	notifier notify.Notifier
	log      logger.Logger
}

func NewNotificationService(notifier notify.Notifier, log logger.Logger) *NotificationService {
	return &NotificationService{notifier: notifier, log: log}
}

// NotifyCustomerOfDriverAssigned tells the customer who is coming.
func (s *NotificationService) NotifyCustomerOfDriverAssigned(ctx context.Context, job *entities.Job) {
	params := map[string]string{"customer_name": job.CustomerName}
	if job.Driver != nil {
		params["driver_name"] = job.Driver.Name
		params["driver_phone"] = job.Driver.Phone
		params["vehicle_number"] = job.Driver.VehicleNumber
	}
	s.toCustomer(ctx, job, notify.TemplateDriverAssigned, params)
}

// NotifyCustomerOfOTP sends the trip start code.
func (s *NotificationService) NotifyCustomerOfOTP(ctx context.Context, job *entities.Job) {
	s.toCustomer(ctx, job, notify.TemplateTripOTP, map[string]string{
		"customer_name": job.CustomerName,
		"otp":           job.OTP,
	})
}

func (s *NotificationService) NotifyCustomerOfTripStarted(ctx context.Context, job *entities.Job) {
	s.toCustomer(ctx, job, notify.TemplateTripStarted, map[string]string{
		"customer_name": job.CustomerName,
		"tracking_id":   job.TrackingID,
	})
}

func (s *NotificationService) NotifyCustomerOfTripCompleted(ctx context.Context, job *entities.Job) {
	s.toCustomer(ctx, job, notify.TemplateTripCompleted, map[string]string{
		"customer_name": job.CustomerName,
		"distance_km":   formatAmount(job.ActualDistanceKm),
		"total_fare":    formatAmount(job.TotalFare),
	})
}

func (s *NotificationService) NotifyCustomerOfCancellation(ctx context.Context, job *entities.Job) {
	s.toCustomer(ctx, job, notify.TemplateBookingCancelled, map[string]string{
		"customer_name": job.CustomerName,
		"reason":        job.CancellationReason,
	})
}

// NotifyOpsOfDriverBlocked alerts operations that commission is now owed.
func (s *NotificationService) NotifyOpsOfDriverBlocked(ctx context.Context, driverID string, job *entities.Job) {
	s.send(ctx, notify.Message{
		Audience:   notify.AudienceOps,
		Template:   notify.TemplateDriverBlocked,
		JobID:      job.ID,
		TrackingID: job.TrackingID,
		Params: map[string]string{
			"driver_id":  driverID,
			"total_fare": formatAmount(job.TotalFare),
		},
	})
}

func (s *NotificationService) NotifyOpsOfDriverUnblocked(ctx context.Context, driverID string, job *entities.Job) {
	s.send(ctx, notify.Message{
		Audience:   notify.AudienceOps,
		Template:   notify.TemplateDriverUnblocked,
		JobID:      job.ID,
		TrackingID: job.TrackingID,
		Params:     map[string]string{"driver_id": driverID},
	})
}

func (s *NotificationService) toCustomer(ctx context.Context, job *entities.Job, tmpl notify.Template, params map[string]string) {
	if job.CustomerPhone == "" {
		s.log.Debug("no customer phone, skipping notification",
			logger.String("job_id", job.ID),
			logger.String("template", string(tmpl)),
		)
		return
	}
	s.send(ctx, notify.Message{
		Audience:   notify.AudienceCustomer,
		Template:   tmpl,
		Phone:      job.CustomerPhone,
		JobID:      job.ID,
		TrackingID: job.TrackingID,
		Params:     params,
	})
}

func (s *NotificationService) send(ctx context.Context, msg notify.Message) {
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Warn("notification failed",
			logger.String("template", string(msg.Template)),
			logger.String("job_id", msg.JobID),
			logger.Error(err),
		)
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
