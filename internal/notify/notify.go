// Package notify delivers customer messages (WhatsApp templates, relayed
// through a message broker) and operational alerts. Delivery is fire and
// forget from the caller's point of view.
package notify

import (
	"context"
	"errors"
)

type Template string

const (
	TemplateDriverAssigned   Template = "driver_assigned"
	TemplateTripOTP          Template = "trip_otp"
	TemplateTripStarted      Template = "trip_started"
	TemplateTripCompleted    Template = "trip_completed"
	TemplateBookingCancelled Template = "booking_cancelled"
	TemplateDriverBlocked    Template = "driver_blocked"
	TemplateDriverUnblocked  Template = "driver_unblocked"
)

// Audience says who a message is for. Customer messages go to Phone; ops
// messages go to the operations channel.
type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceOps      Audience = "ops"
)

type Message struct {
	Audience   Audience          `json:"audience"`
	Template   Template          `json:"template"`
	Phone      string            `json:"phone,omitempty"`
	JobID      string            `json:"job_id,omitempty"`
	TrackingID string            `json:"tracking_id,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Multi sends every message to all notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
