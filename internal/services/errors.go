package services

import (
	"errors"
	"fmt"

	"uturn/internal/domain/entities"
	"uturn/internal/repository"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrDriverNotFound    = errors.New("driver not found")
	ErrInvalidOTP        = errors.New("invalid OTP")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDriverBlocked     = errors.New("driver is not allowed to take work")
	ErrDriverBusy        = errors.New("driver already has an active booking")
	ErrScheduleConflict  = errors.New("driver has an overlapping job")
	ErrNotAuthorized     = errors.New("not authorized to perform this action")
	ErrInvalidOdometer   = errors.New("invalid odometer reading")
	ErrInvalidInput      = errors.New("invalid input")
)

// translate maps repository and entity errors onto the service errors the
// API layer understands. Unknown errors pass through unchanged.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, entities.ErrOTPChanged):
		return fmt.Errorf("%w: %v", ErrInvalidOTP, err)
	case errors.Is(err, entities.ErrWaitingChanged):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	case errors.Is(err, entities.ErrStatusChanged), errors.Is(err, entities.ErrInvalidTransition):
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	case errors.Is(err, entities.ErrInvariant):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return err
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
