// Package entities defines the core domain models of the dispatch system:
// jobs (vendor bookings and driver solo rides), drivers and places. These
// structs have no dependencies on databases, HTTP, or external services.
package entities

import "time"

// DriverStatus is a typed string enum for a driver's eligibility for work.
type DriverStatus string

const (
	DriverStatusActive            DriverStatus = "active"
	DriverStatusBlockedForPayment DriverStatus = "blocked_for_payment"
	DriverStatusInactive          DriverStatus = "inactive"
)

// Valid reports whether s is one of the known driver statuses.
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverStatusActive, DriverStatusBlockedForPayment, DriverStatusInactive:
		return true
	}
	return false
}

// Driver is an entry of the driver directory. Jobs copy the display fields
// into their own DriverSnapshot at acceptance time.
type Driver struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Phone           string       `json:"phone"`
	VehicleNumber   string       `json:"vehicle_number"`
	VehicleType     string       `json:"vehicle_type"`
	ProfilePhotoURL string       `json:"profile_photo_url,omitempty"`
	Status          DriverStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewDriver creates an active Driver.
func NewDriver(id, name, phone, vehicleNumber, vehicleType string) *Driver {
	now := time.Now().UTC()
	return &Driver{
		ID:            id,
		Name:          name,
		Phone:         phone,
		VehicleNumber: vehicleNumber,
		VehicleType:   vehicleType,
		Status:        DriverStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsBlocked reports whether the driver owes commission.
func (d *Driver) IsBlocked() bool {
	return d.Status == DriverStatusBlockedForPayment
}

// CanTakeWork reports whether the driver may accept or create jobs.
func (d *Driver) CanTakeWork() bool {
	return d.Status == DriverStatusActive
}

// SetStatus updates the driver's status and records the change timestamp.
func (d *Driver) SetStatus(status DriverStatus) {
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
}

// Snapshot copies the fields a job keeps about its driver.
func (d *Driver) Snapshot() DriverSnapshot {
	return DriverSnapshot{
		Name:            d.Name,
		Phone:           d.Phone,
		VehicleNumber:   d.VehicleNumber,
		VehicleType:     d.VehicleType,
		ProfilePhotoURL: d.ProfilePhotoURL,
	}
}

// DriverSnapshot is the denormalized driver info stored on a job. It is taken
// once, when the driver accepts, and is not kept in sync afterwards.
type DriverSnapshot struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	VehicleNumber   string `json:"vehicle_number"`
	VehicleType     string `json:"vehicle_type,omitempty"`
	ProfilePhotoURL string `json:"profile_photo_url,omitempty"`
}
