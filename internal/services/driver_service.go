package services

import (
	"context"
	"errors"
	"fmt"

	"uturn/internal/domain/entities"
	"uturn/internal/repository"
	"uturn/pkg/utils"
)

type RegisterDriverRequest struct {
	ID              string
	Name            string
	Phone           string
	VehicleNumber   string
	VehicleType     string
	ProfilePhotoURL string
	Status          entities.DriverStatus
}

// DriverService is the admin-facing driver directory.
type DriverService struct {
	drivers repository.DriverRepository
}

func NewDriverService(drivers repository.DriverRepository) *DriverService {
	return &DriverService{drivers: drivers}
}

// Register creates a driver, or updates the profile of an existing one. The
// status only changes when the request sets it.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*entities.Driver, error) {
	if req.Name == "" || req.Phone == "" || req.VehicleNumber == "" {
		return nil, invalidInput("name, phone and vehicle_number are required")
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, invalidInput("unknown driver status %q", req.Status)
	}
	if req.ID == "" {
		req.ID = utils.GenerateID()
	}

	driver := entities.NewDriver(req.ID, req.Name, req.Phone, req.VehicleNumber, req.VehicleType)
	existing, err := s.drivers.Get(ctx, req.ID)
	switch {
	case err == nil:
		driver.CreatedAt = existing.CreatedAt
		driver.Status = existing.Status
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	driver.ProfilePhotoURL = req.ProfilePhotoURL
	if req.Status != "" {
		driver.SetStatus(req.Status)
	}

	if err := s.drivers.Put(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

func (s *DriverService) Get(ctx context.Context, id string) (*entities.Driver, error) {
	driver, err := s.drivers.Get(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Errorf("%w: %s", ErrDriverNotFound, id))
	}
	return driver, nil
}
