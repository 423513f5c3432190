package services

import (
	"fmt"

	"uturn/internal/domain/entities"
	"uturn/internal/repository"
)

// Repositories bundles the two job tables and the driver directory.
type Repositories struct {
	Bookings  repository.JobRepository
	SoloRides repository.JobRepository
	Drivers   repository.DriverRepository
}

func (r Repositories) jobs(kind entities.JobKind) (repository.JobRepository, error) {
	switch kind {
	case entities.JobKindBooking:
		return r.Bookings, nil
	case entities.JobKindSolo:
		return r.SoloRides, nil
	}
	return nil, invalidInput("unknown job kind %q", kind)
}

func (r Repositories) all() []repository.JobRepository {
	return []repository.JobRepository{r.Bookings, r.SoloRides}
}

func jobNotFound(kind entities.JobKind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrJobNotFound, kind, id)
}
