package memory

import (
	"context"
	"sync"

	"uturn/internal/domain/entities"
	"uturn/internal/repository"
)

type DriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*entities.Driver
}

func NewDriverRepository() *DriverRepository {
	return &DriverRepository{
		drivers: make(map[string]*entities.Driver),
	}
}

// Put creates or replaces the driver record.
func (r *DriverRepository) Put(ctx context.Context, driver *entities.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := *driver
	r.drivers[driver.ID] = &d
	return nil
}

func (r *DriverRepository) Get(ctx context.Context, id string) (*entities.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	driver, exists := r.drivers[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	d := *driver
	return &d, nil
}

func (r *DriverRepository) SetStatus(ctx context.Context, id string, status entities.DriverStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	driver, exists := r.drivers[id]
	if !exists {
		return repository.ErrNotFound
	}
	driver.SetStatus(status)
	return nil
}
