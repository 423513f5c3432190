package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uturn/internal/domain/entities"
	"uturn/internal/logger"
	"uturn/internal/repository"
)

type driverRepo struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewDriverRepository(db *pgxpool.Pool, log logger.Logger) repository.DriverRepository {
	return &driverRepo{db: db, log: log}
}

func (r *driverRepo) Put(ctx context.Context, driver *entities.Driver) error {
	doc, err := json.Marshal(driver)
	if err != nil {
		return fmt.Errorf("encode driver: %w", err)
	}
	query := `
		INSERT INTO drivers (id, status, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.Exec(ctx, query, driver.ID, string(driver.Status), doc, driver.CreatedAt, driver.UpdatedAt)
	if err != nil {
		r.log.Error("failed to put driver", logger.String("driver_id", driver.ID), logger.Error(err))
		return err
	}
	return nil
}

func (r *driverRepo) Get(ctx context.Context, id string) (*entities.Driver, error) {
	var doc []byte
	err := r.db.QueryRow(ctx, `SELECT doc FROM drivers WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		r.log.Error("failed to get driver", logger.String("driver_id", id), logger.Error(err))
		return nil, err
	}

	var driver entities.Driver
	if err := json.Unmarshal(doc, &driver); err != nil {
		return nil, fmt.Errorf("decode driver: %w", err)
	}
	return &driver, nil
}

func (r *driverRepo) SetStatus(ctx context.Context, id string, status entities.DriverStatus) error {
	now := time.Now().UTC()
	query := `
		UPDATE drivers
		SET status = $2,
		    doc = jsonb_set(jsonb_set(doc, '{status}', to_jsonb($2::text)), '{updated_at}', to_jsonb($3::text)),
		    updated_at = $4
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, string(status), now.Format(time.RFC3339Nano), now)
	if err != nil {
		r.log.Error("failed to set driver status", logger.String("driver_id", id), logger.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
