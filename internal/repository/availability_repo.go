package repository

import (
	"context"

	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
)

type AvailabilityWindowInput struct {
	DayOfWeek   int
	StartMinute int
	EndMinute   int
	Active      bool
}

type AvailabilityRepository struct {
	db DBTX
}

func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) ListByTrainer(
	ctx context.Context,
	trainerID int64,
) ([]models.AvailabilityWindow, error) {
	query := `
		SELECT id, trainer_id, day_of_week, start_minute, end_minute, active, created_at
		FROM availability_windows
		WHERE trainer_id = $1
		ORDER BY day_of_week ASC, start_minute ASC, id ASC
	`
	return r.scanWindows(ctx, query, trainerID)
}

func (r *AvailabilityRepository) ListActiveByTrainer(
	ctx context.Context,
	trainerID int64,
) ([]models.AvailabilityWindow, error) {
	query := `
		SELECT id, trainer_id, day_of_week, start_minute, end_minute, active, created_at
		FROM availability_windows
		WHERE trainer_id = $1 AND active
		ORDER BY day_of_week ASC, start_minute ASC, id ASC
	`
	return r.scanWindows(ctx, query, trainerID)
}

// Replace swaps the trainer's whole weekly pattern in one statement sequence.
// Callers run it inside a transaction.
func (r *AvailabilityRepository) Replace(
	ctx context.Context,
	trainerID int64,
	windows []AvailabilityWindowInput,
) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM availability_windows WHERE trainer_id = $1`, trainerID); err != nil {
		return err
	}

	query := `
		INSERT INTO availability_windows (trainer_id, day_of_week, start_minute, end_minute, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, window := range windows {
		if _, err := r.db.Exec(ctx, query,
			trainerID,
			window.DayOfWeek,
			window.StartMinute,
			window.EndMinute,
			window.Active,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *AvailabilityRepository) scanWindows(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.AvailabilityWindow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := make([]models.AvailabilityWindow, 0)
	for rows.Next() {
		var window models.AvailabilityWindow
		if err := rows.Scan(
			&window.ID,
			&window.TrainerID,
			&window.DayOfWeek,
			&window.StartMinute,
			&window.EndMinute,
			&window.Active,
			&window.CreatedAt,
		); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return windows, nil
}
