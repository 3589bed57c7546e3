package repository

import (
	"context"

	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
)

type UpdateTrainerProfileInput struct {
	FullName        string
	Bio             *string
	Specialties     []string
	HourlyRateCents int64
	HomeLocation    *string
}

type TrainerProfileRepository struct {
	db DBTX
}

func NewTrainerProfileRepository(db DBTX) *TrainerProfileRepository {
	return &TrainerProfileRepository{db: db}
}

func (r *TrainerProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO trainer_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *TrainerProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.TrainerProfile, error) {
	query := `
		SELECT id, user_id, full_name, bio, specialties, hourly_rate_cents,
			   home_location, onboarding_complete, created_at, updated_at
		FROM trainer_profiles
		WHERE user_id = $1
	`
	var profile models.TrainerProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Bio,
		&profile.Specialties,
		&profile.HourlyRateCents,
		&profile.HomeLocation,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *TrainerProfileRepository) Update(
	ctx context.Context,
	userID int64,
	input UpdateTrainerProfileInput,
) (*models.TrainerProfile, error) {
	query := `
		UPDATE trainer_profiles
		SET full_name = $1,
			bio = $2,
			specialties = $3,
			hourly_rate_cents = $4,
			home_location = $5,
			onboarding_complete = TRUE,
			updated_at = NOW()
		WHERE user_id = $6
		RETURNING id, user_id, full_name, bio, specialties, hourly_rate_cents,
				  home_location, onboarding_complete, created_at, updated_at
	`
	var profile models.TrainerProfile
	err := r.db.QueryRow(ctx, query,
		input.FullName,
		input.Bio,
		input.Specialties,
		input.HourlyRateCents,
		input.HomeLocation,
		userID,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Bio,
		&profile.Specialties,
		&profile.HourlyRateCents,
		&profile.HomeLocation,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *TrainerProfileRepository) ListOnboarded(ctx context.Context) ([]models.TrainerProfile, error) {
	query := `
		SELECT id, user_id, full_name, bio, specialties, hourly_rate_cents,
			   home_location, onboarding_complete, created_at, updated_at
		FROM trainer_profiles
		WHERE onboarding_complete
		ORDER BY full_name ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.TrainerProfile, 0)
	for rows.Next() {
		var profile models.TrainerProfile
		if err := rows.Scan(
			&profile.ID,
			&profile.UserID,
			&profile.FullName,
			&profile.Bio,
			&profile.Specialties,
			&profile.HourlyRateCents,
			&profile.HomeLocation,
			&profile.OnboardingComplete,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}
