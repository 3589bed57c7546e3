package models

import "time"

type TrainerProfile struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	FullName           *string   `json:"full_name"`
	Bio                *string   `json:"bio"`
	Specialties        *[]string `json:"specialties"`
	HourlyRateCents    *int64    `json:"hourly_rate_cents"`
	HomeLocation       *string   `json:"home_location"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
