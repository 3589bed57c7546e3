package models

import (
	"fmt"
	"time"
)

// AvailabilityWindow is one recurring weekly interval during which a trainer
// accepts bookings. Times are minutes from midnight in the platform timezone.
type AvailabilityWindow struct {
	ID          int64     `json:"id"`
	TrainerID   int64     `json:"trainer_id"`
	DayOfWeek   int       `json:"day_of_week"`
	StartMinute int       `json:"start_minute"`
	EndMinute   int       `json:"end_minute"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Slot is a single offerable unit of trainer time.
type Slot struct {
	Date        string `json:"date"`
	StartMinute int    `json:"start_minute"`
	StartTime   string `json:"start_time"`
}

func FormatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
