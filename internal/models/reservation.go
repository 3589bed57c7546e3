package models

import "time"

const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusRefunded  = "refunded"
	ReservationStatusCompleted = "completed"
)

type Reservation struct {
	ID           int64     `json:"id"`
	TrainerID    int64     `json:"trainer_id"`
	CustomerID   int64     `json:"customer_id"`
	SessionDate  string    `json:"session_date"`
	StartMinute  int       `json:"start_minute"`
	GroupSize    int       `json:"group_size"`
	PackageCode  string    `json:"package_code"`
	Location     *string   `json:"location"`
	PriceCents   int64     `json:"price_cents"`
	Status       string    `json:"status"`
	CancelReason *string   `json:"cancel_reason"`
	HeldUntil    time.Time `json:"held_until"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTerminal reports whether the reservation no longer occupies its slot.
func (r *Reservation) IsTerminal() bool {
	switch r.Status {
	case ReservationStatusCancelled, ReservationStatusRefunded, ReservationStatusCompleted:
		return true
	}
	return false
}
