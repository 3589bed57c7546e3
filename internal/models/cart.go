package models

import "time"

const (
	CartStatusOpen       = "open"
	CartStatusCheckedOut = "checked_out"
)

const (
	ItemTypeTrainingSession = "training_session"
	ItemTypeCamp            = "camp"
	ItemTypeClinic          = "clinic"
	ItemTypeAddOn           = "add_on"
)

type Cart struct {
	ID          int64      `json:"id"`
	CustomerID  int64      `json:"customer_id"`
	PromoCode   *string    `json:"promo_code"`
	CreditCents int64      `json:"credit_cents"`
	Status      string     `json:"status"`
	Items       []CartItem `json:"items"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CartItem struct {
	Key            string    `json:"key"`
	CartID         int64     `json:"cart_id"`
	ItemType       string    `json:"item_type"`
	Title          string    `json:"title"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	ReservationID  *int64    `json:"reservation_id"`
	PlayerName     *string   `json:"player_name"`
	EventDate      *string   `json:"event_date"`
	Location       *string   `json:"location"`
	CreatedAt      time.Time `json:"created_at"`
}

// PriceQuote is derived from cart state and never persisted.
type PriceQuote struct {
	SubtotalCents      int64 `json:"subtotal_cents"`
	DiscountCents      int64 `json:"discount_cents"`
	ProcessingFeeCents int64 `json:"processing_fee_cents"`
	TotalCents         int64 `json:"total_cents"`
}
