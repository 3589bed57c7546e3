package repository

import (
	"context"
	"time"

	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
)

type AddCartItemInput struct {
	Key            string
	ItemType       string
	Title          string
	UnitPriceCents int64
	Quantity       int
	ReservationID  *int64
	PlayerName     *string
	EventDate      *string
	Location       *string
}

type CartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// GetOrCreateOpen returns the customer's open cart, creating one when none
// exists. The partial unique index on (customer_id) WHERE status = 'open'
// keeps concurrent creations down to a single row.
func (r *CartRepository) GetOrCreateOpen(ctx context.Context, customerID int64) (*models.Cart, error) {
	query := `
		INSERT INTO carts (customer_id)
		VALUES ($1)
		ON CONFLICT (customer_id) WHERE status = 'open' DO UPDATE
			SET updated_at = carts.updated_at
		RETURNING id, customer_id, promo_code, credit_cents, status, created_at, updated_at
	`
	cart, err := r.scanCart(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		return nil, err
	}

	items, err := r.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (r *CartRepository) GetOpenForUpdate(ctx context.Context, customerID int64) (*models.Cart, error) {
	query := `
		SELECT id, customer_id, promo_code, credit_cents, status, created_at, updated_at
		FROM carts
		WHERE customer_id = $1 AND status = 'open'
		FOR UPDATE
	`
	cart, err := r.scanCart(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		return nil, err
	}

	items, err := r.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (r *CartRepository) AddItem(ctx context.Context, cartID int64, input AddCartItemInput) (*models.CartItem, error) {
	query := `
		INSERT INTO cart_items
			(key, cart_id, item_type, title, unit_price_cents, quantity,
			 reservation_id, player_name, event_date, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10)
		RETURNING key, cart_id, item_type, title, unit_price_cents, quantity,
				  reservation_id, player_name, event_date, location, created_at
	`
	return r.scanItem(r.db.QueryRow(ctx, query,
		input.Key,
		cartID,
		input.ItemType,
		input.Title,
		input.UnitPriceCents,
		input.Quantity,
		input.ReservationID,
		input.PlayerName,
		input.EventDate,
		input.Location,
	))
}

// RemoveItem deletes the item if present. Removing an absent key is a no-op.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID int64, key string) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND key = $2`
	_, err := r.db.Exec(ctx, query, cartID, key)
	return err
}

func (r *CartRepository) UpdateQuantity(
	ctx context.Context,
	cartID int64,
	key string,
	quantity int,
) (*models.CartItem, error) {
	query := `
		UPDATE cart_items
		SET quantity = $3
		WHERE cart_id = $1 AND key = $2
		RETURNING key, cart_id, item_type, title, unit_price_cents, quantity,
				  reservation_id, player_name, event_date, location, created_at
	`
	return r.scanItem(r.db.QueryRow(ctx, query, cartID, key, quantity))
}

func (r *CartRepository) SetPromoCode(ctx context.Context, cartID int64, code *string) error {
	query := `UPDATE carts SET promo_code = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, cartID, code)
	return err
}

func (r *CartRepository) SetCredit(ctx context.Context, cartID int64, creditCents int64) error {
	query := `UPDATE carts SET credit_cents = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, cartID, creditCents)
	return err
}

// MarkCheckedOut closes the cart; a fresh open cart is created on next use.
func (r *CartRepository) MarkCheckedOut(ctx context.Context, cartID int64) error {
	query := `UPDATE carts SET status = 'checked_out', updated_at = NOW() WHERE id = $1 AND status = 'open'`
	_, err := r.db.Exec(ctx, query, cartID)
	return err
}

func (r *CartRepository) ListItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	query := `
		SELECT key, cart_id, item_type, title, unit_price_cents, quantity,
			   reservation_id, player_name, event_date, location, created_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at ASC, key ASC
	`
	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.CartItem, 0)
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *CartRepository) scanCart(row rowScanner) (*models.Cart, error) {
	var cart models.Cart
	err := row.Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.PromoCode,
		&cart.CreditCents,
		&cart.Status,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cart.Items = make([]models.CartItem, 0)
	return &cart, nil
}

func (r *CartRepository) scanItem(row rowScanner) (*models.CartItem, error) {
	var item models.CartItem
	var eventDate *time.Time
	err := row.Scan(
		&item.Key,
		&item.CartID,
		&item.ItemType,
		&item.Title,
		&item.UnitPriceCents,
		&item.Quantity,
		&item.ReservationID,
		&item.PlayerName,
		&eventDate,
		&item.Location,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if eventDate != nil {
		formatted := eventDate.Format(dateLayout)
		item.EventDate = &formatted
	}
	return &item, nil
}
