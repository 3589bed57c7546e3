package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/pricing"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/promo"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrUnknownPromo    = errors.New("unknown promo code")
)

type cartStore interface {
	GetOrCreateOpen(ctx context.Context, customerID int64) (*models.Cart, error)
	AddItem(ctx context.Context, cartID int64, input repository.AddCartItemInput) (*models.CartItem, error)
	RemoveItem(ctx context.Context, cartID int64, key string) error
	UpdateQuantity(ctx context.Context, cartID int64, key string, quantity int) (*models.CartItem, error)
	SetPromoCode(ctx context.Context, cartID int64, code *string) error
	ListItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
}

type PromoSource interface {
	Lookup(ctx context.Context, code string, customerID int64) (*promo.Discount, error)
}

type reservationReader interface {
	GetByID(ctx context.Context, id int64) (*models.Reservation, error)
}

type CartService struct {
	cartRepo        cartStore
	reservationRepo reservationReader
	promoSource     PromoSource
	policy          pricing.Policy
	logger          *zap.Logger
	now             func() time.Time
}

func NewCartService(
	cartRepo cartStore,
	reservationRepo reservationReader,
	promoSource PromoSource,
	policy pricing.Policy,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		cartRepo:        cartRepo,
		reservationRepo: reservationRepo,
		promoSource:     promoSource,
		policy:          policy,
		logger:          logger,
		now:             time.Now,
	}
}

type AddCartItemInput struct {
	ItemType       string
	Title          string
	UnitPriceCents int64
	Quantity       int
	ReservationID  *int64
	PlayerName     *string
	EventDate      *string
	Location       *string
}

func (s *CartService) GetCart(ctx context.Context, customerID int64) (*models.Cart, models.PriceQuote, error) {
	cart, err := s.cartRepo.GetOrCreateOpen(ctx, customerID)
	if err != nil {
		return nil, models.PriceQuote{}, err
	}
	return cart, s.QuoteFor(ctx, cart), nil
}

// AddItem appends one line. Session lines are priced by the pricing engine at
// reserve time; the cart copies that price and never re-derives it. Other
// variants carry their catalog price in the request.
func (s *CartService) AddItem(
	ctx context.Context,
	customerID int64,
	input AddCartItemInput,
) (*models.Cart, models.PriceQuote, error) {
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 1 {
		return nil, models.PriceQuote{}, ErrInvalidQuantity
	}

	switch input.ItemType {
	case models.ItemTypeTrainingSession:
		if input.ReservationID == nil {
			return nil, models.PriceQuote{}, ErrInvalidInput
		}
		reservation, err := s.reservationRepo.GetByID(ctx, *input.ReservationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, models.PriceQuote{}, ErrInvalidInput
			}
			return nil, models.PriceQuote{}, err
		}
		if reservation.CustomerID != customerID || reservation.IsTerminal() {
			return nil, models.PriceQuote{}, ErrInvalidInput
		}
		input.UnitPriceCents = reservation.PriceCents
		// One reservation claims one slot.
		input.Quantity = 1
		if strings.TrimSpace(input.Title) == "" {
			input.Title = fmt.Sprintf("Training session %s %s",
				reservation.SessionDate, models.FormatMinute(reservation.StartMinute))
		}
		if input.EventDate == nil {
			input.EventDate = &reservation.SessionDate
		}
	case models.ItemTypeCamp, models.ItemTypeClinic, models.ItemTypeAddOn:
		if input.ReservationID != nil || input.UnitPriceCents < 0 ||
			strings.TrimSpace(input.Title) == "" {
			return nil, models.PriceQuote{}, ErrInvalidInput
		}
	default:
		return nil, models.PriceQuote{}, ErrInvalidInput
	}

	cart, err := s.cartRepo.GetOrCreateOpen(ctx, customerID)
	if err != nil {
		return nil, models.PriceQuote{}, err
	}

	if _, err := s.cartRepo.AddItem(ctx, cart.ID, repository.AddCartItemInput{
		Key:            uuid.NewString(),
		ItemType:       input.ItemType,
		Title:          strings.TrimSpace(input.Title),
		UnitPriceCents: input.UnitPriceCents,
		Quantity:       input.Quantity,
		ReservationID:  input.ReservationID,
		PlayerName:     input.PlayerName,
		EventDate:      input.EventDate,
		Location:       input.Location,
	}); err != nil {
		return nil, models.PriceQuote{}, err
	}

	return s.GetCart(ctx, customerID)
}

// RemoveItem drops the line if present; an unknown key is a no-op.
func (s *CartService) RemoveItem(
	ctx context.Context,
	customerID int64,
	key string,
) (*models.Cart, models.PriceQuote, error) {
	cart, err := s.cartRepo.GetOrCreateOpen(ctx, customerID)
	if err != nil {
		return nil, models.PriceQuote{}, err
	}
	if err := s.cartRepo.RemoveItem(ctx, cart.ID, key); err != nil {
		return nil, models.PriceQuote{}, err
	}
	return s.GetCart(ctx, customerID)
}

// SetQuantity adjusts a line's quantity. The minimum is 1; removal is the
// only way to drop a line.
func (s *CartService) SetQuantity(
	ctx context.Context,
	customerID int64,
	key string,
	quantity int,
) (*models.Cart, models.PriceQuote, error) {
	if quantity < 1 {
		return nil, models.PriceQuote{}, ErrInvalidQuantity
	}

	cart, err := s.cartRepo.GetOrCreateOpen(ctx, customerID)
	if err != nil {
		return nil, models.PriceQuote{}, err
	}
	if _, err := s.cartRepo.UpdateQuantity(ctx, cart.ID, key, quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.PriceQuote{}, ErrItemNotFound
		}
		return nil, models.PriceQuote{}, err
	}
	return s.GetCart(ctx, customerID)
}

// ApplyPromo validates the code against the promo service and stores it on
// the cart. An unknown code is rejected without touching cart state; a code
// that is currently expired or consumed degrades to no discount applied.
func (s *CartService) ApplyPromo(
	ctx context.Context,
	customerID int64,
	code string,
) (*models.Cart, models.PriceQuote, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, models.PriceQuote{}, ErrInvalidInput
	}
	if s.promoSource == nil {
		return nil, models.PriceQuote{}, ErrUnknownPromo
	}

	discount, err := s.promoSource.Lookup(ctx, code, customerID)
	if err != nil {
		if errors.Is(err, promo.ErrUnknownCode) {
			return nil, models.PriceQuote{}, ErrUnknownPromo
		}
		return nil, models.PriceQuote{}, err
	}

	cart, err := s.cartRepo.GetOrCreateOpen(ctx, customerID)
	if err != nil {
		return nil, models.PriceQuote{}, err
	}
	if !discount.Usable(s.now()) {
		// Expired or consumed: leave the cart as it was.
		return cart, s.QuoteFor(ctx, cart), nil
	}
	if err := s.cartRepo.SetPromoCode(ctx, cart.ID, &code); err != nil {
		return nil, models.PriceQuote{}, err
	}
	return s.GetCart(ctx, customerID)
}

// QuoteFor derives the price quote from current cart state. Lookup failures
// on an attached promo code reduce to "no discount"; pricing never blocks on
// the promo service.
func (s *CartService) QuoteFor(ctx context.Context, cart *models.Cart) models.PriceQuote {
	subtotal := pricing.Subtotal(cart.Items)

	discountCents := cart.CreditCents
	if cart.PromoCode != nil && s.promoSource != nil {
		discount, err := s.promoSource.Lookup(ctx, *cart.PromoCode, cart.CustomerID)
		switch {
		case err != nil:
			if s.logger != nil {
				s.logger.Debug("promo lookup failed, pricing without discount",
					zap.String("code", *cart.PromoCode), zap.Error(err))
			}
		case discount.Usable(s.now()):
			discountCents += pricing.PercentDiscount(subtotal, discount.PercentBps) + discount.AmountCents
		}
	}

	return s.policy.Quote(cart.Items, discountCents)
}
