package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrCartEmpty      = errors.New("cart is empty")
	ErrChargeDeclined = errors.New("charge declined")
)

// Charger is the opaque payment-capture collaborator. The platform only
// hands it the final total and reacts to success or failure.
type Charger interface {
	Charge(ctx context.Context, customerID int64, amountCents int64) error
}

// AutoApproveCharger approves every charge. It stands in for the real
// payment collaborator outside production.
type AutoApproveCharger struct {
	Logger *zap.Logger
}

func (c *AutoApproveCharger) Charge(_ context.Context, customerID int64, amountCents int64) error {
	if c.Logger != nil {
		c.Logger.Info("auto-approved charge",
			zap.Int64("customer_id", customerID),
			zap.Int64("amount_cents", amountCents))
	}
	return nil
}

type CheckoutService struct {
	db             *pgxpool.Pool
	cartService    *CartService
	reservationSvc *ReservationService
	charger        Charger
	logger         *zap.Logger
}

func NewCheckoutService(
	db *pgxpool.Pool,
	cartService *CartService,
	reservationSvc *ReservationService,
	charger Charger,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		db:             db,
		cartService:    cartService,
		reservationSvc: reservationSvc,
		charger:        charger,
		logger:         logger,
	}
}

type CheckoutResult struct {
	CartID         int64             `json:"cart_id"`
	Quote          models.PriceQuote `json:"quote"`
	ReservationIDs []int64           `json:"reservation_ids"`
}

// Checkout prices the open cart, runs the charge, and on success confirms
// the cart's reservations and closes the cart. On a failed capture every
// reservation in the cart is released and the cart stays open.
func (s *CheckoutService) Checkout(ctx context.Context, customerID int64) (*CheckoutResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txCartRepo := repository.NewCartRepository(tx)
	txReservationRepo := repository.NewReservationRepository(tx)

	cart, err := txCartRepo.GetOpenForUpdate(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartEmpty
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	reservationIDs := cartReservationIDs(cart)

	// A pending hold may have been swept while the customer dawdled; treat a
	// released reservation like losing the slot race.
	for _, id := range reservationIDs {
		reservation, err := txReservationRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if reservation.IsTerminal() {
			return nil, &SlotConflictError{
				TrainerID:   reservation.TrainerID,
				SessionDate: reservation.SessionDate,
				StartMinute: reservation.StartMinute,
			}
		}
	}

	quote := s.cartService.QuoteFor(ctx, cart)

	if err := s.charger.Charge(ctx, customerID, quote.TotalCents); err != nil {
		_ = tx.Rollback(ctx)
		s.releaseReservations(ctx, reservationIDs)
		if s.logger != nil {
			s.logger.Warn("charge declined",
				zap.Int64("customer_id", customerID),
				zap.Int64("amount_cents", quote.TotalCents),
				zap.Error(err))
		}
		return nil, ErrChargeDeclined
	}

	for _, id := range reservationIDs {
		if _, err := txReservationRepo.UpdateStatusIfCurrent(
			ctx, id, models.ReservationStatusPending, models.ReservationStatusConfirmed, nil); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Already confirmed is fine; anything else is not.
				current, getErr := txReservationRepo.GetByID(ctx, id)
				if getErr != nil {
					return nil, getErr
				}
				if current.Status != models.ReservationStatusConfirmed {
					return nil, ErrInvalidStateTransition
				}
				continue
			}
			return nil, err
		}
	}

	if err := txCartRepo.MarkCheckedOut(ctx, cart.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		CartID:         cart.ID,
		Quote:          quote,
		ReservationIDs: reservationIDs,
	}, nil
}

func (s *CheckoutService) releaseReservations(ctx context.Context, reservationIDs []int64) {
	for _, id := range reservationIDs {
		if _, err := s.reservationSvc.Cancel(ctx, id, "payment capture failed"); err != nil {
			if s.logger != nil {
				s.logger.Error("failed to release reservation after declined charge",
					zap.Int64("reservation_id", id), zap.Error(err))
			}
		}
	}
}

func cartReservationIDs(cart *models.Cart) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, item := range cart.Items {
		if item.ReservationID == nil {
			continue
		}
		if _, dup := seen[*item.ReservationID]; dup {
			continue
		}
		seen[*item.ReservationID] = struct{}{}
		ids = append(ids, *item.ReservationID)
	}
	return ids
}
