package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/pricing"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrSlotConflict           = errors.New("slot already reserved")
	ErrOutsideAvailability    = errors.New("slot outside trainer availability")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrTrainerNotFound        = errors.New("trainer not found")
)

// SlotConflictError identifies the slot an active reservation already holds.
// It matches ErrSlotConflict under errors.Is.
type SlotConflictError struct {
	TrainerID   int64
	SessionDate string
	StartMinute int
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot %s %s for trainer %d is already reserved",
		e.SessionDate, models.FormatMinute(e.StartMinute), e.TrainerID)
}

func (e *SlotConflictError) Unwrap() error { return ErrSlotConflict }

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type trainerProfileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.TrainerProfile, error)
}

type reservationStore interface {
	GetByID(ctx context.Context, id int64) (*models.Reservation, error)
	UpdateStatusIfCurrent(ctx context.Context, id int64, currentStatus, nextStatus string, reason *string) (*models.Reservation, error)
	List(ctx context.Context, filter repository.ReservationListFilter) ([]models.Reservation, error)
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ReservationService struct {
	db                 *pgxpool.Pool
	reservationRepo    reservationStore
	availabilityRepo   availabilityReader
	userRepo           userReader
	trainerProfileRepo trainerProfileReader
	policy             pricing.Policy
	holdWindow         time.Duration
	now                func() time.Time
}

func NewReservationService(
	db *pgxpool.Pool,
	reservationRepo reservationStore,
	availabilityRepo availabilityReader,
	userRepo userReader,
	trainerProfileRepo trainerProfileReader,
	policy pricing.Policy,
	holdWindow time.Duration,
) *ReservationService {
	return &ReservationService{
		db:                 db,
		reservationRepo:    reservationRepo,
		availabilityRepo:   availabilityRepo,
		userRepo:           userRepo,
		trainerProfileRepo: trainerProfileRepo,
		policy:             policy,
		holdWindow:         holdWindow,
		now:                time.Now,
	}
}

type ReserveInput struct {
	TrainerID   int64
	SessionDate string
	StartMinute int
	GroupSize   int
	PackageCode string
	Location    *string
}

// Reserve claims one slot for the customer. The check-then-create race is
// closed by the partial unique index on live reservations: of two concurrent
// claims exactly one insert succeeds and the other surfaces ErrSlotConflict.
func (s *ReservationService) Reserve(
	ctx context.Context,
	customerID int64,
	input ReserveInput,
) (*models.Reservation, error) {
	if input.TrainerID <= 0 || customerID == input.TrainerID {
		return nil, ErrInvalidInput
	}
	if input.StartMinute < 0 || input.StartMinute+SlotGranularityMinutes > 24*60 {
		return nil, ErrInvalidInput
	}

	date, err := time.ParseInLocation(dateLayout, input.SessionDate, s.now().Location())
	if err != nil {
		return nil, ErrInvalidInput
	}
	slotStart := date.Add(time.Duration(input.StartMinute) * time.Minute)
	if !slotStart.After(s.now()) {
		return nil, ErrInvalidInput
	}

	trainer, err := s.userRepo.GetByID(ctx, input.TrainerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}
	if trainer.Role != "trainer" {
		return nil, ErrInvalidInput
	}

	profile, err := s.trainerProfileRepo.GetByUserID(ctx, input.TrainerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}
	if !profile.OnboardingComplete || profile.HourlyRateCents == nil || *profile.HourlyRateCents <= 0 {
		return nil, ErrInvalidInput
	}

	priceCents, err := s.policy.PriceLine(*profile.HourlyRateCents, input.GroupSize, input.PackageCode)
	if err != nil {
		return nil, ErrInvalidInput
	}

	windows, err := s.availabilityRepo.ListActiveByTrainer(ctx, input.TrainerID)
	if err != nil {
		return nil, err
	}
	if !slotInsideWindows(windows, int(date.Weekday()), input.StartMinute) {
		return nil, ErrOutsideAvailability
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txReservationRepo := repository.NewReservationRepository(tx)
	reservation, err := txReservationRepo.Create(ctx, repository.CreateReservationInput{
		TrainerID:   input.TrainerID,
		CustomerID:  customerID,
		SessionDate: input.SessionDate,
		StartMinute: input.StartMinute,
		GroupSize:   input.GroupSize,
		PackageCode: input.PackageCode,
		Location:    input.Location,
		PriceCents:  priceCents,
		HeldUntil:   s.now().Add(s.holdWindow),
	})
	if err != nil {
		if repository.IsSlotTaken(err) {
			return nil, &SlotConflictError{
				TrainerID:   input.TrainerID,
				SessionDate: input.SessionDate,
				StartMinute: input.StartMinute,
			}
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return reservation, nil
}

// Confirm moves a pending reservation to confirmed, normally on payment
// capture. Confirming an already-confirmed reservation is a no-op.
func (s *ReservationService) Confirm(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	switch reservation.Status {
	case models.ReservationStatusConfirmed:
		return reservation, nil
	case models.ReservationStatusPending:
		updated, err := s.reservationRepo.UpdateStatusIfCurrent(
			ctx, reservationID, models.ReservationStatusPending, models.ReservationStatusConfirmed, nil)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidStateTransition
			}
			return nil, err
		}
		return updated, nil
	default:
		return nil, ErrInvalidStateTransition
	}
}

// Cancel releases a reservation's slot. A confirmed (paid) reservation
// cancels into refunded; cancelling an already-released one is a no-op.
func (s *ReservationService) Cancel(ctx context.Context, reservationID int64, reason string) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonPtr = &trimmed
	}

	switch reservation.Status {
	case models.ReservationStatusCancelled, models.ReservationStatusRefunded:
		return reservation, nil
	case models.ReservationStatusPending:
		return s.cancelInto(ctx, reservationID, models.ReservationStatusPending,
			models.ReservationStatusCancelled, reasonPtr)
	case models.ReservationStatusConfirmed:
		return s.cancelInto(ctx, reservationID, models.ReservationStatusConfirmed,
			models.ReservationStatusRefunded, reasonPtr)
	default:
		return nil, ErrInvalidStateTransition
	}
}

func (s *ReservationService) cancelInto(
	ctx context.Context,
	reservationID int64,
	currentStatus string,
	nextStatus string,
	reason *string,
) (*models.Reservation, error) {
	updated, err := s.reservationRepo.UpdateStatusIfCurrent(ctx, reservationID, currentStatus, nextStatus, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a race with another transition; re-read and let the
			// idempotent cases resolve.
			current, getErr := s.reservationRepo.GetByID(ctx, reservationID)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status == models.ReservationStatusCancelled ||
				current.Status == models.ReservationStatusRefunded {
				return current, nil
			}
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return updated, nil
}

func (s *ReservationService) GetReservation(
	ctx context.Context,
	actorID int64,
	role string,
	reservationID int64,
) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !canAccessReservation(role, actorID, reservation) {
		return nil, ErrForbidden
	}
	return reservation, nil
}

func (s *ReservationService) ListReservations(
	ctx context.Context,
	actorID int64,
	role string,
	filter repository.ReservationListFilter,
) ([]models.Reservation, error) {
	return s.reservationRepo.List(ctx, repository.ReservationListFilter{
		ActorID:   actorID,
		Role:      role,
		Status:    filter.Status,
		Timeframe: filter.Timeframe,
	})
}

// UpdateStatus is the caller-facing transition path with access checks; the
// checkout boundary uses Confirm and Cancel directly.
func (s *ReservationService) UpdateStatus(
	ctx context.Context,
	actorID int64,
	role string,
	reservationID int64,
	requestedStatus string,
	reason string,
) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !canAccessReservation(role, actorID, reservation) {
		return nil, ErrForbidden
	}

	nextStatus, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if err := validateStatusTransition(role, actorID, reservation, nextStatus, s.now()); err != nil {
		return nil, err
	}

	switch nextStatus {
	case models.ReservationStatusConfirmed:
		return s.Confirm(ctx, reservationID)
	case models.ReservationStatusCancelled:
		return s.Cancel(ctx, reservationID, reason)
	case models.ReservationStatusCompleted:
		updated, err := s.reservationRepo.UpdateStatusIfCurrent(
			ctx, reservationID, models.ReservationStatusConfirmed, models.ReservationStatusCompleted, nil)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidStateTransition
			}
			return nil, err
		}
		return updated, nil
	default:
		return nil, ErrInvalidStatus
	}
}

// ReleaseExpiredHolds cancels pending reservations whose checkout hold has
// lapsed, freeing their slots. Scheduling is left to the operator.
func (s *ReservationService) ReleaseExpiredHolds(ctx context.Context) (int64, error) {
	return s.reservationRepo.ExpirePendingBefore(ctx, s.now())
}

// slotInsideWindows accepts a start only when it sits on the slot grid of a
// matching window. The grid is anchored at the window's own start minute, so
// a 16:30-18:30 window books at 16:30 and 17:30, never at 17:00.
func slotInsideWindows(windows []models.AvailabilityWindow, dayOfWeek, startMinute int) bool {
	for _, window := range windows {
		if !window.Active || window.DayOfWeek != dayOfWeek {
			continue
		}
		if window.StartMinute <= startMinute &&
			startMinute+SlotGranularityMinutes <= window.EndMinute &&
			(startMinute-window.StartMinute)%SlotGranularityMinutes == 0 {
			return true
		}
	}
	return false
}

func canAccessReservation(role string, actorID int64, reservation *models.Reservation) bool {
	if role == "customer" {
		return reservation.CustomerID == actorID
	}
	if role == "trainer" {
		return reservation.TrainerID == actorID
	}
	return false
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "confirm", "confirmed":
		return models.ReservationStatusConfirmed, nil
	case "complete", "completed":
		return models.ReservationStatusCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.ReservationStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

func validateStatusTransition(
	role string,
	actorID int64,
	reservation *models.Reservation,
	nextStatus string,
	now time.Time,
) error {
	switch role {
	case "customer":
		if reservation.CustomerID != actorID || nextStatus != models.ReservationStatusCancelled {
			return ErrForbidden
		}
		if reservation.Status == models.ReservationStatusCompleted {
			return ErrInvalidStateTransition
		}
		return nil
	case "trainer":
		if reservation.TrainerID != actorID {
			return ErrForbidden
		}
		switch nextStatus {
		case models.ReservationStatusConfirmed:
			if reservation.Status != models.ReservationStatusPending &&
				reservation.Status != models.ReservationStatusConfirmed {
				return ErrInvalidStateTransition
			}
		case models.ReservationStatusCompleted:
			if reservation.Status != models.ReservationStatusConfirmed {
				return ErrInvalidStateTransition
			}
			date, err := time.ParseInLocation(dateLayout, reservation.SessionDate, now.Location())
			if err != nil {
				return ErrInvalidStateTransition
			}
			sessionEnd := date.Add(time.Duration(reservation.StartMinute+SlotGranularityMinutes) * time.Minute)
			if sessionEnd.After(now) {
				return ErrInvalidStateTransition
			}
		case models.ReservationStatusCancelled:
			if reservation.Status == models.ReservationStatusCompleted {
				return ErrInvalidStateTransition
			}
		default:
			return ErrInvalidStatus
		}
		return nil
	default:
		return ErrForbidden
	}
}
