package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
)

const dateLayout = "2006-01-02"

type CreateReservationInput struct {
	TrainerID   int64
	CustomerID  int64
	SessionDate string
	StartMinute int
	GroupSize   int
	PackageCode string
	Location    *string
	PriceCents  int64
	HeldUntil   time.Time
}

type ReservationListFilter struct {
	ActorID   int64
	Role      string
	Status    string
	Timeframe string
}

// SlotKey identifies one occupied slot of trainer time.
type SlotKey struct {
	SessionDate string
	StartMinute int
}

type ReservationRepository struct {
	db DBTX
}

func NewReservationRepository(db DBTX) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// IsSlotTaken reports whether err is the unique violation raised by
// reservations_slot_active_key, i.e. a concurrent claim won the slot.
func IsSlotTaken(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == "reservations_slot_active_key"
}

const reservationColumns = `
	id, trainer_id, customer_id, session_date, start_minute, group_size,
	package_code, location, price_cents, status, cancel_reason, held_until,
	created_at, updated_at
`

func (r *ReservationRepository) Create(
	ctx context.Context,
	input CreateReservationInput,
) (*models.Reservation, error) {
	query := fmt.Sprintf(`
		INSERT INTO reservations
			(trainer_id, customer_id, session_date, start_minute, group_size,
			 package_code, location, price_cents, status, held_until)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, 'pending', $9)
		RETURNING %s
	`, reservationColumns)

	return r.scanReservation(r.db.QueryRow(ctx, query,
		input.TrainerID,
		input.CustomerID,
		input.SessionDate,
		input.StartMinute,
		input.GroupSize,
		input.PackageCode,
		input.Location,
		input.PriceCents,
		input.HeldUntil,
	))
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE id = $1`, reservationColumns)
	return r.scanReservation(r.db.QueryRow(ctx, query, id))
}

func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE id = $1 FOR UPDATE`, reservationColumns)
	return r.scanReservation(r.db.QueryRow(ctx, query, id))
}

func (r *ReservationRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id int64,
	currentStatus string,
	nextStatus string,
	reason *string,
) (*models.Reservation, error) {
	query := fmt.Sprintf(`
		UPDATE reservations
		SET status = $3, cancel_reason = COALESCE($4, cancel_reason), updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, reservationColumns)
	return r.scanReservation(r.db.QueryRow(ctx, query, id, currentStatus, nextStatus, reason))
}

// ListReservedSlots returns the occupied (date, start) pairs for the trainer
// inside [from, to). Only live claims count; terminal statuses free the slot.
func (r *ReservationRepository) ListReservedSlots(
	ctx context.Context,
	trainerID int64,
	from string,
	to string,
) (map[SlotKey]struct{}, error) {
	query := `
		SELECT session_date, start_minute
		FROM reservations
		WHERE trainer_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND session_date >= $2::date
		  AND session_date < $3::date
	`
	rows, err := r.db.Query(ctx, query, trainerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reserved := make(map[SlotKey]struct{})
	for rows.Next() {
		var date time.Time
		var startMinute int
		if err := rows.Scan(&date, &startMinute); err != nil {
			return nil, err
		}
		reserved[SlotKey{SessionDate: date.Format(dateLayout), StartMinute: startMinute}] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reserved, nil
}

func (r *ReservationRepository) List(
	ctx context.Context,
	filter ReservationListFilter,
) ([]models.Reservation, error) {
	actorColumn := "customer_id"
	if filter.Role == "trainer" {
		actorColumn = "trainer_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts,
			"(session_date + (start_minute * INTERVAL '1 minute')) > NOW()")
	case "past":
		whereParts = append(whereParts,
			"(session_date + (start_minute * INTERVAL '1 minute')) <= NOW()")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		WHERE %s
		ORDER BY session_date ASC, start_minute ASC, id ASC
	`, reservationColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]models.Reservation, 0)
	for rows.Next() {
		reservation, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

// ExpirePendingBefore cancels pending reservations whose hold lapsed before
// the cutoff and returns how many slots were released.
func (r *ReservationRepository) ExpirePendingBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	query := `
		UPDATE reservations
		SET status = 'cancelled', cancel_reason = 'hold expired', updated_at = NOW()
		WHERE status = 'pending' AND held_until < $1
	`
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ReservationRepository) scanReservation(row rowScanner) (*models.Reservation, error) {
	var reservation models.Reservation
	var sessionDate time.Time
	err := row.Scan(
		&reservation.ID,
		&reservation.TrainerID,
		&reservation.CustomerID,
		&sessionDate,
		&reservation.StartMinute,
		&reservation.GroupSize,
		&reservation.PackageCode,
		&reservation.Location,
		&reservation.PriceCents,
		&reservation.Status,
		&reservation.CancelReason,
		&reservation.HeldUntil,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reservation.SessionDate = sessionDate.Format(dateLayout)
	return &reservation, nil
}
