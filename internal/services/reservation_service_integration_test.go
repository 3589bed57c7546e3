package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestReservationServiceConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationReservationService(t, pool)

	trainerID := createTestTrainer(t, ctx, pool, 6000)
	customerIDs := make([]int64, 8)
	for i := range customerIDs {
		customerIDs[i] = createTestCustomer(t, ctx, pool)
	}
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, append(customerIDs, trainerID)...) })

	input := ReserveInput{
		TrainerID:   trainerID,
		SessionDate: futureSessionDate(),
		StartMinute: 10 * 60,
		GroupSize:   1,
		PackageCode: "single",
	}

	var wg sync.WaitGroup
	results := make([]error, len(customerIDs))
	for i, customerID := range customerIDs {
		wg.Add(1)
		go func(i int, customerID int64) {
			defer wg.Done()
			_, results[i] = service.Reserve(ctx, customerID, input)
		}(i, customerID)
	}
	wg.Wait()

	var won, lost int
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotConflict):
			lost++
		default:
			t.Fatalf("unexpected Reserve error: %v", err)
		}
	}
	if won != 1 || lost != len(customerIDs)-1 {
		t.Fatalf("expected exactly one winner, got %d winners and %d conflicts", won, lost)
	}
}

func TestReservationReleaseReopensSlot(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationReservationService(t, pool)

	trainerID := createTestTrainer(t, ctx, pool, 6000)
	firstCustomerID := createTestCustomer(t, ctx, pool)
	secondCustomerID := createTestCustomer(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, trainerID, firstCustomerID, secondCustomerID) })

	input := ReserveInput{
		TrainerID:   trainerID,
		SessionDate: futureSessionDate(),
		StartMinute: 11 * 60,
		GroupSize:   2,
		PackageCode: "3-pack",
	}

	first, err := service.Reserve(ctx, firstCustomerID, input)
	if err != nil {
		t.Fatalf("first Reserve: %v", err)
	}
	if _, err := service.Reserve(ctx, secondCustomerID, input); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict while slot is held, got %v", err)
	}

	if _, err := service.Cancel(ctx, first.ID, "freeing the slot"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	retaken, err := service.Reserve(ctx, secondCustomerID, input)
	if err != nil {
		t.Fatalf("Reserve after release: %v", err)
	}
	if retaken.Status != models.ReservationStatusPending {
		t.Fatalf("expected pending reservation, got %q", retaken.Status)
	}
}

func TestReservationExpiredHoldSweep(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationReservationService(t, pool)

	trainerID := createTestTrainer(t, ctx, pool, 6000)
	customerID := createTestCustomer(t, ctx, pool)
	otherCustomerID := createTestCustomer(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, trainerID, customerID, otherCustomerID) })

	input := ReserveInput{
		TrainerID:   trainerID,
		SessionDate: futureSessionDate(),
		StartMinute: 14 * 60,
		GroupSize:   1,
		PackageCode: "single",
	}
	reservation, err := service.Reserve(ctx, customerID, input)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if _, err := pool.Exec(ctx,
		"UPDATE reservations SET held_until = NOW() - INTERVAL '1 minute' WHERE id = $1",
		reservation.ID); err != nil {
		t.Fatalf("backdate hold: %v", err)
	}

	if _, err := service.ReleaseExpiredHolds(ctx); err != nil {
		t.Fatalf("ReleaseExpiredHolds: %v", err)
	}

	swept, err := service.GetReservation(ctx, customerID, "customer", reservation.ID)
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if swept.Status != models.ReservationStatusCancelled {
		t.Fatalf("expected cancelled after sweep, got %q", swept.Status)
	}

	if _, err := service.Reserve(ctx, otherCustomerID, input); err != nil {
		t.Fatalf("Reserve after sweep: %v", err)
	}
}

func TestCheckoutConfirmsReservationsAndClosesCart(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	reservationSvc := newIntegrationReservationService(t, pool)
	cartSvc := NewCartService(
		repository.NewCartRepository(pool),
		repository.NewReservationRepository(pool),
		nil,
		testPolicy(t),
		nil,
	)
	checkoutSvc := NewCheckoutService(pool, cartSvc, reservationSvc, &AutoApproveCharger{}, nil)

	trainerID := createTestTrainer(t, ctx, pool, 6000)
	customerID := createTestCustomer(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, trainerID, customerID) })

	reservation, err := reservationSvc.Reserve(ctx, customerID, ReserveInput{
		TrainerID:   trainerID,
		SessionDate: futureSessionDate(),
		StartMinute: 9 * 60,
		GroupSize:   1,
		PackageCode: "single",
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if _, _, err := cartSvc.AddItem(ctx, customerID, AddCartItemInput{
		ItemType:      models.ItemTypeTrainingSession,
		ReservationID: &reservation.ID,
	}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	result, err := checkoutSvc.Checkout(ctx, customerID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(result.ReservationIDs) != 1 || result.ReservationIDs[0] != reservation.ID {
		t.Fatalf("expected reservation %d in result, got %v", reservation.ID, result.ReservationIDs)
	}
	if result.Quote.SubtotalCents != reservation.PriceCents {
		t.Fatalf("expected subtotal %d, got %d", reservation.PriceCents, result.Quote.SubtotalCents)
	}

	confirmed, err := reservationSvc.GetReservation(ctx, customerID, "customer", reservation.ID)
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if confirmed.Status != models.ReservationStatusConfirmed {
		t.Fatalf("expected confirmed after checkout, got %q", confirmed.Status)
	}

	// The old cart is closed; asking again opens a fresh empty one.
	cart, _, err := cartSvc.GetCart(ctx, customerID)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.ID == result.CartID || len(cart.Items) != 0 {
		t.Fatalf("expected a fresh empty cart, got cart %d with %d items", cart.ID, len(cart.Items))
	}

	if _, err := checkoutSvc.Checkout(ctx, customerID); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty on re-checkout, got %v", err)
	}
}

type declineAllCharger struct{}

func (declineAllCharger) Charge(_ context.Context, _ int64, _ int64) error {
	return fmt.Errorf("card declined")
}

func TestCheckoutDeclinedChargeReleasesReservations(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	reservationSvc := newIntegrationReservationService(t, pool)
	cartSvc := NewCartService(
		repository.NewCartRepository(pool),
		repository.NewReservationRepository(pool),
		nil,
		testPolicy(t),
		nil,
	)
	checkoutSvc := NewCheckoutService(pool, cartSvc, reservationSvc, declineAllCharger{}, nil)

	trainerID := createTestTrainer(t, ctx, pool, 6000)
	customerID := createTestCustomer(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, trainerID, customerID) })

	reservation, err := reservationSvc.Reserve(ctx, customerID, ReserveInput{
		TrainerID:   trainerID,
		SessionDate: futureSessionDate(),
		StartMinute: 15 * 60,
		GroupSize:   1,
		PackageCode: "single",
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	cartBefore, _, err := cartSvc.AddItem(ctx, customerID, AddCartItemInput{
		ItemType:      models.ItemTypeTrainingSession,
		ReservationID: &reservation.ID,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if _, err := checkoutSvc.Checkout(ctx, customerID); !errors.Is(err, ErrChargeDeclined) {
		t.Fatalf("expected ErrChargeDeclined, got %v", err)
	}

	released, err := reservationSvc.GetReservation(ctx, customerID, "customer", reservation.ID)
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if released.Status != models.ReservationStatusCancelled {
		t.Fatalf("expected cancelled after declined charge, got %q", released.Status)
	}

	// The cart stays open with its items so the customer can retry payment.
	cart, _, err := cartSvc.GetCart(ctx, customerID)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.ID != cartBefore.ID {
		t.Fatalf("expected cart %d to stay open, got cart %d", cartBefore.ID, cart.ID)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected cart to keep its item, got %d items", len(cart.Items))
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationReservationService(t *testing.T, pool *pgxpool.Pool) *ReservationService {
	t.Helper()
	return NewReservationService(
		pool,
		repository.NewReservationRepository(pool),
		repository.NewAvailabilityRepository(pool),
		repository.NewUserRepository(pool),
		repository.NewTrainerProfileRepository(pool),
		testPolicy(t),
		30*time.Minute,
	)
}

// futureSessionDate picks a date far enough out that slot-start validation
// never races the wall clock.
func futureSessionDate() string {
	return time.Now().AddDate(0, 0, 14).Format("2006-01-02")
}

func createTestCustomer(t *testing.T, ctx context.Context, pool *pgxpool.Pool) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("reservation-test-customer-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         "customer",
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(customer): %v", err)
	}
	return user.ID
}

func createTestTrainer(t *testing.T, ctx context.Context, pool *pgxpool.Pool, hourlyRateCents int64) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("reservation-test-trainer-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         "trainer",
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(trainer): %v", err)
	}

	profileRepo := repository.NewTrainerProfileRepository(pool)
	if err := profileRepo.CreateEmpty(ctx, user.ID); err != nil {
		t.Fatalf("CreateEmpty trainer profile: %v", err)
	}
	if _, err := profileRepo.Update(ctx, user.ID, repository.UpdateTrainerProfileInput{
		FullName:        "Test Trainer",
		Specialties:     []string{"shooting"},
		HourlyRateCents: hourlyRateCents,
	}); err != nil {
		t.Fatalf("Update trainer profile: %v", err)
	}

	// Open every day so any future session date lands inside a window.
	windows := make([]repository.AvailabilityWindowInput, 0, 7)
	for day := 0; day < 7; day++ {
		windows = append(windows, repository.AvailabilityWindowInput{
			DayOfWeek:   day,
			StartMinute: 8 * 60,
			EndMinute:   18 * 60,
			Active:      true,
		})
	}
	if err := repository.NewAvailabilityRepository(pool).Replace(ctx, user.ID, windows); err != nil {
		t.Fatalf("Replace availability: %v", err)
	}

	return user.ID
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx,
		"DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE customer_id = ANY($1))",
		userIDs); err != nil {
		t.Fatalf("cleanup cart items: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM carts WHERE customer_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup carts: %v", err)
	}
	if _, err := pool.Exec(ctx,
		"DELETE FROM reservations WHERE customer_id = ANY($1) OR trainer_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup reservations: %v", err)
	}
	if _, err := pool.Exec(ctx,
		"DELETE FROM availability_windows WHERE trainer_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup availability: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM trainer_profiles WHERE user_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup trainer profiles: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
