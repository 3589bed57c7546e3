package services

import (
	"context"
	"testing"
	"time"

	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
)

type stubAvailabilityRepo struct {
	windows []models.AvailabilityWindow
	err     error
}

func (r *stubAvailabilityRepo) ListActiveByTrainer(_ context.Context, _ int64) ([]models.AvailabilityWindow, error) {
	return r.windows, r.err
}

type stubReservedSlotRepo struct {
	reserved map[repository.SlotKey]struct{}
	err      error
}

func (r *stubReservedSlotRepo) ListReservedSlots(
	_ context.Context, _ int64, _, _ string,
) (map[repository.SlotKey]struct{}, error) {
	if r.reserved == nil {
		return map[repository.SlotKey]struct{}{}, r.err
	}
	return r.reserved, r.err
}

func newTestSlotService(
	windows []models.AvailabilityWindow,
	reserved map[repository.SlotKey]struct{},
	now time.Time,
) *SlotService {
	service := NewSlotService(
		&stubAvailabilityRepo{windows: windows},
		&stubReservedSlotRepo{reserved: reserved},
		60,
		90,
	)
	service.now = func() time.Time { return now }
	return service
}

// Monday June 3rd, 2030.
var testNow = time.Date(2030, 6, 3, 8, 0, 0, 0, time.UTC)

func TestListSlotsEnumeratesWindows(t *testing.T) {
	// Tuesdays 16:00-20:00.
	windows := []models.AvailabilityWindow{
		{TrainerID: 7, DayOfWeek: 2, StartMinute: 16 * 60, EndMinute: 20 * 60, Active: true},
	}
	service := newTestSlotService(windows, nil, testNow)

	from := time.Date(2030, 6, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	slots, err := service.ListSlots(context.Background(), 7, from, to)
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}

	// One Tuesday (June 4th) in range, four hourly starts.
	expected := []int{960, 1020, 1080, 1140}
	if len(slots) != len(expected) {
		t.Fatalf("expected %d slots, got %d: %+v", len(expected), len(slots), slots)
	}
	for i, slot := range slots {
		if slot.Date != "2030-06-04" {
			t.Fatalf("slot %d: expected date 2030-06-04, got %s", i, slot.Date)
		}
		if slot.StartMinute != expected[i] {
			t.Fatalf("slot %d: expected start %d, got %d", i, expected[i], slot.StartMinute)
		}
	}
	if slots[0].StartTime != "16:00" {
		t.Fatalf("expected 16:00, got %s", slots[0].StartTime)
	}
}

func TestListSlotsSkipsPartialTrailingHour(t *testing.T) {
	// 09:00-10:30 only fits the 09:00 start.
	windows := []models.AvailabilityWindow{
		{TrainerID: 7, DayOfWeek: 2, StartMinute: 9 * 60, EndMinute: 10*60 + 30, Active: true},
	}
	service := newTestSlotService(windows, nil, testNow)

	from := time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 6, 5, 0, 0, 0, 0, time.UTC)
	slots, err := service.ListSlots(context.Background(), 7, from, to)
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	if len(slots) != 1 || slots[0].StartMinute != 540 {
		t.Fatalf("expected single 09:00 slot, got %+v", slots)
	}
}

func TestListSlotsHalfHourWindowSlotsAreReservable(t *testing.T) {
	// Tuesdays 16:30-18:30: the grid is offset from the clock hour, and every
	// offered start must pass the same window check Reserve applies.
	windows := []models.AvailabilityWindow{
		{TrainerID: 7, DayOfWeek: 2, StartMinute: 16*60 + 30, EndMinute: 18*60 + 30, Active: true},
	}
	service := newTestSlotService(windows, nil, testNow)

	from := time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 6, 5, 0, 0, 0, 0, time.UTC)
	slots, err := service.ListSlots(context.Background(), 7, from, to)
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}

	expected := []int{16*60 + 30, 17*60 + 30}
	if len(slots) != len(expected) {
		t.Fatalf("expected %d slots, got %d: %+v", len(expected), len(slots), slots)
	}
	for i, slot := range slots {
		if slot.StartMinute != expected[i] {
			t.Fatalf("slot %d: expected start %d, got %d", i, expected[i], slot.StartMinute)
		}
		day, err := time.Parse("2006-01-02", slot.Date)
		if err != nil {
			t.Fatalf("slot %d: bad date %q", i, slot.Date)
		}
		if !slotInsideWindows(windows, int(day.Weekday()), slot.StartMinute) {
			t.Fatalf("offered slot %s %d is not reservable", slot.Date, slot.StartMinute)
		}
	}
	if slots[0].StartTime != "16:30" {
		t.Fatalf("expected start time 16:30, got %s", slots[0].StartTime)
	}
}

func TestListSlotsDeduplicatesOverlappingWindows(t *testing.T) {
	windows := []models.AvailabilityWindow{
		{TrainerID: 7, DayOfWeek: 2, StartMinute: 16 * 60, EndMinute: 19 * 60, Active: true},
		{TrainerID: 7, DayOfWeek: 2, StartMinute: 16 * 60, EndMinute: 20 * 60, Active: true},
	}
	service := newTestSlotService(windows, nil, testNow)

	from := time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 6, 5, 0, 0, 0, 0, time.UTC)
	slots, err := service.ListSlots(context.Background(), 7, from, to)
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}

	seen := make(map[int]bool)
	for _, slot := range slots {
		if seen[slot.StartMinute] {
			t.Fatalf("duplicate slot at %d", slot.StartMinute)
		}
		seen[slot.StartMinute] = true
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 distinct slots, got %d", len(slots))
	}
}

func TestListSlotsExcludesReservedSlots(t *testing.T) {
	windows := []models.AvailabilityWindow{
		{TrainerID: 7, DayOfWeek: 2, StartMinute: 16 * 60, EndMinute: 20 * 60, Active: true},
	}
	reserved := map[repository.SlotKey]struct{}{
		{SessionDate: "2030-06-04", StartMinute: 1020}: {},
	}
	service := newTestSlotService(windows, reserved, testNow)

	from := time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 6, 5, 0, 0, 0, 0, time.UTC)
	slots, err := service.ListSlots(context.Background(), 7, from, to)
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	for _, slot := range slots {
		if slot.StartMinute == 1020 {
			t.Fatalf("reserved slot offered: %+v", slot)
		}
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 remaining slots, got %d", len(slots))
	}
}

func TestListSlotsNeverOffersThePast(t *testing.T) {
	// Monday window; "now" is Monday 08:00, so 07:00 is gone but 09:00 stands.
	windows := []models.AvailabilityWindow{
		{TrainerID: 7, DayOfWeek: 1, StartMinute: 7 * 60, EndMinute: 11 * 60, Active: true},
	}
	service := newTestSlotService(windows, nil, testNow)

	from := time.Date(2030, 5, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC)
	slots, err := service.ListSlots(context.Background(), 7, from, to)
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}

	for _, slot := range slots {
		if slot.Date < "2030-06-03" {
			t.Fatalf("past date offered: %+v", slot)
		}
		if slot.Date == "2030-06-03" && slot.StartMinute <= 8*60 {
			t.Fatalf("already-started slot offered: %+v", slot)
		}
	}
	// June 3rd keeps 09:00 and 10:00.
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %+v", len(slots), slots)
	}
}

func TestListSlotsEmptyWithoutWindows(t *testing.T) {
	service := newTestSlotService(nil, nil, testNow)

	slots, err := service.ListSlots(context.Background(), 7, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestListSlotsIgnoresInactiveWindows(t *testing.T) {
	windows := []models.AvailabilityWindow{}
	service := newTestSlotService(windows, nil, testNow)

	from := time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 6, 5, 0, 0, 0, 0, time.UTC)
	slots, err := service.ListSlots(context.Background(), 7, from, to)
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %+v", slots)
	}
}

func TestListSlotsRejectsInvalidRanges(t *testing.T) {
	service := newTestSlotService(nil, nil, testNow)
	from := time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC)

	if _, err := service.ListSlots(context.Background(), 7, from, from); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange for empty range, got %v", err)
	}
	if _, err := service.ListSlots(context.Background(), 7, from, from.AddDate(0, 0, -1)); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange for inverted range, got %v", err)
	}
	if _, err := service.ListSlots(context.Background(), 7, from, from.AddDate(0, 0, 365)); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange for oversized range, got %v", err)
	}
	if _, err := service.ListSlots(context.Background(), 0, from, from.AddDate(0, 0, 7)); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange for bad trainer id, got %v", err)
	}
}

func TestListSlotsDefaultsToRollingHorizon(t *testing.T) {
	// Daily window so every day in the horizon yields slots.
	windows := make([]models.AvailabilityWindow, 0, 7)
	for day := 0; day < 7; day++ {
		windows = append(windows, models.AvailabilityWindow{
			TrainerID: 7, DayOfWeek: day, StartMinute: 12 * 60, EndMinute: 13 * 60, Active: true,
		})
	}
	service := newTestSlotService(windows, nil, testNow)

	slots, err := service.ListSlots(context.Background(), 7, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	// 60-day horizon starting today, one slot per day.
	if len(slots) != 60 {
		t.Fatalf("expected 60 slots, got %d", len(slots))
	}
	last := slots[len(slots)-1]
	if last.Date != "2030-08-01" {
		t.Fatalf("expected horizon to end 2030-08-01, got %s", last.Date)
	}
}
