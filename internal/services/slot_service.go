package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
)

var ErrInvalidRange = errors.New("invalid date range")

// SlotGranularityMinutes is the only offerable session length.
const SlotGranularityMinutes = 60

const dateLayout = "2006-01-02"

type availabilityReader interface {
	ListActiveByTrainer(ctx context.Context, trainerID int64) ([]models.AvailabilityWindow, error)
}

type reservedSlotReader interface {
	ListReservedSlots(ctx context.Context, trainerID int64, from, to string) (map[repository.SlotKey]struct{}, error)
}

type SlotService struct {
	availabilityRepo availabilityReader
	reservationRepo  reservedSlotReader
	horizonDays      int
	maxRangeDays     int
	now              func() time.Time
}

func NewSlotService(
	availabilityRepo availabilityReader,
	reservationRepo reservedSlotReader,
	horizonDays int,
	maxRangeDays int,
) *SlotService {
	return &SlotService{
		availabilityRepo: availabilityRepo,
		reservationRepo:  reservationRepo,
		horizonDays:      horizonDays,
		maxRangeDays:     maxRangeDays,
		now:              time.Now,
	}
}

// ListSlots expands the trainer's weekly pattern over [from, to) and drops
// every slot already claimed by a live reservation. A zero `to` means the
// default rolling horizon. The result is deduplicated and ordered by date
// then start time; it is recomputed from repository state on every call.
func (s *SlotService) ListSlots(
	ctx context.Context,
	trainerID int64,
	from time.Time,
	to time.Time,
) ([]models.Slot, error) {
	if trainerID <= 0 {
		return nil, ErrInvalidRange
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if from.IsZero() {
		from = today
	}
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, today.Location())
	if to.IsZero() {
		to = from.AddDate(0, 0, s.horizonDays)
	} else {
		to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, today.Location())
	}

	if !to.After(from) {
		return nil, ErrInvalidRange
	}
	if to.Sub(from) > time.Duration(s.maxRangeDays)*24*time.Hour {
		return nil, ErrInvalidRange
	}

	// Past dates are never offered regardless of the requested range.
	if from.Before(today) {
		from = today
	}
	if !to.After(from) {
		return []models.Slot{}, nil
	}

	windows, err := s.availabilityRepo.ListActiveByTrainer(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []models.Slot{}, nil
	}

	windowsByDay := make(map[int][]models.AvailabilityWindow)
	for _, window := range windows {
		windowsByDay[window.DayOfWeek] = append(windowsByDay[window.DayOfWeek], window)
	}

	reserved, err := s.reservationRepo.ListReservedSlots(
		ctx, trainerID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, err
	}

	seen := make(map[repository.SlotKey]struct{})
	slots := make([]models.Slot, 0)

	for date := from; date.Before(to); date = date.AddDate(0, 0, 1) {
		dayWindows, ok := windowsByDay[int(date.Weekday())]
		if !ok {
			continue
		}
		dateStr := date.Format(dateLayout)

		for _, window := range dayWindows {
			for start := window.StartMinute; start+SlotGranularityMinutes <= window.EndMinute; start += SlotGranularityMinutes {
				key := repository.SlotKey{SessionDate: dateStr, StartMinute: start}
				if _, taken := reserved[key]; taken {
					continue
				}
				// Overlapping windows may emit the same start twice.
				if _, dup := seen[key]; dup {
					continue
				}
				// Today's already-started hours are no longer offerable.
				if date.Equal(today) && !date.Add(time.Duration(start)*time.Minute).After(now) {
					continue
				}
				seen[key] = struct{}{}
				slots = append(slots, models.Slot{
					Date:        dateStr,
					StartMinute: start,
					StartTime:   models.FormatMinute(start),
				})
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		return slots[i].StartMinute < slots[j].StartMinute
	})

	return slots, nil
}
