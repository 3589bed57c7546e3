// Package booking holds the checkout wizard: the five-step selection flow a
// customer walks through before a slot is reserved, with named steps and
// guarded transitions.
package booking

import (
	"errors"
	"time"
)

type Step int

const (
	StepGroupSize Step = iota
	StepDate
	StepTime
	StepLocation
	StepPackage
	StepReady
)

func (s Step) String() string {
	switch s {
	case StepGroupSize:
		return "group_size"
	case StepDate:
		return "date"
	case StepTime:
		return "time"
	case StepLocation:
		return "location"
	case StepPackage:
		return "package"
	case StepReady:
		return "ready"
	default:
		return "unknown"
	}
}

var (
	ErrWrongStep        = errors.New("selection not allowed at this step")
	ErrInvalidSelection = errors.New("invalid selection")
)

const dateLayout = "2006-01-02"

// Wizard accumulates one booking selection. Each step only unlocks once the
// preceding steps hold a valid choice, so a selection can never reference
// state that was not made yet (no time without a date, and so on).
type Wizard struct {
	step         Step
	maxGroupSize int

	GroupSize   int
	Date        string
	StartMinute int
	Location    string
	PackageCode string
}

func NewWizard(maxGroupSize int) *Wizard {
	return &Wizard{step: StepGroupSize, maxGroupSize: maxGroupSize}
}

func (w *Wizard) Step() Step {
	return w.step
}

func (w *Wizard) SelectGroupSize(size int) error {
	if w.step != StepGroupSize {
		return ErrWrongStep
	}
	if size < 1 || size > w.maxGroupSize {
		return ErrInvalidSelection
	}
	w.GroupSize = size
	w.step = StepDate
	return nil
}

func (w *Wizard) SelectDate(date string) error {
	if w.step != StepDate {
		return ErrWrongStep
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return ErrInvalidSelection
	}
	w.Date = date
	w.step = StepTime
	return nil
}

func (w *Wizard) SelectTime(startMinute int) error {
	if w.step != StepTime {
		return ErrWrongStep
	}
	// Offered slots follow each availability window's own grid, which may be
	// offset from the clock hour, so only the day bounds are checked here.
	if startMinute < 0 || startMinute+60 > 24*60 {
		return ErrInvalidSelection
	}
	w.StartMinute = startMinute
	w.step = StepLocation
	return nil
}

func (w *Wizard) SelectLocation(location string) error {
	if w.step != StepLocation {
		return ErrWrongStep
	}
	if location == "" {
		return ErrInvalidSelection
	}
	w.Location = location
	w.step = StepPackage
	return nil
}

func (w *Wizard) SelectPackage(code string, catalog map[string]struct{}) error {
	if w.step != StepPackage {
		return ErrWrongStep
	}
	if _, ok := catalog[code]; !ok {
		return ErrInvalidSelection
	}
	w.PackageCode = code
	w.step = StepReady
	return nil
}

// Back rewinds one step, clearing the choice that step had captured so a
// re-entered step always starts clean.
func (w *Wizard) Back() {
	switch w.step {
	case StepDate:
		w.GroupSize = 0
		w.step = StepGroupSize
	case StepTime:
		w.Date = ""
		w.step = StepDate
	case StepLocation:
		w.StartMinute = 0
		w.step = StepTime
	case StepPackage:
		w.Location = ""
		w.step = StepLocation
	case StepReady:
		w.PackageCode = ""
		w.step = StepPackage
	}
}

// Ready reports whether every step holds a selection.
func (w *Wizard) Ready() bool {
	return w.step == StepReady
}
