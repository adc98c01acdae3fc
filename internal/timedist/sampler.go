// Package timedist samples event timestamps within a simulated day,
// either confined to a working-hours window or across the whole day.
package timedist

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrInvalidWindow indicates a degenerate working-hours window.
var ErrInvalidWindow = errors.New("timedist: invalid working-hours window")

// minutesPerDay is the exclusive upper bound for any-time sampling.
const minutesPerDay = 1440

// Window is a closed clock range in whole hours, e.g. {9, 17}.
type Window struct {
	Start int
	End   int
}

// Validate fails fast on windows that would produce empty or negative
// sampling ranges.
func (w Window) Validate() error {
	if w.Start < 0 || w.End > 24 || w.Start > w.End {
		return fmt.Errorf("%w: %d-%d", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// Sampler draws timestamps for a given day. It is pure given (day, rng):
// the only state is the injected random source.
type Sampler struct {
	window Window
	rng    *rand.Rand
}

// NewSampler creates a Sampler for the given working-hours window.
func NewSampler(window Window, rng *rand.Rand) (*Sampler, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{window: window, rng: rng}, nil
}

// WorkingHours returns a uniformly sampled minute within the window,
// added to midnight of day. The range is closed on both ends.
func (s *Sampler) WorkingHours(day time.Time) time.Time {
	start := s.window.Start * 60
	end := s.window.End * 60
	offset := start + s.rng.Intn(end-start+1)
	return midnight(day).Add(time.Duration(offset) * time.Minute)
}

// AnyTime returns a uniformly sampled minute anywhere in the day.
func (s *Sampler) AnyTime(day time.Time) time.Time {
	offset := s.rng.Intn(minutesPerDay)
	return midnight(day).Add(time.Duration(offset) * time.Minute)
}

func midnight(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}

// Days expands an inclusive date range into its sequence of days.
func Days(start, end time.Time) []time.Time {
	var days []time.Time
	for d := midnight(start); !d.After(midnight(end)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
