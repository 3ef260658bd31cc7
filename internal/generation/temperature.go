package generation

import (
	"fmt"
	"math"
)

// Schedule is the temperature used for each attempt index: Base for the
// first generation, raised by Increment per regeneration and capped at Max.
type Schedule struct {
	Base      float64
	Increment float64
	Max       float64
}

// At returns min(Base + attemptIndex*Increment, Max), rounded to three
// decimals so repeated increments do not drift.
func (s Schedule) At(attemptIndex int) float64 {
	if attemptIndex < 0 {
		attemptIndex = 0
	}
	t := math.Min(s.Base+float64(attemptIndex)*s.Increment, s.Max)
	return math.Round(t*1000) / 1000
}

// Validate checks the schedule is non-decreasing and bounded.
func (s Schedule) Validate() error {
	if s.Base < 0 {
		return fmt.Errorf("%w: base temperature cannot be negative", ErrInvalidConfig)
	}
	if s.Increment < 0 {
		return fmt.Errorf("%w: temperature increment cannot be negative", ErrInvalidConfig)
	}
	if s.Max < s.Base {
		return fmt.Errorf("%w: max temperature %.2f below base %.2f", ErrInvalidConfig, s.Max, s.Base)
	}
	return nil
}
