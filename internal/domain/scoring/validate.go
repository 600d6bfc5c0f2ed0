package scoring

import (
	"fmt"
	"math"

	"github.com/okian/matchreport/internal/domain/model"
)

// Validate rejects malformed reports instead of letting NaN or negative
// minutes flow into displayed numbers.
func Validate(r model.Report) error {
	if r.R90Score != nil && !finite(*r.R90Score) {
		return fmt.Errorf("%w: r90 score must be finite", ErrInvalidInput)
	}
	if r.MinutesPlayed != nil {
		m := *r.MinutesPlayed
		if !finite(m) || m < 0 {
			return fmt.Errorf("%w: minutes played must be a non-negative number, got %v", ErrInvalidInput, m)
		}
	}
	seen := make(map[int]struct{}, len(r.Actions))
	for i := range r.Actions {
		if err := ValidateAction(r.Actions[i]); err != nil {
			return err
		}
		n := r.Actions[i].ActionNumber
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: duplicate action number %d", ErrInvalidInput, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

// ValidateAction checks a single action.
func ValidateAction(a model.Action) error {
	switch {
	case a.ActionNumber < 1:
		return fmt.Errorf("%w: action number must be positive, got %d", ErrInvalidInput, a.ActionNumber)
	case !finite(a.Score):
		return fmt.Errorf("%w: action %d score must be finite", ErrInvalidInput, a.ActionNumber)
	case !finite(a.Minute) || a.Minute < 0:
		return fmt.Errorf("%w: action %d minute must be a non-negative number", ErrInvalidInput, a.ActionNumber)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
