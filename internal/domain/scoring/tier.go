// Package scoring derives performance-report metrics from scored match actions.
//
// Everything here is pure and synchronous: functions never mutate their
// inputs and are safe to call concurrently and to memoize.
package scoring

import "fmt"

// Tier band breakpoints on the signed action score scale.
const (
	strongPositiveMin   = 0.15
	positiveMin         = 0.10
	moderatePositiveMin = 0.05
	mildPositiveMin     = 0.02
	slightPositiveOver  = 0.005
	marginalNegativeMin = -0.005
	mildNegativeOver    = -0.02
	moderateNegOver     = -0.04
	negativeOver        = -0.06
)

// Tier is the display severity band of a single action score.
// Higher values rank more positive.
type Tier int

// Tiers from most negative to most positive.
const (
	TierStrongNegative Tier = iota
	TierNegative
	TierModerateNegative
	TierMildNegative
	TierMarginalNegative
	TierNeutral
	TierMarginalPositive
	TierSlightPositive
	TierMildPositive
	TierModeratePositive
	TierPositive
	TierStrongPositive
)

var tierNames = [...]string{
	TierStrongNegative:   "strong-negative",
	TierNegative:         "negative",
	TierModerateNegative: "moderate-negative",
	TierMildNegative:     "mild-negative",
	TierMarginalNegative: "marginal-negative",
	TierNeutral:          "neutral",
	TierMarginalPositive: "marginal-positive",
	TierSlightPositive:   "slight-positive",
	TierMildPositive:     "mild-positive",
	TierModeratePositive: "moderate-positive",
	TierPositive:         "positive",
	TierStrongPositive:   "strong-positive",
}

// green for positive, grey for neutral, red for negative; darker is stronger
var tierColors = [...]string{
	TierStrongNegative:   "#991b1b",
	TierNegative:         "#dc2626",
	TierModerateNegative: "#ef4444",
	TierMildNegative:     "#f87171",
	TierMarginalNegative: "#fecaca",
	TierNeutral:          "#e5e7eb",
	TierMarginalPositive: "#bbf7d0",
	TierSlightPositive:   "#4ade80",
	TierMildPositive:     "#22c55e",
	TierModeratePositive: "#16a34a",
	TierPositive:         "#15803d",
	TierStrongPositive:   "#166534",
}

// Tiers returns all tiers from most positive to most negative.
func Tiers() []Tier {
	out := make([]Tier, 0, len(tierNames))
	for t := TierStrongPositive; t >= TierStrongNegative; t-- {
		out = append(out, t)
	}
	return out
}

// Classify maps an action score to its tier. Callers must not pass NaN.
func Classify(score float64) Tier {
	switch {
	case score >= strongPositiveMin:
		return TierStrongPositive
	case score >= positiveMin:
		return TierPositive
	case score >= moderatePositiveMin:
		return TierModeratePositive
	case score >= mildPositiveMin:
		return TierMildPositive
	case score > slightPositiveOver:
		return TierSlightPositive
	case score > 0:
		return TierMarginalPositive
	case score == 0:
		return TierNeutral
	case score > marginalNegativeMin:
		return TierMarginalNegative
	case score > mildNegativeOver:
		return TierMildNegative
	case score > moderateNegOver:
		return TierModerateNegative
	case score > negativeOver:
		return TierNegative
	case score <= negativeOver:
		return TierStrongNegative
	default:
		// NaN
		return TierNeutral
	}
}

// String returns the kebab-case tier label.
func (t Tier) String() string {
	if t < TierStrongNegative || t > TierStrongPositive {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Color returns the hex display colour of the tier.
func (t Tier) Color() string {
	if t < TierStrongNegative || t > TierStrongPositive {
		return tierColors[TierNeutral]
	}
	return tierColors[t]
}

// Positive reports whether the tier is above neutral.
func (t Tier) Positive() bool { return t > TierNeutral }

// MarshalText encodes the tier as its label.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier label.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier parses a kebab-case tier label.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}
	return TierNeutral, fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, s)
}
