package scoring

import (
	"fmt"
	"math"
)

// MinuteStyle selects how a fractional part rounding to 100 is rendered.
type MinuteStyle string

const (
	// MinuteStyleCarry rolls 100 hundredths into the next whole minute (10.999 -> "11.00").
	MinuteStyleCarry MinuteStyle = "carry"
	// MinuteStyleLegacy keeps the historical output (10.999 -> "10.100").
	MinuteStyleLegacy MinuteStyle = "legacy"
)

const (
	noMinute          = "-"
	hundredthsPerUnit = 100
)

// ParseMinuteStyle validates a configured style name. Empty means carry.
func ParseMinuteStyle(s string) (MinuteStyle, error) {
	switch MinuteStyle(s) {
	case "", MinuteStyleCarry:
		return MinuteStyleCarry, nil
	case MinuteStyleLegacy:
		return MinuteStyleLegacy, nil
	default:
		return "", fmt.Errorf("%w: unknown minute style %q", ErrInvalidInput, s)
	}
}

// MinuteFormatter renders fractional minutes as "M.HH", where HH are
// hundredths of a minute rather than seconds.
type MinuteFormatter struct {
	Style MinuteStyle
}

// Format renders minute, or "-" when it is nil.
func (f MinuteFormatter) Format(minute *float64) string {
	if minute == nil {
		return noMinute
	}
	whole := math.Floor(*minute)
	units := int64(math.Round((*minute - whole) * hundredthsPerUnit))
	if units >= hundredthsPerUnit && f.Style != MinuteStyleLegacy {
		whole++
		units -= hundredthsPerUnit
	}
	return fmt.Sprintf("%d.%02d", int64(whole), units)
}

// FormatMinute renders minute with the default carry style.
func FormatMinute(minute *float64) string {
	return MinuteFormatter{Style: MinuteStyleCarry}.Format(minute)
}
