package schedule

import (
	"fmt"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval and rejects empty or inverted ranges.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if !iv.Valid() {
		return Interval{}, ErrInvalidInterval
	}
	return iv, nil
}

// Valid reports whether the interval has a positive duration.
func (iv Interval) Valid() bool {
	return !iv.Start.IsZero() && iv.End.After(iv.Start)
}

// Overlaps reports whether the two intervals share any instant.
// Touching intervals ([9,10) and [10,11)) do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// Contains reports whether o lies entirely inside iv.
func (iv Interval) Contains(o Interval) bool {
	return !o.Start.Before(iv.Start) && !o.End.After(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Shift moves both bounds by d.
func (iv Interval) Shift(d time.Duration) Interval {
	return Interval{Start: iv.Start.Add(d), End: iv.End.Add(d)}
}

// Equal compares instants, ignoring location.
func (iv Interval) Equal(o Interval) bool {
	return iv.Start.Equal(o.Start) && iv.End.Equal(o.End)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
}
