package resource

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "resource not found")
	ErrEmptyName       = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrInvalidKind     = apperror.New(http.StatusBadRequest, "kind must be one of instructor, vehicle, room")
	ErrInvalidCategory = apperror.New(http.StatusBadRequest, "unknown licence category")
	ErrRoomCategories  = apperror.New(http.StatusBadRequest, "rooms cannot carry licence categories")
	ErrInvalidWindow   = apperror.New(http.StatusBadRequest, "availability window must be a valid weekday with start before end")
	ErrWindowOverlap   = apperror.New(http.StatusBadRequest, "availability windows overlap on the same weekday")
	ErrInvalidSchool   = apperror.New(http.StatusBadRequest, "invalid school_id")
)

// Kind is the category of a bookable resource.
type Kind string

const (
	KindInstructor Kind = "instructor"
	KindVehicle    Kind = "vehicle"
	KindRoom       Kind = "room"
)

// Valid reports whether k is a known resource kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInstructor, KindVehicle, KindRoom:
		return true
	}
	return false
}

// ValidCategories lists the Swiss driving licence categories a resource may serve.
var ValidCategories = []string{
	"A", "A1", "A35KW", "B", "B1", "BE", "C", "C1", "C1E", "CE", "D", "D1", "D1E", "DE", "F", "G", "M", "TPP",
}

const minutesPerDay = 24 * 60

// Window is a weekly recurring range of allowed working time.
// Start and End are minutes since local midnight; End may be 1440 (24:00).
type Window struct {
	Weekday time.Weekday
	Start   int
	End     int
}

// Validate checks the window bounds.
func (w Window) Validate() error {
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return ErrInvalidWindow
	}
	if w.Start < 0 || w.End > minutesPerDay || w.Start >= w.End {
		return ErrInvalidWindow
	}
	return nil
}

// ParseClock converts "HH:MM" into minutes since midnight. "24:00" is accepted as end of day.
func ParseClock(s string) (int, error) {
	if s == "24:00" {
		return minutesPerDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes since midnight into "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Resource is something that can be double-booked: an instructor, a vehicle or a room.
type Resource struct {
	ID         string
	SchoolID   string
	Kind       Kind
	Name       string
	Categories []string
	IsActive   bool
	Windows    []Window
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a deep copy of the resource.
func (r *Resource) Clone() *Resource {
	c := *r
	c.Categories = slices.Clone(r.Categories)
	c.Windows = slices.Clone(r.Windows)
	return &c
}

// ServesCategory reports whether the resource is qualified for the given licence category.
// Rooms serve every category.
func (r *Resource) ServesCategory(category string) bool {
	if category == "" || r.Kind == KindRoom {
		return true
	}
	return slices.Contains(r.Categories, strings.ToUpper(category))
}

// Covers reports whether [start, end) lies inside one declared window, evaluated in loc.
// A resource without windows is always available.
func (r *Resource) Covers(start, end time.Time, loc *time.Location) bool {
	if len(r.Windows) == 0 {
		return true
	}

	ls := start.In(loc)
	le := end.In(loc)

	startMin := ls.Hour()*60 + ls.Minute()

	var endMin int
	sameDay := ls.Year() == le.Year() && ls.YearDay() == le.YearDay()
	switch {
	case sameDay:
		endMin = le.Hour()*60 + le.Minute()
		if le.Second() > 0 || le.Nanosecond() > 0 {
			endMin++
		}
	case isMidnight(le) && le.Sub(ls) <= 24*time.Hour:
		endMin = minutesPerDay
	default:
		return false
	}

	for _, w := range r.Windows {
		if w.Weekday == ls.Weekday() && w.Start <= startMin && endMin <= w.End {
			return true
		}
	}
	return false
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// NormalizeCategories upper-cases, de-duplicates and validates licence categories.
func NormalizeCategories(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToUpper(strings.TrimSpace(c))
		if !slices.Contains(ValidCategories, c) {
			return nil, ErrInvalidCategory
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out, nil
}

// ValidateWindows checks each window and rejects overlaps on the same weekday.
func ValidateWindows(windows []Window) error {
	for i, w := range windows {
		if err := w.Validate(); err != nil {
			return err
		}
		for _, other := range windows[i+1:] {
			if other.Weekday == w.Weekday && w.Start < other.End && other.Start < w.End {
				return ErrWindowOverlap
			}
		}
	}
	return nil
}

// Filter defines parameters for listing resources.
type Filter struct {
	SchoolID  string
	Kind      Kind
	Category  string
	IsActive  *bool
	Page      int
	PageSize  int
	SortOrder string
}
