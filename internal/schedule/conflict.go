package schedule

import (
	"fmt"

	"github.com/nekogravitycat/driving-school-backend/internal/resource"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ParseSeverity converts a configured severity name.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return Severity(s), nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// KindStudent tags conflicts raised on the student side. Students are not resources.
const KindStudent resource.Kind = "student"

type ConflictKind string

const (
	ConflictOverlap       ConflictKind = "overlap"
	ConflictOutsideWindow ConflictKind = "outside_window"
)

// Conflict is one problem a candidate booking would create.
type Conflict struct {
	ResourceID           string
	ResourceKind         resource.Kind
	Kind                 ConflictKind
	ConflictingBookingID string
	Interval             Interval
	Severity             Severity
}

// Policy sets the severity of the soft rules.
// Double-booking an instructor, vehicle or room is always critical.
type Policy struct {
	StudentOverlap Severity
	OutsideWindow  Severity
}

// DefaultPolicy treats student double-booking and out-of-hours bookings as overridable warnings.
func DefaultPolicy() Policy {
	return Policy{
		StudentOverlap: SeverityWarning,
		OutsideWindow:  SeverityWarning,
	}
}

// HasCritical reports whether any conflict blocks a commit.
func HasCritical(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// NonCritical returns the conflicts that are reported but do not block a commit.
func NonCritical(conflicts []Conflict) []Conflict {
	var out []Conflict
	for _, c := range conflicts {
		if c.Severity != SeverityCritical {
			out = append(out, c)
		}
	}
	return out
}
