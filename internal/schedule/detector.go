package schedule

import (
	"sort"
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/resource"
)

// ResourceLookup resolves resource ids of one school.
type ResourceLookup interface {
	Resource(id string) (*resource.Resource, bool)
}

// StudentLookup lists the bookings a student currently holds.
type StudentLookup interface {
	StudentBookings(studentID string) []*Booking
}

// Detector computes the conflicts a candidate would create. It never mutates state.
type Detector struct {
	index     *Index
	resources ResourceLookup
	students  StudentLookup
	loc       *time.Location
	policy    Policy
}

func NewDetector(index *Index, resources ResourceLookup, students StudentLookup, loc *time.Location, policy Policy) *Detector {
	if loc == nil {
		loc = time.UTC
	}
	return &Detector{
		index:     index,
		resources: resources,
		students:  students,
		loc:       loc,
		policy:    policy,
	}
}

// Check validates the candidate and returns every conflict it would create.
// Results are ordered by candidate resource order, then by start time; student conflicts come last.
func (d *Detector) Check(c Candidate) ([]Conflict, error) {
	if err := validateCandidate(c); err != nil {
		return nil, err
	}

	var conflicts []Conflict
	for _, id := range c.ResourceIDs {
		res, ok := d.resources.Resource(id)
		if !ok {
			return nil, ErrResourceNotFound
		}
		if !res.IsActive {
			return nil, ErrResourceInactive
		}
		if !res.ServesCategory(c.Category) {
			return nil, ErrCategoryNotServed
		}

		for _, e := range d.index.Overlapping(id, c.Interval) {
			if e.BookingID == c.BookingID && c.BookingID != "" {
				continue
			}
			conflicts = append(conflicts, Conflict{
				ResourceID:           id,
				ResourceKind:         res.Kind,
				Kind:                 ConflictOverlap,
				ConflictingBookingID: e.BookingID,
				Interval:             e.Interval,
				Severity:             SeverityCritical,
			})
		}

		if !res.Covers(c.Interval.Start, c.Interval.End, d.loc) {
			conflicts = append(conflicts, Conflict{
				ResourceID:   id,
				ResourceKind: res.Kind,
				Kind:         ConflictOutsideWindow,
				Interval:     c.Interval,
				Severity:     d.policy.OutsideWindow,
			})
		}
	}

	if c.StudentID != "" && d.students != nil {
		conflicts = append(conflicts, d.studentConflicts(c)...)
	}
	return conflicts, nil
}

func (d *Detector) studentConflicts(c Candidate) []Conflict {
	var others []*Booking
	for _, b := range d.students.StudentBookings(c.StudentID) {
		if b.ID == c.BookingID || !b.Occupies() || !b.Interval.Overlaps(c.Interval) {
			continue
		}
		others = append(others, b)
	}
	sort.Slice(others, func(i, j int) bool {
		if !others[i].Interval.Start.Equal(others[j].Interval.Start) {
			return others[i].Interval.Start.Before(others[j].Interval.Start)
		}
		return others[i].ID < others[j].ID
	})

	out := make([]Conflict, len(others))
	for i, b := range others {
		out[i] = Conflict{
			ResourceID:           c.StudentID,
			ResourceKind:         KindStudent,
			Kind:                 ConflictOverlap,
			ConflictingBookingID: b.ID,
			Interval:             b.Interval,
			Severity:             d.policy.StudentOverlap,
		}
	}
	return out
}

func validateCandidate(c Candidate) error {
	if len(c.ResourceIDs) == 0 {
		return ErrNoResources
	}
	seen := make(map[string]struct{}, len(c.ResourceIDs))
	for _, id := range c.ResourceIDs {
		if _, dup := seen[id]; dup {
			return ErrDuplicateResource
		}
		seen[id] = struct{}{}
	}
	if !c.Interval.Valid() {
		return ErrInvalidInterval
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}
