package booking

import (
	"net/http"
	"slices"
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
)

var (
	ErrInvalidTimeRange = apperror.New(http.StatusBadRequest, "from must be before to")
	ErrInvalidStatus    = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrMissingSchool    = apperror.New(http.StatusBadRequest, "school_id is required")
)

// Filter defines parameters for listing bookings of one school.
type Filter struct {
	SchoolID   string
	ResourceID string
	StudentID  string
	Status     schedule.Status
	Type       schedule.Type
	From       *time.Time // bookings ending after From
	To         *time.Time // bookings starting before To
	Page       int
	PageSize   int
	SortOrder  string
}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.SortOrder != "DESC" && f.SortOrder != "desc" {
		f.SortOrder = "ASC"
	} else {
		f.SortOrder = "DESC"
	}
}

func (f *Filter) matches(b *schedule.Booking) bool {
	if b.SchoolID != f.SchoolID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Type != "" && b.Type != f.Type {
		return false
	}
	if f.StudentID != "" && b.StudentID != f.StudentID {
		return false
	}
	if f.ResourceID != "" && !slices.Contains(b.ResourceIDs, f.ResourceID) {
		return false
	}
	if f.From != nil && !b.Interval.End.After(*f.From) {
		return false
	}
	if f.To != nil && !b.Interval.Start.Before(*f.To) {
		return false
	}
	return true
}
