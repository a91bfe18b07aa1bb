package schedule

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nekogravitycat/driving-school-backend/internal/pkg/apperror"
)

// Validation errors.
var (
	ErrInvalidInterval   = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrNoResources       = apperror.New(http.StatusBadRequest, "at least one resource is required")
	ErrDuplicateResource = apperror.New(http.StatusBadRequest, "resource listed more than once")
	ErrInvalidType       = apperror.New(http.StatusBadRequest, "type must be one of practical_lesson, theory_course, exam")
	ErrResourceInactive  = apperror.New(http.StatusBadRequest, "resource is inactive")
	ErrCategoryNotServed = apperror.New(http.StatusBadRequest, "resource is not qualified for the requested category")
	ErrReasonTooShort    = apperror.New(http.StatusBadRequest, "cancellation reason is too short")
	ErrSettledPeriod     = apperror.New(http.StatusBadRequest, "time slot starts before lessons that are already completed")
)

// Not-found errors.
var (
	ErrBookingNotFound  = apperror.New(http.StatusNotFound, "booking not found")
	ErrResourceNotFound = apperror.New(http.StatusNotFound, "resource not found")
)

// State errors.
var (
	ErrSlotTaken      = apperror.New(http.StatusConflict, "time slot already booked")
	ErrNotScheduled   = apperror.New(http.StatusConflict, "booking is not scheduled")
	ErrAlreadyIndexed = apperror.New(http.StatusConflict, "booking already indexed for resource")
	ErrStaleBooking   = apperror.New(http.StatusConflict, "booking was modified concurrently")
)

// ConflictError is returned when a commit would double-book a resource.
// It unwraps to ErrSlotTaken so generic AppError handling maps it to 409.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		if c.Severity != SeverityCritical {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s busy %s (booking %s)", c.ResourceKind, c.ResourceID, c.Interval, c.ConflictingBookingID))
	}
	return "booking conflict: " + strings.Join(parts, "; ")
}

func (e *ConflictError) Unwrap() error {
	return ErrSlotTaken
}
