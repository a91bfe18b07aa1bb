package school

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "school not found")
	ErrNameRequired    = apperror.New(http.StatusBadRequest, "school name is required")
	ErrInvalidTimezone = apperror.New(http.StatusBadRequest, "timezone must be a valid IANA zone name")
	ErrInactive        = apperror.New(http.StatusForbidden, "school is inactive")
)

// School is a tenant. Every resource, booking and school account belongs to exactly one.
type School struct {
	ID        string
	Name      string
	Timezone  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter defines filter options for listing schools.
type Filter struct {
	IsActive  *bool
	Page      int
	PageSize  int
	SortOrder string
}
