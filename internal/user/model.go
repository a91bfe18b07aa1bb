package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "user not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrInactiveUser       = apperror.New(http.StatusUnauthorized, "user is inactive")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, "email is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, "password is too short")
	ErrInvalidRole        = apperror.New(http.StatusBadRequest, "invalid role")
	ErrSchoolRequired     = apperror.New(http.StatusBadRequest, "school accounts require a school_id")
	ErrSysAdminSchool     = apperror.New(http.StatusBadRequest, "system admins cannot belong to a school")
)

// User is an account. Everyone except system admins belongs to exactly one school.
type User struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  *string
	SchoolID     string
	Role         auth.Role
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Identity is what an access token for u carries.
func (u *User) Identity() auth.Identity {
	return auth.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		SchoolID: u.SchoolID,
		Role:     u.Role,
	}
}

// UserFilter defines filter options for listing users.
type UserFilter struct {
	SchoolID string
	Role     auth.Role
	Email    string
	IsActive *bool // Use pointer to distinguish between false and nil (not set)

	Page      int
	PageSize  int
	SortOrder string
}
