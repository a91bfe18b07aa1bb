package http

import (
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/pkg/request"
	"github.com/nekogravitycat/driving-school-backend/internal/school"
)

type SchoolResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func NewSchoolResponse(s *school.School) SchoolResponse {
	return SchoolResponse{
		ID:        s.ID,
		Name:      s.Name,
		Timezone:  s.Timezone,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}

// CreateSchoolRequest is the payload for POST /schools.
type CreateSchoolRequest struct {
	Name     string `json:"name" binding:"required"`
	Timezone string `json:"timezone"`
}

// UpdateSchoolRequest is the payload for PATCH /schools/:id.
type UpdateSchoolRequest struct {
	Name     *string `json:"name"`
	Timezone *string `json:"timezone"`
	IsActive *bool   `json:"is_active"`
}

type ListSchoolsRequest struct {
	request.ListParams
	IsActive *bool `form:"is_active"`
}
