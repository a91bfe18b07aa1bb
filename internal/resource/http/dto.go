package http

import (
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/pkg/request"
	"github.com/nekogravitycat/driving-school-backend/internal/resource"
)

type WindowBody struct {
	Weekday int    `json:"weekday" binding:"min=0,max=6"`
	Start   string `json:"start" binding:"required"`
	End     string `json:"end" binding:"required"`
}

func (w WindowBody) Window() (resource.Window, error) {
	start, err := resource.ParseClock(w.Start)
	if err != nil {
		return resource.Window{}, resource.ErrInvalidWindow
	}
	end, err := resource.ParseClock(w.End)
	if err != nil {
		return resource.Window{}, resource.ErrInvalidWindow
	}
	return resource.Window{Weekday: time.Weekday(w.Weekday), Start: start, End: end}, nil
}

func toWindows(bodies []WindowBody) ([]resource.Window, error) {
	windows := make([]resource.Window, len(bodies))
	for i, b := range bodies {
		w, err := b.Window()
		if err != nil {
			return nil, err
		}
		windows[i] = w
	}
	return windows, nil
}

type CreateRequest struct {
	Kind       string       `json:"kind" binding:"required,oneof=instructor vehicle room"`
	Name       string       `json:"name" binding:"required"`
	Categories []string     `json:"categories"`
	Windows    []WindowBody `json:"windows" binding:"omitempty,dive"`
}

type UpdateRequest struct {
	Name       *string   `json:"name" binding:"omitempty"`
	Categories *[]string `json:"categories" binding:"omitempty"`
	IsActive   *bool     `json:"is_active" binding:"omitempty"`
}

type SetWindowsRequest struct {
	Windows []WindowBody `json:"windows" binding:"omitempty,dive"`
}

type ListResourcesRequest struct {
	request.ListParams
	Kind     string `form:"kind" binding:"omitempty,oneof=instructor vehicle room"`
	Category string `form:"category"`
	IsActive *bool  `form:"is_active"`
}

type WindowResponse struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type ResourceResponse struct {
	ID         string           `json:"id"`
	SchoolID   string           `json:"school_id"`
	Kind       string           `json:"kind"`
	Name       string           `json:"name"`
	Categories []string         `json:"categories"`
	IsActive   bool             `json:"is_active"`
	Windows    []WindowResponse `json:"windows"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func NewResponse(r *resource.Resource) ResourceResponse {
	windows := make([]WindowResponse, len(r.Windows))
	for i, w := range r.Windows {
		windows[i] = WindowResponse{
			Weekday: int(w.Weekday),
			Start:   resource.FormatClock(w.Start),
			End:     resource.FormatClock(w.End),
		}
	}
	categories := r.Categories
	if categories == nil {
		categories = []string{}
	}
	return ResourceResponse{
		ID:         r.ID,
		SchoolID:   r.SchoolID,
		Kind:       string(r.Kind),
		Name:       r.Name,
		Categories: categories,
		IsActive:   r.IsActive,
		Windows:    windows,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
