package http

import (
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/booking"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/request"
	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
	"github.com/nekogravitycat/driving-school-backend/internal/suggestion"
)

// CandidateBody describes a booking the caller wants to check or create.
type CandidateBody struct {
	ResourceIDs []string  `json:"resource_ids" binding:"required,min=1,dive,uuid"`
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
	Type        string    `json:"type" binding:"required,oneof=practical_lesson theory_course exam"`
	StudentID   string    `json:"student_id" binding:"omitempty,uuid"`
	Category    string    `json:"category" binding:"omitempty,max=8"`
}

// Validate performs custom validation for CandidateBody.
func (b *CandidateBody) Validate() error {
	if !b.End.After(b.Start) {
		return schedule.ErrInvalidInterval
	}
	return nil
}

func (b *CandidateBody) Candidate() schedule.Candidate {
	return schedule.Candidate{
		ResourceIDs: b.ResourceIDs,
		Interval:    schedule.Interval{Start: b.Start.UTC(), End: b.End.UTC()},
		Type:        schedule.Type(b.Type),
		StudentID:   b.StudentID,
		Category:    b.Category,
	}
}

// CheckBody previews a candidate. BookingID names the booking being moved so it does not conflict with itself.
type CheckBody struct {
	CandidateBody
	BookingID string `json:"booking_id" binding:"omitempty,uuid"`
}

func (b *CheckBody) Candidate() schedule.Candidate {
	c := b.CandidateBody.Candidate()
	c.BookingID = b.BookingID
	return c
}

type RescheduleBody struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

func (b *RescheduleBody) Validate() error {
	if !b.End.After(b.Start) {
		return schedule.ErrInvalidInterval
	}
	return nil
}

type CancelBody struct {
	Reason string `json:"reason" binding:"required"`
}

// SuggestBody looks for slots; BookingID is set when looking for a new slot for an existing booking.
type SuggestBody struct {
	CheckBody
	Limit int `json:"limit" binding:"omitempty,min=1,max=20"`
}

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	ResourceID string     `form:"resource_id" binding:"omitempty,uuid"`
	StudentID  string     `form:"student_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=scheduled completed canceled"`
	Type       string     `form:"type" binding:"omitempty,oneof=practical_lesson theory_course exam"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// Validate performs custom validation for ListBookingsRequest.
func (r *ListBookingsRequest) Validate() error {
	if r.From != nil && r.To != nil && !r.To.After(*r.From) {
		return booking.ErrInvalidTimeRange
	}
	return nil
}

type BusyRequest struct {
	ResourceID string    `form:"resource_id" binding:"required,uuid"`
	From       time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To         time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

type IntervalResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewIntervalResponse(iv schedule.Interval) IntervalResponse {
	return IntervalResponse{Start: iv.Start, End: iv.End}
}

type BusyResponse struct {
	ResourceID string             `json:"resource_id"`
	Busy       []IntervalResponse `json:"busy"`
}

type ConflictResponse struct {
	ResourceID           string    `json:"resource_id"`
	ResourceKind         string    `json:"resource_kind"`
	Kind                 string    `json:"kind"`
	ConflictingBookingID string    `json:"conflicting_booking_id,omitempty"`
	Start                time.Time `json:"start"`
	End                  time.Time `json:"end"`
	Severity             string    `json:"severity"`
}

func NewConflictResponses(conflicts []schedule.Conflict) []ConflictResponse {
	out := make([]ConflictResponse, len(conflicts))
	for i, c := range conflicts {
		out[i] = ConflictResponse{
			ResourceID:           c.ResourceID,
			ResourceKind:         string(c.ResourceKind),
			Kind:                 string(c.Kind),
			ConflictingBookingID: c.ConflictingBookingID,
			Start:                c.Interval.Start,
			End:                  c.Interval.End,
			Severity:             string(c.Severity),
		}
	}
	return out
}

type CheckResponse struct {
	Conflicts []ConflictResponse `json:"conflicts"`
	Bookable  bool               `json:"bookable"`
}

type BookingResponse struct {
	ID           string    `json:"id"`
	SchoolID     string    `json:"school_id"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	ResourceIDs  []string  `json:"resource_ids"`
	StudentID    string    `json:"student_id,omitempty"`
	Category     string    `json:"category,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	CreatedBy    string    `json:"created_by"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewBookingResponse(b *schedule.Booking) BookingResponse {
	return BookingResponse{
		ID:           b.ID,
		SchoolID:     b.SchoolID,
		Type:         string(b.Type),
		Status:       string(b.Status),
		ResourceIDs:  b.ResourceIDs,
		StudentID:    b.StudentID,
		Category:     b.Category,
		Start:        b.Interval.Start,
		End:          b.Interval.End,
		CancelReason: b.CancelReason,
		CreatedBy:    b.CreatedBy,
		Version:      b.Version,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// MutationResponse is returned by create and reschedule.
// Warnings are non-blocking conflicts the caller should show.
type MutationResponse struct {
	Booking  BookingResponse    `json:"booking"`
	Warnings []ConflictResponse `json:"warnings"`
}

// ConflictErrorResponse is the 409 body of a refused booking.
type ConflictErrorResponse struct {
	Error     string             `json:"error"`
	Conflicts []ConflictResponse `json:"conflicts"`
}

type HistoryResponse struct {
	ID     string            `json:"id"`
	Action string            `json:"action"`
	From   *IntervalResponse `json:"from,omitempty"`
	To     *IntervalResponse `json:"to,omitempty"`
	Reason string            `json:"reason,omitempty"`
	Actor  string            `json:"actor"`
	At     time.Time         `json:"at"`
}

func NewHistoryResponse(h schedule.HistoryEntry) HistoryResponse {
	resp := HistoryResponse{
		ID:     h.ID,
		Action: string(h.Action),
		Reason: h.Reason,
		Actor:  h.Actor,
		At:     h.At,
	}
	if h.From != nil {
		from := NewIntervalResponse(*h.From)
		resp.From = &from
	}
	if h.To != nil {
		to := NewIntervalResponse(*h.To)
		resp.To = &to
	}
	return resp
}

type SuggestionResponse struct {
	ResourceIDs  []string           `json:"resource_ids"`
	Start        time.Time          `json:"start"`
	End          time.Time          `json:"end"`
	ShiftMinutes int                `json:"shift_minutes"`
	SwappedCount int                `json:"swapped_count"`
	Warnings     []ConflictResponse `json:"warnings"`
}

func NewSuggestionResponse(o suggestion.Option) SuggestionResponse {
	return SuggestionResponse{
		ResourceIDs:  o.ResourceIDs,
		Start:        o.Interval.Start,
		End:          o.Interval.End,
		ShiftMinutes: int(o.Shift / time.Minute),
		SwappedCount: o.Swaps,
		Warnings:     NewConflictResponses(o.Warnings),
	}
}
