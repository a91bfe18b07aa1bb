package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
	"github.com/nekogravitycat/driving-school-backend/internal/booking"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/request"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/response"
	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
	"github.com/nekogravitycat/driving-school-backend/internal/suggestion"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

// writeError renders refused bookings with their conflicts and everything else through response.Error.
func writeError(c *gin.Context, err error) {
	var conflictErr *schedule.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ConflictErrorResponse{
			Error:     schedule.ErrSlotTaken.Message,
			Conflicts: NewConflictResponses(conflictErr.Conflicts),
		})
		return
	}
	response.Error(c, err)
}

func bindCandidate(c *gin.Context, body interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return false
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

// ownBookingsOnly reports whether the caller only sees the bookings they attend as the student.
func ownBookingsOnly(c *gin.Context) bool {
	return !auth.GetRole(c).Can(auth.PermBookingReadAll)
}

// getVisible loads a booking of the caller's school, hiding other students' bookings from students.
func (h *Handler) getVisible(c *gin.Context, id string) (*schedule.Booking, error) {
	b, err := h.service.GetByID(c.Request.Context(), auth.GetSchoolID(c), id)
	if err != nil {
		return nil, err
	}
	if ownBookingsOnly(c) && b.StudentID != auth.GetUserID(c) {
		return nil, schedule.ErrBookingNotFound
	}
	return b, nil
}

// Check runs the conflict detector without booking anything.
func (h *Handler) Check(c *gin.Context) {
	var body CheckBody
	if !bindCandidate(c, &body) {
		return
	}

	conflicts, err := h.service.Check(c.Request.Context(), auth.GetSchoolID(c), body.Candidate())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckResponse{
		Conflicts: NewConflictResponses(conflicts),
		Bookable:  !schedule.HasCritical(conflicts),
	})
}

func (h *Handler) Create(c *gin.Context) {
	var body CandidateBody
	if !bindCandidate(c, &body) {
		return
	}

	b, warnings, err := h.service.Create(c.Request.Context(), auth.GetSchoolID(c), body.Candidate(), auth.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MutationResponse{
		Booking:  NewBookingResponse(b),
		Warnings: NewConflictResponses(warnings),
	})
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	req.Normalize()

	if ownBookingsOnly(c) {
		req.StudentID = auth.GetUserID(c)
	}

	filter := booking.Filter{
		SchoolID:   auth.GetSchoolID(c),
		ResourceID: req.ResourceID,
		StudentID:  req.StudentID,
		Status:     schedule.Status(req.Status),
		Type:       schedule.Type(req.Type),
		From:       req.From,
		To:         req.To,
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortOrder:  strings.ToUpper(req.SortOrder),
	}

	bookings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	b, err := h.getVisible(c, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) History(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if _, err := h.getVisible(c, uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	entries, err := h.service.History(c.Request.Context(), auth.GetSchoolID(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]HistoryResponse, len(entries))
	for i, e := range entries {
		items[i] = NewHistoryResponse(e)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Reschedule(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var body RescheduleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	iv := schedule.Interval{Start: body.Start.UTC(), End: body.End.UTC()}
	b, warnings, err := h.service.Reschedule(c.Request.Context(), auth.GetSchoolID(c), uri.ID, iv, auth.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, MutationResponse{
		Booking:  NewBookingResponse(b),
		Warnings: NewConflictResponses(warnings),
	})
}

func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var body CancelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), auth.GetSchoolID(c), uri.ID, body.Reason, auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// Busy lists the merged busy intervals of one resource.
func (h *Handler) Busy(c *gin.Context) {
	var req BusyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	busy, err := h.service.BusyIntervals(c.Request.Context(), auth.GetSchoolID(c), req.ResourceID, req.From.UTC(), req.To.UTC())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]IntervalResponse, len(busy))
	for i, iv := range busy {
		items[i] = NewIntervalResponse(iv)
	}
	c.JSON(http.StatusOK, BusyResponse{ResourceID: req.ResourceID, Busy: items})
}

func (h *Handler) Suggest(c *gin.Context) {
	var body SuggestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	candidate := body.Candidate()

	opts := suggestion.DefaultOptions()
	if body.Limit > 0 {
		opts.Limit = body.Limit
	}

	options, err := h.service.Suggest(c.Request.Context(), auth.GetSchoolID(c), candidate, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SuggestionResponse, len(options))
	for i, o := range options {
		items[i] = NewSuggestionResponse(o)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
