package schedule

import (
	"slices"
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

type Type string

const (
	TypePracticalLesson Type = "practical_lesson"
	TypeTheoryCourse    Type = "theory_course"
	TypeExam            Type = "exam"
)

func (t Type) Valid() bool {
	switch t {
	case TypePracticalLesson, TypeTheoryCourse, TypeExam:
		return true
	}
	return false
}

// Booking is a scheduled occupation of one or more resources over an interval.
type Booking struct {
	ID           string
	SchoolID     string
	Type         Type
	Status       Status
	ResourceIDs  []string
	StudentID    string
	Category     string
	Interval     Interval
	CancelReason string
	CreatedBy    string
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy so callers never alias calendar state.
func (b *Booking) Clone() *Booking {
	c := *b
	c.ResourceIDs = slices.Clone(b.ResourceIDs)
	return &c
}

// Occupies reports whether the booking holds its resources in storage.
// Completed lessons keep their slot; only cancellation releases it.
func (b *Booking) Occupies() bool {
	return b.Status != StatusCanceled
}

type Action string

const (
	ActionCreated     Action = "created"
	ActionRescheduled Action = "rescheduled"
	ActionCanceled    Action = "canceled"
	ActionCompleted   Action = "completed"
)

// HistoryEntry records one state transition of a booking.
type HistoryEntry struct {
	ID        string
	BookingID string
	SchoolID  string
	Action    Action
	From      *Interval
	To        *Interval
	Reason    string
	Actor     string
	At        time.Time
}

// Candidate describes a proposed booking.
// BookingID is set when the candidate replaces an existing booking (reschedule or drag preview);
// that booking's own occupation is then ignored.
type Candidate struct {
	BookingID   string
	ResourceIDs []string
	Interval    Interval
	Type        Type
	StudentID   string
	Category    string
}
