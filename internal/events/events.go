// Package events publishes booking state changes to other systems.
package events

import (
	"context"
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
)

type Type string

const (
	BookingCreated     Type = "booking.created"
	BookingRescheduled Type = "booking.rescheduled"
	BookingCanceled    Type = "booking.canceled"
	BookingCompleted   Type = "booking.completed"
)

// Event is the JSON payload sent for every booking transition.
type Event struct {
	Type        Type      `json:"type"`
	SchoolID    string    `json:"school_id"`
	BookingID   string    `json:"booking_id"`
	BookingType string    `json:"booking_type"`
	Status      string    `json:"status"`
	ResourceIDs []string  `json:"resource_ids"`
	StudentID   string    `json:"student_id,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Reason      string    `json:"reason,omitempty"`
	Actor       string    `json:"actor"`
	At          time.Time `json:"at"`
}

func FromBooking(t Type, b *schedule.Booking, actor string) Event {
	return Event{
		Type:        t,
		SchoolID:    b.SchoolID,
		BookingID:   b.ID,
		BookingType: string(b.Type),
		Status:      string(b.Status),
		ResourceIDs: b.ResourceIDs,
		StudentID:   b.StudentID,
		Start:       b.Interval.Start,
		End:         b.Interval.End,
		Reason:      b.CancelReason,
		Actor:       actor,
		At:          b.UpdatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() {}
