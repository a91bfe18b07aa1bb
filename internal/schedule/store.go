package schedule

import (
	"context"
	"time"
)

// Store persists bookings and their history.
// Implementations must write the booking and its history entry atomically.
type Store interface {
	Insert(ctx context.Context, b *Booking, h HistoryEntry) error
	// Update persists b if the stored version still equals prevVersion, else ErrStaleBooking.
	Update(ctx context.Context, b *Booking, prevVersion int, h HistoryEntry) error
	// ListScheduled returns the bookings of the school that are still scheduled.
	ListScheduled(ctx context.Context, schoolID string) ([]*Booking, error)
	// SettledUntil returns the latest end of a completed booking of the school, zero when there is none.
	SettledUntil(ctx context.Context, schoolID string) (time.Time, error)
}
