package booking

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
)

// memoryRepository keeps bookings in process memory.
type memoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*schedule.Booking
	history  map[string][]schedule.HistoryEntry
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		bookings: make(map[string]*schedule.Booking),
		history:  make(map[string][]schedule.HistoryEntry),
	}
}

func (r *memoryRepository) Insert(_ context.Context, b *schedule.Booking, h schedule.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[b.ID]; ok {
		return schedule.ErrAlreadyIndexed
	}
	r.bookings[b.ID] = b.Clone()
	r.history[b.ID] = append(r.history[b.ID], h)
	return nil
}

func (r *memoryRepository) Update(_ context.Context, b *schedule.Booking, prevVersion int, h schedule.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.bookings[b.ID]
	if !ok {
		return schedule.ErrBookingNotFound
	}
	if cur.Version != prevVersion {
		return schedule.ErrStaleBooking
	}
	r.bookings[b.ID] = b.Clone()
	r.history[b.ID] = append(r.history[b.ID], h)
	return nil
}

func (r *memoryRepository) ListScheduled(_ context.Context, schoolID string) ([]*schedule.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*schedule.Booking
	for _, b := range r.bookings {
		if b.SchoolID == schoolID && b.Status == schedule.StatusScheduled {
			out = append(out, b.Clone())
		}
	}
	sortByStart(out, "ASC")
	return out, nil
}

func (r *memoryRepository) SettledUntil(_ context.Context, schoolID string) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var settled time.Time
	for _, b := range r.bookings {
		if b.SchoolID == schoolID && b.Status == schedule.StatusCompleted && b.Interval.End.After(settled) {
			settled = b.Interval.End
		}
	}
	return settled, nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*schedule.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, schedule.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]*schedule.Booking, int, error) {
	filter.normalize()

	r.mu.RLock()
	var matched []*schedule.Booking
	for _, b := range r.bookings {
		if filter.matches(b) {
			matched = append(matched, b.Clone())
		}
	}
	r.mu.RUnlock()

	sortByStart(matched, filter.SortOrder)

	total := len(matched)
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (r *memoryRepository) History(_ context.Context, bookingID string) ([]schedule.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.history[bookingID]), nil
}

func sortByStart(bookings []*schedule.Booking, order string) {
	slices.SortFunc(bookings, func(a, b *schedule.Booking) int {
		c := a.Interval.Start.Compare(b.Interval.Start)
		if c == 0 {
			return strings.Compare(a.ID, b.ID)
		}
		if order == "DESC" {
			return -c
		}
		return c
	})
}
