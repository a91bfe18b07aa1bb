package schedule

import (
	"slices"
	"sort"
	"time"
)

// Entry is one occupied interval on a resource timeline.
type Entry struct {
	BookingID string
	Interval  Interval
}

// timeline keeps entries sorted by start. Entries never overlap, so ends are sorted too,
// which lets lookups binary-search on either bound.
type timeline struct {
	entries   []Entry
	byBooking map[string]Interval
}

// Index is the per-resource set of busy intervals of one school.
// It is not safe for concurrent use; Calendar guards it.
type Index struct {
	timelines map[string]*timeline
}

func NewIndex() *Index {
	return &Index{timelines: make(map[string]*timeline)}
}

// Overlapping returns the entries of resourceID that overlap iv, ascending by start.
func (x *Index) Overlapping(resourceID string, iv Interval) []Entry {
	tl, ok := x.timelines[resourceID]
	if !ok {
		return nil
	}
	i := sort.Search(len(tl.entries), func(i int) bool {
		return tl.entries[i].Interval.End.After(iv.Start)
	})

	var out []Entry
	for ; i < len(tl.entries) && tl.entries[i].Interval.Start.Before(iv.End); i++ {
		out = append(out, tl.entries[i])
	}
	return out
}

// BusyIntervals returns the occupied intervals of resourceID that overlap [from, to),
// ascending, with touching intervals merged.
func (x *Index) BusyIntervals(resourceID string, from, to time.Time) []Interval {
	entries := x.Overlapping(resourceID, Interval{Start: from, End: to})

	var out []Interval
	for _, e := range entries {
		if n := len(out); n > 0 && !e.Interval.Start.After(out[n-1].End) {
			if e.Interval.End.After(out[n-1].End) {
				out[n-1].End = e.Interval.End
			}
			continue
		}
		out = append(out, e.Interval)
	}
	return out
}

// Insert registers iv for bookingID on resourceID.
// The index re-checks overlaps itself and fails with *ConflictError if any exist.
func (x *Index) Insert(resourceID string, iv Interval, bookingID string) error {
	if !iv.Valid() {
		return ErrInvalidInterval
	}
	tl, ok := x.timelines[resourceID]
	if !ok {
		tl = &timeline{byBooking: make(map[string]Interval)}
		x.timelines[resourceID] = tl
	}
	if _, dup := tl.byBooking[bookingID]; dup {
		return ErrAlreadyIndexed
	}

	if hits := x.Overlapping(resourceID, iv); len(hits) > 0 {
		conflicts := make([]Conflict, len(hits))
		for i, h := range hits {
			conflicts[i] = Conflict{
				ResourceID:           resourceID,
				Kind:                 ConflictOverlap,
				ConflictingBookingID: h.BookingID,
				Interval:             h.Interval,
				Severity:             SeverityCritical,
			}
		}
		return &ConflictError{Conflicts: conflicts}
	}

	pos := sort.Search(len(tl.entries), func(i int) bool {
		return !tl.entries[i].Interval.Start.Before(iv.Start)
	})
	tl.entries = slices.Insert(tl.entries, pos, Entry{BookingID: bookingID, Interval: iv})
	tl.byBooking[bookingID] = iv
	return nil
}

// Remove releases the interval held by bookingID on resourceID.
func (x *Index) Remove(resourceID, bookingID string) error {
	tl, ok := x.timelines[resourceID]
	if !ok {
		return ErrBookingNotFound
	}
	iv, ok := tl.byBooking[bookingID]
	if !ok {
		return ErrBookingNotFound
	}

	pos := sort.Search(len(tl.entries), func(i int) bool {
		return !tl.entries[i].Interval.Start.Before(iv.Start)
	})
	for ; pos < len(tl.entries); pos++ {
		if tl.entries[pos].BookingID == bookingID {
			break
		}
	}
	tl.entries = slices.Delete(tl.entries, pos, pos+1)
	delete(tl.byBooking, bookingID)
	if len(tl.entries) == 0 {
		delete(x.timelines, resourceID)
	}
	return nil
}

// Move replaces the interval of bookingID. On failure the original interval is kept.
func (x *Index) Move(resourceID, bookingID string, iv Interval) error {
	if !iv.Valid() {
		return ErrInvalidInterval
	}
	tl, ok := x.timelines[resourceID]
	if !ok {
		return ErrBookingNotFound
	}
	old, ok := tl.byBooking[bookingID]
	if !ok {
		return ErrBookingNotFound
	}

	if err := x.Remove(resourceID, bookingID); err != nil {
		return err
	}
	if err := x.Insert(resourceID, iv, bookingID); err != nil {
		// The slot was ours a moment ago, so putting it back cannot conflict.
		_ = x.Insert(resourceID, old, bookingID)
		return err
	}
	return nil
}

// Lookup returns the interval bookingID holds on resourceID.
func (x *Index) Lookup(resourceID, bookingID string) (Interval, bool) {
	tl, ok := x.timelines[resourceID]
	if !ok {
		return Interval{}, false
	}
	iv, ok := tl.byBooking[bookingID]
	return iv, ok
}

// Snapshot copies the whole index, keyed by resource id.
func (x *Index) Snapshot() map[string][]Entry {
	out := make(map[string][]Entry, len(x.timelines))
	for id, tl := range x.timelines {
		out[id] = slices.Clone(tl.entries)
	}
	return out
}
