package schedule

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nekogravitycat/driving-school-backend/internal/resource"
)

// Rules carries the tunable business rules of a calendar.
type Rules struct {
	Policy                Policy
	CancelReasonMinLength int
	Now                   func() time.Time
	NewID                 func() string
}

// DefaultRules returns the production defaults.
func DefaultRules() Rules {
	return Rules{
		Policy:                DefaultPolicy(),
		CancelReasonMinLength: 20,
	}
}

func (r Rules) withDefaults() Rules {
	if r.Policy.StudentOverlap == "" {
		r.Policy.StudentOverlap = SeverityWarning
	}
	if r.Policy.OutsideWindow == "" {
		r.Policy.OutsideWindow = SeverityWarning
	}
	if r.CancelReasonMinLength < 1 {
		r.CancelReasonMinLength = 20
	}
	if r.Now == nil {
		r.Now = func() time.Time { return time.Now().UTC() }
	}
	if r.NewID == nil {
		r.NewID = uuid.NewString
	}
	return r
}

// state is the in-memory view of one school: its resources and its occupying bookings.
type state struct {
	resources map[string]*resource.Resource
	bookings  map[string]*Booking
	students  map[string]map[string]struct{}
}

func (s *state) Resource(id string) (*resource.Resource, bool) {
	r, ok := s.resources[id]
	return r, ok
}

func (s *state) StudentBookings(studentID string) []*Booking {
	ids := s.students[studentID]
	out := make([]*Booking, 0, len(ids))
	for id := range ids {
		out = append(out, s.bookings[id])
	}
	return out
}

func (s *state) track(b *Booking) {
	s.bookings[b.ID] = b
	if b.StudentID == "" {
		return
	}
	if s.students[b.StudentID] == nil {
		s.students[b.StudentID] = make(map[string]struct{})
	}
	s.students[b.StudentID][b.ID] = struct{}{}
}

func (s *state) untrack(b *Booking) {
	delete(s.bookings, b.ID)
	if ids, ok := s.students[b.StudentID]; ok {
		delete(ids, b.ID)
		if len(ids) == 0 {
			delete(s.students, b.StudentID)
		}
	}
}

// Calendar owns the availability index of one school and is the only path that changes bookings.
// Commits take the write lock for the whole check-then-write sequence; Check only takes the read lock.
//
// Only scheduled bookings live in memory. Completed lessons are released and move the settled
// mark forward; no booking may start before that mark, so released lessons can never be overlapped.
type Calendar struct {
	schoolID string
	store    Store
	rules    Rules

	mu        sync.RWMutex
	loc       *time.Location
	index     *Index
	st        *state
	detector  *Detector
	settled   time.Time
	suspended error
}

// NewCalendar builds a calendar from persisted state.
// Canceled bookings are ignored and completed ones only advance the settled mark.
// Overlapping scheduled bookings are reported as an error.
func NewCalendar(schoolID string, loc *time.Location, store Store, rules Rules, resources []*resource.Resource, bookings []*Booking) (*Calendar, error) {
	if loc == nil {
		loc = time.UTC
	}
	rules = rules.withDefaults()

	cal := &Calendar{
		schoolID: schoolID,
		loc:      loc,
		store:    store,
		rules:    rules,
		index:    NewIndex(),
		st: &state{
			resources: make(map[string]*resource.Resource, len(resources)),
			bookings:  make(map[string]*Booking, len(bookings)),
			students:  make(map[string]map[string]struct{}),
		},
	}
	cal.detector = NewDetector(cal.index, cal.st, cal.st, loc, rules.Policy)

	for _, r := range resources {
		cal.st.resources[r.ID] = r.Clone()
	}
	for _, b := range bookings {
		switch b.Status {
		case StatusCompleted:
			cal.settle(b.Interval.End)
			continue
		case StatusCanceled:
			continue
		}
		if err := cal.occupy(b.Clone()); err != nil {
			return nil, fmt.Errorf("load booking %s: %w", b.ID, err)
		}
	}
	return cal, nil
}

func (cal *Calendar) SchoolID() string { return cal.schoolID }

func (cal *Calendar) Location() *time.Location {
	cal.mu.RLock()
	defer cal.mu.RUnlock()
	return cal.loc
}

// SetLocation switches the zone availability windows are evaluated in and lifts a suspension.
func (cal *Calendar) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	cal.mu.Lock()
	defer cal.mu.Unlock()
	cal.loc = loc
	cal.detector.loc = loc
	cal.suspended = nil
}

// Suspend makes every check and commit fail with err until SetLocation is called.
func (cal *Calendar) Suspend(err error) {
	cal.mu.Lock()
	defer cal.mu.Unlock()
	cal.suspended = err
}

// Settled returns the end of the latest completed lesson released from memory.
func (cal *Calendar) Settled() time.Time {
	cal.mu.RLock()
	defer cal.mu.RUnlock()
	return cal.settled
}

// Check returns the conflicts the candidate would create without changing anything.
func (cal *Calendar) Check(c Candidate) ([]Conflict, error) {
	cal.mu.RLock()
	defer cal.mu.RUnlock()
	return cal.check(c)
}

// check runs the detector and the calendar-wide rules. The caller holds cal.mu.
func (cal *Calendar) check(c Candidate) ([]Conflict, error) {
	if cal.suspended != nil {
		return nil, cal.suspended
	}
	conflicts, err := cal.detector.Check(c)
	if err != nil {
		return nil, err
	}
	if c.Interval.Start.Before(cal.settled) {
		return nil, ErrSettledPeriod
	}
	return conflicts, nil
}

func (cal *Calendar) settle(end time.Time) {
	if end.After(cal.settled) {
		cal.settled = end
	}
}

// Create books the candidate. Critical conflicts refuse the booking with *ConflictError;
// other conflicts are returned next to the created booking.
func (cal *Calendar) Create(ctx context.Context, c Candidate, actor string) (*Booking, []Conflict, error) {
	c.BookingID = ""

	cal.mu.Lock()
	defer cal.mu.Unlock()

	conflicts, err := cal.check(c)
	if err != nil {
		return nil, nil, err
	}
	if HasCritical(conflicts) {
		return nil, conflicts, &ConflictError{Conflicts: conflicts}
	}

	now := cal.rules.Now()
	b := &Booking{
		ID:          cal.rules.NewID(),
		SchoolID:    cal.schoolID,
		Type:        c.Type,
		Status:      StatusScheduled,
		ResourceIDs: slices.Clone(c.ResourceIDs),
		StudentID:   c.StudentID,
		Category:    strings.ToUpper(c.Category),
		Interval:    c.Interval,
		CreatedBy:   actor,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := cal.occupy(b); err != nil {
		return nil, conflicts, err
	}

	to := b.Interval
	h := HistoryEntry{
		ID:        cal.rules.NewID(),
		BookingID: b.ID,
		SchoolID:  cal.schoolID,
		Action:    ActionCreated,
		To:        &to,
		Actor:     actor,
		At:        now,
	}
	if err := cal.store.Insert(ctx, b.Clone(), h); err != nil {
		cal.release(b)
		return nil, conflicts, fmt.Errorf("persist booking: %w", err)
	}

	return b.Clone(), NonCritical(conflicts), nil
}

// Reschedule moves a scheduled booking to iv. Its own current slot is ignored during the check.
// On any failure the booking and the index keep their previous state.
func (cal *Calendar) Reschedule(ctx context.Context, bookingID string, iv Interval, actor string) (*Booking, []Conflict, error) {
	if !iv.Valid() {
		return nil, nil, ErrInvalidInterval
	}

	cal.mu.Lock()
	defer cal.mu.Unlock()

	if cal.suspended != nil {
		return nil, nil, cal.suspended
	}
	current, ok := cal.st.bookings[bookingID]
	if !ok {
		return nil, nil, ErrBookingNotFound
	}
	if current.Status != StatusScheduled {
		return nil, nil, ErrNotScheduled
	}

	conflicts, err := cal.check(Candidate{
		BookingID:   current.ID,
		ResourceIDs: current.ResourceIDs,
		Interval:    iv,
		Type:        current.Type,
		StudentID:   current.StudentID,
		Category:    current.Category,
	})
	if err != nil {
		return nil, nil, err
	}
	if HasCritical(conflicts) {
		return nil, conflicts, &ConflictError{Conflicts: conflicts}
	}

	if err := cal.move(current, iv); err != nil {
		return nil, conflicts, err
	}

	now := cal.rules.Now()
	updated := current.Clone()
	updated.Interval = iv
	updated.Version++
	updated.UpdatedAt = now

	from, to := current.Interval, iv
	h := HistoryEntry{
		ID:        cal.rules.NewID(),
		BookingID: current.ID,
		SchoolID:  cal.schoolID,
		Action:    ActionRescheduled,
		From:      &from,
		To:        &to,
		Actor:     actor,
		At:        now,
	}
	if err := cal.store.Update(ctx, updated.Clone(), current.Version, h); err != nil {
		cal.moveBack(current, iv)
		return nil, conflicts, fmt.Errorf("persist reschedule: %w", err)
	}

	cal.st.untrack(current)
	cal.st.track(updated)
	return updated.Clone(), NonCritical(conflicts), nil
}

// Cancel soft-deletes a scheduled booking and releases its resources.
func (cal *Calendar) Cancel(ctx context.Context, bookingID, reason, actor string) (*Booking, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < cal.rules.CancelReasonMinLength {
		return nil, ErrReasonTooShort
	}

	cal.mu.Lock()
	defer cal.mu.Unlock()

	if cal.suspended != nil {
		return nil, cal.suspended
	}
	current, ok := cal.st.bookings[bookingID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if current.Status != StatusScheduled {
		return nil, ErrNotScheduled
	}

	now := cal.rules.Now()
	updated := current.Clone()
	updated.Status = StatusCanceled
	updated.CancelReason = reason
	updated.Version++
	updated.UpdatedAt = now

	from := current.Interval
	h := HistoryEntry{
		ID:        cal.rules.NewID(),
		BookingID: current.ID,
		SchoolID:  cal.schoolID,
		Action:    ActionCanceled,
		From:      &from,
		Reason:    reason,
		Actor:     actor,
		At:        now,
	}
	if err := cal.store.Update(ctx, updated.Clone(), current.Version, h); err != nil {
		return nil, fmt.Errorf("persist cancel: %w", err)
	}

	cal.release(current)
	return updated, nil
}

// CompletePast marks scheduled bookings that ended at or before now as completed
// and releases them from memory. Failures are collected and do not stop the sweep.
func (cal *Calendar) CompletePast(ctx context.Context, now time.Time) ([]*Booking, error) {
	cal.mu.Lock()
	defer cal.mu.Unlock()

	var due []*Booking
	for _, b := range cal.st.bookings {
		if b.Status == StatusScheduled && !b.Interval.End.After(now) {
			due = append(due, b)
		}
	}
	slices.SortFunc(due, func(a, b *Booking) int { return a.Interval.Start.Compare(b.Interval.Start) })

	var (
		done []*Booking
		errs []error
	)
	for _, current := range due {
		updated := current.Clone()
		updated.Status = StatusCompleted
		updated.Version++
		updated.UpdatedAt = cal.rules.Now()

		h := HistoryEntry{
			ID:        cal.rules.NewID(),
			BookingID: current.ID,
			SchoolID:  cal.schoolID,
			Action:    ActionCompleted,
			Actor:     "system",
			At:        updated.UpdatedAt,
		}
		if err := cal.store.Update(ctx, updated.Clone(), current.Version, h); err != nil {
			errs = append(errs, fmt.Errorf("complete booking %s: %w", current.ID, err))
			continue
		}
		cal.release(current)
		cal.settle(current.Interval.End)
		done = append(done, updated.Clone())
	}
	return done, errors.Join(errs...)
}

// Get returns a copy of a scheduled booking.
func (cal *Calendar) Get(bookingID string) (*Booking, bool) {
	cal.mu.RLock()
	defer cal.mu.RUnlock()
	b, ok := cal.st.bookings[bookingID]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// BusyIntervals returns the merged occupied intervals of a resource overlapping [from, to).
func (cal *Calendar) BusyIntervals(resourceID string, from, to time.Time) ([]Interval, error) {
	if !to.After(from) {
		return nil, ErrInvalidInterval
	}
	cal.mu.RLock()
	defer cal.mu.RUnlock()
	if _, ok := cal.st.resources[resourceID]; !ok {
		return nil, ErrResourceNotFound
	}
	return cal.index.BusyIntervals(resourceID, from, to), nil
}

// Resource returns a copy of a resource known to the calendar.
func (cal *Calendar) Resource(id string) (*resource.Resource, bool) {
	cal.mu.RLock()
	defer cal.mu.RUnlock()
	r, ok := cal.st.resources[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Resources lists active resources of a kind, ordered by name then id.
func (cal *Calendar) Resources(kind resource.Kind) []*resource.Resource {
	cal.mu.RLock()
	defer cal.mu.RUnlock()

	var out []*resource.Resource
	for _, r := range cal.st.resources {
		if r.Kind == kind && r.IsActive {
			out = append(out, r.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *resource.Resource) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// PutResource adds or replaces a resource definition. Existing bookings are kept.
func (cal *Calendar) PutResource(r *resource.Resource) {
	cal.mu.Lock()
	defer cal.mu.Unlock()
	cal.st.resources[r.ID] = r.Clone()
}

// Snapshot is a deep copy of the calendar state.
type Snapshot struct {
	Bookings map[string]Booking
	Index    map[string][]Entry
}

func (cal *Calendar) Snapshot() Snapshot {
	cal.mu.RLock()
	defer cal.mu.RUnlock()

	bookings := make(map[string]Booking, len(cal.st.bookings))
	for id, b := range cal.st.bookings {
		bookings[id] = *b.Clone()
	}
	return Snapshot{Bookings: bookings, Index: cal.index.Snapshot()}
}

// occupy inserts b on every resource, undoing partial inserts on failure.
func (cal *Calendar) occupy(b *Booking) error {
	for i, id := range b.ResourceIDs {
		if err := cal.index.Insert(id, b.Interval, b.ID); err != nil {
			for _, done := range b.ResourceIDs[:i] {
				_ = cal.index.Remove(done, b.ID)
			}
			return err
		}
	}
	cal.st.track(b)
	return nil
}

func (cal *Calendar) release(b *Booking) {
	for _, id := range b.ResourceIDs {
		_ = cal.index.Remove(id, b.ID)
	}
	cal.st.untrack(b)
}

// move shifts b to iv on every resource, undoing partial moves on failure.
func (cal *Calendar) move(b *Booking, iv Interval) error {
	for i, id := range b.ResourceIDs {
		if err := cal.index.Move(id, b.ID, iv); err != nil {
			for _, done := range b.ResourceIDs[:i] {
				_ = cal.index.Move(done, b.ID, b.Interval)
			}
			return err
		}
	}
	return nil
}

func (cal *Calendar) moveBack(b *Booking, iv Interval) {
	for _, id := range b.ResourceIDs {
		if cur, ok := cal.index.Lookup(id, b.ID); ok && cur.Equal(iv) {
			_ = cal.index.Move(id, b.ID, b.Interval)
		}
	}
}
