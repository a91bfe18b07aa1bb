package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nekogravitycat/driving-school-backend/internal/events"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
	"github.com/nekogravitycat/driving-school-backend/internal/suggestion"
)

// Calendars resolves the calendar owning a school.
type Calendars interface {
	Calendar(ctx context.Context, schoolID string) (*schedule.Calendar, error)
}

// SchoolLister lists the schools the completion sweep visits.
type SchoolLister interface {
	ActiveIDs(ctx context.Context) ([]string, error)
}

type Service interface {
	Check(ctx context.Context, schoolID string, c schedule.Candidate) ([]schedule.Conflict, error)
	Create(ctx context.Context, schoolID string, c schedule.Candidate, actor string) (*schedule.Booking, []schedule.Conflict, error)
	Reschedule(ctx context.Context, schoolID, id string, iv schedule.Interval, actor string) (*schedule.Booking, []schedule.Conflict, error)
	Cancel(ctx context.Context, schoolID, id, reason, actor string) (*schedule.Booking, error)
	GetByID(ctx context.Context, schoolID, id string) (*schedule.Booking, error)
	List(ctx context.Context, filter Filter) ([]*schedule.Booking, int, error)
	History(ctx context.Context, schoolID, id string) ([]schedule.HistoryEntry, error)
	BusyIntervals(ctx context.Context, schoolID, resourceID string, from, to time.Time) ([]schedule.Interval, error)
	Suggest(ctx context.Context, schoolID string, c schedule.Candidate, opts suggestion.Options) ([]suggestion.Option, error)
	CompletePast(ctx context.Context) (int, error)
}

type service struct {
	repo      Repository
	calendars Calendars
	schools   SchoolLister
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo Repository, calendars Calendars, schools SchoolLister, publisher events.Publisher) Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &service{
		repo:      repo,
		calendars: calendars,
		schools:   schools,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) calendar(ctx context.Context, schoolID string) (*schedule.Calendar, error) {
	if schoolID == "" {
		return nil, ErrMissingSchool
	}
	return s.calendars.Calendar(ctx, schoolID)
}

func (s *service) Check(ctx context.Context, schoolID string, c schedule.Candidate) ([]schedule.Conflict, error) {
	cal, err := s.calendar(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return cal.Check(c)
}

func (s *service) Create(ctx context.Context, schoolID string, c schedule.Candidate, actor string) (*schedule.Booking, []schedule.Conflict, error) {
	cal, err := s.calendar(ctx, schoolID)
	if err != nil {
		return nil, nil, err
	}

	b, conflicts, err := cal.Create(ctx, c, actor)
	if err != nil {
		logRefusal(schoolID, "", err)
		return nil, conflicts, err
	}

	log.WithFields(log.Fields{
		"school_id":  schoolID,
		"booking_id": b.ID,
		"resources":  b.ResourceIDs,
		"warnings":   len(conflicts),
	}).Info("booking created")
	s.publish(ctx, events.BookingCreated, b, actor)
	return b, conflicts, nil
}

func (s *service) Reschedule(ctx context.Context, schoolID, id string, iv schedule.Interval, actor string) (*schedule.Booking, []schedule.Conflict, error) {
	cal, err := s.calendar(ctx, schoolID)
	if err != nil {
		return nil, nil, err
	}

	b, conflicts, err := cal.Reschedule(ctx, id, iv, actor)
	if err != nil {
		err = s.explainMissing(ctx, schoolID, id, err)
		logRefusal(schoolID, id, err)
		return nil, conflicts, err
	}

	log.WithFields(log.Fields{
		"school_id":  schoolID,
		"booking_id": b.ID,
		"interval":   b.Interval.String(),
	}).Info("booking rescheduled")
	s.publish(ctx, events.BookingRescheduled, b, actor)
	return b, conflicts, nil
}

func (s *service) Cancel(ctx context.Context, schoolID, id, reason, actor string) (*schedule.Booking, error) {
	cal, err := s.calendar(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	b, err := cal.Cancel(ctx, id, reason, actor)
	if err != nil {
		err = s.explainMissing(ctx, schoolID, id, err)
		logRefusal(schoolID, id, err)
		return nil, err
	}

	log.WithFields(log.Fields{
		"school_id":  schoolID,
		"booking_id": b.ID,
	}).Info("booking canceled")
	s.publish(ctx, events.BookingCanceled, b, actor)
	return b, nil
}

// explainMissing turns a calendar miss for a stored but no longer scheduled booking into ErrNotScheduled.
func (s *service) explainMissing(ctx context.Context, schoolID, id string, err error) error {
	if !errors.Is(err, schedule.ErrBookingNotFound) {
		return err
	}
	stored, getErr := s.repo.GetByID(ctx, id)
	if getErr != nil || stored.SchoolID != schoolID {
		return err
	}
	if stored.Status != schedule.StatusScheduled {
		return schedule.ErrNotScheduled
	}
	return err
}

func (s *service) GetByID(ctx context.Context, schoolID, id string) (*schedule.Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Bookings of other schools are reported as missing.
	if b.SchoolID != schoolID {
		return nil, schedule.ErrBookingNotFound
	}
	return b, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*schedule.Booking, int, error) {
	if filter.SchoolID == "" {
		return nil, 0, ErrMissingSchool
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, schedule.ErrInvalidType
	}
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, 0, ErrInvalidTimeRange
	}
	return s.repo.List(ctx, filter)
}

func (s *service) History(ctx context.Context, schoolID, id string) ([]schedule.HistoryEntry, error) {
	if _, err := s.GetByID(ctx, schoolID, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func (s *service) BusyIntervals(ctx context.Context, schoolID, resourceID string, from, to time.Time) ([]schedule.Interval, error) {
	if !to.After(from) {
		return nil, ErrInvalidTimeRange
	}
	cal, err := s.calendar(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return cal.BusyIntervals(resourceID, from, to)
}

func (s *service) Suggest(ctx context.Context, schoolID string, c schedule.Candidate, opts suggestion.Options) ([]suggestion.Option, error) {
	cal, err := s.calendar(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return suggestion.Suggest(ctx, cal, c, opts)
}

// CompletePast sweeps every active school. A failing school does not stop the others.
func (s *service) CompletePast(ctx context.Context) (int, error) {
	ids, err := s.schools.ActiveIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list schools: %w", err)
	}

	var (
		total int
		errs  []error
	)
	now := s.now()
	for _, schoolID := range ids {
		cal, err := s.calendars.Calendar(ctx, schoolID)
		if err != nil {
			errs = append(errs, fmt.Errorf("school %s: %w", schoolID, err))
			continue
		}
		done, err := cal.CompletePast(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("school %s: %w", schoolID, err))
		}
		for _, b := range done {
			s.publish(ctx, events.BookingCompleted, b, "system")
		}
		total += len(done)
	}
	return total, errors.Join(errs...)
}

func (s *service) publish(ctx context.Context, t events.Type, b *schedule.Booking, actor string) {
	if err := s.publisher.Publish(ctx, events.FromBooking(t, b, actor)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"school_id":  b.SchoolID,
			"booking_id": b.ID,
			"event":      t,
		}).Warn("failed to publish booking event")
	}
}

// logRefusal records mutations refused for a client reason. Server failures are logged by the response layer.
func logRefusal(schoolID, bookingID string, err error) {
	entry := log.WithFields(log.Fields{
		"school_id":  schoolID,
		"booking_id": bookingID,
	})

	var conflictErr *schedule.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		entry.WithField("conflicts", len(conflictErr.Conflicts)).Info("booking refused")
	case apperror.IsConflict(err), apperror.IsValidation(err):
		entry.WithField("reason", err.Error()).Info("booking refused")
	}
}
