package schedule

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/nekogravitycat/driving-school-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/driving-school-backend/internal/resource"
)

// ResourceSource loads the resources of a school.
type ResourceSource interface {
	ListBySchool(ctx context.Context, schoolID string) ([]*resource.Resource, error)
}

// SchoolSource resolves the time zone a school's availability windows are expressed in.
type SchoolSource interface {
	Location(ctx context.Context, schoolID string) (*time.Location, error)
}

// Registry hands out the single Calendar owning each school.
// Schools never share resources, so calendars are independent of each other.
// A calendar, once published, is never replaced; school and resource changes are applied to it in place.
type Registry struct {
	store     Store
	resources ResourceSource
	schools   SchoolSource
	rules     Rules

	group   singleflight.Group
	refresh sync.Mutex

	mu        sync.Mutex
	calendars map[string]*Calendar
	loading   map[string][]*resource.Resource
	stale     map[string]bool
}

func NewRegistry(store Store, resources ResourceSource, schools SchoolSource, rules Rules) *Registry {
	return &Registry{
		store:     store,
		resources: resources,
		schools:   schools,
		rules:     rules,
		calendars: make(map[string]*Calendar),
		loading:   make(map[string][]*resource.Resource),
		stale:     make(map[string]bool),
	}
}

// Calendar returns the calendar of schoolID, loading it from storage on first use.
func (r *Registry) Calendar(ctx context.Context, schoolID string) (*Calendar, error) {
	r.mu.Lock()
	cal, ok := r.calendars[schoolID]
	r.mu.Unlock()
	if ok {
		return cal, nil
	}

	v, err, _ := r.group.Do(schoolID, func() (any, error) {
		for {
			r.mu.Lock()
			if cal, ok := r.calendars[schoolID]; ok {
				r.mu.Unlock()
				return cal, nil
			}
			r.loading[schoolID] = nil
			delete(r.stale, schoolID)
			r.mu.Unlock()

			cal, err := r.load(ctx, schoolID)

			r.mu.Lock()
			pending := r.loading[schoolID]
			delete(r.loading, schoolID)
			if err != nil {
				r.mu.Unlock()
				return nil, err
			}
			// The school changed while loading; the unpublished calendar may carry the old zone.
			if r.stale[schoolID] {
				delete(r.stale, schoolID)
				r.mu.Unlock()
				continue
			}
			for _, res := range pending {
				cal.PutResource(res)
			}
			r.calendars[schoolID] = cal
			r.mu.Unlock()
			return cal, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(*Calendar), nil
}

func (r *Registry) load(ctx context.Context, schoolID string) (*Calendar, error) {
	loc, err := r.schools.Location(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	resources, err := r.resources.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	bookings, err := r.store.ListScheduled(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	settled, err := r.store.SettledUntil(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("load settled mark: %w", err)
	}

	cal, err := NewCalendar(schoolID, loc, r.store, r.rules, resources, bookings)
	if err != nil {
		return nil, err
	}
	cal.settle(settled)

	log.WithFields(log.Fields{
		"school_id": schoolID,
		"resources": len(resources),
		"bookings":  len(bookings),
		"settled":   settled,
	}).Info("calendar loaded")
	return cal, nil
}

// ResourceChanged keeps a loaded calendar in sync with a created or updated resource.
func (r *Registry) ResourceChanged(_ context.Context, res *resource.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cal, ok := r.calendars[res.SchoolID]; ok {
		cal.PutResource(res)
		return
	}
	if pending, ok := r.loading[res.SchoolID]; ok {
		r.loading[res.SchoolID] = append(pending, res.Clone())
	}
}

// SchoolChanged re-reads the school of a loaded calendar and applies it in place.
// A school that can no longer be scheduled (deactivated or gone) suspends its calendar;
// storage failures leave the calendar as it is.
func (r *Registry) SchoolChanged(ctx context.Context, schoolID string) {
	r.refresh.Lock()
	defer r.refresh.Unlock()

	r.mu.Lock()
	cal, ok := r.calendars[schoolID]
	if !ok {
		if _, loading := r.loading[schoolID]; loading {
			r.stale[schoolID] = true
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	loc, err := r.schools.Location(ctx, schoolID)
	if err != nil {
		if apperror.CodeOf(err) >= http.StatusInternalServerError {
			log.WithError(err).WithField("school_id", schoolID).Warn("failed to refresh calendar school")
			return
		}
		cal.Suspend(err)
		log.WithError(err).WithField("school_id", schoolID).Info("calendar suspended")
		return
	}
	cal.SetLocation(loc)
	log.WithFields(log.Fields{"school_id": schoolID, "timezone": loc.String()}).Info("calendar relocated")
}
