package schedule

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/driving-school-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/driving-school-backend/internal/resource"
)

type fakeResources struct {
	calls atomic.Int64
	list  []*resource.Resource
	err   error
}

func (f *fakeResources) ListBySchool(_ context.Context, schoolID string) ([]*resource.Resource, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []*resource.Resource
	for _, r := range f.list {
		if r.SchoolID == schoolID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeSchools struct{}

func (fakeSchools) Location(_ context.Context, schoolID string) (*time.Location, error) {
	if schoolID == "missing" {
		return nil, errors.New("school not found")
	}
	return time.UTC, nil
}

func TestRegistryLoadsOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.bookings["b-1"] = &Booking{
		ID: "b-1", SchoolID: "school-1", Status: StatusScheduled, Type: TypePracticalLesson,
		ResourceIDs: []string{"inst-1"}, Interval: span(9, 0, 10, 0), Version: 1,
	}
	resources := &fakeResources{list: testResources()}
	reg := NewRegistry(store, resources, fakeSchools{}, DefaultRules())

	var wg sync.WaitGroup
	cals := make([]*Calendar, 16)
	for i := range cals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cal, err := reg.Calendar(ctx, "school-1")
			assert.NoError(t, err)
			cals[i] = cal
		}()
	}
	wg.Wait()

	for _, cal := range cals {
		assert.Same(t, cals[0], cal)
	}
	assert.Equal(t, int64(1), resources.calls.Load())

	conflicts, err := cals[0].Check(lesson(span(9, 30, 10, 30), "inst-1"))
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

func loadedCount(reg *Registry) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.calendars)
}

func TestRegistryLoadError(t *testing.T) {
	reg := NewRegistry(newMemStore(), &fakeResources{}, fakeSchools{}, DefaultRules())
	_, err := reg.Calendar(context.Background(), "missing")
	assert.Error(t, err)
	assert.Zero(t, loadedCount(reg))
}

func TestRegistryResourceChanged(t *testing.T) {
	ctx := context.Background()
	resources := &fakeResources{list: testResources()}
	reg := NewRegistry(newMemStore(), resources, fakeSchools{}, DefaultRules())

	cal, err := reg.Calendar(ctx, "school-1")
	require.NoError(t, err)

	car, ok := cal.Resource("car-1")
	require.True(t, ok)
	car.IsActive = false
	reg.ResourceChanged(ctx, car)

	_, err = cal.Check(lesson(span(9, 0, 10, 0), "car-1"))
	assert.ErrorIs(t, err, ErrResourceInactive)

	// Changes for schools that are not loaded are ignored.
	reg.ResourceChanged(ctx, &resource.Resource{ID: "x", SchoolID: "school-2"})
	assert.Equal(t, 1, loadedCount(reg))
}

var errSchoolInactive = apperror.New(http.StatusForbidden, "school is inactive")

// switchSchools serves a school whose zone and status can change between calls.
type switchSchools struct {
	mu     sync.Mutex
	loc    *time.Location
	err    error
	calls  int
	onCall func(call int)
}

func (s *switchSchools) set(loc *time.Location, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc, s.err = loc, err
}

func (s *switchSchools) Location(context.Context, string) (*time.Location, error) {
	s.mu.Lock()
	s.calls++
	call, hook := s.calls, s.onCall
	s.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc, s.err
}

func TestSchoolChangedKeepsSingleOwner(t *testing.T) {
	ctx := context.Background()
	zurich, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)
	schools := &switchSchools{loc: time.UTC}
	reg := NewRegistry(newMemStore(), &fakeResources{list: testResources()}, schools, DefaultRules())

	held, err := reg.Calendar(ctx, "school-1")
	require.NoError(t, err)

	schools.set(zurich, nil)
	reg.SchoolChanged(ctx, "school-1")

	fresh, err := reg.Calendar(ctx, "school-1")
	require.NoError(t, err)
	require.Same(t, held, fresh)
	assert.Equal(t, zurich, fresh.Location())

	// A booking committed through an older reference is visible to every caller.
	b, _, err := held.Create(ctx, lesson(span(9, 0, 10, 0), "inst-1"), "secretary")
	require.NoError(t, err)

	conflicts, err := fresh.Check(lesson(span(9, 0, 10, 0), "inst-1"))
	require.NoError(t, err)
	assert.True(t, HasCritical(conflicts))

	_, _, err = fresh.Create(ctx, lesson(span(9, 0, 10, 0), "inst-1"), "secretary")
	assert.Error(t, err)

	_, err = fresh.Cancel(ctx, b.ID, validReason, "secretary")
	assert.NoError(t, err)
}

func TestSchoolChangedSuspendsInactiveSchool(t *testing.T) {
	ctx := context.Background()
	schools := &switchSchools{loc: time.UTC}
	reg := NewRegistry(newMemStore(), &fakeResources{list: testResources()}, schools, DefaultRules())

	cal, err := reg.Calendar(ctx, "school-1")
	require.NoError(t, err)
	b, _, err := cal.Create(ctx, lesson(span(9, 0, 10, 0), "inst-1"), "secretary")
	require.NoError(t, err)

	schools.set(nil, errSchoolInactive)
	reg.SchoolChanged(ctx, "school-1")

	_, err = cal.Check(lesson(span(11, 0, 12, 0), "inst-1"))
	assert.ErrorIs(t, err, errSchoolInactive)
	_, _, err = cal.Create(ctx, lesson(span(11, 0, 12, 0), "inst-1"), "secretary")
	assert.ErrorIs(t, err, errSchoolInactive)
	_, _, err = cal.Reschedule(ctx, b.ID, span(11, 0, 12, 0), "secretary")
	assert.ErrorIs(t, err, errSchoolInactive)

	// Storage failures do not change the calendar.
	schools.set(nil, errors.New("connection reset"))
	reg.SchoolChanged(ctx, "school-1")
	_, err = cal.Check(lesson(span(11, 0, 12, 0), "inst-1"))
	assert.ErrorIs(t, err, errSchoolInactive)

	schools.set(time.UTC, nil)
	reg.SchoolChanged(ctx, "school-1")
	_, _, err = cal.Reschedule(ctx, b.ID, span(11, 0, 12, 0), "secretary")
	assert.NoError(t, err)
}

func TestSchoolChangedDuringLoadReloads(t *testing.T) {
	ctx := context.Background()
	zurich, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)

	schools := &switchSchools{loc: time.UTC}
	reg := NewRegistry(newMemStore(), &fakeResources{list: testResources()}, schools, DefaultRules())
	schools.onCall = func(call int) {
		if call == 1 {
			schools.set(zurich, nil)
			reg.SchoolChanged(ctx, "school-1")
		}
	}

	cal, err := reg.Calendar(ctx, "school-1")
	require.NoError(t, err)
	assert.Equal(t, zurich, cal.Location())
	assert.Equal(t, 2, schools.calls)
}

func TestRegistryRestoresSettledMark(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.bookings["done"] = &Booking{
		ID: "done", SchoolID: "school-1", Status: StatusCompleted, Type: TypeExam,
		ResourceIDs: []string{"inst-1"}, Interval: span(8, 0, 9, 0), Version: 2,
	}
	reg := NewRegistry(store, &fakeResources{list: testResources()}, fakeSchools{}, DefaultRules())

	cal, err := reg.Calendar(ctx, "school-1")
	require.NoError(t, err)
	assert.Empty(t, cal.Snapshot().Bookings)
	assert.Equal(t, clock(9, 0), cal.Settled())

	_, err = cal.Check(lesson(span(8, 0, 9, 0), "inst-1"))
	assert.ErrorIs(t, err, ErrSettledPeriod)
}
