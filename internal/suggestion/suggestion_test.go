package suggestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/driving-school-backend/internal/resource"
	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
)

type nopStore struct{}

func (nopStore) Insert(context.Context, *schedule.Booking, schedule.HistoryEntry) error { return nil }

func (nopStore) Update(context.Context, *schedule.Booking, int, schedule.HistoryEntry) error {
	return nil
}

func (nopStore) ListScheduled(context.Context, string) ([]*schedule.Booking, error) { return nil, nil }

func (nopStore) SettledUntil(context.Context, string) (time.Time, error) { return time.Time{}, nil }

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func slot(h1, m1, h2, m2 int) schedule.Interval {
	return schedule.Interval{Start: at(h1, m1), End: at(h2, m2)}
}

func newCalendar(t *testing.T) *schedule.Calendar {
	t.Helper()
	resources := []*resource.Resource{
		{ID: "inst-1", SchoolID: "s", Kind: resource.KindInstructor, Name: "Anna", Categories: []string{"B"}, IsActive: true},
		{ID: "inst-2", SchoolID: "s", Kind: resource.KindInstructor, Name: "Marc", Categories: []string{"B"}, IsActive: true},
		{ID: "inst-3", SchoolID: "s", Kind: resource.KindInstructor, Name: "Zoe", Categories: []string{"A"}, IsActive: true},
		{ID: "car-1", SchoolID: "s", Kind: resource.KindVehicle, Name: "Golf", Categories: []string{"B"}, IsActive: true},
	}
	cal, err := schedule.NewCalendar("s", time.UTC, nopStore{}, schedule.DefaultRules(), resources, nil)
	require.NoError(t, err)
	return cal
}

func lesson(iv schedule.Interval, ids ...string) schedule.Candidate {
	return schedule.Candidate{ResourceIDs: ids, Interval: iv, Type: schedule.TypePracticalLesson, Category: "B"}
}

func TestSuggestPrefersSwapAtSameTime(t *testing.T) {
	ctx := context.Background()
	cal := newCalendar(t)
	_, _, err := cal.Create(ctx, lesson(slot(9, 0, 10, 0), "inst-1"), "secretary")
	require.NoError(t, err)

	options, err := Suggest(ctx, cal, lesson(slot(9, 0, 10, 0), "inst-1", "car-1"), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, options, 5)

	first := options[0]
	assert.Equal(t, []string{"inst-2", "car-1"}, first.ResourceIDs)
	assert.Equal(t, time.Duration(0), first.Shift)
	assert.Equal(t, 1, first.Swaps)

	for _, o := range options {
		conflicts, err := cal.Check(lesson(o.Interval, o.ResourceIDs...))
		require.NoError(t, err)
		assert.False(t, schedule.HasCritical(conflicts), "option %v must be bookable", o)
		assert.NotContains(t, o.ResourceIDs, "inst-3", "unqualified instructor is never proposed")
	}
}

func TestSuggestFallsBackToTimeShift(t *testing.T) {
	ctx := context.Background()
	cal := newCalendar(t)
	_, _, err := cal.Create(ctx, lesson(slot(9, 0, 10, 0), "inst-1"), "secretary")
	require.NoError(t, err)
	_, _, err = cal.Create(ctx, lesson(slot(9, 0, 10, 0), "inst-2"), "secretary")
	require.NoError(t, err)

	options, err := Suggest(ctx, cal, lesson(slot(9, 0, 10, 0), "inst-1", "car-1"), Options{Step: 30 * time.Minute, MaxSteps: 4, Limit: 2})
	require.NoError(t, err)
	require.Len(t, options, 2)

	assert.Equal(t, time.Hour, options[0].Shift)
	assert.True(t, options[0].Interval.Equal(slot(10, 0, 11, 0)))
	assert.Equal(t, 0, options[0].Swaps)
	assert.Equal(t, -time.Hour, options[1].Shift)
	assert.True(t, options[1].Interval.Equal(slot(8, 0, 9, 0)))
}

func TestSuggestFreeCandidateComesFirst(t *testing.T) {
	cal := newCalendar(t)
	options, err := Suggest(context.Background(), cal, lesson(slot(14, 0, 15, 0), "inst-1"), Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, time.Duration(0), options[0].Shift)
	assert.Equal(t, []string{"inst-1"}, options[0].ResourceIDs)
}

func TestSuggestReturnsValidationErrors(t *testing.T) {
	cal := newCalendar(t)
	_, err := Suggest(context.Background(), cal, lesson(slot(10, 0, 9, 0), "inst-1"), DefaultOptions())
	assert.ErrorIs(t, err, schedule.ErrInvalidInterval)

	_, err = Suggest(context.Background(), cal, lesson(slot(9, 0, 10, 0), "ghost"), DefaultOptions())
	assert.ErrorIs(t, err, schedule.ErrResourceNotFound)
}

func TestSuggestHonoursContext(t *testing.T) {
	cal := newCalendar(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Suggest(ctx, cal, lesson(slot(9, 0, 10, 0), "inst-1"), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
