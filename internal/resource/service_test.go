package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changes struct {
	seen []*Resource
}

func (c *changes) ResourceChanged(_ context.Context, res *Resource) {
	c.seen = append(c.seen, res)
}

func newTestService() (Service, *changes) {
	obs := &changes{}
	return NewService(NewMemoryRepository(), obs), obs
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, obs := newTestService()

	res, err := svc.Create(ctx, CreateRequest{
		SchoolID:   "school-a",
		Kind:       KindInstructor,
		Name:       "  Anna Keller ",
		Categories: []string{"be", "B", "b"},
		Windows:    []Window{{Weekday: time.Monday, Start: 8 * 60, End: 12 * 60}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "Anna Keller", res.Name)
	assert.Equal(t, []string{"B", "BE"}, res.Categories)
	assert.True(t, res.IsActive)
	require.Len(t, obs.seen, 1)
	assert.Equal(t, res.ID, obs.seen[0].ID)

	got, err := svc.GetByID(ctx, "school-a", res.ID)
	require.NoError(t, err)
	assert.Len(t, got.Windows, 1)

	_, err = svc.GetByID(ctx, "school-b", res.ID)
	assert.ErrorIs(t, err, ErrNotFound, "resources of another school are invisible")
}

func TestServiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, obs := newTestService()

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"missing school", CreateRequest{Kind: KindVehicle, Name: "Golf"}, ErrInvalidSchool},
		{"empty name", CreateRequest{SchoolID: "s", Kind: KindVehicle, Name: "   "}, ErrEmptyName},
		{"unknown kind", CreateRequest{SchoolID: "s", Kind: "boat", Name: "Ship"}, ErrInvalidKind},
		{"unknown category", CreateRequest{SchoolID: "s", Kind: KindVehicle, Name: "Golf", Categories: []string{"Z"}}, ErrInvalidCategory},
		{"room with categories", CreateRequest{SchoolID: "s", Kind: KindRoom, Name: "Room 1", Categories: []string{"B"}}, ErrRoomCategories},
		{"bad window", CreateRequest{SchoolID: "s", Kind: KindVehicle, Name: "Golf", Windows: []Window{{Weekday: time.Monday, Start: 600, End: 500}}}, ErrInvalidWindow},
		{"overlapping windows", CreateRequest{SchoolID: "s", Kind: KindVehicle, Name: "Golf", Windows: []Window{
			{Weekday: time.Monday, Start: 480, End: 720},
			{Weekday: time.Monday, Start: 700, End: 900},
		}}, ErrWindowOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, obs.seen)
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()
	svc, obs := newTestService()

	res, err := svc.Create(ctx, CreateRequest{SchoolID: "school-a", Kind: KindVehicle, Name: "Golf", Categories: []string{"B"}})
	require.NoError(t, err)

	name := "Golf GTI"
	categories := []string{"b", "be"}
	inactive := false
	updated, err := svc.Update(ctx, "school-a", res.ID, UpdateRequest{Name: &name, Categories: &categories, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Golf GTI", updated.Name)
	assert.Equal(t, []string{"B", "BE"}, updated.Categories)
	assert.False(t, updated.IsActive)
	require.Len(t, obs.seen, 2)
	assert.False(t, obs.seen[1].IsActive)

	blank := " "
	_, err = svc.Update(ctx, "school-a", res.ID, UpdateRequest{Name: &blank})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.Update(ctx, "school-b", res.ID, UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceSetWindows(t *testing.T) {
	ctx := context.Background()
	svc, obs := newTestService()

	res, err := svc.Create(ctx, CreateRequest{SchoolID: "school-a", Kind: KindRoom, Name: "Theory room"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, res.Categories)

	windows := []Window{
		{Weekday: time.Tuesday, Start: 18 * 60, End: 21 * 60},
		{Weekday: time.Thursday, Start: 18 * 60, End: 21 * 60},
	}
	updated, err := svc.SetWindows(ctx, "school-a", res.ID, windows)
	require.NoError(t, err)
	assert.Equal(t, windows, updated.Windows)
	assert.Len(t, obs.seen, 2)

	got, err := svc.GetByID(ctx, "school-a", res.ID)
	require.NoError(t, err)
	assert.Equal(t, windows, got.Windows)

	_, err = svc.SetWindows(ctx, "school-a", res.ID, []Window{{Weekday: 9, Start: 0, End: 60}})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	cleared, err := svc.SetWindows(ctx, "school-a", res.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, cleared.Windows)
}

func TestServiceList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	seed := []CreateRequest{
		{SchoolID: "school-a", Kind: KindInstructor, Name: "Anna", Categories: []string{"B"}},
		{SchoolID: "school-a", Kind: KindInstructor, Name: "Marc", Categories: []string{"A", "B"}},
		{SchoolID: "school-a", Kind: KindVehicle, Name: "Golf", Categories: []string{"B"}},
		{SchoolID: "school-b", Kind: KindInstructor, Name: "Ben", Categories: []string{"A"}},
	}
	for _, req := range seed {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	items, total, err := svc.List(ctx, Filter{SchoolID: "school-a", Kind: KindInstructor})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Anna", items[0].Name)

	items, total, err = svc.List(ctx, Filter{SchoolID: "school-a", Category: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Marc", items[0].Name)

	items, total, err = svc.List(ctx, Filter{SchoolID: "school-a", SortOrder: "desc", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Marc", items[0].Name)

	_, _, err = svc.List(ctx, Filter{SchoolID: "school-a", Kind: "boat"})
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, _, err = svc.List(ctx, Filter{})
	assert.ErrorIs(t, err, ErrInvalidSchool)

	all, err := svc.ListBySchool(ctx, "school-b")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
