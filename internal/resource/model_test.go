package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCovers(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)

	// 2025-03-10 is a Monday.
	instructor := &Resource{
		Kind: KindInstructor,
		Windows: []Window{
			{Weekday: time.Monday, Start: 8 * 60, End: 12 * 60},
			{Weekday: time.Monday, Start: 13 * 60, End: 18 * 60},
			{Weekday: time.Tuesday, Start: 20 * 60, End: 24 * 60},
		},
	}

	at := func(day, hour, minute int) time.Time {
		return time.Date(2025, 3, day, hour, minute, 0, 0, zurich)
	}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside morning window", at(10, 9, 0), at(10, 10, 30), true},
		{"touching window edges", at(10, 8, 0), at(10, 12, 0), true},
		{"spans lunch gap", at(10, 11, 30), at(10, 13, 30), false},
		{"before opening", at(10, 7, 30), at(10, 8, 30), false},
		{"wrong weekday", at(12, 9, 0), at(12, 10, 0), false},
		{"until midnight", at(11, 22, 0), at(12, 0, 0), true},
		{"past midnight", at(11, 23, 0), at(12, 0, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, instructor.Covers(tt.start, tt.end, zurich))
		})
	}
}

func TestCoversWithoutWindows(t *testing.T) {
	r := &Resource{Kind: KindVehicle}
	start := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	assert.True(t, r.Covers(start, start.Add(time.Hour), time.UTC))
}

func TestCoversUsesLocalTime(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)

	r := &Resource{Windows: []Window{{Weekday: time.Monday, Start: 8 * 60, End: 9 * 60}}}
	// 07:00 UTC is 08:00 in Zurich during winter time.
	start := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	assert.True(t, r.Covers(start, start.Add(time.Hour), zurich))
	assert.False(t, r.Covers(start, start.Add(time.Hour), time.UTC))
}

func TestServesCategory(t *testing.T) {
	car := &Resource{Kind: KindVehicle, Categories: []string{"B", "BE"}}
	room := &Resource{Kind: KindRoom}

	assert.True(t, car.ServesCategory("b"))
	assert.True(t, car.ServesCategory(""))
	assert.False(t, car.ServesCategory("A"))
	assert.True(t, room.ServesCategory("C"))
}

func TestNormalizeCategories(t *testing.T) {
	got, err := NormalizeCategories([]string{" b", "A1", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B"}, got)

	_, err = NormalizeCategories([]string{"Z"})
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestValidateWindows(t *testing.T) {
	assert.NoError(t, ValidateWindows([]Window{
		{Weekday: time.Monday, Start: 480, End: 720},
		{Weekday: time.Monday, Start: 720, End: 1020},
	}))
	assert.ErrorIs(t, ValidateWindows([]Window{
		{Weekday: time.Monday, Start: 480, End: 720},
		{Weekday: time.Monday, Start: 700, End: 800},
	}), ErrWindowOverlap)
	assert.ErrorIs(t, ValidateWindows([]Window{{Weekday: time.Friday, Start: 600, End: 600}}), ErrInvalidWindow)
	assert.ErrorIs(t, ValidateWindows([]Window{{Weekday: 7, Start: 0, End: 60}}), ErrInvalidWindow)
}

func TestClock(t *testing.T) {
	m, err := ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, 465, m)
	assert.Equal(t, "07:45", FormatClock(m))

	m, err = ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, 1440, m)

	_, err = ParseClock("7h")
	assert.Error(t, err)
}
