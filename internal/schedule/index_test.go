package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexInsertAndOverlapping(t *testing.T) {
	x := NewIndex()
	require.NoError(t, x.Insert("car-1", span(13, 0, 14, 0), "b3"))
	require.NoError(t, x.Insert("car-1", span(9, 0, 10, 30), "b1"))
	require.NoError(t, x.Insert("car-1", span(10, 30, 11, 30), "b2"))

	got := x.Overlapping("car-1", span(10, 0, 13, 30))
	require.Len(t, got, 3)
	assert.Equal(t, "b1", got[0].BookingID)
	assert.Equal(t, "b2", got[1].BookingID)
	assert.Equal(t, "b3", got[2].BookingID)

	assert.Empty(t, x.Overlapping("car-1", span(11, 30, 13, 0)), "gap between bookings is free")
	assert.Empty(t, x.Overlapping("car-2", span(9, 0, 18, 0)))
}

func TestIndexInsertRejectsOverlap(t *testing.T) {
	x := NewIndex()
	require.NoError(t, x.Insert("inst-1", span(9, 0, 10, 30), "b1"))

	err := x.Insert("inst-1", span(10, 0, 11, 0), "b2")
	var conflictErr *ConflictError
	require.True(t, errors.As(err, &conflictErr))
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, "b1", conflictErr.Conflicts[0].ConflictingBookingID)
	assert.Equal(t, SeverityCritical, conflictErr.Conflicts[0].Severity)
	assert.ErrorIs(t, err, ErrSlotTaken)

	assert.NoError(t, x.Insert("inst-1", span(10, 30, 11, 30), "b3"), "adjacent interval is allowed")
	assert.ErrorIs(t, x.Insert("inst-1", span(15, 0, 16, 0), "b1"), ErrAlreadyIndexed)
	assert.ErrorIs(t, x.Insert("inst-1", span(16, 0, 15, 0), "b4"), ErrInvalidInterval)
}

func TestIndexBusyIntervalsMergesTouching(t *testing.T) {
	x := NewIndex()
	require.NoError(t, x.Insert("room-1", span(8, 0, 9, 0), "a"))
	require.NoError(t, x.Insert("room-1", span(9, 0, 10, 0), "b"))
	require.NoError(t, x.Insert("room-1", span(11, 0, 12, 0), "c"))
	require.NoError(t, x.Insert("room-1", span(17, 0, 18, 0), "d"))

	got := x.BusyIntervals("room-1", clock(8, 30), clock(12, 0))
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(span(8, 0, 10, 0)))
	assert.True(t, got[1].Equal(span(11, 0, 12, 0)))
}

func TestIndexRemove(t *testing.T) {
	x := NewIndex()
	require.NoError(t, x.Insert("inst-1", span(9, 0, 10, 0), "b1"))
	require.NoError(t, x.Insert("inst-1", span(10, 0, 11, 0), "b2"))

	require.NoError(t, x.Remove("inst-1", "b1"))
	assert.Empty(t, x.Overlapping("inst-1", span(9, 0, 10, 0)))
	assert.NoError(t, x.Insert("inst-1", span(9, 0, 10, 0), "b3"), "released slot can be reused")

	assert.ErrorIs(t, x.Remove("inst-1", "b1"), ErrBookingNotFound)
	assert.ErrorIs(t, x.Remove("nobody", "b1"), ErrBookingNotFound)
}

func TestIndexMove(t *testing.T) {
	x := NewIndex()
	require.NoError(t, x.Insert("inst-1", span(9, 0, 10, 0), "b1"))
	require.NoError(t, x.Insert("inst-1", span(11, 0, 12, 0), "b2"))

	t.Run("move into free slot", func(t *testing.T) {
		require.NoError(t, x.Move("inst-1", "b1", span(14, 0, 15, 0)))
		iv, ok := x.Lookup("inst-1", "b1")
		require.True(t, ok)
		assert.True(t, iv.Equal(span(14, 0, 15, 0)))
	})

	t.Run("move onto own slot overlap is fine", func(t *testing.T) {
		require.NoError(t, x.Move("inst-1", "b1", span(14, 30, 15, 30)))
	})

	t.Run("failed move keeps original", func(t *testing.T) {
		before := x.Snapshot()
		err := x.Move("inst-1", "b1", span(11, 30, 12, 30))
		var conflictErr *ConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, "b2", conflictErr.Conflicts[0].ConflictingBookingID)
		assert.Equal(t, before, x.Snapshot())
	})

	t.Run("unknown booking", func(t *testing.T) {
		assert.ErrorIs(t, x.Move("inst-1", "nope", span(16, 0, 17, 0)), ErrBookingNotFound)
	})
}
