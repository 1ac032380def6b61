package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelops/rent-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func midMonthStay(checkIn engine.Date) engine.Stay {
	return engine.Stay{CheckIn: checkIn, Convention: engine.ConventionMidMonth}
}

func calendarStay(checkIn engine.Date) engine.Stay {
	return engine.Stay{CheckIn: checkIn, Convention: engine.ConventionCalendar}
}

// =============================================================================
// ENUMERATION
// =============================================================================

func TestEnumerateWindows_MidMonth_TwoCycles(t *testing.T) {
	// GIVEN: MIDMONTH tenant checked in 2025-12-10, no checkout
	// WHEN: Enumerating as of 2026-01-15
	// THEN: Two windows, contiguous, second one in progress

	stay := midMonthStay(d(2025, time.December, 10))

	windows, err := engine.EnumerateWindows(stay, d(2026, time.January, 15))
	require.NoError(t, err)

	assert.Equal(t, []engine.CycleWindow{
		window(d(2025, time.December, 10), d(2026, time.January, 9)),
		window(d(2026, time.January, 10), d(2026, time.February, 9)),
	}, windows)
}

func TestEnumerateWindows_Calendar_JoinMonthThenFullMonths(t *testing.T) {
	stay := calendarStay(d(2025, time.March, 15))

	windows, err := engine.EnumerateWindows(stay, d(2025, time.May, 2))
	require.NoError(t, err)

	assert.Equal(t, []engine.CycleWindow{
		window(d(2025, time.March, 15), d(2025, time.March, 31)),
		window(d(2025, time.April, 1), d(2025, time.April, 30)),
		window(d(2025, time.May, 1), d(2025, time.May, 31)),
	}, windows)
}

func TestEnumerateWindows_CheckedOutTenant_StopsAtCheckout(t *testing.T) {
	// GIVEN: Tenant checked out January 20, reference date far later
	// WHEN: Enumerating
	// THEN: Enumeration stops at the window containing the checkout

	checkOut := d(2026, time.January, 20)
	stay := midMonthStay(d(2025, time.December, 10))
	stay.CheckOut = &checkOut

	windows, err := engine.EnumerateWindows(stay, d(2026, time.June, 1))
	require.NoError(t, err)

	require.Len(t, windows, 2)
	assert.Equal(t, window(d(2026, time.January, 10), d(2026, time.February, 9)), windows[1])
}

func TestEnumerateWindows_ReferenceBeforeCheckIn_SingleUpcomingWindow(t *testing.T) {
	stay := midMonthStay(d(2026, time.March, 10))

	windows, err := engine.EnumerateWindows(stay, d(2026, time.January, 1))
	require.NoError(t, err)

	require.Len(t, windows, 1)
	assert.Equal(t, d(2026, time.March, 10), windows[0].Start)
}

// =============================================================================
// IDEMPOTENCE
// =============================================================================

func TestEnumerateWindows_Idempotent(t *testing.T) {
	// Identical inputs must yield identical window lists. This underlies
	// safe upsert semantics for the persisted cycle cache.

	stay := midMonthStay(d(2024, time.July, 31))
	asOf := d(2026, time.February, 14)

	first, err := engine.EnumerateWindows(stay, asOf)
	require.NoError(t, err)
	second, err := engine.EnumerateWindows(stay, asOf)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// =============================================================================
// FAILURE MODES
// =============================================================================

func TestEnumerateWindows_IterationCapExceeded_HardError(t *testing.T) {
	// GIVEN: A corrupted check-in date decades in the past
	// WHEN: Enumerating to today
	// THEN: Hard CycleOverflowError, never a truncated list

	stay := midMonthStay(d(1980, time.January, 1))

	windows, err := engine.EnumerateWindows(stay, d(2026, time.January, 1))

	require.Error(t, err)
	assert.Nil(t, windows)
	assert.ErrorIs(t, err, engine.ErrCycleOverflow)
	assert.True(t, engine.IsDataAnomaly(err))

	var overflow *engine.CycleOverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, 240, overflow.Cap)
}

func TestEnumerateWindows_CheckOutBeforeCheckIn_Rejected(t *testing.T) {
	checkOut := d(2025, time.November, 1)
	stay := midMonthStay(d(2025, time.December, 10))
	stay.CheckOut = &checkOut

	_, err := engine.EnumerateWindows(stay, d(2026, time.January, 1))

	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidStay)
	assert.True(t, engine.IsClientError(err))
}

func TestEnumerateWindows_UnknownConvention_Rejected(t *testing.T) {
	stay := engine.Stay{CheckIn: d(2025, time.December, 10), Convention: "weekly"}

	_, err := engine.EnumerateWindows(stay, d(2026, time.January, 1))
	assert.ErrorIs(t, err, engine.ErrInvalidStay)
}

// =============================================================================
// WINDOW LOOKUP
// =============================================================================

func TestWindowAt(t *testing.T) {
	windows := []engine.CycleWindow{
		window(d(2025, time.December, 10), d(2026, time.January, 9)),
		window(d(2026, time.January, 10), d(2026, time.February, 9)),
	}

	// Date inside a window
	w, ok := engine.WindowAt(windows, d(2026, time.January, 15))
	require.True(t, ok)
	assert.Equal(t, windows[1], w)

	// Date past all windows: most recently started
	w, ok = engine.WindowAt(windows, d(2026, time.June, 1))
	require.True(t, ok)
	assert.Equal(t, windows[1], w)

	// Date before all windows: first window
	w, ok = engine.WindowAt(windows, d(2025, time.June, 1))
	require.True(t, ok)
	assert.Equal(t, windows[0], w)

	_, ok = engine.WindowAt(nil, d(2026, time.January, 1))
	assert.False(t, ok)
}
