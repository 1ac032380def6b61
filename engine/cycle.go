/*
cycle.go - Cycle window boundary computation

PURPOSE:
  Computes the billing period that contains a given reference date, for a
  given convention and anchor (check-in) date. This is the single
  implementation of cycle boundary math; the ledger, gap detector, and
  summary builder all derive their windows from here, so boundary rules
  can never disagree between consumers.

CONVENTIONS:
  CALENDAR:
    Cycles run 1st to last day of the month. The join month is special:
    its cycle starts on the check-in day, producing a partial first month.
      check-in Mar 15 -> [Mar 15, Mar 31], [Apr 1, Apr 30], ...

  MIDMONTH:
    Cycles are anchored to the check-in day-of-month and span into the
    next month: [anchor-day, anchor-day minus one of next month].
      check-in Dec 10 -> [Dec 10, Jan 9], [Jan 10, Feb 9], ...

CLAMPING:
  When the anchor day exceeds a month's length, the boundary clamps to
  the month's last day. Clamping is applied independently at every month
  transition against the ORIGINAL anchor day, never against a previously
  clamped value, so an anchor of 31 yields Jan 31, Feb 28, Mar 31 - the
  short February never drags later boundaries down.

ERROR CONDITIONS:
  None. ComputeWindow always returns a valid window (Start <= End) for
  valid input dates; invalid dates are rejected by callers before this
  is invoked.

SEE ALSO:
  - ledger.go: enumerates consecutive windows via ComputeWindow
  - date.go: ClampDay, DaysInMonth
*/
package engine

// ComputeWindow returns the cycle window containing referenceDate, for the
// given convention anchored at anchor (the tenant's check-in date). Both
// dates are date-only; callers normalize timestamps via DateOf first.
func ComputeWindow(convention BillingConvention, anchor, referenceDate Date) CycleWindow {
	switch convention {
	case ConventionMidMonth:
		return midMonthWindow(anchor, referenceDate)
	default:
		return calendarWindow(anchor, referenceDate)
	}
}

// NextWindow returns the cycle window immediately following w.
// Consecutive windows are contiguous: next.Start == w.End + 1 day.
func NextWindow(convention BillingConvention, anchor Date, w CycleWindow) CycleWindow {
	return ComputeWindow(convention, anchor, w.End.AddDays(1))
}

// calendarWindow: month-aligned, except the join month starts at check-in.
func calendarWindow(anchor, ref Date) CycleWindow {
	start := StartOfMonth(ref.Year(), ref.Month())
	if ref.SameMonth(anchor) {
		start = anchor
	}
	return CycleWindow{
		Start: start,
		End:   EndOfMonth(ref.Year(), ref.Month()),
	}
}

// midMonthWindow: anchored to the check-in day-of-month, clamped per month.
func midMonthWindow(anchor, ref Date) CycleWindow {
	anchorDay := anchor.Day()

	// Did this month's cycle already start by ref? Compare against the
	// CLAMPED anchor day: with anchor 31 and ref Feb 28, the cycle starts
	// on Feb 28, not back on Jan 31.
	var startYear, startMonth = ref.Year(), ref.Month()
	if ref.Day() < ClampDay(startYear, startMonth, anchorDay) {
		startYear, startMonth = PrevMonth(startYear, startMonth)
	}
	start := NewDate(startYear, startMonth, ClampDay(startYear, startMonth, anchorDay))

	// End = next cycle's clamped start minus one day. The next boundary
	// reclamps against whatever month it lands in.
	nextYear, nextMonth := NextMonth(startYear, startMonth)
	nextStart := NewDate(nextYear, nextMonth, ClampDay(nextYear, nextMonth, anchorDay))

	return CycleWindow{Start: start, End: nextStart.AddDays(-1)}
}
