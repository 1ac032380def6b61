/*
ledger.go - Cycle enumeration from check-in to a cutoff

PURPOSE:
  Enumerates the full sequence of billing windows for a stay, from
  check-in up to "now" (or checkout, whichever is earlier). This is the
  spine every downstream computation walks: gap detection classifies
  these windows, the summary builder derives entries from them, and the
  reconciliation scheduler caches them.

IDEMPOTENCE:
  Enumeration is a pure function of (stay, reference date). Calling it
  twice with identical inputs yields identical window lists, which is
  what makes the persisted cycle cache safe to upsert under concurrent
  retries: every writer computes the same rows for the same
  (tenant, cycle_start) key.

ITERATION CAP:
  A stay spanning maxCycleIterations windows (20 years of monthly
  cycles) indicates corrupted data - a check-in far in the past or a
  cutoff far in the future. Hitting the cap is a hard CycleOverflowError,
  never a silently truncated list presented as complete.

SEE ALSO:
  - cycle.go: single-window boundary math
  - gaps.go, summary.go: consumers of the enumerated windows
*/
package engine

// maxCycleIterations bounds enumeration against pathological date
// combinations: 240 monthly cycles = 20 years of tenancy.
const maxCycleIterations = 240

// EnumerateWindows returns the ordered cycle windows of a stay, from
// check-in until the window containing min(referenceDate, checkout).
// The final window may extend past the cutoff; it is the cycle in
// progress, not a truncated one.
func EnumerateWindows(stay Stay, referenceDate Date) ([]CycleWindow, error) {
	if err := stay.Validate(); err != nil {
		return nil, err
	}

	cutoff := referenceDate
	if stay.CheckOut != nil && stay.CheckOut.Before(cutoff) {
		cutoff = *stay.CheckOut
	}

	var windows []CycleWindow
	ref := stay.CheckIn
	for i := 0; ; i++ {
		if i >= maxCycleIterations {
			return nil, &CycleOverflowError{
				CheckIn: stay.CheckIn,
				Cutoff:  cutoff,
				Cap:     maxCycleIterations,
			}
		}

		w := ComputeWindow(stay.Convention, stay.CheckIn, ref)
		windows = append(windows, w)

		// Stop once this window's end reaches or passes the cutoff.
		if w.End.AfterOrEqual(cutoff) {
			break
		}
		ref = w.End.AddDays(1)
	}
	return windows, nil
}

// WindowAt returns the enumerated window containing the given date, or
// the most recently started window before it. Falls back to the first
// window when the date precedes the whole stay (tenant not checked in
// yet). The boolean is false only for an empty window list.
func WindowAt(windows []CycleWindow, at Date) (CycleWindow, bool) {
	if len(windows) == 0 {
		return CycleWindow{}, false
	}
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i].Contains(at) {
			return windows[i], true
		}
	}
	// No window contains the date: pick the most recently started one.
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i].Start.BeforeOrEqual(at) {
			return windows[i], true
		}
	}
	return windows[0], true
}
