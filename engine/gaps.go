/*
gaps.go - Unpaid / underpaid cycle detection

PURPOSE:
  Classifies every cycle window of a stay as covered, partial, pending,
  or unpaid, and emits the non-covered ones as ordered Gaps. This is a
  pure read-and-classify pass: no payment lookup mutates anything.

COVERAGE RULE:
  A window is covered iff
    (expectedDue > 0 AND totalPaid >= expectedDue - epsilon)
    OR (expectedDue == 0 AND totalPaid > 0)
  where epsilon (1e-5) absorbs float rounding noise from upstream
  payment systems. Only payments whose window matches EXACTLY and whose
  status is paid/partial count toward totalPaid.

EXPECTED-DUE FALLBACK CHAIN:
  1. Allocation proration (precise)        -> DueFromAllocation
  2. max(recorded_due) among the window's
     payments, any status                  -> DueFromPaymentRecord
  3. Flat current-price assumption         -> DueFromLegacyFallback
  The chosen source is tagged on every entry, so consumers can tell a
  prorated figure from a best-effort one.

ORDERING:
  The tenant's first (check-in) cycle always sorts first regardless of
  date: the earliest obligation must be settled before later ones. All
  other gaps sort chronologically by window start.

SEE ALSO:
  - proration.go: the precise expected-due computation
  - summary.go: aggregates these entries into the published summary
*/
package engine

import "sort"

// ClassifyWindow computes the canonical ledger entry for one window.
// flatFallback is the tenant's current bed price, used only when neither
// the allocation history nor any payment row can supply a due amount.
func ClassifyWindow(window CycleWindow, payments PaymentIndex, intervals []AllocationInterval, flatFallback Money) CycleLedgerEntry {
	rows := payments[window.Key()]

	totalPaid := ZeroMoney
	for _, p := range rows {
		if p.Status.CountsAsPaid() {
			totalPaid = totalPaid.Add(p.AmountPaid)
		}
	}

	expected, source := resolveExpectedDue(window, rows, intervals, flatFallback)
	// The entry is published output: the due figure leaves the engine
	// here, so this is where 2-decimal rounding happens. A tenant who
	// pays exactly the displayed amount must count as covered.
	expected = expected.Round2()

	covered := false
	if expected.IsPositive() {
		covered = totalPaid.Covers(expected)
	} else {
		covered = totalPaid.IsPositive()
	}

	entry := CycleLedgerEntry{
		Window:      window,
		TotalPaid:   totalPaid,
		ExpectedDue: expected,
		DueSource:   source,
	}

	switch {
	case covered:
		entry.Status = StatusPaid
		entry.RemainingDue = ZeroMoney
	case totalPaid.IsPositive():
		entry.Status = StatusPartial
		entry.RemainingDue = expected.Sub(totalPaid).FloorZero().Round2()
	case len(rows) > 0:
		// Rows exist but none settled anything: pending/failed payments.
		entry.Status = StatusPending
		entry.RemainingDue = expected.FloorZero()
	default:
		entry.Status = StatusNoPayment
		entry.RemainingDue = expected.FloorZero()
	}
	return entry
}

func resolveExpectedDue(window CycleWindow, rows []PaymentRecord, intervals []AllocationInterval, flatFallback Money) (Money, DueSource) {
	if due := ExpectedDue(intervals, window.Start, window.End); due.IsPositive() {
		return due, DueFromAllocation
	}

	recorded := ZeroMoney
	found := false
	for _, p := range rows {
		if p.RecordedDue != nil {
			recorded = recorded.Max(*p.RecordedDue)
			found = true
		}
	}
	if found {
		return recorded, DueFromPaymentRecord
	}

	return flatFallback, DueFromLegacyFallback
}

// BuildEntries classifies every window of an enumerated stay.
func BuildEntries(windows []CycleWindow, payments PaymentIndex, intervals []AllocationInterval, flatFallback Money) []CycleLedgerEntry {
	entries := make([]CycleLedgerEntry, 0, len(windows))
	for _, w := range windows {
		entries = append(entries, ClassifyWindow(w, payments, intervals, flatFallback))
	}
	return entries
}

// DetectGaps returns the ordered list of non-covered windows. The first
// element of ledgerWindows is the check-in cycle and carries priority -1;
// ordering is stable (priority, then chronological by start).
func DetectGaps(ledgerWindows []CycleWindow, payments []PaymentRecord, intervals []AllocationInterval, flatFallback Money) []Gap {
	idx := IndexPayments(payments)

	var gaps []Gap
	for i, w := range ledgerWindows {
		entry := ClassifyWindow(w, idx, intervals, flatFallback)
		if entry.Status == StatusPaid {
			continue
		}
		priority := 0
		if i == 0 {
			priority = -1
		}
		gaps = append(gaps, Gap{CycleLedgerEntry: entry, Priority: priority})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Priority != gaps[j].Priority {
			return gaps[i].Priority < gaps[j].Priority
		}
		return gaps[i].Window.Start.Before(gaps[j].Window.Start)
	})
	return gaps
}
