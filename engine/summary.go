/*
summary.go - The published rent summary facade

PURPOSE:
  Combines cycle enumeration, classification, and gap detection into the
  single RentSummary every consumer reads: tenant listings, dashboards,
  the checkout gate, and notification crons. Because all of them call
  through here, "is this tenant's rent paid?" has exactly one answer.

AGGREGATION RULES:
  payment_status      status of the window containing the reference
                      date, or the most recently started window before
                      it when none contains it.
  partial_due_amount  sum of remaining due over PARTIAL entries.
  pending_due_amount  sum of remaining due over NO_PAYMENT / PENDING
                      entries that are fully in the past (unpaid months).
  rent_due_amount     partial + pending.
  is_rent_paid        zero unpaid past windows AND the relevant window
                      is PAID.
  is_rent_partial     not fully paid AND the relevant window is PARTIAL
                      with partial due outstanding.
  The two flags are mutually exclusive by construction.

STATE MACHINE (single window):
  NO_PAYMENT -> PARTIAL -> PAID, forward only as payments apply.
  A window that ends unpaid ages into a Gap once its end date passes.
  Pending/failed payments are terminal per-payment and never advance
  the window's aggregate status.

SEE ALSO:
  - gaps.go: per-window classification and gap ordering
  - ledger.go: window enumeration
*/
package engine

import "sort"

// RentSummary is the engine's published output: one consistent view of a
// tenant's billing state as of an explicit reference date.
type RentSummary struct {
	AsOf          Date
	CurrentWindow CycleWindow
	Entries       []CycleLedgerEntry

	PaymentStatus    EntryStatus
	PartialDueAmount Money
	PendingDueAmount Money
	RentDueAmount    Money

	IsRentPaid    bool
	IsRentPartial bool

	// UnpaidWindows lists fully past, non-covered cycles in settlement
	// order (check-in cycle first, then chronological).
	UnpaidWindows []Gap
}

// BuildSummary computes the rent summary for a stay as of referenceDate.
// It validates the allocation history, enumerates cycles, classifies
// every window, and aggregates the published totals and flags.
func BuildSummary(stay Stay, intervals []AllocationInterval, payments []PaymentRecord, referenceDate Date) (*RentSummary, error) {
	if err := ValidateIntervals(intervals); err != nil {
		return nil, err
	}

	windows, err := EnumerateWindows(stay, referenceDate)
	if err != nil {
		return nil, err
	}

	flatFallback, _ := CurrentPrice(intervals)
	idx := IndexPayments(payments)
	entries := BuildEntries(windows, idx, intervals, flatFallback)

	summary := &RentSummary{
		AsOf:             referenceDate,
		Entries:          entries,
		PartialDueAmount: ZeroMoney,
		PendingDueAmount: ZeroMoney,
	}

	current, _ := WindowAt(windows, referenceDate)
	summary.CurrentWindow = current

	var relevant CycleLedgerEntry
	unpaidPast := 0
	for _, e := range entries {
		if e.Window.Equal(current) {
			relevant = e
		}

		past := e.Window.End.Before(referenceDate)

		switch e.Status {
		case StatusPartial:
			summary.PartialDueAmount = summary.PartialDueAmount.Add(e.RemainingDue)
		case StatusNoPayment, StatusPending:
			if past {
				summary.PendingDueAmount = summary.PendingDueAmount.Add(e.RemainingDue)
			}
		}

		if past && e.Status != StatusPaid {
			unpaidPast++
		}
	}

	summary.RentDueAmount = summary.PartialDueAmount.Add(summary.PendingDueAmount)
	summary.PaymentStatus = relevant.Status
	summary.IsRentPaid = unpaidPast == 0 && relevant.Status == StatusPaid
	summary.IsRentPartial = !summary.IsRentPaid &&
		relevant.Status == StatusPartial &&
		summary.PartialDueAmount.IsPositive()

	summary.UnpaidWindows = pastGaps(entries, referenceDate)

	return summary, nil
}

// pastGaps collects non-covered windows that are fully in the past,
// ordered by the gap settlement rule.
func pastGaps(entries []CycleLedgerEntry, asOf Date) []Gap {
	var gaps []Gap
	for i, e := range entries {
		if e.Status == StatusPaid || !e.Window.End.Before(asOf) {
			continue
		}
		priority := 0
		if i == 0 {
			priority = -1
		}
		gaps = append(gaps, Gap{CycleLedgerEntry: e, Priority: priority})
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Priority != gaps[j].Priority {
			return gaps[i].Priority < gaps[j].Priority
		}
		return gaps[i].Window.Start.Before(gaps[j].Window.Start)
	})
	return gaps
}
