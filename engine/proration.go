/*
proration.go - Allocation-aware expected-due computation

PURPOSE:
  Computes the rent a tenant legitimately owes for a period, even when
  the bed price changed mid-period because of a transfer. The monthly
  price is split into a per-day rate, and the rate depends on which
  calendar month a day falls in (9000/month costs more per day in
  February than in March), so segments are split at month boundaries.

ALGORITHM:
  For each allocation interval overlapping [periodStart, periodEnd]:
    1. Intersect the interval with the period.
    2. Split the intersection at calendar month boundaries.
    3. For each month segment: (price / daysInThatMonth) * inclusiveDays.
  Sum everything. Intermediate sums keep full decimal precision; the
  caller rounds at the presentation boundary.

FALLBACK:
  Returns zero when no interval overlaps the period. The caller must
  then fall back to payment-recorded dues or the legacy flat price -
  see gaps.go, which tags which source was used.

PARTITION LAW:
  Splitting any period at an arbitrary boundary and summing the parts
  yields the same total as computing the whole period, because per-day
  rates depend only on the day's month, never on the period bounds.

SEE ALSO:
  - gaps.go: fallback chain when this returns zero
  - cycle.go: where periods come from
*/
package engine

import "github.com/shopspring/decimal"

// ExpectedDue returns the allocation-prorated amount owed for the
// inclusive period [periodStart, periodEnd]. Intervals must be the
// tenant's temporally ordered allocation history; ValidateIntervals
// rejects malformed histories before computation.
func ExpectedDue(intervals []AllocationInterval, periodStart, periodEnd Date) Money {
	if periodEnd.Before(periodStart) {
		return ZeroMoney
	}

	total := ZeroMoney
	for _, iv := range intervals {
		if !iv.Overlaps(periodStart, periodEnd) {
			continue
		}

		segStart := MaxDate(iv.EffectiveFrom, periodStart)
		segEnd := periodEnd
		if iv.EffectiveTo != nil {
			segEnd = MinDate(*iv.EffectiveTo, periodEnd)
		}

		total = total.Add(prorate(iv.Price, segStart, segEnd))
	}
	return total
}

// prorate charges monthlyPrice day by day across [from, to], splitting at
// month boundaries so each day uses its own month's length.
func prorate(monthlyPrice Money, from, to Date) Money {
	total := ZeroMoney

	cursor := from
	for cursor.BeforeOrEqual(to) {
		monthEnd := MinDate(EndOfMonth(cursor.Year(), cursor.Month()), to)

		days := InclusiveDays(cursor, monthEnd)
		daysInMonth := DaysInMonth(cursor.Year(), cursor.Month())

		segment := monthlyPrice.
			Div(decimal.NewFromInt(int64(daysInMonth))).
			Mul(decimal.NewFromInt(int64(days)))
		total = total.Add(segment)

		cursor = monthEnd.AddDays(1)
	}
	return total
}

// ValidateIntervals checks the allocation history invariants: temporal
// ordering, no overlap, and at most one open-ended interval.
func ValidateIntervals(intervals []AllocationInterval) error {
	openSeen := false
	for i, iv := range intervals {
		if iv.EffectiveFrom.IsZero() {
			return &AllocationValidationError{Index: i, Reason: "missing effective_from"}
		}
		if iv.EffectiveTo != nil && iv.EffectiveTo.Before(iv.EffectiveFrom) {
			return &AllocationValidationError{
				Index:  i,
				Reason: "effective_to " + iv.EffectiveTo.String() + " precedes effective_from " + iv.EffectiveFrom.String(),
			}
		}
		if iv.Price.IsNegative() {
			return &AllocationValidationError{Index: i, Reason: "negative price"}
		}
		if openSeen {
			// An open interval must be the last one.
			return &AllocationValidationError{Index: i, Reason: "interval follows an open-ended interval"}
		}
		if iv.IsOpen() {
			openSeen = true
		}
		if i > 0 {
			prev := intervals[i-1]
			if prev.EffectiveTo == nil {
				return &AllocationValidationError{Index: i - 1, Reason: "open interval is not last"}
			}
			if !iv.EffectiveFrom.After(*prev.EffectiveTo) {
				return &AllocationValidationError{
					Index:  i,
					Reason: "effective_from " + iv.EffectiveFrom.String() + " overlaps previous interval ending " + prev.EffectiveTo.String(),
				}
			}
		}
	}
	return nil
}

// CurrentPrice returns the price of the open interval, or the latest
// closed interval's price when the tenant has checked out. Returns zero
// money and false for an empty history.
func CurrentPrice(intervals []AllocationInterval) (Money, bool) {
	if len(intervals) == 0 {
		return ZeroMoney, false
	}
	return intervals[len(intervals)-1].Price, true
}
