/*
Package engine implements the rent cycle and payment reconciliation core.

PURPOSE:
  This package answers one question consistently everywhere it is asked:
  "what does this tenant owe, for which billing periods, and how much of
  it is settled?" Tenant CRUD, payment capture, and notification delivery
  live elsewhere; they feed this engine immutable snapshots (stay bounds,
  allocation history, payment rows) and consume its computed facts.

KEY CONCEPTS IN THIS FILE (types.go):
  - BillingConvention: CALENDAR (month-aligned) or MIDMONTH (anchored to
    the tenant's check-in day-of-month)
  - CycleWindow: one inclusive billing period [start, end], date-only
  - AllocationInterval: a price-validity segment of a tenant's occupancy,
    bounded by transfers and checkout
  - PaymentRecord: a payment tagged to an exact cycle window
  - CycleLedgerEntry: derived per-window status (never persisted as truth)

DESIGN PRINCIPLES:
  1. Purity: every computation takes an explicit reference date. No call
     reads the wall clock; Today() belongs to the outermost boundary.
  2. Precision: decimal money end to end, rounded only at presentation.
  3. Single implementation: listing, dashboards, checkout gates, and
     notification crons all call through this package, so per-cycle
     status can never disagree between consumers.
  4. Views, not state: ledger entries and gaps are recomputed on demand
     from current allocation/payment data, so rule changes never require
     a data migration.

SEE ALSO:
  - cycle.go: cycle window boundary computation
  - proration.go: allocation-aware expected-due amounts
  - ledger.go: cycle enumeration from check-in to a cutoff
  - gaps.go: unpaid/underpaid cycle detection
  - summary.go: the published rent summary facade
*/
package engine

// =============================================================================
// BILLING CONVENTION
// =============================================================================

// BillingConvention selects how a tenant's cycle boundaries are derived.
type BillingConvention string

const (
	// ConventionCalendar: cycles run 1st to last day of each month, except
	// the join month, which starts on the check-in day (partial first month).
	ConventionCalendar BillingConvention = "calendar"

	// ConventionMidMonth: cycles are anchored to the check-in day-of-month
	// and run [anchor-day, anchor-day minus one of the next month], with the
	// day clamped to shorter months at each boundary independently.
	ConventionMidMonth BillingConvention = "midmonth"
)

// Valid reports whether the convention is one of the known values.
func (c BillingConvention) Valid() bool {
	return c == ConventionCalendar || c == ConventionMidMonth
}

// =============================================================================
// CYCLE WINDOW
// =============================================================================

// CycleWindow is a single billing period. Both bounds are inclusive,
/// date-only. Invariant: Start <= End; consecutive windows for the same
// tenant and convention are contiguous (next.Start == prev.End + 1 day).
type CycleWindow struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether the date falls inside [Start, End].
func (w CycleWindow) Contains(d Date) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

// Days returns the inclusive day count of the window.
func (w CycleWindow) Days() int {
	return InclusiveDays(w.Start, w.End)
}

// Equal reports exact boundary equality. Payment coverage requires exact
// window equality; there is no partial-period credit across boundaries.
func (w CycleWindow) Equal(o CycleWindow) bool {
	return w.Start.Equal(o.Start) && w.End.Equal(o.End)
}

// Key returns a stable map key for exact-window payment indexing.
func (w CycleWindow) Key() string {
	return w.Start.String() + "/" + w.End.String()
}

func (w CycleWindow) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}

// =============================================================================
// ALLOCATION INTERVAL - Price-validity segment of a tenant's stay
// =============================================================================

// AllocationInterval records the bed price that applied to a tenant from
// EffectiveFrom until EffectiveTo (nil = open-ended, the current segment).
// A new interval opens at check-in and on every transfer; the prior open
// interval is closed at the day before the new one begins, in the same
// atomic step, so intervals never overlap.
type AllocationInterval struct {
	ID            string
	EffectiveFrom Date
	EffectiveTo   *Date // nil = open-ended / current
	Price         Money
}

// IsOpen reports whether the interval has no end date yet.
func (ai AllocationInterval) IsOpen() bool { return ai.EffectiveTo == nil }

// Overlaps reports whether the interval intersects [start, end].
func (ai AllocationInterval) Overlaps(start, end Date) bool {
	if ai.EffectiveFrom.After(end) {
		return false
	}
	if ai.EffectiveTo != nil && ai.EffectiveTo.Before(start) {
		return false
	}
	return true
}

// =============================================================================
// PAYMENT RECORD
// =============================================================================

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
)

// CountsAsPaid reports whether the payment's amount contributes to window
// coverage. Pending and failed payments are recorded but never cover rent.
func (s PaymentStatus) CountsAsPaid() bool {
	return s == PaymentPaid || s == PaymentPartial
}

// PaymentRecord is a payment row tagged to an exact cycle window. The
// window must match a ledger window exactly (both bounds) to count as
// coverage for that cycle.
type PaymentRecord struct {
	ID          string
	Window      CycleWindow
	AmountPaid  Money
	Status      PaymentStatus
	RecordedDue *Money // due amount captured at payment time, if any
}

// PaymentIndex groups payments by their exact window key.
type PaymentIndex map[string][]PaymentRecord

// IndexPayments builds a PaymentIndex from a payment list.
func IndexPayments(payments []PaymentRecord) PaymentIndex {
	idx := make(PaymentIndex, len(payments))
	for _, p := range payments {
		k := p.Window.Key()
		idx[k] = append(idx[k], p)
	}
	return idx
}

// =============================================================================
// DERIVED LEDGER TYPES
// =============================================================================

// EntryStatus is the aggregate settlement state of one cycle window.
// Forward-only on payment application: NO_PAYMENT -> PARTIAL -> PAID.
type EntryStatus string

const (
	StatusNoPayment EntryStatus = "no_payment"
	StatusPending   EntryStatus = "pending"
	StatusPartial   EntryStatus = "partial"
	StatusPaid      EntryStatus = "paid"
)

// DueSource tags how ExpectedDue was resolved, so consumers can tell a
// precisely prorated figure from a best-effort fallback.
type DueSource string

const (
	// DueFromAllocation: prorated from the allocation history. Precise.
	DueFromAllocation DueSource = "allocation"

	// DueFromPaymentRecord: no allocation overlapped the window; the
	// maximum recorded_due among its payments was used.
	DueFromPaymentRecord DueSource = "payment_record"

	// DueFromLegacyFallback: neither allocation nor recorded due was
	// available; a flat current-price assumption was used. Degraded
	// but available, not an error.
	DueFromLegacyFallback DueSource = "legacy_fallback"
)

// CycleLedgerEntry is the canonical per-cycle status. It is a view
// computed from current allocation and payment data, never stored as a
// source of truth.
type CycleLedgerEntry struct {
	Window       CycleWindow
	TotalPaid    Money
	ExpectedDue  Money
	RemainingDue Money
	Status       EntryStatus
	DueSource    DueSource
}

// Gap is an unpaid or underpaid cycle window requiring settlement.
// Priority -1 marks the tenant's first (check-in) cycle, which always
// sorts ahead of everything else; all other gaps sort chronologically.
type Gap struct {
	CycleLedgerEntry
	Priority int
}

// =============================================================================
// STAY - Tenancy bounds fed to the engine
// =============================================================================

// Stay describes the occupancy bounds the engine enumerates cycles over.
type Stay struct {
	CheckIn    Date
	CheckOut   *Date // nil = still checked in
	Convention BillingConvention
}

// Validate rejects malformed stay bounds before any cycle math runs.
func (s Stay) Validate() error {
	if s.CheckIn.IsZero() {
		return &StayValidationError{Reason: "check-in date is required"}
	}
	if !s.Convention.Valid() {
		return &StayValidationError{Reason: "unknown billing convention: " + string(s.Convention)}
	}
	if s.CheckOut != nil && s.CheckOut.Before(s.CheckIn) {
		return &StayValidationError{
			Reason:   "check-out " + s.CheckOut.String() + " precedes check-in " + s.CheckIn.String(),
			CheckIn:  s.CheckIn,
			CheckOut: s.CheckOut,
		}
	}
	return nil
}
