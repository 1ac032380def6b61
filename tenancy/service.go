/*
service.go - Tenant lifecycle and rent summary orchestration

PURPOSE:
  The single place where tenant state changes and engine computations
  meet. Listing, dashboards, the checkout gate, and the reconciliation
  scheduler all obtain their numbers through this service, which always
  delegates to engine.BuildSummary - so every consumer sees the same
  per-cycle status for the same data.

LIFECYCLE:
  CheckIn:   creates the tenant and opens the first allocation interval
             in one step. A tenant always has at least one interval.
  Transfer:  gated on outstanding dues, then closes the open interval at
             the day before the transfer date and opens the new-bed
             interval atomically.
  Checkout:  gated on outstanding dues and the advance precondition,
             then closes the open interval and marks the tenant out.

REFERENCE DATES:
  Every method takes an explicit asOf date. Handlers pass engine.Today()
  at the outermost boundary; tests pass fixed dates. Nothing below the
  HTTP layer reads the wall clock.

SEE ALSO:
  - engine/summary.go: the computation this service fronts
  - store.go: the persistence interfaces it drives
*/
package tenancy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hostelops/rent-engine/engine"
)

// RentService orchestrates tenant lifecycle and billing reads.
type RentService struct {
	Store   Store
	Advance AdvancePolicy
}

func NewRentService(store Store) *RentService {
	return &RentService{Store: store, Advance: OpenAdvancePolicy{}}
}

// =============================================================================
// CHECK-IN
// =============================================================================

// CheckInInput carries everything needed to create a tenant.
type CheckInInput struct {
	PropertyID string
	Name       string
	Phone      string
	BedID      string
	CheckIn    engine.Date
	Convention engine.BillingConvention
	BedPrice   engine.Money
}

// CheckIn creates the tenant and the first open allocation interval.
func (s *RentService) CheckIn(ctx context.Context, in CheckInInput) (*Tenant, error) {
	tenant := Tenant{
		ID:         uuid.NewString(),
		PropertyID: in.PropertyID,
		Name:       in.Name,
		Phone:      in.Phone,
		BedID:      in.BedID,
		CheckIn:    in.CheckIn,
		Convention: in.Convention,
		Status:     TenantActive,
	}
	if err := tenant.Stay().Validate(); err != nil {
		return nil, err
	}
	if in.BedPrice.IsNegative() {
		return nil, &engine.AllocationValidationError{Index: 0, Reason: "negative price"}
	}

	if err := s.Store.SaveTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("save tenant: %w", err)
	}
	iv := engine.AllocationInterval{
		ID:            uuid.NewString(),
		EffectiveFrom: in.CheckIn,
		Price:         in.BedPrice,
	}
	if err := s.Store.OpenInterval(ctx, tenant.ID, iv); err != nil {
		return nil, fmt.Errorf("open allocation interval: %w", err)
	}
	return &tenant, nil
}

// =============================================================================
// RENT SUMMARY - The canonical read path
// =============================================================================

// Summary computes the tenant's rent summary as of the given date.
func (s *RentService) Summary(ctx context.Context, tenantID string, asOf engine.Date) (*engine.RentSummary, error) {
	tenant, err := s.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	intervals, err := s.Store.ListIntervals(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	payments, err := s.Store.ListPayments(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return engine.BuildSummary(tenant.Stay(), intervals, payments, asOf)
}

// Ledger returns the tenant's enumerated cycle windows as of the date.
func (s *RentService) Ledger(ctx context.Context, tenantID string, asOf engine.Date) ([]engine.CycleWindow, error) {
	tenant, err := s.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return engine.EnumerateWindows(tenant.Stay(), asOf)
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPaymentInput captures a payment against an exact cycle window.
type RecordPaymentInput struct {
	Window      engine.CycleWindow
	Amount      engine.Money
	Status      engine.PaymentStatus
	RecordedDue *engine.Money
}

// RecordPayment validates that the payment's period equals one of the
// tenant's cycle windows exactly, then persists it. Mis-tagged periods
// are rejected: partial-period credit across cycle boundaries is not a
// thing this system supports.
func (s *RentService) RecordPayment(ctx context.Context, tenantID string, in RecordPaymentInput, asOf engine.Date) (*engine.PaymentRecord, error) {
	tenant, err := s.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	windows, err := engine.EnumerateWindows(tenant.Stay(), asOf)
	if err != nil {
		return nil, err
	}
	matched := false
	for _, w := range windows {
		if w.Equal(in.Window) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, &WindowMismatchError{TenantID: tenantID, Given: in.Window}
	}

	record := engine.PaymentRecord{
		ID:          uuid.NewString(),
		Window:      in.Window,
		AmountPaid:  in.Amount,
		Status:      in.Status,
		RecordedDue: in.RecordedDue,
	}
	if err := s.Store.SavePayment(ctx, tenantID, record); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	return &record, nil
}

// =============================================================================
// TRANSFER & CHECKOUT - Both pass through the settlement gate
// =============================================================================

// Transfer moves a tenant to a new bed/price from the given date. The
// open interval is closed at the day before; the new interval opens at
// the transfer date. Rejected when dues are outstanding.
func (s *RentService) Transfer(ctx context.Context, tenantID, newBedID string, newPrice engine.Money, at, asOf engine.Date) error {
	tenant, err := s.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.Status == TenantCheckedOut {
		return ErrTenantCheckedOut
	}

	intervals, err := s.Store.ListIntervals(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := validateTransitionDate(intervals, at); err != nil {
		return err
	}
	if err := s.settlementGate(ctx, tenantID, asOf); err != nil {
		return err
	}

	next := engine.AllocationInterval{
		ID:            uuid.NewString(),
		EffectiveFrom: at,
		Price:         newPrice,
	}
	if err := s.Store.TransferInterval(ctx, tenantID, next); err != nil {
		return fmt.Errorf("transfer allocation: %w", err)
	}

	tenant.BedID = newBedID
	return s.Store.SaveTenant(ctx, *tenant)
}

// Checkout closes the tenant's stay at the given date. Rejected when
// rent is outstanding or the advance precondition is unmet.
func (s *RentService) Checkout(ctx context.Context, tenantID string, at, asOf engine.Date) error {
	tenant, err := s.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.Status == TenantCheckedOut {
		return ErrTenantCheckedOut
	}
	if at.Before(tenant.CheckIn) {
		return &engine.StayValidationError{
			Reason:   "checkout " + at.String() + " precedes check-in " + tenant.CheckIn.String(),
			CheckIn:  tenant.CheckIn,
			CheckOut: &at,
		}
	}

	settled, err := s.Advance.AdvanceSettled(tenantID)
	if err != nil {
		return fmt.Errorf("advance precondition: %w", err)
	}
	if !settled {
		return &CheckoutBlockedError{TenantID: tenantID, AdvanceUnmet: true}
	}
	if err := s.settlementGate(ctx, tenantID, asOf); err != nil {
		return err
	}

	if err := s.Store.CloseInterval(ctx, tenantID, at); err != nil {
		return fmt.Errorf("close allocation: %w", err)
	}

	tenant.CheckOut = &at
	tenant.Status = TenantCheckedOut
	return s.Store.SaveTenant(ctx, *tenant)
}

// settlementGate rejects the transition when the summary shows anything
// outstanding.
func (s *RentService) settlementGate(ctx context.Context, tenantID string, asOf engine.Date) error {
	summary, err := s.Summary(ctx, tenantID, asOf)
	if err != nil {
		return err
	}
	if summary.RentDueAmount.IsPositive() {
		return &CheckoutBlockedError{
			TenantID:      tenantID,
			RentDue:       summary.RentDueAmount,
			UnpaidWindows: summary.UnpaidWindows,
		}
	}
	return nil
}

func validateTransitionDate(intervals []engine.AllocationInterval, at engine.Date) error {
	if len(intervals) == 0 {
		return ErrInvalidTransferDate
	}
	open := intervals[len(intervals)-1]
	if !open.IsOpen() || !at.After(open.EffectiveFrom) {
		return ErrInvalidTransferDate
	}
	return nil
}

// =============================================================================
// PROPERTY ROLLUPS & CYCLE CACHE
// =============================================================================

// PropertyDueCounts filters summaries across a property's active tenants
// into the counts notification crons alert on.
func (s *RentService) PropertyDueCounts(ctx context.Context, propertyID string, asOf engine.Date) (DueCounts, error) {
	tenants, err := s.Store.ListTenants(ctx, propertyID)
	if err != nil {
		return DueCounts{}, err
	}

	counts := DueCounts{PropertyID: propertyID, TotalDue: engine.ZeroMoney}
	for _, t := range tenants {
		if t.Status != TenantActive {
			continue
		}
		counts.TenantCount++

		summary, err := s.Summary(ctx, t.ID, asOf)
		if err != nil {
			return DueCounts{}, fmt.Errorf("summary for tenant %s: %w", t.ID, err)
		}
		if summary.IsRentPartial || summary.PartialDueAmount.IsPositive() {
			counts.PartialCount++
		}
		if summary.PendingDueAmount.IsPositive() {
			counts.PendingCount++
		}
		counts.TotalDue = counts.TotalDue.Add(summary.RentDueAmount)
	}
	return counts, nil
}

// RefreshCycleCache recomputes and upserts the tenant's windows. Safe to
// call concurrently: enumeration is idempotent and the store converges
// on the (tenant, cycle_start) key.
func (s *RentService) RefreshCycleCache(ctx context.Context, tenantID string, asOf engine.Date) error {
	tenant, err := s.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	windows, err := engine.EnumerateWindows(tenant.Stay(), asOf)
	if err != nil {
		return err
	}
	return s.Store.UpsertWindows(ctx, tenantID, windows)
}
