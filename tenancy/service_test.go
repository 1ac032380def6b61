package tenancy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelops/rent-engine/engine"
	"github.com/hostelops/rent-engine/tenancy"
	"github.com/hostelops/rent-engine/tenancy/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func d(year int, month time.Month, day int) engine.Date {
	return engine.NewDate(year, month, day)
}

func money(s string) engine.Money {
	m, err := engine.ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func newService() (*tenancy.RentService, *store.Memory) {
	mem := store.NewMemory()
	return tenancy.NewRentService(mem), mem
}

func checkIn(t *testing.T, svc *tenancy.RentService, day engine.Date, conv engine.BillingConvention, price string) *tenancy.Tenant {
	t.Helper()
	tenant, err := svc.CheckIn(context.Background(), tenancy.CheckInInput{
		PropertyID: "prop-1",
		Name:       "Asha",
		BedID:      "bed-12",
		CheckIn:    day,
		Convention: conv,
		BedPrice:   money(price),
	})
	require.NoError(t, err)
	return tenant
}

func payWindow(t *testing.T, svc *tenancy.RentService, tenantID string, w engine.CycleWindow, amount string, asOf engine.Date) {
	t.Helper()
	_, err := svc.RecordPayment(context.Background(), tenantID, tenancy.RecordPaymentInput{
		Window: w,
		Amount: money(amount),
		Status: engine.PaymentPaid,
	}, asOf)
	require.NoError(t, err)
}

// =============================================================================
// CHECK-IN
// =============================================================================

func TestCheckIn_CreatesTenantWithOpenAllocation(t *testing.T) {
	// GIVEN: A new tenant checking in March 15 at 9000/month
	// THEN: Tenant exists and has exactly one open allocation interval

	svc, mem := newService()
	tenant := checkIn(t, svc, d(2025, time.March, 15), engine.ConventionCalendar, "9000")

	ivs, err := mem.ListIntervals(context.Background(), tenant.ID)
	require.NoError(t, err)
	require.Len(t, ivs, 1)
	assert.True(t, ivs[0].IsOpen())
	assert.Equal(t, d(2025, time.March, 15), ivs[0].EffectiveFrom)
	assert.Equal(t, "9000.00", ivs[0].Price.String())
	assert.Equal(t, tenancy.TenantActive, tenant.Status)
}

func TestCheckIn_RejectsUnknownConvention(t *testing.T) {
	svc, _ := newService()
	_, err := svc.CheckIn(context.Background(), tenancy.CheckInInput{
		PropertyID: "prop-1",
		CheckIn:    d(2025, time.March, 15),
		Convention: "weekly",
		BedPrice:   money("9000"),
	})
	assert.ErrorIs(t, err, engine.ErrInvalidStay)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestRecordPayment_ExactWindowRequired(t *testing.T) {
	// GIVEN: A tenant whose April cycle is [Apr 1, Apr 30]
	// WHEN: Recording a payment tagged [Apr 1, Apr 29]
	// THEN: Rejected - no partial-period credit across cycle boundaries

	svc, _ := newService()
	tenant := checkIn(t, svc, d(2025, time.March, 15), engine.ConventionCalendar, "9000")

	_, err := svc.RecordPayment(context.Background(), tenant.ID, tenancy.RecordPaymentInput{
		Window: engine.CycleWindow{Start: d(2025, time.April, 1), End: d(2025, time.April, 29)},
		Amount: money("9000"),
		Status: engine.PaymentPaid,
	}, d(2025, time.April, 20))

	require.Error(t, err)
	assert.ErrorIs(t, err, tenancy.ErrWindowMismatch)
	assert.True(t, tenancy.IsClientError(err))
}

func TestRecordPayment_ReflectsInSummary(t *testing.T) {
	svc, _ := newService()
	tenant := checkIn(t, svc, d(2025, time.March, 15), engine.ConventionCalendar, "9000")

	joinWindow := engine.CycleWindow{Start: d(2025, time.March, 15), End: d(2025, time.March, 31)}
	payWindow(t, svc, tenant.ID, joinWindow, "4935.48", d(2025, time.March, 20))

	summary, err := svc.Summary(context.Background(), tenant.ID, d(2025, time.March, 20))
	require.NoError(t, err)
	assert.True(t, summary.IsRentPaid)
	assert.Equal(t, engine.StatusPaid, summary.PaymentStatus)
}

// =============================================================================
// TRANSFER
// =============================================================================

func TestTransfer_ClosesOldIntervalOpensNew(t *testing.T) {
	// GIVEN: Tenant on 6000/month since April 1, rent settled
	// WHEN: Transferring to an 8000 bed on April 16
	// THEN: Old interval ends April 15, new one opens April 16, and the
	//       month's expected due prorates across both segments

	svc, mem := newService()
	tenant := checkIn(t, svc, d(2025, time.April, 1), engine.ConventionCalendar, "6000")
	ctx := context.Background()

	// Nothing is due yet mid-month, so the gate passes.
	err := svc.Transfer(ctx, tenant.ID, "bed-20", money("8000"), d(2025, time.April, 16), d(2025, time.April, 10))
	require.NoError(t, err)

	ivs, err := mem.ListIntervals(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, ivs, 2)
	require.NotNil(t, ivs[0].EffectiveTo)
	assert.Equal(t, d(2025, time.April, 15), *ivs[0].EffectiveTo)
	assert.Equal(t, d(2025, time.April, 16), ivs[1].EffectiveFrom)
	assert.True(t, ivs[1].IsOpen())

	summary, err := svc.Summary(ctx, tenant.ID, d(2025, time.April, 30))
	require.NoError(t, err)
	assert.Equal(t, "7000.00", summary.Entries[0].ExpectedDue.String())
}

func TestTransfer_RejectsDateBeforeOpenInterval(t *testing.T) {
	svc, _ := newService()
	tenant := checkIn(t, svc, d(2025, time.April, 10), engine.ConventionCalendar, "6000")

	err := svc.Transfer(context.Background(), tenant.ID, "bed-20", money("8000"),
		d(2025, time.April, 5), d(2025, time.April, 12))
	assert.ErrorIs(t, err, tenancy.ErrInvalidTransferDate)
}

func TestTransfer_BlockedByOutstandingDues(t *testing.T) {
	// GIVEN: Tenant with an unpaid past cycle
	// WHEN: Attempting a transfer
	// THEN: Blocked with the outstanding amount

	svc, _ := newService()
	tenant := checkIn(t, svc, d(2025, time.March, 15), engine.ConventionCalendar, "9000")

	err := svc.Transfer(context.Background(), tenant.ID, "bed-20", money("8000"),
		d(2025, time.May, 10), d(2025, time.May, 5))

	require.Error(t, err)
	assert.ErrorIs(t, err, tenancy.ErrCheckoutBlocked)

	var blocked *tenancy.CheckoutBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.True(t, blocked.RentDue.IsPositive())
	assert.NotEmpty(t, blocked.UnpaidWindows)
}

// =============================================================================
// CHECKOUT GATE
// =============================================================================

func TestCheckout_BlockedUntilSettled(t *testing.T) {
	svc, _ := newService()
	tenant := checkIn(t, svc, d(2025, time.March, 15), engine.ConventionCalendar, "9000")
	ctx := context.Background()

	asOf := d(2025, time.April, 20)
	err := svc.Checkout(ctx, tenant.ID, asOf, asOf)
	assert.ErrorIs(t, err, tenancy.ErrCheckoutBlocked)

	// Settle the join month; April is still in progress so nothing else
	// is pending yet.
	joinWindow := engine.CycleWindow{Start: d(2025, time.March, 15), End: d(2025, time.March, 31)}
	payWindow(t, svc, tenant.ID, joinWindow, "4935.48", asOf)

	err = svc.Checkout(ctx, tenant.ID, asOf, asOf)
	require.NoError(t, err)

	got, err := svc.Summary(ctx, tenant.ID, d(2025, time.June, 1))
	require.NoError(t, err)
	// Enumeration stops at the checkout window.
	assert.Equal(t, d(2025, time.April, 30), got.Entries[len(got.Entries)-1].Window.End)
}

func TestCheckout_ClosesOpenInterval(t *testing.T) {
	svc, mem := newService()
	tenant := checkIn(t, svc, d(2025, time.April, 1), engine.ConventionCalendar, "6000")
	ctx := context.Background()

	asOf := d(2025, time.April, 10)
	require.NoError(t, svc.Checkout(ctx, tenant.ID, asOf, asOf))

	ivs, err := mem.ListIntervals(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, ivs, 1)
	require.NotNil(t, ivs[0].EffectiveTo)
	assert.Equal(t, asOf, *ivs[0].EffectiveTo)

	stored, err := mem.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, tenancy.TenantCheckedOut, stored.Status)

	// Lifecycle operations on a checked-out tenant are rejected.
	err = svc.Checkout(ctx, tenant.ID, asOf, asOf)
	assert.ErrorIs(t, err, tenancy.ErrTenantCheckedOut)
}

func TestCheckout_BlockedByAdvancePrecondition(t *testing.T) {
	svc, _ := newService()
	svc.Advance = deniedAdvance{}
	tenant := checkIn(t, svc, d(2025, time.April, 1), engine.ConventionCalendar, "6000")

	asOf := d(2025, time.April, 10)
	err := svc.Checkout(context.Background(), tenant.ID, asOf, asOf)

	var blocked *tenancy.CheckoutBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.True(t, blocked.AdvanceUnmet)
}

type deniedAdvance struct{}

func (deniedAdvance) AdvanceSettled(string) (bool, error) { return false, nil }

// =============================================================================
// PROPERTY ROLLUPS
// =============================================================================

func TestPropertyDueCounts(t *testing.T) {
	// GIVEN: One settled tenant, one partial, one with a pending month
	// THEN: Counts split accordingly and total the outstanding rent

	svc, _ := newService()
	ctx := context.Background()
	asOf := d(2025, time.May, 10)

	settled := checkIn(t, svc, d(2025, time.May, 1), engine.ConventionCalendar, "6000")
	payWindow(t, svc, settled.ID,
		engine.CycleWindow{Start: d(2025, time.May, 1), End: d(2025, time.May, 31)}, "6000", asOf)

	partial := checkIn(t, svc, d(2025, time.April, 1), engine.ConventionCalendar, "6000")
	payWindow(t, svc, partial.ID,
		engine.CycleWindow{Start: d(2025, time.April, 1), End: d(2025, time.April, 30)}, "2500", asOf)

	checkIn(t, svc, d(2025, time.March, 1), engine.ConventionCalendar, "6000") // nothing paid

	counts, err := svc.PropertyDueCounts(ctx, "prop-1", asOf)
	require.NoError(t, err)

	assert.Equal(t, 3, counts.TenantCount)
	assert.Equal(t, 1, counts.PartialCount)
	assert.Equal(t, 1, counts.PendingCount)
	assert.True(t, counts.TotalDue.IsPositive())
}

// =============================================================================
// CYCLE CACHE
// =============================================================================

func TestRefreshCycleCache_IdempotentUpsert(t *testing.T) {
	svc, mem := newService()
	tenant := checkIn(t, svc, d(2025, time.March, 15), engine.ConventionCalendar, "9000")
	ctx := context.Background()

	asOf := d(2025, time.May, 10)
	require.NoError(t, svc.RefreshCycleCache(ctx, tenant.ID, asOf))
	require.NoError(t, svc.RefreshCycleCache(ctx, tenant.ID, asOf))

	cached, err := mem.ListCachedWindows(ctx, tenant.ID)
	require.NoError(t, err)

	windows, err := svc.Ledger(ctx, tenant.ID, asOf)
	require.NoError(t, err)
	assert.Equal(t, windows, cached)
}
