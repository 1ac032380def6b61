package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelops/rent-engine/engine"
	"github.com/hostelops/rent-engine/tenancy"
	memstore "github.com/hostelops/rent-engine/tenancy/store"
)

func TestScheduler_RefreshesActiveTenants(t *testing.T) {
	// GIVEN: Two active tenants and one checked out
	// WHEN: The scheduler runs once
	// THEN: Active tenants have cached windows, the checked-out one does not

	mem := memstore.NewMemory()
	svc := tenancy.NewRentService(mem)
	ctx := context.Background()

	checkIn := func(name string) *tenancy.Tenant {
		tenant, err := svc.CheckIn(ctx, tenancy.CheckInInput{
			PropertyID: "prop-1",
			Name:       name,
			CheckIn:    engine.NewDate(2025, time.March, 15),
			Convention: engine.ConventionCalendar,
			BedPrice:   engine.NewMoneyFromInt(9000),
		})
		require.NoError(t, err)
		return tenant
	}

	a := checkIn("Asha")
	b := checkIn("Binod")
	c := checkIn("Chitra")

	// Settle and check out the third tenant so only two stay active.
	_, err := svc.RecordPayment(ctx, c.ID, tenancy.RecordPaymentInput{
		Window: engine.CycleWindow{
			Start: engine.NewDate(2025, time.March, 15),
			End:   engine.NewDate(2025, time.March, 31),
		},
		Amount: engine.NewMoneyFromInt(5000),
		Status: engine.PaymentPaid,
	}, engine.NewDate(2025, time.March, 20))
	require.NoError(t, err)
	require.NoError(t, svc.Checkout(ctx, c.ID,
		engine.NewDate(2025, time.March, 31), engine.NewDate(2025, time.March, 31)))

	rs := NewReconciliationScheduler(svc, mem)
	rs.RunNow()

	for _, id := range []string{a.ID, b.ID} {
		cached, err := mem.ListCachedWindows(ctx, id)
		require.NoError(t, err)
		assert.NotEmpty(t, cached, "active tenant should have cached windows")
	}
	cached, err := mem.ListCachedWindows(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, cached, "checked-out tenant is skipped")
}
