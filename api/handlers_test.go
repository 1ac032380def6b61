/*
handlers_test.go - Unit tests for API handlers

Tests exercise the full router against the in-memory store:
- Check-in / summary / ledger round trip
- Payment recording and window-mismatch rejection
- Checkout gate surfacing 409 with outstanding dues
- Property dashboard rollup
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelops/rent-engine/tenancy"
	memstore "github.com/hostelops/rent-engine/tenancy/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer() (*httptest.Server, *memstore.Memory) {
	mem := memstore.NewMemory()
	svc := tenancy.NewRentService(mem)
	h := NewHandler(svc, nil)
	return httptest.NewServer(NewRouter(h)), mem
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func checkInTenant(t *testing.T, baseURL string) TenantDTO {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/tenants", CheckInRequest{
		PropertyID: "prop-1",
		Name:       "Asha",
		BedID:      "bed-12",
		CheckIn:    "2025-03-15",
		Convention: "calendar",
		BedPrice:   "9000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[TenantDTO](t, resp)
}

// =============================================================================
// TENANT LIFECYCLE
// =============================================================================

func TestCheckInAndSummary(t *testing.T) {
	// GIVEN: A tenant checked in March 15 at 9000/month
	// WHEN: Fetching the summary as of March 20
	// THEN: One cycle, unpaid, expected due prorated for 17 days

	srv, _ := newTestServer()
	defer srv.Close()

	tenant := checkInTenant(t, srv.URL)
	assert.Equal(t, "active", tenant.Status)

	resp := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/tenants/%s/summary?as_of=2025-03-20", srv.URL, tenant.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	summary := decode[RentSummaryDTO](t, resp)
	assert.Equal(t, "2025-03-20", summary.AsOf)
	assert.Equal(t, "no_payment", summary.PaymentStatus)
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, "4935.48", summary.Entries[0].ExpectedDue)
	assert.Equal(t, "allocation", summary.Entries[0].DueSource)
}

func TestCheckIn_RejectsBadConvention(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/tenants", CheckInRequest{
		PropertyID: "prop-1",
		Name:       "Asha",
		CheckIn:    "2025-03-15",
		Convention: "weekly",
		BedPrice:   "9000",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetTenant_NotFound(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/tenants/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestRecordPayment_RoundTrip(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()
	tenant := checkInTenant(t, srv.URL)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/tenants/%s/payments?as_of=2025-03-20", srv.URL, tenant.ID),
		RecordPaymentRequest{
			CycleStart: "2025-03-15",
			CycleEnd:   "2025-03-31",
			Amount:     "4935.48",
			Status:     "paid",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	payment := decode[PaymentDTO](t, resp)
	assert.Equal(t, "4935.48", payment.AmountPaid)

	// The summary now shows the cycle covered.
	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/tenants/%s/summary?as_of=2025-03-20", srv.URL, tenant.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[RentSummaryDTO](t, resp)
	assert.True(t, summary.IsRentPaid)

	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/tenants/%s/payments", srv.URL, tenant.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payments := decode[[]PaymentDTO](t, resp)
	assert.Len(t, payments, 1)
}

func TestRecordPayment_MismatchedWindowRejected(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()
	tenant := checkInTenant(t, srv.URL)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/tenants/%s/payments?as_of=2025-04-20", srv.URL, tenant.ID),
		RecordPaymentRequest{
			CycleStart: "2025-04-01",
			CycleEnd:   "2025-04-29",
			Amount:     "9000",
			Status:     "paid",
		})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// CHECKOUT GATE
// =============================================================================

func TestCheckout_BlockedThenAllowed(t *testing.T) {
	// GIVEN: A tenant with the join month unpaid
	// WHEN: Checking out
	// THEN: 409 with the outstanding amount; allowed once settled

	srv, _ := newTestServer()
	defer srv.Close()
	tenant := checkInTenant(t, srv.URL)

	url := fmt.Sprintf("%s/api/tenants/%s/checkout?as_of=2025-04-20", srv.URL, tenant.ID)
	resp := doJSON(t, http.MethodPost, url, CheckoutRequest{CheckOut: "2025-04-20"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "settlement_gate", errResp.Code)

	pay := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/tenants/%s/payments?as_of=2025-04-20", srv.URL, tenant.ID),
		RecordPaymentRequest{
			CycleStart: "2025-03-15",
			CycleEnd:   "2025-03-31",
			Amount:     "4935.48",
			Status:     "paid",
		})
	require.Equal(t, http.StatusCreated, pay.StatusCode)
	pay.Body.Close()

	resp = doJSON(t, http.MethodPost, url, CheckoutRequest{CheckOut: "2025-04-20"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	got := doJSON(t, http.MethodGet, srv.URL+"/api/tenants/"+tenant.ID, nil)
	dto := decode[TenantDTO](t, got)
	assert.Equal(t, "checked_out", dto.Status)
	require.NotNil(t, dto.CheckOut)
	assert.Equal(t, "2025-04-20", *dto.CheckOut)
}

// =============================================================================
// DASHBOARD & LISTING
// =============================================================================

func TestDashboardAndListing(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()
	tenant := checkInTenant(t, srv.URL)

	resp := doJSON(t, http.MethodGet,
		srv.URL+"/api/properties/prop-1/dashboard?as_of=2025-05-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dash := decode[DashboardDTO](t, resp)
	assert.Equal(t, 1, dash.TenantCount)
	assert.Equal(t, 1, dash.PendingCount)
	assert.NotEqual(t, "0.00", dash.TotalDue)

	resp = doJSON(t, http.MethodGet,
		srv.URL+"/api/tenants?property_id=prop-1&as_of=2025-05-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]TenantWithSummaryDTO](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, tenant.ID, list[0].ID)
	assert.False(t, list[0].IsRentPaid)
}

// =============================================================================
// RATE PLANS (no plan store wired)
// =============================================================================

func TestRatePlans_UnavailableWithoutStore(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/rateplans", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}
