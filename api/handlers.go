/*
handlers.go - HTTP API handlers for the rent engine

PURPOSE:
  Exposes the rent cycle and reconciliation engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Tenants:
    GET    /api/tenants                    List tenants with rent status
    POST   /api/tenants                    Check a tenant in
    GET    /api/tenants/{id}               Get tenant details
    GET    /api/tenants/{id}/summary       Rent summary (canonical read)
    GET    /api/tenants/{id}/ledger        Classified cycle ledger

  Payments:
    GET    /api/tenants/{id}/payments      Payment history
    POST   /api/tenants/{id}/payments      Record a payment

  Lifecycle:
    POST   /api/tenants/{id}/transfer      Move to a new bed/price
    POST   /api/tenants/{id}/checkout      Check out (settlement-gated)

  Properties:
    GET    /api/properties/{id}/dashboard  Due counts rollup

  Rate plans:
    GET    /api/rateplans                  List rate plans
    POST   /api/rateplans                  Create plan from JSON

REFERENCE DATE:
  Every read accepts an optional ?as_of=YYYY-MM-DD query parameter.
  "Today" enters the system here and only here; everything below the
  HTTP layer takes an explicit date.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, mis-tagged payment windows
  - 404: Tenant not found
  - 409: Settlement gate blocked the transition
  - 500: Internal errors, data anomalies (cycle overflow)

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - tenancy/service.go: The domain logic behind every handler
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hostelops/rent-engine/engine"
	"github.com/hostelops/rent-engine/factory"
	"github.com/hostelops/rent-engine/store/sqlite"
	"github.com/hostelops/rent-engine/tenancy"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// PlanStore is the rate-plan persistence the HTTP layer needs. The
// SQLite store implements it; deployments on other stores can leave
// Plans nil and the rate-plan routes answer 503.
type PlanStore interface {
	SaveRatePlan(ctx context.Context, plan sqlite.RatePlanRecord) error
	GetRatePlan(ctx context.Context, id string) (*sqlite.RatePlanRecord, error)
	ListRatePlans(ctx context.Context) ([]sqlite.RatePlanRecord, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service     *tenancy.RentService
	Plans       PlanStore
	PlanFactory *factory.PlanFactory
}

// NewHandler creates a new handler around the domain service.
func NewHandler(svc *tenancy.RentService, plans PlanStore) *Handler {
	return &Handler{
		Service:     svc,
		Plans:       plans,
		PlanFactory: factory.NewPlanFactory(),
	}
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// ListTenants returns all tenants for a property with their rent status.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	propertyID := r.URL.Query().Get("property_id")
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
		return
	}

	tenants, err := h.Service.Store.ListTenants(ctx, propertyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenants", err)
		return
	}

	dtos := make([]TenantWithSummaryDTO, 0, len(tenants))
	for _, t := range tenants {
		dto := TenantWithSummaryDTO{TenantDTO: toTenantDTO(t)}
		summary, err := h.Service.Summary(ctx, t.ID, asOf)
		if err == nil {
			dto.PaymentStatus = string(summary.PaymentStatus)
			dto.RentDue = summary.RentDueAmount.String()
			dto.IsRentPaid = summary.IsRentPaid
			dto.IsRentPartial = summary.IsRentPartial
		} else {
			// Listing should not fail wholesale on one tenant's bad data.
			dto.PaymentStatus = "error"
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetTenant returns a single tenant.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tenant, err := h.Service.Store.GetTenant(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(*tenant))
}

// CheckIn creates a new tenant with their first allocation interval.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	checkIn, err := engine.ParseDate(req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_in format (use YYYY-MM-DD)", err)
		return
	}
	price, err := engine.ParseMoney(req.BedPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bed_price", err)
		return
	}

	tenant, err := h.Service.CheckIn(r.Context(), tenancy.CheckInInput{
		PropertyID: req.PropertyID,
		Name:       req.Name,
		Phone:      req.Phone,
		BedID:      req.BedID,
		CheckIn:    checkIn,
		Convention: engine.BillingConvention(req.Convention),
		BedPrice:   price,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTenantDTO(*tenant))
}

// =============================================================================
// SUMMARY & LEDGER HANDLERS
// =============================================================================

// GetSummary returns the tenant's rent summary as of the reference date.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
		return
	}

	summary, err := h.Service.Summary(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRentSummaryDTO(id, summary))
}

// GetLedger returns the tenant's classified cycle ledger.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
		return
	}

	summary, err := h.Service.Summary(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entries := make([]LedgerEntryDTO, len(summary.Entries))
	for i, e := range summary.Entries {
		entries[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, entries)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns all payment rows for a tenant.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Existence check first so unknown tenants 404 instead of
	// answering an empty list.
	if _, err := h.Service.Store.GetTenant(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	payments, err := h.Service.Store.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment records a payment against an exact cycle window.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
		return
	}

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := engine.ParseDate(req.CycleStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cycle_start format (use YYYY-MM-DD)", err)
		return
	}
	end, err := engine.ParseDate(req.CycleEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cycle_end format (use YYYY-MM-DD)", err)
		return
	}
	amount, err := engine.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	in := tenancy.RecordPaymentInput{
		Window: engine.CycleWindow{Start: start, End: end},
		Amount: amount,
		Status: engine.PaymentStatus(req.Status),
	}
	if req.RecordedDue != nil {
		due, err := engine.ParseMoney(*req.RecordedDue)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid recorded_due", err)
			return
		}
		in.RecordedDue = &due
	}

	record, err := h.Service.RecordPayment(r.Context(), id, in, asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(*record))
}

// =============================================================================
// LIFECYCLE HANDLERS
// =============================================================================

// Transfer moves a tenant to a new bed/price.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	at, err := engine.ParseDate(req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_from format (use YYYY-MM-DD)", err)
		return
	}
	price, err := engine.ParseMoney(req.NewPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid new_price", err)
		return
	}

	if err := h.Service.Transfer(r.Context(), id, req.BedID, price, at, asOf); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

// Checkout checks a tenant out, gated on settled dues.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	at, err := engine.ParseDate(req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_out format (use YYYY-MM-DD)", err)
		return
	}

	if err := h.Service.Checkout(r.Context(), id, at, asOf); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "checked_out"})
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// GetDashboard returns the property's due counts rollup.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "id")
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
		return
	}

	counts, err := h.Service.PropertyDueCounts(r.Context(), propertyID, asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardDTO{
		PropertyID:   counts.PropertyID,
		AsOf:         asOf.String(),
		TenantCount:  counts.TenantCount,
		PartialCount: counts.PartialCount,
		PendingCount: counts.PendingCount,
		TotalDue:     counts.TotalDue.String(),
	})
}

// =============================================================================
// RATE PLAN HANDLERS
// =============================================================================

// ListRatePlans returns all stored rate plans.
func (h *Handler) ListRatePlans(w http.ResponseWriter, r *http.Request) {
	if h.Plans == nil {
		writeError(w, http.StatusServiceUnavailable, "Rate plans not available on this store", nil)
		return
	}

	records, err := h.Plans.ListRatePlans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rate plans", err)
		return
	}

	dtos := make([]RatePlanDTO, 0, len(records))
	for _, rec := range records {
		plan, err := h.PlanFactory.ParsePlan(rec.ConfigJSON)
		if err != nil {
			continue // Skip corrupted configs
		}
		dtos = append(dtos, RatePlanDTO{
			ID:      rec.ID,
			Name:    rec.Name,
			Config:  h.PlanFactory.ToJSON(plan),
			Version: rec.Version,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRatePlan validates and stores a rate plan config.
func (h *Handler) CreateRatePlan(w http.ResponseWriter, r *http.Request) {
	if h.Plans == nil {
		writeError(w, http.StatusServiceUnavailable, "Rate plans not available on this store", nil)
		return
	}

	var req CreateRatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	plan, err := h.PlanFactory.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate plan", err)
		return
	}

	configJSON, err := json.Marshal(h.PlanFactory.ToJSON(plan))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode plan", err)
		return
	}

	rec := sqlite.RatePlanRecord{
		ID:         plan.ID,
		Name:       plan.Name,
		ConfigJSON: string(configJSON),
	}
	if err := h.Plans.SaveRatePlan(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate plan", err)
		return
	}

	writeJSON(w, http.StatusCreated, RatePlanDTO{
		ID:     plan.ID,
		Name:   plan.Name,
		Config: h.PlanFactory.ToJSON(plan),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// asOfDate resolves the reference date for a request. Defaults to today;
// this is the only place "now" enters the system.
func asOfDate(r *http.Request) (engine.Date, error) {
	s := r.URL.Query().Get("as_of")
	if s == "" {
		return engine.Today(), nil
	}
	return engine.ParseDate(s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenancy.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "Tenant not found", err)

	case errors.Is(err, tenancy.ErrCheckoutBlocked):
		var blocked *tenancy.CheckoutBlockedError
		resp := ErrorResponse{Error: "Outstanding dues block this transition", Code: "settlement_gate"}
		if errors.As(err, &blocked) {
			resp.Details = map[string]any{
				"rent_due":       blocked.RentDue.String(),
				"unpaid_windows": toGapDTOs(blocked.UnpaidWindows),
				"advance_unmet":  blocked.AdvanceUnmet,
			}
		}
		writeJSON(w, http.StatusConflict, resp)

	case errors.Is(err, tenancy.ErrWindowMismatch):
		writeError(w, http.StatusBadRequest, "Payment window does not match any billing cycle", err)

	case tenancy.IsClientError(err) || engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)

	case engine.IsDataAnomaly(err):
		writeError(w, http.StatusInternalServerError, "Billing data anomaly", err)

	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
