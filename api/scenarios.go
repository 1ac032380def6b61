/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the store with recognizable demo situations so the API can be
  explored without hand-crafting data. Each scenario is built through
  the domain service, never by writing rows directly, so seeded data
  always satisfies the same invariants as real data.

SCENARIOS:
  fresh-checkin:    Tenant joined mid-month, partial first cycle unpaid
  midmonth-regular: Anchor-day tenant, all cycles settled
  transfer:         Mid-stay bed transfer with a prorated month
  defaulter:        Several months unpaid, first cycle still open

SEE ALSO:
  - handlers.go: Handler struct these methods hang off
  - tenancy/service.go: the loaders call through the service
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hostelops/rent-engine/engine"
	"github.com/hostelops/rent-engine/tenancy"
)

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-checkin",
		Name:        "Fresh Check-in",
		Description: "Tenant joined mid-month on the calendar convention; the partial first cycle is still unpaid.",
	},
	{
		ID:          "midmonth-regular",
		Name:        "Mid-month Regular",
		Description: "Tenant billed on their check-in anchor day, every cycle settled.",
	},
	{
		ID:          "transfer",
		Name:        "Mid-stay Transfer",
		Description: "Tenant moved beds mid-month; that month's due prorates across two prices.",
	},
	{
		ID:          "defaulter",
		Name:        "Defaulter",
		Description: "Several past cycles unpaid, including the check-in cycle.",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the store with the requested scenario's tenants.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		AsOf string `json:"as_of,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	asOf := engine.Today()
	if req.AsOf != "" {
		var err error
		asOf, err = engine.ParseDate(req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
	}

	var err error
	switch req.ID {
	case "fresh-checkin":
		err = h.loadFreshCheckIn(r.Context(), asOf)
	case "midmonth-regular":
		err = h.loadMidMonthRegular(r.Context(), asOf)
	case "transfer":
		err = h.loadTransfer(r.Context(), asOf)
	case "defaulter":
		err = h.loadDefaulter(r.Context(), asOf)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ID), nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ID})
}

func (h *Handler) loadFreshCheckIn(ctx context.Context, asOf engine.Date) error {
	_, err := h.Service.CheckIn(ctx, tenancy.CheckInInput{
		PropertyID: "demo-property",
		Name:       "Kavya Menon",
		BedID:      "A-101",
		CheckIn:    asOf.AddDays(-10),
		Convention: engine.ConventionCalendar,
		BedPrice:   engine.NewMoneyFromInt(9000),
	})
	return err
}

func (h *Handler) loadMidMonthRegular(ctx context.Context, asOf engine.Date) error {
	checkIn := engine.NewDate(asOf.Year()-1, asOf.Month(), 10)
	tenant, err := h.Service.CheckIn(ctx, tenancy.CheckInInput{
		PropertyID: "demo-property",
		Name:       "Rohit Sharma",
		BedID:      "B-204",
		CheckIn:    checkIn,
		Convention: engine.ConventionMidMonth,
		BedPrice:   engine.NewMoneyFromInt(7000),
	})
	if err != nil {
		return err
	}

	// Settle every cycle up to the reference date.
	windows, err := h.Service.Ledger(ctx, tenant.ID, asOf)
	if err != nil {
		return err
	}
	for _, w := range windows {
		if _, err := h.Service.RecordPayment(ctx, tenant.ID, tenancy.RecordPaymentInput{
			Window: w,
			Amount: engine.NewMoneyFromInt(7000),
			Status: engine.PaymentPaid,
		}, asOf); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadTransfer(ctx context.Context, asOf engine.Date) error {
	// Checked in on the first of the month, two months back.
	start := engine.NewDate(asOf.Year(), asOf.Month()-2, 1)

	tenant, err := h.Service.CheckIn(ctx, tenancy.CheckInInput{
		PropertyID: "demo-property",
		Name:       "Imran Qureshi",
		BedID:      "C-003",
		CheckIn:    start,
		Convention: engine.ConventionCalendar,
		BedPrice:   engine.NewMoneyFromInt(6000),
	})
	if err != nil {
		return err
	}

	// Settle past months so the settlement gate lets the transfer through.
	windows, err := h.Service.Ledger(ctx, tenant.ID, asOf)
	if err != nil {
		return err
	}
	for _, w := range windows {
		if w.End.Before(asOf) {
			if _, err := h.Service.RecordPayment(ctx, tenant.ID, tenancy.RecordPaymentInput{
				Window: w,
				Amount: engine.NewMoneyFromInt(6000),
				Status: engine.PaymentPaid,
			}, asOf); err != nil {
				return err
			}
		}
	}

	transferAt := engine.NewDate(asOf.Year(), asOf.Month(), 16)
	return h.Service.Transfer(ctx, tenant.ID, "C-010", engine.NewMoneyFromInt(8000), transferAt, asOf)
}

func (h *Handler) loadDefaulter(ctx context.Context, asOf engine.Date) error {
	// time.Date normalizes out-of-range months, so crossing a year
	// boundary here is fine.
	checkIn := engine.NewDate(asOf.Year(), asOf.Month()-3, 15)

	_, err := h.Service.CheckIn(ctx, tenancy.CheckInInput{
		PropertyID: "demo-property",
		Name:       "Vikram Joshi",
		BedID:      "D-112",
		CheckIn:    checkIn,
		Convention: engine.ConventionCalendar,
		BedPrice:   engine.NewMoneyFromInt(8000),
	})
	return err
}
