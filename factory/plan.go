/*
Package factory provides JSON to Go rate-plan conversion.

PURPOSE:
  Converts JSON rate-plan definitions into engine billing configuration.
  This enables pricing configuration without code changes - property
  managers can define plans in JSON, and the factory creates the proper
  Go structs.

WHY JSON?
  - Non-developers can modify rate plans
  - Easy integration with admin UI
  - Version control for pricing definitions
  - Database storage of plan configs

JSON SCHEMA:
  {
    "id": "single-ac",
    "name": "Single Sharing AC",
    "convention": "midmonth",
    "monthly_price": "9000.00",
    "deposit": "5000.00",
    "grace_days": 5
  }

USAGE:
  f := factory.NewPlanFactory()

  plan, err := f.ParsePlan(jsonString)

  // Use at check-in
  svc.CheckIn(ctx, tenancy.CheckInInput{
      Convention: plan.Convention,
      BedPrice:   plan.MonthlyPrice,
      ...
  })

SEE ALSO:
  - engine/types.go: BillingConvention definition
  - tenancy/service.go: check-in and transfer entry points
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/hostelops/rent-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PlanJSON is the JSON representation of a rate plan.
type PlanJSON struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Convention   string `json:"convention"`
	MonthlyPrice string `json:"monthly_price"`
	Deposit      string `json:"deposit,omitempty"`
	GraceDays    int    `json:"grace_days,omitempty"`
}

// RatePlan is the parsed, validated rate plan.
type RatePlan struct {
	ID           string
	Name         string
	Convention   engine.BillingConvention
	MonthlyPrice engine.Money
	Deposit      engine.Money
	GraceDays    int
}

// =============================================================================
// PLAN FACTORY
// =============================================================================

// PlanFactory converts JSON rate plans to Go structs.
type PlanFactory struct{}

// NewPlanFactory creates a new plan factory.
func NewPlanFactory() *PlanFactory {
	return &PlanFactory{}
}

// ParsePlan parses a JSON string into a RatePlan.
func (f *PlanFactory) ParsePlan(jsonStr string) (*RatePlan, error) {
	var pj PlanJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PlanJSON to a RatePlan.
func (f *PlanFactory) FromJSON(pj PlanJSON) (*RatePlan, error) {
	if pj.ID == "" {
		return nil, fmt.Errorf("rate plan requires an id")
	}

	convention := parseConvention(pj.Convention)
	if !convention.Valid() {
		return nil, fmt.Errorf("unknown billing convention: %q", pj.Convention)
	}

	price, err := engine.ParseMoney(pj.MonthlyPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid monthly_price: %w", err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("monthly_price must not be negative: %s", pj.MonthlyPrice)
	}

	deposit := engine.ZeroMoney
	if pj.Deposit != "" {
		deposit, err = engine.ParseMoney(pj.Deposit)
		if err != nil {
			return nil, fmt.Errorf("invalid deposit: %w", err)
		}
		if deposit.IsNegative() {
			return nil, fmt.Errorf("deposit must not be negative: %s", pj.Deposit)
		}
	}

	if pj.GraceDays < 0 {
		return nil, fmt.Errorf("grace_days must not be negative: %d", pj.GraceDays)
	}

	return &RatePlan{
		ID:           pj.ID,
		Name:         pj.Name,
		Convention:   convention,
		MonthlyPrice: price,
		Deposit:      deposit,
		GraceDays:    pj.GraceDays,
	}, nil
}

// ToJSON converts a RatePlan back to its JSON representation.
func (f *PlanFactory) ToJSON(plan *RatePlan) PlanJSON {
	pj := PlanJSON{
		ID:           plan.ID,
		Name:         plan.Name,
		Convention:   string(plan.Convention),
		MonthlyPrice: plan.MonthlyPrice.String(),
		GraceDays:    plan.GraceDays,
	}
	if plan.Deposit.IsPositive() {
		pj.Deposit = plan.Deposit.String()
	}
	return pj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseConvention(s string) engine.BillingConvention {
	switch s {
	case "", "calendar":
		return engine.ConventionCalendar
	case "midmonth", "mid_month", "mid-month":
		return engine.ConventionMidMonth
	default:
		return engine.BillingConvention(s)
	}
}

// =============================================================================
// PRESET PLANS
// =============================================================================

// StandardPlanJSON builds the JSON for a common monthly plan. Convenience
// for seeding and tests.
func StandardPlanJSON(id, name string, convention engine.BillingConvention, monthlyPrice string) string {
	pj := PlanJSON{
		ID:           id,
		Name:         name,
		Convention:   string(convention),
		MonthlyPrice: monthlyPrice,
	}
	b, _ := json.Marshal(pj)
	return string(b)
}
