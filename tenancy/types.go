// Package tenancy implements the property-management domain around the
// rent engine: tenant lifecycle (check-in, transfer, checkout), payment
// capture, the checkout gate, and property-level due rollups. It owns the
// mutable state the engine computes over; the engine itself stays pure.
package tenancy

import (
	"github.com/hostelops/rent-engine/engine"
)

// =============================================================================
// TENANT
// =============================================================================

type TenantStatus string

const (
	TenantActive     TenantStatus = "active"
	TenantCheckedOut TenantStatus = "checked_out"
)

// Tenant is the occupancy record the engine derives billing from. Room
// and bed management beyond the bed reference live with the property
// back office, not here.
type Tenant struct {
	ID         string
	PropertyID string
	Name       string
	Phone      string
	BedID      string
	CheckIn    engine.Date
	CheckOut   *engine.Date
	Convention engine.BillingConvention
	Status     TenantStatus
}

// Stay projects the tenant onto the engine's stay bounds.
func (t Tenant) Stay() engine.Stay {
	return engine.Stay{
		CheckIn:    t.CheckIn,
		CheckOut:   t.CheckOut,
		Convention: t.Convention,
	}
}

// =============================================================================
// PROPERTY ROLLUPS - Consumed by notification crons and dashboards
// =============================================================================

// DueCounts is the per-property rollup notification crons filter on.
// Composing the human-readable alert text is the notifier's concern.
type DueCounts struct {
	PropertyID   string
	TenantCount  int
	PartialCount int
	PendingCount int
	TotalDue     engine.Money
}

// =============================================================================
// ADVANCE PRECONDITION - External collaborator hook
// =============================================================================

// AdvancePolicy answers whether a tenant's advance/deposit precondition is
// settled. The default implementation approves everyone; deployments with
// an advance-payment product inject their own.
type AdvancePolicy interface {
	AdvanceSettled(tenantID string) (bool, error)
}

// OpenAdvancePolicy is the no-op policy used when advances are not tracked.
type OpenAdvancePolicy struct{}

func (OpenAdvancePolicy) AdvanceSettled(string) (bool, error) { return true, nil }
