/*
store.go - Persistence interfaces for the tenancy domain

PURPOSE:
  Defines the interface between domain logic and the database. The rent
  engine never talks to storage; these interfaces feed it immutable
  snapshots (tenant, allocation history, payment rows) and persist the
  state changes the domain layer decides on.

KEY INTERFACES:
  TenantStore:     Tenant records
  AllocationStore: Allocation interval history. Transfer and checkout
                   close-and-open in ONE atomic operation - intervals
                   must never be observable in an overlapping state.
  PaymentStore:    Payment rows tagged with exact cycle windows
  CycleCacheStore: Optional persisted copy of enumerated windows, keyed
                   by (tenant, cycle_start)

CYCLE CACHE IDEMPOTENCE:
  UpsertWindows must be idempotent under concurrent retries: the store
  guarantees at most one logical row per (tenant_id, cycle_start), and
  concurrent writers converge to the same computed values because window
  enumeration is a pure function of (stay, reference date).

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - tenancy/store: in-memory for tests and dev

SEE ALSO:
  - service.go: the domain logic calling through these interfaces
*/
package tenancy

import (
	"context"

	"github.com/hostelops/rent-engine/engine"
)

// TenantStore persists tenant records.
type TenantStore interface {
	SaveTenant(ctx context.Context, t Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	ListTenants(ctx context.Context, propertyID string) ([]Tenant, error)
}

// AllocationStore persists the price-validity history. The mutating
// operations mirror the three lifecycle events that touch allocations;
// each is atomic.
type AllocationStore interface {
	// OpenInterval records a tenant's first allocation at check-in.
	OpenInterval(ctx context.Context, tenantID string, iv engine.AllocationInterval) error

	// TransferInterval closes the open interval at the day before
	// effectiveFrom and opens a new one, in the same atomic step.
	TransferInterval(ctx context.Context, tenantID string, next engine.AllocationInterval) error

	// CloseInterval ends the open interval at the given date (checkout).
	CloseInterval(ctx context.Context, tenantID string, endsOn engine.Date) error

	// ListIntervals returns the history ordered by EffectiveFrom.
	ListIntervals(ctx context.Context, tenantID string) ([]engine.AllocationInterval, error)
}

// PaymentStore persists payment rows. Append-only: corrections happen by
// recording a new row, never by editing history.
type PaymentStore interface {
	SavePayment(ctx context.Context, tenantID string, p engine.PaymentRecord) error
	ListPayments(ctx context.Context, tenantID string) ([]engine.PaymentRecord, error)
}

// CycleCacheStore persists enumerated windows for fast reads. Purely a
// cache: the engine recomputes the same windows from source data, so
// rows can be dropped and rebuilt at any time.
type CycleCacheStore interface {
	UpsertWindows(ctx context.Context, tenantID string, windows []engine.CycleWindow) error
	ListCachedWindows(ctx context.Context, tenantID string) ([]engine.CycleWindow, error)
}

// Store aggregates everything the domain service needs.
type Store interface {
	TenantStore
	AllocationStore
	PaymentStore
	CycleCacheStore
}
