// Package store provides an in-memory tenancy.Store implementation for
// tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hostelops/rent-engine/engine"
	"github.com/hostelops/rent-engine/tenancy"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	tenants     map[string]tenancy.Tenant
	allocations map[string][]engine.AllocationInterval
	payments    map[string][]engine.PaymentRecord
	cycleCache  map[string]map[string]engine.CycleWindow // tenantID -> cycleStart -> window
}

func NewMemory() *Memory {
	return &Memory{
		tenants:     make(map[string]tenancy.Tenant),
		allocations: make(map[string][]engine.AllocationInterval),
		payments:    make(map[string][]engine.PaymentRecord),
		cycleCache:  make(map[string]map[string]engine.CycleWindow),
	}
}

// Compile-time check
var _ tenancy.Store = (*Memory)(nil)

// -----------------------------------------------------------------------------
// Tenants
// -----------------------------------------------------------------------------

func (m *Memory) SaveTenant(_ context.Context, t tenancy.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
	return nil
}

func (m *Memory) GetTenant(_ context.Context, id string) (*tenancy.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, tenancy.ErrTenantNotFound
	}
	out := t
	return &out, nil
}

func (m *Memory) ListTenants(_ context.Context, propertyID string) ([]tenancy.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []tenancy.Tenant
	for _, t := range m.tenants {
		if propertyID == "" || t.PropertyID == propertyID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ListTenantIDs returns IDs of all tenants with the given status,
// across properties. Used by the reconciliation scheduler.
func (m *Memory) ListTenantIDs(_ context.Context, status tenancy.TenantStatus) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, t := range m.tenants {
		if t.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// -----------------------------------------------------------------------------
// Allocations - close-and-open stays atomic under the single lock
// -----------------------------------------------------------------------------

func (m *Memory) OpenInterval(_ context.Context, tenantID string, iv engine.AllocationInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocations[tenantID] = append(m.allocations[tenantID], iv)
	return nil
}

func (m *Memory) TransferInterval(_ context.Context, tenantID string, next engine.AllocationInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ivs := m.allocations[tenantID]
	if len(ivs) == 0 || !ivs[len(ivs)-1].IsOpen() {
		return tenancy.ErrInvalidTransferDate
	}
	endsOn := next.EffectiveFrom.AddDays(-1)
	ivs[len(ivs)-1].EffectiveTo = &endsOn
	m.allocations[tenantID] = append(ivs, next)
	return nil
}

func (m *Memory) CloseInterval(_ context.Context, tenantID string, endsOn engine.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ivs := m.allocations[tenantID]
	if len(ivs) == 0 || !ivs[len(ivs)-1].IsOpen() {
		return tenancy.ErrInvalidTransferDate
	}
	ivs[len(ivs)-1].EffectiveTo = &endsOn
	return nil
}

func (m *Memory) ListIntervals(_ context.Context, tenantID string) ([]engine.AllocationInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.AllocationInterval, len(m.allocations[tenantID]))
	copy(result, m.allocations[tenantID])
	return result, nil
}

// -----------------------------------------------------------------------------
// Payments
// -----------------------------------------------------------------------------

func (m *Memory) SavePayment(_ context.Context, tenantID string, p engine.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[tenantID] = append(m.payments[tenantID], p)
	return nil
}

func (m *Memory) ListPayments(_ context.Context, tenantID string) ([]engine.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.PaymentRecord, len(m.payments[tenantID]))
	copy(result, m.payments[tenantID])
	return result, nil
}

// -----------------------------------------------------------------------------
// Cycle cache - one logical row per (tenant, cycle_start)
// -----------------------------------------------------------------------------

func (m *Memory) UpsertWindows(_ context.Context, tenantID string, windows []engine.CycleWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cache := m.cycleCache[tenantID]
	if cache == nil {
		cache = make(map[string]engine.CycleWindow)
		m.cycleCache[tenantID] = cache
	}
	for _, w := range windows {
		cache[w.Start.String()] = w
	}
	return nil
}

func (m *Memory) ListCachedWindows(_ context.Context, tenantID string) ([]engine.CycleWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.CycleWindow
	for _, w := range m.cycleCache[tenantID] {
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}
