/*
scheduler.go - Automated rent reconciliation scheduler

PURPOSE:
  Periodically re-enumerates billing cycles for all active tenants,
  refreshing the cycle cache and surfacing data anomalies (runaway
  cycle enumeration) in the logs.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Fans out across tenants with bounded concurrency (default 5)
  - Cache refresh is idempotent, so overlapping runs are harmless
  - Anomalies are logged and never written as truncated data

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Concurrency:   Max tenants processed at once (default: 5)
  - Enabled:       Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReconciliationScheduler(svc, store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - tenancy/service.go: RefreshCycleCache
  - engine/ledger.go: the enumeration being cached
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/hostelops/rent-engine/engine"
	"github.com/hostelops/rent-engine/tenancy"
)

// TenantLister enumerates tenants for batch processing. Both store
// implementations provide it.
type TenantLister interface {
	ListTenantIDs(ctx context.Context, status tenancy.TenantStatus) ([]string, error)
}

// ReconciliationScheduler refreshes cycle caches for active tenants.
type ReconciliationScheduler struct {
	Service       *tenancy.RentService
	Tenants       TenantLister
	CheckInterval time.Duration
	Concurrency   int
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(svc *tenancy.RentService, tenants TenantLister) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Service:       svc,
		Tenants:       tenants,
		CheckInterval: 1 * time.Hour,
		Concurrency:   5,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReconciliationScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.refreshAll()

	for {
		select {
		case <-rs.ticker.C:
			rs.refreshAll()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReconciliationScheduler) refreshAll() {
	ctx := context.Background()
	asOf := engine.Today()

	ids, err := rs.Tenants.ListTenantIDs(ctx, tenancy.TenantActive)
	if err != nil {
		log.Printf("[Scheduler] Error listing tenants: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	log.Printf("[Scheduler] Refreshing cycle caches for %d tenants as of %s", len(ids), asOf)

	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, rs.Concurrency)
		mu        sync.Mutex
		refreshed int
		anomalies int
	)

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(tenantID string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := rs.Service.RefreshCycleCache(ctx, tenantID, asOf)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				refreshed++
			case errors.Is(err, engine.ErrCycleOverflow):
				// Data anomaly: refuse to cache, make noise instead.
				anomalies++
				log.Printf("[Scheduler] ANOMALY tenant %s: %v", tenantID, err)
			default:
				log.Printf("[Scheduler] Error refreshing tenant %s: %v", tenantID, err)
			}
		}(id)
	}
	wg.Wait()

	log.Printf("[Scheduler] Completed: %d refreshed, %d anomalies", refreshed, anomalies)
}

// RunNow triggers an immediate refresh (for testing/admin).
func (rs *ReconciliationScheduler) RunNow() {
	rs.refreshAll()
}

// GetNextRunTime returns when the next scheduled run will occur.
func (rs *ReconciliationScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}
