/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements tenancy.Store (tenants, allocation intervals, payments,
  cycle cache) plus rate-plan persistence using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

INTERFACES IMPLEMENTED:
  tenancy.TenantStore:     Tenant records
  tenancy.AllocationStore: Price-validity history with atomic transfer
  tenancy.PaymentStore:    Append-only payment rows
  tenancy.CycleCacheStore: Idempotent cached cycle windows

APPEND-ONLY ENFORCEMENT:
  The payments table is append-only:
  - No UPDATE statements on payments
  - No DELETE statements on payments
  - Corrections via new rows only

KEY TABLES:
  tenants:              Tenant lifecycle records
  allocation_intervals: Bed/price validity segments (never overlapping)
  payments:             Immutable rows tagged with exact cycle windows
  cycle_cache:          One row per (tenant_id, cycle_start), upserted
  rate_plans:           JSON rate-plan configs for the admin surface

CYCLE CACHE:
  UNIQUE(tenant_id, cycle_start) plus INSERT ... ON CONFLICT makes the
  refresh idempotent: concurrent writers converge because enumeration
  is a pure function of the stay and the reference date.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/rent.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  svc := tenancy.NewRentService(st)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - tenancy/store.go: Interface definitions
  - tenancy/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hostelops/rent-engine/engine"
	"github.com/hostelops/rent-engine/tenancy"
)

// Store implements tenancy.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ tenancy.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Tenants
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		bed_id TEXT,
		check_in TEXT NOT NULL,
		check_out TEXT,
		convention TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tenants_property
		ON tenants(property_id);
	CREATE INDEX IF NOT EXISTS idx_tenants_property_status
		ON tenants(property_id, status);

	-- Allocation intervals (price-validity history)
	CREATE TABLE IF NOT EXISTS allocation_intervals (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		price TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_tenant_from
		ON allocation_intervals(tenant_id, effective_from);

	-- At most one open interval per tenant
	CREATE UNIQUE INDEX IF NOT EXISTS idx_allocations_one_open
		ON allocation_intervals(tenant_id)
		WHERE effective_to IS NULL;

	-- Payments (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		cycle_start TEXT NOT NULL,
		cycle_end TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		status TEXT NOT NULL,
		recorded_due TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: ledger classification groups rows by exact window
	CREATE INDEX IF NOT EXISTS idx_payments_tenant_cycle
		ON payments(tenant_id, cycle_start, cycle_end);

	-- Cycle cache: one logical row per (tenant, cycle_start)
	CREATE TABLE IF NOT EXISTS cycle_cache (
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		cycle_start TEXT NOT NULL,
		cycle_end TEXT NOT NULL,
		refreshed_at TEXT NOT NULL,
		UNIQUE(tenant_id, cycle_start)
	);

	CREATE INDEX IF NOT EXISTS idx_cycle_cache_tenant
		ON cycle_cache(tenant_id, cycle_start);

	-- Rate plans (JSON configs)
	CREATE TABLE IF NOT EXISTS rate_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANT STORE (tenancy.TenantStore interface)
// =============================================================================

// SaveTenant inserts or updates a tenant record.
func (s *Store) SaveTenant(ctx context.Context, t tenancy.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tenants (id, property_id, name, phone, bed_id, check_in, check_out, convention, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			bed_id = excluded.bed_id,
			check_out = excluded.check_out,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.PropertyID, t.Name, t.Phone, t.BedID,
		t.CheckIn.String(),
		nullDate(t.CheckOut),
		string(t.Convention),
		string(t.Status),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

// GetTenant retrieves a tenant by ID.
func (s *Store) GetTenant(ctx context.Context, id string) (*tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, property_id, name, phone, bed_id, check_in, check_out, convention, status FROM tenants WHERE id = ?",
		id,
	)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, tenancy.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTenants returns all tenants for a property ordered by name.
func (s *Store) ListTenants(ctx context.Context, propertyID string) ([]tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, property_id, name, phone, bed_id, check_in, check_out, convention, status FROM tenants WHERE property_id = ? ORDER BY name",
		propertyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []tenancy.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*tenancy.Tenant, error) {
	var (
		t          tenancy.Tenant
		phone      sql.NullString
		bedID      sql.NullString
		checkIn    string
		checkOut   sql.NullString
		convention string
		status     string
	)

	err := row.Scan(&t.ID, &t.PropertyID, &t.Name, &phone, &bedID,
		&checkIn, &checkOut, &convention, &status)
	if err != nil {
		return nil, err
	}

	t.Phone = phone.String
	t.BedID = bedID.String
	t.Convention = engine.BillingConvention(convention)
	t.Status = tenancy.TenantStatus(status)

	t.CheckIn, err = engine.ParseDate(checkIn)
	if err != nil {
		return nil, fmt.Errorf("corrupt check_in for tenant %s: %w", t.ID, err)
	}
	if checkOut.Valid {
		d, err := engine.ParseDate(checkOut.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt check_out for tenant %s: %w", t.ID, err)
		}
		t.CheckOut = &d
	}
	return &t, nil
}

// =============================================================================
// ALLOCATION STORE (tenancy.AllocationStore interface)
// =============================================================================

// OpenInterval records a tenant's first allocation at check-in.
func (s *Store) OpenInterval(ctx context.Context, tenantID string, iv engine.AllocationInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertInterval(ctx, s.db, tenantID, iv)
}

// TransferInterval closes the open interval at the day before the new
// interval's start and opens the new one, in a single transaction.
// Intervals are never observable in an overlapping state.
func (s *Store) TransferInterval(ctx context.Context, tenantID string, next engine.AllocationInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	closeAt := next.EffectiveFrom.AddDays(-1)
	res, err := tx.ExecContext(ctx,
		"UPDATE allocation_intervals SET effective_to = ? WHERE tenant_id = ? AND effective_to IS NULL",
		closeAt.String(), tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to close open interval: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("tenant %s has no open allocation interval", tenantID)
	}

	if err := s.insertInterval(ctx, tx, tenantID, next); err != nil {
		return err
	}
	return tx.Commit()
}

// CloseInterval ends the open interval at the given date (checkout).
func (s *Store) CloseInterval(ctx context.Context, tenantID string, endsOn engine.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE allocation_intervals SET effective_to = ? WHERE tenant_id = ? AND effective_to IS NULL",
		endsOn.String(), tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to close interval: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("tenant %s has no open allocation interval", tenantID)
	}
	return nil
}

// ListIntervals returns the history ordered by effective_from.
func (s *Store) ListIntervals(ctx context.Context, tenantID string) ([]engine.AllocationInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, effective_from, effective_to, price FROM allocation_intervals WHERE tenant_id = ? ORDER BY effective_from ASC",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var intervals []engine.AllocationInterval
	for rows.Next() {
		var (
			iv          engine.AllocationInterval
			from, price string
			to          sql.NullString
		)
		if err := rows.Scan(&iv.ID, &from, &to, &price); err != nil {
			return nil, err
		}

		iv.EffectiveFrom, err = engine.ParseDate(from)
		if err != nil {
			return nil, fmt.Errorf("corrupt effective_from for interval %s: %w", iv.ID, err)
		}
		if to.Valid {
			d, err := engine.ParseDate(to.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt effective_to for interval %s: %w", iv.ID, err)
			}
			iv.EffectiveTo = &d
		}
		iv.Price, err = engine.ParseMoney(price)
		if err != nil {
			return nil, fmt.Errorf("corrupt price for interval %s: %w", iv.ID, err)
		}

		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertInterval(ctx context.Context, db execer, tenantID string, iv engine.AllocationInterval) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO allocation_intervals (id, tenant_id, effective_from, effective_to, price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		iv.ID, tenantID,
		iv.EffectiveFrom.String(),
		nullDate(iv.EffectiveTo),
		iv.Price.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("tenant %s already has an open allocation interval", tenantID)
		}
		return fmt.Errorf("failed to insert allocation interval: %w", err)
	}
	return nil
}

// =============================================================================
// PAYMENT STORE (tenancy.PaymentStore interface)
// =============================================================================

// SavePayment appends a payment row.
func (s *Store) SavePayment(ctx context.Context, tenantID string, p engine.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recordedDue *string
	if p.RecordedDue != nil {
		v := p.RecordedDue.String()
		recordedDue = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, tenant_id, cycle_start, cycle_end, amount_paid, status, recorded_due, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, tenantID,
		p.Window.Start.String(), p.Window.End.String(),
		p.AmountPaid.String(),
		string(p.Status),
		recordedDue,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// ListPayments returns all payment rows for a tenant ordered by window.
func (s *Store) ListPayments(ctx context.Context, tenantID string) ([]engine.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cycle_start, cycle_end, amount_paid, status, recorded_due
		 FROM payments WHERE tenant_id = ?
		 ORDER BY cycle_start ASC, created_at ASC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []engine.PaymentRecord
	for rows.Next() {
		var (
			p           engine.PaymentRecord
			start, end  string
			amount      string
			status      string
			recordedDue sql.NullString
		)
		if err := rows.Scan(&p.ID, &start, &end, &amount, &status, &recordedDue); err != nil {
			return nil, err
		}

		p.Window.Start, err = engine.ParseDate(start)
		if err != nil {
			return nil, fmt.Errorf("corrupt cycle_start for payment %s: %w", p.ID, err)
		}
		p.Window.End, err = engine.ParseDate(end)
		if err != nil {
			return nil, fmt.Errorf("corrupt cycle_end for payment %s: %w", p.ID, err)
		}
		p.AmountPaid, err = engine.ParseMoney(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount_paid for payment %s: %w", p.ID, err)
		}
		p.Status = engine.PaymentStatus(status)
		if recordedDue.Valid {
			m, err := engine.ParseMoney(recordedDue.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt recorded_due for payment %s: %w", p.ID, err)
			}
			p.RecordedDue = &m
		}

		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// CYCLE CACHE STORE (tenancy.CycleCacheStore interface)
// =============================================================================

// UpsertWindows writes the enumerated windows, converging on the
// (tenant_id, cycle_start) key. Safe under concurrent refreshes.
func (s *Store) UpsertWindows(ctx context.Context, tenantID string, windows []engine.CycleWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO cycle_cache (tenant_id, cycle_start, cycle_end, refreshed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, cycle_start) DO UPDATE SET
			cycle_end = excluded.cycle_end,
			refreshed_at = excluded.refreshed_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, w := range windows {
		if _, err := tx.ExecContext(ctx, query, tenantID, w.Start.String(), w.End.String(), now); err != nil {
			return fmt.Errorf("failed to upsert cycle window: %w", err)
		}
	}
	return tx.Commit()
}

// ListCachedWindows returns the cached windows ordered by cycle_start.
func (s *Store) ListCachedWindows(ctx context.Context, tenantID string) ([]engine.CycleWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT cycle_start, cycle_end FROM cycle_cache WHERE tenant_id = ? ORDER BY cycle_start ASC",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle cache: %w", err)
	}
	defer rows.Close()

	var windows []engine.CycleWindow
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		var w engine.CycleWindow
		w.Start, err = engine.ParseDate(start)
		if err != nil {
			return nil, fmt.Errorf("corrupt cycle_start in cache for tenant %s: %w", tenantID, err)
		}
		w.End, err = engine.ParseDate(end)
		if err != nil {
			return nil, fmt.Errorf("corrupt cycle_end in cache for tenant %s: %w", tenantID, err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// =============================================================================
// RATE PLAN STORE
// =============================================================================

// RatePlanRecord is a stored rate plan with its JSON config.
type RatePlanRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SaveRatePlan saves a rate-plan record.
func (s *Store) SaveRatePlan(ctx context.Context, plan RatePlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rate_plans (id, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = rate_plans.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		plan.ID, plan.Name, plan.ConfigJSON, plan.Version, now, now,
	)
	return err
}

// GetRatePlan retrieves a rate plan by ID.
func (s *Store) GetRatePlan(ctx context.Context, id string) (*RatePlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p RatePlanRecord
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, config_json, version, created_at, updated_at FROM rate_plans WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// ListRatePlans returns all rate plans.
func (s *Store) ListRatePlans(ctx context.Context) ([]RatePlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, config_json, version, created_at, updated_at FROM rate_plans ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []RatePlanRecord
	for rows.Next() {
		var p RatePlanRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payments", "cycle_cache", "allocation_intervals", "tenants", "rate_plans"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// ListTenantIDs returns all tenant IDs with the given status, across
// properties. Used by the reconciliation scheduler.
func (s *Store) ListTenantIDs(ctx context.Context, status tenancy.TenantStatus) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM tenants WHERE status = ? ORDER BY check_in ASC",
		string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Helper functions

func nullDate(d *engine.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
