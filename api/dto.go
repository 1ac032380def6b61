/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Tenant:
    TenantDTO, TenantWithSummaryDTO, CheckInRequest

  Summary:
    RentSummaryDTO, LedgerEntryDTO, GapDTO

  Payments:
    PaymentDTO, RecordPaymentRequest

  Lifecycle:
    TransferRequest, CheckoutRequest

  Property:
    DashboardDTO

  Rate plans:
    RatePlanDTO (wraps factory.PlanJSON)

MONEY FORMAT:
  All amounts cross the wire as fixed 2-decimal strings ("4935.48").
  engine.Money handles the rounding at this presentation boundary.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/plan.go: PlanJSON type
*/
package api

import (
	"github.com/hostelops/rent-engine/engine"
	"github.com/hostelops/rent-engine/factory"
	"github.com/hostelops/rent-engine/tenancy"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TenantDTO represents a tenant in API responses.
type TenantDTO struct {
	ID         string  `json:"id"`
	PropertyID string  `json:"property_id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone,omitempty"`
	BedID      string  `json:"bed_id,omitempty"`
	CheckIn    string  `json:"check_in"`
	CheckOut   *string `json:"check_out,omitempty"`
	Convention string  `json:"convention"`
	Status     string  `json:"status"`
}

// TenantWithSummaryDTO is a tenant plus their current rent status, used
// by the listing endpoint that feeds the property dashboard.
type TenantWithSummaryDTO struct {
	TenantDTO
	PaymentStatus string `json:"payment_status"`
	RentDue       string `json:"rent_due"`
	IsRentPaid    bool   `json:"is_rent_paid"`
	IsRentPartial bool   `json:"is_rent_partial"`
}

// CheckInRequest is the request to check a tenant in.
type CheckInRequest struct {
	PropertyID string `json:"property_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	BedID      string `json:"bed_id"`
	CheckIn    string `json:"check_in"`
	Convention string `json:"convention"`
	BedPrice   string `json:"bed_price"`
}

// WindowDTO is a cycle window on the wire.
type WindowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// LedgerEntryDTO is one classified cycle in the tenant's ledger.
type LedgerEntryDTO struct {
	Window       WindowDTO `json:"window"`
	TotalPaid    string    `json:"total_paid"`
	ExpectedDue  string    `json:"expected_due"`
	RemainingDue string    `json:"remaining_due"`
	Status       string    `json:"status"`
	DueSource    string    `json:"due_source"`
}

// GapDTO is an unpaid cycle in settlement order.
type GapDTO struct {
	LedgerEntryDTO
	Priority int `json:"priority"`
}

// RentSummaryDTO is the canonical rent snapshot for a tenant.
type RentSummaryDTO struct {
	TenantID      string           `json:"tenant_id"`
	AsOf          string           `json:"as_of"`
	CurrentWindow WindowDTO        `json:"current_window"`
	PaymentStatus string           `json:"payment_status"`
	PartialDue    string           `json:"partial_due_amount"`
	PendingDue    string           `json:"pending_due_amount"`
	RentDue       string           `json:"rent_due_amount"`
	IsRentPaid    bool             `json:"is_rent_paid"`
	IsRentPartial bool             `json:"is_rent_partial"`
	Entries       []LedgerEntryDTO `json:"entries"`
	UnpaidWindows []GapDTO         `json:"unpaid_windows"`
}

// PaymentDTO represents a recorded payment row.
type PaymentDTO struct {
	ID          string    `json:"id"`
	Window      WindowDTO `json:"window"`
	AmountPaid  string    `json:"amount_paid"`
	Status      string    `json:"status"`
	RecordedDue *string   `json:"recorded_due,omitempty"`
}

// RecordPaymentRequest is the request to record a payment against an
// exact cycle window.
type RecordPaymentRequest struct {
	CycleStart  string  `json:"cycle_start"`
	CycleEnd    string  `json:"cycle_end"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	RecordedDue *string `json:"recorded_due,omitempty"`
}

// TransferRequest is the request to move a tenant to a new bed/price.
type TransferRequest struct {
	BedID         string `json:"bed_id"`
	NewPrice      string `json:"new_price"`
	EffectiveFrom string `json:"effective_from"`
}

// CheckoutRequest is the request to check a tenant out.
type CheckoutRequest struct {
	CheckOut string `json:"check_out"`
}

// DashboardDTO is the property-level due rollup for crons and dashboards.
type DashboardDTO struct {
	PropertyID   string `json:"property_id"`
	AsOf         string `json:"as_of"`
	TenantCount  int    `json:"tenant_count"`
	PartialCount int    `json:"partial_count"`
	PendingCount int    `json:"pending_count"`
	TotalDue     string `json:"total_due"`
}

// RatePlanDTO represents a rate plan in API responses.
type RatePlanDTO struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Config    factory.PlanJSON `json:"config"`
	Version   int              `json:"version"`
	CreatedAt string           `json:"created_at,omitempty"`
}

// CreateRatePlanRequest is the request to create a rate plan.
type CreateRatePlanRequest struct {
	Config factory.PlanJSON `json:"config"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTenantDTO(t tenancy.Tenant) TenantDTO {
	dto := TenantDTO{
		ID:         t.ID,
		PropertyID: t.PropertyID,
		Name:       t.Name,
		Phone:      t.Phone,
		BedID:      t.BedID,
		CheckIn:    t.CheckIn.String(),
		Convention: string(t.Convention),
		Status:     string(t.Status),
	}
	if t.CheckOut != nil {
		s := t.CheckOut.String()
		dto.CheckOut = &s
	}
	return dto
}

func toWindowDTO(w engine.CycleWindow) WindowDTO {
	return WindowDTO{Start: w.Start.String(), End: w.End.String()}
}

func toLedgerEntryDTO(e engine.CycleLedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		Window:       toWindowDTO(e.Window),
		TotalPaid:    e.TotalPaid.String(),
		ExpectedDue:  e.ExpectedDue.String(),
		RemainingDue: e.RemainingDue.String(),
		Status:       string(e.Status),
		DueSource:    string(e.DueSource),
	}
}

func toGapDTOs(gaps []engine.Gap) []GapDTO {
	dtos := make([]GapDTO, len(gaps))
	for i, g := range gaps {
		dtos[i] = GapDTO{LedgerEntryDTO: toLedgerEntryDTO(g.CycleLedgerEntry), Priority: g.Priority}
	}
	return dtos
}

func toRentSummaryDTO(tenantID string, s *engine.RentSummary) RentSummaryDTO {
	entries := make([]LedgerEntryDTO, len(s.Entries))
	for i, e := range s.Entries {
		entries[i] = toLedgerEntryDTO(e)
	}
	return RentSummaryDTO{
		TenantID:      tenantID,
		AsOf:          s.AsOf.String(),
		CurrentWindow: toWindowDTO(s.CurrentWindow),
		PaymentStatus: string(s.PaymentStatus),
		PartialDue:    s.PartialDueAmount.String(),
		PendingDue:    s.PendingDueAmount.String(),
		RentDue:       s.RentDueAmount.String(),
		IsRentPaid:    s.IsRentPaid,
		IsRentPartial: s.IsRentPartial,
		Entries:       entries,
		UnpaidWindows: toGapDTOs(s.UnpaidWindows),
	}
}

func toPaymentDTO(p engine.PaymentRecord) PaymentDTO {
	dto := PaymentDTO{
		ID:         p.ID,
		Window:     toWindowDTO(p.Window),
		AmountPaid: p.AmountPaid.String(),
		Status:     string(p.Status),
	}
	if p.RecordedDue != nil {
		s := p.RecordedDue.String()
		dto.RecordedDue = &s
	}
	return dto
}
