package tenancy

import (
	"errors"
	"fmt"

	"github.com/hostelops/rent-engine/engine"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTenantNotFound is returned when a referenced tenant doesn't exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantCheckedOut is returned for lifecycle operations on a tenant
	// who has already checked out.
	ErrTenantCheckedOut = errors.New("tenant already checked out")

	// ErrCheckoutBlocked is returned when the checkout gate rejects a
	// checkout or transfer because dues are outstanding.
	ErrCheckoutBlocked = errors.New("checkout blocked by outstanding dues")

	// ErrWindowMismatch is returned when a payment's period does not
	// exactly equal one of the tenant's cycle windows.
	ErrWindowMismatch = errors.New("payment period does not match a cycle window")

	// ErrInvalidTransferDate is returned when a transfer's effective date
	// falls before the open allocation interval's start.
	ErrInvalidTransferDate = errors.New("transfer date precedes current allocation")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// CheckoutBlockedError carries what is still owed, so the caller can show
// the tenant exactly what must be settled first.
type CheckoutBlockedError struct {
	TenantID      string
	RentDue       engine.Money
	UnpaidWindows []engine.Gap
	AdvanceUnmet  bool
}

func (e *CheckoutBlockedError) Error() string {
	if e.AdvanceUnmet {
		return fmt.Sprintf("checkout blocked for tenant %s: advance precondition unmet", e.TenantID)
	}
	return fmt.Sprintf("checkout blocked for tenant %s: %s outstanding across %d cycles",
		e.TenantID, e.RentDue, len(e.UnpaidWindows))
}

func (e *CheckoutBlockedError) Unwrap() error { return ErrCheckoutBlocked }

// WindowMismatchError names the rejected period and the candidate windows
// it failed to match.
type WindowMismatchError struct {
	TenantID string
	Given    engine.CycleWindow
}

func (e *WindowMismatchError) Error() string {
	return fmt.Sprintf("payment period %s for tenant %s does not equal any cycle window exactly",
		e.Given, e.TenantID)
}

func (e *WindowMismatchError) Unwrap() error { return ErrWindowMismatch }

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrWindowMismatch) ||
		errors.Is(err, ErrInvalidTransferDate) ||
		errors.Is(err, ErrTenantCheckedOut) ||
		errors.Is(err, ErrCheckoutBlocked) ||
		engine.IsClientError(err)
}
