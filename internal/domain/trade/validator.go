package trade

import (
	"fmt"
	"math"
	"strings"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentTolerance is the absolute slack allowed when deciding whether an
// order is paid in full.
var PaymentTolerance = decimal.NewFromFloat(0.01)

// Error codes returned by ValidateTransition
const (
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidLocation   = "INVALID_LOCATION"
	CodeOrderClosed       = "ORDER_CLOSED"
	CodeDeliveryFinalized = "DELIVERY_FINALIZED"
	CodeNoStatusChange    = "NO_STATUS_CHANGE"
	CodeRoleNotPermitted  = "ROLE_NOT_PERMITTED"
	CodeNotesRequired     = "NOTES_REQUIRED"
	CodeProofRequired     = "PROOF_REQUIRED"
	CodePaymentIncomplete = "PAYMENT_INCOMPLETE"
)

// Evidence is what the actor supplies alongside a status change
type Evidence struct {
	Notes string
	// ProofImage is the storage reference of the proof-of-delivery/receipt image
	ProofImage string
	// Signature is the storage reference of a captured signature
	Signature string
	Latitude  *float64
	Longitude *float64
}

// HasNotes reports whether non-blank notes were supplied
func (e Evidence) HasNotes() bool {
	return strings.TrimSpace(e.Notes) != ""
}

// HasProofImage reports whether a proof image was supplied
func (e Evidence) HasProofImage() bool {
	return e.ProofImage != ""
}

// TransitionCheck is the input of ValidateTransition
type TransitionCheck struct {
	Lifecycle  Lifecycle
	From       OrderStatus
	To         OrderStatus
	Evidence   Evidence
	PaidAmount decimal.Decimal
	GrandTotal decimal.Decimal
	Role       shared.Role
}

// IsPaidInFull reports whether paid + tolerance covers the grand total
func IsPaidInFull(paid, grandTotal decimal.Decimal) bool {
	return paid.Add(PaymentTolerance).GreaterThanOrEqual(grandTotal)
}

// ValidateTransition decides whether a status change may happen.
// It has no side effects; a nil result means the change is allowed.
func ValidateTransition(c TransitionCheck) error {
	l := c.Lifecycle

	if !l.Contains(c.To) {
		return shared.NewValidationError(CodeInvalidStatus,
			fmt.Sprintf("Status %q is not part of the %s order lifecycle", c.To, l.Type))
	}
	if err := validateLocation(c.Evidence); err != nil {
		return err
	}

	if c.From.IsClosing() {
		return shared.NewPolicyViolation(CodeOrderClosed,
			fmt.Sprintf("Order is %s; no further status changes are allowed", c.From))
	}
	if c.From == l.Delivered && !c.To.IsClosing() {
		return shared.NewPolicyViolation(CodeDeliveryFinalized,
			fmt.Sprintf("Order is already %s; only %s or %s are allowed", c.From, StatusCancelled, StatusReturned))
	}
	if c.From == c.To {
		return shared.NewPolicyViolation(CodeNoStatusChange,
			fmt.Sprintf("Order is already %s", c.From))
	}
	if c.Role == shared.RoleDelivery && l.IsPreDispatch(c.To) {
		return shared.NewPolicyViolation(CodeRoleNotPermitted,
			fmt.Sprintf("Delivery staff cannot set status %s", c.To))
	}

	requiresNotes := c.To == l.Delivered || c.To.IsClosing()
	if requiresNotes && !c.Evidence.HasNotes() {
		return shared.NewValidationError(CodeNotesRequired,
			fmt.Sprintf("Notes are required for status %s", c.To))
	}
	if c.To == l.Delivered {
		if !c.Evidence.HasProofImage() {
			return shared.NewValidationError(CodeProofRequired,
				fmt.Sprintf("A proof image is required for status %s", c.To))
		}
		if !IsPaidInFull(c.PaidAmount, c.GrandTotal) {
			return shared.NewPolicyViolation(CodePaymentIncomplete,
				fmt.Sprintf("Order must be fully paid before %s: paid %s of %s",
					c.To, c.PaidAmount.StringFixed(2), c.GrandTotal.StringFixed(2)))
		}
	}
	return nil
}

func validateLocation(e Evidence) error {
	if !coordinateWithin(e.Latitude, 90) {
		return shared.NewValidationError(CodeInvalidLocation, "Latitude must be between -90 and 90")
	}
	if !coordinateWithin(e.Longitude, 180) {
		return shared.NewValidationError(CodeInvalidLocation, "Longitude must be between -180 and 180")
	}
	return nil
}

// coordinateWithin reports whether an optional coordinate lies in
// [-limit, limit]. NaN never does.
func coordinateWithin(v *float64, limit float64) bool {
	if v == nil {
		return true
	}
	return !math.IsNaN(*v) && *v >= -limit && *v <= limit
}
