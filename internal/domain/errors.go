package domain

import (
	"errors"
	"fmt"
)

// DiscountErrorKind classifies why a discount code could not be applied.
type DiscountErrorKind string

// Discount failure kinds.
const (
	KindEmptyCode           DiscountErrorKind = "EmptyCode"
	KindAlreadyApplied      DiscountErrorKind = "AlreadyApplied"
	KindInactiveCode        DiscountErrorKind = "InactiveCode"
	KindExpiredCode         DiscountErrorKind = "ExpiredCode"
	KindExhaustedCode       DiscountErrorKind = "ExhaustedCode"
	KindBelowMinimumOrder   DiscountErrorKind = "BelowMinimumOrder"
	KindInvalidCode         DiscountErrorKind = "InvalidCode"
	KindRegistryUnavailable DiscountErrorKind = "RegistryUnavailable"
	KindApplyInProgress     DiscountErrorKind = "ApplyInProgress"
)

// DiscountError is an expected, recoverable discount failure.
type DiscountError struct {
	Kind DiscountErrorKind
	// MinOrderValue is set for KindBelowMinimumOrder.
	MinOrderValue float64
}

// NewDiscountError returns a DiscountError of the given kind.
func NewDiscountError(kind DiscountErrorKind) *DiscountError {
	return &DiscountError{Kind: kind}
}

func (e *DiscountError) Error() string {
	if e.Kind == KindBelowMinimumOrder {
		return fmt.Sprintf("discount: %s (minimum %.2f)", e.Kind, e.MinOrderValue)
	}
	return fmt.Sprintf("discount: %s", e.Kind)
}

// DiscountKind extracts the kind from err when it wraps a DiscountError.
func DiscountKind(err error) (DiscountErrorKind, bool) {
	var de *DiscountError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// ApplyResult is the outcome of a discount application. Failures are
// results, not errors.
type ApplyResult struct {
	Success       bool              `json:"success"`
	Kind          DiscountErrorKind `json:"kind,omitempty"`
	MinOrderValue float64           `json:"min_order_value,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// Failed builds a failed ApplyResult from err. Errors that are not
// DiscountErrors become KindRegistryUnavailable.
func Failed(err error) ApplyResult {
	var de *DiscountError
	if errors.As(err, &de) {
		return ApplyResult{Kind: de.Kind, MinOrderValue: de.MinOrderValue}
	}
	return ApplyResult{Kind: KindRegistryUnavailable}
}
