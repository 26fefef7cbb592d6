package domain

import (
	"strings"
	"time"
)

// DiscountType selects how a code's value is interpreted.
type DiscountType string

// Discount types.
const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// IsValidDiscountType checks whether t names a known discount type.
func IsValidDiscountType(t string) bool {
	return t == string(DiscountTypePercentage) || t == string(DiscountTypeFixed)
}

// DiscountCode is a registry entry. ID is the document identity, which is
// either the code itself or a generated id; Code always holds the canonical
// upper-case text.
type DiscountCode struct {
	ID                 string       `json:"id"`
	Code               string       `json:"code"`
	Description        string       `json:"description"`
	Type               DiscountType `json:"type"`
	Value              float64      `json:"value"`
	MinOrderValue      float64      `json:"min_order_value"`
	MaxUses            int          `json:"max_uses"`
	UsedCount          int          `json:"used_count"`
	IsActive           bool         `json:"is_active"`
	ExpiresAt          *time.Time   `json:"expires_at,omitempty"`
	ApplicableProducts []string     `json:"applicable_products"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// NormalizeCode trims and upper-cases code text. Every comparison and
// lookup goes through it.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Expired reports whether the code's expiry lies before now.
func (d *DiscountCode) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// Exhausted reports whether a capped code has no uses left.
func (d *DiscountCode) Exhausted() bool {
	return d.MaxUses > 0 && d.UsedCount >= d.MaxUses
}

// Check validates the code against a cart subtotal. Checks run in a fixed
// order: active, expiry, usage cap, minimum order.
func (d *DiscountCode) Check(now time.Time, subtotal float64) error {
	switch {
	case !d.IsActive:
		return NewDiscountError(KindInactiveCode)
	case d.Expired(now):
		return NewDiscountError(KindExpiredCode)
	case d.Exhausted():
		return NewDiscountError(KindExhaustedCode)
	case d.MinOrderValue > 0 && subtotal < d.MinOrderValue:
		return &DiscountError{Kind: KindBelowMinimumOrder, MinOrderValue: d.MinOrderValue}
	}
	return nil
}

// legacyCodes are percentage codes honored when the registry has no match.
var legacyCodes = map[string]float64{
	"DT10":    10,
	"DT20":    20,
	"DT50":    50,
	"WELCOME": 15,
}

// LegacyPercent returns the built-in percentage for a normalized code.
func LegacyPercent(code string) (float64, bool) {
	pct, ok := legacyCodes[code]
	return pct, ok
}
