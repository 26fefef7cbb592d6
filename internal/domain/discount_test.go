package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validCode() *DiscountCode {
	expires := now.Add(24 * time.Hour)
	return &DiscountCode{
		ID:        "SUMMER",
		Code:      "SUMMER",
		Type:      DiscountTypePercentage,
		Value:     20,
		MaxUses:   10,
		UsedCount: 3,
		IsActive:  true,
		ExpiresAt: &expires,
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "DT10", NormalizeCode("  dt10 \t"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestDiscountCode_Check(t *testing.T) {
	past := now.Add(-time.Minute)
	tests := []struct {
		name   string
		mutate func(d *DiscountCode)
		want   DiscountErrorKind
	}{
		{"valid", func(d *DiscountCode) {}, ""},
		{"no expiry", func(d *DiscountCode) { d.ExpiresAt = nil }, ""},
		{"unlimited uses", func(d *DiscountCode) { d.MaxUses = 0; d.UsedCount = 1000 }, ""},
		{"inactive", func(d *DiscountCode) { d.IsActive = false }, KindInactiveCode},
		{"expired", func(d *DiscountCode) { d.ExpiresAt = &past }, KindExpiredCode},
		{"exhausted", func(d *DiscountCode) { d.UsedCount = 10 }, KindExhaustedCode},
		{"below minimum", func(d *DiscountCode) { d.MinOrderValue = 100 }, KindBelowMinimumOrder},
		{"inactive wins over expired", func(d *DiscountCode) { d.IsActive = false; d.ExpiresAt = &past }, KindInactiveCode},
		{"expired wins over exhausted", func(d *DiscountCode) { d.ExpiresAt = &past; d.UsedCount = 10 }, KindExpiredCode},
		{"exhausted wins over minimum", func(d *DiscountCode) { d.UsedCount = 10; d.MinOrderValue = 100 }, KindExhaustedCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validCode()
			tt.mutate(d)
			err := d.Check(now, 50)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			kind, ok := DiscountKind(err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestDiscountCode_CheckCarriesMinimum(t *testing.T) {
	d := validCode()
	d.MinOrderValue = 100

	var de *DiscountError
	assert.True(t, errors.As(d.Check(now, 50), &de))
	assert.Equal(t, 100.0, de.MinOrderValue)
	assert.Contains(t, de.Error(), "100.00")

	assert.NoError(t, d.Check(now, 100))
}

func TestLegacyPercent(t *testing.T) {
	for code, want := range map[string]float64{"DT10": 10, "DT20": 20, "DT50": 50, "WELCOME": 15} {
		got, ok := LegacyPercent(code)
		assert.True(t, ok, code)
		assert.Equal(t, want, got, code)
	}
	_, ok := LegacyPercent("dt10")
	assert.False(t, ok)
}

func TestFailed(t *testing.T) {
	r := Failed(fmt.Errorf("apply: %w", &DiscountError{Kind: KindBelowMinimumOrder, MinOrderValue: 75}))
	assert.False(t, r.Success)
	assert.Equal(t, KindBelowMinimumOrder, r.Kind)
	assert.Equal(t, 75.0, r.MinOrderValue)

	r = Failed(errors.New("connection refused"))
	assert.Equal(t, KindRegistryUnavailable, r.Kind)
}

func TestIsValidDiscountType(t *testing.T) {
	assert.True(t, IsValidDiscountType("percentage"))
	assert.True(t, IsValidDiscountType("fixed"))
	assert.False(t, IsValidDiscountType("bogo"))
}
