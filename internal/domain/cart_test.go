package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price float64) Product {
	return Product{ID: id, Name: "item " + id, Price: price, Rarity: RarityRare}
}

func newSession() *CartSession {
	return NewCartSession("sess-1", "user-1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestCartSession_AddIncrements(t *testing.T) {
	s := newSession()
	p := product("1", 29.99)
	for i := 0; i < 5; i++ {
		s.Add(p)
	}

	require.Len(t, s.Lines, 1)
	assert.Equal(t, 5, s.Lines[0].Quantity)
	totals := s.Totals()
	assert.Equal(t, 5, totals.TotalItems)
	assert.InDelta(t, 149.95, totals.Subtotal, 1e-9)
	assert.Equal(t, CartStateHasItems, s.State())
}

func TestCartSession_SetQuantityZeroEqualsRemove(t *testing.T) {
	a, b := newSession(), newSession()
	for _, s := range []*CartSession{a, b} {
		s.Add(product("1", 10))
		s.Add(product("2", 5))
	}

	a.SetQuantity("1", 0)
	b.Remove("1")

	assert.Equal(t, a.Lines, b.Lines)
	assert.Equal(t, a.Totals(), b.Totals())
}

func TestCartSession_SetQuantityOverwrites(t *testing.T) {
	s := newSession()
	s.Add(product("1", 10))
	s.Add(product("1", 10))

	s.SetQuantity("1", 7)
	line, ok := s.Line("1")
	require.True(t, ok)
	assert.Equal(t, 7, line.Quantity)

	s.SetQuantity("missing", 3)
	_, ok = s.Line("missing")
	assert.False(t, ok)

	s.SetQuantity("1", -2)
	assert.True(t, s.IsEmpty())
	assert.Equal(t, CartStateEmpty, s.State())
}

func TestCartSession_RemoveUnknownIsNoop(t *testing.T) {
	s := newSession()
	s.Add(product("1", 10))
	s.Remove("nope")
	assert.Len(t, s.Lines, 1)
}

func TestCartSession_TotalPriceNeverNegative(t *testing.T) {
	s := newSession()
	s.Add(product("1", 4.5))
	s.ApplyFixed("BIG", 100)

	totals := s.Totals()
	assert.Equal(t, 100.0, totals.DiscountAmount)
	assert.Equal(t, 0.0, totals.TotalPrice)
}

func TestCartSession_FixedScenario(t *testing.T) {
	s := newSession()
	s.Add(product("1", 29.99))
	s.Add(product("1", 29.99))
	assert.InDelta(t, 59.98, s.Subtotal(), 1e-9)

	s.ApplyFixed("TEN", 10)
	totals := s.Totals()
	assert.Equal(t, 10.0, totals.DiscountAmount)
	assert.InDelta(t, 49.98, totals.TotalPrice, 1e-9)
	assert.Zero(t, s.DiscountPercent)
}

func TestCartSession_PercentScenario(t *testing.T) {
	s := newSession()
	s.Add(product("1", 25))
	s.Add(product("1", 25))

	s.ApplyPercent("SAVE20", 20)
	totals := s.Totals()
	assert.InDelta(t, 10, totals.DiscountAmount, 1e-9)
	assert.InDelta(t, 40, totals.TotalPrice, 1e-9)
	assert.Equal(t, 20.0, s.DiscountPercent)
	assert.True(t, s.HasCode("SAVE20"))
}

func TestCartSession_PercentFollowsSubtotal(t *testing.T) {
	s := newSession()
	s.Add(product("1", 50))
	s.ApplyPercent("DT10", 10)
	assert.InDelta(t, 5, s.DiscountAmount, 1e-9)

	s.Add(product("2", 50))
	assert.InDelta(t, 10, s.DiscountAmount, 1e-9)

	s.SetQuantity("2", 3)
	assert.InDelta(t, 20, s.DiscountAmount, 1e-9)

	s.Remove("1")
	assert.InDelta(t, 15, s.DiscountAmount, 1e-9)
}

func TestCartSession_FixedDoesNotFollowSubtotal(t *testing.T) {
	s := newSession()
	s.Add(product("1", 50))
	s.ApplyFixed("FIVE", 5)
	s.Add(product("2", 50))
	assert.Equal(t, 5.0, s.DiscountAmount)
}

func TestCartSession_SwitchingCodesReplaces(t *testing.T) {
	s := newSession()
	s.Add(product("1", 100))
	s.ApplyPercent("DT10", 10)
	s.ApplyFixed("FIVE", 5)

	assert.Equal(t, "FIVE", s.DiscountCode)
	assert.Zero(t, s.DiscountPercent)
	assert.Equal(t, 5.0, s.DiscountAmount)
	assert.False(t, s.HasCode("DT10"))
}

func TestCartSession_ClearResetsEverything(t *testing.T) {
	s := newSession()
	s.Add(product("1", 10))
	s.Add(product("2", 20))
	s.ApplyPercent("DT20", 20)

	s.Clear()

	assert.Empty(t, s.Lines)
	assert.NotNil(t, s.Lines)
	assert.Equal(t, Totals{}, s.Totals())
	assert.Empty(t, s.DiscountCode)
	assert.False(t, s.DiscountApplied)
	assert.Zero(t, s.DiscountPercent)
}

func TestCartSession_CloneIsIndependent(t *testing.T) {
	s := newSession()
	s.Add(product("1", 10))

	c := s.Clone()
	c.Add(product("1", 10))
	c.Add(product("2", 10))

	line, _ := s.Line("1")
	assert.Equal(t, 1, line.Quantity)
	assert.Len(t, s.Lines, 1)
}
