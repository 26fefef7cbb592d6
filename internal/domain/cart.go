package domain

import "time"

// CartState is the coarse lifecycle state of a session.
type CartState string

// Cart states.
const (
	CartStateEmpty    CartState = "EMPTY"
	CartStateHasItems CartState = "HAS_ITEMS"
)

// CartLine is one distinct product in the cart. Quantity is always >= 1.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Totals are derived from a session's lines and discount; they are never
// stored.
type Totals struct {
	TotalItems     int     `json:"total_items"`
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	TotalPrice     float64 `json:"total_price"`
}

// CartSession is one shopper's cart. At most one discount code is applied
// at a time; DiscountPercent is zero for fixed codes.
type CartSession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id,omitempty"`
	Lines           []CartLine `json:"lines"`
	DiscountCode    string     `json:"discount_code"`
	DiscountPercent float64    `json:"discount_percent"`
	DiscountAmount  float64    `json:"discount_amount"`
	DiscountApplied bool       `json:"discount_applied"`
	Version         int        `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewCartSession returns an empty session.
func NewCartSession(id, userID string, now time.Time) *CartSession {
	return &CartSession{
		ID:        id,
		UserID:    userID,
		Lines:     []CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *CartSession) lineIndex(productID string) int {
	for i := range s.Lines {
		if s.Lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Line returns the line for productID.
func (s *CartSession) Line(productID string) (CartLine, bool) {
	if i := s.lineIndex(productID); i >= 0 {
		return s.Lines[i], true
	}
	return CartLine{}, false
}

// Add increments the product's line by one, creating it if needed.
func (s *CartSession) Add(p Product) {
	if i := s.lineIndex(p.ID); i >= 0 {
		s.Lines[i].Quantity++
	} else {
		s.Lines = append(s.Lines, CartLine{Product: p, Quantity: 1})
	}
	s.rederive()
}

// Remove deletes the product's line. Unknown ids are ignored.
func (s *CartSession) Remove(productID string) {
	i := s.lineIndex(productID)
	if i < 0 {
		return
	}
	s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
	s.rederive()
}

// SetQuantity overwrites a line's quantity; qty <= 0 removes the line.
// Unknown ids are ignored.
func (s *CartSession) SetQuantity(productID string, qty int) {
	if qty <= 0 {
		s.Remove(productID)
		return
	}
	if i := s.lineIndex(productID); i >= 0 {
		s.Lines[i].Quantity = qty
		s.rederive()
	}
}

// Clear empties the cart and resets discount state.
func (s *CartSession) Clear() {
	s.Lines = []CartLine{}
	s.DiscountCode = ""
	s.DiscountPercent = 0
	s.DiscountAmount = 0
	s.DiscountApplied = false
}

// Subtotal is the sum of price times quantity over all lines.
func (s *CartSession) Subtotal() float64 {
	var sum float64
	for _, l := range s.Lines {
		sum += l.Product.Price * float64(l.Quantity)
	}
	return sum
}

// Totals computes the derived cart totals. TotalPrice is never negative.
func (s *CartSession) Totals() Totals {
	t := Totals{Subtotal: s.Subtotal(), DiscountAmount: s.DiscountAmount}
	for _, l := range s.Lines {
		t.TotalItems += l.Quantity
	}
	t.TotalPrice = max(0, t.Subtotal-t.DiscountAmount)
	return t
}

// ApplyPercent applies a percentage code against the current subtotal,
// replacing any previously applied code.
func (s *CartSession) ApplyPercent(code string, pct float64) {
	s.DiscountCode = code
	s.DiscountPercent = pct
	s.DiscountAmount = s.Subtotal() * pct / 100
	s.DiscountApplied = true
}

// ApplyFixed applies a fixed-amount code, replacing any previously applied
// code.
func (s *CartSession) ApplyFixed(code string, amount float64) {
	s.DiscountCode = code
	s.DiscountPercent = 0
	s.DiscountAmount = amount
	s.DiscountApplied = true
}

// HasCode reports whether code (normalized) is the one currently applied.
func (s *CartSession) HasCode(code string) bool {
	return s.DiscountApplied && s.DiscountCode == code
}

// IsEmpty reports whether the cart has no lines.
func (s *CartSession) IsEmpty() bool {
	return len(s.Lines) == 0
}

// State returns the lifecycle state.
func (s *CartSession) State() CartState {
	if s.IsEmpty() {
		return CartStateEmpty
	}
	return CartStateHasItems
}

// Clone returns a deep copy.
func (s *CartSession) Clone() *CartSession {
	c := *s
	c.Lines = make([]CartLine, len(s.Lines))
	copy(c.Lines, s.Lines)
	return &c
}

// rederive keeps a percentage discount proportional to the subtotal after a
// line change. Fixed amounts stay as applied.
func (s *CartSession) rederive() {
	if s.DiscountApplied && s.DiscountPercent > 0 {
		s.DiscountAmount = s.Subtotal() * s.DiscountPercent / 100
	}
}
