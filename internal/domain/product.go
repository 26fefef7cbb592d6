package domain

import "time"

// Rarity grades a cosmetic item.
type Rarity string

// Rarity values.
const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// ValidRarities returns every rarity, lowest first.
func ValidRarities() []Rarity {
	return []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}
}

// IsValidRarity checks whether r names a known rarity.
func IsValidRarity(r string) bool {
	for _, v := range ValidRarities() {
		if string(v) == r {
			return true
		}
	}
	return false
}

// Product is a catalog item. The cart treats it as immutable.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	NameAr        string    `json:"name_ar"`
	Description   string    `json:"description"`
	DescriptionAr string    `json:"description_ar"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"original_price,omitempty"`
	CategoryID    string    `json:"category_id"`
	Rarity        Rarity    `json:"rarity"`
	Image         string    `json:"image"`
	Gradient      string    `json:"gradient"`
	InStock       bool      `json:"in_stock"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NormalizeOriginalPrice drops an original price that is not positive.
func (p *Product) NormalizeOriginalPrice() {
	if p.OriginalPrice != nil && *p.OriginalPrice <= 0 {
		p.OriginalPrice = nil
	}
}

// HasDiscountDisplay reports whether the product should be shown with a
// struck-through original price.
func (p *Product) HasDiscountDisplay() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// Category groups products in the storefront.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NameAr    string    `json:"name_ar"`
	Icon      string    `json:"icon"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
