package domain

import "time"

// Point is the screen position a flying item starts from.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FlyingItem is the transient add-to-cart animation hint. It is never part
// of cart state.
type FlyingItem struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ProductID string    `json:"product_id"`
	Image     string    `json:"image,omitempty"`
	Start     Point     `json:"start"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
