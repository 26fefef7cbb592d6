package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moni-del/dragon-d/internal/domain"
	pkgkafka "github.com/moni-del/dragon-d/pkg/kafka"
)

// Kafka topics for store domain events.
var (
	TopicDiscountApplied   = pkgkafka.Topic("cart", "discount_applied")
	TopicCartCleared       = pkgkafka.Topic("cart", "cleared")
	TopicPurchaseFinalized = pkgkafka.Topic("purchase", "finalized")
	TopicProductCreated    = pkgkafka.Topic("product", "created")
	TopicProductUpdated    = pkgkafka.Topic("product", "updated")
	TopicProductDeleted    = pkgkafka.Topic("product", "deleted")
	TopicDiscountCreated   = pkgkafka.Topic("discount", "created")
	TopicDiscountUpdated   = pkgkafka.Topic("discount", "updated")
	TopicDiscountDeleted   = pkgkafka.Topic("discount", "deleted")
)

// Aggregate types.
const (
	AggregateCart     = "cart_session"
	AggregateProduct  = "product"
	AggregateDiscount = "discount_code"
)

// Source identifies events originating from this server.
const Source = "dt-store"

// Action is a catalog or registry write.
type Action string

// Write actions.
const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// DiscountAppliedData is the payload for cart.discount_applied.
type DiscountAppliedData struct {
	SessionID       string  `json:"session_id"`
	UserID          string  `json:"user_id,omitempty"`
	Code            string  `json:"code"`
	Legacy          bool    `json:"legacy"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	Subtotal        float64 `json:"subtotal"`
}

// CartClearedData is the payload for cart.cleared.
type CartClearedData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
}

// PurchaseLine is one line of a finalized purchase.
type PurchaseLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// PurchaseFinalizedData is the payload for purchase.finalized.
type PurchaseFinalizedData struct {
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id,omitempty"`
	Lines        []PurchaseLine `json:"lines"`
	DiscountCode string         `json:"discount_code,omitempty"`
	Totals       domain.Totals  `json:"totals"`
}

// DeletedData is the payload for *.deleted events.
type DeletedData struct {
	ID string `json:"id"`
}

// Producer publishes store domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(ctx, topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishDiscountApplied publishes a cart.discount_applied event.
func (p *Producer) PublishDiscountApplied(ctx context.Context, s *domain.CartSession, legacy bool) error {
	return p.publish(ctx, TopicDiscountApplied, s.ID, AggregateCart, DiscountAppliedData{
		SessionID:       s.ID,
		UserID:          s.UserID,
		Code:            s.DiscountCode,
		Legacy:          legacy,
		DiscountPercent: s.DiscountPercent,
		DiscountAmount:  s.DiscountAmount,
		Subtotal:        s.Subtotal(),
	})
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, s *domain.CartSession) error {
	return p.publish(ctx, TopicCartCleared, s.ID, AggregateCart, CartClearedData{
		SessionID: s.ID,
		UserID:    s.UserID,
	})
}

// PublishPurchaseFinalized publishes a purchase.finalized event carrying the
// cart as it was just before the reset.
func (p *Producer) PublishPurchaseFinalized(ctx context.Context, before *domain.CartSession) error {
	lines := make([]PurchaseLine, len(before.Lines))
	for i, l := range before.Lines {
		lines[i] = PurchaseLine{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
		}
	}
	return p.publish(ctx, TopicPurchaseFinalized, before.ID, AggregateCart, PurchaseFinalizedData{
		SessionID:    before.ID,
		UserID:       before.UserID,
		Lines:        lines,
		DiscountCode: before.DiscountCode,
		Totals:       before.Totals(),
	})
}

// PublishProduct publishes product.created, product.updated or
// product.deleted.
func (p *Producer) PublishProduct(ctx context.Context, action Action, product *domain.Product) error {
	switch action {
	case ActionCreated:
		return p.publish(ctx, TopicProductCreated, product.ID, AggregateProduct, product)
	case ActionUpdated:
		return p.publish(ctx, TopicProductUpdated, product.ID, AggregateProduct, product)
	case ActionDeleted:
		return p.publish(ctx, TopicProductDeleted, product.ID, AggregateProduct, DeletedData{ID: product.ID})
	}
	return fmt.Errorf("unknown product action %q", action)
}

// PublishDiscount publishes discount.created, discount.updated or
// discount.deleted.
func (p *Producer) PublishDiscount(ctx context.Context, action Action, code *domain.DiscountCode) error {
	switch action {
	case ActionCreated:
		return p.publish(ctx, TopicDiscountCreated, code.ID, AggregateDiscount, code)
	case ActionUpdated:
		return p.publish(ctx, TopicDiscountUpdated, code.ID, AggregateDiscount, code)
	case ActionDeleted:
		return p.publish(ctx, TopicDiscountDeleted, code.ID, AggregateDiscount, DeletedData{ID: code.ID})
	}
	return fmt.Errorf("unknown discount action %q", action)
}
