package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/internal/event"
	"github.com/moni-del/dragon-d/internal/repository"
	apperrors "github.com/moni-del/dragon-d/pkg/errors"
	"github.com/moni-del/dragon-d/pkg/pagination"
)

// DiscountService manages the discount registry for admins.
type DiscountService struct {
	repo     repository.DiscountRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewDiscountService creates a new discount service.
func NewDiscountService(repo repository.DiscountRepository, producer *event.Producer, logger *slog.Logger) *DiscountService {
	return &DiscountService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// CreateDiscountInput holds the parameters for creating a discount code.
// When KeyByCode is set the code itself becomes the document id; otherwise
// a UUID is generated.
type CreateDiscountInput struct {
	Code               string
	KeyByCode          bool
	Description        string
	Type               string
	Value              float64
	MinOrderValue      float64
	MaxUses            int
	IsActive           bool
	ExpiresAt          *time.Time
	ApplicableProducts []string
}

// UpdateDiscountInput holds the parameters for a partial update. The code
// text and document id never change.
type UpdateDiscountInput struct {
	Description        *string
	Type               *string
	Value              *float64
	MinOrderValue      *float64
	MaxUses            *int
	IsActive           *bool
	ExpiresAt          *time.Time
	ClearExpiry        bool
	ApplicableProducts []string
}

// CreateDiscount adds a code to the registry.
func (s *DiscountService) CreateDiscount(ctx context.Context, input *CreateDiscountInput) (*domain.DiscountCode, error) {
	code := domain.NormalizeCode(input.Code)
	if code == "" {
		return nil, apperrors.InvalidInput("discount code is required")
	}
	if err := validateDiscountValues(input.Type, input.Value, input.MinOrderValue, input.MaxUses); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if input.KeyByCode {
		id = code
	}

	now := time.Now().UTC()
	dc := &domain.DiscountCode{
		ID:                 id,
		Code:               code,
		Description:        strings.TrimSpace(input.Description),
		Type:               domain.DiscountType(input.Type),
		Value:              input.Value,
		MinOrderValue:      input.MinOrderValue,
		MaxUses:            input.MaxUses,
		IsActive:           input.IsActive,
		ExpiresAt:          input.ExpiresAt,
		ApplicableProducts: input.ApplicableProducts,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if dc.ApplicableProducts == nil {
		dc.ApplicableProducts = []string{}
	}

	if err := s.repo.Create(ctx, dc); err != nil {
		return nil, fmt.Errorf("create discount code: %w", err)
	}

	s.publish(ctx, event.ActionCreated, dc)
	s.logger.InfoContext(ctx, "discount code created",
		slog.String("discount_id", dc.ID),
		slog.String("code", dc.Code),
	)
	return dc, nil
}

// GetDiscount returns a code by document id.
func (s *DiscountService) GetDiscount(ctx context.Context, id string) (*domain.DiscountCode, error) {
	dc, err := s.repo.GetByKey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get discount code: %w", err)
	}
	return dc, nil
}

// ListDiscounts returns a page of codes, newest first.
func (s *DiscountService) ListDiscounts(ctx context.Context, filter repository.DiscountFilter) (pagination.Result[domain.DiscountCode], error) {
	params := pagination.New(filter.Page, filter.PerPage)
	filter.Page, filter.PerPage = params.Page, params.PerPage

	codes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return pagination.Result[domain.DiscountCode]{}, fmt.Errorf("list discount codes: %w", err)
	}
	return pagination.NewResult(codes, total, params), nil
}

// UpdateDiscount applies a partial update.
func (s *DiscountService) UpdateDiscount(ctx context.Context, id string, input *UpdateDiscountInput) (*domain.DiscountCode, error) {
	dc, err := s.repo.GetByKey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get discount code for update: %w", err)
	}

	if input.Description != nil {
		dc.Description = strings.TrimSpace(*input.Description)
	}
	if input.Type != nil {
		dc.Type = domain.DiscountType(*input.Type)
	}
	if input.Value != nil {
		dc.Value = *input.Value
	}
	if input.MinOrderValue != nil {
		dc.MinOrderValue = *input.MinOrderValue
	}
	if input.MaxUses != nil {
		dc.MaxUses = *input.MaxUses
	}
	if input.IsActive != nil {
		dc.IsActive = *input.IsActive
	}
	switch {
	case input.ClearExpiry:
		dc.ExpiresAt = nil
	case input.ExpiresAt != nil:
		dc.ExpiresAt = input.ExpiresAt
	}
	if input.ApplicableProducts != nil {
		dc.ApplicableProducts = input.ApplicableProducts
	}

	if err := validateDiscountValues(string(dc.Type), dc.Value, dc.MinOrderValue, dc.MaxUses); err != nil {
		return nil, err
	}
	dc.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, dc); err != nil {
		return nil, fmt.Errorf("update discount code: %w", err)
	}

	s.publish(ctx, event.ActionUpdated, dc)
	s.logger.InfoContext(ctx, "discount code updated",
		slog.String("discount_id", dc.ID),
		slog.String("code", dc.Code),
	)
	return dc, nil
}

// ToggleActive flips a code's active flag.
func (s *DiscountService) ToggleActive(ctx context.Context, id string) (*domain.DiscountCode, error) {
	dc, err := s.repo.GetByKey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get discount code for toggle: %w", err)
	}
	active := !dc.IsActive
	return s.UpdateDiscount(ctx, id, &UpdateDiscountInput{IsActive: &active})
}

// DeleteDiscount removes a code from the registry.
func (s *DiscountService) DeleteDiscount(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete discount code: %w", err)
	}

	s.publish(ctx, event.ActionDeleted, &domain.DiscountCode{ID: id})
	s.logger.InfoContext(ctx, "discount code deleted", slog.String("discount_id", id))
	return nil
}

func (s *DiscountService) publish(ctx context.Context, action event.Action, dc *domain.DiscountCode) {
	if err := s.producer.PublishDiscount(ctx, action, dc); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish discount event",
			slog.String("action", string(action)),
			slog.String("discount_id", dc.ID),
			slog.String("error", err.Error()),
		)
	}
}

func validateDiscountValues(typ string, value, minOrder float64, maxUses int) error {
	if !domain.IsValidDiscountType(typ) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid discount type %q, must be one of: percentage, fixed", typ))
	}
	if value < 0 {
		return apperrors.InvalidInput("discount value must not be negative")
	}
	if domain.DiscountType(typ) == domain.DiscountTypePercentage && value > 100 {
		return apperrors.InvalidInput("percentage discount must not exceed 100")
	}
	if minOrder < 0 {
		return apperrors.InvalidInput("min order value must not be negative")
	}
	if maxUses < 0 {
		return apperrors.InvalidInput("max uses must not be negative")
	}
	return nil
}
