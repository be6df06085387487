package service

import (
	"context"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/models"
	"github.com/ciby9833/xspace-sub000/internal/util"

	"go.uber.org/zap"
)

// PricingService decomposes a booking into one payment item per seat.
// Per-seat granularity is what lets the ledger later cover any subset of
// seats with any combination of payers.
type PricingService struct {
	discounts *DiscountService
	logger    *zap.Logger
}

// NewPricingService creates a new pricing service
func NewPricingService(discounts *DiscountService) *PricingService {
	return &PricingService{
		discounts: discounts,
		logger:    util.GetLogger(),
	}
}

// RoleSelection assigns a role template to a number of seats
type RoleSelection struct {
	TemplateID  int64 `json:"template_id" binding:"required"`
	PlayerCount int   `json:"player_count" binding:"required,min=1"`
}

// PaymentItem is one seat's worth of the order: its price, its discount and
// where the discount came from.
type PaymentItem struct {
	SeatNumber           int                   `json:"seat_number"`
	RoleTemplateID       *int64                `json:"role_template_id,omitempty"`
	RoleName             string                `json:"role_name,omitempty"`
	DiscountKind         string                `json:"discount_kind"`
	DiscountValue        float64               `json:"discount_value"`
	OriginalAmount       int64                 `json:"original_amount"`
	DiscountAmount       int64                 `json:"discount_amount"`
	FinalAmount          int64                 `json:"final_amount"`
	RoleProvenance       DiscountProvenance    `json:"role_provenance"`
	CalendarApplications []CalendarApplication `json:"calendar_applications,omitempty"`
}

// Decompose partitions an order of unitPrice x playerCount into one
// PaymentItem per seat. Seats named by a role selection get that template's
// discount; remaining seats pay the (calendar-discounted) unit price.
// Calendar discounts for the booking date apply to every seat first; a
// seat's role discount then applies to the already-discounted running
// amount. Rounding happens per seat, so aggregates must be computed by
// summing items, never by re-deriving from an unrounded total.
func (s *PricingService) Decompose(ctx context.Context, companyID, storeID, unitPrice int64, playerCount int, bookingDate time.Time, selections []RoleSelection) ([]PaymentItem, error) {
	ctx, span := util.StartSpan(ctx, "PricingService.Decompose")
	defer span.End()

	if unitPrice < 0 {
		return nil, NewValidationError("unit price must not be negative")
	}
	if playerCount < 0 {
		return nil, NewValidationError("player count must not be negative")
	}

	selected := 0
	for _, sel := range selections {
		if sel.PlayerCount <= 0 {
			return nil, NewValidationError("role selection player count must be positive")
		}
		selected += sel.PlayerCount
	}
	if selected > playerCount {
		return nil, NewValidationError("role selections cover %d seats but the order has only %d players", selected, playerCount)
	}

	if unitPrice == 0 || playerCount == 0 {
		return []PaymentItem{}, nil
	}

	calendar, err := s.discounts.ResolveCalendarDiscount(ctx, companyID, storeID, bookingDate, unitPrice)
	if err != nil {
		return nil, err
	}
	seatBase := calendar.FinalAmount

	items := make([]PaymentItem, 0, playerCount)
	seat := 1

	for _, sel := range selections {
		templateID := sel.TemplateID
		role, err := s.discounts.ResolveRoleDiscount(ctx, companyID, storeID, &templateID, seatBase, bookingDate)
		if err != nil {
			return nil, err
		}

		for i := 0; i < sel.PlayerCount; i++ {
			item := PaymentItem{
				SeatNumber:           seat,
				OriginalAmount:       unitPrice,
				FinalAmount:          role.FinalAmount,
				DiscountAmount:       unitPrice - role.FinalAmount,
				DiscountKind:         role.Provenance.DiscountKind,
				DiscountValue:        role.Provenance.DiscountValue,
				RoleProvenance:       role.Provenance,
				CalendarApplications: calendar.Applications,
			}
			if role.Provenance.Applied {
				item.RoleTemplateID = role.Provenance.TemplateID
				item.RoleName = role.Provenance.RoleName
			}
			items = append(items, item)
			seat++
		}
	}

	for ; seat <= playerCount; seat++ {
		items = append(items, PaymentItem{
			SeatNumber:           seat,
			OriginalAmount:       unitPrice,
			FinalAmount:          seatBase,
			DiscountAmount:       unitPrice - seatBase,
			DiscountKind:         models.DiscountKindNone,
			RoleProvenance:       DiscountProvenance{Source: ProvenanceNone, DiscountKind: models.DiscountKindNone},
			CalendarApplications: calendar.Applications,
		})
	}

	s.logger.Debug("Decomposed order",
		zap.Int64("unit_price", unitPrice),
		zap.Int("player_count", playerCount),
		zap.Int("role_selections", len(selections)))

	return items, nil
}

// DecompositionTotals sums a decomposition the only safe way: over the
// already-rounded per-seat items.
func DecompositionTotals(items []PaymentItem) (original, discount, final int64) {
	for _, item := range items {
		original += item.OriginalAmount
		discount += item.DiscountAmount
		final += item.FinalAmount
	}
	return original, discount, final
}
