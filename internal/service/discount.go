package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/models"
	"github.com/ciby9833/xspace-sub000/internal/store"
	"github.com/ciby9833/xspace-sub000/internal/util"

	"go.uber.org/zap"
)

const catalogCacheTTL = 5 * time.Minute

// DiscountService resolves role-template and calendar discounts against the
// catalogs. Resolution is advisory: an unknown or inapplicable rule degrades
// to "no discount", it never fails the caller.
type DiscountService struct {
	catalog CatalogStore
	cache   CatalogCache
	logger  *zap.Logger
}

// NewDiscountService creates a new discount resolver
func NewDiscountService(catalog CatalogStore, cache CatalogCache) *DiscountService {
	return &DiscountService{
		catalog: catalog,
		cache:   cache,
		logger:  util.GetLogger(),
	}
}

// DiscountProvenance records where a discount came from, or why none
// applied. It is snapshotted onto players so later catalog edits cannot
// retroactively change a booked price.
type DiscountProvenance struct {
	Applied       bool    `json:"applied"`
	Source        string  `json:"source"`
	TemplateID    *int64  `json:"template_id,omitempty"`
	RoleName      string  `json:"role_name,omitempty"`
	DiscountKind  string  `json:"discount_kind"`
	DiscountValue float64 `json:"discount_value"`
	Reason        string  `json:"reason,omitempty"`
}

// Provenance sources
const (
	ProvenanceRoleTemplate = "role_template"
	ProvenanceCalendar     = "calendar"
	ProvenanceNone         = "none"
)

// RoleDiscountResult is the outcome of resolving one role template against
// an amount.
type RoleDiscountResult struct {
	OriginalAmount int64              `json:"original_amount"`
	DiscountAmount int64              `json:"discount_amount"`
	FinalAmount    int64              `json:"final_amount"`
	Provenance     DiscountProvenance `json:"provenance"`
}

// CalendarApplication records one calendar entry applied to the running
// amount during stacking.
type CalendarApplication struct {
	EntryID        int64   `json:"entry_id"`
	CalendarKind   string  `json:"calendar_kind"`
	DiscountKind   string  `json:"discount_kind"`
	DiscountValue  float64 `json:"discount_value"`
	AmountBefore   int64   `json:"amount_before"`
	DiscountAmount int64   `json:"discount_amount"`
	AmountAfter    int64   `json:"amount_after"`
}

// CalendarDiscountResult is the outcome of stacking all applicable calendar
// entries for a date.
type CalendarDiscountResult struct {
	OriginalAmount int64                 `json:"original_amount"`
	DiscountAmount int64                 `json:"discount_amount"`
	FinalAmount    int64                 `json:"final_amount"`
	Applications   []CalendarApplication `json:"applications"`
}

func noDiscount(amount int64, reason string) RoleDiscountResult {
	return RoleDiscountResult{
		OriginalAmount: amount,
		FinalAmount:    amount,
		Provenance: DiscountProvenance{
			Source:       ProvenanceNone,
			DiscountKind: models.DiscountKindNone,
			Reason:       reason,
		},
	}
}

// ResolveRoleDiscount resolves a role template selection against an amount
// as of a date. Missing, inactive, out-of-scope or expired templates return
// the amount unchanged with an explicit no-discount provenance.
func (s *DiscountService) ResolveRoleDiscount(ctx context.Context, companyID, storeID int64, templateID *int64, originalAmount int64, asOf time.Time) (RoleDiscountResult, error) {
	ctx, span := util.StartSpan(ctx, "DiscountService.ResolveRoleDiscount")
	defer span.End()

	if templateID == nil {
		return noDiscount(originalAmount, "no template selected"), nil
	}

	tpl, err := s.getTemplate(ctx, *templateID)
	if errors.Is(err, store.ErrNotFound) {
		util.DiscountResolutionsTotal.WithLabelValues("role_skipped").Inc()
		s.logger.Warn("Role template not found, skipping discount",
			zap.Int64("template_id", *templateID))
		return noDiscount(originalAmount, "template not found"), nil
	}
	if err != nil {
		return RoleDiscountResult{}, fmt.Errorf("failed to load role template: %w", err)
	}

	switch {
	case tpl.CompanyID != companyID:
		return noDiscount(originalAmount, "template belongs to another company"), nil
	case !tpl.IsActive:
		return noDiscount(originalAmount, "template inactive"), nil
	case !tpl.AppliesToStore(storeID):
		return noDiscount(originalAmount, "template not applicable to store"), nil
	case !tpl.ValidAt(asOf):
		return noDiscount(originalAmount, "outside validity window"), nil
	}

	discount := discountFor(tpl.DiscountKind, tpl.DiscountValue, originalAmount)
	util.DiscountResolutionsTotal.WithLabelValues("role_applied").Inc()

	return RoleDiscountResult{
		OriginalAmount: originalAmount,
		DiscountAmount: discount,
		FinalAmount:    originalAmount - discount,
		Provenance: DiscountProvenance{
			Applied:       true,
			Source:        ProvenanceRoleTemplate,
			TemplateID:    &tpl.ID,
			RoleName:      tpl.RoleName,
			DiscountKind:  tpl.DiscountKind,
			DiscountValue: tpl.DiscountValue,
		},
	}, nil
}

// ResolveCalendarDiscount stacks all calendar entries applicable to
// (company, store, date) onto an amount. Entries apply sequentially to the
// already-discounted running amount, in calendar-kind priority order
// holiday, weekend, special, promotion; ties break by entry id.
func (s *DiscountService) ResolveCalendarDiscount(ctx context.Context, companyID, storeID int64, date time.Time, amount int64) (CalendarDiscountResult, error) {
	ctx, span := util.StartSpan(ctx, "DiscountService.ResolveCalendarDiscount")
	defer span.End()

	entries, err := s.getCalendarEntries(ctx, companyID, date)
	if err != nil {
		return CalendarDiscountResult{}, fmt.Errorf("failed to load calendar entries: %w", err)
	}

	applicable := make([]models.PricingCalendarEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsActive && e.AppliesToStore(storeID) {
			applicable = append(applicable, e)
		}
	}
	sort.Slice(applicable, func(i, j int) bool {
		pi := models.CalendarKindPriority(applicable[i].CalendarKind)
		pj := models.CalendarKindPriority(applicable[j].CalendarKind)
		if pi != pj {
			return pi < pj
		}
		return applicable[i].ID < applicable[j].ID
	})

	result := CalendarDiscountResult{
		OriginalAmount: amount,
		FinalAmount:    amount,
	}

	running := amount
	for _, e := range applicable {
		discount := discountFor(e.DiscountKind, e.DiscountValue, running)
		if discount == 0 {
			continue
		}
		result.Applications = append(result.Applications, CalendarApplication{
			EntryID:        e.ID,
			CalendarKind:   e.CalendarKind,
			DiscountKind:   e.DiscountKind,
			DiscountValue:  e.DiscountValue,
			AmountBefore:   running,
			DiscountAmount: discount,
			AmountAfter:    running - discount,
		})
		running -= discount
		util.DiscountResolutionsTotal.WithLabelValues("calendar").Inc()
	}

	result.FinalAmount = running
	result.DiscountAmount = amount - running
	return result, nil
}

// discountFor computes the discount amount for one rule applied to amount.
// The result is clamped to [0, amount] so a final amount can never go
// negative.
func discountFor(kind string, value float64, amount int64) int64 {
	if amount <= 0 {
		return 0
	}

	var discount int64
	switch kind {
	case models.DiscountKindPercentage:
		discount = int64(math.Round(float64(amount) * value / 100))
	case models.DiscountKindFixed:
		discount = int64(math.Round(value))
	case models.DiscountKindFree:
		discount = amount
	default:
		return 0
	}

	if discount < 0 {
		return 0
	}
	if discount > amount {
		return amount
	}
	return discount
}

func (s *DiscountService) getTemplate(ctx context.Context, id int64) (*models.RolePricingTemplate, error) {
	key := fmt.Sprintf("pricing:tpl:%d", id)

	if s.cache != nil {
		var cached models.RolePricingTemplate
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Template cache read failed, falling back to DB",
				zap.Int64("template_id", id), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	tpl, err := s.catalog.GetRoleTemplateByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, tpl, catalogCacheTTL); err != nil {
			s.logger.Warn("Template cache write failed", zap.Error(err))
		}
	}
	return tpl, nil
}

func (s *DiscountService) getCalendarEntries(ctx context.Context, companyID int64, date time.Time) ([]models.PricingCalendarEntry, error) {
	key := fmt.Sprintf("pricing:cal:%d:%s", companyID, date.Format("2006-01-02"))

	if s.cache != nil {
		var cached []models.PricingCalendarEntry
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Calendar cache read failed, falling back to DB",
				zap.Int64("company_id", companyID), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	entries, err := s.catalog.GetCalendarEntriesByDate(ctx, companyID, date)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, entries, catalogCacheTTL); err != nil {
			s.logger.Warn("Calendar cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}
