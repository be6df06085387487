package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/models"
	"github.com/ciby9833/xspace-sub000/internal/store"
	"github.com/ciby9833/xspace-sub000/internal/util"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// CatalogService administers the discount catalogs. Catalog rows are the
// leaf data of pricing; writes invalidate the resolver's cache so previews
// pick up edits promptly.
type CatalogService struct {
	store  *store.Store
	cache  CatalogCache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(s *store.Store, cache CatalogCache) *CatalogService {
	return &CatalogService{
		store:  s,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// RoleTemplateRequest carries the caller-editable fields of a role pricing
// template. Unknown fields are rejected at the binding layer rather than
// silently merged.
type RoleTemplateRequest struct {
	StoreIDs      []int64    `json:"store_ids,omitempty"`
	RoleName      string     `json:"role_name" binding:"required"`
	DiscountKind  string     `json:"discount_kind" binding:"required,oneof=percentage fixed free"`
	DiscountValue float64    `json:"discount_value"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidTo       *time.Time `json:"valid_to,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
}

// CalendarEntryRequest carries the caller-editable fields of a pricing
// calendar entry.
type CalendarEntryRequest struct {
	StoreIDs      []int64   `json:"store_ids,omitempty"`
	CalendarDate  time.Time `json:"calendar_date" binding:"required" time_format:"2006-01-02"`
	CalendarKind  string    `json:"calendar_kind" binding:"required,oneof=holiday weekend special promotion"`
	DiscountKind  string    `json:"discount_kind" binding:"required,oneof=percentage fixed"`
	DiscountValue float64   `json:"discount_value"`
	IsActive      *bool     `json:"is_active,omitempty"`
}

func validateDiscountTerms(kind string, value float64) error {
	switch kind {
	case models.DiscountKindPercentage:
		if value < 0 || value > 100 {
			return NewValidationError("percentage discount must be between 0 and 100, got %v", value)
		}
	case models.DiscountKindFixed:
		if value < 0 {
			return NewValidationError("fixed discount must not be negative, got %v", value)
		}
	case models.DiscountKindFree:
		// value ignored
	default:
		return NewValidationError("unknown discount kind %q", kind)
	}
	return nil
}

// CreateRoleTemplate creates a role pricing template for a company
func (s *CatalogService) CreateRoleTemplate(ctx context.Context, companyID int64, req *RoleTemplateRequest) (*models.RolePricingTemplate, error) {
	if err := validateDiscountTerms(req.DiscountKind, req.DiscountValue); err != nil {
		return nil, err
	}
	if req.ValidFrom != nil && req.ValidTo != nil && req.ValidTo.Before(*req.ValidFrom) {
		return nil, NewValidationError("valid_to precedes valid_from")
	}

	tpl := &models.RolePricingTemplate{
		CompanyID:     companyID,
		StoreIDs:      req.StoreIDs,
		RoleName:      req.RoleName,
		DiscountKind:  req.DiscountKind,
		DiscountValue: req.DiscountValue,
		ValidFrom:     req.ValidFrom,
		ValidTo:       req.ValidTo,
		IsActive:      true,
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	if err := s.store.CreateRoleTemplate(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to create role template: %w", err)
	}

	s.logger.Info("Role template created",
		zap.Int64("template_id", tpl.ID),
		zap.Int64("company_id", companyID),
		zap.String("role_name", tpl.RoleName))
	return tpl, nil
}

// UpdateRoleTemplate edits a template's terms. Booked players keep their
// snapshots, so this never changes historical prices.
func (s *CatalogService) UpdateRoleTemplate(ctx context.Context, companyID, templateID int64, req *RoleTemplateRequest) (*models.RolePricingTemplate, error) {
	if err := validateDiscountTerms(req.DiscountKind, req.DiscountValue); err != nil {
		return nil, err
	}

	tpl, err := s.store.GetRoleTemplateByID(ctx, templateID)
	if err != nil {
		return nil, wrapNotFound(err, "role template", templateID)
	}
	if tpl.CompanyID != companyID {
		return nil, &NotFoundError{Resource: "role template", ID: templateID}
	}

	tpl.StoreIDs = req.StoreIDs
	tpl.RoleName = req.RoleName
	tpl.DiscountKind = req.DiscountKind
	tpl.DiscountValue = req.DiscountValue
	tpl.ValidFrom = req.ValidFrom
	tpl.ValidTo = req.ValidTo
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	if err := s.store.UpdateRoleTemplate(ctx, tpl); err != nil {
		return nil, wrapNotFound(err, "role template", templateID)
	}

	s.invalidate(ctx, fmt.Sprintf("pricing:tpl:%d", templateID))
	return tpl, nil
}

// DeactivateRoleTemplate soft-deletes a template
func (s *CatalogService) DeactivateRoleTemplate(ctx context.Context, companyID, templateID int64) error {
	tpl, err := s.store.GetRoleTemplateByID(ctx, templateID)
	if err != nil {
		return wrapNotFound(err, "role template", templateID)
	}
	if tpl.CompanyID != companyID {
		return &NotFoundError{Resource: "role template", ID: templateID}
	}

	if err := s.store.DeactivateRoleTemplate(ctx, templateID); err != nil {
		return wrapNotFound(err, "role template", templateID)
	}
	s.invalidate(ctx, fmt.Sprintf("pricing:tpl:%d", templateID))
	return nil
}

// ListRoleTemplates lists a company's templates visible to a store
func (s *CatalogService) ListRoleTemplates(ctx context.Context, companyID, storeID int64) ([]models.RolePricingTemplate, error) {
	return s.store.ListRoleTemplates(ctx, companyID, storeID)
}

// CreateCalendarEntry creates a pricing calendar entry. The store enforces
// at most one entry per (company, date) within a scope.
func (s *CatalogService) CreateCalendarEntry(ctx context.Context, companyID int64, req *CalendarEntryRequest) (*models.PricingCalendarEntry, error) {
	if err := validateDiscountTerms(req.DiscountKind, req.DiscountValue); err != nil {
		return nil, err
	}

	entry := &models.PricingCalendarEntry{
		CompanyID:     companyID,
		StoreIDs:      req.StoreIDs,
		CalendarDate:  req.CalendarDate,
		CalendarKind:  req.CalendarKind,
		DiscountKind:  req.DiscountKind,
		DiscountValue: req.DiscountValue,
		IsActive:      true,
	}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}

	if err := s.store.CreateCalendarEntry(ctx, entry); err != nil {
		if isUniqueViolation(err) {
			return nil, NewValidationError("a calendar entry already exists for %s in that scope",
				req.CalendarDate.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to create calendar entry: %w", err)
	}

	s.invalidate(ctx, s.calendarKey(companyID, entry.CalendarDate))
	return entry, nil
}

// UpdateCalendarEntry edits a calendar entry
func (s *CatalogService) UpdateCalendarEntry(ctx context.Context, companyID, entryID int64, req *CalendarEntryRequest) (*models.PricingCalendarEntry, error) {
	if err := validateDiscountTerms(req.DiscountKind, req.DiscountValue); err != nil {
		return nil, err
	}

	entry, err := s.store.GetCalendarEntryByID(ctx, entryID)
	if err != nil {
		return nil, wrapNotFound(err, "calendar entry", entryID)
	}
	if entry.CompanyID != companyID {
		return nil, &NotFoundError{Resource: "calendar entry", ID: entryID}
	}
	oldDate := entry.CalendarDate

	entry.StoreIDs = req.StoreIDs
	entry.CalendarDate = req.CalendarDate
	entry.CalendarKind = req.CalendarKind
	entry.DiscountKind = req.DiscountKind
	entry.DiscountValue = req.DiscountValue
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}

	if err := s.store.UpdateCalendarEntry(ctx, entry); err != nil {
		if isUniqueViolation(err) {
			return nil, NewValidationError("a calendar entry already exists for %s in that scope",
				req.CalendarDate.Format("2006-01-02"))
		}
		return nil, wrapNotFound(err, "calendar entry", entryID)
	}

	s.invalidate(ctx, s.calendarKey(companyID, oldDate), s.calendarKey(companyID, entry.CalendarDate))
	return entry, nil
}

// DeleteCalendarEntry removes a calendar entry
func (s *CatalogService) DeleteCalendarEntry(ctx context.Context, companyID, entryID int64) error {
	entry, err := s.store.GetCalendarEntryByID(ctx, entryID)
	if err != nil {
		return wrapNotFound(err, "calendar entry", entryID)
	}
	if entry.CompanyID != companyID {
		return &NotFoundError{Resource: "calendar entry", ID: entryID}
	}

	if err := s.store.DeleteCalendarEntry(ctx, entryID); err != nil {
		return wrapNotFound(err, "calendar entry", entryID)
	}
	s.invalidate(ctx, s.calendarKey(companyID, entry.CalendarDate))
	return nil
}

// ListCalendarEntries lists a company's entries within a date range
func (s *CatalogService) ListCalendarEntries(ctx context.Context, companyID int64, from, to time.Time) ([]models.PricingCalendarEntry, error) {
	return s.store.ListCalendarEntries(ctx, companyID, from, to)
}

func (s *CatalogService) calendarKey(companyID int64, date time.Time) string {
	return fmt.Sprintf("pricing:cal:%d:%s", companyID, date.Format("2006-01-02"))
}

func (s *CatalogService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
