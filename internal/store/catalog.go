package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/models"
)

// CreateRoleTemplate creates a new role pricing template
func (s *Store) CreateRoleTemplate(ctx context.Context, t *models.RolePricingTemplate) error {
	query := `
		INSERT INTO role_pricing_templates
			(company_id, store_ids, role_name, discount_kind, discount_value, valid_from, valid_to, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, t, query,
		t.CompanyID, t.StoreIDs, t.RoleName, t.DiscountKind, t.DiscountValue,
		t.ValidFrom, t.ValidTo, t.IsActive)
}

// GetRoleTemplateByID retrieves a role pricing template by ID
func (s *Store) GetRoleTemplateByID(ctx context.Context, id int64) (*models.RolePricingTemplate, error) {
	var t models.RolePricingTemplate
	err := s.db.GetContext(ctx, &t, "SELECT * FROM role_pricing_templates WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListRoleTemplates retrieves the templates of a company visible to a store.
// Company-wide templates (empty store scope) are always included.
func (s *Store) ListRoleTemplates(ctx context.Context, companyID, storeID int64) ([]models.RolePricingTemplate, error) {
	var templates []models.RolePricingTemplate
	err := s.db.SelectContext(ctx, &templates, `
		SELECT * FROM role_pricing_templates
		WHERE company_id = $1
		  AND (store_ids IS NULL OR cardinality(store_ids) = 0 OR $2 = ANY(store_ids))
		ORDER BY id`, companyID, storeID)
	return templates, err
}

// UpdateRoleTemplate updates an existing template's terms
func (s *Store) UpdateRoleTemplate(ctx context.Context, t *models.RolePricingTemplate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE role_pricing_templates
		SET store_ids = $1, role_name = $2, discount_kind = $3, discount_value = $4,
		    valid_from = $5, valid_to = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8`,
		t.StoreIDs, t.RoleName, t.DiscountKind, t.DiscountValue,
		t.ValidFrom, t.ValidTo, t.IsActive, t.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeactivateRoleTemplate soft-deletes a template. Rows are never removed
// because booked players reference their snapshots.
func (s *Store) DeactivateRoleTemplate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE role_pricing_templates SET is_active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// CreateCalendarEntry creates a new pricing calendar entry
func (s *Store) CreateCalendarEntry(ctx context.Context, e *models.PricingCalendarEntry) error {
	query := `
		INSERT INTO pricing_calendar_entries
			(company_id, store_ids, calendar_date, calendar_kind, discount_kind, discount_value, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, e, query,
		e.CompanyID, e.StoreIDs, e.CalendarDate, e.CalendarKind, e.DiscountKind,
		e.DiscountValue, e.IsActive)
}

// GetCalendarEntryByID retrieves a calendar entry by ID
func (s *Store) GetCalendarEntryByID(ctx context.Context, id int64) (*models.PricingCalendarEntry, error) {
	var e models.PricingCalendarEntry
	err := s.db.GetContext(ctx, &e, "SELECT * FROM pricing_calendar_entries WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetCalendarEntriesByDate retrieves a company's active calendar entries for
// a date, across all store scopes. Scope filtering against a concrete store
// happens in the resolver.
func (s *Store) GetCalendarEntriesByDate(ctx context.Context, companyID int64, date time.Time) ([]models.PricingCalendarEntry, error) {
	var entries []models.PricingCalendarEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT * FROM pricing_calendar_entries
		WHERE company_id = $1 AND calendar_date = $2 AND is_active
		ORDER BY id`, companyID, date.Format("2006-01-02"))
	return entries, err
}

// ListCalendarEntries retrieves a company's calendar entries within a date range
func (s *Store) ListCalendarEntries(ctx context.Context, companyID int64, from, to time.Time) ([]models.PricingCalendarEntry, error) {
	var entries []models.PricingCalendarEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT * FROM pricing_calendar_entries
		WHERE company_id = $1 AND calendar_date BETWEEN $2 AND $3
		ORDER BY calendar_date, id`,
		companyID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	return entries, err
}

// UpdateCalendarEntry updates an existing calendar entry
func (s *Store) UpdateCalendarEntry(ctx context.Context, e *models.PricingCalendarEntry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pricing_calendar_entries
		SET store_ids = $1, calendar_date = $2, calendar_kind = $3, discount_kind = $4,
		    discount_value = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7`,
		e.StoreIDs, e.CalendarDate, e.CalendarKind, e.DiscountKind,
		e.DiscountValue, e.IsActive, e.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeleteCalendarEntry removes a calendar entry
func (s *Store) DeleteCalendarEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM pricing_calendar_entries WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
