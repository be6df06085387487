package service

import (
	"context"
	"testing"

	"github.com/ciby9833/xspace-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPricing(catalog *fakeCatalog) *PricingService {
	return NewPricingService(NewDiscountService(catalog, nil))
}

func TestDecomposePerSeatItems(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addTemplate(models.RolePricingTemplate{
		ID: 7, CompanyID: 1, RoleName: "Student",
		DiscountKind: models.DiscountKindPercentage, DiscountValue: 50, IsActive: true,
	})
	pricing := newTestPricing(catalog)

	items, err := pricing.Decompose(context.Background(), 1, 1, 100000, 3, testDate(),
		[]RoleSelection{{TemplateID: 7, PlayerCount: 1}})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, 1, items[0].SeatNumber)
	assert.Equal(t, int64(50000), items[0].FinalAmount)
	assert.Equal(t, "Student", items[0].RoleName)
	assert.True(t, items[0].RoleProvenance.Applied)

	for i, item := range items[1:] {
		assert.Equal(t, i+2, item.SeatNumber)
		assert.Equal(t, int64(100000), item.FinalAmount)
		assert.Equal(t, models.DiscountKindNone, item.DiscountKind)
	}

	original, discount, final := DecompositionTotals(items)
	assert.Equal(t, int64(300000), original)
	assert.Equal(t, int64(50000), discount)
	assert.Equal(t, int64(250000), final)
}

func TestDecomposeCalendarThenRole(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addTemplate(models.RolePricingTemplate{
		ID: 7, CompanyID: 1, RoleName: "Student",
		DiscountKind: models.DiscountKindPercentage, DiscountValue: 50, IsActive: true,
	})
	catalog.addCalendarEntry(models.PricingCalendarEntry{
		ID: 1, CompanyID: 1, CalendarDate: testDate(), CalendarKind: models.CalendarKindHoliday,
		DiscountKind: models.DiscountKindPercentage, DiscountValue: 10, IsActive: true,
	})
	pricing := newTestPricing(catalog)

	items, err := pricing.Decompose(context.Background(), 1, 1, 100000, 2, testDate(),
		[]RoleSelection{{TemplateID: 7, PlayerCount: 1}})
	require.NoError(t, err)
	require.Len(t, items, 2)

	// the 10% calendar discount hits the unit price, the role's 50% then
	// applies to the discounted 90000
	assert.Equal(t, int64(45000), items[0].FinalAmount)
	assert.Equal(t, int64(55000), items[0].DiscountAmount)
	require.Len(t, items[0].CalendarApplications, 1)

	assert.Equal(t, int64(90000), items[1].FinalAmount)
	assert.Equal(t, int64(10000), items[1].DiscountAmount)
}

func TestDecomposeOverSelectionRejected(t *testing.T) {
	pricing := newTestPricing(newFakeCatalog())

	_, err := pricing.Decompose(context.Background(), 1, 1, 100000, 2, testDate(),
		[]RoleSelection{{TemplateID: 7, PlayerCount: 3}})
	assert.True(t, IsValidation(err))

	_, err = pricing.Decompose(context.Background(), 1, 1, 100000, 2, testDate(),
		[]RoleSelection{{TemplateID: 7, PlayerCount: 0}})
	assert.True(t, IsValidation(err))
}

func TestDecomposeZeroCases(t *testing.T) {
	pricing := newTestPricing(newFakeCatalog())

	items, err := pricing.Decompose(context.Background(), 1, 1, 0, 3, testDate(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = pricing.Decompose(context.Background(), 1, 1, 100000, 0, testDate(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = pricing.Decompose(context.Background(), 1, 1, -1, 3, testDate(), nil)
	assert.True(t, IsValidation(err))
}

func TestDecomposeMissingTemplateDegrades(t *testing.T) {
	pricing := newTestPricing(newFakeCatalog())

	items, err := pricing.Decompose(context.Background(), 1, 1, 100000, 1, testDate(),
		[]RoleSelection{{TemplateID: 42, PlayerCount: 1}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(100000), items[0].FinalAmount)
	assert.False(t, items[0].RoleProvenance.Applied)
}
