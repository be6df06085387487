package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppliesToStore(t *testing.T) {
	companyWide := RolePricingTemplate{}
	assert.True(t, companyWide.AppliesToStore(1))
	assert.True(t, companyWide.AppliesToStore(99))

	scoped := RolePricingTemplate{StoreIDs: []int64{2, 3}}
	assert.True(t, scoped.AppliesToStore(2))
	assert.False(t, scoped.AppliesToStore(1))
}

func TestValidAt(t *testing.T) {
	now := time.Now()
	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)

	unbounded := RolePricingTemplate{}
	assert.True(t, unbounded.ValidAt(now))

	bounded := RolePricingTemplate{ValidFrom: &from, ValidTo: &to}
	assert.True(t, bounded.ValidAt(now))
	assert.False(t, bounded.ValidAt(now.Add(-2*time.Hour)))
	assert.False(t, bounded.ValidAt(now.Add(2*time.Hour)))
}

func TestCalendarKindPriority(t *testing.T) {
	assert.Less(t, CalendarKindPriority(CalendarKindHoliday), CalendarKindPriority(CalendarKindWeekend))
	assert.Less(t, CalendarKindPriority(CalendarKindWeekend), CalendarKindPriority(CalendarKindSpecial))
	assert.Less(t, CalendarKindPriority(CalendarKindSpecial), CalendarKindPriority(CalendarKindPromotion))
	assert.Greater(t, CalendarKindPriority("mystery"), CalendarKindPriority(CalendarKindPromotion))
}

func TestPaymentCovers(t *testing.T) {
	p := Payment{PlayerIDs: []int64{1, 3}}
	assert.True(t, p.Covers(1))
	assert.True(t, p.Covers(3))
	assert.False(t, p.Covers(2))
}
