package models

import (
	"time"

	"github.com/lib/pq"
)

// Discount kinds for role pricing templates and calendar entries.
const (
	DiscountKindPercentage = "percentage"
	DiscountKindFixed      = "fixed"
	DiscountKindFree       = "free"
	DiscountKindNone       = "none"
)

// Calendar entry kinds, listed in stacking priority order: when several
// calendar entries apply to the same date, their discounts are applied to
// the running amount in this order.
const (
	CalendarKindHoliday   = "holiday"
	CalendarKindWeekend   = "weekend"
	CalendarKindSpecial   = "special"
	CalendarKindPromotion = "promotion"
)

// CalendarKindPriority returns the stacking rank of a calendar kind.
// Unknown kinds sort last.
func CalendarKindPriority(kind string) int {
	switch kind {
	case CalendarKindHoliday:
		return 0
	case CalendarKindWeekend:
		return 1
	case CalendarKindSpecial:
		return 2
	case CalendarKindPromotion:
		return 3
	default:
		return 4
	}
}

// Order statuses
const (
	OrderStatusBooked    = "BOOKED"
	OrderStatusSettled   = "SETTLED"
	OrderStatusCancelled = "CANCELLED"
)

// Order-level payment statuses used by single-payment orders. Multi-payment
// orders derive their state from the ledger instead.
const (
	OrderPaymentFull   = "FULL"
	OrderPaymentDP     = "DP"
	OrderPaymentNotYet = "NOT_YET"
)

// Player payment statuses
const (
	PlayerPaymentPending  = "pending"
	PlayerPaymentPartial  = "partial"
	PlayerPaymentPaid     = "paid"
	PlayerPaymentRefunded = "refunded"
)

// Payment statuses. Pending is the only non-terminal state.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// RolePricingTemplate is a named discount rule owned by a company. An empty
// StoreIDs list means the rule is company-wide; otherwise it applies only to
// the listed stores. Templates are soft-deactivated rather than deleted
// because booked players snapshot their terms.
type RolePricingTemplate struct {
	ID            int64         `db:"id" json:"id"`
	CompanyID     int64         `db:"company_id" json:"company_id"`
	StoreIDs      pq.Int64Array `db:"store_ids" json:"store_ids,omitempty"`
	RoleName      string        `db:"role_name" json:"role_name"`
	DiscountKind  string        `db:"discount_kind" json:"discount_kind"`
	DiscountValue float64       `db:"discount_value" json:"discount_value"`
	ValidFrom     *time.Time    `db:"valid_from" json:"valid_from,omitempty"`
	ValidTo       *time.Time    `db:"valid_to" json:"valid_to,omitempty"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// AppliesToStore reports whether the template's store scope covers storeID.
func (t *RolePricingTemplate) AppliesToStore(storeID int64) bool {
	if len(t.StoreIDs) == 0 {
		return true
	}
	for _, id := range t.StoreIDs {
		if id == storeID {
			return true
		}
	}
	return false
}

// ValidAt reports whether asOf falls inside the template's validity window.
// A missing bound is treated as unbounded.
func (t *RolePricingTemplate) ValidAt(asOf time.Time) bool {
	if t.ValidFrom != nil && asOf.Before(*t.ValidFrom) {
		return false
	}
	if t.ValidTo != nil && asOf.After(*t.ValidTo) {
		return false
	}
	return true
}

// PricingCalendarEntry is a date-keyed discount rule. Scope matching works
// the same way as for role templates. At most one entry exists per
// (company, date) within a scope, but company-wide and store-specific
// entries may both apply on the same date.
type PricingCalendarEntry struct {
	ID            int64         `db:"id" json:"id"`
	CompanyID     int64         `db:"company_id" json:"company_id"`
	StoreIDs      pq.Int64Array `db:"store_ids" json:"store_ids,omitempty"`
	CalendarDate  time.Time     `db:"calendar_date" json:"calendar_date"`
	CalendarKind  string        `db:"calendar_kind" json:"calendar_kind"`
	DiscountKind  string        `db:"discount_kind" json:"discount_kind"`
	DiscountValue float64       `db:"discount_value" json:"discount_value"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// AppliesToStore reports whether the entry's store scope covers storeID.
func (e *PricingCalendarEntry) AppliesToStore(storeID int64) bool {
	if len(e.StoreIDs) == 0 {
		return true
	}
	for _, id := range e.StoreIDs {
		if id == storeID {
			return true
		}
	}
	return false
}

// Order is the booking header. The Total*/Paid*/Pending fields are a
// denormalized summary cache refreshed on every ledger mutation; for
// multi-payment orders the Player and Payment rows are the source of truth.
type Order struct {
	ID                 int64      `db:"id" json:"id"`
	CompanyID          int64      `db:"company_id" json:"company_id"`
	StoreID            int64      `db:"store_id" json:"store_id"`
	CustomerName       string     `db:"customer_name" json:"customer_name"`
	CustomerPhone      string     `db:"customer_phone" json:"customer_phone,omitempty"`
	BookingDate        time.Time  `db:"booking_date" json:"booking_date"`
	UnitPrice          int64      `db:"unit_price" json:"unit_price"`
	PlayerCount        int        `db:"player_count" json:"player_count"`
	EnableMultiPayment bool       `db:"enable_multi_payment" json:"enable_multi_payment"`
	Status             string     `db:"status" json:"status"`
	PaymentStatus      string     `db:"payment_status" json:"payment_status"`
	TotalOriginal      int64      `db:"total_original_amount" json:"total_original_amount"`
	TotalDiscount      int64      `db:"total_discount_amount" json:"total_discount_amount"`
	TotalFinal         int64      `db:"total_final_amount" json:"total_final_amount"`
	PaidAmount         int64      `db:"paid_amount" json:"paid_amount"`
	PendingAmount      int64      `db:"pending_amount" json:"pending_amount"`
	PlayersDiscounted  int        `db:"players_with_discount" json:"players_with_discount"`
	PlayersFullPrice   int        `db:"players_without_discount" json:"players_without_discount"`
	CompletionPercent  float64    `db:"completion_percent" json:"completion_percent"`
	FirstPaymentAt     *time.Time `db:"first_payment_at" json:"first_payment_at,omitempty"`
	LastPaymentAt      *time.Time `db:"last_payment_at" json:"last_payment_at,omitempty"`
	IdempotencyKey     string     `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Player is one seat of an order, carrying its own price breakdown. The
// RoleName/DiscountKind/DiscountValue trio is an immutable snapshot of the
// template terms at booking time: editing the template later never changes
// what a booked player owes.
type Player struct {
	ID             int64     `db:"id" json:"id"`
	OrderID        int64     `db:"order_id" json:"order_id"`
	SeatNumber     int       `db:"seat_number" json:"seat_number"`
	PlayerName     string    `db:"player_name" json:"player_name,omitempty"`
	PlayerPhone    string    `db:"player_phone" json:"player_phone,omitempty"`
	RoleTemplateID *int64    `db:"role_template_id" json:"role_template_id,omitempty"`
	RoleName       string    `db:"role_name" json:"role_name,omitempty"`
	DiscountKind   string    `db:"discount_kind" json:"discount_kind"`
	DiscountValue  float64   `db:"discount_value" json:"discount_value"`
	OriginalAmount int64     `db:"original_amount" json:"original_amount"`
	DiscountAmount int64     `db:"discount_amount" json:"discount_amount"`
	FinalAmount    int64     `db:"final_amount" json:"final_amount"`
	PaymentStatus  string    `db:"payment_status" json:"payment_status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Payment is one money movement against an order. PlayerIDs lists the seats
// this payment covers; a payment may cover many players and a player may be
// covered by several payments over time (deposit plus balance).
type Payment struct {
	ID             int64          `db:"id" json:"id"`
	OrderID        int64          `db:"order_id" json:"order_id"`
	PayerName      string         `db:"payer_name" json:"payer_name"`
	PayerPhone     string         `db:"payer_phone" json:"payer_phone,omitempty"`
	Amount         int64          `db:"amount" json:"amount"`
	Method         string         `db:"method" json:"method"`
	Status         string         `db:"status" json:"status"`
	PlayerIDs      pq.Int64Array  `db:"player_ids" json:"player_ids"`
	ProofURLs      pq.StringArray `db:"proof_urls" json:"proof_urls,omitempty"`
	IdempotencyKey string         `db:"idempotency_key" json:"idempotency_key,omitempty"`
	ConfirmedAt    *time.Time     `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// OrderSummaryPatch carries recomputed summary fields written back to the
// order row inside the same transaction as the ledger mutation that changed
// them.
type OrderSummaryPatch struct {
	TotalOriginal     int64
	TotalDiscount     int64
	TotalFinal        int64
	PaidAmount        int64
	PendingAmount     int64
	PlayersDiscounted int
	PlayersFullPrice  int
	CompletionPercent float64
	FirstPaymentAt    *time.Time
	LastPaymentAt     *time.Time
}

// Covers reports whether the payment covers the given player.
func (p *Payment) Covers(playerID int64) bool {
	for _, id := range p.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// PaymentAudit retains a snapshot of payment rows removed by merge, split or
// delete, so pre-merge history survives even though the live rows do not.
type PaymentAudit struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	Action    string    `db:"action" json:"action"`
	Snapshot  []byte    `db:"snapshot" json:"snapshot"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Audit actions
const (
	AuditActionMerge  = "merge"
	AuditActionSplit  = "split"
	AuditActionDelete = "delete"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
