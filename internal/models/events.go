package models

import "time"

// Event types
const (
	EventTypeOrderBooked      = "ORDER_BOOKED"
	EventTypeOrderSettled     = "ORDER_SETTLED"
	EventTypePaymentConfirmed = "PAYMENT_CONFIRMED"
	EventTypePaymentCancelled = "PAYMENT_CANCELLED"
	EventTypePaymentsMerged   = "PAYMENTS_MERGED"
	EventTypePaymentSplit     = "PAYMENT_SPLIT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderBookedEvent published when an order and its seat decomposition are created
type OrderBookedEvent struct {
	BaseEvent
	OrderID     int64 `json:"order_id"`
	CompanyID   int64 `json:"company_id"`
	StoreID     int64 `json:"store_id"`
	PlayerCount int   `json:"player_count"`
	TotalFinal  int64 `json:"total_final_amount"`
}

// PaymentConfirmedEvent published after a payment confirmation commits
type PaymentConfirmedEvent struct {
	BaseEvent
	OrderID   int64   `json:"order_id"`
	PaymentID int64   `json:"payment_id"`
	Amount    int64   `json:"amount"`
	PlayerIDs []int64 `json:"player_ids"`
}

// PaymentCancelledEvent published when a pending payment is cancelled or failed
type PaymentCancelledEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	PaymentID int64  `json:"payment_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// PaymentsMergedEvent published when several payments are merged into one
type PaymentsMergedEvent struct {
	BaseEvent
	OrderID    int64   `json:"order_id"`
	MergedIDs  []int64 `json:"merged_ids"`
	ResultID   int64   `json:"result_id"`
	ResultAmnt int64   `json:"result_amount"`
}

// PaymentSplitEvent published when a payment is split into several
type PaymentSplitEvent struct {
	BaseEvent
	OrderID    int64   `json:"order_id"`
	SourceID   int64   `json:"source_id"`
	ResultIDs  []int64 `json:"result_ids"`
	AmountGap  int64   `json:"amount_gap"`
	Discrepant bool    `json:"discrepant"`
}

// OrderSettledEvent published when every player of an order is paid
type OrderSettledEvent struct {
	BaseEvent
	OrderID    int64 `json:"order_id"`
	TotalFinal int64 `json:"total_final_amount"`
	PaidAmount int64 `json:"paid_amount"`
}
