package service

import (
	"context"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/models"
	"github.com/ciby9833/xspace-sub000/internal/util"

	"go.uber.org/zap"
)

// SummaryService is the reconciliation read path. For multi-payment orders
// it derives everything from the live player and payment rows; the order
// header's cached summary fields are never treated as authoritative. For
// single-payment orders it derives from the header and synthesizes the
// per-player breakdown.
type SummaryService struct {
	store  LedgerStore
	logger *zap.Logger
}

// NewSummaryService creates a new summary service
func NewSummaryService(store LedgerStore) *SummaryService {
	return &SummaryService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// PlayerSummary is one seat's slice of an order summary. Synthesized rows
// come from an equal split of a single-payment order's total and carry no
// player id.
type PlayerSummary struct {
	PlayerID       *int64 `json:"player_id,omitempty"`
	SeatNumber     int    `json:"seat_number"`
	RoleName       string `json:"role_name,omitempty"`
	OriginalAmount int64  `json:"original_amount"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalAmount    int64  `json:"final_amount"`
	PaymentStatus  string `json:"payment_status"`
	Synthesized    bool   `json:"synthesized"`
}

// OrderSummary is the reconciliation view of an order. Both read paths
// return this same shape so callers never branch on which one produced it.
type OrderSummary struct {
	OrderID                int64           `json:"order_id"`
	MultiPayment           bool            `json:"multi_payment"`
	TotalOriginalAmount    int64           `json:"total_original_amount"`
	TotalDiscountAmount    int64           `json:"total_discount_amount"`
	TotalFinalAmount       int64           `json:"total_final_amount"`
	PaidAmount             int64           `json:"paid_amount"`
	PendingAmount          int64           `json:"pending_amount"`
	DiscountPercent        float64         `json:"discount_percent"`
	CompletionPercent      float64         `json:"completion_percent"`
	PlayerCount            int             `json:"player_count"`
	PlayersWithDiscount    int             `json:"players_with_discount"`
	PlayersWithoutDiscount int             `json:"players_without_discount"`
	FirstPaymentAt         *time.Time      `json:"first_payment_at,omitempty"`
	LastPaymentAt          *time.Time      `json:"last_payment_at,omitempty"`
	Players                []PlayerSummary `json:"players"`
}

// GetOrderSummary recomputes an order's summary through the path selected
// by its enable_multi_payment flag.
func (s *SummaryService) GetOrderSummary(ctx context.Context, orderID int64) (*OrderSummary, error) {
	ctx, span := util.StartSpan(ctx, "SummaryService.GetOrderSummary")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, wrapNotFound(err, "order", orderID)
	}

	if order.EnableMultiPayment {
		return s.multiPaymentSummary(ctx, order)
	}
	return s.singlePaymentSummary(order), nil
}

func (s *SummaryService) multiPaymentSummary(ctx context.Context, order *models.Order) (*OrderSummary, error) {
	players, err := s.store.GetPlayersByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.GetPaymentsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	var confirmed []models.Payment
	for i := range payments {
		if payments[i].Status == models.PaymentStatusConfirmed {
			confirmed = append(confirmed, payments[i])
		}
	}

	patch := SummaryPatchFor(players, payments)

	summary := &OrderSummary{
		OrderID:                order.ID,
		MultiPayment:           true,
		TotalOriginalAmount:    patch.TotalOriginal,
		TotalDiscountAmount:    patch.TotalDiscount,
		TotalFinalAmount:       patch.TotalFinal,
		PaidAmount:             patch.PaidAmount,
		PendingAmount:          patch.PendingAmount,
		CompletionPercent:      patch.CompletionPercent,
		PlayerCount:            len(players),
		PlayersWithDiscount:    patch.PlayersDiscounted,
		PlayersWithoutDiscount: patch.PlayersFullPrice,
		FirstPaymentAt:         patch.FirstPaymentAt,
		LastPaymentAt:          patch.LastPaymentAt,
	}
	if patch.TotalOriginal > 0 {
		summary.DiscountPercent = float64(patch.TotalDiscount) / float64(patch.TotalOriginal) * 100
	}

	summary.Players = make([]PlayerSummary, 0, len(players))
	for i := range players {
		p := players[i]
		id := p.ID
		summary.Players = append(summary.Players, PlayerSummary{
			PlayerID:       &id,
			SeatNumber:     p.SeatNumber,
			RoleName:       p.RoleName,
			OriginalAmount: p.OriginalAmount,
			DiscountAmount: p.DiscountAmount,
			FinalAmount:    p.FinalAmount,
			PaymentStatus:  PlayerStatusFor(&p, confirmed),
		})
	}

	return summary, nil
}

// singlePaymentSummary maps the legacy header fields onto the same shape.
// The header's FULL/DP/NOT_YET tri-state applies to the whole player count
// at once; per-player rows are an equal split of the total, marked
// synthesized because no per-seat measurement exists.
func (s *SummaryService) singlePaymentSummary(order *models.Order) *OrderSummary {
	total := order.TotalFinal
	if total == 0 {
		total = order.UnitPrice * int64(order.PlayerCount)
	}

	var paid int64
	var playerStatus string
	switch order.PaymentStatus {
	case models.OrderPaymentFull:
		paid = total
		playerStatus = models.PlayerPaymentPaid
	case models.OrderPaymentDP:
		paid = order.PaidAmount
		playerStatus = models.PlayerPaymentPartial
	default:
		playerStatus = models.PlayerPaymentPending
	}

	summary := &OrderSummary{
		OrderID:                order.ID,
		MultiPayment:           false,
		TotalOriginalAmount:    order.UnitPrice * int64(order.PlayerCount),
		TotalDiscountAmount:    order.TotalDiscount,
		TotalFinalAmount:       total,
		PaidAmount:             paid,
		PendingAmount:          total - paid,
		PlayerCount:            order.PlayerCount,
		PlayersWithoutDiscount: order.PlayerCount,
		FirstPaymentAt:         order.FirstPaymentAt,
		LastPaymentAt:          order.LastPaymentAt,
	}
	if summary.TotalOriginalAmount > 0 {
		summary.DiscountPercent = float64(summary.TotalDiscountAmount) / float64(summary.TotalOriginalAmount) * 100
	}
	if total > 0 {
		pct := float64(paid) / float64(total) * 100
		if pct > 100 {
			pct = 100
		}
		summary.CompletionPercent = pct
	}

	if order.PlayerCount > 0 {
		per := total / int64(order.PlayerCount)
		summary.Players = make([]PlayerSummary, 0, order.PlayerCount)
		for seat := 1; seat <= order.PlayerCount; seat++ {
			amount := per
			if seat == order.PlayerCount {
				// remainder lands on the last seat so the split sums back
				amount = total - per*int64(order.PlayerCount-1)
			}
			summary.Players = append(summary.Players, PlayerSummary{
				SeatNumber:     seat,
				OriginalAmount: amount,
				FinalAmount:    amount,
				PaymentStatus:  playerStatus,
				Synthesized:    true,
			})
		}
	}

	s.logger.Debug("Synthesized single-payment summary", zap.Int64("order_id", order.ID))
	return summary
}
