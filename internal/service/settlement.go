package service

import (
	"context"
	"fmt"

	"github.com/ciby9833/xspace-sub000/internal/broker"
	"github.com/ciby9833/xspace-sub000/internal/models"
	"github.com/ciby9833/xspace-sub000/internal/store"
	"github.com/ciby9833/xspace-sub000/internal/util"

	"go.uber.org/zap"
)

// SettlementService reacts to confirmed-payment events. When every player
// of an order is paid it marks the order settled and announces it. This is
// an eventual side effect driven by the event stream, deliberately outside
// the ledger's transactions.
type SettlementService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(s *store.Store, eventPublisher *broker.EventPublisher) *SettlementService {
	return &SettlementService{
		store:          s,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// HandlePaymentConfirmed processes a PaymentConfirmed event exactly once
func (s *SettlementService) HandlePaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.HandlePaymentConfirmed")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := s.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	players, err := s.store.GetPlayersByOrderID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}

	allPaid := len(players) > 0
	for i := range players {
		if players[i].PaymentStatus != models.PlayerPaymentPaid {
			allPaid = false
			break
		}
	}

	if allPaid && order.Status == models.OrderStatusBooked {
		if err := s.store.SetOrderStatus(ctx, order.ID, models.OrderStatusSettled); err != nil {
			return fmt.Errorf("failed to settle order: %w", err)
		}
		util.OrdersSettledTotal.Inc()
		s.logger.Info("Order settled", zap.Int64("order_id", order.ID))

		if s.eventPublisher != nil {
			settled := &models.OrderSettledEvent{
				BaseEvent:  newBaseEvent(models.EventTypeOrderSettled),
				OrderID:    order.ID,
				TotalFinal: order.TotalFinal,
				PaidAmount: order.PaidAmount,
			}
			if err := s.eventPublisher.Publish(ctx, settled); err != nil {
				s.logger.Error("Failed to publish OrderSettled event", zap.Error(err))
			}
		}
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
