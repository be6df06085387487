package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/broker"
	"github.com/ciby9833/xspace-sub000/internal/models"
	"github.com/ciby9833/xspace-sub000/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles booking creation. A booking is decomposed into one
// player row per seat at creation time; those rows seed the payment ledger
// of multi-payment orders.
type OrderService struct {
	store          BookingStore
	pricing        *PricingService
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store BookingStore, pricing *PricingService, eventPublisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		pricing:        pricing,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create a booking
type CreateOrderRequest struct {
	CompanyID          int64           `json:"-"`
	StoreID            int64           `json:"store_id" binding:"required"`
	CustomerName       string          `json:"customer_name" binding:"required"`
	CustomerPhone      string          `json:"customer_phone,omitempty"`
	BookingDate        time.Time       `json:"booking_date" binding:"required" time_format:"2006-01-02"`
	UnitPrice          int64           `json:"unit_price" binding:"required"`
	PlayerCount        int             `json:"player_count" binding:"required,min=1"`
	EnableMultiPayment bool            `json:"enable_multi_payment"`
	RoleSelections     []RoleSelection `json:"role_selections,omitempty"`
	IdempotencyKey     string          `json:"idempotency_key,omitempty"`
}

// CreateOrderResponse represents the response after creating a booking
type CreateOrderResponse struct {
	Order   *models.Order   `json:"order"`
	Players []models.Player `json:"players"`
}

// CreateOrder decomposes the booking into per-seat payment items and
// persists the order header plus its players in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Info("Duplicate booking request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.ID))
		players, err := s.store.GetPlayersByOrderID(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		return &CreateOrderResponse{Order: existing, Players: players}, nil
	}

	items, err := s.pricing.Decompose(ctx, req.CompanyID, req.StoreID,
		req.UnitPrice, req.PlayerCount, req.BookingDate, req.RoleSelections)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("decompose_failed").Inc()
		return nil, err
	}

	original, discount, final := DecompositionTotals(items)

	order := &models.Order{
		CompanyID:          req.CompanyID,
		StoreID:            req.StoreID,
		CustomerName:       req.CustomerName,
		CustomerPhone:      req.CustomerPhone,
		BookingDate:        req.BookingDate,
		UnitPrice:          req.UnitPrice,
		PlayerCount:        req.PlayerCount,
		EnableMultiPayment: req.EnableMultiPayment,
		Status:             models.OrderStatusBooked,
		PaymentStatus:      models.OrderPaymentNotYet,
		TotalOriginal:      original,
		TotalDiscount:      discount,
		TotalFinal:         final,
		IdempotencyKey:     req.IdempotencyKey,
	}

	players := make([]models.Player, 0, len(items))
	for _, item := range items {
		player := models.Player{
			SeatNumber:     item.SeatNumber,
			RoleTemplateID: item.RoleTemplateID,
			RoleName:       item.RoleName,
			DiscountKind:   item.DiscountKind,
			DiscountValue:  item.DiscountValue,
			OriginalAmount: item.OriginalAmount,
			DiscountAmount: item.DiscountAmount,
			FinalAmount:    item.FinalAmount,
			PaymentStatus:  models.PlayerPaymentPending,
		}
		if item.DiscountAmount > 0 {
			order.PlayersDiscounted++
		} else {
			order.PlayersFullPrice++
		}
		players = append(players, player)
	}

	if err := s.store.CreateOrderWithPlayers(ctx, order, players); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersBookedTotal.Inc()
	s.logger.Info("Order booked",
		zap.Int64("order_id", order.ID),
		zap.Int("player_count", order.PlayerCount),
		zap.Int64("total_final", order.TotalFinal))

	event := &models.OrderBookedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderBooked),
		OrderID:     order.ID,
		CompanyID:   order.CompanyID,
		StoreID:     order.StoreID,
		PlayerCount: order.PlayerCount,
		TotalFinal:  order.TotalFinal,
	}
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderBooked event", zap.Error(err))
		}
	}

	return &CreateOrderResponse{Order: order, Players: players}, nil
}

// PreviewDecomposition runs the pricing engine without persisting anything,
// for the "what would this cost" flow.
func (s *OrderService) PreviewDecomposition(ctx context.Context, req *CreateOrderRequest) ([]PaymentItem, error) {
	return s.pricing.Decompose(ctx, req.CompanyID, req.StoreID,
		req.UnitPrice, req.PlayerCount, req.BookingDate, req.RoleSelections)
}

// GetOrder retrieves an order and its players
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.Player, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, wrapNotFound(err, "order", orderID)
	}

	players, err := s.store.GetPlayersByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, players, nil
}

// DeleteOrder removes an order; its players and payments cascade with it
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	if err := s.store.DeleteOrder(ctx, orderID); err != nil {
		return wrapNotFound(err, "order", orderID)
	}
	s.logger.Info("Order deleted", zap.Int64("order_id", orderID))
	return nil
}
