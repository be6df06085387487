package worker

import (
	"context"
	"log"

	"github.com/ciby9833/xspace-sub000/internal/broker"
	"github.com/ciby9833/xspace-sub000/internal/service"
)

// SettlementWorker consumes ledger events and drives order settlement
type SettlementWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(consumer *broker.Consumer, settlement *service.SettlementService) *SettlementWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentConfirmed(settlement.HandlePaymentConfirmed)

	return &SettlementWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *SettlementWorker) Start(ctx context.Context) error {
	log.Println("Starting settlement worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SettlementWorker) Stop() error {
	log.Println("Stopping settlement worker...")
	return w.consumer.Close()
}
