package service

import (
	"context"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/models"
	"github.com/ciby9833/xspace-sub000/internal/store"
)

// CatalogStore describes the discount-catalog reads the resolver needs.
// *store.Store satisfies it.
type CatalogStore interface {
	GetRoleTemplateByID(ctx context.Context, id int64) (*models.RolePricingTemplate, error)
	GetCalendarEntriesByDate(ctx context.Context, companyID int64, date time.Time) ([]models.PricingCalendarEntry, error)
}

// CatalogCache is a read-through cache for catalog lookups. Implemented by
// redisclient.Client; a nil cache disables caching.
type CatalogCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// LedgerTx is the set of operations available inside one ledger
// transaction. *store.Tx satisfies it.
type LedgerTx interface {
	GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error)
	GetPaymentForUpdate(ctx context.Context, id int64) (*models.Payment, error)
	GetPlayersByOrderID(ctx context.Context, orderID int64) ([]models.Player, error)
	GetConfirmedPayments(ctx context.Context, orderID int64) ([]models.Payment, error)
	GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]models.Payment, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	UpdatePayment(ctx context.Context, p *models.Payment) error
	DeletePayment(ctx context.Context, id int64) error
	SetPlayerPaymentStatus(ctx context.Context, playerID int64, status string) error
	UpdateOrderSummary(ctx context.Context, orderID int64, sum models.OrderSummaryPatch) error
	CreatePaymentAudit(ctx context.Context, orderID int64, action string, snapshot []byte) error
}

// LedgerStore describes the reads and the transaction entry point the
// ledger and aggregator need.
type LedgerStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetPlayersByOrderID(ctx context.Context, orderID int64) ([]models.Player, error)
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
	GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]models.Payment, error)
	GetPaymentAuditByOrderID(ctx context.Context, orderID int64) ([]models.PaymentAudit, error)
	Transact(ctx context.Context, fn func(tx LedgerTx) error) error
}

// BookingStore describes the order-level persistence used by booking
// creation. *store.Store satisfies it.
type BookingStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetPlayersByOrderID(ctx context.Context, orderID int64) ([]models.Player, error)
	CreateOrderWithPlayers(ctx context.Context, order *models.Order, players []models.Player) error
	DeleteOrder(ctx context.Context, id int64) error
}

// sqlLedgerStore adapts *store.Store to LedgerStore. The only impedance is
// the callback type of Transact.
type sqlLedgerStore struct {
	*store.Store
}

// NewLedgerStore wraps the SQL store for use by the ledger services
func NewLedgerStore(s *store.Store) LedgerStore {
	return sqlLedgerStore{Store: s}
}

func (s sqlLedgerStore) Transact(ctx context.Context, fn func(tx LedgerTx) error) error {
	return s.Store.Transact(ctx, func(tx *store.Tx) error {
		return fn(tx)
	})
}
