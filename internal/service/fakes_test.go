package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/models"
	"github.com/ciby9833/xspace-sub000/internal/store"
)

// fakeCatalog is an in-memory CatalogStore.
type fakeCatalog struct {
	templates map[int64]*models.RolePricingTemplate
	calendar  map[string][]models.PricingCalendarEntry
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		templates: make(map[int64]*models.RolePricingTemplate),
		calendar:  make(map[string][]models.PricingCalendarEntry),
	}
}

func (f *fakeCatalog) addTemplate(tpl models.RolePricingTemplate) {
	cp := tpl
	f.templates[tpl.ID] = &cp
}

func (f *fakeCatalog) addCalendarEntry(e models.PricingCalendarEntry) {
	key := calendarFakeKey(e.CompanyID, e.CalendarDate)
	f.calendar[key] = append(f.calendar[key], e)
}

func calendarFakeKey(companyID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", companyID, date.Format("2006-01-02"))
}

func (f *fakeCatalog) GetRoleTemplateByID(_ context.Context, id int64) (*models.RolePricingTemplate, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *tpl
	return &cp, nil
}

func (f *fakeCatalog) GetCalendarEntriesByDate(_ context.Context, companyID int64, date time.Time) ([]models.PricingCalendarEntry, error) {
	return f.calendar[calendarFakeKey(companyID, date)], nil
}

// fakeLedger is an in-memory LedgerStore whose Transact hands itself out as
// the LedgerTx, so mutations are visible immediately.
type fakeLedger struct {
	orders   map[int64]*models.Order
	players  map[int64][]models.Player
	payments map[int64]*models.Payment
	audits   []models.PaymentAudit
	nextID   int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		orders:   make(map[int64]*models.Order),
		players:  make(map[int64][]models.Player),
		payments: make(map[int64]*models.Payment),
	}
}

func (f *fakeLedger) id() int64 {
	f.nextID++
	return f.nextID
}

// seedOrder creates a multi-payment order with one player per final amount.
// Players get ids 1..n within the order in seat order.
func (f *fakeLedger) seedOrder(finals ...int64) *models.Order {
	order := &models.Order{
		ID:                 f.id(),
		CompanyID:          1,
		StoreID:            1,
		PlayerCount:        len(finals),
		EnableMultiPayment: true,
		Status:             models.OrderStatusBooked,
		PaymentStatus:      models.OrderPaymentNotYet,
	}
	for i, final := range finals {
		order.TotalOriginal += final
		order.TotalFinal += final
		f.players[order.ID] = append(f.players[order.ID], models.Player{
			ID:             f.id(),
			OrderID:        order.ID,
			SeatNumber:     i + 1,
			OriginalAmount: final,
			FinalAmount:    final,
			PaymentStatus:  models.PlayerPaymentPending,
		})
	}
	f.orders[order.ID] = order
	return order
}

func (f *fakeLedger) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeLedger) GetPlayersByOrderID(_ context.Context, orderID int64) ([]models.Player, error) {
	return append([]models.Player(nil), f.players[orderID]...), nil
}

func (f *fakeLedger) GetPaymentByID(_ context.Context, id int64) (*models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeLedger) GetPaymentByIdempotencyKey(_ context.Context, key string) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.IdempotencyKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) GetPaymentsByOrderID(_ context.Context, orderID int64) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLedger) GetPaymentAuditByOrderID(_ context.Context, orderID int64) ([]models.PaymentAudit, error) {
	var out []models.PaymentAudit
	for _, a := range f.audits {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLedger) Transact(_ context.Context, fn func(tx LedgerTx) error) error {
	return fn(f)
}

func (f *fakeLedger) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return f.GetOrderByID(ctx, id)
}

func (f *fakeLedger) GetPaymentForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	return f.GetPaymentByID(ctx, id)
}

func (f *fakeLedger) GetConfirmedPayments(ctx context.Context, orderID int64) ([]models.Payment, error) {
	all, err := f.GetPaymentsByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var out []models.Payment
	for _, p := range all {
		if p.Status == models.PaymentStatusConfirmed {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeLedger) CreatePayment(_ context.Context, p *models.Payment) error {
	p.ID = f.id()
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakeLedger) UpdatePayment(_ context.Context, p *models.Payment) error {
	if _, ok := f.payments[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakeLedger) DeletePayment(_ context.Context, id int64) error {
	if _, ok := f.payments[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.payments, id)
	return nil
}

func (f *fakeLedger) SetPlayerPaymentStatus(_ context.Context, playerID int64, status string) error {
	for orderID := range f.players {
		for i := range f.players[orderID] {
			if f.players[orderID][i].ID == playerID {
				f.players[orderID][i].PaymentStatus = status
				return nil
			}
		}
	}
	return store.ErrNotFound
}

func (f *fakeLedger) UpdateOrderSummary(_ context.Context, orderID int64, sum models.OrderSummaryPatch) error {
	order, ok := f.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	order.TotalOriginal = sum.TotalOriginal
	order.TotalDiscount = sum.TotalDiscount
	order.TotalFinal = sum.TotalFinal
	order.PaidAmount = sum.PaidAmount
	order.PendingAmount = sum.PendingAmount
	order.PlayersDiscounted = sum.PlayersDiscounted
	order.PlayersFullPrice = sum.PlayersFullPrice
	order.CompletionPercent = sum.CompletionPercent
	order.FirstPaymentAt = sum.FirstPaymentAt
	order.LastPaymentAt = sum.LastPaymentAt
	return nil
}

func (f *fakeLedger) CreatePaymentAudit(_ context.Context, orderID int64, action string, snapshot []byte) error {
	f.audits = append(f.audits, models.PaymentAudit{
		ID:       f.id(),
		OrderID:  orderID,
		Action:   action,
		Snapshot: snapshot,
	})
	return nil
}

func (f *fakeLedger) playerStatus(orderID, playerID int64) string {
	for _, p := range f.players[orderID] {
		if p.ID == playerID {
			return p.PaymentStatus
		}
	}
	return ""
}

// fakeBookingStore is an in-memory BookingStore.
type fakeBookingStore struct {
	orders  map[int64]*models.Order
	players map[int64][]models.Player
	byKey   map[string]int64
	nextID  int64
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{
		orders:  make(map[int64]*models.Order),
		players: make(map[int64][]models.Player),
		byKey:   make(map[string]int64),
	}
}

func (f *fakeBookingStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeBookingStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	id, ok := f.byKey[key]
	if !ok {
		return nil, nil
	}
	return f.GetOrderByID(ctx, id)
}

func (f *fakeBookingStore) GetPlayersByOrderID(_ context.Context, orderID int64) ([]models.Player, error) {
	return append([]models.Player(nil), f.players[orderID]...), nil
}

func (f *fakeBookingStore) CreateOrderWithPlayers(_ context.Context, order *models.Order, players []models.Player) error {
	f.nextID++
	order.ID = f.nextID
	cp := *order
	f.orders[order.ID] = &cp
	if order.IdempotencyKey != "" {
		f.byKey[order.IdempotencyKey] = order.ID
	}
	for i := range players {
		f.nextID++
		players[i].ID = f.nextID
		players[i].OrderID = order.ID
	}
	f.players[order.ID] = append([]models.Player(nil), players...)
	return nil
}

func (f *fakeBookingStore) DeleteOrder(_ context.Context, id int64) error {
	if _, ok := f.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.orders, id)
	delete(f.players, id)
	return nil
}
