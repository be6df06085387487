package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ciby9833/xspace-sub000/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrderWithPlayers persists an order header and its per-seat players
// in one transaction. The players are the decomposition output that seeds
// the payment ledger.
func (s *Store) CreateOrderWithPlayers(ctx context.Context, order *models.Order, players []models.Player) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders
			(company_id, store_id, customer_name, customer_phone, booking_date, unit_price,
			 player_count, enable_multi_payment, status, payment_status,
			 total_original_amount, total_discount_amount, total_final_amount,
			 pending_amount, players_with_discount, players_without_discount, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NULLIF($17, ''))
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.CompanyID, order.StoreID, order.CustomerName, order.CustomerPhone,
		order.BookingDate, order.UnitPrice, order.PlayerCount, order.EnableMultiPayment,
		order.Status, order.PaymentStatus,
		order.TotalOriginal, order.TotalDiscount, order.TotalFinal,
		order.PendingAmount, order.PlayersDiscounted, order.PlayersFullPrice,
		order.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range players {
		players[i].OrderID = order.ID
		err = tx.GetContext(ctx, &players[i].ID, `
			INSERT INTO players
				(order_id, seat_number, player_name, player_phone, role_template_id,
				 role_name, discount_kind, discount_value,
				 original_amount, discount_amount, final_amount, payment_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			players[i].OrderID, players[i].SeatNumber, players[i].PlayerName, players[i].PlayerPhone,
			players[i].RoleTemplateID, players[i].RoleName, players[i].DiscountKind, players[i].DiscountValue,
			players[i].OriginalAmount, players[i].DiscountAmount, players[i].FinalAmount,
			players[i].PaymentStatus)
		if err != nil {
			return fmt.Errorf("failed to create player %d: %w", players[i].SeatNumber, err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// DeleteOrder removes an order; players and payments cascade
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// GetPlayersByOrderID retrieves all players of an order in seat order
func (s *Store) GetPlayersByOrderID(ctx context.Context, orderID int64) ([]models.Player, error) {
	var players []models.Player
	err := s.db.SelectContext(ctx, &players,
		"SELECT * FROM players WHERE order_id = $1 ORDER BY seat_number", orderID)
	return players, err
}

// GetPaymentByID retrieves a payment by ID
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, "SELECT * FROM payments WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentByIdempotencyKey retrieves a payment by idempotency key
func (s *Store) GetPaymentByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, "SELECT * FROM payments WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentsByOrderID retrieves all payments of an order
func (s *Store) GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at, id", orderID)
	return payments, err
}

// GetPaymentAuditByOrderID retrieves the audit trail of an order's ledger
func (s *Store) GetPaymentAuditByOrderID(ctx context.Context, orderID int64) ([]models.PaymentAudit, error) {
	var audits []models.PaymentAudit
	err := s.db.SelectContext(ctx, &audits,
		"SELECT * FROM payment_audit WHERE order_id = $1 ORDER BY id", orderID)
	return audits, err
}

// Tx wraps a database transaction with ledger-scoped operations. Every
// ledger mutation runs through one Tx so that payment state, player
// statuses and the order summary cache change all-or-nothing.
type Tx struct {
	tx *sqlx.Tx
}

// Transact runs fn inside a transaction, committing on success
func (s *Store) Transact(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// GetOrderForUpdate loads an order row with a row lock
func (t *Tx) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := t.tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPaymentForUpdate loads a payment row with a row lock
func (t *Tx) GetPaymentForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	err := t.tx.GetContext(ctx, &p, "SELECT * FROM payments WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPlayersByOrderID retrieves all players of an order within the transaction
func (t *Tx) GetPlayersByOrderID(ctx context.Context, orderID int64) ([]models.Player, error) {
	var players []models.Player
	err := t.tx.SelectContext(ctx, &players,
		"SELECT * FROM players WHERE order_id = $1 ORDER BY seat_number", orderID)
	return players, err
}

// GetConfirmedPayments retrieves all confirmed payments of an order. Player
// status recomputation always starts from this fresh read, never from a
// cached counter.
func (t *Tx) GetConfirmedPayments(ctx context.Context, orderID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := t.tx.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE order_id = $1 AND status = $2 ORDER BY id",
		orderID, models.PaymentStatusConfirmed)
	return payments, err
}

// GetPaymentsByOrderID retrieves all payments of an order within the transaction
func (t *Tx) GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := t.tx.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at, id", orderID)
	return payments, err
}

// CreatePayment inserts a new payment row
func (t *Tx) CreatePayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments
			(order_id, payer_name, payer_phone, amount, method, status, player_ids,
			 proof_urls, idempotency_key, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, p, query,
		p.OrderID, p.PayerName, p.PayerPhone, p.Amount, p.Method, p.Status,
		p.PlayerIDs, p.ProofURLs, p.IdempotencyKey, p.ConfirmedAt)
}

// UpdatePayment rewrites the mutable fields of a payment row
func (t *Tx) UpdatePayment(ctx context.Context, p *models.Payment) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE payments
		SET payer_name = $1, payer_phone = $2, amount = $3, method = $4, status = $5,
		    player_ids = $6, proof_urls = $7, confirmed_at = $8, updated_at = NOW()
		WHERE id = $9`,
		p.PayerName, p.PayerPhone, p.Amount, p.Method, p.Status,
		p.PlayerIDs, p.ProofURLs, p.ConfirmedAt, p.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeletePayment removes a payment row
func (t *Tx) DeletePayment(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM payments WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// SetPlayerPaymentStatus updates a single player's payment status
func (t *Tx) SetPlayerPaymentStatus(ctx context.Context, playerID int64, status string) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE players SET payment_status = $1, updated_at = NOW() WHERE id = $2",
		status, playerID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// UpdateOrderSummary refreshes the denormalized summary cache on the order row
func (t *Tx) UpdateOrderSummary(ctx context.Context, orderID int64, sum models.OrderSummaryPatch) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE orders
		SET total_original_amount = $1, total_discount_amount = $2, total_final_amount = $3,
		    paid_amount = $4, pending_amount = $5,
		    players_with_discount = $6, players_without_discount = $7,
		    completion_percent = $8, first_payment_at = $9, last_payment_at = $10,
		    updated_at = NOW()
		WHERE id = $11`,
		sum.TotalOriginal, sum.TotalDiscount, sum.TotalFinal,
		sum.PaidAmount, sum.PendingAmount,
		sum.PlayersDiscounted, sum.PlayersFullPrice,
		sum.CompletionPercent, sum.FirstPaymentAt, sum.LastPaymentAt,
		orderID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// CreatePaymentAudit records a snapshot of removed payment rows
func (t *Tx) CreatePaymentAudit(ctx context.Context, orderID int64, action string, snapshot []byte) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO payment_audit (order_id, action, snapshot) VALUES ($1, $2, $3)",
		orderID, action, snapshot)
	return err
}

// SetOrderStatus updates order lifecycle status
func (s *Store) SetOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}
