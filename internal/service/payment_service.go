package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/broker"
	"github.com/ciby9833/xspace-sub000/internal/models"
	"github.com/ciby9833/xspace-sub000/internal/store"
	"github.com/ciby9833/xspace-sub000/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService manages the payment ledger of multi-payment orders. Every
// mutation runs inside one database transaction that also recomputes the
// covered players' statuses and refreshes the order summary cache, so the
// ledger is internally consistent after each operation or unchanged.
type LedgerService struct {
	store          LedgerStore
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store LedgerStore, eventPublisher *broker.EventPublisher) *LedgerService {
	return &LedgerService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreatePaymentRequest registers a new pending payment covering a subset of
// an order's players. The amount need not equal the covered players' total:
// partial and over payments are legal and reconciled at confirmation time.
type CreatePaymentRequest struct {
	OrderID        int64    `json:"order_id" binding:"required"`
	PayerName      string   `json:"payer_name" binding:"required"`
	PayerPhone     string   `json:"payer_phone,omitempty"`
	Amount         int64    `json:"amount" binding:"required"`
	Method         string   `json:"method" binding:"required"`
	PlayerIDs      []int64  `json:"player_ids" binding:"required,min=1"`
	ProofURLs      []string `json:"proof_urls,omitempty"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

// UpdatePaymentRequest edits a payment that is still pending
type UpdatePaymentRequest struct {
	PayerName  *string  `json:"payer_name,omitempty"`
	PayerPhone *string  `json:"payer_phone,omitempty"`
	Amount     *int64   `json:"amount,omitempty"`
	Method     *string  `json:"method,omitempty"`
	PlayerIDs  []int64  `json:"player_ids,omitempty"`
	ProofURLs  []string `json:"proof_urls,omitempty"`
}

// MergePaymentsRequest folds several payments into one
type MergePaymentsRequest struct {
	PaymentIDs []int64 `json:"payment_ids" binding:"required,min=1"`
	PayerName  string  `json:"payer_name,omitempty"`
	PayerPhone string  `json:"payer_phone,omitempty"`
	Method     string  `json:"method,omitempty"`
}

// SplitSpec describes one payment produced by a split
type SplitSpec struct {
	Amount    int64   `json:"amount" binding:"required"`
	PlayerIDs []int64 `json:"player_ids" binding:"required,min=1"`
	PayerName string  `json:"payer_name,omitempty"`
}

// SplitResult carries the new payments plus any soft warning about the
// split amounts not summing to the original.
type SplitResult struct {
	Payments []models.Payment       `json:"payments"`
	Warning  *ReconciliationWarning `json:"warning,omitempty"`
}

// CreatePayment registers a pending payment
func (s *LedgerService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.CreatePayment")
	defer span.End()

	if req.Amount <= 0 {
		return nil, NewValidationError("payment amount must be positive")
	}
	if len(req.PlayerIDs) == 0 {
		return nil, NewValidationError("payment must cover at least one player")
	}

	if req.IdempotencyKey != "" {
		existing, err := s.store.GetPaymentByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate payment request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("payment_id", existing.ID))
			return existing, nil
		}
	}

	var payment *models.Payment
	err := s.store.Transact(ctx, func(tx LedgerTx) error {
		order, err := tx.GetOrderForUpdate(ctx, req.OrderID)
		if err != nil {
			return wrapNotFound(err, "order", req.OrderID)
		}
		if !order.EnableMultiPayment {
			return NewValidationError("order %d does not use multi-payment settlement", order.ID)
		}

		players, err := tx.GetPlayersByOrderID(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to load players: %w", err)
		}
		if err := validateCoverage(players, req.PlayerIDs); err != nil {
			return err
		}

		payment = &models.Payment{
			OrderID:        order.ID,
			PayerName:      req.PayerName,
			PayerPhone:     req.PayerPhone,
			Amount:         req.Amount,
			Method:         req.Method,
			Status:         models.PaymentStatusPending,
			PlayerIDs:      req.PlayerIDs,
			ProofURLs:      req.ProofURLs,
			IdempotencyKey: req.IdempotencyKey,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		return s.reconcile(ctx, tx, order.ID)
	})
	if err != nil {
		return nil, err
	}

	util.PaymentsCreatedTotal.Inc()
	s.logger.Info("Payment created",
		zap.Int64("order_id", payment.OrderID),
		zap.Int64("payment_id", payment.ID),
		zap.Int64("amount", payment.Amount))

	return payment, nil
}

// UpdatePayment edits a pending payment's amount, coverage or proofs.
// Confirmed, cancelled and failed payments are immutable.
func (s *LedgerService) UpdatePayment(ctx context.Context, paymentID int64, req *UpdatePaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.UpdatePayment")
	defer span.End()

	var payment *models.Payment
	err := s.store.Transact(ctx, func(tx LedgerTx) error {
		var err error
		payment, err = tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return wrapNotFound(err, "payment", paymentID)
		}
		if payment.Status != models.PaymentStatusPending {
			return NewValidationError("only pending payments can be edited, payment %d is %s", paymentID, payment.Status)
		}

		if req.PayerName != nil {
			payment.PayerName = *req.PayerName
		}
		if req.PayerPhone != nil {
			payment.PayerPhone = *req.PayerPhone
		}
		if req.Method != nil {
			payment.Method = *req.Method
		}
		if req.Amount != nil {
			if *req.Amount <= 0 {
				return NewValidationError("payment amount must be positive")
			}
			payment.Amount = *req.Amount
		}
		if req.PlayerIDs != nil {
			players, err := tx.GetPlayersByOrderID(ctx, payment.OrderID)
			if err != nil {
				return fmt.Errorf("failed to load players: %w", err)
			}
			if err := validateCoverage(players, req.PlayerIDs); err != nil {
				return err
			}
			payment.PlayerIDs = req.PlayerIDs
		}
		if req.ProofURLs != nil {
			payment.ProofURLs = req.ProofURLs
		}

		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		return s.reconcile(ctx, tx, payment.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ConfirmPayment marks a pending payment confirmed and recomputes every
// covered player's status from the sum of all confirmed payments covering
// it, not just this one. Re-confirming is rejected so a payment can never
// double-count.
func (s *LedgerService) ConfirmPayment(ctx context.Context, paymentID int64) (*models.Payment, []ReconciliationWarning, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.ConfirmPayment")
	defer span.End()

	var payment *models.Payment
	var warnings []ReconciliationWarning

	err := s.store.Transact(ctx, func(tx LedgerTx) error {
		var err error
		payment, err = tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return wrapNotFound(err, "payment", paymentID)
		}
		if payment.Status == models.PaymentStatusConfirmed {
			return NewValidationError("payment %d is already confirmed", paymentID)
		}
		if payment.Status != models.PaymentStatusPending {
			return NewValidationError("payment %d is %s and cannot be confirmed", paymentID, payment.Status)
		}

		now := time.Now()
		payment.Status = models.PaymentStatusConfirmed
		payment.ConfirmedAt = &now
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to confirm payment: %w", err)
		}

		players, _, err := s.reconcileLoaded(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}

		covered := coveredTotal(players, payment.PlayerIDs)
		if payment.Amount > covered {
			warnings = append(warnings, ReconciliationWarning{
				Code: WarnOverpayment,
				Message: fmt.Sprintf("payment %d amount %d exceeds covered players' total %d",
					payment.ID, payment.Amount, covered),
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	util.PaymentsConfirmedTotal.Inc()
	s.logger.Info("Payment confirmed",
		zap.Int64("order_id", payment.OrderID),
		zap.Int64("payment_id", payment.ID),
		zap.Int64("amount", payment.Amount))

	s.publish(ctx, &models.PaymentConfirmedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentConfirmed),
		OrderID:   payment.OrderID,
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		PlayerIDs: payment.PlayerIDs,
	})

	return payment, warnings, nil
}

// CancelPayment moves a pending payment to a terminal cancelled or failed
// state.
func (s *LedgerService) CancelPayment(ctx context.Context, paymentID int64, toStatus, reason string) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.CancelPayment")
	defer span.End()

	if toStatus != models.PaymentStatusCancelled && toStatus != models.PaymentStatusFailed {
		return nil, NewValidationError("invalid target status %q", toStatus)
	}

	var payment *models.Payment
	err := s.store.Transact(ctx, func(tx LedgerTx) error {
		var err error
		payment, err = tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return wrapNotFound(err, "payment", paymentID)
		}
		if payment.Status != models.PaymentStatusPending {
			return NewValidationError("payment %d is %s and cannot be cancelled", paymentID, payment.Status)
		}

		payment.Status = toStatus
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to cancel payment: %w", err)
		}
		return s.reconcile(ctx, tx, payment.OrderID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment cancelled",
		zap.Int64("payment_id", payment.ID),
		zap.String("status", toStatus),
		zap.String("reason", reason))

	s.publish(ctx, &models.PaymentCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentCancelled),
		OrderID:   payment.OrderID,
		PaymentID: payment.ID,
		Status:    toStatus,
		Reason:    reason,
	})

	return payment, nil
}

// MergePayments replaces a set of payments with a single payment whose
// amount is their sum, whose coverage is the union of theirs and whose
// proofs are deduplicated. The originals are removed from the live ledger
// but snapshotted into the audit trail.
func (s *LedgerService) MergePayments(ctx context.Context, orderID int64, req *MergePaymentsRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.MergePayments")
	defer span.End()

	if len(req.PaymentIDs) == 0 {
		return nil, NewValidationError("merge requires at least one payment")
	}

	var merged *models.Payment
	err := s.store.Transact(ctx, func(tx LedgerTx) error {
		sources := make([]models.Payment, 0, len(req.PaymentIDs))
		seen := make(map[int64]bool, len(req.PaymentIDs))
		for _, id := range req.PaymentIDs {
			if seen[id] {
				return NewValidationError("duplicate payment id %d in merge set", id)
			}
			seen[id] = true

			p, err := tx.GetPaymentForUpdate(ctx, id)
			if err != nil {
				return wrapNotFound(err, "payment", id)
			}
			if p.OrderID != orderID {
				return NewValidationError("payment %d belongs to order %d, not %d", id, p.OrderID, orderID)
			}
			sources = append(sources, *p)
		}

		allConfirmed := true
		var total int64
		playerSet := make(map[int64]bool)
		var playerIDs []int64
		proofSet := make(map[string]bool)
		var proofs []string
		var earliestConfirm *time.Time

		for i := range sources {
			p := &sources[i]
			total += p.Amount
			if p.Status != models.PaymentStatusConfirmed {
				allConfirmed = false
			}
			for _, pid := range p.PlayerIDs {
				if !playerSet[pid] {
					playerSet[pid] = true
					playerIDs = append(playerIDs, pid)
				}
			}
			for _, u := range p.ProofURLs {
				if !proofSet[u] {
					proofSet[u] = true
					proofs = append(proofs, u)
				}
			}
			if p.ConfirmedAt != nil && (earliestConfirm == nil || p.ConfirmedAt.Before(*earliestConfirm)) {
				earliestConfirm = p.ConfirmedAt
			}
		}

		snapshot, err := json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("failed to snapshot merged payments: %w", err)
		}
		if err := tx.CreatePaymentAudit(ctx, orderID, models.AuditActionMerge, snapshot); err != nil {
			return fmt.Errorf("failed to write merge audit: %w", err)
		}

		merged = &models.Payment{
			OrderID:    orderID,
			PayerName:  req.PayerName,
			PayerPhone: req.PayerPhone,
			Method:     req.Method,
			Amount:     total,
			Status:     models.PaymentStatusPending,
			PlayerIDs:  playerIDs,
			ProofURLs:  proofs,
		}
		if merged.PayerName == "" {
			merged.PayerName = sources[0].PayerName
		}
		if merged.Method == "" {
			merged.Method = sources[0].Method
		}
		// Merging only confirmed payments yields a confirmed payment, so
		// player statuses survive the merge unchanged.
		if allConfirmed {
			merged.Status = models.PaymentStatusConfirmed
			merged.ConfirmedAt = earliestConfirm
		}

		if err := tx.CreatePayment(ctx, merged); err != nil {
			return fmt.Errorf("failed to create merged payment: %w", err)
		}
		for _, src := range sources {
			if err := tx.DeletePayment(ctx, src.ID); err != nil {
				return fmt.Errorf("failed to remove merged source %d: %w", src.ID, err)
			}
		}

		return s.reconcile(ctx, tx, orderID)
	})
	if err != nil {
		return nil, err
	}

	util.PaymentsMergedTotal.Inc()
	s.logger.Info("Payments merged",
		zap.Int64("order_id", orderID),
		zap.Int64s("source_ids", req.PaymentIDs),
		zap.Int64("result_id", merged.ID),
		zap.Int64("amount", merged.Amount))

	s.publish(ctx, &models.PaymentsMergedEvent{
		BaseEvent:  newBaseEvent(models.EventTypePaymentsMerged),
		OrderID:    orderID,
		MergedIDs:  req.PaymentIDs,
		ResultID:   merged.ID,
		ResultAmnt: merged.Amount,
	})

	return merged, nil
}

// SplitPayment replaces one payment with several caller-specified payments.
// The split amounts are not required to sum to the original (a split may
// deliberately write off a discrepancy) but a mismatch yields a
// ReconciliationWarning.
func (s *LedgerService) SplitPayment(ctx context.Context, paymentID int64, specs []SplitSpec) (*SplitResult, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.SplitPayment")
	defer span.End()

	if len(specs) == 0 {
		return nil, NewValidationError("split requires at least one part")
	}
	for i, spec := range specs {
		if spec.Amount <= 0 {
			return nil, NewValidationError("split part %d amount must be positive", i+1)
		}
		if len(spec.PlayerIDs) == 0 {
			return nil, NewValidationError("split part %d must cover at least one player", i+1)
		}
	}

	result := &SplitResult{}
	var source *models.Payment

	err := s.store.Transact(ctx, func(tx LedgerTx) error {
		var err error
		source, err = tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return wrapNotFound(err, "payment", paymentID)
		}

		players, err := tx.GetPlayersByOrderID(ctx, source.OrderID)
		if err != nil {
			return fmt.Errorf("failed to load players: %w", err)
		}

		snapshot, err := json.Marshal([]models.Payment{*source})
		if err != nil {
			return fmt.Errorf("failed to snapshot split payment: %w", err)
		}
		if err := tx.CreatePaymentAudit(ctx, source.OrderID, models.AuditActionSplit, snapshot); err != nil {
			return fmt.Errorf("failed to write split audit: %w", err)
		}

		var total int64
		for _, spec := range specs {
			if err := validateCoverage(players, spec.PlayerIDs); err != nil {
				return err
			}
			total += spec.Amount

			part := models.Payment{
				OrderID:     source.OrderID,
				PayerName:   spec.PayerName,
				PayerPhone:  source.PayerPhone,
				Method:      source.Method,
				Amount:      spec.Amount,
				Status:      source.Status,
				PlayerIDs:   spec.PlayerIDs,
				ProofURLs:   source.ProofURLs,
				ConfirmedAt: source.ConfirmedAt,
			}
			if part.PayerName == "" {
				part.PayerName = source.PayerName
			}
			if err := tx.CreatePayment(ctx, &part); err != nil {
				return fmt.Errorf("failed to create split part: %w", err)
			}
			result.Payments = append(result.Payments, part)
		}

		if total != source.Amount {
			result.Warning = &ReconciliationWarning{
				Code: WarnSplitAmountMismatch,
				Message: fmt.Sprintf("split parts sum to %d but payment %d amount is %d",
					total, source.ID, source.Amount),
			}
			util.SplitMismatchTotal.Inc()
			s.logger.Warn("Split amounts do not sum to the original",
				zap.Int64("payment_id", source.ID),
				zap.Int64("original_amount", source.Amount),
				zap.Int64("split_total", total))
		}

		if err := tx.DeletePayment(ctx, source.ID); err != nil {
			return fmt.Errorf("failed to remove split source: %w", err)
		}

		return s.reconcile(ctx, tx, source.OrderID)
	})
	if err != nil {
		return nil, err
	}

	util.PaymentsSplitTotal.Inc()

	resultIDs := make([]int64, len(result.Payments))
	var total int64
	for i, p := range result.Payments {
		resultIDs[i] = p.ID
		total += p.Amount
	}
	s.publish(ctx, &models.PaymentSplitEvent{
		BaseEvent:  newBaseEvent(models.EventTypePaymentSplit),
		OrderID:    source.OrderID,
		SourceID:   source.ID,
		ResultIDs:  resultIDs,
		AmountGap:  source.Amount - total,
		Discrepant: result.Warning != nil,
	})

	return result, nil
}

// DeletePayment removes a payment and recomputes the previously covered
// players' statuses as if it had never existed.
func (s *LedgerService) DeletePayment(ctx context.Context, paymentID int64) error {
	ctx, span := util.StartSpan(ctx, "LedgerService.DeletePayment")
	defer span.End()

	var orderID int64
	err := s.store.Transact(ctx, func(tx LedgerTx) error {
		payment, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return wrapNotFound(err, "payment", paymentID)
		}
		orderID = payment.OrderID

		snapshot, err := json.Marshal([]models.Payment{*payment})
		if err != nil {
			return fmt.Errorf("failed to snapshot deleted payment: %w", err)
		}
		if err := tx.CreatePaymentAudit(ctx, orderID, models.AuditActionDelete, snapshot); err != nil {
			return fmt.Errorf("failed to write delete audit: %w", err)
		}

		if err := tx.DeletePayment(ctx, paymentID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		return s.reconcile(ctx, tx, orderID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Payment deleted",
		zap.Int64("order_id", orderID),
		zap.Int64("payment_id", paymentID))
	return nil
}

// GetPayment retrieves a payment by ID
func (s *LedgerService) GetPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	p, err := s.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, wrapNotFound(err, "payment", paymentID)
	}
	return p, nil
}

// GetPayments retrieves all payments of an order
func (s *LedgerService) GetPayments(ctx context.Context, orderID int64) ([]models.Payment, error) {
	return s.store.GetPaymentsByOrderID(ctx, orderID)
}

// GetAuditTrail retrieves the snapshots of payments removed from an order's
// ledger by merge, split or delete.
func (s *LedgerService) GetAuditTrail(ctx context.Context, orderID int64) ([]models.PaymentAudit, error) {
	return s.store.GetPaymentAuditByOrderID(ctx, orderID)
}

// reconcile recomputes every player's status from a fresh in-transaction
// read of the order's confirmed payments, then refreshes the order summary
// cache. It is the tail of every ledger mutation.
func (s *LedgerService) reconcile(ctx context.Context, tx LedgerTx, orderID int64) error {
	_, _, err := s.reconcileLoaded(ctx, tx, orderID)
	return err
}

func (s *LedgerService) reconcileLoaded(ctx context.Context, tx LedgerTx, orderID int64) ([]models.Player, []models.Payment, error) {
	players, err := tx.GetPlayersByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load players: %w", err)
	}
	confirmed, err := tx.GetConfirmedPayments(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load confirmed payments: %w", err)
	}

	for i := range players {
		status := PlayerStatusFor(&players[i], confirmed)
		if status != players[i].PaymentStatus {
			if err := tx.SetPlayerPaymentStatus(ctx, players[i].ID, status); err != nil {
				return nil, nil, fmt.Errorf("failed to update player %d status: %w", players[i].ID, err)
			}
			players[i].PaymentStatus = status
		}
	}

	allPayments, err := tx.GetPaymentsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load payments: %w", err)
	}

	patch := SummaryPatchFor(players, allPayments)
	if err := tx.UpdateOrderSummary(ctx, orderID, patch); err != nil {
		return nil, nil, fmt.Errorf("failed to refresh order summary: %w", err)
	}

	util.SummaryRebuildsTotal.Inc()
	return players, confirmed, nil
}

// PlayerStatusFor derives a player's payment status from the confirmed
// payments covering it. Summing distinct confirmed payments makes the
// recompute naturally idempotent.
func PlayerStatusFor(player *models.Player, confirmed []models.Payment) string {
	if player.PaymentStatus == models.PlayerPaymentRefunded {
		return models.PlayerPaymentRefunded
	}

	var paid int64
	for i := range confirmed {
		if confirmed[i].Covers(player.ID) {
			paid += confirmed[i].Amount
		}
	}

	switch {
	case paid >= player.FinalAmount:
		return models.PlayerPaymentPaid
	case paid > 0:
		return models.PlayerPaymentPartial
	default:
		return models.PlayerPaymentPending
	}
}

// SummaryPatchFor recomputes the order summary cache from live player and
// payment rows. Totals are sums over the already-rounded per-seat amounts.
func SummaryPatchFor(players []models.Player, payments []models.Payment) models.OrderSummaryPatch {
	var patch models.OrderSummaryPatch

	for i := range players {
		p := &players[i]
		patch.TotalOriginal += p.OriginalAmount
		patch.TotalDiscount += p.DiscountAmount
		patch.TotalFinal += p.FinalAmount
		if p.DiscountAmount > 0 {
			patch.PlayersDiscounted++
		} else {
			patch.PlayersFullPrice++
		}
	}

	for i := range payments {
		p := &payments[i]
		switch p.Status {
		case models.PaymentStatusConfirmed:
			patch.PaidAmount += p.Amount
			if p.ConfirmedAt != nil {
				if patch.FirstPaymentAt == nil || p.ConfirmedAt.Before(*patch.FirstPaymentAt) {
					patch.FirstPaymentAt = p.ConfirmedAt
				}
				if patch.LastPaymentAt == nil || p.ConfirmedAt.After(*patch.LastPaymentAt) {
					patch.LastPaymentAt = p.ConfirmedAt
				}
			}
		case models.PaymentStatusPending:
			patch.PendingAmount += p.Amount
		}
	}

	if patch.TotalFinal > 0 {
		pct := float64(patch.PaidAmount) / float64(patch.TotalFinal) * 100
		if pct > 100 {
			pct = 100
		}
		patch.CompletionPercent = pct
	}
	return patch
}

func coveredTotal(players []models.Player, playerIDs []int64) int64 {
	ids := make(map[int64]bool, len(playerIDs))
	for _, id := range playerIDs {
		ids[id] = true
	}
	var total int64
	for i := range players {
		if ids[players[i].ID] {
			total += players[i].FinalAmount
		}
	}
	return total
}

func validateCoverage(players []models.Player, playerIDs []int64) error {
	known := make(map[int64]bool, len(players))
	for i := range players {
		known[players[i].ID] = true
	}
	seen := make(map[int64]bool, len(playerIDs))
	for _, id := range playerIDs {
		if !known[id] {
			return NewValidationError("player %d does not belong to the order", id)
		}
		if seen[id] {
			return NewValidationError("player %d listed twice in coverage", id)
		}
		seen[id] = true
	}
	return nil
}

func wrapNotFound(err error, resource string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return err
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func (s *LedgerService) publish(ctx context.Context, event interface{}) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish ledger event", zap.Error(err))
	}
}
