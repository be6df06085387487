package service

import (
	"context"
	"testing"

	"github.com/ciby9833/xspace-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger() (*LedgerService, *fakeLedger) {
	ledger := newFakeLedger()
	return NewLedgerService(ledger, nil), ledger
}

func TestCreatePaymentRequiresMultiPayment(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000)
	ledger.orders[order.ID].EnableMultiPayment = false

	_, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID:   order.ID,
		PayerName: "Alice",
		Amount:    50000,
		Method:    "transfer",
		PlayerIDs: []int64{ledger.players[order.ID][0].ID},
	})
	assert.True(t, IsValidation(err))
}

func TestCreatePaymentValidatesCoverage(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000)

	_, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID:   order.ID,
		PayerName: "Alice",
		Amount:    50000,
		Method:    "transfer",
		PlayerIDs: []int64{999},
	})
	assert.True(t, IsValidation(err))

	pid := ledger.players[order.ID][0].ID
	_, err = svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID:   order.ID,
		PayerName: "Alice",
		Amount:    50000,
		Method:    "transfer",
		PlayerIDs: []int64{pid, pid},
	})
	assert.True(t, IsValidation(err))
}

func TestConfirmPaymentMarksPlayersPaid(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000, 50000)
	p1 := ledger.players[order.ID][0].ID

	payment, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID:   order.ID,
		PayerName: "Alice",
		Amount:    60000,
		Method:    "transfer",
		PlayerIDs: []int64{p1},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, models.PlayerPaymentPending, ledger.playerStatus(order.ID, p1))

	confirmed, warnings, err := svc.ConfirmPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	// 60000 against a 50000 seat: paid, with an overpayment warning
	assert.Equal(t, models.PlayerPaymentPaid, ledger.playerStatus(order.ID, p1))
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnOverpayment, warnings[0].Code)

	// summary cache refreshed inside the same transaction
	assert.Equal(t, int64(60000), ledger.orders[order.ID].PaidAmount)
	assert.NotNil(t, ledger.orders[order.ID].FirstPaymentAt)
}

func TestConfirmPaymentPartial(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000)
	p1 := ledger.players[order.ID][0].ID

	payment, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID:   order.ID,
		PayerName: "Alice",
		Amount:    20000,
		Method:    "cash",
		PlayerIDs: []int64{p1},
	})
	require.NoError(t, err)

	_, warnings, err := svc.ConfirmPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, models.PlayerPaymentPartial, ledger.playerStatus(order.ID, p1))

	// a second payment tops the seat up to paid
	second, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID:   order.ID,
		PayerName: "Bob",
		Amount:    30000,
		Method:    "cash",
		PlayerIDs: []int64{p1},
	})
	require.NoError(t, err)
	_, _, err = svc.ConfirmPayment(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerPaymentPaid, ledger.playerStatus(order.ID, p1))
}

func TestConfirmPaymentTwiceRejected(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000)
	p1 := ledger.players[order.ID][0].ID

	payment, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID:   order.ID,
		PayerName: "Alice",
		Amount:    50000,
		Method:    "transfer",
		PlayerIDs: []int64{p1},
	})
	require.NoError(t, err)

	_, _, err = svc.ConfirmPayment(context.Background(), payment.ID)
	require.NoError(t, err)

	_, _, err = svc.ConfirmPayment(context.Background(), payment.ID)
	assert.True(t, IsValidation(err))

	// the rejected re-confirm did not double-count
	assert.Equal(t, int64(50000), ledger.orders[order.ID].PaidAmount)
}

func TestCancelPaymentReleasesPending(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000)
	p1 := ledger.players[order.ID][0].ID

	payment, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID:   order.ID,
		PayerName: "Alice",
		Amount:    50000,
		Method:    "transfer",
		PlayerIDs: []int64{p1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), ledger.orders[order.ID].PendingAmount)

	_, err = svc.CancelPayment(context.Background(), payment.ID, "refunded", "typo")
	assert.True(t, IsValidation(err))

	cancelled, err := svc.CancelPayment(context.Background(), payment.ID, models.PaymentStatusCancelled, "customer backed out")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, cancelled.Status)
	assert.Equal(t, int64(0), ledger.orders[order.ID].PendingAmount)

	_, _, err = svc.ConfirmPayment(context.Background(), payment.ID)
	assert.True(t, IsValidation(err))
}

func TestUpdatePaymentOnlyWhilePending(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000, 30000)
	p1 := ledger.players[order.ID][0].ID
	p2 := ledger.players[order.ID][1].ID

	payment, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID:   order.ID,
		PayerName: "Alice",
		Amount:    50000,
		Method:    "transfer",
		PlayerIDs: []int64{p1},
	})
	require.NoError(t, err)

	newAmount := int64(80000)
	updated, err := svc.UpdatePayment(context.Background(), payment.ID, &UpdatePaymentRequest{
		Amount:    &newAmount,
		PlayerIDs: []int64{p1, p2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(80000), updated.Amount)
	assert.Len(t, []int64(updated.PlayerIDs), 2)

	_, _, err = svc.ConfirmPayment(context.Background(), payment.ID)
	require.NoError(t, err)

	_, err = svc.UpdatePayment(context.Background(), payment.ID, &UpdatePaymentRequest{Amount: &newAmount})
	assert.True(t, IsValidation(err))
}

func TestMergeConfirmedPaymentsStaysConfirmed(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000, 30000)
	p1 := ledger.players[order.ID][0].ID
	p2 := ledger.players[order.ID][1].ID

	var ids []int64
	for _, c := range []struct {
		amount int64
		player int64
	}{{50000, p1}, {30000, p2}} {
		payment, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
			OrderID:   order.ID,
			PayerName: "Alice",
			Amount:    c.amount,
			Method:    "transfer",
			PlayerIDs: []int64{c.player},
		})
		require.NoError(t, err)
		_, _, err = svc.ConfirmPayment(context.Background(), payment.ID)
		require.NoError(t, err)
		ids = append(ids, payment.ID)
	}

	merged, err := svc.MergePayments(context.Background(), order.ID, &MergePaymentsRequest{PaymentIDs: ids})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusConfirmed, merged.Status)
	assert.Equal(t, int64(80000), merged.Amount)
	assert.ElementsMatch(t, []int64{p1, p2}, []int64(merged.PlayerIDs))
	assert.NotNil(t, merged.ConfirmedAt)

	// both seats stay paid through the merge
	assert.Equal(t, models.PlayerPaymentPaid, ledger.playerStatus(order.ID, p1))
	assert.Equal(t, models.PlayerPaymentPaid, ledger.playerStatus(order.ID, p2))

	// originals are gone from the live ledger but snapshotted
	for _, id := range ids {
		_, err := svc.GetPayment(context.Background(), id)
		assert.True(t, IsNotFound(err))
	}
	trail, err := svc.GetAuditTrail(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, models.AuditActionMerge, trail[0].Action)
	assert.NotEmpty(t, trail[0].Snapshot)
}

func TestMergeMixedStatusesYieldsPending(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000, 30000)
	p1 := ledger.players[order.ID][0].ID
	p2 := ledger.players[order.ID][1].ID

	first, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID: order.ID, PayerName: "Alice", Amount: 50000, Method: "transfer", PlayerIDs: []int64{p1},
	})
	require.NoError(t, err)
	_, _, err = svc.ConfirmPayment(context.Background(), first.ID)
	require.NoError(t, err)

	second, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID: order.ID, PayerName: "Bob", Amount: 30000, Method: "cash", PlayerIDs: []int64{p2},
	})
	require.NoError(t, err)

	merged, err := svc.MergePayments(context.Background(), order.ID, &MergePaymentsRequest{
		PaymentIDs: []int64{first.ID, second.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, merged.Status)
	// the confirmed amount fell out of the ledger, so the seat reverts
	assert.Equal(t, models.PlayerPaymentPending, ledger.playerStatus(order.ID, p1))
}

func TestSplitPaymentRoundTrip(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000, 30000)
	p1 := ledger.players[order.ID][0].ID
	p2 := ledger.players[order.ID][1].ID

	payment, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID: order.ID, PayerName: "Alice", Amount: 80000, Method: "transfer", PlayerIDs: []int64{p1, p2},
	})
	require.NoError(t, err)
	_, _, err = svc.ConfirmPayment(context.Background(), payment.ID)
	require.NoError(t, err)

	result, err := svc.SplitPayment(context.Background(), payment.ID, []SplitSpec{
		{Amount: 50000, PlayerIDs: []int64{p1}},
		{Amount: 30000, PlayerIDs: []int64{p2}, PayerName: "Bob"},
	})
	require.NoError(t, err)
	assert.Nil(t, result.Warning)
	require.Len(t, result.Payments, 2)

	// parts inherit the confirmed status, so seat statuses are unchanged
	for _, part := range result.Payments {
		assert.Equal(t, models.PaymentStatusConfirmed, part.Status)
		assert.NotNil(t, part.ConfirmedAt)
	}
	assert.Equal(t, "Bob", result.Payments[1].PayerName)
	assert.Equal(t, models.PlayerPaymentPaid, ledger.playerStatus(order.ID, p1))
	assert.Equal(t, models.PlayerPaymentPaid, ledger.playerStatus(order.ID, p2))
	assert.Equal(t, int64(80000), ledger.orders[order.ID].PaidAmount)

	_, err = svc.GetPayment(context.Background(), payment.ID)
	assert.True(t, IsNotFound(err))
}

func TestSplitPaymentAmountMismatchWarns(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000, 30000)
	p1 := ledger.players[order.ID][0].ID
	p2 := ledger.players[order.ID][1].ID

	payment, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID: order.ID, PayerName: "Alice", Amount: 80000, Method: "transfer", PlayerIDs: []int64{p1, p2},
	})
	require.NoError(t, err)

	result, err := svc.SplitPayment(context.Background(), payment.ID, []SplitSpec{
		{Amount: 50000, PlayerIDs: []int64{p1}},
		{Amount: 20000, PlayerIDs: []int64{p2}},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Warning)
	assert.Equal(t, WarnSplitAmountMismatch, result.Warning.Code)
	require.Len(t, result.Payments, 2)
}

func TestDeletePaymentRecomputesStatuses(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000)
	p1 := ledger.players[order.ID][0].ID

	payment, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderID: order.ID, PayerName: "Alice", Amount: 50000, Method: "transfer", PlayerIDs: []int64{p1},
	})
	require.NoError(t, err)
	_, _, err = svc.ConfirmPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerPaymentPaid, ledger.playerStatus(order.ID, p1))

	require.NoError(t, svc.DeletePayment(context.Background(), payment.ID))

	assert.Equal(t, models.PlayerPaymentPending, ledger.playerStatus(order.ID, p1))
	assert.Equal(t, int64(0), ledger.orders[order.ID].PaidAmount)
	require.Len(t, ledger.audits, 1)
	assert.Equal(t, models.AuditActionDelete, ledger.audits[0].Action)
}

func TestCreatePaymentIdempotency(t *testing.T) {
	svc, ledger := newTestLedger()
	order := ledger.seedOrder(50000)
	p1 := ledger.players[order.ID][0].ID

	req := &CreatePaymentRequest{
		OrderID:        order.ID,
		PayerName:      "Alice",
		Amount:         50000,
		Method:         "transfer",
		PlayerIDs:      []int64{p1},
		IdempotencyKey: "abc-123",
	}
	first, err := svc.CreatePayment(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.CreatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	payments, err := svc.GetPayments(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestPlayerStatusForRefundedSticks(t *testing.T) {
	player := models.Player{ID: 1, FinalAmount: 50000, PaymentStatus: models.PlayerPaymentRefunded}
	confirmed := []models.Payment{{ID: 1, Amount: 50000, PlayerIDs: []int64{1}, Status: models.PaymentStatusConfirmed}}

	assert.Equal(t, models.PlayerPaymentRefunded, PlayerStatusFor(&player, confirmed))
}
