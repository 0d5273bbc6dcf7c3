// Package contracttests holds behaviour every payment collaborator must show, so a fake can stand in
// for a real provider.
package contracttests

import (
	"context"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

type CollaboratorContract struct {
	NewCollaborator func(t *testing.T) payment.Collaborator
}

func request(orderUID string, method payment.Method) payment.Request {
	return payment.Request{
		OrderUID:      orderUID,
		OrderName:     "Gymnopédie No.1 외 1개",
		Amount:        37000,
		Currency:      "KRW",
		Method:        method,
		CustomerName:  "홍길동",
		CustomerEmail: "hong@example.com",
		CustomerPhone: "010-1234-5678",
		SuccessURL:    "http://localhost:8888/payment-success",
		FailURL:       "http://localhost:8888/payment-fail",
	}
}

// approve plays the buyer: it follows the handoff and ends up on the success callback
func approve(t *testing.T, handoff payment.Handoff) payment.Confirmation {
	redirect, err := url.Parse(handoff.RedirectURL)
	require.NoError(t, err)
	require.Equal(t, "/payment-success", redirect.Path)

	amount, err := strconv.ParseInt(redirect.Query().Get("amount"), 10, 64)
	require.NoError(t, err)

	return payment.Confirmation{
		PaymentKey: redirect.Query().Get("paymentKey"),
		OrderUID:   redirect.Query().Get("orderId"),
		Amount:     amount,
	}
}

func (c CollaboratorContract) Test(t *testing.T) {
	t.Run("approved card payment is done", func(t *testing.T) {
		var (
			sut = c.NewCollaborator(t)
			ctx = context.Background()
		)

		handoff, err := sut.RequestPayment(ctx, request("ORDER_1_card", payment.MethodCard))
		require.NoError(t, err)
		assert.Equal(t, sut.Name(), handoff.ProviderName)
		assert.NotEmpty(t, handoff.PaymentKey)

		confirmation := approve(t, handoff)
		assert.Equal(t, handoff.PaymentKey, confirmation.PaymentKey)
		assert.Equal(t, "ORDER_1_card", confirmation.OrderUID)
		assert.Equal(t, int64(37000), confirmation.Amount)

		result, err := sut.ConfirmPayment(ctx, confirmation)
		assert.NoError(t, err)
		assert.Equal(t, payment.StatusDone, result.Status)
	})

	t.Run("virtual account waits on deposit", func(t *testing.T) {
		var (
			sut = c.NewCollaborator(t)
			ctx = context.Background()
		)

		handoff, err := sut.RequestPayment(ctx, request("ORDER_2_va", payment.MethodVirtualAccount))
		require.NoError(t, err)

		result, err := sut.ConfirmPayment(ctx, approve(t, handoff))
		assert.NoError(t, err)
		assert.Equal(t, payment.StatusWaitingOnDeposit, result.Status)
	})

	t.Run("tampered amount is refused", func(t *testing.T) {
		var (
			sut = c.NewCollaborator(t)
			ctx = context.Background()
		)

		handoff, err := sut.RequestPayment(ctx, request("ORDER_3_card", payment.MethodCard))
		require.NoError(t, err)
		confirmation := approve(t, handoff)
		confirmation.Amount = 100

		result, err := sut.ConfirmPayment(ctx, confirmation)
		assert.NoError(t, err)
		assert.Equal(t, payment.StatusFailed, result.Status)
		assert.NotEmpty(t, result.FailureCode)
	})

	t.Run("unknown payment key is refused", func(t *testing.T) {
		var (
			sut = c.NewCollaborator(t)
			ctx = context.Background()
		)

		result, err := sut.ConfirmPayment(ctx, payment.Confirmation{PaymentKey: "does-not-exist", OrderUID: "ORDER_4", Amount: 37000})
		assert.NoError(t, err)
		assert.Equal(t, payment.StatusFailed, result.Status)
	})
}
