package paymentfake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/myuuid"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

var request = payment.Request{
	OrderUID:   "ORDER_1",
	OrderName:  "Clair de Lune",
	Amount:     22000,
	Currency:   "KRW",
	Method:     payment.MethodCard,
	SuccessURL: "http://localhost:8888/payment-success",
	FailURL:    "http://localhost:8888/payment-fail",
}

func TestFakeCollaborator(t *testing.T) {

	t.Run("Redirects to success url", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		uuider := myuuid.NewMockUUIDer(ctrl)
		sut, cleanup, err := New(context.TODO(), Config{}, uuider)
		require.NoError(t, err)
		defer cleanup()

		// given
		uuider.EXPECT().Create().Return("abc")

		// when
		handoff, err := sut.RequestPayment(context.TODO(), request)

		// then
		assert.NoError(t, err)
		assert.Equal(t, payment.Handoff{
			ProviderName: "fake",
			PaymentKey:   "fake_abc",
			RedirectURL:  "http://localhost:8888/payment-success?amount=22000&orderId=ORDER_1&paymentKey=fake_abc",
		}, handoff)
	})

	t.Run("Redirects to fail url with configured failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		uuider := myuuid.NewMockUUIDer(ctrl)
		sut, cleanup, err := New(context.TODO(), Config{FailureCode: payment.FailureInsufficientBalance}, uuider)
		require.NoError(t, err)
		defer cleanup()

		// given
		uuider.EXPECT().Create().Return("abc")

		// when
		handoff, err := sut.RequestPayment(context.TODO(), request)

		// then
		assert.NoError(t, err)
		assert.Contains(t, handoff.RedirectURL, "http://localhost:8888/payment-fail?code=INSUFFICIENT_BALANCE")
	})

	t.Run("Missing amount", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		sut, cleanup, err := New(context.TODO(), Config{}, myuuid.NewMockUUIDer(ctrl))
		require.NoError(t, err)
		defer cleanup()

		// given
		req := request
		req.Amount = 0

		// when
		_, err = sut.RequestPayment(context.TODO(), req)

		// then
		assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
	})

	t.Run("Confirmation gives up when caller stops waiting", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		sut, cleanup, err := New(context.TODO(), Config{Delay: time.Hour}, myuuid.NewMockUUIDer(ctrl))
		require.NoError(t, err)
		defer cleanup()

		// given
		c, cancel := context.WithCancel(context.TODO())
		cancel()

		// when
		_, err = sut.ConfirmPayment(c, payment.Confirmation{PaymentKey: "fake_abc", OrderUID: "ORDER_1", Amount: 22000})

		// then
		assert.Equal(t, 503, myerrors.GetHTTPStatus(err))
	})
}
