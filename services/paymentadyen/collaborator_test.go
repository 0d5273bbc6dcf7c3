package paymentadyen

import (
	"context"
	"testing"

	"github.com/adyen/adyen-go-api-library/v6/src/checkout"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

var cfg = Config{APIKey: "my_api_key", MerchantAccount: "SheetMusicShopECOM"}

func TestAdyenCollaborator(t *testing.T) {

	t.Run("Request payment creates payment link", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		payer := NewMockPayer(ctrl)
		sut := New(cfg, payer)

		// given
		payer.EXPECT().UseAPIKey("my_api_key")
		payer.EXPECT().CreatePaymentLink(gomock.Any(), checkout.CreatePaymentLinkRequest{
			AllowedPaymentMethods:  []string{"kakaopay"},
			Amount:                 checkout.Amount{Currency: "KRW", Value: 37000},
			CountryCode:            "KR",
			Description:            "Gymnopédie No.1 외 1개",
			MerchantAccount:        "SheetMusicShopECOM",
			MerchantOrderReference: "ORDER_1",
			Reference:              "ORDER_1",
			ReturnUrl:              "http://localhost:8888/payment-success?orderId=ORDER_1&amount=37000",
			ShopperEmail:           "hong@example.com",
			ShopperLocale:          "ko-KR",
			TelephoneNumber:        "010-1234-5678",
		}).Return(checkout.PaymentLinkResponse{Id: "PL123", Url: "https://test.adyen.link/PL123"}, nil)

		// when
		handoff, err := sut.RequestPayment(context.TODO(), payment.Request{
			OrderUID:      "ORDER_1",
			OrderName:     "Gymnopédie No.1 외 1개",
			Amount:        37000,
			Currency:      "KRW",
			Method:        payment.MethodKakaoPay,
			CustomerEmail: "hong@example.com",
			CustomerPhone: "010-1234-5678",
			SuccessURL:    "http://localhost:8888/payment-success",
			FailURL:       "http://localhost:8888/payment-fail",
		})

		// then
		assert.NoError(t, err)
		assert.Equal(t, payment.Handoff{ProviderName: "adyen", PaymentKey: "PL123", RedirectURL: "https://test.adyen.link/PL123"}, handoff)
	})

	t.Run("Confirm payment link", func(t *testing.T) {
		testCases := []struct {
			name            string
			linkStatus      string
			reference       string
			value           int64
			expectedStatus  payment.Status
			expectedFailure string
		}{
			{name: "completed", linkStatus: "completed", reference: "ORDER_1", value: 37000, expectedStatus: payment.StatusDone},
			{name: "pending", linkStatus: "paymentPending", reference: "ORDER_1", value: 37000, expectedStatus: payment.StatusWaitingOnDeposit},
			{name: "still active", linkStatus: "active", reference: "ORDER_1", value: 37000, expectedStatus: payment.StatusFailed, expectedFailure: payment.FailureAborted},
			{name: "expired", linkStatus: "expired", reference: "ORDER_1", value: 37000, expectedStatus: payment.StatusFailed, expectedFailure: payment.FailureTimeout},
			{name: "other order", linkStatus: "completed", reference: "ORDER_2", value: 37000, expectedStatus: payment.StatusFailed, expectedFailure: payment.FailureAborted},
			{name: "other amount", linkStatus: "completed", reference: "ORDER_1", value: 1, expectedStatus: payment.StatusFailed, expectedFailure: payment.FailureAmountMismatch},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				// setup
				payer := NewMockPayer(ctrl)
				sut := New(cfg, payer)

				// given
				payer.EXPECT().UseAPIKey("my_api_key")
				payer.EXPECT().GetPaymentLink(gomock.Any(), "PL123").Return(checkout.PaymentLinkResponse{
					Id:        "PL123",
					Reference: tc.reference,
					Status:    tc.linkStatus,
					Amount:    checkout.Amount{Currency: "KRW", Value: tc.value},
				}, nil)

				// when
				result, err := sut.ConfirmPayment(context.TODO(), payment.Confirmation{PaymentKey: "PL123", OrderUID: "ORDER_1", Amount: 37000})

				// then
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedStatus, result.Status)
				assert.Equal(t, tc.expectedFailure, result.FailureCode)
			})
		}
	})
}
