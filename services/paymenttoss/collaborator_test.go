package paymenttoss

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

var request = payment.Request{
	OrderUID:      "ORDER_1772236739000_abcdef123",
	OrderName:     "Gymnopédie No.1 외 1개",
	Amount:        37000,
	Currency:      "KRW",
	Method:        payment.MethodCard,
	CustomerName:  "홍길동",
	CustomerEmail: "hong@example.com",
	SuccessURL:    "http://localhost:8888/payment-success",
	FailURL:       "http://localhost:8888/payment-fail",
}

func TestTossCollaborator(t *testing.T) {

	t.Run("Request payment sends basic auth with secret key", func(t *testing.T) {
		// setup
		var authorization string
		var path string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization = r.Header.Get("Authorization")
			path = r.URL.Path
			io.ReadAll(r.Body)
			w.Write([]byte(`{"paymentKey":"tgen_1","orderId":"ORDER_1772236739000_abcdef123","status":"READY","checkout":{"url":"https://pay.toss.im/checkout/tgen_1"}}`))
		}))
		defer server.Close()
		sut := New(Config{SecretKey: "test_sk_123", BaseURL: server.URL})

		// when
		handoff, err := sut.RequestPayment(context.TODO(), request)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("test_sk_123:")), authorization)
		assert.Equal(t, "/v1/payments", path)
		assert.Equal(t, payment.Handoff{ProviderName: "toss", PaymentKey: "tgen_1", RedirectURL: "https://pay.toss.im/checkout/tgen_1"}, handoff)
	})

	t.Run("Request payment refused", func(t *testing.T) {
		// setup
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"UNAUTHORIZED_KEY","message":"인증되지 않은 키"}`))
		}))
		defer server.Close()
		sut := New(Config{SecretKey: "wrong", BaseURL: server.URL})

		// when
		_, err := sut.RequestPayment(context.TODO(), request)

		// then
		assert.Error(t, err)
		assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
	})

	t.Run("Request payment while toss is down", func(t *testing.T) {
		// setup
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()
		sut := New(Config{SecretKey: "test_sk_123", BaseURL: server.URL})

		// when
		_, err := sut.RequestPayment(context.TODO(), request)

		// then
		assert.Error(t, err)
		assert.Equal(t, 503, myerrors.GetHTTPStatus(err))
	})

	t.Run("Confirm virtual account payment", func(t *testing.T) {
		// setup
		server := httptest.NewServer(NewFakeAPI())
		defer server.Close()
		sut := New(Config{SecretKey: "test_sk_123", BaseURL: server.URL})

		// given
		req := request
		req.Method = payment.MethodVirtualAccount
		handoff, err := sut.RequestPayment(context.TODO(), req)
		require.NoError(t, err)
		redirect, err := url.Parse(handoff.RedirectURL)
		require.NoError(t, err)
		assert.Equal(t, handoff.PaymentKey, redirect.Query().Get("paymentKey"))

		// when
		result, err := sut.ConfirmPayment(context.TODO(), payment.Confirmation{
			PaymentKey: handoff.PaymentKey,
			OrderUID:   req.OrderUID,
			Amount:     37000,
		})

		// then
		assert.NoError(t, err)
		assert.Equal(t, payment.StatusWaitingOnDeposit, result.Status)
		assert.Equal(t, "가상계좌", result.Method)
	})

	t.Run("Confirm unknown payment", func(t *testing.T) {
		// setup
		server := httptest.NewServer(NewFakeAPI())
		defer server.Close()
		sut := New(Config{SecretKey: "test_sk_123", BaseURL: server.URL})

		// when
		result, err := sut.ConfirmPayment(context.TODO(), payment.Confirmation{PaymentKey: "tgen_unknown", OrderUID: "ORDER_1", Amount: 100})

		// then
		assert.NoError(t, err)
		assert.Equal(t, payment.Result{Status: payment.StatusFailed, FailureCode: "NOT_FOUND_PAYMENT"}, result)
	})

	t.Run("Unparseable error body", func(t *testing.T) {
		// setup
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`oops`))
		}))
		defer server.Close()
		sut := New(Config{SecretKey: "test_sk_123", BaseURL: server.URL})

		// when
		result, err := sut.ConfirmPayment(context.TODO(), payment.Confirmation{PaymentKey: "tgen_1", OrderUID: "ORDER_1", Amount: 100})

		// then
		assert.NoError(t, err)
		assert.Equal(t, payment.FailureAborted, result.FailureCode)
	})
}
