// Package paymentmollie hands payments off to the mollie hosted checkout.
package paymentmollie

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

const providerName = "mollie"

// zeroDecimalCurrencies have no minor unit, so amounts are already whole units
var zeroDecimalCurrencies = map[string]bool{
	"KRW": true,
	"JPY": true,
	"ISK": true,
}

type collaborator struct {
	apiKey string
	payer  Payer
	logger mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func New(apiKey string, payer Payer) payment.Collaborator {
	return &collaborator{
		apiKey: apiKey,
		payer:  payer,
		logger: mylog.New(providerName),
	}
}

func (p *collaborator) Name() string {
	return providerName
}

func (p *collaborator) RequestPayment(c context.Context, req payment.Request) (payment.Handoff, error) {
	p.payer.UseAPIKey(p.apiKey)
	// mollie does not echo the payment id, the success callback falls back on the remembered attempt
	resp, err := p.payer.CreatePayment(c, mollie.Payment{
		Description:  req.OrderName,
		RedirectURL:  fmt.Sprintf("%s?orderId=%s&amount=%d", req.SuccessURL, url.QueryEscape(req.OrderUID), req.Amount),
		CancelURL:    fmt.Sprintf("%s?code=%s&orderId=%s", req.FailURL, payment.FailureCanceled, url.QueryEscape(req.OrderUID)),
		BillingEmail: req.CustomerEmail,
		ConsumerName: req.CustomerName,
		Metadata: map[string]string{
			"orderUID": req.OrderUID,
			"method":   string(req.Method),
		},
		Amount: &mollie.Amount{
			Currency: req.Currency,
			Value:    formatAmount(req.Amount, req.Currency),
		},
	})
	if err != nil {
		return payment.Handoff{}, err
	}
	if resp.Links.Checkout == nil {
		return payment.Handoff{}, myerrors.NewInternalError(fmt.Errorf("mollie payment %s has no checkout link", resp.ID))
	}

	p.logger.Log(c, req.OrderUID, mylog.SeverityInfo, "Created mollie payment %s for order %s", resp.ID, req.OrderUID)

	return payment.Handoff{
		ProviderName: providerName,
		PaymentKey:   resp.ID,
		RedirectURL:  resp.Links.Checkout.Href,
	}, nil
}

func (p *collaborator) ConfirmPayment(c context.Context, confirmation payment.Confirmation) (payment.Result, error) {
	p.payer.UseAPIKey(p.apiKey)
	resp, err := p.payer.GetPaymentOnID(c, confirmation.PaymentKey)
	if err != nil {
		return payment.Result{}, err
	}

	if resp.Amount == nil || parseAmount(resp.Amount.Value, resp.Amount.Currency) != confirmation.Amount {
		return payment.Result{Status: payment.StatusFailed, FailureCode: payment.FailureAmountMismatch}, nil
	}

	status, failureCode := classifyStatus(resp.Status)
	return payment.Result{
		Status:      status,
		FailureCode: failureCode,
	}, nil
}

func classifyStatus(status string) (payment.Status, string) {
	switch status {
	case "paid", "authorized":
		return payment.StatusDone, ""
	case "open", "pending":
		return payment.StatusWaitingOnDeposit, ""
	case "canceled":
		return payment.StatusFailed, payment.FailureCanceled
	case "expired":
		return payment.StatusFailed, payment.FailureTimeout
	default:
		return payment.StatusFailed, payment.FailureAborted
	}
}

func formatAmount(amount int64, currency string) string {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return strconv.FormatInt(amount, 10)
	}
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

func parseAmount(value string, currency string) int64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return -1
	}
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return int64(math.Round(f))
	}
	return int64(math.Round(f * 100))
}
