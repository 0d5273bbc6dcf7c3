// Package paymentadyen hands payments off to an adyen pay-by-link page.
package paymentadyen

import (
	"context"
	"fmt"
	"net/url"

	"github.com/adyen/adyen-go-api-library/v6/src/checkout"

	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

const providerName = "adyen"

type Config struct {
	APIKey          string
	MerchantAccount string
	CountryCode     string
	ShopperLocale   string
}

// adyen payment method types per method; an empty list lets adyen offer everything it has
var allowedPaymentMethods = map[payment.Method][]string{
	payment.MethodCard:     {"scheme"},
	payment.MethodNaverPay: {"naverpay"},
	payment.MethodKakaoPay: {"kakaopay"},
	payment.MethodTossPay:  {"toss"},
	payment.MethodPaypal:   {"paypal"},
}

type collaborator struct {
	cfg    Config
	payer  Payer
	logger mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func New(cfg Config, payer Payer) payment.Collaborator {
	if cfg.CountryCode == "" {
		cfg.CountryCode = "KR"
	}
	if cfg.ShopperLocale == "" {
		cfg.ShopperLocale = "ko-KR"
	}
	return &collaborator{
		cfg:    cfg,
		payer:  payer,
		logger: mylog.New(providerName),
	}
}

func (p *collaborator) Name() string {
	return providerName
}

func (p *collaborator) RequestPayment(c context.Context, req payment.Request) (payment.Handoff, error) {
	p.payer.UseAPIKey(p.cfg.APIKey)
	resp, err := p.payer.CreatePaymentLink(c, checkout.CreatePaymentLinkRequest{
		AllowedPaymentMethods: allowedPaymentMethods[req.Method],
		Amount: checkout.Amount{
			Currency: req.Currency,
			Value:    req.Amount,
		},
		CountryCode:            p.cfg.CountryCode,
		Description:            req.OrderName,
		MerchantAccount:        p.cfg.MerchantAccount,
		MerchantOrderReference: req.OrderUID,
		Reference:              req.OrderUID,
		ReturnUrl:              fmt.Sprintf("%s?orderId=%s&amount=%d", req.SuccessURL, url.QueryEscape(req.OrderUID), req.Amount),
		ShopperEmail:           req.CustomerEmail,
		ShopperLocale:          p.cfg.ShopperLocale,
		TelephoneNumber:        req.CustomerPhone,
	})
	if err != nil {
		return payment.Handoff{}, err
	}

	p.logger.Log(c, req.OrderUID, mylog.SeverityInfo, "Created adyen payment link %s for order %s", resp.Id, req.OrderUID)

	return payment.Handoff{
		ProviderName: providerName,
		PaymentKey:   resp.Id,
		RedirectURL:  resp.Url,
	}, nil
}

func (p *collaborator) ConfirmPayment(c context.Context, confirmation payment.Confirmation) (payment.Result, error) {
	p.payer.UseAPIKey(p.cfg.APIKey)
	resp, err := p.payer.GetPaymentLink(c, confirmation.PaymentKey)
	if err != nil {
		return payment.Result{}, err
	}

	if resp.Reference != confirmation.OrderUID {
		p.logger.Log(c, confirmation.OrderUID, mylog.SeverityWarn, "Adyen payment link %s belongs to order %s", resp.Id, resp.Reference)
		return payment.Result{Status: payment.StatusFailed, FailureCode: payment.FailureAborted}, nil
	}
	if resp.Amount.Value != confirmation.Amount {
		return payment.Result{Status: payment.StatusFailed, FailureCode: payment.FailureAmountMismatch}, nil
	}

	switch resp.Status {
	case "completed":
		return payment.Result{Status: payment.StatusDone}, nil
	case "paymentPending":
		return payment.Result{Status: payment.StatusWaitingOnDeposit}, nil
	case "expired":
		return payment.Result{Status: payment.StatusFailed, FailureCode: payment.FailureTimeout}, nil
	default:
		return payment.Result{Status: payment.StatusFailed, FailureCode: payment.FailureAborted}, nil
	}
}
