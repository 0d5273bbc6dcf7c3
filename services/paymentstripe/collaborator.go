// Package paymentstripe hands payments off to a hosted stripe checkout session.
package paymentstripe

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

const providerName = "stripe"

var paymentMethodTypes = map[payment.Method]string{
	payment.MethodCard:   "card",
	payment.MethodPaypal: "paypal",
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
	methodType, found := paymentMethodTypes[req.Method]
	if !found {
		return payment.Handoff{}, myerrors.NewInvalidInputError(fmt.Errorf("payment method '%s' not supported by %s", req.Method, providerName))
	}

	p.payer.UseAPIKey(p.apiKey)
	s, err := p.payer.CreateCheckoutSession(c, checkoutSessionParams(req, methodType))
	if err != nil {
		return payment.Handoff{}, err
	}

	p.logger.Log(c, req.OrderUID, mylog.SeverityInfo, "Created stripe session %s for order %s", s.ID, req.OrderUID)

	return payment.Handoff{
		ProviderName: providerName,
		PaymentKey:   s.ID,
		RedirectURL:  s.URL,
	}, nil
}

func checkoutSessionParams(req payment.Request, methodType string) stripe.CheckoutSessionParams {
	currency := strings.ToLower(req.Currency)
	return stripe.CheckoutSessionParams{
		// stripe fills in the session id placeholder itself
		SuccessURL: stripe.String(fmt.Sprintf("%s?paymentKey={CHECKOUT_SESSION_ID}&orderId=%s&amount=%d",
			req.SuccessURL, url.QueryEscape(req.OrderUID), req.Amount)),
		CancelURL: stripe.String(fmt.Sprintf("%s?code=%s&orderId=%s",
			req.FailURL, payment.FailureCanceled, url.QueryEscape(req.OrderUID))),
		ClientReferenceID:  stripe.String(req.OrderUID),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		PaymentMethodTypes: stripe.StringSlice([]string{methodType}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.OrderName),
					},
					UnitAmount: stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		Currency: stripe.String(currency),
	}
}

func (p *collaborator) ConfirmPayment(c context.Context, confirmation payment.Confirmation) (payment.Result, error) {
	p.payer.UseAPIKey(p.apiKey)
	s, err := p.payer.GetCheckoutSession(c, confirmation.PaymentKey)
	if err != nil {
		return payment.Result{}, err
	}

	if s.ClientReferenceID != confirmation.OrderUID {
		p.logger.Log(c, confirmation.OrderUID, mylog.SeverityWarn, "Stripe session %s belongs to order %s", s.ID, s.ClientReferenceID)
		return payment.Result{Status: payment.StatusFailed, FailureCode: payment.FailureAborted}, nil
	}
	if s.AmountTotal != confirmation.Amount {
		return payment.Result{Status: payment.StatusFailed, FailureCode: payment.FailureAmountMismatch}, nil
	}

	return payment.Result{
		Status: classifyStatus(s),
		Method: strings.Join(s.PaymentMethodTypes, ","),
	}, nil
}

func classifyStatus(s stripe.CheckoutSession) payment.Status {
	switch {
	case s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return payment.StatusDone
	case s.Status == stripe.CheckoutSessionStatusComplete:
		// async methods complete the session before the money arrives
		return payment.StatusWaitingOnDeposit
	default:
		return payment.StatusFailed
	}
}
