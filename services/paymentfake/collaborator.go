// Package paymentfake simulates an external payment provider. The buyer is sent straight back to the
// success url (or the fail url when a failure code is configured), after which confirmation succeeds.
package paymentfake

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/myuuid"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

const providerName = "fake"

type Config struct {
	// Delay is waited before a payment is confirmed
	Delay time.Duration
	// FailureCode makes every payment end on the fail url with this code
	FailureCode string
}

type fakePayment struct {
	PaymentKey string
	OrderUID   string
	Amount     int64
	Method     payment.Method
}

type collaborator struct {
	cfg      Config
	uuider   myuuid.UUIDer
	payments mystore.Store[fakePayment]
}

func New(c context.Context, cfg Config, uuider myuuid.UUIDer) (payment.Collaborator, func(), error) {
	store, cleanup, err := mystore.NewInMemoryStore[fakePayment](c)
	if err != nil {
		return nil, func() {}, err
	}
	return &collaborator{
		cfg:      cfg,
		uuider:   uuider,
		payments: store,
	}, cleanup, nil
}

func (p *collaborator) Name() string {
	return providerName
}

func (p *collaborator) RequestPayment(c context.Context, req payment.Request) (payment.Handoff, error) {
	if req.OrderUID == "" || req.Amount <= 0 {
		return payment.Handoff{}, myerrors.NewInvalidInputError(fmt.Errorf("missing order or amount"))
	}

	paymentKey := "fake_" + p.uuider.Create()
	err := p.payments.Put(c, paymentKey, fakePayment{
		PaymentKey: paymentKey,
		OrderUID:   req.OrderUID,
		Amount:     req.Amount,
		Method:     req.Method,
	})
	if err != nil {
		return payment.Handoff{}, myerrors.NewInternalError(err)
	}

	redirectURL, err := p.redirectURL(req, paymentKey)
	if err != nil {
		return payment.Handoff{}, myerrors.NewInvalidInputError(err)
	}

	return payment.Handoff{
		ProviderName: providerName,
		PaymentKey:   paymentKey,
		RedirectURL:  redirectURL,
	}, nil
}

func (p *collaborator) redirectURL(req payment.Request, paymentKey string) (string, error) {
	if p.cfg.FailureCode != "" {
		return withQuery(req.FailURL, url.Values{
			"code":    {p.cfg.FailureCode},
			"message": {payment.FailureMessage(p.cfg.FailureCode)},
			"orderId": {req.OrderUID},
		})
	}
	return withQuery(req.SuccessURL, url.Values{
		"paymentKey": {paymentKey},
		"orderId":    {req.OrderUID},
		"amount":     {strconv.FormatInt(req.Amount, 10)},
	})
}

func withQuery(base string, values url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid url '%s': %s", base, err)
	}
	q := u.Query()
	for k, v := range values {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *collaborator) ConfirmPayment(c context.Context, confirmation payment.Confirmation) (payment.Result, error) {
	if p.cfg.Delay > 0 {
		select {
		case <-time.After(p.cfg.Delay):
		case <-c.Done():
			return payment.Result{}, myerrors.NewUnavailableError(c.Err())
		}
	}

	remembered, found, err := p.payments.Get(c, confirmation.PaymentKey)
	if err != nil {
		return payment.Result{}, myerrors.NewInternalError(err)
	}
	if !found || remembered.OrderUID != confirmation.OrderUID {
		return payment.Result{Status: payment.StatusFailed, FailureCode: payment.FailureAborted}, nil
	}
	if remembered.Amount != confirmation.Amount {
		return payment.Result{Status: payment.StatusFailed, FailureCode: payment.FailureAmountMismatch}, nil
	}

	status := payment.StatusDone
	if remembered.Method.IsDeferred() {
		status = payment.StatusWaitingOnDeposit
	}
	return payment.Result{
		Status: status,
		Method: string(remembered.Method),
	}, nil
}
