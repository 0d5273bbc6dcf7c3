package paymentstripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
)

//go:generate mockgen -source=payer.go -package paymentstripe -destination payer_mock.go Payer
type Payer interface {
	UseAPIKey(key string)
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (stripe.CheckoutSession, error)
}

type stripePayer struct{}

func NewPayer() Payer {
	return &stripePayer{}
}

func (p *stripePayer) UseAPIKey(apiKey string) {
	stripe.Key = apiKey
}

func (p *stripePayer) CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error) {
	params.Context = ctx
	s, err := session.New(&params)
	if err != nil {
		return stripe.CheckoutSession{}, myerrors.NewUnavailableError(fmt.Errorf("error creating stripe session: %s", err))
	}

	return *s, nil
}

func (p *stripePayer) GetCheckoutSession(ctx context.Context, id string) (stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := session.Get(id, params)
	if err != nil {
		return stripe.CheckoutSession{}, myerrors.NewUnavailableError(fmt.Errorf("error getting stripe session %s: %s", id, err))
	}

	return *s, nil
}
