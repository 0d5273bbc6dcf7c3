package paymentadyen

import (
	"context"
	"fmt"
	"strings"

	"github.com/adyen/adyen-go-api-library/v6/src/adyen"
	"github.com/adyen/adyen-go-api-library/v6/src/checkout"
	"github.com/adyen/adyen-go-api-library/v6/src/common"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
)

//go:generate mockgen -source=payer.go -package paymentadyen -destination payer_mock.go Payer
type Payer interface {
	UseAPIKey(key string)
	CreatePaymentLink(ctx context.Context, req checkout.CreatePaymentLinkRequest) (checkout.PaymentLinkResponse, error)
	GetPaymentLink(ctx context.Context, linkID string) (checkout.PaymentLinkResponse, error)
}

type adyenPayer struct {
	client *adyen.APIClient
}

func NewPayer(environment string) Payer {
	return &adyenPayer{
		client: adyen.NewClient(&common.Config{
			Environment: common.Environment(strings.ToUpper(environment)),
			Debug:       false,
		}),
	}
}

func (p *adyenPayer) UseAPIKey(apiKey string) {
	// clear header
	delete(p.client.GetConfig().DefaultHeader, "Authorization")
	// set api-key
	p.client.GetConfig().ApiKey = apiKey
}

func (p *adyenPayer) CreatePaymentLink(ctx context.Context, req checkout.CreatePaymentLinkRequest) (checkout.PaymentLinkResponse, error) {
	resp, _, err := p.client.Checkout.PaymentLinks(&req, ctx)
	if err != nil {
		return checkout.PaymentLinkResponse{}, myerrors.NewUnavailableError(fmt.Errorf("error creating adyen payment link: %s", err))
	}
	return resp, nil
}

func (p *adyenPayer) GetPaymentLink(ctx context.Context, linkID string) (checkout.PaymentLinkResponse, error) {
	resp, _, err := p.client.Checkout.GetPaymentLink(linkID, ctx)
	if err != nil {
		return checkout.PaymentLinkResponse{}, myerrors.NewUnavailableError(fmt.Errorf("error getting adyen payment link %s: %s", linkID, err))
	}
	return resp, nil
}
