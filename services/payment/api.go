// Package payment describes the contract between the checkout funnel and an external payment provider.
// The funnel only hands off a request and later receives the outcome through a success or failure callback.
package payment

import (
	"context"
	"fmt"
)

type Method string

const (
	MethodCard           Method = "card"
	MethodBankTransfer   Method = "bank-transfer"
	MethodVirtualAccount Method = "virtual-account"
	MethodNaverPay       Method = "naver-pay"
	MethodKakaoPay       Method = "kakao-pay"
	MethodTossPay        Method = "toss-pay"
	MethodPaypal         Method = "paypal"
)

var methods = []Method{
	MethodCard,
	MethodBankTransfer,
	MethodVirtualAccount,
	MethodNaverPay,
	MethodKakaoPay,
	MethodTossPay,
	MethodPaypal,
}

func Methods() []Method {
	return append([]Method{}, methods...)
}

func ParseMethod(s string) (Method, error) {
	for _, m := range methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported payment method '%s'", s)
}

// IsDeferred tells if settlement happens later, after the buyer transferred the money
func (m Method) IsDeferred() bool {
	return m == MethodBankTransfer || m == MethodVirtualAccount
}

type Request struct {
	OrderUID      string
	OrderName     string
	Amount        int64
	Currency      string
	Method        Method
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	SuccessURL    string
	FailURL       string
}

// Handoff tells where the buyer must go to complete the payment
type Handoff struct {
	ProviderName string
	PaymentKey   string
	RedirectURL  string
}

// Confirmation is what the provider hands back on the success callback
type Confirmation struct {
	PaymentKey string
	OrderUID   string
	Amount     int64
}

type Status string

const (
	StatusDone             Status = "done"
	StatusWaitingOnDeposit Status = "waiting-on-deposit"
	StatusFailed           Status = "failed"
)

type Result struct {
	Status      Status
	Method      string
	FailureCode string
}

//go:generate mockgen -source=api.go -package payment -destination collaborator_mock.go Collaborator
type Collaborator interface {
	Name() string
	RequestPayment(c context.Context, req Request) (Handoff, error)
	ConfirmPayment(c context.Context, confirmation Confirmation) (Result, error)
}
