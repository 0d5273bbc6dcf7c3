// Package paymenttoss talks to the Toss Payments REST api. A payment is created server-side, the buyer
// approves it on the Toss checkout page and the success callback is confirmed with the confirm api.
package paymenttoss

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/myhttpclient"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

const (
	providerName   = "toss"
	DefaultBaseURL = "https://api.tosspayments.com"
)

type Config struct {
	SecretKey string
	BaseURL   string
}

type collaborator struct {
	baseURL string
	client  myhttpclient.HTTPSender
	logger  mylog.Logger
}

func New(cfg Config) payment.Collaborator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return newCollaborator(baseURL, myhttpclient.New(providerName, map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.SecretKey+":")),
	}))
}

func newCollaborator(baseURL string, client myhttpclient.HTTPSender) *collaborator {
	return &collaborator{
		baseURL: baseURL,
		client:  client,
		logger:  mylog.New(providerName),
	}
}

func (p *collaborator) Name() string {
	return providerName
}

type createPaymentRequest struct {
	Method        string `json:"method"`
	Amount        int64  `json:"amount"`
	OrderID       string `json:"orderId"`
	OrderName     string `json:"orderName"`
	SuccessURL    string `json:"successUrl"`
	FailURL       string `json:"failUrl"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	CustomerPhone string `json:"customerMobilePhone,omitempty"`
	EasyPay       string `json:"easyPay,omitempty"`
}

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type tossPayment struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	Method      string `json:"method"`
	TotalAmount int64  `json:"totalAmount"`
	Checkout    struct {
		URL string `json:"url"`
	} `json:"checkout"`
}

type tossError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// tossMethods maps our methods onto the method names of the payment creation api
var tossMethods = map[payment.Method]struct {
	method  string
	easyPay string
}{
	payment.MethodCard:           {method: "카드"},
	payment.MethodBankTransfer:   {method: "계좌이체"},
	payment.MethodVirtualAccount: {method: "가상계좌"},
	payment.MethodNaverPay:       {method: "간편결제", easyPay: "네이버페이"},
	payment.MethodKakaoPay:       {method: "간편결제", easyPay: "카카오페이"},
	payment.MethodTossPay:        {method: "간편결제", easyPay: "토스페이"},
	payment.MethodPaypal:         {method: "해외간편결제"},
}

func (p *collaborator) RequestPayment(c context.Context, req payment.Request) (payment.Handoff, error) {
	method, found := tossMethods[req.Method]
	if !found {
		return payment.Handoff{}, myerrors.NewInvalidInputError(fmt.Errorf("payment method '%s' not supported by %s", req.Method, providerName))
	}

	body, err := json.Marshal(createPaymentRequest{
		Method:        method.method,
		EasyPay:       method.easyPay,
		Amount:        req.Amount,
		OrderID:       req.OrderUID,
		OrderName:     req.OrderName,
		SuccessURL:    req.SuccessURL,
		FailURL:       req.FailURL,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		return payment.Handoff{}, myerrors.NewInternalError(err)
	}

	status, respBody, err := p.client.Send(c, http.MethodPost, p.baseURL+"/v1/payments", body)
	if err != nil {
		return payment.Handoff{}, myerrors.NewUnavailableError(fmt.Errorf("error creating toss payment for order %s: %s", req.OrderUID, err))
	}
	if status != http.StatusOK {
		tErr := parseError(respBody)
		return payment.Handoff{}, myerrors.NewInvalidInputError(fmt.Errorf("toss refused payment for order %s: %s (%s)", req.OrderUID, tErr.Code, tErr.Message))
	}

	resp := tossPayment{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return payment.Handoff{}, myerrors.NewInternalError(fmt.Errorf("error parsing toss payment: %s", err))
	}
	if resp.Checkout.URL == "" {
		return payment.Handoff{}, myerrors.NewInternalError(fmt.Errorf("toss payment %s has no checkout url", resp.PaymentKey))
	}

	p.logger.Log(c, req.OrderUID, mylog.SeverityInfo, "Created toss payment %s for order %s", resp.PaymentKey, req.OrderUID)

	return payment.Handoff{
		ProviderName: providerName,
		PaymentKey:   resp.PaymentKey,
		RedirectURL:  resp.Checkout.URL,
	}, nil
}

func (p *collaborator) ConfirmPayment(c context.Context, confirmation payment.Confirmation) (payment.Result, error) {
	body, err := json.Marshal(confirmRequest{
		PaymentKey: confirmation.PaymentKey,
		OrderID:    confirmation.OrderUID,
		Amount:     confirmation.Amount,
	})
	if err != nil {
		return payment.Result{}, myerrors.NewInternalError(err)
	}

	status, respBody, err := p.client.Send(c, http.MethodPost, p.baseURL+"/v1/payments/confirm", body)
	if err != nil {
		return payment.Result{}, myerrors.NewUnavailableError(fmt.Errorf("error confirming toss payment %s: %s", confirmation.PaymentKey, err))
	}
	if status != http.StatusOK {
		tErr := parseError(respBody)
		p.logger.Log(c, confirmation.OrderUID, mylog.SeverityWarn, "Toss refused confirmation of %s: %s (%s)", confirmation.PaymentKey, tErr.Code, tErr.Message)
		return payment.Result{Status: payment.StatusFailed, FailureCode: tErr.Code}, nil
	}

	resp := tossPayment{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return payment.Result{}, myerrors.NewInternalError(fmt.Errorf("error parsing toss confirmation: %s", err))
	}

	return payment.Result{
		Status: classifyStatus(resp.Status),
		Method: resp.Method,
	}, nil
}

func classifyStatus(status string) payment.Status {
	switch status {
	case "DONE":
		return payment.StatusDone
	case "WAITING_FOR_DEPOSIT":
		return payment.StatusWaitingOnDeposit
	default:
		return payment.StatusFailed
	}
}

func parseError(body []byte) tossError {
	tErr := tossError{}
	err := json.Unmarshal(body, &tErr)
	if err != nil || tErr.Code == "" {
		return tossError{Code: payment.FailureAborted, Message: string(body)}
	}
	return tErr
}
