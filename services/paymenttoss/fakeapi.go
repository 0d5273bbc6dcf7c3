package paymenttoss

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/myuuid"
)

type fakeAPI struct {
	uuider   myuuid.RealUUIDer
	payments *mystore.InMemoryStore[fakePayment]
}

type fakePayment struct {
	Request   createPaymentRequest
	Key       string
	Confirmed bool
}

// NewFakeAPI behaves like the Toss payment creation and confirm api. The checkout url it hands out
// points straight at the success url, as if the buyer approved the payment.
func NewFakeAPI() http.Handler {
	store, _, _ := mystore.NewInMemoryStore[fakePayment](context.Background())
	api := &fakeAPI{payments: store}

	router := mux.NewRouter()
	router.HandleFunc("/v1/payments", api.create).Methods("POST")
	router.HandleFunc("/v1/payments/confirm", api.confirm).Methods("POST")
	return router
}

func (a *fakeAPI) create(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
		writeJSON(w, http.StatusUnauthorized, tossError{Code: "UNAUTHORIZED_KEY", Message: "인증되지 않은 시크릿 키 혹은 클라이언트 키 입니다."})
		return
	}

	req := createPaymentRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.OrderID == "" || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, tossError{Code: "INVALID_REQUEST", Message: "잘못된 요청입니다."})
		return
	}

	key := "tgen_" + strings.ReplaceAll(a.uuider.Create(), "-", "")
	err = a.payments.Put(r.Context(), key, fakePayment{Request: req, Key: key})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, tossError{Code: "FAILED_INTERNAL_SYSTEM_PROCESSING", Message: err.Error()})
		return
	}

	checkoutURL, err := url.Parse(req.SuccessURL)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, tossError{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}
	q := checkoutURL.Query()
	q.Set("paymentKey", key)
	q.Set("orderId", req.OrderID)
	q.Set("amount", strconv.FormatInt(req.Amount, 10))
	checkoutURL.RawQuery = q.Encode()

	resp := tossPayment{PaymentKey: key, OrderID: req.OrderID, Status: "READY", Method: req.Method, TotalAmount: req.Amount}
	resp.Checkout.URL = checkoutURL.String()
	writeJSON(w, http.StatusOK, resp)
}

func (a *fakeAPI) confirm(w http.ResponseWriter, r *http.Request) {
	req := confirmRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, tossError{Code: "INVALID_REQUEST", Message: "잘못된 요청입니다."})
		return
	}

	var status int
	var body interface{}
	err = a.payments.RunInTransaction(r.Context(), func(c context.Context) error {
		p, found, err := a.payments.Get(c, req.PaymentKey)
		if err != nil {
			return err
		}
		switch {
		case !found:
			status, body = http.StatusNotFound, tossError{Code: "NOT_FOUND_PAYMENT", Message: "존재하지 않는 결제 정보 입니다."}
		case p.Confirmed:
			status, body = http.StatusBadRequest, tossError{Code: "ALREADY_PROCESSED_PAYMENT", Message: "이미 처리된 결제 입니다."}
		case p.Request.OrderID != req.OrderID || p.Request.Amount != req.Amount:
			status, body = http.StatusBadRequest, tossError{Code: "INVALID_REQUEST", Message: "결제 금액이 일치하지 않습니다."}
		default:
			p.Confirmed = true
			tossStatus := "DONE"
			if p.Request.Method == "가상계좌" {
				tossStatus = "WAITING_FOR_DEPOSIT"
			}
			status, body = http.StatusOK, tossPayment{PaymentKey: p.Key, OrderID: p.Request.OrderID, Status: tossStatus, Method: p.Request.Method, TotalAmount: p.Request.Amount}
			return a.payments.Put(c, p.Key, p)
		}
		return nil
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, tossError{Code: "FAILED_INTERNAL_SYSTEM_PROCESSING", Message: err.Error()})
		return
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
