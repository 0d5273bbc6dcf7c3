package checkout

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/myhttp"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
	"github.com/MarcGrol/sheetmusicshop/lib/myqueue"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/lib/myuuid"
	"github.com/MarcGrol/sheetmusicshop/services/cart/cartapi"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityapi"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderapi"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, stateStore mystore.Store[CheckoutState], attemptStore mystore.Store[PaymentAttempt],
	carts cartapi.Sessions, identity identityapi.Reader, collaborator payment.Collaborator, orders orderapi.Recorder,
	queue myqueue.TaskQueuer, nower mytime.Nower, uuider myuuid.UUIDer, pub mypublisher.Publisher) *webService {
	logger := mylog.New("checkout")
	return &webService{
		logger:  logger,
		service: newService(cfg, stateStore, attemptStore, carts, identity, collaborator, orders, queue, nower, uuider, logger, pub),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/checkout", s.beginPage()).Methods("POST")
	router.HandleFunc("/api/checkout", s.getPage()).Methods("GET")
	router.HandleFunc("/api/checkout", s.abandonPage()).Methods("DELETE")
	router.HandleFunc("/api/checkout/terms", s.acceptTermsPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/guest", s.guestContactPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/proceed", s.proceedPage()).Methods("POST")
	router.HandleFunc("/api/checkout/back", s.backPage()).Methods("POST")
	router.HandleFunc("/api/checkout/payment", s.submitPaymentPage()).Methods("POST")
	router.HandleFunc("/api/checkout/retry", s.retryPage()).Methods("POST")

	// The payment provider redirects the buyer to one of these endpoints
	router.HandleFunc("/payment-success", s.paymentSuccessPage()).Methods("GET")
	router.HandleFunc("/payment-fail", s.paymentFailPage()).Methods("GET")

	// Called by the task queue once the deadline of an attempt has passed
	router.HandleFunc("/api/checkout/timeout/{orderUID}", s.timeoutPage()).Methods("PUT")

	return s.service.CreateTopics(c)
}

type termsForm struct {
	Accepted bool `form:"accepted"`
}

type guestContact struct {
	Name  string `form:"name"`
	Email string `form:"email"`
	Phone string `form:"phone"`
}

type paymentForm struct {
	Method string `form:"method"`
}

type successQuery struct {
	PaymentKey string `form:"paymentKey"`
	OrderID    string `form:"orderId"`
	Amount     int64  `form:"amount"`
}

type failQuery struct {
	Code    string `form:"code"`
	Message string `form:"message"`
	OrderID string `form:"orderId"`
}

func decode(dest interface{}, values url.Values) error {
	err := formcodec.NewDecoder().Decode(dest, values)
	if err != nil {
		return myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}
	return nil
}

func decodeForm(r *http.Request, dest interface{}) error {
	err := r.ParseForm()
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}
	return decode(dest, r.Form)
}

// sessionAction serves the endpoints that act on the funnel of the calling session without further input
func (s *webService) sessionAction(errorCode int, action func(c context.Context, sessionUID string) (CheckoutState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		state, err := action(c, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, errorCode, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, state)
	}
}

func (s *webService) beginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		state, err := s.service.begin(c, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, state)
	}
}

func (s *webService) getPage() http.HandlerFunc {
	return s.sessionAction(2, s.service.get)
}

func (s *webService) abandonPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := s.service.abandon(c, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Checkout abandoned",
		})
	}
}

func (s *webService) acceptTermsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form := termsForm{}
		err := decodeForm(r, &form)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		state, err := s.service.acceptTerms(c, mycontext.SessionUIDFromContext(c), form.Accepted)
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, state)
	}
}

func (s *webService) guestContactPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		contact := guestContact{}
		err := decodeForm(r, &contact)
		if err != nil {
			errorWriter.WriteError(c, w, 6, err)
			return
		}

		state, err := s.service.setGuestContact(c, mycontext.SessionUIDFromContext(c), contact)
		if err != nil {
			errorWriter.WriteError(c, w, 7, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, state)
	}
}

func (s *webService) proceedPage() http.HandlerFunc {
	return s.sessionAction(8, s.service.proceed)
}

func (s *webService) backPage() http.HandlerFunc {
	return s.sessionAction(9, s.service.back)
}

func (s *webService) retryPage() http.HandlerFunc {
	return s.sessionAction(10, s.service.retry)
}

func (s *webService) submitPaymentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form := paymentForm{}
		err := decodeForm(r, &form)
		if err != nil {
			errorWriter.WriteError(c, w, 11, err)
			return
		}

		state, err := s.service.submitPayment(c, mycontext.SessionUIDFromContext(c), payment.Method(form.Method), myhttp.HostnameWithScheme(r))
		if err != nil {
			errorWriter.WriteError(c, w, 12, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, state)
	}
}

func (s *webService) paymentSuccessPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		query := successQuery{}
		err := decode(&query, r.URL.Query())
		if err != nil {
			errorWriter.WriteError(c, w, 13, err)
			return
		}
		if query.OrderID == "" {
			errorWriter.WriteError(c, w, 14, myerrors.NewInvalidInputErrorf("missing orderId"))
			return
		}

		state, err := s.service.paymentSucceeded(c, payment.Confirmation{
			PaymentKey: query.PaymentKey,
			OrderUID:   query.OrderID,
			Amount:     query.Amount,
		})
		if err != nil {
			errorWriter.WriteError(c, w, 15, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, state)
	}
}

func (s *webService) paymentFailPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		query := failQuery{}
		err := decode(&query, r.URL.Query())
		if err != nil {
			errorWriter.WriteError(c, w, 16, err)
			return
		}
		if query.OrderID == "" {
			errorWriter.WriteError(c, w, 17, myerrors.NewInvalidInputErrorf("missing orderId"))
			return
		}

		state, err := s.service.paymentFailed(c, query.OrderID, query.Code, query.Message)
		if err != nil {
			errorWriter.WriteError(c, w, 18, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, state)
	}
}

func (s *webService) timeoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		orderUID := mux.Vars(r)["orderUID"]

		_, err := s.service.timeout(c, orderUID)
		if err != nil {
			errorWriter.WriteError(c, w, 19, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: fmt.Sprintf("Deadline of order %s processed", orderUID),
		})
	}
}
