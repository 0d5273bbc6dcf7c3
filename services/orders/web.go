package orders

import (
	"context"
	"fmt"
	"net/http"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/myhttp"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityapi"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderapi"
)

type webService struct {
	logger   mylog.Logger
	identity identityapi.Reader
	service  *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(store mystore.Store[orderapi.OrderRecord], identity identityapi.Reader, nower mytime.Nower, pub mypublisher.Publisher) *webService {
	logger := mylog.New("orders")
	return &webService{
		logger:   logger,
		identity: identity,
		service:  newService(store, nower, logger, pub),
	}
}

// Recorder lets the checkout append completed orders
func (s *webService) Recorder() orderapi.Recorder {
	return s.service
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/orders", s.myOrdersPage()).Methods("GET")
	router.HandleFunc("/api/orders/lookup", s.lookupGuestOrdersPage()).Methods("POST")
	router.HandleFunc("/api/orders/{orderUID}", s.myOrderPage()).Methods("GET")

	router.HandleFunc("/api/admin/orders", s.adminListOrdersPage()).Methods("GET")
	router.HandleFunc("/api/admin/orders/{orderUID}/status/{status}", s.adminChangeStatusPage()).Methods("PUT")

	return s.service.CreateTopics(c)
}

func (s *webService) myOrdersPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		member, err := identityapi.RequireMember(c, s.identity, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		records, err := s.service.listOrdersOfBuyer(c, member.Email)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, records)
	}
}

func (s *webService) myOrderPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		identity, err := s.identity.Current(c, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		orderUID := mux.Vars(r)["orderUID"]
		record, err := s.service.getOrder(c, orderUID)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		// an order is visible to its buyer, to the session that placed it and to admins
		ownedByMember := identity.IsMember() && identity.Email == record.BuyerEmail
		placedInSession := record.SessionUID == identity.SessionUID
		if !ownedByMember && !placedInSession && !identity.IsAdmin() {
			errorWriter.WriteError(c, w, 5, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID)))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, record)
	}
}

type lookupRequest struct {
	Email string `form:"email"`
	Phone string `form:"phone"`
}

func (s *webService) lookupGuestOrdersPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := r.ParseForm()
		if err != nil {
			errorWriter.WriteError(c, w, 6, myerrors.NewInvalidInputError(err))
			return
		}
		req := lookupRequest{}
		err = formcodec.NewDecoder().Decode(&req, r.Form)
		if err != nil {
			errorWriter.WriteError(c, w, 7, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err)))
			return
		}

		records, err := s.service.lookupGuestOrders(c, req.Email, req.Phone)
		if err != nil {
			errorWriter.WriteError(c, w, 8, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, records)
	}
}

func (s *webService) adminListOrdersPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := identityapi.RequireAdmin(c, s.identity, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 9, err)
			return
		}

		records, err := s.service.listOrders(c, r.URL.Query().Get("status"), r.URL.Query().Get("q"))
		if err != nil {
			errorWriter.WriteError(c, w, 10, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, records)
	}
}

func (s *webService) adminChangeStatusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := identityapi.RequireAdmin(c, s.identity, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 11, err)
			return
		}

		orderUID := mux.Vars(r)["orderUID"]
		status := mux.Vars(r)["status"]

		record, err := s.service.changeStatus(c, orderUID, status)
		if err != nil {
			errorWriter.WriteError(c, w, 12, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, record)
	}
}
