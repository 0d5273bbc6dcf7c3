package cart

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/myhttp"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/services/cart/cartapi"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
)

type Config struct {
	DemoSeed bool
}

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, store mystore.Store[cartapi.CartSession], catalog catalogapi.Reader, nower mytime.Nower) *webService {
	logger := mylog.New("cart")
	return &webService{
		logger:  logger,
		service: newService(store, catalog, nower, logger, cfg.DemoSeed),
	}
}

// Sessions gives the checkout access to the cart of a session
func (s *webService) Sessions() cartapi.Sessions {
	return s.service
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/api/cart", s.getCartPage()).Methods("GET")
	router.HandleFunc("/api/cart/items", s.addItemPage()).Methods("POST")
	router.HandleFunc("/api/cart/items/{itemUID}", s.removeItemPage()).Methods("DELETE")
	router.HandleFunc("/api/cart", s.clearCartPage()).Methods("DELETE")
}

type cartView struct {
	SessionUID string
	Entries    []cartapi.CartEntry
	Version    int64
	TotalCount int
	TotalPrice int64
	Notices    []cartapi.Notice
}

func toCartView(session cartapi.CartSession, notices []cartapi.Notice) cartView {
	if notices == nil {
		notices = []cartapi.Notice{}
	}
	return cartView{
		SessionUID: session.SessionUID,
		Entries:    session.Entries,
		Version:    session.Version,
		TotalCount: session.TotalCount(),
		TotalPrice: session.TotalPrice(),
		Notices:    notices,
	}
}

func (s *webService) getCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		session, notices, err := s.service.Load(c, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		writeCart(c, w, errorWriter, session, notices)
	}
}

func (s *webService) addItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		expectedVersion, err := parseIfMatch(r)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		err = r.ParseForm()
		if err != nil {
			errorWriter.WriteError(c, w, 3, myerrors.NewInvalidInputError(err))
			return
		}
		itemUID := r.Form.Get("itemUID")
		if itemUID == "" {
			errorWriter.WriteError(c, w, 4, myerrors.NewInvalidInputErrorf("missing itemUID"))
			return
		}

		session, notices, err := s.service.add(c, mycontext.SessionUIDFromContext(c), itemUID, expectedVersion)
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}

		writeCart(c, w, errorWriter, session, notices)
	}
}

func (s *webService) removeItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		expectedVersion, err := parseIfMatch(r)
		if err != nil {
			errorWriter.WriteError(c, w, 6, err)
			return
		}

		itemUID := mux.Vars(r)["itemUID"]

		session, notices, err := s.service.remove(c, mycontext.SessionUIDFromContext(c), itemUID, expectedVersion)
		if err != nil {
			errorWriter.WriteError(c, w, 7, err)
			return
		}

		writeCart(c, w, errorWriter, session, notices)
	}
}

func (s *webService) clearCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		expectedVersion, err := parseIfMatch(r)
		if err != nil {
			errorWriter.WriteError(c, w, 8, err)
			return
		}

		session, notices, err := s.service.clear(c, mycontext.SessionUIDFromContext(c), expectedVersion)
		if err != nil {
			errorWriter.WriteError(c, w, 9, err)
			return
		}

		writeCart(c, w, errorWriter, session, notices)
	}
}

func writeCart(c context.Context, w http.ResponseWriter, writer myhttp.ResponseWriter, session cartapi.CartSession, notices []cartapi.Notice) {
	w.Header().Set("ETag", fmt.Sprintf(`"%d"`, session.Version))
	writer.Write(c, w, http.StatusOK, toCartView(session, notices))
}

// parseIfMatch returns the cart version the client based its change on, or nil when it did not say
func parseIfMatch(r *http.Request) (*int64, error) {
	value := strings.TrimSpace(r.Header.Get("If-Match"))
	if value == "" || value == "*" {
		return nil, nil
	}
	value = strings.Trim(strings.TrimPrefix(value, "W/"), `"`)
	version, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, myerrors.NewInvalidInputError(fmt.Errorf("invalid If-Match header '%s'", r.Header.Get("If-Match")))
	}
	return &version, nil
}
