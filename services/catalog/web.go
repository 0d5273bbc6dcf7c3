package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/myhttp"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/lib/myuuid"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityapi"
)

type webService struct {
	logger   mylog.Logger
	service  *service
	identity identityapi.Reader
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(store mystore.Store[catalogapi.CatalogItem], nower mytime.Nower, uuider myuuid.UUIDer, identity identityapi.Reader, pub mypublisher.Publisher) *webService {
	logger := mylog.New("catalog")
	return &webService{
		logger:   logger,
		service:  newService(store, nower, uuider, logger, pub),
		identity: identity,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/catalog", s.listItemsPage()).Methods("GET")
	router.HandleFunc("/api/catalog/{itemUID}", s.getItemPage()).Methods("GET")

	router.HandleFunc("/api/admin/catalog", s.adminListItemsPage()).Methods("GET")
	router.HandleFunc("/api/admin/catalog", s.createItemPage()).Methods("POST")
	router.HandleFunc("/api/admin/catalog/{itemUID}", s.updateItemPage()).Methods("PUT")
	router.HandleFunc("/api/admin/catalog/{itemUID}/visibility/{visible}", s.setVisibilityPage()).Methods("PUT")
	router.HandleFunc("/api/admin/catalog/{itemUID}", s.removeItemPage()).Methods("DELETE")

	return s.service.CreateTopics(c)
}

// Seed puts demo items in an empty catalog
func (s *webService) Seed(c context.Context) error {
	return s.service.seedIfEmpty(c)
}

func (s *webService) listItemsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		filter, err := filterFromRequest(r, true)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		items, err := s.service.listItems(c, filter)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, items)
	}
}

func (s *webService) getItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		itemUID := mux.Vars(r)["itemUID"]

		item, err := s.service.getItem(c, itemUID, true)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, item)
	}
}

func (s *webService) adminListItemsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := identityapi.RequireAdmin(c, s.identity, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		filter, err := filterFromRequest(r, false)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		items, err := s.service.listItems(c, filter)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, items)
	}
}

func (s *webService) createItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := identityapi.RequireAdmin(c, s.identity, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}

		item, err := itemFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 6, err)
			return
		}

		item, err = s.service.createItem(c, item)
		if err != nil {
			errorWriter.WriteError(c, w, 7, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, item)
	}
}

func (s *webService) updateItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := identityapi.RequireAdmin(c, s.identity, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 8, err)
			return
		}

		itemUID := mux.Vars(r)["itemUID"]

		item, err := itemFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 9, err)
			return
		}

		item, err = s.service.updateItem(c, itemUID, item)
		if err != nil {
			errorWriter.WriteError(c, w, 10, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, item)
	}
}

func (s *webService) setVisibilityPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := identityapi.RequireAdmin(c, s.identity, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 11, err)
			return
		}

		itemUID := mux.Vars(r)["itemUID"]
		visible, err := strconv.ParseBool(mux.Vars(r)["visible"])
		if err != nil {
			errorWriter.WriteError(c, w, 12, myerrors.NewInvalidInputError(fmt.Errorf("invalid visibility '%s'", mux.Vars(r)["visible"])))
			return
		}

		item, err := s.service.setVisibility(c, itemUID, visible)
		if err != nil {
			errorWriter.WriteError(c, w, 13, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, item)
	}
}

func (s *webService) removeItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := identityapi.RequireAdmin(c, s.identity, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 14, err)
			return
		}

		itemUID := mux.Vars(r)["itemUID"]

		err = s.service.removeItem(c, itemUID)
		if err != nil {
			errorWriter.WriteError(c, w, 15, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: fmt.Sprintf("Successfully removed catalog item %s", itemUID),
		})
	}
}
