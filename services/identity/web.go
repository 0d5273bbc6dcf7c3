package identity

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

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
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(memberStore mystore.Store[Member], sessionStore mystore.Store[SessionIdentity], adminEmails []string, nower mytime.Nower, pub mypublisher.Publisher) *webService {
	logger := mylog.New("identity")
	return &webService{
		logger:  logger,
		service: newService(memberStore, sessionStore, adminEmails, nower, logger, pub),
	}
}

// Reader exposes who is behind a session to the other services
func (s *webService) Reader() identityapi.Reader {
	return s.service
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/signup", s.signUpPage()).Methods("POST")
	router.HandleFunc("/api/session", s.currentPage()).Methods("GET")
	router.HandleFunc("/api/session/member", s.signInMemberPage()).Methods("POST")
	router.HandleFunc("/api/session/guest", s.signInGuestPage()).Methods("POST")
	router.HandleFunc("/api/session", s.signOutPage()).Methods("DELETE")

	router.HandleFunc("/api/admin/members", s.listMembersPage()).Methods("GET")
	router.HandleFunc("/api/admin/members/{email}/active/{active}", s.setMemberActivePage()).Methods("PUT")

	return s.service.CreateTopics(c)
}

type memberView struct {
	Email     string
	Name      string
	Phone     string
	Active    bool
	CreatedAt time.Time
	LastLogin *time.Time
}

func toMemberView(m Member) memberView {
	return memberView{
		Email:     m.Email,
		Name:      m.Name,
		Phone:     m.Phone,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		LastLogin: m.LastLogin,
	}
}

func (s *webService) signUpPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := r.ParseForm()
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}
		req := signUpRequest{}
		err = formcodec.NewDecoder().Decode(&req, r.Form)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err)))
			return
		}

		member, err := s.service.signUp(c, req)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, toMemberView(member))
	}
}

func (s *webService) currentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		identity, err := s.service.Current(c, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, identity)
	}
}

func (s *webService) signInMemberPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := r.ParseForm()
		if err != nil {
			errorWriter.WriteError(c, w, 5, myerrors.NewInvalidInputError(err))
			return
		}

		identity, err := s.service.signInMember(c, mycontext.SessionUIDFromContext(c), r.Form.Get("email"), r.Form.Get("password"))
		if err != nil {
			errorWriter.WriteError(c, w, 6, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, identity)
	}
}

func (s *webService) signInGuestPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		identity, err := s.service.signInGuest(c, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 7, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, identity)
	}
}

func (s *webService) signOutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := s.service.signOut(c, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 8, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully signed out",
		})
	}
}

func (s *webService) listMembersPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := identityapi.RequireAdmin(c, s.service, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 9, err)
			return
		}

		members, err := s.service.listMembers(c)
		if err != nil {
			errorWriter.WriteError(c, w, 10, err)
			return
		}

		views := []memberView{}
		for _, m := range members {
			views = append(views, toMemberView(m))
		}
		errorWriter.Write(c, w, http.StatusOK, views)
	}
}

func (s *webService) setMemberActivePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := identityapi.RequireAdmin(c, s.service, mycontext.SessionUIDFromContext(c))
		if err != nil {
			errorWriter.WriteError(c, w, 11, err)
			return
		}

		active, err := strconv.ParseBool(mux.Vars(r)["active"])
		if err != nil {
			errorWriter.WriteError(c, w, 12, myerrors.NewInvalidInputError(fmt.Errorf("invalid active flag '%s'", mux.Vars(r)["active"])))
			return
		}

		member, err := s.service.setMemberActive(c, mux.Vars(r)["email"], active)
		if err != nil {
			errorWriter.WriteError(c, w, 13, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, toMemberView(member))
	}
}
