package notification

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
	"github.com/MarcGrol/sheetmusicshop/lib/myhttp"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mypubsub"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityevents"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderevents"
)

const (
	orderEventPath  = "/api/notification/order/event"
	memberEventPath = "/api/notification/member/event"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(sender Sender, subscriber mypubsub.PubSub) *webService {
	logger := mylog.New("notification")
	return &webService{
		logger:  logger,
		service: newService(sender, subscriber, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc(orderEventPath, s.handleOrderEvent()).Methods("POST")
	router.HandleFunc(memberEventPath, s.handleMemberEvent()).Methods("POST")

	return s.service.Subscribe(c)
}

func (s *webService) handleOrderEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := orderevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}

func (s *webService) handleMemberEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := identityevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}
