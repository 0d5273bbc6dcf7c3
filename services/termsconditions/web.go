package termsconditions

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
	"github.com/MarcGrol/sheetmusicshop/lib/myhttp"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
)

// CurrentVersion is recorded with every acceptance
const CurrentVersion = "2024.1"

//go:embed terms_ko.txt
var termsText string

type TermsConditions struct {
	Version string
	Text    string
}

type webService struct {
	logger    mylog.Logger
	publisher mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(pub mypublisher.Publisher) *webService {
	logger := mylog.New("termsconditions")

	return &webService{
		logger:    logger,
		publisher: pub,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/termsconditions", s.getTermsAndConditions()).Methods("GET")

	return s.CreateTopics(c)
}

// CreateTopics creates the topic that acceptances within the checkout are published on
func (s *webService) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", TopicName, err)
	}

	return nil
}

func (s *webService) getTermsAndConditions() http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		responseWriter.Write(c, w, http.StatusOK, TermsConditions{
			Version: CurrentVersion,
			Text:    termsText,
		})
	}
}
