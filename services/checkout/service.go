package checkout

import (
	"time"

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

const (
	defaultPaymentTimeout = 10 * time.Minute
	defaultCurrency       = "KRW"
)

type Config struct {
	// PaymentTimeout bounds how long a payment attempt waits for the provider outcome
	PaymentTimeout time.Duration
	Currency       string
	TermsVersion   string
}

type service struct {
	cfg          Config
	stateStore   mystore.Store[CheckoutState]
	attemptStore mystore.Store[PaymentAttempt]
	carts        cartapi.Sessions
	identity     identityapi.Reader
	collaborator payment.Collaborator
	orders       orderapi.Recorder
	queue        myqueue.TaskQueuer
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	logger       mylog.Logger
	publisher    mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(cfg Config, stateStore mystore.Store[CheckoutState], attemptStore mystore.Store[PaymentAttempt],
	carts cartapi.Sessions, identity identityapi.Reader, collaborator payment.Collaborator, orders orderapi.Recorder,
	queue myqueue.TaskQueuer, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger, pub mypublisher.Publisher) *service {
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = defaultPaymentTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	return &service{
		cfg:          cfg,
		stateStore:   stateStore,
		attemptStore: attemptStore,
		carts:        carts,
		identity:     identity,
		collaborator: collaborator,
		orders:       orders,
		queue:        queue,
		nower:        nower,
		uuider:       uuider,
		logger:       logger,
		publisher:    pub,
	}
}
