package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/sheetmusicshop/lib/myevents"
	"github.com/MarcGrol/sheetmusicshop/lib/myhttp"
	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
	"github.com/MarcGrol/sheetmusicshop/lib/mypubsub"
	"github.com/MarcGrol/sheetmusicshop/lib/myqueue"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/lib/myuuid"
	"github.com/MarcGrol/sheetmusicshop/services/cart"
	"github.com/MarcGrol/sheetmusicshop/services/cart/cartapi"
	"github.com/MarcGrol/sheetmusicshop/services/catalog"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
	"github.com/MarcGrol/sheetmusicshop/services/checkout"
	"github.com/MarcGrol/sheetmusicshop/services/identity"
	"github.com/MarcGrol/sheetmusicshop/services/notification"
	"github.com/MarcGrol/sheetmusicshop/services/orders"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderapi"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
	"github.com/MarcGrol/sheetmusicshop/services/paymentadyen"
	"github.com/MarcGrol/sheetmusicshop/services/paymentfake"
	"github.com/MarcGrol/sheetmusicshop/services/paymentmollie"
	"github.com/MarcGrol/sheetmusicshop/services/paymentstripe"
	"github.com/MarcGrol/sheetmusicshop/services/paymenttoss"
	"github.com/MarcGrol/sheetmusicshop/services/termsconditions"
	"github.com/MarcGrol/sheetmusicshop/services/warmup"
)

func main() {
	c := context.Background()

	cfg, err := configFromEnv(os.Getenv)
	if err != nil {
		log.Fatalf("Error reading configuration: %s", err)
	}

	router, cleanup, err := createRouter(c, cfg)
	defer cleanup()
	if err != nil {
		log.Fatalf("Error starting services: %s", err)
	}

	startWebServerBlocking(cfg.Port, router)
}

func createRouter(c context.Context, cfg Config) (*mux.Router, func(), error) {
	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	router := mux.NewRouter()
	router.Use(myhttp.SessionMiddleware(uuider))

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		return nil, cleanup, fmt.Errorf("error creating pubsub: %s", err)
	}
	cleanups = append(cleanups, pubsubCleanup)

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		return nil, cleanup, fmt.Errorf("error creating queue: %s", err)
	}
	cleanups = append(cleanups, queueCleanup)

	outboxStore, outboxCleanup, err := mystore.New[myevents.EventEnvelope](c)
	if err != nil {
		return nil, cleanup, fmt.Errorf("error creating outbox store: %s", err)
	}
	cleanups = append(cleanups, outboxCleanup)

	publisher := mypublisher.New(c, outboxStore, pubsub, queue, nower)
	publisher.RegisterEndpoints(c, router)

	{
		memberStore, memberCleanup, err := mystore.New[identity.Member](c)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error creating member store: %s", err)
		}
		cleanups = append(cleanups, memberCleanup)

		sessionStore, sessionCleanup, err := mystore.New[identity.SessionIdentity](c)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error creating session store: %s", err)
		}
		cleanups = append(cleanups, sessionCleanup)

		identityService := identity.NewWebService(memberStore, sessionStore, cfg.AdminEmails, nower, publisher)
		err = identityService.RegisterEndpoints(c, router)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error registering identity endpoints: %s", err)
		}
		identityReader := identityService.Reader()

		catalogStore, catalogCleanup, err := mystore.New[catalogapi.CatalogItem](c)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error creating catalog store: %s", err)
		}
		cleanups = append(cleanups, catalogCleanup)

		catalogService := catalog.NewWebService(catalogStore, nower, uuider, identityReader, publisher)
		err = catalogService.RegisterEndpoints(c, router)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error registering catalog endpoints: %s", err)
		}
		if cfg.DemoSeed {
			err = catalogService.Seed(c)
			if err != nil {
				return nil, cleanup, fmt.Errorf("error seeding catalog: %s", err)
			}
		}
		catalogReader := catalogapi.NewReader(catalogStore)

		cartStore, cartCleanup, err := mystore.New[cartapi.CartSession](c)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error creating cart store: %s", err)
		}
		cleanups = append(cleanups, cartCleanup)

		cartService := cart.NewWebService(cart.Config{DemoSeed: cfg.DemoSeed}, cartStore, catalogReader, nower)
		cartService.RegisterEndpoints(c, router)

		orderStore, orderCleanup, err := newOrderStore(c, cfg)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error creating order store: %s", err)
		}
		cleanups = append(cleanups, orderCleanup)

		orderService := orders.NewWebService(orderStore, identityReader, nower, publisher)
		err = orderService.RegisterEndpoints(c, router)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error registering order endpoints: %s", err)
		}

		collaborator, collaboratorCleanup, err := newCollaborator(c, cfg, uuider)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error creating payment collaborator: %s", err)
		}
		cleanups = append(cleanups, collaboratorCleanup)

		stateStore, stateCleanup, err := mystore.New[checkout.CheckoutState](c)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error creating checkout store: %s", err)
		}
		cleanups = append(cleanups, stateCleanup)

		attemptStore, attemptCleanup, err := mystore.New[checkout.PaymentAttempt](c)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error creating payment attempt store: %s", err)
		}
		cleanups = append(cleanups, attemptCleanup)

		checkoutService := checkout.NewWebService(checkout.Config{
			PaymentTimeout: cfg.PaymentTimeout,
			Currency:       cfg.Currency,
			TermsVersion:   termsconditions.CurrentVersion,
		}, stateStore, attemptStore, cartService.Sessions(), identityReader, collaborator, orderService.Recorder(), queue, nower, uuider, publisher)
		err = checkoutService.RegisterEndpoints(c, router)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error registering checkout endpoints: %s", err)
		}

		err = termsconditions.NewService(publisher).RegisterEndpoints(c, router)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error registering terms endpoints: %s", err)
		}

		warmup.NewService(catalogReader).RegisterEndpoints(c, router)
	}

	{
		notificationService := notification.NewWebService(notification.NewSender(cfg.SMTP), pubsub)
		err = notificationService.RegisterEndpoints(c, router)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error registering notification endpoints: %s", err)
		}
	}

	return router, cleanup, nil
}

// newOrderStore keeps orders in postgres when configured, next to the generic store otherwise
func newOrderStore(c context.Context, cfg Config) (mystore.Store[orderapi.OrderRecord], func(), error) {
	if cfg.DatabaseURL == "" {
		return mystore.New[orderapi.OrderRecord](c)
	}

	pool, cleanup, err := mystore.ConnectPostgres(c, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	return mystore.NewPostgresStore[orderapi.OrderRecord](pool), cleanup, nil
}

func newCollaborator(c context.Context, cfg Config, uuider myuuid.UUIDer) (payment.Collaborator, func(), error) {
	noCleanup := func() {}

	switch cfg.PaymentProvider {
	case providerToss:
		return paymenttoss.New(cfg.Toss), noCleanup, nil
	case providerStripe:
		return paymentstripe.New(cfg.StripeAPIKey, paymentstripe.NewPayer()), noCleanup, nil
	case providerMollie:
		payer, err := paymentmollie.NewPayer(cfg.MollieTestMode)
		if err != nil {
			return nil, noCleanup, err
		}
		return paymentmollie.New(cfg.MollieAPIKey, payer), noCleanup, nil
	case providerAdyen:
		return paymentadyen.New(cfg.Adyen, paymentadyen.NewPayer(cfg.AdyenEnv)), noCleanup, nil
	default:
		return paymentfake.New(c, cfg.Fake, uuider)
	}
}

func startWebServerBlocking(port string, router *mux.Router) {
	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
