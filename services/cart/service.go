package cart

import (
	"golang.org/x/sync/singleflight"

	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/services/cart/cartapi"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
)

// demoSeedPositions are the positions in the visible catalog that a new cart is seeded with in demo mode
var demoSeedPositions = []int{0, 2, 4}

type service struct {
	cartStore mystore.Store[cartapi.CartSession]
	catalog   catalogapi.Reader
	nower     mytime.Nower
	logger    mylog.Logger
	demoSeed  bool
	loads     singleflight.Group
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[cartapi.CartSession], catalog catalogapi.Reader, nower mytime.Nower, logger mylog.Logger, demoSeed bool) *service {
	return &service{
		cartStore: store,
		catalog:   catalog,
		nower:     nower,
		logger:    logger,
		demoSeed:  demoSeed,
	}
}
