package orders

import (
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderapi"
)

type service struct {
	orderStore mystore.Store[orderapi.OrderRecord]
	nower      mytime.Nower
	logger     mylog.Logger
	publisher  mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[orderapi.OrderRecord], nower mytime.Nower, logger mylog.Logger, pub mypublisher.Publisher) *service {
	return &service{
		orderStore: store,
		nower:      nower,
		logger:     logger,
		publisher:  pub,
	}
}
