package catalog

import (
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/lib/myuuid"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
)

const uidPrefix = "product_"

type service struct {
	itemStore mystore.Store[catalogapi.CatalogItem]
	nower     mytime.Nower
	uuider    myuuid.UUIDer
	logger    mylog.Logger
	publisher mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[catalogapi.CatalogItem], nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger, pub mypublisher.Publisher) *service {
	return &service{
		itemStore: store,
		nower:     nower,
		uuider:    uuider,
		logger:    logger,
		publisher: pub,
	}
}
