package catalogapi

import (
	"context"

	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
)

//go:generate mockgen -source=reader.go -package catalogapi -destination reader_mock.go Reader
type Reader interface {
	ListItems(c context.Context, visibleOnly bool) ([]CatalogItem, error)
	GetItem(c context.Context, uid string) (CatalogItem, bool, error)
}

type storeReader struct {
	store mystore.Store[CatalogItem]
}

// NewReader gives read-only access to the catalog for the cart and the checkout
func NewReader(store mystore.Store[CatalogItem]) Reader {
	return &storeReader{
		store: store,
	}
}

func (r *storeReader) ListItems(c context.Context, visibleOnly bool) ([]CatalogItem, error) {
	filters := []mystore.Filter{}
	if visibleOnly {
		filters = append(filters, mystore.Filter{Field: "Visible", Compare: "=", Value: true})
	}
	return r.store.Query(c, filters, "-CreatedAt")
}

func (r *storeReader) GetItem(c context.Context, uid string) (CatalogItem, bool, error) {
	return r.store.Get(c, uid)
}
