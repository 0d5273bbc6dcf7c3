package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/services/cart/cartapi"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
)

var catalogItems = []catalogapi.CatalogItem{
	{UID: "product_0", Title: "Gymnopédie No.1", Price: 15000, Visible: true, CreatedAt: mytime.ExampleTime},
	{UID: "product_1", Title: "Clair de Lune", Price: 22000, Visible: true, CreatedAt: mytime.ExampleTime.Add(-1 * time.Minute)},
	{UID: "product_2", Title: "River Flows in You", Price: 12000, Visible: true, CreatedAt: mytime.ExampleTime.Add(-2 * time.Minute)},
	{UID: "product_3", Title: "Canon in D", Price: 9000, Visible: true, CreatedAt: mytime.ExampleTime.Add(-3 * time.Minute)},
	{UID: "product_4", Title: "Summer", Price: 18000, Visible: true, CreatedAt: mytime.ExampleTime.Add(-4 * time.Minute)},
	{UID: "product_5", Title: "La Campanella", Price: 30000, Visible: false, CreatedAt: mytime.ExampleTime.Add(-5 * time.Minute)},
}

func TestCartService(t *testing.T) {

	t.Run("Get empty cart", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, carts, _ := setup(t, ctrl, Config{})

		// when
		response := doRequest(router, http.MethodGet, "/api/cart", nil, "")

		// then
		assert.Equal(t, 200, response.Code)
		got := cartOf(t, response)
		assert.Empty(t, got.Entries)
		assert.Equal(t, int64(0), got.Version)
		assert.Equal(t, `"0"`, response.Header().Get("ETag"))
		_, found, _ := carts.Get(c, "session-1")
		assert.False(t, found)
	})

	t.Run("Get new cart with demo seed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, carts, _ := setup(t, ctrl, Config{DemoSeed: true})

		// when
		response := doRequest(router, http.MethodGet, "/api/cart", nil, "")

		// then
		assert.Equal(t, 200, response.Code)
		got := cartOf(t, response)
		assert.Len(t, got.Entries, 3)
		assert.Equal(t, "product_0", got.Entries[0].Item.UID)
		assert.Equal(t, "product_2", got.Entries[1].Item.UID)
		assert.Equal(t, "product_4", got.Entries[2].Item.UID)
		assert.Equal(t, int64(45000), got.TotalPrice)
		stored, found, _ := carts.Get(c, "session-1")
		assert.True(t, found)
		assert.Equal(t, 3, stored.TotalCount())
	})

	t.Run("Add item twice", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, carts, _ := setup(t, ctrl, Config{})

		// when
		response := doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_0"}}, "")

		// then
		assert.Equal(t, 200, response.Code)
		got := cartOf(t, response)
		assert.Len(t, got.Entries, 1)
		assert.Equal(t, int64(1), got.Version)
		assert.Empty(t, got.Notices)

		// when
		response = doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_0"}}, "")

		// then
		assert.Equal(t, 200, response.Code)
		got = cartOf(t, response)
		assert.Len(t, got.Entries, 1)
		assert.Equal(t, int64(1), got.Version)
		require.Len(t, got.Notices, 1)
		assert.Equal(t, cartapi.NoticeAlreadyInCart, got.Notices[0].Code)

		stored, _, _ := carts.Get(c, "session-1")
		assert.Equal(t, 1, stored.TotalCount())
	})

	t.Run("Add unavailable items", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _ := setup(t, ctrl, Config{})

		for _, itemUID := range []string{"product_5", "product_99"} {
			// when
			response := doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {itemUID}}, "")

			// then
			assert.Equal(t, 200, response.Code)
			got := cartOf(t, response)
			assert.Empty(t, got.Entries)
			require.Len(t, got.Notices, 1)
			assert.Equal(t, cartapi.NoticeItemUnavailable, got.Notices[0].Code)
		}
	})

	t.Run("Totals", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _ := setup(t, ctrl, Config{})

		// when
		doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_0"}}, "")
		response := doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_1"}}, "")

		// then
		got := cartOf(t, response)
		assert.Equal(t, 2, got.TotalCount)
		assert.Equal(t, int64(37000), got.TotalPrice)
	})

	t.Run("Remove absent item", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _ := setup(t, ctrl, Config{})
		doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_0"}}, "")

		// when
		response := doRequest(router, http.MethodDelete, "/api/cart/items/product_0", nil, "")
		assert.Equal(t, 200, response.Code)
		response = doRequest(router, http.MethodDelete, "/api/cart/items/product_0", nil, "")

		// then
		assert.Equal(t, 200, response.Code)
		got := cartOf(t, response)
		assert.Empty(t, got.Entries)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("Stale version", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, carts, _ := setup(t, ctrl, Config{})
		doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_0"}}, `"0"`)
		doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_1"}}, `"1"`)

		// when
		response := doRequest(router, http.MethodDelete, "/api/cart", nil, `"1"`)

		// then
		assert.Equal(t, 409, response.Code)
		stored, _, _ := carts.Get(c, "session-1")
		assert.Equal(t, 2, stored.TotalCount())

		// when
		response = doRequest(router, http.MethodDelete, "/api/cart", nil, `"2"`)

		// then
		assert.Equal(t, 200, response.Code)
		stored, _, _ = carts.Get(c, "session-1")
		assert.Equal(t, 0, stored.TotalCount())
		assert.Equal(t, int64(3), stored.Version)
	})

	t.Run("Invalid If-Match", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _ := setup(t, ctrl, Config{})

		// when
		response := doRequest(router, http.MethodDelete, "/api/cart", nil, "abc")

		// then
		assert.Equal(t, 400, response.Code)
	})

	t.Run("Item removed from catalog", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, carts, items := setup(t, ctrl, Config{})
		doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_0"}}, "")
		doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_1"}}, "")

		// given
		require.NoError(t, items.Delete(c, "product_0"))

		// when
		response := doRequest(router, http.MethodGet, "/api/cart", nil, "")

		// then
		assert.Equal(t, 200, response.Code)
		got := cartOf(t, response)
		require.Len(t, got.Entries, 1)
		assert.Equal(t, "product_1", got.Entries[0].Item.UID)
		require.Len(t, got.Notices, 1)
		assert.Equal(t, cartapi.NoticeItemRemovedUnavailable, got.Notices[0].Code)
		assert.Equal(t, "Gymnopédie No.1", got.Notices[0].Title)

		stored, _, _ := carts.Get(c, "session-1")
		assert.Equal(t, 1, stored.TotalCount())
	})

	t.Run("Clear via sessions api", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, carts, items := setup(t, ctrl, Config{})
		doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {"product_0"}}, "")
		sut := NewWebService(Config{}, carts, catalogapi.NewReader(items), mytime.RealNower{})

		// when
		err := sut.Sessions().Clear(c, "session-1")

		// then
		assert.NoError(t, err)
		stored, _, _ := carts.Get(c, "session-1")
		assert.Equal(t, 0, stored.TotalCount())
	})

	t.Run("Concurrent adds", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, carts, _ := setup(t, ctrl, Config{})

		// when
		wg := sync.WaitGroup{}
		for idx := 0; idx < 5; idx++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				doRequest(router, http.MethodPost, "/api/cart/items", url.Values{"itemUID": {fmt.Sprintf("product_%d", idx)}}, "")
			}(idx)
		}
		wg.Wait()

		// then
		stored, _, _ := carts.Get(c, "session-1")
		assert.Equal(t, 5, stored.TotalCount())
		assert.Equal(t, int64(5), stored.Version)
	})
}

func TestCartOnRedis(t *testing.T) {
	c := context.TODO()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	carts := mystore.NewRedisStoreWithClient[cartapi.CartSession](client)
	items, _, _ := mystore.NewInMemoryStore[catalogapi.CatalogItem](c)
	for _, item := range catalogItems {
		items.Put(c, item.UID, item)
	}

	sut := newService(carts, catalogapi.NewReader(items), mytime.RealNower{}, mylog.New("cart"), false)

	t.Run("Reload round-trip", func(t *testing.T) {
		_, _, err := sut.add(c, "session-2", "product_0", nil)
		require.NoError(t, err)
		added, _, err := sut.add(c, "session-2", "product_3", nil)
		require.NoError(t, err)

		reloaded, notices, err := sut.Load(c, "session-2")
		assert.NoError(t, err)
		assert.Empty(t, notices)
		assert.ElementsMatch(t, uidsOf(added), uidsOf(reloaded))
		assert.Equal(t, added.Version, reloaded.Version)
		assert.Equal(t, added.TotalPrice(), reloaded.TotalPrice())
	})

	t.Run("Cancelled caller still gets stored cart", func(t *testing.T) {
		_, _, err := sut.add(c, "session-4", "product_2", nil)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(c)
		cancel()

		session, _, err := sut.Load(cancelled, "session-4")
		assert.NoError(t, err)
		assert.Equal(t, []string{"product_2"}, uidsOf(session))
	})

	t.Run("Corrupt cart is reset", func(t *testing.T) {
		mr.Set("CartSession:session-3", "{not json")
		mr.SAdd("CartSession:__index", "session-3")

		session, notices, err := sut.Load(c, "session-3")
		assert.NoError(t, err)
		assert.Empty(t, notices)
		assert.Empty(t, session.Entries)

		session, _, err = sut.add(c, "session-3", "product_1", nil)
		assert.NoError(t, err)
		assert.Equal(t, 1, session.TotalCount())
	})
}

// unwritableStore reads from the wrapped store but refuses every write
type unwritableStore struct {
	mystore.Store[cartapi.CartSession]
}

func (s unwritableStore) Put(c context.Context, uid string, value cartapi.CartSession) error {
	return fmt.Errorf("disk full")
}

func TestCartWithFailingStorage(t *testing.T) {
	c := context.TODO()
	carts, _, _ := mystore.NewInMemoryStore[cartapi.CartSession](c)
	items, _, _ := mystore.NewInMemoryStore[catalogapi.CatalogItem](c)
	for _, item := range catalogItems {
		items.Put(c, item.UID, item)
	}

	sut := newService(unwritableStore{Store: carts}, catalogapi.NewReader(items), mytime.RealNower{}, mylog.New("cart"), false)

	t.Run("Buyer keeps working with unsaved cart", func(t *testing.T) {
		session, notices, err := sut.add(c, "session-1", "product_0", nil)

		assert.NoError(t, err)
		assert.Empty(t, notices)
		assert.Equal(t, []string{"product_0"}, uidsOf(session))
		assert.Equal(t, int64(0), session.Version)
		_, found, _ := carts.Get(c, "session-1")
		assert.False(t, found)
	})

	t.Run("Clearing after order reports failure", func(t *testing.T) {
		stored := cartapi.NewCartSession("session-2", mytime.ExampleTime)
		stored.Add(catalogItems[0], mytime.ExampleTime)
		require.NoError(t, carts.Put(c, "session-2", stored))

		err := sut.Clear(c, "session-2")

		assert.Error(t, err)
		kept, _, _ := carts.Get(c, "session-2")
		assert.Equal(t, 1, kept.TotalCount())
	})
}

func uidsOf(session cartapi.CartSession) []string {
	uids := []string{}
	for _, e := range session.Entries {
		uids = append(uids, e.Item.UID)
	}
	return uids
}

func cartOf(t *testing.T, response *httptest.ResponseRecorder) cartView {
	view := cartView{}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &view))
	return view
}

func doRequest(router *mux.Router, method string, path string, form url.Values, ifMatch string) *httptest.ResponseRecorder {
	var request *http.Request
	if form != nil {
		request, _ = http.NewRequest(method, path, strings.NewReader(form.Encode()))
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		request, _ = http.NewRequest(method, path, nil)
	}
	if ifMatch != "" {
		request.Header.Set("If-Match", ifMatch)
	}
	request.Host = "localhost:8888"
	request.AddCookie(&http.Cookie{Name: mycontext.SessionCookieName, Value: "session-1"})
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ctrl *gomock.Controller, cfg Config) (context.Context, *mux.Router, mystore.Store[cartapi.CartSession], mystore.Store[catalogapi.CatalogItem]) {
	c := context.TODO()
	carts, _, _ := mystore.NewInMemoryStore[cartapi.CartSession](c)
	items, _, _ := mystore.NewInMemoryStore[catalogapi.CatalogItem](c)
	for _, item := range catalogItems {
		items.Put(c, item.UID, item)
	}
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	router := mux.NewRouter()
	sut := NewWebService(cfg, carts, catalogapi.NewReader(items), nower)
	sut.RegisterEndpoints(c, router)

	return c, router, carts, items
}
