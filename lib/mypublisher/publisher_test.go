package mypublisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/sheetmusicshop/lib/myevents"
	"github.com/MarcGrol/sheetmusicshop/lib/mypubsub"
	"github.com/MarcGrol/sheetmusicshop/lib/myqueue"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
)

type itemAdded struct {
	SessionUID string
	ItemUID    string
}

func (e itemAdded) GetEventTypeName() string {
	return "cart.item.added"
}

func (e itemAdded) GetAggregateName() string {
	return e.SessionUID
}

func TestTransactionalPublisher(t *testing.T) {
	t.Run("Publish stores in outbox and queues trigger", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, _, outbox, _, queue, nower, sut := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, task myqueue.Task) error {
			assert.Equal(t, "/pubsub/cart/"+task.UID, task.WebhookURLPath)
			return nil
		})

		// when
		err := sut.Publish(c, "cart", itemAdded{SessionUID: "s1", ItemUID: "product_1"})

		// then
		assert.NoError(t, err)
		envelopes, _ := outbox.List(c)
		assert.Len(t, envelopes, 1)
		assert.Equal(t, "cart.item.added", envelopes[0].EventTypeName)
		assert.Equal(t, "s1", envelopes[0].AggregateUID)
		assert.False(t, envelopes[0].Published)
		assert.Equal(t, mytime.ExampleTime, envelopes[0].CreatedAt)
	})

	t.Run("Same event gets same uid", func(t *testing.T) {
		e := newEnveloper(mytime.RealNower{})
		env1, err := e.wrap("cart", itemAdded{SessionUID: "s1", ItemUID: "product_1"})
		assert.NoError(t, err)
		env2, err := e.wrap("cart", itemAdded{SessionUID: "s1", ItemUID: "product_1"})
		assert.NoError(t, err)
		env3, err := e.wrap("cart", itemAdded{SessionUID: "s1", ItemUID: "product_2"})
		assert.NoError(t, err)

		assert.Equal(t, env1.UID, env2.UID)
		assert.NotEqual(t, env1.UID, env3.UID)
	})

	t.Run("Trigger publishes pending events", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, outbox, pubsub, _, _, _ := setup(t, ctrl)

		// given
		_ = outbox.Put(c, "1", myevents.EventEnvelope{UID: "1", Topic: "cart", EventTypeName: "cart.item.added", CreatedAt: mytime.ExampleTime})
		_ = outbox.Put(c, "2", myevents.EventEnvelope{UID: "2", Topic: "cart", EventTypeName: "cart.item.added", Published: true})
		pubsub.EXPECT().Publish(gomock.Any(), "cart", gomock.Any()).DoAndReturn(func(c context.Context, topic string, data string) error {
			envelope := myevents.EventEnvelope{}
			err := json.Unmarshal([]byte(data), &envelope)
			assert.NoError(t, err)
			assert.Equal(t, "1", envelope.UID)
			return nil
		})

		// when
		request, err := http.NewRequest(http.MethodPut, "/pubsub/cart/1", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		envelope, _, _ := outbox.Get(c, "1")
		assert.True(t, envelope.Published)
	})
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, mystore.Store[myevents.EventEnvelope], *mypubsub.MockPubSub, *myqueue.MockTaskQueuer, *mytime.MockNower, *transactionalPublisher) {
	c := context.TODO()
	outbox, _, _ := mystore.NewInMemoryStore[myevents.EventEnvelope](c)
	pubsub := mypubsub.NewMockPubSub(ctrl)
	queue := myqueue.NewMockTaskQueuer(ctrl)
	nower := mytime.NewMockNower(ctrl)

	sut := New(c, outbox, pubsub, queue, nower)
	router := mux.NewRouter()
	sut.RegisterEndpoints(c, router)

	return c, router, outbox, pubsub, queue, nower, sut
}
