package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/sheetmusicshop/lib/myevents"
	"github.com/MarcGrol/sheetmusicshop/lib/mypubsub"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityevents"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderevents"
)

func TestNotificationService(t *testing.T) {

	t.Run("Order confirmation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, sender := setup(t, ctrl)

		// given
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, mail Mail) error {
			assert.Equal(t, "guest@example.com", mail.To)
			assert.Contains(t, mail.Subject, "ORDER_1")
			assert.Contains(t, mail.HTML, "Clair de Lune")
			assert.Contains(t, mail.HTML, "입금이 확인되면")
			return nil
		})

		// when
		response := doPush(t, router, orderEventPath, orderevents.OrderCreated{
			OrderUID:   "ORDER_1",
			BuyerEmail: "guest@example.com",
			BuyerName:  "Lee",
			Guest:      true,
			Lines:      []orderevents.OrderLine{{Title: "Clair de Lune", Composer: "Claude Debussy", Price: 22000}},
			Total:      22000,
			Currency:   "KRW",
			Status:     "pending",
		})

		// then
		assert.Equal(t, 200, response.Code)
	})

	t.Run("Order without email", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _ := setup(t, ctrl)

		// when
		response := doPush(t, router, orderEventPath, orderevents.OrderCreated{OrderUID: "ORDER_1"})

		// then
		assert.Equal(t, 200, response.Code)
	})

	t.Run("Refund notice", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, sender := setup(t, ctrl)

		// given
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, mail Mail) error {
			assert.Contains(t, mail.HTML, "환불")
			return nil
		})

		// when
		response := doPush(t, router, orderEventPath, orderevents.OrderStatusChanged{
			OrderUID:   "ORDER_1",
			BuyerEmail: "member@example.com",
			OldStatus:  "completed",
			NewStatus:  "refunded",
		})

		// then
		assert.Equal(t, 200, response.Code)
	})

	t.Run("Welcome mail fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, sender := setup(t, ctrl)

		// given
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(fmt.Errorf("smtp down"))

		// when
		response := doPush(t, router, memberEventPath, identityevents.MemberSignedUp{Email: "member@example.com", Name: "Kim"})

		// then
		assert.Equal(t, 503, response.Code)
	})

	t.Run("Sign-in is ignored", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _ := setup(t, ctrl)

		// when
		response := doPush(t, router, memberEventPath, identityevents.MemberSignedIn{Email: "member@example.com", SessionUID: "session-1"})

		// then
		assert.Equal(t, 200, response.Code)
	})
}

func doPush(t *testing.T, router *mux.Router, path string, event myevents.Event) *httptest.ResponseRecorder {
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	envelope, err := json.Marshal(myevents.EventEnvelope{
		UID:           "1",
		AggregateUID:  event.GetAggregateName(),
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  string(payload),
	})
	require.NoError(t, err)
	body, err := json.Marshal(myevents.NewPushRequest("subscription", "1", envelope))
	require.NoError(t, err)

	request, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ctrl *gomock.Controller) (*mux.Router, *MockSender) {
	sender := NewMockSender(ctrl)
	subscriber := mypubsub.NewMockPubSub(ctrl)
	subscriber.EXPECT().Subscribe(gomock.Any(), orderevents.TopicName, gomock.Any()).Return(nil)
	subscriber.EXPECT().Subscribe(gomock.Any(), identityevents.TopicName, gomock.Any()).Return(nil)

	router := mux.NewRouter()
	err := NewWebService(sender, subscriber).RegisterEndpoints(context.TODO(), router)
	require.NoError(t, err)

	return router, sender
}
