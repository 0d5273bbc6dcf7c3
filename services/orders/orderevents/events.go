package orderevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/myevents"
)

const (
	TopicName          = "order"
	orderCreated       = TopicName + ".created"
	orderStatusChanged = TopicName + ".status.changed"
)

type OrderEventService interface {
	OnOrderCreated(c context.Context, topic string, event OrderCreated) error
	OnOrderStatusChanged(c context.Context, topic string, event OrderStatusChanged) error
}

func DispatchEvent(c context.Context, reader io.Reader, service OrderEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case orderCreated:
		{
			event := OrderCreated{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderCreated(c, envelope.Topic, event)
		}
	case orderStatusChanged:
		{
			event := OrderStatusChanged{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderStatusChanged(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unknown event type %s", envelope.EventTypeName))
	}
}

type OrderLine struct {
	Title    string
	Composer string
	Price    int64
}

type OrderCreated struct {
	OrderUID      string
	BuyerEmail    string
	BuyerName     string
	Guest         bool
	Lines         []OrderLine
	Total         int64
	Currency      string
	PaymentMethod string
	Status        string
}

func (e OrderCreated) GetEventTypeName() string {
	return orderCreated
}

func (e OrderCreated) GetAggregateName() string {
	return e.OrderUID
}

type OrderStatusChanged struct {
	OrderUID   string
	BuyerEmail string
	OldStatus  string
	NewStatus  string
}

func (e OrderStatusChanged) GetEventTypeName() string {
	return orderStatusChanged
}

func (e OrderStatusChanged) GetAggregateName() string {
	return e.OrderUID
}
