package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderapi"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderevents"
)

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, orderevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", orderevents.TopicName, err)
	}
	return nil
}

func (s *service) Append(c context.Context, record orderapi.OrderRecord) error {
	if record.UID == "" {
		return myerrors.NewInvalidInputError(fmt.Errorf("order record without uid"))
	}
	if record.Items == nil {
		record.Items = []orderapi.LineItem{}
	}
	record.BuyerEmail = strings.ToLower(strings.TrimSpace(record.BuyerEmail))
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.nower.Now()
	}

	s.logger.Log(c, record.UID, mylog.SeverityInfo, "Append order %s (%s, %d %s)", record.UID, record.Status, record.Total, record.Currency)

	err := s.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		_, exists, err := s.orderStore.Get(c, record.UID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if exists {
			s.logger.Log(c, record.UID, mylog.SeverityInfo, "Order %s was already recorded", record.UID)
			return nil
		}

		err = s.orderStore.Put(c, record.UID, record)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, orderevents.TopicName, orderevents.OrderCreated{
			OrderUID:      record.UID,
			BuyerEmail:    record.BuyerEmail,
			BuyerName:     record.BuyerName,
			Guest:         record.Guest,
			Lines:         toOrderLines(record.Items),
			Total:         record.Total,
			Currency:      record.Currency,
			PaymentMethod: record.PaymentMethod,
			Status:        string(record.Status),
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

func toOrderLines(items []orderapi.LineItem) []orderevents.OrderLine {
	lines := []orderevents.OrderLine{}
	for _, i := range items {
		lines = append(lines, orderevents.OrderLine{
			Title:    i.Title,
			Composer: i.Composer,
			Price:    i.Price,
		})
	}
	return lines
}

func (s *service) listOrders(c context.Context, status string, search string) ([]orderapi.OrderRecord, error) {
	s.logger.Log(c, "", mylog.SeverityInfo, "List orders (status: '%s', search: '%s')", status, search)

	filters := []mystore.Filter{}
	if status != "" {
		parsed, err := orderapi.ParseStatus(status)
		if err != nil {
			return nil, myerrors.NewInvalidInputError(err)
		}
		filters = append(filters, mystore.Filter{Field: "Status", Compare: "=", Value: string(parsed)})
	}

	records, err := s.orderStore.Query(c, filters, "-CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}

	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return records, nil
	}

	matching := []orderapi.OrderRecord{}
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.UID), search) || strings.Contains(r.BuyerEmail, search) {
			matching = append(matching, r)
		}
	}
	return matching, nil
}

func (s *service) listOrdersOfBuyer(c context.Context, email string) ([]orderapi.OrderRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.logger.Log(c, email, mylog.SeverityInfo, "List orders of %s", email)

	records, err := s.orderStore.Query(c, []mystore.Filter{
		{Field: "BuyerEmail", Compare: "=", Value: email},
	}, "-CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}
	return records, nil
}

func (s *service) getOrder(c context.Context, orderUID string) (orderapi.OrderRecord, error) {
	s.logger.Log(c, orderUID, mylog.SeverityInfo, "Fetch order %s", orderUID)

	record, found, err := s.orderStore.Get(c, orderUID)
	if err != nil {
		return orderapi.OrderRecord{}, myerrors.NewInternalError(err)
	}
	if !found {
		return orderapi.OrderRecord{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
	}
	return record, nil
}

// lookupGuestOrders finds the guest orders that match both email and phone
func (s *service) lookupGuestOrders(c context.Context, email string, phone string) ([]orderapi.OrderRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = digitsOnly(phone)
	if email == "" || phone == "" {
		return nil, myerrors.NewInvalidInputError(fmt.Errorf("email and phone are both required"))
	}

	records, err := s.listOrdersOfBuyer(c, email)
	if err != nil {
		return nil, err
	}

	matching := []orderapi.OrderRecord{}
	for _, r := range records {
		if r.Guest && digitsOnly(r.BuyerPhone) == phone {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		return nil, myerrors.NewNotFoundError(fmt.Errorf("no guest orders for %s", email))
	}
	return matching, nil
}

func digitsOnly(s string) string {
	b := strings.Builder{}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *service) changeStatus(c context.Context, orderUID string, status string) (orderapi.OrderRecord, error) {
	newStatus, err := orderapi.ParseStatus(status)
	if err != nil {
		return orderapi.OrderRecord{}, myerrors.NewInvalidInputError(err)
	}

	s.logger.Log(c, orderUID, mylog.SeverityInfo, "Change status of order %s into %s", orderUID, newStatus)

	now := s.nower.Now()
	var record orderapi.OrderRecord
	err = s.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		var found bool
		record, found, err = s.orderStore.Get(c, orderUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
		}
		if record.Status == newStatus {
			return nil
		}
		if !record.Status.CanBecome(newStatus) {
			return myerrors.NewValidationError(fmt.Errorf("order %s cannot change from %s into %s", orderUID, record.Status, newStatus))
		}

		oldStatus := record.Status
		record.Status = newStatus
		record.LastModified = &now

		err = s.orderStore.Put(c, record.UID, record)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, orderevents.TopicName, orderevents.OrderStatusChanged{
			OrderUID:   record.UID,
			BuyerEmail: record.BuyerEmail,
			OldStatus:  string(oldStatus),
			NewStatus:  string(newStatus),
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return orderapi.OrderRecord{}, err
	}
	return record, nil
}
