package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/myhttp"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mypubsub"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityevents"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderevents"
)

//go:embed templates
var templateFolder embed.FS
var (
	orderCreatedTemplate       *template.Template
	orderStatusChangedTemplate *template.Template
	welcomeTemplate            *template.Template
)

func init() {
	orderCreatedTemplate = template.Must(template.ParseFS(templateFolder, "templates/order_created.html"))
	orderStatusChangedTemplate = template.Must(template.ParseFS(templateFolder, "templates/order_status_changed.html"))
	welcomeTemplate = template.Must(template.ParseFS(templateFolder, "templates/welcome.html"))
}

var statusDescriptions = map[string]string{
	"completed": "결제가 확인되어 주문이 완료되었습니다.",
	"failed":    "주문이 취소되었습니다.",
	"refunded":  "주문 금액이 환불되었습니다.",
}

type service struct {
	sender     Sender
	subscriber mypubsub.PubSub
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(sender Sender, subscriber mypubsub.PubSub, logger mylog.Logger) *service {
	return &service{
		sender:     sender,
		subscriber: subscriber,
		logger:     logger,
	}
}

func (s *service) Subscribe(c context.Context) error {
	err := s.subscriber.Subscribe(c, orderevents.TopicName, myhttp.GuessHostnameWithScheme()+orderEventPath)
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", orderevents.TopicName, err)
	}

	err = s.subscriber.Subscribe(c, identityevents.TopicName, myhttp.GuessHostnameWithScheme()+memberEventPath)
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", identityevents.TopicName, err)
	}

	return nil
}

func (s *service) OnOrderCreated(c context.Context, topic string, event orderevents.OrderCreated) error {
	if event.BuyerEmail == "" {
		s.logger.Log(c, event.OrderUID, mylog.SeverityWarn, "Order %s has no email address to confirm to", event.OrderUID)
		return nil
	}

	return s.send(c, event.BuyerEmail, fmt.Sprintf("[악보 스토어] 주문 확인 (%s)", event.OrderUID), orderCreatedTemplate, event)
}

func (s *service) OnOrderStatusChanged(c context.Context, topic string, event orderevents.OrderStatusChanged) error {
	description, found := statusDescriptions[event.NewStatus]
	if !found || event.BuyerEmail == "" {
		return nil
	}

	return s.send(c, event.BuyerEmail, fmt.Sprintf("[악보 스토어] 주문 상태 변경 (%s)", event.OrderUID), orderStatusChangedTemplate, struct {
		OrderUID    string
		Description string
	}{
		OrderUID:    event.OrderUID,
		Description: description,
	})
}

func (s *service) OnMemberSignedUp(c context.Context, topic string, event identityevents.MemberSignedUp) error {
	return s.send(c, event.Email, "[악보 스토어] 회원가입을 환영합니다", welcomeTemplate, event)
}

func (s *service) send(c context.Context, to string, subject string, tmpl *template.Template, data interface{}) error {
	body := bytes.Buffer{}
	err := tmpl.Execute(&body, data)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error executing template: %s", err))
	}

	err = s.sender.Send(c, Mail{
		To:      to,
		Subject: subject,
		HTML:    body.String(),
	})
	if err != nil {
		return myerrors.NewUnavailableError(err)
	}
	return nil
}
