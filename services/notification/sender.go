package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
)

type Mail struct {
	To      string
	Subject string
	HTML    string
}

//go:generate mockgen -source=sender.go -package notification -destination sender_mock.go Sender
type Sender interface {
	Send(c context.Context, mail Mail) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// NewSender sends over SMTP, or only logs when no SMTP server is configured
func NewSender(cfg SMTPConfig) Sender {
	logger := mylog.New("notification")
	if cfg.Host == "" || cfg.User == "" {
		return &logSender{logger: logger}
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
		logger: logger,
	}
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
	logger mylog.Logger
}

func (s *smtpSender) Send(c context.Context, mail Mail) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", mail.To)
	m.SetHeader("Subject", mail.Subject)
	m.SetBody("text/html", mail.HTML)

	err := s.dialer.DialAndSend(m)
	if err != nil {
		return fmt.Errorf("error sending mail '%s' to %s: %s", mail.Subject, mail.To, err)
	}

	s.logger.Log(c, mail.To, mylog.SeverityInfo, "Sent mail '%s' to %s", mail.Subject, mail.To)
	return nil
}

type logSender struct {
	logger mylog.Logger
}

func (s *logSender) Send(c context.Context, mail Mail) error {
	s.logger.Log(c, mail.To, mylog.SeverityInfo, "SMTP not configured, mail '%s' to %s not sent", mail.Subject, mail.To)
	return nil
}
