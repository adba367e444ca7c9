// Package notify delivers attendance notifications by email.
package notify

import (
	"fmt"
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Email is a rendered notification ready for delivery.
type Email struct {
	ToName    string
	ToAddress string
	Subject   string
	TextBody  string
	HTMLBody  string
}

// Sender delivers notification emails.
type Sender interface {
	Send(msg Email) error
}

// SendgridSender sends through the SendGrid v3 mail API.
type SendgridSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ Sender = (*SendgridSender)(nil)

// NewSendgridSender builds a sender; appName becomes the subject prefix.
func NewSendgridSender(key, appName, fromEmail string) *SendgridSender {
	return &SendgridSender{
		key:        key,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
	}
}

// Send delivers one email. A non-2xx API response is an error.
func (s *SendgridSender) Send(msg Email) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sending email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (s *SendgridSender) prepare(msg Email) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.TextBody),
		sgmail.NewContent("text/html", msg.HTMLBody),
	)
	return m
}

// LogSender is the dev fallback when no SendGrid key is configured.
type LogSender struct{}

var _ Sender = (*LogSender)(nil)

// Send writes the email to the process log instead of delivering it.
func (LogSender) Send(msg Email) error {
	log.Printf("notify: to=%s subject=%q body=%q", msg.ToAddress, msg.Subject, msg.TextBody)
	return nil
}
