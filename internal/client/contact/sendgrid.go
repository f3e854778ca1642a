package contact

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridSender mails messages to a fixed recipient through the SendGrid
// v3 API.
type SendGridSender struct {
	key  string
	host string
	from *sgmail.Email
	to   *sgmail.Email
}

func NewSendGridSender(key, fromEmail, toEmail string) *SendGridSender {
	return &SendGridSender{
		key:  key,
		host: sendGridHost,
		from: sgmail.NewEmail("NoteKeeper", fromEmail),
		to:   sgmail.NewEmail("", toEmail),
	}
}

func (s *SendGridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(s.to)

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", fmt.Sprintf("From: %s\n\n%s", msg.FromName, msg.Body)))
	return m
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, sendGridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
