package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPMailer sends plain-text notifications through an SMTP relay.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(host string, port int, from, password string) *SMTPMailer {
	return &SMTPMailer{
		from:   from,
		dialer: gomail.NewDialer(host, port, from, password),
	}
}

// SendNewCommentEmail tells a seller someone commented on their listing.
func (m *SMTPMailer) SendNewCommentEmail(toEmail, listingTitle, commenterName, commentText string) error {
	msg := newCommentMessage(m.from, toEmail, listingTitle, commenterName, commentText)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send comment notification to %s: %w", toEmail, err)
	}
	return nil
}

func newCommentMessage(from, to, listingTitle, commenterName, commentText string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("New comment on '%s'", listingTitle))
	msg.SetBody("text/plain", fmt.Sprintf("%s commented on your listing '%s':\n\n%s\n", commenterName, listingTitle, commentText))
	return msg
}
