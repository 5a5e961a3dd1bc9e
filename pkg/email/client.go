// Package email sends HTML notifications over SMTP.
package email

import (
	"time"

	"gopkg.in/mail.v2"
)

// Client represents an SMTP client used to send event notifications.
type Client struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	timeout  time.Duration
}

// NewClient creates a new email Client. The timeout bounds each send so a
// slow SMTP server cannot stall a dispatch run.
func NewClient(smtpHost string, smtpPort int, username, password, from string, timeout time.Duration) *Client {
	return &Client{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
		from:     from,
		timeout:  timeout,
	}
}

// Send delivers an HTML message to the recipient.
func (c *Client) Send(to, subject, htmlBody string) error {
	message := mail.NewMessage()

	message.SetHeader("From", c.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)

	message.SetBody("text/html", htmlBody)

	dialer := mail.NewDialer(c.smtpHost, c.smtpPort, c.username, c.password)
	dialer.Timeout = c.timeout

	return dialer.DialAndSend(message)
}
