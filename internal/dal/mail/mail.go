package mail

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	gomail "github.com/wneessen/go-mail"
)

// Dispatcher sends invoice notifications over SMTP.
type Dispatcher struct {
	client *gomail.Client
	from   string
}

// MustNewDispatcher creates a new mail dispatcher from configuration.
func MustNewDispatcher() *Dispatcher {
	host := viper.GetString("mail.smtp_host")

	client, err := gomail.NewClient(host,
		gomail.WithPort(viper.GetInt("mail.smtp_port")),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(os.Getenv("SMTP_USER")),
		gomail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		panic(fmt.Sprintf("Failed to create mail client: %v", err))
	}

	return &Dispatcher{
		client: client,
		from:   viper.GetString("mail.from"),
	}
}

// Send delivers one message to the given recipients, optionally with a
// PDF attachment.
func (d *Dispatcher) Send(
	ctx context.Context,
	to []string,
	subject, body string,
	attachment []byte,
	filename string,
) error {
	msg := gomail.NewMsg()
	if err := msg.From(d.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return fmt.Errorf("failed to set recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if len(attachment) > 0 {
		if err := msg.AttachReader(filename, bytes.NewReader(attachment)); err != nil {
			return fmt.Errorf("failed to attach %s: %w", filename, err)
		}
	}

	if err := d.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}
