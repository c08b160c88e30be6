package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

type SMTPSender struct {
	From   string
	dialer *gomail.Dialer
}

func NewSMTPSender() *SMTPSender {
	from := viper.GetString("mail.sender_address")

	return &SMTPSender{
		From: from,
		dialer: gomail.NewDialer(
			viper.GetString("mail.host"),
			viper.GetInt("mail.port"),
			from,
			viper.GetString("mail.password"),
		),
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if m.To == s.From {
		return errors.New("invalid email address")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.From)
	msg.SetHeader("To", m.To)

	switch m.Kind {
	case KindInvite:
		msg.SetHeader("Subject", fmt.Sprintf("%s shared %q with you", m.FromLabel, m.FileLabel))
		msg.SetBody("text/html", fmt.Sprintf(
			"%s shared <b>%s</b> with you.<br><br>Click <a href='%s'>here</a> to view it. You'll need to sign in with this email address.",
			html.EscapeString(m.FromLabel), html.EscapeString(m.FileLabel), m.Link))
	case KindVerification:
		msg.SetHeader("Subject", "Verify your email to start sharing files")
		msg.SetBody("text/html", fmt.Sprintf("Click <a href='%s'>here</a> to verify your account.\n\nThis link will expire in 30 minutes", m.Link))
	default:
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}

	// gomail has no context support, bail out early if the caller gave up
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.dialer.DialAndSend(msg)
}
