package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"

	"github.com/sirupsen/logrus"
)

var ErrNoRecipient = errors.New("order has no customer email")

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPMailer отправляет письма через SMTP сервер с PLAIN авторизацией.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth: auth,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("parsing sender: %w", err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("parsing recipient: %w", err)
	}
	body, err := buildMIME(msg)
	if err != nil {
		return err
	}
	if err = smtp.SendMail(m.addr, m.auth, from.Address, []string{to.Address}, body); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to.Address, err)
	}
	return nil
}

// buildMIME собирает письмо multipart/alternative из текстовой и html версий.
func buildMIME(msg Message) ([]byte, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for _, p := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, fmt.Errorf("building mail: %w", err)
		}
		if _, err = part.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("building mail: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("building mail: %w", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", msg.From)
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", w.Boundary())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// LogMailer пишет письма в лог вместо отправки. Используется, когда SMTP не настроен.
type LogMailer struct {
	l *logrus.Entry
}

func NewLogMailer(l *logrus.Logger) *LogMailer {
	return &LogMailer{l: l.WithField("component", "log_mailer")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.l.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail")
	return nil
}
