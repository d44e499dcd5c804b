// Package notify sends account emails over SMTP in the background.
package notify

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"

	"donneur-go/internal/models"

	"go.uber.org/zap"
)

const accountCreationSubject = "Create your Donneur account"

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers messages without blocking the caller. Failures are logged.
type Mailer struct {
	cfg      models.MailConfig
	send     sendFunc
	inflight sync.WaitGroup
}

func NewMailer(cfg models.MailConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

func (m *Mailer) SendAccountCreationEmail(email, link string) {
	body := fmt.Sprintf("Hello,\r\n\r\nFollow this link to create your account:\r\n%s\r\n", link)
	m.deliver(email, accountCreationSubject, body)
}

// Wait blocks until every queued message has been attempted.
func (m *Mailer) Wait() {
	m.inflight.Wait()
}

func (m *Mailer) deliver(to, subject, body string) {
	msg := buildMessage(m.cfg.From, to, subject, body)
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
			zap.L().Warn("Unable to send email",
				zap.String("subject", subject),
				zap.String("smtp", addr),
				zap.Error(err))
			return
		}
		zap.L().Info("Email sent", zap.String("subject", subject))
	}()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
