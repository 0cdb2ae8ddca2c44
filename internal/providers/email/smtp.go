package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/venuebook/internal/notification/domain"
	"go.uber.org/zap"
)

var ErrInvalidAddress = errors.New("invalid_email_address")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPTransport delivers plain-text email over SMTP with opportunistic
// STARTTLS.
type SMTPTransport struct {
	cfg Config
	log *zap.Logger
	now func() time.Time
}

func NewSMTP(cfg Config, log *zap.Logger) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, log: log.Named("providers.email"), now: time.Now}
}

func (p *SMTPTransport) Channel() domain.Channel {
	return domain.ChannelEmail
}

func (p *SMTPTransport) Send(ctx context.Context, destination string, payload domain.Payload) error {
	to, err := mail.ParseAddress(strings.TrimSpace(destination))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, destination)
	}
	from, err := mail.ParseAddress(p.cfg.From)
	if err != nil {
		return fmt.Errorf("%w: sender %q", ErrInvalidAddress, p.cfg.From)
	}
	msg := BuildMessage(from.String(), to.Address, payload.Subject, payload.Text, p.now())

	addr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: p.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if p.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from.Address); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to.Address); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	if err := client.Quit(); err != nil {
		p.log.Debug("smtp quit failed", zap.Error(err))
	}
	return nil
}

// BuildMessage renders an RFC 5322 message with a UTF-8 text body.
func BuildMessage(from, to, subject, body string, date time.Time) []byte {
	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}
	header("From", from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	buf.WriteString("\r\n")
	return buf.Bytes()
}
