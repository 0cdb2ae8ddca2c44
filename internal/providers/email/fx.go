package email

import (
	"strings"

	"github.com/smallbiznis/venuebook/internal/config"
	"go.uber.org/zap"
)

// Configured reports whether SMTP settings are complete enough to send.
func Configured(cfg config.Config) bool {
	return strings.TrimSpace(cfg.SMTP.Host) != "" && strings.TrimSpace(cfg.SMTP.From) != ""
}

func NewFromConfig(cfg config.Config, log *zap.Logger) *SMTPTransport {
	return NewSMTP(Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)
}
