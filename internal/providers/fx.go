package providers

import (
	"github.com/smallbiznis/venuebook/internal/config"
	notificationdomain "github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/smallbiznis/venuebook/internal/providers/email"
	"github.com/smallbiznis/venuebook/internal/providers/telegram"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Transports struct {
	fx.Out

	Transports []notificationdomain.Transport `group:"notification_transports,flatten"`
}

var Module = fx.Module("providers",
	fx.Provide(NewTransports),
)

// NewTransports registers a transport for every channel with credentials.
// A channel left unconfigured gets no notification rows at all.
func NewTransports(cfg config.Config, log *zap.Logger) Transports {
	var out []notificationdomain.Transport
	if cfg.Telegram.BotToken != "" {
		out = append(out, telegram.New(telegram.Config{BotToken: cfg.Telegram.BotToken}, log))
	} else {
		log.Warn("telegram transport disabled: TELEGRAM_BOT_TOKEN not set")
	}
	if email.Configured(cfg) {
		out = append(out, email.NewFromConfig(cfg, log))
	} else {
		log.Warn("email transport disabled: SMTP_HOST not set")
	}
	return Transports{Transports: out}
}
