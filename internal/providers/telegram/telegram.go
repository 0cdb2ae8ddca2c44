// Package telegram delivers notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/smallbiznis/venuebook/internal/notification/domain"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

var ErrInvalidChatID = errors.New("invalid_telegram_chat_id")

type Config struct {
	BotToken string
	// Endpoint overrides the Bot API URL format (token, method).
	Endpoint string
}

// Transport sends HTML messages to chat ids.
type Transport struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
}

// New builds the transport without calling getMe, so startup does not
// depend on Telegram being reachable.
func New(cfg Config, log *zap.Logger) *Transport {
	bot := &tgbotapi.BotAPI{
		Token:  cfg.BotToken,
		Client: &http.Client{Timeout: requestTimeout},
		Buffer: 100,
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot.SetAPIEndpoint(endpoint)
	return &Transport{bot: bot, log: log.Named("providers.telegram")}
}

func (t *Transport) Channel() domain.Channel {
	return domain.ChannelTelegram
}

func (t *Transport) Send(ctx context.Context, destination string, payload domain.Payload) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(destination), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidChatID, destination)
	}

	msg := tgbotapi.NewMessage(chatID, payload.Text)
	msg.DisableWebPagePreview = true
	if payload.ParseMode == domain.ParseModeHTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			var apiErr *tgbotapi.Error
			if errors.As(err, &apiErr) {
				return fmt.Errorf("telegram api %d: %s", apiErr.Code, apiErr.Message)
			}
			return fmt.Errorf("telegram send: %w", err)
		}
		t.log.Debug("telegram message sent", zap.Int64("chat_id", chatID))
		return nil
	}
}
