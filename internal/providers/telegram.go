package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"emergency-service/internal/config"
	"emergency-service/internal/logging"
	"emergency-service/internal/utils"
)

// telegramLimiter is the global rate limiter for Telegram messages
var telegramLimiter *rate.Limiter

func initTelegramLimiter(ratePerSecond int) {
	telegramLimiter = rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond)
}

// SendTelegram posts an alert to the configured responders group chat.
func SendTelegram(ctx context.Context, cfg config.Config, logger *logging.Logger, subject, body string) error {
	if telegramLimiter == nil {
		initTelegramLimiter(cfg.Telegram.RateLimit)
	}

	if err := telegramLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("missing Telegram configuration: BotToken is empty")
	}
	if cfg.Telegram.ChatID == 0 {
		return fmt.Errorf("missing Telegram configuration: ChatID is empty")
	}

	text := fmt.Sprintf("*%s*\n\n%s", subject, body)

	return utils.Retry(logger, 3, time.Second, func() error {
		b, err := bot.New(cfg.Telegram.BotToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}

		params := &bot.SendMessageParams{
			ChatID:    cfg.Telegram.ChatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", cfg.Telegram.ChatID, err)
		}
		return nil
	})
}
