package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"SignalForge/pkg/model"
)

// Telegram sends Markdown messages to one chat through the bot API
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram endpoint may be empty for the public bot API
func NewTelegram(token string, chatID int64, endpoint string) (*Telegram, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, signal model.Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, FormatTelegram(signal))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatTelegram message text for one signal
func FormatTelegram(signal model.Signal) string {
	return fmt.Sprintf("📈 *New Signal: %s*\n%s", signal.Recommendation, messageBody(signal))
}
