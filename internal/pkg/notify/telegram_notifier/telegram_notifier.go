package telegram_notifier

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bulk_mail_client/internal/pkg/campaign/domain"
)

// TelegramNotifier posts a short report to a chat after each bulk send.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func New(token string, chatID int64) (*TelegramNotifier, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, chatID, &http.Client{})
}

// NewWithEndpoint talks to a non-default Bot API endpoint, e.g. a local
// bot API server. endpoint has the form "https://host/bot%s/%s".
func NewWithEndpoint(token, endpoint string, chatID int64, client *http.Client) (*TelegramNotifier, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is not set")
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) NotifySent(_ context.Context, result domain.SendResult) error {
	text := fmt.Sprintf("✅ Bulk send finished\n\n📧 From: %s\n👥 Recipients: %d", result.Sender, result.Recipients)
	if result.Message != "" {
		text += "\n💬 " + result.Message
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Noop is used when Telegram is not configured.
type Noop struct{}

func (Noop) NotifySent(context.Context, domain.SendResult) error {
	return nil
}
