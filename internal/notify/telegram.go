package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender минимальная поверхность бота для отправки сообщений
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier шлет уведомления в служебный чат мастерской.
// Клиентам через телеграм не пишем — для них есть push-провайдер.
type TelegramNotifier struct {
	bot       TelegramSender
	staffChat int64
}

func NewTelegramNotifier(bot TelegramSender, staffChat int64) *TelegramNotifier {
	return &TelegramNotifier{
		bot:       bot,
		staffChat: staffChat,
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) NotifyStaff(ctx context.Context, message string) error {
	if t.staffChat == 0 {
		return fmt.Errorf("staff chat is not configured")
	}
	msg := tgbotapi.NewMessage(t.staffChat, message)
	_, err := t.bot.Send(msg)
	return err
}

func (t *TelegramNotifier) NotifyCustomer(ctx context.Context, recipientUID, templateID, message string) error {
	// Канал только для персонала
	return nil
}
