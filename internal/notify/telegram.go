package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// TelegramSender is the subset of *tele.Bot used for alerts.
type TelegramSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier posts ops messages to a single operations chat. Customer
// messages are ignored.
type TelegramNotifier struct {
	bot  TelegramSender
	chat tele.ChatID
}

func NewTelegramNotifier(bot TelegramSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chat: tele.ChatID(chatID)}
}

// NewTelegramBot creates a send-only bot; it never polls for updates.
func NewTelegramBot(token string) (*tele.Bot, error) {
	return tele.NewBot(tele.Settings{Token: token, Offline: true})
}

func (n *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	if msg.Audience != AudienceOps {
		return nil
	}
	if _, err := n.bot.Send(n.chat, formatAlert(msg)); err != nil {
		return fmt.Errorf("telegram send %s: %w", msg.Template, err)
	}
	return nil
}

func formatAlert(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", msg.Template)
	if msg.TrackingID != "" {
		fmt.Fprintf(&b, " %s", msg.TrackingID)
	}
	keys := make([]string, 0, len(msg.Params))
	for k := range msg.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, msg.Params[k])
	}
	return b.String()
}
