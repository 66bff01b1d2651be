package notify

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"turtle_bot/internal/models"
	"turtle_bot/pkg/logger"
)

// PositionSource — откуда /positions берёт открытые позиции.
type PositionSource interface {
	All() []*models.Position
}

// Telegram — пассивный нотифайер + одна команда /positions.
// Пустой токен даёт no-op: все Send* безопасно молчат.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	src    PositionSource
}

func NewTelegram(token string, chatID int64, src PositionSource) (*Telegram, error) {
	if token == "" {
		return &Telegram{src: src}, nil
	}
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID, src: src}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// SendService — служебные сообщения модулей; дублируем в лог, чтобы без
// телеграма история не терялась.
func (t *Telegram) SendService(_ context.Context, format string, args ...any) {
	logger.Info("[NOTIFY] "+format, args...)
	t.Sendf(format, args...)
}

// /positions — открытые позиции из внутреннего реестра.
func (t *Telegram) handlePositions() {
	positions := t.src.All()
	if len(positions) == 0 {
		t.Send("📭 Открытых позиций нет")
		return
	}

	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s [%s/S%d] units=%d size=%d стоп=%.4f\n",
			p.InstID, strings.ToUpper(string(p.Direction)), p.System,
			len(p.Units), p.TotalSize(), p.TightestStop())
	}
	t.Send(b.String())
}

// Start: long-polling для команд.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message != nil && upd.Message.Chat != nil &&
					upd.Message.Chat.ID == t.chatID && upd.Message.IsCommand() {

					switch upd.Message.Command() {
					case "positions":
						go t.handlePositions()
					}
				}
			}
		}
	}()
	return nil
}
