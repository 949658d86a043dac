package channels

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/artbot/pkg/bus"
	"github.com/tinyland-inc/artbot/pkg/logger"
)

// TelegramChannel bridges Telegram long polling to the message bus.
type TelegramChannel struct {
	bot     *telego.Bot
	bus     *bus.MessageBus
	running atomic.Bool
}

func NewTelegramChannel(token string, msgBus *bus.MessageBus) (*TelegramChannel, error) {
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramChannel{bot: bot, bus: msgBus}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) IsRunning() bool { return c.running.Load() }

func (c *TelegramChannel) Start(ctx context.Context) error {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting telegram long polling: %w", err)
	}
	c.running.Store(true)

	go func() {
		defer c.running.Store(false)
		for update := range updates {
			c.handleUpdate(ctx, update)
		}
	}()

	logger.InfoC("telegram", "Telegram channel started")
	return nil
}

func (c *TelegramChannel) Stop(context.Context) error {
	c.running.Store(false)
	return nil
}

func (c *TelegramChannel) handleUpdate(ctx context.Context, update telego.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		ev := bus.InboundEvent{
			Kind:   bus.EventText,
			ChatID: strconv.FormatInt(msg.Chat.ID, 10),
			Text:   msg.Text,
		}
		if msg.From != nil {
			ev.SenderName = msg.From.FirstName
			ev.SenderUser = msg.From.Username
		}
		if err := c.bus.PublishInbound(ctx, ev); err != nil {
			logger.ErrorCF("telegram", "Dropping inbound message", map[string]any{"error": err.Error()})
		}

	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if query.Message == nil {
			return
		}
		ev := bus.InboundEvent{
			Kind:       bus.EventCallback,
			ChatID:     strconv.FormatInt(query.Message.GetChat().ID, 10),
			SenderName: query.From.FirstName,
			SenderUser: query.From.Username,
			Data:       query.Data,
		}
		if err := c.bus.PublishInbound(ctx, ev); err != nil {
			logger.ErrorCF("telegram", "Dropping inbound callback", map[string]any{"error": err.Error()})
		}
		// acknowledge so the client stops the spinner
		_ = c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
			CallbackQueryID: query.ID,
		})
	}
}

// Send renders one outbound payload as a Telegram message or audio.
func (c *TelegramChannel) Send(ctx context.Context, p bus.OutboundPayload) error {
	chatID, err := strconv.ParseInt(p.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad chat id %q: %w", p.ChatID, err)
	}

	if p.Kind == bus.PayloadAudio {
		params := &telego.SendAudioParams{
			ChatID:  tu.ID(chatID),
			Audio:   tu.FileFromURL(p.AudioURL),
			Caption: p.Caption,
		}
		if _, err := c.bot.SendAudio(ctx, params); err != nil {
			return fmt.Errorf("sending audio: %w", err)
		}
		return nil
	}

	params := &telego.SendMessageParams{
		ChatID: tu.ID(chatID),
		Text:   p.Text,
	}
	if p.Keyboard != nil {
		params.ReplyMarkup = replyKeyboard(p.Keyboard, p.OneShot)
	} else {
		params.ReplyMarkup = &telego.ReplyKeyboardRemove{RemoveKeyboard: true}
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// replyKeyboard lays out buttons row for row. Button labels are
// echoed back as text on tap, which is how branch selection is detected.
func replyKeyboard(kb *bus.Keyboard, oneShot bool) *telego.ReplyKeyboardMarkup {
	rows := make([][]telego.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]telego.KeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telego.KeyboardButton{Text: b.Label})
		}
		rows = append(rows, buttons)
	}
	return &telego.ReplyKeyboardMarkup{
		Keyboard:        rows,
		ResizeKeyboard:  true,
		OneTimeKeyboard: oneShot,
	}
}
