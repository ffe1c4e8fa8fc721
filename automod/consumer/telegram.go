package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fakacrm/turnstile/automod"
	"github.com/fakacrm/turnstile/automod/cachestore"
	"github.com/fakacrm/turnstile/automod/event"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// how long handled update ids are remembered, for de-duplication
var updateDedupeTTL = 24 * time.Hour

// Subset of *tgbotapi.BotAPI used for receiving updates.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Long-polls Telegram for updates, and hands each to the engine on its own goroutine.
type TelegramConsumer struct {
	Logger *slog.Logger
	Engine *automod.Engine
	Bot    UpdateSource
	// optional; remembers handled update ids so that redelivered updates are skipped
	Cache cachestore.CacheStore
	// long-poll timeout, in seconds
	PollTimeout int

	wg sync.WaitGroup
}

func (tc *TelegramConsumer) Run(ctx context.Context) error {

	if tc.Engine == nil {
		return fmt.Errorf("nil engine")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = tc.PollTimeout
	if u.Timeout <= 0 {
		u.Timeout = 60
	}
	u.AllowedUpdates = []string{"message"}

	tc.Logger.Info("starting telegram update polling", "timeout", u.Timeout)
	updates := tc.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			tc.Bot.StopReceivingUpdates()
			tc.Logger.Info("waiting for in-flight events")
			tc.wg.Wait()
			return nil
		case upd, ok := <-updates:
			if !ok {
				tc.wg.Wait()
				return nil
			}
			tc.HandleUpdate(ctx, upd)
		}
	}
}

// Converts and dispatches a single update. Processing happens asynchronously; failures are logged, never returned.
func (tc *TelegramConsumer) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	updatesReceived.Inc()
	logger := tc.Logger.With("update", upd.UpdateID)

	if tc.Cache != nil {
		key := strconv.Itoa(upd.UpdateID)
		seen, err := tc.Cache.Get(ctx, "update", key)
		if err != nil {
			logger.Warn("update de-dupe lookup failed", "err", err)
		} else if seen != "" {
			updatesDuplicate.Inc()
			logger.Debug("skipping already-handled update")
			return
		}
		if err := tc.Cache.Set(ctx, "update", key, "1"); err != nil {
			logger.Warn("failed to record handled update", "err", err)
		}
	}

	evt := ConvertUpdate(upd)
	if evt == nil {
		logger.Debug("ignoring update")
		return
	}

	// handlers outlive a shutdown request, so they can finish their chat API calls
	hctx := context.WithoutCancel(ctx)
	tc.wg.Add(1)
	go func() {
		defer tc.wg.Done()
		tc.dispatch(hctx, logger, evt)
	}()
}

func (tc *TelegramConsumer) dispatch(ctx context.Context, logger *slog.Logger, evt any) {
	switch e := evt.(type) {
	case event.MembersJoined:
		if err := tc.Engine.ProcessMembersJoined(ctx, e); err != nil {
			logger.Error("processing members joined failed", "chat", e.ChatID, "err", err)
		}
	case event.Command:
		if err := tc.Engine.ProcessCommand(ctx, e); err != nil {
			logger.Error("processing command failed", "chat", e.Message.ChatID, "command", e.Name, "err", err)
		}
	case event.Message:
		if err := tc.Engine.ProcessMessage(ctx, e); err != nil {
			logger.Error("processing message failed", "chat", e.ChatID, "sender", e.SenderID, "err", err)
		}
	default:
		logger.Warn("unhandled event type", "type", fmt.Sprintf("%T", evt))
	}
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.UserName
	}
	return name
}

// Translates a Telegram update into an event.MembersJoined, event.Command, or event.Message. Returns nil for updates automod does not act on.
func ConvertUpdate(upd tgbotapi.Update) any {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	if len(msg.NewChatMembers) > 0 {
		evt := event.MembersJoined{
			ChatID:  msg.Chat.ID,
			Members: make([]event.Member, 0, len(msg.NewChatMembers)),
		}
		for _, u := range msg.NewChatMembers {
			evt.Members = append(evt.Members, event.Member{
				ID:          u.ID,
				DisplayName: displayName(&u),
				IsBot:       u.IsBot,
			})
		}
		return evt
	}

	if msg.Text == "" {
		return nil
	}

	m := event.Message{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.From != nil {
		m.SenderID = msg.From.ID
		m.SenderName = displayName(msg.From)
	}
	if r := msg.ReplyToMessage; r != nil {
		m.ReplyTo = &event.MessageRef{MessageID: r.MessageID}
		if r.From != nil {
			m.ReplyTo.SenderID = r.From.ID
			m.ReplyTo.SenderName = displayName(r.From)
		}
	}

	if msg.IsCommand() {
		return event.Command{
			Name:    strings.ToLower(msg.Command()),
			Args:    msg.CommandArguments(),
			Message: m,
		}
	}
	return m
}
