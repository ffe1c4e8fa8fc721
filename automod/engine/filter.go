package engine

import (
	"context"
	"fmt"

	"github.com/fakacrm/turnstile/automod/event"
	"github.com/fakacrm/turnstile/automod/flagstore"
)

// Deletes messages containing a banned substring. Independent of verification state.
func (eng *Engine) filterMessage(ctx context.Context, msg event.Message) error {
	if eng.Filter == nil {
		return nil
	}
	word, ok := eng.Filter.Match(msg.Text)
	if !ok {
		return nil
	}
	logger := eng.Logger.With("chat", msg.ChatID, "message", msg.MessageID, "sender", msg.SenderID)

	if err := eng.Client.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		transportErrorCount.WithLabelValues("delete").Inc()
		logger.Warn("failed to delete message with banned content", "word", word, "err", err)
		return nil
	}
	messagesDeleted.Inc()
	logger.Info("deleted message with banned content", "word", word)
	eng.increment(ctx, "banned-word", msg.ChatID)
	if msg.SenderID != 0 {
		eng.addFlags(ctx, msg.SenderID, flagstore.FlagBannedWord)
	}

	if err := eng.Client.SendMessage(ctx, msg.ChatID, filteredText); err != nil {
		transportErrorCount.WithLabelValues("send").Inc()
		return fmt.Errorf("sending content filter notice (chat=%d): %w", msg.ChatID, err)
	}
	return nil
}
