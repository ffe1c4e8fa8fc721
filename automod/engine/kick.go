package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fakacrm/turnstile/automod/event"
	"github.com/fakacrm/turnstile/automod/flagstore"
)

var ErrNoReplyTarget = errors.New("kick command is not a reply to a member's message")

// Routes a bot command. Unknown commands are handled as ordinary text messages.
func (eng *Engine) ProcessCommand(ctx context.Context, cmd event.Command) error {
	switch cmd.Name {
	case event.CommandKick:
		return eng.ProcessKick(ctx, cmd.Message)
	default:
		return eng.ProcessMessage(ctx, cmd.Message)
	}
}

func kickTarget(msg event.Message) (int64, error) {
	if msg.ReplyTo == nil || msg.ReplyTo.SenderID == 0 {
		return 0, ErrNoReplyTarget
	}
	return msg.ReplyTo.SenderID, nil
}

// Bans the author of the message that msg replies to from the chat.
func (eng *Engine) ProcessKick(ctx context.Context, msg event.Message) error {
	defer eng.recoverPanic("kick", "chat", msg.ChatID, "sender", msg.SenderID)

	ctx, span := tracer.Start(ctx, "ProcessKick")
	defer span.End()

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("kick").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("kick").Inc()

	err := eng.kick(ctx, msg)
	if err != nil {
		eventErrorCount.WithLabelValues("kick").Inc()
	}
	return err
}

func (eng *Engine) kick(ctx context.Context, msg event.Message) error {
	target, err := kickTarget(msg)
	if err != nil {
		// usage problem, not a failure
		if err := eng.Client.SendMessage(ctx, msg.ChatID, kickUsageText); err != nil {
			transportErrorCount.WithLabelValues("send").Inc()
			return fmt.Errorf("sending kick usage hint (chat=%d): %w", msg.ChatID, err)
		}
		return nil
	}

	logger := eng.Logger.With("chat", msg.ChatID, "moderator", msg.SenderID, "member", target)

	if eng.Config.KickAdminsOnly {
		admin, err := eng.Client.IsChatAdmin(ctx, msg.ChatID, msg.SenderID)
		if err != nil {
			transportErrorCount.WithLabelValues("admin-check").Inc()
			return fmt.Errorf("checking kick permission (chat=%d user=%d): %w", msg.ChatID, msg.SenderID, err)
		}
		if !admin {
			logger.Info("refusing kick from non-admin")
			if err := eng.Client.SendMessage(ctx, msg.ChatID, kickNotAllowedText); err != nil {
				transportErrorCount.WithLabelValues("send").Inc()
				return fmt.Errorf("sending kick refusal (chat=%d): %w", msg.ChatID, err)
			}
			return nil
		}
	}

	if err := eng.Client.BanMember(ctx, msg.ChatID, target); err != nil {
		transportErrorCount.WithLabelValues("ban").Inc()
		return fmt.Errorf("kicking member (chat=%d member=%d): %w", msg.ChatID, target, err)
	}
	kickCount.Inc()
	logger.Info("kicked member")
	eng.increment(ctx, "kick", msg.ChatID)
	eng.addFlags(ctx, target, flagstore.FlagKicked)
	eng.notify(ctx, ModAction{
		Kind:       ModActionKick,
		ChatID:     msg.ChatID,
		MemberID:   target,
		MemberName: msg.ReplyTo.SenderName,
		ActorID:    msg.SenderID,
		ActorName:  msg.SenderName,
	})

	if err := eng.Client.SendMessage(ctx, msg.ChatID, kickedText); err != nil {
		transportErrorCount.WithLabelValues("send").Inc()
		return fmt.Errorf("sending kick notice (chat=%d): %w", msg.ChatID, err)
	}
	return nil
}
