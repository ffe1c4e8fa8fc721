package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fakacrm/turnstile/automod/event"
	"github.com/fakacrm/turnstile/automod/flagstore"
	"github.com/fakacrm/turnstile/automod/verify"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Challenges every (non-bot) member in a join event. Members are handled concurrently and independently: one member's failure does not affect the others.
//
// Returns the first error encountered, if any.
func (eng *Engine) ProcessMembersJoined(ctx context.Context, evt event.MembersJoined) error {
	defer eng.recoverPanic("join", "chat", evt.ChatID)

	ctx, span := tracer.Start(ctx, "ProcessMembersJoined")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat", evt.ChatID), attribute.Int("members", len(evt.Members)))

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("join").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("join").Inc()

	var eg errgroup.Group
	for _, m := range evt.Members {
		if m.IsBot {
			eng.Logger.Debug("not challenging bot account", "chat", evt.ChatID, "member", m.ID)
			continue
		}
		m := m
		eg.Go(func() error {
			return eng.challengeMember(ctx, evt.ChatID, m)
		})
	}
	if err := eg.Wait(); err != nil {
		eventErrorCount.WithLabelValues("join").Inc()
		return err
	}
	return nil
}

func (eng *Engine) challengeMember(ctx context.Context, chatID int64, m event.Member) error {
	c := eng.Challenges.New()

	if err := eng.Client.SendMessage(ctx, chatID, welcomeText(m.DisplayName, c.Question(), eng.deadline())); err != nil {
		transportErrorCount.WithLabelValues("send").Inc()
		return fmt.Errorf("sending verification question (chat=%d member=%d): %w", chatID, m.ID, err)
	}

	p := verify.PendingVerification{
		MemberID:       m.ID,
		ExpectedAnswer: c.Answer,
		OriginChat:     chatID,
		DisplayName:    m.DisplayName,
		IssuedAt:       time.Now(),
		Seq:            eng.challengeSeq.Add(1),
	}
	eng.Registry.Put(p)
	pendingVerifications.Set(float64(eng.Registry.Len()))
	challengesIssued.Inc()

	memberID, seq := p.MemberID, p.Seq
	eng.scheduler().AfterFunc(eng.deadline(), func() {
		eng.expireMember(memberID, chatID, seq)
	})

	eng.Logger.Info("challenged new member", "chat", chatID, "member", m.ID, "deadline", eng.deadline())
	eng.increment(ctx, "join", chatID)
	return nil
}

// Deadline path. Runs detached from any event, once per challenge.
//
// The registry entry may be long gone by now (answered, or superseded by a newer challenge); only the caller which takes it out of the registry acts on it.
func (eng *Engine) expireMember(memberID, chatID int64, seq uint64) {
	defer eng.recoverPanic("deadline", "chat", chatID, "member", memberID)

	p, ok := eng.Registry.TakeIf(memberID, func(p verify.PendingVerification) bool {
		return p.Seq == seq
	})
	if !ok {
		eng.Logger.Debug("verification already resolved before deadline", "chat", chatID, "member", memberID)
		return
	}
	pendingVerifications.Set(float64(eng.Registry.Len()))

	ctx, cancel := context.WithTimeout(context.Background(), eng.actionTimeout())
	defer cancel()
	ctx, span := tracer.Start(ctx, "ExpireVerification")
	defer span.End()

	logger := eng.Logger.With("chat", p.OriginChat, "member", memberID)

	// NOTE: the entry is already gone, so a failed ban is not re-attempted
	if err := eng.Client.BanMember(ctx, p.OriginChat, memberID); err != nil {
		transportErrorCount.WithLabelValues("ban").Inc()
		logger.Error("failed to ban member after verification timeout", "err", err)
		return
	}
	verifyOutcomeCount.WithLabelValues("timeout").Inc()
	logger.Info("banned member after verification timeout")
	eng.increment(ctx, "verify-timeout", p.OriginChat)
	eng.addFlags(ctx, memberID, flagstore.FlagVerifyTimeout)

	if err := eng.Client.SendMessage(ctx, p.OriginChat, timeoutText(p.DisplayName, memberID)); err != nil {
		transportErrorCount.WithLabelValues("send").Inc()
		logger.Error("failed to send verification timeout notice", "err", err)
	}
	eng.notify(ctx, ModAction{
		Kind:       ModActionVerifyTimeout,
		ChatID:     p.OriginChat,
		MemberID:   memberID,
		MemberName: p.DisplayName,
	})
}
