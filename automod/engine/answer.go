package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fakacrm/turnstile/automod/event"
	"github.com/fakacrm/turnstile/automod/flagstore"
	"github.com/fakacrm/turnstile/automod/verify"

	"go.opentelemetry.io/otel/attribute"
)

// Handles a plain text message: first as a possible answer to a pending verification, then through the content filter. Both run for every message.
func (eng *Engine) ProcessMessage(ctx context.Context, msg event.Message) error {
	defer eng.recoverPanic("message", "chat", msg.ChatID, "sender", msg.SenderID)

	ctx, span := tracer.Start(ctx, "ProcessMessage")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat", msg.ChatID), attribute.Int64("sender", msg.SenderID))

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("message").Inc()

	var errs []error
	if msg.SenderID != 0 {
		if err := eng.checkAnswer(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if err := eng.filterMessage(ctx, msg); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		eventErrorCount.WithLabelValues("message").Inc()
	}
	return errors.Join(errs...)
}

func (eng *Engine) checkAnswer(ctx context.Context, msg event.Message) error {
	n, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil {
		// not an answer attempt
		return nil
	}

	// non-destructive read: a wrong guess must not consume the pending entry
	p, ok := eng.Registry.Get(msg.SenderID)
	if !ok {
		return nil
	}
	logger := eng.Logger.With("chat", msg.ChatID, "member", msg.SenderID)

	if n != p.ExpectedAnswer {
		wrongAnswerCount.Inc()
		logger.Info("wrong verification answer")
		eng.increment(ctx, "wrong-answer", p.OriginChat)
		if err := eng.Client.SendMessage(ctx, msg.ChatID, wrongAnswerText); err != nil {
			transportErrorCount.WithLabelValues("send").Inc()
			return fmt.Errorf("sending wrong-answer notice (chat=%d member=%d): %w", msg.ChatID, msg.SenderID, err)
		}
		return nil
	}

	// time has passed since the read above: the deadline may have fired, or the member rejoined and got a new question
	seq := p.Seq
	if _, ok := eng.Registry.TakeIf(msg.SenderID, func(cur verify.PendingVerification) bool {
		return cur.Seq == seq
	}); !ok {
		verifyOutcomeCount.WithLabelValues("lost-race").Inc()
		logger.Debug("verification resolved concurrently, ignoring answer")
		return nil
	}
	pendingVerifications.Set(float64(eng.Registry.Len()))
	verifyOutcomeCount.WithLabelValues("accepted").Inc()
	logger.Info("member passed verification")
	eng.increment(ctx, "verify-passed", p.OriginChat)
	eng.addFlags(ctx, msg.SenderID, flagstore.FlagVerifyPassed)

	if err := eng.Client.SendMessage(ctx, msg.ChatID, acceptedText); err != nil {
		transportErrorCount.WithLabelValues("send").Inc()
		return fmt.Errorf("sending verification acceptance (chat=%d member=%d): %w", msg.ChatID, msg.SenderID, err)
	}
	return nil
}
