package engine

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fakacrm/turnstile/automod/challenge"
	"github.com/fakacrm/turnstile/automod/countstore"
	"github.com/fakacrm/turnstile/automod/flagstore"
	"github.com/fakacrm/turnstile/automod/keyword"
	"github.com/fakacrm/turnstile/automod/verify"
)

const (
	DefaultVerifyDeadline = 5 * time.Minute
	DefaultActionTimeout  = 30 * time.Second
)

// The operations automod needs from the chat service. Implementations must be safe for concurrent use; failures are reported, never retried by the engine.
type ChatClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	BanMember(ctx context.Context, chatID, userID int64) error
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// Runs f once, after d has elapsed, on its own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

type EngineConfig struct {
	// how long a new member has to answer; defaults to DefaultVerifyDeadline
	VerifyDeadline time.Duration
	// upper bound on chat API calls made from the deadline timer, which has no caller context
	ActionTimeout time.Duration
	// if true, only chat administrators may use the kick command
	KickAdminsOnly bool
}

// runtime for verifying new members, filtering messages, and recording moderation actions.
//
// Fields other than Notifier, Scheduler, Counters and Flags are required.
type Engine struct {
	Logger     *slog.Logger
	Client     ChatClient
	Registry   verify.Registry
	Challenges challenge.Generator
	Filter     *keyword.Matcher
	Counters   countstore.CountStore
	Flags      flagstore.FlagStore
	Notifier   Notifier
	Scheduler  Scheduler
	Config     EngineConfig

	// distinguishes successive challenges for the same member
	challengeSeq atomic.Uint64
}

func (eng *Engine) deadline() time.Duration {
	if eng.Config.VerifyDeadline > 0 {
		return eng.Config.VerifyDeadline
	}
	return DefaultVerifyDeadline
}

func (eng *Engine) actionTimeout() time.Duration {
	if eng.Config.ActionTimeout > 0 {
		return eng.Config.ActionTimeout
	}
	return DefaultActionTimeout
}

func (eng *Engine) scheduler() Scheduler {
	if eng.Scheduler != nil {
		return eng.Scheduler
	}
	return timerScheduler{}
}

// similar to an HTTP server, we want to recover any panics from event handling
func (eng *Engine) recoverPanic(eventType string, attrs ...any) {
	if r := recover(); r != nil {
		eventErrorCount.WithLabelValues(eventType).Inc()
		eng.Logger.Error("automod event execution exception", append([]any{"err", r, "type", eventType}, attrs...)...)
	}
}

// Counters are observational; failures are logged, not returned.
func (eng *Engine) increment(ctx context.Context, name string, chatID int64) {
	if eng.Counters == nil {
		return
	}
	if err := eng.Counters.Increment(ctx, name, strconv.FormatInt(chatID, 10)); err != nil {
		eng.Logger.Warn("failed to increment counter", "name", name, "chat", chatID, "err", err)
	}
}

func (eng *Engine) addFlags(ctx context.Context, memberID int64, flags ...string) {
	if eng.Flags == nil {
		return
	}
	if err := eng.Flags.Add(ctx, strconv.FormatInt(memberID, 10), flags); err != nil {
		eng.Logger.Warn("failed to persist member flags", "member", memberID, "flags", flags, "err", err)
	}
}

func (eng *Engine) notify(ctx context.Context, act ModAction) {
	if eng.Notifier == nil {
		return
	}
	if err := eng.Notifier.SendModAction(ctx, act); err != nil {
		eng.Logger.Error("sending moderator notification", "action", act.Kind, "err", err)
	}
}

// Returns the number of members currently awaiting verification.
func (eng *Engine) PendingCount() int {
	return eng.Registry.Len()
}

// Returns a snapshot of members currently awaiting verification.
func (eng *Engine) Pending() []verify.PendingVerification {
	return eng.Registry.List()
}
