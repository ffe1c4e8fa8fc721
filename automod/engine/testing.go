package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fakacrm/turnstile/automod/countstore"
	"github.com/fakacrm/turnstile/automod/flagstore"
	"github.com/fakacrm/turnstile/automod/keyword"
	"github.com/fakacrm/turnstile/automod/verify"
)

type SentMessage struct {
	ChatID int64
	Text   string
}

type DeletedMessage struct {
	ChatID    int64
	MessageID int
}

type Ban struct {
	ChatID int64
	UserID int64
}

// In-memory ChatClient which records every call. Intentionally exported, for use in other packages' tests.
type FakeChatClient struct {
	mu      sync.Mutex
	Sent    []SentMessage
	Deleted []DeletedMessage
	Bans    []Ban
	Admins  map[int64]bool

	SendErr   error
	DeleteErr error
	BanErr    error
	AdminErr  error
}

var _ ChatClient = (*FakeChatClient)(nil)

func NewFakeChatClient() *FakeChatClient {
	return &FakeChatClient{
		Admins: make(map[int64]bool),
	}
}

func (c *FakeChatClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.Sent = append(c.Sent, SentMessage{ChatID: chatID, Text: text})
	return nil
}

func (c *FakeChatClient) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DeleteErr != nil {
		return c.DeleteErr
	}
	c.Deleted = append(c.Deleted, DeletedMessage{ChatID: chatID, MessageID: messageID})
	return nil
}

func (c *FakeChatClient) BanMember(ctx context.Context, chatID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BanErr != nil {
		return c.BanErr
	}
	c.Bans = append(c.Bans, Ban{ChatID: chatID, UserID: userID})
	return nil
}

func (c *FakeChatClient) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AdminErr != nil {
		return false, c.AdminErr
	}
	return c.Admins[userID], nil
}

// Returns copies of the recorded calls.
func (c *FakeChatClient) Calls() ([]SentMessage, []DeletedMessage, []Ban) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentMessage{}, c.Sent...), append([]DeletedMessage{}, c.Deleted...), append([]Ban{}, c.Bans...)
}

// Scheduler which holds timers until the test fires them.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []ManualTimer
}

type ManualTimer struct {
	Delay time.Duration
	F     func()
}

var _ Scheduler = (*ManualScheduler)(nil)

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, ManualTimer{Delay: d, F: f})
}

func (s *ManualScheduler) Pending() []ManualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ManualTimer{}, s.pending...)
}

// Runs all scheduled timers synchronously, in the order they were scheduled, and clears them.
func (s *ManualScheduler) FireAll() {
	s.mu.Lock()
	timers := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, t := range timers {
		t.F()
	}
}

func EngineTestFixture() (*Engine, *FakeChatClient, *ManualScheduler) {
	client := NewFakeChatClient()
	sched := &ManualScheduler{}
	eng := &Engine{
		Logger:    slog.Default(),
		Client:    client,
		Registry:  verify.NewMemRegistry(),
		Filter:    keyword.NewMatcher(keyword.DefaultBannedSubstrings),
		Counters:  countstore.NewMemCountStore(),
		Flags:     flagstore.NewMemFlagStore(),
		Scheduler: sched,
		Config: EngineConfig{
			VerifyDeadline: DefaultVerifyDeadline,
			KickAdminsOnly: true,
		},
	}
	return eng, client, sched
}
