package consumer

import (
	"context"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/fakacrm/turnstile/automod/cachestore"
	"github.com/fakacrm/turnstile/automod/engine"
	"github.com/fakacrm/turnstile/automod/event"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testChat = &tgbotapi.Chat{ID: -100123, Type: "supergroup"}

func textUpdate(id int, from *tgbotapi.User, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id * 10,
			From:      from,
			Chat:      testChat,
			Text:      text,
		},
	}
}

func TestConvertJoin(t *testing.T) {
	assert := assert.New(t)

	upd := tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 5,
			Chat:      testChat,
			NewChatMembers: []tgbotapi.User{
				{ID: 111, FirstName: "Alice", LastName: "Liddell"},
				{ID: 222, UserName: "bob"},
				{ID: 333, FirstName: "Helper", IsBot: true},
			},
		},
	}
	evt, ok := ConvertUpdate(upd).(event.MembersJoined)
	require.True(t, ok)
	assert.Equal(int64(-100123), evt.ChatID)
	assert.Equal([]event.Member{
		{ID: 111, DisplayName: "Alice Liddell"},
		{ID: 222, DisplayName: "bob"},
		{ID: 333, DisplayName: "Helper", IsBot: true},
	}, evt.Members)
}

func TestConvertMessage(t *testing.T) {
	assert := assert.New(t)

	upd := textUpdate(2, &tgbotapi.User{ID: 111, FirstName: "Alice"}, "7")
	upd.Message.ReplyToMessage = &tgbotapi.Message{MessageID: 3, From: &tgbotapi.User{ID: 9, FirstName: "Bot"}}
	msg, ok := ConvertUpdate(upd).(event.Message)
	require.True(t, ok)
	assert.Equal(event.Message{
		ChatID:     -100123,
		MessageID:  20,
		SenderID:   111,
		SenderName: "Alice",
		Text:       "7",
		ReplyTo:    &event.MessageRef{MessageID: 3, SenderID: 9, SenderName: "Bot"},
	}, msg)

	// no sender (eg, anonymous channel post)
	msg, ok = ConvertUpdate(textUpdate(3, nil, "hello")).(event.Message)
	require.True(t, ok)
	assert.Equal(int64(0), msg.SenderID)
}

func TestConvertCommand(t *testing.T) {
	assert := assert.New(t)

	upd := textUpdate(4, &tgbotapi.User{ID: 1, FirstName: "Mod"}, "/kick@turnstile_bot now")
	upd.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 19}}
	upd.Message.ReplyToMessage = &tgbotapi.Message{MessageID: 3, From: &tgbotapi.User{ID: 777}}

	cmd, ok := ConvertUpdate(upd).(event.Command)
	require.True(t, ok)
	assert.Equal(event.CommandKick, cmd.Name)
	assert.Equal("now", cmd.Args)
	assert.Equal(int64(777), cmd.Message.ReplyTo.SenderID)
}

func TestConvertIgnored(t *testing.T) {
	assert := assert.New(t)

	assert.Nil(ConvertUpdate(tgbotapi.Update{UpdateID: 5}))
	// non-text messages, eg photos without caption
	assert.Nil(ConvertUpdate(textUpdate(6, &tgbotapi.User{ID: 1}, "")))
}

func TestHandleUpdateDedupe(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, client, _ := engine.EngineTestFixture()
	tc := &TelegramConsumer{
		Logger: slog.Default(),
		Engine: eng,
		Cache:  cachestore.NewMemCacheStore(100, time.Hour),
	}

	upd := textUpdate(7, &tgbotapi.User{ID: 555}, "广告")
	tc.HandleUpdate(ctx, upd)
	tc.HandleUpdate(ctx, upd)
	tc.wg.Wait()

	_, deleted, _ := client.Calls()
	assert.Equal(1, len(deleted))
}

func TestHandleUpdateVerification(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, client, sched := engine.EngineTestFixture()
	tc := &TelegramConsumer{
		Logger: slog.Default(),
		Engine: eng,
	}

	tc.HandleUpdate(ctx, tgbotapi.Update{
		UpdateID: 8,
		Message: &tgbotapi.Message{
			MessageID:      80,
			Chat:           testChat,
			NewChatMembers: []tgbotapi.User{{ID: 111, FirstName: "Alice"}},
		},
	})
	tc.wg.Wait()
	assert.Equal(1, len(sched.Pending()))

	p, ok := eng.Registry.Get(111)
	require.True(t, ok)
	tc.HandleUpdate(ctx, textUpdate(9, &tgbotapi.User{ID: 111}, strconv.Itoa(p.ExpectedAnswer)))
	tc.wg.Wait()

	_, ok = eng.Registry.Get(111)
	assert.False(ok)
	sent, _, _ := client.Calls()
	assert.Equal(2, len(sent))
}

type fakeSource struct {
	ch      chan tgbotapi.Update
	stopped bool
}

func (s *fakeSource) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.ch
}

func (s *fakeSource) StopReceivingUpdates() {
	s.stopped = true
}

func TestRunStopsOnCancel(t *testing.T) {
	assert := assert.New(t)

	eng, client, _ := engine.EngineTestFixture()
	src := &fakeSource{ch: make(chan tgbotapi.Update, 1)}
	tc := &TelegramConsumer{
		Logger: slog.Default(),
		Engine: eng,
		Bot:    src,
	}
	src.ch <- textUpdate(10, &tgbotapi.User{ID: 555}, "垃圾")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- tc.Run(ctx)
	}()

	assert.Eventually(func() bool {
		_, deleted, _ := client.Calls()
		return len(deleted) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(<-done)
	assert.True(src.stopped)
}
