package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fakacrm/turnstile/automod/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotifier(t *testing.T) {
	assert := assert.New(t)

	var got SlackWebhookBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := &SlackNotifier{SlackWebhookURL: srv.URL, Client: srv.Client()}
	assert.NoError(n.SendModAction(context.Background(), ModAction{
		Kind:       ModActionKick,
		ChatID:     testChat,
		MemberID:   777,
		MemberName: "spammer",
		ActorID:    1,
		ActorName:  "mod",
	}))
	assert.Contains(got.Text, "kicked")
	assert.Contains(got.Text, "`777` / spammer")
	assert.Contains(got.Text, "By: `1` / mod")
}

func TestSlackNotifierFailure(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no_service"))
	}))
	defer srv.Close()

	n := &SlackNotifier{SlackWebhookURL: srv.URL, Client: srv.Client()}
	assert.Error(n.SendModAction(context.Background(), ModAction{Kind: ModActionVerifyTimeout, ChatID: testChat, MemberID: 1}))
}

type recordingNotifier struct {
	actions []ModAction
}

func (n *recordingNotifier) SendModAction(ctx context.Context, act ModAction) error {
	n.actions = append(n.actions, act)
	return nil
}

func TestEngineNotifiesOnTimeout(t *testing.T) {
	assert := assert.New(t)

	eng, _, sched := EngineTestFixture()
	rn := &recordingNotifier{}
	eng.Notifier = rn
	join(t, eng, testChat, event.Member{ID: 111, DisplayName: "alice"})
	sched.FireAll()

	require.Equal(t, 1, len(rn.actions))
	assert.Equal(ModActionVerifyTimeout, rn.actions[0].Kind)
	assert.Equal(int64(111), rn.actions[0].MemberID)
	assert.Equal("alice", rn.actions[0].MemberName)
}
