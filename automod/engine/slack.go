package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fakacrm/turnstile/util"
)

type SlackNotifier struct {
	SlackWebhookURL string
	// defaults to util.RobustHTTPClient()
	Client *http.Client
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		SlackWebhookURL: webhookURL,
		Client:          util.RobustHTTPClient(),
	}
}

func (n *SlackNotifier) SendModAction(ctx context.Context, act ModAction) error {
	return n.sendSlackMsg(ctx, slackBody(act))
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = util.RobustHTTPClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(act ModAction) string {
	msg := "⚠️ Automod Member Action ⚠️\n"
	switch act.Kind {
	case ModActionVerifyTimeout:
		msg += "Verification timed out, member banned\n"
	case ModActionKick:
		msg += "Member kicked by moderator command\n"
	default:
		msg += fmt.Sprintf("Action: `%s`\n", act.Kind)
	}
	msg += fmt.Sprintf("Chat: `%d`\n", act.ChatID)
	if act.MemberName != "" {
		msg += fmt.Sprintf("Member: `%d` / %s\n", act.MemberID, act.MemberName)
	} else {
		msg += fmt.Sprintf("Member: `%d`\n", act.MemberID)
	}
	if act.ActorID != 0 {
		msg += fmt.Sprintf("By: `%d` / %s\n", act.ActorID, act.ActorName)
	}
	return msg
}
