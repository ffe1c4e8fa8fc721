// Telegram Bot API implementation of the automod chat client.
package telegram

import (
	"context"
	"fmt"

	"github.com/fakacrm/turnstile/automod/engine"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Subset of *tgbotapi.BotAPI used by Client.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Chat client for the Telegram Bot API. Stateless apart from the rate limiter, and safe for concurrent use.
//
// Outbound calls are paced by Limiter (if set) to stay under the Bot API's flood limits. Failed calls are returned as errors and never retried.
type Client struct {
	Bot     BotAPI
	Limiter *rate.Limiter
}

var _ engine.ChatClient = (*Client)(nil)

func NewClient(bot BotAPI, perSecond int) *Client {
	c := &Client{Bot: bot}
	if perSecond > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return c
}

func (c *Client) wait(ctx context.Context) error {
	if c.Limiter == nil {
		return nil
	}
	return c.Limiter.Wait(ctx)
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.Bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("telegram deleteMessage: %w", err)
	}
	return nil
}

func (c *Client) BanMember(ctx context.Context, chatID, userID int64) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
	}
	if _, err := c.Bot.Request(cfg); err != nil {
		return fmt.Errorf("telegram banChatMember: %w", err)
	}
	return nil
}

func (c *Client) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	m, err := c.Bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("telegram getChatMember: %w", err)
	}
	return m.IsCreator() || m.IsAdministrator(), nil
}
