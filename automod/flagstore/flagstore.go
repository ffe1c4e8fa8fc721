// Private moderation flags attached to chat members (eg, "verify-timeout").
//
// Flags are never shown in chat; they record what automod did to whom, for moderator review.
package flagstore

import (
	"context"
)

// Flags recorded by the engine
const (
	FlagVerifyTimeout = "verify-timeout"
	FlagVerifyPassed  = "verify-passed"
	FlagBannedWord    = "banned-word"
	FlagKicked        = "kicked"
)

type FlagStore interface {
	Get(ctx context.Context, key string) ([]string, error)
	Add(ctx context.Context, key string, flags []string) error
	Remove(ctx context.Context, key string, flags []string) error
}
