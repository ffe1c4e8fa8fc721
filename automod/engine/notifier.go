package engine

import (
	"context"
)

const (
	ModActionVerifyTimeout = "verify-timeout"
	ModActionKick          = "kick"
)

// A moderation action taken against a chat member, reported to moderators out-of-band.
type ModAction struct {
	Kind       string
	ChatID     int64
	MemberID   int64
	MemberName string
	// who triggered the action; zero for automatic actions
	ActorID   int64
	ActorName string
}

// Interface for a type that can handle sending notifications
type Notifier interface {
	SendModAction(ctx context.Context, act ModAction) error
}
