package automod

import (
	"github.com/fakacrm/turnstile/automod/countstore"
	"github.com/fakacrm/turnstile/automod/engine"
)

type Engine = engine.Engine
type EngineConfig = engine.EngineConfig
type ChatClient = engine.ChatClient
type Scheduler = engine.Scheduler

type Notifier = engine.Notifier
type SlackNotifier = engine.SlackNotifier
type ModAction = engine.ModAction

var (
	ErrNoReplyTarget = engine.ErrNoReplyTarget

	NewSlackNotifier = engine.NewSlackNotifier

	PeriodTotal = countstore.PeriodTotal
	PeriodDay   = countstore.PeriodDay
	PeriodHour  = countstore.PeriodHour
)
