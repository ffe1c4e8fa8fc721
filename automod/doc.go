// Group-chat gatekeeping engine.
//
// This package (`github.com/fakacrm/turnstile/automod`) admits new members of a Telegram group only after they answer a short arithmetic challenge within a deadline. Members who do not answer in time are banned. The same engine deletes messages containing banned substrings, and handles the moderator `/kick` command. Counters and flags about each outcome are recorded for moderators, and can optionally be pushed to a Slack channel.
//
// The subpackages hold the pieces: `challenge` generates questions, `verify` is the registry of pending challenges, `engine` runs the workflows, `telegram` and `consumer` connect to the Bot API. See `cmd/turnstile` for the daemon built on this package.
package automod
