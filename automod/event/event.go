// Transport-neutral chat events that the automod engine processes.
package event

// A user who joined a chat.
type Member struct {
	ID          int64
	DisplayName string
	IsBot       bool
}

// One or more users joined the chat at once.
type MembersJoined struct {
	ChatID  int64
	Members []Member
}

// Reference to an earlier message that a new message replies to.
type MessageRef struct {
	MessageID int
	// zero if the author is unknown (eg, channel posts)
	SenderID   int64
	SenderName string
}

// A text message posted in a chat.
type Message struct {
	ChatID     int64
	MessageID  int
	SenderID   int64
	SenderName string
	Text       string
	ReplyTo    *MessageRef
}

// Bot command names
const (
	CommandKick = "kick"
)

// A slash-command message, eg "/kick".
type Command struct {
	Name    string
	Args    string
	Message Message
}
