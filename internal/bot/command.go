package bot

import "fmt"

// UserRef identifies a platform user. The platform owns the identity; the
// ledger keys accounts by ID.
type UserRef struct {
	ID   int64
	Name string
}

func (u UserRef) Mention() string {
	if u.Name != "" {
		return "@" + u.Name
	}
	return fmt.Sprintf("user %d", u.ID)
}

// Command is one incoming request: where it came from, who sent it, and
// which message carried it. Created per command, discarded after the
// response is sent.
type Command struct {
	ChatID        int64
	MessageID     int
	DirectMessage bool
	Sender        UserRef
}

// NeedsPrivateReply resolves response visibility: commands issued in a
// direct message get ordinary replies, anything said in a group gets a
// private reply so balances and amounts never leak to the channel.
func (c *Command) NeedsPrivateReply() bool {
	return !c.DirectMessage
}
