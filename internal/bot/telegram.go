package bot

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// TelegramMessenger adapts the telego client to the Messenger contract and
// to the onboarding runner's platform contract. A private reply goes to the
// invoker's own chat; the originating channel never sees it.
type TelegramMessenger struct {
	Instance *telego.Bot
}

func NewTelegramMessenger(instance *telego.Bot) *TelegramMessenger {
	return &TelegramMessenger{Instance: instance}
}

func (m *TelegramMessenger) Reply(ctx context.Context, cmd *Command, text string, private bool) error {
	chatID := cmd.ChatID
	if private {
		chatID = cmd.Sender.ID
	}
	_, err := m.Instance.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}

func (m *TelegramMessenger) DeleteCommand(ctx context.Context, cmd *Command) error {
	return m.Instance.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(cmd.ChatID),
		MessageID: cmd.MessageID,
	})
}

// IsMember reports whether the user still belongs to the parent community.
func (m *TelegramMessenger) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	member, err := m.Instance.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(communityID),
		UserID: userID,
	})
	if err != nil {
		return false, err
	}

	status := member.MemberStatus()
	return status != telego.MemberStatusLeft && status != telego.MemberStatusBanned, nil
}

// SendDirect delivers a message to the user's own chat.
func (m *TelegramMessenger) SendDirect(ctx context.Context, userID int64, text string) error {
	_, err := m.Instance.SendMessage(ctx, tu.Message(tu.ID(userID), text))
	return err
}
