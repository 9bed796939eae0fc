package bot

import (
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	"github.com/shopspring/decimal"
)

// commandArgs returns the whitespace-separated arguments after the command
// word itself.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

// parseAmount parses a positive tao amount.
func parseAmount(arg string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(arg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", arg)
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", amount)
	}
	return amount, nil
}

// resolveRecipient finds the tip target: either the author of the message
// being replied to, or a text-mention entity in the command text. Plain
// @username mentions carry no user id, so they cannot be resolved here.
func resolveRecipient(msg *telego.Message) (UserRef, bool) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		from := msg.ReplyToMessage.From
		return UserRef{ID: from.ID, Name: from.Username}, true
	}

	for _, entity := range msg.Entities {
		if entity.Type == telego.EntityTypeTextMention && entity.User != nil {
			return UserRef{ID: entity.User.ID, Name: entity.User.Username}, true
		}
	}

	return UserRef{}, false
}
