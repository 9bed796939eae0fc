package bot

import (
	"testing"

	"github.com/mymmrac/telego"
)

func TestCommandArgs(t *testing.T) {
	if got := commandArgs("/withdraw 5FHn 2.5"); len(got) != 2 || got[0] != "5FHn" || got[1] != "2.5" {
		t.Fatalf("got %v", got)
	}
	if got := commandArgs("/deposit"); got != nil {
		t.Fatalf("bare command should yield no args, got %v", got)
	}
	if got := commandArgs("/tip   3"); len(got) != 1 || got[0] != "3" {
		t.Fatalf("repeated spaces not collapsed, got %v", got)
	}
}

func TestParseAmount(t *testing.T) {
	if _, err := parseAmount("3"); err != nil {
		t.Fatalf("valid amount rejected: %v", err)
	}
	if amount, err := parseAmount("0.000000001"); err != nil || amount.String() != "0.000000001" {
		t.Fatalf("nine-decimal amount mangled: %v %v", amount, err)
	}
	for _, bad := range []string{"0", "-1", "abc", "1,5", ""} {
		if _, err := parseAmount(bad); err == nil {
			t.Fatalf("amount %q accepted", bad)
		}
	}
}

func TestResolveRecipientFromReply(t *testing.T) {
	msg := &telego.Message{
		Text: "/tip 3",
		ReplyToMessage: &telego.Message{
			From: &telego.User{ID: 42, Username: "bob"},
		},
	}

	got, ok := resolveRecipient(msg)
	if !ok || got.ID != 42 || got.Name != "bob" {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
}

func TestResolveRecipientFromTextMention(t *testing.T) {
	msg := &telego.Message{
		Text: "/tip Bob 3",
		Entities: []telego.MessageEntity{
			{Type: telego.EntityTypeBotCommand, Offset: 0, Length: 4},
			{Type: telego.EntityTypeTextMention, Offset: 5, Length: 3, User: &telego.User{ID: 42, Username: "bob"}},
		},
	}

	got, ok := resolveRecipient(msg)
	if !ok || got.ID != 42 {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
}

func TestResolveRecipientMissing(t *testing.T) {
	if _, ok := resolveRecipient(&telego.Message{Text: "/tip @bob 3"}); ok {
		t.Fatal("plain @username mention carries no id and must not resolve")
	}
}
