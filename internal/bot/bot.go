package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"go.uber.org/zap"
)

type Bot struct {
	Instance     *telego.Bot
	Orchestrator *Orchestrator
	Log          *zap.Logger
}

func NewBot(token string, orchestrator *Orchestrator, log *zap.Logger) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		Instance:     tgBot,
		Orchestrator: orchestrator,
		Log:          log,
	}, nil
}

func commandFromMessage(msg *telego.Message) *Command {
	sender := UserRef{}
	if msg.From != nil {
		sender = UserRef{ID: msg.From.ID, Name: msg.From.Username}
	}
	return &Command{
		ChatID:        msg.Chat.ID,
		MessageID:     msg.MessageID,
		DirectMessage: msg.Chat.Type == telego.ChatTypePrivate,
		Sender:        sender,
	}
}

// Start registers the command handlers and blocks dispatching updates.
// onReady fires once the chat client has confirmed its identity, before the
// first update is handled.
func (b *Bot) Start(ctx context.Context, onReady func()) {
	me, err := b.Instance.GetMe(ctx)
	if err != nil {
		b.Log.Error("failed to confirm bot identity", zap.Error(err))
	} else {
		b.Log.Info("logged in", zap.String("username", me.Username))
	}
	if onReady != nil {
		onReady()
	}

	updates, _ := b.Instance.UpdatesViaLongPolling(ctx, nil)

	handler, _ := th.NewBotHandler(b.Instance, updates)

	// /tip <amount>, target taken from the replied-to message or a
	// text mention
	handler.Handle(func(hctx *th.Context, update telego.Update) error {
		msg := update.Message
		cmd := commandFromMessage(msg)

		args := commandArgs(msg.Text)
		if len(args) < 1 {
			b.Orchestrator.reply(hctx.Context(), cmd, "Usage: /tip <amount>, replying to the user you want to tip.", cmd.NeedsPrivateReply())
			return nil
		}

		recipient, ok := resolveRecipient(msg)
		if !ok {
			b.Orchestrator.reply(hctx.Context(), cmd, "I can't tell who you want to tip. Reply to one of their messages.", cmd.NeedsPrivateReply())
			return nil
		}

		amount, err := parseAmount(args[len(args)-1])
		if err != nil {
			b.Orchestrator.reply(hctx.Context(), cmd, "That doesn't look like a valid amount of tao.", cmd.NeedsPrivateReply())
			return nil
		}

		if !b.Orchestrator.EnsureSufficient(hctx.Context(), cmd, amount) {
			return nil
		}
		b.Orchestrator.HandleTip(hctx.Context(), cmd, recipient, amount)
		return nil
	}, th.CommandEqual("tip"))

	// /withdraw <address> <amount>
	handler.Handle(func(hctx *th.Context, update telego.Update) error {
		msg := update.Message
		cmd := commandFromMessage(msg)

		args := commandArgs(msg.Text)
		if len(args) < 2 {
			b.Orchestrator.reply(hctx.Context(), cmd, "Usage: /withdraw <address> <amount>", cmd.NeedsPrivateReply())
			return nil
		}

		amount, err := parseAmount(args[1])
		if err != nil {
			b.Orchestrator.reply(hctx.Context(), cmd, "That doesn't look like a valid amount of tao.", cmd.NeedsPrivateReply())
			return nil
		}

		b.Orchestrator.HandleWithdraw(hctx.Context(), cmd, args[0], amount)
		return nil
	}, th.CommandEqual("withdraw"))

	// /deposit
	handler.Handle(func(hctx *th.Context, update telego.Update) error {
		cmd := commandFromMessage(update.Message)
		b.Orchestrator.HandleDeposit(hctx.Context(), cmd)
		return nil
	}, th.CommandEqual("deposit"))

	// /balance
	handler.Handle(func(hctx *th.Context, update telego.Update) error {
		cmd := commandFromMessage(update.Message)
		b.Orchestrator.HandleBalance(hctx.Context(), cmd)
		return nil
	}, th.CommandEqual("balance"))

	// /help and /start
	helpHandler := func(hctx *th.Context, update telego.Update) error {
		cmd := commandFromMessage(update.Message)
		b.Orchestrator.HandleHelp(hctx.Context(), cmd)
		return nil
	}
	handler.Handle(helpHandler, th.CommandEqual("help"))
	handler.Handle(helpHandler, th.CommandEqual("start"))

	handler.Start()
}
