package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"taotip-bot/internal/ledger"
)

// Ledger is the slice of the ledger collaborator the command handlers call.
type Ledger interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	Transfer(ctx context.Context, sender, recipient int64, amount decimal.Decimal) (ledger.TransferOutcome, error)
	Withdraw(ctx context.Context, userID int64, address string, amount decimal.Decimal) (decimal.Decimal, error)
	DepositAddress(ctx context.Context, userID int64) (string, error)
	CreateDepositAddress(ctx context.Context, userID int64) (string, error)
}

// Messenger delivers responses for a command. private routes the reply to
// the invoker's direct chat instead of the originating channel.
type Messenger interface {
	Reply(ctx context.Context, cmd *Command, text string, private bool) error
	DeleteCommand(ctx context.Context, cmd *Command) error
}

const notConnectedMsg = "The bot is not connected to its ledger right now. Please try again later."

// Orchestrator executes chat commands against the ledger and issues exactly
// one terminal response per command (the deposit flow replies in stages, by
// design of the original conversation). A nil Ledger means the startup probe
// could not reach the store; every handler then fails fast with a clear
// not-connected reply.
type Orchestrator struct {
	Ledger     Ledger
	Messenger  Messenger
	Maintainer string
	HelpStr    string
	Log        *zap.Logger
}

func (o *Orchestrator) reply(ctx context.Context, cmd *Command, text string, private bool) {
	if err := o.Messenger.Reply(ctx, cmd, text, private); err != nil {
		o.Log.Error("failed to send reply", zap.Int64("chat", cmd.ChatID), zap.Error(err))
	}
}

func (o *Orchestrator) deleteCommand(ctx context.Context, cmd *Command) {
	if err := o.Messenger.DeleteCommand(ctx, cmd); err != nil {
		o.Log.Warn("failed to delete command message", zap.Int64("chat", cmd.ChatID), zap.Error(err))
	}
}

// EnsureSufficient checks the sender's balance before a tip. Advisory only:
// the ledger re-validates under a lock at transfer time, since the balance
// can change between this read and execution.
func (o *Orchestrator) EnsureSufficient(ctx context.Context, cmd *Command, amount decimal.Decimal) bool {
	if o.Ledger == nil {
		o.reply(ctx, cmd, notConnectedMsg, cmd.NeedsPrivateReply())
		return false
	}

	balance, err := o.Ledger.Balance(ctx, cmd.Sender.ID)
	if err != nil {
		o.Log.Error("balance check failed", zap.Int64("user", cmd.Sender.ID), zap.Error(err))
		o.reply(ctx, cmd, "Something went wrong checking your balance. Please try again later.", cmd.NeedsPrivateReply())
		return false
	}

	if balance.LessThan(amount) {
		o.reply(ctx, cmd, fmt.Sprintf("You don't have enough tao to tip %s tao", amount), cmd.NeedsPrivateReply())
		return false
	}
	return true
}

// HandleTip transfers amount from the command sender to recipient.
// Preconditions: EnsureSufficient already passed.
func (o *Orchestrator) HandleTip(ctx context.Context, cmd *Command, recipient UserRef, amount decimal.Decimal) {
	private := cmd.NeedsPrivateReply()

	if o.Ledger == nil {
		o.reply(ctx, cmd, notConnectedMsg, private)
		return
	}

	if recipient.ID == cmd.Sender.ID {
		o.reply(ctx, cmd, "You can't tip yourself.", private)
		return
	}

	outcome, err := o.Ledger.Transfer(ctx, cmd.Sender.ID, recipient.ID, amount)
	if err != nil {
		o.Log.Error("tip failed",
			zap.Int64("sender", cmd.Sender.ID),
			zap.Int64("recipient", recipient.ID),
			zap.String("amount", amount.String()),
			zap.Error(err))
		o.reply(ctx, cmd, fmt.Sprintf("You tried to tip %s %s tao but it failed", recipient.Mention(), amount), private)
		o.deleteCommand(ctx, cmd)
		return
	}

	switch outcome.Status {
	case ledger.TransferFeeInsufficient:
		// The command already exposed sender, recipient and amount to the
		// channel, so take it down along with the shortfall reply.
		o.reply(ctx, cmd, fmt.Sprintf("You do not have enough balance to tip %s tao with fee %s tao", amount, outcome.Fee), private)
		o.deleteCommand(ctx, cmd)
	case ledger.TransferSuccess:
		o.Log.Info("tip sent",
			zap.String("sender", cmd.Sender.Mention()),
			zap.String("recipient", recipient.Mention()),
			zap.String("amount", amount.String()))
		o.reply(ctx, cmd, fmt.Sprintf("%s tipped %s %s tao", cmd.Sender.Mention(), recipient.Mention(), amount), false)
	default:
		o.Log.Info("tip rejected",
			zap.String("sender", cmd.Sender.Mention()),
			zap.String("recipient", recipient.Mention()),
			zap.String("amount", amount.String()))
		o.reply(ctx, cmd, fmt.Sprintf("You tried to tip %s %s tao but it failed", recipient.Mention(), amount), private)
		o.deleteCommand(ctx, cmd)
	}
}

// HandleWithdraw moves amount from the sender's balance to an external
// address. Exactly one withdrawal attempt per invocation, no retry.
func (o *Orchestrator) HandleWithdraw(ctx context.Context, cmd *Command, address string, amount decimal.Decimal) {
	private := cmd.NeedsPrivateReply()

	if o.Ledger == nil {
		o.reply(ctx, cmd, notConnectedMsg, private)
		return
	}

	newBalance, err := o.Ledger.Withdraw(ctx, cmd.Sender.ID, address, amount)
	if err != nil {
		var domain *ledger.WithdrawError
		if errors.As(err, &domain) {
			o.reply(ctx, cmd, domain.Reason, private)
			return
		}
		o.Log.Error("withdrawal failed",
			zap.Int64("user", cmd.Sender.ID),
			zap.String("amount", amount.String()),
			zap.Error(err))
		o.reply(ctx, cmd, "Error making withdraw. Please contact "+o.Maintainer, private)
		return
	}

	o.Log.Info("withdrawal complete",
		zap.String("user", cmd.Sender.Mention()),
		zap.String("amount", amount.String()),
		zap.String("new_balance", newBalance.String()))
	o.reply(ctx, cmd, fmt.Sprintf("Withdrawal successful.\nYour new balance is: %s tao", newBalance), private)
}

// HandleDeposit reports the sender's custodial deposit address, creating the
// binding on first use. Repeated calls return the same address.
func (o *Orchestrator) HandleDeposit(ctx context.Context, cmd *Command) {
	private := cmd.NeedsPrivateReply()

	if o.Ledger == nil {
		o.reply(ctx, cmd, notConnectedMsg, private)
		return
	}

	o.reply(ctx, cmd, "Remember, withdrawals have a network transfer fee!", private)

	address, err := o.Ledger.DepositAddress(ctx, cmd.Sender.ID)
	if err == nil && address == "" {
		o.reply(ctx, cmd, "You don't have a deposit address yet. One will be created for you.", private)
		address, err = o.Ledger.CreateDepositAddress(ctx, cmd.Sender.ID)
	}
	if err != nil {
		var domain *ledger.ProvisionError
		if errors.As(err, &domain) {
			o.reply(ctx, cmd, "Error: "+domain.Reason, private)
			return
		}
		o.Log.Error("deposit address lookup failed", zap.Int64("user", cmd.Sender.ID), zap.Error(err))
		o.reply(ctx, cmd, "No deposit addresses available.", private)
		return
	}

	o.reply(ctx, cmd, fmt.Sprintf("Please deposit to %s.\nThis address is linked to your account.\nOnly you will be able to withdraw from it.", address), private)
}

// HandleBalance reports the sender's current off-chain balance.
func (o *Orchestrator) HandleBalance(ctx context.Context, cmd *Command) {
	private := cmd.NeedsPrivateReply()

	if o.Ledger == nil {
		o.reply(ctx, cmd, notConnectedMsg, private)
		return
	}

	balance, err := o.Ledger.Balance(ctx, cmd.Sender.ID)
	if err != nil {
		o.Log.Error("balance read failed", zap.Int64("user", cmd.Sender.ID), zap.Error(err))
		o.reply(ctx, cmd, "Something went wrong checking your balance. Please try again later.", private)
		return
	}

	o.reply(ctx, cmd, fmt.Sprintf("Your balance is %s tao", balance), private)
}

// HandleHelp sends the command usage text.
func (o *Orchestrator) HandleHelp(ctx context.Context, cmd *Command) {
	o.reply(ctx, cmd, o.HelpStr, cmd.NeedsPrivateReply())
}
