package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taotip-bot/internal/chain"
	"taotip-bot/internal/models"
)

// ChainGateway is the slice of the chain client the ledger needs: fee
// quotes, signed hot-wallet transfers and custodial address derivation.
type ChainGateway interface {
	FeeQuote(ctx context.Context) (decimal.Decimal, error)
	Transfer(ctx context.Context, destination string, amount decimal.Decimal) (*chain.TransferResponse, error)
	DeriveAddress(ctx context.Context, ownerID int64) (string, error)
}

var (
	defaultTransferFee = decimal.RequireFromString("0.000000125")
	minWithdrawal      = decimal.RequireFromString("0.001")
)

// Ledger is the system of record for off-chain balances and deposit-address
// bindings. All balance mutations run inside a database transaction with a
// row lock, so the advisory balance check callers perform earlier is
// re-validated here atomically.
type Ledger struct {
	db      *gorm.DB
	gateway ChainGateway
	log     *zap.Logger
}

func New(db *gorm.DB, gateway ChainGateway, log *zap.Logger) *Ledger {
	return &Ledger{
		db:      db,
		gateway: gateway,
		log:     log,
	}
}

// Balance returns the user's current off-chain balance. An unknown user has
// a zero balance, not an error.
func (l *Ledger) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var user models.User
	err := l.db.WithContext(ctx).Where("platform_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return user.Balance, nil
}

// transferFee asks the gateway for the current fee, falling back to the
// static default when no gateway is connected or the quote fails.
func (l *Ledger) transferFee(ctx context.Context) decimal.Decimal {
	if l.gateway == nil {
		return defaultTransferFee
	}
	fee, err := l.gateway.FeeQuote(ctx)
	if err != nil {
		l.log.Warn("fee quote failed, using default", zap.Error(err))
		return defaultTransferFee
	}
	return fee
}

// Transfer moves amount from sender to recipient off-chain, charging the
// sender amount plus the network fee. The sufficient-funds check happens
// under a row lock, so a stale caller-side read can never over-draft.
func (l *Ledger) Transfer(ctx context.Context, sender, recipient int64, amount decimal.Decimal) (TransferOutcome, error) {
	if amount.Sign() <= 0 {
		return TransferOutcome{Status: TransferFailed}, fmt.Errorf("non-positive transfer amount %s", amount)
	}
	if sender == recipient {
		// Both sides would load the same row and the credit save would
		// overwrite the debit, minting the amount.
		return TransferOutcome{Status: TransferFailed}, fmt.Errorf("self-transfer rejected for user %d", sender)
	}

	fee := l.transferFee(ctx)
	total := amount.Add(fee)
	outcome := TransferOutcome{Status: TransferSuccess}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var from models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("platform_id = ?", sender).First(&from).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No account means no balance; same shortfall branch.
			outcome = TransferOutcome{Status: TransferFeeInsufficient, Fee: fee}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load sender: %w", err)
		}

		if from.Balance.LessThan(total) {
			outcome = TransferOutcome{Status: TransferFeeInsufficient, Fee: fee}
			return nil
		}

		var to models.User
		if err := tx.FirstOrCreate(&to, models.User{PlatformID: recipient}).Error; err != nil {
			return fmt.Errorf("failed to load recipient: %w", err)
		}

		from.Balance = from.Balance.Sub(total)
		to.Balance = to.Balance.Add(amount)

		if err := tx.Save(&from).Error; err != nil {
			return fmt.Errorf("failed to debit sender: %w", err)
		}
		if err := tx.Save(&to).Error; err != nil {
			return fmt.Errorf("failed to credit recipient: %w", err)
		}

		record := models.TipRecord{
			SenderID:    sender,
			RecipientID: recipient,
			Amount:      amount,
			Fee:         fee,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record tip: %w", err)
		}
		return nil
	})
	if err != nil {
		return TransferOutcome{Status: TransferFailed}, err
	}

	if outcome.Status == TransferSuccess {
		l.log.Info("tip settled",
			zap.Int64("sender", sender),
			zap.Int64("recipient", recipient),
			zap.String("amount", amount.String()),
			zap.String("fee", fee.String()))
	}
	return outcome, nil
}

const (
	withdrawalPending     = "pending"
	withdrawalComplete    = "complete"
	withdrawalRejected    = "rejected"
	withdrawalUnconfirmed = "unconfirmed"
)

// refundableReason reports whether a failed chain transfer is known not to
// have moved funds. A deliberate gateway rejection (4xx) was never
// broadcast, so the debit can be refunded and the reason relayed; a timeout
// or server failure may have gone through, so the debit must stand.
func refundableReason(err error) (string, bool) {
	var reqErr *chain.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message, true
	}
	return "", false
}

// Withdraw moves amount from the user's off-chain balance to an external
// address through the chain gateway and returns the new balance. Domain
// rejections come back as *WithdrawError; anything else is unexpected.
//
// The debit and a pending record commit before the chain transfer is
// submitted, so the hot wallet never pays out funds the ledger still shows
// as spendable. A definite gateway rejection refunds the debit; an
// ambiguous failure leaves it in place and flags the record for review.
func (l *Ledger) Withdraw(ctx context.Context, userID int64, address string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateWithdrawRequest(address, amount); err != nil {
		return decimal.Zero, err
	}
	if l.gateway == nil {
		return decimal.Zero, errors.New("chain gateway is not connected")
	}

	fee := l.transferFee(ctx)
	total := amount.Add(fee)
	var newBalance decimal.Decimal
	var recordID uint

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("platform_id = ?", userID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &WithdrawError{Reason: "You have no balance to withdraw."}
		}
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}

		if user.Balance.LessThan(total) {
			return &WithdrawError{Reason: fmt.Sprintf(
				"Insufficient balance: withdrawing %s tao costs %s tao including the %s tao network fee.",
				amount, total, fee)}
		}

		user.Balance = user.Balance.Sub(total)
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to debit user: %w", err)
		}

		record := models.WithdrawalRecord{
			UserID:  userID,
			Address: address,
			Amount:  amount,
			Fee:     fee,
			Status:  withdrawalPending,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record withdrawal: %w", err)
		}

		recordID = record.ID
		newBalance = user.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	transfer, err := l.gateway.Transfer(ctx, address, amount)
	if err != nil {
		if reason, ok := refundableReason(err); ok {
			if refundErr := l.refundWithdrawal(ctx, userID, total, recordID); refundErr != nil {
				l.log.Error("failed to refund rejected withdrawal",
					zap.Uint("record", recordID), zap.Error(refundErr))
			}
			return decimal.Zero, &WithdrawError{Reason: reason}
		}
		l.markWithdrawal(ctx, recordID, withdrawalUnconfirmed, "")
		return decimal.Zero, fmt.Errorf("chain transfer failed: %w", err)
	}

	l.markWithdrawal(ctx, recordID, withdrawalComplete, transfer.TxID)

	l.log.Info("withdrawal settled",
		zap.Int64("user", userID),
		zap.String("address", address),
		zap.String("amount", amount.String()),
		zap.String("new_balance", newBalance.String()))
	return newBalance, nil
}

// refundWithdrawal restores a debited balance after the gateway definitely
// rejected the transfer.
func (l *Ledger) refundWithdrawal(ctx context.Context, userID int64, total decimal.Decimal, recordID uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("platform_id = ?", userID).First(&user).Error
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}

		user.Balance = user.Balance.Add(total)
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to credit user: %w", err)
		}

		return tx.Model(&models.WithdrawalRecord{}).
			Where("id = ?", recordID).
			Update("status", withdrawalRejected).Error
	})
}

// markWithdrawal finalizes a pending withdrawal record. Best-effort: a
// failure here loses audit detail, not money.
func (l *Ledger) markWithdrawal(ctx context.Context, recordID uint, status, txID string) {
	updates := map[string]interface{}{"status": status}
	if txID != "" {
		updates["chain_tx_id"] = txID
	}
	err := l.db.WithContext(ctx).Model(&models.WithdrawalRecord{}).
		Where("id = ?", recordID).
		Updates(updates).Error
	if err != nil {
		l.log.Error("failed to finalize withdrawal record",
			zap.Uint("record", recordID), zap.String("status", status), zap.Error(err))
	}
}

// DepositAddress returns the user's custodial deposit address, or "" when
// none has been bound yet.
func (l *Ledger) DepositAddress(ctx context.Context, userID int64) (string, error) {
	var user models.User
	err := l.db.WithContext(ctx).Where("platform_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	return user.DepositAddress, nil
}

// CreateDepositAddress derives a fresh custodial address for the user and
// binds it. The binding is immutable: if a concurrent call won the race the
// existing address is returned and the derived one is discarded.
func (l *Ledger) CreateDepositAddress(ctx context.Context, userID int64) (string, error) {
	if l.gateway == nil {
		return "", errors.New("chain gateway is not connected")
	}

	derived, err := l.gateway.DeriveAddress(ctx, userID)
	if err != nil {
		var reqErr *chain.RequestError
		if errors.As(err, &reqErr) {
			return "", &ProvisionError{Reason: reqErr.Message}
		}
		return "", fmt.Errorf("address derivation failed: %w", err)
	}

	var bound string
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			FirstOrCreate(&user, models.User{PlatformID: userID}).Error; err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}

		if user.DepositAddress != "" {
			bound = user.DepositAddress
			return nil
		}

		user.DepositAddress = derived
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to bind address: %w", err)
		}
		bound = derived
		return nil
	})
	if err != nil {
		return "", err
	}

	l.log.Info("deposit address bound", zap.Int64("user", userID), zap.String("address", bound))
	return bound, nil
}

// AllAddresses lists every bound custodial deposit address.
func (l *Ledger) AllAddresses(ctx context.Context) ([]string, error) {
	var addresses []string
	err := l.db.WithContext(ctx).Model(&models.User{}).
		Where("deposit_address <> ''").
		Pluck("deposit_address", &addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}

// UnwelcomedUsers lists users who have not yet received the onboarding
// message.
func (l *Ledger) UnwelcomedUsers(ctx context.Context) ([]int64, error) {
	var users []int64
	err := l.db.WithContext(ctx).Model(&models.User{}).
		Where("welcomed = ?", false).
		Pluck("platform_id", &users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unwelcomed users: %w", err)
	}
	return users, nil
}

// MarkWelcomed sets the user's onboarding flag.
func (l *Ledger) MarkWelcomed(ctx context.Context, userID int64, welcomed bool) error {
	err := l.db.WithContext(ctx).Model(&models.User{}).
		Where("platform_id = ?", userID).
		Update("welcomed", welcomed).Error
	if err != nil {
		return fmt.Errorf("failed to mark user welcomed: %w", err)
	}
	return nil
}

// validateWithdrawRequest rejects malformed destinations and dust amounts
// before anything touches the chain. Returns *WithdrawError on rejection.
func validateWithdrawRequest(address string, amount decimal.Decimal) error {
	if len(address) != 48 || !strings.HasPrefix(address, "5") {
		return &WithdrawError{Reason: fmt.Sprintf("%q is not a valid ss58 destination address.", address)}
	}
	if amount.LessThan(minWithdrawal) {
		return &WithdrawError{Reason: fmt.Sprintf(
			"Withdrawal amount %s tao is below the %s tao minimum.", amount, minWithdrawal)}
	}
	return nil
}
