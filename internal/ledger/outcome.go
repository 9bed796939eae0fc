package ledger

import "github.com/shopspring/decimal"

// TransferStatus is the explicit outcome taxonomy for ledger-to-ledger
// transfers. Every branch a tip can take is one of these.
type TransferStatus int

const (
	TransferSuccess TransferStatus = iota
	TransferFeeInsufficient
	TransferFailed
)

// TransferOutcome is the tagged result of a tip transfer. Fee is set when
// Status is TransferFeeInsufficient.
type TransferOutcome struct {
	Status TransferStatus
	Fee    decimal.Decimal
}

// WithdrawError is a domain rejection of a withdrawal. Its message is safe
// to relay to the user verbatim.
type WithdrawError struct {
	Reason string
}

func (e *WithdrawError) Error() string {
	return e.Reason
}

// ProvisionError is a domain rejection of deposit-address provisioning,
// safe to relay to the user.
type ProvisionError struct {
	Reason string
}

func (e *ProvisionError) Error() string {
	return e.Reason
}
