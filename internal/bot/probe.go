package bot

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChainReader is the read-only slice of the chain client the startup probe
// uses.
type ChainReader interface {
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	Network() string
}

// AddressBook lists all known custodial deposit addresses.
type AddressBook interface {
	AllAddresses(ctx context.Context) ([]string, error)
}

// ReportCustodialBalance sums the on-chain balance across every custodial
// address and logs the aggregate. Diagnostic only: a failed address lookup
// is skipped and counted rather than aborting the probe, and the skip count
// is reported so a partial sum is never mistaken for a full one.
func ReportCustodialBalance(ctx context.Context, chain ChainReader, book AddressBook, log *zap.Logger) {
	if chain == nil || book == nil {
		return
	}

	addresses, err := book.AllAddresses(ctx)
	if err != nil {
		log.Error("custodial balance probe failed", zap.Error(err))
		return
	}

	total := decimal.Zero
	skipped := 0
	for _, address := range addresses {
		balance, err := chain.GetBalance(ctx, address)
		if err != nil {
			skipped++
			log.Warn("address balance lookup failed", zap.String("address", address), zap.Error(err))
			continue
		}
		total = total.Add(balance)
	}

	log.Info("custodial wallet balance",
		zap.String("network", chain.Network()),
		zap.String("total", total.String()+" tao"),
		zap.Int("addresses", len(addresses)),
		zap.Int("skipped", skipped))
}
