package chain

import "github.com/shopspring/decimal"

type StatusResponse struct {
	Network string `json:"network"`
	Synced  bool   `json:"synced"`
}

type BalanceResponse struct {
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

type FeeResponse struct {
	Fee decimal.Decimal `json:"fee"`
}

type TransferRequest struct {
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
}

type TransferResponse struct {
	TxID string          `json:"tx_id"`
	Fee  decimal.Decimal `json:"fee"`
}

type DeriveAddressRequest struct {
	OwnerID int64 `json:"owner_id"`
}

type DeriveAddressResponse struct {
	Address string `json:"address"`
}
