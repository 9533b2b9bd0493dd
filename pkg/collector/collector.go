package collector

import (
	"context"
	"errors"
)

// ErrPriceNotFound the price feed has no quote for the token
var ErrPriceNotFound = errors.New("price not found")

// WalletFetcher on-chain data source consumed by the scanner
type WalletFetcher interface {
	FetchTokenAccounts(ctx context.Context, address string) ([]TokenHolding, error)
	FetchRecentTransactions(ctx context.Context, address string, limit int) ([]TransactionSignature, error)
}

// PriceFetcher spot price source
type PriceFetcher interface {
	FetchTokenPrice(ctx context.Context, tokenID string) (float64, error)
}

// TokenHolding one SPL token account owned by a wallet
type TokenHolding struct {
	Account  string  `json:"account"`
	Mint     string  `json:"mint"`
	Amount   string  `json:"amount"`
	UIAmount float64 `json:"uiAmount"`
	Decimals int     `json:"decimals"`
}

// TransactionSignature one entry of getSignaturesForAddress
type TransactionSignature struct {
	Signature string      `json:"signature"`
	Slot      uint64      `json:"slot"`
	BlockTime *int64      `json:"blockTime,omitempty"`
	Err       interface{} `json:"err,omitempty"`
	Memo      *string     `json:"memo,omitempty"`
}
