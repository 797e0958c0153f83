package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TxType classifies a canonical transaction.
type TxType string

const (
	TxTypeBuy        TxType = "buy"
	TxTypeSell       TxType = "sell"
	TxTypeDeposit    TxType = "deposit"
	TxTypeWithdrawal TxType = "withdrawal"
	TxTypeTransfer   TxType = "transfer"
	TxTypeSwap       TxType = "swap"
	TxTypeStake      TxType = "stake"
	TxTypeUnstake    TxType = "unstake"
)

// TxSource records which ingestion path produced a transaction.
type TxSource string

const (
	SourceOnChain   TxSource = "ON_CHAIN"
	SourceAPISync   TxSource = "API_SYNC"
	SourceCEXImport TxSource = "CEX_IMPORT"
	SourceManual    TxSource = "MANUAL"
)

// ParsedTransaction is the canonical transaction representation, independent
// of the originating provider. Amounts are already scaled by the asset's
// decimal precision and timestamps are UTC. Instances are created once per
// ingestion run and immutable thereafter; deduplication is the caller's
// responsibility, keyed by (Source, provider tx hash/id) inside RawData.
type ParsedTransaction struct {
	Timestamp time.Time        `json:"timestamp"`
	Type      TxType           `json:"type"`
	Asset     string           `json:"asset"`
	Amount    decimal.Decimal  `json:"amount"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Fee       *decimal.Decimal `json:"fee,omitempty"`
	FeeAsset  string           `json:"fee_asset,omitempty"`
	Exchange  string           `json:"exchange,omitempty"`
	Source    TxSource         `json:"source"`
	// RawData preserves the provider-specific payload for audit.
	RawData json.RawMessage `json:"raw_data,omitempty"`
}
