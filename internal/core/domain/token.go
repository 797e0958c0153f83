package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenInfo identifies an on-chain asset. Decimals drive the integer to
// decimal conversion and must come from the token itself; 18 is a last
// resort when the provider omits the field.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// DefaultTokenDecimals is the fallback precision when a provider record
// carries no decimals field.
const DefaultTokenDecimals = 18

// TokenTransfer is a single ERC-20 transfer attached to a transaction,
// with the amount already scaled by the token's own decimals.
type TokenTransfer struct {
	TxHash      string          `json:"tx_hash"`
	BlockNumber uint64          `json:"block_number"`
	Timestamp   time.Time       `json:"timestamp"`
	From        string          `json:"from_address"`
	To          string          `json:"to_address"`
	Token       TokenInfo       `json:"token"`
	Amount      decimal.Decimal `json:"amount"`
}
