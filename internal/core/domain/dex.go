package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Protocol identifies a DEX protocol.
type Protocol string

const (
	ProtocolUniswapV2   Protocol = "UNISWAP_V2"
	ProtocolUniswapV3   Protocol = "UNISWAP_V3"
	ProtocolSushiSwap   Protocol = "SUSHISWAP"
	ProtocolOneInch     Protocol = "1INCH"
	ProtocolPancakeSwap Protocol = "PANCAKESWAP"
	ProtocolQuickSwap   Protocol = "QUICKSWAP"
	ProtocolTraderJoe   Protocol = "TRADERJOE"
	ProtocolUnknown     Protocol = "UNKNOWN"
)

// SwapEvent is a reconstructed DEX swap.
// EffectivePrice is AmountOut/AmountIn, zero when AmountIn is zero.
type SwapEvent struct {
	TransactionHash string          `json:"transaction_hash"`
	BlockNumber     uint64          `json:"block_number"`
	Timestamp       time.Time       `json:"timestamp"`
	Protocol        Protocol        `json:"protocol"`
	Blockchain      ChainID         `json:"blockchain"`
	WalletAddress   string          `json:"wallet_address"`
	TokenIn         TokenInfo       `json:"token_in"`
	TokenOut        TokenInfo       `json:"token_out"`
	AmountIn        decimal.Decimal `json:"amount_in"`
	AmountOut       decimal.Decimal `json:"amount_out"`
	EffectivePrice  decimal.Decimal `json:"effective_price"`
	RouterAddress   string          `json:"router_address"`
}

// LiquidityEventType tags a liquidity event as an add or a remove.
type LiquidityEventType string

const (
	LiquidityAdd    LiquidityEventType = "ADD"
	LiquidityRemove LiquidityEventType = "REMOVE"
)

// LiquidityEvent is a reconstructed add/remove of pool liquidity.
type LiquidityEvent struct {
	TransactionHash string             `json:"transaction_hash"`
	BlockNumber     uint64             `json:"block_number"`
	Timestamp       time.Time          `json:"timestamp"`
	Protocol        Protocol           `json:"protocol"`
	Blockchain      ChainID            `json:"blockchain"`
	WalletAddress   string             `json:"wallet_address"`
	EventType       LiquidityEventType `json:"event_type"`
	Token0          TokenInfo          `json:"token0"`
	Token1          TokenInfo          `json:"token1"`
	Amount0         decimal.Decimal    `json:"amount0"`
	Amount1         decimal.Decimal    `json:"amount1"`
	PoolAddress     string             `json:"pool_address"`
}
