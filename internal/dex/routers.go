// Package dex classifies decentralized-exchange activity in EVM
// transactions: protocol identification by router address, swap and
// liquidity detection by method selector, and event reconstruction from
// token-transfer logs. Everything here is a pure function over inputs.
package dex

import (
	"strings"

	"github.com/ducnm/chainscreen/internal/core/domain"
)

// Router address tables, lowercase. Uniswap deploys at the same address
// across its supported chains, so the V3 and 1inch tables are keyed by
// address only; the V2-style default router is chain-specific.

var uniswapV3Routers = map[string]struct{}{
	"0xe592427a0aece92de3edee1f18e0157c05861564": {}, // SwapRouter
	"0x68b3465833fb72a70ecdf485e0e4c7bd8665fc45": {}, // SwapRouter02
}

var oneInchRouters = map[string]struct{}{
	"0x1111111254fb6c44bac0bed2854e76f90643097d": {}, // AggregationRouter v4
	"0x1111111254eeb25477b68fb85ed929f73a960582": {}, // AggregationRouter v5
}

var sushiSwapRouters = map[string]struct{}{
	"0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f": {}, // Ethereum
	"0x1b02da8cb0d097eb8d57a175b88c7d8b47997506": {}, // Polygon/Arbitrum/BSC/Avalanche
}

type defaultRouter struct {
	address  string
	protocol domain.Protocol
}

// defaultV2Routers maps each chain to its canonical V2-style router and
// the protocol label that router carries on that chain.
var defaultV2Routers = map[domain.ChainID]defaultRouter{
	domain.ChainEthereum:  {"0x7a250d5630b4cf539739df2c5dacb4c659f2488d", domain.ProtocolUniswapV2},
	domain.ChainArbitrum:  {"0x7a250d5630b4cf539739df2c5dacb4c659f2488d", domain.ProtocolUniswapV2},
	domain.ChainOptimism:  {"0x7a250d5630b4cf539739df2c5dacb4c659f2488d", domain.ProtocolUniswapV2},
	domain.ChainBSC:       {"0x10ed43c718714eb63d5aa57b78b54704e256024e", domain.ProtocolPancakeSwap},
	domain.ChainPolygon:   {"0xa5e0829caced8ffdd4de3c43696c57f7d7a678ff", domain.ProtocolQuickSwap},
	domain.ChainAvalanche: {"0x60ae616a2155ee3d9a68541ba4544862310933d4", domain.ProtocolTraderJoe},
}

// IdentifyProtocol matches a transaction's destination against the
// per-protocol router tables. Uniswap V3 is checked first (most
// specific), then 1inch, then SushiSwap, then the chain's default
// V2-style router. Unmatched addresses are UNKNOWN.
func IdentifyProtocol(chain domain.ChainID, toAddress string) domain.Protocol {
	addr := strings.ToLower(toAddress)

	if _, ok := uniswapV3Routers[addr]; ok {
		return domain.ProtocolUniswapV3
	}
	if _, ok := oneInchRouters[addr]; ok {
		return domain.ProtocolOneInch
	}
	if _, ok := sushiSwapRouters[addr]; ok {
		return domain.ProtocolSushiSwap
	}
	if def, ok := defaultV2Routers[chain]; ok && def.address == addr {
		return def.protocol
	}
	return domain.ProtocolUnknown
}

// Known swap-function selectors: Uniswap V2 and V3 swap variants plus
// the 1inch aggregation entry points.
var swapSelectors = map[string]struct{}{
	// Uniswap V2 style
	"0x38ed1739": {}, // swapExactTokensForTokens
	"0x8803dbee": {}, // swapTokensForExactTokens
	"0x7ff36ab5": {}, // swapExactETHForTokens
	"0x4a25d94a": {}, // swapTokensForExactETH
	"0x18cbafe5": {}, // swapExactTokensForETH
	"0xfb3bdb41": {}, // swapETHForExactTokens
	"0x5c11d795": {}, // swapExactTokensForTokensSupportingFeeOnTransferTokens
	"0xb6f9de95": {}, // swapExactETHForTokensSupportingFeeOnTransferTokens
	"0x791ac947": {}, // swapExactTokensForETHSupportingFeeOnTransferTokens
	// Uniswap V3 SwapRouter
	"0x414bf389": {}, // exactInputSingle
	"0xc04b8d59": {}, // exactInput
	"0xdb3e2198": {}, // exactOutputSingle
	"0xf28c0498": {}, // exactOutput
	// Uniswap V3 SwapRouter02
	"0x04e45aaf": {}, // exactInputSingle
	"0xb858183f": {}, // exactInput
	"0x5023b4df": {}, // exactOutputSingle
	"0x09b81346": {}, // exactOutput
	// 1inch
	"0x7c025200": {}, // swap (v4)
	"0x12aa3caf": {}, // swap (v5)
	"0x2e95b6c8": {}, // unoswap (v4)
	"0x0502b1c5": {}, // unoswap (v5)
	"0xe449022e": {}, // uniswapV3Swap
}

// Liquidity selectors, each tagged with the event direction.
var liquiditySelectors = map[string]domain.LiquidityEventType{
	"0xe8e33700": domain.LiquidityAdd,    // addLiquidity
	"0xf305d719": domain.LiquidityAdd,    // addLiquidityETH
	"0x88316456": domain.LiquidityAdd,    // mint (V3 position)
	"0x219f5d17": domain.LiquidityAdd,    // increaseLiquidity
	"0xbaa2abde": domain.LiquidityRemove, // removeLiquidity
	"0x02751cec": domain.LiquidityRemove, // removeLiquidityETH
	"0x2195995c": domain.LiquidityRemove, // removeLiquidityWithPermit
	"0xded9382a": domain.LiquidityRemove, // removeLiquidityETHWithPermit
	"0xaf2979eb": domain.LiquidityRemove, // removeLiquidityETHSupportingFeeOnTransferTokens
	"0x0c49ccbe": domain.LiquidityRemove, // decreaseLiquidity
}

// methodSelector extracts the first 4 bytes of calldata as an 0x-prefixed
// hex string, empty when the input is too short.
func methodSelector(input string) string {
	if len(input) < 10 || !strings.HasPrefix(input, "0x") {
		return ""
	}
	return strings.ToLower(input[:10])
}

// IsSwapSelector reports whether calldata invokes a known swap function.
func IsSwapSelector(input string) bool {
	_, ok := swapSelectors[methodSelector(input)]
	return ok
}

// LiquiditySelector reports whether calldata invokes a known liquidity
// function and the event direction it carries.
func LiquiditySelector(input string) (domain.LiquidityEventType, bool) {
	typ, ok := liquiditySelectors[methodSelector(input)]
	return typ, ok
}
