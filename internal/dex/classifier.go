package dex

import (
	"sort"
	"strings"
	"time"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/observability"
	"github.com/shopspring/decimal"
)

// Transaction is the slice of an EVM transaction the classifier needs.
type Transaction struct {
	Hash        string
	BlockNumber uint64
	Timestamp   time.Time
	From        string
	To          string
	Input       string
}

// Summary aggregates one wallet's classified DEX activity.
type Summary struct {
	SwapCount        int                     `json:"swap_count"`
	ByProtocol       map[domain.Protocol]int `json:"by_protocol"`
	ByPair           map[string]int          `json:"by_pair"`
	UniqueTokens     int                     `json:"unique_tokens"`
	LiquidityAdds    int                     `json:"liquidity_adds"`
	LiquidityRemoves int                     `json:"liquidity_removes"`
	WashTrades       WashTradeResult         `json:"wash_trades"`
}

// Classify walks a batch of transactions with their token-transfer logs
// and reconstructs every swap and liquidity event it can. Transactions
// without enough transfer data are skipped, not errors.
func Classify(chain domain.ChainID, wallet string, txs []Transaction, transfers []domain.TokenTransfer) ([]domain.SwapEvent, []domain.LiquidityEvent) {
	byHash := groupTransfers(transfers)

	var swaps []domain.SwapEvent
	var liquidity []domain.LiquidityEvent

	for _, tx := range txs {
		attached := byHash[strings.ToLower(tx.Hash)]

		if IsSwapSelector(tx.Input) {
			if swap := ReconstructSwap(chain, wallet, tx, attached); swap != nil {
				observability.SwapsClassified.WithLabelValues(string(swap.Protocol)).Inc()
				swaps = append(swaps, *swap)
			}
			continue
		}

		if eventType, ok := LiquiditySelector(tx.Input); ok {
			if event := ReconstructLiquidity(chain, wallet, tx, eventType, attached); event != nil {
				liquidity = append(liquidity, *event)
			}
		}
	}

	return swaps, liquidity
}

// ReconstructSwap rebuilds a swap from the transaction's token
// transfers. It needs at least two transfers: the first transfer sent by
// the wallet defines tokenIn, the first received defines tokenOut.
// Without that data there is no swap to report and the result is nil.
func ReconstructSwap(chain domain.ChainID, wallet string, tx Transaction, transfers []domain.TokenTransfer) *domain.SwapEvent {
	if len(transfers) < 2 {
		return nil
	}

	walletLower := strings.ToLower(wallet)
	var tokenIn, tokenOut *domain.TokenTransfer

	for i := range transfers {
		tr := &transfers[i]
		if tokenIn == nil && tr.From == walletLower {
			tokenIn = tr
		}
		if tokenOut == nil && tr.To == walletLower {
			tokenOut = tr
		}
	}

	if tokenIn == nil || tokenOut == nil {
		return nil
	}

	price := decimal.Zero
	if tokenIn.Amount.IsPositive() {
		price = tokenOut.Amount.Div(tokenIn.Amount)
	}

	return &domain.SwapEvent{
		TransactionHash: tx.Hash,
		BlockNumber:     tx.BlockNumber,
		Timestamp:       tx.Timestamp,
		Protocol:        IdentifyProtocol(chain, tx.To),
		Blockchain:      chain,
		WalletAddress:   wallet,
		TokenIn:         tokenIn.Token,
		TokenOut:        tokenOut.Token,
		AmountIn:        tokenIn.Amount,
		AmountOut:       tokenOut.Amount,
		EffectivePrice:  price,
		RouterAddress:   strings.ToLower(tx.To),
	}
}

// ReconstructLiquidity rebuilds a liquidity event. For an add the
// relevant transfers are those the wallet sent, for a remove those it
// received; the first two distinct tokens among them form the pool pair.
func ReconstructLiquidity(chain domain.ChainID, wallet string, tx Transaction, eventType domain.LiquidityEventType, transfers []domain.TokenTransfer) *domain.LiquidityEvent {
	walletLower := strings.ToLower(wallet)

	var relevant []domain.TokenTransfer
	for _, tr := range transfers {
		switch eventType {
		case domain.LiquidityAdd:
			if tr.From == walletLower {
				relevant = append(relevant, tr)
			}
		case domain.LiquidityRemove:
			if tr.To == walletLower {
				relevant = append(relevant, tr)
			}
		}
	}

	var first, second *domain.TokenTransfer
	for i := range relevant {
		tr := &relevant[i]
		switch {
		case first == nil:
			first = tr
		case second == nil && tr.Token.Address != first.Token.Address:
			second = tr
		}
	}
	if first == nil || second == nil {
		return nil
	}

	return &domain.LiquidityEvent{
		TransactionHash: tx.Hash,
		BlockNumber:     tx.BlockNumber,
		Timestamp:       tx.Timestamp,
		Protocol:        IdentifyProtocol(chain, tx.To),
		Blockchain:      chain,
		WalletAddress:   wallet,
		EventType:       eventType,
		Token0:          first.Token,
		Token1:          second.Token,
		Amount0:         first.Amount,
		Amount1:         second.Amount,
		PoolAddress:     strings.ToLower(tx.To),
	}
}

// Summarize aggregates swap counts per protocol and per unordered token
// pair, counts tokens touched and liquidity events, and runs wash-trade
// detection over the swaps.
func Summarize(swaps []domain.SwapEvent, liquidity []domain.LiquidityEvent) Summary {
	summary := Summary{
		SwapCount:  len(swaps),
		ByProtocol: make(map[domain.Protocol]int),
		ByPair:     make(map[string]int),
	}

	tokens := make(map[string]struct{})
	for _, swap := range swaps {
		summary.ByProtocol[swap.Protocol]++
		summary.ByPair[pairKey(swap.TokenIn.Symbol, swap.TokenOut.Symbol)]++
		tokens[swap.TokenIn.Address] = struct{}{}
		tokens[swap.TokenOut.Address] = struct{}{}
	}
	summary.UniqueTokens = len(tokens)

	for _, event := range liquidity {
		if event.EventType == domain.LiquidityAdd {
			summary.LiquidityAdds++
		} else {
			summary.LiquidityRemoves++
		}
	}

	summary.WashTrades = DetectWashTrades(swaps)
	return summary
}

// pairKey builds an order-independent pair identifier.
func pairKey(symbolA, symbolB string) string {
	pair := []string{symbolA, symbolB}
	sort.Strings(pair)
	return pair[0] + "-" + pair[1]
}

func groupTransfers(transfers []domain.TokenTransfer) map[string][]domain.TokenTransfer {
	byHash := make(map[string][]domain.TokenTransfer)
	for _, tr := range transfers {
		key := strings.ToLower(tr.TxHash)
		byHash[key] = append(byHash[key], tr)
	}
	return byHash
}
