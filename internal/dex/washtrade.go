package dex

import (
	"sort"
	"strings"
	"time"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/shopspring/decimal"
)

// washTradeWindow bounds how far apart the two legs of a reversal may be.
const washTradeWindow = 24 * time.Hour

// washTradeTolerance is the relative amount mismatch still treated as a
// round trip.
var washTradeTolerance = decimal.RequireFromString("0.05")

// WashPair references the two swaps flagged as one wash-trade instance.
type WashPair struct {
	HashA string `json:"hash_a"`
	HashB string `json:"hash_b"`
}

// WashTradeResult carries the instance count plus the matched pairs so
// findings stay attributable to specific transactions.
type WashTradeResult struct {
	Count int        `json:"count"`
	Pairs []WashPair `json:"pairs,omitempty"`
}

// DetectWashTrades scans swaps pairwise for reversals within a 24-hour
// window. Swap B reverses swap A when B's token pair is A's pair
// inverted (exact address match) and A.amountIn is within 5% of
// B.amountOut. The scan is quadratic but each inner loop stops at the
// window edge since swaps are processed in time order.
func DetectWashTrades(swaps []domain.SwapEvent) WashTradeResult {
	ordered := make([]domain.SwapEvent, len(swaps))
	copy(ordered, swaps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var result WashTradeResult
	for i := 0; i < len(ordered); i++ {
		a := &ordered[i]
		for j := i + 1; j < len(ordered); j++ {
			b := &ordered[j]
			if b.Timestamp.Sub(a.Timestamp) > washTradeWindow {
				break
			}
			if !isReversal(a, b) {
				continue
			}
			if withinTolerance(a.AmountIn, b.AmountOut) {
				result.Count++
				result.Pairs = append(result.Pairs, WashPair{
					HashA: a.TransactionHash,
					HashB: b.TransactionHash,
				})
			}
		}
	}
	return result
}

func isReversal(a, b *domain.SwapEvent) bool {
	return strings.EqualFold(a.TokenIn.Address, b.TokenOut.Address) &&
		strings.EqualFold(a.TokenOut.Address, b.TokenIn.Address)
}

// withinTolerance checks |1 - in/out| < 5%.
func withinTolerance(amountIn, amountOut decimal.Decimal) bool {
	if !amountOut.IsPositive() {
		return false
	}
	ratio := amountIn.Div(amountOut)
	return decimal.NewFromInt(1).Sub(ratio).Abs().LessThan(washTradeTolerance)
}
