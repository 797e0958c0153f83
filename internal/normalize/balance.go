package normalize

import (
	"time"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/shopspring/decimal"
)

// dustThreshold drops balances that round to noise after replay.
var dustThreshold = decimal.New(1, -8)

// BalanceAtTime replays canonical transactions up to and including the
// target time and reconstructs per-asset balances. Incoming types add
// the amount, outgoing types subtract it, and a self-transfer nets to
// zero. Fees are always charged against the chain's native asset when
// the wallet was the sender, never against the transacted asset.
// Balances at or below 1e-8 are dropped.
func BalanceAtTime(txs []domain.ParsedTransaction, nativeAsset string, at time.Time) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)

	for _, tx := range txs {
		if tx.Timestamp.After(at) {
			continue
		}

		delta := decimal.Zero
		paysFee := false

		switch tx.Type {
		case domain.TxTypeDeposit, domain.TxTypeBuy, domain.TxTypeUnstake:
			delta = tx.Amount
		case domain.TxTypeWithdrawal, domain.TxTypeSell, domain.TxTypeStake:
			delta = tx.Amount.Neg()
			paysFee = true
		case domain.TxTypeTransfer:
			// Self-transfer: value returns to the wallet, only the fee
			// is spent.
			paysFee = true
		case domain.TxTypeSwap:
			// Asset flow is reconstructed by the DEX classifier, not
			// here; only the fee leaves the wallet.
			paysFee = true
		}

		if !delta.IsZero() {
			balances[tx.Asset] = balances[tx.Asset].Add(delta)
		}

		if paysFee && tx.Fee != nil {
			feeAsset := tx.FeeAsset
			if feeAsset == "" {
				feeAsset = nativeAsset
			}
			balances[feeAsset] = balances[feeAsset].Sub(*tx.Fee)
		}
	}

	for asset, bal := range balances {
		if bal.Abs().LessThanOrEqual(dustThreshold) {
			delete(balances, asset)
		}
	}

	return balances
}
