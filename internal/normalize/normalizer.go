// Package normalize converts raw provider records into the canonical
// transaction model.
package normalize

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/infra/explorer"
	"github.com/shopspring/decimal"
)

// swapKeywords in an EVM function name reclassify a transaction as a
// swap regardless of direction.
var swapKeywords = []string{"swap", "exchange"}

// Normalizer maps raw explorer records onto ParsedTransaction.
type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

// Activity converts a full EVM account activity bundle: normal
// transactions, internal transactions deduplicated against them by hash,
// and ERC-20 transfers scaled by each token's own decimals. The returned
// transaction list is sorted ascending by timestamp.
func (n *Normalizer) Activity(wallet string, chain domain.ChainSpec, activity *explorer.Activity) ([]domain.ParsedTransaction, []domain.TokenTransfer) {
	txs := n.NormalTransactions(wallet, chain, activity.Normal)

	seen := make(map[string]struct{}, len(activity.Normal))
	for _, tx := range activity.Normal {
		seen[strings.ToLower(tx.Hash)] = struct{}{}
	}
	txs = append(txs, n.internalTransactions(wallet, chain, activity.Internal, seen)...)

	transfers := n.TokenTransfers(activity.Token)
	for _, tr := range transfers {
		txs = append(txs, tokenParsed(wallet, tr))
	}

	sortByTime(txs)
	return txs, transfers
}

// NormalTransactions converts the explorer's external transaction rows.
// Rows flagged with an error status are skipped. Output is sorted
// ascending by timestamp.
func (n *Normalizer) NormalTransactions(wallet string, chain domain.ChainSpec, rows []explorer.AccountTx) []domain.ParsedTransaction {
	txs := n.convertAccountRows(wallet, chain, rows, true, nil)
	sortByTime(txs)
	return txs
}

// InternalTransactions converts internal (trace) rows, dropping any
// whose hash already appeared among the normal transactions.
func (n *Normalizer) InternalTransactions(wallet string, chain domain.ChainSpec, rows []explorer.AccountTx, normal []explorer.AccountTx) []domain.ParsedTransaction {
	seen := make(map[string]struct{}, len(normal))
	for _, tx := range normal {
		seen[strings.ToLower(tx.Hash)] = struct{}{}
	}
	txs := n.internalTransactions(wallet, chain, rows, seen)
	sortByTime(txs)
	return txs
}

func (n *Normalizer) internalTransactions(wallet string, chain domain.ChainSpec, rows []explorer.AccountTx, seen map[string]struct{}) []domain.ParsedTransaction {
	filtered := make([]explorer.AccountTx, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[strings.ToLower(row.Hash)]; dup {
			continue
		}
		filtered = append(filtered, row)
	}
	// Internal transactions carry no gas fields; never attribute fees.
	return n.convertAccountRows(wallet, chain, filtered, false, seen)
}

func (n *Normalizer) convertAccountRows(wallet string, chain domain.ChainSpec, rows []explorer.AccountTx, withFee bool, mark map[string]struct{}) []domain.ParsedTransaction {
	walletLower := strings.ToLower(wallet)
	txs := make([]domain.ParsedTransaction, 0, len(rows))

	for _, row := range rows {
		if row.IsError == "1" {
			continue
		}
		if mark != nil {
			mark[strings.ToLower(row.Hash)] = struct{}{}
		}

		amount := weiToDecimal(row.Value)
		txType := classifyDirection(walletLower, row.From, row.To)
		if isSwapCall(row.FunctionName) {
			txType = domain.TxTypeSwap
		}

		tx := domain.ParsedTransaction{
			Timestamp: unixTime(row.TimeStamp),
			Type:      txType,
			Asset:     chain.NativeAsset,
			Amount:    amount,
			Source:    domain.SourceOnChain,
			RawData:   marshalRaw(row),
		}

		if withFee && strings.EqualFold(row.From, wallet) {
			if fee := gasFee(row.GasUsed, row.GasPrice); fee.IsPositive() {
				tx.Fee = &fee
				tx.FeeAsset = chain.NativeAsset
			}
		}

		txs = append(txs, tx)
	}
	return txs
}

// TokenTransfers converts tokentx rows into transfer records, scaling
// each amount by the token's own decimals. The native chain precision is
// only a last resort when the row has no usable decimals field.
func (n *Normalizer) TokenTransfers(rows []explorer.TokenTx) []domain.TokenTransfer {
	transfers := make([]domain.TokenTransfer, 0, len(rows))
	for _, row := range rows {
		decimals := tokenDecimals(row.TokenDecimal)

		value, err := decimal.NewFromString(row.Value)
		if err != nil {
			continue
		}

		transfers = append(transfers, domain.TokenTransfer{
			TxHash:      row.Hash,
			BlockNumber: parseUint(row.BlockNumber),
			Timestamp:   unixTime(row.TimeStamp),
			From:        strings.ToLower(row.From),
			To:          strings.ToLower(row.To),
			Token: domain.TokenInfo{
				Address:  strings.ToLower(row.ContractAddress),
				Symbol:   row.TokenSymbol,
				Decimals: decimals,
			},
			Amount: value.Shift(-decimals),
		})
	}
	return transfers
}

// BitcoinTransactions converts raw-address rows. The net result for the
// wallet decides the direction; fees apply when the wallet funded an
// input.
func (n *Normalizer) BitcoinTransactions(wallet string, rows []explorer.RawAddrTx) []domain.ParsedTransaction {
	txs := make([]domain.ParsedTransaction, 0, len(rows))

	for _, row := range rows {
		amount := decimal.New(row.Result, -8)
		txType := domain.TxTypeDeposit
		if amount.IsNegative() {
			txType = domain.TxTypeWithdrawal
			amount = amount.Neg()
		}

		tx := domain.ParsedTransaction{
			Timestamp: time.Unix(row.Time, 0).UTC(),
			Type:      txType,
			Asset:     "BTC",
			Amount:    amount,
			Source:    domain.SourceOnChain,
			RawData:   marshalRaw(row),
		}

		if txType == domain.TxTypeWithdrawal && row.Fee > 0 {
			fee := decimal.New(row.Fee, -8)
			tx.Fee = &fee
			tx.FeeAsset = "BTC"
		}

		txs = append(txs, tx)
	}

	sortByTime(txs)
	return txs
}

func tokenParsed(wallet string, tr domain.TokenTransfer) domain.ParsedTransaction {
	raw, _ := json.Marshal(tr)
	return domain.ParsedTransaction{
		Timestamp: tr.Timestamp,
		Type:      classifyDirection(strings.ToLower(wallet), tr.From, tr.To),
		Asset:     tr.Token.Symbol,
		Amount:    tr.Amount,
		Source:    domain.SourceOnChain,
		RawData:   raw,
	}
}

// classifyDirection compares from/to to the wallet address
// case-insensitively. Both matching means a self-transfer.
func classifyDirection(walletLower, from, to string) domain.TxType {
	fromMatch := strings.ToLower(from) == walletLower
	toMatch := strings.ToLower(to) == walletLower

	switch {
	case fromMatch && toMatch:
		return domain.TxTypeTransfer
	case toMatch:
		return domain.TxTypeDeposit
	case fromMatch:
		return domain.TxTypeWithdrawal
	default:
		return domain.TxTypeTransfer
	}
}

func isSwapCall(functionName string) bool {
	name := strings.ToLower(functionName)
	for _, kw := range swapKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func weiToDecimal(value string) decimal.Decimal {
	v, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return v.Shift(-domain.DefaultTokenDecimals)
}

func gasFee(gasUsed, gasPrice string) decimal.Decimal {
	used, err := decimal.NewFromString(gasUsed)
	if err != nil {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(gasPrice)
	if err != nil {
		return decimal.Zero
	}
	return used.Mul(price).Shift(-domain.DefaultTokenDecimals)
}

func tokenDecimals(raw string) int32 {
	if raw == "" {
		return domain.DefaultTokenDecimals
	}
	d, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || d < 0 {
		return domain.DefaultTokenDecimals
	}
	return int32(d)
}

func unixTime(raw string) time.Time {
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func parseUint(raw string) uint64 {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func marshalRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func sortByTime(txs []domain.ParsedTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})
}
