// Package source defines the adapter contract every transaction source
// implements, plus the on-chain adapters built from the explorer
// clients. Exchange adapters live in internal/infra/exchange and
// satisfy the same interface.
package source

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducnm/chainscreen/internal/core/domain"
)

// Window bounds a fetch by time. A zero Start or End leaves that side
// open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window. Bounds are
// inclusive.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Filter returns the transactions whose timestamps the window contains,
// preserving order.
func (w Window) Filter(txs []domain.ParsedTransaction) []domain.ParsedTransaction {
	if w.Start.IsZero() && w.End.IsZero() {
		return txs
	}
	kept := make([]domain.ParsedTransaction, 0, len(txs))
	for _, tx := range txs {
		if w.Contains(tx.Timestamp) {
			kept = append(kept, tx)
		}
	}
	return kept
}

// Adapter is one transaction source: a chain explorer or an exchange
// account. Implementations are safe for concurrent use and return
// transactions sorted by timestamp ascending.
type Adapter interface {
	// Name identifies the adapter for logs, metrics and error reports.
	Name() string
	// FetchTransactions returns the canonical transactions for the
	// address (ignored by account-scoped exchange adapters) within the
	// window.
	FetchTransactions(ctx context.Context, address string, window Window) ([]domain.ParsedTransaction, error)
	// FetchBalances returns current balances keyed by asset symbol.
	FetchBalances(ctx context.Context, address string) (map[string]decimal.Decimal, error)
	// ValidateCredentials performs a cheap authenticated call to verify
	// the configured credentials before a sync commits to a full fetch.
	ValidateCredentials(ctx context.Context) error
}
