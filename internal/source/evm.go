package source

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/infra/explorer"
	"github.com/ducnm/chainscreen/internal/normalize"
)

// probeAddress is a well-known burn address used for credential checks.
// Any valid API key can query it; an invalid key fails before a real
// wallet is touched.
const probeAddress = "0x000000000000000000000000000000000000dEaD"

// EVMAdapter serves one EVM chain by composing the explorer client with
// the normalizer.
type EVMAdapter struct {
	client     *explorer.EVMClient
	normalizer *normalize.Normalizer
}

// NewEVMAdapter builds an adapter for the chain the client serves.
func NewEVMAdapter(client *explorer.EVMClient) *EVMAdapter {
	return &EVMAdapter{
		client:     client,
		normalizer: normalize.New(),
	}
}

func (a *EVMAdapter) Name() string {
	return "explorer:" + string(a.client.Chain().ID)
}

// Chain returns the chain spec this adapter serves.
func (a *EVMAdapter) Chain() domain.ChainSpec {
	return a.client.Chain()
}

// FetchTransactions pulls the wallet's normal, internal and token
// activity, normalizes it and applies the window.
func (a *EVMAdapter) FetchTransactions(ctx context.Context, address string, window Window) ([]domain.ParsedTransaction, error) {
	activity, err := a.client.FetchActivity(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetch activity for %s: %w", address, err)
	}

	txs, _ := a.normalizer.Activity(address, a.client.Chain(), activity)
	return window.Filter(txs), nil
}

// FetchActivity exposes the raw explorer records alongside the
// normalized token transfers for the DEX classifier.
func (a *EVMAdapter) FetchActivity(ctx context.Context, address string) (*explorer.Activity, []domain.TokenTransfer, error) {
	activity, err := a.client.FetchActivity(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	return activity, a.normalizer.TokenTransfers(activity.Token), nil
}

// FetchBalances returns the native-asset balance. Token balances are
// not part of the explorer account API.
func (a *EVMAdapter) FetchBalances(ctx context.Context, address string) (map[string]decimal.Decimal, error) {
	balance, err := a.client.NativeBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	return map[string]decimal.Decimal{a.client.Chain().NativeAsset: balance}, nil
}

// ValidateCredentials checks the API key with a balance probe.
func (a *EVMAdapter) ValidateCredentials(ctx context.Context) error {
	if _, err := a.client.NativeBalance(ctx, probeAddress); err != nil {
		return fmt.Errorf("explorer credential check: %w", err)
	}
	return nil
}
