package source

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/infra/explorer"
	"github.com/ducnm/chainscreen/internal/normalize"
)

// BitcoinAdapter serves Bitcoin through the blockchain.info raw-address
// API.
type BitcoinAdapter struct {
	client     *explorer.BitcoinClient
	normalizer *normalize.Normalizer
}

func NewBitcoinAdapter(client *explorer.BitcoinClient) *BitcoinAdapter {
	return &BitcoinAdapter{
		client:     client,
		normalizer: normalize.New(),
	}
}

func (a *BitcoinAdapter) Name() string {
	return "explorer:bitcoin"
}

func (a *BitcoinAdapter) FetchTransactions(ctx context.Context, address string, window Window) ([]domain.ParsedTransaction, error) {
	rows, err := a.client.Transactions(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions for %s: %w", address, err)
	}
	return window.Filter(a.normalizer.BitcoinTransactions(address, rows)), nil
}

func (a *BitcoinAdapter) FetchBalances(ctx context.Context, address string) (map[string]decimal.Decimal, error) {
	balance, err := a.client.Balance(ctx, address)
	if err != nil {
		return nil, err
	}
	return map[string]decimal.Decimal{"BTC": balance}, nil
}

// ValidateCredentials is a no-op: the raw-address API is public.
func (a *BitcoinAdapter) ValidateCredentials(context.Context) error {
	return nil
}
