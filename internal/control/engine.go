// Package control wires the sources, classifier and screening engine
// into one orchestrated sync pipeline.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ducnm/chainscreen/internal/core/config"
	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/dex"
	"github.com/ducnm/chainscreen/internal/infra/exchange"
	"github.com/ducnm/chainscreen/internal/infra/explorer"
	"github.com/ducnm/chainscreen/internal/infra/provider"
	"github.com/ducnm/chainscreen/internal/normalize"
	"github.com/ducnm/chainscreen/internal/screening"
	"github.com/ducnm/chainscreen/internal/source"
	"github.com/ducnm/chainscreen/internal/vault"
)

// SourceError records one adapter's failure without aborting the run.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Batch is the output of one sync run, handed to the sink as a unit.
type Batch struct {
	RunID           uuid.UUID                  `json:"run_id"`
	WalletAddress   string                     `json:"wallet_address"`
	StartedAt       time.Time                  `json:"started_at"`
	CompletedAt     time.Time                  `json:"completed_at"`
	Transactions    []domain.ParsedTransaction `json:"transactions"`
	Swaps           []domain.SwapEvent         `json:"swaps"`
	LiquidityEvents []domain.LiquidityEvent    `json:"liquidity_events"`
	Screenings      []domain.ScreeningResult   `json:"screenings"`
	Summary         dex.Summary                `json:"summary"`
	SourceErrors    []SourceError              `json:"source_errors,omitempty"`
}

// Sink receives completed batches. Persistence lives outside the
// engine; a sink may write to a database, a queue or stdout.
type Sink interface {
	Persist(ctx context.Context, batch *Batch) error
}

// Engine runs the ingestion pipeline: fetch from every configured
// source, normalize, classify DEX activity and screen the results.
type Engine struct {
	evmAdapters []*source.EVMAdapter
	btcAdapter  *source.BitcoinAdapter
	exchanges   []source.Adapter
	normalizer  *normalize.Normalizer
	screener    *screening.Engine
	sink        Sink
	log         *slog.Logger
}

// NewEngine builds the engine from configuration. Exchange credentials
// are decrypted through the vault at construction; a blob that fails to
// decrypt is a configuration error, not a per-run condition.
func NewEngine(cfg *config.AppConfig, list screening.Watchlist, sink Sink) (*Engine, error) {
	credentialVault, err := vault.New(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	limiter := provider.NewLimiter(cfg.RateLimits)

	engine := &Engine{
		normalizer: normalize.New(),
		screener:   screening.NewEngine(list),
		sink:       sink,
		log:        slog.Default().With("component", "engine"),
	}

	for _, chain := range cfg.Chains {
		if chain.ID == domain.ChainBitcoin {
			engine.btcAdapter = source.NewBitcoinAdapter(explorer.NewBitcoinClient(limiter))
			continue
		}
		client, err := explorer.NewEVMClient(chain.ID, chain.APIKey, limiter)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", chain.ID, err)
		}
		if chain.ExplorerURL != "" {
			client.SetExplorerURL(chain.ExplorerURL)
		}
		engine.evmAdapters = append(engine.evmAdapters, source.NewEVMAdapter(client))
	}

	for _, account := range cfg.Exchanges {
		apiKey, err := credentialVault.Decrypt(account.APIKeyBlob)
		if err != nil {
			return nil, fmt.Errorf("exchange %s api key: %w", account.Name, err)
		}
		apiSecret, err := credentialVault.Decrypt(account.APISecretBlob)
		if err != nil {
			return nil, fmt.Errorf("exchange %s api secret: %w", account.Name, err)
		}

		switch account.Name {
		case "kraken":
			engine.exchanges = append(engine.exchanges, exchange.NewKrakenClient(apiKey, apiSecret, limiter))
		case "coinbase":
			engine.exchanges = append(engine.exchanges, exchange.NewCoinbaseClient(apiKey, apiSecret, limiter))
		default:
			return nil, fmt.Errorf("unknown exchange %q", account.Name)
		}
	}

	return engine, nil
}

// SyncRequest names the wallet and bounds one sync run.
type SyncRequest struct {
	WalletAddress string
	Window        source.Window
}

// SyncWallet runs the full pipeline for one wallet. Sources fail
// independently: a provider outage on one chain is recorded in
// SourceErrors while the other sources' output is kept. The error
// return is reserved for cancellation and sink failures.
func (e *Engine) SyncWallet(ctx context.Context, req SyncRequest) (*Batch, error) {
	batch := &Batch{
		RunID:         uuid.New(),
		WalletAddress: req.WalletAddress,
		StartedAt:     time.Now().UTC(),
	}
	log := e.log.With("run_id", batch.RunID, "wallet", req.WalletAddress)
	log.Info("sync started")

	for _, adapter := range e.evmAdapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.syncEVM(ctx, adapter, req, batch)
	}

	if e.btcAdapter != nil {
		e.syncSimple(ctx, e.btcAdapter, req, batch)
	}
	for _, adapter := range e.exchanges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.syncSimple(ctx, adapter, req, batch)
	}

	e.screen(ctx, req.WalletAddress, batch)
	batch.Summary = dex.Summarize(batch.Swaps, batch.LiquidityEvents)
	batch.CompletedAt = time.Now().UTC()

	log.Info("sync completed",
		"transactions", len(batch.Transactions),
		"swaps", len(batch.Swaps),
		"liquidity_events", len(batch.LiquidityEvents),
		"source_errors", len(batch.SourceErrors))

	if e.sink != nil {
		if err := e.sink.Persist(ctx, batch); err != nil {
			return nil, fmt.Errorf("persist batch: %w", err)
		}
	}
	return batch, nil
}

// syncEVM fetches one EVM chain's activity, normalizes it and runs the
// DEX classifier over the raw call data.
func (e *Engine) syncEVM(ctx context.Context, adapter *source.EVMAdapter, req SyncRequest, batch *Batch) {
	activity, transfers, err := adapter.FetchActivity(ctx, req.WalletAddress)
	if err != nil {
		e.recordSourceError(batch, adapter.Name(), err)
		return
	}

	txs, _ := e.normalizer.Activity(req.WalletAddress, adapter.Chain(), activity)
	batch.Transactions = append(batch.Transactions, req.Window.Filter(txs)...)

	swaps, liquidity := dex.Classify(adapter.Chain().ID, req.WalletAddress, dexTransactions(activity.Normal), transfers)
	batch.Swaps = append(batch.Swaps, swaps...)
	batch.LiquidityEvents = append(batch.LiquidityEvents, liquidity...)
}

func (e *Engine) syncSimple(ctx context.Context, adapter source.Adapter, req SyncRequest, batch *Batch) {
	txs, err := adapter.FetchTransactions(ctx, req.WalletAddress, req.Window)
	if err != nil {
		e.recordSourceError(batch, adapter.Name(), err)
		return
	}
	batch.Transactions = append(batch.Transactions, txs...)
}

// screen runs the wallet through every configured chain's watchlists,
// plus every router the wallet's swaps touched, plus every asset the
// ingested transactions touched.
func (e *Engine) screen(ctx context.Context, wallet string, batch *Batch) {
	var refs []screening.AddressRef
	for _, adapter := range e.evmAdapters {
		refs = append(refs, screening.AddressRef{Address: wallet, Chain: adapter.Chain().ID})
	}
	if e.btcAdapter != nil {
		refs = append(refs, screening.AddressRef{Address: wallet, Chain: domain.ChainBitcoin})
	}

	seen := make(map[string]struct{})
	for _, swap := range batch.Swaps {
		key := string(swap.Blockchain) + ":" + swap.RouterAddress
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, screening.AddressRef{Address: swap.RouterAddress, Chain: swap.Blockchain})
	}

	results, err := e.screener.ScreenAddresses(ctx, refs)
	if err != nil {
		e.recordSourceError(batch, "screening", err)
		return
	}
	batch.Screenings = results

	// Flagged assets join the screening results; clean assets stay out
	// to keep the batch readable.
	for _, asset := range touchedAssets(batch) {
		if result := e.screener.ScreenAsset(asset); len(result.Flags) > 0 {
			batch.Screenings = append(batch.Screenings, result)
		}
	}
}

// touchedAssets collects the distinct asset symbols the batch's
// transactions and swaps involve, fee assets included.
func touchedAssets(batch *Batch) []string {
	seen := make(map[string]struct{})
	var assets []string
	add := func(symbol string) {
		if symbol == "" {
			return
		}
		if _, dup := seen[symbol]; dup {
			return
		}
		seen[symbol] = struct{}{}
		assets = append(assets, symbol)
	}

	for _, tx := range batch.Transactions {
		add(tx.Asset)
		add(tx.FeeAsset)
	}
	for _, swap := range batch.Swaps {
		add(swap.TokenIn.Symbol)
		add(swap.TokenOut.Symbol)
	}
	return assets
}

func (e *Engine) recordSourceError(batch *Batch, name string, err error) {
	e.log.Warn("source failed", "source", name, "error", err)
	batch.SourceErrors = append(batch.SourceErrors, SourceError{Source: name, Message: err.Error()})
}

// ScreenAddress exposes ad-hoc screening for the CLI.
func (e *Engine) ScreenAddress(address string, chain domain.ChainID) domain.ScreeningResult {
	return e.screener.ScreenAddress(address, chain)
}

// ValidateSources checks every adapter's credentials and reports the
// failures together.
func (e *Engine) ValidateSources(ctx context.Context) []SourceError {
	var failures []SourceError

	adapters := make([]source.Adapter, 0, len(e.evmAdapters)+len(e.exchanges)+1)
	for _, adapter := range e.evmAdapters {
		adapters = append(adapters, adapter)
	}
	if e.btcAdapter != nil {
		adapters = append(adapters, e.btcAdapter)
	}
	adapters = append(adapters, e.exchanges...)

	for _, adapter := range adapters {
		if err := adapter.ValidateCredentials(ctx); err != nil {
			failures = append(failures, SourceError{Source: adapter.Name(), Message: err.Error()})
		}
	}
	return failures
}

// dexTransactions converts raw explorer rows into classifier input,
// skipping failed transactions.
func dexTransactions(rows []explorer.AccountTx) []dex.Transaction {
	txs := make([]dex.Transaction, 0, len(rows))
	for _, row := range rows {
		if row.IsError == "1" {
			continue
		}
		block, _ := strconv.ParseUint(row.BlockNumber, 10, 64)
		ts, _ := strconv.ParseInt(row.TimeStamp, 10, 64)
		txs = append(txs, dex.Transaction{
			Hash:        row.Hash,
			BlockNumber: block,
			Timestamp:   time.Unix(ts, 0).UTC(),
			From:        row.From,
			To:          row.To,
			Input:       row.Input,
		})
	}
	return txs
}
