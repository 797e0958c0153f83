package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducnm/chainscreen/internal/core/config"
	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/screening"
	"github.com/ducnm/chainscreen/internal/source"
	"github.com/ducnm/chainscreen/internal/vault"
)

const (
	engineWallet = "0x1111111111111111111111111111111111111111"
	v2Router     = "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
	usdcContract = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	wethContract = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

type memorySink struct {
	batches []*Batch
}

func (s *memorySink) Persist(_ context.Context, batch *Batch) error {
	s.batches = append(s.batches, batch)
	return nil
}

// newExplorerStub serves a minimal etherscan-style wallet history: one
// plain deposit and one Uniswap V2 swap with its two token transfers.
func newExplorerStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope := func(result any) {
			raw, err := json.Marshal(result)
			require.NoError(t, err)
			json.NewEncoder(w).Encode(map[string]any{
				"status": "1", "message": "OK", "result": json.RawMessage(raw),
			})
		}
		empty := func() {
			json.NewEncoder(w).Encode(map[string]any{
				"status": "0", "message": "No transactions found", "result": json.RawMessage(`[]`),
			})
		}

		if r.URL.Query().Get("page") != "" && r.URL.Query().Get("page") != "1" {
			empty()
			return
		}

		switch r.URL.Query().Get("action") {
		case "txlist":
			envelope([]map[string]string{
				{
					"blockNumber": "100", "timeStamp": "1700000000", "hash": "0xdep",
					"from": "0x2222222222222222222222222222222222222222", "to": engineWallet,
					"value": "1000000000000000000", "input": "0x", "isError": "0",
					"gasUsed": "21000", "gasPrice": "20000000000",
				},
				{
					"blockNumber": "101", "timeStamp": "1700000100", "hash": "0xswap",
					"from": engineWallet, "to": v2Router,
					"value": "0", "input": "0x38ed173900000000", "isError": "0",
					"functionName": "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)",
					"gasUsed": "150000", "gasPrice": "20000000000",
				},
			})
		case "txlistinternal":
			empty()
		case "tokentx":
			envelope([]map[string]string{
				{
					"blockNumber": "101", "timeStamp": "1700000100", "hash": "0xswap",
					"from": engineWallet, "to": "0xpool",
					"value": "1000000000", "contractAddress": usdcContract,
					"tokenName": "USD Coin", "tokenSymbol": "USDC", "tokenDecimal": "6",
				},
				{
					"blockNumber": "101", "timeStamp": "1700000100", "hash": "0xswap",
					"from": "0xpool", "to": engineWallet,
					"value": "500000000000000000", "contractAddress": wethContract,
					"tokenName": "Wrapped Ether", "tokenSymbol": "WETH", "tokenDecimal": "18",
				},
			})
		default:
			empty()
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestEngine(t *testing.T, cfg *config.AppConfig, sink Sink) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, screening.NewStatic(), sink)
	require.NoError(t, err)
	return engine
}

func TestSyncWalletPipeline(t *testing.T) {
	stub := newExplorerStub(t)
	sink := &memorySink{}
	engine := newTestEngine(t, &config.AppConfig{
		Chains: []config.ChainConfig{
			{ID: domain.ChainEthereum, ExplorerURL: stub.URL, APIKey: "k"},
		},
		RateLimits: map[string]float64{"explorer:ethereum": 1000},
	}, sink)

	batch, err := engine.SyncWallet(context.Background(), SyncRequest{WalletAddress: engineWallet})
	require.NoError(t, err)

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", batch.RunID.String())
	assert.Empty(t, batch.SourceErrors)

	// One deposit, one swap-typed transaction, two token transfer rows.
	require.Len(t, batch.Transactions, 4)

	require.Len(t, batch.Swaps, 1)
	swap := batch.Swaps[0]
	assert.Equal(t, "USDC", swap.TokenIn.Symbol)
	assert.Equal(t, "WETH", swap.TokenOut.Symbol)
	assert.Equal(t, domain.ProtocolUniswapV2, swap.Protocol)
	assert.Equal(t, "1000", swap.AmountIn.String())

	assert.Equal(t, 1, batch.Summary.SwapCount)
	assert.Equal(t, 1, batch.Summary.ByPair["USDC-WETH"])

	// Wallet plus the swap router are screened; all clean here.
	require.Len(t, batch.Screenings, 2)
	for _, result := range batch.Screenings {
		assert.Zero(t, result.RiskScore)
	}

	require.Len(t, sink.batches, 1, "completed batch must reach the sink")
	assert.Equal(t, batch.RunID, sink.batches[0].RunID)
}

func TestSyncWalletSourceIsolation(t *testing.T) {
	stub := newExplorerStub(t)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	}))
	t.Cleanup(broken.Close)

	engine := newTestEngine(t, &config.AppConfig{
		Chains: []config.ChainConfig{
			{ID: domain.ChainEthereum, ExplorerURL: stub.URL, APIKey: "k"},
			{ID: domain.ChainPolygon, ExplorerURL: broken.URL, APIKey: "k"},
		},
		RateLimits: map[string]float64{
			"explorer:ethereum": 1000,
			"explorer:polygon":  1000,
		},
	}, nil)

	batch, err := engine.SyncWallet(context.Background(), SyncRequest{WalletAddress: engineWallet})
	require.NoError(t, err, "one broken source must not fail the run")

	require.Len(t, batch.SourceErrors, 1)
	assert.Equal(t, "explorer:polygon", batch.SourceErrors[0].Source)
	assert.NotEmpty(t, batch.Transactions, "healthy sources' output is kept")
}

func TestSyncWalletScreensDirtyRouter(t *testing.T) {
	// A watchlist that marks the Uniswap V2 router as a mixer makes the
	// screening results carry a flagged entry for it.
	sets := screening.Sets{
		ChainMixers: map[domain.ChainID][]string{
			domain.ChainEthereum: {v2Router},
		},
	}

	stub := newExplorerStub(t)
	engine, err := NewEngine(&config.AppConfig{
		Chains: []config.ChainConfig{
			{ID: domain.ChainEthereum, ExplorerURL: stub.URL, APIKey: "k"},
		},
		RateLimits: map[string]float64{"explorer:ethereum": 1000},
	}, screening.NewStaticFrom(sets), nil)
	require.NoError(t, err)

	batch, err := engine.SyncWallet(context.Background(), SyncRequest{WalletAddress: engineWallet})
	require.NoError(t, err)

	var flagged bool
	for _, result := range batch.Screenings {
		if result.IsMixerRelated {
			flagged = true
		}
	}
	assert.True(t, flagged, "router touched by a swap must be screened")
}

func TestSyncWalletScreensTouchedAssets(t *testing.T) {
	// A wallet that receives a wrapped privacy coin must see that
	// exposure in the batch even when every address is clean.
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		empty := func() {
			json.NewEncoder(w).Encode(map[string]any{
				"status": "0", "message": "No transactions found", "result": json.RawMessage(`[]`),
			})
		}
		if r.URL.Query().Get("action") != "tokentx" || r.URL.Query().Get("page") != "1" {
			empty()
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "1", "message": "OK", "result": json.RawMessage(`[{
				"blockNumber": "100", "timeStamp": "1700000000", "hash": "0xwxmr",
				"from": "0x3333333333333333333333333333333333333333",
				"to": "` + engineWallet + `",
				"value": "2000000000000000000",
				"contractAddress": "0x465e07d6028830124be2e4aa551fbe12805db0f5",
				"tokenName": "Wrapped Monero", "tokenSymbol": "WXMR", "tokenDecimal": "18"
			}]`),
		})
	}))
	t.Cleanup(stub.Close)

	engine := newTestEngine(t, &config.AppConfig{
		Chains: []config.ChainConfig{
			{ID: domain.ChainEthereum, ExplorerURL: stub.URL, APIKey: "k"},
		},
		RateLimits: map[string]float64{"explorer:ethereum": 1000},
	}, nil)

	batch, err := engine.SyncWallet(context.Background(), SyncRequest{WalletAddress: engineWallet})
	require.NoError(t, err)
	require.Len(t, batch.Transactions, 1)

	var privacyFlagged bool
	for _, result := range batch.Screenings {
		if result.IsPrivacyCoinRelated {
			privacyFlagged = true
			assert.Equal(t, "WXMR", result.Address)
		}
	}
	assert.True(t, privacyFlagged, "asset touched by the batch must raise privacy exposure")
}

func TestNewEngineRejectsBadCredentialBlob(t *testing.T) {
	_, err := NewEngine(&config.AppConfig{
		Exchanges: []config.ExchangeConfig{
			{Name: "kraken", APIKeyBlob: "not-a-valid-blob", APISecretBlob: "also-bad"},
		},
	}, screening.NewStatic(), nil)
	require.Error(t, err, "undecryptable credentials are a construction error")
}

func TestNewEngineDecryptsExchangeCredentials(t *testing.T) {
	vaultCfg := vault.Config{Key: "test-passphrase"}
	v, err := vault.New(vaultCfg)
	require.NoError(t, err)

	keyBlob, err := v.Encrypt("api-key")
	require.NoError(t, err)
	secretBlob, err := v.Encrypt("api-secret")
	require.NoError(t, err)

	engine, err := NewEngine(&config.AppConfig{
		Encryption: vaultCfg,
		Exchanges: []config.ExchangeConfig{
			{Name: "kraken", APIKeyBlob: keyBlob, APISecretBlob: secretBlob},
		},
	}, screening.NewStatic(), nil)
	require.NoError(t, err)
	assert.Len(t, engine.exchanges, 1)
	assert.Equal(t, "kraken", engine.exchanges[0].Name())
}

func TestSyncWalletWindow(t *testing.T) {
	stub := newExplorerStub(t)
	engine := newTestEngine(t, &config.AppConfig{
		Chains: []config.ChainConfig{
			{ID: domain.ChainEthereum, ExplorerURL: stub.URL, APIKey: "k"},
		},
		RateLimits: map[string]float64{"explorer:ethereum": 1000},
	}, nil)

	// A window ending before all recorded activity keeps no transactions.
	window := source.Window{End: time.Unix(1600000000, 0).UTC()}
	batch, err := engine.SyncWallet(context.Background(), SyncRequest{WalletAddress: engineWallet, Window: window})
	require.NoError(t, err)
	assert.Empty(t, batch.Transactions)
}
