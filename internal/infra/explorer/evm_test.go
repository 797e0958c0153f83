package explorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/infra/provider"
)

const testWallet = "0x1111111111111111111111111111111111111111"

func newTestEVM(t *testing.T, handler http.Handler) *EVMClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewEVMClient(domain.ChainEthereum, "test-key", provider.NewLimiter(map[string]float64{"explorer:ethereum": 1000}))
	require.NoError(t, err)
	client.SetExplorerURL(server.URL)
	return client
}

func writeEnvelope(w http.ResponseWriter, status, message string, result any) {
	raw, _ := json.Marshal(result)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"message": message,
		"result":  json.RawMessage(raw),
	})
}

func TestNewEVMClientUnsupportedChain(t *testing.T) {
	limiter := provider.NewLimiter(nil)

	_, err := NewEVMClient("dogecoin", "k", limiter)
	var unsupported *domain.UnsupportedChainError
	require.ErrorAs(t, err, &unsupported, "unknown chain must fail before any network call")

	_, err = NewEVMClient(domain.ChainBitcoin, "k", limiter)
	require.ErrorAs(t, err, &unsupported, "bitcoin is not an EVM chain")
}

func TestNormalTransactionsQueryShape(t *testing.T) {
	var got map[string]string
	client := newTestEVM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{}
		for key := range r.URL.Query() {
			got[key] = r.URL.Query().Get(key)
		}
		writeEnvelope(w, "0", "No transactions found", []any{})
	}))

	_, err := client.NormalTransactions(context.Background(), testWallet)
	require.NoError(t, err)

	assert.Equal(t, "account", got["module"])
	assert.Equal(t, "txlist", got["action"])
	assert.Equal(t, testWallet, got["address"])
	assert.Equal(t, "0", got["startblock"])
	assert.Equal(t, "99999999", got["endblock"])
	assert.Equal(t, "1", got["page"])
	assert.Equal(t, "asc", got["sort"])
	assert.Equal(t, "test-key", got["apikey"])
}

func TestPaginationTerminatesOnEmptyPage(t *testing.T) {
	row := AccountTx{Hash: "0xaaa", TimeStamp: "1700000000", Value: "1"}

	var pages []string
	client := newTestEVM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "1" {
			writeEnvelope(w, "1", "OK", []AccountTx{row})
			return
		}
		writeEnvelope(w, "0", "No transactions found", []any{})
	}))
	client.pageSize = 1

	txs, err := client.NormalTransactions(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, []string{"1", "2"}, pages)
}

func TestEmptyResultMessagesAreSuccess(t *testing.T) {
	for _, message := range []string{"No transactions found", "No records found", "No token transfers found"} {
		client := newTestEVM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, "0", message, []any{})
		}))

		txs, err := client.NormalTransactions(context.Background(), testWallet)
		require.NoError(t, err, message)
		assert.Empty(t, txs, message)
	}
}

func TestEnvelopeErrorSurfaces(t *testing.T) {
	client := newTestEVM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, "0", "NOTOK", "Invalid API Key")
	}))

	_, err := client.NormalTransactions(context.Background(), testWallet)
	require.Error(t, err)

	var pe *provider.Error
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "Invalid API Key")
	assert.True(t, provider.IsAuthError(err), "invalid-key envelope must classify as an auth failure")
}

func TestRateLimitMessageClassified(t *testing.T) {
	client := newTestEVM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, "0", "NOTOK", "Max rate limit reached")
	}))

	_, err := client.NormalTransactions(context.Background(), testWallet)
	require.Error(t, err)
	assert.True(t, provider.IsRateLimited(err))
}

func TestHTTPStatusError(t *testing.T) {
	client := newTestEVM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	}))

	_, err := client.NormalTransactions(context.Background(), testWallet)
	require.Error(t, err)
	assert.True(t, provider.IsAuthError(err))
}

func TestFetchActivityJoinsAllThree(t *testing.T) {
	client := newTestEVM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "txlist":
			writeEnvelope(w, "1", "OK", []AccountTx{{Hash: "0xn", TimeStamp: "1700000000"}})
		case "txlistinternal":
			writeEnvelope(w, "1", "OK", []AccountTx{{Hash: "0xi", TimeStamp: "1700000001"}})
		case "tokentx":
			writeEnvelope(w, "1", "OK", []TokenTx{{Hash: "0xt", TimeStamp: "1700000002", TokenSymbol: "USDC"}})
		default:
			t.Errorf("unexpected action %q", r.URL.Query().Get("action"))
		}
	}))
	client.pageSize = 1

	activity, err := client.FetchActivity(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Len(t, activity.Normal, 1)
	assert.Len(t, activity.Internal, 1)
	assert.Len(t, activity.Token, 1)
}

func TestFetchActivityFailFast(t *testing.T) {
	client := newTestEVM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") == "txlistinternal" {
			writeEnvelope(w, "0", "NOTOK", "Invalid API Key")
			return
		}
		writeEnvelope(w, "0", "No transactions found", []any{})
	}))

	_, err := client.FetchActivity(context.Background(), testWallet)
	require.Error(t, err, "one failed request kind fails the whole activity fetch")
}

func TestNativeBalance(t *testing.T) {
	client := newTestEVM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "balance", r.URL.Query().Get("action"))
		writeEnvelope(w, "1", "OK", "1500000000000000000")
	}))

	balance, err := client.NativeBalance(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, "1.5", balance.String())
}
