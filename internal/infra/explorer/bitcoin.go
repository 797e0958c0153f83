package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/infra/provider"
	"github.com/ducnm/chainscreen/internal/observability"
	"github.com/shopspring/decimal"
)

const bitcoinPageSize = 50

// btcProvider is the limiter/metrics key for the Bitcoin explorer.
const btcProvider = "explorer:bitcoin"

// RawAddrTx is one transaction from the raw-address endpoint. Values are
// satoshis; Result is the net effect on the queried address.
type RawAddrTx struct {
	Hash   string `json:"hash"`
	Time   int64  `json:"time"`
	Result int64  `json:"result"`
	Fee    int64  `json:"fee"`
	Inputs []struct {
		PrevOut struct {
			Addr  string `json:"addr"`
			Value int64  `json:"value"`
		} `json:"prev_out"`
	} `json:"inputs"`
	Out []struct {
		Addr  string `json:"addr"`
		Value int64  `json:"value"`
	} `json:"out"`
}

type rawAddrResponse struct {
	Address      string      `json:"address"`
	FinalBalance int64       `json:"final_balance"`
	TxCount      int         `json:"n_tx"`
	Txs          []RawAddrTx `json:"txs"`
}

// BitcoinClient talks to a blockchain.info-style raw-address API.
type BitcoinClient struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *provider.Limiter
	log        *slog.Logger
}

// NewBitcoinClient builds a client against the registered Bitcoin
// explorer URL.
func NewBitcoinClient(limiter *provider.Limiter) *BitcoinClient {
	spec, _ := domain.Spec(domain.ChainBitcoin)
	return &BitcoinClient{
		baseURL:  spec.ExplorerURL,
		pageSize: bitcoinPageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		log:     slog.Default().With("provider", btcProvider),
	}
}

// Transactions fetches the address's full transaction history, paging by
// offset until the reported transaction count is reached.
func (c *BitcoinClient) Transactions(ctx context.Context, address string) ([]RawAddrTx, error) {
	var all []RawAddrTx
	for offset := 0; ; offset += c.pageSize {
		page, total, err := c.fetchPage(ctx, address, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

// Balance fetches the address's confirmed balance in BTC.
func (c *BitcoinClient) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	resp, err := c.rawAddr(ctx, address, 1, 0)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(resp.FinalBalance, -8), nil
}

func (c *BitcoinClient) fetchPage(ctx context.Context, address string, offset int) ([]RawAddrTx, int, error) {
	resp, err := c.rawAddr(ctx, address, c.pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	return resp.Txs, resp.TxCount, nil
}

func (c *BitcoinClient) rawAddr(ctx context.Context, address string, limit, offset int) (*rawAddrResponse, error) {
	if err := c.limiter.Wait(ctx, btcProvider); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rawaddr/%s?n=%d&offset=%d", c.baseURL, address, limit, offset)

	observability.ProviderCallsTotal.WithLabelValues(btcProvider, "rawaddr").Inc()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.ProviderErrorsTotal.WithLabelValues(btcProvider, "network").Inc()
		return nil, fmt.Errorf("bitcoin explorer call: %w", err)
	}
	defer resp.Body.Close()

	observability.ProviderCallLatency.WithLabelValues(btcProvider, "rawaddr").Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		observability.ProviderErrorsTotal.WithLabelValues(btcProvider, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &provider.Error{
			Provider: btcProvider,
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(string(body)),
		}
	}

	var parsed rawAddrResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse rawaddr response: %w", err)
	}
	return &parsed, nil
}
