// Package explorer implements REST clients for public block explorer
// APIs: the Etherscan-style account API for EVM chains and the
// blockchain.info raw-address API for Bitcoin. Clients return raw
// provider records; conversion to the canonical model lives in the
// normalize package.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/infra/provider"
	"github.com/ducnm/chainscreen/internal/observability"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultPageSize = 1000

// AccountTx is one row of the explorer's txlist/txlistinternal result.
// The API returns every field as a string.
type AccountTx struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Input           string `json:"input"`
	FunctionName    string `json:"functionName"`
	IsError         string `json:"isError"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	ContractAddress string `json:"contractAddress"`
}

// TokenTx is one row of the explorer's tokentx result.
type TokenTx struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// Activity bundles the three account-level record kinds for one wallet.
type Activity struct {
	Normal   []AccountTx
	Internal []AccountTx
	Token    []TokenTx
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// EVMClient talks to one chain's Etherscan-style explorer.
type EVMClient struct {
	spec       domain.ChainSpec
	apiKey     string
	pageSize   int
	httpClient *http.Client
	limiter    *provider.Limiter
	log        *slog.Logger
}

// NewEVMClient resolves the chain registry entry and builds a client.
// Fails with UnsupportedChainError before any network call when the
// chain is unknown or not EVM.
func NewEVMClient(chain domain.ChainID, apiKey string, limiter *provider.Limiter) (*EVMClient, error) {
	spec, err := domain.Spec(chain)
	if err != nil {
		return nil, err
	}
	if !spec.EVM {
		return nil, &domain.UnsupportedChainError{Chain: chain}
	}

	return &EVMClient{
		spec:     spec,
		apiKey:   apiKey,
		pageSize: defaultPageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		log:     slog.Default().With("provider", providerName(spec.ID)),
	}, nil
}

func providerName(chain domain.ChainID) string {
	return "explorer:" + string(chain)
}

// Chain returns the chain this client serves.
func (c *EVMClient) Chain() domain.ChainSpec {
	return c.spec
}

// SetExplorerURL overrides the registry URL, for proxies and tests.
func (c *EVMClient) SetExplorerURL(url string) {
	c.spec.ExplorerURL = url
}

// NormalTransactions fetches the wallet's external transactions.
func (c *EVMClient) NormalTransactions(ctx context.Context, address string) ([]AccountTx, error) {
	return c.accountTxs(ctx, "txlist", address)
}

// InternalTransactions fetches the wallet's internal (trace) transactions.
func (c *EVMClient) InternalTransactions(ctx context.Context, address string) ([]AccountTx, error) {
	return c.accountTxs(ctx, "txlistinternal", address)
}

// TokenTransfers fetches the wallet's ERC-20 transfer log entries.
func (c *EVMClient) TokenTransfers(ctx context.Context, address string) ([]TokenTx, error) {
	var all []TokenTx
	for page := 1; ; page++ {
		var batch []TokenTx
		done, err := c.fetchPage(ctx, "tokentx", address, page, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if done {
			return all, nil
		}
	}
}

// FetchActivity issues the three account request kinds concurrently and
// joins them. If any one fails the whole call fails.
func (c *EVMClient) FetchActivity(ctx context.Context, address string) (*Activity, error) {
	activity := &Activity{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := c.NormalTransactions(ctx, address)
		if err != nil {
			return fmt.Errorf("normal transactions: %w", err)
		}
		activity.Normal = txs
		return nil
	})
	g.Go(func() error {
		txs, err := c.InternalTransactions(ctx, address)
		if err != nil {
			return fmt.Errorf("internal transactions: %w", err)
		}
		activity.Internal = txs
		return nil
	})
	g.Go(func() error {
		txs, err := c.TokenTransfers(ctx, address)
		if err != nil {
			return fmt.Errorf("token transfers: %w", err)
		}
		activity.Token = txs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return activity, nil
}

// NativeBalance fetches the wallet's native-asset balance in wei.
func (c *EVMClient) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	raw, err := c.call(ctx, url.Values{
		"module":  {"account"},
		"action":  {"balance"},
		"address": {address},
		"tag":     {"latest"},
	})
	if err != nil {
		return decimal.Zero, err
	}

	var wei string
	if err := json.Unmarshal(raw, &wei); err != nil {
		return decimal.Zero, fmt.Errorf("parse balance: %w", err)
	}

	bal, err := decimal.NewFromString(wei)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance %q: %w", wei, err)
	}
	return bal.Shift(-domain.DefaultTokenDecimals), nil
}

func (c *EVMClient) accountTxs(ctx context.Context, action, address string) ([]AccountTx, error) {
	var all []AccountTx
	for page := 1; ; page++ {
		var batch []AccountTx
		done, err := c.fetchPage(ctx, action, address, page, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if done {
			return all, nil
		}
	}
}

// fetchPage fetches one page of results into out and reports whether
// pagination is complete. The explorer pages by (page, offset) and an
// empty page terminates the loop.
func (c *EVMClient) fetchPage(ctx context.Context, action, address string, page int, out any) (bool, error) {
	raw, err := c.call(ctx, url.Values{
		"module":     {"account"},
		"action":     {action},
		"address":    {address},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"page":       {strconv.Itoa(page)},
		"offset":     {strconv.Itoa(c.pageSize)},
		"sort":       {"asc"},
	})
	if err != nil {
		return false, err
	}
	if raw == nil {
		return true, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("parse %s result: %w", action, err)
	}

	switch v := out.(type) {
	case *[]AccountTx:
		return len(*v) == 0, nil
	case *[]TokenTx:
		return len(*v) == 0, nil
	default:
		return true, nil
	}
}

// call performs one explorer GET and unwraps the {status,message,result}
// envelope. A "no data" reply returns (nil, nil).
func (c *EVMClient) call(ctx context.Context, params url.Values) (json.RawMessage, error) {
	name := providerName(c.spec.ID)
	if err := c.limiter.Wait(ctx, name); err != nil {
		return nil, err
	}

	params.Set("apikey", c.apiKey)
	endpoint := c.spec.ExplorerURL + "?" + params.Encode()

	action := params.Get("action")
	observability.ProviderCallsTotal.WithLabelValues(name, action).Inc()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.ProviderErrorsTotal.WithLabelValues(name, "network").Inc()
		return nil, fmt.Errorf("explorer call: %w", err)
	}
	defer resp.Body.Close()

	observability.ProviderCallLatency.WithLabelValues(name, action).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		observability.ProviderErrorsTotal.WithLabelValues(name, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &provider.Error{Provider: name, Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}

	if env.Status != "1" {
		// The API reports "no data found" through the error status; that
		// is an empty success, not a failure.
		if isEmptyResult(env.Message) {
			return nil, nil
		}

		detail := env.Message
		var resultMsg string
		if json.Unmarshal(env.Result, &resultMsg) == nil && resultMsg != "" {
			detail += ": " + resultMsg
		}

		observability.ProviderErrorsTotal.WithLabelValues(name, "api").Inc()
		return nil, &provider.Error{Provider: name, Status: envelopeErrorStatus(detail), Message: detail}
	}

	return env.Result, nil
}

// envelopeErrorStatus maps the explorer's free-text error messages onto
// HTTP statuses so the shared provider classifiers apply.
func envelopeErrorStatus(detail string) int {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "invalid api key"):
		return http.StatusUnauthorized
	case strings.Contains(lower, "rate limit"):
		return http.StatusTooManyRequests
	default:
		return http.StatusOK
	}
}

func isEmptyResult(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "no transactions found") ||
		strings.Contains(m, "no records found") ||
		strings.Contains(m, "no token transfers found")
}
