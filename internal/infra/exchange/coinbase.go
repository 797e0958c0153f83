package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/infra/provider"
	"github.com/ducnm/chainscreen/internal/observability"
	"github.com/ducnm/chainscreen/internal/source"
)

const (
	coinbaseBaseURL  = "https://api.coinbase.com"
	coinbaseProvider = "coinbase"
	coinbasePageSize = 100
)

// CoinbaseClient talks to the Coinbase Advanced Trade API.
type CoinbaseClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *provider.Limiter
	log        *slog.Logger
	now        func() time.Time
}

func NewCoinbaseClient(apiKey, apiSecret string, limiter *provider.Limiter) *CoinbaseClient {
	return &CoinbaseClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   coinbaseBaseURL,
		pageSize:  coinbasePageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		log:     slog.Default().With("provider", coinbaseProvider),
		now:     time.Now,
	}
}

func (c *CoinbaseClient) Name() string {
	return coinbaseProvider
}

type coinbaseFill struct {
	EntryID    string `json:"entry_id"`
	TradeID    string `json:"trade_id"`
	ProductID  string `json:"product_id"`
	TradeTime  string `json:"trade_time"`
	Side       string `json:"side"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	Commission string `json:"commission"`
}

type coinbaseAccount struct {
	UUID             string `json:"uuid"`
	Currency         string `json:"currency"`
	AvailableBalance struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"available_balance"`
}

// FetchTransactions pulls the account's fill history and normalizes it
// into buy/sell rows.
func (c *CoinbaseClient) FetchTransactions(ctx context.Context, _ string, window source.Window) ([]domain.ParsedTransaction, error) {
	fills, err := c.fills(ctx)
	if err != nil {
		return nil, fmt.Errorf("fills: %w", err)
	}

	txs := make([]domain.ParsedTransaction, 0, len(fills))
	for _, fill := range fills {
		if tx := c.normalizeFill(fill); tx != nil {
			txs = append(txs, *tx)
		}
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})
	return window.Filter(txs), nil
}

// FetchBalances lists accounts and returns the non-zero available
// balances keyed by currency.
func (c *CoinbaseClient) FetchBalances(ctx context.Context, _ string) (map[string]decimal.Decimal, error) {
	accounts, err := c.accounts(ctx)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]decimal.Decimal, len(accounts))
	for _, account := range accounts {
		value, err := decimal.NewFromString(account.AvailableBalance.Value)
		if err != nil {
			c.log.Warn("skipping unparseable balance", "currency", account.Currency, "value", account.AvailableBalance.Value)
			continue
		}
		if value.IsZero() {
			continue
		}
		balances[account.Currency] = value
	}
	return balances, nil
}

// ValidateCredentials lists one account page.
func (c *CoinbaseClient) ValidateCredentials(ctx context.Context) error {
	query := url.Values{"limit": {"1"}}
	if _, err := c.call(ctx, "/api/v3/brokerage/accounts", query); err != nil {
		return fmt.Errorf("coinbase credential check: %w", err)
	}
	return nil
}

func (c *CoinbaseClient) fills(ctx context.Context) ([]coinbaseFill, error) {
	var all []coinbaseFill
	cursor := ""
	for {
		query := url.Values{"limit": {strconv.Itoa(c.pageSize)}}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		raw, err := c.call(ctx, "/api/v3/brokerage/orders/historical/fills", query)
		if err != nil {
			return nil, err
		}

		var page struct {
			Fills   []coinbaseFill `json:"fills"`
			HasNext bool           `json:"has_next"`
			Cursor  string         `json:"cursor"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("parse fills page: %w", err)
		}

		all = append(all, page.Fills...)
		if !page.HasNext || page.Cursor == "" {
			return all, nil
		}
		cursor = page.Cursor
	}
}

func (c *CoinbaseClient) accounts(ctx context.Context) ([]coinbaseAccount, error) {
	var all []coinbaseAccount
	cursor := ""
	for {
		query := url.Values{"limit": {strconv.Itoa(c.pageSize)}}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		raw, err := c.call(ctx, "/api/v3/brokerage/accounts", query)
		if err != nil {
			return nil, err
		}

		var page struct {
			Accounts []coinbaseAccount `json:"accounts"`
			HasNext  bool              `json:"has_next"`
			Cursor   string            `json:"cursor"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("parse accounts page: %w", err)
		}

		all = append(all, page.Accounts...)
		if !page.HasNext || page.Cursor == "" {
			return all, nil
		}
		cursor = page.Cursor
	}
}

func (c *CoinbaseClient) normalizeFill(fill coinbaseFill) *domain.ParsedTransaction {
	base, quote, ok := strings.Cut(fill.ProductID, "-")
	if !ok {
		c.log.Warn("skipping fill with unknown product", "product_id", fill.ProductID)
		return nil
	}

	size, err := decimal.NewFromString(fill.Size)
	if err != nil {
		c.log.Warn("skipping fill with bad size", "trade_id", fill.TradeID, "size", fill.Size)
		return nil
	}
	price, _ := decimal.NewFromString(fill.Price)
	fee, _ := decimal.NewFromString(fill.Commission)

	txType := domain.TxTypeBuy
	if strings.EqualFold(fill.Side, "SELL") {
		txType = domain.TxTypeSell
	}

	ts, err := time.Parse(time.RFC3339, fill.TradeTime)
	if err != nil {
		c.log.Warn("skipping fill with bad timestamp", "trade_id", fill.TradeID, "trade_time", fill.TradeTime)
		return nil
	}

	return &domain.ParsedTransaction{
		Timestamp: ts.UTC(),
		Type:      txType,
		Asset:     base,
		Amount:    size,
		Price:     &price,
		Fee:       &fee,
		FeeAsset:  quote,
		Exchange:  coinbaseProvider,
		Source:    domain.SourceAPISync,
		RawData:   marshalRaw(fill),
	}
}

// call performs one signed GET. The signature covers
// timestamp + method + path + body; query parameters are excluded by
// the provider's scheme.
func (c *CoinbaseClient) call(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx, coinbaseProvider); err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	signature := coinbaseSign(c.apiSecret, timestamp, http.MethodGet, path, "")

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	observability.ProviderCallsTotal.WithLabelValues(coinbaseProvider, path).Inc()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("CB-ACCESS-KEY", c.apiKey)
	req.Header.Set("CB-ACCESS-SIGN", signature)
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.ProviderErrorsTotal.WithLabelValues(coinbaseProvider, "network").Inc()
		return nil, fmt.Errorf("coinbase call: %w", err)
	}
	defer resp.Body.Close()

	observability.ProviderCallLatency.WithLabelValues(coinbaseProvider, path).Observe(time.Since(start).Seconds())

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		observability.ProviderErrorsTotal.WithLabelValues(coinbaseProvider, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &provider.Error{Provider: coinbaseProvider, Status: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}

	return payload, nil
}

// coinbaseSign computes CB-ACCESS-SIGN: hex HMAC-SHA256 over
// timestamp + method + path + body.
func coinbaseSign(secret, timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + path + body))
	return hex.EncodeToString(mac.Sum(nil))
}
