// Package exchange implements authenticated REST clients for
// centralized exchanges. Each client normalizes its provider's records
// inline and satisfies the source.Adapter interface.
package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
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
	krakenBaseURL  = "https://api.kraken.com"
	krakenProvider = "kraken"
	krakenPageSize = 50
)

// KrakenClient talks to the Kraken private REST API. The API is
// account-scoped, so the address argument of the adapter interface is
// ignored.
type KrakenClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *provider.Limiter
	log        *slog.Logger
	nonce      func() string
}

// NewKrakenClient builds a client. The secret is the base64-encoded
// private key as issued by Kraken.
func NewKrakenClient(apiKey, apiSecret string, limiter *provider.Limiter) *KrakenClient {
	return &KrakenClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   krakenBaseURL,
		pageSize:  krakenPageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		log:     slog.Default().With("provider", krakenProvider),
		nonce: func() string {
			return strconv.FormatInt(time.Now().UnixNano(), 10)
		},
	}
}

func (c *KrakenClient) Name() string {
	return krakenProvider
}

type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

type krakenTrade struct {
	OrderTxID string  `json:"ordertxid"`
	Pair      string  `json:"pair"`
	Time      float64 `json:"time"`
	Type      string  `json:"type"`
	Price     string  `json:"price"`
	Cost      string  `json:"cost"`
	Fee       string  `json:"fee"`
	Volume    string  `json:"vol"`
}

type krakenLedger struct {
	RefID  string  `json:"refid"`
	Time   float64 `json:"time"`
	Type   string  `json:"type"`
	Asset  string  `json:"asset"`
	Amount string  `json:"amount"`
	Fee    string  `json:"fee"`
}

// FetchTransactions pulls the full trade and ledger history and
// normalizes it: trades become buy/sell rows, ledger deposits and
// withdrawals become transfer rows. Trade-driven ledger entries are
// skipped so a filled order is not double counted.
func (c *KrakenClient) FetchTransactions(ctx context.Context, _ string, window source.Window) ([]domain.ParsedTransaction, error) {
	trades, err := c.tradesHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("trades history: %w", err)
	}
	ledger, err := c.ledgers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledgers: %w", err)
	}

	txs := make([]domain.ParsedTransaction, 0, len(trades)+len(ledger))
	for _, trade := range trades {
		if tx := c.normalizeTrade(trade); tx != nil {
			txs = append(txs, *tx)
		}
	}
	for _, entry := range ledger {
		if tx := c.normalizeLedger(entry); tx != nil {
			txs = append(txs, *tx)
		}
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})
	return window.Filter(txs), nil
}

// FetchBalances returns non-zero account balances with Kraken's asset
// codes translated to common tickers.
func (c *KrakenClient) FetchBalances(ctx context.Context, _ string) (map[string]decimal.Decimal, error) {
	raw, err := c.call(ctx, "/0/private/Balance", url.Values{})
	if err != nil {
		return nil, err
	}

	var rows map[string]string
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse balances: %w", err)
	}

	balances := make(map[string]decimal.Decimal, len(rows))
	for code, amount := range rows {
		value, err := decimal.NewFromString(amount)
		if err != nil {
			c.log.Warn("skipping unparseable balance", "asset", code, "value", amount)
			continue
		}
		if value.IsZero() {
			continue
		}
		balances[normalizeKrakenAsset(code)] = value
	}
	return balances, nil
}

// ValidateCredentials issues a Balance call, the cheapest private
// endpoint.
func (c *KrakenClient) ValidateCredentials(ctx context.Context) error {
	if _, err := c.call(ctx, "/0/private/Balance", url.Values{}); err != nil {
		return fmt.Errorf("kraken credential check: %w", err)
	}
	return nil
}

func (c *KrakenClient) tradesHistory(ctx context.Context) ([]krakenTrade, error) {
	var all []krakenTrade
	for offset := 0; ; offset += c.pageSize {
		body := url.Values{"ofs": {strconv.Itoa(offset)}}
		raw, err := c.call(ctx, "/0/private/TradesHistory", body)
		if err != nil {
			return nil, err
		}

		var page struct {
			Trades map[string]krakenTrade `json:"trades"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("parse trades page: %w", err)
		}

		for _, trade := range page.Trades {
			all = append(all, trade)
		}
		if len(page.Trades) < c.pageSize {
			return all, nil
		}
	}
}

func (c *KrakenClient) ledgers(ctx context.Context) ([]krakenLedger, error) {
	var all []krakenLedger
	for offset := 0; ; offset += c.pageSize {
		body := url.Values{"ofs": {strconv.Itoa(offset)}}
		raw, err := c.call(ctx, "/0/private/Ledgers", body)
		if err != nil {
			return nil, err
		}

		var page struct {
			Ledger map[string]krakenLedger `json:"ledger"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("parse ledger page: %w", err)
		}

		for _, entry := range page.Ledger {
			all = append(all, entry)
		}
		if len(page.Ledger) < c.pageSize {
			return all, nil
		}
	}
}

func (c *KrakenClient) normalizeTrade(trade krakenTrade) *domain.ParsedTransaction {
	base, quote, ok := splitKrakenPair(trade.Pair)
	if !ok {
		c.log.Warn("skipping trade with unknown pair", "pair", trade.Pair)
		return nil
	}

	volume, err := decimal.NewFromString(trade.Volume)
	if err != nil {
		c.log.Warn("skipping trade with bad volume", "pair", trade.Pair, "vol", trade.Volume)
		return nil
	}
	price, _ := decimal.NewFromString(trade.Price)
	fee, _ := decimal.NewFromString(trade.Fee)

	txType := domain.TxTypeBuy
	if trade.Type == "sell" {
		txType = domain.TxTypeSell
	}

	return &domain.ParsedTransaction{
		Timestamp: unixFloat(trade.Time),
		Type:      txType,
		Asset:     base,
		Amount:    volume,
		Price:     &price,
		Fee:       &fee,
		FeeAsset:  quote,
		Exchange:  krakenProvider,
		Source:    domain.SourceAPISync,
		RawData:   marshalRaw(trade),
	}
}

func (c *KrakenClient) normalizeLedger(entry krakenLedger) *domain.ParsedTransaction {
	var txType domain.TxType
	switch entry.Type {
	case "deposit":
		txType = domain.TxTypeDeposit
	case "withdrawal":
		txType = domain.TxTypeWithdrawal
	default:
		// Trades already arrive through TradesHistory; staking and the
		// rest of the ledger types are out of scope here.
		return nil
	}

	amount, err := decimal.NewFromString(entry.Amount)
	if err != nil {
		c.log.Warn("skipping ledger entry with bad amount", "refid", entry.RefID, "amount", entry.Amount)
		return nil
	}
	fee, _ := decimal.NewFromString(entry.Fee)
	asset := normalizeKrakenAsset(entry.Asset)

	tx := domain.ParsedTransaction{
		Timestamp: unixFloat(entry.Time),
		Type:      txType,
		Asset:     asset,
		Amount:    amount.Abs(),
		Exchange:  krakenProvider,
		Source:    domain.SourceAPISync,
		RawData:   marshalRaw(entry),
	}
	if fee.IsPositive() {
		tx.Fee = &fee
		tx.FeeAsset = asset
	}
	return &tx
}

// call performs one signed POST against a private endpoint and unwraps
// the {error, result} envelope.
func (c *KrakenClient) call(ctx context.Context, path string, body url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx, krakenProvider); err != nil {
		return nil, err
	}

	nonce := c.nonce()
	body.Set("nonce", nonce)
	encoded := body.Encode()

	sign, err := krakenSign(c.apiSecret, path, nonce, encoded)
	if err != nil {
		return nil, err
	}

	observability.ProviderCallsTotal.WithLabelValues(krakenProvider, path).Inc()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", sign)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.ProviderErrorsTotal.WithLabelValues(krakenProvider, "network").Inc()
		return nil, fmt.Errorf("kraken call: %w", err)
	}
	defer resp.Body.Close()

	observability.ProviderCallLatency.WithLabelValues(krakenProvider, path).Observe(time.Since(start).Seconds())

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		observability.ProviderErrorsTotal.WithLabelValues(krakenProvider, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &provider.Error{Provider: krakenProvider, Status: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}

	var env krakenEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if len(env.Error) > 0 {
		observability.ProviderErrorsTotal.WithLabelValues(krakenProvider, "api").Inc()
		return nil, &provider.Error{
			Provider: krakenProvider,
			Status:   krakenErrorStatus(env.Error),
			Message:  strings.Join(env.Error, "; "),
		}
	}

	return env.Result, nil
}

// krakenSign computes API-Sign: HMAC-SHA512 over path concatenated with
// SHA256(nonce + body), keyed with the base64-decoded secret.
func krakenSign(secret, path, nonce, body string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}

	digest := sha256.Sum256([]byte(nonce + body))
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// krakenErrorStatus maps Kraken's string error codes onto HTTP statuses
// so the shared error classifiers apply.
func krakenErrorStatus(errs []string) int {
	joined := strings.ToLower(strings.Join(errs, "; "))
	switch {
	case strings.Contains(joined, "invalid key"),
		strings.Contains(joined, "invalid signature"),
		strings.Contains(joined, "invalid nonce"),
		strings.Contains(joined, "permission denied"):
		return http.StatusUnauthorized
	case strings.Contains(joined, "rate limit"), strings.Contains(joined, "too many requests"):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// splitKrakenPair breaks a pair code like XXBTZUSD into base and quote
// tickers.
func splitKrakenPair(pair string) (base, quote string, ok bool) {
	for _, suffix := range krakenQuoteCodes {
		if len(pair) > len(suffix) && strings.HasSuffix(pair, suffix) {
			return normalizeKrakenAsset(pair[:len(pair)-len(suffix)]), normalizeKrakenAsset(suffix), true
		}
	}
	return "", "", false
}

// krakenQuoteCodes are tried longest first so ZUSD wins over USD.
var krakenQuoteCodes = []string{
	"ZUSD", "ZEUR", "ZGBP", "ZJPY", "ZCAD", "ZAUD",
	"USDT", "USDC", "XXBT", "XETH",
	"USD", "EUR", "GBP", "XBT", "ETH", "DAI",
}

// krakenAssetCodes maps Kraken's legacy X/Z-prefixed codes to common
// tickers.
var krakenAssetCodes = map[string]string{
	"XXBT": "BTC",
	"XBT":  "BTC",
	"XETH": "ETH",
	"XXDG": "DOGE",
	"XXMR": "XMR",
	"XXRP": "XRP",
	"XZEC": "ZEC",
	"XLTC": "LTC",
	"XMLN": "MLN",
	"XREP": "REP",
	"ZUSD": "USD",
	"ZEUR": "EUR",
	"ZGBP": "GBP",
	"ZJPY": "JPY",
	"ZCAD": "CAD",
	"ZAUD": "AUD",
}

func normalizeKrakenAsset(code string) string {
	code = strings.ToUpper(code)
	// Staking and yield-bearing variants carry a dotted suffix.
	if i := strings.IndexByte(code, '.'); i > 0 {
		code = code[:i]
	}
	if ticker, ok := krakenAssetCodes[code]; ok {
		return ticker
	}
	return code
}

func unixFloat(ts float64) time.Time {
	seconds := int64(ts)
	nanos := int64((ts - float64(seconds)) * 1e9)
	return time.Unix(seconds, nanos).UTC()
}

func marshalRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
