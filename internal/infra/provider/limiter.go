package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default sustained request rates per provider family, in requests per
// second. Kraken and Coinbase values match the providers' documented
// minimum call spacing (200ms and 100ms respectively).
const (
	DefaultExplorerRate = 5.0
	KrakenRate          = 5.0
	CoinbaseRate        = 10.0
)

// Limiter hands out token-bucket limiters keyed by provider name, so
// concurrent callers hitting the same provider share one budget instead
// of each sleeping independently.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rates   map[string]float64
}

// NewLimiter creates a registry with per-provider rates. Providers not
// present in rates fall back to DefaultExplorerRate.
func NewLimiter(rates map[string]float64) *Limiter {
	if rates == nil {
		rates = make(map[string]float64)
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rates:   rates,
	}
}

// Wait blocks until the provider's bucket grants a token or the context
// is cancelled.
func (l *Limiter) Wait(ctx context.Context, providerName string) error {
	return l.bucket(providerName).Wait(ctx)
}

func (l *Limiter) bucket(providerName string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[providerName]; ok {
		return b
	}

	rps, ok := l.rates[providerName]
	if !ok || rps <= 0 {
		rps = DefaultExplorerRate
	}
	b := rate.NewLimiter(rate.Limit(rps), 1)
	l.buckets[providerName] = b
	return b
}
