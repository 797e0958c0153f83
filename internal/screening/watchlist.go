// Package screening matches addresses and assets against sanctions,
// mixer, and privacy-asset watchlists and scores the findings. Lookups
// are pure and side-effect free; the watchlist itself is injectable so
// an external process can refresh the data without touching the scoring
// logic.
package screening

import (
	"strings"

	"github.com/ducnm/chainscreen/internal/core/domain"
)

// Watchlist answers membership questions for the screening engine.
type Watchlist interface {
	// IsSanctioned reports an exact, case-insensitive match against the
	// sanctioned-address set.
	IsSanctioned(address string) bool
	// IsMixer matches an address against the per-chain mixer contract
	// set (pools and routers).
	IsMixer(address string, chain domain.ChainID) bool
	// IsKnownMixer matches against the extensible cross-chain mixer set.
	IsKnownMixer(address string) bool
	// IsPrivacyAsset matches an asset symbol, or a known wrapped
	// variant, against the privacy-coin set.
	IsPrivacyAsset(symbol string) bool
}

// Static is an in-memory watchlist backed by fixed sets. It is the
// default implementation; entries are normalized at construction so
// lookups are exact map hits.
type Static struct {
	sanctioned  map[string]struct{}
	chainMixers map[domain.ChainID]map[string]struct{}
	otherMixers map[string]struct{}
	privacy     map[string]struct{}
}

// Sets carries raw watchlist data for building a Static list.
type Sets struct {
	Sanctioned  []string
	ChainMixers map[domain.ChainID][]string
	OtherMixers []string
	// Privacy maps a symbol to itself; wrapped variants map to the
	// underlying coin.
	Privacy []string
}

// NewStatic builds a watchlist from the compiled-in default data.
func NewStatic() *Static {
	return NewStaticFrom(defaultSets())
}

// NewStaticFrom builds a watchlist from caller-supplied sets.
func NewStaticFrom(sets Sets) *Static {
	s := &Static{
		sanctioned:  make(map[string]struct{}, len(sets.Sanctioned)),
		chainMixers: make(map[domain.ChainID]map[string]struct{}, len(sets.ChainMixers)),
		otherMixers: make(map[string]struct{}, len(sets.OtherMixers)),
		privacy:     make(map[string]struct{}, len(sets.Privacy)),
	}

	for _, addr := range sets.Sanctioned {
		s.sanctioned[strings.ToLower(addr)] = struct{}{}
	}
	for chain, addrs := range sets.ChainMixers {
		m := make(map[string]struct{}, len(addrs))
		for _, addr := range addrs {
			m[strings.ToLower(addr)] = struct{}{}
		}
		s.chainMixers[chain] = m
	}
	for _, addr := range sets.OtherMixers {
		s.otherMixers[strings.ToLower(addr)] = struct{}{}
	}
	for _, symbol := range sets.Privacy {
		s.privacy[strings.ToUpper(symbol)] = struct{}{}
	}

	return s
}

func (s *Static) IsSanctioned(address string) bool {
	_, ok := s.sanctioned[strings.ToLower(address)]
	return ok
}

func (s *Static) IsMixer(address string, chain domain.ChainID) bool {
	m, ok := s.chainMixers[chain]
	if !ok {
		return false
	}
	_, ok = m[strings.ToLower(address)]
	return ok
}

func (s *Static) IsKnownMixer(address string) bool {
	_, ok := s.otherMixers[strings.ToLower(address)]
	return ok
}

func (s *Static) IsPrivacyAsset(symbol string) bool {
	normalized := strings.ToUpper(symbol)
	if base, ok := wrappedPrivacyAssets[normalized]; ok {
		normalized = base
	}
	_, ok := s.privacy[normalized]
	return ok
}
