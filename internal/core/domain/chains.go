package domain

import "fmt"

// ChainID identifies a supported blockchain.
type ChainID string

const (
	ChainEthereum  ChainID = "ethereum"
	ChainPolygon   ChainID = "polygon"
	ChainArbitrum  ChainID = "arbitrum"
	ChainOptimism  ChainID = "optimism"
	ChainBSC       ChainID = "bsc"
	ChainAvalanche ChainID = "avalanche"
	ChainBitcoin   ChainID = "bitcoin"
)

// ChainSpec describes a supported chain: its native asset and how to reach
// its block explorer API.
type ChainSpec struct {
	ID          ChainID
	Name        string
	NativeAsset string
	// ExplorerURL is the default REST base URL for the chain's explorer.
	ExplorerURL string
	// APIKeyEnv names the environment variable carrying the explorer API key.
	APIKeyEnv string
	// EVM indicates the chain speaks the Etherscan-style account API.
	EVM bool
}

var chainRegistry = map[ChainID]ChainSpec{
	ChainEthereum: {
		ID:          ChainEthereum,
		Name:        "Ethereum",
		NativeAsset: "ETH",
		ExplorerURL: "https://api.etherscan.io/api",
		APIKeyEnv:   "ETHERSCAN_API_KEY",
		EVM:         true,
	},
	ChainPolygon: {
		ID:          ChainPolygon,
		Name:        "Polygon",
		NativeAsset: "POL",
		ExplorerURL: "https://api.polygonscan.com/api",
		APIKeyEnv:   "POLYGONSCAN_API_KEY",
		EVM:         true,
	},
	ChainArbitrum: {
		ID:          ChainArbitrum,
		Name:        "Arbitrum",
		NativeAsset: "ETH",
		ExplorerURL: "https://api.arbiscan.io/api",
		APIKeyEnv:   "ARBISCAN_API_KEY",
		EVM:         true,
	},
	ChainOptimism: {
		ID:          ChainOptimism,
		Name:        "Optimism",
		NativeAsset: "ETH",
		ExplorerURL: "https://api-optimistic.etherscan.io/api",
		APIKeyEnv:   "OPTIMISTIC_ETHERSCAN_API_KEY",
		EVM:         true,
	},
	ChainBSC: {
		ID:          ChainBSC,
		Name:        "BNB Smart Chain",
		NativeAsset: "BNB",
		ExplorerURL: "https://api.bscscan.com/api",
		APIKeyEnv:   "BSCSCAN_API_KEY",
		EVM:         true,
	},
	ChainAvalanche: {
		ID:          ChainAvalanche,
		Name:        "Avalanche C-Chain",
		NativeAsset: "AVAX",
		ExplorerURL: "https://api.snowtrace.io/api",
		APIKeyEnv:   "SNOWTRACE_API_KEY",
		EVM:         true,
	},
	ChainBitcoin: {
		ID:          ChainBitcoin,
		Name:        "Bitcoin",
		NativeAsset: "BTC",
		ExplorerURL: "https://blockchain.info",
		EVM:         false,
	},
}

// UnsupportedChainError is returned before any network call when a chain
// has no registry entry.
type UnsupportedChainError struct {
	Chain ChainID
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("unsupported chain: %s", e.Chain)
}

// Spec looks up the registry entry for a chain.
func Spec(chain ChainID) (ChainSpec, error) {
	spec, ok := chainRegistry[chain]
	if !ok {
		return ChainSpec{}, &UnsupportedChainError{Chain: chain}
	}
	return spec, nil
}

// EVMChains returns all registered EVM chains.
func EVMChains() []ChainSpec {
	specs := make([]ChainSpec, 0, len(chainRegistry))
	for _, spec := range chainRegistry {
		if spec.EVM {
			specs = append(specs, spec)
		}
	}
	return specs
}
