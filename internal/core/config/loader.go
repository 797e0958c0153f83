package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ducnm/chainscreen/internal/core/domain"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	// The vault reads the production flag from the top level.
	cfg.Encryption.Production = cfg.Production

	for i := range cfg.Chains {
		chain := &cfg.Chains[i]
		spec, err := domain.Spec(chain.ID)
		if err != nil {
			return nil, err
		}
		if chain.ExplorerURL == "" {
			chain.ExplorerURL = spec.ExplorerURL
		}
		if chain.APIKey == "" && spec.APIKeyEnv != "" {
			chain.APIKey = os.Getenv(spec.APIKeyEnv)
		}
	}

	for _, exchange := range cfg.Exchanges {
		switch exchange.Name {
		case "kraken", "coinbase":
		default:
			return nil, fmt.Errorf("unknown exchange %q", exchange.Name)
		}
	}

	return &cfg, nil
}
