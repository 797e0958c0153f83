// Package config loads the application configuration from YAML with
// environment-variable expansion, so secrets stay out of the file
// itself.
package config

import (
	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/screening"
	"github.com/ducnm/chainscreen/internal/vault"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Production bool                  `yaml:"production"`
	Server     ServerConfig          `yaml:"server"`
	Logging    LoggingConfig         `yaml:"logging"`
	Encryption vault.Config          `yaml:"encryption"`
	Chains     []ChainConfig         `yaml:"chains"`
	Exchanges  []ExchangeConfig      `yaml:"exchanges"`
	Redis      screening.RedisConfig `yaml:"redis"`
	RateLimits map[string]float64    `yaml:"rate_limits"`
}

// ServerConfig holds the metrics endpoint settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ChainConfig holds settings for one blockchain source. ExplorerURL
// overrides the registry default when set; APIKey falls back to the
// chain's registered environment variable when empty.
type ChainConfig struct {
	ID          domain.ChainID `yaml:"id"`
	ExplorerURL string         `yaml:"explorer_url"`
	APIKey      string         `yaml:"api_key"`
}

// ExchangeConfig holds one exchange account. Credentials are encrypted
// vault blobs, never plaintext keys.
type ExchangeConfig struct {
	Name          string `yaml:"name"` // kraken, coinbase
	APIKeyBlob    string `yaml:"api_key_blob"`
	APISecretBlob string `yaml:"api_secret_blob"`
}
