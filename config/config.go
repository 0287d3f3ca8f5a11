// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"

	"nftify-back-onchain/model"
)

// DefaultTokenURI is the metadata every dev collection token points to.
const DefaultTokenURI = "ipfs://bafybeig37ioir76s7mg5oobetncojcm3c3hxasyd4rvid4jqhy4gkaheg4"

// Config is the full service configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Remote mode. When NodeURL is empty the service runs its own chain.
	NodeURL         string `env:"NODE_URL"`
	NodeWSURL       string `env:"NODE_WS_URL"`
	MarketplaceAddr string `env:"MARKETPLACE_CONTRACT_ADDRESS"`

	BackendBaseURL     string   `env:"BACKEND_BASE_URL"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Local mode.
	DeployerAddr      string   `env:"DEPLOYER_ADDRESS" envDefault:"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"`
	DevAccounts       []string `env:"DEV_ACCOUNTS" envSeparator:","`
	DevAccountBalance string   `env:"DEV_ACCOUNT_BALANCE_ETH" envDefault:"10000"`
	DevTokenURI       string   `env:"DEV_TOKEN_URI" envDefault:"ipfs://bafybeig37ioir76s7mg5oobetncojcm3c3hxasyd4rvid4jqhy4gkaheg4"`
}

// Load reads an optional .env file then parses the environment into a Config.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Debug("No .env file loaded", "err", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Remote reports whether the service talks to an external node.
func (c *Config) Remote() bool { return c.NodeURL != "" }

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.Remote() {
		if c.MarketplaceAddr == "" {
			return errors.New("MARKETPLACE_CONTRACT_ADDRESS is required with NODE_URL")
		}
		if !common.IsHexAddress(c.MarketplaceAddr) {
			return fmt.Errorf("MARKETPLACE_CONTRACT_ADDRESS %q is not an address", c.MarketplaceAddr)
		}
		return nil
	}
	if !common.IsHexAddress(c.DeployerAddr) {
		return fmt.Errorf("DEPLOYER_ADDRESS %q is not an address", c.DeployerAddr)
	}
	for _, a := range c.DevAccounts {
		if !common.IsHexAddress(strings.TrimSpace(a)) {
			return fmt.Errorf("DEV_ACCOUNTS entry %q is not an address", a)
		}
	}
	if _, err := c.DevBalance(); err != nil {
		return fmt.Errorf("DEV_ACCOUNT_BALANCE_ETH: %w", err)
	}
	return nil
}

// DevBalance is the genesis allocation of every dev account, in wei.
func (c *Config) DevBalance() (*big.Int, error) {
	return model.ParseEther(c.DevAccountBalance)
}

// Accounts returns the deployer followed by the extra dev accounts.
func (c *Config) Accounts() []common.Address {
	out := []common.Address{common.HexToAddress(c.DeployerAddr)}
	for _, a := range c.DevAccounts {
		addr := common.HexToAddress(strings.TrimSpace(a))
		if addr != out[0] {
			out = append(out, addr)
		}
	}
	return out
}

// WSURL is the endpoint used for log subscriptions, falling back to NodeURL.
func (c *Config) WSURL() string {
	if c.NodeWSURL != "" {
		return c.NodeWSURL
	}
	return c.NodeURL
}

// Level maps LOG_LEVEL to a level understood by the geth logger.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info", "":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	}
	return log.LevelInfo, fmt.Errorf("unknown level %q", c.LogLevel)
}
