package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"sparkagent-launchpad/pkg/log"
	"sparkagent-launchpad/pkg/types"
)

const (
	ConfigName = ".launchpad"
	EnvPrefix  = "LAUNCHPAD"
)

// Config holds the application configuration
type Config struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string

	Contracts types.Contracts

	BackendURL string
	APIKey     string
	FiatURL    string
	FiatSymbol string
	Currency   string

	// Distributions maps a distribution ID to its dataset file or URL
	Distributions map[string]string

	HistoryPath string
	Log         log.Config
}

// Load reads configuration from the config file and LAUNCHPAD_ environment
// variables. An explicit path replaces the default search locations.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	// Set default values
	v.SetDefault("chain_id", 1)
	v.SetDefault("backend_url", "http://localhost:3000/api")
	v.SetDefault("fiat_symbol", "ETH")
	v.SetDefault("currency", "USD")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.output", "stderr")

	// Read from environment variables, nested keys use underscores
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		RPCURL:     v.GetString("rpc_url"),
		ChainID:    v.GetInt64("chain_id"),
		PrivateKey: v.GetString("private_key"),
		Contracts: types.Contracts{
			AssetToken:    address(v, "contracts.asset_token"),
			BondingCurve:  address(v, "contracts.bonding_curve"),
			Factory:       address(v, "contracts.factory"),
			Router:        address(v, "contracts.router"),
			DexRouter:     address(v, "contracts.dex_router"),
			Forum:         address(v, "contracts.forum"),
			ClaimRegistry: address(v, "contracts.claim_registry"),
		},
		BackendURL: v.GetString("backend_url"),
		APIKey:     v.GetString("api_key"),
		FiatURL:    v.GetString("fiat_url"),
		FiatSymbol: v.GetString("fiat_symbol"),
		Currency:   v.GetString("currency"),
		Distributions: map[string]string{
			"OWN":   v.GetString("distributions.own"),
			"SFUEL": v.GetString("distributions.sfuel"),
			"NFT":   v.GetString("distributions.nft"),
		},
		HistoryPath: v.GetString("history_path"),
		Log: log.Config{
			Level:  v.GetString("log.level"),
			Debug:  v.GetBool("log.debug"),
			Output: v.GetString("log.output"),
		},
	}
	return cfg, nil
}

func address(v *viper.Viper, key string) common.Address {
	return common.HexToAddress(v.GetString(key))
}

// Validate reports everything missing for reading launchpad contracts
func (c *Config) Validate() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("RPC URL not found. Please set %s_RPC_URL or rpc_url in %s.yaml", EnvPrefix, ConfigName))
	}
	if c.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("chain id must be positive, got %d", c.ChainID))
	}

	required := []struct {
		name string
		addr common.Address
	}{
		{"asset_token", c.Contracts.AssetToken},
		{"bonding_curve", c.Contracts.BondingCurve},
		{"factory", c.Contracts.Factory},
		{"router", c.Contracts.Router},
		{"dex_router", c.Contracts.DexRouter},
	}
	for _, r := range required {
		if r.addr == (common.Address{}) {
			errs = append(errs, fmt.Errorf("contract address contracts.%s not configured", r.name))
		}
	}
	return errors.Join(errs...)
}

// RequireSigner reports whether a wallet key is configured
func (c *Config) RequireSigner() error {
	if strings.TrimSpace(c.PrivateKey) == "" {
		return fmt.Errorf("private key not found. Please set %s_PRIVATE_KEY", EnvPrefix)
	}
	return nil
}

// RequireForum reports whether forum posting is configured
func (c *Config) RequireForum() error {
	if c.Contracts.Forum == (common.Address{}) {
		return errors.New("contract address contracts.forum not configured")
	}
	return nil
}

// RequireClaimRegistry reports whether airdrop claims are configured
func (c *Config) RequireClaimRegistry() error {
	if c.Contracts.ClaimRegistry == (common.Address{}) {
		return errors.New("contract address contracts.claim_registry not configured")
	}
	return nil
}
