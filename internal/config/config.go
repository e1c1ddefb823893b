// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/memelaunch/launchpad/internal/admin"
	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/curve"
	"github.com/memelaunch/launchpad/internal/governance"
	"github.com/spf13/viper"
)

const EnvPrefix = "LAUNCHPAD"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

const (
	DefaultListenAddr        = ":8080"
	DefaultReadTimeout       = 10_000
	DefaultWriteTimeout      = 30_000
	DefaultRPCURL            = "https://testnet.rpc.intuition.systems"
	DefaultChainID           = 13579
	DefaultContractAddress   = "0x10cC63b5190d519232570c3996E1080859abd8f7"
	DefaultCallAttempts      = 3
	DefaultReceiptAttempts   = 10
	DefaultReceiptDelay      = 2_000
	DefaultDialTimeout       = 15_000
	DefaultLeaderboardPeriod = 3_600_000
	DefaultRedisPrefix       = "launchpad:leaderboard:"
)

type ServerConfig struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	PostgresURL string `mapstructure:"postgres_url"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ChainConfig struct {
	RPCURL          string `mapstructure:"rpc_url"`
	ChainID         int64  `mapstructure:"chain_id"`
	ContractAddress string `mapstructure:"contract_address"`
	CallAttempts    uint   `mapstructure:"call_attempts"`
	ReceiptAttempts uint   `mapstructure:"receipt_attempts"`
	ReceiptDelay    int    `mapstructure:"receipt_delay"`
	DialTimeout     int    `mapstructure:"dial_timeout"`
}

// Config is the launchpad process configuration. Durations are milliseconds.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Chain       ChainConfig       `mapstructure:"chain"`
	Curve       curve.Config      `mapstructure:"curve"`
	Governance  governance.Policy `mapstructure:"governance"`
	Admins      string            `mapstructure:"admin_addresses"`
	Leaderboard int               `mapstructure:"leaderboard_refresh"`
	Debug       bool              `mapstructure:"debug_logging"`
}

func defaults() map[string]interface{} {
	cc := curve.DefaultConfig()
	pol := governance.DefaultPolicy()
	return map[string]interface{}{
		"server.listen_addr":             DefaultListenAddr,
		"server.read_timeout":            DefaultReadTimeout,
		"server.write_timeout":           DefaultWriteTimeout,
		"storage.driver":                 StorageMemory,
		"storage.postgres_url":           "",
		"redis.addr":                     "",
		"redis.password":                 "",
		"redis.db":                       0,
		"redis.prefix":                   DefaultRedisPrefix,
		"chain.rpc_url":                  DefaultRPCURL,
		"chain.chain_id":                 DefaultChainID,
		"chain.contract_address":         DefaultContractAddress,
		"chain.call_attempts":            DefaultCallAttempts,
		"chain.receipt_attempts":         DefaultReceiptAttempts,
		"chain.receipt_delay":            DefaultReceiptDelay,
		"chain.dial_timeout":             DefaultDialTimeout,
		"curve.initial_price":            cc.InitialPrice,
		"curve.max_supply":               cc.MaxSupply,
		"curve.curve_fraction":           cc.CurveFraction,
		"governance.min_voters":          pol.MinVoters,
		"governance.min_winning_percent": pol.MinWinningPercent,
		"admin_addresses":                "",
		"leaderboard_refresh":            DefaultLeaderboardPeriod,
		"debug_logging":                  false,
	}
}

// Load reads path (JSON or YAML, optional) and applies LAUNCHPAD_* overrides,
// e.g. LAUNCHPAD_CHAIN_RPC_URL for chain.rpc_url.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, cfg.validate()
}

// Default returns the configuration used when no file or environment is given.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is empty")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return errors.New("invalid server timeouts")
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			return errors.New("storage.postgres_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Chain.RPCURL != "" {
		if err := validateURL(c.Chain.RPCURL, "http"); err != nil {
			return fmt.Errorf("chain.rpc_url: %w", err)
		}
		if !chain.IsAddress(c.Chain.ContractAddress) {
			return fmt.Errorf("chain.contract_address %q is not an address", c.Chain.ContractAddress)
		}
	}
	if c.Chain.ChainID < 0 {
		return errors.New("invalid chain.chain_id")
	}
	if c.Chain.CallAttempts == 0 || c.Chain.ReceiptAttempts == 0 {
		return errors.New("chain attempts must be positive")
	}
	if c.Chain.ReceiptDelay <= 0 || c.Chain.DialTimeout <= 0 {
		return errors.New("invalid chain delays")
	}

	if err := c.Curve.Validate(); err != nil {
		return err
	}
	if c.Governance.MinWinningPercent < 0 || c.Governance.MinWinningPercent > 100 {
		return errors.New("governance.min_winning_percent must be within [0, 100]")
	}

	for _, a := range admin.Parse(c.Admins).Addresses() {
		if !chain.IsAddress(a) {
			return fmt.Errorf("admin address %q is not an address", a)
		}
	}

	if c.Leaderboard < 0 {
		return errors.New("invalid leaderboard_refresh")
	}
	return nil
}

func validateURL(rawURL, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (s ServerConfig) ReadTimeoutDuration() time.Duration  { return ms(s.ReadTimeout) }
func (s ServerConfig) WriteTimeoutDuration() time.Duration { return ms(s.WriteTimeout) }

func (c ChainConfig) ReceiptDelayDuration() time.Duration { return ms(c.ReceiptDelay) }
func (c ChainConfig) DialTimeoutDuration() time.Duration  { return ms(c.DialTimeout) }

// ClientOptions maps the chain section onto the contract client.
func (c ChainConfig) ClientOptions() chain.Options {
	return chain.Options{
		ContractAddress: c.ContractAddress,
		CallAttempts:    c.CallAttempts,
		ReceiptAttempts: c.ReceiptAttempts,
		ReceiptDelay:    c.ReceiptDelayDuration(),
	}
}

// LeaderboardInterval is the background refresh period; zero disables it.
func (c *Config) LeaderboardInterval() time.Duration { return ms(c.Leaderboard) }

// AdminSet parses the admin wallet list.
func (c *Config) AdminSet() *admin.Set { return admin.Parse(c.Admins) }
