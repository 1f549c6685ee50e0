package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// GenesisAllocation seeds an account balance before the daemon starts serving.
type GenesisAllocation struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}

// Platform carries the optional overrides applied on top of the default
// platform configuration at genesis.
type Platform struct {
	FeeBps                    uint32 `toml:"FeeBps"`
	DisputePeriodBlocks       uint64 `toml:"DisputePeriodBlocks"`
	VerificationTimeoutBlocks uint64 `toml:"VerificationTimeoutBlocks"`
	MinBountyAmount           string `toml:"MinBountyAmount"`
}

type Config struct {
	RPCAddress           string              `toml:"RPCAddress"`
	MetricsAddress       string              `toml:"MetricsAddress"`
	DataDir              string              `toml:"DataDir"`
	Backend              string              `toml:"Backend"`
	RPCAuthTokenEnv      string              `toml:"RPCAuthTokenEnv"`
	Environment          string              `toml:"Environment"`
	OwnerAddress         string              `toml:"OwnerAddress"`
	TreasuryAddress      string              `toml:"TreasuryAddress"`
	BlockIntervalSeconds uint64              `toml:"BlockIntervalSeconds"`
	Genesis              []GenesisAllocation `toml:"Genesis"`
	Platform             Platform            `toml:"Platform"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9090"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./bounty-data"
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = "leveldb"
	}
	if cfg.BlockIntervalSeconds == 0 {
		cfg.BlockIntervalSeconds = 5
	}

	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:           ":8080",
		MetricsAddress:       ":9090",
		DataDir:              "./bounty-data",
		Backend:              "leveldb",
		RPCAuthTokenEnv:      "BOUNTYD_RPC_TOKEN",
		Environment:          "local",
		BlockIntervalSeconds: 5,
		Genesis:              []GenesisAllocation{},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "leveldb", "bolt":
	default:
		return fmt.Errorf("config: unsupported backend %q", c.Backend)
	}
	if _, err := c.Owner(); err != nil {
		return err
	}
	if _, err := c.Treasury(); err != nil {
		return err
	}
	for i, alloc := range c.Genesis {
		if _, err := parseAddress(alloc.Address); err != nil {
			return fmt.Errorf("config: genesis allocation %d: %w", i, err)
		}
		if _, err := parseAmount(alloc.Balance); err != nil {
			return fmt.Errorf("config: genesis allocation %d: %w", i, err)
		}
	}
	if amount := strings.TrimSpace(c.Platform.MinBountyAmount); amount != "" {
		if _, err := parseAmount(amount); err != nil {
			return fmt.Errorf("config: platform min bounty amount: %w", err)
		}
	}
	return nil
}

// Owner returns the parsed platform owner address.
func (c *Config) Owner() ([20]byte, error) {
	addr, err := parseAddress(c.OwnerAddress)
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: owner address: %w", err)
	}
	return addr, nil
}

// Treasury returns the parsed platform treasury address.
func (c *Config) Treasury() ([20]byte, error) {
	addr, err := parseAddress(c.TreasuryAddress)
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: treasury address: %w", err)
	}
	return addr, nil
}

// AuthToken resolves the RPC bearer token from the configured environment
// variable. An empty result disables authentication.
func (c *Config) AuthToken() string {
	name := strings.TrimSpace(c.RPCAuthTokenEnv)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

// MinBountyAmount returns the configured minimum, or nil when unset.
func (c *Config) MinBountyAmount() *big.Int {
	amount := strings.TrimSpace(c.Platform.MinBountyAmount)
	if amount == "" {
		return nil
	}
	value, err := parseAmount(amount)
	if err != nil {
		return nil
	}
	return value
}

func parseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return addr, fmt.Errorf("address is required")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: expected %d bytes", raw, len(addr))
	}
	copy(addr[:], decoded)
	return addr, nil
}

func parseAmount(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount %q must be positive", raw)
	}
	return value, nil
}
