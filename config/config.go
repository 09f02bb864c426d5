package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"assetfund/native/interest"
)

// Config carries the daemon's operational settings and the parameter tables
// seeded into an empty ledger on first start.
type Config struct {
	ListenAddress   string `toml:"ListenAddress"`
	DataDir         string `toml:"DataDir"`
	Environment     string `toml:"Environment"`
	CollateralToken string `toml:"CollateralToken"`

	AdminAddress     string `toml:"AdminAddress"`
	ManagerAddress   string `toml:"ManagerAddress"`
	ModuleVault      string `toml:"ModuleVault"`
	CollateralVault  string `toml:"CollateralVault"`
	OperatorTreasury string `toml:"OperatorTreasury"`
	RateLimitPerSec  int    `toml:"RateLimitPerSec"`
	RateLimitBurst   int    `toml:"RateLimitBurst"`

	// PausedModules lists module names administratively halted at startup.
	PausedModules []string `toml:"PausedModules"`

	TokenSets  []TokenSetSeed  `toml:"TokenSet"`
	RateCurves []RateCurveSeed `toml:"RateCurve"`
	AssetTypes []AssetTypeSeed `toml:"AssetType"`
}

// TokenSetSeed whitelists payment token symbols at first start.
type TokenSetSeed struct {
	Tokens []string `toml:"Tokens"`
}

// RateCurveSeed registers a ray-scaled per-second accrual factor at first
// start. The factor is given as a decimal string to avoid TOML integer
// overflow.
type RateCurveSeed struct {
	RatePerSecond string `toml:"RatePerSecond"`
}

// AssetTypeSeed publishes a financing template at first start. Monetary
// fields are decimal strings in the smallest token unit.
type AssetTypeSeed struct {
	TenureMonths         uint32 `toml:"TenureMonths"`
	InvestQuotaTotal     uint64 `toml:"InvestQuotaTotal"`
	ValuePerQuota        string `toml:"ValuePerQuota"`
	MonthlyRepayment     string `toml:"MonthlyRepayment"`
	YieldPerQuotaMonthly string `toml:"YieldPerQuotaMonthly"`
	RequiredDeposit      string `toml:"RequiredDeposit"`
	PaymentTokenSetID    uint64 `toml:"PaymentTokenSetID"`
	MaxOverdueDays       uint32 `toml:"MaxOverdueDays"`
	MinExitNoticeDays    uint32 `toml:"MinExitNoticeDays"`
	InterestRateID       uint64 `toml:"InterestRateID"`
	ReserveTopQuota      uint64 `toml:"ReserveTopQuota"`
	SlashTopCount        uint32 `toml:"SlashTopCount"`
	OperatorShareBps     uint32 `toml:"OperatorShareBps"`
	PlatformShareBps     uint32 `toml:"PlatformShareBps"`
	InvestorShareBps     uint32 `toml:"InvestorShareBps"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress:    "127.0.0.1:8645",
		DataDir:          "./assetfund-data",
		Environment:      "dev",
		CollateralToken:  "USDQ",
		AdminAddress:     "0x0000000000000000000000000000000000000001",
		ManagerAddress:   "0x0000000000000000000000000000000000000002",
		ModuleVault:      "0x00000000000000000000000000000000000000F1",
		CollateralVault:  "0x00000000000000000000000000000000000000F2",
		OperatorTreasury: "0x00000000000000000000000000000000000000F3",
		RateLimitPerSec:  50,
		RateLimitBurst:   100,
	}
}

// Validate checks addresses, the collateral token and the seed tables.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress is required")
	}
	if strings.TrimSpace(c.CollateralToken) == "" {
		return fmt.Errorf("config: CollateralToken is required")
	}
	for name, addr := range map[string]string{
		"AdminAddress":     c.AdminAddress,
		"ManagerAddress":   c.ManagerAddress,
		"ModuleVault":      c.ModuleVault,
		"CollateralVault":  c.CollateralVault,
		"OperatorTreasury": c.OperatorTreasury,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: %s is not a valid address: %q", name, addr)
		}
	}
	for i, curve := range c.RateCurves {
		rate, ok := new(big.Int).SetString(strings.TrimSpace(curve.RatePerSecond), 10)
		if !ok {
			return fmt.Errorf("config: RateCurve[%d] rate is not a decimal integer", i)
		}
		if rate.Cmp(interest.Ray) <= 0 {
			return fmt.Errorf("config: RateCurve[%d] rate must exceed one ray", i)
		}
	}
	for i, seed := range c.AssetTypes {
		for name, field := range map[string]string{
			"ValuePerQuota":        seed.ValuePerQuota,
			"MonthlyRepayment":     seed.MonthlyRepayment,
			"YieldPerQuotaMonthly": seed.YieldPerQuotaMonthly,
			"RequiredDeposit":      seed.RequiredDeposit,
		} {
			if _, ok := new(big.Int).SetString(strings.TrimSpace(field), 10); !ok {
				return fmt.Errorf("config: AssetType[%d] %s is not a decimal integer", i, name)
			}
		}
		if seed.OperatorShareBps+seed.PlatformShareBps+seed.InvestorShareBps != 10_000 {
			return fmt.Errorf("config: AssetType[%d] share split must sum to 10000 bps", i)
		}
	}
	return nil
}

// Address parses one of the validated address fields.
func Address(field string) common.Address {
	return common.HexToAddress(field)
}

// MustBigInt parses a validated decimal field.
func MustBigInt(field string) *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimSpace(field), 10)
	if !ok {
		panic(fmt.Sprintf("config: invalid decimal %q", field))
	}
	return v
}
