package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.NotEmpty(t, cfg.ListenAddress)
	require.Equal(t, "USDQ", cfg.CollateralToken)
	require.NoError(t, cfg.Validate())

	// A second load reads the file back instead of recreating it.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ListenAddress, reloaded.ListenAddress)
}

func TestLoadParsesSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := `
ListenAddress = "127.0.0.1:9000"
DataDir = "./data"
Environment = "test"
CollateralToken = "USDQ"
AdminAddress = "0x0000000000000000000000000000000000000001"
ManagerAddress = "0x0000000000000000000000000000000000000002"
ModuleVault = "0x00000000000000000000000000000000000000F1"
CollateralVault = "0x00000000000000000000000000000000000000F2"
OperatorTreasury = "0x00000000000000000000000000000000000000F3"
RateLimitPerSec = 25
RateLimitBurst = 50
PausedModules = ["funding"]

[[TokenSet]]
Tokens = ["USDQ", "USDT"]

[[RateCurve]]
RatePerSecond = "1000000000000000001000000000"

[[AssetType]]
TenureMonths = 12
InvestQuotaTotal = 800
ValuePerQuota = "1000000"
MonthlyRepayment = "150000000"
YieldPerQuotaMonthly = "80000"
RequiredDeposit = "1500000"
PaymentTokenSetID = 1
MaxOverdueDays = 30
MinExitNoticeDays = 15
InterestRateID = 1
ReserveTopQuota = 20
SlashTopCount = 5
OperatorShareBps = 7000
PlatformShareBps = 1000
InvestorShareBps = 2000
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.TokenSets, 1)
	require.Len(t, cfg.RateCurves, 1)
	require.Len(t, cfg.AssetTypes, 1)
	require.Equal(t, uint32(12), cfg.AssetTypes[0].TenureMonths)
	require.Equal(t, "150000000", cfg.AssetTypes[0].MonthlyRepayment)
	require.Equal(t, 25, cfg.RateLimitPerSec)
	require.Equal(t, []string{"funding"}, cfg.PausedModules)
}

func TestValidateRejectsBadAddress(t *testing.T) {
	cfg := defaultConfig()
	cfg.ManagerAddress = "not-an-address"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsFlatRateCurve(t *testing.T) {
	cfg := defaultConfig()
	cfg.RateCurves = []RateCurveSeed{{RatePerSecond: "1000000000000000000000000000"}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadShareSplit(t *testing.T) {
	cfg := defaultConfig()
	cfg.AssetTypes = []AssetTypeSeed{{
		ValuePerQuota:        "1000000",
		MonthlyRepayment:     "150000000",
		YieldPerQuotaMonthly: "80000",
		RequiredDeposit:      "1500000",
		OperatorShareBps:     5000,
		PlatformShareBps:     1000,
		InvestorShareBps:     1000,
	}}
	require.Error(t, cfg.Validate())
}

func TestMustBigInt(t *testing.T) {
	require.Equal(t, int64(150000000), MustBigInt("150000000").Int64())
	require.Panics(t, func() { MustBigInt("abc") })
}
