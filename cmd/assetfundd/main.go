package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"assetfund/config"
	nativecommon "assetfund/native/common"
	"assetfund/native/funding"
	"assetfund/observability/logging"
	"assetfund/rpc"
	"assetfund/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./config.toml", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("load config", err)
	}
	log := logging.Setup("assetfundd", cfg.Environment)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fatal("create data dir", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		fatal("open database", err)
	}
	defer db.Close()
	state := storage.NewState(db)

	engine := funding.NewEngine(
		config.Address(cfg.ModuleVault),
		config.Address(cfg.CollateralVault),
		config.Address(cfg.OperatorTreasury),
		cfg.CollateralToken,
	)
	engine.SetState(state)
	engine.SetRoles(config.Address(cfg.AdminAddress), config.Address(cfg.ManagerAddress))
	engine.SetPauses(nativecommon.NewPauseSet(cfg.PausedModules))

	if err := seedParameters(cfg, state, engine); err != nil {
		fatal("seed parameters", err)
	}

	server := rpc.New(engine, log, cfg.RateLimitPerSec, cfg.RateLimitBurst)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "address", cfg.ListenAddress)
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Error("shutdown", "error", err.Error())
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("serve", err)
		}
	}
}

func fatal(stage string, err error) {
	os.Stderr.WriteString(stage + ": " + err.Error() + "\n")
	os.Exit(1)
}

// seedParameters loads the configured token sets, rate curves and asset type
// templates into an empty ledger. Seeding runs once: a ledger that already
// holds token set 1 is left untouched.
func seedParameters(cfg *config.Config, state *storage.State, engine *funding.Engine) error {
	if _, ok := state.TokenSetGet(1); ok {
		return nil
	}
	admin := config.Address(cfg.AdminAddress)
	for _, seed := range cfg.TokenSets {
		if _, err := engine.AddTokenSet(admin, seed.Tokens); err != nil {
			return err
		}
	}
	for _, seed := range cfg.RateCurves {
		if _, err := engine.AddRateCurve(admin, config.MustBigInt(seed.RatePerSecond)); err != nil {
			return err
		}
	}
	for _, seed := range cfg.AssetTypes {
		params := funding.AssetType{
			TenureMonths:         seed.TenureMonths,
			InvestQuotaTotal:     seed.InvestQuotaTotal,
			ValuePerQuota:        config.MustBigInt(seed.ValuePerQuota),
			MonthlyRepayment:     config.MustBigInt(seed.MonthlyRepayment),
			YieldPerQuotaMonthly: config.MustBigInt(seed.YieldPerQuotaMonthly),
			RequiredDeposit:      config.MustBigInt(seed.RequiredDeposit),
			PaymentTokenSetID:    seed.PaymentTokenSetID,
			MaxOverdueDays:       seed.MaxOverdueDays,
			MinExitNoticeDays:    seed.MinExitNoticeDays,
			InterestRateID:       seed.InterestRateID,
			ReserveTopQuota:      seed.ReserveTopQuota,
			SlashTopCount:        seed.SlashTopCount,
			OperatorShareBps:     seed.OperatorShareBps,
			PlatformShareBps:     seed.PlatformShareBps,
			InvestorShareBps:     seed.InvestorShareBps,
		}
		if _, err := engine.AddAssetType(admin, params); err != nil {
			return err
		}
	}
	return nil
}
