package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bountychain/config"
	"bountychain/core/state"
	"bountychain/core/types"
	"bountychain/native/bounty"
	"bountychain/native/params"
	"bountychain/observability"
	"bountychain/observability/logging"
	"bountychain/rpc"
	"bountychain/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the daemon configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("bountyd exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Setup("bountyd", cfg.Environment)

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	manager := state.NewManager(db)

	var height atomic.Uint64
	if stored, err := manager.ChainHeight(); err == nil {
		height.Store(stored)
	} else {
		return fmt.Errorf("read chain height: %w", err)
	}

	engine := bounty.NewEngine()
	engine.SetState(manager)
	engine.SetHeightFunc(height.Load)

	if err := seedGenesis(cfg, manager, engine); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	observability.Bounty().SetChainHeight(height.Load())

	rpcSrv := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           rpc.NewServer(engine, cfg.AuthToken()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("rpc listening", "address", cfg.RPCAddress)
		if err := rpcSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("rpc server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics listening", "address", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	ticker := time.NewTicker(time.Duration(cfg.BlockIntervalSeconds) * time.Second)
	defer ticker.Stop()

	var runErr error
loop:
	for {
		select {
		case <-ticker.C:
			next := height.Add(1)
			if err := manager.SetChainHeight(next); err != nil {
				runErr = fmt.Errorf("persist chain height: %w", err)
				break loop
			}
			observability.Bounty().SetChainHeight(next)
		case err := <-errCh:
			runErr = err
			break loop
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			break loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rpcSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("rpc shutdown: %w", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("metrics shutdown: %w", err)
	}
	return runErr
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "bolt":
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "ledger.bolt"))
	default:
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	}
}

// seedGenesis installs the platform configuration and funds the configured
// accounts. Both steps are idempotent so restarting the daemon is safe.
func seedGenesis(cfg *config.Config, manager *state.Manager, engine *bounty.Engine) error {
	owner, err := cfg.Owner()
	if err != nil {
		return err
	}
	treasury, err := cfg.Treasury()
	if err != nil {
		return err
	}

	platform := params.DefaultPlatform(owner, treasury)
	if cfg.Platform.FeeBps > 0 {
		platform.FeeBps = cfg.Platform.FeeBps
	}
	if cfg.Platform.DisputePeriodBlocks > 0 {
		platform.DisputePeriodBlocks = cfg.Platform.DisputePeriodBlocks
	}
	if cfg.Platform.VerificationTimeoutBlocks > 0 {
		platform.VerificationTimeout = cfg.Platform.VerificationTimeoutBlocks
	}
	if minAmount := cfg.MinBountyAmount(); minAmount != nil {
		platform.MinBountyAmount = minAmount
	}
	if err := engine.Initialize(platform); err != nil {
		return err
	}

	for _, alloc := range cfg.Genesis {
		addr, err := parseGenesisAddress(alloc.Address)
		if err != nil {
			return err
		}
		balance, ok := new(big.Int).SetString(alloc.Balance, 10)
		if !ok {
			return fmt.Errorf("invalid balance %q for %s", alloc.Balance, alloc.Address)
		}
		account, err := manager.GetAccount(addr[:])
		if err != nil {
			return err
		}
		if account != nil && account.Balance.Sign() > 0 {
			continue
		}
		if err := manager.PutAccount(addr[:], &types.Account{Balance: balance}); err != nil {
			return err
		}
	}
	return nil
}

func parseGenesisAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: expected %d bytes", raw, len(addr))
	}
	copy(addr[:], decoded)
	return addr, nil
}
