package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"settlechain/config"
	"settlechain/gateway/middleware"
	"settlechain/gateway/routes"
	"settlechain/native/agreement"
	"settlechain/native/condition"
	"settlechain/native/did"
	"settlechain/native/settlement"
	"settlechain/native/template"
	"settlechain/native/token"
	"settlechain/observability"
	"settlechain/observability/logging"
	"settlechain/storage"
)

const shutdownGrace = 10 * time.Second

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	var fileCfg *logging.FileConfig
	if cfg.Log.File != "" {
		fileCfg = &logging.FileConfig{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		}
	}
	logger := logging.Setup("settled", cfg.Environment, fileCfg)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	owner, err := cfg.OwnerAddress()
	if err != nil {
		logger.Error("Failed to parse template owner", slog.Any("error", err))
		os.Exit(1)
	}

	recorder := observability.NewEventRecorder(logger)

	conditions := condition.NewStore(db)
	conditions.SetEmitter(recorder)
	conditions.Delegate(agreement.ModuleName)

	templates := template.NewRegistry(db, owner)
	templates.SetEmitter(recorder)

	dids := did.NewRegistry(db)

	ledger := token.NewLedger(db, cfg.Tokens...)
	if err := seedGenesis(db, ledger, cfg.Genesis); err != nil {
		logger.Error("Failed to seed genesis balances", slog.Any("error", err))
		os.Exit(1)
	}

	engine := settlement.NewEngine(conditions, dids, ledger, db)
	engine.SetEmitter(recorder)
	engine.SetVerifier(settlement.HashPreimageVerifier{})
	engine.SetPauses(cfg.Pauses)

	agreements := agreement.NewStore(db, conditions, templates, dids)
	agreements.SetKindView(engine)
	agreements.SetEmitter(recorder)

	var auth *middleware.Authenticator
	if cfg.Gateway.AuthEnabled {
		auth = middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    true,
			HMACSecret: cfg.Gateway.HMACSecret,
			Issuer:     cfg.Gateway.Issuer,
			ClockSkew:  time.Minute,
		}, logger)
	}
	limiter := middleware.NewRateLimiter(middleware.RateLimit{
		RequestsPerMinute: cfg.Gateway.RequestsPerMinute,
		Burst:             cfg.Gateway.Burst,
	})

	router := routes.NewRouter(routes.Deps{
		Logger:     logger,
		Conditions: conditions,
		Agreements: agreements,
		Templates:  templates,
		Engine:     engine,
		Ledger:     ledger,
		DIDs:       dids,
		Auth:       auth,
		Limiter:    limiter,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", slog.String("address", cfg.ListenAddress))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("gateway failed", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown incomplete", slog.Any("error", err))
		}
	}
}

// seedGenesis mints the configured allocations exactly once. A marker key per
// allocation records that the mint happened, so restarts never re-mint even
// after the account spends the balance down to zero.
func seedGenesis(db storage.Database, ledger *token.Ledger, allocs []config.Alloc) error {
	for _, alloc := range allocs {
		addr, err := config.ParseAddress(alloc.Address)
		if err != nil {
			return fmt.Errorf("genesis alloc %q: %w", alloc.Address, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Amount), 10)
		if !ok {
			return fmt.Errorf("genesis alloc %q: invalid amount %q", alloc.Address, alloc.Amount)
		}
		marker := genesisMarkerKey(alloc.Token, addr)
		seeded, err := db.Has(marker)
		if err != nil {
			return err
		}
		if seeded {
			continue
		}
		if err := ledger.Mint(alloc.Token, addr, amount); err != nil {
			return err
		}
		if err := db.Put(marker, []byte{1}); err != nil {
			return err
		}
	}
	return nil
}

func genesisMarkerKey(token string, addr [20]byte) []byte {
	normalized := strings.ToUpper(strings.TrimSpace(token))
	return []byte("genesis/seeded/" + normalized + "/" + hex.EncodeToString(addr[:]))
}
