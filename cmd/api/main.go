package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/unmask-labs/certmint/internal/adapter"
	"github.com/unmask-labs/certmint/internal/api/server"
	"github.com/unmask-labs/certmint/internal/assets"
	"github.com/unmask-labs/certmint/internal/certificate"
	"github.com/unmask-labs/certmint/internal/classifier"
	"github.com/unmask-labs/certmint/internal/collectible"
	"github.com/unmask-labs/certmint/internal/config"
	"github.com/unmask-labs/certmint/internal/logger"
	"github.com/unmask-labs/certmint/internal/minter"
	"github.com/unmask-labs/certmint/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting certmint API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	dataStore := store.NewPGStore(db)

	// Initialize adapters
	fs := adapter.NewFileSystem()
	jsonAdapter := adapter.NewJSON()
	clock := adapter.NewClock()

	// Initialize asset store
	assetStore, err := assets.NewLocalStore(cfg.Assets.Root, fs)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize asset store", zap.Error(err), zap.String("root", cfg.Assets.Root))
	}

	// Connect to the chain and bind the collectible contract
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum RPC", zap.Error(err), zap.String("rpc_url", cfg.Ethereum.RPCURL))
	}
	defer ethClient.Close()

	gateway, err := collectible.NewGateway(ctx, ethClient, clock, collectible.Config{
		ContractAddress:     cfg.Ethereum.ContractAddress,
		PrivateKey:          cfg.Ethereum.PrivateKey,
		GasPriceGwei:        cfg.Ethereum.GasPriceGwei,
		ConfirmationTimeout: cfg.Ethereum.ConfirmationTimeout,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize contract gateway", zap.Error(err))
	}

	if deployed, err := gateway.Deployed(ctx); err != nil {
		logger.WarnCtx(ctx, "Could not verify contract deployment", zap.Error(err))
	} else if !deployed {
		logger.WarnCtx(ctx, "No contract code at configured address; mint requests will fail until one is deployed",
			zap.String("contract_address", cfg.Ethereum.ContractAddress))
	} else {
		logger.InfoCtx(ctx, "Bound collectible contract", zap.String("contract_address", gateway.Address()))
	}

	// Build the mint service
	certBuilder := certificate.NewBuilder(dataStore, cfg.Certificate.PublicBaseURL)
	clf := classifier.NewHTTPClassifier(cfg.Classifier.URL, cfg.Classifier.Timeout)
	service := minter.NewService(assetStore, clf, certBuilder, gateway, dataStore, clock, jsonAdapter, cfg.Ethereum.ExplorerURLTemplate)

	// Create and start server
	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}, service)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
