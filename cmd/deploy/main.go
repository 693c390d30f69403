package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/unmask-labs/certmint/internal/adapter"
	"github.com/unmask-labs/certmint/internal/collectible"
	"github.com/unmask-labs/certmint/internal/config"
	"github.com/unmask-labs/certmint/internal/logger"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

// main deploys the collectible contract once and prints its address.
// The address is then supplied to the API server via configuration;
// deployment is deliberately decoupled from request-serving startup.
func main() {
	flag.Parse()

	config.ChdirRepoRoot()
	cfg, err := config.LoadDeployConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "deploy",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	binHex, err := os.ReadFile(cfg.ContractBinPath)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to read contract binary", zap.Error(err), zap.String("path", cfg.ContractBinPath))
	}
	contractBin := common.FromHex(strings.TrimSpace(string(binHex)))
	if len(contractBin) == 0 {
		logger.FatalCtx(ctx, "Contract binary is empty", zap.String("path", cfg.ContractBinPath))
	}

	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum RPC", zap.Error(err), zap.String("rpc_url", cfg.Ethereum.RPCURL))
	}
	defer ethClient.Close()

	gateway, err := collectible.NewGateway(ctx, ethClient, adapter.NewClock(), collectible.Config{
		PrivateKey:          cfg.Ethereum.PrivateKey,
		GasPriceGwei:        cfg.Ethereum.GasPriceGwei,
		ConfirmationTimeout: cfg.Ethereum.ConfirmationTimeout,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize contract gateway", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Deploying collectible contract")
	address, err := gateway.Deploy(ctx, contractBin)
	if err != nil {
		logger.FatalCtx(ctx, "Deployment failed", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Contract deployed", zap.String("contract_address", address))
	fmt.Printf("CERTMINT_ETHEREUM_CONTRACT_ADDRESS=%s\n", address)
}
