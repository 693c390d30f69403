package collectible

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"

	"github.com/unmask-labs/certmint/internal/adapter"
	"github.com/unmask-labs/certmint/internal/domain"
	"github.com/unmask-labs/certmint/internal/logger"
)

// collectibleABI is the application surface of the SimpleCollectible contract
const collectibleABI = `[
	{"inputs":[{"name":"tokenUri","type":"string"},{"name":"recipient","type":"address"}],"name":"createCollectible","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"tokenCounter","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// transferEventSignature is keccak256("Transfer(address,address,uint256)")
var transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// receiptPollInterval is how often a pending transaction is re-checked
const receiptPollInterval = 2 * time.Second

// Gateway wraps the deployed collectible contract. All reads go through
// eth_call; Mint signs and pays with the service wallet, so the recipient
// address only becomes the token's owner and never bears gas.
//
//go:generate mockgen -source=gateway.go -destination=../mocks/gateway.go -package=mocks -mock_names=Gateway=MockGateway
type Gateway interface {
	// Address returns the configured contract address (empty when not deployed)
	Address() string

	// Deployed reports whether contract code exists at the configured address
	Deployed(ctx context.Context) (bool, error)

	// Mint submits a createCollectible transaction, waits for confirmation and
	// returns the receipt with the token id recovered from the Transfer event.
	Mint(ctx context.Context, metadataJSON string, ownerAddress string) (*domain.MintReceipt, error)

	// TokenURI fetches a token's URI
	TokenURI(ctx context.Context, tokenID uint64) (string, error)

	// OwnerOf fetches a token's current owner
	OwnerOf(ctx context.Context, tokenID uint64) (string, error)

	// TotalSupply fetches the number of minted tokens
	TotalSupply(ctx context.Context) (uint64, error)

	// TokenCounter fetches the contract's running token counter
	TokenCounter(ctx context.Context) (uint64, error)

	// Deploy submits the contract creation transaction and returns the new
	// contract address. Used by cmd/deploy only.
	Deploy(ctx context.Context, contractBin []byte) (string, error)
}

// Config holds gateway configuration
type Config struct {
	ContractAddress     string
	PrivateKey          string
	GasPriceGwei        int64
	ConfirmationTimeout time.Duration
}

type gateway struct {
	client   adapter.EthClient
	clock    adapter.Clock
	abi      abi.ABI
	key      *ecdsa.PrivateKey
	from     common.Address
	contract common.Address
	chainID  *big.Int
	gasPrice *big.Int
	confWait time.Duration

	// mintMu serializes mint submissions so the service wallet's nonce
	// sequence cannot interleave across concurrent requests.
	mintMu sync.Mutex
}

// NewGateway creates a gateway bound to the configured contract and service
// wallet. The chain id is fetched once at construction.
func NewGateway(ctx context.Context, client adapter.EthClient, clock adapter.Clock, cfg Config) (Gateway, error) {
	parsedABI, err := abi.JSON(strings.NewReader(collectibleABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	confWait := cfg.ConfirmationTimeout
	if confWait == 0 {
		confWait = 2 * time.Minute
	}

	g := &gateway{
		client:   client,
		clock:    clock,
		abi:      parsedABI,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		confWait: confWait,
	}
	if cfg.ContractAddress != "" {
		g.contract = common.HexToAddress(cfg.ContractAddress)
	}
	if cfg.GasPriceGwei > 0 {
		g.gasPrice = new(big.Int).Mul(big.NewInt(cfg.GasPriceGwei), big.NewInt(params.GWei))
	}

	return g, nil
}

// Address returns the configured contract address (empty when not deployed)
func (g *gateway) Address() string {
	if g.contract == (common.Address{}) {
		return ""
	}
	return g.contract.Hex()
}

// Deployed reports whether contract code exists at the configured address
func (g *gateway) Deployed(ctx context.Context) (bool, error) {
	if g.contract == (common.Address{}) {
		return false, nil
	}
	code, err := g.client.CodeAt(ctx, g.contract, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get contract code: %w", err)
	}
	return len(code) > 0, nil
}

// Mint submits a createCollectible transaction and waits for confirmation
func (g *gateway) Mint(ctx context.Context, metadataJSON string, ownerAddress string) (*domain.MintReceipt, error) {
	if g.contract == (common.Address{}) {
		return nil, domain.ErrContractNotDeployed
	}

	data, err := g.abi.Pack("createCollectible", metadataJSON, common.HexToAddress(ownerAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to pack data: %w", err)
	}

	g.mintMu.Lock()
	signedTx, err := g.submit(ctx, &g.contract, data)
	g.mintMu.Unlock()
	if err != nil {
		return nil, err
	}

	receipt, err := g.waitMined(ctx, signedTx.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: transaction reverted (%s)", domain.ErrChainSubmission, signedTx.Hash().Hex())
	}

	tokenID, err := g.tokenIDFromReceipt(receipt, common.HexToAddress(ownerAddress))
	if err != nil {
		return nil, err
	}

	logger.Info("mint confirmed",
		zap.Uint64("tokenID", tokenID),
		zap.String("owner", ownerAddress),
		zap.String("txHash", signedTx.Hash().Hex()))

	return &domain.MintReceipt{
		TokenID: tokenID,
		TxHash:  signedTx.Hash().Hex(),
	}, nil
}

// Deploy submits the contract creation transaction and returns the new contract address
func (g *gateway) Deploy(ctx context.Context, contractBin []byte) (string, error) {
	g.mintMu.Lock()
	signedTx, err := g.submit(ctx, nil, contractBin)
	g.mintMu.Unlock()
	if err != nil {
		return "", err
	}

	receipt, err := g.waitMined(ctx, signedTx.Hash())
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: deployment reverted (%s)", domain.ErrChainSubmission, signedTx.Hash().Hex())
	}

	return receipt.ContractAddress.Hex(), nil
}

// submit builds, signs and sends a transaction from the service wallet.
// Callers must hold mintMu so nonces are assigned in submission order.
func (g *gateway) submit(ctx context.Context, to *common.Address, data []byte) (*types.Transaction, error) {
	nonce, err := g.client.PendingNonceAt(ctx, g.from)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get nonce: %v", domain.ErrChainSubmission, err)
	}

	gasPrice := g.gasPrice
	if gasPrice == nil {
		gasPrice, err = g.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get gas price: %v", domain.ErrChainSubmission, err)
		}
	}

	gasLimit, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     g.from,
		To:       to,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to estimate gas: %v", domain.ErrChainSubmission, err)
	}

	var tx *types.Transaction
	if to != nil {
		tx = types.NewTransaction(nonce, *to, big.NewInt(0), gasLimit, gasPrice, data)
	} else {
		tx = types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, data)
	}

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to sign transaction: %v", domain.ErrChainSubmission, err)
	}

	if err := g.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChainSubmission, err)
	}

	return signedTx, nil
}

// waitMined polls for the transaction receipt until the confirmation timeout
func (g *gateway) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.confWait)
	defer cancel()

	var receipt *types.Receipt
	operation := func() error {
		var err error
		receipt, err = g.client.TransactionReceipt(waitCtx, txHash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return err // not mined yet, keep polling
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(receiptPollInterval), waitCtx)
	if err := backoff.Retry(operation, b); err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: transaction %s not confirmed within %s",
				domain.ErrConfirmationTimeout, txHash.Hex(), g.confWait)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrChainSubmission, err)
	}

	return receipt, nil
}

// tokenIDFromReceipt recovers the minted token id from the transaction's own
// ERC-721 Transfer event (zero address -> owner). Reading the contract's
// global counter instead would be racy under concurrent mints.
func (g *gateway) tokenIDFromReceipt(receipt *types.Receipt, owner common.Address) (uint64, error) {
	for _, vLog := range receipt.Logs {
		if vLog.Address != g.contract {
			continue
		}
		// ERC721 Transfer(address indexed from, address indexed to, uint256 indexed tokenId)
		if len(vLog.Topics) != 4 || vLog.Topics[0] != transferEventSignature {
			continue
		}
		from := common.BytesToAddress(vLog.Topics[1].Bytes())
		to := common.BytesToAddress(vLog.Topics[2].Bytes())
		if from != (common.Address{}) || to != owner {
			continue
		}
		return new(big.Int).SetBytes(vLog.Topics[3].Bytes()).Uint64(), nil
	}
	return 0, fmt.Errorf("%w: no Transfer event in receipt %s", domain.ErrChainSubmission, receipt.TxHash.Hex())
}

// TokenURI fetches a token's URI
func (g *gateway) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	result, err := g.call(ctx, "tokenURI", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", err
	}

	var uri string
	if err := g.abi.UnpackIntoInterface(&uri, "tokenURI", result); err != nil {
		return "", fmt.Errorf("failed to unpack result: %w", err)
	}
	return uri, nil
}

// OwnerOf fetches a token's current owner
func (g *gateway) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	result, err := g.call(ctx, "ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", err
	}

	var owner common.Address
	if err := g.abi.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return "", fmt.Errorf("failed to unpack result: %w", err)
	}
	return owner.Hex(), nil
}

// TotalSupply fetches the number of minted tokens
func (g *gateway) TotalSupply(ctx context.Context) (uint64, error) {
	return g.callUint64(ctx, "totalSupply")
}

// TokenCounter fetches the contract's running token counter
func (g *gateway) TokenCounter(ctx context.Context) (uint64, error) {
	return g.callUint64(ctx, "tokenCounter")
}

func (g *gateway) callUint64(ctx context.Context, method string) (uint64, error) {
	result, err := g.call(ctx, method)
	if err != nil {
		return 0, err
	}

	var value *big.Int
	if err := g.abi.UnpackIntoInterface(&value, method, result); err != nil {
		return 0, fmt.Errorf("failed to unpack result: %w", err)
	}
	return value.Uint64(), nil
}

// call performs an eth_call against the contract
func (g *gateway) call(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	if g.contract == (common.Address{}) {
		return nil, domain.ErrContractNotDeployed
	}

	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack data: %w", err)
	}

	result, err := g.client.CallContract(ctx, ethereum.CallMsg{
		To:   &g.contract,
		Data: data,
	}, nil)
	if err != nil {
		if isRevertError(err) {
			return nil, fmt.Errorf("%w: %s reverted", domain.ErrTokenNotFound, method)
		}
		return nil, fmt.Errorf("failed to call contract: %w", err)
	}
	if len(result) == 0 {
		// eth_call against an address without code returns empty data
		return nil, domain.ErrContractNotDeployed
	}

	return result, nil
}

// isRevertError checks whether a call failed due to contract revert, which
// for the ERC-721 read methods means the queried token does not exist
func isRevertError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "execution reverted") ||
		strings.Contains(err.Error(), "revert")
}
