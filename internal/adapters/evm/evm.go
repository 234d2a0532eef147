package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"deposit-verifier/internal/config"
	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/models"
	"deposit-verifier/internal/registry"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// erc20TransferTopic is keccak256("Transfer(address,address,uint256)").
var erc20TransferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

var _ interfaces.ChainAdapter = (*Adapter)(nil)

// Adapter verifies transactions on EVM networks (Ethereum, BSC) through
// eth_getTransactionByHash / eth_getTransactionReceipt.
type Adapter struct {
	network     models.NetworkName
	client      *ethclient.Client
	registry    *registry.Registry
	policy      config.VerificationPolicy
	callTimeout time.Duration
	logger      zerolog.Logger
}

// CustomTransport adds API key authentication to HTTP requests
type CustomTransport struct {
	Base   http.RoundTripper
	ApiKey string
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	if t.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.ApiKey)
	}
	return t.Base.RoundTrip(req)
}

// New dials the network's JSON-RPC endpoint.
func New(network models.NetworkName, cfg config.ChainConfig, reg *registry.Registry, policy config.VerificationPolicy, callTimeout time.Duration, logger zerolog.Logger) (*Adapter, error) {
	if !network.IsEVM() {
		return nil, fmt.Errorf("network %s is not an EVM network", network)
	}

	httpClient := &http.Client{
		Timeout: callTimeout,
		Transport: &CustomTransport{
			Base:   http.DefaultTransport,
			ApiKey: cfg.ApiKey,
		},
	}

	rpcClient, err := gethrpc.DialHTTPWithClient(cfg.RpcEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	return &Adapter{
		network:     network,
		client:      ethclient.NewClient(rpcClient),
		registry:    reg,
		policy:      policy,
		callTimeout: callTimeout,
		logger:      logger.With().Str("network", network.String()).Logger(),
	}, nil
}

func (a *Adapter) Network() models.NetworkName {
	return a.network
}

func (a *Adapter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	_, err := a.client.BlockNumber(ctx)
	return err
}

func (a *Adapter) Close() {
	a.client.Close()
}

// FetchTransaction queries the transaction and its receipt, then normalizes
// them into the canonical record.
func (a *Adapter) FetchTransaction(ctx context.Context, hash string) (*models.TransactionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	txHash := common.HexToHash(hash)

	tx, isPending, err := a.client.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, models.NewFetchFailure(models.FailureNotFound, a.network, hash, "transaction not found", nil)
		}
		return a.providerError(hash, "eth_getTransactionByHash failed", err)
	}
	if isPending {
		return nil, models.NewFetchFailure(models.FailurePending, a.network, hash, "transaction not yet mined", nil)
	}

	receipt, err := a.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, models.NewFetchFailure(models.FailurePending, a.network, hash, "receipt not yet available", nil)
		}
		return a.providerError(hash, "eth_getTransactionReceipt failed", err)
	}

	header, err := a.client.HeaderByNumber(ctx, receipt.BlockNumber)
	if err != nil {
		return a.providerError(hash, "failed to fetch block header", err)
	}

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return a.providerError(hash, "failed to recover sender", err)
	}

	to := ""
	if tx.To() != nil {
		to = tx.To().Hex()
	}

	record := &models.TransactionRecord{
		Hash:           txHash.Hex(),
		FromAddress:    from.Hex(),
		ToAddress:      to,
		BlockTimestamp: time.Unix(int64(header.Time), 0),
		BlockNumber:    receipt.BlockNumber.Uint64(),
		NativeValue:    nativeValue(a.registry, a.network, tx.Value()),
		TokenTransfers: extractTransfers(a.network, a.registry, receipt.Logs),
		Success:        receipt.Status == types.ReceiptStatusSuccessful,
	}

	if !record.Success {
		if a.policy.TreatFailureAsSuccess {
			// Distinct development-only path: the raw values are kept but
			// the record is flagged synthetic.
			a.logger.Warn().
				Str("txHash", hash).
				Msg("On-chain failure converted to synthetic success by policy")
			record.Success = true
			record.Synthetic = true
			return record, nil
		}
		return nil, models.NewFetchFailure(models.FailureOnChain, a.network, hash, "transaction reverted on chain", nil)
	}

	return record, nil
}

func (a *Adapter) providerError(hash, message string, err error) (*models.TransactionRecord, error) {
	if a.policy.TreatProviderErrorAsSuccess {
		a.logger.Warn().
			Err(err).
			Str("txHash", hash).
			Msg("Provider error converted to synthetic success by policy")
		return &models.TransactionRecord{Hash: hash, Success: true, Synthetic: true}, nil
	}
	return nil, models.NewFetchFailure(models.FailureProviderError, a.network, hash, message, err)
}

// nativeValue converts wei to display units using the registry's native
// decimals for the network.
func nativeValue(reg *registry.Registry, network models.NetworkName, value *big.Int) string {
	return decimal.NewFromBigInt(value, -reg.Decimals(network, registry.NativeToken)).String()
}

// extractTransfers scans receipt logs for the ERC-20 Transfer topic and
// decodes from/to from the indexed topics and value from the log data.
func extractTransfers(network models.NetworkName, reg *registry.Registry, logs []*types.Log) []models.TokenTransfer {
	var transfers []models.TokenTransfer
	for _, lg := range logs {
		if len(lg.Topics) != 3 || lg.Topics[0] != erc20TransferTopic {
			continue
		}
		if len(lg.Data) < 32 {
			continue
		}
		tokenAddress := lg.Address.Hex()
		transfers = append(transfers, models.TokenTransfer{
			TokenAddress: tokenAddress,
			Decimals:     reg.Decimals(network, tokenAddress),
			From:         common.BytesToAddress(lg.Topics[1].Bytes()[12:]).Hex(),
			To:           common.BytesToAddress(lg.Topics[2].Bytes()[12:]).Hex(),
			Value:        new(big.Int).SetBytes(lg.Data[:32]).String(),
			Confidence:   models.ConfidenceParsed,
		})
	}
	return transfers
}
