package ton

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"deposit-verifier/internal/config"
	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/models"
	"deposit-verifier/internal/rpc"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	tonDecimals = 9
	// scanLimit bounds how many recent deposit-address transactions are
	// searched for the submitted hash.
	scanLimit = 64
)

var _ interfaces.ChainAdapter = (*Adapter)(nil)

// Adapter verifies TON transactions by scanning the deposit account's
// recent transactions over a ranked list of candidate endpoints. Hashes
// are matched against every encoding TON tooling produces.
type Adapter struct {
	clients            []*rpc.Client
	depositAddress     string
	tokenAddress       string
	tokenDecimals      int32
	knownJettonWallets map[string]bool
	policy             config.VerificationPolicy
	callTimeout        time.Duration
	logger             zerolog.Logger
}

func New(cfg config.ChainConfig, maxRetries int, retryDelay, callTimeout time.Duration, policy config.VerificationPolicy, logger zerolog.Logger) *Adapter {
	adapterLogger := logger.With().Str("network", models.TON.String()).Logger()

	endpoints := cfg.Endpoints
	if len(endpoints) == 0 && cfg.RpcEndpoint != "" {
		endpoints = []string{cfg.RpcEndpoint}
	}

	clients := make([]*rpc.Client, 0, len(endpoints))
	for _, endpoint := range endpoints {
		clients = append(clients, rpc.NewClient(endpoint, cfg.ApiKey, cfg.RateLimit, maxRetries, retryDelay, callTimeout, &adapterLogger))
	}

	known := make(map[string]bool, len(cfg.KnownJettonWallets))
	for _, w := range cfg.KnownJettonWallets {
		known[w] = true
	}

	decimals := cfg.TokenDecimals
	if decimals == 0 {
		decimals = tonDecimals
	}

	return &Adapter{
		clients:            clients,
		depositAddress:     cfg.DepositAddress,
		tokenAddress:       cfg.TokenAddress,
		tokenDecimals:      decimals,
		knownJettonWallets: known,
		policy:             policy,
		callTimeout:        callTimeout,
		logger:             adapterLogger,
	}
}

func (a *Adapter) Network() models.NetworkName {
	return models.TON
}

func (a *Adapter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	var lastErr error
	for _, client := range a.clients {
		if _, err := client.Call(ctx, "getMasterchainInfo", nil); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

func (a *Adapter) Close() {
	for _, client := range a.clients {
		client.Close()
	}
}

func (a *Adapter) FetchTransaction(ctx context.Context, hash string) (*models.TransactionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	raw, err := decodeHash(hash)
	if err != nil {
		return nil, models.NewFetchFailure(models.FailureNotFound, models.TON, hash, "unrecognized hash encoding", err)
	}

	a.logger.Debug().
		Strs("hashVariants", encodingVariants(raw)).
		Msg("Searching deposit history for hash")

	// Attempt each candidate endpoint in rank order; the first endpoint
	// that answers is authoritative.
	var lastErr error
	for _, client := range a.clients {
		transactions, err := a.fetchTransactions(ctx, client)
		if err != nil {
			lastErr = err
			a.logger.Warn().
				Err(err).
				Str("endpoint", client.Endpoint).
				Msg("TON endpoint failed, trying next")
			continue
		}

		for i := range transactions {
			if sameHash(transactions[i].TransactionID.Hash, raw) {
				return a.normalize(hash, &transactions[i])
			}
		}
		return nil, models.NewFetchFailure(models.FailureNotFound, models.TON, hash, "transaction not found in recent deposit history", nil)
	}

	return a.providerError(hash, "all TON endpoints failed", lastErr)
}

func (a *Adapter) fetchTransactions(ctx context.Context, client *rpc.Client) ([]Transaction, error) {
	resp, err := client.Call(ctx, "getTransactions", map[string]interface{}{
		"address":  a.depositAddress,
		"limit":    scanLimit,
		"archival": true,
	})
	if err != nil {
		return nil, err
	}

	var transactions []Transaction
	if err := json.Unmarshal(resp.Result, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (a *Adapter) normalize(hash string, tx *Transaction) (*models.TransactionRecord, error) {
	if tx.Utime == 0 {
		return nil, models.NewFetchFailure(models.FailurePending, models.TON, hash, "transaction not yet finalized", nil)
	}

	record := &models.TransactionRecord{
		Hash:           hash,
		BlockTimestamp: time.Unix(tx.Utime, 0),
		Success:        true,
	}

	msg := tx.InMsg
	if msg == nil {
		return record, nil
	}

	record.FromAddress = msg.Source
	record.ToAddress = msg.Destination

	if value, err := decimal.NewFromString(msg.Value); err == nil {
		record.NativeValue = value.Shift(-tonDecimals).String()
	} else {
		record.NativeValue = "0"
	}

	if transfer := a.detectTransfer(msg); transfer != nil {
		record.TokenTransfers = []models.TokenTransfer{*transfer}
	}

	return record, nil
}

// detectTransfer decodes the inbound message body; when cell parsing finds
// no recognized opcode it falls back to heuristics (known jetton wallet
// list, comment text), flagged as lower confidence.
func (a *Adapter) detectTransfer(msg *Message) *models.TokenTransfer {
	if msg.MsgData.Body != "" {
		parsed, err := parseMessageBody(msg.MsgData.Body, msg, a.tokenDecimals)
		if err == nil {
			if parsed.transfer != nil {
				a.resolveTokenAddress(parsed.transfer, msg.Source)
				return parsed.transfer
			}
			// plain comment: a native transfer, no token movement
			return nil
		}
		if !errors.Is(err, errUnknownOpcode) {
			a.logger.Debug().Err(err).Msg("TON message body parse failed, falling back to heuristics")
		}
	}

	return a.heuristicTransfer(msg)
}

// heuristicTransfer is the best-effort guess path: a message from a known
// jetton wallet, or one whose comment mentions a jetton transfer, is taken
// to be a token deposit of the attached value.
func (a *Adapter) heuristicTransfer(msg *Message) *models.TokenTransfer {
	fromKnownWallet := a.knownJettonWallets[msg.Source]
	commentHints := strings.Contains(strings.ToLower(msg.Message), "jetton")

	if !fromKnownWallet && !commentHints {
		return nil
	}

	a.logger.Warn().
		Str("source", msg.Source).
		Bool("knownWallet", fromKnownWallet).
		Msg("TON transfer detected heuristically, confidence is low")

	transfer := &models.TokenTransfer{
		TokenAddress: msg.Source,
		Decimals:     a.tokenDecimals,
		From:         msg.Source,
		To:           msg.Destination,
		Value:        msg.Value,
		Confidence:   models.ConfidenceHeuristic,
	}
	a.resolveTokenAddress(transfer, msg.Source)
	return transfer
}

// resolveTokenAddress maps a known jetton wallet to the configured jetton
// master so the amount matcher can compare against the expected token.
func (a *Adapter) resolveTokenAddress(transfer *models.TokenTransfer, source string) {
	if a.knownJettonWallets[source] {
		transfer.TokenAddress = a.tokenAddress
	}
}

func (a *Adapter) providerError(hash, message string, err error) (*models.TransactionRecord, error) {
	if a.policy.TreatProviderErrorAsSuccess {
		a.logger.Warn().
			Err(err).
			Str("txHash", hash).
			Msg("Provider error converted to synthetic success by policy")
		return &models.TransactionRecord{Hash: hash, Success: true, Synthetic: true}, nil
	}
	return nil, models.NewFetchFailure(models.FailureProviderError, models.TON, hash, message, err)
}
