package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deposit-verifier/internal/amount"
	"deposit-verifier/internal/cache"
	"deposit-verifier/internal/config"
	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/models"
	"deposit-verifier/internal/registry"
	"deposit-verifier/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Engine owns the deposit lifecycle
// PENDING -> VERIFYING -> {CONFIRMED, REJECTED, FAILED} and orchestrates
// hash validation, chain adapters, amount matching and the verification
// cache.
type Engine struct {
	repo      interfaces.DepositRepository
	adapters  map[models.NetworkName]interfaces.ChainAdapter
	cache     *cache.VerificationCache
	matcher   *amount.Matcher
	validator *validation.HashValidator
	registry  *registry.Registry
	emitter   interfaces.EventEmitter
	policy    config.VerificationPolicy
	logger    zerolog.Logger
	now       func() time.Time

	jobs    chan job
	workers int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects a clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(
	repo interfaces.DepositRepository,
	adapters map[models.NetworkName]interfaces.ChainAdapter,
	verificationCache *cache.VerificationCache,
	matcher *amount.Matcher,
	validator *validation.HashValidator,
	reg *registry.Registry,
	emitter interfaces.EventEmitter,
	policy config.VerificationPolicy,
	workers int,
	logger zerolog.Logger,
	opts ...Option,
) *Engine {
	if workers <= 0 {
		workers = 1
	}
	e := &Engine{
		repo:      repo,
		adapters:  adapters,
		cache:     verificationCache,
		matcher:   matcher,
		validator: validator,
		registry:  reg,
		emitter:   emitter,
		policy:    policy,
		logger:    logger.With().Str("component", "deposit-engine").Logger(),
		now:       time.Now,
		jobs:      make(chan job, workers*4),
		workers:   workers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateDeposit allocates a PENDING deposit with the network's static
// deposit address and the current time as the request timestamp.
func (e *Engine) CreateDeposit(ctx context.Context, userID, amountStr string, network models.NetworkName) (*models.Deposit, error) {
	desc, ok := e.registry.Descriptor(network)
	if !ok {
		return nil, fmt.Errorf("unsupported network: %s", network)
	}

	claimed, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid deposit amount %q: %w", amountStr, err)
	}
	if !claimed.IsPositive() {
		return nil, fmt.Errorf("deposit amount must be positive: %s", amountStr)
	}

	now := e.now()
	deposit := &models.Deposit{
		ID:               uuid.NewString(),
		UserID:           userID,
		Network:          network,
		TokenAddress:     desc.TokenAddress,
		DepositAmount:    amountStr,
		Status:           models.StatusPending,
		DepositAddress:   desc.DepositAddress,
		RequestTimestamp: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := e.repo.Create(ctx, deposit); err != nil {
		return nil, fmt.Errorf("failed to persist deposit: %w", err)
	}

	e.logger.Info().
		Str("depositId", deposit.ID).
		Str("userId", userID).
		Str("network", network.String()).
		Str("amount", amountStr).
		Msg("Deposit request created")

	return deposit, nil
}

// GetDepositStatus returns the deposit view for a transaction hash,
// including the explorer URL, or nil when no deposit carries the hash.
func (e *Engine) GetDepositStatus(ctx context.Context, txHash string) (*models.DepositView, error) {
	deposit, err := e.repo.GetByHash(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if deposit == nil {
		return nil, nil
	}
	return &models.DepositView{
		Deposit:     *deposit,
		ExplorerURL: e.registry.ExplorerURL(deposit.TransactionHash, deposit.Network),
	}, nil
}

// GetPendingDeposits lists a user's deposits still awaiting a hash.
func (e *Engine) GetPendingDeposits(ctx context.Context, userID string) ([]models.Deposit, error) {
	return e.repo.ListByUserAndStatus(ctx, userID, models.StatusPending)
}

// VerifyDeposit runs the full verification pipeline synchronously.
// Expected failure kinds never escape as errors; truly unexpected faults
// resolve to FAILED with an internal-error result.
func (e *Engine) VerifyDeposit(ctx context.Context, userID, txHash string, network models.NetworkName, amountStr string) (result VerifyResult) {
	var deposit *models.Deposit

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Interface("panic", r).
				Str("txHash", txHash).
				Msg("Verification pipeline panicked")
			if deposit != nil {
				e.writeTerminal(ctx, deposit, models.StatusFailed, "")
			}
			result = VerifyResult{
				Success: false,
				Code:    CodeInternalVerificationError,
				Message: "internal verification error",
			}
			if deposit != nil {
				result.DepositID = deposit.ID
			}
		}
	}()

	adapter, ok := e.adapters[network]
	if !ok {
		return VerifyResult{
			Success: false,
			Code:    CodeUnsupportedNetwork,
			Message: fmt.Sprintf("network %s is not supported", network),
		}
	}

	if !e.validator.IsValid(txHash, network) {
		return VerifyResult{
			Success: false,
			Code:    CodeInvalidHashFormat,
			Message: fmt.Sprintf("invalid transaction hash format for %s", network),
		}
	}

	explorerURL := e.registry.ExplorerURL(txHash, network)

	// A hash that already produced a terminal outcome stays bound to that
	// one deposit; replay its outcome instead of re-verifying.
	existing, err := e.repo.GetByHash(ctx, txHash)
	if err != nil {
		return e.internalError(deposit, err)
	}
	if existing != nil {
		if existing.UserID != userID {
			return VerifyResult{
				Success: false,
				Code:    CodeNoMatchingRequest,
				Message: "transaction hash is already associated with another deposit",
			}
		}
		if existing.Status.IsTerminal() {
			return e.replayOutcome(existing, explorerURL)
		}
		deposit = existing
	}

	if deposit == nil {
		deposit, err = e.repo.FindMatchingPending(ctx, userID, network, amountStr)
		if err != nil {
			return e.internalError(deposit, err)
		}
		if deposit == nil {
			return VerifyResult{
				Success: false,
				Code:    CodeNoMatchingRequest,
				Message: fmt.Sprintf("no pending deposit request found for this user, network and amount (%s %s)", amountStr, network),
			}
		}
	}

	// Cache check short-circuits provider calls for hashes resolved in
	// this process lifetime.
	if verified, hit := e.cache.Get(txHash); hit {
		e.logger.Debug().
			Str("txHash", txHash).
			Bool("verified", verified).
			Msg("Verification cache hit")
		if verified {
			return e.confirm(ctx, deposit, txHash, deposit.DepositAmount, false, explorerURL, "deposit confirmed (cached verification)")
		}
		deposit.TransactionHash = txHash
		return e.reject(ctx, deposit, CodeRejected, explorerURL, VerifyResult{
			Message: "transaction hash previously failed verification",
		})
	}

	deposit.Status = models.StatusVerifying
	deposit.TransactionHash = txHash
	if err := e.repo.Update(ctx, deposit); err != nil {
		if errors.Is(err, interfaces.ErrTerminalDeposit) {
			fresh, ferr := e.repo.GetByID(ctx, deposit.ID)
			if ferr == nil && fresh != nil {
				return e.replayOutcome(fresh, explorerURL)
			}
		}
		return e.internalError(deposit, err)
	}

	if e.policy.SkipVerification {
		e.logger.Warn().
			Str("depositId", deposit.ID).
			Msg("Verification skipped by policy")
		e.cache.Set(txHash, true)
		return e.confirm(ctx, deposit, txHash, deposit.DepositAmount, false, explorerURL, "deposit confirmed (verification skipped by policy)")
	}

	record, err := adapter.FetchTransaction(ctx, txHash)
	if err != nil {
		return e.resolveFetchFailure(ctx, deposit, txHash, err, explorerURL)
	}

	// A synthetic record with no block data means a policy override
	// turned a provider error into success; there is nothing to match.
	if record.Synthetic && record.BlockTimestamp.IsZero() {
		e.cache.Set(txHash, true)
		return e.confirm(ctx, deposit, txHash, deposit.DepositAmount, false, explorerURL, "deposit confirmed (provider error overridden by policy)")
	}

	if record.BlockTimestamp.Before(deposit.RequestTimestamp) {
		e.cache.Set(txHash, false)
		return e.reject(ctx, deposit, CodeTimestampOrderingViolation, explorerURL, VerifyResult{
			Message: fmt.Sprintf("transaction occurred at %s, before the deposit request at %s",
				record.BlockTimestamp.UTC().Format(time.RFC3339),
				deposit.RequestTimestamp.UTC().Format(time.RFC3339)),
		})
	}

	match, err := e.matcher.Match(deposit.DepositAmount, record, network, deposit.TokenAddress, deposit.DepositAddress)
	if err != nil {
		if errors.Is(err, amount.ErrNoMatchingTransfer) {
			e.cache.Set(txHash, false)
			return e.reject(ctx, deposit, CodeAmountMismatch, explorerURL, VerifyResult{
				Message:  "transaction carries no transfer of the expected token to the deposit address",
				Expected: deposit.DepositAmount,
			})
		}
		return e.internalError(deposit, err)
	}

	if !match.OK {
		e.cache.Set(txHash, false)
		return e.reject(ctx, deposit, CodeAmountMismatch, explorerURL, VerifyResult{
			Message: fmt.Sprintf("amount mismatch: expected %s, found %s (%s difference exceeds tolerance)",
				match.Expected.String(), match.Actual.String(), match.PercentDiffString()),
			Expected:    match.Expected.String(),
			Actual:      match.Actual.String(),
			PercentDiff: match.PercentDiffString(),
		})
	}

	heuristic := match.Confidence == models.ConfidenceHeuristic
	if heuristic {
		e.logger.Warn().
			Str("depositId", deposit.ID).
			Str("txHash", txHash).
			Msg("Amount matched through a heuristic transfer, confidence is low")
	}

	e.cache.Set(txHash, true)
	return e.confirm(ctx, deposit, txHash, match.Actual.String(), heuristic, explorerURL, "deposit confirmed")
}

// replayOutcome reproduces the terminal outcome already recorded for a
// hash, without touching the chain adapter.
func (e *Engine) replayOutcome(deposit *models.Deposit, explorerURL string) VerifyResult {
	if deposit.Status == models.StatusConfirmed {
		return VerifyResult{
			Success:       true,
			Code:          CodeConfirmed,
			Message:       "deposit already confirmed",
			DepositID:     deposit.ID,
			MatchedAmount: deposit.PlatformTokenAmount,
			ExplorerURL:   explorerURL,
		}
	}
	return VerifyResult{
		Success:     false,
		Code:        CodeAlreadyProcessed,
		Message:     fmt.Sprintf("transaction hash was already processed with status %s", deposit.Status),
		DepositID:   deposit.ID,
		ExplorerURL: explorerURL,
	}
}

// resolveFetchFailure maps typed adapter failures onto deposit state per
// the propagation policy: provider-level failures stay retryable, on-chain
// failure is terminal.
func (e *Engine) resolveFetchFailure(ctx context.Context, deposit *models.Deposit, txHash string, err error, explorerURL string) VerifyResult {
	var failure *models.FetchFailure
	if !errors.As(err, &failure) {
		return e.internalError(deposit, err)
	}

	switch failure.Kind {
	case models.FailureNotFound:
		e.returnToPending(ctx, deposit)
		return VerifyResult{
			Success:     false,
			Code:        CodeTransactionNotFound,
			Message:     fmt.Sprintf("transaction not found on %s; it may not be broadcast or indexed yet", failure.Network),
			DepositID:   deposit.ID,
			ExplorerURL: explorerURL,
		}
	case models.FailurePending:
		return VerifyResult{
			Success:     false,
			Code:        CodeTransactionPending,
			Message:     "transaction is not yet finalized; resubmit once it is mined",
			DepositID:   deposit.ID,
			ExplorerURL: explorerURL,
		}
	case models.FailureOnChain:
		e.cache.Set(txHash, false)
		return e.reject(ctx, deposit, CodeOnChainExecutionFailed, explorerURL, VerifyResult{
			Message: "transaction was mined but its execution failed on chain",
		})
	case models.FailureProviderError:
		e.returnToPending(ctx, deposit)
		return VerifyResult{
			Success:     false,
			Code:        CodeProviderError,
			Message:     "the network provider could not be reached; this is not proof of an invalid transaction, retry later",
			DepositID:   deposit.ID,
			ExplorerURL: explorerURL,
		}
	default:
		return e.internalError(deposit, failure)
	}
}

// returnToPending leaves the deposit retryable after a transient failure.
func (e *Engine) returnToPending(ctx context.Context, deposit *models.Deposit) {
	deposit.Status = models.StatusPending
	if err := e.repo.Update(ctx, deposit); err != nil && !errors.Is(err, interfaces.ErrTerminalDeposit) {
		e.logger.Error().
			Err(err).
			Str("depositId", deposit.ID).
			Msg("Failed to return deposit to pending")
	}
}

func (e *Engine) confirm(ctx context.Context, deposit *models.Deposit, txHash, matchedAmount string, heuristic bool, explorerURL, message string) VerifyResult {
	now := e.now()
	deposit.Status = models.StatusConfirmed
	deposit.TransactionHash = txHash
	deposit.PlatformTokenAmount = matchedAmount
	deposit.VerificationTimestamp = &now

	if err := e.repo.Update(ctx, deposit); err != nil {
		if errors.Is(err, interfaces.ErrTerminalDeposit) {
			// A concurrent submit finished first; its outcome stands.
			fresh, ferr := e.repo.GetByID(ctx, deposit.ID)
			if ferr == nil && fresh != nil {
				return e.replayOutcome(fresh, explorerURL)
			}
		}
		return e.internalError(deposit, err)
	}

	e.emit(deposit, heuristic, explorerURL)

	return VerifyResult{
		Success:       true,
		Code:          CodeConfirmed,
		Message:       message,
		DepositID:     deposit.ID,
		MatchedAmount: matchedAmount,
		ExplorerURL:   explorerURL,
	}
}

func (e *Engine) reject(ctx context.Context, deposit *models.Deposit, code ResultCode, explorerURL string, base VerifyResult) VerifyResult {
	e.writeTerminal(ctx, deposit, models.StatusRejected, explorerURL)

	base.Success = false
	base.Code = code
	base.DepositID = deposit.ID
	base.ExplorerURL = explorerURL
	return base
}

func (e *Engine) internalError(deposit *models.Deposit, err error) VerifyResult {
	e.logger.Error().Err(err).Msg("Verification failed with an internal error")

	result := VerifyResult{
		Success: false,
		Code:    CodeInternalVerificationError,
		Message: "internal verification error",
	}
	if deposit != nil {
		e.writeTerminal(context.Background(), deposit, models.StatusFailed, "")
		result.DepositID = deposit.ID
	}
	return result
}

// writeTerminal records a terminal status without ever regressing one that
// a concurrent verification already set.
func (e *Engine) writeTerminal(ctx context.Context, deposit *models.Deposit, status models.DepositStatus, explorerURL string) {
	deposit.Status = status
	if err := e.repo.Update(ctx, deposit); err != nil {
		if errors.Is(err, interfaces.ErrTerminalDeposit) {
			return
		}
		e.logger.Error().
			Err(err).
			Str("depositId", deposit.ID).
			Str("status", status.String()).
			Msg("Failed to record terminal deposit status")
		return
	}
	e.emit(deposit, false, explorerURL)
}

func (e *Engine) emit(deposit *models.Deposit, heuristic bool, explorerURL string) {
	if e.emitter == nil {
		return
	}
	event := models.DepositEvent{
		DepositID:   deposit.ID,
		UserID:      deposit.UserID,
		Network:     deposit.Network,
		TxHash:      deposit.TransactionHash,
		Status:      deposit.Status,
		Amount:      deposit.PlatformTokenAmount,
		Heuristic:   heuristic,
		ExplorerURL: explorerURL,
		Timestamp:   e.now(),
	}
	if err := e.emitter.EmitEvent(event); err != nil {
		e.logger.Error().
			Err(err).
			Str("depositId", deposit.ID).
			Msg("Failed to emit deposit event")
	}
}
