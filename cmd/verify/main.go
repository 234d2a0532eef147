package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"deposit-verifier/internal/adapters/evm"
	"deposit-verifier/internal/adapters/solana"
	"deposit-verifier/internal/adapters/ton"
	"deposit-verifier/internal/amount"
	"deposit-verifier/internal/cache"
	"deposit-verifier/internal/config"
	"deposit-verifier/internal/database"
	"deposit-verifier/internal/engine"
	"deposit-verifier/internal/events"
	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/logger"
	"deposit-verifier/internal/models"
	"deposit-verifier/internal/registry"
	"deposit-verifier/internal/validation"

	"github.com/google/uuid"
)

// verify checks a single transaction hash against a deposit claim and
// prints the verification result as JSON. The claim is registered with a
// request timestamp in the past so that an already-mined transaction can
// pass the ordering check.
func main() {
	userID := flag.String("user", "cli", "user identifier for the deposit claim")
	networkStr := flag.String("network", "", "network name (ETHEREUM, BSC, SOLANA, TON)")
	amountStr := flag.String("amount", "", "claimed deposit amount in display units")
	hash := flag.String("hash", "", "transaction hash to verify")
	window := flag.Duration("window", 24*time.Hour, "how far in the past the deposit request is dated")
	flag.Parse()

	if *networkStr == "" || *amountStr == "" || *hash == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel)

	network, err := models.ParseNetwork(*networkStr)
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Unknown network")
	}

	reg := registry.New(cfg.Chains)

	adapter, err := buildAdapter(network, cfg, reg)
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to create chain adapter")
	}
	defer adapter.Close()

	verificationCache, err := cache.New(cfg.CacheSize, logger.Component("cache"))
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to create verification cache")
	}

	matcher, err := amount.NewMatcher(cfg.TolerancePercent, reg)
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Invalid amount tolerance")
	}

	store := database.NewMemoryStore()
	ctx := context.Background()

	desc, ok := reg.Descriptor(network)
	if !ok {
		logger.GetLogger().Fatal().Str("network", network.String()).Msg("Network not configured")
	}

	now := time.Now()
	deposit := &models.Deposit{
		ID:               uuid.NewString(),
		UserID:           *userID,
		Network:          network,
		TokenAddress:     desc.TokenAddress,
		DepositAmount:    *amountStr,
		Status:           models.StatusPending,
		DepositAddress:   desc.DepositAddress,
		RequestTimestamp: now.Add(-*window),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := store.Create(ctx, deposit); err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to register deposit claim")
	}

	eng := engine.New(
		store,
		map[models.NetworkName]interfaces.ChainAdapter{network: adapter},
		verificationCache,
		matcher,
		validation.NewHashValidator(cfg.Policy.LenientHashFormat),
		reg,
		&events.LogEmitter{},
		cfg.Policy,
		1,
		*logger.GetLogger(),
	)

	result := eng.VerifyDeposit(ctx, *userID, *hash, network, *amountStr)

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to encode result")
	}
	fmt.Println(string(encoded))

	if !result.Success {
		os.Exit(1)
	}
}

func buildAdapter(network models.NetworkName, cfg *config.Config, reg *registry.Registry) (interfaces.ChainAdapter, error) {
	chainCfg, ok := cfg.Chains[network]
	if !ok {
		return nil, fmt.Errorf("no configuration for network %s", network)
	}

	switch network {
	case models.Ethereum, models.BSC:
		return evm.New(network, chainCfg, reg, cfg.Policy, cfg.CallTimeout, logger.Component(network.String()))
	case models.Solana:
		return solana.New(chainCfg, cfg.MaxRetries, cfg.RetryDelay, cfg.CallTimeout, cfg.Policy, logger.Component("SOLANA")), nil
	case models.TON:
		return ton.New(chainCfg, cfg.MaxRetries, cfg.RetryDelay, cfg.CallTimeout, cfg.Policy, logger.Component("TON")), nil
	default:
		return nil, fmt.Errorf("unsupported network %s", network)
	}
}
