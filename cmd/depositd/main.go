package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deposit-verifier/internal/adapters/evm"
	"deposit-verifier/internal/adapters/solana"
	"deposit-verifier/internal/adapters/ton"
	"deposit-verifier/internal/amount"
	"deposit-verifier/internal/cache"
	"deposit-verifier/internal/config"
	"deposit-verifier/internal/database"
	"deposit-verifier/internal/emitters"
	"deposit-verifier/internal/engine"
	"deposit-verifier/internal/events"
	"deposit-verifier/internal/health"
	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/logger"
	"deposit-verifier/internal/models"
	"deposit-verifier/internal/registry"
	"deposit-verifier/internal/validation"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Error().Interface("panic", r).Msg("Application panicked, recovering")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)

	store, err := database.Open(cfg.Database)
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to open database")
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to run migrations")
	}

	reg := registry.New(cfg.Chains)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapters := buildAdapters(cfg, reg)
	defer func() {
		for _, adapter := range adapters {
			adapter.Close()
		}
	}()

	verificationCache, err := cache.New(cfg.CacheSize, logger.Component("cache"))
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to create verification cache")
	}

	matcher, err := amount.NewMatcher(cfg.TolerancePercent, reg)
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Invalid amount tolerance")
	}

	validator := validation.NewHashValidator(cfg.Policy.LenientHashFormat)

	emitter := &events.LogEmitter{}
	var kafkaEmitter *emitters.KafkaEmitter
	if cfg.Kafka.Enabled {
		kafkaEmitter = emitters.NewKafkaEmitter(cfg.Kafka.BrokerAddress, cfg.Kafka.Topic)
		emitter.WrappedEmitter = kafkaEmitter
	}
	defer func() {
		if kafkaEmitter != nil {
			if err := kafkaEmitter.Close(); err != nil {
				logger.GetLogger().Error().Err(err).Msg("Failed to close Kafka emitter")
			}
		}
	}()

	eng := engine.New(
		store,
		adapters,
		verificationCache,
		matcher,
		validator,
		reg,
		emitter,
		cfg.Policy,
		cfg.Workers,
		*logger.GetLogger(),
	)

	wg := eng.Start(ctx)

	for _, adapter := range adapters {
		health.RegisterAdapter(ctx, adapter)
	}
	health.SetReady(true)

	httpServer := startHealthServer(cfg.HealthAddr)

	logger.GetLogger().Info().
		Int("workers", cfg.Workers).
		Int("networks", len(adapters)).
		Str("healthAddr", cfg.HealthAddr).
		Msg("Deposit verifier started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.GetLogger().Info().Str("signal", sig.String()).Msg("Shutting down")

	health.SetReady(false)
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().Error().Err(err).Msg("Failed to shut down health server")
	}
}

func buildAdapters(cfg *config.Config, reg *registry.Registry) map[models.NetworkName]interfaces.ChainAdapter {
	adapters := make(map[models.NetworkName]interfaces.ChainAdapter)

	for _, network := range []models.NetworkName{models.Ethereum, models.BSC} {
		chainCfg, ok := cfg.Chains[network]
		if !ok {
			continue
		}
		adapter, err := evm.New(network, chainCfg, reg, cfg.Policy, cfg.CallTimeout, logger.Component(network.String()))
		if err != nil {
			logger.GetLogger().Fatal().
				Err(err).
				Str("network", network.String()).
				Msg("Failed to create EVM adapter")
		}
		adapters[network] = adapter
	}

	if chainCfg, ok := cfg.Chains[models.Solana]; ok {
		adapters[models.Solana] = solana.New(chainCfg, cfg.MaxRetries, cfg.RetryDelay, cfg.CallTimeout, cfg.Policy, logger.Component("SOLANA"))
	}

	if chainCfg, ok := cfg.Chains[models.TON]; ok {
		adapters[models.TON] = ton.New(chainCfg, cfg.MaxRetries, cfg.RetryDelay, cfg.CallTimeout, cfg.Policy, logger.Component("TON"))
	}

	return adapters
}

func startHealthServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.LivenessHandler)
	mux.HandleFunc("/readyz", health.ReadinessHandler)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.GetLogger().Fatal().Err(err).Msg("Health server failed")
		}
	}()

	return server
}
