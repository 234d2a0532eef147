package config

import (
	"deposit-verifier/internal/models"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel         string
	MaxRetries       int
	RetryDelay       time.Duration
	CallTimeout      time.Duration
	HealthAddr       string
	Workers          int
	CacheSize        int
	TolerancePercent string
	Policy           VerificationPolicy
	Kafka            KafkaConfig
	Database         DatabaseConfig
	Chains           map[models.NetworkName]ChainConfig
}

// VerificationPolicy carries the permissive flags. It is read once at
// startup; business logic never consults the environment directly.
type VerificationPolicy struct {
	SkipVerification            bool
	LenientHashFormat           bool
	TreatFailureAsSuccess       bool
	TreatProviderErrorAsSuccess bool
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled       bool
	BrokerAddress string
	Topic         string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ChainConfig holds configuration for each network
type ChainConfig struct {
	RpcEndpoint string
	// Endpoints is the ranked list of candidate endpoints; networks that
	// do not fail over (everything but TON) use RpcEndpoint only.
	Endpoints          []string
	ApiKey             string
	RateLimit          float64
	ExplorerBaseURL    string
	DepositAddress     string
	TokenAddress       string
	TokenDecimals      int32
	KnownJettonWallets []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Not fatal, as env vars might be set externally
	}

	devMode := getEnvAsBool("DEV_MODE", false)

	config := &Config{
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MaxRetries:       getEnvAsInt("MAX_RETRIES", 1),
		RetryDelay:       time.Duration(getEnvAsInt("RETRY_DELAY", 2)) * time.Second,
		CallTimeout:      time.Duration(getEnvAsInt("PROVIDER_CALL_TIMEOUT", 8)) * time.Second,
		HealthAddr:       getEnv("HEALTH_ADDR", ":8081"),
		Workers:          getEnvAsInt("VERIFICATION_WORKERS", 4),
		CacheSize:        getEnvAsInt("VERIFICATION_CACHE_SIZE", 4096),
		TolerancePercent: getEnv("AMOUNT_TOLERANCE_PERCENT", "2"),
		Policy: VerificationPolicy{
			SkipVerification:            getEnvAsBool("SKIP_VERIFICATION", false),
			LenientHashFormat:           getEnvAsBool("LENIENT_HASH_FORMAT", devMode),
			TreatFailureAsSuccess:       getEnvAsBool("TREAT_FAILURE_AS_SUCCESS", devMode),
			TreatProviderErrorAsSuccess: getEnvAsBool("TREAT_PROVIDER_ERROR_AS_SUCCESS", false),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", "localhost:9092"),
			Topic:         getEnv("KAFKA_TOPIC", "deposit-events"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "deposit_verifier"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Chains: make(map[models.NetworkName]ChainConfig),
	}

	config.Chains[models.Ethereum] = ChainConfig{
		RpcEndpoint:     getEnv("ETHEREUM_RPC_ENDPOINT", "https://eth.llamarpc.com"),
		ApiKey:          getEnv("ETHEREUM_API_KEY", ""),
		RateLimit:       getEnvAsFloat("ETHEREUM_RATE_LIMIT", 4),
		ExplorerBaseURL: getEnv("ETHEREUM_EXPLORER_BASE_URL", "https://etherscan.io/tx/"),
		DepositAddress:  getEnv("ETHEREUM_DEPOSIT_ADDRESS", ""),
		TokenAddress:    getEnv("ETHEREUM_TOKEN_ADDRESS", "native"),
		TokenDecimals:   int32(getEnvAsInt("ETHEREUM_TOKEN_DECIMALS", 18)),
	}

	config.Chains[models.BSC] = ChainConfig{
		RpcEndpoint:     getEnv("BSC_RPC_ENDPOINT", "https://bsc-dataseed.binance.org"),
		ApiKey:          getEnv("BSC_API_KEY", ""),
		RateLimit:       getEnvAsFloat("BSC_RATE_LIMIT", 4),
		ExplorerBaseURL: getEnv("BSC_EXPLORER_BASE_URL", "https://bscscan.com/tx/"),
		DepositAddress:  getEnv("BSC_DEPOSIT_ADDRESS", ""),
		TokenAddress:    getEnv("BSC_TOKEN_ADDRESS", "native"),
		TokenDecimals:   int32(getEnvAsInt("BSC_TOKEN_DECIMALS", 18)),
	}

	config.Chains[models.Solana] = ChainConfig{
		RpcEndpoint:     getEnv("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		ApiKey:          getEnv("SOLANA_API_KEY", ""),
		RateLimit:       getEnvAsFloat("SOLANA_RATE_LIMIT", 4),
		ExplorerBaseURL: getEnv("SOLANA_EXPLORER_BASE_URL", "https://solscan.io/tx/"),
		DepositAddress:  getEnv("SOLANA_DEPOSIT_ADDRESS", ""),
		TokenAddress:    getEnv("SOLANA_TOKEN_ADDRESS", "native"),
		TokenDecimals:   int32(getEnvAsInt("SOLANA_TOKEN_DECIMALS", 9)),
	}

	config.Chains[models.TON] = ChainConfig{
		RpcEndpoint: getEnv("TON_RPC_ENDPOINT", "https://toncenter.com/api/v2/jsonRPC"),
		Endpoints: getEnvAsList("TON_RPC_ENDPOINTS", []string{
			"https://toncenter.com/api/v2/jsonRPC",
			"https://mainnet.tonhubapi.com/jsonRPC",
		}),
		ApiKey:             getEnv("TON_API_KEY", ""),
		RateLimit:          getEnvAsFloat("TON_RATE_LIMIT", 2),
		ExplorerBaseURL:    getEnv("TON_EXPLORER_BASE_URL", "https://tonviewer.com/transaction/"),
		DepositAddress:     getEnv("TON_DEPOSIT_ADDRESS", ""),
		TokenAddress:       getEnv("TON_TOKEN_ADDRESS", "native"),
		TokenDecimals:      int32(getEnvAsInt("TON_TOKEN_DECIMALS", 9)),
		KnownJettonWallets: getEnvAsList("TON_KNOWN_JETTON_WALLETS", nil),
	}

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList gets a comma-separated environment variable as a slice
func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
