package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// VerificationCache memoizes pass/fail verification outcomes per
// transaction hash so a hash resolved once in this process's lifetime is
// never re-verified against the provider. It is bounded LRU; the
// authoritative outcome lives on the Deposit record, so eviction and
// process restarts are safe.
type VerificationCache struct {
	entries *lru.Cache[string, bool]
	logger  zerolog.Logger
}

func New(size int, logger zerolog.Logger) (*VerificationCache, error) {
	entries, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification cache: %w", err)
	}
	return &VerificationCache{
		entries: entries,
		logger:  logger.With().Str("component", "verification-cache").Logger(),
	}, nil
}

// Get returns the memoized outcome for a hash, if present.
func (c *VerificationCache) Get(txHash string) (bool, bool) {
	return c.entries.Get(txHash)
}

// Set records the outcome for a hash.
func (c *VerificationCache) Set(txHash string, verified bool) {
	c.entries.Add(txHash, verified)
}

// ForceSet overrides the outcome for a hash. Test/debug escape hatch; the
// override is logged so it cannot pass silently.
func (c *VerificationCache) ForceSet(txHash string, verified bool) {
	c.logger.Warn().
		Str("txHash", txHash).
		Bool("verified", verified).
		Msg("Verification outcome forcibly overridden")
	c.entries.Add(txHash, verified)
}

// Len reports the number of memoized outcomes.
func (c *VerificationCache) Len() int {
	return c.entries.Len()
}
