package validation

import (
	"deposit-verifier/internal/models"
	"encoding/base64"
	"encoding/hex"
	"regexp"

	"github.com/btcsuite/btcd/btcutil/base58"
)

var (
	evmHashRegex    = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
	solanaHashRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{43,44}$`)
	tonHexRegex     = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
)

// HashValidator is a pure per-network syntactic check of transaction
// identifiers.
type HashValidator struct {
	lenient bool
}

// NewHashValidator builds a validator. Lenient mode only requires a
// non-empty string longer than 10 characters; it exists for development
// setups and must never be the default in production.
func NewHashValidator(lenient bool) *HashValidator {
	return &HashValidator{lenient: lenient}
}

// IsValid reports whether hash is syntactically plausible for the network.
func (v *HashValidator) IsValid(hash string, network models.NetworkName) bool {
	if v.lenient {
		return len(hash) > 10
	}

	switch network {
	case models.Ethereum, models.BSC:
		return evmHashRegex.MatchString(hash)
	case models.Solana:
		return isSolanaSignature(hash)
	case models.TON:
		return isTONHash(hash)
	default:
		return false
	}
}

// isSolanaSignature checks base58 alphabet and length.
func isSolanaSignature(hash string) bool {
	if !solanaHashRegex.MatchString(hash) {
		return false
	}
	return len(base58.Decode(hash)) > 0
}

// isTONHash accepts either hex or base64/base64url encodings of a 32-byte
// digest; TON tooling exposes both forms for the same hash.
func isTONHash(hash string) bool {
	if tonHexRegex.MatchString(hash) {
		if raw, err := hex.DecodeString(hash); err == nil && len(raw) == 32 {
			return true
		}
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if raw, err := enc.DecodeString(hash); err == nil && len(raw) == 32 {
			return true
		}
	}
	return false
}
