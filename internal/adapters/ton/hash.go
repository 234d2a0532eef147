package ton

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// decodeHash accepts any of the encodings TON tooling produces for a
// 32-byte transaction hash: hex, base64, base64url, with or without
// padding.
func decodeHash(hash string) ([]byte, error) {
	hash = strings.TrimSpace(hash)

	if len(hash) == 64 {
		if raw, err := hex.DecodeString(hash); err == nil {
			return raw, nil
		}
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if raw, err := enc.DecodeString(hash); err == nil && len(raw) == 32 {
			return raw, nil
		}
	}

	return nil, fmt.Errorf("unrecognized TON hash encoding: %q", hash)
}

// encodingVariants returns every canonical form of the hash so a match can
// be found against whichever form a provider stores.
func encodingVariants(raw []byte) []string {
	return []string{
		hex.EncodeToString(raw),
		base64.StdEncoding.EncodeToString(raw),
		base64.URLEncoding.EncodeToString(raw),
		base64.RawStdEncoding.EncodeToString(raw),
		base64.RawURLEncoding.EncodeToString(raw),
	}
}

// sameHash reports whether a provider-stored hash denotes the same digest,
// regardless of encoding.
func sameHash(stored string, raw []byte) bool {
	decoded, err := decodeHash(stored)
	if err != nil {
		return false
	}
	if len(decoded) != len(raw) {
		return false
	}
	for i := range raw {
		if decoded[i] != raw[i] {
			return false
		}
	}
	return true
}
