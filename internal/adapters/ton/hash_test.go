package ton

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func testDigest() []byte {
	raw, _ := hex.DecodeString("97264395bd65a255a429b11326c84128b7d70ffed7949abae3437d1851aba3ec")
	return raw
}

func TestDecodeHashAllEncodings(t *testing.T) {
	raw := testDigest()

	tests := []struct {
		name string
		hash string
	}{
		{name: "hex", hash: hex.EncodeToString(raw)},
		{name: "base64 std", hash: base64.StdEncoding.EncodeToString(raw)},
		{name: "base64 url", hash: base64.URLEncoding.EncodeToString(raw)},
		{name: "base64 raw std", hash: base64.RawStdEncoding.EncodeToString(raw)},
		{name: "base64 raw url", hash: base64.RawURLEncoding.EncodeToString(raw)},
		{name: "surrounding whitespace", hash: " " + hex.EncodeToString(raw) + " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := decodeHash(tt.hash)
			if err != nil {
				t.Fatalf("decodeHash(%q): %v", tt.hash, err)
			}
			if !bytes.Equal(decoded, raw) {
				t.Errorf("decodeHash(%q) = %x, want %x", tt.hash, decoded, raw)
			}
		})
	}
}

func TestDecodeHashRejectsGarbage(t *testing.T) {
	for _, hash := range []string{"", "zzzz", "0x1234", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := decodeHash(hash); err == nil {
			t.Errorf("decodeHash(%q) should fail", hash)
		}
	}
}

func TestSameHashAcrossEncodings(t *testing.T) {
	raw := testDigest()

	// A provider may store the base64url form while the user submitted hex.
	stored := base64.URLEncoding.EncodeToString(raw)
	if !sameHash(stored, raw) {
		t.Errorf("sameHash(%q) should match the digest", stored)
	}

	other := make([]byte, len(raw))
	copy(other, raw)
	other[0] ^= 0xff
	if sameHash(stored, other) {
		t.Error("sameHash must not match a different digest")
	}

	if sameHash("not-a-hash", raw) {
		t.Error("sameHash must reject undecodable stored hashes")
	}
}

func TestEncodingVariants(t *testing.T) {
	raw := testDigest()
	variants := encodingVariants(raw)

	if len(variants) != 5 {
		t.Fatalf("len(variants) = %d, want 5", len(variants))
	}
	for _, v := range variants {
		decoded, err := decodeHash(v)
		if err != nil {
			t.Errorf("variant %q does not round-trip: %v", v, err)
			continue
		}
		if !bytes.Equal(decoded, raw) {
			t.Errorf("variant %q decodes to %x, want %x", v, decoded, raw)
		}
	}
}
