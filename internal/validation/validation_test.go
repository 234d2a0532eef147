package validation

import (
	"testing"

	"deposit-verifier/internal/models"
)

func TestIsValidEVM(t *testing.T) {
	v := NewHashValidator(false)

	tests := []struct {
		name    string
		hash    string
		network models.NetworkName
		want    bool
	}{
		{
			name:    "valid ethereum hash",
			hash:    "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060",
			network: models.Ethereum,
			want:    true,
		},
		{
			name:    "valid bsc hash",
			hash:    "0x5C504ED432CB51138BCF09AA5E8A410DD4A1E204EF84BFED1BE16DFBA1B22060",
			network: models.BSC,
			want:    true,
		},
		{
			name:    "missing 0x prefix",
			hash:    "5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060",
			network: models.Ethereum,
			want:    false,
		},
		{
			name:    "too short",
			hash:    "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b2206",
			network: models.Ethereum,
			want:    false,
		},
		{
			name:    "too long",
			hash:    "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b220600",
			network: models.Ethereum,
			want:    false,
		},
		{
			name:    "non-hex character",
			hash:    "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b2206g",
			network: models.Ethereum,
			want:    false,
		},
		{
			name:    "empty",
			hash:    "",
			network: models.Ethereum,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.IsValid(tt.hash, tt.network); got != tt.want {
				t.Errorf("IsValid(%q, %s) = %v, want %v", tt.hash, tt.network, got, tt.want)
			}
		})
	}
}

func TestIsValidSolana(t *testing.T) {
	v := NewHashValidator(false)

	// 88-character full signatures are not what the engine stores; the
	// 43-44 character base58 form is.
	valid44 := "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tp"

	tests := []struct {
		name string
		hash string
		want bool
	}{
		{name: "valid signature", hash: valid44, want: true},
		{name: "contains zero digit", hash: "0j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tp", want: false},
		{name: "contains uppercase O", hash: "Oj7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tp", want: false},
		{name: "too short", hash: "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4", want: false},
		{name: "evm hash on solana", hash: "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.IsValid(tt.hash, models.Solana); got != tt.want {
				t.Errorf("IsValid(%q, SOLANA) = %v, want %v", tt.hash, got, tt.want)
			}
		})
	}
}

func TestIsValidTON(t *testing.T) {
	v := NewHashValidator(false)

	tests := []struct {
		name string
		hash string
		want bool
	}{
		{
			name: "hex form",
			hash: "97264395bd65a255a429b11326c84128b7d70ffed7949abae3437d1851aba3ec",
			want: true,
		},
		{
			name: "base64 std form",
			hash: "lyZDlb1lolWkKbETJshBKLfXD/7XlJq640N9GFGro+w=",
			want: true,
		},
		{
			name: "base64url form",
			hash: "lyZDlb1lolWkKbETJshBKLfXD_7XlJq640N9GFGro-w=",
			want: true,
		},
		{
			name: "raw base64url form",
			hash: "lyZDlb1lolWkKbETJshBKLfXD_7XlJq640N9GFGro-w",
			want: true,
		},
		{
			name: "hex too short",
			hash: "97264395bd65a255a429b11326c84128b7d70ffed7949abae3437d1851aba3",
			want: false,
		},
		{
			name: "base64 of 31 bytes",
			hash: "lyZDlb1lolWkKbETJshBKLfXD/7XlJq640N9GFGrow==",
			want: false,
		},
		{
			name: "empty",
			hash: "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.IsValid(tt.hash, models.TON); got != tt.want {
				t.Errorf("IsValid(%q, TON) = %v, want %v", tt.hash, got, tt.want)
			}
		})
	}
}

func TestIsValidLenient(t *testing.T) {
	v := NewHashValidator(true)

	if !v.IsValid("this-is-not-a-real-hash", models.Ethereum) {
		t.Error("lenient validator should accept any string longer than 10 characters")
	}
	if v.IsValid("short", models.Ethereum) {
		t.Error("lenient validator should still reject strings of 10 characters or fewer")
	}
}

func TestIsValidUnknownNetwork(t *testing.T) {
	v := NewHashValidator(false)

	if v.IsValid("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060", models.NetworkName("DOGECOIN")) {
		t.Error("unknown network must never validate")
	}
}
