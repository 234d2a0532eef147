package registry

import (
	"deposit-verifier/internal/config"
	"deposit-verifier/internal/models"
	"strings"
)

// NativeToken is the configured token address meaning "the chain's native
// asset" rather than a contract/mint/jetton master.
const NativeToken = "native"

// Descriptor is the static, read-only description of one network.
type Descriptor struct {
	Network         models.NetworkName
	ChainID         uint64
	DisplayName     string
	NativeSymbol    string
	NativeDecimals  int32
	ExplorerBaseURL string
	DepositAddress  string
	TokenAddress    string
	TokenDecimals   int32
}

// static per-network facts; config supplies addresses and overrides.
var defaults = map[models.NetworkName]Descriptor{
	models.Ethereum: {
		Network:         models.Ethereum,
		ChainID:         1,
		DisplayName:     "Ethereum",
		NativeSymbol:    "ETH",
		NativeDecimals:  18,
		ExplorerBaseURL: "https://etherscan.io/tx/",
	},
	models.BSC: {
		Network:         models.BSC,
		ChainID:         56,
		DisplayName:     "BNB Smart Chain",
		NativeSymbol:    "BNB",
		NativeDecimals:  18,
		ExplorerBaseURL: "https://bscscan.com/tx/",
	},
	models.Solana: {
		Network:         models.Solana,
		ChainID:         101,
		DisplayName:     "Solana",
		NativeSymbol:    "SOL",
		NativeDecimals:  9,
		ExplorerBaseURL: "https://solscan.io/tx/",
	},
	models.TON: {
		Network:         models.TON,
		ChainID:         607,
		DisplayName:     "The Open Network",
		NativeSymbol:    "TON",
		NativeDecimals:  9,
		ExplorerBaseURL: "https://tonviewer.com/transaction/",
	},
}

// Registry is the process-wide catalog of supported networks.
type Registry struct {
	descriptors map[models.NetworkName]Descriptor
}

// New builds a registry from the static defaults overlaid with per-chain
// configuration (deposit address, expected token, explorer override).
func New(chains map[models.NetworkName]config.ChainConfig) *Registry {
	r := &Registry{descriptors: make(map[models.NetworkName]Descriptor, len(defaults))}
	for network, d := range defaults {
		if cc, ok := chains[network]; ok {
			if cc.ExplorerBaseURL != "" {
				d.ExplorerBaseURL = cc.ExplorerBaseURL
			}
			d.DepositAddress = cc.DepositAddress
			d.TokenAddress = cc.TokenAddress
			d.TokenDecimals = cc.TokenDecimals
		}
		if d.TokenAddress == "" {
			d.TokenAddress = NativeToken
		}
		if d.TokenDecimals == 0 {
			d.TokenDecimals = d.NativeDecimals
		}
		r.descriptors[network] = d
	}
	return r
}

// Descriptor returns the descriptor for a network.
func (r *Registry) Descriptor(network models.NetworkName) (Descriptor, bool) {
	d, ok := r.descriptors[network]
	return d, ok
}

// ExplorerURL maps (hash, network) to a human-viewable link. Unknown
// networks yield an empty string, never an error.
func (r *Registry) ExplorerURL(txHash string, network models.NetworkName) string {
	d, ok := r.descriptors[network]
	if !ok {
		return ""
	}
	return d.ExplorerBaseURL + txHash
}

// DepositAddress returns the static custodial address for a network.
func (r *Registry) DepositAddress(network models.NetworkName) string {
	return r.descriptors[network].DepositAddress
}

// TokenAddress returns the expected asset address for a network.
func (r *Registry) TokenAddress(network models.NetworkName) string {
	return r.descriptors[network].TokenAddress
}

// IsNative reports whether a token address denotes the network's native
// asset.
func (r *Registry) IsNative(network models.NetworkName, tokenAddress string) bool {
	if tokenAddress == "" || strings.EqualFold(tokenAddress, NativeToken) {
		return true
	}
	return false
}

// Decimals returns the decimals for an asset on a network: native decimals
// for the native asset, the configured token decimals for the expected
// token, native decimals otherwise.
func (r *Registry) Decimals(network models.NetworkName, tokenAddress string) int32 {
	d, ok := r.descriptors[network]
	if !ok {
		return 0
	}
	if r.IsNative(network, tokenAddress) {
		return d.NativeDecimals
	}
	if sameAddress(network, tokenAddress, d.TokenAddress) {
		return d.TokenDecimals
	}
	return d.NativeDecimals
}

// SameAddress compares two addresses with the network's case rules
// (EVM addresses are case-insensitive hex, the rest are case-sensitive).
func SameAddress(network models.NetworkName, a, b string) bool {
	return sameAddress(network, a, b)
}

func sameAddress(network models.NetworkName, a, b string) bool {
	if network.IsEVM() {
		return strings.EqualFold(a, b)
	}
	return a == b
}
