package models

import (
	"fmt"
	"strings"
)

type NetworkName string

const (
	Ethereum NetworkName = "ETHEREUM"
	BSC      NetworkName = "BSC"
	Solana   NetworkName = "SOLANA"
	TON      NetworkName = "TON"
)

// Networks is the closed set of supported networks.
var Networks = []NetworkName{Ethereum, BSC, Solana, TON}

func (n NetworkName) String() string {
	return string(n)
}

// IsEVM reports whether the network speaks Ethereum JSON-RPC and uses
// 0x-prefixed keccak hashes.
func (n NetworkName) IsEVM() bool {
	return n == Ethereum || n == BSC
}

// ParseNetwork maps a case-insensitive string to a supported network.
func ParseNetwork(s string) (NetworkName, error) {
	switch NetworkName(strings.ToUpper(strings.TrimSpace(s))) {
	case Ethereum:
		return Ethereum, nil
	case BSC:
		return BSC, nil
	case Solana:
		return Solana, nil
	case TON:
		return TON, nil
	default:
		return "", fmt.Errorf("unsupported network: %q", s)
	}
}
