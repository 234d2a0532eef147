package models

import (
	"time"
)

// Confidence describes how a token transfer was detected.
type Confidence string

const (
	// ConfidenceParsed means the transfer was decoded from the canonical
	// chain data (event log, balance diff, recognized opcode).
	ConfidenceParsed Confidence = "PARSED"
	// ConfidenceHeuristic means the transfer is a best-effort guess
	// (unrecognized opcode, known-wallet or comment matching).
	ConfidenceHeuristic Confidence = "HEURISTIC"
)

// TokenTransfer is one token movement inside a transaction. Value is the
// raw integer amount in minor units; Decimals converts it to display units.
type TokenTransfer struct {
	TokenAddress string
	SymbolHint   string
	Decimals     int32
	From         string
	To           string
	Value        string
	Confidence   Confidence
}

// TransactionRecord is the canonical cross-chain transaction view emitted
// by chain adapters. It lives in memory only and is never persisted.
type TransactionRecord struct {
	Hash           string
	FromAddress    string
	ToAddress      string
	BlockTimestamp time.Time
	BlockNumber    uint64
	// NativeValue is the native-asset amount in display units
	// (ETH/BNB/SOL/TON), as a decimal string.
	NativeValue    string
	TokenTransfers []TokenTransfer
	Success        bool
	// Synthetic marks a record fabricated by a permissive policy
	// (failure-as-success override). Never set on a real success.
	Synthetic bool
}
