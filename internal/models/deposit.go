package models

import (
	"time"
)

type DepositStatus string

const (
	StatusPending   DepositStatus = "PENDING"
	StatusVerifying DepositStatus = "VERIFYING"
	StatusConfirmed DepositStatus = "CONFIRMED"
	StatusRejected  DepositStatus = "REJECTED"
	StatusFailed    DepositStatus = "FAILED"
)

func (s DepositStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition may leave the status.
func (s DepositStatus) IsTerminal() bool {
	switch s {
	case StatusConfirmed, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// Deposit is one verification attempt record. It is created PENDING and
// mutated only by the verification engine.
type Deposit struct {
	ID                    string        `json:"id"`
	UserID                string        `json:"user_id"`
	Network               NetworkName   `json:"network"`
	TransactionHash       string        `json:"transaction_hash,omitempty"`
	TokenAddress          string        `json:"token_address"`
	DepositAmount         string        `json:"deposit_amount"`
	PlatformTokenAmount   string        `json:"platform_token_amount,omitempty"`
	Status                DepositStatus `json:"status"`
	DepositAddress        string        `json:"deposit_address"`
	RequestTimestamp      time.Time     `json:"request_timestamp"`
	VerificationTimestamp *time.Time    `json:"verification_timestamp,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// DepositView is a Deposit enriched with a human-viewable explorer link.
type DepositView struct {
	Deposit
	ExplorerURL string `json:"explorer_url,omitempty"`
}

// DepositEvent is emitted on every terminal status transition.
type DepositEvent struct {
	DepositID   string        `json:"deposit_id"`
	UserID      string        `json:"user_id"`
	Network     NetworkName   `json:"network"`
	TxHash      string        `json:"tx_hash"`
	Status      DepositStatus `json:"status"`
	Amount      string        `json:"amount"`
	Heuristic   bool          `json:"heuristic,omitempty"`
	ExplorerURL string        `json:"explorer_url,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}
