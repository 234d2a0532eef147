package interfaces

import (
	"context"
	"deposit-verifier/internal/models"
	"errors"
)

// ErrTerminalDeposit is returned by repositories when an update would
// regress a deposit out of a terminal status.
var ErrTerminalDeposit = errors.New("deposit is in a terminal status")

// ChainAdapter fetches one transaction from a network's provider and
// normalizes it into the canonical record. Failures are returned as
// *models.FetchFailure.
type ChainAdapter interface {
	// Network returns the network this adapter serves.
	Network() models.NetworkName

	// FetchTransaction looks up a transaction by hash.
	FetchTransaction(ctx context.Context, hash string) (*models.TransactionRecord, error)

	// Ping checks provider reachability.
	Ping(ctx context.Context) error

	// Close releases provider connections.
	Close()
}

// EventEmitter publishes deposit lifecycle events.
type EventEmitter interface {
	EmitEvent(event models.DepositEvent) error
}

// DepositRepository is the persistence boundary for deposit records. The
// engine assumes single-document atomicity only; implementations must
// refuse to regress a terminal status (ErrTerminalDeposit). Lookup methods
// return (nil, nil) when no record exists.
type DepositRepository interface {
	Create(ctx context.Context, deposit *models.Deposit) error
	GetByID(ctx context.Context, id string) (*models.Deposit, error)
	GetByHash(ctx context.Context, txHash string) (*models.Deposit, error)
	ListByUser(ctx context.Context, userID string) ([]models.Deposit, error)
	ListByUserAndStatus(ctx context.Context, userID string, status models.DepositStatus) ([]models.Deposit, error)
	// FindMatchingPending locates the PENDING deposit for
	// (user, network, claimed amount), or nil when none exists.
	FindMatchingPending(ctx context.Context, userID string, network models.NetworkName, amount string) (*models.Deposit, error)
	Update(ctx context.Context, deposit *models.Deposit) error
}
