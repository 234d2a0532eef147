package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/models"
)

var _ interfaces.DepositRepository = (*Store)(nil)

const depositColumns = `id, user_id, network, transaction_hash, token_address,
	deposit_amount, platform_token_amount, status, deposit_address,
	request_timestamp, verification_timestamp, created_at, updated_at`

// Create inserts a new deposit record.
func (s *Store) Create(ctx context.Context, d *models.Deposit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deposits (id, user_id, network, transaction_hash, token_address,
			deposit_amount, platform_token_amount, status, deposit_address,
			request_timestamp, verification_timestamp, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8, $9, $10, $11, now(), now())
	`, d.ID, d.UserID, d.Network, d.TransactionHash, d.TokenAddress,
		d.DepositAmount, d.PlatformTokenAmount, d.Status, d.DepositAddress,
		d.RequestTimestamp, d.VerificationTimestamp)
	if err != nil {
		return fmt.Errorf("failed to insert deposit: %w", err)
	}
	return nil
}

// GetByID retrieves a deposit by its identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Deposit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+depositColumns+` FROM deposits WHERE id = $1
	`, id)
	return scanDeposit(row)
}

// GetByHash retrieves the deposit associated with a transaction hash.
func (s *Store) GetByHash(ctx context.Context, txHash string) (*models.Deposit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+depositColumns+` FROM deposits WHERE transaction_hash = $1
	`, txHash)
	return scanDeposit(row)
}

// ListByUser retrieves all deposits of a user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]models.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+depositColumns+` FROM deposits
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeposits(rows)
}

// ListByUserAndStatus retrieves a user's deposits in one status.
func (s *Store) ListByUserAndStatus(ctx context.Context, userID string, status models.DepositStatus) ([]models.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+depositColumns+` FROM deposits
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
	`, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeposits(rows)
}

// FindMatchingPending locates the oldest PENDING deposit for
// (user, network, claimed amount). Amounts compare numerically, so "100"
// and "100.0" match.
func (s *Store) FindMatchingPending(ctx context.Context, userID string, network models.NetworkName, amount string) (*models.Deposit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+depositColumns+` FROM deposits
		WHERE user_id = $1 AND network = $2 AND status = $3
		  AND deposit_amount::numeric = $4::numeric
		ORDER BY created_at ASC
		LIMIT 1
	`, userID, network, models.StatusPending, amount)
	return scanDeposit(row)
}

// Update writes the mutable deposit fields. Rows already in a terminal
// status are never touched.
func (s *Store) Update(ctx context.Context, d *models.Deposit) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deposits
		SET transaction_hash = NULLIF($2, ''),
		    platform_token_amount = NULLIF($3, ''),
		    status = $4,
		    verification_timestamp = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status NOT IN ($6, $7, $8)
	`, d.ID, d.TransactionHash, d.PlatformTokenAmount, d.Status,
		d.VerificationTimestamp,
		models.StatusConfirmed, models.StatusRejected, models.StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to update deposit: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := s.GetByID(ctx, d.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("deposit %s does not exist", d.ID)
		}
		return interfaces.ErrTerminalDeposit
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeposit(row rowScanner) (*models.Deposit, error) {
	var d models.Deposit
	var txHash, platformAmount sql.NullString
	var verifiedAt sql.NullTime

	err := row.Scan(&d.ID, &d.UserID, &d.Network, &txHash, &d.TokenAddress,
		&d.DepositAmount, &platformAmount, &d.Status, &d.DepositAddress,
		&d.RequestTimestamp, &verifiedAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	d.TransactionHash = txHash.String
	d.PlatformTokenAmount = platformAmount.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		d.VerificationTimestamp = &t
	}
	return &d, nil
}

func scanDeposits(rows *sql.Rows) ([]models.Deposit, error) {
	var deposits []models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, *d)
	}
	return deposits, rows.Err()
}
