package database

import (
	"context"
	"sort"
	"sync"

	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/models"

	"github.com/shopspring/decimal"
)

var _ interfaces.DepositRepository = (*MemoryStore)(nil)

// MemoryStore is an in-memory deposit repository used by tests and the
// one-shot CLI, where no database is available.
type MemoryStore struct {
	mu       sync.RWMutex
	deposits map[string]models.Deposit
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{deposits: make(map[string]models.Deposit)}
}

func (m *MemoryStore) Create(_ context.Context, d *models.Deposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deposits[d.ID] = *d
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*models.Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.deposits[id]; ok {
		copied := d
		return &copied, nil
	}
	return nil, nil
}

func (m *MemoryStore) GetByHash(_ context.Context, txHash string) (*models.Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if txHash == "" {
		return nil, nil
	}
	for _, d := range m.deposits {
		if d.TransactionHash == txHash {
			copied := d
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID string) ([]models.Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Deposit
	for _, d := range m.deposits {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (m *MemoryStore) ListByUserAndStatus(_ context.Context, userID string, status models.DepositStatus) ([]models.Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Deposit
	for _, d := range m.deposits {
		if d.UserID == userID && d.Status == status {
			out = append(out, d)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (m *MemoryStore) FindMatchingPending(_ context.Context, userID string, network models.NetworkName, amountStr string) (*models.Deposit, error) {
	claimed, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var match *models.Deposit
	for _, d := range m.deposits {
		if d.UserID != userID || d.Network != network || d.Status != models.StatusPending {
			continue
		}
		existing, err := decimal.NewFromString(d.DepositAmount)
		if err != nil || !existing.Equal(claimed) {
			continue
		}
		if match == nil || d.CreatedAt.Before(match.CreatedAt) {
			copied := d
			match = &copied
		}
	}
	return match, nil
}

func (m *MemoryStore) Update(_ context.Context, d *models.Deposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.deposits[d.ID]
	if !ok {
		return nil
	}
	if existing.Status.IsTerminal() {
		return interfaces.ErrTerminalDeposit
	}
	m.deposits[d.ID] = *d
	return nil
}

func sortByCreated(deposits []models.Deposit) {
	sort.Slice(deposits, func(i, j int) bool {
		return deposits[i].CreatedAt.After(deposits[j].CreatedAt)
	})
}
