package store

import (
	"context"
	"sync"
	"time"

	"github.com/eudaimonent/freemoney-gobackend/internal/models"
)

// MemoryStore implements TransactionStore in memory with the same
// conditional-update semantics as MongoStore. It backs tests that exercise
// the lifecycle without a database.
type MemoryStore struct {
	mu     sync.Mutex
	byCode map[string]*models.Transaction
	byAddr map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode: make(map[string]*models.Transaction),
		byAddr: make(map[string]string),
	}
}

func (m *MemoryStore) FindByCode(ctx context.Context, code string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.byCode[code]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *MemoryStore) FindByAddress(ctx context.Context, address string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, ok := m.byAddr[address]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *m.byCode[code]
	return &cp, nil
}

func (m *MemoryStore) Insert(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byCode[tx.TransactionCode]; ok {
		return ErrDuplicateTransaction
	}
	if _, ok := m.byAddr[tx.ReceivingAddress]; ok {
		return ErrDuplicateTransaction
	}

	cp := *tx
	m.byCode[cp.TransactionCode] = &cp
	m.byAddr[cp.ReceivingAddress] = cp.TransactionCode
	return nil
}

func (m *MemoryStore) UpdateConfirmations(ctx context.Context, code string, received int, detectedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.byCode[code]
	if !ok {
		return false, nil
	}
	if received <= tx.ConfirmationsReceived {
		return false, nil
	}

	tx.ConfirmationsReceived = received
	if tx.PaymentDetectedAt == nil || detectedAt.Before(*tx.PaymentDetectedAt) {
		at := detectedAt
		tx.PaymentDetectedAt = &at
	}
	return true, nil
}

func (m *MemoryStore) MarkNotified(ctx context.Context, code string, notifiedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.byCode[code]
	if !ok {
		return false, nil
	}
	if tx.NotifiedAt != nil {
		return false, nil
	}

	at := notifiedAt
	tx.NotifiedAt = &at
	return true, nil
}
