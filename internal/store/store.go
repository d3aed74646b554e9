package store

import (
	"context"
	"errors"
	"time"

	"github.com/eudaimonent/freemoney-gobackend/internal/models"
)

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// TransactionStore is the durable record of transactions. The two
// conditional updates are single atomic writes scoped by transaction code;
// they are the only ordering mechanism for concurrent confirmation
// deliveries and notification attempts.
type TransactionStore interface {
	FindByCode(ctx context.Context, code string) (*models.Transaction, error)
	FindByAddress(ctx context.Context, address string) (*models.Transaction, error)

	// Insert stores a new transaction and returns ErrDuplicateTransaction
	// when a row with the same transaction code or receiving address
	// already exists.
	Insert(ctx context.Context, tx *models.Transaction) error

	// UpdateConfirmations sets the received counter, and payment_detected_at
	// on first detection, only when received is strictly greater than the
	// stored counter. Returns false for stale or duplicate counts.
	UpdateConfirmations(ctx context.Context, code string, received int, detectedAt time.Time) (bool, error)

	// MarkNotified sets notified_at only where it is currently unset.
	// Returns false when the row was already marked.
	MarkNotified(ctx context.Context, code string, notifiedAt time.Time) (bool, error)
}
