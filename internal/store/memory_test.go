package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eudaimonent/freemoney-gobackend/internal/models"
)

func seedTransaction(t *testing.T, m *MemoryStore) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		TransactionCode:       "TX-001",
		Payee:                 "avatar-1",
		ItemName:              "Test Object",
		OriginalAmount:        "100",
		OriginalCurrencyCode:  "USD",
		SettlementAmount:      "0.2000",
		NotifyURL:             "http://sim.example.com/notify",
		ReceivingAddress:      "1BitcoinAddr001",
		ConfirmationsRequired: 3,
		CreatedAt:             time.Now(),
	}
	if err := m.Insert(context.Background(), tx); err != nil {
		t.Fatalf("expected no error inserting, got %v", err)
	}
	return tx
}

func TestMemoryStoreInsertDuplicate(t *testing.T) {
	m := NewMemoryStore()
	tx := seedTransaction(t, m)

	dup := *tx
	dup.ReceivingAddress = "1BitcoinAddrOther"
	if err := m.Insert(context.Background(), &dup); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction for same code, got %v", err)
	}

	dup = *tx
	dup.TransactionCode = "TX-002"
	if err := m.Insert(context.Background(), &dup); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction for same address, got %v", err)
	}
}

func TestMemoryStoreFindByAddress(t *testing.T) {
	m := NewMemoryStore()
	tx := seedTransaction(t, m)

	found, err := m.FindByAddress(context.Background(), tx.ReceivingAddress)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found.TransactionCode != tx.TransactionCode {
		t.Errorf("expected code %s, got %s", tx.TransactionCode, found.TransactionCode)
	}

	if _, err := m.FindByAddress(context.Background(), "unknown"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdateConfirmationsMonotonic(t *testing.T) {
	m := NewMemoryStore()
	tx := seedTransaction(t, m)
	ctx := context.Background()

	updated, err := m.UpdateConfirmations(ctx, tx.TransactionCode, 2, time.Now())
	if err != nil || !updated {
		t.Fatalf("expected first update to apply, got updated=%v err=%v", updated, err)
	}

	first, _ := m.FindByCode(ctx, tx.TransactionCode)
	if first.PaymentDetectedAt == nil {
		t.Fatal("expected payment_detected_at to be set on first update")
	}
	detectedAt := *first.PaymentDetectedAt

	// Stale and duplicate counts are no-ops.
	for _, stale := range []int{1, 2} {
		updated, err := m.UpdateConfirmations(ctx, tx.TransactionCode, stale, time.Now())
		if err != nil {
			t.Fatalf("expected no error for stale count %d, got %v", stale, err)
		}
		if updated {
			t.Errorf("expected stale count %d to be ignored", stale)
		}
	}

	updated, err = m.UpdateConfirmations(ctx, tx.TransactionCode, 5, time.Now().Add(time.Minute))
	if err != nil || !updated {
		t.Fatalf("expected higher count to apply, got updated=%v err=%v", updated, err)
	}

	final, _ := m.FindByCode(ctx, tx.TransactionCode)
	if final.ConfirmationsReceived != 5 {
		t.Errorf("expected 5 confirmations, got %d", final.ConfirmationsReceived)
	}
	if !final.PaymentDetectedAt.Equal(detectedAt) {
		t.Errorf("expected first detection time to be preserved, got %v want %v", final.PaymentDetectedAt, detectedAt)
	}
}

func TestMemoryStoreUpdateConfirmationsMissingRow(t *testing.T) {
	m := NewMemoryStore()

	updated, err := m.UpdateConfirmations(context.Background(), "TX-missing", 1, time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated {
		t.Error("expected no update for missing row")
	}
}

func TestMemoryStoreMarkNotifiedOnce(t *testing.T) {
	m := NewMemoryStore()
	tx := seedTransaction(t, m)
	ctx := context.Background()

	marked, err := m.MarkNotified(ctx, tx.TransactionCode, time.Now())
	if err != nil || !marked {
		t.Fatalf("expected first mark to succeed, got marked=%v err=%v", marked, err)
	}

	stored, _ := m.FindByCode(ctx, tx.TransactionCode)
	notifiedAt := *stored.NotifiedAt

	marked, err = m.MarkNotified(ctx, tx.TransactionCode, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if marked {
		t.Error("expected second mark to report already notified")
	}

	stored, _ = m.FindByCode(ctx, tx.TransactionCode)
	if !stored.NotifiedAt.Equal(notifiedAt) {
		t.Errorf("expected notified_at to be immutable, got %v want %v", stored.NotifiedAt, notifiedAt)
	}
}
