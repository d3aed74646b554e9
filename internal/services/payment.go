package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/eudaimonent/freemoney-gobackend/internal/config"
	"github.com/eudaimonent/freemoney-gobackend/internal/models"
	"github.com/eudaimonent/freemoney-gobackend/internal/store"
)

// ConfirmationCallbackPath is where the monitor delivers confirmation
// events.
const ConfirmationCallbackPath = "/confirmation-callback/"

// PaymentParams carries one inbound payment-initiation request.
type PaymentParams struct {
	TransactionCode string `json:"transaction_code"`
	Payee           string `json:"payee"`
	PayeeContact    string `json:"payee_contact"`
	ItemName        string `json:"item_name"`
	Amount          string `json:"amount"`
	CurrencyCode    string `json:"currency_code"`
	NotifyURL       string `json:"notify_url"`
}

// PaymentService owns the transaction lifecycle. It holds no per-request
// state; every operation works on the Transaction value it is given, and
// the store's conditional writes provide the ordering guarantees.
type PaymentService struct {
	store       store.TransactionStore
	converter   *Converter
	addresses   AddressProvisioner
	monitor     ConfirmationSubscriber
	externalURL string
	monitorName string
	logger      zerolog.Logger
}

func NewPaymentService(
	txStore store.TransactionStore,
	converter *Converter,
	addresses AddressProvisioner,
	monitor ConfirmationSubscriber,
	cfg *config.Config,
	logger zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		store:       txStore,
		converter:   converter,
		addresses:   addresses,
		monitor:     monitor,
		externalURL: cfg.Settlement.ExternalURL,
		monitorName: cfg.Monitor.Name,
		logger:      logger.With().Str("component", "payment_service").Logger(),
	}
}

// Initialize loads or creates the transaction for params.TransactionCode
// and registers the confirmation subscription with the monitor.
// Re-invocation with the same code is safe: creation is skipped and the
// subscription is re-attempted.
func (s *PaymentService) Initialize(ctx context.Context, params PaymentParams, confirmationsRequired int, baseURL string) (*models.Transaction, error) {
	if params.TransactionCode == "" {
		return nil, fmt.Errorf("%w: transaction code is required", ErrInvalidRequest)
	}

	tx, err := s.store.FindByCode(ctx, params.TransactionCode)
	if err != nil && !errors.Is(err, store.ErrTransactionNotFound) {
		return nil, err
	}
	if tx == nil {
		tx, err = s.create(ctx, params, confirmationsRequired)
		if err != nil {
			return nil, err
		}
	}

	callbackURL := s.callbackURL(baseURL)
	subscribed, err := s.monitor.Subscribe(ctx, tx.ReceivingAddress, tx.ConfirmationsRequired, callbackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionFailed, err)
	}
	if !subscribed {
		return nil, ErrSubscriptionFailed
	}

	s.logger.Info().
		Str("transaction_code", tx.TransactionCode).
		Str("receiving_address", tx.ReceivingAddress).
		Str("settlement_amount", tx.SettlementAmount).
		Msg("Payment request initialized")
	return tx, nil
}

func (s *PaymentService) create(ctx context.Context, params PaymentParams, confirmationsRequired int) (*models.Transaction, error) {
	amount, err := decimal.NewFromString(params.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q", ErrInvalidRequest, params.Amount)
	}

	settlement, err := s.converter.Convert(ctx, amount, params.CurrencyCode)
	if err != nil {
		return nil, err
	}

	address, err := s.addresses.AddressForTransaction(ctx, params.TransactionCode, params.Payee, params.PayeeContact)
	if err != nil {
		return nil, err
	}
	if address == "" {
		return nil, ErrAddressProvisioningFailed
	}

	tx := &models.Transaction{
		TransactionCode:       params.TransactionCode,
		Payee:                 params.Payee,
		PayeeContact:          params.PayeeContact,
		ItemName:              params.ItemName,
		OriginalAmount:        amount.String(),
		OriginalCurrencyCode:  params.CurrencyCode,
		SettlementAmount:      settlement.StringFixed(4),
		NotifyURL:             params.NotifyURL,
		ReceivingAddress:      address,
		ConfirmationsRequired: confirmationsRequired,
		CreatedAt:             time.Now(),
	}

	if err := s.store.Insert(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			// Lost the creation race; the winner's row is authoritative.
			existing, findErr := s.store.FindByCode(ctx, params.TransactionCode)
			if findErr == nil {
				return existing, nil
			}
			if errors.Is(findErr, store.ErrTransactionNotFound) {
				// No row under this code means the collision was on the
				// receiving address: the issuer handed out an address that
				// another transaction already holds.
				return nil, fmt.Errorf("%w: address %s already in use", ErrAddressProvisioningFailed, address)
			}
			return nil, findErr
		}
		return nil, err
	}

	return tx, nil
}

func (s *PaymentService) callbackURL(baseURL string) string {
	base := s.externalURL
	if base == "" {
		base = baseURL
	}
	return base + ConfirmationCallbackPath + "?service=" + s.monitorName
}

// LoadByCode returns the stored transaction for a transaction code.
func (s *PaymentService) LoadByCode(ctx context.Context, code string) (*models.Transaction, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: transaction code is required", ErrInvalidRequest)
	}
	return s.store.FindByCode(ctx, code)
}

// LoadByAddress returns the stored transaction for a receiving address.
func (s *PaymentService) LoadByAddress(ctx context.Context, address string) (*models.Transaction, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: receiving address is required", ErrInvalidRequest)
	}
	return s.store.FindByAddress(ctx, address)
}

// RecordConfirmations merges a confirmation-count report into the stored
// row. Counts at or below the stored value are stale or duplicate
// deliveries and are ignored without error.
func (s *PaymentService) RecordConfirmations(ctx context.Context, tx *models.Transaction, received int) error {
	if tx == nil || tx.TransactionCode == "" {
		return ErrNoTransactionLoaded
	}

	now := time.Now()
	updated, err := s.store.UpdateConfirmations(ctx, tx.TransactionCode, received, now)
	if err != nil {
		return err
	}
	if !updated {
		s.logger.Debug().
			Str("transaction_code", tx.TransactionCode).
			Int("received", received).
			Int("stored", tx.ConfirmationsReceived).
			Msg("Ignoring stale confirmation count")
		return nil
	}

	tx.ConfirmationsReceived = received
	if tx.PaymentDetectedAt == nil {
		tx.PaymentDetectedAt = &now
	}
	s.logger.Info().
		Str("transaction_code", tx.TransactionCode).
		Int("confirmations_received", received).
		Int("confirmations_required", tx.ConfirmationsRequired).
		Msg("Recorded confirmations")
	return nil
}

// IsConfirmationThresholdMet reports whether received satisfies the
// transaction's required confirmation count.
func (s *PaymentService) IsConfirmationThresholdMet(tx *models.Transaction, received int) bool {
	if tx == nil {
		return false
	}
	return received >= tx.ConfirmationsRequired
}

// IsNotificationSent reports whether the loaded transaction already carries
// the notified marker.
func (s *PaymentService) IsNotificationSent(tx *models.Transaction) bool {
	return tx != nil && tx.NotifiedAt != nil
}

// MarkNotified claims the one-time notification slot. A false result means
// another caller already claimed it; that is not an error.
func (s *PaymentService) MarkNotified(ctx context.Context, tx *models.Transaction) (bool, error) {
	if tx == nil || tx.TransactionCode == "" {
		return false, ErrNoTransactionLoaded
	}

	now := time.Now()
	marked, err := s.store.MarkNotified(ctx, tx.TransactionCode, now)
	if err != nil {
		return false, err
	}
	if marked {
		tx.NotifiedAt = &now
	}
	return marked, nil
}
