package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/eudaimonent/freemoney-gobackend/internal/models"
)

// NotificationService delivers the one-time completion callback to the
// transaction's notify URL. The lifecycle controller gates the call; this
// service only performs it and reports success or failure.
type NotificationService struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewNotificationService(logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *NotificationService) Notify(ctx context.Context, tx *models.Transaction) error {
	reqBody, err := json.Marshal(map[string]interface{}{
		"transaction_code":       tx.TransactionCode,
		"receiving_address":      tx.ReceivingAddress,
		"settlement_amount":      tx.SettlementAmount,
		"confirmations_received": tx.ConfirmationsReceived,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tx.NotifyURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification failed with status %d", resp.StatusCode)
	}

	s.logger.Info().Str("transaction_code", tx.TransactionCode).Str("notify_url", tx.NotifyURL).Msg("Delivered completion notification")
	return nil
}
