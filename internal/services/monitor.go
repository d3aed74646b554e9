package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/eudaimonent/freemoney-gobackend/internal/config"
)

// ConfirmationSubscriber registers interest in confirmation events for a
// receiving address. Subscribing twice for the same address is safe; the
// monitor treats it as a refresh and duplicate deliveries are neutralized
// by the store's conditional counter update.
type ConfirmationSubscriber interface {
	Subscribe(ctx context.Context, address string, confirmationsRequired int, callbackURL string) (bool, error)
}

// MonitorService talks to the external blockchain monitor.
type MonitorService struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewMonitorService(cfg config.MonitorConfig, logger zerolog.Logger) *MonitorService {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout == 0 {
		timeout = 10 * time.Second
	}
	return &MonitorService{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "monitor_service").Logger(),
	}
}

func (s *MonitorService) Subscribe(ctx context.Context, address string, confirmationsRequired int, callbackURL string) (bool, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"address":                address,
		"confirmations_required": confirmationsRequired,
		"callback_url":           callbackURL,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal subscription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/subscriptions", bytes.NewBuffer(reqBody))
	if err != nil {
		return false, fmt.Errorf("failed to create subscription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("subscription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		s.logger.Warn().
			Str("address", address).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Monitor rejected subscription")
		return false, nil
	}

	s.logger.Info().Str("address", address).Str("callback_url", callbackURL).Msg("Subscribed for confirmations")
	return true, nil
}
