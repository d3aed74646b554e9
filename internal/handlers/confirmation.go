package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eudaimonent/freemoney-gobackend/internal/services"
	"github.com/eudaimonent/freemoney-gobackend/internal/store"
)

// ConfirmationHandler receives confirmation events from the external
// monitor and drives the threshold/notification gate.
type ConfirmationHandler struct {
	service       *services.PaymentService
	notifier      *services.NotificationService
	callbackToken string
	logger        zerolog.Logger
}

func NewConfirmationHandler(service *services.PaymentService, notifier *services.NotificationService, callbackToken string, logger zerolog.Logger) *ConfirmationHandler {
	return &ConfirmationHandler{
		service:       service,
		notifier:      notifier,
		callbackToken: callbackToken,
		logger:        logger.With().Str("component", "confirmation_handler").Logger(),
	}
}

type confirmationEvent struct {
	Address       string `json:"address"`
	Confirmations int    `json:"confirmations"`
}

// Callback ingests one confirmation event. A non-2xx response tells the
// monitor to redeliver; stale or duplicate counts are acknowledged with 200.
func (h *ConfirmationHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.callbackToken != "" && r.Header.Get("x-callback-token") != h.callbackToken {
		http.Error(w, `{"error":"Unauthorized callback"}`, http.StatusUnauthorized)
		return
	}

	var event confirmationEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, `{"error":"Invalid callback payload"}`, http.StatusBadRequest)
		return
	}
	if event.Address == "" {
		http.Error(w, `{"error":"address is required"}`, http.StatusBadRequest)
		return
	}

	tx, err := h.service.LoadByAddress(r.Context(), event.Address)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			http.Error(w, `{"error":"no transaction for address"}`, http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("address", event.Address).Msg("Failed to load transaction for confirmation event")
		http.Error(w, `{"error":"Failed to load transaction"}`, http.StatusInternalServerError)
		return
	}

	if err := h.service.RecordConfirmations(r.Context(), tx, event.Confirmations); err != nil {
		h.logger.Error().Err(err).Str("transaction_code", tx.TransactionCode).Msg("Failed to record confirmations")
		http.Error(w, `{"error":"Failed to record confirmations"}`, http.StatusInternalServerError)
		return
	}

	if h.service.IsConfirmationThresholdMet(tx, event.Confirmations) && !h.service.IsNotificationSent(tx) {
		marked, err := h.service.MarkNotified(r.Context(), tx)
		if err != nil {
			h.logger.Error().Err(err).Str("transaction_code", tx.TransactionCode).Msg("Failed to mark transaction notified")
			http.Error(w, `{"error":"Failed to mark transaction notified"}`, http.StatusInternalServerError)
			return
		}
		if marked {
			if err := h.notifier.Notify(r.Context(), tx); err != nil {
				h.logger.Error().Err(err).Str("transaction_code", tx.TransactionCode).Msg("Completion notification failed")
				http.Error(w, `{"error":"Completion notification failed"}`, http.StatusBadGateway)
				return
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}
