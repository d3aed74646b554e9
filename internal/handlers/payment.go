package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/eudaimonent/freemoney-gobackend/internal/services"
	"github.com/eudaimonent/freemoney-gobackend/internal/store"
)

type PaymentHandler struct {
	service               *services.PaymentService
	confirmationsRequired int
	logger                zerolog.Logger
}

func NewPaymentHandler(service *services.PaymentService, confirmationsRequired int, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:               service,
		confirmationsRequired: confirmationsRequired,
		logger:                logger.With().Str("component", "payment_handler").Logger(),
	}
}

func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var params services.PaymentParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	tx, err := h.service.Initialize(r.Context(), params, h.confirmationsRequired, requestBaseURL(r))
	if err != nil {
		h.logger.Error().Err(err).Str("transaction_code", params.TransactionCode).Msg("Failed to initialize payment")
		switch {
		case errors.Is(err, services.ErrInvalidRequest):
			http.Error(w, `{"error":"invalid payment request"}`, http.StatusBadRequest)
		case errors.Is(err, services.ErrRateUnavailable):
			http.Error(w, `{"error":"exchange rate unavailable"}`, http.StatusBadGateway)
		case errors.Is(err, services.ErrAddressProvisioningFailed):
			http.Error(w, `{"error":"address provisioning failed"}`, http.StatusBadGateway)
		case errors.Is(err, services.ErrSubscriptionFailed):
			http.Error(w, `{"error":"confirmation subscription failed"}`, http.StatusBadGateway)
		default:
			http.Error(w, `{"error":"Failed to initialize payment"}`, http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(tx); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode transaction")
	}
}

func (h *PaymentHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["transactionCode"]

	tx, err := h.service.LoadByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			http.Error(w, `{"error":"transaction not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("transaction_code", code).Msg("Failed to fetch transaction")
		http.Error(w, `{"error":"Failed to fetch transaction"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tx); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode transaction")
	}
}

func (h *PaymentHandler) GetTransactionByAddress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	address := vars["address"]

	tx, err := h.service.LoadByAddress(r.Context(), address)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			http.Error(w, `{"error":"transaction not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("address", address).Msg("Failed to fetch transaction")
		http.Error(w, `{"error":"Failed to fetch transaction"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tx); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode transaction")
	}
}

// requestBaseURL reconstructs the externally visible base URL, preferring
// the reverse proxy's forwarded headers over the connection itself.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		host = forwarded
	}
	return scheme + "://" + host
}
