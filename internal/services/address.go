package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eudaimonent/freemoney-gobackend/internal/config"
	"github.com/eudaimonent/freemoney-gobackend/internal/models"
)

// AddressProvisioner returns the receiving address for a transaction,
// requesting a fresh one from the external issuer when the transaction has
// none yet. Every transaction gets its own address; only a retried request
// for the same transaction code sees an address again. An empty address is
// a hard failure.
type AddressProvisioner interface {
	AddressForTransaction(ctx context.Context, transactionCode, payee, contact string) (string, error)
}

const addressCollection = "btc_addresses"

// AddressService persists payee address assignments and requests fresh
// addresses from the external issuer.
type AddressService struct {
	collection *mongo.Collection
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewAddressService(db *mongo.Database, cfg config.ClientConfig, logger zerolog.Logger) *AddressService {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout == 0 {
		timeout = 10 * time.Second
	}
	return &AddressService{
		collection: db.Collection(addressCollection),
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "address_service").Logger(),
	}
}

func (s *AddressService) AddressForTransaction(ctx context.Context, transactionCode, payee, contact string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var assignment models.AddressAssignment
	err := s.collection.FindOne(ctx, bson.M{"transaction_code": transactionCode}).Decode(&assignment)
	if err == nil {
		return assignment.Address, nil
	}
	if err != mongo.ErrNoDocuments {
		return "", fmt.Errorf("failed to fetch address assignment: %w", err)
	}

	address, requestID, err := s.requestAddress(ctx, payee, contact)
	if err != nil {
		return "", err
	}
	if address == "" {
		return "", ErrAddressProvisioningFailed
	}

	assignment = models.AddressAssignment{
		TransactionCode: transactionCode,
		Payee:           payee,
		Address:         address,
		RequestID:       requestID,
		CreatedAt:       time.Now(),
	}
	if _, err := s.collection.InsertOne(ctx, &assignment); err != nil {
		return "", fmt.Errorf("failed to save address assignment: %w", err)
	}

	s.logger.Info().Str("transaction_code", transactionCode).Str("payee", payee).Str("address", address).Msg("Issued new receiving address")
	return address, nil
}

func (s *AddressService) requestAddress(ctx context.Context, payee, contact string) (string, string, error) {
	requestID := uuid.NewString()
	reqBody, err := json.Marshal(map[string]string{
		"request_id": requestID,
		"payee":      payee,
		"contact":    contact,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal address request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/addresses", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", "", fmt.Errorf("failed to create address request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrAddressProvisioningFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", fmt.Errorf("%w: issuer returned status %d", ErrAddressProvisioningFailed, resp.StatusCode)
	}

	var result struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("failed to decode address response: %w", err)
	}

	return result.Address, requestID, nil
}
