package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/eudaimonent/freemoney-gobackend/internal/config"
)

// RateLookup resolves the settlement-currency exchange rate for a source
// currency.
type RateLookup interface {
	LookupRate(ctx context.Context, currencyCode string) (decimal.Decimal, error)
}

// ExchangeRateService queries the external rate service over HTTP.
type ExchangeRateService struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewExchangeRateService(cfg config.ClientConfig, logger zerolog.Logger) *ExchangeRateService {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ExchangeRateService{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "exchange_rate_service").Logger(),
	}
}

func (s *ExchangeRateService) LookupRate(ctx context.Context, currencyCode string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/rates?currency=%s", s.baseURL, url.QueryEscape(currencyCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create rate request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate lookup failed with status %d", resp.StatusCode)
	}

	var result struct {
		Currency string `json:"currency"`
		Rate     string `json:"rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rate response: %w", err)
	}

	rate, err := decimal.NewFromString(result.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q: %w", result.Rate, err)
	}

	s.logger.Debug().Str("currency", currencyCode).Str("rate", rate.String()).Msg("Looked up exchange rate")
	return rate, nil
}

// Converter turns an amount in a source currency into the settlement
// currency, preferring a configured fixed rate over the rate service.
type Converter struct {
	settlementCurrency string
	fixedRate          decimal.Decimal
	rates              RateLookup
	logger             zerolog.Logger
}

func NewConverter(cfg config.SettlementConfig, rates RateLookup, logger zerolog.Logger) *Converter {
	fixed := decimal.Zero
	if cfg.FixedExchangeRate != "" {
		if parsed, err := decimal.NewFromString(cfg.FixedExchangeRate); err == nil {
			fixed = parsed
		}
	}
	return &Converter{
		settlementCurrency: cfg.Currency,
		fixedRate:          fixed,
		rates:              rates,
		logger:             logger.With().Str("component", "converter").Logger(),
	}
}

func (c *Converter) SettlementCurrency() string {
	return c.settlementCurrency
}

// Convert resolves amount into the settlement currency, rounded half away
// from zero to 4 decimal places. The rounding is applied exactly once, at
// transaction creation.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, currencyCode string) (decimal.Decimal, error) {
	if currencyCode == c.settlementCurrency {
		return amount, nil
	}

	rate := c.fixedRate
	if rate.IsZero() {
		looked, err := c.rates.LookupRate(ctx, currencyCode)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
		}
		rate = looked
	}
	if rate.IsZero() {
		return decimal.Zero, ErrRateUnavailable
	}

	converted := amount.Div(rate).Round(4)
	c.logger.Info().
		Str("amount", amount.String()).
		Str("currency", currencyCode).
		Str("converted", converted.StringFixed(4)).
		Str("settlement_currency", c.settlementCurrency).
		Msg("Converted amount to settlement currency")
	return converted, nil
}
