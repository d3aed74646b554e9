package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/eudaimonent/freemoney-gobackend/internal/config"
	"github.com/eudaimonent/freemoney-gobackend/internal/models"
	"github.com/eudaimonent/freemoney-gobackend/internal/services"
	"github.com/eudaimonent/freemoney-gobackend/internal/store"
)

func newTestPaymentHandler(mem store.TransactionStore, subscriber services.ConfirmationSubscriber) *PaymentHandler {
	converter := services.NewConverter(config.SettlementConfig{
		Currency:          "BTC",
		FixedExchangeRate: "500",
	}, nil, zerolog.Nop())
	cfg := &config.Config{Monitor: config.MonitorConfig{Name: "bitcoinmonitor"}}
	svc := services.NewPaymentService(mem, converter, &stubProvisioner{address: "1BitcoinAddrNew"}, subscriber, cfg, zerolog.Nop())
	return NewPaymentHandler(svc, 3, zerolog.Nop())
}

func TestCreatePayment(t *testing.T) {
	mem := store.NewMemoryStore()
	subscriber := &stubSubscriber{ok: true}
	h := newTestPaymentHandler(mem, subscriber)

	body, _ := json.Marshal(services.PaymentParams{
		TransactionCode: "TX-200",
		Payee:           "avatar-1",
		ItemName:        "Magic Sword",
		Amount:          "100",
		CurrencyCode:    "USD",
		NotifyURL:       "http://sim.example.com/notify",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/payment", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	h.CreatePayment(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var tx models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if tx.SettlementAmount != "0.2000" {
		t.Errorf("expected settlement amount 0.2000, got %s", tx.SettlementAmount)
	}
	if tx.ReceivingAddress != "1BitcoinAddrNew" {
		t.Errorf("expected provisioned address, got %s", tx.ReceivingAddress)
	}

	// httptest requests carry Host example.com; the callback must be derived
	// from it when no external URL is configured.
	wantCallback := "http://example.com/confirmation-callback/?service=bitcoinmonitor"
	if subscriber.lastCallback != wantCallback {
		t.Errorf("expected callback %s, got %s", wantCallback, subscriber.lastCallback)
	}
}

func TestCreatePaymentForwardedHeaders(t *testing.T) {
	mem := store.NewMemoryStore()
	subscriber := &stubSubscriber{ok: true}
	h := newTestPaymentHandler(mem, subscriber)

	body, _ := json.Marshal(services.PaymentParams{
		TransactionCode: "TX-210",
		Payee:           "avatar-1",
		Amount:          "100",
		CurrencyCode:    "USD",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/payment", bytes.NewBuffer(body))
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "pay.example.com")
	rec := httptest.NewRecorder()
	h.CreatePayment(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	wantCallback := "https://pay.example.com/confirmation-callback/?service=bitcoinmonitor"
	if subscriber.lastCallback != wantCallback {
		t.Errorf("expected callback %s, got %s", wantCallback, subscriber.lastCallback)
	}
}

func TestCreatePaymentInvalidBody(t *testing.T) {
	h := newTestPaymentHandler(store.NewMemoryStore(), &stubSubscriber{ok: true})

	req := httptest.NewRequest(http.MethodPost, "/api/payment", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.CreatePayment(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreatePaymentEmptyCode(t *testing.T) {
	mem := store.NewMemoryStore()
	h := newTestPaymentHandler(mem, &stubSubscriber{ok: true})

	body, _ := json.Marshal(services.PaymentParams{
		Payee:        "avatar-1",
		Amount:       "100",
		CurrencyCode: "USD",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/payment", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	h.CreatePayment(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreatePaymentSubscriptionFailure(t *testing.T) {
	h := newTestPaymentHandler(store.NewMemoryStore(), &stubSubscriber{ok: false})

	body, _ := json.Marshal(services.PaymentParams{
		TransactionCode: "TX-201",
		Payee:           "avatar-1",
		Amount:          "100",
		CurrencyCode:    "USD",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/payment", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	h.CreatePayment(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestGetTransaction(t *testing.T) {
	mem := store.NewMemoryStore()
	tx := seedConfirmedTransaction(t, mem, "http://sim.example.com/notify")
	h := newTestPaymentHandler(mem, &stubSubscriber{ok: true})

	router := mux.NewRouter()
	router.HandleFunc("/api/transaction/{transactionCode}", h.GetTransaction).Methods("GET")

	req := httptest.NewRequest(http.MethodGet, "/api/transaction/"+tx.TransactionCode, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.TransactionCode != tx.TransactionCode {
		t.Errorf("expected code %s, got %s", tx.TransactionCode, got.TransactionCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/transaction/TX-missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetTransactionByAddress(t *testing.T) {
	mem := store.NewMemoryStore()
	tx := seedConfirmedTransaction(t, mem, "http://sim.example.com/notify")
	h := newTestPaymentHandler(mem, &stubSubscriber{ok: true})

	router := mux.NewRouter()
	router.HandleFunc("/api/address/{address}/transaction", h.GetTransactionByAddress).Methods("GET")

	req := httptest.NewRequest(http.MethodGet, "/api/address/"+tx.ReceivingAddress+"/transaction", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.TransactionCode != tx.TransactionCode {
		t.Errorf("expected the same row by address, got %s", got.TransactionCode)
	}
}
