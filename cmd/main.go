package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/eudaimonent/freemoney-gobackend/internal/config"
	"github.com/eudaimonent/freemoney-gobackend/internal/db"
	"github.com/eudaimonent/freemoney-gobackend/internal/handlers"
	"github.com/eudaimonent/freemoney-gobackend/internal/logging"
	"github.com/eudaimonent/freemoney-gobackend/internal/services"
	"github.com/eudaimonent/freemoney-gobackend/internal/store"
)

func main() {
	logger := logging.New(config.LoggingConfig{Level: "info"})

	cfg, err := config.Load("config.yaml")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = logging.New(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := db.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Error disconnecting from MongoDB")
		}
	}()
	logger.Info().Msg("Connected to MongoDB")

	database := client.Database(cfg.Mongo.Database)

	txStore := store.NewMongoStore(database)
	if err := txStore.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create transaction indexes")
	}

	rateService := services.NewExchangeRateService(cfg.RateService, logger)
	converter := services.NewConverter(cfg.Settlement, rateService, logger)
	addressService := services.NewAddressService(database, cfg.AddressService, logger)
	monitorService := services.NewMonitorService(cfg.Monitor, logger)
	notifier := services.NewNotificationService(logger)

	paymentService := services.NewPaymentService(txStore, converter, addressService, monitorService, cfg, logger)

	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg.Settlement.ConfirmationsRequired, logger)
	confirmationHandler := handlers.NewConfirmationHandler(paymentService, notifier, cfg.Server.CallbackToken, logger)

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")
	router.HandleFunc("/api/payment", paymentHandler.CreatePayment).Methods("POST")
	router.HandleFunc("/api/transaction/{transactionCode}", paymentHandler.GetTransaction).Methods("GET")
	router.HandleFunc("/api/address/{address}/transaction", paymentHandler.GetTransactionByAddress).Methods("GET")
	router.HandleFunc(services.ConfirmationCallbackPath, confirmationHandler.Callback).Methods("POST")

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Info().Str("port", cfg.Server.Port).Msg("Server running")
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
}
