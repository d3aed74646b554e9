package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server         ServerConfig     `yaml:"server"`
	Mongo          MongoConfig      `yaml:"mongo"`
	Settlement     SettlementConfig `yaml:"settlement"`
	RateService    ClientConfig     `yaml:"rate_service"`
	AddressService ClientConfig     `yaml:"address_service"`
	Monitor        MonitorConfig    `yaml:"monitor"`
	Logging        LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	CallbackToken string `yaml:"callback_token"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type SettlementConfig struct {
	// Currency is the settlement currency all transactions are tracked in.
	Currency string `yaml:"currency"`
	// FixedExchangeRate short-circuits the rate service when non-zero.
	// "0" or empty means "not configured".
	FixedExchangeRate     string `yaml:"fixed_exchange_rate"`
	ConfirmationsRequired int    `yaml:"confirmations_required"`
	// ExternalURL, when set, overrides the request base URL in the
	// confirmation callback given to the monitor.
	ExternalURL string `yaml:"external_url"`
}

type ClientConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

type MonitorConfig struct {
	BaseURL string `yaml:"base_url"`
	Name    string `yaml:"name"`
	Timeout int    `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads .env, then the YAML config file, then applies environment
// overrides for the values that carry secrets.
func Load(path string) (*Config, error) {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	if path == "" {
		path = "config.yaml"
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if uri := os.Getenv("MONGO_URI"); uri != "" {
		config.Mongo.URI = uri
	}
	if token := os.Getenv("CALLBACK_TOKEN"); token != "" {
		config.Server.CallbackToken = token
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Mongo.Database == "" {
		config.Mongo.Database = "freemoneydb"
	}
	if config.Settlement.Currency == "" {
		config.Settlement.Currency = "BTC"
	}
	if config.Settlement.ConfirmationsRequired == 0 {
		config.Settlement.ConfirmationsRequired = 3
	}
	if config.Monitor.Name == "" {
		config.Monitor.Name = "bitcoinmonitor"
	}

	return &config, nil
}
