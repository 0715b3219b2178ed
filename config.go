package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	StoreURL    string `yaml:"store_url"`
	CheckoutURL string `yaml:"checkout_url"`

	PaymentMethod string `yaml:"payment_method"`
	// Wallet top-ups cannot be paid from the wallet they fund, so
	// they carry their own method, an external provider by default.
	TopUpPaymentMethod string `yaml:"top_up_payment_method"`
	ExternalPayment    bool   `yaml:"external_payment"`

	CountryCode    string `yaml:"country_code"`
	WalletCurrency string `yaml:"wallet_currency"`

	GiftDefaults GiftDefaults `yaml:"gift_defaults"`

	Accounts []string `yaml:"accounts"`

	UserAgent             string `yaml:"user_agent"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`

	BrowserProfilePath string `yaml:"browser_profile_path"`
	Headless           bool   `yaml:"headless"`

	DryRun    bool `yaml:"dry_run"`
	DebugMode bool `yaml:"debug_mode"`
}

// GiftDefaults fills the gift greeting fields left empty on the
// command line.
type GiftDefaults struct {
	Name      string `yaml:"name"`
	Message   string `yaml:"message"`
	Sentiment string `yaml:"sentiment"`
	Signature string `yaml:"signature"`
}

func DefaultConfig() *Config {
	userDataDir := getUserDataDir()

	return &Config{
		StoreURL:              "https://store.steampowered.com",
		CheckoutURL:           "https://checkout.steampowered.com",
		PaymentMethod:         "steamaccount",
		TopUpPaymentMethod:    "alipay",
		ExternalPayment:       false,
		CountryCode:           "",
		WalletCurrency:        "USD",
		GiftDefaults: GiftDefaults{
			Name:      "Friend",
			Message:   "Enjoy!",
			Sentiment: "Best wishes",
			Signature: "Me",
		},
		UserAgent:             "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		RequestTimeoutSeconds: 30,
		BrowserProfilePath:    filepath.Join(userDataDir, "browser-profile"),
		Headless:              false,
		DryRun:                false,
		DebugMode:             false,
	}
}

func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path); err != nil {
			return nil, err
		}
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	if config.BrowserProfilePath != "" {
		if err := os.MkdirAll(config.BrowserProfilePath, 0755); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
