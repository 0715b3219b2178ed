package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if config.StoreURL == "" {
		t.Error("Expected StoreURL to be set")
	}

	if config.CheckoutURL == "" {
		t.Error("Expected CheckoutURL to be set")
	}

	if config.PaymentMethod != "steamaccount" {
		t.Errorf("Expected PaymentMethod to be 'steamaccount', got '%s'", config.PaymentMethod)
	}

	if config.TopUpPaymentMethod != "alipay" {
		t.Errorf("Expected TopUpPaymentMethod to be 'alipay', got '%s'", config.TopUpPaymentMethod)
	}

	if config.RequestTimeoutSeconds != 30 {
		t.Errorf("Expected RequestTimeoutSeconds to be 30, got %d", config.RequestTimeoutSeconds)
	}

	if config.WalletCurrency != "USD" {
		t.Errorf("Expected WalletCurrency to be 'USD', got '%s'", config.WalletCurrency)
	}

	if config.DryRun != false {
		t.Error("Expected DryRun to be false")
	}

	if config.GiftDefaults.Name == "" {
		t.Error("Expected GiftDefaults.Name to be set")
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "storebot-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "test-config.yaml")

	config := DefaultConfig()
	config.PaymentMethod = "bitcoin"
	config.CountryCode = "de"
	config.DryRun = true
	config.Accounts = []string{"alpha", "beta"}
	config.BrowserProfilePath = filepath.Join(tempDir, "profile")

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loadedConfig, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedConfig.PaymentMethod != config.PaymentMethod {
		t.Errorf("Expected PaymentMethod to be '%s', got '%s'", config.PaymentMethod, loadedConfig.PaymentMethod)
	}

	if loadedConfig.CountryCode != config.CountryCode {
		t.Errorf("Expected CountryCode to be '%s', got '%s'", config.CountryCode, loadedConfig.CountryCode)
	}

	if loadedConfig.DryRun != config.DryRun {
		t.Errorf("Expected DryRun to be %v, got %v", config.DryRun, loadedConfig.DryRun)
	}

	if len(loadedConfig.Accounts) != 2 || loadedConfig.Accounts[0] != "alpha" {
		t.Errorf("Expected Accounts to round-trip, got %v", loadedConfig.Accounts)
	}
}

func TestLoadConfigCreatesDefaultIfMissing(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "storebot-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "new-config.yaml")

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config == nil {
		t.Fatal("LoadConfig returned nil")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created automatically")
	}

	if config.PaymentMethod != "steamaccount" {
		t.Errorf("Expected default PaymentMethod to be 'steamaccount', got '%s'", config.PaymentMethod)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "storebot-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "invalid-config.yaml")

	invalidYAML := "invalid: yaml: content: [unclosed"
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write invalid YAML: %v", err)
	}

	_, err = LoadConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid YAML, got nil")
	}
}
