package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Locale struct {
	translations map[string]string
	locale       string
}

var globalLocale *Locale

// InitLocale loads the translation table for the system locale,
// falling back to English.
func InitLocale() error {
	locale := DetectSystemLocale()

	l, err := LoadLocale(locale)
	if err != nil {
		fmt.Printf("Warning: Failed to load locale '%s', falling back to en_US: %v\n", locale, err)
		l, err = LoadLocale("en_US")
		if err != nil {
			return fmt.Errorf("failed to load fallback locale en_US: %w", err)
		}
	}

	globalLocale = l
	return nil
}

// DetectSystemLocale reads the locale from the usual environment
// variables, e.g. "en_US" out of "en_US.UTF-8".
func DetectSystemLocale() string {
	for _, name := range []string{"LANG", "LC_ALL", "LC_MESSAGES"} {
		if locale := os.Getenv(name); locale != "" {
			if base, _, _ := strings.Cut(locale, "."); base != "" {
				return base
			}
		}
	}
	return "en_US"
}

// LoadLocale reads a translation file from the lang/ directory next
// to the executable.
func LoadLocale(locale string) (*Locale, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	localeFile := filepath.Join(filepath.Dir(exePath), "lang", locale+".yaml")

	data, err := os.ReadFile(localeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read locale file %s: %w", localeFile, err)
	}

	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse locale file %s: %w", localeFile, err)
	}

	return &Locale{
		translations: translations,
		locale:       locale,
	}, nil
}

// T translates a key, applying fmt-style parameters when given.
// Unknown keys come back verbatim so output never goes missing.
func T(key string, params ...interface{}) string {
	if globalLocale == nil {
		return key
	}

	translation, ok := globalLocale.translations[key]
	if !ok {
		return key
	}

	if len(params) > 0 {
		return fmt.Sprintf(translation, params...)
	}
	return translation
}

// GetLocale returns the active locale code.
func GetLocale() string {
	if globalLocale == nil {
		return "en_US"
	}
	return globalLocale.locale
}
