package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGiftCardOptionsList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/digitalgiftcards/selectgiftcard" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`<html><body>
<div class="giftcard_selection" data-amount="5"><div class="giftcard_text">$5.00</div></div>
<div class="giftcard_selection" data-amount="50"><div class="giftcard_text">$50.00</div></div>
</body></html>`))
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	giftCards := NewGiftCards(session)

	options, err := giftCards.Options(context.Background())
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}

	if len(options) != 2 {
		t.Fatalf("Expected 2 options, got %d", len(options))
	}
	if options[0].Amount != "5" || !options[0].Price.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Unexpected first option: %+v", options[0])
	}
}

func TestGiftCardSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/digitalgiftcards/submitgiftcard" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		if got := r.PostForm.Get("action"); got != "add_to_cart" {
			t.Errorf("Expected action 'add_to_cart', got %q", got)
		}
		if got := r.PostForm.Get("currency"); got != "USD" {
			t.Errorf("Expected currency 'USD', got %q", got)
		}
		if got := r.PostForm.Get("amount"); got != "20" {
			t.Errorf("Expected amount '20', got %q", got)
		}
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	giftCards := NewGiftCards(session)

	if err := giftCards.Submit(context.Background(), "USD", "20"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
}

func TestGiftCardSubmitValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Invalid submissions must not reach the server")
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	giftCards := NewGiftCards(session)

	if err := giftCards.Submit(context.Background(), "USD", ""); !errors.Is(err, ErrValidationFailure) {
		t.Errorf("Expected ErrValidationFailure for empty amount, got %v", err)
	}
	if err := giftCards.Submit(context.Background(), "", "20"); !errors.Is(err, ErrValidationFailure) {
		t.Errorf("Expected ErrValidationFailure for empty currency, got %v", err)
	}
}
