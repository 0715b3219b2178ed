package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
)

// fakeStore is a stateful stand-in for the whole storefront, enough
// to run the pipelines end to end.
type fakeStore struct {
	server *httptest.Server

	initForm      url.Values
	finalized     bool
	canceled      bool
	statusCalls   int
	giftCardForm  url.Values
	checkoutQuery url.Values
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()

	store := &fakeStore{}
	mux := http.NewServeMux()

	mux.HandleFunc("/cart/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.SetCookie(w, &http.Cookie{Name: shoppingCartCookie, Value: "flowcart", Path: "/"})
			w.Write([]byte(cartPageFixture))
			return
		}
		// GET renders whatever the cart cookie implies; the sentinel
		// reads back as empty.
		if cookie, err := r.Cookie(shoppingCartCookie); err != nil || cookie.Value == "-1" {
			w.Write([]byte(`<html><body><div class="cart_area"></div></body></html>`))
			return
		}
		w.Write([]byte(cartPageFixture))
	})

	mux.HandleFunc("/checkout/", func(w http.ResponseWriter, r *http.Request) {
		store.checkoutQuery = r.URL.Query()
		http.SetCookie(w, &http.Cookie{Name: beginCheckoutCookie, Value: "flowcart", Path: "/"})
		w.Write([]byte("<html><body>checkout</body></html>"))
	})

	mux.HandleFunc("/checkout/inittransaction/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		store.initForm = r.PostForm
		fmt.Fprint(w, `{"success":1,"content":{"transid":"flowtx"}}`)
	})

	mux.HandleFunc("/checkout/getfinalprice/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":1,"content":{"subtotal":1999,"tax":0,"shipping":0,"total":1999,"currency":"USD"}}`)
	})

	mux.HandleFunc("/checkout/finalizetransaction/", func(w http.ResponseWriter, r *http.Request) {
		store.finalized = true
		fmt.Fprint(w, `{"success":1,"content":{"transid":"flowtx"}}`)
	})

	mux.HandleFunc("/checkout/transactionstatus/", func(w http.ResponseWriter, r *http.Request) {
		store.statusCalls++
		fmt.Fprint(w, `{"success":1,"content":{"transid":"flowtx","state":"complete"}}`)
	})

	mux.HandleFunc("/checkout/canceltransaction/", func(w http.ResponseWriter, r *http.Request) {
		store.canceled = true
		fmt.Fprint(w, `{"success":1,"content":{"transid":"flowtx"}}`)
	})

	mux.HandleFunc("/digitalgiftcards/submitgiftcard", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		store.giftCardForm = r.PostForm
		http.SetCookie(w, &http.Cookie{Name: shoppingCartCookie, Value: "flowcart", Path: "/"})
	})

	store.server = httptest.NewServer(mux)
	t.Cleanup(store.server.Close)
	return store
}

func newFlowRunner(t *testing.T, store *fakeStore, dryRun bool) *Runner {
	t.Helper()

	config := DefaultConfig()
	config.StoreURL = store.server.URL
	config.CheckoutURL = store.server.URL
	config.RequestTimeoutSeconds = 5
	config.DryRun = dryRun

	session, err := NewSession(config, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return NewRunner(session, config)
}

func TestRunItemPurchaseSelf(t *testing.T) {
	store := newFakeStore(t)
	runner := newFlowRunner(t, store, false)

	items := []ItemID{{Kind: ItemSub, Value: "12345"}}
	report, err := runner.RunItemPurchase(context.Background(), items, SelfPurchase())
	if err != nil {
		t.Fatalf("RunItemPurchase failed: %v", err)
	}

	if report.TransactionID != "flowtx" {
		t.Errorf("Expected transaction 'flowtx', got %q", report.TransactionID)
	}
	if report.Status != StatusSuccess {
		t.Errorf("Expected StatusSuccess, got %v", report.Status)
	}
	if !report.Price.Total.Equal(decimal.NewFromFloat(19.99)) {
		t.Errorf("Expected total 19.99, got %s", report.Price.Total)
	}
	if !store.finalized {
		t.Error("Expected transaction to be finalized")
	}
	// Finalize reads the status endpoint exactly once.
	if store.statusCalls != 1 {
		t.Errorf("Expected 1 status poll, got %d", store.statusCalls)
	}
	if store.initForm.Has("bIsGift") {
		t.Error("Self purchase must not carry gift fields")
	}

	// A successful purchase abandons the spent cart.
	if got := runner.cart.ID(); got != "" {
		t.Errorf("Expected cart to be cleared after success, got %q", got)
	}
}

func TestRunPurchaseDryRun(t *testing.T) {
	store := newFakeStore(t)
	runner := newFlowRunner(t, store, true)

	items := []ItemID{{Kind: ItemSub, Value: "12345"}}
	report, err := runner.RunItemPurchase(context.Background(), items, SelfPurchase())
	if err != nil {
		t.Fatalf("RunItemPurchase failed: %v", err)
	}

	if !report.DryRun {
		t.Error("Expected report to be marked dry run")
	}
	if !store.canceled {
		t.Error("Expected transaction to be canceled")
	}
	if store.finalized {
		t.Error("Dry run must never finalize")
	}
	if !report.Price.Total.Equal(decimal.NewFromFloat(19.99)) {
		t.Errorf("Expected priced total 19.99, got %s", report.Price.Total)
	}
}

func TestRunItemPurchaseGift(t *testing.T) {
	store := newFakeStore(t)
	runner := newFlowRunner(t, store, false)

	items := []ItemID{{Kind: ItemBundle, Value: "678"}}
	tc := GiftToAccount(7654321, "Alex", "Enjoy!", "Best wishes", "Me")

	report, err := runner.RunItemPurchase(context.Background(), items, tc)
	if err != nil {
		t.Fatalf("RunItemPurchase failed: %v", err)
	}

	if report.Status != StatusSuccess {
		t.Errorf("Expected StatusSuccess, got %v", report.Status)
	}
	if got := store.checkoutQuery.Get("purchasetype"); got != "gift" {
		t.Errorf("Expected purchasetype 'gift', got %q", got)
	}
	if got := store.initForm.Get("GifteeAccountID"); got != "7654321" {
		t.Errorf("Expected GifteeAccountID '7654321', got %q", got)
	}
}

func TestRunGiftCardTopUp(t *testing.T) {
	store := newFakeStore(t)
	runner := newFlowRunner(t, store, false)

	report, err := runner.RunGiftCardTopUp(context.Background(), "USD", "20")
	if err != nil {
		t.Fatalf("RunGiftCardTopUp failed: %v", err)
	}

	if got := store.giftCardForm.Get("amount"); got != "20" {
		t.Errorf("Expected gift card amount '20', got %q", got)
	}
	if got := store.giftCardForm.Get("currency"); got != "USD" {
		t.Errorf("Expected gift card currency 'USD', got %q", got)
	}
	if got := store.checkoutQuery.Get("purchasetype"); got != "gift" {
		t.Errorf("Expected purchasetype 'gift', got %q", got)
	}
	if !store.initForm.Has("abortPendingTransactions") {
		t.Error("Expected top-up init form to carry wallet placeholders")
	}
	if got := store.initForm.Get("PaymentMethod"); got != "alipay" {
		t.Errorf("Expected top-up to pay externally, got %q", got)
	}
	if report.Status != StatusSuccess {
		t.Errorf("Expected StatusSuccess, got %v", report.Status)
	}
}
