package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// beginCheckoutCookie carries the cart identifier the checkout page
// hands back when a checkout begins. Gift and top-up transactions key
// off this cookie rather than the store cart cookie.
const beginCheckoutCookie = "beginCheckoutCart"

// checkoutSNR tags checkout navigation the way the store's own cart
// page does.
const checkoutSNR = "1_8_4__503"

type PurchaseKind int

const (
	PurchaseSelf PurchaseKind = iota
	PurchaseGift
	PurchaseGiftCard
)

// purchaseType is the wire value for the checkout query string. Gift
// cards ride the gift flow.
func (k PurchaseKind) purchaseType() string {
	if k == PurchaseSelf {
		return "self"
	}
	return "gift"
}

func (k PurchaseKind) String() string {
	switch k {
	case PurchaseGift:
		return "gift"
	case PurchaseGiftCard:
		return "gift card"
	default:
		return "self"
	}
}

// GiftTarget names the recipient of a gifted purchase. Exactly one of
// AccountID and Email identifies the recipient.
type GiftTarget struct {
	AccountID uint64
	Email     string
	Name      string
	Message   string
	Sentiment string
	Signature string
}

func (g *GiftTarget) validate() error {
	hasAccount := g.AccountID != 0
	hasEmail := g.Email != ""
	if hasAccount == hasEmail {
		return fmt.Errorf("%w: gift needs exactly one of account id and email", ErrValidationFailure)
	}
	return nil
}

// TransactionContext tracks one checkout attempt from begin to
// finalize. The transaction id is write-once: a context is never
// reused for a second transaction.
type TransactionContext struct {
	Kind          PurchaseKind
	CartID        string
	Gift          *GiftTarget
	transactionID string
}

func (tc *TransactionContext) TransactionID() string {
	return tc.transactionID
}

func (tc *TransactionContext) setTransactionID(id string) error {
	if tc.transactionID != "" {
		return fmt.Errorf("%w: transaction already started", ErrValidationFailure)
	}
	if id == "" {
		return fmt.Errorf("%w: empty transaction id", ErrParseFailure)
	}
	tc.transactionID = id
	return nil
}

// SelfPurchase describes a checkout delivered to the buyer's own
// account.
func SelfPurchase() *TransactionContext {
	return &TransactionContext{Kind: PurchaseSelf}
}

// GiftToAccount describes a checkout gifted to another account.
func GiftToAccount(accountID uint64, name, message, sentiment, signature string) *TransactionContext {
	return &TransactionContext{
		Kind: PurchaseGift,
		Gift: &GiftTarget{
			AccountID: accountID,
			Name:      name,
			Message:   message,
			Sentiment: sentiment,
			Signature: signature,
		},
	}
}

// GiftToEmail describes a checkout gifted to an email address.
func GiftToEmail(email, name, message, sentiment, signature string) *TransactionContext {
	return &TransactionContext{
		Kind: PurchaseGift,
		Gift: &GiftTarget{
			Email:     email,
			Name:      name,
			Message:   message,
			Sentiment: sentiment,
			Signature: signature,
		},
	}
}

// GiftCardTopUp describes a wallet top-up checkout. The gift card is
// addressed to the buyer's own email by the store, so no recipient is
// carried.
func GiftCardTopUp() *TransactionContext {
	return &TransactionContext{Kind: PurchaseGiftCard}
}

// Checkout drives the checkout endpoints for one session.
type Checkout struct {
	session            *Session
	log                *zap.Logger
	paymentMethod      string
	topUpPaymentMethod string
}

func NewCheckout(session *Session, paymentMethod, topUpPaymentMethod string) *Checkout {
	return &Checkout{
		session:            session,
		log:                session.log,
		paymentMethod:      paymentMethod,
		topUpPaymentMethod: topUpPaymentMethod,
	}
}

// methodFor selects the payment method for a purchase kind. Top-ups
// fund the wallet, so they never pay from it.
func (c *Checkout) methodFor(kind PurchaseKind) string {
	if kind == PurchaseGiftCard {
		return c.topUpPaymentMethod
	}
	return c.paymentMethod
}

// cartID reads the store cart cookie, treating the sentinel as
// absent.
func (c *Checkout) cartID() string {
	gid := c.session.CookieValue(c.session.storeURL, shoppingCartCookie)
	if gid == noCartSentinel {
		return ""
	}
	return gid
}

// checkoutCartID reads the checkout cart cookie set by Begin.
func (c *Checkout) checkoutCartID() string {
	gid := c.session.CookieValue(c.session.checkoutURL, beginCheckoutCookie)
	if gid == noCartSentinel {
		return ""
	}
	return gid
}

// Begin opens the checkout page for the current cart. It fails before
// any request is made when no cart exists. The response seeds the
// checkout cart cookie that gift and top-up transactions read later.
func (c *Checkout) Begin(ctx context.Context, tc *TransactionContext) error {
	gid := c.cartID()
	if gid == "" {
		return fmt.Errorf("%w: no cart to check out", ErrSessionMissing)
	}

	checkoutPage := c.session.CheckoutURL("/checkout/")
	query := url.Values{
		"purchasetype": {tc.Kind.purchaseType()},
		"cart":         {gid},
		"snr":          {checkoutSNR},
	}

	if _, err := c.session.GetDocument(ctx, checkoutPage+"?"+query.Encode(), c.session.StoreURL("/cart/")); err != nil {
		return err
	}

	tc.CartID = gid
	c.log.Info("checkout started",
		zap.String("cart", gid),
		zap.String("kind", tc.Kind.String()))
	return nil
}

// InitTransaction creates the transaction for a begun checkout and
// records its id on the context. Self purchases key off the store
// cart cookie; gifts and top-ups key off the checkout cart cookie.
func (c *Checkout) InitTransaction(ctx context.Context, tc *TransactionContext) error {
	var gid string
	if tc.Kind == PurchaseSelf {
		gid = c.cartID()
	} else {
		gid = c.checkoutCartID()
	}
	if gid == "" {
		return fmt.Errorf("%w: checkout not started", ErrSessionMissing)
	}

	form, err := c.initTransactionForm(tc, gid)
	if err != nil {
		return err
	}

	referer := c.session.CheckoutURL("/checkout/")
	if tc.Kind == PurchaseGiftCard {
		// The wallet flow arrives from the gift checkout page.
		referer = c.session.CheckoutURL("/checkout") + "?cart=" + gid + "&purchasetype=gift"
	}

	envelope, err := postJSON[TransactionInitPayload](ctx, c.session,
		c.session.CheckoutURL("/checkout/inittransaction/"),
		referer, form)
	if err != nil {
		return err
	}
	if !envelope.OK() {
		return fmt.Errorf("%w: transaction rejected", ErrTransactionFailed)
	}

	if err := tc.setTransactionID(envelope.Content.TransID); err != nil {
		return err
	}

	c.log.Info("transaction started",
		zap.String("transaction", tc.transactionID),
		zap.String("kind", tc.Kind.String()))
	return nil
}

func (c *Checkout) initTransactionForm(tc *TransactionContext, gid string) (url.Values, error) {
	form := url.Values{
		"gidShoppingCart":    {gid},
		"gidReplayOfTransID": {"-1"},
		"PaymentMethod":      {c.methodFor(tc.Kind)},
	}

	if tc.Kind == PurchaseSelf {
		return form, nil
	}

	if tc.Kind == PurchaseGift {
		if tc.Gift == nil {
			return nil, fmt.Errorf("%w: gift purchase without recipient", ErrValidationFailure)
		}
		if err := tc.Gift.validate(); err != nil {
			return nil, err
		}
		form.Set("bIsGift", "1")
		if tc.Gift.AccountID != 0 {
			form.Set("GifteeAccountID", strconv.FormatUint(tc.Gift.AccountID, 10))
		} else {
			form.Set("GifteeEmail", tc.Gift.Email)
		}
		form.Set("GifteeName", tc.Gift.Name)
		form.Set("GiftMessage", tc.Gift.Message)
		form.Set("Sentiment", tc.Gift.Sentiment)
		form.Set("Signature", tc.Gift.Signature)
		form.Set("ScheduledSendOnDate", "0")
		return form, nil
	}

	// Top-ups are gifts back to the buyer. The greeting fields come
	// from the locale table, and the card, address, and bank
	// placeholders the wallet flow expects ride along empty.
	form.Set("bIsGift", "1")
	form.Set("GifteeAccountID", "")
	form.Set("GifteeEmail", "")
	form.Set("GifteeName", T("gift_card_recipient"))
	form.Set("GiftMessage", T("gift_card_message"))
	form.Set("Sentiment", T("gift_card_sentiment"))
	form.Set("Signature", T("gift_card_signature"))
	form.Set("ScheduledSendOnDate", "0")
	form.Set("abortPendingTransactions", "0")
	form.Set("bHasCardInfo", "0")
	form.Set("CardNumber", "")
	form.Set("CardExpirationYear", "")
	form.Set("CardExpirationMonth", "")
	form.Set("FirstName", "")
	form.Set("LastName", "")
	form.Set("Address", "")
	form.Set("AddressTwo", "")
	form.Set("Country", "")
	form.Set("City", "")
	form.Set("State", "")
	form.Set("PostalCode", "")
	form.Set("Phone", "")
	form.Set("ShippingFirstName", "")
	form.Set("ShippingLastName", "")
	form.Set("ShippingAddress", "")
	form.Set("ShippingAddressTwo", "")
	form.Set("ShippingCountry", "")
	form.Set("ShippingCity", "")
	form.Set("ShippingState", "")
	form.Set("ShippingPostalCode", "")
	form.Set("ShippingPhone", "")
	form.Set("BankAccount", "")
	form.Set("BankCode", "")
	form.Set("BankIBAN", "")
	form.Set("BankBIC", "")
	form.Set("TPBankID", "")
	form.Set("BankAccountID", "")
	form.Set("bSaveBillingAddress", "1")
	form.Set("gidPaymentID", "")
	form.Set("bUseRemainingSteamAccount", "0")
	form.Set("bPreAuthOnly", "0")
	return form, nil
}

// FinalPrice fetches the priced breakdown of a started transaction.
func (c *Checkout) FinalPrice(ctx context.Context, tc *TransactionContext) (*FinalPrice, error) {
	raw := c.session.CookieValue(c.session.checkoutURL, beginCheckoutCookie)
	if raw == "" || raw == noCartSentinel {
		if raw == noCartSentinel {
			c.log.Debug("checkout cart cookie holds the empty sentinel")
		} else {
			c.log.Debug("checkout cart cookie absent")
		}
		return nil, fmt.Errorf("%w: checkout not started", ErrSessionMissing)
	}
	gid := raw
	if tc.transactionID == "" {
		return nil, fmt.Errorf("%w: transaction not started", ErrValidationFailure)
	}

	query := url.Values{
		"count":              {"1"},
		"transid":            {tc.transactionID},
		"purchasetype":       {tc.Kind.purchaseType()},
		"microtxnid":         {"-1"},
		"cart":               {gid},
		"gidReplayOfTransID": {"-1"},
	}

	envelope, err := getJSON[finalPricePayload](ctx, c.session,
		c.session.CheckoutURL("/checkout/getfinalprice/")+"?"+query.Encode(),
		c.session.CheckoutURL("/checkout/"))
	if err != nil {
		return nil, err
	}
	if !envelope.OK() {
		return nil, fmt.Errorf("%w: final price unavailable", ErrTransactionFailed)
	}

	return envelope.Content.toFinalPrice(), nil
}

// Cancel abandons a started transaction.
func (c *Checkout) Cancel(ctx context.Context, tc *TransactionContext) error {
	if tc.transactionID == "" {
		return fmt.Errorf("%w: transaction not started", ErrValidationFailure)
	}

	form := url.Values{"transid": {tc.transactionID}}
	envelope, err := postJSON[ResultPayload](ctx, c.session,
		c.session.CheckoutURL("/checkout/canceltransaction/"),
		c.session.CheckoutURL("/checkout/"), form)
	if err != nil {
		return err
	}
	if envelope.Success != 1 {
		return fmt.Errorf("%w: cancel rejected", ErrTransactionFailed)
	}

	c.log.Info("transaction canceled", zap.String("transaction", tc.transactionID))
	return nil
}

// browserInfo mimics the fingerprint blob the checkout page submits
// alongside finalization.
func browserInfo() string {
	blob, _ := json.Marshal(map[string]any{
		"language":     "en",
		"javaEnabled":  "false",
		"colorDepth":   24,
		"screenHeight": 1080,
		"screenWidth":  1920,
	})
	return string(blob)
}

// Finalize commits a started transaction and reports its settled
// status. The finalize acknowledgment is not the outcome; the status
// endpoint is read immediately afterwards, regardless of how the
// finalize call went, and its payload is the authoritative answer.
func (c *Checkout) Finalize(ctx context.Context, tc *TransactionContext) (TransactionStatus, error) {
	if tc.transactionID == "" {
		return StatusUnknown, fmt.Errorf("%w: transaction not started", ErrValidationFailure)
	}

	form := url.Values{
		"transid":     {tc.transactionID},
		"CardCVV2":    {""},
		"browserInfo": {browserInfo()},
	}

	finalize, err := postJSON[ResultPayload](ctx, c.session,
		c.session.CheckoutURL("/checkout/finalizetransaction/"),
		c.session.CheckoutURL("/checkout/"), form)
	if err != nil {
		return StatusUnknown, err
	}

	statusEnvelope, err := c.transactionStatus(ctx, tc)
	if err != nil {
		return StatusUnknown, err
	}
	if finalize.Content == nil {
		return StatusUnknown, fmt.Errorf("%w: no finalize result", ErrTransactionFailed)
	}
	if statusEnvelope.Content == nil {
		return StatusUnknown, fmt.Errorf("%w: no transaction status", ErrTransactionFailed)
	}
	status := parseTransactionStatus(statusEnvelope.Content.State)

	c.log.Info("transaction finalized",
		zap.String("transaction", tc.transactionID),
		zap.String("status", status.String()))
	return status, nil
}

func (c *Checkout) transactionStatus(ctx context.Context, tc *TransactionContext) (*Envelope[transactionStatusPayload], error) {
	query := url.Values{
		"count":   {"1"},
		"transid": {tc.transactionID},
	}
	return getJSON[transactionStatusPayload](ctx, c.session,
		c.session.CheckoutURL("/checkout/transactionstatus/")+"?"+query.Encode(),
		c.session.CheckoutURL("/checkout/"))
}

// ResolveExternalPayment forwards a pending transaction to its
// external payment provider. The provider form is extracted from the
// hand-off page and submitted as-is; the provider's answer is
// discarded, since settlement is observed through the status
// endpoint.
func (c *Checkout) ResolveExternalPayment(ctx context.Context, tc *TransactionContext) error {
	if tc.transactionID == "" {
		return fmt.Errorf("%w: transaction not started", ErrValidationFailure)
	}

	query := url.Values{"transid": {tc.transactionID}}
	doc, err := c.session.GetDocument(ctx,
		c.session.CheckoutURL("/checkout/externallink/")+"?"+query.Encode(),
		c.session.CheckoutURL("/checkout/"))
	if err != nil {
		return err
	}

	form, err := parseExternalPaymentForm(doc)
	if err != nil {
		return err
	}

	payload := url.Values{}
	for name, value := range form.Fields {
		payload.Set(name, value)
	}

	if _, err := c.session.do(ctx, http.MethodPost, form.Action, c.session.CheckoutURL("/checkout/"), payload); err != nil {
		return err
	}

	c.log.Info("external payment submitted",
		zap.String("transaction", tc.transactionID),
		zap.String("provider", form.Action))
	return nil
}
