package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// shoppingCartCookie carries the active cart identifier on the store
// origin. "-1" and "" both mean no cart.
const shoppingCartCookie = "shoppingCartGID"

const noCartSentinel = "-1"

// originatingSNR tags cart mutations the same way the store's own
// navigation does.
const originatingSNR = "1_direct-navigation__"

type ItemKind int

const (
	ItemSub ItemKind = iota
	ItemBundle
)

func (k ItemKind) String() string {
	if k == ItemBundle {
		return "bundle"
	}
	return "sub"
}

// ItemID identifies a purchasable item: either a package ("sub") or a
// bundle of packages.
type ItemID struct {
	Kind  ItemKind
	Value string
}

func (id ItemID) String() string {
	return id.Kind.String() + "/" + id.Value
}

// ParseItemID accepts "sub/12345", "bundle/678", or bare digits, which
// are treated as a sub id.
func ParseItemID(raw string) (ItemID, error) {
	kind := ItemSub
	value := raw

	if prefix, rest, found := strings.Cut(raw, "/"); found {
		value = rest
		switch prefix {
		case "sub":
			kind = ItemSub
		case "bundle":
			kind = ItemBundle
		default:
			return ItemID{}, fmt.Errorf("%w: unknown item kind %q", ErrValidationFailure, prefix)
		}
	}

	if value == "" {
		return ItemID{}, fmt.Errorf("%w: empty item id", ErrValidationFailure)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return ItemID{}, fmt.Errorf("%w: item id %q is not numeric", ErrValidationFailure, raw)
		}
	}

	return ItemID{Kind: kind, Value: value}, nil
}

type CartItem struct {
	ID    ItemID
	Name  string
	Price decimal.Decimal
}

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Cart wraps the storefront cart endpoints for one session.
type Cart struct {
	session *Session
	log     *zap.Logger
}

func NewCart(session *Session) *Cart {
	return &Cart{session: session, log: session.log}
}

// ID returns the active cart identifier, or "" when no cart exists.
func (c *Cart) ID() string {
	gid := c.session.CookieValue(c.session.storeURL, shoppingCartCookie)
	if gid == noCartSentinel {
		return ""
	}
	return gid
}

// Fetch loads the cart page and returns its line items.
func (c *Cart) Fetch(ctx context.Context) ([]CartItem, error) {
	doc, err := c.session.GetDocument(ctx, c.session.StoreURL("/cart/"), c.session.StoreURL("/"))
	if err != nil {
		return nil, err
	}
	return parseCartPage(doc)
}

// Add puts one item into the cart and returns the resulting line
// items. The store assigns a cart identifier on the first add; it
// arrives as a cookie on the response.
func (c *Cart) Add(ctx context.Context, id ItemID) ([]CartItem, error) {
	form := url.Values{
		"action":          {"add_to_cart"},
		"originating_snr": {originatingSNR},
	}
	switch id.Kind {
	case ItemBundle:
		form.Set("bundleid", id.Value)
	default:
		form.Set("subid", id.Value)
	}

	doc, err := c.session.PostDocument(ctx, c.session.StoreURL("/cart/"), c.session.StoreURL("/cart/"), form)
	if err != nil {
		return nil, err
	}

	items, err := parseCartPage(doc)
	if err != nil {
		return nil, err
	}

	c.log.Info("item added to cart",
		zap.String("item", id.String()),
		zap.String("cart", c.ID()),
		zap.Int("items", len(items)))
	return items, nil
}

// Clear abandons the current cart by resetting the cart cookie, then
// reloads the cart page to confirm the store sees it empty.
func (c *Cart) Clear(ctx context.Context) error {
	c.session.SetCookie(c.session.storeURL, shoppingCartCookie, noCartSentinel)

	items, err := c.Fetch(ctx)
	if err != nil {
		return err
	}
	if len(items) != 0 {
		return fmt.Errorf("%w: cart still has %d items", ErrTransactionFailed, len(items))
	}

	c.log.Info("cart cleared")
	return nil
}

// AvailableCountries lists the shipping countries the cart page
// offers. The page embeds them as an opaque JSON blob; decoding it
// into code/name pairs here spares callers from scraping it
// themselves.
func (c *Cart) AvailableCountries(ctx context.Context) ([]Country, error) {
	doc, err := c.session.GetDocument(ctx, c.session.StoreURL("/cart/"), c.session.StoreURL("/"))
	if err != nil {
		return nil, err
	}
	return parseCountries(doc)
}

// SetCountry switches the cart's shipping country. The endpoint
// answers with a bare "true" on success and anything else on failure.
func (c *Cart) SetCountry(ctx context.Context, code string) error {
	if len(code) != 2 {
		return fmt.Errorf("%w: country code %q must be two letters", ErrValidationFailure, code)
	}

	form := url.Values{
		"cc": {strings.ToUpper(code)},
	}
	if sessionID := c.session.CookieValue(c.session.storeURL, "sessionid"); sessionID != "" {
		form.Set("sessionid", sessionID)
	}

	data, err := c.session.do(ctx, http.MethodPost, c.session.StoreURL("/account/setcountry"), c.session.StoreURL("/cart/"), form)
	if err != nil {
		return err
	}

	if strings.TrimSpace(string(data)) != "true" {
		return fmt.Errorf("%w: country change rejected", ErrTransactionFailed)
	}

	c.log.Info("cart country changed", zap.String("country", strings.ToUpper(code)))
	return nil
}
