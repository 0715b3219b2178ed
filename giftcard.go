package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GiftCardOption is one denomination offered on the gift card page.
// Amount is the store's own token for the denomination; Price is what
// it costs in the wallet currency.
type GiftCardOption struct {
	Amount string
	Price  decimal.Decimal
}

// GiftCards wraps the digital gift card endpoints for one session.
// Submitting a card seeds the cart, after which the purchase runs
// through the regular checkout as a top-up transaction.
type GiftCards struct {
	session *Session
	log     *zap.Logger
}

func NewGiftCards(session *Session) *GiftCards {
	return &GiftCards{session: session, log: session.log}
}

// Options lists the denominations currently offered.
func (g *GiftCards) Options(ctx context.Context) ([]GiftCardOption, error) {
	doc, err := g.session.GetDocument(ctx,
		g.session.StoreURL("/digitalgiftcards/selectgiftcard"),
		g.session.StoreURL("/"))
	if err != nil {
		return nil, err
	}
	return parseGiftCardOptions(doc)
}

// Submit puts a gift card of the given denomination into the cart.
// Currency is the buyer's wallet currency code; amount must be one of
// the offered denominations.
func (g *GiftCards) Submit(ctx context.Context, currency, amount string) error {
	if amount == "" {
		return fmt.Errorf("%w: empty gift card amount", ErrValidationFailure)
	}
	if currency == "" {
		return fmt.Errorf("%w: empty wallet currency", ErrValidationFailure)
	}

	form := url.Values{
		"action":   {"add_to_cart"},
		"currency": {currency},
		"amount":   {amount},
	}

	if _, err := g.session.do(ctx, http.MethodPost,
		g.session.StoreURL("/digitalgiftcards/submitgiftcard"),
		g.session.StoreURL("/digitalgiftcards/selectgiftcard"), form); err != nil {
		return err
	}

	g.log.Info("gift card added to cart",
		zap.String("currency", currency),
		zap.String("amount", amount))
	return nil
}
