package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// parseCartPage extracts the line items rendered on the cart page.
// The cart identifier itself travels in a cookie, not in the markup.
func parseCartPage(doc *goquery.Document) ([]CartItem, error) {
	var items []CartItem
	var parseErr error

	doc.Find("div.cart_row").Each(func(_ int, row *goquery.Selection) {
		if parseErr != nil {
			return
		}

		item := CartItem{
			Name: strings.TrimSpace(row.Find(".cart_item_desc").Text()),
		}

		if subID, ok := row.Attr("data-subid"); ok && subID != "" {
			item.ID = ItemID{Kind: ItemSub, Value: subID}
		} else if bundleID, ok := row.Attr("data-bundleid"); ok && bundleID != "" {
			item.ID = ItemID{Kind: ItemBundle, Value: bundleID}
		} else {
			parseErr = fmt.Errorf("%w: cart row without item id", ErrParseFailure)
			return
		}

		priceText := strings.TrimSpace(row.Find(".cart_item_price").Text())
		price, err := parsePriceText(priceText)
		if err != nil {
			parseErr = err
			return
		}
		item.Price = price

		items = append(items, item)
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return items, nil
}

// parsePriceText reads a rendered price like "$19.99" or "19,99€".
// The currency symbol is kept out of the decimal value.
func parsePriceText(text string) (decimal.Decimal, error) {
	var digits strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '.' || r == ',':
			digits.WriteRune('.')
		}
	}
	if digits.Len() == 0 {
		return decimal.Zero, fmt.Errorf("%w: no price in %q", ErrParseFailure, text)
	}
	price, err := decimal.NewFromString(digits.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q: %v", ErrParseFailure, text, err)
	}
	return price, nil
}

// parseCountries reads the shipping country list the cart page embeds
// as a JSON blob in a hidden input.
func parseCountries(doc *goquery.Document) ([]Country, error) {
	blob, ok := doc.Find("input#country_data").Attr("value")
	if !ok || blob == "" {
		return nil, fmt.Errorf("%w: country data not found", ErrParseFailure)
	}

	var countries []Country
	if err := json.Unmarshal([]byte(blob), &countries); err != nil {
		return nil, fmt.Errorf("%w: country data: %v", ErrParseFailure, err)
	}
	return countries, nil
}

// parseGiftCardOptions reads the fixed denominations offered on the
// gift card selection page.
func parseGiftCardOptions(doc *goquery.Document) ([]GiftCardOption, error) {
	var options []GiftCardOption
	var parseErr error

	doc.Find("div.giftcard_selection").Each(func(_ int, sel *goquery.Selection) {
		if parseErr != nil {
			return
		}

		amount, ok := sel.Attr("data-amount")
		if !ok || amount == "" {
			parseErr = fmt.Errorf("%w: gift card option without amount", ErrParseFailure)
			return
		}

		price, err := parsePriceText(strings.TrimSpace(sel.Find(".giftcard_text").Text()))
		if err != nil {
			parseErr = err
			return
		}

		options = append(options, GiftCardOption{Amount: amount, Price: price})
	})

	if parseErr != nil {
		return nil, parseErr
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: no gift card options", ErrParseFailure)
	}
	return options, nil
}

// externalPaymentForm is the provider hand-off form found on the
// external payment page: the provider URL plus every field the form
// carries.
type externalPaymentForm struct {
	Action string
	Fields map[string]string
}

// parseExternalPaymentForm extracts the provider form from the
// external payment page.
func parseExternalPaymentForm(doc *goquery.Document) (*externalPaymentForm, error) {
	form := doc.Find("form#externalForm").First()
	if form.Length() == 0 {
		return nil, fmt.Errorf("%w: external payment form not found", ErrParseFailure)
	}

	action, ok := form.Attr("action")
	if !ok || action == "" {
		return nil, fmt.Errorf("%w: external payment form without action", ErrParseFailure)
	}

	fields := make(map[string]string)
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := input.Attr("value")
		fields[name] = value
	})

	return &externalPaymentForm{Action: action, Fields: fields}, nil
}
