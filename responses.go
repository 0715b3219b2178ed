package main

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Envelope is the storefront's JSON response wrapper: a top-level
// success flag and a nested payload. Success is 1 on the happy path;
// any other value means the request was acknowledged but refused.
type Envelope[T any] struct {
	Success int `json:"success"`
	Content *T  `json:"content"`
}

// OK reports whether the envelope carries a usable payload.
func (e *Envelope[T]) OK() bool {
	return e != nil && e.Success == 1 && e.Content != nil
}

// TransactionInitPayload is returned by /checkout/inittransaction/.
type TransactionInitPayload struct {
	TransID string `json:"transid"`
}

// ResultPayload is the generic acknowledgment returned by
// /checkout/canceltransaction/ and /checkout/finalizetransaction/.
type ResultPayload struct {
	TransID string `json:"transid"`
	Detail  int    `json:"purchaseresultdetail"`
}

// finalPricePayload is the raw getfinalprice content. All amounts are
// integer cents.
type finalPricePayload struct {
	Subtotal int64  `json:"subtotal"`
	Tax      int64  `json:"tax"`
	Shipping int64  `json:"shipping"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

// FinalPrice is a read-only price snapshot for one transaction. It is
// never cached by the orchestrator; re-fetch after any cart change.
type FinalPrice struct {
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
	Currency     string
}

func (p *finalPricePayload) toFinalPrice() *FinalPrice {
	return &FinalPrice{
		Subtotal:     decimal.New(p.Subtotal, -2),
		Tax:          decimal.New(p.Tax, -2),
		ShippingCost: decimal.New(p.Shipping, -2),
		Total:        decimal.New(p.Total, -2),
		Currency:     p.Currency,
	}
}

// transactionStatusPayload is the raw transactionstatus content.
type transactionStatusPayload struct {
	TransID string `json:"transid"`
	State   string `json:"state"`
}

// TransactionStatus is the settlement outcome of one checkout attempt.
// Success and Failed are terminal; Pending and Unknown mean poll again.
type TransactionStatus int

const (
	StatusUnknown TransactionStatus = iota
	StatusPending
	StatusSuccess
	StatusFailed
)

func (s TransactionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status ends the polling loop.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// parseTransactionStatus maps the storefront's state strings onto the
// status enum. Unrecognized states map to StatusUnknown so callers
// keep polling instead of mis-terminating.
func parseTransactionStatus(state string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "pending", "processing", "approved":
		return StatusPending
	case "complete", "success", "succeeded":
		return StatusSuccess
	case "failed", "declined", "canceled", "cancelled":
		return StatusFailed
	default:
		return StatusUnknown
	}
}
