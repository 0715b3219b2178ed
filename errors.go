package main

import "errors"

// Failure classes for the checkout pipeline. Every step wraps one of
// these so callers can branch with errors.Is without string sniffing.
var (
	// ErrSessionMissing means a required cart cookie is absent or holds
	// the empty sentinel. No request was sent.
	ErrSessionMissing = errors.New("session cart id missing")

	// ErrNetworkFailure means the transport returned no usable response.
	ErrNetworkFailure = errors.New("network request failed")

	// ErrParseFailure means a response arrived but an expected field or
	// payload could not be extracted from it.
	ErrParseFailure = errors.New("response parse failed")

	// ErrValidationFailure means caller input was malformed before any
	// request was issued.
	ErrValidationFailure = errors.New("invalid input")

	// ErrTransactionFailed means the storefront reported that the
	// purchase did not complete. The transaction context is not
	// reusable; restart from BeginCheckout.
	ErrTransactionFailed = errors.New("transaction failed")
)

func isSessionMissing(err error) bool {
	return errors.Is(err, ErrSessionMissing)
}

func isNetworkFailure(err error) bool {
	return errors.Is(err, ErrNetworkFailure)
}

func isTransactionFailed(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
