package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PurchaseReport summarizes one completed pipeline run.
type PurchaseReport struct {
	TransactionID string
	Price         *FinalPrice
	Status        TransactionStatus
	Elapsed       time.Duration
	DryRun        bool
}

// Runner drives a full purchase from cart to settled transaction,
// printing progress as it goes.
type Runner struct {
	session   *Session
	cart      *Cart
	checkout  *Checkout
	giftCards *GiftCards
	config    *Config
	log       *zap.Logger
}

func NewRunner(session *Session, config *Config) *Runner {
	return &Runner{
		session:   session,
		cart:      NewCart(session),
		checkout:  NewCheckout(session, config.PaymentMethod, config.TopUpPaymentMethod),
		giftCards: NewGiftCards(session),
		config:    config,
		log:       session.log,
	}
}

// RunItemPurchase buys the given items in one transaction. The cart
// is rebuilt from scratch so stale items never ride along.
func (r *Runner) RunItemPurchase(ctx context.Context, items []ItemID, tc *TransactionContext) (*PurchaseReport, error) {
	if err := r.cart.Clear(ctx); err != nil {
		return nil, err
	}

	for _, item := range items {
		fmt.Println(T("adding_item", item.String()))
		if _, err := r.cart.Add(ctx, item); err != nil {
			return nil, err
		}
	}

	return r.RunPurchase(ctx, tc)
}

// RunGiftCardTopUp buys a wallet gift card of the given denomination.
func (r *Runner) RunGiftCardTopUp(ctx context.Context, currency, amount string) (*PurchaseReport, error) {
	fmt.Println(T("submitting_gift_card", amount, currency))
	if err := r.giftCards.Submit(ctx, currency, amount); err != nil {
		return nil, err
	}
	return r.RunPurchase(ctx, GiftCardTopUp())
}

// RunPurchase checks out whatever is in the cart. In dry-run mode the
// transaction is priced and then canceled instead of finalized.
func (r *Runner) RunPurchase(ctx context.Context, tc *TransactionContext) (*PurchaseReport, error) {
	start := time.Now()

	fmt.Println(T("starting_checkout", tc.Kind.String()))
	if err := r.checkout.Begin(ctx, tc); err != nil {
		return nil, err
	}

	if err := r.checkout.InitTransaction(ctx, tc); err != nil {
		return nil, err
	}
	fmt.Println(T("transaction_started", tc.TransactionID()))

	price, err := r.checkout.FinalPrice(ctx, tc)
	if err != nil {
		return nil, err
	}
	fmt.Println(T("final_price", price.Total.StringFixed(2), price.Currency))

	report := &PurchaseReport{
		TransactionID: tc.TransactionID(),
		Price:         price,
	}

	if r.config.DryRun {
		if err := r.checkout.Cancel(ctx, tc); err != nil {
			return nil, err
		}
		fmt.Println(T("dry_run_canceled"))
		report.DryRun = true
		report.Elapsed = time.Since(start)
		return report, nil
	}

	status, err := r.checkout.Finalize(ctx, tc)
	if err != nil {
		return nil, err
	}

	if status == StatusPending && r.config.ExternalPayment {
		fmt.Println(T("external_payment"))
		if err := r.checkout.ResolveExternalPayment(ctx, tc); err != nil {
			return nil, err
		}
		status, err = r.settledStatus(ctx, tc)
		if err != nil {
			return nil, err
		}
	}

	report.Status = status
	report.Elapsed = time.Since(start)

	fmt.Println(T("transaction_status", status.String()))
	fmt.Println(T("elapsed", report.Elapsed.Round(time.Millisecond).String()))

	if status == StatusSuccess {
		if err := r.cart.Clear(ctx); err != nil {
			r.log.Warn("failed to clear spent cart", zap.Error(err))
		}
	}
	if status == StatusFailed {
		return report, fmt.Errorf("%w: transaction %s declined", ErrTransactionFailed, tc.TransactionID())
	}

	return report, nil
}

// settledStatus re-reads the transaction status after an external
// payment hand-off.
func (r *Runner) settledStatus(ctx context.Context, tc *TransactionContext) (TransactionStatus, error) {
	envelope, err := r.checkout.transactionStatus(ctx, tc)
	if err != nil {
		return StatusUnknown, err
	}
	if envelope.Content == nil {
		return StatusUnknown, fmt.Errorf("%w: no transaction status", ErrTransactionFailed)
	}
	return parseTransactionStatus(envelope.Content.State), nil
}
