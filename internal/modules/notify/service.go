package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"astrovani.com/app/internal/mailer"
	"astrovani.com/app/internal/modules/gateway"
	"astrovani.com/app/internal/modules/orders"
)

const triggerStatusCheck = "status_check"

// Dispatcher sends the order confirmation at most once per order. The
// ledger claim happens before the transport send; a transport failure
// releases the claim so a later trigger can retry.
type Dispatcher struct {
	ledger  Ledger
	meta    orders.MetaStore
	gateway gateway.API
	mailer  mailer.Service
	logger  *slog.Logger

	fromAddr string
	fromName string
}

func NewDispatcher(ledger Ledger, meta orders.MetaStore, gw gateway.API, m mailer.Service, logger *slog.Logger, fromAddr, fromName string) *Dispatcher {
	return &Dispatcher{
		ledger:   ledger,
		meta:     meta,
		gateway:  gw,
		mailer:   m,
		logger:   logger,
		fromAddr: fromAddr,
		fromName: fromName,
	}
}

// SendConfirmationOnce implements payments.Notifier. Returns (false, nil)
// when the order already has a send record.
func (d *Dispatcher) SendConfirmationOnce(ctx context.Context, orderID string, payment gateway.Payment) (bool, error) {
	return d.send(ctx, orderID, payment, triggerStatusCheck)
}

func (d *Dispatcher) send(ctx context.Context, orderID string, payment gateway.Payment, trigger string) (bool, error) {
	det, recipient, err := d.orderDetails(ctx, orderID, payment)
	if err != nil {
		return false, err
	}

	claimed, err := d.ledger.MarkSent(ctx, SendRecord{
		OrderID:       orderID,
		Recipient:     recipient,
		TriggerMethod: trigger,
		SentAt:        time.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("ledger claim: %w", err)
	}
	if !claimed {
		d.logger.InfoContext(ctx, "confirmation already sent", "order_id", orderID)
		return false, nil
	}

	email := mailer.Email{
		From:     d.fromAddr,
		FromName: d.fromName,
		To:       []string{recipient},
		Subject:  confirmationSubject(det),
		TextBody: confirmationText(det),
		HTMLBody: confirmationHTML(det),
	}

	if err := d.mailer.Send(ctx, email); err != nil {
		// Give the claim back; the payment flow itself must not fail.
		if rerr := d.ledger.Release(ctx, orderID); rerr != nil {
			d.logger.ErrorContext(ctx, "ledger release failed after send error",
				"order_id", orderID, "err", rerr)
		}
		return false, fmt.Errorf("send confirmation: %w", err)
	}

	d.logger.InfoContext(ctx, "confirmation email sent", "order_id", orderID, "recipient", recipient)
	return true, nil
}

// orderDetails prefers the structured order_meta row; when it is missing
// (rows predating the table, or a lost write) it falls back to the
// gateway's order entity and regex-parses the packed note. Parse
// failures degrade to placeholders, never to an error.
func (d *Dispatcher) orderDetails(ctx context.Context, orderID string, payment gateway.Payment) (details, string, error) {
	m, err := d.meta.Get(ctx, orderID)
	if err == nil {
		return detailsFromMeta(m), m.CustomerEmail, nil
	}
	if !errors.Is(err, orders.ErrMetaNotFound) {
		return details{}, "", fmt.Errorf("order meta: %w", err)
	}

	ord, err := d.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return details{}, "", fmt.Errorf("fetch order for confirmation: %w", err)
	}
	recipient := ord.CustomerDetails.CustomerEmail
	if recipient == "" {
		return details{}, "", fmt.Errorf("no recipient recoverable for order %s", orderID)
	}

	amount := ord.OrderAmount
	if payment.PaymentAmount > 0 {
		amount = payment.PaymentAmount
	}
	return detailsFromNote(orderID, ord.CustomerDetails.CustomerName, ord.OrderNote, amount), recipient, nil
}

// EmailStatus reports whether the confirmation went out, for the
// email-status endpoint.
func (d *Dispatcher) EmailStatus(ctx context.Context, orderID string) (SendRecord, bool, error) {
	rec, err := d.ledger.Get(ctx, orderID)
	if errors.Is(err, ErrNotSent) {
		return SendRecord{}, false, nil
	}
	if err != nil {
		return SendRecord{}, false, err
	}
	return rec, true, nil
}
