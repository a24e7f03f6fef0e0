package payments

import (
	"context"
	"log/slog"
	"time"

	"astrovani.com/app/internal/modules/gateway"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 12
)

// Notifier is the confirmation hook fired when a poll observes success.
// Implemented by notify.Dispatcher; delivery is best-effort.
type Notifier interface {
	SendConfirmationOnce(ctx context.Context, orderID string, payment gateway.Payment) (bool, error)
}

// Poller re-queries order status on a bounded schedule after the
// checkout redirect. It never invents a terminal state: exhausting the
// budget while still pending surfaces pending, and the caller offers a
// manual "check again" plus a contact-support hint.
type Poller struct {
	Gateway  gateway.API
	Notifier Notifier // optional
	Logger   *slog.Logger

	Interval    time.Duration
	MaxAttempts int
}

func NewPoller(gw gateway.API, n Notifier, logger *slog.Logger) *Poller {
	return &Poller{
		Gateway:     gw,
		Notifier:    n,
		Logger:      logger,
		Interval:    DefaultPollInterval,
		MaxAttempts: DefaultMaxAttempts,
	}
}

type PollResult struct {
	State    State
	Attempts int
	Payments []gateway.Payment
}

// Run polls until a terminal state, the attempt budget, or ctx ends.
// A transport/decode failure maps to StateError with the cause; the
// caller must distinguish "could not verify" from "gateway says failed".
func (p *Poller) Run(ctx context.Context, orderID string) (PollResult, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	res := PollResult{State: StateLoading}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt

		payments, err := p.Gateway.FetchPayments(ctx, orderID)
		if err != nil {
			res.State = StateError
			return res, err
		}
		res.Payments = payments

		res.State = StatePending
		if len(payments) > 0 {
			res.State = Classify(payments[0].PaymentStatus)
		}

		switch res.State {
		case StateSuccess:
			p.notify(ctx, orderID, payments[0])
			return res, nil
		case StateFailed:
			return res, nil
		}

		if attempt == maxAttempts {
			break
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return res, err
		}
	}

	p.Logger.InfoContext(ctx, "poll budget exhausted, still pending",
		"order_id", orderID, "attempts", res.Attempts)
	return res, nil
}

func (p *Poller) notify(ctx context.Context, orderID string, payment gateway.Payment) {
	if p.Notifier == nil {
		return
	}
	sent, err := p.Notifier.SendConfirmationOnce(ctx, orderID, payment)
	if err != nil {
		// Email is best-effort relative to payment confirmation.
		p.Logger.ErrorContext(ctx, "confirmation email failed", "order_id", orderID, "err", err)
		return
	}
	if !sent {
		p.Logger.InfoContext(ctx, "confirmation already sent", "order_id", orderID)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
