package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrovani.com/app/internal/mailer"
	"astrovani.com/app/internal/modules/gateway"
	"astrovani.com/app/internal/modules/orders"
)

type stubGateway struct {
	order    gateway.Order
	fetchErr error
}

func (g *stubGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (gateway.Order, error) {
	return gateway.Order{}, errors.New("not implemented")
}

func (g *stubGateway) FetchOrder(ctx context.Context, orderID string) (gateway.Order, error) {
	if g.fetchErr != nil {
		return gateway.Order{}, g.fetchErr
	}
	return g.order, nil
}

func (g *stubGateway) FetchPayments(ctx context.Context, orderID string) ([]gateway.Payment, error) {
	return nil, errors.New("not implemented")
}

func testDispatcher(gw gateway.API, mock *mailer.Mock) (*Dispatcher, *orders.MemoryMetaStore, *MemoryLedger) {
	meta := orders.NewMemoryMetaStore()
	ledger := NewMemoryLedger()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(ledger, meta, gw, mock, logger, "reports@astrovani.com", "AstroVani")
	return d, meta, ledger
}

func seedMeta(t *testing.T, meta *orders.MemoryMetaStore, orderID string) {
	t.Helper()
	require.NoError(t, meta.Create(context.Background(), orders.Meta{
		OrderID:        orderID,
		ServiceType:    "Astrology Consultation",
		CustomerName:   "Ravi Kumar",
		CustomerEmail:  "ravi@example.com",
		WhatsappNumber: "+919876543210",
		DateOfBirth:    "1990-05-14",
		Reason:         "Career guidance",
		Amount:         decimal.NewFromInt(499),
		Currency:       "INR",
	}))
}

func TestSendConfirmationOnceIdempotent(t *testing.T) {
	mock := &mailer.Mock{}
	d, meta, _ := testDispatcher(&stubGateway{}, mock)
	seedMeta(t, meta, "astro_1_1")

	pay := gateway.Payment{PaymentStatus: "SUCCESS", PaymentAmount: 499}

	sent, err := d.SendConfirmationOnce(context.Background(), "astro_1_1", pay)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = d.SendConfirmationOnce(context.Background(), "astro_1_1", pay)
	require.NoError(t, err)
	assert.False(t, sent, "second trigger is a no-op")

	assert.Equal(t, 1, mock.SentCount(), "exactly one outbound email")
	assert.Equal(t, []string{"ravi@example.com"}, mock.Sent[0].To)
	assert.Contains(t, mock.Sent[0].Subject, "Astrology Consultation")
	assert.Contains(t, mock.Sent[0].HTMLBody, "1990-05-14")
}

func TestSendConfirmationFallsBackToNoteParsing(t *testing.T) {
	mock := &mailer.Mock{}
	gw := &stubGateway{order: gateway.Order{
		OrderID:     "astro_2_2",
		OrderAmount: 499,
		OrderNote:   "Payment for Numerology Report - DOB: 1985-03-03 | WhatsApp: +919812345678 | Reason: Marriage timing",
		CustomerDetails: gateway.CustomerDetails{
			CustomerName:  "Sita Devi",
			CustomerEmail: "sita@example.com",
		},
	}}
	d, _, _ := testDispatcher(gw, mock) // no meta row seeded

	sent, err := d.SendConfirmationOnce(context.Background(), "astro_2_2", gateway.Payment{PaymentAmount: 499})
	require.NoError(t, err)
	assert.True(t, sent)

	require.Equal(t, 1, mock.SentCount())
	assert.Equal(t, []string{"sita@example.com"}, mock.Sent[0].To)
	assert.Contains(t, mock.Sent[0].TextBody, "1985-03-03")
	assert.Contains(t, mock.Sent[0].TextBody, "Marriage timing")
}

func TestSendConfirmationNoteParseDegradesToPlaceholders(t *testing.T) {
	mock := &mailer.Mock{}
	gw := &stubGateway{order: gateway.Order{
		OrderID:   "astro_3_3",
		OrderNote: "garbled note with | stray delimiters",
		CustomerDetails: gateway.CustomerDetails{
			CustomerEmail: "x@example.com",
		},
	}}
	d, _, _ := testDispatcher(gw, mock)

	sent, err := d.SendConfirmationOnce(context.Background(), "astro_3_3", gateway.Payment{PaymentAmount: 499})
	require.NoError(t, err, "parse failure must never fail the send")
	assert.True(t, sent)
	assert.Contains(t, mock.Sent[0].TextBody, orders.NotSpecified)
}

func TestSendConfirmationTransportFailureReleasesClaim(t *testing.T) {
	mock := &mailer.Mock{Err: errors.New("smtp auth failed")}
	d, meta, ledger := testDispatcher(&stubGateway{}, mock)
	seedMeta(t, meta, "astro_4_4")

	sent, err := d.SendConfirmationOnce(context.Background(), "astro_4_4", gateway.Payment{})
	require.Error(t, err)
	assert.False(t, sent)

	// claim was released: a retry after the transport recovers sends
	mock.Err = nil
	sent, err = d.SendConfirmationOnce(context.Background(), "astro_4_4", gateway.Payment{})
	require.NoError(t, err)
	assert.True(t, sent)

	_, ok, err := d.EmailStatus(context.Background(), "astro_4_4")
	require.NoError(t, err)
	assert.True(t, ok)
	_ = ledger
}

func TestSendConfirmationNoRecipient(t *testing.T) {
	mock := &mailer.Mock{}
	d, _, _ := testDispatcher(&stubGateway{order: gateway.Order{OrderID: "astro_5_5"}}, mock)

	sent, err := d.SendConfirmationOnce(context.Background(), "astro_5_5", gateway.Payment{})
	require.Error(t, err)
	assert.False(t, sent)
	assert.Zero(t, mock.SentCount())
}

func TestEmailStatusUnsent(t *testing.T) {
	d, _, _ := testDispatcher(&stubGateway{}, &mailer.Mock{})

	_, ok, err := d.EmailStatus(context.Background(), "astro_never")
	require.NoError(t, err)
	assert.False(t, ok)
}
