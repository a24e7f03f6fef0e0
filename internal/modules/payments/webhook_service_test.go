package payments

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrovani.com/app/internal/storage"
)

type capturingArchive struct {
	keys []string
}

func (a *capturingArchive) Put(ctx context.Context, r io.Reader, in storage.PutInput) (storage.PutResult, error) {
	a.keys = append(a.keys, in.Key)
	return storage.PutResult{Key: in.Key}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookRecordAndDedupe(t *testing.T) {
	store := NewMemoryEventStore()
	arc := &capturingArchive{}
	svc := NewWebhookService(store, arc, discardLogger())

	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","event_time":"2026-08-30T10:00:00+05:30","data":{"order":{"order_id":"astro_1_1"}}}`)

	require.NoError(t, svc.Record(context.Background(), body, true))
	require.NoError(t, svc.Record(context.Background(), body, true), "redelivery is acknowledged, not an error")

	assert.Len(t, arc.keys, 2, "every delivery archived, even duplicates")
}

func TestWebhookRecordUnparseableBody(t *testing.T) {
	svc := NewWebhookService(NewMemoryEventStore(), nil, discardLogger())
	// must not error: an audit row with UNKNOWN type is still written
	require.NoError(t, svc.Record(context.Background(), []byte("not json at all"), false))
}

func TestWebhookRecordUnverified(t *testing.T) {
	store := NewMemoryEventStore()
	svc := NewWebhookService(store, nil, discardLogger())

	body := []byte(`{"type":"PAYMENT_FAILED_WEBHOOK","event_time":"t1","data":{"order":{"order_id":"astro_2_2"}}}`)
	require.NoError(t, svc.Record(context.Background(), body, false))

	inserted, err := store.Insert(context.Background(), ProviderEvent{
		Provider: providerName,
		EventID:  "PAYMENT_FAILED_WEBHOOK:astro_2_2:t1",
	})
	require.NoError(t, err)
	assert.False(t, inserted, "event was recorded despite failed verification")
}
