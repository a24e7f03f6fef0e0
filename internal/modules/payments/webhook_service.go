package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"astrovani.com/app/internal/storage"
)

// ProviderEvent is the audit row for every inbound webhook. Dedupe is
// the unique (provider, event_id) index. Verified records whether the
// signature checked out; either way the endpoint acknowledges with 200
// and no business action runs. Polling is authoritative.
type ProviderEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Provider    string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID     string         `gorm:"type:varchar(191);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	OrderID     string         `gorm:"type:varchar(64);index:ix_provider_events_order_id"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`
	Verified    bool           `gorm:"not null"`
	ArchiveKey  string         `gorm:"type:varchar(255)"`
	ReceivedAt  time.Time      `gorm:"type:datetime(3);not null"`
}

func (ProviderEvent) TableName() string { return "provider_events" }

type EventStore interface {
	// Insert returns false when the event was already recorded.
	Insert(ctx context.Context, ev ProviderEvent) (bool, error)
}

type EventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Insert(ctx context.Context, ev ProviderEvent) (bool, error) {
	err := r.db.WithContext(ctx).Create(&ev).Error
	if err != nil {
		if isDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// MemoryEventStore is the DB-less fallback; process-lifetime only.
type MemoryEventStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{seen: make(map[string]struct{})}
}

func (s *MemoryEventStore) Insert(ctx context.Context, ev ProviderEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ev.Provider + "|" + ev.EventID
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

const providerName = "cashfree"

// Gateway webhook event types.
const (
	EventPaymentSuccess     = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed      = "PAYMENT_FAILED_WEBHOOK"
	EventPaymentUserDropped = "PAYMENT_USER_DROPPED_WEBHOOK"
)

type webhookEnvelope struct {
	Type      string `json:"type"`
	EventTime string `json:"event_time"`
	Data      struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
	} `json:"data"`
}

type WebhookService struct {
	store   EventStore
	archive storage.Archive
	logger  *slog.Logger
}

func NewWebhookService(store EventStore, archive storage.Archive, logger *slog.Logger) *WebhookService {
	return &WebhookService{store: store, archive: archive, logger: logger}
}

// Record persists and archives a raw webhook delivery. It performs no
// business action regardless of type or verification outcome and only
// errors on storage failure; the HTTP layer answers 200 either way to
// avoid gateway retry storms.
func (s *WebhookService) Record(ctx context.Context, rawBody []byte, verified bool) error {
	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		// Unparseable payloads are still worth the audit row.
		s.logger.WarnContext(ctx, "webhook payload not parseable", "err", err)
	}

	eventType := env.Type
	if eventType == "" {
		eventType = "UNKNOWN"
	}
	eventID := fmt.Sprintf("%s:%s:%s", eventType, env.Data.Order.OrderID, env.EventTime)
	now := time.Now()

	ev := ProviderEvent{
		ID:          uuid.NewString(),
		Provider:    providerName,
		EventID:     eventID,
		EventType:   eventType,
		OrderID:     env.Data.Order.OrderID,
		PayloadJSON: datatypes.JSON(normalizeJSON(rawBody)),
		Verified:    verified,
		ReceivedAt:  now,
	}

	if s.archive != nil {
		key := fmt.Sprintf("%s/%s_%s.json", now.Format("2006-01-02"), now.Format("150405"), ev.ID)
		res, err := s.archive.Put(ctx, bytes.NewReader(rawBody), storage.PutInput{
			Key:         key,
			ContentType: "application/json",
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "webhook archive failed", "event_id", eventID, "err", err)
		} else {
			ev.ArchiveKey = res.Key
		}
	}

	inserted, err := s.store.Insert(ctx, ev)
	if err != nil {
		return fmt.Errorf("persist provider event: %w", err)
	}
	if !inserted {
		s.logger.InfoContext(ctx, "webhook event deduplicated", "event_id", eventID, "type", eventType)
		return nil
	}

	switch eventType {
	case EventPaymentSuccess:
		s.logger.InfoContext(ctx, "webhook: payment success (no action, polling authoritative)",
			"order_id", env.Data.Order.OrderID, "verified", verified)
	case EventPaymentFailed:
		s.logger.InfoContext(ctx, "webhook: payment failed",
			"order_id", env.Data.Order.OrderID, "verified", verified)
	case EventPaymentUserDropped:
		s.logger.InfoContext(ctx, "webhook: payment dropped by user",
			"order_id", env.Data.Order.OrderID, "verified", verified)
	default:
		s.logger.InfoContext(ctx, "webhook: unknown event type", "type", eventType)
	}
	return nil
}

// normalizeJSON guards the json column: invalid bodies are wrapped so
// the insert can't fail on malformed JSON.
func normalizeJSON(raw []byte) []byte {
	if json.Valid(raw) {
		return raw
	}
	wrapped, _ := json.Marshal(map[string]string{"raw": string(raw)})
	return wrapped
}
