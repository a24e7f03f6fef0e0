package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrNotSent = errors.New("no send record for order")

// SendRecord is the at-most-once guarantee for confirmation emails:
// one row per order, created when a send is claimed, never updated.
type SendRecord struct {
	OrderID       string    `gorm:"type:varchar(64);uniqueIndex:ux_email_send_records_order_id;not null"`
	Recipient     string    `gorm:"type:varchar(255);not null"`
	TriggerMethod string    `gorm:"type:varchar(32);not null"`
	SentAt        time.Time `gorm:"type:datetime(3);not null"`
}

func (SendRecord) TableName() string { return "email_send_records" }

// Ledger is the idempotency tracker. MarkSent must be an atomic
// insert-if-absent so two concurrent status checks for the same order
// cannot both claim the send.
type Ledger interface {
	// MarkSent claims the send; returns false when already claimed.
	MarkSent(ctx context.Context, rec SendRecord) (bool, error)
	Get(ctx context.Context, orderID string) (SendRecord, error)
	// Release undoes a claim whose transport send failed, so a later
	// trigger can retry.
	Release(ctx context.Context, orderID string) error
}

// GormLedger backs the guarantee with the unique index: a duplicate-key
// error is the "already sent" signal, and it survives restarts and
// multiple processes, unlike the in-memory map this replaced.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) MarkSent(ctx context.Context, rec SendRecord) (bool, error) {
	err := l.db.WithContext(ctx).Create(&rec).Error
	if err != nil {
		if isDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *GormLedger) Get(ctx context.Context, orderID string) (SendRecord, error) {
	var rec SendRecord
	err := l.db.WithContext(ctx).First(&rec, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SendRecord{}, ErrNotSent
	}
	return rec, err
}

func (l *GormLedger) Release(ctx context.Context, orderID string) error {
	return l.db.WithContext(ctx).Delete(&SendRecord{}, "order_id = ?", orderID).Error
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// MemoryLedger holds the guarantee only for one process lifetime: a
// restart forgets what was sent. Kept for tests and DB-less dev runs.
// Check-then-set is atomic under the mutex.
type MemoryLedger struct {
	mu   sync.Mutex
	rows map[string]SendRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rows: make(map[string]SendRecord)}
}

func (l *MemoryLedger) MarkSent(ctx context.Context, rec SendRecord) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[rec.OrderID]; ok {
		return false, nil
	}
	l.rows[rec.OrderID] = rec
	return true, nil
}

func (l *MemoryLedger) Get(ctx context.Context, orderID string) (SendRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.rows[orderID]
	if !ok {
		return SendRecord{}, ErrNotSent
	}
	return rec, nil
}

func (l *MemoryLedger) Release(ctx context.Context, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rows, orderID)
	return nil
}
