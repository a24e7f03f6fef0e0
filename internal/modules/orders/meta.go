package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrMetaNotFound = errors.New("order meta not found")

// Meta is the structured side-table written once at order creation. It
// replaces regex-parsing the order note on the success path; the note
// remains only as a fallback for rows that predate this table.
type Meta struct {
	OrderID        string          `gorm:"type:varchar(64);primaryKey"`
	ServiceType    string          `gorm:"type:varchar(128);not null"`
	CustomerName   string          `gorm:"type:varchar(255);not null"`
	CustomerEmail  string          `gorm:"type:varchar(255);not null"`
	CustomerPhone  string          `gorm:"type:varchar(32);not null"`
	WhatsappNumber string          `gorm:"type:varchar(32);not null"`
	DateOfBirth    string          `gorm:"type:varchar(32);not null"`
	Reason         string          `gorm:"type:varchar(1024);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency       string          `gorm:"type:char(3);not null"`
	OrderNote      string          `gorm:"type:varchar(1024);not null"`
	CreatedAt      time.Time       `gorm:"type:datetime(3);not null"`
}

func (Meta) TableName() string { return "order_meta" }

type MetaStore interface {
	Create(ctx context.Context, m Meta) error
	Get(ctx context.Context, orderID string) (Meta, error)
}

type MetaRepo struct {
	db *gorm.DB
}

func NewMetaRepo(db *gorm.DB) *MetaRepo {
	return &MetaRepo{db: db}
}

func (r *MetaRepo) Create(ctx context.Context, m Meta) error {
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *MetaRepo) Get(ctx context.Context, orderID string) (Meta, error) {
	var m Meta
	err := r.db.WithContext(ctx).First(&m, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Meta{}, ErrMetaNotFound
	}
	return m, err
}

// MemoryMetaStore backs DB-less dev runs and tests. Process-lifetime
// only; a restart loses the rows and the dispatcher falls back to note
// parsing.
type MemoryMetaStore struct {
	mu   sync.RWMutex
	rows map[string]Meta
}

func NewMemoryMetaStore() *MemoryMetaStore {
	return &MemoryMetaStore{rows: make(map[string]Meta)}
}

func (s *MemoryMetaStore) Create(ctx context.Context, m Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[m.OrderID] = m
	return nil
}

func (s *MemoryMetaStore) Get(ctx context.Context, orderID string) (Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.rows[orderID]
	if !ok {
		return Meta{}, ErrMetaNotFound
	}
	return m, nil
}
