package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"riskcore/internal/risk"
	"riskcore/internal/schema"
)

// AccountLimits is one account's limit override row. Quantity fields are
// lots, money fields ticks. Rows key on the account name so they survive
// registry renumbering.
type AccountLimits struct {
	Account       string `gorm:"primaryKey;size:64"`
	MaxPosition   int64
	MaxOrderSize  int64
	MaxNotional   int64
	MaxOpenOrders uint32
	MaxDailyLoss  int64
	UpdatedAt     time.Time
}

// Limits converts a row into checker limits.
func (r AccountLimits) Limits() risk.Limits {
	return risk.Limits{
		MaxPosition:   schema.Quantity(r.MaxPosition),
		MaxOrderSize:  schema.Quantity(r.MaxOrderSize),
		MaxNotional:   schema.Notional(r.MaxNotional),
		MaxOpenOrders: r.MaxOpenOrders,
		MaxDailyLoss:  schema.Money(r.MaxDailyLoss),
	}
}

// Row converts checker limits into an override row for an account.
func Row(account string, limits risk.Limits) AccountLimits {
	return AccountLimits{
		Account:       account,
		MaxPosition:   int64(limits.MaxPosition),
		MaxOrderSize:  int64(limits.MaxOrderSize),
		MaxNotional:   int64(limits.MaxNotional),
		MaxOpenOrders: limits.MaxOpenOrders,
		MaxDailyLoss:  int64(limits.MaxDailyLoss),
	}
}

// Store reads and writes per-account limit overrides in PostgreSQL.
type Store struct {
	db *gorm.DB
}

// Open connects and migrates the override table.
func Open(option Option) (*Store, error) {
	connString, err := option.dsn()
	if err != nil {
		return nil, err
	}

	config := option.Config
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(connString), config)
	if err != nil {
		return nil, errors.Wrap(err, "open limits store")
	}
	if err := db.AutoMigrate(&AccountLimits{}); err != nil {
		return nil, errors.Wrap(err, "migrate limits store")
	}
	return &Store{db: db}, nil
}

// LoadAll returns every override row ordered by account.
func (s *Store) LoadAll(ctx context.Context) ([]AccountLimits, error) {
	var rows []AccountLimits
	if err := s.db.WithContext(ctx).Order("account").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load account limits")
	}
	return rows, nil
}

// Load returns one account's override row if present.
func (s *Store) Load(ctx context.Context, account string) (AccountLimits, bool, error) {
	var row AccountLimits
	err := s.db.WithContext(ctx).First(&row, "account = ?", account).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return AccountLimits{}, false, nil
		}
		return AccountLimits{}, false, errors.Wrap(err, "load account limits: "+account)
	}
	return row, true, nil
}

// Upsert inserts or replaces one account's override row.
func (s *Store) Upsert(ctx context.Context, row AccountLimits) error {
	row.UpdatedAt = time.Now().UTC()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return errors.Wrap(err, "upsert account limits: "+row.Account)
	}
	return nil
}

// Delete removes one account's override row.
func (s *Store) Delete(ctx context.Context, account string) error {
	err := s.db.WithContext(ctx).Delete(&AccountLimits{}, "account = ?", account).Error
	if err != nil {
		return errors.Wrap(err, "delete account limits: "+account)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MergeOverrides maps rows onto registry account IDs, replacing any file
// config override for the same account. Rows naming unknown accounts are
// returned, not applied.
func MergeOverrides(reg *schema.Registry, rows []AccountLimits, into map[uint32]risk.Limits) []string {
	var unknown []string
	for _, row := range rows {
		id, ok := reg.AccountIDByName(row.Account)
		if !ok {
			unknown = append(unknown, row.Account)
			continue
		}
		into[uint32(id)] = row.Limits()
	}
	return unknown
}
