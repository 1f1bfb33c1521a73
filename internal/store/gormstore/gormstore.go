// Package gormstore implements store.Ledger on PostgreSQL through gorm.
package gormstore

import (
	"context"
	"errors"

	"roundsettle/internal/models"
	"roundsettle/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var _ store.Ledger = (*Store)(nil)

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505"
)

// Store wraps a *gorm.DB.
type Store struct {
	db *gorm.DB
}

// New creates a Store. The db should be opened with TranslateError enabled.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the handle for migrations and health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

// translate maps driver errors onto store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case isDuplicateKeyError(err):
		return store.ErrDuplicateKey
	}
	return err
}

func (s *Store) AppendSystemLog(ctx context.Context, l *models.SystemLog) error {
	return translate(s.conn(ctx).Create(l).Error)
}

func (s *Store) ListSystemLogs(ctx context.Context, f store.SystemLogFilter) ([]*models.SystemLog, int64, error) {
	query := s.conn(ctx).Model(&models.SystemLog{})
	if f.RoundID != 0 {
		query = query.Where("round_id = ?", f.RoundID)
	}
	if f.Level != "" {
		query = query.Where("level = ?", f.Level)
	}
	if f.Module != "" {
		query = query.Where("module = ?", f.Module)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := pageBounds(f)
	var logs []*models.SystemLog
	err := query.Order("id DESC").Offset((page - 1) * size).Limit(size).Find(&logs).Error
	return logs, total, err
}

func pageBounds(f store.SystemLogFilter) (page, size int) {
	page, size = f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}
	return page, size
}
