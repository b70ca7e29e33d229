package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mutena/fotomutena/models"
)

// SQLBackend keeps one row per key in the gallery_documents table.
type SQLBackend struct {
	db *gorm.DB
}

// NewSQLBackend expects the Document table to be migrated already.
func NewSQLBackend(db *gorm.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (s *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Payload, nil
}

// Put upserts the row so a single statement replaces the value atomically.
func (s *SQLBackend) Put(ctx context.Context, key string, data []byte) error {
	now := time.Now()
	doc := models.Document{Name: key, Payload: data, CreatedAt: now, UpdatedAt: now}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&doc).Error
}

func (s *SQLBackend) Name() string { return "sql" }

func (s *SQLBackend) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
