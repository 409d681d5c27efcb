package localstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thejonthinator/frysen/pkg/db"
	"github.com/thejonthinator/frysen/pkg/db/models"
)

// SQLStore keeps keys in the kv_entries table of the local sqlite database.
type SQLStore struct {
	db *db.Client
}

// NewSQLStore prepares the kv_entries table and returns the store.
func NewSQLStore(ctx context.Context, client *db.Client) (*SQLStore, error) {
	if client == nil {
		return nil, errors.New("db client required")
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("migrate kv_entries: %w", err)
	}
	return &SQLStore{db: client}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.KVEntry
	err := s.db.DB().WithContext(ctx).Where(map[string]any{"key": key}).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	entry := models.KVEntry{Key: key, Value: value}
	err := s.db.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := s.db.DB().WithContext(ctx).Where(map[string]any{"key": key}).Delete(&models.KVEntry{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
