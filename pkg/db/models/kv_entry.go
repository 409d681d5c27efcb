package models

import "time"

// KVEntry is one key of the on-device store.
type KVEntry struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (KVEntry) TableName() string { return "kv_entries" }
