package models

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry is one durable key/value row used by the SQL-backed store.
type KVEntry struct {
	Key       string         `gorm:"column:entry_key;primaryKey"`
	Value     datatypes.JSON `gorm:"column:value;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
