package models

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry backs store.GormKV. Values are JSON documents.
type KVEntry struct {
	Key       string         `gorm:"type:varchar(191);primaryKey" json:"key"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (KVEntry) TableName() string { return "kv_entries" }
