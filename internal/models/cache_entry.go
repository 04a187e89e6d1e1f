package models

import "time"

// CacheEntry is a row of the database-backed cache. Rate limit counters keep
// their decimal count in Value.
type CacheEntry struct {
	// "key" is reserved in MySQL.
	Key       string    `gorm:"column:cache_key;primaryKey;size:191"`
	Value     []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (CacheEntry) TableName() string { return "cache_entries" }
