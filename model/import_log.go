package model

import (
	"time"

	"gorm.io/datatypes"
)

// ImportLog records one account snapshot import.
type ImportLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID  int64          `gorm:"index:idx_import_account;not null" json:"account_id"`
	Version    int64          `gorm:"not null" json:"version"`
	TraceID    string         `gorm:"size:64" json:"trace_id"`
	IP         string         `gorm:"size:45" json:"ip"`
	RosterSize int            `json:"roster_size"`
	ItemCount  int            `json:"item_count"`
	Missing    datatypes.JSON `json:"missing"` // servant ids absent from the catalog
	DurationMs int            `json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"index:idx_import_created;autoCreateTime:milli" json:"created_at"`
}
