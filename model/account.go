package model

import (
	"time"

	"gorm.io/datatypes"
)

// Account represents a planner account and its non-tabular state.
type Account struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:64;not null" json:"name"`
	QP   int64  `gorm:"default:0" json:"qp"`
	// Version is bumped on every snapshot import; cached results are keyed on it.
	Version     int64          `gorm:"default:1" json:"version"`
	Costumes    datatypes.JSON `json:"costumes"`    // [800100, ...]
	Soundtracks datatypes.JSON `json:"soundtracks"` // [2, 5, ...]
	Preferences datatypes.JSON `json:"preferences"` // itemstats.FilterOptions, null = defaults
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
