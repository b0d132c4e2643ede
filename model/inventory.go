package model

// AccountItem is the held quantity of one material.
type AccountItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64 `gorm:"uniqueIndex:idx_account_item;not null" json:"account_id"`
	ItemID    int   `gorm:"uniqueIndex:idx_account_item;not null" json:"item_id"`
	Qty       int   `gorm:"default:0" json:"qty"`
}
