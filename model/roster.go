package model

// RosterServant is one owned servant instance. Position preserves roster order,
// which decides which duplicate counts as the unique copy.
type RosterServant struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64 `gorm:"index:idx_account_roster;not null" json:"account_id"`
	Position  int   `gorm:"not null" json:"position"`
	ServantID int   `gorm:"not null" json:"servant_id"`
	Summoned  bool  `gorm:"not null" json:"summoned"`
	Ascension int   `gorm:"default:0" json:"ascension"`
	Skill1    int   `gorm:"default:0" json:"skill1"`
	Skill2    int   `gorm:"default:0" json:"skill2"`
	Skill3    int   `gorm:"default:0" json:"skill3"`
	Append1   int   `gorm:"default:0" json:"append1"`
	Append2   int   `gorm:"default:0" json:"append2"`
	Append3   int   `gorm:"default:0" json:"append3"`
}
