package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kasuganosora/materialplanner/game/itemstats"
	"github.com/kasuganosora/materialplanner/model"
	"github.com/kasuganosora/materialplanner/resource"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the account does not exist.
var ErrNotFound = errors.New("account: not found")

// Snapshot is an account as the planner sees it.
type Snapshot struct {
	AccountID int64
	Name      string
	Version   int64
	Account   itemstats.Account
	// Preferences is nil when the account never saved any.
	Preferences *itemstats.FilterOptions
}

// Repository persists account snapshots.
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create inserts an empty account and returns its id.
func (r *Repository) Create(ctx context.Context, name string) (int64, error) {
	acc := &model.Account{Name: name}
	if err := r.db.WithContext(ctx).Create(acc).Error; err != nil {
		return 0, fmt.Errorf("account: create: %w", err)
	}
	return acc.ID, nil
}

// Version returns the account's current snapshot version.
func (r *Repository) Version(ctx context.Context, id int64) (int64, error) {
	acc, err := r.find(r.db.WithContext(ctx), id)
	if err != nil {
		return 0, err
	}
	return acc.Version, nil
}

// Load reads the full snapshot of account id.
func (r *Repository) Load(ctx context.Context, id int64) (*Snapshot, error) {
	db := r.db.WithContext(ctx)
	acc, err := r.find(db, id)
	if err != nil {
		return nil, err
	}

	var roster []model.RosterServant
	if err := db.Where("account_id = ?", id).Order("position ASC, id ASC").Find(&roster).Error; err != nil {
		return nil, fmt.Errorf("account: load roster: %w", err)
	}
	var items []model.AccountItem
	if err := db.Where("account_id = ?", id).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("account: load items: %w", err)
	}

	snap := &Snapshot{
		AccountID: acc.ID,
		Name:      acc.Name,
		Version:   acc.Version,
		Account: itemstats.Account{
			Roster: make([]itemstats.RosterServant, 0, len(roster)),
			Resources: itemstats.Resources{
				Items: make(map[resource.ItemID]int, len(items)),
				QP:    int(acc.QP),
			},
		},
	}
	for _, row := range roster {
		snap.Account.Roster = append(snap.Account.Roster, rosterFromRow(row))
	}
	for _, row := range items {
		snap.Account.Resources.Items[resource.ItemID(row.ItemID)] = row.Qty
	}
	if snap.Account.Costumes, err = decodeIDSet[resource.CostumeID](acc.Costumes); err != nil {
		return nil, fmt.Errorf("account: decode costumes: %w", err)
	}
	if snap.Account.Soundtracks, err = decodeIDSet[resource.SoundtrackID](acc.Soundtracks); err != nil {
		return nil, fmt.Errorf("account: decode soundtracks: %w", err)
	}
	if snap.Preferences, err = decodePreferences(acc.Preferences); err != nil {
		// A corrupt preference blob should not lock the user out of their stats.
		r.logger.Warn("discarding unreadable preferences", zap.Int64("account_id", id), zap.Error(err))
		snap.Preferences = nil
	}
	return snap, nil
}

// Save replaces roster, inventory and unlocks of account id with a, and
// returns the new version. Roster instance ids are reassigned.
func (r *Repository) Save(ctx context.Context, id int64, a itemstats.Account) (int64, error) {
	var version int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Bump first so the row stays locked for the rest of the transaction.
		res := tx.Model(&model.Account{}).Where("id = ?", id).
			Update("version", gorm.Expr("version + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		acc, err := r.find(tx, id)
		if err != nil {
			return err
		}
		version = acc.Version

		if err := tx.Where("account_id = ?", id).Delete(&model.RosterServant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&model.AccountItem{}).Error; err != nil {
			return err
		}

		if len(a.Roster) > 0 {
			rows := make([]model.RosterServant, 0, len(a.Roster))
			for i, rs := range a.Roster {
				rows = append(rows, rosterToRow(id, i, rs))
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if len(a.Resources.Items) > 0 {
			rows := make([]model.AccountItem, 0, len(a.Resources.Items))
			for itemID, qty := range a.Resources.Items {
				rows = append(rows, model.AccountItem{AccountID: id, ItemID: int(itemID), Qty: qty})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		costumes, err := encodeIDSet(a.Costumes)
		if err != nil {
			return err
		}
		soundtracks, err := encodeIDSet(a.Soundtracks)
		if err != nil {
			return err
		}
		return tx.Model(acc).Updates(map[string]interface{}{
			"qp":          int64(a.Resources.QP),
			"costumes":    costumes,
			"soundtracks": soundtracks,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("account: save: %w", err)
	}
	r.logger.Info("account snapshot saved",
		zap.Int64("account_id", id),
		zap.Int64("version", version),
		zap.Int("roster", len(a.Roster)),
		zap.Int("items", len(a.Resources.Items)))
	return version, nil
}

// SetPreferences stores the account's filter options.
func (r *Repository) SetPreferences(ctx context.Context, id int64, opts itemstats.FilterOptions) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).
		Update("preferences", datatypes.JSON(data))
	if res.Error != nil {
		return fmt.Errorf("account: set preferences: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) find(db *gorm.DB, id int64) (*model.Account, error) {
	var acc model.Account
	if err := db.First(&acc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("account: find: %w", err)
	}
	return &acc, nil
}

func rosterFromRow(row model.RosterServant) itemstats.RosterServant {
	return itemstats.RosterServant{
		InstanceID:   row.ID,
		ServantID:    resource.ServantID(row.ServantID),
		Summoned:     row.Summoned,
		Ascension:    row.Ascension,
		Skills:       [itemstats.SkillSlots]int{row.Skill1, row.Skill2, row.Skill3},
		AppendSkills: [itemstats.SkillSlots]int{row.Append1, row.Append2, row.Append3},
	}
}

func rosterToRow(accountID int64, position int, rs itemstats.RosterServant) model.RosterServant {
	return model.RosterServant{
		AccountID: accountID,
		Position:  position,
		ServantID: int(rs.ServantID),
		Summoned:  rs.Summoned,
		Ascension: rs.Ascension,
		Skill1:    rs.Skills[0],
		Skill2:    rs.Skills[1],
		Skill3:    rs.Skills[2],
		Append1:   rs.AppendSkills[0],
		Append2:   rs.AppendSkills[1],
		Append3:   rs.AppendSkills[2],
	}
}

// encodeIDSet stores a set as a sorted JSON array of its true members.
func encodeIDSet[K ~int](set map[K]bool) (datatypes.JSON, error) {
	ids := make([]int, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, int(id))
		}
	}
	sort.Ints(ids)
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func decodeIDSet[K ~int](data datatypes.JSON) (map[K]bool, error) {
	set := make(map[K]bool)
	if len(data) == 0 {
		return set, nil
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[K(id)] = true
	}
	return set, nil
}

func decodePreferences(data datatypes.JSON) (*itemstats.FilterOptions, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var opts itemstats.FilterOptions
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}
