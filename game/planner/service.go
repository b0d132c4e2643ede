package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kasuganosora/materialplanner/cache"
	"github.com/kasuganosora/materialplanner/game/account"
	"github.com/kasuganosora/materialplanner/game/itemstats"
	"github.com/kasuganosora/materialplanner/resource"
	"go.uber.org/zap"
)

// ErrServantNotFound is returned when a roster instance cannot be resolved.
var ErrServantNotFound = errors.New("planner: servant not found")

// CatalogSource provides the current catalogs and their version.
type CatalogSource interface {
	Current() resource.Snapshot
}

// Accounts loads and stores account snapshots.
type Accounts interface {
	Load(ctx context.Context, id int64) (*account.Snapshot, error)
	Save(ctx context.Context, id int64, a itemstats.Account) (int64, error)
}

// Service computes item statistics for stored accounts and memoizes them
// per (account version, catalog version, filter options).
type Service struct {
	accounts Accounts
	catalog  CatalogSource
	cache    cache.Cache
	ttl      time.Duration
	defaults itemstats.FilterOptions
	logger   *zap.Logger
}

// NewService creates a new Service. defaults apply to accounts without saved preferences.
func NewService(accounts Accounts, catalog CatalogSource, c cache.Cache, ttl time.Duration, defaults itemstats.FilterOptions, logger *zap.Logger) *Service {
	return &Service{
		accounts: accounts,
		catalog:  catalog,
		cache:    c,
		ttl:      ttl,
		defaults: defaults,
		logger:   logger,
	}
}

// Row is one line of the item statistics table.
type Row struct {
	ItemID resource.ItemID `json:"item_id"`
	itemstats.ItemStat
	Deficit int `json:"deficit"`
}

// Deficit is how much of the remaining debt is not covered by inventory.
func Deficit(st itemstats.ItemStat) int {
	if d := st.Debt - st.Inventory; d > 0 {
		return d
	}
	return 0
}

// Rows flattens stats into rows ordered by item id.
func Rows(stats itemstats.ItemStats) []Row {
	rows := make([]Row, 0, len(stats))
	for id, st := range stats {
		rows = append(rows, Row{ItemID: id, ItemStat: *st, Deficit: Deficit(*st)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ItemID < rows[j].ItemID })
	return rows
}

// statsKey is the memo key for one computation.
func statsKey(accountID, accountVersion, catalogVersion int64, opts itemstats.FilterOptions) string {
	return fmt.Sprintf("itemstats:%d:%d:%d:%d", accountID, accountVersion, catalogVersion, opts.Bits())
}

// Options resolves the filter to use: explicit, else saved preference, else defaults.
func (s *Service) Options(snap *account.Snapshot, explicit *itemstats.FilterOptions) itemstats.FilterOptions {
	switch {
	case explicit != nil:
		return *explicit
	case snap.Preferences != nil:
		return *snap.Preferences
	default:
		return s.defaults
	}
}

// ItemStats returns the aggregate for accountID. opts may be nil.
func (s *Service) ItemStats(ctx context.Context, accountID int64, opts *itemstats.FilterOptions) (itemstats.ItemStats, error) {
	snap, err := s.accounts.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	resolved := s.Options(snap, opts)
	catalog := s.catalog.Current()
	key := statsKey(accountID, snap.Version, catalog.Version, resolved)

	if stats, ok := s.cached(ctx, key); ok {
		return stats, nil
	}

	s.reportMissing(accountID, catalog.Servants, &snap.Account)
	stats := itemstats.GenerateStats(catalog.Servants, catalog.Soundtracks, &snap.Account, resolved)
	s.store(ctx, key, stats)
	return stats, nil
}

// ServantStats returns the contribution of one roster instance.
func (s *Service) ServantStats(ctx context.Context, accountID, instanceID int64, opts *itemstats.FilterOptions) (itemstats.ItemStats, error) {
	snap, err := s.accounts.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	stats, ok := itemstats.GenerateServantStats(s.catalog.Current().Servants, &snap.Account, instanceID, s.Options(snap, opts))
	if !ok {
		return nil, ErrServantNotFound
	}
	return stats, nil
}

// ImportResult describes a completed snapshot import.
type ImportResult struct {
	Version int64                `json:"version"`
	Missing []resource.ServantID `json:"missing_servants"`
}

// ImportAccount replaces the stored snapshot and drops memoized results of
// the previous version.
func (s *Service) ImportAccount(ctx context.Context, accountID int64, a itemstats.Account) (ImportResult, error) {
	version, err := s.accounts.Save(ctx, accountID, a)
	if err != nil {
		return ImportResult{}, err
	}
	catalog := s.catalog.Current()
	missing := s.reportMissing(accountID, catalog.Servants, &a)
	if missing == nil {
		missing = []resource.ServantID{}
	}
	s.invalidate(ctx, accountID, version-1, catalog.Version)
	return ImportResult{Version: version, Missing: missing}, nil
}

// invalidate removes every memoized filter combination of one account version.
func (s *Service) invalidate(ctx context.Context, accountID, version, catalogVersion int64) {
	keys := make([]string, 0, 32)
	for b := uint8(0); b < 32; b++ {
		keys = append(keys, statsKey(accountID, version, catalogVersion, itemstats.FilterOptionsFromBits(b)))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn("stats cache invalidate failed", zap.Int64("account_id", accountID), zap.Error(err))
	}
}

func (s *Service) reportMissing(accountID int64, catalog itemstats.Catalog, a *itemstats.Account) []resource.ServantID {
	missing := itemstats.MissingServants(catalog, a)
	for _, id := range missing {
		s.logger.Warn("roster servant missing from catalog",
			zap.Int64("account_id", accountID),
			zap.Int("servant_id", int(id)))
	}
	return missing
}

func (s *Service) cached(ctx context.Context, key string) (itemstats.ItemStats, bool) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !cache.IsNotFound(err) {
			s.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var stats itemstats.ItemStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		s.logger.Warn("stats cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return stats, true
}

func (s *Service) store(ctx context.Context, key string, stats itemstats.ItemStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		s.logger.Warn("stats encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}
