package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kasuganosora/materialplanner/cache"
	"github.com/kasuganosora/materialplanner/game/account"
	"github.com/kasuganosora/materialplanner/game/itemstats"
	"github.com/kasuganosora/materialplanner/model"
	"github.com/kasuganosora/materialplanner/resource"
	"github.com/kasuganosora/materialplanner/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	repo    *account.Repository
	cache   cache.Cache
	catalog *resource.ResourceLoader
	svc     *Service
}

func newFixture(t *testing.T, defaults itemstats.FilterOptions) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	f := &fixture{
		db:      db,
		repo:    account.NewRepository(db, testutil.TestLogger()),
		cache:   testutil.SetupTestCache(t),
		catalog: testutil.SetupTestCatalog(t),
	}
	f.svc = NewService(f.repo, f.catalog, f.cache, time.Minute, defaults, testutil.TestLogger())
	return f
}

func (f *fixture) newAccount(t *testing.T, a itemstats.Account) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.repo.Create(ctx, "tester")
	require.NoError(t, err)
	_, err = f.svc.ImportAccount(ctx, id, a)
	require.NoError(t, err)
	return id
}

func lowSkillAccount() itemstats.Account {
	return itemstats.Account{
		Roster: []itemstats.RosterServant{
			{ServantID: testutil.ServantSaber, Summoned: true, Skills: [3]int{1, 1, 1}},
		},
		Resources: itemstats.Resources{Items: map[resource.ItemID]int{testutil.ItemGem: 10}},
	}
}

// ---- Deficit / Rows ----

func TestDeficit(t *testing.T) {
	assert.Equal(t, 5, Deficit(itemstats.ItemStat{Inventory: 5, Debt: 10}))
	assert.Equal(t, 0, Deficit(itemstats.ItemStat{Inventory: 15, Debt: 10}))
	assert.Equal(t, 0, Deficit(itemstats.ItemStat{}))
}

func TestRows_SortedWithDeficit(t *testing.T) {
	rows := Rows(itemstats.ItemStats{
		7: {Inventory: 1, Cost: 4, Debt: 4},
		3: {Inventory: 9, Cost: 2, Debt: 2},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, resource.ItemID(3), rows[0].ItemID)
	assert.Equal(t, 0, rows[0].Deficit)
	assert.Equal(t, resource.ItemID(7), rows[1].ItemID)
	assert.Equal(t, 3, rows[1].Deficit)
	assert.Equal(t, 4, rows[1].Cost)
}

// ---- ItemStats ----

func TestItemStats_Computes(t *testing.T) {
	f := newFixture(t, itemstats.FilterOptions{})
	id := f.newAccount(t, lowSkillAccount())

	stats, err := f.svc.ItemStats(context.Background(), id, nil)
	require.NoError(t, err)

	gem := stats[testutil.ItemGem]
	require.NotNil(t, gem)
	assert.Equal(t, itemstats.ItemStat{Inventory: 10, Cost: 48, Used: 0, Debt: 48}, *gem)
	assert.Equal(t, 38, Deficit(*gem))

	lore := stats[resource.LoreItemID]
	require.NotNil(t, lore)
	assert.Equal(t, 0, lore.Debt, "lores are excluded by default")
}

func TestItemStats_OptionPrecedence(t *testing.T) {
	f := newFixture(t, itemstats.FilterOptions{IncludeLores: true})
	ctx := context.Background()
	id := f.newAccount(t, lowSkillAccount())

	stats, err := f.svc.ItemStats(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats[resource.LoreItemID].Debt, "config defaults apply without preferences")

	require.NoError(t, f.repo.SetPreferences(ctx, id, itemstats.FilterOptions{}))
	stats, err = f.svc.ItemStats(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats[resource.LoreItemID].Debt, "saved preferences beat defaults")

	stats, err = f.svc.ItemStats(ctx, id, &itemstats.FilterOptions{IncludeLores: true})
	require.NoError(t, err)
	assert.Equal(t, 3, stats[resource.LoreItemID].Debt, "explicit options beat preferences")
}

func TestItemStats_Memoized(t *testing.T) {
	f := newFixture(t, itemstats.FilterOptions{})
	ctx := context.Background()
	id := f.newAccount(t, lowSkillAccount())

	first, err := f.svc.ItemStats(ctx, id, nil)
	require.NoError(t, err)

	// Change the roster behind the service's back without bumping the version.
	require.NoError(t, f.db.Model(&model.RosterServant{}).Where("account_id = ?", id).
		Updates(map[string]interface{}{"skill1": 10, "skill2": 10, "skill3": 10}).Error)

	second, err := f.svc.ItemStats(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, *first[testutil.ItemGem], *second[testutil.ItemGem], "same version is served from cache")

	// An import bumps the version and invalidates the memo.
	a := lowSkillAccount()
	a.Roster[0].Skills = [3]int{10, 10, 10}
	_, err = f.svc.ImportAccount(ctx, id, a)
	require.NoError(t, err)

	third, err := f.svc.ItemStats(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, 48, third[testutil.ItemGem].Used)
	assert.Equal(t, 0, third[testutil.ItemGem].Debt)
}

func TestItemStats_CatalogReloadBypassesMemo(t *testing.T) {
	f := newFixture(t, itemstats.FilterOptions{})
	ctx := context.Background()
	id := f.newAccount(t, lowSkillAccount())

	_, err := f.svc.ItemStats(ctx, id, nil)
	require.NoError(t, err)
	before := f.catalog.Version()
	require.NoError(t, f.catalog.Load())
	require.NotEqual(t, before, f.catalog.Version())

	key := statsKey(id, 2, f.catalog.Version(), itemstats.FilterOptions{})
	_, err = f.cache.Get(ctx, key)
	assert.True(t, cache.IsNotFound(err))

	_, err = f.svc.ItemStats(ctx, id, nil)
	require.NoError(t, err)
	_, err = f.cache.Get(ctx, key)
	assert.NoError(t, err)
}

func TestItemStats_AccountNotFound(t *testing.T) {
	f := newFixture(t, itemstats.FilterOptions{})
	_, err := f.svc.ItemStats(context.Background(), 12345, nil)
	assert.ErrorIs(t, err, account.ErrNotFound)
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}
func (brokenCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Del(context.Context, ...string) error { return errors.New("connection refused") }
func (brokenCache) Close() error                         { return nil }

func TestItemStats_CacheFailureNotFatal(t *testing.T) {
	f := newFixture(t, itemstats.FilterOptions{})
	f.svc = NewService(f.repo, f.catalog, brokenCache{}, time.Minute, itemstats.FilterOptions{}, testutil.TestLogger())
	id := f.newAccount(t, lowSkillAccount())

	stats, err := f.svc.ItemStats(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, 48, stats[testutil.ItemGem].Cost)
}

func TestItemStats_MissingServantSkipped(t *testing.T) {
	f := newFixture(t, itemstats.FilterOptions{})
	a := lowSkillAccount()
	a.Roster = append(a.Roster, itemstats.RosterServant{ServantID: 9999, Summoned: true})
	id := f.newAccount(t, a)

	stats, err := f.svc.ItemStats(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, 48, stats[testutil.ItemGem].Cost)
}

// reloadingCatalog returns the next snapshot on every read, as if the
// catalog were reloaded in between.
type reloadingCatalog struct {
	mu    sync.Mutex
	snaps []resource.Snapshot
	reads int
}

func (c *reloadingCatalog) Current() resource.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snaps[min(c.reads, len(c.snaps)-1)]
	c.reads++
	return snap
}

func TestItemStats_SingleCatalogSnapshot(t *testing.T) {
	f := newFixture(t, itemstats.FilterOptions{})
	ctx := context.Background()

	loaded := f.catalog.Current()
	loaded.Version = 10
	catalog := &reloadingCatalog{snaps: []resource.Snapshot{
		loaded,
		{Version: 11, Servants: resource.ServantCatalog{}},
	}}
	svc := NewService(f.repo, catalog, f.cache, time.Minute, itemstats.FilterOptions{}, testutil.TestLogger())

	id, err := f.repo.Create(ctx, "tester")
	require.NoError(t, err)
	version, err := f.repo.Save(ctx, id, lowSkillAccount())
	require.NoError(t, err)

	stats, err := svc.ItemStats(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.reads, "catalog is read once per computation")
	assert.Equal(t, 48, stats[testutil.ItemGem].Cost)

	_, err = f.cache.Get(ctx, statsKey(id, version, 10, itemstats.FilterOptions{}))
	assert.NoError(t, err, "result is stored under the version it was computed from")
	_, err = f.cache.Get(ctx, statsKey(id, version, 11, itemstats.FilterOptions{}))
	assert.True(t, cache.IsNotFound(err))
}

// ---- ServantStats ----

func TestServantStats(t *testing.T) {
	f := newFixture(t, itemstats.FilterOptions{IncludeCostumes: true})
	ctx := context.Background()
	id := f.newAccount(t, itemstats.Account{
		Roster: []itemstats.RosterServant{
			{ServantID: testutil.ServantSaber, Summoned: true},
			{ServantID: testutil.ServantSaber, Summoned: true},
		},
	})
	snap, err := f.repo.Load(ctx, id)
	require.NoError(t, err)

	first, err := f.svc.ServantStats(ctx, id, snap.Account.Roster[0].InstanceID, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, first[testutil.ItemCostume].Cost)

	second, err := f.svc.ServantStats(ctx, id, snap.Account.Roster[1].InstanceID, nil)
	require.NoError(t, err)
	assert.Nil(t, second[testutil.ItemCostume])

	_, err = f.svc.ServantStats(ctx, id, -1, nil)
	assert.ErrorIs(t, err, ErrServantNotFound)
}

// ---- statsKey ----

func TestStatsKey_DistinctPerInput(t *testing.T) {
	base := statsKey(1, 1, 1, itemstats.FilterOptions{})
	assert.NotEqual(t, base, statsKey(2, 1, 1, itemstats.FilterOptions{}))
	assert.NotEqual(t, base, statsKey(1, 2, 1, itemstats.FilterOptions{}))
	assert.NotEqual(t, base, statsKey(1, 1, 2, itemstats.FilterOptions{}))
	assert.NotEqual(t, base, statsKey(1, 1, 1, itemstats.FilterOptions{IncludeCostumes: true}))
}
