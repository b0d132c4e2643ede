package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/kasuganosora/materialplanner/cache"
	"github.com/kasuganosora/materialplanner/config"
	dbadapter "github.com/kasuganosora/materialplanner/db"
	"github.com/kasuganosora/materialplanner/model"
	"github.com/kasuganosora/materialplanner/resource"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Catalog fixture ids.
const (
	ServantSaber    = 100
	ServantArcher   = 200
	ItemGem         = 6001
	ItemPiece       = 7001
	ItemCostume     = 6501
	ItemMusic       = 94000
	CostumeSaber    = 800100
	SoundtrackFree  = 1
	SoundtrackPaid  = 2
	SkillGemPerTier = 2
	SkillQPPerTier  = 100000
)

// SetupTestDB creates a SQLite DB in a temp directory and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates a LocalCache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{})
	require.NoError(t, err, "SetupTestCache: NewCache")
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// SetupTestCatalog writes a small servant and soundtrack catalog to a temp
// directory and loads it.
//
// Both servants have skill tiers 1..9 costing SkillGemPerTier ItemGem and
// SkillQPPerTier QP (the lore tier costs one lore instead of gems), four
// ascension stages of 5 ItemPiece each; Saber also has one costume costing
// 10 ItemCostume.
func SetupTestCatalog(t *testing.T) *resource.ResourceLoader {
	t.Helper()
	dir := t.TempDir()

	servants := []map[string]interface{}{
		servantJSON(ServantSaber, "Saber", true),
		servantJSON(ServantArcher, "Archer", false),
	}
	soundtracks := []map[string]interface{}{
		{"id": SoundtrackFree, "name": "Opening"},
		{"id": SoundtrackPaid, "name": "Battle", "material": map[string]int{"itemId": ItemMusic, "amount": 5}},
	}
	writeJSON(t, filepath.Join(dir, "servants.json"), servants)
	writeJSON(t, filepath.Join(dir, "soundtracks.json"), soundtracks)

	rl := resource.NewLoader(dir)
	require.NoError(t, rl.Load(), "SetupTestCatalog: Load")
	return rl
}

// TestLogger returns a development logger.
func TestLogger() *zap.Logger {
	l, _ := zap.NewDevelopment()
	return l
}

func servantJSON(id int, name string, withCostume bool) map[string]interface{} {
	skills := map[string]interface{}{}
	for tier := 1; tier <= 9; tier++ {
		key := strconv.Itoa(tier)
		if tier == 9 {
			skills[key] = materials(SkillQPPerTier, int(resource.LoreItemID), 1)
			continue
		}
		skills[key] = materials(SkillQPPerTier, ItemGem, SkillGemPerTier)
	}
	ascensions := map[string]interface{}{}
	for stage := 1; stage <= 4; stage++ {
		ascensions[strconv.Itoa(stage)] = materials(0, ItemPiece, 5)
	}
	s := map[string]interface{}{
		"id":                 id,
		"name":               name,
		"skillMaterials":     skills,
		"ascensionMaterials": ascensions,
	}
	if withCostume {
		s["costumeMaterials"] = map[string]interface{}{
			strconv.Itoa(CostumeSaber): materials(0, ItemCostume, 10),
		}
	}
	return s
}

func materials(qp int, itemID, amount int) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]int{{"itemId": itemID, "amount": amount}},
		"qp":    qp,
	}
}

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}
