package resource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// ---- Catalog data files ----

type materialsData struct {
	Items []ItemAmount `json:"items"`
	QP    int          `json:"qp"`
}

// servantData mirrors one entry of servants.json. Enhancement tables are
// objects keyed by the tier number as a string.
type servantData struct {
	ID                   ServantID                `json:"id"`
	Name                 string                   `json:"name"`
	SkillMaterials       map[string]materialsData `json:"skillMaterials"`
	AppendSkillMaterials map[string]materialsData `json:"appendSkillMaterials"`
	AscensionMaterials   map[string]materialsData `json:"ascensionMaterials"`
	CostumeMaterials     map[string]materialsData `json:"costumeMaterials"`
}

// ResourceLoader loads and holds the servant and soundtrack catalogs.
// Load may be called again at runtime to pick up data changes; readers
// always see either the old or the new catalog, never a mix.
type ResourceLoader struct {
	DataPath string

	mu          sync.RWMutex
	servants    ServantCatalog
	soundtracks []*Soundtrack
	version     int64
}

// NewLoader creates a ResourceLoader for the given data directory.
func NewLoader(dataPath string) *ResourceLoader {
	return &ResourceLoader{
		DataPath: dataPath,
		servants: make(ServantCatalog),
	}
}

// Load reads servants.json and soundtracks.json.
func (rl *ResourceLoader) Load() error {
	raw, err := loadJSONArray[servantData](rl.path("servants.json"))
	if err != nil {
		return err
	}
	servants := make(ServantCatalog, len(raw))
	for _, sd := range raw {
		s, err := sd.toServant()
		if err != nil {
			return fmt.Errorf("resource: servant %d: %w", sd.ID, err)
		}
		servants[s.ID] = s
	}

	soundtracks, err := loadJSONArray[Soundtrack](rl.path("soundtracks.json"))
	if err != nil {
		return err
	}

	rl.mu.Lock()
	rl.servants = servants
	rl.soundtracks = soundtracks
	rl.version++
	rl.mu.Unlock()
	return nil
}

// Snapshot is the servant and soundtrack catalogs of one Load.
type Snapshot struct {
	Version     int64
	Servants    ServantCatalog
	Soundtracks []*Soundtrack
}

// Current returns the catalogs together with their version.
func (rl *ResourceLoader) Current() Snapshot {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return Snapshot{
		Version:     rl.version,
		Servants:    rl.servants,
		Soundtracks: rl.soundtracks,
	}
}

// ServantByID returns the servant with the given id or nil.
func (rl *ResourceLoader) ServantByID(id ServantID) *Servant {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.servants[id]
}

// Servants returns the current servant catalog. The returned map must not be modified.
func (rl *ResourceLoader) Servants() ServantCatalog {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.servants
}

// Soundtracks returns the current soundtrack catalog in file order.
func (rl *ResourceLoader) Soundtracks() []*Soundtrack {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.soundtracks
}

// Version is incremented on every successful Load.
func (rl *ResourceLoader) Version() int64 {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.version
}

func (rl *ResourceLoader) path(file string) string {
	return filepath.Join(rl.DataPath, file)
}

// loadJSONArray reads a JSON array file, dropping null entries.
func loadJSONArray[T any](path string) ([]*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	var arr []*T
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", path, err)
	}
	out := arr[:0]
	for _, v := range arr {
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (sd *servantData) toServant() (*Servant, error) {
	s := &Servant{ID: sd.ID, Name: sd.Name}
	var err error
	if s.Skills, err = tierTable(sd.SkillMaterials); err != nil {
		return nil, fmt.Errorf("skillMaterials: %w", err)
	}
	if s.AppendSkills, err = tierTable(sd.AppendSkillMaterials); err != nil {
		return nil, fmt.Errorf("appendSkillMaterials: %w", err)
	}
	if s.Ascensions, err = tierTable(sd.AscensionMaterials); err != nil {
		return nil, fmt.Errorf("ascensionMaterials: %w", err)
	}
	costumes, err := tierTable(sd.CostumeMaterials)
	if err != nil {
		return nil, fmt.Errorf("costumeMaterials: %w", err)
	}
	for _, c := range costumes {
		s.Costumes = append(s.Costumes, CostumeEnhancement{
			CostumeID:   CostumeID(c.Tier),
			Enhancement: c.Enhancement,
		})
	}
	return s, nil
}

// tierTable converts a numeric-string keyed table into a slice ordered by key.
func tierTable(m map[string]materialsData) ([]EnhancementTier, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make([]EnhancementTier, 0, len(m))
	for key, md := range m {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid tier key %q", key)
		}
		out = append(out, EnhancementTier{Tier: Tier(n), Enhancement: md.toEnhancement()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

func (md materialsData) toEnhancement() Enhancement {
	e := Enhancement{Items: make(map[ItemID]int, len(md.Items)), QP: md.QP}
	for _, it := range md.Items {
		e.Items[it.ItemID] += it.Amount
	}
	return e
}
