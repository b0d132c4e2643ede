// Package itemstats aggregates, for every material, how much an account has
// spent, still owes and holds across its servant roster.
//
// All functions are pure with respect to their inputs; the only state they
// write is the ItemStats map passed in or returned, which is allocated per
// call.
package itemstats

import "github.com/kasuganosora/materialplanner/resource"

const (
	// MaxSkillLevel is the highest level a skill or append skill can reach.
	MaxSkillLevel = 10
	// LoreTier is the skill tier that bundles the lore material.
	LoreTier resource.Tier = MaxSkillLevel - 1
	// SkillSlots is the number of skills (and append skills) per servant.
	SkillSlots = 3
)

// Catalog resolves catalog servants by id.
type Catalog interface {
	ServantByID(id resource.ServantID) *resource.Servant
}

// RosterServant is one servant instance owned by an account.
type RosterServant struct {
	InstanceID   int64              `json:"instance_id"`
	ServantID    resource.ServantID `json:"servant_id"`
	Summoned     bool               `json:"summoned"`
	Ascension    int                `json:"ascension"`
	Skills       [SkillSlots]int    `json:"skills"`
	AppendSkills [SkillSlots]int    `json:"append_skills"`
}

// Resources is the account's held inventory.
type Resources struct {
	Items map[resource.ItemID]int `json:"items"`
	QP    int                     `json:"qp"`
}

// Account is a read-only snapshot of everything the aggregation needs.
type Account struct {
	Roster      []RosterServant                `json:"roster"`
	Resources   Resources                      `json:"resources"`
	Costumes    map[resource.CostumeID]bool    `json:"costumes"`
	Soundtracks map[resource.SoundtrackID]bool `json:"soundtracks"`
}

// FilterOptions selects which enhancements are tracked. The zero value
// tracks summoned servants' skills and ascensions only.
type FilterOptions struct {
	IncludeUnsummonedServants bool `json:"include_unsummoned_servants"`
	IncludeAppendSkills       bool `json:"include_append_skills"`
	IncludeLores              bool `json:"include_lores"`
	IncludeCostumes           bool `json:"include_costumes"`
	IncludeSoundtracks        bool `json:"include_soundtracks"`
}

// Bits packs the options into a small integer, stable across releases.
func (o FilterOptions) Bits() uint8 {
	var b uint8
	for i, on := range []bool{
		o.IncludeUnsummonedServants,
		o.IncludeAppendSkills,
		o.IncludeLores,
		o.IncludeCostumes,
		o.IncludeSoundtracks,
	} {
		if on {
			b |= 1 << i
		}
	}
	return b
}

// FilterOptionsFromBits is the inverse of FilterOptions.Bits.
func FilterOptionsFromBits(b uint8) FilterOptions {
	return FilterOptions{
		IncludeUnsummonedServants: b&(1<<0) != 0,
		IncludeAppendSkills:       b&(1<<1) != 0,
		IncludeLores:              b&(1<<2) != 0,
		IncludeCostumes:           b&(1<<3) != 0,
		IncludeSoundtracks:        b&(1<<4) != 0,
	}
}

// ItemStat is the aggregate for one material.
type ItemStat struct {
	Inventory int `json:"inventory"`
	Used      int `json:"used"`
	Cost      int `json:"cost"`
	Debt      int `json:"debt"`
}

// ItemStats maps material id to its aggregate.
type ItemStats map[resource.ItemID]*ItemStat

// get returns the stat for id, creating a zero one if needed.
func (s ItemStats) get(id resource.ItemID) *ItemStat {
	st, ok := s[id]
	if !ok {
		st = &ItemStat{}
		s[id] = st
	}
	return st
}
