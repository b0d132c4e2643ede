package resource

import "sort"

// ItemID identifies a material. QPItemID and LoreItemID are virtual items.
type ItemID int

// ServantID identifies a catalog servant.
type ServantID int

// CostumeID identifies a costume unlock.
type CostumeID int

// SoundtrackID identifies a soundtrack.
type SoundtrackID int

// Tier is one step of an enhancement table (skill level, ascension stage).
type Tier int

const (
	// QPItemID is the item id under which the currency cost of an enhancement is counted.
	QPItemID ItemID = 1
	// LoreItemID is the narrative unlock material bundled into the last skill tier.
	LoreItemID ItemID = 6999
)

// ItemAmount is a single item requirement.
type ItemAmount struct {
	ItemID ItemID `json:"itemId"`
	Amount int    `json:"amount"`
}

// Enhancement is the material cost of one enhancement step.
// It is reference data and must not be mutated after load.
type Enhancement struct {
	Items map[ItemID]int
	QP    int
}

// EnhancementTier pairs a tier with its cost.
type EnhancementTier struct {
	Tier        Tier
	Enhancement Enhancement
}

// CostumeEnhancement is the unlock cost of one costume.
type CostumeEnhancement struct {
	CostumeID   CostumeID
	Enhancement Enhancement
}

// Servant is the static enhancement cost definition of a servant.
// Tables are ordered by tier (costumes by id).
type Servant struct {
	ID           ServantID
	Name         string
	Skills       []EnhancementTier
	AppendSkills []EnhancementTier
	Ascensions   []EnhancementTier
	Costumes     []CostumeEnhancement
}

// Soundtrack is an unlockable music track. Material is nil for tracks
// that are unlocked by default.
type Soundtrack struct {
	ID       SoundtrackID `json:"id"`
	Name     string       `json:"name"`
	Material *ItemAmount  `json:"material,omitempty"`
}

// ServantCatalog is a servant lookup table keyed by id.
type ServantCatalog map[ServantID]*Servant

// ServantByID returns the servant with the given id or nil.
func (c ServantCatalog) ServantByID(id ServantID) *Servant {
	return c[id]
}

// Sorted returns the catalog's servants ordered by id.
func (c ServantCatalog) Sorted() []*Servant {
	out := make([]*Servant, 0, len(c))
	for _, s := range c {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
