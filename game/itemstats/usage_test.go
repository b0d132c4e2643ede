package itemstats

import (
	"testing"

	"github.com/kasuganosora/materialplanner/resource"
	"github.com/stretchr/testify/assert"
)

const (
	itemA resource.ItemID = 6001
	itemB resource.ItemID = 6002
)

func enh(qp int, items ...int) resource.Enhancement {
	e := resource.Enhancement{Items: map[resource.ItemID]int{}, QP: qp}
	for i := 0; i+1 < len(items); i += 2 {
		e.Items[resource.ItemID(items[i])] = items[i+1]
	}
	return e
}

// ---- ComputeUsage ----

func TestComputeUsage_PartiallyCompleted(t *testing.T) {
	u := ComputeUsage(enh(1000, int(itemA), 2, int(itemB), 5), 3, 1, false)

	assert.Equal(t, UsageDelta{Cost: 6, Used: 2, Debt: 4}, u[itemA])
	assert.Equal(t, UsageDelta{Cost: 15, Used: 5, Debt: 10}, u[itemB])
	assert.Equal(t, UsageDelta{Cost: 3000, Used: 1000, Debt: 2000}, u[resource.QPItemID])
}

func TestComputeUsage_AllCompleted(t *testing.T) {
	u := ComputeUsage(enh(0, int(itemA), 4), 1, 1, false)
	assert.Equal(t, UsageDelta{Cost: 4, Used: 4, Debt: 0}, u[itemA])
}

func TestComputeUsage_ExcludeDebt(t *testing.T) {
	u := ComputeUsage(enh(500, int(itemA), 2), 3, 0, true)
	assert.Equal(t, UsageDelta{Cost: 6, Used: 0, Debt: 0}, u[itemA])
	assert.Equal(t, UsageDelta{Cost: 1500, Used: 0, Debt: 0}, u[resource.QPItemID])
}

func TestComputeUsage_ZeroQPNotReported(t *testing.T) {
	u := ComputeUsage(enh(0, int(itemA), 1), 1, 0, false)
	_, ok := u[resource.QPItemID]
	assert.False(t, ok)
	assert.Len(t, u, 1)
}

func TestComputeUsage_QPAlsoListedAsItem(t *testing.T) {
	u := ComputeUsage(enh(100, int(resource.QPItemID), 50), 1, 0, false)
	assert.Equal(t, UsageDelta{Cost: 150, Used: 0, Debt: 150}, u[resource.QPItemID])
}

// ---- helpers ----

func TestSkillUses(t *testing.T) {
	levels := [SkillSlots]int{4, 4, 1}
	assert.Equal(t, 2, skillUses(levels, 1))
	assert.Equal(t, 2, skillUses(levels, 3))
	assert.Equal(t, 0, skillUses(levels, 4))
	assert.Equal(t, 3, skillUses([SkillSlots]int{10, 10, 10}, LoreTier))
	assert.Equal(t, 0, skillUses([SkillSlots]int{}, 1))
}

func TestAttained(t *testing.T) {
	assert.Equal(t, 1, attained(true))
	assert.Equal(t, 0, attained(false))
}

// ---- FilterOptions ----

func TestFilterOptions_BitsRoundTrip(t *testing.T) {
	for b := uint8(0); b < 32; b++ {
		assert.Equal(t, b, FilterOptionsFromBits(b).Bits())
	}
	assert.Equal(t, uint8(0), FilterOptions{}.Bits())
	assert.Equal(t, uint8(1<<2), FilterOptions{IncludeLores: true}.Bits())
}
