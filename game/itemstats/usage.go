package itemstats

import "github.com/kasuganosora/materialplanner/resource"

// UsageDelta is the contribution of one enhancement to one material.
type UsageDelta struct {
	Cost int
	Used int
	Debt int
}

// Usage is the per-material contribution of one enhancement.
type Usage map[resource.ItemID]UsageDelta

// ComputeUsage applies an enhancement maxUses times, of which usesCompleted
// are already done. The currency cost is reported under resource.QPItemID.
// With excludeDebt set the remaining uses are counted in cost but not in debt.
func ComputeUsage(e resource.Enhancement, maxUses, usesCompleted int, excludeDebt bool) Usage {
	u := make(Usage, len(e.Items)+1)
	add := func(id resource.ItemID, qty int) {
		d := UsageDelta{
			Cost: qty * maxUses,
			Used: qty * usesCompleted,
		}
		if !excludeDebt {
			d.Debt = d.Cost - d.Used
		}
		prev := u[id]
		u[id] = UsageDelta{Cost: prev.Cost + d.Cost, Used: prev.Used + d.Used, Debt: prev.Debt + d.Debt}
	}
	for id, qty := range e.Items {
		add(id, qty)
	}
	if e.QP != 0 {
		add(resource.QPItemID, e.QP)
	}
	return u
}

// fold adds every delta in u to stats.
func (s ItemStats) fold(u Usage) {
	for id, d := range u {
		st := s.get(id)
		st.Cost += d.Cost
		st.Used += d.Used
		st.Debt += d.Debt
	}
}

// apply computes the usage of e and folds it into s.
func (s ItemStats) apply(e resource.Enhancement, maxUses, usesCompleted int, excludeDebt bool) {
	s.fold(ComputeUsage(e, maxUses, usesCompleted, excludeDebt))
}

// skillUses counts the slots whose level is past tier.
func skillUses(levels [SkillSlots]int, tier resource.Tier) int {
	n := 0
	for _, lv := range levels {
		if lv > int(tier) {
			n++
		}
	}
	return n
}

func attained(ok bool) int {
	if ok {
		return 1
	}
	return 0
}
