package itemstats

import "github.com/kasuganosora/materialplanner/resource"

// AccumulateServant folds one roster servant's enhancement costs into stats.
// unique must be true only for the first roster occurrence of the catalog
// servant; costumes are counted for that occurrence alone.
func AccumulateServant(
	stats ItemStats,
	servant *resource.Servant,
	rs *RosterServant,
	costumes map[resource.CostumeID]bool,
	opts FilterOptions,
	unique bool,
) {
	accumulateSkills(stats, servant.Skills, rs.Skills, opts.IncludeLores)
	if opts.IncludeAppendSkills {
		accumulateSkills(stats, servant.AppendSkills, rs.AppendSkills, opts.IncludeLores)
	}

	for _, asc := range servant.Ascensions {
		stats.apply(asc.Enhancement, 1, attained(rs.Ascension >= int(asc.Tier)), false)
	}

	if opts.IncludeCostumes && unique {
		for _, c := range servant.Costumes {
			stats.apply(c.Enhancement, 1, attained(costumes[c.CostumeID]), false)
		}
	}
}

// accumulateSkills handles one skill table shared by all SkillSlots slots.
// The top tier's debt is suppressed unless lores are included.
func accumulateSkills(stats ItemStats, table []resource.EnhancementTier, levels [SkillSlots]int, includeLores bool) {
	for _, st := range table {
		if st.Tier >= MaxSkillLevel {
			continue
		}
		excludeDebt := st.Tier == LoreTier && !includeLores
		stats.apply(st.Enhancement, SkillSlots, skillUses(levels, st.Tier), excludeDebt)
	}
}
