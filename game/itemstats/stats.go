package itemstats

import "github.com/kasuganosora/materialplanner/resource"

// GenerateStats computes the per-material aggregate for account.
//
// The result is seeded with the account's inventory (including its QP
// balance) and then accumulates every tracked roster servant and, when
// enabled, every soundtrack. Roster entries whose servant is not in catalog
// are skipped; use MissingServants to report them.
func GenerateStats(catalog Catalog, soundtracks []*resource.Soundtrack, account *Account, opts FilterOptions) ItemStats {
	stats := make(ItemStats, len(account.Resources.Items)+1)
	for id, qty := range account.Resources.Items {
		stats.get(id).Inventory = qty
	}
	stats.get(resource.QPItemID).Inventory = account.Resources.QP

	walkRoster(catalog, account, opts, func(rs *RosterServant, servant *resource.Servant, unique bool) bool {
		AccumulateServant(stats, servant, rs, account.Costumes, opts, unique)
		return true
	})

	if opts.IncludeSoundtracks {
		AccumulateSoundtracks(stats, soundtracks, account.Soundtracks)
	}
	return stats
}

// GenerateServantStats computes the contribution of a single roster
// instance, without inventory. The boolean is false when the instance does
// not exist, is filtered out, or its servant is missing from catalog.
func GenerateServantStats(catalog Catalog, account *Account, instanceID int64, opts FilterOptions) (ItemStats, bool) {
	var stats ItemStats
	walkRoster(catalog, account, opts, func(rs *RosterServant, servant *resource.Servant, unique bool) bool {
		if rs.InstanceID != instanceID {
			return true
		}
		stats = make(ItemStats)
		AccumulateServant(stats, servant, rs, account.Costumes, opts, unique)
		return false
	})
	return stats, stats != nil
}

// MissingServants lists the distinct servant ids referenced by the roster
// that catalog cannot resolve, in roster order.
func MissingServants(catalog Catalog, account *Account) []resource.ServantID {
	var missing []resource.ServantID
	seen := make(map[resource.ServantID]bool)
	for i := range account.Roster {
		id := account.Roster[i].ServantID
		if seen[id] {
			continue
		}
		seen[id] = true
		if catalog.ServantByID(id) == nil {
			missing = append(missing, id)
		}
	}
	return missing
}

// walkRoster visits every tracked roster servant in order, reporting whether
// it is the first tracked occurrence of its catalog servant. fn returns
// false to stop.
func walkRoster(catalog Catalog, account *Account, opts FilterOptions, fn func(*RosterServant, *resource.Servant, bool) bool) {
	seen := make(map[resource.ServantID]bool, len(account.Roster))
	for i := range account.Roster {
		rs := &account.Roster[i]
		if !rs.Summoned && !opts.IncludeUnsummonedServants {
			continue
		}
		servant := catalog.ServantByID(rs.ServantID)
		if servant == nil {
			continue
		}
		unique := !seen[rs.ServantID]
		seen[rs.ServantID] = true
		if !fn(rs, servant, unique) {
			return
		}
	}
}
