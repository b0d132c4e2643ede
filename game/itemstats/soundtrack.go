package itemstats

import "github.com/kasuganosora/materialplanner/resource"

// AccumulateSoundtracks folds soundtrack unlock costs into stats. Tracks
// without an unlock material are skipped.
func AccumulateSoundtracks(stats ItemStats, soundtracks []*resource.Soundtrack, unlocked map[resource.SoundtrackID]bool) {
	for _, track := range soundtracks {
		if track == nil || track.Material == nil {
			continue
		}
		e := resource.Enhancement{
			Items: map[resource.ItemID]int{track.Material.ItemID: track.Material.Amount},
		}
		stats.apply(e, 1, attained(unlocked[track.ID]), false)
	}
}
