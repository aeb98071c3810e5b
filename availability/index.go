// Package availability answers "which mitigation abilities are off
// cooldown for player P at time t" for every row timestamp, given the
// Cooldown Engine's final trackers. It is grounded on the teacher's
// ships/modifier_stack.go ModifierStack.Resolve/isLayerApplicable sweep:
// a single ordered pass determining what applies "as of now", generalized
// here into a monotone pointer per tracker advancing across the sorted
// row timestamps (O(|T| + sum of window counts), per spec.md §4.4).
package availability

import "github.com/nicoberrocal/combatlog/model"

type cursor struct {
	windows []model.CooldownWindow
	idx     int
}

// Index answers on-cooldown queries for a fixed set of trackers captured
// at encounter end (the engine must have finished running before an
// Index is built — per spec.md §5(ii), the index never observes
// intermediate cooldown state).
type Index struct {
	cursors map[string]*cursor
}

// Build constructs an Index over the engine's final trackers.
func Build(trackers map[string]*model.Tracker) *Index {
	idx := &Index{cursors: make(map[string]*cursor, len(trackers))}
	for key, tr := range trackers {
		idx.cursors[key] = &cursor{windows: tr.Windows}
	}
	return idx
}

// onCooldown reports whether ability is on cooldown for player at t. Calls
// for the same (player, ability) pair must use non-decreasing t, since the
// cursor only ever advances forward.
func (idx *Index) onCooldown(player, abilityNorm string, t model.Timestamp) bool {
	c, ok := idx.cursors[model.TrackerKey(player, abilityNorm)]
	if !ok {
		return false
	}
	for c.idx < len(c.windows) && !c.windows[c.idx].IsOpen() && c.windows[c.idx].End <= t {
		c.idx++
	}
	if c.idx >= len(c.windows) {
		return false
	}
	return c.windows[c.idx].Covers(t)
}

// AvailableAt returns, from baseline (the player's full mitigation list,
// already reconciled with the fight's exclusive selections), the subset
// that is off cooldown at t. Rows whose actor has no baseline list should
// pass a nil/empty baseline, yielding an empty result.
func (idx *Index) AvailableAt(t model.Timestamp, player string, baseline []string, normalize func(string) string) []string {
	if len(baseline) == 0 {
		return nil
	}
	out := make([]string, 0, len(baseline))
	for _, ability := range baseline {
		if !idx.onCooldown(player, normalize(ability), t) {
			out = append(out, ability)
		}
	}
	return out
}
