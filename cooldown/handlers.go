package cooldown

import (
	"fmt"

	"github.com/nicoberrocal/combatlog/catalog"
	"github.com/nicoberrocal/combatlog/model"
)

// handleMutualExclusivePair implements the draw-pair handler: the
// trigger opens a resource lock; any affected ability's still-open last
// window resolves to that window's own start plus the trigger's recast
// (see spec.md §8 scenario 2: Astral Draw's {60000, Open} resolves to
// {60000, 115000} when Umbral Draw, recast 55000, is cast at 120000 —
// 60000 + 55000, not 120000 + 55000).
func (e *Engine) handleMutualExclusivePair(dep DependencyEntry, c model.Cast, tr *model.Tracker, recastMs model.Timestamp) {
	tr.Windows = append(tr.Windows, model.CooldownWindow{Start: c.Timestamp, End: model.SentinelOpen})
	model.SortWindows(tr)

	for _, affects := range dep.Affects {
		norm := catalog.Normalize(affects)
		other, ok := e.trackerFor(c.Source, norm)
		if !ok || len(other.Windows) == 0 {
			continue
		}
		last := &other.Windows[len(other.Windows)-1]
		if !last.IsOpen() {
			continue
		}
		end := last.Start + recastMs
		if end <= last.Start {
			end = last.Start + 1
		}
		last.End = end
		model.SortWindows(other)
	}
}

// handleCardDependency implements the astro-card placeholder/resolve
// handler. A cast is a "card cast" when the trigger appears in its own
// affects list (it opens a placeholder lock); otherwise it is a
// "resolving draw" that closes any still-open locks on its affected
// abilities at the current timestamp (see spec.md §8 scenario 1).
func (e *Engine) handleCardDependency(dep DependencyEntry, c model.Cast, tr *model.Tracker) {
	abilityNorm := catalog.Normalize(c.AbilityName)
	isCardCast := false
	for _, a := range dep.Affects {
		if catalog.Normalize(a) == abilityNorm {
			isCardCast = true
			break
		}
	}
	if isCardCast {
		tr.Windows = append(tr.Windows, model.CooldownWindow{Start: c.Timestamp, End: model.SentinelOpen})
		model.SortWindows(tr)
		return
	}

	for _, affects := range dep.Affects {
		norm := catalog.Normalize(affects)
		other, ok := e.trackerFor(c.Source, norm)
		if !ok || len(other.Windows) == 0 {
			continue
		}
		last := &other.Windows[len(other.Windows)-1]
		if !last.IsOpen() {
			continue
		}
		end := c.Timestamp
		if end <= last.Start {
			end = last.Start + 1
		}
		last.End = end
		model.SortWindows(other)
	}
}

// handleCharged implements multi-charge regeneration: charges regenerate
// at one per recastMs, capped at maxCharges, tracked as a remainder so
// partial regeneration carries forward across casts. A window is only
// recorded when the cast exhausts the last charge (spec.md §8 scenario
// 4, §4.3).
func (e *Engine) handleCharged(c model.Cast, tr *model.Tracker, recastMs model.Timestamp, maxCharges int) {
	if tr.Charged == nil {
		tr.Charged = &model.ChargedState{MaxCharges: maxCharges, Charges: maxCharges}
	}
	cs := tr.Charged
	if cs.MaxCharges != maxCharges {
		cs.MaxCharges = maxCharges
	}

	var elapsed model.Timestamp
	if cs.HasLast {
		elapsed = c.Timestamp - cs.LastTs
	}
	total := elapsed + cs.RemainderMs

	if cs.Charges >= cs.MaxCharges {
		cs.Charges = cs.MaxCharges
		cs.RemainderMs = 0
	} else {
		gained := int64(total) / int64(recastMs)
		cs.Charges += int(gained)
		if cs.Charges >= cs.MaxCharges {
			cs.Charges = cs.MaxCharges
			cs.RemainderMs = 0
		} else {
			cs.RemainderMs = total % recastMs
		}
	}
	cs.LastTs = c.Timestamp
	cs.HasLast = true

	remainderBeforeCast := cs.RemainderMs
	cs.Charges--
	if cs.Charges < 0 {
		cs.Charges = 0
	}

	if cs.Charges == 0 {
		windowLen := recastMs
		if remainderBeforeCast > 0 && remainderBeforeCast < recastMs {
			windowLen = recastMs - remainderBeforeCast
		}
		end := c.Timestamp + windowLen
		if end <= c.Timestamp {
			end = c.Timestamp + 1
		}
		tr.Windows = append(tr.Windows, model.CooldownWindow{Start: c.Timestamp, End: end})
		model.SortWindows(tr)
	}
}

// handlePaladinOath implements the oath-costing mitigation abilities
// (Intervention, Sheltron, Holy Sheltron): a default cooldown window is
// recorded and the gauge is debited regardless of sufficiency; the lock
// itself is placed by the post-hook (ensureOathLock), invoked from Run
// after every Paladin oath-ability cast.
func (e *Engine) handlePaladinOath(c model.Cast, tr *model.Tracker, recastMs model.Timestamp) {
	end := c.Timestamp + recastMs
	if end <= c.Timestamp {
		end = c.Timestamp + 1
	}
	tr.Windows = append(tr.Windows, model.CooldownWindow{Start: c.Timestamp, End: end})
	model.SortWindows(tr)

	if sufficient := e.oath.Debit(c.Source, e.constants.OathCost); !sufficient {
		e.diagnostics = append(e.diagnostics, model.Diagnostic{
			Kind: model.DiagResourceUnderflow, Severity: model.SevWarn,
			Message:   fmt.Sprintf("%s cast %s with insufficient oath gauge", c.Source, c.AbilityName),
			Timestamp: c.Timestamp,
		})
	}
}

// handlePaladinAuto implements gauge regeneration from auto-attacks: on
// crossing the threshold back to >= oath cost, every still-open lock on
// the oath trio resolves to the current timestamp (spec.md §8 scenario
// 3).
func (e *Engine) handlePaladinAuto(c model.Cast) {
	newGauge := e.oath.Credit(c.Source, e.constants.OathGainPerAuto)
	if newGauge < e.constants.OathCost {
		return
	}
	for _, ability := range e.paladinTrio {
		tr, ok := e.trackerFor(c.Source, ability)
		if !ok {
			continue
		}
		changed := false
		for i := range tr.Windows {
			if !tr.Windows[i].IsOpen() {
				continue
			}
			end := c.Timestamp
			if end < tr.Windows[i].Start+1 {
				end = tr.Windows[i].Start + 1
			}
			tr.Windows[i].End = end
			changed = true
		}
		if changed {
			model.SortWindows(tr)
		}
	}
}

// paladinDeathLock forces the dead paladin's gauge to 0 and ensures each
// of the oath trio's trackers carries an open lock starting at the death
// timestamp.
func (e *Engine) paladinDeathLock(d model.Death) {
	e.oath.ForceZero(d.Actor)
	for _, ability := range e.paladinTrio {
		key := model.TrackerKey(d.Actor, ability)
		tr, ok := e.trackers[key]
		if !ok {
			recastMs, _, ok2 := e.cat.ResolveCooldown(e.paladinJob, ability)
			if !ok2 {
				continue
			}
			tr = &model.Tracker{Ability: ability, Player: d.Actor, Job: e.paladinJob, BaseRecastMs: recastMs}
			e.trackers[key] = tr
		}
		if hasOpenWindowAt(tr, d.Timestamp) {
			continue
		}
		tr.Windows = append(tr.Windows, model.CooldownWindow{Start: d.Timestamp, End: model.SentinelOpen})
		model.SortWindows(tr)
	}
}

// ensureOathLock is the post-hook run after every oath-ability cast: if
// the caster's gauge is below the oath cost, it guarantees an open lock
// exists on every oath-trio tracker at the current timestamp, deduped by
// identical start.
func (e *Engine) ensureOathLock(player string, ts model.Timestamp) {
	if e.oath.Get(player) >= e.constants.OathCost {
		return
	}
	for _, ability := range e.paladinTrio {
		key := model.TrackerKey(player, ability)
		tr, ok := e.trackers[key]
		if !ok {
			recastMs, _, ok2 := e.cat.ResolveCooldown(e.paladinJob, ability)
			if !ok2 {
				continue
			}
			tr = &model.Tracker{Ability: ability, Player: player, Job: e.paladinJob, BaseRecastMs: recastMs}
			e.trackers[key] = tr
		}
		if hasOpenWindowAt(tr, ts) {
			continue
		}
		tr.Windows = append(tr.Windows, model.CooldownWindow{Start: ts, End: model.SentinelOpen})
		model.SortWindows(tr)
	}
}

func hasOpenWindowAt(tr *model.Tracker, ts model.Timestamp) bool {
	for _, w := range tr.Windows {
		if w.Start == ts && w.IsOpen() {
			return true
		}
	}
	return false
}
