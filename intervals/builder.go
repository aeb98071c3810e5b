// Package intervals builds closed (or open-ended) StatusIntervals from a
// stream of apply/remove buff-change events, grounded on the teacher's
// ships/modifier_stack.go ModifierLayer (AppliedAt / ExpiresAt *time.Time,
// where nil means permanent — the direct ancestor of SentinelOpen) and its
// RemoveExpired sweep. The same state machine drives buffs and debuffs
// (vulnerabilities); deaths are turned into intervals separately by
// BuildDeathIntervals.
package intervals

import (
	"sort"

	"github.com/nicoberrocal/combatlog/catalog"
	"github.com/nicoberrocal/combatlog/model"
)

// GroupMode selects whether open intervals are tracked per (source, buff)
// — the buff case — or per (target, buff) — the vulnerability case.
type GroupMode int

const (
	GroupBySource GroupMode = iota
	GroupByTarget
)

type openInterval struct {
	owner         string // source (buffs) or target (vulnerabilities)
	buff          string
	start         model.Timestamp
	stacks        int
	activeTargets map[string]struct{} // currently-applied targets; closes when empty
	everTargets   map[string]struct{} // every target ever applied, retained for attribution after close
	source        string              // the original applier, retained even after close
}

// Builder accumulates open intervals and emits closed ones as soon as
// their target set empties (or, for the early-remove heuristic, as soon
// as an orphan remove is observed near pull).
type Builder struct {
	mode                 GroupMode
	earlyRemoveThreshold model.Timestamp

	open   map[string]*openInterval
	closed []model.StatusInterval
	diags  []model.Diagnostic
}

// NewBuilder constructs a Builder. earlyRemoveThresholdMs is the window
// (from encounter start) within which an orphan remove synthesizes a
// {0, ts} interval, per spec.md §4.2's early-remove heuristic.
func NewBuilder(mode GroupMode, earlyRemoveThresholdMs model.Timestamp) *Builder {
	return &Builder{
		mode:                 mode,
		earlyRemoveThreshold: earlyRemoveThresholdMs,
		open:                 make(map[string]*openInterval),
	}
}

func (b *Builder) key(owner, buff string) string {
	return owner + "\x00" + buff
}

func (b *Builder) ownerOf(ev model.BuffChange) string {
	if b.mode == GroupByTarget {
		return ev.Target
	}
	return ev.Source
}

// Apply processes a single buff/debuff-change event in chronological
// order.
func (b *Builder) Apply(ev model.BuffChange) {
	buff := catalog.Normalize(ev.AbilityName)
	owner := b.ownerOf(ev)
	k := b.key(owner, buff)

	switch ev.Kind {
	case model.BuffApply:
		iv, ok := b.open[k]
		if !ok {
			iv = &openInterval{
				owner:         owner,
				buff:          buff,
				start:         ev.Timestamp,
				activeTargets: map[string]struct{}{},
				everTargets:   map[string]struct{}{},
				source:        ev.Source,
			}
			b.open[k] = iv
		}
		iv.activeTargets[ev.Target] = struct{}{}
		iv.everTargets[ev.Target] = struct{}{}
		if ev.Stacks != nil {
			iv.stacks = *ev.Stacks
		} else if iv.stacks == 0 {
			iv.stacks = 1
		}

	case model.BuffApplyStack:
		iv, ok := b.open[k]
		if !ok {
			iv = &openInterval{
				owner:         owner,
				buff:          buff,
				start:         ev.Timestamp,
				activeTargets: map[string]struct{}{},
				everTargets:   map[string]struct{}{},
				source:        ev.Source,
			}
			b.open[k] = iv
		}
		iv.activeTargets[ev.Target] = struct{}{}
		iv.everTargets[ev.Target] = struct{}{}
		if ev.Stacks != nil {
			iv.stacks = *ev.Stacks
		}

	case model.BuffRemoveStack:
		iv, ok := b.open[k]
		if !ok {
			return
		}
		if ev.Stacks != nil {
			iv.stacks = *ev.Stacks
		} else {
			iv.stacks--
		}
		if iv.stacks < 0 {
			b.diags = append(b.diags, model.Diagnostic{
				Kind: model.DiagInvariantViolation, Severity: model.SevWarn,
				Message:   "negative stack count corrected to 0 for " + buff,
				Timestamp: ev.Timestamp,
			})
			iv.stacks = 0
		}

	case model.BuffRemove:
		iv, ok := b.open[k]
		if !ok {
			if ev.Timestamp <= b.earlyRemoveThreshold {
				b.closed = append(b.closed, model.StatusInterval{
					Source:   ev.Source,
					BuffName: buff,
					Start:    0,
					End:      ev.Timestamp,
					Stacks:   1,
					Targets:  map[string]struct{}{ev.Target: {}},
				})
			} else {
				b.diags = append(b.diags, model.Diagnostic{
					Kind: model.DiagAttributionGap, Severity: model.SevWarn,
					Message:   "orphan remove discarded for " + buff,
					Timestamp: ev.Timestamp,
				})
			}
			return
		}
		delete(iv.activeTargets, ev.Target)
		if len(iv.activeTargets) == 0 {
			b.close(k, iv, ev.Timestamp)
		}

	case model.BuffRefresh:
		// no state change

	default:
	}
}

func (b *Builder) close(k string, iv *openInterval, end model.Timestamp) {
	if end <= iv.start {
		end = iv.start + 1
		b.diags = append(b.diags, model.Diagnostic{
			Kind: model.DiagInvariantViolation, Severity: model.SevWarn,
			Message:   "cooldown-like interval end <= start corrected for " + iv.buff,
			Timestamp: end,
		})
	}
	b.closed = append(b.closed, model.StatusInterval{
		Source:   iv.source,
		BuffName: iv.buff,
		Start:    iv.start,
		End:      end,
		Stacks:   iv.stacks,
		Targets:  iv.everTargets,
	})
	delete(b.open, k)
}

// Close finalizes the builder at encounter end: any still-open intervals
// are emitted with End == SentinelOpen. It returns all emitted intervals
// sorted by Start.
func (b *Builder) Close(encounterEnd model.Timestamp) []model.StatusInterval {
	keys := make([]string, 0, len(b.open))
	for k := range b.open {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		iv := b.open[k]
		b.closed = append(b.closed, model.StatusInterval{
			Source:   iv.source,
			BuffName: iv.buff,
			Start:    iv.start,
			End:      model.SentinelOpen,
			Stacks:   iv.stacks,
			Targets:  iv.everTargets,
		})
	}
	b.open = make(map[string]*openInterval)
	sort.SliceStable(b.closed, func(i, j int) bool {
		return b.closed[i].Start < b.closed[j].Start
	})
	return b.closed
}

// Diagnostics returns the non-fatal events recorded while building.
func (b *Builder) Diagnostics() []model.Diagnostic {
	return b.diags
}

// BuildDeathIntervals turns a chronological slice of Death events into
// per-actor DeathIntervals: each death ends at the next death for the
// same actor (inferred revival) or at encounterEnd for the actor's final
// death.
func BuildDeathIntervals(deaths []model.Death, encounterEnd model.Timestamp) []model.DeathInterval {
	byActor := make(map[string][]model.Timestamp)
	for _, d := range deaths {
		byActor[d.Actor] = append(byActor[d.Actor], d.Timestamp)
	}
	actors := make([]string, 0, len(byActor))
	for actor := range byActor {
		actors = append(actors, actor)
	}
	sort.Strings(actors)

	var out []model.DeathInterval
	for _, actor := range actors {
		ts := byActor[actor]
		sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
		for i, start := range ts {
			end := encounterEnd
			if i+1 < len(ts) {
				end = ts[i+1]
			}
			if end <= start {
				end = start + 1
			}
			out = append(out, model.DeathInterval{Actor: actor, Start: start, End: end})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Actor < out[j].Actor
	})
	return out
}
