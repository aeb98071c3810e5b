// Package cooldown implements the per-(player, ability) cooldown state
// machine: a strictly chronological pass over casts that produces sorted
// cooldown windows, dispatching through a small data-driven handler
// registry (grounded on the teacher's map-dispatch style in
// ships/abilities.go's AbilitiesCatalog and ships/ability_effects.go's
// AbilityEffectsCatalog: behavior described by data the engine looks up,
// not a visitor/interface hierarchy) for the astro-card, mutual-draw,
// charged, and Paladin-oath subsystems.
package cooldown

import (
	"fmt"

	"github.com/nicoberrocal/combatlog/catalog"
	"github.com/nicoberrocal/combatlog/model"
)

// HandlerName identifies one of the finite cast-dispatch subsystems.
type HandlerName string

const (
	HandlerDefault             HandlerName = "default"
	HandlerMutualExclusivePair HandlerName = "mutual_exclusive_pair"
	HandlerCardDependency      HandlerName = "card_dependency"
	HandlerCharged             HandlerName = "charged_cooldown"
	HandlerPaladinOathAbility  HandlerName = "paladin_oath_ability"
	HandlerPaladinAutoAttack   HandlerName = "paladin_auto_attack"
)

// DependencyEntry is one row of the external dependency map: which
// handler a (job, trigger) cast dispatches to, and which other abilities
// it affects.
type DependencyEntry struct {
	Job        string // "" or "any" matches every job
	Trigger    string // ability name, not yet normalized
	Handler    HandlerName
	Affects    []string
	MaxCharges int
}

// Constants bundles the tunable oath-gauge constants from spec.md §6.
type Constants struct {
	OathCost        int
	OathGainPerAuto int
	OathMax         int
	StartingOath    int
}

// DefaultConstants mirrors spec.md §6's documented defaults.
func DefaultConstants() Constants {
	return Constants{OathCost: 50, OathGainPerAuto: 5, OathMax: 100, StartingOath: 100}
}

// Engine is the Cooldown Engine. It owns trackers, the oath gauge, and
// the fight's exclusive-group selections for the lifetime of one
// encounter.
type Engine struct {
	cat        *catalog.Catalog
	depMap     []DependencyEntry
	constants  Constants
	paladinJob string
	// paladinTrio holds the normalized names of the three oath-costing
	// abilities (Intervention, Sheltron, Holy Sheltron); they are both
	// the "oath abilities" debited on cast and the trio whose locks the
	// auto-attack/death/post-hook handlers resolve or place.
	paladinTrio []string

	trackers            map[string]*model.Tracker
	oath                *OathGauge
	exclusiveSelections map[string]string
	groupConflictSeen   map[string]bool

	diagnostics []model.Diagnostic
}

// New constructs a Cooldown Engine. paladinJob is the job name the
// oath-gauge mechanics apply to (e.g. "Paladin"); paladinTrio is the
// (not-yet-normalized) ability names debited/regenerated by it.
func New(cat *catalog.Catalog, depMap []DependencyEntry, constants Constants, paladinJob string, paladinTrio []string) *Engine {
	trio := make([]string, len(paladinTrio))
	for i, a := range paladinTrio {
		trio[i] = catalog.Normalize(a)
	}
	return &Engine{
		cat:                 cat,
		depMap:              depMap,
		constants:           constants,
		paladinJob:          paladinJob,
		paladinTrio:         trio,
		trackers:            make(map[string]*model.Tracker),
		oath:                NewOathGauge(constants.StartingOath, constants.OathMax),
		exclusiveSelections: make(map[string]string),
		groupConflictSeen:   make(map[string]bool),
	}
}

// ResolveJobFunc looks up an actor's job by name; ok is false when the
// actor or its job is unknown.
type ResolveJobFunc func(actor string) (job string, ok bool)

// Run processes casts (already sorted chronologically, including merged
// auto-attacks) and deaths (sorted chronologically) and returns the
// populated trackers, the final exclusive selections, and the oath gauge
// it can be queried for tests/diagnostics.
func (e *Engine) Run(casts []model.Cast, deaths []model.Death, resolveJob ResolveJobFunc) (map[string]*model.Tracker, map[string]string, *OathGauge, []model.Diagnostic) {
	deathPtr := 0

	settleDeaths := func(upTo model.Timestamp) {
		for deathPtr < len(deaths) && deaths[deathPtr].Timestamp < upTo {
			d := deaths[deathPtr]
			if job, ok := resolveJob(d.Actor); ok && job == e.paladinJob {
				e.paladinDeathLock(d)
			}
			deathPtr++
		}
	}

	for _, c := range casts {
		settleDeaths(c.Timestamp)

		job, ok := resolveJob(c.Source)
		if !ok {
			e.diagnostics = append(e.diagnostics, model.Diagnostic{
				Kind: model.DiagDataMissing, Severity: model.SevWarn,
				Message: fmt.Sprintf("unresolved job for actor %s, dropping cast %s", c.Source, c.AbilityName), Timestamp: c.Timestamp,
			})
			continue
		}
		abilityNorm := catalog.Normalize(c.AbilityName)

		if groupID, groupJob, ok := e.cat.ExclusiveGroupOf(abilityNorm); ok && groupJob == job {
			e.recordExclusive(groupID, abilityNorm, c.Timestamp)
		}

		recastMs, maxCharges, ok := e.cat.ResolveCooldown(job, abilityNorm)
		if !ok {
			e.diagnostics = append(e.diagnostics, model.Diagnostic{
				Kind: model.DiagDataMissing, Severity: model.SevDebug,
				Message: fmt.Sprintf("no cooldown data for %s/%s, dropping cast", job, abilityNorm), Timestamp: c.Timestamp,
			})
			continue
		}

		key := model.TrackerKey(c.Source, abilityNorm)
		tr, exists := e.trackers[key]
		if !exists {
			tr = &model.Tracker{Ability: abilityNorm, Player: c.Source, Job: job}
			e.trackers[key] = tr
		}
		tr.BaseRecastMs = recastMs

		added := false
		defaultAdd := func() {
			if added {
				return
			}
			end := c.Timestamp + recastMs
			if end <= c.Timestamp {
				end = c.Timestamp + 1
			}
			tr.Windows = append(tr.Windows, model.CooldownWindow{Start: c.Timestamp, End: end})
			model.SortWindows(tr)
			added = true
		}

		matched := false
		for _, dep := range e.depMap {
			if !(dep.Job == "" || dep.Job == "any" || dep.Job == job) {
				continue
			}
			if catalog.Normalize(dep.Trigger) != abilityNorm {
				continue
			}
			matched = true
			e.dispatch(dep, c, tr, recastMs, maxCharges, defaultAdd)
		}
		if !matched {
			defaultAdd()
		}

		if job == e.paladinJob && e.isOathAbility(abilityNorm) {
			e.ensureOathLock(c.Source, c.Timestamp)
		}
	}

	settleDeaths(model.SentinelOpen)

	return e.trackers, e.exclusiveSelections, e.oath, e.diagnostics
}

func (e *Engine) isOathAbility(abilityNorm string) bool {
	for _, a := range e.paladinTrio {
		if a == abilityNorm {
			return true
		}
	}
	return false
}

func (e *Engine) recordExclusive(groupID, abilityNorm string, ts model.Timestamp) {
	if sel, ok := e.exclusiveSelections[groupID]; ok {
		if sel != abilityNorm && !e.groupConflictSeen[groupID] {
			e.groupConflictSeen[groupID] = true
			e.diagnostics = append(e.diagnostics, model.Diagnostic{
				Kind: model.DiagMutualExclusionConflict, Severity: model.SevError,
				Message: fmt.Sprintf("both %s and %s observed in exclusive group %s; keeping %s", sel, abilityNorm, groupID, sel),
				Timestamp: ts,
			})
		}
		return
	}
	e.exclusiveSelections[groupID] = abilityNorm
}

func (e *Engine) dispatch(dep DependencyEntry, c model.Cast, tr *model.Tracker, recastMs model.Timestamp, maxCharges int, defaultAdd func()) {
	switch dep.Handler {
	case HandlerDefault:
		defaultAdd()
	case HandlerMutualExclusivePair:
		e.handleMutualExclusivePair(dep, c, tr, recastMs)
	case HandlerCardDependency:
		e.handleCardDependency(dep, c, tr)
	case HandlerCharged:
		charges := dep.MaxCharges
		if charges < 1 {
			charges = maxCharges
		}
		e.handleCharged(c, tr, recastMs, charges)
	case HandlerPaladinOathAbility:
		e.handlePaladinOath(c, tr, recastMs)
	case HandlerPaladinAutoAttack:
		e.handlePaladinAuto(c)
	default:
		e.diagnostics = append(e.diagnostics, model.Diagnostic{
			Kind: model.DiagDataMissing, Severity: model.SevWarn,
			Message: fmt.Sprintf("malformed dependency entry for trigger %s: unknown handler %q", dep.Trigger, dep.Handler),
			Timestamp: c.Timestamp,
		})
		defaultAdd()
	}
}

func (e *Engine) trackerFor(player, abilityNorm string) (*model.Tracker, bool) {
	tr, ok := e.trackers[model.TrackerKey(player, abilityNorm)]
	return tr, ok
}
