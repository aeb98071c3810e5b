// Package encounter wires the cooldown, interval, availability,
// attribution, mitigation and resolver packages into the single pass
// described by spec.md §4.8: parse → roster → intervals → merged cast
// timeline → cooldown engine → availability index → rows → attribution →
// mitigation → persisted FightTable. It is the only package that
// constructs a model.FightTable and is grounded on the teacher's
// ships/battle_report_builder.go NewBattleReport/AddBattleRound
// step-by-step struct assembly.
package encounter

import (
	"context"
	"math"
	"sort"

	"github.com/nicoberrocal/combatlog/attribution"
	"github.com/nicoberrocal/combatlog/availability"
	"github.com/nicoberrocal/combatlog/catalog"
	"github.com/nicoberrocal/combatlog/cooldown"
	"github.com/nicoberrocal/combatlog/intervals"
	"github.com/nicoberrocal/combatlog/mitigation"
	"github.com/nicoberrocal/combatlog/model"
	"github.com/nicoberrocal/combatlog/resolver"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Input bundles the immutable per-fight event stream and actor catalog
// described in spec.md §6's "Inputs" list.
type Input struct {
	EncounterID      string
	Name             string
	EncounterEnd     model.Timestamp
	Actors           []model.Actor
	Casts            []model.Cast        // deliberate casts; auto-attacks are merged in separately
	CalculatedDamage []model.DamageTaken // EventKind == calculated_damage, drives auto-attack recognition and botched-buff pairing
	DamageEvents     []model.DamageTaken // EventKind == damage, the final packets rows are built from
	BuffChanges      []model.BuffChange
	DebuffChanges    []model.DebuffChange
	Deaths           []model.Death
}

// Config bundles the immutable configuration tables spec.md §6 lists:
// the catalog, dependency map, resolver tables, and constants.
type Config struct {
	Catalog     *catalog.Catalog
	DepMap      []cooldown.DependencyEntry
	Constants   cooldown.Constants
	PaladinJob  string
	PaladinTrio []string

	LookbackMs             model.Timestamp
	EarlyRemoveThresholdMs model.Timestamp

	VulnNames       map[string]bool     // normalized vulnerability buff names
	KnownBuffJobs   map[string][]string // normalized buff -> candidate jobs
	IgnoredBuffs    map[string]bool     // normalized buffs stripped from active_buffs before attribution
	AutoAttackNames map[string]bool     // normalized ability names recognized as auto-attacks

	ResolverOverrides map[string]string // normalized buff -> override ability
	LinkedAbilities   resolver.LinkedGraph
}

// Assembler drives one encounter's build. It is stateless between calls;
// each Assemble call owns its own trackers/oath/selections/BuffSourceMap
// for the lifetime of that one encounter, per spec.md §5.
type Assembler struct {
	cfg Config
}

// New builds an Assembler over a fixed configuration.
func New(cfg Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// Assemble runs the full pipeline and returns the finished FightTable.
// ctx bounds only the resolver's background drain (spec.md §5); nothing
// else in the pipeline can block or fail outside individual event drops.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*model.FightTable, error) {
	roster := make(map[string]string, len(in.Actors))       // actor name -> job, every actor
	playerRoster := make(map[string]string, len(in.Actors)) // actor name -> job, model.RolePlayer only
	var friendlyIDs []string
	for _, actor := range in.Actors {
		roster[actor.Name] = actor.Job
		if actor.Role == model.RolePlayer {
			friendlyIDs = append(friendlyIDs, actor.ID)
			playerRoster[actor.Name] = actor.Job
		}
	}
	resolveJob := func(name string) (string, bool) {
		job, ok := roster[name]
		return job, ok
	}

	table := &model.FightTable{
		FightID:             bson.NewObjectID(),
		EncounterID:         in.EncounterID,
		Name:                in.Name,
		FriendlyPlayerIDs:   friendlyIDs,
		Trackers:            make(map[string]*model.Tracker),
		ExclusiveSelections: make(map[string]string),
	}

	casts := a.mergeAutoAttacks(in.Casts, in.CalculatedDamage)

	statusIntervals, debuffDiags := a.buildStatusIntervals(in.BuffChanges, in.EncounterEnd)
	vulnIntervals, vulnDiags := a.buildVulnIntervals(in.DebuffChanges, in.EncounterEnd)
	deaths := sortedDeaths(in.Deaths)
	deathIntervals := intervals.BuildDeathIntervals(deaths, in.EncounterEnd)

	engine := cooldown.New(a.cfg.Catalog, a.cfg.DepMap, a.cfg.Constants, a.cfg.PaladinJob, a.cfg.PaladinTrio)
	trackers, exclusiveSelections, _, engineDiags := engine.Run(casts, deaths, resolveJob)
	table.Trackers = trackers
	table.ExclusiveSelections = exclusiveSelections

	idx := availability.Build(trackers)

	res := resolver.New(a.cfg.Catalog, a.cfg.ResolverOverrides, a.cfg.KnownBuffJobs, a.cfg.LinkedAbilities)
	jobOf := a.classifyBuffs(res, in.BuffChanges, roster)
	if err := res.Drain(ctx, jobOf); err != nil {
		return nil, err
	}

	attrib := attribution.New(a.cfg.LookbackMs, a.cfg.VulnNames, a.cfg.KnownBuffJobs, statusIntervals, vulnIntervals, deathIntervals)

	calcByKey := indexCalculatedDamage(in.CalculatedDamage)

	// Damage events must be processed in (timestamp, actor) order: the
	// availability index's per-tracker cursor only ever advances forward.
	damageEvents := make([]model.DamageTaken, len(in.DamageEvents))
	copy(damageEvents, in.DamageEvents)
	sort.SliceStable(damageEvents, func(i, j int) bool {
		if damageEvents[i].Timestamp != damageEvents[j].Timestamp {
			return damageEvents[i].Timestamp < damageEvents[j].Timestamp
		}
		return damageEvents[i].Actor < damageEvents[j].Actor
	})

	rows := make([]model.Row, 0, len(damageEvents))
	for _, ev := range damageEvents {
		if ev.EventKind != model.DamageKindDamage {
			continue
		}
		rows = append(rows, a.buildRow(ev, roster, playerRoster, idx, res, attrib, calcByKey, exclusiveSelections))
	}

	attrib.Sweep(rows, playerRoster)

	table.Rows = rows

	for _, d := range debuffDiags {
		table.AddDiagnostic(d)
	}
	for _, d := range vulnDiags {
		table.AddDiagnostic(d)
	}
	for _, d := range engineDiags {
		table.AddDiagnostic(d)
	}
	for _, d := range attrib.Diagnostics() {
		table.AddDiagnostic(d)
	}

	return table, nil
}

// mergeAutoAttacks folds calculated-damage events tagged as auto-attacks
// into the cast timeline, sorted by (timestamp, source) per spec.md §4.8.
func (a *Assembler) mergeAutoAttacks(casts []model.Cast, calculated []model.DamageTaken) []model.Cast {
	merged := make([]model.Cast, len(casts))
	copy(merged, casts)
	for _, ev := range calculated {
		if ev.EventKind != model.DamageKindCalculated {
			continue
		}
		if !a.cfg.AutoAttackNames[catalog.Normalize(ev.AbilityName)] {
			continue
		}
		merged = append(merged, model.Cast{
			Timestamp:   ev.Timestamp,
			Source:      ev.Source,
			AbilityName: ev.AbilityName,
			Kind:        model.CastKindAutoAttack,
		})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].Source < merged[j].Source
	})
	return merged
}

func (a *Assembler) buildStatusIntervals(changes []model.BuffChange, encounterEnd model.Timestamp) ([]model.StatusInterval, []model.Diagnostic) {
	sorted := make([]model.BuffChange, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	b := intervals.NewBuilder(intervals.GroupBySource, a.cfg.EarlyRemoveThresholdMs)
	for _, ev := range sorted {
		b.Apply(ev)
	}
	return b.Close(encounterEnd), b.Diagnostics()
}

func (a *Assembler) buildVulnIntervals(changes []model.DebuffChange, encounterEnd model.Timestamp) ([]model.StatusInterval, []model.Diagnostic) {
	sorted := make([]model.DebuffChange, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	b := intervals.NewBuilder(intervals.GroupByTarget, a.cfg.EarlyRemoveThresholdMs)
	for _, ev := range sorted {
		b.Apply(model.BuffChange{
			Timestamp: ev.Timestamp, Source: ev.Source, Target: ev.Target,
			AbilityID: ev.AbilityID, AbilityName: ev.AbilityName, Stacks: ev.Stacks, Kind: ev.Kind,
		})
	}
	return b.Close(encounterEnd), b.Diagnostics()
}

func sortedDeaths(deaths []model.Death) []model.Death {
	out := make([]model.Death, len(deaths))
	copy(out, deaths)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// classifyBuffs runs the resolver's synchronous classification over
// every observed buff, returning the per-buff job guess (the caster's
// job at first observation) the background drain uses for its fuzzy
// effects-substring search.
func (a *Assembler) classifyBuffs(res *resolver.Resolver, changes []model.BuffChange, roster map[string]string) map[string]string {
	jobOf := make(map[string]string)
	for _, ev := range changes {
		if ev.Kind != model.BuffApply && ev.Kind != model.BuffApplyStack {
			continue
		}
		job := roster[ev.Source]
		res.Classify(ev.AbilityName, job)
		norm := catalog.Normalize(ev.AbilityName)
		if _, seen := jobOf[norm]; !seen {
			jobOf[norm] = job
		}
	}
	return jobOf
}

type calcKey struct {
	ts     model.Timestamp
	actor  string
	source string
}

func indexCalculatedDamage(calculated []model.DamageTaken) map[calcKey][]string {
	out := make(map[calcKey][]string, len(calculated))
	for _, ev := range calculated {
		if ev.EventKind != model.DamageKindCalculated {
			continue
		}
		out[calcKey{ts: ev.Timestamp, actor: ev.Actor, source: ev.Source}] = ev.ActiveBuffs
	}
	return out
}

func (a *Assembler) buildRow(ev model.DamageTaken, roster, playerRoster map[string]string, idx *availability.Index, res *resolver.Resolver, attrib *attribution.Attributor, calcByKey map[calcKey][]string, exclusiveSelections map[string]string) model.Row {
	row := model.Row{
		Timestamp:   ev.Timestamp,
		Source:      ev.Source,
		Actor:       ev.Actor,
		Ability:     ev.AbilityName,
		Amount:      ev.Amount,
		Absorbed:    ev.Absorbed,
		Unmitigated: ev.Unmitigated,
		DamageType:  ev.DamageType,
	}
	row.Mitigated = ev.Unmitigated - ev.Amount - ev.Absorbed
	if row.Mitigated < 0 {
		row.Mitigated = 0
	}
	if ev.Unmitigated > 0 {
		row.MitigationPct = math.Round(100 * (1 - float64(ev.Amount)/float64(ev.Unmitigated)))
	}

	activeBuffs := stripIgnored(ev.ActiveBuffs, a.cfg.IgnoredBuffs)

	// Buffs are credited to their source under their original display
	// name: status intervals are keyed by the name as it was applied, and
	// Row.Buffs's contract (spec.md §3, §8 scenario 5) is the buff's own
	// name, not its resolved parent ability.
	attrib.CreditBuffs(ev.Timestamp, activeBuffs, &row)
	attrib.CreditVulnsAndDeaths(ev.Timestamp, ev.Actor, &row)

	// Mitigation arithmetic looks the buff up by its resolved parent
	// ability identity (spec.md §4.6/§4.7), not its raw display name.
	resolved := res.ResolveList(activeBuffs, activeBuffs)
	actorJob := roster[ev.Actor]
	var mitDiags []model.Diagnostic
	row.IntendedMitPct, mitDiags = mitigation.Compute(resolved, ev.DamageType, actorJob, a.cfg.Catalog)
	row.Botched = mitigation.Botched(row.IntendedMitPct, row.MitigationPct)
	attrib.AddDiagnostics(mitDiags)

	if calcBuffs, ok := calcByKey[calcKey{ts: ev.Timestamp, actor: ev.Actor, source: ev.Source}]; ok {
		row.PotentiallyBotchedBuffs = mitigation.PotentiallyBotchedBuffs(ev.ActiveBuffs, calcBuffs)
	}

	// Only player actors participate in mitigation (spec.md §3); a pet or
	// NPC sharing a player's job must not acquire its own availability entry.
	row.AvailableMitigationsByPlayer = make(map[string][]string, len(playerRoster))
	for player, job := range playerRoster {
		baseline := a.cfg.Catalog.MitigationList(job, exclusiveSelections)
		if avail := idx.AvailableAt(ev.Timestamp, player, baseline, catalog.Normalize); len(avail) > 0 {
			row.AvailableMitigationsByPlayer[player] = avail
		}
	}

	return row
}

func stripIgnored(buffs []string, ignored map[string]bool) []string {
	if len(ignored) == 0 {
		return buffs
	}
	out := make([]string, 0, len(buffs))
	for _, b := range buffs {
		if ignored[catalog.Normalize(b)] {
			continue
		}
		out = append(out, b)
	}
	return out
}
