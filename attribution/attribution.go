// Package attribution credits active buffs, vulnerabilities, and deaths
// to a damage row, grounded on the teacher's ships/modifier_stack.go
// ModifierStack.Resolve coverage-interval sweep (same "what applies at
// this instant" shape) generalized into a three-tier fallback: direct
// coverage, timed lookback, and a final known-job/actor sweep, per
// spec.md §4.5.
package attribution

import (
	"sort"
	"strings"

	"github.com/nicoberrocal/combatlog/catalog"
	"github.com/nicoberrocal/combatlog/model"
)

// DefaultLookbackMs is the default "configuration constant" governing how
// far attribution looks back past a closed interval's end.
const DefaultLookbackMs model.Timestamp = 30000

// UnknownSource is the placeholder recorded when lookback/coverage both
// fail and the sweep has not yet run; the sweep treats any buff entry
// whose only credits are this placeholder as uncredited.
const UnknownSource = "Unknown"

// Attributor credits buffs, vulnerabilities and deaths across a fight's
// rows. It is built once per encounter and reused for every damage event
// in timestamp order (intervals are assumed final before attribution
// starts, matching the engine's "build everything, then attribute" phase
// ordering).
type Attributor struct {
	lookbackMs     model.Timestamp
	vulnNames      map[string]bool     // normalized vulnerability buff names
	knownJobs      map[string][]string // normalized buff -> job names, first match wins
	byBuff         map[string][]model.StatusInterval
	vulnIntervals  []model.StatusInterval
	deathIntervals []model.DeathInterval
	diags          []model.Diagnostic
}

// New builds an Attributor over a fixed set of status/vuln/death
// intervals. vulnNames and knownJobs are keyed by normalized buff name.
func New(lookbackMs model.Timestamp, vulnNames map[string]bool, knownJobs map[string][]string, statusIntervals, vulnIntervals []model.StatusInterval, deathIntervals []model.DeathInterval) *Attributor {
	a := &Attributor{
		lookbackMs:     lookbackMs,
		vulnNames:      vulnNames,
		knownJobs:      knownJobs,
		byBuff:         make(map[string][]model.StatusInterval),
		vulnIntervals:  vulnIntervals,
		deathIntervals: deathIntervals,
	}
	for _, iv := range statusIntervals {
		key := catalog.Normalize(iv.BuffName)
		a.byBuff[key] = append(a.byBuff[key], iv)
	}
	for key := range a.byBuff {
		sort.SliceStable(a.byBuff[key], func(i, j int) bool { return a.byBuff[key][i].Start < a.byBuff[key][j].Start })
	}
	return a
}

// Diagnostics returns all diagnostics accumulated across CreditBuffs calls
// and the final Sweep.
func (a *Attributor) Diagnostics() []model.Diagnostic { return a.diags }

// AddDiagnostics appends externally produced diagnostics (e.g. from
// mitigation arithmetic) to the attributor's accumulated list, so the
// assembler has a single place to collect everything for the FightTable.
func (a *Attributor) AddDiagnostics(diags []model.Diagnostic) {
	a.diags = append(a.diags, diags...)
}

// CreditBuffs populates row.Buffs for every buff name listed on the
// event, following the three-step algorithm of spec §4.5: direct
// coverage, then lookback, then an "Unknown" placeholder pending sweep.
func (a *Attributor) CreditBuffs(ts model.Timestamp, buffNames []string, row *model.Row) {
	if row.Buffs == nil {
		row.Buffs = make(map[string][]string)
	}
	for _, buff := range buffNames {
		key := catalog.Normalize(buff)
		intervals := a.byBuff[key]

		var sources []string
		for _, iv := range intervals {
			if iv.Covers(ts) {
				sources = append(sources, iv.Source)
			}
		}

		if len(sources) == 0 {
			if best, ok := a.lookback(ts, intervals); ok {
				sources = []string{best.Source}
			}
		}

		if len(sources) == 0 {
			sources = []string{UnknownSource}
			if !a.vulnNames[key] {
				a.diags = append(a.diags, model.Diagnostic{
					Kind: model.DiagAttributionGap, Severity: model.SevWarn,
					Message: "no source found for buff " + buff, Timestamp: ts,
				})
			} else {
				a.diags = append(a.diags, model.Diagnostic{
					Kind: model.DiagAttributionGap, Severity: model.SevDebug,
					Message: "no source found for vulnerability " + buff, Timestamp: ts,
				})
			}
		}

		row.Buffs[buff] = append(row.Buffs[buff], sources...)
	}
}

// lookback selects the most-recent closed interval (Start <= ts,
// ts-End <= lookbackMs) among candidates, per spec §4.5 step 2.
func (a *Attributor) lookback(ts model.Timestamp, candidates []model.StatusInterval) (model.StatusInterval, bool) {
	var best model.StatusInterval
	found := false
	for _, iv := range candidates {
		if iv.End == model.SentinelOpen {
			continue
		}
		if iv.Start > ts {
			continue
		}
		if ts-iv.End > a.lookbackMs {
			continue
		}
		if !found || iv.End > best.End {
			best = iv
			found = true
		}
	}
	return best, found
}

// CreditVulnsAndDeaths attaches vulns[name]=true for every vulnerability
// interval covering (actor, ts), and deaths=[actor,...] for every death
// interval covering ts, across the whole roster (not just actor).
func (a *Attributor) CreditVulnsAndDeaths(ts model.Timestamp, actor string, row *model.Row) {
	for _, iv := range a.vulnIntervals {
		if iv.Covers(ts) && iv.HasTarget(actor) {
			if row.Vulns == nil {
				row.Vulns = make(map[string]struct{})
			}
			row.Vulns[iv.BuffName] = struct{}{}
		}
	}
	for _, di := range a.deathIntervals {
		if di.Covers(ts) {
			row.Deaths = append(row.Deaths, di.Actor)
		}
	}
}

// Sweep is the post-processing pass of spec §4.5: for every row, any buff
// whose only credited sources are the Unknown placeholder is re-credited
// per the known-buff-job table against roster, falling back to the row's
// own actor as a last resort. friendlyRoster maps player name (as it
// appears on the actor) -> job name.
func (a *Attributor) Sweep(rows []model.Row, friendlyRoster map[string]string) {
	for i := range rows {
		row := &rows[i]
		for buff, sources := range row.Buffs {
			if !onlyUnknown(sources) {
				continue
			}
			key := catalog.Normalize(buff)
			if a.vulnNames[key] {
				row.Buffs[buff] = nil
				continue
			}
			if jobs, ok := a.knownJobs[key]; ok {
				if player, found := firstPlayerWithJob(friendlyRoster, jobs); found {
					row.Buffs[buff] = []string{player}
					continue
				}
			}
			row.Buffs[buff] = []string{row.Actor}
		}
	}
}

func onlyUnknown(sources []string) bool {
	if len(sources) == 0 {
		return true
	}
	for _, s := range sources {
		if s != UnknownSource {
			return false
		}
	}
	return true
}

func firstPlayerWithJob(roster map[string]string, jobs []string) (string, bool) {
	wanted := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		wanted[strings.ToLower(j)] = true
	}
	names := make([]string, 0, len(roster))
	for name := range roster {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if wanted[strings.ToLower(roster[name])] {
			return name, true
		}
	}
	return "", false
}
