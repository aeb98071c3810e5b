// Package catalog normalizes ability names and resolves per-job cooldown
// and mitigation data. It is the authority the Cooldown Engine and
// Mitigation Arithmetic consult for "what does this ability cost" and
// "what does this buff reduce", mirroring the teacher's
// AbilitiesCatalog/AbilityEffectsCatalog map-of-struct-literal style
// (ships/abilities.go, ships/ability_effects.go) generalized from a
// hardcoded literal to caller-supplied job configs.
package catalog

import (
	"sort"
	"strings"

	"github.com/nicoberrocal/combatlog/model"
)

// Normalize is the canonical, idempotent name normalization used
// everywhere an ability or buff name crosses a package boundary.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ActionConfig is one job action's cooldown shape, as loaded from job
// configs.
type ActionConfig struct {
	RecastSeconds float64
	MaxCharges    int      // 0 or 1 means "no extra charges"
	Effects       []string // free-text effect descriptions, used by the resolver's fuzzy match
}

// JobConfig is a single job's action table.
type JobConfig struct {
	Actions map[string]ActionConfig // keyed by Normalize(action name)
}

// MitigationEntry is one row of the mitigation dataset.
type MitigationEntry struct {
	Name          string
	Type          string // reduction, debuff, shield, special
	Target        string // self, ally, party, enemy
	AmountPct     float64
	Condition     string // optional damage-type condition
	GrantedBy     string
	ParentAbility string
	Job           string // the job this entry belongs to
}

// ExclusiveGroup is one set of abilities of which only one variant may
// appear in a fight.
type ExclusiveGroup struct {
	Job       string
	GroupID   string
	Abilities []string
}

// Catalog is the immutable, per-fight-shared configuration surface.
type Catalog struct {
	jobs        map[string]JobConfig
	mitigations map[string][]MitigationEntry // job -> entries
	groups      []ExclusiveGroup
	groupByAbil map[string]ExclusiveGroup // normalized ability -> its group
}

// New builds a Catalog from caller-supplied, already-decoded config data.
func New(jobs map[string]JobConfig, mitigations map[string][]MitigationEntry, groups []ExclusiveGroup) *Catalog {
	c := &Catalog{
		jobs:        jobs,
		mitigations: mitigations,
		groups:      groups,
		groupByAbil: make(map[string]ExclusiveGroup),
	}
	for _, g := range groups {
		for _, a := range g.Abilities {
			c.groupByAbil[Normalize(a)] = g
		}
	}
	return c
}

// ResolveCooldown returns the base recast (in ms) and max-charge count
// for a job's ability. ability must already be normalized.
func (c *Catalog) ResolveCooldown(job, ability string) (recastMs model.Timestamp, maxCharges int, ok bool) {
	jc, found := c.jobs[job]
	if !found {
		return 0, 0, false
	}
	action, found := jc.Actions[ability]
	if !found {
		return 0, 0, false
	}
	recastMs = model.Timestamp(action.RecastSeconds * 1000)
	maxCharges = action.MaxCharges
	if maxCharges < 1 {
		maxCharges = 1
	}
	return recastMs, maxCharges, true
}

// HasAction reports whether job has an action by this normalized name,
// i.e. whether a buff name is itself directly castable (the resolver's
// step 1: a buff named after its own ability maps to itself).
func (c *Catalog) HasAction(job, abilityNorm string) bool {
	jc, ok := c.jobs[job]
	if !ok {
		return false
	}
	_, ok = jc.Actions[abilityNorm]
	return ok
}

// FindByEffectSubstring scans job's actions for one whose Effects entries
// contain buffNorm as a case-insensitive substring, returning the first
// matching action's normalized name in sorted name order. Used by the
// resolver's fuzzy-match fallback (spec §4.7 step 3) when no
// known-buff-jobs table entry exists.
func (c *Catalog) FindByEffectSubstring(job, buffNorm string) (action string, ok bool) {
	jc, exists := c.jobs[job]
	if !exists {
		return "", false
	}
	names := make([]string, 0, len(jc.Actions))
	for name := range jc.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, effect := range jc.Actions[name].Effects {
			if strings.Contains(strings.ToLower(effect), buffNorm) {
				return name, true
			}
		}
	}
	return "", false
}

// ExclusiveGroupOf reports the exclusive group an ability belongs to, if
// any. ability must already be normalized.
func (c *Catalog) ExclusiveGroupOf(ability string) (groupID, job string, ok bool) {
	g, found := c.groupByAbil[ability]
	if !found {
		return "", "", false
	}
	return g.GroupID, g.Job, true
}

// MitigationList returns the job's baseline mitigation ability names,
// filtering mutually exclusive groups down to the fight's first-observed
// selection: when a group has a recorded selection and an ability in
// that group is not the selected variant, it is dropped.
func (c *Catalog) MitigationList(job string, selections map[string]string) []string {
	entries := c.mitigations[job]
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		norm := Normalize(e.Name)
		if groupID, g, ok := c.ExclusiveGroupOf(norm); ok && g == job {
			if sel, exists := selections[groupID]; exists && sel != norm {
				continue
			}
		}
		out = append(out, e.Name)
	}
	return out
}

// MitigationAmount searches the dataset across all jobs for the best
// matching entry for buffNorm, filtered by damage type condition (when
// damageType is physical or magical; unique/unknown skip the condition
// filter per the "unique is damage-type-less" behavior preserved from the
// source) and by self/ally relation against targetJob. It returns the
// fractional amount (e.g. 0.20 for 20%), whether a match was found, and
// whether multiple distinct-amount candidates remained after filtering
// (a MutualExclusionConflict-adjacent, logged-non-fatal situation).
func (c *Catalog) MitigationAmount(buffNorm string, damageType model.DamageType, targetJob string) (amount float64, found bool, conflict bool) {
	jobs := make([]string, 0, len(c.mitigations))
	for job := range c.mitigations {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)

	var candidates []MitigationEntry
	for _, job := range jobs {
		for _, e := range c.mitigations[job] {
			if Normalize(e.Name) != buffNorm && Normalize(e.ParentAbility) != buffNorm && Normalize(e.GrantedBy) != buffNorm {
				continue
			}
			if (damageType == model.DamagePhysical || damageType == model.DamageMagical) && e.Condition != "" {
				if !conditionMatches(e.Condition, damageType) {
					continue
				}
			}
			isSelf := e.Job == targetJob
			if isSelf && e.Target != "self" && e.Target != "party" {
				continue
			}
			if !isSelf && e.Target != "ally" && e.Target != "party" {
				continue
			}
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return 0, false, false
	}
	first := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.AmountPct != first.AmountPct {
			conflict = true
			break
		}
	}
	return first.AmountPct, true, conflict
}

func conditionMatches(condition string, dt model.DamageType) bool {
	cond := strings.ToLower(strings.TrimSpace(condition))
	return cond == string(dt)
}
