// Package config loads the immutable, caller-supplied configuration
// tables — job actions, mitigation dataset, exclusive groups, dependency
// map, known-buff-jobs, linked-abilities, ignored buffs, and auto-attack
// names — from YAML, decoding directly into the catalog/cooldown/
// encounter packages' input structs. Grounded on the teacher-adjacent
// pkg/config/config.go Load idiom (os.ReadFile + yaml.Unmarshal into a
// defaulted struct), generalized from one flat Config to this domain's
// several distinct tables.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nicoberrocal/combatlog/catalog"
	"github.com/nicoberrocal/combatlog/cooldown"
	"github.com/nicoberrocal/combatlog/encounter"
	"github.com/nicoberrocal/combatlog/model"
	"github.com/nicoberrocal/combatlog/resolver"
)

// actionDoc/jobDoc mirror catalog.ActionConfig/JobConfig with yaml tags;
// catalog's own types stay free of serialization tags since other
// callers construct them directly from decoded data of their choosing.
type actionDoc struct {
	RecastSeconds float64  `yaml:"recast_seconds"`
	MaxCharges    int      `yaml:"max_charges"`
	Effects       []string `yaml:"effects"`
}

type jobDoc struct {
	Actions map[string]actionDoc `yaml:"actions"`
}

type mitigationDoc struct {
	Name          string  `yaml:"name"`
	Type          string  `yaml:"type"`
	Target        string  `yaml:"target"`
	AmountPct     float64 `yaml:"amount_pct"`
	Condition     string  `yaml:"condition"`
	GrantedBy     string  `yaml:"granted_by"`
	ParentAbility string  `yaml:"parent_ability"`
}

type exclusiveGroupDoc struct {
	Job       string   `yaml:"job"`
	GroupID   string   `yaml:"group_id"`
	Abilities []string `yaml:"abilities"`
}

type dependencyDoc struct {
	Job        string   `yaml:"job"`
	Trigger    string   `yaml:"trigger"`
	Handler    string   `yaml:"handler"`
	Affects    []string `yaml:"affects"`
	MaxCharges int      `yaml:"max_charges"`
}

type constantsDoc struct {
	LookbackWindowMs       int64 `yaml:"lookback_window_ms"`
	EarlyRemoveThresholdMs int64 `yaml:"early_remove_threshold_ms"`
	OathCost               int   `yaml:"oath_cost"`
	OathGainPerAuto        int   `yaml:"oath_gain_per_auto"`
	OathMax                int   `yaml:"oath_max"`
	StartingOath           int   `yaml:"starting_oath"`
}

func defaultConstantsDoc() constantsDoc {
	return constantsDoc{
		LookbackWindowMs:       30000,
		EarlyRemoveThresholdMs: 30000,
		OathCost:               50,
		OathGainPerAuto:        5,
		OathMax:                100,
		StartingOath:           100,
	}
}

// Document is the top-level YAML shape: every recognized config table
// from spec.md §6, plus the tunable constants from §6's defaults table.
type Document struct {
	Jobs              map[string]jobDoc          `yaml:"jobs"`
	Mitigations       map[string][]mitigationDoc `yaml:"mitigations"`
	ExclusiveGroups   []exclusiveGroupDoc        `yaml:"exclusive_groups"`
	Dependencies      []dependencyDoc            `yaml:"dependencies"`
	KnownBuffJobs     map[string][]string        `yaml:"known_buff_jobs"`
	LinkedAbilities   map[string][]string        `yaml:"linked_abilities"`
	IgnoredBuffs      []string                   `yaml:"ignored_buffs"`
	AutoAttackNames   []string                   `yaml:"auto_attack_names"`
	ResolverOverrides map[string]string          `yaml:"resolver_overrides"`
	PaladinJob        string                     `yaml:"paladin_job"`
	PaladinTrio       []string                   `yaml:"paladin_trio"`
	Constants         constantsDoc               `yaml:"constants"`
}

// Load reads path and decodes it into a Document, applying the
// documented constant defaults (spec.md §6) for anything the file omits.
func Load(path string) (*Document, error) {
	doc := &Document{Constants: defaultConstantsDoc()}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return doc, nil
}

// BuildConfig translates a decoded Document into an encounter.Config
// ready to hand to encounter.New, constructing the shared catalog and
// normalizing every ability and buff name along the way.
func (d *Document) BuildConfig() encounter.Config {
	// Job names are kept exactly as given (they are matched verbatim
	// against model.Actor.Job, not normalized like ability/buff names).
	jobs := make(map[string]catalog.JobConfig, len(d.Jobs))
	for job, jd := range d.Jobs {
		actions := make(map[string]catalog.ActionConfig, len(jd.Actions))
		for name, ad := range jd.Actions {
			actions[catalog.Normalize(name)] = catalog.ActionConfig{
				RecastSeconds: ad.RecastSeconds,
				MaxCharges:    ad.MaxCharges,
				Effects:       ad.Effects,
			}
		}
		jobs[job] = catalog.JobConfig{Actions: actions}
	}

	mitigations := make(map[string][]catalog.MitigationEntry, len(d.Mitigations))
	for job, entries := range d.Mitigations {
		out := make([]catalog.MitigationEntry, len(entries))
		for i, e := range entries {
			out[i] = catalog.MitigationEntry{
				Name: e.Name, Type: e.Type, Target: e.Target, AmountPct: e.AmountPct,
				Condition: e.Condition, GrantedBy: e.GrantedBy, ParentAbility: e.ParentAbility,
				Job: job,
			}
		}
		mitigations[job] = out
	}

	groups := make([]catalog.ExclusiveGroup, len(d.ExclusiveGroups))
	for i, g := range d.ExclusiveGroups {
		groups[i] = catalog.ExclusiveGroup{Job: g.Job, GroupID: g.GroupID, Abilities: g.Abilities}
	}

	cat := catalog.New(jobs, mitigations, groups)

	depMap := make([]cooldown.DependencyEntry, len(d.Dependencies))
	for i, dep := range d.Dependencies {
		depMap[i] = cooldown.DependencyEntry{
			Job: dep.Job, Trigger: dep.Trigger,
			Handler: cooldown.HandlerName(dep.Handler), Affects: dep.Affects, MaxCharges: dep.MaxCharges,
		}
	}

	vulnNames, knownJobs := normalizeKnownJobs(d.KnownBuffJobs)

	linked := make(resolver.LinkedGraph, len(d.LinkedAbilities))
	for ability, links := range d.LinkedAbilities {
		normLinks := make([]string, len(links))
		for i, l := range links {
			normLinks[i] = catalog.Normalize(l)
		}
		linked[catalog.Normalize(ability)] = normLinks
	}

	ignored := make(map[string]bool, len(d.IgnoredBuffs))
	for _, b := range d.IgnoredBuffs {
		ignored[catalog.Normalize(b)] = true
	}

	autoAttacks := make(map[string]bool, len(d.AutoAttackNames))
	for _, n := range d.AutoAttackNames {
		autoAttacks[catalog.Normalize(n)] = true
	}

	overrides := make(map[string]string, len(d.ResolverOverrides))
	for buff, ability := range d.ResolverOverrides {
		overrides[catalog.Normalize(buff)] = catalog.Normalize(ability)
	}

	return encounter.Config{
		Catalog: cat,
		DepMap:  depMap,
		Constants: cooldown.Constants{
			OathCost: d.Constants.OathCost, OathGainPerAuto: d.Constants.OathGainPerAuto,
			OathMax: d.Constants.OathMax, StartingOath: d.Constants.StartingOath,
		},
		PaladinJob:  d.PaladinJob,
		PaladinTrio: d.PaladinTrio,

		LookbackMs:             timestampOf(d.Constants.LookbackWindowMs),
		EarlyRemoveThresholdMs: timestampOf(d.Constants.EarlyRemoveThresholdMs),

		VulnNames:       vulnNames,
		KnownBuffJobs:   knownJobs,
		IgnoredBuffs:    ignored,
		AutoAttackNames: autoAttacks,

		ResolverOverrides: overrides,
		LinkedAbilities:   linked,
	}
}

// normalizeKnownJobs splits the known-buff-jobs table: entries whose job
// list names a vulnerability sentinel ("vulnerability") populate
// vulnNames instead of knownJobs, since the two tables share one YAML
// section but are consumed by different callers (§4.5's sweep vs. the
// vulnerability-recognition check that silences its warn-level logging).
func normalizeKnownJobs(raw map[string][]string) (vulnNames map[string]bool, knownJobs map[string][]string) {
	vulnNames = make(map[string]bool)
	knownJobs = make(map[string][]string, len(raw))
	for buff, jobs := range raw {
		norm := catalog.Normalize(buff)
		var kept []string
		for _, j := range jobs {
			if catalog.Normalize(j) == "vulnerability" {
				vulnNames[norm] = true
				continue
			}
			kept = append(kept, j)
		}
		if len(kept) > 0 {
			knownJobs[norm] = kept
		}
	}
	return vulnNames, knownJobs
}

func timestampOf(ms int64) model.Timestamp { return model.Timestamp(ms) }
