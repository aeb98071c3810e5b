// Package mitigation computes the intended multiplicative mitigation
// percentage for a set of active buffs, grounded on the teacher's
// ships/modifiers.go StatMods/CombineMods (named percentage contributions
// composed together) and ships/compute_v2.go's per-damage-type channel
// split (DamageMods.LaserPct/NuclearPct/AntimatterPct), generalized here
// to an arbitrary job-scoped, condition-filtered dataset instead of three
// hardcoded fields.
package mitigation

import (
	"math"
	"strings"

	"github.com/nicoberrocal/combatlog/catalog"
	"github.com/nicoberrocal/combatlog/model"
)

// Compute returns round(100 * (1 - product(1 - amount_i))) for every buff
// name that resolves to a dataset entry; buffs with no match contribute 0.
// Diagnostics record per-buff mutual-exclusion-style conflicts (multiple
// distinct-amount candidates after filtering — first candidate wins).
func Compute(buffNames []string, damageType model.DamageType, targetJob string, cat *catalog.Catalog) (pct float64, diags []model.Diagnostic) {
	product := 1.0
	seen := make(map[string]bool, len(buffNames))
	for _, buff := range buffNames {
		norm := catalog.Normalize(buff)
		if seen[norm] {
			continue
		}
		seen[norm] = true

		amount, found, conflict := cat.MitigationAmount(norm, damageType, targetJob)
		if conflict {
			diags = append(diags, model.Diagnostic{
				Kind: model.DiagMutualExclusionConflict, Severity: model.SevWarn,
				Message: "multiple mitigation amounts found for " + norm + ", using the first match",
			})
		}
		if !found {
			continue
		}
		product *= 1 - amount
	}
	pct = math.Round(100 * (1 - product))
	if pct < 0 {
		pct = 0
	}
	return pct, diags
}

// Botched reports whether intendedPct exceeds actualPct.
func Botched(intendedPct, actualPct float64) bool {
	return intendedPct > actualPct
}

// PotentiallyBotchedBuffs returns the buffs present on the final damage
// packet but absent from its paired calculated-damage packet, compared
// case-insensitively with deduplication.
func PotentiallyBotchedBuffs(finalBuffs, calculatedBuffs []string) []string {
	calcSet := make(map[string]bool, len(calculatedBuffs))
	for _, b := range calculatedBuffs {
		calcSet[strings.ToLower(b)] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, b := range finalBuffs {
		key := strings.ToLower(b)
		if calcSet[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}
