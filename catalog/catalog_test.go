package catalog

import (
	"testing"

	"github.com/nicoberrocal/combatlog/model"
)

func TestNormalizeIdempotent(t *testing.T) {
	in := "  Holy Sheltron  "
	once := Normalize(in)
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("normalize not idempotent: %q vs %q", once, twice)
	}
	if once != "holy sheltron" {
		t.Fatalf("unexpected normalization: %q", once)
	}
}

func TestResolveCooldown(t *testing.T) {
	cat := New(map[string]JobConfig{
		"Paladin": {Actions: map[string]ActionConfig{
			"holy sheltron": {RecastSeconds: 25, MaxCharges: 1},
		}},
	}, nil, nil)

	recast, maxCharges, ok := cat.ResolveCooldown("Paladin", "holy sheltron")
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if recast != 25000 {
		t.Fatalf("expected 25000ms recast, got %d", recast)
	}
	if maxCharges != 1 {
		t.Fatalf("expected 1 charge, got %d", maxCharges)
	}

	if _, _, ok := cat.ResolveCooldown("Paladin", "unknown ability"); ok {
		t.Fatal("expected resolution to fail for unknown ability")
	}
	if _, _, ok := cat.ResolveCooldown("Dragoon", "holy sheltron"); ok {
		t.Fatal("expected resolution to fail for wrong job")
	}
}

func TestMitigationListFiltersExclusiveGroups(t *testing.T) {
	cat := New(nil, map[string][]MitigationEntry{
		"Paladin": {
			{Name: "Sheltron", Job: "Paladin"},
			{Name: "Holy Sheltron", Job: "Paladin"},
			{Name: "Rampart", Job: "Paladin"},
		},
	}, []ExclusiveGroup{
		{Job: "Paladin", GroupID: "sheltron-variant", Abilities: []string{"Sheltron", "Holy Sheltron"}},
	})

	// No selection observed yet: both variants pass through.
	list := cat.MitigationList("Paladin", nil)
	if len(list) != 3 {
		t.Fatalf("expected 3 abilities with no selection, got %v", list)
	}

	selections := map[string]string{"sheltron-variant": "holy sheltron"}
	list = cat.MitigationList("Paladin", selections)
	found := map[string]bool{}
	for _, a := range list {
		found[Normalize(a)] = true
	}
	if found["sheltron"] {
		t.Fatal("expected non-selected variant to be filtered out")
	}
	if !found["holy sheltron"] {
		t.Fatal("expected selected variant to remain")
	}
	if !found["rampart"] {
		t.Fatal("expected non-exclusive ability to remain")
	}
}

func TestMitigationAmountFiltersByConditionAndRelation(t *testing.T) {
	cat := New(nil, map[string][]MitigationEntry{
		"Paladin": {
			{Name: "Rampart", Job: "Paladin", Target: "self", AmountPct: 0.20, Condition: "physical"},
		},
		"Scholar": {
			{Name: "Succor", Job: "Scholar", Target: "ally", AmountPct: 0.10, Condition: "magical"},
		},
	}, nil)

	amount, found, conflict := cat.MitigationAmount("rampart", model.DamagePhysical, "Paladin")
	if !found || conflict {
		t.Fatalf("expected a clean physical match, got found=%v conflict=%v", found, conflict)
	}
	if amount != 0.20 {
		t.Fatalf("expected 0.20, got %v", amount)
	}

	if _, found, _ := cat.MitigationAmount("rampart", model.DamageMagical, "Paladin"); found {
		t.Fatal("expected no match for wrong damage type")
	}

	// Ally relation: Succor cast by a Scholar mitigating a Paladin's damage.
	amount, found, _ = cat.MitigationAmount("succor", model.DamageMagical, "Paladin")
	if !found || amount != 0.10 {
		t.Fatalf("expected ally match at 0.10, got found=%v amount=%v", found, amount)
	}
}
