package cooldown

import (
	"testing"

	"github.com/nicoberrocal/combatlog/catalog"
	"github.com/nicoberrocal/combatlog/model"
)

func resolverFor(job string) ResolveJobFunc {
	return func(actor string) (string, bool) { return job, true }
}

// scenario 1: card placeholder.
func TestCardPlaceholderScenario(t *testing.T) {
	cat := catalog.New(map[string]catalog.JobConfig{
		"Astrologian": {Actions: map[string]catalog.ActionConfig{
			"the bole":     {RecastSeconds: 15},
			"umbral draw":  {RecastSeconds: 60},
		}},
	}, nil, nil)
	depMap := []DependencyEntry{
		{Job: "Astrologian", Trigger: "The Bole", Handler: HandlerCardDependency, Affects: []string{"The Bole"}},
		{Job: "Astrologian", Trigger: "Umbral Draw", Handler: HandlerCardDependency, Affects: []string{"The Bole"}},
	}
	e := New(cat, depMap, DefaultConstants(), "Paladin", nil)
	casts := []model.Cast{
		{Timestamp: 1200, Source: "Astro", AbilityName: "The Bole", Kind: model.CastKindCast},
		{Timestamp: 120000, Source: "Astro", AbilityName: "Umbral Draw", Kind: model.CastKindCast},
	}
	trackers, _, _, _ := e.Run(casts, nil, resolverFor("Astrologian"))

	bole := trackers[model.TrackerKey("Astro", "the bole")]
	if len(bole.Windows) != 1 || bole.Windows[0].Start != 1200 || bole.Windows[0].End != 120000 {
		t.Fatalf("expected The Bole window {1200,120000}, got %+v", bole.Windows)
	}
	draw := trackers[model.TrackerKey("Astro", "umbral draw")]
	if draw != nil && len(draw.Windows) != 0 {
		t.Fatalf("expected Umbral Draw to get no placeholder, got %+v", draw.Windows)
	}
}

// scenario 2: mutual draw pair.
func TestMutualDrawPairScenario(t *testing.T) {
	cat := catalog.New(map[string]catalog.JobConfig{
		"Astrologian": {Actions: map[string]catalog.ActionConfig{
			"astral draw": {RecastSeconds: 55},
			"umbral draw": {RecastSeconds: 55},
		}},
	}, nil, nil)
	depMap := []DependencyEntry{
		{Job: "Astrologian", Trigger: "Astral Draw", Handler: HandlerMutualExclusivePair, Affects: []string{"Umbral Draw"}},
		{Job: "Astrologian", Trigger: "Umbral Draw", Handler: HandlerMutualExclusivePair, Affects: []string{"Astral Draw"}},
	}
	e := New(cat, depMap, DefaultConstants(), "Paladin", nil)
	e.trackers[model.TrackerKey("Astro", "astral draw")] = &model.Tracker{
		Ability: "astral draw", Player: "Astro", Job: "Astrologian", BaseRecastMs: 55000,
		Windows: []model.CooldownWindow{{Start: 60000, End: model.SentinelOpen}},
	}
	casts := []model.Cast{
		{Timestamp: 120000, Source: "Astro", AbilityName: "Umbral Draw", Kind: model.CastKindCast},
	}
	trackers, _, _, _ := e.Run(casts, nil, resolverFor("Astrologian"))

	umbral := trackers[model.TrackerKey("Astro", "umbral draw")]
	if len(umbral.Windows) != 1 || umbral.Windows[0].Start != 120000 || !umbral.Windows[0].IsOpen() {
		t.Fatalf("expected Umbral Draw open window at 120000, got %+v", umbral.Windows)
	}
	astral := trackers[model.TrackerKey("Astro", "astral draw")]
	if len(astral.Windows) != 1 || astral.Windows[0].Start != 60000 || astral.Windows[0].End != 115000 {
		t.Fatalf("expected Astral Draw {60000,115000}, got %+v", astral.Windows)
	}
}

// scenario 3: paladin oath lock + release.
func TestPaladinOathLockAndReleaseScenario(t *testing.T) {
	cat := catalog.New(map[string]catalog.JobConfig{
		"Paladin": {Actions: map[string]catalog.ActionConfig{
			"holy sheltron": {RecastSeconds: 25},
			"intervention":  {RecastSeconds: 10},
			"sheltron":      {RecastSeconds: 5},
			"attack":        {RecastSeconds: 2.8},
		}},
	}, nil, nil)
	depMap := []DependencyEntry{
		{Job: "Paladin", Trigger: "Holy Sheltron", Handler: HandlerPaladinOathAbility},
		{Job: "Paladin", Trigger: "Sheltron", Handler: HandlerPaladinOathAbility},
		{Job: "Paladin", Trigger: "Intervention", Handler: HandlerPaladinOathAbility},
		{Job: "Paladin", Trigger: "Attack", Handler: HandlerPaladinAutoAttack},
	}
	e := New(cat, depMap, DefaultConstants(), "Paladin", []string{"Intervention", "Sheltron", "Holy Sheltron"})

	var casts []model.Cast
	casts = append(casts, model.Cast{Timestamp: 10000, Source: "Tank", AbilityName: "Holy Sheltron", Kind: model.CastKindCast})
	casts = append(casts, model.Cast{Timestamp: 36000, Source: "Tank", AbilityName: "Holy Sheltron", Kind: model.CastKindCast})
	for i := 0; i < 10; i++ {
		ts := model.Timestamp(37000 + i*1000)
		casts = append(casts, model.Cast{Timestamp: ts, Source: "Tank", AbilityName: "Attack", Kind: model.CastKindAutoAttack})
	}

	trackers, _, oath, _ := e.Run(casts, nil, resolverFor("Paladin"))

	hs := trackers[model.TrackerKey("Tank", "holy sheltron")]
	if len(hs.Windows) != 3 {
		t.Fatalf("expected Holy Sheltron to have 3 windows (base cast + the second cast's cooldown window and its oath lock), got %+v", hs.Windows)
	}
	if hs.Windows[0].Start != 10000 || hs.Windows[0].End != 35000 {
		t.Fatalf("expected first HS window {10000,35000}, got %+v", hs.Windows[0])
	}

	intervention := trackers[model.TrackerKey("Tank", "intervention")]
	if intervention == nil || len(intervention.Windows) != 1 {
		t.Fatalf("expected Intervention to gain exactly one lock, got %+v", intervention)
	}
	if intervention.Windows[0].End != 46000 {
		t.Fatalf("expected Intervention lock resolved to 46000, got %+v", intervention.Windows[0])
	}

	for _, w := range hs.Windows {
		if w.IsOpen() {
			t.Fatalf("expected no open Holy Sheltron windows after gauge regen, got %+v", hs.Windows)
		}
	}
	if g := oath.Get("Tank"); g != 50 {
		t.Fatalf("expected final gauge 50, got %d", g)
	}
}

// scenario 4: charged cooldown.
func TestChargedCooldownScenario(t *testing.T) {
	cat := catalog.New(map[string]catalog.JobConfig{
		"Dragoon": {Actions: map[string]catalog.ActionConfig{
			"charged ability": {RecastSeconds: 60, MaxCharges: 2},
		}},
	}, nil, nil)
	depMap := []DependencyEntry{
		{Job: "Dragoon", Trigger: "Charged Ability", Handler: HandlerCharged, MaxCharges: 2},
	}
	e := New(cat, depMap, DefaultConstants(), "Paladin", nil)
	casts := []model.Cast{
		{Timestamp: 1000, Source: "Drg", AbilityName: "Charged Ability", Kind: model.CastKindCast},
		{Timestamp: 6000, Source: "Drg", AbilityName: "Charged Ability", Kind: model.CastKindCast},
		{Timestamp: 61000, Source: "Drg", AbilityName: "Charged Ability", Kind: model.CastKindCast},
	}
	trackers, _, _, _ := e.Run(casts, nil, resolverFor("Dragoon"))
	tr := trackers[model.TrackerKey("Drg", "charged ability")]
	if len(tr.Windows) != 2 {
		t.Fatalf("expected 2 recorded windows, got %+v", tr.Windows)
	}
	if tr.Windows[0].Start != 6000 || tr.Windows[0].End != 61000 {
		t.Fatalf("expected {6000,61000}, got %+v", tr.Windows[0])
	}
	if tr.Windows[1].Start != 61000 || tr.Windows[1].End != 121000 {
		t.Fatalf("expected {61000,121000}, got %+v", tr.Windows[1])
	}
}

func TestChargedCooldownNeverExceedsBounds(t *testing.T) {
	cat := catalog.New(map[string]catalog.JobConfig{
		"Dragoon": {Actions: map[string]catalog.ActionConfig{"charged ability": {RecastSeconds: 30, MaxCharges: 3}}},
	}, nil, nil)
	depMap := []DependencyEntry{{Job: "Dragoon", Trigger: "Charged Ability", Handler: HandlerCharged, MaxCharges: 3}}
	e := New(cat, depMap, DefaultConstants(), "Paladin", nil)

	var casts []model.Cast
	ts := model.Timestamp(0)
	for i := 0; i < 50; i++ {
		casts = append(casts, model.Cast{Timestamp: ts, Source: "Drg", AbilityName: "Charged Ability", Kind: model.CastKindCast})
		ts += model.Timestamp(1000 + (i%7)*4000)
	}
	trackers, _, _, _ := e.Run(casts, nil, resolverFor("Dragoon"))
	tr := trackers[model.TrackerKey("Drg", "charged ability")]
	if tr.Charged.Charges < 0 || tr.Charged.Charges > tr.Charged.MaxCharges {
		t.Fatalf("charges out of bounds: %+v", tr.Charged)
	}
}

func TestPaladinDeathForcesGaugeZeroAndLocksTrio(t *testing.T) {
	cat := catalog.New(map[string]catalog.JobConfig{
		"Paladin": {Actions: map[string]catalog.ActionConfig{
			"holy sheltron": {RecastSeconds: 25},
			"intervention":  {RecastSeconds: 10},
			"sheltron":      {RecastSeconds: 5},
		}},
	}, nil, nil)
	depMap := []DependencyEntry{
		{Job: "Paladin", Trigger: "Holy Sheltron", Handler: HandlerPaladinOathAbility},
	}
	e := New(cat, depMap, DefaultConstants(), "Paladin", []string{"Intervention", "Sheltron", "Holy Sheltron"})
	deaths := []model.Death{{Timestamp: 5000, Actor: "Tank"}}
	casts := []model.Cast{
		{Timestamp: 10000, Source: "Tank", AbilityName: "Holy Sheltron", Kind: model.CastKindCast},
	}
	trackers, _, oath, _ := e.Run(casts, deaths, resolverFor("Paladin"))
	if oath.Get("Tank") != 0 {
		// gauge was forced to 0 at death and a 50-cost cast right after
		// stays clamped at 0, not negative
		t.Fatalf("expected gauge clamped at 0, got %d", oath.Get("Tank"))
	}
	for _, ability := range []string{"intervention", "sheltron", "holy sheltron"} {
		tr := trackers[model.TrackerKey("Tank", ability)]
		if tr == nil {
			t.Fatalf("expected a %s tracker created by the death lock", ability)
		}
		foundDeathLock := false
		for _, w := range tr.Windows {
			if w.Start == 5000 && w.IsOpen() {
				foundDeathLock = true
			}
		}
		if !foundDeathLock {
			t.Fatalf("expected a death-induced %s lock at 5000, got %+v", ability, tr.Windows)
		}
	}
}
