package resolver

import (
	"context"
	"testing"

	"github.com/nicoberrocal/combatlog/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(map[string]catalog.JobConfig{
		"paladin": {Actions: map[string]catalog.ActionConfig{
			"rampart":     {RecastSeconds: 90},
			"sentinel":    {RecastSeconds: 120, Effects: []string{"reduces damage taken by 10%, grants sentinel's resolve"}},
			"divine veil": {RecastSeconds: 90, Effects: []string{"grants the divine veil shield to target"}},
		}},
	}, nil, nil)
}

func TestClassifyDirectAction(t *testing.T) {
	r := New(testCatalog(), nil, nil, nil)
	r.Classify("Rampart", "paladin")
	e, ok := r.sourceMap.Get("rampart")
	if !ok || e.State != StateDirect || e.Ability != "rampart" {
		t.Fatalf("expected direct match, got %+v", e)
	}
}

func TestClassifyOverride(t *testing.T) {
	r := New(testCatalog(), map[string]string{"divine veil shield": "divine veil"}, nil, nil)
	r.Classify("Divine Veil Shield", "paladin")
	e, ok := r.sourceMap.Get("divine veil shield")
	if !ok || e.State != StateMapped || e.Ability != "divine veil" {
		t.Fatalf("expected mapped override, got %+v", e)
	}
}

func TestClassifyPendingThenDrainFuzzyMatch(t *testing.T) {
	r := New(testCatalog(), nil, nil, nil)
	r.Classify("Sentinel's Resolve", "paladin")

	e, _ := r.sourceMap.Get("sentinel's resolve")
	if e.State != StatePending {
		t.Fatalf("expected pending before drain, got %+v", e)
	}

	if err := r.Drain(context.Background(), map[string]string{"sentinel's resolve": "paladin"}); err != nil {
		t.Fatalf("drain error: %v", err)
	}

	e, _ = r.sourceMap.Get("sentinel's resolve")
	if e.State != StateMapped || e.Ability != "sentinel" {
		t.Fatalf("expected fuzzy match to sentinel, got %+v", e)
	}
}

func TestDrainUnresolvedWhenNoMatch(t *testing.T) {
	r := New(testCatalog(), nil, nil, nil)
	r.Classify("Mystery Buff", "paladin")

	if err := r.Drain(context.Background(), map[string]string{"mystery buff": "paladin"}); err != nil {
		t.Fatalf("drain error: %v", err)
	}
	e, _ := r.sourceMap.Get("mystery buff")
	if e.State != StateUnresolved {
		t.Fatalf("expected unresolved, got %+v", e)
	}
}

func TestResolveListPrefersClosureMemberInCurrentList(t *testing.T) {
	r := New(testCatalog(), nil, nil, LinkedGraph{
		"divine veil": {"sentinel"},
		"sentinel":    {"divine veil"},
	})
	r.sourceMap.Set("divine veil shield", Entry{State: StateMapped, Ability: "divine veil"})

	got := r.ResolveList([]string{"Divine Veil Shield"}, []string{"Sentinel"})
	want := []string{"sentinel"}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("expected closure preference for sentinel, got %v", got)
	}
}

func TestResolveListPassesThroughUnresolvedAndDedupes(t *testing.T) {
	r := New(testCatalog(), nil, nil, nil)
	r.sourceMap.Set("mystery", Entry{State: StateUnresolved})

	got := r.ResolveList([]string{"Mystery", "mystery"}, nil)
	if len(got) != 1 || got[0] != "mystery" {
		t.Fatalf("expected deduped passthrough, got %v", got)
	}
}
